// Package index keeps embedded records in an in-memory sqlite-vec table
// and answers nearest-row queries against it.
package index

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/statembed/statembed/internal/db"
	"github.com/statembed/statembed/internal/loader"
)

// ErrDimension is returned when a vector's length differs from the index's.
var ErrDimension = errors.New("index: vector dimension mismatch")

// maxK is the largest k sqlite-vec accepts in a KNN query.
const maxK = 4096

// Match is one nearest-row result.
type Match struct {
	Record   loader.Record
	Distance float64
	// Similarity is 1 / (1 + Distance).
	Similarity float64
}

// Index maps record vectors to records. The vector table is created on the
// first Add, which fixes the dimension.
type Index struct {
	db *db.DB

	mu    sync.RWMutex
	dim   int
	count int
}

// New returns an empty Index backed by database.
func New(database *db.DB) *Index {
	return &Index{db: database}
}

// Dimension returns the vector dimension, or 0 before the first Add.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.count
}

// Add stores records with their vectors. vectors[i] belongs to records[i].
func (ix *Index) Add(records []loader.Record, vectors [][]float32) error {
	if len(records) != len(vectors) {
		return fmt.Errorf("index: %d records but %d vectors", len(records), len(vectors))
	}
	if len(records) == 0 {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	dim := ix.dim
	if dim == 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimension, i, len(v), dim)
		}
	}
	if ix.dim == 0 {
		if err := ix.db.EnsureVectorTable(dim); err != nil {
			return fmt.Errorf("index: %w", err)
		}
		ix.dim = dim
	}

	tx, err := ix.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("index: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for i, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("index: encode record %d: %w", i, err)
		}
		res, err := tx.Exec(
			`INSERT INTO rows (source, row_idx, content, record) VALUES (?, ?, ?, ?)`,
			rec.Source, rec.Row, rec.Text(), string(payload),
		)
		if err != nil {
			return fmt.Errorf("index: insert row: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("index: row id: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO vec_rows (rowid, embedding) VALUES (?, ?)`,
			id, float32SliceToBlob(vectors[i]),
		); err != nil {
			return fmt.Errorf("index: insert vector: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w", err)
	}
	ix.count += len(records)
	return nil
}

// Nearest returns up to k records closest to query, nearest first.
func (ix *Index) Nearest(query []float32, k int) ([]Match, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.count == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d", ErrDimension, len(query), ix.dim)
	}
	k = min(k, ix.count, maxK)

	rows, err := ix.db.Conn().Query(
		`WITH knn AS (
			SELECT rowid, distance FROM vec_rows
			WHERE embedding MATCH ? AND k = ?
		)
		SELECT r.record, knn.distance
		FROM knn JOIN rows r ON r.id = knn.rowid
		ORDER BY knn.distance`,
		float32SliceToBlob(query), k,
	)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()
	return scanMatches(rows)
}

func scanMatches(rows *sql.Rows) ([]Match, error) {
	var out []Match
	for rows.Next() {
		var (
			payload string
			m       Match
		)
		if err := rows.Scan(&payload, &m.Distance); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &m.Record); err != nil {
			return nil, fmt.Errorf("index: decode record: %w", err)
		}
		// sqlite-vec returns L2 distance.
		m.Similarity = 1.0 / (1.0 + m.Distance)
		out = append(out, m)
	}
	return out, rows.Err()
}

// float32SliceToBlob serialises a float32 slice to a little-endian byte blob.
// This is the format expected by sqlite-vec's BLOB column input.
func float32SliceToBlob(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
