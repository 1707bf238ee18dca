// Package loader reads delimited text files into ordered records.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
)

var (
	// ErrNotFound is returned when the input file does not exist. Errors
	// carrying it also match fs.ErrNotExist.
	ErrNotFound = errors.New("loader: file not found")
	// ErrEmpty is returned when the input has no header row.
	ErrEmpty = errors.New("loader: no header row")
)

// Options controls how a file is parsed.
type Options struct {
	// Delimiter separates cells. Zero means ','.
	Delimiter rune
	// Columns, when set, is used as the header and the first line is data.
	Columns []string
	// SourceColumn names a column whose value replaces the file path as
	// the record's Source.
	SourceColumn string
	// MetadataColumns are kept out of the row text and stored in Metadata.
	MetadataColumns []string
	// LazyQuotes relaxes quote handling for hand-edited exports.
	LazyQuotes bool
}

// Load reads every data row of the file at path.
func Load(path string, opts Options) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer f.Close()

	return Read(f, path, opts)
}

// Read parses records from r. source is recorded as each record's Source
// unless opts.SourceColumn is set.
func Read(r io.Reader, source string, opts Options) ([]Record, error) {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.LazyQuotes = opts.LazyQuotes
	cr.FieldsPerRecord = -1

	header := opts.Columns
	if len(header) == 0 {
		first, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		if err != nil {
			return nil, fmt.Errorf("loader: read %s header: %w", source, err)
		}
		header = first
	}
	header = trimAll(header)

	width := len(header)
	// A trailing delimiter on the header yields an unnamed last column.
	if width > 0 && header[width-1] == "" {
		header = header[:width-1]
	}
	if len(header) == 0 || allEmpty(header) {
		return nil, ErrEmpty
	}

	meta := make(map[string]bool, len(opts.MetadataColumns))
	for _, c := range opts.MetadataColumns {
		if !slices.Contains(header, c) {
			return nil, fmt.Errorf("loader: metadata column %q not in header", c)
		}
		meta[c] = true
	}
	if opts.SourceColumn != "" && !slices.Contains(header, opts.SourceColumn) {
		return nil, fmt.Errorf("loader: source column %q not in header", opts.SourceColumn)
	}

	var content []string
	for _, c := range header {
		if !meta[c] {
			content = append(content, c)
		}
	}

	var records []Record
	for {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("loader: read %s: %w", source, err)
		}
		if len(cells) == width && width > len(header) {
			cells = cells[:len(header)]
		}
		if len(cells) != len(header) {
			return nil, fmt.Errorf("loader: read %s: row %d has %d cells, header has %d",
				source, len(records), len(cells), len(header))
		}

		rec := Record{
			Source:  source,
			Row:     len(records),
			Columns: content,
			Values:  make(map[string]string, len(content)),
		}
		for i, c := range header {
			v := strings.TrimSpace(cells[i])
			if meta[c] {
				if rec.Metadata == nil {
					rec.Metadata = make(map[string]string, len(meta))
				}
				rec.Metadata[c] = v
				continue
			}
			rec.Values[c] = v
		}
		if opts.SourceColumn != "" {
			if v, ok := rec.Values[opts.SourceColumn]; ok {
				rec.Source = v
			} else {
				rec.Source = rec.Metadata[opts.SourceColumn]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func trimAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func allEmpty(ss []string) bool {
	for _, s := range ss {
		if s != "" {
			return false
		}
	}
	return true
}
