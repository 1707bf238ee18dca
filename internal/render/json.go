package render

import (
	"encoding/json"
	"io"

	"github.com/statembed/statembed/internal/index"
	"github.com/statembed/statembed/internal/loader"
)

// JSONRenderer writes indented JSON documents.
type JSONRenderer struct{}

// JSONRecord is the JSON shape of a loader.Record.
type JSONRecord struct {
	Source   string            `json:"source"`
	Row      int               `json:"row"`
	Values   map[string]string `json:"values"`
	Columns  []string          `json:"columns"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// JSONMatch is the JSON shape of a nearest-row result.
type JSONMatch struct {
	JSONRecord
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
}

type jsonVectors struct {
	Count     int         `json:"count"`
	Dimension int         `json:"dimension"`
	Vectors   [][]float32 `json:"vectors"`
}

// ToJSONRecords converts records to their JSON shape.
func ToJSONRecords(records []loader.Record) []JSONRecord {
	out := make([]JSONRecord, len(records))
	for i, r := range records {
		out[i] = JSONRecord{
			Source:   r.Source,
			Row:      r.Row,
			Values:   r.Values,
			Columns:  r.Columns,
			Metadata: r.Metadata,
		}
	}
	return out
}

// ToJSONMatches converts nearest-row results to their JSON shape.
func ToJSONMatches(matches []index.Match) []JSONMatch {
	out := make([]JSONMatch, len(matches))
	for i, m := range matches {
		out[i] = JSONMatch{
			JSONRecord: ToJSONRecords([]loader.Record{m.Record})[0],
			Distance:   m.Distance,
			Similarity: m.Similarity,
		}
	}
	return out
}

func (r *JSONRenderer) Records(w io.Writer, records []loader.Record) error {
	return writeJSON(w, map[string]any{"records": ToJSONRecords(records)})
}

func (r *JSONRenderer) Vectors(w io.Writer, vectors [][]float32) error {
	out := jsonVectors{Count: len(vectors), Vectors: vectors}
	if len(vectors) > 0 {
		out.Dimension = len(vectors[0])
	}
	if out.Vectors == nil {
		out.Vectors = [][]float32{}
	}
	return writeJSON(w, out)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
