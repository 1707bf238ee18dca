package loader

import (
	"errors"
	"fmt"
	"strings"
)

// Record is one data row of a tabular file.
type Record struct {
	// Source is the file path, or the value of the configured source column.
	Source string
	// Row is the 0-based index of the data row (the header is not counted).
	Row int
	// Columns lists the content columns in header order.
	Columns []string
	// Values maps each content column to its cell.
	Values map[string]string
	// Metadata holds cells of columns configured as metadata-only.
	Metadata map[string]string
}

// Get returns the value of column col.
func (r Record) Get(col string) (string, bool) {
	v, ok := r.Values[col]
	return v, ok
}

// Text returns the representation fed to the embedding model: one
// `"column": value` line per content column.
func (r Record) Text() string {
	row := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		row[i] = r.Values[c]
	}
	return formatLines(r.Columns, row)
}

// String renders the record for printing, e.g.
// `stats.csv:0 {name: A, pts: 10}`.
func (r Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d {", r.Source, r.Row)
	for i, c := range r.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", c, r.Values[c])
	}
	b.WriteString("}")
	return b.String()
}

// FromRow returns the row text for parallel column and cell slices.
func FromRow(columns, row []string) (string, error) {
	if len(columns) == 0 {
		return "", errors.New("empty fields")
	}
	if len(columns) != len(row) {
		return "", errors.New("fields and row must have the same length")
	}
	return formatLines(columns, row), nil
}

func formatLines(columns, row []string) string {
	lines := make([]string, len(columns))
	for i, c := range columns {
		lines[i] = fmt.Sprintf("%q: %s", c, row[i])
	}
	return strings.Join(lines, "\n")
}

// Texts returns the row text of every record, in order.
func Texts(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Text()
	}
	return out
}

// Join renders a whole record sequence as a single string: each record's
// String form, comma separated, inside brackets, as in
// "[stats.csv:0 {name: A}, stats.csv:1 {name: B}]".
func Join(records []Record) string {
	parts := make([]string, len(records))
	for i, r := range records {
		parts[i] = r.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
