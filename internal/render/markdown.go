package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/statembed/statembed/internal/loader"
)

// MarkdownRenderer prints records as a table and vectors as a short
// summary list.
type MarkdownRenderer struct{}

// previewDims is how many leading components of each vector are shown.
const previewDims = 4

func (r *MarkdownRenderer) Records(w io.Writer, records []loader.Record) error {
	var b strings.Builder
	b.WriteString("## Records\n\n")
	if len(records) == 0 {
		b.WriteString("_No records._\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	cols := records[0].Columns
	fmt.Fprintf(&b, "| row | %s |\n", strings.Join(escapeCells(cols), " | "))
	fmt.Fprintf(&b, "|---|%s\n", strings.Repeat("---|", len(cols)))
	for _, rec := range records {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = rec.Values[c]
		}
		fmt.Fprintf(&b, "| %d | %s |\n", rec.Row, strings.Join(escapeCells(cells), " | "))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *MarkdownRenderer) Vectors(w io.Writer, vectors [][]float32) error {
	var b strings.Builder
	b.WriteString("## Embeddings\n\n")
	if len(vectors) == 0 {
		b.WriteString("_No embeddings._\n")
	}
	for i, v := range vectors {
		head := v
		suffix := ""
		if len(head) > previewDims {
			head = head[:previewDims]
			suffix = " ..."
		}
		fmt.Fprintf(&b, "- %d (dim %d): `%s%s`\n", i, len(v), FormatVector(head), suffix)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}
