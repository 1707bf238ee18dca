// Package render prints loaded records and embedding vectors.
package render

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/statembed/statembed/internal/loader"
)

// Renderer writes records and vectors in one output format.
type Renderer interface {
	Records(w io.Writer, records []loader.Record) error
	Vectors(w io.Writer, vectors [][]float32) error
}

// registry maps format names to Renderer implementations.
var registry = map[string]Renderer{
	"text":     &TextRenderer{},
	"json":     &JSONRenderer{},
	"markdown": &MarkdownRenderer{},
}

// Get returns the Renderer registered under name, and whether it was found.
func Get(name string) (Renderer, bool) {
	r, ok := registry[name]
	return r, ok
}

// ValidFormats returns the supported format names, sorted.
func ValidFormats() []string {
	formats := make([]string, 0, len(registry))
	for k := range registry {
		formats = append(formats, k)
	}
	sort.Strings(formats)
	return formats
}

// Lookup is Get with an error naming the valid formats.
func Lookup(name string) (Renderer, error) {
	r, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("render: unknown format %q; valid formats: %s", name, strings.Join(ValidFormats(), ", "))
	}
	return r, nil
}

// TextRenderer prints one record or vector per line.
type TextRenderer struct{}

func (r *TextRenderer) Records(w io.Writer, records []loader.Record) error {
	for _, rec := range records {
		if _, err := fmt.Fprintln(w, rec.String()); err != nil {
			return err
		}
	}
	return nil
}

func (r *TextRenderer) Vectors(w io.Writer, vectors [][]float32) error {
	for _, v := range vectors {
		if _, err := fmt.Fprintln(w, FormatVector(v)); err != nil {
			return err
		}
	}
	return nil
}

// FormatVector renders v as `[0.1, -0.2, ...]` with the shortest float32
// representation of each component.
func FormatVector(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
