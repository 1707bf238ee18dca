package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/statembed/statembed/internal/index"
	"github.com/statembed/statembed/internal/loader"
)

func sampleRecords() []loader.Record {
	return []loader.Record{
		{Source: "stats.csv", Row: 0, Columns: []string{"name", "pts"}, Values: map[string]string{"name": "A", "pts": "10"}},
		{Source: "stats.csv", Row: 1, Columns: []string{"name", "pts"}, Values: map[string]string{"name": "B|C", "pts": "20"}},
	}
}

func TestGet_AllFormats(t *testing.T) {
	for _, name := range ValidFormats() {
		if _, ok := Get(name); !ok {
			t.Errorf("Get(%q) not found", name)
		}
	}
	if _, ok := Get("yaml"); ok {
		t.Error("Get(yaml) should not be found")
	}
}

func TestValidFormats_Sorted(t *testing.T) {
	got := strings.Join(ValidFormats(), ",")
	if got != "json,markdown,text" {
		t.Errorf("got %q", got)
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("yaml")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "json, markdown, text") {
		t.Errorf("error should list formats: %v", err)
	}
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := &TextRenderer{}
	if err := r.Records(&buf, sampleRecords()); err != nil {
		t.Fatal(err)
	}
	if err := r.Vectors(&buf, [][]float32{{0.5, -1}, {0.25, 2}}); err != nil {
		t.Fatal(err)
	}

	want := "stats.csv:0 {name: A, pts: 10}\n" +
		"stats.csv:1 {name: B|C, pts: 20}\n" +
		"[0.5, -1]\n" +
		"[0.25, 2]\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestJSONRenderer_Records(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONRenderer{}).Records(&buf, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	var out struct {
		Records []JSONRecord `json:"records"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(out.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(out.Records))
	}
	if out.Records[1].Values["pts"] != "20" {
		t.Errorf("pts = %q", out.Records[1].Values["pts"])
	}
}

func TestJSONRenderer_Vectors(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONRenderer{}).Vectors(&buf, [][]float32{{1, 2, 3}, {4, 5, 6}}); err != nil {
		t.Fatal(err)
	}

	var out jsonVectors
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.Count != 2 || out.Dimension != 3 {
		t.Errorf("count=%d dimension=%d", out.Count, out.Dimension)
	}
}

func TestJSONRenderer_NoVectors(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONRenderer{}).Vectors(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"vectors": []`) {
		t.Errorf("expected empty vectors array, got %s", buf.String())
	}
}

func TestMarkdownRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := &MarkdownRenderer{}
	if err := r.Records(&buf, sampleRecords()); err != nil {
		t.Fatal(err)
	}
	if err := r.Vectors(&buf, [][]float32{{1, 2, 3, 4, 5, 6}}); err != nil {
		t.Fatal(err)
	}
	got := buf.String()

	for _, want := range []string{
		"| row | name | pts |",
		"| 1 | B\\|C | 20 |",
		"- 0 (dim 6): `[1, 2, 3, 4] ...`",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestMarkdownRenderer_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownRenderer{}).Records(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "_No records._") {
		t.Errorf("got %q", buf.String())
	}
}

func TestFormatVector(t *testing.T) {
	if got := FormatVector(nil); got != "[]" {
		t.Errorf("got %q, want []", got)
	}
	if got := FormatVector([]float32{0.1}); got != "[0.1]" {
		t.Errorf("got %q, want [0.1]", got)
	}
}

func TestToJSONMatches(t *testing.T) {
	recs := sampleRecords()
	matches := []index.Match{{Record: recs[1], Distance: 1, Similarity: 0.5}}

	data, err := json.Marshal(ToJSONMatches(matches))
	if err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d matches", len(got))
	}
	if got[0]["row"] != float64(1) || got[0]["similarity"] != 0.5 || got[0]["distance"] != float64(1) {
		t.Errorf("match = %v", got[0])
	}
}
