package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/statembed/statembed/internal/index"
	"github.com/statembed/statembed/internal/loader"
)

// Runs first so the encoding is not already cached in the process.
func TestNewTokenizer_Offline(t *testing.T) {
	t.Setenv("TIKTOKEN_CACHE_DIR", t.TempDir())
	t.Setenv("HTTPS_PROXY", "http://127.0.0.1:1")
	t.Setenv("HTTP_PROXY", "http://127.0.0.1:1")

	tok, err := NewTokenizer()
	if err != nil {
		t.Fatalf("NewTokenizer without network: %v", err)
	}
	if n := tok.Count("Points per game"); n <= 0 {
		t.Errorf("Count = %d", n)
	}
}

func newTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tok, err := NewTokenizer()
	if err != nil {
		t.Fatalf("NewTokenizer: %v", err)
	}
	return tok
}

func TestTokenizer_Count(t *testing.T) {
	tok := newTokenizer(t)
	if n := tok.Count("Hello, world!"); n <= 0 {
		t.Errorf("expected positive token count, got %d", n)
	}
	if n := tok.Count(""); n != 0 {
		t.Errorf("expected 0 tokens for empty string, got %d", n)
	}
}

func TestTokenizer_Truncate(t *testing.T) {
	tok := newTokenizer(t)

	long := "This is a fairly long string that should have more than five tokens in total."
	truncated := tok.Truncate(long, 5)
	if len(truncated) >= len(long) {
		t.Error("truncated string should be shorter than original")
	}
	if n := tok.Count(truncated); n > 5 {
		t.Errorf("truncated to 5 tokens but Count says %d", n)
	}
	if got := tok.Truncate("Hi", 100); got != "Hi" {
		t.Errorf("short string should not be truncated: got %q", got)
	}
	if got := tok.Truncate("Hi", 0); got != "" {
		t.Errorf("zero budget: got %q", got)
	}
}

func match(row int, name, pts string) index.Match {
	return index.Match{Record: loader.Record{
		Source:  "stats.csv",
		Row:     row,
		Columns: []string{"name", "pts"},
		Values:  map[string]string{"name": name, "pts": pts},
	}}
}

func TestBuild(t *testing.T) {
	b := NewBuilder(newTokenizer(t), 0)
	got, err := b.Build("Who scored most?", []index.Match{match(0, "A", "10"), match(1, "B", "20")})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := "Using these statistics: stats.csv:0 {name: A, pts: 10}; stats.csv:1 {name: B, pts: 20}. Respond to this prompt: Who scored most?"
	if got.Text != want {
		t.Errorf("Text =\n%q\nwant\n%q", got.Text, want)
	}
	if got.Truncated || got.RowsUsed != 2 {
		t.Errorf("Truncated = %v, RowsUsed = %d", got.Truncated, got.RowsUsed)
	}
	if got.Tokens <= 0 || got.Tokens > DefaultBudget {
		t.Errorf("Tokens = %d", got.Tokens)
	}
}

func TestBuild_NoMatches(t *testing.T) {
	b := NewBuilder(newTokenizer(t), 100)
	got, err := b.Build("anything", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got.Text != "Using these statistics: . Respond to this prompt: anything" {
		t.Errorf("Text = %q", got.Text)
	}
	if got.RowsUsed != 0 {
		t.Errorf("RowsUsed = %d", got.RowsUsed)
	}
}

func TestBuild_Budget(t *testing.T) {
	tok := newTokenizer(t)
	var matches []index.Match
	for i := range 50 {
		matches = append(matches, match(i, strings.Repeat("player", 5), "100"))
	}
	question := "Who is the best?"
	budget := 60
	got, err := NewBuilder(tok, budget).Build(question, matches)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !got.Truncated {
		t.Fatal("expected truncation")
	}
	if !strings.HasSuffix(got.Text, "Respond to this prompt: "+question) {
		t.Errorf("question was cut: %q", got.Text)
	}
	// Re-encoding can merge tokens at the cut, so allow a little slack.
	if got.Tokens > budget+2 {
		t.Errorf("Tokens = %d, budget %d", got.Tokens, budget)
	}
	if got.RowsUsed >= len(matches) || got.RowsUsed == 0 {
		t.Errorf("RowsUsed = %d", got.RowsUsed)
	}
}

func TestNewBuilder_LazyTokenizer(t *testing.T) {
	b := NewBuilder(nil, 0)
	if b.tokenizer != nil {
		t.Fatal("tokenizer created before Build")
	}
	got, err := b.Build("q", []index.Match{match(0, "A", "10")})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if b.tokenizer == nil {
		t.Error("tokenizer not created by Build")
	}
	if got.RowsUsed != 1 || got.Truncated {
		t.Errorf("RowsUsed = %d, Truncated = %v", got.RowsUsed, got.Truncated)
	}
}

func TestBuild_SeparatorInValue(t *testing.T) {
	tok := newTokenizer(t)
	m := index.Match{Record: loader.Record{
		Source:  "stats.csv",
		Columns: []string{"note"},
		Values:  map[string]string{"note": "traded; " + strings.Repeat("injured again ", 40)},
	}}
	question := "Who?"
	budget := tok.Count(fmt.Sprintf(template, "", question)) + 10

	got, err := NewBuilder(tok, budget).Build(question, []index.Match{m})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !got.Truncated {
		t.Fatal("expected truncation")
	}
	if got.RowsUsed != 0 {
		t.Errorf("RowsUsed = %d, want 0 for a cut row", got.RowsUsed)
	}
}

func TestWholeRows(t *testing.T) {
	rows := []string{"a {x: 1; 2}", "b {x: 3}", "c {x: 4}"}
	full := strings.Join(rows, "; ")
	tests := []struct {
		block string
		want  int
	}{
		{"", 0},
		{"a {x: 1; 2", 0},
		{rows[0], 1},
		{rows[0] + "; b {x", 1},
		{rows[0] + "; " + rows[1], 2},
		{full, 3},
	}
	for _, tt := range tests {
		if got := wholeRows(rows, tt.block); got != tt.want {
			t.Errorf("wholeRows(%q) = %d, want %d", tt.block, got, tt.want)
		}
	}
}
