package prompt

import (
	"fmt"
	"strings"
	"sync"

	"github.com/statembed/statembed/internal/index"
)

// DefaultBudget is the token budget used when none is configured.
const DefaultBudget = 4000

const (
	template = "Using these statistics: %s. Respond to this prompt: %s"
	rowSep   = "; "
)

// Builder assembles completion prompts.
type Builder struct {
	budget int

	once      sync.Once
	tokenizer *Tokenizer
	err       error
}

// NewBuilder creates a Builder limited to budget tokens (0 = DefaultBudget).
// A nil tokenizer is created on the first Build.
func NewBuilder(tokenizer *Tokenizer, budget int) *Builder {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Builder{tokenizer: tokenizer, budget: budget}
}

// Built is the result of a Build call.
type Built struct {
	Text      string
	Tokens    int
	RowsUsed  int
	Truncated bool
}

func (b *Builder) tok() (*Tokenizer, error) {
	b.once.Do(func() {
		if b.tokenizer == nil {
			b.tokenizer, b.err = NewTokenizer()
		}
	})
	return b.tokenizer, b.err
}

// Build renders question and the matched rows into a prompt. Rows are
// listed nearest first; the rows block is cut so the whole prompt fits the
// budget. The question is never cut. RowsUsed counts the rows that made it
// into the prompt in full.
func (b *Builder) Build(question string, matches []index.Match) (Built, error) {
	tok, err := b.tok()
	if err != nil {
		return Built{}, err
	}

	rows := make([]string, len(matches))
	for i, m := range matches {
		rows[i] = m.Record.String()
	}
	block := strings.Join(rows, rowSep)

	overhead := tok.Count(fmt.Sprintf(template, "", question))
	room := b.budget - overhead
	out := Built{RowsUsed: len(matches)}
	if tok.Count(block) > room {
		block = tok.Truncate(block, room)
		out.Truncated = true
		out.RowsUsed = wholeRows(rows, block)
	}

	out.Text = fmt.Sprintf(template, block, question)
	out.Tokens = tok.Count(out.Text)
	return out, nil
}

// wholeRows reports how many leading rows block holds uncut. Row text may
// itself contain the separator, so rows are matched by prefix rather than
// by splitting block.
func wholeRows(rows []string, block string) int {
	var prefix strings.Builder
	n := 0
	for i, r := range rows {
		if i > 0 {
			prefix.WriteString(rowSep)
		}
		prefix.WriteString(r)
		if !strings.HasPrefix(block, prefix.String()) {
			break
		}
		n++
	}
	return n
}
