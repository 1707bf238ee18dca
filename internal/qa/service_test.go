package qa

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/statembed/statembed/internal/adapter"
	"github.com/statembed/statembed/internal/db"
	"github.com/statembed/statembed/internal/index"
	"github.com/statembed/statembed/internal/loader"
	"github.com/statembed/statembed/internal/prompt"
)

func testRecords(t *testing.T) []loader.Record {
	t.Helper()
	records, err := loader.Read(strings.NewReader("name,pts\nA,10\nB,20\nC,30\n"), "stats.csv", loader.Options{})
	if err != nil {
		t.Fatalf("loader.Read: %v", err)
	}
	return records
}

func newService(t *testing.T, records []loader.Record, mock *adapter.MockAdapter) *Service {
	t.Helper()
	database, err := db.Open()
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	svc, err := New(Options{
		Records:   records,
		Embedder:  mock,
		Completer: mock,
		Index:     index.New(database),
		Builder:   prompt.NewBuilder(nil, 0),
		ChatModel: "mock",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error without embedder")
	}
	if _, err := New(Options{Embedder: adapter.NewMock(4)}); err == nil {
		t.Error("expected error without index")
	}
}

func TestIndex_Once(t *testing.T) {
	mock := adapter.NewMock(8)
	svc := newService(t, testRecords(t), mock)

	if err := svc.Index(context.Background()); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := svc.Index(context.Background()); err != nil {
		t.Fatalf("Index again: %v", err)
	}
	if mock.Calls() != 1 {
		t.Errorf("Embed called %d times, want 1", mock.Calls())
	}
}

func TestNearest(t *testing.T) {
	records := testRecords(t)
	svc := newService(t, records, adapter.NewMock(16))

	// The mock embeds identical text to an identical vector.
	matches, err := svc.Nearest(context.Background(), records[1].Text(), 2)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if v, _ := matches[0].Record.Get("name"); v != "B" {
		t.Errorf("nearest = %q, want B", v)
	}
	if matches[0].Distance > 1e-6 {
		t.Errorf("distance = %f, want 0", matches[0].Distance)
	}
}

func TestNearest_MissingQuestion(t *testing.T) {
	mock := adapter.NewMock(8)
	svc := newService(t, testRecords(t), mock)

	if _, err := svc.Nearest(context.Background(), "  ", 1); !errors.Is(err, ErrMissingQuestion) {
		t.Errorf("expected ErrMissingQuestion, got %v", err)
	}
	if mock.Calls() != 0 {
		t.Errorf("Embed called %d times, want 0", mock.Calls())
	}
}

func TestNearest_NoRecords(t *testing.T) {
	svc := newService(t, nil, adapter.NewMock(8))
	matches, err := svc.Nearest(context.Background(), "anything", 1)
	if err != nil || len(matches) != 0 {
		t.Errorf("matches %v, err %v", matches, err)
	}
}

func TestAnswer(t *testing.T) {
	records := testRecords(t)
	mock := adapter.NewMock(16)
	svc := newService(t, records, mock)

	question := records[2].Text()
	ans, err := svc.Answer(context.Background(), question)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(ans.Matches) != 1 {
		t.Fatalf("got %d matches, want TopK 1", len(ans.Matches))
	}
	if !strings.Contains(ans.Prompt.Text, "{name: C, pts: 30}") {
		t.Errorf("prompt missing nearest row: %q", ans.Prompt.Text)
	}
	// The mock echoes the prompt back.
	if ans.Response != ans.Prompt.Text {
		t.Errorf("response = %q", ans.Response)
	}

	mock.Reply = "C scored 30."
	ans, err = svc.Answer(context.Background(), question)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Response != "C scored 30." {
		t.Errorf("response = %q", ans.Response)
	}
}

func TestAnswer_EmbedFailure(t *testing.T) {
	records := testRecords(t)
	mock := adapter.NewMock(8)
	svc := newService(t, records, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Answer(ctx, "who?"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type recordingCompleter struct {
	*adapter.MockAdapter
	reqs []adapter.CompletionRequest
}

func (r *recordingCompleter) Complete(ctx context.Context, req adapter.CompletionRequest) (<-chan adapter.StreamChunk, error) {
	r.reqs = append(r.reqs, req)
	return r.MockAdapter.Complete(ctx, req)
}

func TestAnswer_Stream(t *testing.T) {
	database, err := db.Open()
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	mock := adapter.NewMock(8)
	mock.Reply = "streamed"
	rec := &recordingCompleter{MockAdapter: mock}
	svc, err := New(Options{
		Records:   testRecords(t),
		Embedder:  mock,
		Completer: rec,
		Index:     index.New(database),
		Builder:   prompt.NewBuilder(nil, 0),
		ChatModel: "mock",
		MaxTokens: 64,
		Stream:    true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ans, err := svc.Answer(context.Background(), "who?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Response != "streamed" {
		t.Errorf("response = %q", ans.Response)
	}
	if len(rec.reqs) != 1 {
		t.Fatalf("Complete called %d times, want 1", len(rec.reqs))
	}
	if got := rec.reqs[0]; !got.Stream || got.MaxTokens != 64 || got.Model != "mock" {
		t.Errorf("request = %+v", got)
	}
}
