// Package pipeline runs the load, print, embed, print sequence over a
// tabular file.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/statembed/statembed/internal/adapter"
	"github.com/statembed/statembed/internal/loader"
	"github.com/statembed/statembed/internal/logger"
	"github.com/statembed/statembed/internal/render"
)

// Mode selects what is sent to the embedding model.
type Mode string

const (
	// ModePerRow embeds the text of every record separately.
	ModePerRow Mode = "per-row"
	// ModeWhole embeds the whole printed record sequence as one input.
	ModeWhole Mode = "whole"
)

// ParseMode validates s as a Mode. Empty means ModePerRow.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModePerRow:
		return ModePerRow, nil
	case ModeWhole:
		return ModeWhole, nil
	default:
		return "", fmt.Errorf("pipeline: unknown mode %q; valid modes: per-row, whole", s)
	}
}

// Options configures a Run.
type Options struct {
	Path     string
	Loader   loader.Options
	Mode     Mode
	Renderer render.Renderer
	Logger   *slog.Logger
	// Progress, when set, is called right before the embedding call with
	// the number of inputs. The returned func is called when it returns.
	Progress func(inputs int) (stop func())
}

// Result holds everything a Run produced.
type Result struct {
	Records   []loader.Record
	Inputs    []string
	Vectors   [][]float32
	Dimension int
}

// Inputs returns the embedding inputs for records under mode.
func Inputs(records []loader.Record, mode Mode) []string {
	if mode == ModeWhole {
		return []string{loader.Join(records)}
	}
	return loader.Texts(records)
}

// Run loads opts.Path, prints the records to out, embeds them with emb and
// prints the vectors. It stops at the first error; a load failure happens
// before emb is called.
func Run(ctx context.Context, opts Options, emb adapter.Embedder, out io.Writer) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	log = log.With("run", uuid.NewString())

	r := opts.Renderer
	if r == nil {
		r = &render.TextRenderer{}
	}
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}

	records, err := loader.Load(opts.Path, opts.Loader)
	if err != nil {
		return nil, err
	}
	log.Debug("records loaded", "path", opts.Path, "records", len(records))

	res := &Result{Records: records}
	if err := r.Records(out, records); err != nil {
		return res, fmt.Errorf("pipeline: print records: %w", err)
	}

	res.Inputs = Inputs(records, mode)
	if len(records) == 0 && mode == ModePerRow {
		log.Info("no data rows; nothing to embed", "path", opts.Path)
		if err := r.Vectors(out, nil); err != nil {
			return res, fmt.Errorf("pipeline: print vectors: %w", err)
		}
		return res, nil
	}

	start := time.Now()
	stop := func() {}
	if opts.Progress != nil {
		stop = opts.Progress(len(res.Inputs))
	}
	vecs, err := emb.Embed(ctx, res.Inputs)
	stop()
	if err != nil {
		return res, fmt.Errorf("pipeline: embed: %w", err)
	}

	dim, err := adapter.CheckVectors(len(res.Inputs), vecs)
	if err != nil {
		return res, fmt.Errorf("pipeline: embed: %w", err)
	}
	res.Vectors = vecs
	res.Dimension = dim
	log.Info("embedded",
		"inputs", len(res.Inputs),
		"mode", string(mode),
		"dimension", dim,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := r.Vectors(out, vecs); err != nil {
		return res, fmt.Errorf("pipeline: print vectors: %w", err)
	}
	return res, nil
}
