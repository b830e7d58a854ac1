package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"quiz-digest/internal/events"
	"quiz-digest/internal/llm"
	"quiz-digest/internal/quiz"
)

// Extraction turns every matching image under InputDir into one question
// record and writes the ordered document to OutputFile.
type Extraction struct {
	InputDir   string
	Extensions []string
	OutputFile string
	Template   string
	Order      quiz.OrderPolicy
	Options    Options

	Extractor TextExtractor
	Templates Templates
	Invoker   Invoker
	Audit     Auditor
	Publish   Publication
	Log       *slog.Logger
}

// ListInputs returns the files directly under dir whose extension matches one
// of exts, case-insensitively, in lexicographic path order.
func ListInputs(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	want := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		want[ext] = true
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if want[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// Run executes the extraction stage. Configuration problems (missing
// template, unreadable input dir) are returned before any item is processed.
func (e *Extraction) Run(ctx context.Context) (Summary, error) {
	if err := e.Templates.Require(e.Template); err != nil {
		return Summary{}, err
	}
	paths, err := ListInputs(e.InputDir, e.Extensions)
	if err != nil {
		return Summary{}, err
	}
	e.Log.Info("extraction starting", "inputs", len(paths), "workers", e.Options.workers(), "run_id", e.Publish.RunID)

	records := make([]*quiz.Record, len(paths))
	outcomes := make([]outcome, len(paths))
	err = runPool(ctx, e.Options.workers(), len(paths), func(ctx context.Context, i int) error {
		return e.process(ctx, i, paths[i], records, outcomes)
	})
	summary := tally(StageExtract, e.OutputFile, outcomes)
	if err != nil {
		return summary, fmt.Errorf("extraction aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	kept := make([]quiz.Record, 0, len(records))
	for _, r := range records {
		if r != nil {
			kept = append(kept, *r)
		}
	}
	doc := quiz.AggregateRecords(kept, e.Order)
	if err := writeDocument(e.OutputFile, doc); err != nil {
		return summary, err
	}
	e.Publish.upload(ctx, e.Log, e.OutputFile, []byte(doc))
	e.Publish.run(ctx, e.Log, summary)

	e.Log.Info("extraction complete",
		"output", e.OutputFile,
		"processed", summary.Processed,
		"aggregated", summary.Aggregated,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (e *Extraction) process(ctx context.Context, i int, path string, records []*quiz.Record, outcomes []outcome) error {
	start := time.Now()
	log := e.Log.With("source", path)
	ev := events.ItemProcessed{Stage: StageExtract, Source: path}
	report := func(o outcome, err error) {
		outcomes[i] = o
		ev.Duration = time.Since(start).Seconds()
		switch o {
		case outcomeOK:
			ev.Status = events.ItemOK
		case outcomeSkipped:
			ev.Status = events.ItemSkipped
		default:
			ev.Status = events.ItemFailed
			ev.Error = err.Error()
		}
		e.Publish.item(ctx, log, ev)
	}

	text := e.Extractor.Extract(ctx, path)
	if strings.TrimSpace(text) == "" {
		log.Warn("no text extracted, skipping")
		report(outcomeSkipped, nil)
		return nil
	}

	c, err := e.complete(ctx, log, text)
	if err != nil {
		log.Error("item failed", "err", err)
		report(outcomeFailed, err)
		if e.Options.FailurePolicy == FailAbort {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	}

	rec := e.accept(ctx, log, i, path, c)
	records[i] = &rec
	ev.Index = rec.Index
	report(outcomeOK, nil)
	log.Info("item processed", "index", rec.Index, "parsed", rec.Parsed, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (e *Extraction) complete(ctx context.Context, log *slog.Logger, text string) (llm.Completion, error) {
	prompt, err := e.Templates.Build(text, e.Template)
	if err != nil {
		return llm.Completion{}, err
	}
	return invoke(ctx, log, e.Invoker, e.Options, prompt)
}

func (e *Extraction) accept(ctx context.Context, log *slog.Logger, i int, path string, c llm.Completion) quiz.Record {
	createdAt := c.Telemetry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if e.Audit != nil {
		e.Audit.Record(ctx, path, c.Text, createdAt)
	}
	rec := quiz.NewRecord(path, c.Text, i)
	if !rec.Parsed {
		log.Warn("response has no question label", "placement", e.Order.String())
	}
	return rec
}
