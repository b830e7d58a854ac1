// Package pipeline runs the two batch stages: extraction turns a directory of
// screenshots into an ordered question document, explanation annotates each
// question of that document with a model-written explanation.
//
// Both stages fan work out to a bounded pool. Every task writes into its own
// slot, indexed by input position, so the output never depends on the order
// in which tasks finish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"quiz-digest/internal/artifact"
	"quiz-digest/internal/events"
	"quiz-digest/internal/llm"
	"quiz-digest/internal/retry"
)

// ErrNoQuestions is returned by the explanation stage when its input holds no
// labelled question.
var ErrNoQuestions = errors.New("no labelled questions")

// Stage names used in logs and events.
const (
	StageExtract = "extract"
	StageExplain = "explain"
)

// FailurePolicy decides what a failed model call does to the run.
type FailurePolicy int

const (
	// FailSkip logs and counts the failure, the run continues.
	FailSkip FailurePolicy = iota
	// FailAbort cancels the run on the first failure.
	FailAbort
)

// ParseFailurePolicy maps the configuration value ("skip" or "abort").
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "skip":
		return FailSkip, nil
	case "abort":
		return FailAbort, nil
	default:
		return FailSkip, fmt.Errorf("unknown failure policy %q", s)
	}
}

// TextExtractor turns an input file into text, "" when nothing was read.
type TextExtractor interface {
	Extract(ctx context.Context, path string) string
}

// Templates builds prompts from named templates.
type Templates interface {
	Build(rawText, templateName string) (string, error)
	Require(names ...string) error
}

// Invoker sends one prompt to the model.
type Invoker interface {
	Invoke(ctx context.Context, prompt, model string) (llm.Completion, error)
}

// Auditor keeps a per-item record. It returns "" when nothing was written.
type Auditor interface {
	Record(ctx context.Context, source, text string, createdAt time.Time) string
}

// Options are the scheduling knobs shared by both stages.
type Options struct {
	Model          string
	Workers        int
	InvokeTimeout  time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	FailurePolicy  FailurePolicy
}

// Summary reports what a run did.
type Summary struct {
	Stage      string
	OutputPath string
	// Processed counts the items that reached an outcome. It is below the
	// input count only when the run was cancelled or aborted.
	Processed  int
	Aggregated int
	Skipped    int
	Failed     int
}

func (s Summary) event(runID uuid.UUID) events.RunCompleted {
	return events.RunCompleted{
		RunID:      runID,
		Stage:      s.Stage,
		OutputPath: s.OutputPath,
		Processed:  s.Processed,
		Aggregated: s.Aggregated,
		Skipped:    s.Skipped,
		Failed:     s.Failed,
		FinishedAt: time.Now().UTC(),
	}
}

// outcome is the per-slot result of one task.
type outcome int

const (
	outcomePending outcome = iota
	outcomeOK
	outcomeSkipped
	outcomeFailed
)

func tally(stage, output string, outcomes []outcome) Summary {
	s := Summary{Stage: stage, OutputPath: output}
	for _, o := range outcomes {
		if o != outcomePending {
			s.Processed++
		}
		switch o {
		case outcomeOK:
			s.Aggregated++
		case outcomeSkipped:
			s.Skipped++
		case outcomeFailed:
			s.Failed++
		}
	}
	return s
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}

// invoke calls the model under a per-attempt timeout, retrying transient
// failures with exponential backoff. An empty completion or a cancelled
// parent context is not retried.
func invoke(ctx context.Context, log *slog.Logger, inv Invoker, opts Options, prompt string) (llm.Completion, error) {
	var out llm.Completion
	err := retry.Do(ctx, opts.RetryAttempts, opts.RetryBaseDelay, func(attempt int) error {
		callCtx := ctx
		if opts.InvokeTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, opts.InvokeTimeout)
			defer cancel()
		}
		c, err := inv.Invoke(callCtx, prompt, opts.Model)
		if err == nil {
			out = c
			return nil
		}
		if errors.Is(err, llm.ErrEmptyCompletion) || ctx.Err() != nil {
			return retry.Permanent(err)
		}
		log.Warn("model invocation failed", "attempt", attempt+1, "max_attempts", opts.RetryAttempts, "err", err)
		return err
	})
	return out, err
}

// writeDocument writes doc to path, creating parent directories.
func writeDocument(path, doc string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}
	return nil
}

// Publication carries the optional outputs of a run: progress events and
// artifact upload. Zero values disable both.
type Publication struct {
	RunID          uuid.UUID
	Events         events.Publisher
	Artifacts      artifact.Store
	ArtifactPrefix string
}

func (p Publication) item(ctx context.Context, log *slog.Logger, ev events.ItemProcessed) {
	if p.Events == nil {
		return
	}
	ev.RunID = p.RunID
	if err := p.Events.PublishItem(ctx, ev); err != nil {
		log.Warn("failed to publish item event", "source", ev.Source, "err", err)
	}
}

func (p Publication) run(ctx context.Context, log *slog.Logger, s Summary) {
	if p.Events == nil {
		return
	}
	if err := p.Events.PublishRun(ctx, s.event(p.RunID)); err != nil {
		log.Warn("failed to publish run event", "err", err)
	}
}

func (p Publication) upload(ctx context.Context, log *slog.Logger, path string, body []byte) {
	upload(ctx, log, p.Artifacts, artifact.Key(p.ArtifactPrefix, p.RunID, path), path, body)
}

// upload copies a finished file to the artifact store. Failures are logged.
func upload(ctx context.Context, log *slog.Logger, store artifact.Store, key, path string, body []byte) {
	if store == nil {
		return
	}
	loc, err := store.Put(ctx, key, body, artifact.ContentType(path))
	if err != nil {
		log.Warn("artifact upload failed", "path", path, "err", err)
		return
	}
	if loc != "" {
		log.Info("artifact uploaded", "path", path, "location", loc)
	}
}

// runPool runs task(i) for every i in [0, n) on at most workers goroutines.
// The first task error cancels the context passed to the remaining tasks and
// is returned once all of them have finished.
func runPool(ctx context.Context, workers, n int, task func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return nil
			}
			return task(gctx, i)
		})
	}
	return g.Wait()
}
