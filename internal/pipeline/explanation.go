package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"quiz-digest/internal/events"
	"quiz-digest/internal/quiz"
	"quiz-digest/internal/render"
)

// ExplainPrefix introduces the section text in an explanation prompt.
const ExplainPrefix = "Explain the following answer: "

// Explanation reads a question document, asks the model to explain every
// labelled section and writes the annotated document in the original order.
type Explanation struct {
	InputFile  string
	OutputFile string
	// HTMLFile, when set, also receives the output rendered as HTML.
	HTMLFile string
	Template string
	Options  Options

	Templates Templates
	Invoker   Invoker
	Publish   Publication
	Log       *slog.Logger
}

// Run executes the explanation stage. A missing template or input document
// is returned before any section is processed; an input without any labelled
// section yields ErrNoQuestions.
func (x *Explanation) Run(ctx context.Context) (Summary, error) {
	if err := x.Templates.Require(x.Template); err != nil {
		return Summary{}, err
	}
	data, err := os.ReadFile(x.InputFile)
	if err != nil {
		return Summary{}, fmt.Errorf("read input document: %w", err)
	}

	var sections []string
	skipped := 0
	for _, s := range quiz.Segment(string(data)) {
		if !quiz.HasLabel(s) {
			x.Log.Warn("section has no question label, skipping", "preview", preview(s))
			skipped++
			continue
		}
		sections = append(sections, s)
	}
	if len(sections) == 0 {
		// Leave no stale output from an earlier run behind.
		summary := Summary{Stage: StageExplain, OutputPath: x.OutputFile, Skipped: skipped, Processed: skipped}
		if err := writeDocument(x.OutputFile, ""); err != nil {
			return summary, err
		}
		return summary, fmt.Errorf("%s: %w", x.InputFile, ErrNoQuestions)
	}
	x.Log.Info("explanation starting", "sections", len(sections), "skipped", skipped, "workers", x.Options.workers(), "run_id", x.Publish.RunID)

	out := make([]string, len(sections))
	outcomes := make([]outcome, len(sections))
	err = runPool(ctx, x.Options.workers(), len(sections), func(ctx context.Context, i int) error {
		return x.process(ctx, i, sections[i], out, outcomes)
	})
	summary := tally(StageExplain, x.OutputFile, outcomes)
	summary.Processed += skipped
	summary.Skipped += skipped
	if err != nil {
		return summary, fmt.Errorf("explanation aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	doc := quiz.Join(out)
	if err := writeDocument(x.OutputFile, doc); err != nil {
		return summary, err
	}
	x.Publish.upload(ctx, x.Log, x.OutputFile, []byte(doc))

	if x.HTMLFile != "" {
		title := strings.TrimSuffix(filepath.Base(x.OutputFile), filepath.Ext(x.OutputFile))
		if err := render.WriteFile(x.HTMLFile, title, doc); err != nil {
			x.Log.Warn("failed to render html", "path", x.HTMLFile, "err", err)
		} else if page, err := os.ReadFile(x.HTMLFile); err == nil {
			x.Publish.upload(ctx, x.Log, x.HTMLFile, page)
		}
	}
	x.Publish.run(ctx, x.Log, summary)

	x.Log.Info("explanation complete",
		"output", x.OutputFile,
		"processed", summary.Processed,
		"aggregated", summary.Aggregated,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

// process fills out[i]. A failed section is kept without an explanation so
// the output still lists every question.
func (x *Explanation) process(ctx context.Context, i int, section string, out []string, outcomes []outcome) error {
	start := time.Now()
	index := quiz.ExtractIndex(section)
	log := x.Log.With("index", index)
	ev := events.ItemProcessed{Stage: StageExplain, Source: x.InputFile, Index: index}

	out[i] = section
	explanation, err := x.explain(ctx, log, section)
	ev.Duration = time.Since(start).Seconds()
	if err != nil {
		outcomes[i] = outcomeFailed
		ev.Status = events.ItemFailed
		ev.Error = err.Error()
		x.Publish.item(ctx, log, ev)
		log.Error("section failed", "err", err)
		if x.Options.FailurePolicy == FailAbort {
			return fmt.Errorf("question %d: %w", index, err)
		}
		return nil
	}

	out[i] = section + "\n\n" + explanation
	outcomes[i] = outcomeOK
	ev.Status = events.ItemOK
	x.Publish.item(ctx, log, ev)
	log.Info("section explained", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (x *Explanation) explain(ctx context.Context, log *slog.Logger, section string) (string, error) {
	prompt, err := x.Templates.Build(ExplainPrefix+section, x.Template)
	if err != nil {
		return "", err
	}
	c, err := invoke(ctx, log, x.Invoker, x.Options, prompt)
	if err != nil {
		return "", err
	}
	return c.Text, nil
}

func preview(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	const limit = 60
	if utf8.RuneCountInString(line) > limit {
		return string([]rune(line)[:limit]) + "..."
	}
	return line
}
