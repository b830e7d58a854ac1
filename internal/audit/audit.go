// Package audit keeps one record per processed image. Records are write-only:
// the pipeline never reads them back.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is a single audit record.
type Entry struct {
	RunID     uuid.UUID
	Source    string
	Response  string
	CreatedAt time.Time
}

// Sink persists entries and returns a handle identifying what was written
// (a file path or a row key).
type Sink interface {
	Write(ctx context.Context, e Entry) (string, error)
}

// Logger records entries through a Sink. Write failures are logged and never
// reach the caller.
type Logger struct {
	sink  Sink
	runID uuid.UUID
	log   *slog.Logger
}

func NewLogger(sink Sink, runID uuid.UUID, log *slog.Logger) *Logger {
	return &Logger{sink: sink, runID: runID, log: log}
}

// Record writes one entry and returns its handle, or "" when the write failed.
func (l *Logger) Record(ctx context.Context, source, text string, createdAt time.Time) string {
	handle, err := l.sink.Write(ctx, Entry{
		RunID:     l.runID,
		Source:    source,
		Response:  text,
		CreatedAt: createdAt,
	})
	if err != nil {
		l.log.Warn("failed to write audit record", "source", source, "err", err)
		return ""
	}
	l.log.Debug("audit record written", "source", source, "handle", handle)
	return handle
}

// Format renders an entry in the on-disk Markdown layout.
func Format(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Created at: %s\n", e.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Image path: `%s`\n", e.Source)
	b.WriteString("# Response\n")
	b.WriteString("```text\n")
	b.WriteString(strings.TrimSpace(e.Response))
	b.WriteString("\n```\n")
	return b.String()
}
