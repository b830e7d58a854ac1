// Package events publishes run progress so other systems can follow a batch.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	SubjectItemProcessed = "quiz.item.processed"
	SubjectRunCompleted  = "quiz.run.completed"
)

// ItemStatus is the outcome of one processed item.
type ItemStatus string

const (
	ItemOK      ItemStatus = "ok"
	ItemSkipped ItemStatus = "skipped"
	ItemFailed  ItemStatus = "failed"
)

// ItemProcessed is published once per input item.
type ItemProcessed struct {
	RunID    uuid.UUID  `json:"run_id"`
	Stage    string     `json:"stage"`
	Source   string     `json:"source"`
	Index    int        `json:"index"`
	Status   ItemStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
	Duration float64    `json:"duration_seconds"`
}

// RunCompleted is published after the output document is written.
type RunCompleted struct {
	RunID      uuid.UUID `json:"run_id"`
	Stage      string    `json:"stage"`
	OutputPath string    `json:"output_path"`
	Processed  int       `json:"processed"`
	Aggregated int       `json:"aggregated"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	FinishedAt time.Time `json:"finished_at"`
}

// Publisher emits run events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishItem(ctx context.Context, ev ItemProcessed) error
	PublishRun(ctx context.Context, ev RunCompleted) error
	Close() error
}
