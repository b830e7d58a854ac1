package llm

import (
	"context"
	"time"
)

// Client is a minimal text-generation interface to allow pluggable providers.
type Client interface {
	Generate(ctx context.Context, req Request) (Completion, error)
}

// Request is one prompt sent to model.
type Request struct {
	Model  string
	Prompt string
}

// Completion is the model output plus its performance counters.
type Completion struct {
	Text      string
	Telemetry Telemetry
}

// Telemetry carries the counters reported alongside a completion.
type Telemetry struct {
	Duration       time.Duration
	PromptTokens   int
	ResponseTokens int
	CreatedAt      time.Time
}

// Throughput returns response tokens per second. ok is false when Duration is
// not positive, in which case no rate is defined.
func (t Telemetry) Throughput() (rate float64, ok bool) {
	if t.Duration <= 0 {
		return 0, false
	}
	return float64(t.ResponseTokens) / t.Duration.Seconds(), true
}
