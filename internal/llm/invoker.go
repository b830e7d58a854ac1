package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quiz-digest/internal/cache"
)

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Invoker sends prompts to a Client, consults the completion cache and logs
// the telemetry of every call. Client errors are returned unchanged.
type Invoker struct {
	client Client
	cache  cache.Cache
	ttl    time.Duration
	log    *slog.Logger
}

// NewInvoker wires an Invoker. A nil cache disables caching.
func NewInvoker(client Client, c cache.Cache, ttl time.Duration, log *slog.Logger) *Invoker {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	return &Invoker{client: client, cache: c, ttl: ttl, log: log}
}

// Invoke returns the cleaned completion text for prompt on model.
func (i *Invoker) Invoke(ctx context.Context, prompt, model string) (Completion, error) {
	key := cache.Key(model, prompt)
	if hit, err := i.cache.GetCompletion(ctx, key); err != nil {
		i.log.Warn("completion cache read failed", "err", err)
	} else if hit != nil {
		i.log.Debug("completion cache hit", "model", model)
		return Completion{Text: hit.Text, Telemetry: Telemetry{
			Duration:       time.Duration(hit.DurationNS),
			PromptTokens:   hit.PromptTokens,
			ResponseTokens: hit.ResponseTokens,
			CreatedAt:      hit.CreatedAt,
		}}, nil
	}

	out, err := i.client.Generate(ctx, Request{Model: model, Prompt: prompt})
	if err != nil {
		return Completion{}, err
	}
	out.Text = StripFences(out.Text)
	LogStats(i.log, model, out.Telemetry)
	if out.Text == "" {
		return Completion{}, ErrEmptyCompletion
	}

	entry := &cache.Entry{
		Text:           out.Text,
		DurationNS:     int64(out.Telemetry.Duration),
		PromptTokens:   out.Telemetry.PromptTokens,
		ResponseTokens: out.Telemetry.ResponseTokens,
		CreatedAt:      out.Telemetry.CreatedAt,
	}
	if err := i.cache.SetCompletion(ctx, key, entry, i.ttl); err != nil {
		i.log.Warn("completion cache write failed", "err", err)
	}
	return out, nil
}

// LogStats logs inference time, token counts and, when defined, throughput.
func LogStats(log *slog.Logger, model string, t Telemetry) {
	attrs := []any{
		"model", model,
		"inference_ms", float64(t.Duration) / float64(time.Millisecond),
		"prompt_tokens", t.PromptTokens,
		"response_tokens", t.ResponseTokens,
	}
	if rate, ok := t.Throughput(); ok {
		attrs = append(attrs, "tokens_per_sec", rate)
	}
	log.Info("model invocation", attrs...)
}

var fenceOpeners = []string{"```markdown", "```md", "```text", "```"}

// StripFences trims text and removes a code fence wrapping the whole
// response. Fences around part of a response are kept.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	firstLine, rest, found := strings.Cut(s, "\n")
	if !found {
		return s
	}
	opener := strings.TrimSpace(firstLine)
	known := false
	for _, f := range fenceOpeners {
		if opener == f {
			known = true
			break
		}
	}
	if !known {
		return s
	}
	inner := strings.TrimSuffix(rest, "```")
	if strings.Contains(inner, "```") {
		return s
	}
	return strings.TrimSpace(inner)
}
