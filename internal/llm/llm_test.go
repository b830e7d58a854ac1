package llm

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"quiz-digest/internal/cache"
	"quiz-digest/internal/logger"
)

func TestThroughput(t *testing.T) {
	tests := []struct {
		name   string
		tel    Telemetry
		want   float64
		wantOK bool
	}{
		{"two seconds", Telemetry{Duration: 2 * time.Second, ResponseTokens: 100}, 50, true},
		{"sub second", Telemetry{Duration: 500 * time.Millisecond, ResponseTokens: 10}, 20, true},
		{"zero duration", Telemetry{Duration: 0, ResponseTokens: 100}, 0, false},
		{"negative duration", Telemetry{Duration: -1, ResponseTokens: 100}, 0, false},
		{"zero tokens", Telemetry{Duration: time.Second}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.tel.Throughput()
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
		})
	}
}

func TestLogStatsZeroDuration(t *testing.T) {
	assert.NotPanics(t, func() {
		LogStats(logger.Discard(), "m", Telemetry{})
	})
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  Question 1: A \n", "Question 1: A"},
		{"markdown fence", "```markdown\nQuestion 1: A\n```", "Question 1: A"},
		{"bare fence", "```\nQuestion 1: A\n```\n", "Question 1: A"},
		{"text fence", "```text\nQuestion 1: A\n```", "Question 1: A"},
		{"code fence kept", "```python\ndf.write\n```", "```python\ndf.write\n```"},
		{"inner fence kept", "```\na\n```\nmiddle\n```\nb\n```", "```\na\n```\nmiddle\n```\nb\n```"},
		{"partial fence kept", "Question 1:\n```\ncode\n```", "Question 1:\n```\ncode\n```"},
		{"single line", "``````", "``````"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestInvokerCallsClientAndCaches(t *testing.T) {
	client := new(MockClient)
	c := new(cache.MockCache)
	key := cache.Key("gemma3:12b", "prompt")
	tel := Telemetry{Duration: time.Second, PromptTokens: 12, ResponseTokens: 6}

	c.On("GetCompletion", mock.Anything, key).Return(nil, nil).Once()
	client.On("Generate", mock.Anything, Request{Model: "gemma3:12b", Prompt: "prompt"}).
		Return(Completion{Text: "```markdown\nQuestion 1: A\n```", Telemetry: tel}, nil).Once()
	c.On("SetCompletion", mock.Anything, key, mock.MatchedBy(func(e *cache.Entry) bool {
		return e.Text == "Question 1: A" && e.DurationNS == int64(time.Second) && e.ResponseTokens == 6
	}), time.Hour).Return(nil).Once()

	inv := NewInvoker(client, c, time.Hour, logger.Discard())
	out, err := inv.Invoke(context.Background(), "prompt", "gemma3:12b")

	require.NoError(t, err)
	assert.Equal(t, "Question 1: A", out.Text)
	assert.Equal(t, tel, out.Telemetry)
	client.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestInvokerCacheHitSkipsClient(t *testing.T) {
	client := new(MockClient)
	c := new(cache.MockCache)
	c.On("GetCompletion", mock.Anything, mock.Anything).
		Return(&cache.Entry{Text: "Question 2: B", DurationNS: 10, ResponseTokens: 3}, nil).Once()

	inv := NewInvoker(client, c, time.Hour, logger.Discard())
	out, err := inv.Invoke(context.Background(), "prompt", "m")

	require.NoError(t, err)
	assert.Equal(t, "Question 2: B", out.Text)
	assert.Equal(t, time.Duration(10), out.Telemetry.Duration)
	client.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestInvokerPropagatesClientError(t *testing.T) {
	client := new(MockClient)
	boom := errors.New("connection refused")
	client.On("Generate", mock.Anything, mock.Anything).Return(Completion{}, boom).Once()

	inv := NewInvoker(client, nil, time.Hour, logger.Discard())
	_, err := inv.Invoke(context.Background(), "prompt", "m")

	assert.ErrorIs(t, err, boom)
}

func TestInvokerEmptyCompletion(t *testing.T) {
	client := new(MockClient)
	client.On("Generate", mock.Anything, mock.Anything).Return(Completion{Text: "  \n"}, nil).Once()

	inv := NewInvoker(client, nil, time.Hour, logger.Discard())
	_, err := inv.Invoke(context.Background(), "prompt", "m")

	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestInvokerIgnoresCacheFailures(t *testing.T) {
	client := new(MockClient)
	c := new(cache.MockCache)
	c.On("GetCompletion", mock.Anything, mock.Anything).Return(nil, errors.New("redis down")).Once()
	c.On("SetCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()
	client.On("Generate", mock.Anything, mock.Anything).Return(Completion{Text: "Question 1: A"}, nil).Once()

	inv := NewInvoker(client, c, time.Hour, logger.Discard())
	out, err := inv.Invoke(context.Background(), "prompt", "m")

	require.NoError(t, err)
	assert.Equal(t, "Question 1: A", out.Text)
}
