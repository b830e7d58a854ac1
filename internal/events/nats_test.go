package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-digest/internal/logger"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs     []published
	flushes  int
	closed   bool
	failWith error
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.failWith != nil {
		return c.failWith
	}
	c.msgs = append(c.msgs, published{subject: subject, data: data})
	return nil
}

func (c *fakeConn) Flush() error { c.flushes++; return nil }
func (c *fakeConn) Close()       { c.closed = true }

func TestNATSPublishItem(t *testing.T) {
	fc := &fakeConn{}
	p := &natsPublisher{log: logger.Discard(), nc: fc}
	runID := uuid.New()

	err := p.PublishItem(context.Background(), ItemProcessed{RunID: runID, Stage: "extract", Source: "q.png", Index: 4, Status: ItemOK})
	require.NoError(t, err)
	require.Len(t, fc.msgs, 1)
	assert.Equal(t, SubjectItemProcessed, fc.msgs[0].subject)

	var got ItemProcessed
	require.NoError(t, json.Unmarshal(fc.msgs[0].data, &got))
	assert.Equal(t, runID, got.RunID)
	assert.Equal(t, 4, got.Index)
	assert.Equal(t, ItemOK, got.Status)
	assert.Zero(t, fc.flushes)
}

func TestNATSPublishRunFlushes(t *testing.T) {
	fc := &fakeConn{}
	p := &natsPublisher{log: logger.Discard(), nc: fc}

	require.NoError(t, p.PublishRun(context.Background(), RunCompleted{Stage: "explain", Aggregated: 3}))
	require.Len(t, fc.msgs, 1)
	assert.Equal(t, SubjectRunCompleted, fc.msgs[0].subject)
	assert.Equal(t, 1, fc.flushes)

	require.NoError(t, p.Close())
	assert.True(t, fc.closed)
}

func TestNATSPublishErrors(t *testing.T) {
	fc := &fakeConn{failWith: errors.New("connection closed")}
	p := &natsPublisher{log: logger.Discard(), nc: fc}
	assert.Error(t, p.PublishItem(context.Background(), ItemProcessed{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p = &natsPublisher{log: logger.Discard(), nc: &fakeConn{}}
	assert.ErrorIs(t, p.PublishItem(ctx, ItemProcessed{}), context.Canceled)
}
