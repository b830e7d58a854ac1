package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Flush() error
	Close()
}

// NewNATS constructs a publisher over an established NATS connection.
func NewNATS(log *slog.Logger, nc *nats.Conn) Publisher {
	return &natsPublisher{log: log, nc: nc}
}

type natsPublisher struct {
	log *slog.Logger
	nc  conn
}

func (p *natsPublisher) PublishItem(ctx context.Context, ev ItemProcessed) error {
	return p.publish(ctx, SubjectItemProcessed, ev)
}

func (p *natsPublisher) PublishRun(ctx context.Context, ev RunCompleted) error {
	if err := p.publish(ctx, SubjectRunCompleted, ev); err != nil {
		return err
	}
	// The run event is the last thing a process sends; make sure it leaves.
	return p.nc.Flush()
}

func (p *natsPublisher) publish(ctx context.Context, subject string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.nc.Publish(subject, body)
}

func (p *natsPublisher) Close() error {
	p.nc.Close()
	return nil
}
