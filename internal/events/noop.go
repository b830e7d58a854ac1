package events

import "context"

// NoOpPublisher drops every event. Used when EVENTS_URL is empty.
type NoOpPublisher struct{}

func NewNoOpPublisher() *NoOpPublisher { return &NoOpPublisher{} }

func (NoOpPublisher) PublishItem(context.Context, ItemProcessed) error { return nil }
func (NoOpPublisher) PublishRun(context.Context, RunCompleted) error   { return nil }
func (NoOpPublisher) Close() error                                     { return nil }
