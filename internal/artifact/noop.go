package artifact

import "context"

// NoOpStore discards uploads. Used when ARTIFACT_BUCKET is empty.
type NoOpStore struct{}

func NewNoOpStore() *NoOpStore { return &NoOpStore{} }

func (NoOpStore) Put(context.Context, string, []byte, string) (string, error) { return "", nil }
