package audit

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSink is a mock implementation of Sink using testify/mock.
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Write(ctx context.Context, e Entry) (string, error) {
	args := m.Called(ctx, e)
	return args.String(0), args.Error(1)
}
