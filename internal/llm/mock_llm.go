package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of Client using testify/mock.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Generate(ctx context.Context, req Request) (Completion, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(Completion), args.Error(1)
}
