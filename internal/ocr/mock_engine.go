package ocr

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEngine is a mock implementation of Engine using testify/mock.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Name() string { return "mock" }

func (m *MockEngine) Recognize(ctx context.Context, in Input) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}
