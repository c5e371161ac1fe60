package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockProvider provides a mock record provider for refresh-worker tests.
type MockProvider struct {
	mock.Mock
}

// Fetch mocks the record fetch.
func (m *MockProvider) Fetch(ctx context.Context, rowID string) (any, error) {
	args := m.Called(ctx, rowID)
	return args.Get(0), args.Error(1)
}
