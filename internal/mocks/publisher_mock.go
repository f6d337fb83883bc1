package mocks

import (
	"context"

	"github.com/benmeehan/bus-tracker/pkg/location"
	"github.com/stretchr/testify/mock"
)

// MockPublisher is a mock implementation of the Publisher interface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, sample location.Sample) {
	m.Called(ctx, sample)
}
