package mocks

import (
	"sync"

	"github.com/benmeehan/bus-tracker/pkg/location"
	"github.com/stretchr/testify/mock"
)

// MockSource is a mock implementation of the location Source interface.
// The listener passed to Start is kept so tests can emit samples by hand.
type MockSource struct {
	mock.Mock

	mu       sync.Mutex
	listener location.Listener
}

func (m *MockSource) Name() string {
	return "mock"
}

func (m *MockSource) Permission() location.Permission {
	args := m.Called()
	return args.Get(0).(location.Permission)
}

func (m *MockSource) Start(listener location.Listener) error {
	args := m.Called(listener)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.listener = listener
		m.mu.Unlock()
	}
	return args.Error(0)
}

func (m *MockSource) Stop() error {
	args := m.Called()
	m.mu.Lock()
	m.listener = nil
	m.mu.Unlock()
	return args.Error(0)
}

func (m *MockSource) State() location.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener != nil {
		return location.StateRunning
	}
	return location.StateStopped
}

// Emit delivers sample to the registered listener, if any.
func (m *MockSource) Emit(sample location.Sample) {
	m.mu.Lock()
	listener := m.listener
	m.mu.Unlock()
	if listener != nil {
		listener(sample)
	}
}
