package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockPort is a mock implementation of an open serial port.
type MockPort struct {
	mock.Mock
}

func (m *MockPort) Write(p []byte) (int, error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockPort) Close() error {
	args := m.Called()
	return args.Error(0)
}
