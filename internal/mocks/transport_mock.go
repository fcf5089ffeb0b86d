package mocks

import (
	"context"

	"github.com/benmeehan/telemetry-bridge/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockTransport is a mock implementation of the services.Transport interface
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Send(frame []byte) error {
	args := m.Called(frame)
	return args.Error(0)
}

// MockPayloadMirror is a mock implementation of the services.PayloadMirror interface
type MockPayloadMirror struct {
	mock.Mock
}

func (m *MockPayloadMirror) MirrorPayload(ctx context.Context, payload models.WirePayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}
