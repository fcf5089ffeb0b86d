package mocks

import (
	"context"

	"github.com/benmeehan/telemetry-bridge/internal/models"
	"github.com/benmeehan/telemetry-bridge/internal/sources"
	"github.com/stretchr/testify/mock"
)

// MockBackend is a mock implementation of the sources.Backend interface
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Kind() sources.Kind {
	args := m.Called()
	return args.Get(0).(sources.Kind)
}

func (m *MockBackend) Probe(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBackend) Fetch(ctx context.Context) (models.Record, models.Alarms, error) {
	args := m.Called(ctx)
	alarms, _ := args.Get(1).(models.Alarms)
	return args.Get(0).(models.Record), alarms, args.Error(2)
}

func (m *MockBackend) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockRecordSource is a mock implementation of the services.RecordSource interface
type MockRecordSource struct {
	mock.Mock
}

func (m *MockRecordSource) Fetch(ctx context.Context) (models.Record, models.Alarms) {
	args := m.Called(ctx)
	alarms, _ := args.Get(1).(models.Alarms)
	return args.Get(0).(models.Record), alarms
}

func (m *MockRecordSource) Kind() sources.Kind {
	args := m.Called()
	return args.Get(0).(sources.Kind)
}
