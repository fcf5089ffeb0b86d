package sources_test

import (
	"context"
	"errors"
	"testing"

	"github.com/benmeehan/telemetry-bridge/internal/mocks"
	"github.com/benmeehan/telemetry-bridge/internal/models"
	"github.com/benmeehan/telemetry-bridge/internal/sources"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newMockBackend(kind sources.Kind, probeErr error) *mocks.MockBackend {
	b := new(mocks.MockBackend)
	b.On("Kind").Return(kind).Maybe()
	b.On("Probe", mock.Anything).Return(probeErr).Maybe()
	b.On("Close").Return(nil).Maybe()
	return b
}

var errDown = errors.New("connection refused")

func TestResolver_PrefersLive(t *testing.T) {
	live := newMockBackend(sources.KindLive, nil)
	snapshot := newMockBackend(sources.KindSnapshot, nil)
	backup := newMockBackend(sources.KindBackup, nil)

	r := sources.NewResolver(context.Background(), live, snapshot, backup, "", zerolog.Nop())

	assert.Equal(t, sources.KindLive, r.Kind())
	snapshot.AssertNotCalled(t, "Probe", mock.Anything)
	snapshot.AssertCalled(t, "Close")
	backup.AssertCalled(t, "Close")
	live.AssertNotCalled(t, "Close")
}

func TestResolver_SnapshotWhenLiveDown(t *testing.T) {
	live := newMockBackend(sources.KindLive, errDown)
	snapshot := newMockBackend(sources.KindSnapshot, nil)
	backup := newMockBackend(sources.KindBackup, nil)

	r := sources.NewResolver(context.Background(), live, snapshot, backup, "", zerolog.Nop())

	assert.Equal(t, sources.KindSnapshot, r.Kind())
	assert.True(t, r.Kind().Stale())
	live.AssertCalled(t, "Close")
}

func TestResolver_SnapshotWhenLiveAbsent(t *testing.T) {
	snapshot := newMockBackend(sources.KindSnapshot, nil)
	backup := newMockBackend(sources.KindBackup, nil)

	r := sources.NewResolver(context.Background(), nil, snapshot, backup, "", zerolog.Nop())
	assert.Equal(t, sources.KindSnapshot, r.Kind())
}

func TestResolver_BackupWhenNoSnapshot(t *testing.T) {
	live := newMockBackend(sources.KindLive, errDown)
	snapshot := newMockBackend(sources.KindSnapshot, sources.ErrNoData)
	backup := newMockBackend(sources.KindBackup, nil)

	r := sources.NewResolver(context.Background(), live, snapshot, backup, "", zerolog.Nop())
	assert.Equal(t, sources.KindBackup, r.Kind())
}

func TestResolver_FallsBackToSnapshot(t *testing.T) {
	live := newMockBackend(sources.KindLive, errDown)
	snapshot := newMockBackend(sources.KindSnapshot, sources.ErrNoData)
	backup := newMockBackend(sources.KindBackup, sources.ErrNoData)

	r := sources.NewResolver(context.Background(), live, snapshot, backup, "", zerolog.Nop())
	assert.Equal(t, sources.KindSnapshot, r.Kind())
	snapshot.AssertNotCalled(t, "Close")
}

func TestResolver_FetchPassesThrough(t *testing.T) {
	live := newMockBackend(sources.KindLive, nil)
	want := models.Record{ID: "CSX-1234", Pressure: 1.5, Mode: 1}
	live.On("Fetch", mock.Anything).Return(want, models.Alarms{"a": 1}, nil)

	r := sources.NewResolver(context.Background(), live, newMockBackend(sources.KindSnapshot, nil), nil, "", zerolog.Nop())

	record, alarms := r.Fetch(context.Background())
	assert.Equal(t, want, record)
	assert.Equal(t, models.Alarms{"a": 1}, alarms)
}

func TestResolver_FetchDegradesToDefaults(t *testing.T) {
	live := newMockBackend(sources.KindLive, nil)
	live.On("Fetch", mock.Anything).Return(models.Record{ID: "partial", Pressure: 9}, nil, errDown)

	var degraded []sources.Kind
	r := sources.NewResolver(context.Background(), live, newMockBackend(sources.KindSnapshot, nil), nil, "",
		zerolog.Nop(), sources.WithDegradedHook(func(kind sources.Kind, err error) {
			degraded = append(degraded, kind)
		}))

	for i := 0; i < 3; i++ {
		record, alarms := r.Fetch(context.Background())
		assert.Equal(t, models.DefaultRecord(""), record)
		assert.NotNil(t, alarms)
		assert.Empty(t, alarms)
	}
	assert.Equal(t, []sources.Kind{sources.KindLive, sources.KindLive, sources.KindLive}, degraded)
	live.AssertNumberOfCalls(t, "Probe", 1)
}

func TestResolver_DefaultIDOverride(t *testing.T) {
	snapshot := newMockBackend(sources.KindSnapshot, nil)
	snapshot.On("Fetch", mock.Anything).Return(models.Record{}, nil, sources.ErrNoData)

	r := sources.NewResolver(context.Background(), nil, snapshot, nil, "CSX-4711", zerolog.Nop())

	record, _ := r.Fetch(context.Background())
	assert.Equal(t, "CSX-4711", record.ID)
}
