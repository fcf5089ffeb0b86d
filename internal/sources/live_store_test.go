package sources_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/benmeehan/telemetry-bridge/internal/constants"
	"github.com/benmeehan/telemetry-bridge/internal/models"
	"github.com/benmeehan/telemetry-bridge/internal/sources"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLiveStore(t *testing.T) (*miniredis.Miniredis, *sources.LiveStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := sources.NewLiveStore(client, constants.KeyController, constants.KeyAlarms, constants.KeyPayload, "")
	t.Cleanup(func() { _ = store.Close() })
	return mr, store
}

func TestLiveStore_Fetch(t *testing.T) {
	mr, store := newLiveStore(t)
	require.NoError(t, mr.Set("cont", `{"pressure":-14.22,"current":0.07,"mode":0,"faults":0,"runcycles":484,"gmid":"CSX-1234"}`))
	require.NoError(t, mr.Set("alarms", `{"high_pressure":1}`))

	record, alarms, err := store.Fetch(context.Background())
	require.NoError(t, err)

	expected := models.DefaultRecord("")
	expected.ID = "CSX-1234"
	expected.Pressure = -14.22
	expected.Current = 0.07
	expected.RunCycles = 484
	assert.Equal(t, expected, record)
	assert.Equal(t, models.Alarms{"high_pressure": float64(1)}, alarms)
}

func TestLiveStore_MissingKeyYieldsDefaults(t *testing.T) {
	mr, store := newLiveStore(t)
	require.NoError(t, mr.Set("cont", `{"pressure":3.3}`))

	record, alarms, err := store.Fetch(context.Background())
	assert.ErrorIs(t, err, sources.ErrNoData)
	assert.Equal(t, models.DefaultRecord(""), record)
	assert.Empty(t, alarms)
}

func TestLiveStore_MalformedAlarmsDefaultsBoth(t *testing.T) {
	mr, store := newLiveStore(t)
	require.NoError(t, mr.Set("cont", `{"pressure":3.3}`))
	require.NoError(t, mr.Set("alarms", `{not json`))

	record, alarms, err := store.Fetch(context.Background())
	assert.Error(t, err)
	assert.Equal(t, models.DefaultRecord(""), record)
	assert.Empty(t, alarms)
}

func TestLiveStore_MalformedRecordDefaultsBoth(t *testing.T) {
	mr, store := newLiveStore(t)
	require.NoError(t, mr.Set("cont", `{"pressure":`))
	require.NoError(t, mr.Set("alarms", `{}`))

	record, _, err := store.Fetch(context.Background())
	assert.Error(t, err)
	assert.Equal(t, models.DefaultRecord(""), record)
}

func TestLiveStore_TrailingGarbageDefaultsRecord(t *testing.T) {
	mr, store := newLiveStore(t)
	require.NoError(t, mr.Set("cont", `{"mode":2} garbage`))
	require.NoError(t, mr.Set("alarms", `{}`))

	record, _, err := store.Fetch(context.Background())
	assert.Error(t, err)
	assert.Equal(t, models.DefaultRecord(""), record)
}

func TestLiveStore_Probe(t *testing.T) {
	mr, store := newLiveStore(t)
	assert.NoError(t, store.Probe(context.Background()))

	mr.Close()
	assert.Error(t, store.Probe(context.Background()))
}

func TestLiveStore_MirrorPayload(t *testing.T) {
	mr, store := newLiveStore(t)

	payload := models.WirePayload{ID: "CSX-1234", Pressure: 0.45, Mode: 1, Profile: json.RawMessage(`{}`)}
	require.NoError(t, store.MirrorPayload(context.Background(), payload))

	raw, err := mr.Get("payload")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"CSX-1234","s":0,"p":0.45,"r":0,"f":0,"m":1,"t":0,"c":0,"pr":{}}`, raw)
}
