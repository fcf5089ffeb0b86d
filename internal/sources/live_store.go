package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/benmeehan/telemetry-bridge/internal/models"
	"github.com/redis/go-redis/v9"
)

// LiveStore reads the controller state the control process keeps in Redis.
type LiveStore struct {
	client     redis.UniversalClient
	contKey    string
	alarmsKey  string
	payloadKey string
	defaultID  string
}

// NewLiveStore wraps an existing Redis client.
func NewLiveStore(client redis.UniversalClient, contKey, alarmsKey, payloadKey, defaultID string) *LiveStore {
	return &LiveStore{
		client:     client,
		contKey:    contKey,
		alarmsKey:  alarmsKey,
		payloadKey: payloadKey,
		defaultID:  defaultID,
	}
}

func (l *LiveStore) Kind() Kind { return KindLive }

// Probe pings the store.
func (l *LiveStore) Probe(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping live store: %w", err)
	}
	return nil
}

// Fetch reads both keys. A failure on either key defaults both values.
func (l *LiveStore) Fetch(ctx context.Context) (models.Record, models.Alarms, error) {
	base := models.DefaultRecord(l.defaultID)

	contRaw, err := l.get(ctx, l.contKey)
	if err != nil {
		return base, models.Alarms{}, err
	}
	alarmsRaw, err := l.get(ctx, l.alarmsKey)
	if err != nil {
		return base, models.Alarms{}, err
	}

	record, err := decodeRecord(contRaw, base)
	if err != nil {
		return base, models.Alarms{}, fmt.Errorf("key %s: %w", l.contKey, err)
	}
	alarms, err := decodeAlarms(alarmsRaw)
	if err != nil {
		return base, models.Alarms{}, fmt.Errorf("key %s: %w", l.alarmsKey, err)
	}

	return record, alarms, nil
}

// MirrorPayload stores the latest payload under the payload key so other
// processes on the host can see what the bridge would send.
func (l *LiveStore) MirrorPayload(ctx context.Context, payload models.WirePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}
	return l.client.Set(ctx, l.payloadKey, data, 0).Err()
}

// Close releases the Redis connection pool.
func (l *LiveStore) Close() error {
	return l.client.Close()
}

func (l *LiveStore) get(ctx context.Context, key string) ([]byte, error) {
	data, err := l.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("key %s: %w", key, ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("read key %s: %w", key, err)
	}
	return data, nil
}
