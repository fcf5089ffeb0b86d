package observability

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

// Status board keys.
const (
	StatusBackend       = "backend"
	StatusPort          = "port"
	StatusStartedAt     = "started_at"
	StatusLastPayload   = "last_payload"
	StatusLastFrame     = "last_frame"
	StatusLastTransmit  = "last_transmit"
	StatusLastError     = "last_error"
	StatusFramesSent    = "frames_sent"
	StatusWriteFailures = "write_failures"
)

// StatusBoard is the bridge state shared between the loop and the status
// endpoint. A nil *StatusBoard is valid and records nothing.
type StatusBoard struct {
	values cmap.ConcurrentMap[string, any]
}

// NewStatusBoard creates an empty board.
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{values: cmap.New[any]()}
}

func (s *StatusBoard) Set(key string, value any) {
	if s == nil {
		return
	}
	s.values.Set(key, value)
}

func (s *StatusBoard) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	return s.values.Get(key)
}

// Increment adds one to the integer counter at key.
func (s *StatusBoard) Increment(key string) {
	if s == nil {
		return
	}
	s.values.Upsert(key, 1, func(exist bool, current any, newValue any) any {
		if n, ok := current.(int); exist && ok {
			return n + 1
		}
		return newValue
	})
}

// MarshalJSON implements json.Marshaler.
func (s *StatusBoard) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return s.values.MarshalJSON()
}
