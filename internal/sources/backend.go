package sources

import (
	"context"
	"errors"

	"github.com/benmeehan/telemetry-bridge/internal/models"
)

// Kind names a source backend.
type Kind string

const (
	KindLive     Kind = "live"
	KindSnapshot Kind = "snapshot"
	KindBackup   Kind = "backup"
)

// ErrNoData is returned when a backend is reachable but holds nothing to read.
var ErrNoData = errors.New("no data available")

// Backend produces controller records from one storage engine.
//
// Fetch returns a Record merged over the defaults together with the alarms
// object. Any error means the returned values must not be trusted; the
// Resolver substitutes defaults.
type Backend interface {
	Kind() Kind
	Probe(ctx context.Context) error
	Fetch(ctx context.Context) (models.Record, models.Alarms, error)
	Close() error
}

// Stale reports whether records from this kind may lag the controller.
func (k Kind) Stale() bool {
	return k != KindLive
}
