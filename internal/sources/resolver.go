package sources

import (
	"context"
	"errors"

	"github.com/benmeehan/telemetry-bridge/internal/models"
	"github.com/rs/zerolog"
)

// Resolver picks one backend at startup and reads from it every cycle.
// A failed read is logged and replaced by the default record; the resolver
// never switches backends after selection.
type Resolver struct {
	backend    Backend
	defaultID  string
	logger     zerolog.Logger
	onDegraded func(kind Kind, err error)

	degraded bool
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithDegradedHook registers fn to be called for every read that fell back to defaults.
func WithDegradedHook(fn func(kind Kind, err error)) ResolverOption {
	return func(r *Resolver) {
		r.onDegraded = fn
	}
}

// NewResolver selects a backend by priority:
//  1. live, if present and its probe succeeds
//  2. snapshot, if its file exists
//  3. backup, if its file exists
//  4. snapshot otherwise, in case the file appears later
//
// Backends that are not selected are closed. live may be nil when no live
// store is configured; snapshot must not be nil.
func NewResolver(ctx context.Context, live, snapshot, backup Backend, defaultID string,
	logger zerolog.Logger, opts ...ResolverOption) *Resolver {

	selected := selectBackend(ctx, live, snapshot, backup, logger)

	for _, b := range []Backend{live, snapshot, backup} {
		if b == nil || b == selected {
			continue
		}
		if err := b.Close(); err != nil {
			logger.Warn().Err(err).Str("backend", string(b.Kind())).Msg("Failed to close unused backend")
		}
	}

	r := &Resolver{
		backend:   selected,
		defaultID: defaultID,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func selectBackend(ctx context.Context, live, snapshot, backup Backend, logger zerolog.Logger) Backend {
	if live != nil {
		err := live.Probe(ctx)
		if err == nil {
			logger.Info().Str("backend", string(KindLive)).Msg("Using live store for data (live data)")
			return live
		}
		logger.Warn().Err(err).Msg("Live store unreachable")
	}

	if err := snapshot.Probe(ctx); err == nil {
		logger.Warn().Str("backend", string(KindSnapshot)).Msg("Using snapshot file for data (may be stale)")
		return snapshot
	}

	if backup != nil {
		if err := backup.Probe(ctx); err == nil {
			logger.Warn().Str("backend", string(KindBackup)).Msg("Using backup store for data")
			return backup
		}
	}

	logger.Warn().Str("backend", string(KindSnapshot)).Msg("No data source found, will use snapshot file when available")
	return snapshot
}

// Backend returns the selected backend.
func (r *Resolver) Backend() Backend {
	return r.backend
}

// Kind returns the kind of the selected backend.
func (r *Resolver) Kind() Kind {
	return r.backend.Kind()
}

// Fetch reads a record from the selected backend, substituting defaults on
// any failure.
func (r *Resolver) Fetch(ctx context.Context) (models.Record, models.Alarms) {
	record, alarms, err := r.backend.Fetch(ctx)
	if err != nil {
		r.recordDegraded(err)
		return models.DefaultRecord(r.defaultID), models.Alarms{}
	}

	if r.degraded {
		r.logger.Info().Str("backend", string(r.backend.Kind())).Msg("Source data available again")
		r.degraded = false
	}
	if alarms == nil {
		alarms = models.Alarms{}
	}
	return record, alarms
}

// recordDegraded logs the first failure of a run of failures at warn or
// error level and the rest at debug.
func (r *Resolver) recordDegraded(err error) {
	kind := r.backend.Kind()
	if r.onDegraded != nil {
		r.onDegraded(kind, err)
	}

	if r.degraded {
		r.logger.Debug().Err(err).Str("backend", string(kind)).Msg("Source read failed, using defaults")
		return
	}
	r.degraded = true

	event := r.logger.Error()
	if errors.Is(err, ErrNoData) {
		event = r.logger.Warn()
	}
	event.Err(err).Str("backend", string(kind)).Msg("Source read failed, using defaults")
}

// Close closes the selected backend.
func (r *Resolver) Close() error {
	return r.backend.Close()
}
