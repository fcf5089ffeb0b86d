package services

import (
	"context"
	"fmt"
	"time"

	"github.com/benmeehan/telemetry-bridge/internal/models"
	"github.com/benmeehan/telemetry-bridge/internal/observability"
	"github.com/benmeehan/telemetry-bridge/internal/payload"
	"github.com/benmeehan/telemetry-bridge/internal/sources"
	"github.com/rs/zerolog"
)

// RecordSource yields one record per poll and never fails.
type RecordSource interface {
	Fetch(ctx context.Context) (models.Record, models.Alarms)
	Kind() sources.Kind
}

// Transport writes one complete frame to the receiver.
type Transport interface {
	Send(frame []byte) error
}

// PayloadMirror publishes the latest payload for other local consumers.
type PayloadMirror interface {
	MirrorPayload(ctx context.Context, payload models.WirePayload) error
}

// Outcome is the result of one loop cycle.
type Outcome int

const (
	// OutcomePolled means the record was refreshed and no frame was due.
	OutcomePolled Outcome = iota
	OutcomeSent
	OutcomeFailed
	OutcomeSuppressed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePolled:
		return "polled"
	case OutcomeSent:
		return "sent"
	case OutcomeFailed:
		return "failed"
	case OutcomeSuppressed:
		return "suppressed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// BridgeConfig holds the loop cadence and gating policy.
type BridgeConfig struct {
	PollInterval     time.Duration
	TransmitInterval time.Duration
	ReadTimeout      time.Duration
	EventMonitoring  bool
}

// BridgeService polls the source every PollInterval and sends a frame every
// TransmitInterval. Everything runs on the caller's goroutine.
type BridgeService struct {
	config    BridgeConfig
	source    RecordSource
	builder   *payload.Builder
	transport Transport
	mirrors   []PayloadMirror
	metrics   *observability.Metrics
	status    *observability.StatusBoard
	logger    zerolog.Logger
	now       func() time.Time

	lastTransmit time.Time
	lastPayload  models.WirePayload
}

// BridgeOption customizes a BridgeService.
type BridgeOption func(*BridgeService)

// WithMirrors adds payload mirrors updated on every poll.
func WithMirrors(mirrors ...PayloadMirror) BridgeOption {
	return func(b *BridgeService) {
		b.mirrors = append(b.mirrors, mirrors...)
	}
}

// WithObservability attaches metrics and the status board.
func WithObservability(metrics *observability.Metrics, status *observability.StatusBoard) BridgeOption {
	return func(b *BridgeService) {
		b.metrics = metrics
		b.status = status
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) BridgeOption {
	return func(b *BridgeService) {
		b.now = now
	}
}

// NewBridgeService creates the loop. The transport must already be open and
// is used by nothing else for the lifetime of the service.
func NewBridgeService(config BridgeConfig, source RecordSource, builder *payload.Builder,
	transport Transport, logger zerolog.Logger, opts ...BridgeOption) *BridgeService {

	if config.ReadTimeout <= 0 {
		config.ReadTimeout = config.PollInterval
	}

	b := &BridgeService{
		config:    config,
		source:    source,
		builder:   builder,
		transport: transport,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run executes cycles until ctx is cancelled. Cancellation is checked between
// cycles only. A panic inside a cycle is returned as an error.
func (b *BridgeService) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure in bridge loop: %v", r)
		}
	}()

	if ctx.Err() != nil {
		b.logger.Info().Msg("Bridge loop cancelled before start")
		return nil
	}

	start := b.now()
	b.Reset(start)
	b.status.Set(observability.StatusStartedAt, start.UTC().Format(time.RFC3339))
	b.logger.Info().
		Str("backend", string(b.source.Kind())).
		Dur("poll_interval", b.config.PollInterval).
		Dur("transmit_interval", b.config.TransmitInterval).
		Bool("event_monitoring", b.config.EventMonitoring).
		Msg("Bridge loop started")

	ticker := time.NewTicker(b.config.PollInterval)
	defer ticker.Stop()

	for {
		b.Tick(ctx, b.now())

		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bridge loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Reset starts the transmit timer at now; the first frame is due one
// TransmitInterval later.
func (b *BridgeService) Reset(now time.Time) {
	b.lastTransmit = now
}

// Tick runs one cycle at now: fetch, build, mirror, and transmit if due.
// The transmit timer is reset after every attempt whatever its outcome.
func (b *BridgeService) Tick(ctx context.Context, now time.Time) Outcome {
	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.config.ReadTimeout)
	defer cancel()

	record, _ := b.source.Fetch(readCtx)
	p := b.builder.Build(record)
	b.lastPayload = p
	b.metrics.ObservePoll()
	b.status.Set(observability.StatusLastPayload, p)
	b.mirror(ctx, p)

	b.logger.Debug().Interface("record", record).Msg("Source data")

	if now.Sub(b.lastTransmit) < b.config.TransmitInterval {
		return OutcomePolled
	}

	outcome := b.transmit(record, p, now)
	b.lastTransmit = now
	return outcome
}

func (b *BridgeService) transmit(record models.Record, p models.WirePayload, now time.Time) Outcome {
	if b.config.EventMonitoring && !record.Active() {
		b.metrics.ObserveSuppressed()
		b.logger.Debug().Int64("fault", record.FaultCode).Int64("mode", record.Mode).
			Msg("No fault and controller idle, transmission suppressed")
		return OutcomeSuppressed
	}

	frame, err := payload.Encode(p)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to encode frame")
		b.status.Set(observability.StatusLastError, err.Error())
		return OutcomeFailed
	}

	b.logger.Debug().Str("frame", string(frame)).Int("length", len(frame)).Msg("Frame encoded")

	if err := b.transport.Send(frame); err != nil {
		b.metrics.ObserveWriteFailure()
		b.status.Increment(observability.StatusWriteFailures)
		b.status.Set(observability.StatusLastError, err.Error())
		b.logger.Error().Err(err).Msg("Error sending serial data")
		return OutcomeFailed
	}

	b.metrics.ObserveFrameSent(now)
	b.status.Increment(observability.StatusFramesSent)
	b.status.Set(observability.StatusLastFrame, string(frame))
	b.status.Set(observability.StatusLastTransmit, now.UTC().Format(time.RFC3339))
	b.logger.Info().Int("bytes", len(frame)).Str("frame", string(frame)).Msg("Serial data sent")
	return OutcomeSent
}

// mirror gets its own budget so a slow source read cannot starve it.
func (b *BridgeService) mirror(ctx context.Context, p models.WirePayload) {
	if len(b.mirrors) == 0 {
		return
	}
	mirrorCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.config.ReadTimeout)
	defer cancel()

	for _, m := range b.mirrors {
		if err := m.MirrorPayload(mirrorCtx, p); err != nil {
			b.logger.Debug().Err(err).Msg("Failed to mirror payload")
		}
	}
}

// LastTransmit returns the time of the last transmission attempt.
func (b *BridgeService) LastTransmit() time.Time {
	return b.lastTransmit
}

// LastPayload returns the payload built in the most recent cycle.
func (b *BridgeService) LastPayload() models.WirePayload {
	return b.lastPayload
}
