package serial

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	tarm "github.com/tarm/serial"
)

var (
	// ErrOpen wraps every failure to open the port.
	ErrOpen = errors.New("failed to open serial port")
	// ErrPortClosed is returned by Send when the port is not open.
	ErrPortClosed = errors.New("serial port is closed")
)

// State is the lifecycle state of a Transport.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateOpen
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Port is an open serial device.
type Port interface {
	io.Writer
	io.Closer
}

// Opener opens a port with the given line configuration.
type Opener func(config *tarm.Config) (Port, error)

// OpenTarmPort opens a real serial device.
func OpenTarmPort(config *tarm.Config) (Port, error) {
	port, err := tarm.OpenPort(config)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// Config describes the serial line. Framing is fixed at 8-N-1 without flow control.
type Config struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
}

// Transport owns the serial connection: open once, write-and-flush per
// frame, close exactly once.
type Transport struct {
	config      Config
	opener      Opener
	settleDelay time.Duration
	logger      zerolog.Logger

	mu     sync.Mutex
	state  State
	port   Port
	writer *bufio.Writer
}

// Option customizes a Transport.
type Option func(*Transport)

// WithOpener replaces the function used to open the device.
func WithOpener(opener Opener) Option {
	return func(t *Transport) {
		t.opener = opener
	}
}

// WithSettleDelay sets how long Open waits after the device opens.
func WithSettleDelay(d time.Duration) Option {
	return func(t *Transport) {
		t.settleDelay = d
	}
}

// NewTransport creates a closed transport for config.
func NewTransport(config Config, logger zerolog.Logger, opts ...Option) *Transport {
	t := &Transport{
		config: config,
		opener: OpenTarmPort,
		logger: logger.With().Str("port", config.Name).Logger(),
		state:  StateClosed,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LineConfig returns the tarm/serial configuration used to open the port.
func (t *Transport) LineConfig() *tarm.Config {
	return &tarm.Config{
		Name:        t.config.Name,
		Baud:        t.config.Baud,
		ReadTimeout: t.config.ReadTimeout,
		Size:        8,
		Parity:      tarm.ParityNone,
		StopBits:    tarm.Stop1,
	}
}

// Open opens the device. Failure is terminal for the transport; callers
// are expected to give up rather than retry.
func (t *Transport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateOpen || t.state == StateFailed {
		return nil
	}

	t.state = StateOpening
	port, err := t.opener(t.LineConfig())
	if err != nil {
		t.state = StateClosed
		t.logger.Error().Err(err).Msg("Failed to open serial port")
		return fmt.Errorf("%w %s: %w", ErrOpen, t.config.Name, err)
	}

	t.port = port
	t.writer = bufio.NewWriter(port)
	t.state = StateOpen
	t.logger.Info().Int("baud", t.config.Baud).Msg("Serial port opened")

	if t.settleDelay > 0 {
		time.Sleep(t.settleDelay)
	}
	return nil
}

// Send writes the whole frame and flushes it to the device. A failure leaves
// the port open in the failed state so the next Send can try again.
func (t *Transport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return ErrPortClosed
	}

	if _, err := t.writer.Write(frame); err != nil {
		return t.fail(fmt.Errorf("failed to write frame: %w", err))
	}
	if err := t.writer.Flush(); err != nil {
		return t.fail(fmt.Errorf("failed to flush frame: %w", err))
	}

	if t.state == StateFailed {
		t.logger.Info().Msg("Serial port writable again")
	}
	t.state = StateOpen
	return nil
}

// fail records a write error. bufio.Writer keeps returning its first error,
// so the buffer is discarded and re-attached to the port.
func (t *Transport) fail(err error) error {
	t.state = StateFailed
	t.writer.Reset(t.port)
	return err
}

// Close closes the device. Calling Close on a closed transport is a no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		t.state = StateClosed
		return nil
	}

	err := t.port.Close()
	t.port = nil
	t.writer = nil
	t.state = StateClosed
	if err != nil {
		t.logger.Error().Err(err).Msg("Failed to close serial port")
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	t.logger.Info().Msg("Serial port closed")
	return nil
}

// State returns the current lifecycle state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
