package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// StatusServer serves /metrics and /status.
type StatusServer struct {
	addr     string
	gatherer prometheus.Gatherer
	board    *StatusBoard
	logger   zerolog.Logger

	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// NewStatusServer creates a server listening on addr once started.
func NewStatusServer(addr string, gatherer prometheus.Gatherer, board *StatusBoard, logger zerolog.Logger) *StatusServer {
	return &StatusServer{
		addr:     addr,
		gatherer: gatherer,
		board:    board,
		logger:   logger.With().Str("component", "status-server").Logger(),
	}
}

// Router returns the HTTP handler.
func (s *StatusServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/status", s.handleStatus)
	return r
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.board); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode status")
	}
}

// Start binds the listener and serves in the background.
func (s *StatusServer) Start() error {
	if s.server != nil {
		s.logger.Warn().Msg("StatusServer is already running")
		return errors.New("status server is already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{Handler: s.Router(), ReadHeaderTimeout: 5 * time.Second}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Status server stopped unexpectedly")
		}
	}()

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("StatusServer started successfully")
	return nil
}

// Addr returns the bound address, useful when started on port 0.
func (s *StatusServer) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down.
func (s *StatusServer) Stop() error {
	if s.server == nil {
		s.logger.Warn().Msg("StatusServer is not running")
		return errors.New("status server is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := s.server.Shutdown(ctx)
	s.wg.Wait()
	s.server = nil
	s.listener = nil

	s.logger.Info().Msg("StatusServer stopped successfully")
	return err
}
