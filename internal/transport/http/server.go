// Package http serves the threshold control plane and the usage readings.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"cpumon/internal/config"
	"cpumon/internal/core/auth"
	"cpumon/internal/domain"
	"cpumon/internal/logger"
)

type ThresholdTable interface {
	io.Writer
	io.ReaderAt
}

type UsageSource interface {
	Latest() []domain.UsageRecord
}

type AlertLog interface {
	Recent(ctx context.Context, limit int64) ([]domain.UsageRecord, error)
}

type Server struct {
	cfg        *config.Config
	thresholds ThresholdTable
	usage      UsageSource
	alerts     AlertLog
	ws         http.Handler
	tokens     *auth.Tokens
	log        logger.Logger
	srv        *http.Server
}

// NewServer wires the control plane. alerts and ws may be nil, in which
// case /alerts answers 404 and /ws is not routed.
func NewServer(cfg *config.Config, thresholds ThresholdTable, usage UsageSource, alerts AlertLog, ws http.Handler, log logger.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		thresholds: thresholds,
		usage:      usage,
		alerts:     alerts,
		ws:         ws,
		log:        log,
	}

	if cfg.ControlSecret != "" {
		s.tokens = auth.NewTokens(cfg.ControlSecret)
	}

	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /cpu_threshold", s.handleReadThresholds)
	mux.Handle("PUT /cpu_threshold", s.requireToken(http.HandlerFunc(s.handleWriteThresholds)))
	mux.Handle("POST /cpu_threshold", s.requireToken(http.HandlerFunc(s.handleWriteThresholds)))
	mux.HandleFunc("GET /usage", s.handleUsage)
	mux.HandleFunc("GET /alerts", s.handleAlerts)
	if s.ws != nil {
		mux.Handle("GET /ws", s.ws)
	}

	return chain(mux, s.withRequestLog, s.withCORS)
}

func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting http server", "address", s.cfg.Address)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
