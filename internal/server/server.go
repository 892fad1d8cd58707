// Package server binds the webhook service to HTTP and owns the process-level
// wiring: guard stores, the sweeper and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/marcus-qen/botgate/internal/command"
	"github.com/marcus-qen/botgate/internal/config"
	"github.com/marcus-qen/botgate/internal/replay"
	"github.com/marcus-qen/botgate/internal/shared/ratelimit"
	"github.com/marcus-qen/botgate/internal/sweeper"
	"github.com/marcus-qen/botgate/internal/webhook"
)

// Version is reported on /bot/rest/status. Set by the binary at startup.
var Version = "dev"

// Server is the gateway HTTP server.
type Server struct {
	cfg    config.Config
	logger *zap.Logger
	now    func() time.Time

	service   *webhook.Service
	validator *webhook.Validator

	// In-memory guard stores (nil when disabled)
	replays *replay.Store
	limiter *ratelimit.Limiter
	sweeper *sweeper.Sweeper

	handler    http.Handler
	httpServer *http.Server
}

// Option customises a Server, mainly for tests.
type Option func(*serverOptions)

type serverOptions struct {
	clock            func() time.Time
	dispatcherOption []command.DispatcherOption
}

// WithClock overrides the clock used for status timestamps and message
// freshness checks.
func WithClock(now func() time.Time) Option {
	return func(o *serverOptions) { o.clock = now }
}

// WithCommandHandler replaces a built-in command handler.
func WithCommandHandler(t command.Type, h command.Handler) Option {
	return func(o *serverOptions) {
		o.dispatcherOption = append(o.dispatcherOption, command.WithHandler(t, h))
	}
}

// New builds a fully-wired Server from config.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := serverOptions{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		now:     o.clock,
		sweeper: sweeper.New(logger.Named("sweeper")),
	}

	validatorOpts := []webhook.Option{
		webhook.WithClock(o.clock),
		webhook.WithLogger(logger.Named("validator")),
	}
	if cfg.Bot.AntiReplay.Enabled {
		s.replays = replay.NewStore(cfg.Bot.AntiReplay.Window)
		s.sweeper.Register("replay", s.replays)
		validatorOpts = append(validatorOpts, webhook.WithReplayGuard(s.replays))
	}
	if cfg.Bot.RateLimit.Enforce {
		rl := ratelimit.DefaultConfig()
		rl.IPRequestsPerMinute = cfg.Bot.RateLimit.IPRequestsPerMinute
		rl.UserRequestsPerMinute = cfg.Bot.RateLimit.UserRequestsPerMinute
		s.limiter = ratelimit.NewLimiter(rl)
		s.sweeper.Register("ratelimit", s.limiter)
		validatorOpts = append(validatorOpts, webhook.WithRateGuard(s.limiter))
	}

	validator, err := webhook.NewValidator(cfg.Validation(), validatorOpts...)
	if err != nil {
		return nil, err
	}
	s.validator = validator
	dispatcher := command.NewDispatcher(append([]command.DispatcherOption{
		command.WithDispatchLogger(logger.Named("dispatcher")),
	}, o.dispatcherOption...)...)
	s.service = webhook.NewService(validator, dispatcher, webhook.WithServiceLogger(logger.Named("webhook")))

	if !cfg.HasSecret() {
		logger.Warn("no webhook secret configured; every webhook call will be rejected")
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = mux
	handler = limitUpdateBody(maxUpdateBytes, handler)
	handler = accessLogMiddleware(logger.Named("http"), handler)
	handler = requestIDMiddleware(handler)
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.sweeper.Start(s.cfg.Sweeper.Schedule); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	defer s.sweeper.Stop()

	s.logger.Info("starting webhook gateway",
		zap.String("addr", s.cfg.ListenAddr),
		zap.String("version", Version),
		zap.Int("allowed_ips", s.validator.AllowListSize()),
		zap.Bool("anti_replay", s.replays != nil),
		zap.Bool("rate_limit", s.limiter != nil),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Close releases background resources.
func (s *Server) Close() {
	s.sweeper.Stop()
}
