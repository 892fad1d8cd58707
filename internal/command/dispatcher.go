package command

import (
	"context"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/marcus-qen/botgate/internal/metrics"
	"github.com/marcus-qen/botgate/internal/telemetry"
)

// Dispatcher routes a classified command to its handler. The registry is
// fixed at construction and read-only afterwards.
type Dispatcher struct {
	handlers map[Type]Handler
	log      *zap.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHandler replaces the handler for t.
func WithHandler(t Type, h Handler) DispatcherOption {
	return func(d *Dispatcher) { d.handlers[t] = h }
}

// WithDispatchLogger sets the logger. Defaults to a no-op logger.
func WithDispatchLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = l }
}

// NewDispatcher registers the built-in handlers, then applies opts.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handlers: map[Type]Handler{
			Start:   StartHandler,
			Help:    HelpHandler,
			Balance: BalanceHandler(nil, nil),
			Invalid: InvalidHandler,
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.handlers[Invalid] == nil {
		d.handlers[Invalid] = InvalidHandler
	}
	d.log.Debug("command handlers registered", zap.Int("count", len(d.handlers)))
	return d
}

// Dispatch runs the handler for t and returns its reply text. An unmapped
// type uses the Invalid handler. A handler error or panic yields
// GenericErrorText; nothing propagates to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, t Type, userID int64, text string, payload map[string]any) string {
	ctx, span := telemetry.StartDispatchSpan(ctx, t.String(), userID)

	h, ok := d.handlers[t]
	if !ok || h == nil {
		d.log.Warn("no handler registered, falling back to invalid", zap.Stringer("command", t))
		h = d.handlers[Invalid]
	}

	reply, err := d.invoke(ctx, h, userID, text, payload)
	if err != nil {
		d.log.Error("command handler failed",
			zap.Stringer("command", t),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		metrics.RecordCommand(t.String(), "error")
		telemetry.EndDispatchSpan(span, "error", err)
		return GenericErrorText
	}

	d.log.Info("command handled",
		zap.Stringer("command", t),
		zap.Int64("user_id", userID),
		zap.Int("reply_length", len(reply)),
	)
	metrics.RecordCommand(t.String(), "ok")
	telemetry.EndDispatchSpan(span, "ok", nil)
	return reply
}

func (d *Dispatcher) invoke(ctx context.Context, h Handler, userID int64, text string, payload map[string]any) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, userID, text, payload)
}

// Handlers returns a copy of the registry.
func (d *Dispatcher) Handlers() map[Type]Handler {
	return maps.Clone(d.handlers)
}
