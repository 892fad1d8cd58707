package webhook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marcus-qen/botgate/internal/command"
	"github.com/marcus-qen/botgate/internal/metrics"
	"github.com/marcus-qen/botgate/internal/reply"
	"github.com/marcus-qen/botgate/internal/telemetry"
)

// Call outcomes, used as metric and span labels.
const (
	OutcomeRejected = "rejected"
	OutcomeIgnored  = "ignored"
	OutcomeReplied  = "replied"
	OutcomeApology  = "apology"
)

// Dispatcher runs a classified command and returns reply text.
type Dispatcher interface {
	Dispatch(ctx context.Context, t command.Type, userID int64, text string, payload map[string]any) string
}

// Service sequences validation, extraction, classification, dispatch and
// reply building for one webhook call.
type Service struct {
	validator  *Validator
	dispatcher Dispatcher
	classify   func(string) command.Type
	log        *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClassifier overrides command.Classify.
func WithClassifier(fn func(string) command.Type) ServiceOption {
	return func(s *Service) { s.classify = fn }
}

// WithServiceLogger sets the logger. Defaults to a no-op logger.
func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// NewService wires a validator and dispatcher.
func NewService(v *Validator, d Dispatcher, opts ...ServiceOption) *Service {
	s := &Service{
		validator:  v,
		dispatcher: d,
		classify:   command.Classify,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle validates req and produces the reply. It never fails or panics:
// rejected calls, including ones whose validation panicked, get the empty
// descriptor so Telegram does not redeliver them.
func (s *Service) Handle(ctx context.Context, req *Request) (desc reply.Descriptor) {
	start := time.Now()
	clientIP := ""
	if req != nil {
		clientIP = req.ClientIP
	}
	ctx, span := telemetry.StartWebhookSpan(ctx, clientIP)

	outcome := OutcomeRejected
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("webhook validation panicked",
				zap.Error(fmt.Errorf("%v", r)),
				zap.String("client_ip", clientIP),
			)
			desc, outcome = reply.Empty(), OutcomeRejected
		}
		metrics.RecordWebhook(outcome, time.Since(start))
		telemetry.EndWebhookSpan(span, outcome)
	}()

	if err := s.validator.Validate(ctx, req); err != nil {
		return reply.Empty()
	}
	desc, outcome = s.process(ctx, req.Body)
	return desc
}

// Process runs the post-validation pipeline on an already validated payload.
func (s *Service) Process(ctx context.Context, p Payload) reply.Descriptor {
	desc, _ := s.process(ctx, p)
	return desc
}

func (s *Service) process(ctx context.Context, p Payload) (desc reply.Descriptor, outcome string) {
	var (
		userID, chatID     int64
		haveUser, haveChat bool
	)
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		s.log.Error("webhook processing panicked",
			zap.Error(fmt.Errorf("%v", r)),
			zap.Int64("user_id", userID),
			zap.Int64("chat_id", chatID),
		)
		switch {
		case haveChat:
			desc, outcome = reply.Apology(chatID), OutcomeApology
		case haveUser:
			desc, outcome = reply.Apology(userID), OutcomeApology
		default:
			desc, outcome = reply.Empty(), OutcomeIgnored
		}
	}()

	userID, haveUser = ExtractUserID(p)
	chatID, haveChat = ExtractChatID(p)
	if !haveUser || !haveChat {
		s.log.Debug("no user or chat in update, ignoring")
		return reply.Empty(), OutcomeIgnored
	}

	text, _ := ExtractText(p)
	text = strings.TrimSpace(text)
	if text == "" || !strings.HasPrefix(text, "/") {
		s.log.Debug("update carries no command, ignoring", zap.Int64("user_id", userID))
		return reply.Empty(), OutcomeIgnored
	}

	t := s.classify(text)
	out := s.dispatcher.Dispatch(ctx, t, userID, text, map[string]any(p))
	desc = reply.Build(out, chatID)
	if desc.IsEmpty() {
		return desc, OutcomeIgnored
	}
	return desc, OutcomeReplied
}
