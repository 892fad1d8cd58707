package webhook

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf16"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/marcus-qen/botgate/internal/metrics"
	"github.com/marcus-qen/botgate/internal/shared/security"
	"github.com/marcus-qen/botgate/internal/shared/signing"
	"github.com/marcus-qen/botgate/internal/telemetry"
)

const (
	// MaxMessageLength is Telegram's text limit in UTF-16 code units.
	MaxMessageLength = 4096
	// MaxMessageAge rejects messages older than this.
	MaxMessageAge = 5 * time.Minute
	// MaxClockSkew tolerates messages dated this far in the future.
	MaxClockSkew = 30 * time.Second
)

var contentKeys = []string{"message", "edited_message", "callback_query", "inline_query"}

// ReplayGuard tracks delivered update IDs. Seen only looks; Record stores the
// id and returns false when another call recorded it first.
type ReplayGuard interface {
	Seen(updateID int64) bool
	Record(updateID int64) bool
}

// RateGuard enforces per-IP and per-user budgets. Check only looks; Commit
// spends the budget. userID is zero when the update has no sender.
type RateGuard interface {
	Check(ip string, userID int64) error
	Commit(ip string, userID int64) error
}

type stage struct {
	name string
	run  func(*Request) error
}

// Validator gates webhook calls through the ordered checks. It is safe for
// concurrent use once built.
type Validator struct {
	cfg    ValidationConfig
	allow  *AllowList
	secret *signing.Comparer
	replay ReplayGuard
	rate   RateGuard
	now    func() time.Time
	log    *zap.Logger
	stages []stage
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the wall clock used by the timestamp check.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithReplayGuard enables duplicate update_id detection.
func WithReplayGuard(g ReplayGuard) Option {
	return func(v *Validator) { v.replay = g }
}

// WithRateGuard enables per-IP and per-user quota enforcement.
func WithRateGuard(g RateGuard) Option {
	return func(v *Validator) { v.rate = g }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) { v.log = l }
}

// NewValidator parses the allow-list and returns a ready validator. A
// malformed allow-list entry is an error.
func NewValidator(cfg ValidationConfig, opts ...Option) (*Validator, error) {
	allow, err := ParseAllowList(cfg.AllowedIPs)
	if err != nil {
		return nil, fmt.Errorf("parse allow-list: %w", err)
	}
	v := &Validator{
		cfg:    cfg,
		allow:  allow,
		secret: signing.NewComparer(cfg.SecretToken),
		now:    time.Now,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.stages = []stage{
		{"ip_whitelist", v.checkAllowList},
		{"request_format", v.checkFormat},
		{"secret_token", v.checkSecret},
		{"anti_replay", v.checkReplay},
		{"rate_limit", v.checkRate},
		{"message_content", v.checkContent},
		{"timestamp", v.checkTimestamp},
	}
	return v, nil
}

// Validate runs every stage in order and returns the first failure as a
// *ValidationError. Guard state is only written once every stage has passed.
func (v *Validator) Validate(ctx context.Context, req *Request) error {
	_, span := telemetry.StartValidationSpan(ctx)
	if req == nil {
		req = &Request{}
	}
	for _, s := range v.stages {
		if err := s.run(req); err != nil {
			v.reject(span, req, s.name, err)
			return err
		}
	}
	if name, err := v.commit(req); err != nil {
		v.reject(span, req, name, err)
		return err
	}

	updateID, _ := req.Body.Int64("update_id")
	v.log.Info("webhook validated",
		zap.Int64("update_id", updateID),
		zap.String("client_ip", req.ClientIP),
	)
	telemetry.EndValidationSpan(span, "", "", nil)
	return nil
}

func (v *Validator) reject(span trace.Span, req *Request, stage string, err error) {
	kind := KindOf(err)
	v.log.Warn("webhook rejected",
		zap.String("stage", stage),
		zap.String("kind", kind.String()),
		zap.String("code", kind.Code()),
		zap.String("client_ip", req.ClientIP),
		zap.String("detail", security.Sanitize(err.Error())),
	)
	if ce := v.log.Check(zap.DebugLevel, "rejected webhook headers"); ce != nil {
		ce.Write(
			zap.String("stage", stage),
			zap.Any("headers", security.SanitizeHeaders(req.Header)),
		)
	}
	metrics.RecordValidationFailure(kind.String())
	telemetry.EndValidationSpan(span, stage, kind.String(), err)
}

// commit spends the rate budget, then records the update_id. A lost race on
// either guard rejects the call under that guard's stage.
func (v *Validator) commit(req *Request) (string, error) {
	if v.rate != nil {
		userID, _ := ExtractUserID(req.Body)
		if err := v.rate.Commit(req.ClientIP, userID); err != nil {
			return "rate_limit", failf(RateLimitValidationFailed, "%v", err)
		}
	}
	if v.replay != nil {
		updateID, _ := req.Body.Int64("update_id")
		if !v.replay.Record(updateID) {
			return "anti_replay", failf(AntiReplayValidationFailed, "update_id %d already processed", updateID)
		}
	}
	return "", nil
}

// AllowListSize returns the number of allow-list entries; zero means every
// caller is allowed.
func (v *Validator) AllowListSize() int {
	return v.allow.Len()
}

func (v *Validator) checkAllowList(req *Request) error {
	if v.allow.Empty() {
		v.log.Warn("no IP allow-list configured, skipping IP check")
		return nil
	}
	if !v.allow.Allowed(req.ClientIP) {
		return failf(IPWhitelistValidationFailed, "client ip %q not in allow-list", req.ClientIP)
	}
	return nil
}

func (v *Validator) checkFormat(req *Request) error {
	body := req.Body
	if body == nil {
		return failf(RequestFormatValidationFailed, "request body is empty")
	}
	if !body.Has("update_id") {
		return failf(UpdateIDNotFound, "update_id missing")
	}
	for _, key := range contentKeys {
		if body.Has(key) {
			return nil
		}
	}
	return failf(MessageTypeNotFound, "none of %s present", strings.Join(contentKeys, ", "))
}

func (v *Validator) checkSecret(req *Request) error {
	if strings.TrimSpace(v.cfg.SecretToken) == "" {
		return failf(SecretTokenValidationFailed, "secret token not configured")
	}
	got, ok := req.SecretToken()
	if !ok {
		return failf(SecretTokenValidationFailed, "secret header absent")
	}
	if !v.secret.Equal(got) {
		return failf(SecretTokenValidationFailed, "secret header mismatch (got %s)", security.MaskSecret(got))
	}
	return nil
}

func (v *Validator) checkReplay(req *Request) error {
	updateID, ok := req.Body.Int64("update_id")
	if !ok {
		return failf(UpdateIDNotFound, "update_id is not an integer")
	}
	if v.replay != nil && v.replay.Seen(updateID) {
		return failf(AntiReplayValidationFailed, "update_id %d already processed", updateID)
	}
	return nil
}

func (v *Validator) checkRate(req *Request) error {
	if strings.TrimSpace(req.ClientIP) == "" {
		return failf(RateLimitValidationFailed, "client ip unavailable")
	}
	if v.rate == nil {
		return nil
	}
	userID, _ := ExtractUserID(req.Body)
	if err := v.rate.Check(req.ClientIP, userID); err != nil {
		return failf(RateLimitValidationFailed, "%v", err)
	}
	return nil
}

func (v *Validator) checkContent(req *Request) error {
	msg, ok := req.Body.Object("message")
	if !ok {
		return nil
	}
	if text, ok := msg.String("text"); ok {
		if n := TextLength(text); n > MaxMessageLength {
			return failf(MessageLengthExceeded, "text length %d exceeds %d", n, MaxMessageLength)
		}
	}
	from, ok := msg.Object("from")
	if !ok {
		return failf(UserInfoIncomplete, "message.from missing")
	}
	if _, ok := from.Int64("id"); !ok {
		return failf(UserInfoIncomplete, "message.from.id missing")
	}
	if isBot, _ := from.Bool("is_bot"); isBot {
		return failf(BotMessageDetected, "sender is a bot")
	}
	return nil
}

func (v *Validator) checkTimestamp(req *Request) error {
	msg, ok := req.Body.Object("message")
	if !ok {
		return nil
	}
	date, ok := msg.Int64("date")
	if !ok {
		return nil
	}
	if date < 0 || date > math.MaxInt64/1000 {
		return failf(TimestampValidationFailed, "message date %d out of range", date)
	}
	messageMillis := date * 1000
	nowMillis := v.now().UnixMilli()
	if age := nowMillis - messageMillis; age > MaxMessageAge.Milliseconds() {
		return failf(TimestampValidationFailed, "message is stale: age %dms", age)
	}
	if messageMillis > nowMillis+MaxClockSkew.Milliseconds() {
		return failf(TimestampValidationFailed, "message dated in the future: %dms ahead", messageMillis-nowMillis)
	}
	return nil
}

// ValidateFormat is the lightweight shape check: update_id plus a message or
// callback_query.
func ValidateFormat(p Payload) bool {
	if p == nil || !p.Has("update_id") {
		return false
	}
	return p.Has("message") || p.Has("callback_query")
}

// TextLength counts s in UTF-16 code units, the unit Telegram limits use.
func TextLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
