package webhook

import (
	"errors"
	"fmt"
)

// Kind classifies why a webhook call was rejected. Kinds are never shown to
// the remote caller; they exist for logs, metrics and tests.
type Kind int

const (
	KindUnknown Kind = iota
	SecretTokenValidationFailed
	IPWhitelistValidationFailed
	RequestFormatValidationFailed
	AntiReplayValidationFailed
	RateLimitValidationFailed
	MessageContentValidationFailed
	TimestampValidationFailed
	UpdateIDNotFound
	MessageTypeNotFound
	MessageLengthExceeded
	UserInfoIncomplete
	BotMessageDetected
	TelegramUserIDInvalid
	BotRouteError
	BindCodeRateLimit
)

var kindNames = map[Kind]string{
	KindUnknown:                    "unknown",
	SecretTokenValidationFailed:    "secret_token_validation_failed",
	IPWhitelistValidationFailed:    "ip_whitelist_validation_failed",
	RequestFormatValidationFailed:  "request_format_validation_failed",
	AntiReplayValidationFailed:     "anti_replay_validation_failed",
	RateLimitValidationFailed:      "rate_limit_validation_failed",
	MessageContentValidationFailed: "message_content_validation_failed",
	TimestampValidationFailed:      "timestamp_validation_failed",
	UpdateIDNotFound:               "update_id_not_found",
	MessageTypeNotFound:            "message_type_not_found",
	MessageLengthExceeded:          "message_length_exceeded",
	UserInfoIncomplete:             "user_info_incomplete",
	BotMessageDetected:             "bot_message_detected",
	TelegramUserIDInvalid:          "telegram_user_id_invalid",
	BotRouteError:                  "bot_route_error",
	BindCodeRateLimit:              "bind_code_rate_limit",
}

// String returns the snake_case name used in logs and metric labels.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Code returns the stable error code (TW0001…). Unknown kinds map to the
// catch-all P9999.
func (k Kind) Code() string {
	if k <= KindUnknown || k > BindCodeRateLimit {
		return "P9999"
	}
	return fmt.Sprintf("TW%04d", int(k))
}

// ValidationError is returned by the validator when a stage rejects a call.
type ValidationError struct {
	Kind    Kind
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("webhook validation failed: %s (%s)", e.Kind, e.Kind.Code())
	}
	return fmt.Sprintf("webhook validation failed: %s (%s): %s", e.Kind, e.Kind.Code(), e.Message)
}

// Is matches another *ValidationError with the same Kind, so callers can write
// errors.Is(err, &ValidationError{Kind: BotMessageDetected}).
func (e *ValidationError) Is(target error) bool {
	var other *ValidationError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

func failf(kind Kind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the failure kind from err, or KindUnknown.
func KindOf(err error) Kind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindUnknown
}
