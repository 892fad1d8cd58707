package webhook

import (
	"net/http"
	"strings"
)

// SecretTokenHeader carries the shared secret Telegram echoes on every call.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// BindingConfig bounds account-binding codes. It is carried for the binding
// subsystem and not read by the validator.
type BindingConfig struct {
	CodeExpiryMinutes int
	CodeLengthMin     int
	CodeLengthMax     int
}

// ValidationConfig is the read-only snapshot the validator runs against.
type ValidationConfig struct {
	SecretToken           string
	AllowedIPs            []string
	IPRequestsPerMinute   int
	UserRequestsPerMinute int
	Binding               BindingConfig
}

// Request is one inbound webhook call.
type Request struct {
	Body     Payload
	Header   http.Header
	ClientIP string
}

// NewRequest builds a Request from an HTTP call and its decoded body.
func NewRequest(r *http.Request, body Payload) *Request {
	return &Request{
		Body:     body,
		Header:   r.Header,
		ClientIP: ClientIPFromRequest(r),
	}
}

// SecretToken returns the secret header value. The canonical header key is
// tried first, then the all-lowercase key some proxies forward verbatim.
func (r *Request) SecretToken() (string, bool) {
	if r == nil || r.Header == nil {
		return "", false
	}
	if vs, ok := r.Header[SecretTokenHeader]; ok && len(vs) > 0 {
		return vs[0], true
	}
	if vs, ok := r.Header[strings.ToLower(SecretTokenHeader)]; ok && len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}
