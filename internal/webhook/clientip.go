package webhook

import (
	"net"
	"net/http"
	"strings"
)

const (
	headerForwardedFor = "X-Forwarded-For"
	headerRealIP       = "X-Real-IP"
)

// ClientIP returns the originating address of a call. X-Forwarded-For wins
// (left-most entry of the proxy chain), then X-Real-IP, then the socket peer.
// Values are not syntax-checked here; the allow-list decides what they match.
func ClientIP(header http.Header, remoteAddr string) string {
	if v := forwardedValue(header, headerForwardedFor); v != "" {
		first, _, _ := strings.Cut(v, ",")
		return strings.TrimSpace(first)
	}
	if v := forwardedValue(header, headerRealIP); v != "" {
		return v
	}
	return peerHost(remoteAddr)
}

// ClientIPFromRequest is ClientIP over an *http.Request.
func ClientIPFromRequest(r *http.Request) string {
	return ClientIP(r.Header, r.RemoteAddr)
}

func forwardedValue(header http.Header, name string) string {
	if header == nil {
		return ""
	}
	v := strings.TrimSpace(header.Get(name))
	if v == "" || strings.EqualFold(v, "unknown") {
		return ""
	}
	return v
}

// peerHost strips the port net/http leaves on RemoteAddr.
func peerHost(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
