package server

import (
	"fmt"
	"net/http"
)

// maxUpdateBytes caps a webhook body. Bot API updates are a few KiB at most.
const maxUpdateBytes int64 = 1 << 20

// limitUpdateBody guards PathWebhook posts. A declared length over limit is
// answered with 413 before the handler runs; anything else is read through
// http.MaxBytesReader, so an unannounced oversize body fails to decode and is
// acknowledged with {} like any other malformed update.
func limitUpdateBody(limit int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != PathWebhook {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > limit {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request_too_large",
				fmt.Sprintf("update body of %d bytes exceeds the %s limit", r.ContentLength, byteSize(limit)))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

func byteSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMiB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKiB", n>>10)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
