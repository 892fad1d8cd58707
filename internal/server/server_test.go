package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/marcus-qen/botgate/internal/command"
	"github.com/marcus-qen/botgate/internal/config"
	"github.com/marcus-qen/botgate/internal/reply"
	"github.com/marcus-qen/botgate/internal/webhook"
)

const e2eSecret = "e2e-secret-token"

var e2eNow = time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

func e2eConfig() config.Config {
	cfg := config.Default()
	cfg.Bot.SecretToken = e2eSecret
	cfg.Bot.AllowedIPs = []string{"149.154.160.0/20", "127.0.0.1"}
	return cfg
}

func newE2EServer(cfg config.Config, opts ...Option) *Server {
	opts = append([]Option{WithClock(func() time.Time { return e2eNow })}, opts...)
	srv, err := New(cfg, nil, opts...)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(srv.Close)
	return srv
}

func updateBody(updateID int, text string, date time.Time) string {
	return fmt.Sprintf(`{"update_id":%d,"message":{"message_id":1,"from":{"id":42,"is_bot":false},"chat":{"id":99},"text":%q,"date":%d}}`,
		updateID, text, date.Unix())
}

func postWebhook(srv *Server, body, secret, ip string) (*httptest.ResponseRecorder, reply.Descriptor) {
	req := httptest.NewRequest(http.MethodPost, PathWebhook, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(webhook.SecretTokenHeader, secret)
	}
	req.RemoteAddr = ip + ":44321"

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	var desc reply.Descriptor
	Expect(json.Unmarshal(rr.Body.Bytes(), &desc)).To(Succeed())
	return rr, desc
}

var _ = Describe("Webhook endpoint", func() {
	var srv *Server

	BeforeEach(func() {
		srv = newE2EServer(e2eConfig())
	})

	Context("with a valid call", func() {
		It("answers /balance with an HTML sendMessage carrying a currency figure", func() {
			rr, desc := postWebhook(srv, updateBody(1, "/balance", e2eNow), e2eSecret, "149.154.167.220")

			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Header().Get("Content-Type")).To(Equal("application/json"))
			Expect(desc.Method).To(Equal("sendMessage"))
			Expect(desc.ChatID).To(Equal(int64(99)))
			Expect(desc.ParseMode).To(Equal("HTML"))
			Expect(desc.Text).To(MatchRegexp(`¥[\d,]+\.\d{2}`))
		})

		It("answers /help with the command list", func() {
			_, desc := postWebhook(srv, updateBody(2, "/help", e2eNow), e2eSecret, "127.0.0.1")
			Expect(desc.Text).To(ContainSubstring("/balance"))
		})

		It("acknowledges plain text with an empty body", func() {
			rr, desc := postWebhook(srv, updateBody(3, "hello", e2eNow), e2eSecret, "127.0.0.1")

			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(strings.TrimSpace(rr.Body.String())).To(Equal("{}"))
			Expect(desc.IsEmpty()).To(BeTrue())
		})

		It("answers unknown commands through the invalid handler", func() {
			_, desc := postWebhook(srv, updateBody(4, "/frobnicate", e2eNow), e2eSecret, "127.0.0.1")
			Expect(desc.Text).To(ContainSubstring("Unknown command"))
		})
	})

	Context("with a rejected call", func() {
		It("returns {} for a wrong secret and never runs a handler", func() {
			called := false
			srv = newE2EServer(e2eConfig(), WithCommandHandler(command.Balance,
				func(context.Context, int64, string, map[string]any) (string, error) {
					called = true
					return "should not happen", nil
				}))

			rr, desc := postWebhook(srv, updateBody(5, "/balance", e2eNow), "wrong", "127.0.0.1")
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(desc.IsEmpty()).To(BeTrue())
			Expect(called).To(BeFalse())
		})

		It("returns {} for a caller outside the allow-list", func() {
			_, desc := postWebhook(srv, updateBody(6, "/balance", e2eNow), e2eSecret, "203.0.113.9")
			Expect(desc.IsEmpty()).To(BeTrue())
		})

		It("returns {} for a stale message", func() {
			_, desc := postWebhook(srv, updateBody(7, "/balance", e2eNow.Add(-10*time.Minute)), e2eSecret, "127.0.0.1")
			Expect(desc.IsEmpty()).To(BeTrue())
		})

		It("returns {} for a body that is not JSON", func() {
			rr, desc := postWebhook(srv, "definitely not json", e2eSecret, "127.0.0.1")
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(desc.IsEmpty()).To(BeTrue())
		})
	})

	Context("when a handler fails", func() {
		It("replies with the generic error text", func() {
			srv = newE2EServer(e2eConfig(), WithCommandHandler(command.Balance,
				func(context.Context, int64, string, map[string]any) (string, error) {
					panic("boom")
				}))

			_, desc := postWebhook(srv, updateBody(8, "/balance", e2eNow), e2eSecret, "127.0.0.1")
			Expect(desc.Text).To(Equal(command.GenericErrorText))
			Expect(desc.ChatID).To(Equal(int64(99)))
		})
	})

	Context("with anti-replay enabled", func() {
		It("rejects a redelivered update_id", func() {
			cfg := e2eConfig()
			cfg.Bot.AntiReplay.Enabled = true
			srv = newE2EServer(cfg)

			_, first := postWebhook(srv, updateBody(9, "/help", e2eNow), e2eSecret, "127.0.0.1")
			_, second := postWebhook(srv, updateBody(9, "/help", e2eNow), e2eSecret, "127.0.0.1")
			Expect(first.IsEmpty()).To(BeFalse())
			Expect(second.IsEmpty()).To(BeTrue())
		})
	})

	Context("with rate limiting enforced", func() {
		It("stops answering once the per-user budget is spent", func() {
			cfg := e2eConfig()
			cfg.Bot.RateLimit.Enforce = true
			cfg.Bot.RateLimit.UserRequestsPerMinute = 2
			srv = newE2EServer(cfg)

			var answered int
			for i := 0; i < 4; i++ {
				_, desc := postWebhook(srv, updateBody(100+i, "/help", e2eNow), e2eSecret, "127.0.0.1")
				if !desc.IsEmpty() {
					answered++
				}
			}
			Expect(answered).To(Equal(2))
		})
	})

	It("rejects non-POST methods with a JSON error", func() {
		req := httptest.NewRequest(http.MethodGet, PathWebhook, nil)
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)

		Expect(rr.Code).To(Equal(http.StatusMethodNotAllowed))
		Expect(rr.Body.String()).To(ContainSubstring("method_not_allowed"))
	})

	It("rejects oversized bodies", func() {
		body := bytes.Repeat([]byte("x"), int(maxUpdateBytes)+1)
		req := httptest.NewRequest(http.MethodPost, PathWebhook, bytes.NewReader(body))
		req.ContentLength = int64(len(body))
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)

		Expect(rr.Code).To(Equal(http.StatusRequestEntityTooLarge))
		Expect(rr.Body.String()).To(ContainSubstring("request_too_large"))
	})
})

var _ = Describe("Operational endpoints", func() {
	var srv *Server

	BeforeEach(func() {
		srv = newE2EServer(e2eConfig())
	})

	get := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	It("reports health as plain text", func() {
		rr := get(PathHealth)
		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(rr.Body.String()).To(Equal(HealthText))
	})

	It("reports status with a millisecond timestamp and version", func() {
		rr := get(PathStatus)
		Expect(rr.Code).To(Equal(http.StatusOK))

		var status StatusResponse
		Expect(json.Unmarshal(rr.Body.Bytes(), &status)).To(Succeed())
		Expect(status.Status).To(Equal("running"))
		Expect(status.Timestamp).To(Equal(e2eNow.UnixMilli()))
		Expect(status.Version).To(Equal(Version))
		Expect(status.AllowedIPs).To(Equal(2))
		Expect(status.AntiReplay).To(BeNil())
		Expect(status.RateLimit).To(BeNil())
	})

	It("reports guard store state when the guards are on", func() {
		cfg := e2eConfig()
		cfg.Bot.AntiReplay.Enabled = true
		cfg.Bot.AntiReplay.Window = 5 * time.Minute
		cfg.Bot.RateLimit.Enforce = true
		srv = newE2EServer(cfg)

		postWebhook(srv, updateBody(300, "/help", e2eNow), e2eSecret, "127.0.0.1")
		postWebhook(srv, updateBody(301, "/help", e2eNow.Add(-time.Hour)), e2eSecret, "127.0.0.1")

		var status StatusResponse
		Expect(json.Unmarshal(get(PathStatus).Body.Bytes(), &status)).To(Succeed())
		Expect(status.AntiReplay).NotTo(BeNil())
		Expect(status.AntiReplay.Window).To(Equal("5m0s"))
		Expect(status.AntiReplay.Entries).To(Equal(1), "the stale update must not be recorded")
		Expect(status.RateLimit).NotTo(BeNil())
		Expect(status.RateLimit.IPBuckets).To(Equal(1))
		Expect(status.RateLimit.UserBuckets).To(Equal(1))
	})

	It("exposes Prometheus metrics", func() {
		postWebhook(srv, updateBody(200, "/help", e2eNow), "wrong", "127.0.0.1")

		rr := get(PathMetrics)
		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(rr.Body.String()).To(ContainSubstring("botgate_validation_failures_total"))
		Expect(rr.Body.String()).To(ContainSubstring(`kind="secret_token_validation_failed"`))
	})

	It("echoes or mints a request ID", func() {
		rr := get(PathHealth)
		Expect(rr.Header().Get(RequestIDHeader)).NotTo(BeEmpty())

		req := httptest.NewRequest(http.MethodGet, PathHealth, nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rr = httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)
		Expect(rr.Header().Get(RequestIDHeader)).To(Equal("abc-123"))
	})

	It("returns a JSON 404 for unknown paths", func() {
		rr := get("/nope")
		Expect(rr.Code).To(Equal(http.StatusNotFound))
		Expect(rr.Body.String()).To(ContainSubstring("not_found"))
	})
})

var _ = Describe("New", func() {
	It("fails on a malformed allow-list", func() {
		cfg := e2eConfig()
		cfg.Bot.AllowedIPs = []string{"10.0.0.0/99"}
		_, err := New(cfg, nil)
		Expect(err).To(HaveOccurred())
	})
})
