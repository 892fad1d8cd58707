package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/marcus-qen/botgate/internal/metrics"
	"github.com/marcus-qen/botgate/internal/reply"
	"github.com/marcus-qen/botgate/internal/webhook"
)

// Route paths.
const (
	PathWebhook = "/bot/rest/webhook"
	PathHealth  = "/bot/rest/health"
	PathStatus  = "/bot/rest/status"
	PathMetrics = "/metrics"
)

// HealthText is the body of the health endpoint.
const HealthText = "Telegram Bot is running"

// StatusResponse is the body of the status endpoint.
type StatusResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`

	// AllowedIPs is the allow-list size; zero means the IP stage is open.
	AllowedIPs int              `json:"allowed_ips"`
	AntiReplay *AntiReplayState `json:"anti_replay,omitempty"`
	RateLimit  *RateLimitState  `json:"rate_limit,omitempty"`
}

// AntiReplayState reports the duplicate-update store. Absent when disabled.
type AntiReplayState struct {
	Window  string `json:"window"`
	Entries int    `json:"entries"`
}

// RateLimitState reports live quota buckets. Absent when not enforced.
type RateLimitState struct {
	IPBuckets   int `json:"ip_buckets"`
	UserBuckets int `json:"user_buckets"`
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST "+PathWebhook, s.handleWebhook)
	mux.HandleFunc(PathWebhook, s.handleMethodNotAllowed)

	mux.HandleFunc("GET "+PathHealth, s.handleHealth)
	mux.HandleFunc("GET "+PathStatus, s.handleStatus)
	mux.Handle("GET "+PathMetrics, promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", s.handleNotFound)
}

// handleWebhook always acknowledges with 200 so Telegram never redelivers.
// An undecodable body is passed on as a nil payload and rejected by the
// validator like any other malformed call.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := webhook.ParsePayload(r.Body)
	if err != nil {
		s.logger.Warn("undecodable webhook body",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		body = nil
	}

	desc := s.service.Handle(r.Context(), webhook.NewRequest(r, body))
	writeDescriptor(w, desc)
}

func writeDescriptor(w http.ResponseWriter, desc reply.Descriptor) {
	writeJSON(w, http.StatusOK, desc)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(HealthText))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Status:     "running",
		Timestamp:  s.now().UnixMilli(),
		Version:    Version,
		AllowedIPs: s.validator.AllowListSize(),
	}
	if s.replays != nil {
		resp.AntiReplay = &AntiReplayState{
			Window:  s.replays.Window().String(),
			Entries: s.replays.Len(),
		}
	}
	if s.limiter != nil {
		st := s.limiter.GetStats()
		resp.RateLimit = &RateLimitState{IPBuckets: st.IPBuckets, UserBuckets: st.UserBuckets}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed on "+r.URL.Path)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
}
