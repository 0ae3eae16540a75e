package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/juststeveking/iris/internal/monitor"
)

// StateSource is anything that can report the current monitor state
type StateSource interface {
	State() monitor.State
}

// StateView is the JSON shape of a monitor state
type StateView struct {
	Status       monitor.Status            `json:"status"`
	Healthy      *bool                     `json:"healthy"`
	CheckedAt    *time.Time                `json:"checked_at,omitempty"`
	LatencyMs    *int64                    `json:"latency_ms"`
	Latency      string                    `json:"latency"`
	Error        string                    `json:"error,omitempty"`
	Backend      *monitor.BackendInfo      `json:"backend,omitempty"`
	Services     map[string]monitor.Status `json:"services,omitempty"`
	IsChecking   bool                      `json:"is_checking"`
	IsMonitoring bool                      `json:"is_monitoring"`
}

// NewStateView converts a state, leaving unknown values null
func NewStateView(s monitor.State) StateView {
	v := StateView{
		Status:       s.Status,
		Latency:      s.FormattedLatency(),
		Error:        s.Error,
		Backend:      s.Backend,
		Services:     s.Services,
		IsChecking:   s.IsChecking,
		IsMonitoring: s.IsMonitoring,
	}
	if healthy, known := s.Healthy(); known {
		v.Healthy = &healthy
	}
	if s.Completed() {
		checkedAt := s.CheckedAt
		ms := s.LatencyMs()
		v.CheckedAt = &checkedAt
		v.LatencyMs = &ms
	}
	return v
}

type Server struct {
	Logger  *zap.Logger
	Source  StateSource
	Metrics http.Handler
}

func NewServer(l *zap.Logger, src StateSource, metrics http.Handler) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Source: src, Metrics: metrics}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/state", s.handleState)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	return r
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	view := NewStateView(s.Source.State())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		s.Logger.Warn("state_encode_failed", zap.Error(err))
	}
}
