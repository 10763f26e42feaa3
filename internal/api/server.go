package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"traject/internal/logging"
	"traject/internal/metrics"
	"traject/internal/session"
)

// Server exposes recording status and Prometheus metrics over HTTP while a
// session runs. It is read-only: nothing here mutates the pipeline.
type Server struct {
	sess   *session.Session
	logger *slog.Logger
	http   *http.Server
	addr   string
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	SessionID     string `json:"session_id"`
	State         string `json:"state"`
	StartIndex    int64  `json:"start_index"`
	TargetTotal   int64  `json:"target_total"`
	ExistingTotal int64  `json:"existing_total"`
	Saved         int64  `json:"saved"`
	Failed        int64  `json:"failed"`
}

// NewServer builds a status server for the given session.
func NewServer(sess *session.Session, logger *slog.Logger) *Server {
	return &Server{
		sess:   sess,
		logger: logging.NewComponentLogger(logger, "api"),
	}
}

// Start registers the pipeline collectors and begins serving on bind. An
// empty bind disables the server. Serving errors after startup are logged,
// not fatal: the recording matters more than the status endpoint.
func (s *Server) Start(bind string) error {
	if bind == "" {
		return nil
	}

	registry := prometheus.NewRegistry()
	if err := registerAll(registry, metrics.PipelineCollectors()); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/status", s.handleStatus)

	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	s.http = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.addr = listener.Addr().String()
	go func() {
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("status server stopped", logging.Error(err))
		}
	}()
	s.logger.Info("status server listening", logging.String("bind", listener.Addr().String()))
	return nil
}

// Addr returns the bound listen address, or the empty string when the server
// is disabled or not started.
func (s *Server) Addr() string { return s.addr }

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.http == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.http.Shutdown(ctx)
	s.http = nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	plan := s.sess.Plan()
	saved, failed := s.sess.Progress()
	resp := StatusResponse{
		SessionID:     s.sess.ID(),
		State:         string(s.sess.State()),
		StartIndex:    plan.StartIndex,
		TargetTotal:   plan.TargetEpisodes,
		ExistingTotal: plan.ExistingTotal,
		Saved:         saved,
		Failed:        failed,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func registerAll(registry *prometheus.Registry, collectors []prometheus.Collector) error {
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
