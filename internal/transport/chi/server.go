package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	healthuc "github.com/kailas-cloud/tenderdraft/internal/usecase/health"
)

// Server implements ServerInterface.
type Server struct {
	documents DocumentService
	generator Generator
	retrieval RetrievalService
	chat      ChatStreamer
	health    HealthChecker
	logger    *zap.Logger
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(
	documents DocumentService,
	generator Generator,
	retrieval RetrievalService,
	chat ChatStreamer,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	return &Server{
		documents: documents,
		generator: generator,
		retrieval: retrieval,
		chat:      chat,
		health:    health,
		logger:    logger,
	}
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeJSON decodes an optional JSON body; an empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err //nolint:wrapcheck // reported as a bad request
}
