package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/question"
	logpkg "github.com/kailas-cloud/docqa/internal/logger"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	queryuc "github.com/kailas-cloud/docqa/internal/usecase/query"
)

// maxBodyBytes bounds a /query request body.
const maxBodyBytes = 1 << 20

var errTrailingData = errors.New("unexpected data after JSON body")

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes returned to clients.
const (
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeEmptyIndex       ErrorCode = "empty_index"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeInternalError    ErrorCode = "internal_error"
)

// Fixed client messages. Provider and storage details are logged, never returned.
const (
	msgInvalidBody     = "Request body must be a JSON object with a string field 'question'."
	msgMissingQuestion = "Field 'question' is required."
	msgTooShort        = "Please write a longer question."
	msgTooLong         = "Question must be at most 500 characters."
	msgInvalidQuestion = "Invalid question."
	msgEmptyIndex      = "Document index is empty."
	msgInternal        = "Internal server error during RAG query."
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// QueryRequest is the body of POST /query. Question is a pointer so that a
// missing field can be told apart from an empty string.
type QueryRequest struct {
	Question *string `json:"question"`
}

// QueryResponse is the body of a successful POST /query.
type QueryResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the body of GET /ready.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the question answering HTTP API.
type Server struct {
	query         *queryuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(query *queryuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		query:  query,
		health: health,
		logger: logger,
	}
	// Order matters: specific validation errors before the generic one.
	s.errorHandlers = []errorHandler{
		sentinelHandler(question.ErrTooShort, http.StatusUnprocessableEntity, CodeValidationFailed, msgTooShort),
		sentinelHandler(question.ErrTooLong, http.StatusUnprocessableEntity, CodeValidationFailed, msgTooLong),
		sentinelHandler(domain.ErrInvalidQuestion,
			http.StatusUnprocessableEntity, CodeValidationFailed, msgInvalidQuestion),
		sentinelHandler(domain.ErrEmptyIndex, http.StatusInternalServerError, CodeEmptyIndex, msgEmptyIndex),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/ready", s.Readiness)
	r.Get("/metrics", s.Metrics)
	r.Post("/query", s.Query)
}

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeBody(http.MaxBytesReader(w, r.Body, maxBodyBytes), &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, CodeValidationFailed, msgInvalidBody)
		return
	}
	if req.Question == nil {
		writeError(w, http.StatusUnprocessableEntity, CodeValidationFailed, msgMissingQuestion)
		return
	}

	ans, err := s.query.Ask(r.Context(), *req.Question)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Answer:  ans.Text(),
		Sources: ans.Sources(),
	})
}

// HealthCheck handles GET /health. It reports liveness only and never
// depends on the index or providers.
func (s *Server) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readiness handles GET /ready.
func (s *Server) Readiness(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, ReadyResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeBody decodes exactly one JSON value from body. Anything but
// whitespace after it is an error.
func decodeBody(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err //nolint:wrapcheck // mapped to a fixed client message
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error
// and answers with a fixed message.
func sentinelHandler(sentinel error, status int, code ErrorCode, message string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, message)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("query rejected", zap.Error(err))
			return
		}
	}
	log.Error("query failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, msgInternal)
}
