// Package api exposes the HTTP interface for the bookmark service.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/linkhoard/linkhoard/internal/bookmarks"
	"github.com/linkhoard/linkhoard/internal/ingest"
	"github.com/linkhoard/linkhoard/internal/metrics"
)

// Identity headers set by the authenticating front proxy.
const (
	headerUserID      = "X-User-ID"
	headerUserEmail   = "X-User-Email"
	headerInternalKey = "X-Internal-Key"
)

// Ingestor runs the synchronous ingestion pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, req ingest.Request) (bookmarks.Record, error)
}

// Consumer drains one enrichment batch.
type Consumer interface {
	RunOnce(ctx context.Context) (bookmarks.ConsumerReport, error)
}

// Config controls the HTTP surface.
type Config struct {
	InternalKey    string
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the pipeline.
type Server struct {
	router   chi.Router
	ingestor Ingestor
	consumer Consumer
	cfg      Config
	log      *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(ingestor Ingestor, consumer Consumer, cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		ingestor: ingestor,
		consumer: consumer,
		cfg:      cfg,
		log:      log,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(log))
	r.Use(recoverMiddleware(log))
	r.Use(timeoutMiddleware(cfg.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/bookmarks", func(r chi.Router) {
			r.Post("/ingest", s.ingestBookmark)
			r.Post("/enrichment/consume", s.consumeEnrichment)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.log, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.log, w, http.StatusOK, map[string]string{"status": "ready"})
}

type ingestRequest struct {
	URL          string          `json:"url"`
	CategoryID   json.RawMessage `json:"categoryId"`
	UpdateAccess bool            `json:"updateAccess"`
}

type ingestResponse struct {
	Data  []bookmarks.Record `json:"data"`
	Error *string            `json:"error"`
}

func (s *Server) ingestBookmark(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(headerUserID)
	userEmail := r.Header.Get(headerUserEmail)
	if userID == "" {
		writeError(s.log, w, http.StatusUnauthorized, "caller identity is required")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(s.log, w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, err := s.ingestor.Ingest(r.Context(), ingest.Request{
		URL:          req.URL,
		RawCategory:  req.CategoryID,
		UpdateAccess: req.UpdateAccess,
		UserID:       userID,
		UserEmail:    userEmail,
	})
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			s.log.Error("ingest failed", zap.String("url", req.URL), zap.Error(err))
		}
		writeError(s.log, w, status, msg)
		return
	}

	writeJSON(s.log, w, http.StatusOK, ingestResponse{Data: []bookmarks.Record{rec}})
}

type consumeResponse struct {
	Success bool `json:"success"`
	bookmarks.ConsumerReport
}

func (s *Server) consumeEnrichment(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(headerInternalKey)
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.InternalKey)) != 1 {
		writeError(s.log, w, http.StatusUnauthorized, "missing or invalid internal key")
		return
	}

	report, err := s.consumer.RunOnce(r.Context())
	if err != nil {
		s.log.Error("enrichment batch failed", zap.Error(err))
		writeError(s.log, w, http.StatusInternalServerError, "queue read failed")
		return
	}
	writeJSON(s.log, w, http.StatusOK, consumeResponse{Success: true, ConsumerReport: report})
}

// statusFor maps pipeline errors onto HTTP status codes. Degraded scrapes and
// probes never reach here; they fall back inside the pipeline.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, bookmarks.ErrInvalid):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, bookmarks.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, bookmarks.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, bookmarks.ErrConflict):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(log *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("write JSON response", zap.Error(err))
	}
}

func writeError(log *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(log, w, status, map[string]string{"error": msg})
}
