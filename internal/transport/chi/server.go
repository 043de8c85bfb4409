package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/batcher"
	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/failure"
	healthuc "github.com/kailas-cloud/indexsync/internal/usecase/health"
	"github.com/kailas-cloud/indexsync/internal/usecase/syncer"
)

// Error codes returned in error bodies.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeNotFound         = "not_found"
	CodeSchemaCreation   = "schema_creation_failed"
	CodeBatchDelete      = "batch_delete_failed"
	CodeUnauthorized     = "unauthorized"
	CodeInternalError    = "internal_error"
)

// SchemaService ensures the remote index schema.
type SchemaService interface {
	Ensure(ctx context.Context, force bool) error
	Exists(ctx context.Context) (bool, error)
}

// SyncService runs sync operations.
type SyncService interface {
	Upsert(ctx context.Context, rec document.Record, onComplete func(id string)) error
	Remove(ctx context.Context, id string, onComplete func(id string)) error
	ResyncType(
		ctx context.Context, typ string, stream batcher.Source[document.Record], batchComplete func([]batch.Indexed),
	) (syncer.Summary, error)
	ResyncAll(ctx context.Context, src syncer.RecordSource, batchComplete func([]batch.Indexed)) ([]syncer.Summary, error)
}

// RecordSource reads records for resync and reindex.
type RecordSource interface {
	Records(ctx context.Context, typ string) (batcher.Source[document.Record], error)
	Record(ctx context.Context, id string) (document.Record, error)
}

// FailureLister exposes recently reported failures.
type FailureLister interface {
	Recent() []failure.Failure
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the sync HTTP API.
type Server struct {
	schema        SchemaService
	sync          SyncService
	source        RecordSource
	failures      FailureLister
	health        *healthuc.Service
	indexName     string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	schema SchemaService,
	sync SyncService,
	source RecordSource,
	failures FailureLister,
	health *healthuc.Service,
	indexName string,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		schema:    schema,
		sync:      sync,
		source:    source,
		failures:  failures,
		health:    health,
		indexName: indexName,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrInvalidValue, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrUnsupportedType, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrSchemaCreation, http.StatusBadGateway, CodeSchemaCreation),
		sentinelHandler(domain.ErrBatchDelete, http.StatusBadGateway, CodeBatchDelete),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/index", s.GetIndex)
		r.Post("/index/ensure", s.EnsureIndex)
		r.Post("/resync", s.ResyncAll)
		r.Post("/types/{type}/resync", s.ResyncType)
		r.Put("/documents/{id}", s.UpsertDocument)
		r.Post("/documents/{id}/reindex", s.ReindexDocument)
		r.Delete("/documents/{id}", s.DeleteDocument)
		r.Get("/failures", s.ListFailures)
	})
}

type indexResponse struct {
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
}

// GetIndex handles GET /v1/index.
func (s *Server) GetIndex(w http.ResponseWriter, r *http.Request) {
	ok, err := s.schema.Exists(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, indexResponse{Name: s.indexName, Exists: ok})
}

// EnsureIndex handles POST /v1/index/ensure?force=true.
func (s *Server) EnsureIndex(w http.ResponseWriter, r *http.Request) {
	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "force must be a boolean")
			return
		}
		force = b
	}

	if err := s.schema.Ensure(r.Context(), force); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, indexResponse{Name: s.indexName, Exists: true})
}

type summaryResponse struct {
	ResyncID string `json:"resync_id"`
	Type     string `json:"type"`
	Deleted  int    `json:"deleted"`
	Indexed  int    `json:"indexed"`
	Failed   int    `json:"failed"`
	Batches  int    `json:"batches"`
}

func summaryToResponse(sum syncer.Summary) summaryResponse {
	return summaryResponse{
		ResyncID: sum.ResyncID,
		Type:     sum.Type,
		Deleted:  sum.Deleted,
		Indexed:  sum.Indexed,
		Failed:   sum.Failed,
		Batches:  sum.Batches,
	}
}

// ResyncType handles POST /v1/types/{type}/resync. It blocks until the resync ends.
func (s *Server) ResyncType(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")

	stream, err := s.source.Records(r.Context(), typ)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if c, ok := stream.(interface{ Close() error }); ok {
		defer c.Close()
	}

	sum, err := s.sync.ResyncType(r.Context(), typ, stream, nil)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryToResponse(sum))
}

type resyncAllResponse struct {
	Items []summaryResponse `json:"items"`
	Error string            `json:"error,omitempty"`
}

// ResyncAll handles POST /v1/resync. Types that failed are still listed.
func (s *Server) ResyncAll(w http.ResponseWriter, r *http.Request) {
	sums, err := s.sync.ResyncAll(r.Context(), s.source, nil)

	resp := resyncAllResponse{Items: make([]summaryResponse, len(sums))}
	for i, sum := range sums {
		resp.Items[i] = summaryToResponse(sum)
	}
	status := http.StatusOK
	if err != nil {
		s.logger.Warn("resync all finished with errors", zap.Error(err))
		resp.Error = safeDomainMessage(err)
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, resp)
}

type upsertRequest struct {
	Type   string            `json:"type"`
	Fields map[string]string `json:"fields"`
}

type documentResponse struct {
	ID string `json:"id"`
}

// UpsertDocument handles PUT /v1/documents/{id}.
func (s *Server) UpsertDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	rec, err := document.NewRecord(id, req.Type, req.Fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	s.upsert(w, r, rec)
}

// ReindexDocument handles POST /v1/documents/{id}/reindex, reading the record from the source.
func (s *Server) ReindexDocument(w http.ResponseWriter, r *http.Request) {
	rec, err := s.source.Record(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.upsert(w, r, rec)
}

func (s *Server) upsert(w http.ResponseWriter, r *http.Request, rec document.Record) {
	var done string
	if err := s.sync.Upsert(r.Context(), rec, func(id string) { done = id }); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{ID: done})
}

// DeleteDocument handles DELETE /v1/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.sync.Remove(r.Context(), chi.URLParam(r, "id"), nil); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type failuresResponse struct {
	Items []failure.Failure `json:"items"`
}

// ListFailures handles GET /v1/failures.
func (s *Server) ListFailures(w http.ResponseWriter, _ *http.Request) {
	items := s.failures.Recent()
	if items == nil {
		items = []failure.Failure{}
	}
	writeJSON(w, http.StatusOK, failuresResponse{Items: items})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidValue,
		domain.ErrInvalidSchema,
		domain.ErrUnsupportedType,
		domain.ErrSchemaCreation,
		domain.ErrBatchDelete,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
