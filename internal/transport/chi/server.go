package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dbpedia/lookup/internal/config"
	"github.com/dbpedia/lookup/internal/domain"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/job"
	"github.com/dbpedia/lookup/internal/domain/search/result"
	"github.com/dbpedia/lookup/internal/logger"
	healthuc "github.com/dbpedia/lookup/internal/usecase/health"
	indexuc "github.com/dbpedia/lookup/internal/usecase/index"
	searchuc "github.com/dbpedia/lookup/internal/usecase/search"
	"github.com/dbpedia/lookup/internal/version"
)

// Form fields of /api/index/run.
const (
	formFieldConfig = "config"
	formFieldValues = "values"
)

// Error codes of JSON error responses.
const (
	codeBadRequest      = "bad_request"
	codeUnauthorized    = "unauthorized"
	codeNotFound        = "not_found"
	codeNotReady        = "index_not_ready"
	codeInvalidQuery    = "invalid_query"
	codeFieldMismatch   = "field_mismatch"
	codeInvalidJob      = "invalid_job"
	codeInvalidSchema   = "invalid_schema"
	codeJobRunning      = "job_running"
	codePromotionFailed = "promotion_failed"
	codeInternalError   = "internal_error"
)

// Searcher answers search requests.
type Searcher interface {
	Search(ctx context.Context, req searchuc.Request) (result.Envelope, error)
	Generation() string
}

// JobRunner starts index jobs in the background.
type JobRunner interface {
	Start(ctx context.Context, j job.Job) (string, error)
	Status() (indexuc.Status, bool)
}

// IndexAdmin clears and refreshes the served index.
type IndexAdmin interface {
	Clear(ctx context.Context) error
	Refresh(ctx context.Context) (bool, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Options configure the HTTP API.
type Options struct {
	// FormatTemplate is the XSL stylesheet referenced by XML responses.
	FormatTemplate string
	// APIKeys guard the index endpoints. Empty disables authentication.
	APIKeys []string
	// MaxUploadBytes bounds the multipart body of /api/index/run.
	MaxUploadBytes int64
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements the lookup HTTP API.
type Server struct {
	search        Searcher
	registry      *fieldspec.Registry
	jobs          JobRunner
	index         IndexAdmin
	health        HealthChecker
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	registry *fieldspec.Registry,
	jobs JobRunner,
	index IndexAdmin,
	health HealthChecker,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 16 << 20
	}
	s := &Server{
		search:   search,
		registry: registry,
		jobs:     jobs,
		index:    index,
		health:   health,
		opts:     opts,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotReady, http.StatusServiceUnavailable, codeNotReady),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(domain.ErrFieldMismatch, http.StatusBadRequest, codeFieldMismatch),
		sentinelHandler(domain.ErrInvalidJob, http.StatusBadRequest, codeInvalidJob),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, codeInvalidSchema),
		sentinelHandler(domain.ErrJobRunning, http.StatusConflict, codeJobRunning),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrPromotion, http.StatusInternalServerError, codePromotionFailed),
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.Search)
		r.Post("/search", s.Search)
		r.Post("/search/refresh", s.Refresh)

		r.Route("/index", func(r chi.Router) {
			r.Use(BearerAuthMiddleware(s.opts.APIKeys))
			r.Post("/run", s.RunIndex)
			r.Get("/status", s.IndexStatus)
			r.Post("/clear", s.ClearIndex)
		})
	})
}

// Search handles GET|POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request parameters: "+err.Error())
		return
	}
	req := parseSearchRequest(r.Form, s.registry)
	logger.FromContext(r.Context()).Debug("search", zap.String("params", r.Form.Encode()))

	env, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if env.Format == result.FormatXML {
		writeXML(w, http.StatusOK, env, s.opts.FormatTemplate)
		return
	}
	writeJSON(w, http.StatusOK, jsonEnvelope(env))
}

// Refresh handles POST /api/search/refresh.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	changed, err := s.index.Refresh(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"changed":    changed,
		"generation": s.search.Generation(),
	})
}

// RunIndex handles POST /api/index/run. The job runs in the background.
func (s *Server) RunIndex(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid form: "+err.Error())
		return
	}

	raw, err := formValue(r, formFieldConfig)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(raw) == "" {
		writeError(w, http.StatusBadRequest, codeInvalidJob, "form field \"config\" is required")
		return
	}
	values, err := formValue(r, formFieldValues)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	j, err := config.ParseJob([]byte(raw))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	j = j.WithKeys(splitValues(values))

	id, err := s.jobs.Start(r.Context(), j)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	logger.FromContext(r.Context()).Info("Index job started",
		zap.String("job_id", id), zap.String("mode", string(j.Mode)), zap.Bool("clean", j.CleanIndex))

	w.Header().Set("Location", "/api/index/status")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": id,
		"state":  string(indexuc.StateRunning),
	})
}

// IndexStatus handles GET /api/index/status.
func (s *Server) IndexStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := s.jobs.Status()
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "no index job has run")
		return
	}
	writeJSON(w, http.StatusOK, statusToJSON(st))
}

// ClearIndex handles POST /api/index/clear.
func (s *Server) ClearIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Clear(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "cleared",
		"generation": s.search.Generation(),
	})
}

type healthResponse struct {
	Status     string            `json:"status"`
	Generation string            `json:"generation,omitempty"`
	Version    string            `json:"version"`
	Checks     map[string]string `json:"checks"`
}

// HealthCheck handles GET /health. Only a missing index is unavailable.
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

	writeJSON(w, httpStatus, healthResponse{
		Status:     string(report.Status),
		Generation: report.Generation,
		Version:    version.Version,
		Checks:     checks,
	})
}

type statsJSON struct {
	Bindings   int     `json:"bindings"`
	Written    int     `json:"written"`
	Duplicates int     `json:"duplicates"`
	Nulls      int     `json:"nulls"`
	Skipped    int     `json:"skipped"`
	Failed     int     `json:"failed"`
	Commits    int     `json:"commits"`
	DurationS  float64 `json:"duration_sec"`
}

type statusJSON struct {
	ID        string    `json:"job_id"`
	State     string    `json:"state"`
	Mode      string    `json:"mode"`
	Clean     bool      `json:"clean"`
	StartedAt time.Time `json:"started_at"`
	Stats     statsJSON `json:"stats"`
	Error     string    `json:"error,omitempty"`
}

func statusToJSON(st indexuc.Status) statusJSON {
	out := statusJSON{
		ID:        st.ID,
		State:     string(st.State),
		Mode:      string(st.Mode),
		Clean:     st.Clean,
		StartedAt: st.StartedAt,
		Stats: statsJSON{
			Bindings:   st.Stats.Bindings,
			Written:    st.Stats.Written,
			Duplicates: st.Stats.Duplicates,
			Nulls:      st.Stats.Nulls,
			Skipped:    st.Stats.Skipped,
			Failed:     st.Stats.Failed,
			Commits:    st.Stats.Commits,
			DurationS:  st.Stats.Duration.Seconds(),
		},
	}
	if st.Err != nil {
		out.Error = st.Err.Error()
	}
	return out
}

// formValue reads a form field sent either as a plain value or as a file part.
func formValue(r *http.Request, name string) (string, error) {
	if r.MultipartForm != nil {
		if files := r.MultipartForm.File[name]; len(files) > 0 {
			return readPart(files[0])
		}
	}
	return r.FormValue(name), nil
}

func readPart(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open form file %s: %w", fh.Filename, err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read form file %s: %w", fh.Filename, err)
	}
	return string(data), nil
}

func splitValues(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
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
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns the client-facing message of a domain error.
// Validation errors carry their detail, others only the sentinel text.
func safeDomainMessage(err error) string {
	detailed := []error{
		domain.ErrInvalidQuery,
		domain.ErrFieldMismatch,
		domain.ErrInvalidJob,
		domain.ErrInvalidSchema,
	}
	for _, s := range detailed {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	sentinels := []error{
		domain.ErrNotReady,
		domain.ErrJobRunning,
		domain.ErrNotFound,
		domain.ErrPromotion,
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
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
