// Package chi exposes the retrieval service over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/swali-ai/retrieval/internal/domain"
	"github.com/swali-ai/retrieval/internal/domain/search/filter"
	logpkg "github.com/swali-ai/retrieval/internal/logger"
	"github.com/swali-ai/retrieval/internal/rank"
	"github.com/swali-ai/retrieval/internal/retrieval"
	"github.com/swali-ai/retrieval/internal/version"
)

// Error codes returned in the "code" field of error responses.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeModelUnavailable = "model_unavailable"
	codeEmbeddingError   = "embedding_provider_error"
	codeIndexUnavailable = "index_unavailable"
	codeNotFound         = "not_found"
	codeInternalError    = "internal_error"
)

// Pinger is implemented by index backends with a connectivity check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server handles the search and health endpoints.
type Server struct {
	retriever     *retrieval.Service
	pinger        Pinger // nil when the backend has no connectivity check
	defaultK      int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. pinger may be nil.
func NewServer(retriever *retrieval.Service, pinger Pinger, defaultK int, logger *zap.Logger) *Server {
	if defaultK <= 0 {
		defaultK = 3
	}
	s := &Server{
		retriever: retriever,
		pinger:    pinger,
		defaultK:  defaultK,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidConfiguration, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrModelUnavailable, http.StatusBadRequest, codeModelUnavailable),
		sentinelHandler(domain.ErrEmbeddingFailure, http.StatusBadGateway, codeEmbeddingError),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, codeIndexUnavailable),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeNotFound),
	}
	return s
}

// Mount registers the server's routes on the router.
func (s *Server) Mount(r chi.Router) {
	r.Post("/v1/search", s.Search)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type searchRequest struct {
	Query         string         `json:"query"`
	K             int            `json:"k"`
	UseReranker   *bool          `json:"use_reranker"`
	Model         string         `json:"model"`
	IncludeScores bool           `json:"include_scores"`
	Filters       *filterRequest `json:"filters"`
}

type filterRequest struct {
	Match   map[string]string   `json:"match"`
	AnyOf   map[string][]string `json:"any_of"`
	HasTags []string            `json:"has_tags"`
}

type searchScores struct {
	Distance float64 `json:"distance"`
	Lexical  float64 `json:"lexical"`
	Combined float64 `json:"combined"`
}

type searchResult struct {
	ID     string            `json:"id"`
	Title  string            `json:"title,omitempty"`
	Text   string            `json:"text"`
	Meta   map[string]string `json:"meta,omitempty"`
	Tags   []string          `json:"tags,omitempty"`
	Scores *searchScores     `json:"scores,omitempty"`
}

type searchResponse struct {
	Results  []searchResult `json:"results"`
	Model    string         `json:"model,omitempty"`
	K        int            `json:"k"`
	Reranked bool           `json:"reranked"`
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}
	if req.K == 0 {
		req.K = s.defaultK
	}

	expr, err := filterFromRequest(req.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	useReranker := true
	if req.UseReranker != nil {
		useReranker = *req.UseReranker
	}

	candidates, err := s.retriever.RetrieveCandidates(r.Context(), retrieval.Request{
		Query:       req.Query,
		K:           req.K,
		UseReranker: useReranker,
		Filter:      expr,
		Model:       req.Model,
	})
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	results := make([]searchResult, len(candidates))
	for i, c := range candidates {
		results[i] = candidateToResult(c, req.IncludeScores)
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results:  results,
		Model:    req.Model,
		K:        req.K,
		Reranked: useReranker,
	})
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := "healthy"
	httpStatus := http.StatusOK

	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			checks["index"] = "unhealthy"
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["index"] = "healthy"
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":  status,
		"version": version.Version,
		"checks":  checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func candidateToResult(c rank.Candidate, includeScores bool) searchResult {
	res := searchResult{
		ID:    c.Document.ID(),
		Title: c.Document.Title(),
		Text:  c.Document.Text(),
	}
	if len(c.Document.Meta()) > 0 {
		res.Meta = c.Document.Meta()
	}
	if len(c.Document.Tags()) > 0 {
		res.Tags = c.Document.Tags()
	}
	if includeScores {
		res.Scores = &searchScores{
			Distance: c.Distance,
			Lexical:  c.Lexical,
			Combined: c.Combined,
		}
	}
	return res
}

func filterFromRequest(f *filterRequest) (filter.Expression, error) {
	if f == nil {
		return filter.Expression{}, nil
	}

	var conditions []filter.Condition
	for key, value := range f.Match {
		cond, err := filter.NewMatch(key, value)
		if err != nil {
			return filter.Expression{}, err
		}
		conditions = append(conditions, cond)
	}
	for key, values := range f.AnyOf {
		cond, err := filter.NewIn(key, values)
		if err != nil {
			return filter.Expression{}, err
		}
		conditions = append(conditions, cond)
	}
	for _, tag := range f.HasTags {
		cond, err := filter.NewHasTag(tag)
		if err != nil {
			return filter.Expression{}, err
		}
		conditions = append(conditions, cond)
	}

	return filter.NewExpression(conditions...)
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
		domain.ErrInvalidConfiguration,
		domain.ErrModelUnavailable,
		domain.ErrEmbeddingFailure,
		domain.ErrIndexUnavailable,
		domain.ErrDocumentNotFound,
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

// handleDomainError logs with the request-scoped logger so request_id
// reaches domain-error logs.
func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	logpkg.FromContext(ctx, s.logger).Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	writeError(w, http.StatusInternalServerError, codeInternalError, msg)
}
