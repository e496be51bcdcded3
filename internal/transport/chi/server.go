// Package chi is the HTTP transport: a hand-routed chi server exposing the
// public search API and the authenticated maintenance endpoints.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/quietpage/inkdex/internal/domain"
	embeddinguc "github.com/quietpage/inkdex/internal/usecase/embedding"
	healthuc "github.com/quietpage/inkdex/internal/usecase/health"
	searchuc "github.com/quietpage/inkdex/internal/usecase/search"
)

// Error response codes.
const (
	codeBadRequest       = "bad_request"
	codeNotFound         = "not_found"
	codeRateLimited      = "rate_limited"
	codeGatewayError     = "gateway_unavailable"
	codeProviderError    = "embedding_provider_error"
	codeSemanticDisabled = "semantic_disabled"
	codeInternalError    = "internal_error"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the use case services behind the HTTP API.
type Server struct {
	search        *searchuc.Service
	embedding     *embeddinguc.Service
	health        *healthuc.Service
	backfillLimit int // per-kind document cap when the request names none
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. backfillLimit bounds a backfill
// request that carries no explicit limit.
func NewServer(
	search *searchuc.Service,
	embedding *embeddinguc.Service,
	health *healthuc.Service,
	backfillLimit int,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:        search,
		embedding:     embedding,
		health:        health,
		backfillLimit: backfillLimit,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrUnknownKind, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrAddressEmpty, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrProviderCredentialMissing, http.StatusServiceUnavailable, codeSemanticDisabled),
		sentinelHandler(domain.ErrGatewayUnavailable, http.StatusBadGateway, codeGatewayError),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrInvalidProviderResponse, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// Routes mounts every endpoint on the router. Admin routes go behind the
// given auth middleware; everything else is public.
func (s *Server) Routes(r chi.Router, adminAuth func(http.Handler) http.Handler) {
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/search", s.Search)
		r.Get("/capabilities", s.Capabilities)

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminAuth)
			r.Post("/embeddings/backfill", s.BackfillEmbeddings)
			r.Post("/embeddings/{slug}/regenerate", s.RegenerateEmbedding)
		})
	})
}

// Search handles GET /v1/search?q=...&mode=keyword|semantic.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	mode := r.URL.Query().Get("mode")

	var (
		results []domain.SearchResult
		err     error
	)
	switch mode {
	case "", "keyword":
		results, err = s.search.Search(r.Context(), query)
	case "semantic":
		results, err = s.search.SearchSemantic(r.Context(), query)
	default:
		writeError(w, http.StatusBadRequest, codeBadRequest, "mode must be keyword or semantic")
		return
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if results == nil {
		results = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   len(results),
	})
}

// Capabilities handles GET /v1/capabilities. Clients use it to decide whether
// to offer the semantic mode toggle at all.
func (s *Server) Capabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"keyword_search":  true,
		"semantic_search": s.search.SemanticAvailable(),
	})
}

// BackfillEmbeddings handles POST /v1/admin/embeddings/backfill?kind=&limit=.
// With no kind it sweeps every kind.
func (s *Server) BackfillEmbeddings(w http.ResponseWriter, r *http.Request) {
	kinds := domain.Kinds()
	if k := r.URL.Query().Get("kind"); k != "" {
		kind, err := domain.ParseKind(k)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		kinds = []domain.Kind{kind}
	}

	// The default keeps a single admin request from embedding the whole
	// backlog in one pass; repeated invocations converge like the CLI does.
	limit := s.backfillLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	type kindReport struct {
		Kind     string `json:"kind"`
		Skipped  bool   `json:"skipped"`
		Embedded int    `json:"embedded"`
		Failed   int    `json:"failed"`
	}

	reports := make([]kindReport, 0, len(kinds))
	for _, kind := range kinds {
		report, err := s.embedding.EnsureEmbeddings(r.Context(), kind, limit)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		reports = append(reports, kindReport{
			Kind:     string(kind),
			Skipped:  report.Skipped,
			Embedded: report.Embedded(),
			Failed:   report.Failed(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// RegenerateEmbedding handles POST /v1/admin/embeddings/{slug}/regenerate.
func (s *Server) RegenerateEmbedding(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "slug is required")
		return
	}

	if err := s.embedding.RegenerateEmbedding(r.Context(), slug); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"slug": slug, "status": "embedded"})
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
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

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrUnknownKind,
		domain.ErrAddressEmpty,
		domain.ErrRateLimited,
		domain.ErrProviderCredentialMissing,
		domain.ErrGatewayUnavailable,
		domain.ErrEmbeddingProviderError,
		domain.ErrInvalidProviderResponse,
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
