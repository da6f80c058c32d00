// Package chi is the HTTP transport: request parsing, DTO mapping,
// and domain error to status code translation. Handlers stay thin,
// the pipeline lives in the usecase layer.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/santara-labs/statuta/internal/domain"
	"github.com/santara-labs/statuta/internal/domain/search/query"
	domusage "github.com/santara-labs/statuta/internal/domain/usage"
	"github.com/santara-labs/statuta/internal/report"
	documentuc "github.com/santara-labs/statuta/internal/usecase/document"
	healthuc "github.com/santara-labs/statuta/internal/usecase/health"
	searchuc "github.com/santara-labs/statuta/internal/usecase/search"
	usageuc "github.com/santara-labs/statuta/internal/usecase/usage"
)

// maxUploadSize caps multipart PDF uploads.
const maxUploadSize = 20 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the search pipeline over HTTP.
type Server struct {
	search            *searchuc.Service
	documents         *documentuc.Service
	usage             *usageuc.Service
	health            *healthuc.Service
	logger            *zap.Logger
	errorHandlers     []errorHandler
	defaultMaxPages   int
	defaultMaxResults int
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	documents *documentuc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:    search,
		documents: documents,
		usage:     usage,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sourceUnreachableHandler,
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, CodeUnsupportedFormat),
		sentinelHandler(domain.ErrExtractionFailed, http.StatusUnprocessableEntity, CodeExtractionFailed),
		sentinelHandler(domain.ErrParseFailed, http.StatusBadGateway, CodeParseFailed),
		sentinelHandler(domain.ErrQuotaExceeded, http.StatusPaymentRequired, CodeQuotaExceeded),
		sentinelHandler(domain.ErrLLMUnavailable, http.StatusBadGateway, CodeProviderError),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, CodeProviderError),
	}
	return s
}

// WithQueryDefaults overrides the page and result counts applied to
// requests that omit them. Zero keeps the domain defaults.
func (s *Server) WithQueryDefaults(maxPages, maxResults int) *Server {
	s.defaultMaxPages = maxPages
	s.defaultMaxResults = maxResults
	return s
}

// Routes mounts the API on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/search", func(r chi.Router) {
		r.Post("/query", s.SearchQuery)
		r.Get("/simple", s.SearchSimple)
		r.Post("/report", s.SearchReport)
	})
	r.Route("/documents", func(r chi.Router) {
		r.Get("/{id}", s.GetDocument)
		r.Post("/extract-pdf", s.ExtractPDF)
		r.Post("/upload-pdf", s.UploadPDF)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/usage", s.GetUsage)
	r.Get("/metrics", s.Metrics)
}

// SearchQuery handles POST /search/query.
func (s *Server) SearchQuery(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	q, err := s.queryFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.Search(ctx, q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setLLMTokensHeader(w, usage)
	writeJSON(w, http.StatusOK, searchResponseToDTO(&resp))
}

// SearchSimple handles GET /search/simple.
func (s *Server) SearchSimple(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	text := params.Get("query")
	if text == "" {
		text = params.Get("q")
	}

	maxResults, err := intParam(params.Get("max_results"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "max_results must be an integer")
		return
	}
	maxPages, err := intParam(params.Get("max_pages"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "max_pages must be an integer")
		return
	}

	prefs := query.DefaultPreferences()
	if v := params.Get("verbosity"); v != "" {
		prefs.Verbosity = v
	}
	if f := params.Get("format"); f != "" {
		prefs.Format = f
	}
	if c := params.Get("citations"); c != "" {
		prefs.Citations = c == "true" || c == "1"
	}

	maxPages, maxResults = s.applyQueryDefaults(maxPages, maxResults)
	q, err := query.New(text, maxPages, maxResults, prefs)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.Search(ctx, q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setLLMTokensHeader(w, usage)
	writeJSON(w, http.StatusOK, searchResponseToDTO(&resp))
}

// SearchReport handles POST /search/report. Same pipeline as
// /search/query, rendered as a downloadable HTML report.
func (s *Server) SearchReport(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	q, err := s.queryFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.Search(ctx, q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	html, err := report.Render(&resp)
	if err != nil {
		s.logger.Error("report render failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
		return
	}

	setLLMTokensHeader(w, usage)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(q.Text())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
}

// GetDocument handles GET /documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.documents.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentToDTO(&doc))
}

// ExtractPDF handles POST /documents/extract-pdf.
func (s *Server) ExtractPDF(w http.ResponseWriter, r *http.Request) {
	var req ExtractPDFRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	doc, err := s.documents.ExtractFromURL(r.Context(), req.URL, req.Title)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentToDTO(&doc))
}

// UploadPDF handles POST /documents/upload-pdf (multipart).
func (s *Server) UploadPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "file field is required")
		return
	}
	defer file.Close()

	if !looksLikePDF(header) {
		writeError(w, http.StatusUnsupportedMediaType, CodeUnsupportedFormat, "Uploaded file must be a PDF")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Failed to read upload: "+err.Error())
		return
	}

	doc, err := s.documents.Upload(r.Context(), header.Filename, r.FormValue("title"), data)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentToDTO(&doc))
}

// HealthCheck handles GET /health.
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

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period := domusage.PeriodMonth
	switch r.URL.Query().Get("period") {
	case "day":
		period = domusage.PeriodDay
	case "total":
		period = domusage.PeriodTotal
	}

	report := s.usage.GetReport(r.Context(), period)

	resp := UsageResponse{
		Period:   string(report.Period()),
		Provider: report.Provider(),
		Usage: UsageMetrics{
			ChatRequests:      report.Metrics().ChatRequests(),
			EmbeddingRequests: report.Metrics().EmbeddingRequests(),
			Tokens:            report.Metrics().Tokens(),
		},
		Budget: BudgetStatus{
			TokensLimit:     report.Budget().TokensLimit(),
			TokensRemaining: report.Budget().TokensRemaining(),
			IsExhausted:     report.Budget().IsExhausted(),
		},
	}

	if report.PeriodStart() > 0 {
		start := time.UnixMilli(report.PeriodStart()).UTC()
		end := time.UnixMilli(report.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}
	if report.Budget().ResetsAt() > 0 {
		resetsAt := time.UnixMilli(report.Budget().ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// applyQueryDefaults substitutes the configured counts for omitted ones.
// query.New falls back to the domain defaults when these are zero too.
func (s *Server) applyQueryDefaults(maxPages, maxResults int) (int, int) {
	if maxPages <= 0 {
		maxPages = s.defaultMaxPages
	}
	if maxResults <= 0 {
		maxResults = s.defaultMaxResults
	}
	return maxPages, maxResults
}

// looksLikePDF accepts uploads whose declared type or extension says PDF.
// The extractor still verifies the %PDF magic.
func looksLikePDF(header *multipart.FileHeader) bool {
	ct := strings.ToLower(header.Header.Get("Content-Type"))
	if strings.Contains(ct, "pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(header.Filename), ".pdf")
}

func setLLMTokensHeader(w http.ResponseWriter, usage *domain.TokenUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-LLM-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrDocumentNotFound,
		domain.ErrSourceUnreachable,
		domain.ErrParseFailed,
		domain.ErrUnsupportedFormat,
		domain.ErrExtractionFailed,
		domain.ErrQuotaExceeded,
		domain.ErrLLMUnavailable,
		domain.ErrEmbeddingUnavailable,
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

// sourceUnreachableHandler handles ErrSourceUnreachable, naming the
// failed source when the error carries one.
func sourceUnreachableHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrSourceUnreachable) {
		return false
	}
	var se *domain.SourceError
	if errors.As(err, &se) {
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Code:    CodeSourceUnreachable,
			Message: msg,
			Source:  se.Source,
		})
		return true
	}
	writeError(w, http.StatusBadGateway, CodeSourceUnreachable, msg)
	return true
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
