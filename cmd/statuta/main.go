package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/santara-labs/statuta/internal/config"
	"github.com/santara-labs/statuta/internal/db"
	dbRedis "github.com/santara-labs/statuta/internal/db/redis"
	dbValkey "github.com/santara-labs/statuta/internal/db/valkey"
	"github.com/santara-labs/statuta/internal/domain"
	logpkg "github.com/santara-labs/statuta/internal/logger"
	"github.com/santara-labs/statuta/internal/metrics"
	"github.com/santara-labs/statuta/internal/pdf"
	budgetrepo "github.com/santara-labs/statuta/internal/repository/budget"
	"github.com/santara-labs/statuta/internal/repository/docstore"
	"github.com/santara-labs/statuta/internal/repository/embcache"
	"github.com/santara-labs/statuta/internal/repository/searchcache"
	"github.com/santara-labs/statuta/internal/transport/bpk"
	chiTransport "github.com/santara-labs/statuta/internal/transport/chi"
	openaiTransport "github.com/santara-labs/statuta/internal/transport/openai"
	documentuc "github.com/santara-labs/statuta/internal/usecase/document"
	enhanceuc "github.com/santara-labs/statuta/internal/usecase/enhance"
	healthuc "github.com/santara-labs/statuta/internal/usecase/health"
	llmuc "github.com/santara-labs/statuta/internal/usecase/llm"
	rankuc "github.com/santara-labs/statuta/internal/usecase/rank"
	searchuc "github.com/santara-labs/statuta/internal/usecase/search"
	usageuc "github.com/santara-labs/statuta/internal/usecase/usage"
	"github.com/santara-labs/statuta/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting statuta API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("llm_provider", cfg.LLM.Provider),
	)

	// Optional key-value store: caches and budget persistence. Without
	// one the server still runs, documents then live in process memory.
	var kvStore db.Store
	if len(cfg.Database.Addrs) > 0 {
		switch cfg.Database.Driver {
		case "valkey":
			kvStore, err = dbValkey.NewStore(dbValkey.Config{
				Addrs:    cfg.Database.Addrs,
				Password: cfg.Database.Password,
			})
		case "redis":
			kvStore, err = dbRedis.NewStore(dbRedis.Config{
				Addrs:    cfg.Database.Addrs,
				Password: cfg.Database.Password,
			})
		default:
			logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
		}
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer kvStore.Close()

		ctx := context.Background()
		if err := kvStore.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterLLMMetrics()
	metrics.RegisterPipelineMetrics()

	// Single BudgetTracker shared across chat, embedders and usage service.
	var budget *llmuc.BudgetTracker
	budgetCfg := cfg.LLM.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := llmuc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = llmuc.BudgetActionReject
		}
		budget = llmuc.NewBudgetTracker(
			cfg.LLM.Provider, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		if kvStore != nil {
			// Connect persistence store — loads current counters from DB.
			budgetStore := budgetrepo.New(kvStore, 48*time.Hour, 62*24*time.Hour)
			budget.WithStore(context.Background(), budgetStore)
		}
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker llmuc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	// Chat chain: provider -> budget instrumentation. No API key runs
	// the whole pipeline on rule-based fallbacks.
	var chat domain.ChatCompleter
	var chatClient *openaiTransport.ChatClient
	if cfg.LLM.APIKey != "" {
		chatClient = openaiTransport.NewChatClient(&openaiTransport.ChatConfig{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.ChatModel,
			Timeout:  time.Duration(cfg.LLM.TimeoutSec) * time.Second,
			Provider: cfg.LLM.Provider,
			Logger:   logger,
		})
		chat = llmuc.NewInstrumentedChat(chatClient, cfg.LLM.Provider, cfg.LLM.ChatModel, budgetChecker, logger)
		logger.Info("Chat model enabled",
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.ChatModel),
		)
	}

	// Embedder chains for semantic reranking. Query and document sides
	// differ only in instruction prefix and share one provider probe.
	var queryEmbedder, docEmbedder rankuc.Embedder
	var embProbe *openaiTransport.Embedder
	if cfg.LLM.APIKey != "" && cfg.Embedding.Model != "" {
		queryEmbedder, embProbe = buildEmbedder(cfg, cfg.Embedding.QueryInstruction, kvStore, budgetChecker, logger)
		docEmbedder, _ = buildEmbedder(cfg, cfg.Embedding.DocumentInstruction, kvStore, budgetChecker, logger)
		logger.Info("Semantic reranking enabled",
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	}

	// Shared PDF extractor: scraper fallback and the documents API.
	pdfExtractor := pdf.New(
		time.Duration(cfg.Scrapers["bpk"].TimeoutSec)*time.Second,
		cfg.Scrapers["bpk"].UserAgent,
		logger,
	)

	// Scrapers in name order so merge precedence is deterministic.
	names := make([]string, 0, len(cfg.Scrapers))
	for name := range cfg.Scrapers {
		names = append(names, name)
	}
	sort.Strings(names)

	scrapers := make([]searchuc.Scraper, 0, len(names))
	scraperProbes := make(map[string]healthuc.Checker, len(names))
	for _, name := range names {
		sc := cfg.Scrapers[name]
		client, err := bpk.New(name, bpk.Config{
			BaseURL:      sc.BaseURL,
			Timeout:      time.Duration(sc.TimeoutSec) * time.Second,
			MaxRetries:   sc.MaxRetries,
			RetryBackoff: time.Duration(sc.RetryBackoffMS) * time.Millisecond,
			UserAgent:    sc.UserAgent,
		}, pdfExtractor, logger)
		if err != nil {
			logger.Fatal("Failed to create scraper",
				zap.String("source", name), zap.Error(err))
		}
		scrapers = append(scrapers, client)
		scraperProbes[name] = client
	}
	logger.Info("Scrapers created", zap.Strings("sources", names))

	// Document store by backend
	var docs documentuc.Store
	if cfg.Storage.Backend == "db" && kvStore != nil {
		docs = docstore.NewKV(kvStore, time.Duration(cfg.Storage.DocTTLSec)*time.Second)
	} else {
		docs = docstore.NewMemory()
	}

	// Create use case services
	enhanceSvc := enhanceuc.New(chat, logger).
		WithTopDocs(cfg.Search.SynthesisTopK)
	rankSvc := rankuc.New(queryEmbedder, docEmbedder, logger)
	searchSvc := searchuc.New(scrapers, enhanceSvc, rankSvc, docs, logger)
	if kvStore != nil && cfg.Search.CacheTTLSec >= 0 {
		cache := searchcache.New(
			kvStore, time.Duration(cfg.Search.CacheTTLSec)*time.Second,
			metrics.SearchCacheTotal, logger,
		)
		searchSvc.WithCache(cache)
	}
	docSvc := documentuc.New(docs, pdfExtractor, logger)

	// Usage service — reads from shared BudgetTracker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(cfg.LLM.Provider, budgetReader)

	// Health service: cache connectivity, LLM and embedding API
	// reachability, and a cheap base-URL probe per scrape source.
	healthSvc := healthuc.New()
	if kvStore != nil {
		healthSvc.Register("cache", healthuc.CheckerFunc(kvStore.Ping))
	}
	if chatClient != nil {
		healthSvc.Register("llm", healthuc.CheckerFunc(chatClient.HealthCheck))
	}
	if embProbe != nil {
		healthSvc.Register("embedding", healthuc.CheckerFunc(embProbe.HealthCheck))
	}
	for name, probe := range scraperProbes {
		healthSvc.Register("scraper:"+name, probe)
	}

	// Create chi server
	server := chiTransport.NewServer(searchSvc, docSvc, usageSvc, healthSvc, logger).
		WithQueryDefaults(cfg.Search.MaxPagesDefault, cfg.Search.MaxResultsDefault)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(processTimeMiddleware())
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg config.Config,
	instruction string,
	store db.Store,
	budget llmuc.BudgetChecker,
	logger *zap.Logger,
) (domain.Embedder, *openaiTransport.Embedder) {
	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.LLM.Provider,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil && cfg.Embedding.CacheTTLSec >= 0 {
		embedder = embcache.New(
			base, store, time.Duration(cfg.Embedding.CacheTTLSec)*time.Second,
			metrics.EmbeddingCacheTotal, logger,
		)
	}

	// Instrumented (budget + metrics)
	embedder = llmuc.NewInstrumentedEmbedder(
		embedder, cfg.LLM.Provider, cfg.Embedding.Model, budget, logger,
	)

	// Instruction prefix (outermost — cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction), base
	}

	return embedder, base
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

// processTimeMiddleware reports handler latency in the X-Process-Time
// header (seconds). Headers freeze at first write, so the value is
// injected just before the status line goes out.
func processTimeMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(&processTimeWriter{ResponseWriter: w, start: time.Now()}, r)
		})
	}
}

type processTimeWriter struct {
	http.ResponseWriter
	start       time.Time
	wroteHeader bool
}

func (w *processTimeWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		elapsed := time.Since(w.start).Seconds()
		w.Header().Set("X-Process-Time", strconv.FormatFloat(elapsed, 'f', -1, 64))
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *processTimeWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
