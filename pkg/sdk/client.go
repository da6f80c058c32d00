package statuta

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/santara-labs/statuta/internal/db"
	dbRedis "github.com/santara-labs/statuta/internal/db/redis"
	dbValkey "github.com/santara-labs/statuta/internal/db/valkey"
	"github.com/santara-labs/statuta/internal/domain"
	domdoc "github.com/santara-labs/statuta/internal/domain/document"
	"github.com/santara-labs/statuta/internal/domain/search/query"
	"github.com/santara-labs/statuta/internal/domain/search/result"
	"github.com/santara-labs/statuta/internal/pdf"
	"github.com/santara-labs/statuta/internal/repository/docstore"
	"github.com/santara-labs/statuta/internal/repository/embcache"
	"github.com/santara-labs/statuta/internal/repository/searchcache"
	"github.com/santara-labs/statuta/internal/transport/bpk"
	openaiTransport "github.com/santara-labs/statuta/internal/transport/openai"
	documentuc "github.com/santara-labs/statuta/internal/usecase/document"
	enhanceuc "github.com/santara-labs/statuta/internal/usecase/enhance"
	healthuc "github.com/santara-labs/statuta/internal/usecase/health"
	rankuc "github.com/santara-labs/statuta/internal/usecase/rank"
	searchuc "github.com/santara-labs/statuta/internal/usecase/search"
	usageuc "github.com/santara-labs/statuta/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultLLMTimeout       = 30 * time.Second
	defaultSearchCacheTTL   = time.Hour
	defaultEmbedCacheTTL    = 24 * time.Hour

	defaultBPKBaseURL = "https://peraturan.bpk.go.id"
	defaultLLMBaseURL = "https://dashscope-intl.aliyuncs.com/compatible-mode/v1"
	defaultChatModel  = "qwen2.5-72b-instruct"
	defaultProvider   = "dashscope"
)

// Narrow views of the wired services, swappable in tests.
type searchUseCase interface {
	Search(ctx context.Context, q query.Query) (result.Response, error)
}

type documentUseCase interface {
	Get(ctx context.Context, id string) (domdoc.Document, error)
	ExtractFromURL(ctx context.Context, pdfURL, title string) (domdoc.Document, error)
	Upload(ctx context.Context, filename, title string, data []byte) (domdoc.Document, error)
}

// Client is the statuta SDK entry point: the full retrieval pipeline
// (scrape, enhance, rank, synthesize) embedded in-process, no HTTP
// server involved.
type Client struct {
	store     db.Store
	searchSvc searchUseCase
	docSvc    documentUseCase
	usageSvc  usageUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a statuta Client. At least one scrape source is required
// (WithSource or WithDefaults). The provided context is used for the
// store readiness check when WithValkey or WithRedis is set.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.sources) == 0 {
		return nil, errors.New("statuta: no sources configured (use WithSource or WithDefaults)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if cfg.driver != "" {
		store, err = createStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("statuta: store not ready: %w", err)
		}
	}

	return wireClient(store, cfg, obs)
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey":
		s, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("statuta: create valkey store: %w", err)
		}
		return s, nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("statuta: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("statuta: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	// Internal services log through zap; the SDK surfaces outcomes via
	// the observer instead, so the internal logger stays silent.
	zlog := zap.NewNop()

	pdfExtractor := pdf.New(0, "", zlog)
	if cfg.httpClient != nil {
		pdfExtractor = pdfExtractor.WithHTTPClient(cfg.httpClient)
	}

	// Scrapers in name order so merge precedence is deterministic.
	names := make([]string, 0, len(cfg.sources))
	for name := range cfg.sources {
		names = append(names, name)
	}
	sort.Strings(names)

	scrapers := make([]searchuc.Scraper, 0, len(names))
	for _, name := range names {
		sc, err := bpk.New(name, bpk.Config{BaseURL: cfg.sources[name]}, pdfExtractor, zlog)
		if err != nil {
			return nil, fmt.Errorf("statuta: create scraper %q: %w", name, err)
		}
		if cfg.httpClient != nil {
			sc = sc.WithHTTPClient(cfg.httpClient)
		}
		scrapers = append(scrapers, sc)
	}

	var chatClient *openaiTransport.ChatClient
	if cfg.llmAPIKey != "" {
		baseURL := cfg.llmBaseURL
		if baseURL == "" {
			baseURL = defaultLLMBaseURL
		}
		model := cfg.chatModel
		if model == "" {
			model = defaultChatModel
		}
		chatClient = openaiTransport.NewChatClient(&openaiTransport.ChatConfig{
			APIKey:   cfg.llmAPIKey,
			BaseURL:  baseURL,
			Model:    model,
			Timeout:  defaultLLMTimeout,
			Provider: defaultProvider,
			Logger:   zlog,
		})
	}

	// Pass nil interface (not typed nil pointer!) when the chat model
	// is not configured.
	var completer enhanceuc.Completer
	if chatClient != nil {
		completer = chatClient
	}

	var queryEmbedder, docEmbedder rankuc.Embedder
	if cfg.llmAPIKey != "" && cfg.embeddingModel != "" {
		baseURL := cfg.llmBaseURL
		if baseURL == "" {
			baseURL = defaultLLMBaseURL
		}
		var emb domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
			APIKey:     cfg.llmAPIKey,
			BaseURL:    baseURL,
			Model:      cfg.embeddingModel,
			Dimensions: cfg.embeddingDimensions,
			Provider:   defaultProvider,
			Logger:     zlog,
		})
		if store != nil {
			emb = embcache.New(emb, store, defaultEmbedCacheTTL, nil, zlog)
		}
		queryEmbedder, docEmbedder = emb, emb
	}

	// Documents live in memory for the lifetime of the client; the
	// store only backs the caches.
	docs := docstore.NewMemory()

	enhanceSvc := enhanceuc.New(completer, zlog)
	rankSvc := rankuc.New(queryEmbedder, docEmbedder, zlog)

	searchSvc := searchuc.New(scrapers, enhanceSvc, rankSvc, docs, zlog)
	if store != nil {
		searchSvc = searchSvc.WithCache(searchcache.New(store, defaultSearchCacheTTL, nil, zlog))
	}

	docSvc := documentuc.New(docs, pdfExtractor, zlog)
	usageSvc := usageuc.New(defaultProvider, nil) // nil = unlimited mode (no budget tracking in SDK)

	healthSvc := healthuc.New()
	if store != nil {
		healthSvc.Register("cache", healthuc.CheckerFunc(store.Ping))
	}
	if chatClient != nil {
		healthSvc.Register("llm", healthuc.CheckerFunc(chatClient.HealthCheck))
	}

	return &Client{
		store:     store,
		searchSvc: searchSvc,
		docSvc:    docSvc,
		usageSvc:  usageSvc,
		healthSvc: healthSvc,
		obs:       obs,
	}, nil
}

// Close releases the store connection, if any.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity. Returns nil when no store is
// configured: the in-memory client is always ready.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if c.store == nil {
		return nil
	}
	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
