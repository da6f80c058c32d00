package statuta

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	sources map[string]string // source name → listing base URL

	llmAPIKey  string
	llmBaseURL string
	chatModel  string

	embeddingModel      string
	embeddingDimensions int

	driver   string // "valkey" or "redis", empty = in-memory only
	addrs    []string
	password string

	httpClient *http.Client

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithDefaults registers the peraturan.bpk.go.id source. Equivalent to
// WithSource("bpk", "https://peraturan.bpk.go.id").
func WithDefaults() Option {
	return optionFunc(func(c *clientConfig) {
		if c.sources == nil {
			c.sources = make(map[string]string)
		}
		c.sources["bpk"] = defaultBPKBaseURL
	})
}

// WithSource registers a scrape source under a name. Repeated calls add
// sources; the same name overwrites.
func WithSource(name, baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		if c.sources == nil {
			c.sources = make(map[string]string)
		}
		c.sources[name] = baseURL
	})
}

// WithLLM sets the chat model credentials. Empty baseURL and model fall
// back to DashScope and qwen2.5-72b-instruct. Without this option the
// pipeline runs rule-based enhancement and no answer synthesis.
func WithLLM(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.llmAPIKey = apiKey
		c.llmBaseURL = baseURL
		c.chatModel = model
	})
}

// WithEmbedding enables semantic reranking with the given embedding
// model. Shares the WithLLM credentials. dimensions 0 uses the model
// default. Without this option ranking is lexical.
func WithEmbedding(model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingModel = model
		c.embeddingDimensions = dimensions
	})
}

// WithValkey caches search responses and embeddings in a Valkey
// instance. Optional: without a store the caches are disabled.
// Documents always live in memory for the lifetime of the client.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis caches search responses and embeddings in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithHTTPClient replaces the HTTP client used for scraping and PDF
// downloads. The caller owns timeouts and proxies. LLM calls keep
// their own client.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
