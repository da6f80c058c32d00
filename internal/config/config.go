package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the statuta API configuration.
type Config struct {
	HTTP      HTTPConfig               `yaml:"http"`
	Auth      AuthConfig               `yaml:"auth"`
	Database  DatabaseConfig           `yaml:"database"`
	Storage   StorageConfig            `yaml:"storage"`
	Scrapers  map[string]ScraperConfig `yaml:"scrapers"`
	LLM       LLMConfig                `yaml:"llm"`
	Embedding EmbeddingConfig          `yaml:"embedding"`
	Search    SearchConfig             `yaml:"search"`
	Logging   LoggingConfig            `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds key-value store connection settings. The store is
// optional: with no addrs configured, caches and budget persistence are
// disabled and documents live in process memory only.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds document storage settings.
type StorageConfig struct {
	Backend   string `yaml:"backend"`     // memory (default), db
	KeyPrefix string `yaml:"key_prefix"`  // default "statuta:"
	DocTTLSec int    `yaml:"doc_ttl_sec"` // db backend only, default 86400
}

// ScraperConfig holds per-source scraper settings. A source listed in
// the scrapers map is enabled.
type ScraperConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSec     int    `yaml:"timeout_sec"`
	MaxRetries     int    `yaml:"max_retries"`
	RetryBackoffMS int    `yaml:"retry_backoff_ms"`
	UserAgent      string `yaml:"user_agent"`
}

// BudgetConfig holds LLM token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// LLMConfig holds language model provider settings. An empty api_key
// disables the enhancer and the answer synthesizer; search still works
// on rule-based fallbacks.
type LLMConfig struct {
	Provider   string       `yaml:"provider"` // label used in budget keys and metrics
	APIKey     string       `yaml:"api_key"`
	BaseURL    string       `yaml:"base_url"`
	ChatModel  string       `yaml:"chat_model"`
	TimeoutSec int          `yaml:"timeout_sec"`
	Budget     BudgetConfig `yaml:"budget"`
}

// EmbeddingConfig holds embedding settings. Embeddings share the LLM
// provider credentials. An empty model disables semantic reranking.
type EmbeddingConfig struct {
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	QueryInstruction    string `yaml:"query_instruction"`
	DocumentInstruction string `yaml:"document_instruction"`
	CacheTTLSec         int    `yaml:"cache_ttl_sec"` // default 86400, -1 disables the cache
}

// SearchConfig holds search pipeline settings.
type SearchConfig struct {
	MaxPagesDefault   int `yaml:"max_pages_default"`   // default 5
	MaxResultsDefault int `yaml:"max_results_default"` // default 10
	CacheTTLSec       int `yaml:"cache_ttl_sec"`       // default 3600, -1 disables the cache
	SynthesisTopK     int `yaml:"synthesis_top_k"`     // documents fed to the answer, default 5
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Scrape-backed searches are slow, leave room for several page fetches
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "statuta:"
	}
	if c.Storage.DocTTLSec <= 0 {
		c.Storage.DocTTLSec = 86400
	}
	if c.Scrapers == nil {
		c.Scrapers = map[string]ScraperConfig{"bpk": {}}
	}
	for name, s := range c.Scrapers {
		if s.BaseURL == "" && name == "bpk" {
			s.BaseURL = "https://peraturan.bpk.go.id"
		}
		if s.TimeoutSec <= 0 {
			s.TimeoutSec = 30
		}
		if s.MaxRetries <= 0 {
			s.MaxRetries = 3
		}
		if s.RetryBackoffMS <= 0 {
			s.RetryBackoffMS = 500
		}
		c.Scrapers[name] = s
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "dashscope"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://dashscope-intl.aliyuncs.com/compatible-mode/v1"
	}
	if c.LLM.ChatModel == "" {
		c.LLM.ChatModel = "qwen2.5-72b-instruct"
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 30
	}
	if c.Embedding.CacheTTLSec == 0 {
		c.Embedding.CacheTTLSec = 86400
	}
	if c.Search.MaxPagesDefault <= 0 {
		c.Search.MaxPagesDefault = 5
	}
	if c.Search.MaxResultsDefault <= 0 {
		c.Search.MaxResultsDefault = 10
	}
	if c.Search.CacheTTLSec == 0 {
		c.Search.CacheTTLSec = 3600
	}
	if c.Search.SynthesisTopK <= 0 {
		c.Search.SynthesisTopK = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "", "valkey", "redis":
		// ok
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	switch c.Storage.Backend {
	case "", "memory", "db":
		// ok
	default:
		return fmt.Errorf("storage.backend must be \"memory\" or \"db\", got %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "db" && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required when storage.backend is \"db\"")
	}
	for name, s := range c.Scrapers {
		if s.BaseURL == "" {
			return fmt.Errorf("scrapers.%s.base_url is required", name)
		}
	}
	switch c.LLM.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"llm.budget.action must be \"warn\" or \"reject\", got %q",
			c.LLM.Budget.Action,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
