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

// Stale store policies for vector_store.stale_policy.
const (
	StalePolicyWarn    = "warn"
	StalePolicyRebuild = "rebuild"
)

// Config holds the docqa service configuration. It is loaded once at startup
// and never mutated afterwards.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Corpus      CorpusConfig      `yaml:"corpus"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Cache       CacheConfig       `yaml:"cache"`
	Prompt      PromptConfig      `yaml:"prompt"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// OpenAIConfig holds settings shared by the embedding and chat-completion providers.
type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSec     int    `yaml:"timeout_sec"` // 0 = no client-side timeout
}

// ChunkingConfig holds Markdown splitter settings (lengths in characters).
type ChunkingConfig struct {
	ChunkSize    int  `yaml:"chunk_size"`
	ChunkOverlap *int `yaml:"chunk_overlap"` // 0 is a valid value
}

// RetrievalConfig holds MMR retrieval settings.
type RetrievalConfig struct {
	K          int      `yaml:"k"`
	FetchK     int      `yaml:"fetch_k"`
	LambdaMult *float64 `yaml:"lambda_mult"` // 0 is a valid value
}

// CorpusConfig holds document source settings.
type CorpusConfig struct {
	DataDir   string `yaml:"data_dir"`
	Extension string `yaml:"extension"`
}

// VectorStoreConfig holds persisted vector store settings.
type VectorStoreConfig struct {
	Dir         string `yaml:"dir"`
	StalePolicy string `yaml:"stale_policy"` // "warn" (default) | "rebuild"
}

// CacheConfig holds the optional Redis/Valkey embedding cache settings.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"` // empty = cache disabled
	Password         string   `yaml:"password"`
	TTLHours         int      `yaml:"ttl_hours"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PromptConfig holds answer prompt settings.
type PromptConfig struct {
	Subject string `yaml:"subject"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands, defaults and validates the configuration at path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-ada-002"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o"
	}
	if c.OpenAI.MaxTokens <= 0 {
		c.OpenAI.MaxTokens = 350
	}
	if c.Chunking.ChunkSize <= 0 {
		c.Chunking.ChunkSize = 600
	}
	if c.Chunking.ChunkOverlap == nil {
		overlap := 175
		c.Chunking.ChunkOverlap = &overlap
	}
	if c.Retrieval.K <= 0 {
		c.Retrieval.K = 3
	}
	if c.Retrieval.FetchK <= 0 {
		c.Retrieval.FetchK = 10
	}
	if c.Retrieval.LambdaMult == nil {
		lambda := 0.9
		c.Retrieval.LambdaMult = &lambda
	}
	if c.Corpus.DataDir == "" {
		c.Corpus.DataDir = "./data"
	}
	if c.Corpus.Extension == "" {
		c.Corpus.Extension = ".txt"
	}
	if c.VectorStore.Dir == "" {
		c.VectorStore.Dir = "./chroma_db"
	}
	if c.VectorStore.StalePolicy == "" {
		c.VectorStore.StalePolicy = StalePolicyWarn
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24 * 30
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Prompt.Subject == "" {
		c.Prompt.Subject = "Oxylabs developer documentation"
	}
	c.Cache.Addrs = nonEmpty(c.Cache.Addrs)
	c.Auth.APIKeys = nonEmpty(c.Auth.APIKeys)
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required (set OPENAI_API_KEY)")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.OpenAI.MaxTokens <= 0 {
		return fmt.Errorf("openai.max_tokens must be positive, got %d", c.OpenAI.MaxTokens)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if overlap := c.ChunkOverlap(); overlap < 0 || overlap > c.Chunking.ChunkSize {
		return fmt.Errorf(
			"chunking.chunk_overlap must be between 0 and chunk_size (%d), got %d",
			c.Chunking.ChunkSize, overlap,
		)
	}
	if c.Retrieval.K <= 0 {
		return fmt.Errorf("retrieval.k must be positive, got %d", c.Retrieval.K)
	}
	// fetch_k below k is accepted; retrieval then returns at most fetch_k chunks.
	if l := c.LambdaMult(); l < 0 || l > 1 {
		return fmt.Errorf("retrieval.lambda_mult must be within [0, 1], got %g", l)
	}
	switch c.VectorStore.StalePolicy {
	case "", StalePolicyWarn, StalePolicyRebuild:
		// ok
	default:
		return fmt.Errorf(
			"vector_store.stale_policy must be %q or %q, got %q",
			StalePolicyWarn, StalePolicyRebuild, c.VectorStore.StalePolicy,
		)
	}
	return nil
}

// ChunkOverlap returns the configured overlap, or 0 when unset.
func (c *Config) ChunkOverlap() int {
	if c.Chunking.ChunkOverlap == nil {
		return 0
	}
	return *c.Chunking.ChunkOverlap
}

// LambdaMult returns the configured MMR trade-off, or 1 (pure relevance) when unset.
func (c *Config) LambdaMult() float64 {
	if c.Retrieval.LambdaMult == nil {
		return 1
	}
	return *c.Retrieval.LambdaMult
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

// nonEmpty drops blank entries left behind by empty ${VAR} expansions.
func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
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
