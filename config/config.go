// Package config loads reviewsearch settings from a YAML file, a .env file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/reviewsearch/ai"
	"github.com/poiesic/reviewsearch/chunker"
	"github.com/poiesic/reviewsearch/core"
	"github.com/poiesic/reviewsearch/ingestion"
	"github.com/poiesic/reviewsearch/reindex"
	"github.com/poiesic/reviewsearch/search"
)

const (
	// BackendBadger stores chunks in an embedded badger database.
	BackendBadger = "badger"
	// BackendPostgres stores chunks in PostgreSQL with pgvector.
	BackendPostgres = "postgres"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvBackend           = "REVIEWSEARCH_BACKEND"
	EnvDBPath            = "REVIEWSEARCH_DB"
	EnvDatabaseURL       = "DATABASE_URL"
	EnvEmbeddingProvider = "EMBEDDING_PROVIDER"
	EnvEmbeddingHost     = "EMBEDDING_HOST"
	EnvEmbeddingModel    = "EMBEDDING_MODEL"
	EnvEmbeddingAPIKey   = "EMBEDDING_API_KEY"
	EnvHFToken           = "HF_TOKEN"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// StorageConfig selects and configures the chunk store.
type StorageConfig struct {
	Backend      string        `yaml:"backend"`
	Path         string        `yaml:"path"`
	DSN          string        `yaml:"dsn"`
	Table        string        `yaml:"table"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
	AutoMigrate  bool          `yaml:"auto_migrate"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider       string        `yaml:"provider"`
	Host           string        `yaml:"host"`
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"api_key"`
	Dimension      int           `yaml:"dimension"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RequestDelay   time.Duration `yaml:"request_delay"`
	RetryCooldown  time.Duration `yaml:"retry_cooldown"`
	MaxRetries     int           `yaml:"max_retries"`
	CacheSize      int           `yaml:"cache_size"`
}

// ChunkingConfig configures how reviews are split.
type ChunkingConfig struct {
	ChunkSize       int  `yaml:"chunk_size"`
	Overlap         int  `yaml:"overlap"`
	SearchWindow    int  `yaml:"search_window"`
	FilterCharacter bool `yaml:"filter_characters"`
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	SemanticWeight  float64 `yaml:"semantic_weight"`
	KeywordWeight   float64 `yaml:"keyword_weight"`
	MatchThreshold  float64 `yaml:"match_threshold"`
	MaxResults      int     `yaml:"max_results"`
	FetchMultiplier int     `yaml:"fetch_multiplier"`
	EnhanceQueries  bool    `yaml:"enhance_queries"`
}

// IngestionConfig configures the ingestion worker pool.
type IngestionConfig struct {
	PoolSize int `yaml:"pool_size"`
}

// ReindexConfig configures bulk loading.
type ReindexConfig struct {
	BatchSize      int           `yaml:"batch_size"`
	ReportInterval int           `yaml:"report_interval"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
}

// Config is the root configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Search    SearchConfig    `yaml:"search"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Reindex   ReindexConfig   `yaml:"reindex"`
}

// Default returns the built-in configuration: a local badger store and the
// hosted HuggingFace all-MiniLM-L6-v2 model.
func Default() *Config {
	embedding := ai.DefaultConfig()
	reindexing := reindex.DefaultConfig()
	return &Config{
		Storage: StorageConfig{
			Backend:      BackendBadger,
			Path:         "reviews.db",
			Table:        "review_chunks",
			QueryTimeout: 30 * time.Second,
			AutoMigrate:  true,
		},
		Embedding: EmbeddingConfig{
			Provider:       embedding.Provider,
			Host:           embedding.EmbeddingHost,
			Model:          embedding.EmbeddingModel,
			Dimension:      embedding.Dimension,
			RequestTimeout: embedding.RequestTimeout,
			RequestDelay:   embedding.RequestDelay,
			RetryCooldown:  embedding.RetryCooldown,
			MaxRetries:     embedding.MaxRetries,
			CacheSize:      ai.DefaultCacheSize,
		},
		Chunking: ChunkingConfig{
			ChunkSize:       chunker.DefaultChunkSize,
			Overlap:         chunker.DefaultOverlap,
			SearchWindow:    chunker.DefaultSearchWindow,
			FilterCharacter: true,
		},
		Search: SearchConfig{
			SemanticWeight:  core.DefaultSemanticWeight,
			KeywordWeight:   core.DefaultKeywordWeight,
			MatchThreshold:  core.DefaultMatchThreshold,
			MaxResults:      core.DefaultMaxResults,
			FetchMultiplier: search.DefaultFetchMultiplier,
		},
		Ingestion: IngestionConfig{PoolSize: ingestion.DefaultPoolSize},
		Reindex: ReindexConfig{
			BatchSize:      reindexing.BatchSize,
			ReportInterval: reindexing.ReportInterval,
			MaxRetries:     reindexing.MaxRetries,
			RetryDelay:     reindexing.RetryDelay,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults. Keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", file, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from the environment. DATABASE_URL also
// switches the backend to postgres unless REVIEWSEARCH_BACKEND says otherwise.
// The API key is taken from EMBEDDING_API_KEY, then from the provider's
// conventional variable (HF_TOKEN or OPENAI_API_KEY).
func (c *Config) ApplyEnv() {
	if dsn := os.Getenv(EnvDatabaseURL); dsn != "" {
		c.Storage.DSN = dsn
		c.Storage.Backend = BackendPostgres
	}
	setString(&c.Storage.Backend, EnvBackend)
	setString(&c.Storage.Path, EnvDBPath)
	setString(&c.Embedding.Provider, EnvEmbeddingProvider)
	setString(&c.Embedding.Host, EnvEmbeddingHost)
	setString(&c.Embedding.Model, EnvEmbeddingModel)

	if key := os.Getenv(EnvEmbeddingAPIKey); key != "" {
		c.Embedding.APIKey = key
		return
	}
	if c.Embedding.APIKey != "" {
		return
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case ai.ProviderOpenAI:
		c.Embedding.APIKey = os.Getenv(EnvOpenAIAPIKey)
	default:
		c.Embedding.APIKey = os.Getenv(EnvHFToken)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks every section. Errors wrap ErrInvalidConfig and are joined.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case BackendBadger:
		if c.Storage.Path == "" {
			invalid("storage.path is required for the badger backend")
		}
	case BackendPostgres:
		if c.Storage.DSN == "" {
			invalid("storage.dsn is required for the postgres backend")
		}
		if c.Storage.QueryTimeout <= 0 {
			invalid("storage.query_timeout must be positive")
		}
	default:
		invalid("storage.backend must be %q or %q, got %q", BackendBadger, BackendPostgres, c.Storage.Backend)
	}

	if err := c.AIConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	if c.Chunking.ChunkSize <= 0 {
		invalid("chunking.chunk_size must be positive")
	}
	if c.Chunking.Overlap < 0 {
		invalid("chunking.overlap cannot be negative")
	}
	if c.Chunking.SearchWindow < 0 {
		invalid("chunking.search_window cannot be negative")
	}
	if err := core.ValidateQuery(c.Query("config")); err != nil {
		errs = append(errs, fmt.Errorf("%w: search: %w", ErrInvalidConfig, err))
	}
	if c.Search.FetchMultiplier < search.MinFetchMultiplier || c.Search.FetchMultiplier > search.MaxFetchMultiplier {
		invalid("search.fetch_multiplier must be between %d and %d", search.MinFetchMultiplier, search.MaxFetchMultiplier)
	}
	if c.Ingestion.PoolSize <= 0 {
		invalid("ingestion.pool_size must be positive")
	}
	if c.Reindex.BatchSize <= 0 {
		invalid("reindex.batch_size must be positive")
	}
	if c.Reindex.MaxRetries < 0 {
		invalid("reindex.max_retries cannot be negative")
	}
	return errors.Join(errs...)
}

// AIConfig converts the embedding section into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(c.Embedding.Provider),
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIKey(c.Embedding.APIKey),
		ai.WithDimension(c.Embedding.Dimension),
		ai.WithRequestTimeout(c.Embedding.RequestTimeout),
		ai.WithRequestDelay(c.Embedding.RequestDelay),
		ai.WithRetryCooldown(c.Embedding.RetryCooldown),
		ai.WithMaxRetries(c.Embedding.MaxRetries),
	)
}

// Query builds a query for text with the configured search defaults.
func (c *Config) Query(text string, opts ...core.QueryOption) core.Query {
	base := []core.QueryOption{
		core.WithWeights(c.Search.SemanticWeight, c.Search.KeywordWeight),
		core.WithMatchThreshold(c.Search.MatchThreshold),
		core.WithMaxResults(c.Search.MaxResults),
	}
	return core.NewQuery(text, append(base, opts...)...)
}

// ChunkerOptions converts the chunking section into chunker options.
func (c *Config) ChunkerOptions() []chunker.Option {
	return []chunker.Option{
		chunker.WithChunkSize(c.Chunking.ChunkSize),
		chunker.WithOverlap(c.Chunking.Overlap),
		chunker.WithSearchWindow(c.Chunking.SearchWindow),
		chunker.WithCharacterFilter(c.Chunking.FilterCharacter),
	}
}

// ReindexSettings converts the reindex section into reindex settings.
func (c *Config) ReindexSettings(clearFirst bool) *reindex.Config {
	return &reindex.Config{
		BatchSize:      c.Reindex.BatchSize,
		ReportInterval: c.Reindex.ReportInterval,
		MaxRetries:     c.Reindex.MaxRetries,
		RetryDelay:     c.Reindex.RetryDelay,
		Clear:          clearFirst,
	}
}
