package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Vector    VectorConfig
	Retrieval RetrievalConfig
	Workflow  WorkflowConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Enabled      bool
	Backend      string // "memory" or "redis"
	DefaultTTL   time.Duration
	EmbeddingTTL time.Duration
	QueryTTL     time.Duration
}

// LLMConfig holds gateway settings
type LLMConfig struct {
	DefaultProvider  string
	CallTimeout      time.Duration
	MaxRetries       int
	RetryBackoffBase time.Duration
	BreakerThreshold int
	BreakerRecovery  time.Duration

	OpenAIKey      string
	OpenAIModel    string
	AnthropicKey   string
	AnthropicModel string
	OllamaURL      string
	OllamaModel    string

	MaxConcurrentPerProvider int
}

// EmbeddingConfig holds embedder settings
type EmbeddingConfig struct {
	Provider         string // "openai" or "huggingface"
	Model            string
	BatchSize        int
	OpenAIKey        string
	HuggingFaceToken string
	HuggingFaceModel string
}

// VectorConfig holds vector store settings
type VectorConfig struct {
	Backend    string // "pgvector", "qdrant", "chroma", "pinecone", "memory"
	Collection string

	QdrantURL    string
	ChromaURL    string
	PineconeHost string
	PineconeKey  string
}

// RetrievalConfig holds indexing and query settings
type RetrievalConfig struct {
	TopK              int
	ChunkStrategy     string // "fixed", "semantic", "hierarchical", "adaptive"
	ChunkSize         int
	ChunkOverlap      int
	EnableExpansion   bool
	ExpansionVariants int
	EnableRerank      bool
	RerankURL         string
	RerankKey         string
	EnableHybrid      bool
}

// WorkflowConfig holds engine and node settings
type WorkflowConfig struct {
	MaxRefinementIterations  int
	CriticThreshold          float64
	RequireOutlineApproval   bool
	UseLongContext           bool
	UseVisionExtraction      bool
	EnableCompetitorAnalysis bool
	NodeTimeout              time.Duration
	MaxParallel              int
}

// RateLimitConfig holds API rate limit settings. Limiting needs Redis so
// replicas share windows; with Redis disabled it is skipped.
type RateLimitConfig struct {
	Enabled          bool
	GlobalPerWindow  int64
	ProjectPerWindow int64
	WindowSeconds    int
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnableMetrics bool
	EnablePprof   bool
	PprofPort     int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"), // Default to text for development
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "novaintel"),
			User:        getEnv("POSTGRES_USER", "novaintel"),
			Password:    getEnv("POSTGRES_PASSWORD", "novaintel"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 50),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 10),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled:      getEnvBool("CACHE_ENABLED", true),
			Backend:      getEnv("CACHE_BACKEND", "memory"),
			DefaultTTL:   time.Duration(getEnvInt("CACHE_TTL_SECONDS", 3600)) * time.Second,
			EmbeddingTTL: getEnvDuration("CACHE_EMBEDDING_TTL", 24*time.Hour),
			QueryTTL:     getEnvDuration("CACHE_QUERY_TTL", 1*time.Hour),
		},
		LLM: LLMConfig{
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			CallTimeout:      time.Duration(getEnvInt("LLM_CALL_TIMEOUT_SECONDS", 30)) * time.Second,
			MaxRetries:       getEnvInt("LLM_MAX_RETRIES", 3),
			RetryBackoffBase: getEnvDuration("LLM_RETRY_BACKOFF_BASE", 1*time.Second),
			BreakerThreshold: getEnvInt("LLM_BREAKER_FAILURE_THRESHOLD", 5),
			BreakerRecovery:  time.Duration(getEnvInt("LLM_BREAKER_RECOVERY_SECONDS", 60)) * time.Second,

			OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o"),
			AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel: getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
			OllamaURL:      getEnv("OLLAMA_URL", ""),
			OllamaModel:    getEnv("OLLAMA_MODEL", "llama3"),

			MaxConcurrentPerProvider: getEnvInt("LLM_MAX_CONCURRENT_PER_PROVIDER", 8),
		},
		Embedding: EmbeddingConfig{
			Provider:         getEnv("EMBEDDING_PROVIDER", "openai"),
			Model:            getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			BatchSize:        getEnvInt("EMBEDDING_BATCH_SIZE", 64),
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			HuggingFaceToken: getEnv("HUGGINGFACE_TOKEN", ""),
			HuggingFaceModel: getEnv("HUGGINGFACE_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
		},
		Vector: VectorConfig{
			Backend:    getEnv("VECTOR_BACKEND", "pgvector"),
			Collection: getEnv("VECTOR_COLLECTION", "rfp_chunks"),

			QdrantURL:    getEnv("QDRANT_URL", "http://localhost:6333"),
			ChromaURL:    getEnv("CHROMA_URL", "http://localhost:8000"),
			PineconeHost: getEnv("PINECONE_HOST", ""),
			PineconeKey:  getEnv("PINECONE_API_KEY", ""),
		},
		Retrieval: RetrievalConfig{
			TopK:              getEnvInt("RETRIEVAL_TOP_K", 5),
			ChunkStrategy:     getEnv("CHUNK_STRATEGY", "adaptive"),
			ChunkSize:         getEnvInt("CHUNK_SIZE", 1000),
			ChunkOverlap:      getEnvInt("CHUNK_OVERLAP", 200),
			EnableExpansion:   getEnvBool("ENABLE_QUERY_EXPANSION", false),
			ExpansionVariants: getEnvInt("QUERY_EXPANSION_VARIANTS", 3),
			EnableRerank:      getEnvBool("ENABLE_RERANK", false),
			RerankURL:         getEnv("RERANK_URL", ""),
			RerankKey:         getEnv("RERANK_API_KEY", ""),
			EnableHybrid:      getEnvBool("ENABLE_HYBRID_SEARCH", false),
		},
		Workflow: WorkflowConfig{
			MaxRefinementIterations:  getEnvInt("MAX_REFINEMENT_ITERATIONS", 3),
			CriticThreshold:          getEnvFloat("CRITIC_SCORE_THRESHOLD", 0.9),
			RequireOutlineApproval:   getEnvBool("REQUIRE_OUTLINE_APPROVAL", false),
			UseLongContext:           getEnvBool("USE_LONG_CONTEXT", false),
			UseVisionExtraction:      getEnvBool("USE_VISION_EXTRACTION", false),
			EnableCompetitorAnalysis: getEnvBool("ENABLE_COMPETITOR_ANALYSIS", false),
			NodeTimeout:              time.Duration(getEnvInt("NODE_TIMEOUT_SECONDS", 120)) * time.Second,
			MaxParallel:              getEnvInt("WORKFLOW_MAX_PARALLEL", 4),
		},
		RateLimit: RateLimitConfig{
			Enabled:          getEnvBool("RATE_LIMIT_ENABLED", false),
			GlobalPerWindow:  int64(getEnvInt("RATE_LIMIT_GLOBAL", 120)),
			ProjectPerWindow: int64(getEnvInt("RATE_LIMIT_PER_PROJECT", 30)),
			WindowSeconds:    getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		Telemetry: TelemetryConfig{
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
			EnablePprof:   getEnvBool("ENABLE_PPROF", false),
			PprofPort:     getEnvInt("PPROF_PORT", 6060),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	switch c.Vector.Backend {
	case "pgvector", "qdrant", "chroma", "pinecone", "memory":
	default:
		return fmt.Errorf("unknown vector backend: %s", c.Vector.Backend)
	}

	switch c.Embedding.Provider {
	case "openai", "huggingface":
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.Embedding.Provider)
	}

	switch c.Retrieval.ChunkStrategy {
	case "fixed", "semantic", "hierarchical", "adaptive":
	default:
		return fmt.Errorf("unknown chunk strategy: %s", c.Retrieval.ChunkStrategy)
	}

	if c.Workflow.MaxRefinementIterations < 0 {
		return fmt.Errorf("max_refinement_iterations must be >= 0")
	}

	if c.Workflow.CriticThreshold < 0 || c.Workflow.CriticThreshold > 1 {
		return fmt.Errorf("critic threshold must be in [0,1]: %f", c.Workflow.CriticThreshold)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.GlobalPerWindow < 1 || c.RateLimit.ProjectPerWindow < 1 {
			return fmt.Errorf("rate limits must be >= 1 when enabled")
		}
		if c.RateLimit.WindowSeconds < 1 {
			return fmt.Errorf("rate limit window must be >= 1s")
		}
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
