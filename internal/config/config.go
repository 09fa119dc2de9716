package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the product chat service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	RequestTimeout   time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool
	LogLevel         string
	LogFormat        string

	// StorageBackend selects where history, products and analytics live:
	// memory, postgres or firestore. "auto" picks postgres when DatabaseURL
	// is set, firestore when FirestoreProjectID is set, else memory.
	StorageBackend           string
	DatabaseURL              string
	FirestoreProjectID       string
	FirestoreCredentialsFile string
	HistoryCollection        string
	ProductsCollection       string
	AnalyticsCollection      string

	HistoryMaxTurns int

	EmbeddingProvider       string
	EmbeddingBaseURL        string
	EmbeddingAPIKey         string
	EmbeddingModel          string
	EmbeddingDim            int
	EmbeddingTimeout        time.Duration
	EmbeddingRatePerSecond  float64
	EmbeddingMaxRetries     int
	EmbeddingRetryBaseDelay time.Duration

	VectorIndexBackend string
	PineconeAPIKey     string
	PineconeIndexHost  string
	PineconeNamespace  string
	ChromemPath        string
	VectorCollection   string

	LLMProvider              string
	LLMBaseURL               string
	LLMAPIKey                string
	LLMModel                 string
	IntentModel              string
	LLMTemperature           float64
	LLMMaxTokens             int
	LLMTimeout               time.Duration
	LLMRatePerSecond         float64
	GenerationMaxRetries     int
	GenerationRetryBaseDelay time.Duration

	DefaultTopK      int
	ExpandedTopK     int
	CurrencySymbol   string
	CatalogCacheSize int
	CatalogCacheTTL  time.Duration
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":3000"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "chatbot_rag"),
		LogLevel:                 strings.ToLower(envOrDefault("APP_LOG_LEVEL", "info")),
		LogFormat:                strings.ToLower(envOrDefault("APP_LOG_FORMAT", "text")),
		StorageBackend:           strings.ToLower(envOrDefault("STORAGE_BACKEND", "auto")),
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		FirestoreProjectID:       stringsTrimSpace("FIRESTORE_PROJECT_ID"),
		FirestoreCredentialsFile: stringsTrimSpace("FIRESTORE_CREDENTIALS_FILE"),
		HistoryCollection:        envOrDefault("HISTORY_COLLECTION", "chatHistory"),
		ProductsCollection:       envOrDefault("PRODUCTS_COLLECTION", "products"),
		AnalyticsCollection:      envOrDefault("ANALYTICS_COLLECTION", "productAnalytics"),
		HistoryMaxTurns:          20,

		EmbeddingProvider:       strings.ToLower(envOrDefault("EMBEDDING_PROVIDER", "auto")),
		EmbeddingBaseURL:        stringsTrimSpace("EMBEDDING_BASE_URL"),
		EmbeddingAPIKey:         stringsTrimSpace("EMBEDDING_API_KEY"),
		EmbeddingModel:          envOrDefault("EMBEDDING_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
		EmbeddingDim:            384,
		EmbeddingTimeout:        30 * time.Second,
		EmbeddingRatePerSecond:  10,
		EmbeddingMaxRetries:     5,
		EmbeddingRetryBaseDelay: time.Second,

		VectorIndexBackend: strings.ToLower(envOrDefault("VECTOR_INDEX_BACKEND", "chromem")),
		PineconeAPIKey:     stringsTrimSpace("PINECONE_API_KEY"),
		PineconeIndexHost:  stringsTrimSpace("PINECONE_INDEX_HOST"),
		PineconeNamespace:  stringsTrimSpace("PINECONE_NAMESPACE"),
		ChromemPath:        stringsTrimSpace("CHROMEM_PATH"),
		VectorCollection:   envOrDefault("VECTOR_COLLECTION", "products"),

		LLMProvider:              strings.ToLower(envOrDefault("LLM_PROVIDER", "auto")),
		LLMBaseURL:               envOrDefault("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMAPIKey:                firstNonEmpty(stringsTrimSpace("LLM_API_KEY"), stringsTrimSpace("GROQ_API_KEY")),
		LLMModel:                 envOrDefault("LLM_MODEL", "llama3-8b-8192"),
		IntentModel:              stringsTrimSpace("INTENT_MODEL"),
		LLMTemperature:           0.7,
		LLMMaxTokens:             1000,
		LLMTimeout:               60 * time.Second,
		LLMRatePerSecond:         5,
		GenerationMaxRetries:     5,
		GenerationRetryBaseDelay: time.Second,

		DefaultTopK:      3,
		ExpandedTopK:     50,
		CurrencySymbol:   envOrDefault("CURRENCY_SYMBOL", "Rp"),
		CatalogCacheSize: 512,
		CatalogCacheTTL:  5 * time.Minute,

		ShutdownTimeout: 15 * time.Second,
		RequestTimeout:  2 * time.Minute,
	}
	if cfg.IntentModel == "" {
		cfg.IntentModel = cfg.LLMModel
	}

	var err error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"APP_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
		{"APP_REQUEST_TIMEOUT", &cfg.RequestTimeout},
		{"EMBEDDING_TIMEOUT", &cfg.EmbeddingTimeout},
		{"EMBEDDING_RETRY_BASE_DELAY", &cfg.EmbeddingRetryBaseDelay},
		{"LLM_TIMEOUT", &cfg.LLMTimeout},
		{"GENERATION_RETRY_BASE_DELAY", &cfg.GenerationRetryBaseDelay},
		{"CATALOG_CACHE_TTL", &cfg.CatalogCacheTTL},
	}
	for _, d := range durations {
		if *d.dst, err = durationFromEnv(d.key, *d.dst); err != nil {
			return Config{}, err
		}
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"HISTORY_MAX_TURNS", &cfg.HistoryMaxTurns},
		{"EMBEDDING_DIM", &cfg.EmbeddingDim},
		{"EMBEDDING_MAX_RETRIES", &cfg.EmbeddingMaxRetries},
		{"LLM_MAX_TOKENS", &cfg.LLMMaxTokens},
		{"GENERATION_MAX_RETRIES", &cfg.GenerationMaxRetries},
		{"CHAT_DEFAULT_TOP_K", &cfg.DefaultTopK},
		{"CHAT_EXPANDED_TOP_K", &cfg.ExpandedTopK},
		{"CATALOG_CACHE_SIZE", &cfg.CatalogCacheSize},
	}
	for _, n := range ints {
		if *n.dst, err = intFromEnv(n.key, *n.dst); err != nil {
			return Config{}, err
		}
	}
	floats := []struct {
		key string
		dst *float64
	}{
		{"EMBEDDING_RATE_PER_SECOND", &cfg.EmbeddingRatePerSecond},
		{"LLM_RATE_PER_SECOND", &cfg.LLMRatePerSecond},
		{"LLM_TEMPERATURE", &cfg.LLMTemperature},
	}
	for _, f := range floats {
		if *f.dst, err = floatFromEnv(f.key, *f.dst); err != nil {
			return Config{}, err
		}
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	if cfg.HistoryMaxTurns <= 0 {
		return fmt.Errorf("HISTORY_MAX_TURNS must be positive")
	}
	if cfg.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive")
	}
	if cfg.EmbeddingMaxRetries < 0 || cfg.GenerationMaxRetries < 0 {
		return fmt.Errorf("retry counts must be >= 0")
	}
	if cfg.DefaultTopK <= 0 {
		return fmt.Errorf("CHAT_DEFAULT_TOP_K must be positive")
	}
	if cfg.ExpandedTopK < cfg.DefaultTopK {
		return fmt.Errorf("CHAT_EXPANDED_TOP_K must be >= CHAT_DEFAULT_TOP_K")
	}
	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be within [0,2]")
	}
	switch cfg.StorageBackend {
	case "auto", "memory", "postgres", "firestore":
	default:
		return fmt.Errorf("STORAGE_BACKEND %q is not supported", cfg.StorageBackend)
	}
	if cfg.StorageBackend == "postgres" && cfg.DatabaseURL == "" {
		return fmt.Errorf("STORAGE_BACKEND=postgres requires DATABASE_URL")
	}
	if cfg.StorageBackend == "firestore" && cfg.FirestoreProjectID == "" {
		return fmt.Errorf("STORAGE_BACKEND=firestore requires FIRESTORE_PROJECT_ID")
	}
	switch cfg.VectorIndexBackend {
	case "chromem":
	case "pinecone":
		if cfg.PineconeAPIKey == "" || cfg.PineconeIndexHost == "" {
			return fmt.Errorf("VECTOR_INDEX_BACKEND=pinecone requires PINECONE_API_KEY and PINECONE_INDEX_HOST")
		}
	case "pgvector":
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("VECTOR_INDEX_BACKEND=pgvector requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("VECTOR_INDEX_BACKEND %q is not supported", cfg.VectorIndexBackend)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("APP_LOG_FORMAT must be text or json")
	}
	return nil
}

// ResolvedStorageBackend applies the "auto" rule to StorageBackend.
func (cfg Config) ResolvedStorageBackend() string {
	if cfg.StorageBackend != "auto" {
		return cfg.StorageBackend
	}
	switch {
	case cfg.DatabaseURL != "":
		return "postgres"
	case cfg.FirestoreProjectID != "":
		return "firestore"
	default:
		return "memory"
	}
}

func envOrDefault(key, fallback string) string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
