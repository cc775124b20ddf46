// Package config reads the agent's runtime settings from the environment.
// Provider credentials stay with the provider factories; this package only
// collects the knobs that pick and tune components.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/finsight/finsight/pkg/analysis"
)

// Config is the full runtime configuration.
type Config struct {
	// Provider names the completion backend: anthropic, openai, gemini, fake.
	Provider string
	// Model overrides the provider's default model when non-empty.
	Model string
	// MaxIterations caps completion rounds per user message.
	MaxIterations int
	// MaxTokens caps completion output size.
	MaxTokens int
	// RequestTimeout bounds each completion request; zero means no deadline.
	RequestTimeout time.Duration

	// PortfolioPath is the JSON book location.
	PortfolioPath string

	// MarketData names the quote source: yahoo, fake.
	MarketData string

	// EmbeddingProvider names the embedding backend: openai, gemini, fake.
	// Empty disables the semantic index.
	EmbeddingProvider string
	// VectorStore names the vector backend: chromadb, memory.
	VectorStore string
	// ChromaURL is the ChromaDB base URL.
	ChromaURL string
	// Collection is the vector collection holding position documents.
	Collection string

	// DatabaseURL enables transcript persistence when non-empty.
	// postgres://... or sqlite:file:...
	DatabaseURL string

	// TraceStdout enables the stdout span exporter.
	TraceStdout bool

	// LogLevel is the slog level name: debug, info, warn, error.
	LogLevel string

	Thresholds analysis.Thresholds
}

// FromEnv builds a Config from FINSIGHT_* variables, with the stock defaults
// for anything unset.
func FromEnv() Config {
	t := analysis.DefaultThresholds()
	t.OvervaluedPE = getEnvFloat("FINSIGHT_OVERVALUED_PE", t.OvervaluedPE)
	t.ValuePE = getEnvFloat("FINSIGHT_VALUE_PE", t.ValuePE)
	t.HighSectorConcentrationPct = getEnvFloat("FINSIGHT_SECTOR_CONCENTRATION_PCT", t.HighSectorConcentrationPct)
	t.MinDiversificationStocks = getEnvInt("FINSIGHT_MIN_DIVERSIFICATION_STOCKS", t.MinDiversificationStocks)

	return Config{
		Provider:          getEnv("FINSIGHT_PROVIDER", "anthropic"),
		Model:             getEnv("FINSIGHT_MODEL", ""),
		MaxIterations:     getEnvInt("FINSIGHT_MAX_ITERATIONS", 10),
		MaxTokens:         getEnvInt("FINSIGHT_MAX_TOKENS", 4096),
		RequestTimeout:    getEnvDuration("FINSIGHT_REQUEST_TIMEOUT", 0),
		PortfolioPath:     getEnv("FINSIGHT_PORTFOLIO_FILE", "data/portfolio.json"),
		MarketData:        getEnv("FINSIGHT_MARKET_DATA", "yahoo"),
		EmbeddingProvider: getEnv("FINSIGHT_EMBEDDING_PROVIDER", ""),
		VectorStore:       getEnv("FINSIGHT_VECTOR_STORE", "chromadb"),
		ChromaURL:         getEnv("FINSIGHT_CHROMADB_URL", "http://localhost:8000"),
		Collection:        getEnv("FINSIGHT_CHROMA_COLLECTION", "portfolio_positions"),
		DatabaseURL:       getEnv("FINSIGHT_DATABASE_URL", ""),
		TraceStdout:       getEnvBool("FINSIGHT_TRACE_STDOUT", false),
		LogLevel:          getEnv("FINSIGHT_LOG_LEVEL", "info"),
		Thresholds:        t,
	}
}

// Validate rejects settings that would only fail later at dispatch time.
func (c Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("config: empty completion provider")
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("config: max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("config: max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.PortfolioPath == "" {
		return fmt.Errorf("config: empty portfolio path")
	}
	return nil
}

// SlogLevel maps the configured level name onto a slog.Level. Unknown names
// fall back to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
