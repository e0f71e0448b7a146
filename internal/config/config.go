// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every environment-backed setting the server needs.
type Config struct {
	Port int

	DefaultModel       string
	EmbeddingModel      string
	EmbeddingDimension  int
	EmbeddingEndpoint   string
	BatchSize           int

	ChunkSize    int
	ChunkOverlap int

	RelevanceThreshold float64
	FallbackThreshold  float64
	RetrievalK         int
	FallbackK          int
	HistoryWindow      int

	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string

	AnthropicAPIKey string
	AnthropicModel  string
	AnthropicBaseURL string

	LocalLLMBaseURL string
	LocalLLMModel   string

	LogLevel string
}

// Load reads .env (if present) and overlays environment variables onto sane
// defaults. Missing LLM credentials are not an error: the server starts in
// degraded mode and C7 reports that back to callers.
func Load() Config {
	_ = godotenv.Overload()

	cfg := Config{
		Port:               envInt("PORT", 8080),
		DefaultModel:       envStr("DEFAULT_MODEL", "auto"),
		EmbeddingModel:     envStr("EMBEDDING_MODEL", "deterministic"),
		EmbeddingDimension: envInt("EMBEDDING_DIMENSION", 384),
		EmbeddingEndpoint:  envStr("EMBEDDING_ENDPOINT", ""),
		BatchSize:          envInt("EMBEDDING_BATCH_SIZE", 20),

		ChunkSize:    envInt("CHUNK_SIZE", 800),
		ChunkOverlap: envInt("CHUNK_OVERLAP", 200),

		RelevanceThreshold: envFloat("RELEVANCE_THRESHOLD", 0.15),
		FallbackThreshold:  envFloat("FALLBACK_THRESHOLD", 0.10),
		RetrievalK:         envInt("RETRIEVAL_K", 8),
		FallbackK:          envInt("FALLBACK_K", 5),
		HistoryWindow:      envInt("HISTORY_WINDOW", 6),

		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:   envStr("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),

		AnthropicAPIKey:  strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
		AnthropicModel:   envStr("ANTHROPIC_MODEL", "claude-3-7-sonnet-latest"),
		AnthropicBaseURL: strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")),

		LocalLLMBaseURL: strings.TrimSpace(os.Getenv("LOCAL_LLM_BASE_URL")),
		LocalLLMModel:   envStr("LOCAL_LLM_MODEL", "local-model"),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
	return cfg
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
