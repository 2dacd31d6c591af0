package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by NewFromEnv
const (
	EnvProvider     = "COLSTORE_EMBEDDING_PROVIDER"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// Config holds embedder construction settings
type Config struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	CacheSize  int
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Cache:      cache,
		})
	case ProviderLocal, "":
		return NewLocalProvider(cache), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// NewFromEnv creates an embedder based on environment variables.
// COLSTORE_EMBEDDING_PROVIDER selects explicitly; otherwise a set
// OPENAI_API_KEY picks openai and the local provider is the fallback.
func NewFromEnv() (Embedder, error) {
	cache := NewCache(DefaultCacheSize)

	if provider := os.Getenv(EnvProvider); provider != "" {
		switch strings.ToLower(provider) {
		case ProviderOpenAI:
			return NewOpenAIProvider(OpenAIConfig{
				APIKey: os.Getenv(EnvOpenAIAPIKey),
				Cache:  cache,
			})
		case ProviderLocal:
			return NewLocalProvider(cache), nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
		}
	}

	if key := os.Getenv(EnvOpenAIAPIKey); key != "" {
		return NewOpenAIProvider(OpenAIConfig{APIKey: key, Cache: cache})
	}
	return NewLocalProvider(cache), nil
}

// DetectProvider reports which provider NewFromEnv would pick
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}
