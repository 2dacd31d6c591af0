package embedder

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	ProviderOpenAI = "openai"

	DefaultOpenAIModel = "text-embedding-3-small"
	OpenAIDimension    = 1536

	// MaxBatchSize bounds a single API call's input list
	MaxBatchSize = 100
)

// OpenAIProvider implements Embedder against the OpenAI embeddings API,
// or any OpenAI-compatible endpoint via BaseURL.
type OpenAIProvider struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	cache      *Cache
}

// OpenAIConfig holds provider settings. APIKey is required; the rest
// have defaults.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Cache      *Cache
}

// NewOpenAIProvider creates an OpenAI embedding provider
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrNoProviderEnabled)
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = OpenAIDimension
	}
	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(model),
		dimensions: dims,
		cache:      cfg.Cache,
	}, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	hash := ComputeHash(text)
	if o.cache != nil {
		if vec, ok := o.cache.Get(hash); ok {
			return vec, nil
		}
	}
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (o *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts provided", ErrEmptyText)
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds limit %d", len(texts), MaxBatchSize)
	}
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("%w: text at index %d", ErrEmptyText, i)
		}
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          o.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	config := DefaultRetryConfig()
	resp, err := retryWithBackoff(ctx, config, func() (openai.EmbeddingResponse, error) {
		return o.client.CreateEmbeddings(ctx, req)
	})
	if err != nil {
		return nil, parseAPIError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	if o.cache != nil {
		for i, text := range texts {
			o.cache.Set(ComputeHash(text), out[i])
		}
	}
	return out, nil
}

func (o *OpenAIProvider) Dimension() int {
	return o.dimensions
}

func (o *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return string(o.model)
}

func (o *OpenAIProvider) Close() error {
	return nil
}

// parseAPIError extracts a readable message from a go-openai error and
// wraps it with ErrProviderFailed
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: API error %d: %s", ErrProviderFailed, reqErr.HTTPStatusCode, string(reqErr.Body))
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: API error %d: %s", ErrProviderFailed, apiErr.HTTPStatusCode, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrProviderFailed, err)
}
