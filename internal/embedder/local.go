package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	ProviderLocal = "local"

	LocalDimension = 384
	localModel     = "local-hash-v1"
)

// LocalProvider generates deterministic embeddings from content hashes.
// It needs no network or API key, which makes it the default provider
// and the one tests use. The vectors carry no semantics beyond identity:
// equal texts embed identically, different texts almost never collide.
type LocalProvider struct {
	cache *Cache
}

// NewLocalProvider creates a local deterministic embedder
func NewLocalProvider(cache *Cache) *LocalProvider {
	return &LocalProvider{cache: cache}
}

func (l *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	hash := ComputeHash(text)
	if l.cache != nil {
		if vec, ok := l.cache.Get(hash); ok {
			return vec, nil
		}
	}

	vec := hashVector(text)
	if l.cache != nil {
		l.cache.Set(hash, vec)
	}
	return vec, nil
}

func (l *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := l.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return localModel
}

func (l *LocalProvider) Close() error {
	return nil
}

// hashVector expands a text into LocalDimension floats by chaining
// SHA-256 over the text and a block counter, then normalizes to unit
// length so cosine and dot metrics agree.
func hashVector(text string) []float32 {
	vec := make([]float32, LocalDimension)
	var block [8]byte
	for i := 0; i < LocalDimension; {
		binary.LittleEndian.PutUint64(block[:], uint64(i))
		sum := sha256.Sum256(append([]byte(text), block[:]...))
		for j := 0; j < len(sum) && i < LocalDimension; j++ {
			vec[i] = float32(sum[j])/127.5 - 1.0
			i++
		}
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
