package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/malrag-mcp/internal/config"
)

func TestLocalProviderDeterministic(t *testing.T) {
	provider, err := NewLocalProvider(nil)
	require.NoError(t, err)
	defer func() { _ = provider.Close() }()

	ctx := context.Background()

	first, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "VirtualAllocEx + WriteProcessMemory"})
	require.NoError(t, err)

	second, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "VirtualAllocEx + WriteProcessMemory"})
	require.NoError(t, err)

	assert.Equal(t, first.Vector, second.Vector)
	assert.Len(t, first.Vector, LocalDimension)

	other, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "different payload"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Vector, other.Vector)
}

func TestLocalProviderBatch(t *testing.T) {
	provider, err := NewLocalProvider(NewCache(16))
	require.NoError(t, err)

	resp, err := provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"alpha", "beta", "gamma"},
	})
	require.NoError(t, err)

	assert.Len(t, resp.Embeddings, 3)
	assert.Equal(t, ProviderLocal, resp.Provider)
	for _, emb := range resp.Embeddings {
		assert.Equal(t, LocalDimension, emb.Dimension)
	}
}

func TestValidateRequest(t *testing.T) {
	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{}), ErrEmptyText)
	assert.NoError(t, ValidateRequest(EmbeddingRequest{Text: "x"}))

	assert.ErrorIs(t, ValidateBatchRequest(BatchEmbeddingRequest{}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"a", ""}}), ErrInvalidInput)
	assert.NoError(t, ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"a", "b"}}))
}

func TestCacheDeepCopy(t *testing.T) {
	cache := NewCache(10)

	original := &Embedding{Vector: []float32{1, 2, 3}, Dimension: 3, Provider: ProviderLocal}
	cache.Set("h1", original)

	got, ok := cache.Get("h1")
	require.True(t, ok)

	got.Vector[0] = 99

	again, ok := cache.Get("h1")
	require.True(t, ok)
	assert.Equal(t, float32(1), again.Vector[0])
}

func TestCacheMiss(t *testing.T) {
	cache := NewCache(10)

	_, ok := cache.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Size())
}

func TestOpenAIProviderCallsEndpoint(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]interface{}, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]interface{}{
				"embedding": []float32{0.1, 0.2, 0.3},
				"index":     i,
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data":  data,
			"model": req.Model,
		})
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(server.URL, "test-key", "test-model", 3, NewCache(10))
	require.NoError(t, err)

	emb, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "payload"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, emb.Vector)

	// Second call for the same text is served from cache
	_, err = provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "payload"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIProviderRequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider("", "", "", 0, nil)
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestOpenAIProviderRetriesThenFails(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(server.URL, "test-key", "test-model", 3, nil)
	require.NoError(t, err)

	_, err = provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "payload"})
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, int32(MaxRetries), calls.Load())
}

func TestOllamaProviderCallsEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		embeddings := make([][]float32, len(req.Input))
		for i := range req.Input {
			embeddings[i] = []float32{0.5, 0.5}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model":      req.Model,
			"embeddings": embeddings,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(server.URL, "test-model", 2, nil)
	require.NoError(t, err)

	resp, err := provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"a", "b"}})
	require.NoError(t, err)

	assert.Len(t, resp.Embeddings, 2)
	assert.Equal(t, ProviderOllama, resp.Provider)
}

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.EmbeddingConfig
		wantName string
		wantErr  error
	}{
		{"local", config.EmbeddingConfig{Provider: "local"}, ProviderLocal, nil},
		{"empty defaults to local", config.EmbeddingConfig{}, ProviderLocal, nil},
		{"ollama", config.EmbeddingConfig{Provider: "ollama"}, ProviderOllama, nil},
		{"openai without key", config.EmbeddingConfig{Provider: "openai"}, "", ErrNoProviderEnabled},
		{"unknown", config.EmbeddingConfig{Provider: "bogus"}, "", ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, err := NewFromConfig(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, emb.Provider())
		})
	}
}
