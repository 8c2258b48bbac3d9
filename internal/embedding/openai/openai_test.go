package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-agent/internal/domain"
)

func embedServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server, dimension int) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:   srv.URL,
		APIKey:    "test-key",
		Model:     "text-embedding-3-small",
		Dimension: dimension,
	})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.True(t, domain.IsConfig(err))
}

func TestEmbedSuccess(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input string `json:"input"`
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Input)
		assert.Equal(t, "text-embedding-3-small", req.Model)

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}}},
		})
	})
	c := newTestClient(t, srv, 0)

	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, c.Dimension(), "dimension is learned from the first response")
}

func TestEmbedRejectedKeyIsFatal(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	})
	c := newTestClient(t, srv, 0)

	_, err := c.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, domain.IsConfig(err))
	assert.False(t, domain.IsTransient(err))
}

func TestEmbedRateLimitIsTransient(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})
	c := newTestClient(t, srv, 0)

	_, err := c.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestEmbedServerErrorIsTransient(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	c := newTestClient(t, srv, 0)

	_, err := c.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestEmbedDimensionMismatch(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2}}},
		})
	})
	c := newTestClient(t, srv, 1536)

	_, err := c.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbedEmptyResponse(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})
	c := newTestClient(t, srv, 0)

	_, err := c.Embed(context.Background(), "hello")
	require.Error(t, err)
}
