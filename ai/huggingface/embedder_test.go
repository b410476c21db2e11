package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/reviewsearch/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(host string) *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(host),
		ai.WithAPIKey("hf_test"),
		ai.WithDimension(3),
		ai.WithRequestTimeout(time.Second),
		ai.WithRequestDelay(time.Millisecond),
		ai.WithRetryCooldown(time.Millisecond),
	)
}

func TestEmbedder_EmbedText(t *testing.T) {
	t.Run("flat vector", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/models/sentence-transformers/all-MiniLM-L6-v2/pipeline/feature-extraction", r.URL.Path)
			assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))

			var body featureRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "great tacos", body.Inputs)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[0.1, 0.2, 0.3]`))
		}))
		defer server.Close()

		e, err := newEmbedder(testConfig(server.URL))
		require.NoError(t, err)

		vector, err := e.EmbedText(context.Background(), "great tacos")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	})

	t.Run("nested vector", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[[0.4, 0.5, 0.6]]`))
		}))
		defer server.Close()

		e, err := newEmbedder(testConfig(server.URL))
		require.NoError(t, err)

		vector, err := e.EmbedText(context.Background(), "great tacos")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.4, 0.5, 0.6}, vector)
	})

	t.Run("model loading", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"Model is currently loading","estimated_time":20.0}`))
		}))
		defer server.Close()

		e, err := newEmbedder(testConfig(server.URL))
		require.NoError(t, err)

		_, err = e.EmbedText(context.Background(), "great tacos")
		var svcErr *ai.EmbeddingServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, http.StatusServiceUnavailable, svcErr.Status)
		assert.Equal(t, "Model is currently loading", svcErr.Message)
		assert.ErrorIs(t, err, ai.ErrModelNotReady)
	})

	t.Run("plain text error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad token", http.StatusUnauthorized)
		}))
		defer server.Close()

		e, err := newEmbedder(testConfig(server.URL))
		require.NoError(t, err)

		_, err = e.EmbedText(context.Background(), "great tacos")
		var svcErr *ai.EmbeddingServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, http.StatusUnauthorized, svcErr.Status)
		assert.Equal(t, "bad token", svcErr.Message)
	})

	t.Run("empty payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[]`))
		}))
		defer server.Close()

		e, err := newEmbedder(testConfig(server.URL))
		require.NoError(t, err)

		_, err = e.EmbedText(context.Background(), "great tacos")
		assert.ErrorIs(t, err, ai.ErrEmptyResponse)
	})

	t.Run("garbage payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"unexpected": true}`))
		}))
		defer server.Close()

		e, err := newEmbedder(testConfig(server.URL))
		require.NoError(t, err)

		_, err = e.EmbedText(context.Background(), "great tacos")
		var svcErr *ai.EmbeddingServiceError
		assert.ErrorAs(t, err, &svcErr)
	})
}

func TestProvider(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
			return
		}
		_, _ = w.Write([]byte(`[1, 0, 0]`))
	}))
	defer server.Close()

	provider, err := NewProvider(testConfig(server.URL))
	require.NoError(t, err)
	defer provider.Close()

	vectors, err := provider.Embedder().EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err, "first item recovers after the cooldown")
	assert.Len(t, vectors, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestProvider_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[1, 0]`))
	}))
	defer server.Close()

	embedder, err := NewEmbedder(testConfig(server.URL))
	require.NoError(t, err)

	_, err = embedder.EmbedText(context.Background(), "a")
	var malformed *ai.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 3, malformed.Expected)
	assert.Equal(t, 2, malformed.Got)
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	cfg := testConfig("")
	_, err := NewProvider(cfg)
	assert.Error(t, err)
}

func TestEscapeModel(t *testing.T) {
	assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", escapeModel("sentence-transformers/all-MiniLM-L6-v2"))
	assert.Equal(t, "org/model%20name", escapeModel("org/model name"))
}
