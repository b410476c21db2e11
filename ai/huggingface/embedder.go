package huggingface

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/poiesic/reviewsearch/ai"
)

// Embedder is the raw HuggingFace transport. It makes exactly one HTTP request
// per text and performs no pacing, retry or dimension checks; wrap it in an
// ai.Client for those.
type Embedder struct {
	client *resty.Client
	path   string
	logger *slog.Logger
}

type featureRequest struct {
	Inputs string `json:"inputs"`
}

type apiError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := resty.New().
		SetBaseURL(config.EmbeddingHost).
		SetTimeout(config.RequestTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if config.APIKey != "" {
		client.SetAuthToken(config.APIKey)
	}

	return &Embedder{
		client: client,
		path:   "/models/" + escapeModel(config.EmbeddingModel) + "/pipeline/feature-extraction",
		logger: slog.Default().With("component", "huggingface-embedder"),
	}, nil
}

// NewEmbedder creates an embedder for the configured model, wrapped in an
// ai.Client.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	transport, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	return ai.NewClient(transport, config)
}

// EmbedText posts text to the feature-extraction endpoint.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(featureRequest{Inputs: text}).
		SetError(&apiError{}).
		Post(e.path)
	if err != nil {
		return nil, fmt.Errorf("huggingface request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		svcErr := &ai.EmbeddingServiceError{Status: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
		if apiErr, ok := resp.Error().(*apiError); ok && apiErr != nil && apiErr.Error != "" {
			svcErr.Message = apiErr.Error
		}
		if svcErr.Message == "" {
			svcErr.Message = http.StatusText(resp.StatusCode())
		}
		e.logger.Warn("embedding service returned an error", "status", svcErr.Status, "message", svcErr.Message)
		return nil, svcErr
	}

	return decodeEmbedding(resp.Body())
}

// EmbedTexts embeds each text with its own request, in order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vector, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

// decodeEmbedding accepts a flat vector or a list whose first element is the vector.
func decodeEmbedding(body []byte) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(body, &flat); err == nil {
		if len(flat) == 0 {
			return nil, ai.ErrEmptyResponse
		}
		return flat, nil
	}

	var nested [][]float32
	if err := json.Unmarshal(body, &nested); err != nil {
		return nil, &ai.EmbeddingServiceError{
			Status:  http.StatusOK,
			Message: "unrecognized embedding payload",
			Err:     err,
		}
	}
	if len(nested) == 0 || len(nested[0]) == 0 {
		return nil, ai.ErrEmptyResponse
	}
	return nested[0], nil
}

// escapeModel escapes each path segment of a model id such as
// "sentence-transformers/all-MiniLM-L6-v2".
func escapeModel(model string) string {
	parts := strings.Split(model, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
