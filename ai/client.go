package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// Client wraps a raw embedding transport with the guarantees callers rely on:
// a bounded timeout per call, dimension checking, paced batches and a single
// cooldown-then-retry for failed batch items.
type Client struct {
	transport Embedder
	config    *Config
	logger    *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client) error

// WithLogger sets the logger. A nil logger falls back to slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "embedding-client")
		return nil
	}
}

var _ Embedder = (*Client)(nil)

// NewClient creates a Client around transport. The config is validated and
// normalized before use.
func NewClient(transport Embedder, config *Config, opts ...ClientOption) (*Client, error) {
	if transport == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		transport: transport,
		config:    config,
		logger:    slog.Default().With("component", "embedding-client"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Dimension returns the embedding length every returned vector has.
func (c *Client) Dimension() int {
	return c.config.Dimension
}

// EmbedText embeds a single text with one attempt.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return c.embedOnce(ctx, text)
}

// EmbedTexts embeds texts one request at a time, pausing RequestDelay between
// requests. A failed item is retried MaxRetries times after RetryCooldown; if it
// still fails the whole batch fails and no embeddings are returned.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		if i > 0 {
			if err := sleep(ctx, c.config.RequestDelay); err != nil {
				return nil, err
			}
		}

		vector, err := c.embedWithRetry(ctx, i, text)
		if err != nil {
			c.logger.Error("embedding batch failed", "item", i, "count", len(texts), "err", err)
			return nil, fmt.Errorf("%w: item %d of %d: %w", ErrBatchFailed, i+1, len(texts), err)
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

func (c *Client) embedWithRetry(ctx context.Context, index int, text string) ([]float32, error) {
	// NewConstant rejects a zero wait.
	cooldown := max(c.config.RetryCooldown, time.Nanosecond)
	backoff := retry.WithMaxRetries(uint64(c.config.MaxRetries), retry.NewConstant(cooldown))

	attempt := 0
	return retry.DoValue(ctx, backoff, func(ctx context.Context) ([]float32, error) {
		attempt++
		vector, err := c.embedOnce(ctx, text)
		if err == nil {
			return vector, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		c.logger.Warn("embedding failed, cooling down before retry",
			"item", index, "attempt", attempt, "cooldown", c.config.RetryCooldown, "err", err)
		return nil, retry.RetryableError(err)
	})
}

func (c *Client) embedOnce(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	vector, err := c.transport.EmbedText(callCtx, text)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %w", ErrTimeout, c.config.RequestTimeout, err)
		}
		return nil, err
	}
	if len(vector) != c.config.Dimension {
		return nil, &MalformedResponseError{Expected: c.config.Dimension, Got: len(vector)}
	}
	return vector, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
