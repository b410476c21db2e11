// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reviewsearch wires a chunk store, an embedding provider and the
// search, ingestion and reindex components into one Engine.
package reviewsearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/poiesic/reviewsearch/ai"
	"github.com/poiesic/reviewsearch/ai/huggingface"
	"github.com/poiesic/reviewsearch/ai/openai"
	"github.com/poiesic/reviewsearch/chunker"
	"github.com/poiesic/reviewsearch/config"
	"github.com/poiesic/reviewsearch/core"
	"github.com/poiesic/reviewsearch/ingestion"
	"github.com/poiesic/reviewsearch/reindex"
	"github.com/poiesic/reviewsearch/search"
	"github.com/poiesic/reviewsearch/storage"
	"github.com/poiesic/reviewsearch/storage/badger"
	"github.com/poiesic/reviewsearch/storage/postgres"
)

// Engine owns the store and embedding provider for one configuration.
type Engine struct {
	config    *config.Config
	store     storage.ChunkStore
	ownsStore bool
	provider  ai.Provider
	embedder  ai.Embedder
	monitor   search.SearchMonitor
	base      *slog.Logger // handed to components
	logger    *slog.Logger
}

// Option configures Open.
type Option func(*engineOptions)

type engineOptions struct {
	provider   ai.Provider
	store      storage.ChunkStore
	logger     *slog.Logger
	registerer prometheus.Registerer
}

// WithProvider uses provider instead of building one from the configuration.
// The engine closes it on Close.
func WithProvider(provider ai.Provider) Option {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithStore uses store instead of opening the configured backend.
// The caller keeps ownership of the store.
func WithStore(store storage.ChunkStore) Option {
	return func(o *engineOptions) {
		o.store = store
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithMetrics registers search metrics with reg. Searchers created by the
// engine report to them.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *engineOptions) {
		o.registerer = reg
	}
}

// Open validates cfg and opens its store and embedding provider.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		config: cfg,
		base:   options.logger,
		logger: options.logger.With("component", "engine"),
	}
	if options.registerer != nil {
		e.monitor = search.NewMetricsMonitor(options.registerer)
	}

	provider := options.provider
	if provider == nil {
		var err error
		if provider, err = newProvider(cfg); err != nil {
			return nil, err
		}
	}
	e.provider = provider

	embedder, err := ai.NewCachedEmbedder(provider.Embedder(), cfg.Embedding.CacheSize)
	if err != nil {
		provider.Close()
		return nil, err
	}
	e.embedder = embedder

	e.store = options.store
	if e.store == nil {
		if e.store, err = openStore(ctx, cfg, options.logger); err != nil {
			provider.Close()
			return nil, err
		}
		e.ownsStore = true
	}

	e.logger.Debug("engine opened",
		"backend", cfg.Storage.Backend,
		"provider", cfg.Embedding.Provider,
		"model", cfg.Embedding.Model)
	return e, nil
}

func newProvider(cfg *config.Config) (ai.Provider, error) {
	aiConfig := cfg.AIConfig()
	if err := aiConfig.Validate(); err != nil {
		return nil, err
	}
	switch aiConfig.Provider {
	case ai.ProviderOpenAI:
		return openai.NewProvider(aiConfig)
	default:
		return huggingface.NewProvider(aiConfig)
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.ChunkStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		return postgres.New(ctx, cfg.Storage.DSN,
			postgres.WithTable(cfg.Storage.Table),
			postgres.WithDimension(cfg.Embedding.Dimension),
			postgres.WithQueryTimeout(cfg.Storage.QueryTimeout),
			postgres.WithAutoMigrate(cfg.Storage.AutoMigrate),
			postgres.WithLogger(logger))
	case config.BackendBadger:
		return badger.NewStore(cfg.Storage.Path,
			badger.WithDimension(cfg.Embedding.Dimension),
			badger.WithLogger(logger))
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalidConfig, cfg.Storage.Backend)
	}
}

// Close closes the provider and, unless it was injected, the store.
func (e *Engine) Close() error {
	var errs []error
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing embedding provider", "err", err)
		errs = append(errs, err)
	}
	if closer, ok := e.store.(io.Closer); ok && e.ownsStore {
		if err := closer.Close(); err != nil {
			e.logger.Error("error closing store", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the validated configuration.
func (e *Engine) Config() *config.Config {
	return e.config
}

// Store returns the chunk store.
func (e *Engine) Store() storage.ChunkStore {
	return e.store
}

// Embedder returns the caching embedder shared by searchers and pipelines.
func (e *Engine) Embedder() ai.Embedder {
	return e.embedder
}

// Query builds a query with the configured search defaults.
func (e *Engine) Query(text string, opts ...core.QueryOption) core.Query {
	return e.config.Query(text, opts...)
}

// NewSearcher creates a searcher with the configured fetch multiplier and
// query enhancement. opts are applied after those defaults.
func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	base := []search.Option{
		search.WithLogger(e.base),
		search.WithFetchMultiplier(e.config.Search.FetchMultiplier),
		search.WithQueryEnhancement(e.config.Search.EnhanceQueries),
	}
	if e.monitor != nil {
		base = append(base, search.WithMonitor(e.monitor))
	}
	return search.NewSearcher(e.store, e.embedder, append(base, opts...)...)
}

// NewIngestionPipeline creates a pipeline with the configured chunker and
// pool size. The caller must Release it.
func (e *Engine) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	c, err := chunker.New(e.config.ChunkerOptions()...)
	if err != nil {
		return nil, err
	}
	base := []ingestion.Option{
		ingestion.WithLogger(e.base),
		ingestion.WithPoolSize(e.config.Ingestion.PoolSize),
		ingestion.WithChunker(c),
	}
	return ingestion.NewPipeline(e.store, e.embedder, append(base, opts...)...)
}

// NewReindexer creates a reindexer over pipeline. Progress lines go to progress.
func (e *Engine) NewReindexer(pipeline *ingestion.Pipeline, clearFirst bool, progress io.Writer) (*reindex.Reindexer, error) {
	return reindex.NewReindexer(e.store, pipeline, e.config.ReindexSettings(clearFirst), progress)
}
