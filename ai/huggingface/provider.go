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

package huggingface

import (
	"log/slog"

	"github.com/poiesic/reviewsearch/ai"
)

// Provider implements ai.Provider using the HuggingFace inference API.
type Provider struct {
	config   *ai.Config
	embedder *ai.Client
	logger   *slog.Logger
}

// NewProvider creates a provider whose embedder is a paced, retrying ai.Client
// around the HuggingFace transport. The config is validated and normalized before use.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	transport, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	client, err := ai.NewClient(transport, config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:   config,
		embedder: client,
		logger:   slog.Default().With("component", "huggingface-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Close releases resources held by the provider.
// Currently a no-op as the HTTP client needs no explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing HuggingFace provider")
	return nil
}
