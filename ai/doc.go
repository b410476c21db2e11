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

// Package ai provides the embedding abstractions used by reviewsearch.
//
// Embedder is the contract every transport implements. Client wraps a raw
// transport and adds what the rest of the system relies on:
//
//   - every call is bounded by Config.RequestTimeout; hitting it yields ErrTimeout
//   - every vector must have Config.Dimension entries, else MalformedResponseError
//   - EmbedTexts is sequential, paced by Config.RequestDelay, and retries a failed
//     item Config.MaxRetries times after Config.RetryCooldown before failing the batch
//
// Service failures are reported as EmbeddingServiceError. A 503 answer means the
// model is still loading and unwraps to ErrModelNotReady.
//
// # Implementation Packages
//
//   - ai/huggingface: HuggingFace feature-extraction API (default)
//   - ai/openai: OpenAI-compatible embedding APIs (Ollama, LocalAI, vLLM)
//   - ai/mock: test doubles
//
// # Usage Example
//
//	provider, err := huggingface.NewProvider(ai.NewConfig(ai.WithAPIKey(token)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "crispy fries, slow service")
package ai
