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

// Package ollama implements ai.AIProvider against Ollama's native API.
package ollama

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/skillmatch/ai"
	"github.com/poiesic/skillmatch/ai/openai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Embedder implements ai.Embedder with an Ollama embedding model.
type Embedder struct {
	embedder embeddings.Embedder
	retry    ai.Backoff
	logger   *slog.Logger
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var vectors [][]float32
	err := e.retry.Do(ctx, "embed texts", func() error {
		var err error
		vectors, err = e.embedder.EmbedDocuments(ctx, texts)
		return err
	})
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d texts, got %d vectors", ai.ErrEmbeddingCount, len(texts), len(vectors))
	}
	return vectors, nil
}

// Provider implements ai.AIProvider using Ollama.
type Provider struct {
	embedder  *Embedder
	extractor *ai.BatchExtractor
	logger    *slog.Logger
}

// NewProvider creates an Ollama-backed provider. Hosts are Ollama server
// URLs without the /v1 suffix.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedLLM, err := ollama.New(
		ollama.WithServerURL(config.EmbeddingHost),
		ollama.WithModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(embedLLM)
	if err != nil {
		return nil, err
	}

	chatLLM, err := ollama.New(
		ollama.WithServerURL(config.ExtractionHost),
		ollama.WithModel(config.ExtractionModel),
		ollama.WithFormat("json"),
	)
	if err != nil {
		return nil, err
	}
	// Format is already pinned to JSON on the client
	extractor, err := ai.NewBatchExtractor(openai.Completion(chatLLM, config.Temperature, false), config, "ollama-extractor")
	if err != nil {
		return nil, err
	}

	embedLogger := slog.Default().With("component", "ollama-embedder")
	return &Provider{
		embedder: &Embedder{
			embedder: embedder,
			retry:    config.Backoff(embedLogger),
			logger:   embedLogger,
		},
		extractor: extractor,
		logger:    slog.Default().With("component", "ollama-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Extractor returns the batch extraction service.
func (p *Provider) Extractor() ai.Extractor {
	return p.extractor
}

// Close is a no-op; the HTTP clients hold no resources.
func (p *Provider) Close() error {
	p.logger.Debug("closing Ollama provider")
	return nil
}
