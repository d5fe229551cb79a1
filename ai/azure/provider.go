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

// Package azure implements ai.AIProvider against Azure OpenAI deployments
// using the go-openai client.
package azure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/poiesic/skillmatch/ai"
)

// Embedder implements ai.Embedder with an Azure embedding deployment.
type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	retry  ai.Backoff
	logger *slog.Logger
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
// Vectors are returned in input order regardless of the order in the response.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	var resp openai.EmbeddingResponse
	err := e.retry.Do(ctx, "embed texts", func() error {
		var err error
		resp, err = e.client.CreateEmbeddings(ctx, req)
		return parseAPIError(err)
	})
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d texts, got %d vectors", ai.ErrEmbeddingCount, len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: vector index %d out of range", ai.ErrEmbeddingCount, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Provider implements ai.AIProvider on Azure OpenAI.
type Provider struct {
	embedder  *Embedder
	extractor *ai.BatchExtractor
	logger    *slog.Logger
}

// NewClient returns a go-openai client configured for an Azure endpoint.
// Model names in requests are passed through as deployment names.
func NewClient(config *ai.Config, endpoint string) *openai.Client {
	clientCfg := openai.DefaultAzureConfig(config.APIKey, endpoint)
	clientCfg.APIVersion = config.APIVersion
	clientCfg.AzureModelMapperFunc = func(model string) string {
		return model
	}
	return openai.NewClientWithConfig(clientCfg)
}

// NewProvider creates an Azure OpenAI provider. EmbeddingHost and
// ExtractionHost are resource endpoints such as
// https://acme.openai.azure.com.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	chat := NewClient(config, config.ExtractionHost)
	extractor, err := ai.NewBatchExtractor(Completion(chat, config.ExtractionDeployment, config.Temperature), config, "azure-extractor")
	if err != nil {
		return nil, err
	}

	embedLogger := slog.Default().With("component", "azure-embedder")
	return &Provider{
		embedder: &Embedder{
			client: NewClient(config, config.EmbeddingHost),
			model:  openai.EmbeddingModel(config.EmbeddingDeployment),
			retry:  config.Backoff(embedLogger),
			logger: embedLogger,
		},
		extractor: extractor,
		logger:    slog.Default().With("component", "azure-provider"),
	}, nil
}

// Completion adapts a chat deployment to ai.Completion.
func Completion(client *openai.Client, deployment string, temperature float64) ai.Completion {
	return func(ctx context.Context, system, prompt string) (string, error) {
		resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: deployment,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: float32(temperature),
		})
		if err != nil {
			return "", parseAPIError(err)
		}
		if len(resp.Choices) == 0 {
			return "", ai.ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, nil
	}
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
	p.logger.Debug("closing Azure provider")
	return nil
}

// parseAPIError keeps the HTTP status and service message of an API
// failure. Client errors other than timeouts and throttling are marked
// ai.Permanent so they are not retried.
func parseAPIError(err error) error {
	if err == nil {
		return nil
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classify(reqErr.HTTPStatusCode, fmt.Errorf("azure openai request error %d: %w", reqErr.HTTPStatusCode, err))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classify(apiErr.HTTPStatusCode, fmt.Errorf("azure openai api error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err))
	}

	return err
}

func classify(status int, err error) error {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return err
	case status >= 400 && status < 500:
		return ai.Permanent(err)
	}
	return err
}
