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

package openai

import (
	"context"

	"github.com/poiesic/skillmatch/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// newExtractor builds a batch extractor backed by an OpenAI-compatible chat model.
func newExtractor(config *ai.Config) (*ai.BatchExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ExtractionHost),
		openai.WithToken(token(config)),
		openai.WithModel(config.ExtractionModel),
	)
	if err != nil {
		return nil, err
	}

	return ai.NewBatchExtractor(Completion(client, config.Temperature, true), config, "openai-extractor")
}

// NewExtractor creates a new batch extractor using the provided configuration.
//
// Returns ai.Extractor interface to enforce abstraction.
func NewExtractor(config *ai.Config) (ai.Extractor, error) {
	return newExtractor(config)
}

// Completion adapts any langchaingo model to ai.Completion. jsonMode asks
// the server for JSON output where it supports that.
func Completion(client llms.Model, temperature float64, jsonMode bool) ai.Completion {
	return func(ctx context.Context, system, prompt string) (string, error) {
		content := []llms.MessageContent{
			{
				Role: llms.ChatMessageTypeSystem,
				Parts: []llms.ContentPart{
					llms.TextPart(system),
				},
			},
			{
				Role: llms.ChatMessageTypeHuman,
				Parts: []llms.ContentPart{
					llms.TextPart(prompt),
				},
			},
		}

		opts := []llms.CallOption{llms.WithTemperature(temperature)}
		if jsonMode {
			opts = append(opts, llms.WithJSONMode())
		}
		response, err := client.GenerateContent(ctx, content, opts...)
		if err != nil {
			return "", err
		}
		if len(response.Choices) < 1 {
			return "", ai.ErrEmptyResponse
		}
		return response.Choices[0].Content, nil
	}
}
