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

package ai

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/skillmatch/core"
)

// parseAttempts bounds how many times a batch is re-asked after an
// undecodable response.
const parseAttempts = 3

// Completion sends one system+user prompt pair to a chat model and returns
// the text of the first choice.
type Completion func(ctx context.Context, system, prompt string) (string, error)

// BatchExtractor implements Extractor on top of any chat Completion.
// Providers differ only in how they talk to their service.
type BatchExtractor struct {
	complete      Completion
	minMatchScore float64
	retry         Backoff
	logger        *slog.Logger
}

var _ Extractor = (*BatchExtractor)(nil)

// NewBatchExtractor wraps complete with prompt construction, transport
// retries and response parsing configured by config.
func NewBatchExtractor(complete Completion, config *Config, component string) (*BatchExtractor, error) {
	if complete == nil {
		return nil, ErrCompletionRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger := slog.Default().With("component", component)
	return &BatchExtractor{
		complete:      complete,
		minMatchScore: config.MinMatchScore,
		retry:         config.Backoff(logger),
		logger:        logger,
	}, nil
}

// Extract prompts the model with the whole batch and parses its answer.
// Transport errors are retried with backoff; an undecodable answer is
// re-requested up to three times before the batch fails.
func (e *BatchExtractor) Extract(ctx context.Context, batch core.Corpus, query core.Query) ([]core.CandidateRecord, error) {
	if query.IsEmpty() {
		return nil, core.ErrEmptyQuery
	}
	if batch.Len() == 0 {
		return []core.CandidateRecord{}, nil
	}

	prompt := BuildBatchPrompt(batch, query)

	var lastErr error
	for attempt := 0; attempt < parseAttempts; attempt++ {
		var response string
		err := e.retry.Do(ctx, "complete batch", func() error {
			var err error
			response, err = e.complete(ctx, SystemPrompt, prompt)
			return err
		})
		if err != nil {
			e.logger.Error("failed to generate content", "documents", batch.Len(), "err", err)
			return nil, err
		}

		records, err := ParseRecords(response, batch, e.minMatchScore, e.logger)
		if err != nil {
			lastErr = err
			e.logger.Warn("error parsing extraction response",
				"attempt", attempt+1,
				"response", response,
				"err", err)
			continue
		}

		e.logger.Debug("extracted records", "documents", batch.Len(), "records", len(records))
		return records, nil
	}

	e.logger.Error("failed to parse extraction response after retries", "err", lastErr)
	return nil, lastErr
}

// IsMalformed reports whether err came from an undecodable model response.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}
