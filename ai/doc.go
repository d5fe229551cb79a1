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

// Package ai provides abstractions for the model services used by skillmatch.
//
// The package defines three interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Extractor: Turns a batch of documents and a skill query into
//     candidate records
//   - AIProvider: Aggregates both services for convenient initialization
//
// It also holds the pieces every provider shares: the batch prompt, the
// response parser with its JSON repair, and the Backoff retry policy.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs through langchaingo
//   - ai/ollama: Native Ollama API through langchaingo
//   - ai/azure: Azure OpenAI deployments through go-openai
//   - ai/providers: Selects one of the above from Config.Provider
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public provider constructors (openai.NewProvider, azure.NewProvider, etc.)
// return interface types. Test utility constructors (mock.NewMockEmbedder,
// mock.NewMockExtractor) return concrete types so tests can inject behavior
// and inspect call counts.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := providers.New(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	query := core.ParseQuery("Go, Kubernetes")
//	records, err := provider.Extractor().Extract(ctx, batch, query)
package ai
