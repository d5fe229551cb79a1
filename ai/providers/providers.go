// Package providers builds an ai.AIProvider from configuration.
package providers

import (
	"fmt"

	"github.com/poiesic/skillmatch/ai"
	"github.com/poiesic/skillmatch/ai/azure"
	"github.com/poiesic/skillmatch/ai/ollama"
	"github.com/poiesic/skillmatch/ai/openai"
)

// New returns the provider named by config.Provider.
func New(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Provider {
	case ai.ProviderOpenAI:
		return openai.NewProvider(config)
	case ai.ProviderOllama:
		return ollama.NewProvider(config)
	case ai.ProviderAzure:
		return azure.NewProvider(config)
	default:
		return nil, fmt.Errorf("%w: %q", ai.ErrUnknownProvider, config.Provider)
	}
}
