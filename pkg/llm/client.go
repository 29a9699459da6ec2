package llm

import (
	"context"
	"fmt"
	"sync"
)

// Client is the provider-agnostic generative-text interface.
type Client interface {
	// Complete performs a blocking generation and returns the full
	// response.
	Complete(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// ProviderFactory creates a Client for a model within a provider. The
// credential is supplied per call site — workflow nodes each carry
// their own API key — rather than read from the environment.
type ProviderFactory func(apiKey, modelName string) (Client, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]ProviderFactory{}
)

// RegisterProvider registers a factory for a named provider. Call this
// from init() in provider packages.
func RegisterProvider(name string, factory ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// NewClient constructs a Client for a "provider:model-name" model ID
// using the given credential.
func NewClient(modelID, apiKey string) (Client, error) {
	provider, modelName, err := ParseModelID(modelID)
	if err != nil {
		return nil, fmt.Errorf("NewClient: %w", err)
	}
	registryMu.RLock()
	factory, ok := registry[provider]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no provider registered for %q (model ID %q) — did you import the provider package?", provider, modelID)
	}
	return factory(apiKey, modelName)
}
