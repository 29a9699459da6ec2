// Package strategies provides the per-node-type processing strategies
// used by the workflow engine: chat completions, image generation,
// speech synthesis/transcription, webhooks, and a simulated
// pass-through used for every node type without a dedicated strategy.
package strategies

import (
	"time"

	"github.com/ravi-parthasarathy/flowcanvas/pkg/workflow"
)

// Registry maps node types to Strategy implementations. Lookups are
// total: unregistered types resolve to the pass-through strategy, so a
// new node type works on the canvas before anyone writes real service
// glue for it.
type Registry struct {
	strategies map[workflow.NodeType]workflow.Strategy
	fallback   workflow.Strategy
}

// NewRegistry creates a Registry whose fallback simulates processing
// with the given latency.
func NewRegistry(simulatedLatency time.Duration) *Registry {
	return &Registry{
		strategies: make(map[workflow.NodeType]workflow.Strategy),
		fallback:   &Passthrough{Latency: simulatedLatency},
	}
}

// Register associates a strategy with a node type.
func (r *Registry) Register(t workflow.NodeType, s workflow.Strategy) {
	r.strategies[t] = s
}

// Get returns the strategy for a node type, falling back to
// pass-through.
func (r *Registry) Get(t workflow.NodeType) workflow.Strategy {
	if s, ok := r.strategies[t]; ok {
		return s
	}
	return r.fallback
}

// Default returns a registry wired to the real external services:
// language models through the provider layer, DALL-E and Whisper
// through the OpenAI SDK, ElevenLabs and Stability through their HTTP
// APIs, webhooks through plain HTTP. Node types the original canvas
// only ever simulated (midjourney, video models, vector-db, memory)
// stay on the pass-through fallback.
func Default(simulatedLatency time.Duration) *Registry {
	r := NewRegistry(simulatedLatency)
	r.Register(workflow.NodeTypeOpenAI, &Chat{Provider: "openai", Service: "OpenAI"})
	r.Register(workflow.NodeTypeAnthropic, &Chat{Provider: "anthropic", Service: "Anthropic"})
	r.Register(workflow.NodeTypeGemini, &Chat{Provider: "gemini", Service: "Gemini"})
	r.Register(workflow.NodeTypePerplexity, &Chat{Provider: "perplexity", Service: "Perplexity"})
	r.Register(workflow.NodeTypeBlog, &Chat{Provider: "openai", Service: "OpenAI",
		System: "You write engaging long-form blog posts from the given brief."})
	r.Register(workflow.NodeTypeSocial, &Chat{Provider: "openai", Service: "OpenAI",
		System: "You write short, punchy social media posts from the given brief."})
	r.Register(workflow.NodeTypeDalle, &Dalle{})
	r.Register(workflow.NodeTypeStability, &Stability{})
	r.Register(workflow.NodeTypeElevenLabs, &ElevenLabs{})
	r.Register(workflow.NodeTypeWhisper, &Whisper{})
	r.Register(workflow.NodeTypeWebhook, &Webhook{})
	return r
}

// Simulated returns a registry where every node type, generative ones
// included, runs the pass-through simulation. Used for mock mode and
// offline demos.
func Simulated(simulatedLatency time.Duration) *Registry {
	return NewRegistry(simulatedLatency)
}
