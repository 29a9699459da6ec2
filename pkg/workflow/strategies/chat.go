package strategies

import (
	"context"
	"fmt"

	"github.com/ravi-parthasarathy/flowcanvas/pkg/llm"
	"github.com/ravi-parthasarathy/flowcanvas/pkg/workflow"
)

const defaultSystemPrompt = "You are a helpful assistant."

// Chat runs language-model nodes through the provider layer. The
// node's config supplies the credential, model and sampling parameters;
// the input payload becomes the user prompt.
type Chat struct {
	Provider string // provider name registered in pkg/llm
	Service  string // human-readable service name for error messages
	System   string // overrides the default system prompt when set

	// NewClient is swapped out in tests. Nil means llm.NewClient.
	NewClient func(modelID, apiKey string) (llm.Client, error)
}

func (s *Chat) Run(ctx context.Context, node workflow.Node, input workflow.Payload) (workflow.Result, error) {
	cfg, ok := node.Config.(*workflow.ChatConfig)
	if !ok || cfg == nil {
		cfg, _ = workflow.DefaultConfigOf(node.Type).(*workflow.ChatConfig)
	}
	if cfg == nil {
		cfg = &workflow.ChatConfig{}
	}
	if cfg.APIKey == "" {
		return workflow.Result{}, &workflow.MissingCredentialError{Service: s.Service}
	}
	if !input.IsText() {
		return workflow.Result{}, fmt.Errorf("%s node %q requires a text prompt, got %s input",
			s.Service, node.ID, workflow.InferType(input))
	}

	model := cfg.Model
	if model == "" {
		if def, ok := workflow.DefaultConfigOf(node.Type).(*workflow.ChatConfig); ok {
			model = def.Model
		}
	}

	newClient := s.NewClient
	if newClient == nil {
		newClient = llm.NewClient
	}
	client, err := newClient(s.Provider+":"+model, cfg.APIKey)
	if err != nil {
		return workflow.Result{}, &workflow.ServiceCallError{Service: s.Service, Cause: err}
	}

	system := s.System
	if cfg.SystemPrompt != "" {
		system = cfg.SystemPrompt
	}
	if system == "" {
		system = defaultSystemPrompt
	}

	resp, err := client.Complete(ctx, llm.GenerateRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: input.Text}},
		System:      system,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return workflow.Result{}, &workflow.ServiceCallError{
			Service: s.Service,
			Status:  llm.StatusCode(err),
			Cause:   err,
		}
	}

	return workflow.Result{
		Output: workflow.TextPayload(resp.Text),
		// Retain only the latest prompt/response pair as context.
		Context: []workflow.Exchange{
			{Role: "user", Content: input.Text},
			{Role: "assistant", Content: resp.Text},
		},
	}, nil
}
