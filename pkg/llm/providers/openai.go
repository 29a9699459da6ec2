// Package providers registers LLM provider adapters.
// Import this package with a blank identifier to activate all providers:
//
//	import _ "github.com/ravi-parthasarathy/flowcanvas/pkg/llm/providers"
package providers

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ravi-parthasarathy/flowcanvas/pkg/llm"
)

func init() {
	llm.RegisterProvider("openai", func(apiKey, modelName string) (llm.Client, error) {
		return newOpenAIClient(apiKey, modelName, "")
	})
	// Perplexity exposes an OpenAI-compatible chat API.
	llm.RegisterProvider("perplexity", func(apiKey, modelName string) (llm.Client, error) {
		return newOpenAIClient(apiKey, modelName, "https://api.perplexity.ai")
	})
}

type openaiClient struct {
	sdk       *openai.Client
	modelName string
	label     string
}

func newOpenAIClient(apiKey, modelName, baseURL string) (*openaiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	label := "openai"
	if baseURL != "" {
		cfg.BaseURL = baseURL
		label = "perplexity"
	}
	return &openaiClient{
		sdk:       openai.NewClientWithConfig(cfg),
		modelName: modelName,
		label:     label,
	}, nil
}

// Complete performs a blocking generation with automatic retry on
// transient errors.
func (c *openaiClient) Complete(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	var resp llm.GenerateResponse
	err := llm.WithRetry(ctx, 4, func() error {
		var innerErr error
		resp, innerErr = c.doComplete(ctx, req)
		return innerErr
	})
	return resp, err
}

func (c *openaiClient) doComplete(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	maxTokens := 4096
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == llm.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	params := openai.ChatCompletionRequest{
		Model:       c.modelName,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
		Messages:    msgs,
	}

	resp, err := c.sdk.CreateChatCompletion(ctx, params)
	if err != nil {
		return llm.GenerateResponse{}, c.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return llm.GenerateResponse{}, fmt.Errorf("%s: response contained no choices", c.label)
	}
	return llm.GenerateResponse{
		Text: resp.Choices[0].Message.Content,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func (c *openaiClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		base := llm.ProviderError{Code: apiErr.HTTPStatusCode, Message: apiErr.Message, Cause: err}
		switch apiErr.HTTPStatusCode {
		case 429:
			return &llm.RateLimitError{ProviderError: base}
		case 401, 403:
			return &llm.AuthError{ProviderError: base}
		case 400:
			return &llm.BadRequestError{ProviderError: base}
		case 500, 502, 503:
			return &llm.ServerError{ProviderError: base}
		default:
			return &base
		}
	}
	return fmt.Errorf("%s: %w", c.label, err)
}
