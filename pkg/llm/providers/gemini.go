package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ravi-parthasarathy/flowcanvas/pkg/llm"
)

func init() {
	llm.RegisterProvider("gemini", func(apiKey, modelName string) (llm.Client, error) {
		return newGeminiClient(apiKey, modelName)
	})
}

type geminiClient struct {
	sdk       *genai.Client
	modelName string
}

func newGeminiClient(apiKey, modelName string) (*geminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	// genai.NewClient requires a context; use Background for construction.
	sdk, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &geminiClient{sdk: sdk, modelName: modelName}, nil
}

// Complete performs a blocking generation with automatic retry on
// transient errors.
func (c *geminiClient) Complete(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	var resp llm.GenerateResponse
	err := llm.WithRetry(ctx, 4, func() error {
		var innerErr error
		resp, innerErr = c.doComplete(ctx, req)
		return innerErr
	})
	return resp, err
}

func (c *geminiClient) doComplete(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	model := c.sdk.GenerativeModel(c.modelName)

	if req.MaxTokens > 0 {
		n := int32(req.MaxTokens)
		model.MaxOutputTokens = &n
	}
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		model.Temperature = &t
	}
	// System prompt goes to SystemInstruction, not the message history.
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	if len(req.Messages) == 0 {
		return llm.GenerateResponse{}, fmt.Errorf("gemini: no user message to send")
	}

	// All messages except the last become chat history.
	cs := model.StartChat()
	for _, m := range req.Messages[:len(req.Messages)-1] {
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	last := req.Messages[len(req.Messages)-1]
	apiResp, err := cs.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return llm.GenerateResponse{}, mapGeminiError(err)
	}

	var text string
	for _, cand := range apiResp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
	}
	resp := llm.GenerateResponse{Text: text}
	if apiResp.UsageMetadata != nil {
		resp.Usage = llm.Usage{
			InputTokens:  int(apiResp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(apiResp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return resp, nil
}

func mapGeminiError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		base := llm.ProviderError{Code: apiErr.Code, Message: apiErr.Message, Cause: err}
		switch apiErr.Code {
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
	return fmt.Errorf("gemini: %w", err)
}
