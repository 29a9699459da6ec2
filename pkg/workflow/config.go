package workflow

import (
	"encoding/json"
	"fmt"
)

// Config is the tagged union of per-node-type configuration. Each node
// type family carries its own typed variant; GenericConfig covers node
// types without dedicated settings.
type Config interface {
	// Credential returns the API key configured for the node, or ""
	// for node types that do not call an external service.
	Credential() string

	configVariant()
}

// ChatConfig configures language-model nodes (openai, anthropic,
// gemini, perplexity).
type ChatConfig struct {
	APIKey       string  `json:"apiKey,omitempty"`
	Model        string  `json:"model,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"maxTokens,omitempty"`
	SystemPrompt string  `json:"systemPrompt,omitempty"`
}

// ImageConfig configures image-generation nodes (dalle, stability,
// midjourney).
type ImageConfig struct {
	APIKey  string `json:"apiKey,omitempty"`
	Model   string `json:"model,omitempty"`
	Size    string `json:"size,omitempty"`
	Style   string `json:"style,omitempty"`
	Quality string `json:"quality,omitempty"`
}

// SpeechConfig configures speech nodes (elevenlabs, whisper).
type SpeechConfig struct {
	APIKey string `json:"apiKey,omitempty"`
	Model  string `json:"model,omitempty"`
	Voice  string `json:"voice,omitempty"`
}

// VideoConfig configures video-generation nodes (sora, runway, pika).
type VideoConfig struct {
	APIKey     string `json:"apiKey,omitempty"`
	Model      string `json:"model,omitempty"`
	Duration   string `json:"duration,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	Frames     string `json:"frames,omitempty"`
}

// WebhookConfig configures webhook nodes.
type WebhookConfig struct {
	URL     string            `json:"url,omitempty"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// GenericConfig holds free-form settings for node types without a
// dedicated variant.
type GenericConfig struct {
	Params map[string]string `json:"params,omitempty"`
}

func (c *ChatConfig) Credential() string    { return c.APIKey }
func (c *ImageConfig) Credential() string   { return c.APIKey }
func (c *SpeechConfig) Credential() string  { return c.APIKey }
func (c *VideoConfig) Credential() string   { return c.APIKey }
func (c *WebhookConfig) Credential() string { return "" }
func (c *GenericConfig) Credential() string { return "" }

func (*ChatConfig) configVariant()    {}
func (*ImageConfig) configVariant()   {}
func (*SpeechConfig) configVariant()  {}
func (*VideoConfig) configVariant()   {}
func (*WebhookConfig) configVariant() {}
func (*GenericConfig) configVariant() {}

// configConstructors maps a node type to the constructor for its config
// variant. Used when decoding snapshots; unknown types decode into
// GenericConfig.
var configConstructors = map[NodeType]func() Config{
	NodeTypeOpenAI:     func() Config { return &ChatConfig{} },
	NodeTypeAnthropic:  func() Config { return &ChatConfig{} },
	NodeTypeGemini:     func() Config { return &ChatConfig{} },
	NodeTypePerplexity: func() Config { return &ChatConfig{} },
	NodeTypeBlog:       func() Config { return &ChatConfig{} },
	NodeTypeSocial:     func() Config { return &ChatConfig{} },
	NodeTypeDalle:      func() Config { return &ImageConfig{} },
	NodeTypeStability:  func() Config { return &ImageConfig{} },
	NodeTypeMidjourney: func() Config { return &ImageConfig{} },
	NodeTypeElevenLabs: func() Config { return &SpeechConfig{} },
	NodeTypeWhisper:    func() Config { return &SpeechConfig{} },
	NodeTypeSora:       func() Config { return &VideoConfig{} },
	NodeTypeRunway:     func() Config { return &VideoConfig{} },
	NodeTypePika:       func() Config { return &VideoConfig{} },
	NodeTypeWebhook:    func() Config { return &WebhookConfig{} },
}

// DecodeConfig unmarshals raw JSON into the config variant for the
// given node type.
func DecodeConfig(t NodeType, raw []byte) (Config, error) {
	ctor, ok := configConstructors[t]
	if !ok {
		ctor = func() Config { return &GenericConfig{} }
	}
	cfg := ctor()
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("decode %s config: %w", t, err)
	}
	return cfg, nil
}
