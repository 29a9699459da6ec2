package workflow

// Display metadata and default configuration lookups, keyed by node
// type. All functions are total: unknown types fall back to a default
// token. Adding a node type means adding entries here (and optionally a
// strategy); the engine never changes.

const (
	defaultColor       = "#6d28d9"
	defaultIcon        = "brain"
	defaultDescription = "Configure this node"
)

var nodeColors = map[NodeType]string{
	NodeTypeOpenAI:     "#6d28d9",
	NodeTypeAnthropic:  "#6d28d9",
	NodeTypePerplexity: "#6d28d9",
	NodeTypeGemini:     "#6d28d9",
	NodeTypeElevenLabs: "#2563eb",
	NodeTypeWhisper:    "#2563eb",
	NodeTypeDalle:      "#be123c",
	NodeTypeStability:  "#be123c",
	NodeTypeMidjourney: "#be123c",
	NodeTypeSora:       "#d97706",
	NodeTypeRunway:     "#d97706",
	NodeTypePika:       "#d97706",
	NodeTypeBlog:       "#0891b2",
	NodeTypeSocial:     "#0891b2",
	NodeTypeVectorDB:   "#16a34a",
	NodeTypeMemory:     "#16a34a",
	NodeTypeCode:       "#16a34a",
	NodeTypeInput:      "#4338ca",
	NodeTypeOutput:     "#4338ca",
	NodeTypeWebhook:    "#4338ca",
}

var nodeIcons = map[NodeType]string{
	NodeTypeOpenAI:     "brain",
	NodeTypeAnthropic:  "brain",
	NodeTypePerplexity: "brain",
	NodeTypeGemini:     "brain",
	NodeTypeElevenLabs: "volume",
	NodeTypeWhisper:    "volume",
	NodeTypeDalle:      "image",
	NodeTypeStability:  "image",
	NodeTypeMidjourney: "image",
	NodeTypeSora:       "film",
	NodeTypeRunway:     "film",
	NodeTypePika:       "film",
	NodeTypeBlog:       "file-text",
	NodeTypeSocial:     "file-text",
	NodeTypeVectorDB:   "database",
	NodeTypeMemory:     "database",
	NodeTypeCode:       "code",
	NodeTypeInput:      "chat",
	NodeTypeOutput:     "send",
	NodeTypeWebhook:    "webhook",
}

var nodeDescriptions = map[NodeType]string{
	NodeTypeOpenAI:     "Generate text with OpenAI models",
	NodeTypeAnthropic:  "Process with Claude for analysis",
	NodeTypePerplexity: "Research and web search",
	NodeTypeGemini:     "Generate text with Gemini models",
	NodeTypeElevenLabs: "Convert text to realistic speech",
	NodeTypeWhisper:    "Transcribe audio to text",
	NodeTypeDalle:      "Generate images from text",
	NodeTypeStability:  "Create detailed AI images",
	NodeTypeMidjourney: "Create artistic images",
	NodeTypeSora:       "Generate realistic videos from text",
	NodeTypeRunway:     "Create AI videos with Gen-2",
	NodeTypePika:       "Convert text or images to video",
	NodeTypeBlog:       "Generate blog post content",
	NodeTypeSocial:     "Create social media posts",
	NodeTypeVectorDB:   "Store and query vectors",
	NodeTypeMemory:     "Store context for conversation",
	NodeTypeCode:       "Run a custom transform step",
	NodeTypeInput:      "Start workflow with user input",
	NodeTypeOutput:     "Display results to user",
	NodeTypeWebhook:    "Trigger from external source",
}

// ColorOf returns the display color token for a node type.
func ColorOf(t NodeType) string {
	if c, ok := nodeColors[t]; ok {
		return c
	}
	return defaultColor
}

// IconOf returns the display icon token for a node type.
func IconOf(t NodeType) string {
	if i, ok := nodeIcons[t]; ok {
		return i
	}
	return defaultIcon
}

// DescriptionOf returns the placeholder description for a node type.
func DescriptionOf(t NodeType) string {
	if d, ok := nodeDescriptions[t]; ok {
		return d
	}
	return defaultDescription
}

// DefaultConfigOf returns a freshly constructed config variant with
// type-appropriate defaults. Unknown types get an empty GenericConfig.
func DefaultConfigOf(t NodeType) Config {
	switch t {
	case NodeTypeOpenAI:
		return &ChatConfig{Model: "gpt-4o", Temperature: 0.7, MaxTokens: 1000}
	case NodeTypeAnthropic:
		return &ChatConfig{Model: "claude-sonnet-4-0", Temperature: 0.7, MaxTokens: 1000}
	case NodeTypeGemini:
		return &ChatConfig{Model: "gemini-2.0-flash", Temperature: 0.7, MaxTokens: 1000}
	case NodeTypePerplexity:
		return &ChatConfig{Model: "sonar", Temperature: 0.7, MaxTokens: 1000}
	case NodeTypeBlog, NodeTypeSocial:
		return &ChatConfig{Model: "gpt-4o", Temperature: 0.7, MaxTokens: 1000}
	case NodeTypeDalle:
		return &ImageConfig{Model: "dall-e-3", Size: "1024x1024", Style: "vivid"}
	case NodeTypeStability, NodeTypeMidjourney:
		return &ImageConfig{Size: "1024x1024"}
	case NodeTypeElevenLabs:
		return &SpeechConfig{Voice: "Rachel", Model: "eleven_multilingual_v2"}
	case NodeTypeWhisper:
		return &SpeechConfig{Model: "whisper-1"}
	case NodeTypeSora, NodeTypeRunway, NodeTypePika:
		return &VideoConfig{Duration: "4s", Resolution: "720p"}
	case NodeTypeWebhook:
		return &WebhookConfig{Method: "POST"}
	default:
		return &GenericConfig{}
	}
}
