package workflow

import "strings"

// NodeType identifies the behavior of a node on the canvas.
type NodeType string

const (
	NodeTypeInput  NodeType = "input"
	NodeTypeOutput NodeType = "output"

	// Language model services.
	NodeTypeOpenAI     NodeType = "openai"
	NodeTypeAnthropic  NodeType = "anthropic"
	NodeTypeGemini     NodeType = "gemini"
	NodeTypePerplexity NodeType = "perplexity"

	// Image generation services.
	NodeTypeDalle      NodeType = "dalle"
	NodeTypeStability  NodeType = "stability"
	NodeTypeMidjourney NodeType = "midjourney"

	// Speech services.
	NodeTypeElevenLabs NodeType = "elevenlabs"
	NodeTypeWhisper    NodeType = "whisper"

	// Video generation services.
	NodeTypeSora   NodeType = "sora"
	NodeTypeRunway NodeType = "runway"
	NodeTypePika   NodeType = "pika"

	// Content and utility nodes.
	NodeTypeBlog     NodeType = "blog"
	NodeTypeSocial   NodeType = "social"
	NodeTypeVectorDB NodeType = "vector-db"
	NodeTypeMemory   NodeType = "memory"
	NodeTypeWebhook  NodeType = "webhook"
	NodeTypeCode     NodeType = "code"
)

// PayloadType describes the shape of a payload moving along an edge.
type PayloadType string

const (
	PayloadText  PayloadType = "text"
	PayloadImage PayloadType = "image"
	PayloadVideo PayloadType = "video"
	PayloadAudio PayloadType = "audio"
	PayloadFile  PayloadType = "file"
)

// Payload is the unit of data flowing between nodes: either text or a
// binary blob with a declared MIME type.
type Payload struct {
	Text string
	Blob []byte
	MIME string
}

// TextPayload wraps a string as a text payload.
func TextPayload(s string) Payload { return Payload{Text: s} }

// BlobPayload wraps binary data with its MIME type.
func BlobPayload(data []byte, mime string) Payload {
	return Payload{Blob: data, MIME: mime}
}

// IsZero reports whether the payload carries no data at all.
func (p Payload) IsZero() bool { return p.Text == "" && len(p.Blob) == 0 }

// IsText reports whether the payload is textual.
func (p Payload) IsText() bool { return len(p.Blob) == 0 }

// InferType maps a payload to its type tag. Text payloads are "text";
// binary payloads are classified by MIME prefix, falling back to "file".
func InferType(p Payload) PayloadType {
	if p.IsText() {
		return PayloadText
	}
	switch {
	case strings.HasPrefix(p.MIME, "image/"):
		return PayloadImage
	case strings.HasPrefix(p.MIME, "video/"):
		return PayloadVideo
	case strings.HasPrefix(p.MIME, "audio/"):
		return PayloadAudio
	default:
		return PayloadFile
	}
}

// Exchange is one prompt/response pair retained as conversation context
// on a chat node.
type Exchange struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RuntimeState holds the per-node fields owned by the execution engine.
type RuntimeState struct {
	Input        Payload
	InputType    PayloadType
	Response     Payload
	ResponseType PayloadType
	Processing   bool
	Executed     bool
	Err          string
	Context      []Exchange
}

// Position is a 2D canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a single vertex in the workflow graph. ID and Type are
// immutable after creation; Label, Position and Config belong to the UI
// layer; State belongs to the engine and is mutated only through
// Store.UpdateNode.
type Node struct {
	ID       string
	Type     NodeType
	Label    string
	Position Position
	Config   Config
	State    RuntimeState
}

// Edge is a directed connection from one node's output to another
// node's input. Animated is display-only.
type Edge struct {
	ID       string
	Source   string
	Target   string
	Animated bool
}
