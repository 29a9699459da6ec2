package strategies

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ravi-parthasarathy/flowcanvas/pkg/workflow"
)

const elevenLabsEndpoint = "https://api.elevenlabs.io/v1/text-to-speech"

// elevenVoiceIDs maps the friendly voice names surfaced in the editor
// to ElevenLabs voice ids. Values not present here are passed through
// as raw voice ids.
var elevenVoiceIDs = map[string]string{
	"Rachel": "21m00Tcm4TlvDq8ikWAM",
	"Drew":   "29vD33N1CtxCmqQRPOHJ",
	"Clyde":  "2EiwWnXFnvU5JabPnv8n",
	"Paul":   "5Q0t7uMcjvnagumLfvZi",
	"Domi":   "AZnzlk1XvdvUeBnXmlld",
	"Dave":   "CYw3kZ02Hs0563khs1Fj",
	"Fin":    "D38z5RcWu1voky8WS1ja",
	"Bella":  "EXAVITQu4vr4xnSDxMaL",
	"Adam":   "pNInz6obpgDQGcFmaJgB",
	"Sam":    "yoZ06aMxZJJ28mfd3POQ",
}

// ElevenLabs converts text to speech through the ElevenLabs HTTP API,
// returning an MP3 blob payload.
type ElevenLabs struct {
	// Endpoint overrides the API URL in tests. Empty means production.
	Endpoint string
	// HTTPClient defaults to a client with a 60s timeout.
	HTTPClient *http.Client
}

func (s *ElevenLabs) Run(ctx context.Context, node workflow.Node, input workflow.Payload) (workflow.Result, error) {
	cfg, ok := node.Config.(*workflow.SpeechConfig)
	if !ok || cfg == nil {
		cfg, _ = workflow.DefaultConfigOf(workflow.NodeTypeElevenLabs).(*workflow.SpeechConfig)
	}
	if cfg.APIKey == "" {
		return workflow.Result{}, &workflow.MissingCredentialError{Service: "ElevenLabs"}
	}
	if !input.IsText() {
		return workflow.Result{}, fmt.Errorf("elevenlabs node %q requires text input", node.ID)
	}

	voice := cfg.Voice
	if voice == "" {
		voice = "Rachel"
	}
	voiceID := voice
	if id, ok := elevenVoiceIDs[voice]; ok {
		voiceID = id
	}
	model := cfg.Model
	if model == "" {
		model = "eleven_multilingual_v2"
	}

	body, err := json.Marshal(struct {
		Text    string `json:"text"`
		ModelID string `json:"model_id"`
	}{Text: input.Text, ModelID: model})
	if err != nil {
		return workflow.Result{}, fmt.Errorf("elevenlabs node %q: build request: %w", node.ID, err)
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = elevenLabsEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/"+voiceID, bytes.NewReader(body))
	if err != nil {
		return workflow.Result{}, fmt.Errorf("elevenlabs node %q: build request: %w", node.ID, err)
	}
	req.Header.Set("xi-api-key", cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return workflow.Result{}, &workflow.ServiceCallError{Service: "ElevenLabs", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return workflow.Result{}, &workflow.ServiceCallError{Service: "ElevenLabs", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return workflow.Result{}, &workflow.ServiceCallError{
			Service: "ElevenLabs",
			Status:  resp.StatusCode,
			Cause:   fmt.Errorf("%s", bytes.TrimSpace(data)),
		}
	}
	return workflow.Result{Output: workflow.BlobPayload(data, "audio/mpeg")}, nil
}

// Whisper transcribes audio input through the OpenAI audio API,
// returning the transcript as text.
type Whisper struct {
	// NewClient is swapped out in tests. Nil means the real SDK client.
	NewClient func(apiKey string) WhisperClient
}

type WhisperClient interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

func (s *Whisper) Run(ctx context.Context, node workflow.Node, input workflow.Payload) (workflow.Result, error) {
	cfg, ok := node.Config.(*workflow.SpeechConfig)
	if !ok || cfg == nil {
		cfg, _ = workflow.DefaultConfigOf(workflow.NodeTypeWhisper).(*workflow.SpeechConfig)
	}
	if cfg.APIKey == "" {
		return workflow.Result{}, &workflow.MissingCredentialError{Service: "OpenAI"}
	}
	if input.IsText() || len(input.Blob) == 0 {
		return workflow.Result{}, fmt.Errorf("whisper node %q requires an audio attachment", node.ID)
	}

	newClient := s.NewClient
	if newClient == nil {
		newClient = func(apiKey string) WhisperClient { return openai.NewClient(apiKey) }
	}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	req := openai.AudioRequest{
		Model:    model,
		Reader:   bytes.NewReader(input.Blob),
		FilePath: "input" + audioExt(input.MIME),
	}
	resp, err := newClient(cfg.APIKey).CreateTranscription(ctx, req)
	if err != nil {
		return workflow.Result{}, &workflow.ServiceCallError{Service: "OpenAI", Cause: err}
	}
	return workflow.Result{Output: workflow.TextPayload(resp.Text)}, nil
}

func audioExt(mime string) string {
	switch mime {
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	case "audio/mp4", "audio/m4a":
		return ".m4a"
	case "audio/webm":
		return ".webm"
	default:
		return ".mp3"
	}
}
