package strategies

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ravi-parthasarathy/flowcanvas/pkg/workflow"
)

// Dalle generates images through the OpenAI images API, returning a
// PNG blob payload.
type Dalle struct {
	// NewClient is swapped out in tests. Nil means the real SDK client.
	NewClient func(apiKey string) DalleClient
}

type DalleClient interface {
	CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error)
}

func (s *Dalle) Run(ctx context.Context, node workflow.Node, input workflow.Payload) (workflow.Result, error) {
	cfg, ok := node.Config.(*workflow.ImageConfig)
	if !ok || cfg == nil {
		cfg, _ = workflow.DefaultConfigOf(workflow.NodeTypeDalle).(*workflow.ImageConfig)
	}
	if cfg.APIKey == "" {
		return workflow.Result{}, &workflow.MissingCredentialError{Service: "OpenAI"}
	}
	if !input.IsText() {
		return workflow.Result{}, fmt.Errorf("dalle node %q requires a text prompt", node.ID)
	}

	newClient := s.NewClient
	if newClient == nil {
		newClient = func(apiKey string) DalleClient { return openai.NewClient(apiKey) }
	}

	model := cfg.Model
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	size := cfg.Size
	if size == "" {
		size = openai.CreateImageSize1024x1024
	}

	req := openai.ImageRequest{
		Prompt:         input.Text,
		Model:          model,
		Size:           size,
		Style:          cfg.Style,
		Quality:        cfg.Quality,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	}
	resp, err := newClient(cfg.APIKey).CreateImage(ctx, req)
	if err != nil {
		return workflow.Result{}, &workflow.ServiceCallError{Service: "OpenAI", Cause: err}
	}
	if len(resp.Data) == 0 {
		return workflow.Result{}, &workflow.ServiceCallError{
			Service: "OpenAI",
			Cause:   fmt.Errorf("image response contained no data"),
		}
	}
	img, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return workflow.Result{}, &workflow.ServiceCallError{
			Service: "OpenAI",
			Cause:   fmt.Errorf("decode image payload: %w", err),
		}
	}
	return workflow.Result{Output: workflow.BlobPayload(img, "image/png")}, nil
}

const stabilityEndpoint = "https://api.stability.ai/v2beta/stable-image/generate/core"

// Stability generates images through the Stability AI HTTP API.
type Stability struct {
	// Endpoint overrides the API URL in tests. Empty means production.
	Endpoint string
	// HTTPClient defaults to a client with a 60s timeout.
	HTTPClient *http.Client
}

func (s *Stability) Run(ctx context.Context, node workflow.Node, input workflow.Payload) (workflow.Result, error) {
	cfg, ok := node.Config.(*workflow.ImageConfig)
	if !ok || cfg == nil {
		cfg = &workflow.ImageConfig{}
	}
	if cfg.APIKey == "" {
		return workflow.Result{}, &workflow.MissingCredentialError{Service: "Stability"}
	}
	if !input.IsText() {
		return workflow.Result{}, fmt.Errorf("stability node %q requires a text prompt", node.ID)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("prompt", input.Text); err != nil {
		return workflow.Result{}, fmt.Errorf("stability node %q: build request: %w", node.ID, err)
	}
	if err := mw.WriteField("output_format", "png"); err != nil {
		return workflow.Result{}, fmt.Errorf("stability node %q: build request: %w", node.ID, err)
	}
	if err := mw.Close(); err != nil {
		return workflow.Result{}, fmt.Errorf("stability node %q: build request: %w", node.ID, err)
	}

	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = stabilityEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return workflow.Result{}, fmt.Errorf("stability node %q: build request: %w", node.ID, err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "image/*")

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return workflow.Result{}, &workflow.ServiceCallError{Service: "Stability", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return workflow.Result{}, &workflow.ServiceCallError{Service: "Stability", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return workflow.Result{}, &workflow.ServiceCallError{
			Service: "Stability",
			Status:  resp.StatusCode,
			Cause:   fmt.Errorf("%s", bytes.TrimSpace(data)),
		}
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return workflow.Result{Output: workflow.BlobPayload(data, mime)}, nil
}
