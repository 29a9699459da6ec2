package strategies

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/ravi-parthasarathy/flowcanvas/pkg/workflow"
)

// Webhook posts the node's input to an external HTTP endpoint. URL and
// body support {{.Input}} and {{.Label}} template expansion.
type Webhook struct {
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

type webhookData struct {
	Input string
	Label string
}

func (s *Webhook) Run(ctx context.Context, node workflow.Node, input workflow.Payload) (workflow.Result, error) {
	cfg, ok := node.Config.(*workflow.WebhookConfig)
	if !ok || cfg == nil {
		cfg, _ = workflow.DefaultConfigOf(workflow.NodeTypeWebhook).(*workflow.WebhookConfig)
	}
	if cfg.URL == "" {
		return workflow.Result{}, fmt.Errorf("webhook node %q has no URL configured", node.ID)
	}

	data := webhookData{Input: input.Text, Label: node.Label}
	url, err := renderTemplate(cfg.URL, data)
	if err != nil {
		return workflow.Result{}, fmt.Errorf("webhook node %q: render url: %w", node.ID, err)
	}

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if method != http.MethodGet {
		raw := cfg.Body
		if raw == "" {
			raw = `{"input": {{printf "%q" .Input}}}`
		}
		rendered, err := renderTemplate(raw, data)
		if err != nil {
			return workflow.Result{}, fmt.Errorf("webhook node %q: render body: %w", node.ID, err)
		}
		body = strings.NewReader(rendered)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return workflow.Result{}, fmt.Errorf("webhook node %q: build request: %w", node.ID, err)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return workflow.Result{}, &workflow.ServiceCallError{Service: "Webhook", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return workflow.Result{}, &workflow.ServiceCallError{Service: "Webhook", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return workflow.Result{}, &workflow.ServiceCallError{
			Service: "Webhook",
			Status:  resp.StatusCode,
			Cause:   fmt.Errorf("%s", bytes.TrimSpace(respBody)),
		}
	}
	return workflow.Result{Output: workflow.TextPayload(string(respBody))}, nil
}

func renderTemplate(tmpl string, data webhookData) (string, error) {
	t, err := template.New("webhook").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
