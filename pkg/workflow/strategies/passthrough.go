package strategies

import (
	"context"
	"fmt"
	"time"

	"github.com/ravi-parthasarathy/flowcanvas/pkg/workflow"
)

// Passthrough simulates processing for node types without a dedicated
// strategy: it waits for a fixed latency and derives a deterministic
// text response from the input.
type Passthrough struct {
	// Latency is the simulated processing delay. Zero means respond
	// immediately, which tests rely on.
	Latency time.Duration
}

func (s *Passthrough) Run(ctx context.Context, node workflow.Node, input workflow.Payload) (workflow.Result, error) {
	if s.Latency > 0 {
		select {
		case <-ctx.Done():
			return workflow.Result{}, ctx.Err()
		case <-time.After(s.Latency):
		}
	}
	label := node.Label
	if label == "" {
		label = node.ID
	}
	content := input.Text
	if !input.IsText() {
		content = fmt.Sprintf("[%s attachment, %d bytes]", input.MIME, len(input.Blob))
	}
	text := fmt.Sprintf("Processed by %s: %s", label, content)
	return workflow.Result{Output: workflow.TextPayload(text)}, nil
}
