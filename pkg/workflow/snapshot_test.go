package workflow_test

import (
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/ravi-parthasarathy/flowcanvas/pkg/workflow"
)

// ─── Snapshot codec tests ─────────────────────────────────────────────────────

func buildCanvas(t *testing.T) *workflow.Graph {
	t.Helper()
	g := workflow.DefaultGraph()
	writer := workflow.NewNode(workflow.NodeTypeOpenAI, "Writer", workflow.Position{X: 300, Y: 150})
	writer.Config = &workflow.ChatConfig{
		APIKey:       "sk-test",
		Model:        "gpt-4o",
		Temperature:  0.3,
		MaxTokens:    256,
		SystemPrompt: "Write plainly.",
	}
	writer.State.Input = workflow.TextPayload("a prompt")
	writer.State.InputType = workflow.PayloadText
	writer.State.Response = workflow.TextPayload("a response")
	writer.State.ResponseType = workflow.PayloadText
	writer.State.Executed = true
	writer.State.Context = []workflow.Exchange{
		{Role: "user", Content: "a prompt"},
		{Role: "assistant", Content: "a response"},
	}
	if err := g.AddNode(writer); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, err := g.AddEdge("input-1", writer.ID); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if _, err := g.AddEdge(writer.ID, "output-1"); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	return g
}

func TestSnapshot_RoundTrip(t *testing.T) {
	g := buildCanvas(t)

	data, err := workflow.EncodeSnapshot(g)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	restored, err := workflow.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}

	if len(restored.Nodes()) != 3 {
		t.Fatalf("nodes = %d, want 3", len(restored.Nodes()))
	}
	if len(restored.Edges()) != 2 {
		t.Fatalf("edges = %d, want 2", len(restored.Edges()))
	}

	var writerID string
	for _, n := range g.Nodes() {
		if n.Type == workflow.NodeTypeOpenAI {
			writerID = n.ID
		}
	}
	n, err := restored.Node(writerID)
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	cfg, ok := n.Config.(*workflow.ChatConfig)
	if !ok {
		t.Fatalf("config type = %T, want *ChatConfig", n.Config)
	}
	if cfg.APIKey != "sk-test" || cfg.Model != "gpt-4o" || cfg.Temperature != 0.3 {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.SystemPrompt != "Write plainly." {
		t.Errorf("systemPrompt = %q", cfg.SystemPrompt)
	}
	if n.Label != "Writer" {
		t.Errorf("label = %q", n.Label)
	}
	if n.Position.X != 300 || n.Position.Y != 150 {
		t.Errorf("position = %+v", n.Position)
	}
	if n.State.Input.Text != "a prompt" || n.State.Response.Text != "a response" {
		t.Errorf("state = %+v", n.State)
	}
	if !n.State.Executed {
		t.Error("executed flag lost")
	}
	if len(n.State.Context) != 2 {
		t.Errorf("context = %v", n.State.Context)
	}

	// Edge identities survive the round trip.
	wantIDs := map[string]bool{}
	for _, e := range g.Edges() {
		wantIDs[e.ID] = true
	}
	for _, e := range restored.Edges() {
		if !wantIDs[e.ID] {
			t.Errorf("edge id %q not preserved", e.ID)
		}
	}
}

func TestSnapshot_RoundTripNoEdges(t *testing.T) {
	// The seeded default graph has nodes but no edges; its snapshot must
	// still be readable on the next load.
	g := workflow.DefaultGraph()

	data, err := workflow.EncodeSnapshot(g)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	if !gjson.GetBytes(data, "edges").IsArray() {
		t.Errorf("edges should encode as an array, got %s", gjson.GetBytes(data, "edges").Raw)
	}
	restored, err := workflow.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if len(restored.Nodes()) != 2 {
		t.Fatalf("nodes = %d, want 2", len(restored.Nodes()))
	}
	if len(restored.Edges()) != 0 {
		t.Errorf("edges = %d, want 0", len(restored.Edges()))
	}
}

func TestSnapshot_NullCollections(t *testing.T) {
	// Older persisted snapshots carry null instead of [].
	g, err := workflow.DecodeSnapshot([]byte(`{
		"nodes": [
			{"id": "a", "position": {"x": 0, "y": 0}, "data": {"type": "input"}}
		],
		"edges": null
	}`))
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if len(g.Nodes()) != 1 || len(g.Edges()) != 0 {
		t.Errorf("nodes = %d edges = %d, want 1/0", len(g.Nodes()), len(g.Edges()))
	}

	empty, err := workflow.DecodeSnapshot([]byte(`{"nodes": null, "edges": null}`))
	if err != nil {
		t.Fatalf("DecodeSnapshot(empty): %v", err)
	}
	if len(empty.Nodes()) != 0 {
		t.Errorf("nodes = %d, want 0", len(empty.Nodes()))
	}
}

func TestSnapshot_BinaryResponseDropped(t *testing.T) {
	g := workflow.DefaultGraph()
	img := workflow.NewNode(workflow.NodeTypeDalle, "Artist", workflow.Position{})
	img.State.Response = workflow.BlobPayload([]byte{0xff, 0xd8}, "image/jpeg")
	img.State.ResponseType = workflow.PayloadImage
	_ = g.AddNode(img)

	data, err := workflow.EncodeSnapshot(g)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	restored, err := workflow.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	n, _ := restored.Node(img.ID)
	if !n.State.Response.IsZero() {
		t.Errorf("binary response should not survive a snapshot, got %+v", n.State.Response)
	}
}

func TestSnapshot_UnknownNodeType(t *testing.T) {
	data := []byte(`{
		"nodes": [
			{"id": "x-1", "position": {"x": 0, "y": 0},
			 "data": {"type": "hologram", "label": "X", "config": {"params": {"k": "v"}}}}
		],
		"edges": []
	}`)
	g, err := workflow.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	n, err := g.Node("x-1")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	gen, ok := n.Config.(*workflow.GenericConfig)
	if !ok {
		t.Fatalf("config type = %T, want *GenericConfig", n.Config)
	}
	if gen.Params["k"] != "v" {
		t.Errorf("params = %v", gen.Params)
	}
}

func TestSnapshot_InvalidJSON(t *testing.T) {
	if _, err := workflow.DecodeSnapshot([]byte("{nope")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestSnapshot_RejectsBadEdges(t *testing.T) {
	data := []byte(`{
		"nodes": [
			{"id": "a", "position": {"x": 0, "y": 0}, "data": {"type": "input"}}
		],
		"edges": [{"id": "e1", "source": "a", "target": "a"}]
	}`)
	if _, err := workflow.DecodeSnapshot(data); err == nil {
		t.Error("expected error for self-connection in snapshot")
	}
}

func TestCompressSnapshot(t *testing.T) {
	g := workflow.DefaultGraph()
	long := workflow.NewNode(workflow.NodeTypeOpenAI, "Long", workflow.Position{})
	long.State.Response = workflow.TextPayload(strings.Repeat("x", 1500))
	long.State.ResponseType = workflow.PayloadText
	long.State.Context = []workflow.Exchange{{Role: "user", Content: "q"}}
	short := workflow.NewNode(workflow.NodeTypeAnthropic, "Short", workflow.Position{})
	short.State.Response = workflow.TextPayload("brief")
	short.State.ResponseType = workflow.PayloadText
	_ = g.AddNode(long)
	_ = g.AddNode(short)

	data, err := workflow.EncodeSnapshot(g)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	compressed, err := workflow.CompressSnapshot(data)
	if err != nil {
		t.Fatalf("CompressSnapshot: %v", err)
	}

	var longResp, shortResp gjson.Result
	gjson.GetBytes(compressed, "nodes").ForEach(func(_, v gjson.Result) bool {
		switch v.Get("data.label").String() {
		case "Long":
			longResp = v.Get("data.response")
		case "Short":
			shortResp = v.Get("data.response")
		}
		return true
	})
	if longResp.Exists() {
		t.Error("long response should be dropped from compressed snapshot")
	}
	if !shortResp.Exists() || shortResp.String() != "brief" {
		t.Errorf("short response = %v, want kept", shortResp)
	}
	if gjson.GetBytes(compressed, "nodes.#(data.label==Long).data.context").Exists() {
		t.Error("context should be dropped from compressed snapshot")
	}

	// Compressed output still decodes.
	if _, err := workflow.DecodeSnapshot(compressed); err != nil {
		t.Errorf("DecodeSnapshot(compressed): %v", err)
	}
}

// ─── DOT exchange tests ───────────────────────────────────────────────────────

func TestExportDOT(t *testing.T) {
	g := buildCanvas(t)
	dot := workflow.ExportDOT(g, "demo")

	if !strings.HasPrefix(dot, `digraph "demo" {`) {
		t.Errorf("header = %q", strings.SplitN(dot, "\n", 2)[0])
	}
	if !strings.Contains(dot, `type="input"`) {
		t.Error("missing input node type attribute")
	}
	if !strings.Contains(dot, `fillcolor="#6d28d9"`) {
		t.Error("missing registry color for openai node")
	}
	if !strings.Contains(dot, `"input-1" ->`) {
		t.Error("missing edge from input-1")
	}
}

func TestParseDOT_RoundTrip(t *testing.T) {
	g := buildCanvas(t)
	dot := workflow.ExportDOT(g, "demo")

	parsed, err := workflow.ParseDOT(dot)
	if err != nil {
		t.Fatalf("ParseDOT: %v", err)
	}
	if len(parsed.Nodes()) != len(g.Nodes()) {
		t.Errorf("nodes = %d, want %d", len(parsed.Nodes()), len(g.Nodes()))
	}
	if len(parsed.Edges()) != len(g.Edges()) {
		t.Errorf("edges = %d, want %d", len(parsed.Edges()), len(g.Edges()))
	}
	in, err := parsed.Node("input-1")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if in.Type != workflow.NodeTypeInput {
		t.Errorf("type = %q, want input", in.Type)
	}
	if in.Label != "User Input" {
		t.Errorf("label = %q", in.Label)
	}
}

func TestParseDOT_UntypedNodeDefaults(t *testing.T) {
	src := `digraph w {
		a [label="Start"]
		b [label="End"]
		a -> b
	}`
	g, err := workflow.ParseDOT(src)
	if err != nil {
		t.Fatalf("ParseDOT: %v", err)
	}
	n, err := g.Node("a")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if n.Type != workflow.NodeTypeOpenAI {
		t.Errorf("type = %q, want openai default", n.Type)
	}
}
