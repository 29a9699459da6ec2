package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ravi-parthasarathy/flowcanvas/pkg/workflow"
)

// stubStrategy runs a fixed function for every node type.
type stubStrategy struct {
	fn func(node workflow.Node, input workflow.Payload) (workflow.Result, error)
}

func (s *stubStrategy) Run(_ context.Context, node workflow.Node, input workflow.Payload) (workflow.Result, error) {
	return s.fn(node, input)
}

// stubRegistry resolves every node type to the same strategy.
type stubRegistry struct{ s workflow.Strategy }

func (r stubRegistry) Get(workflow.NodeType) workflow.Strategy { return r.s }

// echoRegistry labels the input with the node that processed it, the
// same shape the simulated strategies produce.
func echoRegistry() stubRegistry {
	return stubRegistry{s: &stubStrategy{
		fn: func(node workflow.Node, input workflow.Payload) (workflow.Result, error) {
			return workflow.Result{
				Output: workflow.TextPayload(fmt.Sprintf("Processed by %s: %s", node.Label, input.Text)),
			}, nil
		},
	}}
}

// eventRecorder collects store events safely across engine goroutines.
type eventRecorder struct {
	mu     sync.Mutex
	events []workflow.NodeEvent
}

func (r *eventRecorder) record(ev workflow.NodeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) byNode(id string) []workflow.NodeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []workflow.NodeEvent
	for _, ev := range r.events {
		if ev.NodeID == id {
			out = append(out, ev)
		}
	}
	return out
}

// chainGraph builds input-1 → <mid types...> → output-1.
func chainGraph(t *testing.T, midTypes ...workflow.NodeType) (*workflow.Graph, []string) {
	t.Helper()
	g := workflow.DefaultGraph()
	prev := "input-1"
	var mids []string
	for i, mt := range midTypes {
		n := workflow.NewNode(mt, fmt.Sprintf("Step %d", i+1), workflow.Position{})
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode: %v", err)
		}
		if _, err := g.AddEdge(prev, n.ID); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
		prev = n.ID
		mids = append(mids, n.ID)
	}
	if _, err := g.AddEdge(prev, "output-1"); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	return g, mids
}

// ─── Trigger preconditions ────────────────────────────────────────────────────

func TestTrigger_UnknownNode(t *testing.T) {
	store := workflow.NewStore(workflow.DefaultGraph())
	eng, err := workflow.NewEngine(store, echoRegistry())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	err = eng.Trigger(context.Background(), "ghost", workflow.TextPayload("hi"))
	var unknown *workflow.UnknownNodeError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownNodeError", err)
	}
}

func TestTrigger_EmptyInput(t *testing.T) {
	g, _ := chainGraph(t)
	store := workflow.NewStore(g)
	eng, _ := workflow.NewEngine(store, echoRegistry())

	err := eng.Trigger(context.Background(), "input-1", workflow.Payload{})
	var required *workflow.InputRequiredError
	if !errors.As(err, &required) {
		t.Fatalf("err = %v, want InputRequiredError", err)
	}
	// Rejected triggers must leave no trace on the node.
	st, _ := store.NodeState("input-1")
	if st.Executed || st.Processing {
		t.Errorf("state mutated by rejected trigger: %+v", st)
	}
}

func TestTrigger_NoDownstream(t *testing.T) {
	store := workflow.NewStore(workflow.DefaultGraph())
	eng, _ := workflow.NewEngine(store, echoRegistry())

	err := eng.Trigger(context.Background(), "input-1", workflow.TextPayload("hi"))
	var dangling *workflow.NoDownstreamError
	if !errors.As(err, &dangling) {
		t.Fatalf("err = %v, want NoDownstreamError", err)
	}
	st, _ := store.NodeState("input-1")
	if st.Executed {
		t.Error("executed = true after rejected trigger")
	}
}

// ─── Chain execution ──────────────────────────────────────────────────────────

func TestRun_DirectChain(t *testing.T) {
	g, _ := chainGraph(t)
	store := workflow.NewStore(g)
	eng, _ := workflow.NewEngine(store, echoRegistry())

	if err := eng.Trigger(context.Background(), "input-1", workflow.TextPayload("hello")); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	eng.Wait()

	in, _ := store.NodeState("input-1")
	if !in.Executed {
		t.Error("input node not marked executed")
	}
	if in.Processing {
		t.Error("input node stuck in processing")
	}
	out, _ := store.NodeState("output-1")
	if !out.Executed {
		t.Error("output node not marked executed")
	}
	if out.Response.Text != "hello" {
		t.Errorf("output response = %q, want %q", out.Response.Text, "hello")
	}
}

func TestRun_ServiceChain(t *testing.T) {
	g, mids := chainGraph(t, workflow.NodeTypeOpenAI)
	store := workflow.NewStore(g)
	eng, _ := workflow.NewEngine(store, echoRegistry())

	if err := eng.Trigger(context.Background(), "input-1", workflow.TextPayload("draft a haiku")); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	eng.Wait()

	mid, _ := store.NodeState(mids[0])
	if mid.Input.Text != "draft a haiku" {
		t.Errorf("mid input = %q", mid.Input.Text)
	}
	want := "Processed by Step 1: draft a haiku"
	if mid.Response.Text != want {
		t.Errorf("mid response = %q, want %q", mid.Response.Text, want)
	}
	out, _ := store.NodeState("output-1")
	if out.Response.Text != want {
		t.Errorf("output response = %q, want %q", out.Response.Text, want)
	}
}

func TestRun_FanOut(t *testing.T) {
	g := workflow.DefaultGraph()
	a := workflow.NewNode(workflow.NodeTypeOpenAI, "A", workflow.Position{})
	b := workflow.NewNode(workflow.NodeTypeAnthropic, "B", workflow.Position{})
	_ = g.AddNode(a)
	_ = g.AddNode(b)
	_, _ = g.AddEdge("input-1", a.ID)
	_, _ = g.AddEdge("input-1", b.ID)
	_, _ = g.AddEdge(a.ID, "output-1")
	_, _ = g.AddEdge(b.ID, "output-1")

	store := workflow.NewStore(g)
	eng, _ := workflow.NewEngine(store, echoRegistry())
	if err := eng.Trigger(context.Background(), "input-1", workflow.TextPayload("go")); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	eng.Wait()

	for _, id := range []string{a.ID, b.ID} {
		st, _ := store.NodeState(id)
		if !st.Executed {
			t.Errorf("branch %s not executed", id)
		}
		if st.Err != "" {
			t.Errorf("branch %s error: %s", id, st.Err)
		}
	}
	// Fan-in is last-write-wins: the output carries one branch's result.
	out, _ := store.NodeState("output-1")
	wantA := "Processed by A: go"
	wantB := "Processed by B: go"
	if out.Response.Text != wantA && out.Response.Text != wantB {
		t.Errorf("output response = %q, want one of %q / %q", out.Response.Text, wantA, wantB)
	}
}

func TestRun_OutputIsTerminal(t *testing.T) {
	g := workflow.DefaultGraph()
	after := workflow.NewNode(workflow.NodeTypeOpenAI, "After", workflow.Position{})
	_ = g.AddNode(after)
	_, _ = g.AddEdge("input-1", "output-1")
	_, _ = g.AddEdge("output-1", after.ID)

	store := workflow.NewStore(g)
	eng, _ := workflow.NewEngine(store, echoRegistry())
	if err := eng.Trigger(context.Background(), "input-1", workflow.TextPayload("stop here")); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	eng.Wait()

	out, _ := store.NodeState("output-1")
	if out.Response.Text != "stop here" {
		t.Errorf("output response = %q", out.Response.Text)
	}
	st, _ := store.NodeState(after.ID)
	if st.Executed {
		t.Error("node downstream of output must not execute")
	}
}

func TestRun_MidChainInputParksPayload(t *testing.T) {
	g := workflow.DefaultGraph()
	second := workflow.NewNode(workflow.NodeTypeInput, "Second Input", workflow.Position{})
	_ = g.AddNode(second)
	_, _ = g.AddEdge("input-1", second.ID)
	_, _ = g.AddEdge(second.ID, "output-1")

	store := workflow.NewStore(g)
	rec := &eventRecorder{}
	store.Subscribe(rec.record)
	eng, _ := workflow.NewEngine(store, echoRegistry())

	if err := eng.Trigger(context.Background(), "input-1", workflow.TextPayload("pause")); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	eng.Wait()

	st, _ := store.NodeState(second.ID)
	if st.Input.Text != "pause" {
		t.Errorf("parked input = %q, want %q", st.Input.Text, "pause")
	}
	if st.Executed {
		t.Error("mid-chain input must wait for a manual trigger")
	}
	out, _ := store.NodeState("output-1")
	if out.Executed {
		t.Error("output executed despite parked payload upstream")
	}

	evs := rec.byNode(second.ID)
	if len(evs) != 1 || evs[0].Type != workflow.EventNodeWaiting {
		t.Errorf("events = %v, want single node_waiting", evs)
	}

	// A manual trigger resumes from the parked node.
	if err := eng.Trigger(context.Background(), second.ID, st.Input); err != nil {
		t.Fatalf("resume Trigger: %v", err)
	}
	eng.Wait()
	out, _ = store.NodeState("output-1")
	if out.Response.Text != "pause" {
		t.Errorf("output response = %q after resume", out.Response.Text)
	}
}

func TestRun_BinaryPayloadTyped(t *testing.T) {
	g, mids := chainGraph(t, workflow.NodeTypeDalle)
	store := workflow.NewStore(g)
	png := workflow.BlobPayload([]byte{0x89, 'P', 'N', 'G'}, "image/png")
	reg := stubRegistry{s: &stubStrategy{
		fn: func(node workflow.Node, input workflow.Payload) (workflow.Result, error) {
			return workflow.Result{Output: png}, nil
		},
	}}
	eng, _ := workflow.NewEngine(store, reg)

	if err := eng.Trigger(context.Background(), "input-1", workflow.TextPayload("a sunset")); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	eng.Wait()

	mid, _ := store.NodeState(mids[0])
	if mid.InputType != workflow.PayloadText {
		t.Errorf("mid input type = %q, want text", mid.InputType)
	}
	if mid.ResponseType != workflow.PayloadImage {
		t.Errorf("mid response type = %q, want image", mid.ResponseType)
	}
	// The blob propagates downstream with its type intact.
	out, _ := store.NodeState("output-1")
	if out.InputType != workflow.PayloadImage || out.ResponseType != workflow.PayloadImage {
		t.Errorf("output types = %q/%q, want image/image", out.InputType, out.ResponseType)
	}
	if string(out.Response.Blob) != string(png.Blob) || out.Response.MIME != "image/png" {
		t.Errorf("output response = %+v", out.Response)
	}
}

// ─── Failure handling ─────────────────────────────────────────────────────────

func TestRun_ErrorIsNodeLocal(t *testing.T) {
	g := workflow.DefaultGraph()
	bad := workflow.NewNode(workflow.NodeTypeOpenAI, "Bad", workflow.Position{})
	good := workflow.NewNode(workflow.NodeTypeAnthropic, "Good", workflow.Position{})
	_ = g.AddNode(bad)
	_ = g.AddNode(good)
	_, _ = g.AddEdge("input-1", bad.ID)
	_, _ = g.AddEdge("input-1", good.ID)
	_, _ = g.AddEdge(bad.ID, "output-1")

	failing := stubRegistry{s: &stubStrategy{
		fn: func(node workflow.Node, input workflow.Payload) (workflow.Result, error) {
			if node.ID == bad.ID {
				return workflow.Result{}, &workflow.MissingCredentialError{Service: "OpenAI"}
			}
			return workflow.Result{Output: workflow.TextPayload("ok")}, nil
		},
	}}

	store := workflow.NewStore(g)
	rec := &eventRecorder{}
	store.Subscribe(rec.record)
	eng, _ := workflow.NewEngine(store, failing)

	if err := eng.Trigger(context.Background(), "input-1", workflow.TextPayload("go")); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	eng.Wait()

	st, _ := store.NodeState(bad.ID)
	if st.Err != "OpenAI API key is required" {
		t.Errorf("error = %q", st.Err)
	}
	if !st.Executed {
		t.Error("failed node must still read as executed")
	}
	if st.Processing {
		t.Error("failed node stuck in processing")
	}
	// Failures never propagate.
	out, _ := store.NodeState("output-1")
	if out.Executed {
		t.Error("output executed downstream of a failed node")
	}
	// Sibling branch unaffected.
	sib, _ := store.NodeState(good.ID)
	if sib.Err != "" || !sib.Executed {
		t.Errorf("sibling state = %+v", sib)
	}

	evs := rec.byNode(bad.ID)
	var failed bool
	for _, ev := range evs {
		if ev.Type == workflow.EventNodeFailed {
			failed = true
		}
	}
	if !failed {
		t.Error("no node_failed event for failing node")
	}
}

func TestRun_RetriggerClearsError(t *testing.T) {
	g, mids := chainGraph(t, workflow.NodeTypeOpenAI)
	store := workflow.NewStore(g)

	var failNext bool
	reg := stubRegistry{s: &stubStrategy{
		fn: func(node workflow.Node, input workflow.Payload) (workflow.Result, error) {
			if failNext {
				return workflow.Result{}, errors.New("transient")
			}
			return workflow.Result{Output: workflow.TextPayload("fine")}, nil
		},
	}}
	eng, _ := workflow.NewEngine(store, reg)

	failNext = true
	if err := eng.Trigger(context.Background(), "input-1", workflow.TextPayload("x")); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	eng.Wait()
	st, _ := store.NodeState(mids[0])
	if st.Err == "" {
		t.Fatal("expected recorded error on first run")
	}

	failNext = false
	if err := eng.Trigger(context.Background(), "input-1", workflow.TextPayload("x")); err != nil {
		t.Fatalf("second Trigger: %v", err)
	}
	eng.Wait()
	st, _ = store.NodeState(mids[0])
	if st.Err != "" {
		t.Errorf("error = %q, want cleared on re-run", st.Err)
	}
	if st.Response.Text != "fine" {
		t.Errorf("response = %q", st.Response.Text)
	}
}

// ─── Events ───────────────────────────────────────────────────────────────────

func TestRun_EventSequence(t *testing.T) {
	g, mids := chainGraph(t, workflow.NodeTypeOpenAI)
	store := workflow.NewStore(g)
	rec := &eventRecorder{}
	store.Subscribe(rec.record)
	eng, _ := workflow.NewEngine(store, echoRegistry())

	if err := eng.Trigger(context.Background(), "input-1", workflow.TextPayload("hi")); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	eng.Wait()

	evs := rec.byNode(mids[0])
	if len(evs) != 2 {
		t.Fatalf("events = %v, want started+completed", evs)
	}
	if evs[0].Type != workflow.EventNodeStarted || evs[1].Type != workflow.EventNodeCompleted {
		t.Errorf("sequence = %s, %s", evs[0].Type, evs[1].Type)
	}
	if evs[0].NodeType != workflow.NodeTypeOpenAI {
		t.Errorf("node type = %q", evs[0].NodeType)
	}
}

func TestRun_ContextRecorded(t *testing.T) {
	g, mids := chainGraph(t, workflow.NodeTypeOpenAI)
	store := workflow.NewStore(g)
	reg := stubRegistry{s: &stubStrategy{
		fn: func(node workflow.Node, input workflow.Payload) (workflow.Result, error) {
			return workflow.Result{
				Output: workflow.TextPayload("answer"),
				Context: []workflow.Exchange{
					{Role: "user", Content: input.Text},
					{Role: "assistant", Content: "answer"},
				},
			}, nil
		},
	}}
	eng, _ := workflow.NewEngine(store, reg)

	if err := eng.Trigger(context.Background(), "input-1", workflow.TextPayload("question")); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	eng.Wait()

	st, _ := store.NodeState(mids[0])
	if len(st.Context) != 2 {
		t.Fatalf("context = %v, want 2 exchanges", st.Context)
	}
	if st.Context[0].Role != "user" || st.Context[0].Content != "question" {
		t.Errorf("context[0] = %+v", st.Context[0])
	}
	if st.Context[1].Role != "assistant" || st.Context[1].Content != "answer" {
		t.Errorf("context[1] = %+v", st.Context[1])
	}
}
