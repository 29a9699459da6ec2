package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Engine walks the workflow graph: given a triggered node it dispatches
// each outgoing edge, invokes the per-node-type strategy on the target,
// records the result through the Store and propagates responses further
// downstream.
//
// Concurrency model: each outgoing edge is dispatched on its own
// goroutine, so sibling branches of a fan-out interleave with no
// ordering between them. A single chain runs sequentially inside its
// branch goroutine — a node only starts after its upstream node
// completed and propagated — and every started run writes a terminal
// state.
type Engine struct {
	store      *Store
	strategies StrategyRegistry
	wg         sync.WaitGroup
}

// NewEngine creates an Engine over a store and a strategy registry.
func NewEngine(store *Store, reg StrategyRegistry) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store must not be nil")
	}
	if reg == nil {
		return nil, fmt.Errorf("strategy registry must not be nil")
	}
	return &Engine{store: store, strategies: reg}, nil
}

// Trigger starts execution at nodeID with the given payload, normally a
// user prompt on an input node. The payload must be non-empty and the
// node must have at least one outgoing edge; otherwise the trigger is
// rejected with no state change. Downstream work is dispatched
// asynchronously; use Wait to block until it settles.
func (e *Engine) Trigger(ctx context.Context, nodeID string, input Payload) error {
	node, err := e.store.Node(nodeID)
	if err != nil {
		return err
	}
	if input.IsZero() {
		return &InputRequiredError{NodeID: nodeID}
	}
	out := e.store.Graph().OutgoingEdges(nodeID)
	if len(out) == 0 {
		return &NoDownstreamError{NodeID: nodeID}
	}

	ptype := InferType(input)
	if err := e.store.UpdateNode(nodeID, Update{
		Input:      &input,
		InputType:  &ptype,
		Processing: Ptr(true),
		Executed:   Ptr(true),
		Err:        Ptr(""),
	}); err != nil {
		return err
	}
	e.store.Emit(NodeEvent{Type: EventNodeStarted, NodeID: nodeID, NodeType: node.Type})
	slog.Info("workflow triggered", "node", nodeID, "targets", len(out))

	for _, edge := range out {
		e.dispatch(ctx, edge.Target, input, ptype)
	}

	// Dispatch complete; the triggering node is no longer busy even
	// though downstream work may still be in flight.
	_ = e.store.UpdateNode(nodeID, Update{Processing: Ptr(false)})
	e.store.Emit(NodeEvent{Type: EventNodeCompleted, NodeID: nodeID, NodeType: node.Type})
	return nil
}

// Wait blocks until all dispatched node runs have reached a terminal
// state.
func (e *Engine) Wait() { e.wg.Wait() }

// dispatch starts runNode on its own goroutine.
func (e *Engine) dispatch(ctx context.Context, nodeID string, input Payload, ptype PayloadType) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runNode(ctx, nodeID, input, ptype)
	}()
}

// runNode executes one node with the given input, then propagates its
// response. Errors are node-local: they are recorded on the node and
// never halt sibling branches.
func (e *Engine) runNode(ctx context.Context, nodeID string, input Payload, ptype PayloadType) {
	node, err := e.store.Node(nodeID)
	if err != nil {
		slog.Warn("edge targets unknown node", "node", nodeID)
		return
	}

	switch node.Type {
	case NodeTypeOutput:
		// Terminal display: mirror the payload into the response and
		// stop, even if outgoing edges exist.
		e.completeOutput(node, input, ptype)
		return
	case NodeTypeInput:
		// Mid-chain input: park the payload and wait for a manual
		// trigger. Executed is deliberately left alone.
		_ = e.store.UpdateNode(nodeID, Update{
			Input:      &input,
			InputType:  &ptype,
			Processing: Ptr(false),
		})
		e.store.Emit(NodeEvent{Type: EventNodeWaiting, NodeID: nodeID, NodeType: node.Type})
		slog.Info("payload parked at input node", "node", nodeID)
		return
	}

	strat := e.strategies.Get(node.Type)

	if err := e.store.UpdateNode(nodeID, Update{
		Input:      &input,
		InputType:  &ptype,
		Processing: Ptr(true),
		Executed:   Ptr(true),
		Err:        Ptr(""),
	}); err != nil {
		slog.Warn("node vanished before run", "node", nodeID)
		return
	}
	e.store.Emit(NodeEvent{Type: EventNodeStarted, NodeID: nodeID, NodeType: node.Type})
	slog.Info("executing node", "node", nodeID, "type", node.Type)

	res, runErr := strat.Run(ctx, node, input)
	if runErr != nil {
		_ = e.store.UpdateNode(nodeID, Update{
			Processing: Ptr(false),
			Executed:   Ptr(true),
			Err:        Ptr(runErr.Error()),
		})
		e.store.Emit(NodeEvent{Type: EventNodeFailed, NodeID: nodeID, NodeType: node.Type, Err: runErr.Error()})
		slog.Error("node failed", "node", nodeID, "err", runErr)
		return
	}

	rtype := InferType(res.Output)
	upd := Update{
		Response:     &res.Output,
		ResponseType: &rtype,
		Processing:   Ptr(false),
		Executed:     Ptr(true),
	}
	if res.Context != nil {
		upd.Context = &res.Context
	}
	_ = e.store.UpdateNode(nodeID, upd)
	e.store.Emit(NodeEvent{Type: EventNodeCompleted, NodeID: nodeID, NodeType: node.Type})

	e.propagate(ctx, nodeID, res.Output)
}

// propagate forwards a node's response along every outgoing edge. Each
// edge is dispatched independently; two edges into the same target are
// last-write-wins on that target's input.
func (e *Engine) propagate(ctx context.Context, sourceID string, response Payload) {
	rtype := InferType(response)
	for _, edge := range e.store.Graph().OutgoingEdges(sourceID) {
		slog.Debug("propagating response", "from", sourceID, "to", edge.Target)
		e.dispatch(ctx, edge.Target, response, rtype)
	}
}

// completeOutput records a payload on a terminal output node.
func (e *Engine) completeOutput(node Node, input Payload, ptype PayloadType) {
	rtype := InferType(input)
	_ = e.store.UpdateNode(node.ID, Update{
		Input:        &input,
		InputType:    &ptype,
		Response:     &input,
		ResponseType: &rtype,
		Processing:   Ptr(false),
		Executed:     Ptr(true),
		Err:          Ptr(""),
	})
	e.store.Emit(NodeEvent{Type: EventNodeCompleted, NodeID: node.ID, NodeType: node.Type})
}
