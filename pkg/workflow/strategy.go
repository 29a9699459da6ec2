package workflow

import "context"

// Result is what a strategy produces for a node: the output payload and
// optionally the conversation pair retained as context on chat nodes.
type Result struct {
	Output  Payload
	Context []Exchange
}

// Strategy turns a node's input into a response. Implementations live
// in the strategies sub-package; the interface is defined here so the
// Engine can use it without an import cycle.
type Strategy interface {
	// Run executes the node's processing. node is a snapshot taken at
	// dispatch time; runtime state is written back by the engine, never
	// by the strategy.
	Run(ctx context.Context, node Node, input Payload) (Result, error)
}

// StrategyRegistry resolves the strategy for a node type. Get is total:
// node types without a dedicated strategy resolve to the generic
// pass-through strategy.
type StrategyRegistry interface {
	Get(t NodeType) Strategy
}
