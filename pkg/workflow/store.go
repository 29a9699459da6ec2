package workflow

import (
	"log/slog"
	"sync"
)

// Update names the runtime fields a single UpdateNode call touches.
// Nil fields are left untouched; a non-nil field replaces the stored
// value, so Err set to a pointer to "" clears a previous error. Label
// and Config ride along for the configuration panel but may never be
// erased by an update that does not mention them.
type Update struct {
	Input        *Payload
	InputType    *PayloadType
	Response     *Payload
	ResponseType *PayloadType
	Processing   *bool
	Executed     *bool
	Err          *string
	Context      *[]Exchange
	Label        *string
	Position     *Position
	Config       Config
}

// Ptr returns a pointer to v, for building Updates inline.
func Ptr[T any](v T) *T { return &v }

// Store is the single mutation entry point for node runtime state. All
// merges are atomic with respect to each other; readers see either the
// state before or after a full merge, never a partial write.
type Store struct {
	mu    sync.RWMutex
	graph *Graph

	subMu sync.RWMutex
	subs  []func(NodeEvent)
}

// NewStore wraps a graph.
func NewStore(g *Graph) *Store {
	return &Store{graph: g}
}

// Graph returns the wrapped graph.
func (s *Store) Graph() *Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// ReplaceGraph swaps in a new graph, e.g. one decoded from a snapshot.
// In-flight runs against the old graph finish against the old graph.
func (s *Store) ReplaceGraph(g *Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = g
}

// Subscribe registers a callback invoked for every emitted NodeEvent.
// Callbacks run synchronously on the emitting goroutine and must not
// block.
func (s *Store) Subscribe(fn func(NodeEvent)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

// Emit delivers an event to all subscribers.
func (s *Store) Emit(ev NodeEvent) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, fn := range s.subs {
		fn(ev)
	}
}

// UpdateNode merges u into the node's stored data. Fields not named in
// u are preserved, so an update carrying only a response never erases
// config or label.
func (s *Store) UpdateNode(id string, u Update) error {
	g := s.Graph()
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.node(id)
	if !ok {
		return &UnknownNodeError{NodeID: id}
	}
	if u.Input != nil {
		n.State.Input = *u.Input
	}
	if u.InputType != nil {
		n.State.InputType = *u.InputType
	}
	if u.Response != nil {
		n.State.Response = *u.Response
	}
	if u.ResponseType != nil {
		n.State.ResponseType = *u.ResponseType
	}
	if u.Processing != nil {
		n.State.Processing = *u.Processing
	}
	if u.Executed != nil {
		n.State.Executed = *u.Executed
	}
	if u.Err != nil {
		n.State.Err = *u.Err
	}
	if u.Context != nil {
		n.State.Context = *u.Context
	}
	if u.Label != nil {
		n.Label = *u.Label
	}
	if u.Position != nil {
		n.Position = *u.Position
	}
	if u.Config != nil {
		n.Config = u.Config
	}
	slog.Debug("node updated", "node", id)
	return nil
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (Node, error) {
	return s.Graph().Node(id)
}

// NodeState returns a copy of the node's runtime state.
func (s *Store) NodeState(id string) (RuntimeState, error) {
	n, err := s.Graph().Node(id)
	if err != nil {
		return RuntimeState{}, err
	}
	return n.State, nil
}
