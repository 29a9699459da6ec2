package workflow

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Graph owns all nodes and edges of a workflow by id. The UI layer
// mutates structure (add/remove node, add/remove edge); the execution
// engine owns only the runtime state inside each node, mutated through
// the Store. All methods are safe for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	order []string // node insertion order, for stable listing
	edges []*Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// DefaultGraph returns the graph seeded with the two permanent nodes
// used when no persisted workflow exists.
func DefaultGraph() *Graph {
	g := NewGraph()
	_ = g.AddNode(Node{
		ID:       "input-1",
		Type:     NodeTypeInput,
		Label:    "User Input",
		Position: Position{X: 100, Y: 200},
	})
	_ = g.AddNode(Node{
		ID:       "output-1",
		Type:     NodeTypeOutput,
		Label:    "Response",
		Position: Position{X: 600, Y: 200},
	})
	return g
}

// NewNode constructs a node of the given type with registry defaults
// filled in. The id is "<type>-<short uuid>".
func NewNode(t NodeType, label string, pos Position) Node {
	if label == "" {
		label = string(t)
	}
	return Node{
		ID:       fmt.Sprintf("%s-%s", t, uuid.NewString()[:8]),
		Type:     t,
		Label:    label,
		Position: pos,
		Config:   DefaultConfigOf(t),
	}
}

// AddNode inserts a node. The node's config defaults are filled in when
// absent. Fails if the id is empty or already taken.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return fmt.Errorf("node id must not be empty")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("node %q already exists", n.ID)
	}
	if n.Config == nil {
		n.Config = DefaultConfigOf(n.Type)
	}
	stored := n
	g.nodes[n.ID] = &stored
	g.order = append(g.order, n.ID)
	return nil
}

// AddEdge connects source to target. Self-loops and duplicate
// (source, target) pairs are rejected; direction matters, so the
// reverse of an existing edge is allowed.
func (g *Graph) AddEdge(source, target string) (Edge, error) {
	if source == target {
		return Edge{}, &SelfConnectionError{NodeID: source}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[source]; !ok {
		return Edge{}, &UnknownNodeError{NodeID: source}
	}
	if _, ok := g.nodes[target]; !ok {
		return Edge{}, &UnknownNodeError{NodeID: target}
	}
	for _, e := range g.edges {
		if e.Source == source && e.Target == target {
			return Edge{}, &DuplicateConnectionError{Source: source, Target: target}
		}
	}
	edge := &Edge{
		ID:       "e-" + uuid.NewString(),
		Source:   source,
		Target:   target,
		Animated: true,
	}
	g.edges = append(g.edges, edge)
	return *edge, nil
}

// restoreEdge re-inserts an edge from a snapshot, preserving its id.
// The same connection invariants apply as in AddEdge.
func (g *Graph) restoreEdge(e Edge) error {
	if e.Source == e.Target {
		return &SelfConnectionError{NodeID: e.Source}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[e.Source]; !ok {
		return &UnknownNodeError{NodeID: e.Source}
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return &UnknownNodeError{NodeID: e.Target}
	}
	for _, ex := range g.edges {
		if ex.Source == e.Source && ex.Target == e.Target {
			return &DuplicateConnectionError{Source: e.Source, Target: e.Target}
		}
	}
	if e.ID == "" {
		e.ID = "e-" + uuid.NewString()
	}
	stored := e
	g.edges = append(g.edges, &stored)
	return nil
}

// RemoveNodes deletes every node matching pred, along with any edge
// referencing a deleted node. Returns the number of nodes removed.
func (g *Graph) RemoveNodes(pred func(Node) bool) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := make(map[string]bool)
	for id, n := range g.nodes {
		if pred(*n) {
			removed[id] = true
		}
	}
	if len(removed) == 0 {
		return 0
	}
	for id := range removed {
		delete(g.nodes, id)
	}
	keptOrder := g.order[:0]
	for _, id := range g.order {
		if !removed[id] {
			keptOrder = append(keptOrder, id)
		}
	}
	g.order = keptOrder

	// Cascade: drop edges whose endpoints are gone.
	keptEdges := g.edges[:0]
	for _, e := range g.edges {
		if !removed[e.Source] && !removed[e.Target] {
			keptEdges = append(keptEdges, e)
		}
	}
	g.edges = keptEdges
	return len(removed)
}

// RemoveEdge deletes the edge with the given id.
func (g *Graph) RemoveEdge(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, e := range g.edges {
		if e.ID == id {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return true
		}
	}
	return false
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, &UnknownNodeError{NodeID: id}
	}
	return *n, nil
}

// Nodes returns copies of all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns copies of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, *e)
	}
	return out
}

// OutgoingEdges returns all edges leaving nodeID, in insertion order.
func (g *Graph) OutgoingEdges(nodeID string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Edge
	for _, e := range g.edges {
		if e.Source == nodeID {
			out = append(out, *e)
		}
	}
	return out
}

// IncomingEdges returns all edges arriving at nodeID.
func (g *Graph) IncomingEdges(nodeID string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Edge
	for _, e := range g.edges {
		if e.Target == nodeID {
			out = append(out, *e)
		}
	}
	return out
}

// node returns the stored node pointer. Callers must hold g.mu.
func (g *Graph) node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}
