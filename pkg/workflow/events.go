package workflow

// EventType identifies the kind of node event.
type EventType string

const (
	EventNodeStarted   EventType = "node_started"
	EventNodeCompleted EventType = "node_completed"
	EventNodeFailed    EventType = "node_failed"
	// EventNodeWaiting is emitted when a propagated payload lands on an
	// input node, which requires a manual trigger to continue.
	EventNodeWaiting EventType = "node_waiting"
)

// NodeEvent is emitted by the Store on runtime-state transitions. The
// UI layer subscribes to re-render; nothing in the core blocks on a
// subscriber.
type NodeEvent struct {
	Type     EventType `json:"type"`
	NodeID   string    `json:"node_id"`
	NodeType NodeType  `json:"node_type"`
	Err      string    `json:"error,omitempty"`
}
