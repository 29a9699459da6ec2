package workflow

import "fmt"

// InputRequiredError is returned when Trigger is called with an empty
// payload.
type InputRequiredError struct {
	NodeID string
}

func (e *InputRequiredError) Error() string {
	return fmt.Sprintf("node %q: input is required before triggering", e.NodeID)
}

// NoDownstreamError is returned when Trigger is called on a node with
// no outgoing edges.
type NoDownstreamError struct {
	NodeID string
}

func (e *NoDownstreamError) Error() string {
	return fmt.Sprintf("node %q: no downstream connections", e.NodeID)
}

// SelfConnectionError is returned when an edge would connect a node to
// itself.
type SelfConnectionError struct {
	NodeID string
}

func (e *SelfConnectionError) Error() string {
	return fmt.Sprintf("node %q cannot connect to itself", e.NodeID)
}

// DuplicateConnectionError is returned when an edge with the same
// (source, target) pair already exists.
type DuplicateConnectionError struct {
	Source, Target string
}

func (e *DuplicateConnectionError) Error() string {
	return fmt.Sprintf("connection %q -> %q already exists", e.Source, e.Target)
}

// UnknownNodeError is returned when an operation references a node id
// that is not in the graph.
type UnknownNodeError struct {
	NodeID string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("node %q not found in graph", e.NodeID)
}

// MissingCredentialError is returned by a generative strategy invoked
// without its required credential.
type MissingCredentialError struct {
	Service string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s API key is required", e.Service)
}

// ServiceCallError wraps a failed call to an external generative
// service. Status is an HTTP-like code when one is available, 0
// otherwise.
type ServiceCallError struct {
	Service string
	Status  int
	Cause   error
}

func (e *ServiceCallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s call failed (status %d): %v", e.Service, e.Status, e.Cause)
	}
	return fmt.Sprintf("%s call failed: %v", e.Service, e.Cause)
}

func (e *ServiceCallError) Unwrap() error { return e.Cause }
