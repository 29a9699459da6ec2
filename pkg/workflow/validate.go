package workflow

import (
	"fmt"
	"strings"
)

// LintError describes a structural problem in a workflow graph.
type LintError struct {
	NodeID  string
	Message string
}

func (e LintError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("node %q: %s", e.NodeID, e.Message)
	}
	return e.Message
}

// Validate checks a graph for structural correctness and returns all
// discovered problems, not just the first.
func Validate(g *Graph) []LintError {
	var errs []LintError

	nodes := g.Nodes()
	byID := make(map[string]Node, len(nodes))
	var inputIDs []string
	for _, n := range nodes {
		byID[n.ID] = n
		if n.Type == NodeTypeInput {
			inputIDs = append(inputIDs, n.ID)
		}
	}

	if len(inputIDs) == 0 {
		errs = append(errs, LintError{Message: "workflow has no input node"})
	}

	// Edge endpoint and pair checks.
	seen := make(map[string]bool)
	for _, e := range g.Edges() {
		if _, ok := byID[e.Source]; !ok {
			errs = append(errs, LintError{Message: fmt.Sprintf("edge %q references unknown source node %q", e.ID, e.Source)})
		}
		if _, ok := byID[e.Target]; !ok {
			errs = append(errs, LintError{Message: fmt.Sprintf("edge %q references unknown target node %q", e.ID, e.Target)})
		}
		if e.Source == e.Target {
			errs = append(errs, LintError{NodeID: e.Source, Message: "self-connection"})
		}
		pair := e.Source + "->" + e.Target
		if seen[pair] {
			errs = append(errs, LintError{Message: fmt.Sprintf("duplicate connection %s", pair)})
		}
		seen[pair] = true
	}

	// Nodes unreachable from every input node will never execute.
	if len(inputIDs) > 0 {
		reachable := make(map[string]bool)
		for _, id := range inputIDs {
			for rid := range reachableFrom(g, id) {
				reachable[rid] = true
			}
		}
		for _, n := range nodes {
			if n.Type == NodeTypeInput {
				continue
			}
			if !reachable[n.ID] {
				errs = append(errs, LintError{NodeID: n.ID, Message: "not reachable from any input node"})
			}
		}
	}

	return errs
}

// ValidateErr returns nil when the graph is valid, or a combined error
// listing every lint problem.
func ValidateErr(g *Graph) error {
	errs := Validate(g)
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("workflow validation failed:\n  %s", strings.Join(msgs, "\n  "))
}

// reachableFrom returns the set of node ids reachable from start via
// directed edges.
func reachableFrom(g *Graph, start string) map[string]bool {
	visited := map[string]bool{}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for _, e := range g.OutgoingEdges(cur) {
			queue = append(queue, e.Target)
		}
	}
	return visited
}
