package workflow

import (
	"fmt"
	"sort"
	"strings"

	gographviz "github.com/awalterschulze/gographviz"
)

// DOT exchange: a debugging/exchange surface for canvas graphs. Export
// renders a graph as Graphviz DOT with registry colors; ParseDOT reads
// a DOT file back into a graph (node type taken from the "type"
// attribute, label from "label").

// ExportDOT renders the graph as a DOT digraph.
func ExportDOT(g *Graph, name string) string {
	if name == "" {
		name = "workflow"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", name)
	fmt.Fprintf(&b, "  rankdir=LR;\n")

	nodes := g.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	for _, n := range nodes {
		label := n.Label
		if label == "" {
			label = n.ID
		}
		fmt.Fprintf(&b, "  %q [type=%q, label=%q, fillcolor=%q];\n",
			n.ID, string(n.Type), label, ColorOf(n.Type))
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "  %q -> %q;\n", e.Source, e.Target)
	}
	b.WriteString("}\n")
	return b.String()
}

// ParseDOT parses a DOT digraph into a workflow graph.
func ParseDOT(src string) (*Graph, error) {
	graphAst, err := gographviz.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("dot parse error: %w", err)
	}

	// Permissive collector: accept any attribute name without the
	// strict validation gographviz.Graph performs.
	collector := newDOTCollector()
	if err := gographviz.Analyse(graphAst, collector); err != nil {
		return nil, fmt.Errorf("dot analyse error: %w", err)
	}

	g := NewGraph()
	ids := make([]string, 0, len(collector.nodes))
	for id := range collector.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		attrs := collector.nodes[id]
		t := NodeType(attrs["type"])
		if t == "" {
			t = NodeTypeOpenAI // default for untyped nodes
		}
		n := Node{
			ID:     id,
			Type:   t,
			Label:  attrs["label"],
			Config: DefaultConfigOf(t),
		}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range collector.edges {
		if _, err := g.AddEdge(e.from, e.to); err != nil {
			return nil, err
		}
	}
	return g, nil
}

type rawDOTEdge struct {
	from, to string
}

// dotCollector implements gographviz.Interface without attribute
// validation.
type dotCollector struct {
	name  string
	nodes map[string]map[string]string // id → attrs
	edges []rawDOTEdge
}

func newDOTCollector() *dotCollector {
	return &dotCollector{nodes: make(map[string]map[string]string)}
}

func (c *dotCollector) SetStrict(_ bool) error { return nil }
func (c *dotCollector) SetDir(_ bool) error    { return nil }
func (c *dotCollector) SetName(n string) error { c.name = unquote(n); return nil }
func (c *dotCollector) String() string         { return c.name }

func (c *dotCollector) AddNode(_ string, name string, attrs map[string]string) error {
	id := unquote(name)
	if _, ok := c.nodes[id]; !ok {
		c.nodes[id] = make(map[string]string, len(attrs))
	}
	for k, v := range attrs {
		c.nodes[id][k] = unquote(v)
	}
	return nil
}

func (c *dotCollector) AddEdge(src, dst string, _ bool, _ map[string]string) error {
	c.edges = append(c.edges, rawDOTEdge{from: unquote(src), to: unquote(dst)})
	return nil
}

func (c *dotCollector) AddPortEdge(src, _, dst, _ string, directed bool, attrs map[string]string) error {
	return c.AddEdge(src, dst, directed, attrs)
}

func (c *dotCollector) AddAttr(_ string, _, _ string) error               { return nil }
func (c *dotCollector) AddSubGraph(_, _ string, _ map[string]string) error { return nil }

// unquote strips surrounding double-quotes from a DOT value.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
