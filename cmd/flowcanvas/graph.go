package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ravi-parthasarathy/flowcanvas/pkg/workflow"
)

func graphCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph <workflow.json|workflow.dot>",
		Short: "Print a human-readable summary of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			g, err := loadGraph(args[0])
			if err != nil {
				return err
			}

			switch strings.ToLower(format) {
			case "dot":
				fmt.Print(workflow.ExportDOT(g, "workflow"))
			case "text", "":
				fmt.Print(renderText(g))
			default:
				return fmt.Errorf("unknown format %q: use text or dot", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or dot")
	return cmd
}

// truncate shortens s to maxLen chars, appending "…" if needed.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}

// renderText produces the human-readable text summary.
func renderText(g *workflow.Graph) string {
	var sb strings.Builder

	nodes := g.Nodes()
	edges := g.Edges()
	fmt.Fprintf(&sb, "Workflow: %d nodes, %d edges\n", len(nodes), len(edges))

	maxIDLen := 4
	for _, n := range nodes {
		if len(n.ID) > maxIDLen {
			maxIDLen = len(n.ID)
		}
	}

	fmt.Fprintf(&sb, "\nNodes:\n")
	for _, n := range nodes {
		label := truncate(n.Label, 40)
		status := ""
		switch {
		case n.State.Err != "":
			status = "error: " + truncate(n.State.Err, 40)
		case n.State.Executed:
			status = "executed"
		}
		fmt.Fprintf(&sb, "  %-*s  %-12s  %-42s  %s\n", maxIDLen, n.ID, string(n.Type), label, status)
	}

	fmt.Fprintf(&sb, "\nEdges:\n")
	maxFromLen := 4
	for _, e := range edges {
		if len(e.Source) > maxFromLen {
			maxFromLen = len(e.Source)
		}
	}
	for _, e := range edges {
		fmt.Fprintf(&sb, "  %-*s  →  %s\n", maxFromLen, e.Source, e.Target)
	}

	return sb.String()
}
