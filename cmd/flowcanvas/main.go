package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/ravi-parthasarathy/flowcanvas/pkg/server"
	"github.com/ravi-parthasarathy/flowcanvas/pkg/storage"
	"github.com/ravi-parthasarathy/flowcanvas/pkg/workflow"
	"github.com/ravi-parthasarathy/flowcanvas/pkg/workflow/strategies"

	// Register all LLM providers via their init() functions.
	_ "github.com/ravi-parthasarathy/flowcanvas/pkg/llm/providers"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flowcanvas",
		Short: "FlowCanvas — visual AI workflow runner",
		Long: `FlowCanvas executes node-and-edge workflows of AI services.

Each node is a typed service (openai, dalle, elevenlabs, …) with its own
configuration. Triggering an input node pushes its payload along every
outgoing edge, running each downstream service in turn.`,
	}
	root.AddCommand(runCmd())
	root.AddCommand(lintCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(graphCmd())
	return root
}

// ─── run ──────────────────────────────────────────────────────────────────────

func runCmd() *cobra.Command {
	var (
		input    string
		nodeID   string
		simulate bool
		latency  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <workflow.json|workflow.dot>",
		Short: "Execute a workflow from an input node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(args[0])
			if err != nil {
				return err
			}
			if lintErr := workflow.ValidateErr(g); lintErr != nil {
				return fmt.Errorf("invalid workflow: %w", lintErr)
			}

			var reg *strategies.Registry
			if simulate {
				reg = strategies.Simulated(latency)
			} else {
				reg = strategies.Default(latency)
			}

			store := workflow.NewStore(g)
			store.Subscribe(func(ev workflow.NodeEvent) {
				switch ev.Type {
				case workflow.EventNodeFailed:
					fmt.Fprintf(os.Stderr, "[flowcanvas] node %s failed: %v\n", ev.NodeID, ev.Err)
				case workflow.EventNodeCompleted:
					fmt.Printf("[flowcanvas] node %s completed\n", ev.NodeID)
				}
			})

			eng, err := workflow.NewEngine(store, reg)
			if err != nil {
				return err
			}

			start := nodeID
			if start == "" {
				start = firstInputNode(g)
			}
			if start == "" {
				return fmt.Errorf("workflow has no input node; pass --node to pick a start")
			}

			ctx := signalContext(cmd.Context())
			if err := eng.Trigger(ctx, start, workflow.TextPayload(input)); err != nil {
				return err
			}
			eng.Wait()

			printResponses(g)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "payload delivered to the input node")
	cmd.Flags().StringVar(&nodeID, "node", "", "node to trigger (default: first input node)")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "run without calling external services")
	cmd.Flags().DurationVar(&latency, "latency", 2*time.Second, "simulated per-node latency")
	return cmd
}

// ─── lint ─────────────────────────────────────────────────────────────────────

func lintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint <workflow.json|workflow.dot>",
		Short: "Validate a workflow file without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			g, err := loadGraph(args[0])
			if err != nil {
				return err
			}
			if lintErr := workflow.ValidateErr(g); lintErr != nil {
				return lintErr
			}
			fmt.Printf("OK: workflow is valid (%d nodes, %d edges)\n",
				len(g.Nodes()), len(g.Edges()))
			return nil
		},
	}
	return cmd
}

// ─── serve ────────────────────────────────────────────────────────────────────

func serveCmd() *cobra.Command {
	var (
		addr  string
		dbURL string
		dir   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workflow API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var primary storage.Adapter
			switch {
			case dbURL != "":
				pool, err := pgxpool.New(ctx, dbURL)
				if err != nil {
					return fmt.Errorf("connect: %w", err)
				}
				defer pool.Close()
				pg := storage.NewPostgres(pool)
				if err := pg.CreateSchema(ctx); err != nil {
					return fmt.Errorf("create schema: %w", err)
				}
				primary = pg
			default:
				primary = storage.NewFile(dir)
			}

			g, err := loadOrDefault(ctx, primary)
			if err != nil {
				return err
			}

			store := workflow.NewStore(g)
			eng, err := workflow.NewEngine(store, strategies.Default(2*time.Second))
			if err != nil {
				return err
			}
			saver := storage.NewDebouncedSaver(primary,
				storage.WithCompressor(workflow.CompressSnapshot),
				storage.WithSecondary(storage.NewMemory(0)),
			)

			srv := server.New(store, eng, saver, nil)
			return srv.Listen(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":3000", "listen address")
	cmd.Flags().StringVar(&dbURL, "db", "", "postgres connection URL (optional)")
	cmd.Flags().StringVar(&dir, "dir", ".flowcanvas", "snapshot directory when no database is configured")
	return cmd
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// loadGraph reads a workflow from either a JSON snapshot or a DOT file,
// picked by extension.
func loadGraph(path string) (*workflow.Graph, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	if strings.HasSuffix(strings.ToLower(path), ".dot") {
		g, err := workflow.ParseDOT(string(src))
		if err != nil {
			return nil, fmt.Errorf("parse workflow: %w", err)
		}
		return g, nil
	}
	g, err := workflow.DecodeSnapshot(src)
	if err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}
	return g, nil
}

// loadOrDefault restores the saved snapshot or falls back to the
// default two-node canvas.
func loadOrDefault(ctx context.Context, adapter storage.Adapter) (*workflow.Graph, error) {
	data, err := adapter.Load(ctx, server.SnapshotKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return workflow.DefaultGraph(), nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	g, err := workflow.DecodeSnapshot(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[flowcanvas] saved snapshot unreadable, starting fresh: %v\n", err)
		return workflow.DefaultGraph(), nil
	}
	return g, nil
}

func firstInputNode(g *workflow.Graph) string {
	for _, n := range g.Nodes() {
		if n.Type == workflow.NodeTypeInput {
			return n.ID
		}
	}
	return ""
}

// printResponses writes the final response of every executed node to
// stdout, output nodes last.
func printResponses(g *workflow.Graph) {
	var outputs []workflow.Node
	for _, n := range g.Nodes() {
		if !n.State.Executed || n.State.Response.IsZero() {
			continue
		}
		if n.Type == workflow.NodeTypeOutput {
			outputs = append(outputs, n)
			continue
		}
		printResponse(n)
	}
	for _, n := range outputs {
		printResponse(n)
	}
}

func printResponse(n workflow.Node) {
	resp := n.State.Response
	if resp.IsText() {
		fmt.Printf("\n── %s (%s) ──\n%s\n", n.Label, n.Type, resp.Text)
		return
	}
	fmt.Printf("\n── %s (%s) ──\n[%s attachment, %d bytes]\n", n.Label, n.Type, resp.MIME, len(resp.Blob))
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			fmt.Fprintln(os.Stderr, "\n[flowcanvas] interrupted — cancelling workflow")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}
