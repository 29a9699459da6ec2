// Package server exposes the workflow graph and engine over HTTP for
// the canvas frontend.
package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/tidwall/gjson"

	"github.com/ravi-parthasarathy/flowcanvas/pkg/storage"
	"github.com/ravi-parthasarathy/flowcanvas/pkg/workflow"
)

// SnapshotKey is the storage key for the single active workflow.
const SnapshotKey = "workflow"

// Server wires the graph store, execution engine and snapshot saver
// behind a REST surface.
type Server struct {
	store  *workflow.Store
	engine *workflow.Engine
	saver  *storage.DebouncedSaver
	logger *slog.Logger
	app    *fiber.App
}

func New(store *workflow.Store, engine *workflow.Engine, saver *storage.DebouncedSaver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:  store,
		engine: engine,
		saver:  saver,
		logger: logger,
		app:    fiber.New(),
	}
	s.routes()
	return s
}

// App returns the underlying fiber app, used by tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving HTTP on addr.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) routes() {
	s.app.Get("/workflow", s.getWorkflow)
	s.app.Put("/workflow", s.putWorkflow)
	s.app.Delete("/workflow", s.resetWorkflow)
	s.app.Get("/workflow/lint", s.lintWorkflow)
	s.app.Get("/workflow/dot", s.exportDOT)

	s.app.Post("/workflow/nodes", s.addNode)
	s.app.Get("/workflow/nodes/:id", s.getNode)
	s.app.Patch("/workflow/nodes/:id", s.updateNode)
	s.app.Delete("/workflow/nodes/:id", s.deleteNode)
	s.app.Post("/workflow/nodes/:id/trigger", s.triggerNode)

	s.app.Post("/workflow/edges", s.addEdge)
	s.app.Delete("/workflow/edges/:id", s.deleteEdge)
}

// scheduleSave queues a snapshot write after any mutation.
func (s *Server) scheduleSave() {
	if s.saver == nil {
		return
	}
	data, err := workflow.EncodeSnapshot(s.store.Graph())
	if err != nil {
		s.logger.Error("snapshot encode failed", "error", err)
		return
	}
	s.saver.Schedule(SnapshotKey, data)
}

// ── Workflow ──────────────────────────────────────────────────────────

func (s *Server) getWorkflow(c fiber.Ctx) error {
	data, err := workflow.EncodeSnapshot(s.store.Graph())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

func (s *Server) putWorkflow(c fiber.Ctx) error {
	g, err := workflow.DecodeSnapshot(c.Body())
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	s.store.ReplaceGraph(g)
	s.scheduleSave()
	return c.SendStatus(204)
}

func (s *Server) resetWorkflow(c fiber.Ctx) error {
	s.store.ReplaceGraph(workflow.DefaultGraph())
	s.scheduleSave()
	return c.SendStatus(204)
}

func (s *Server) lintWorkflow(c fiber.Ctx) error {
	problems := workflow.Validate(s.store.Graph())
	out := make([]fiber.Map, 0, len(problems))
	for _, p := range problems {
		out = append(out, fiber.Map{"nodeId": p.NodeID, "message": p.Message})
	}
	return c.JSON(fiber.Map{"problems": out})
}

func (s *Server) exportDOT(c fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/vnd.graphviz")
	return c.SendString(workflow.ExportDOT(s.store.Graph(), "workflow"))
}

// ── Nodes ─────────────────────────────────────────────────────────────

type addNodeRequest struct {
	Type     workflow.NodeType `json:"type"`
	Label    string            `json:"label"`
	Position workflow.Position `json:"position"`
}

func (s *Server) addNode(c fiber.Ctx) error {
	var req addNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if req.Type == "" {
		return c.Status(400).JSON(fiber.Map{"error": "type is required"})
	}
	n := workflow.NewNode(req.Type, req.Label, req.Position)
	if err := s.store.Graph().AddNode(n); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	s.scheduleSave()
	return c.Status(201).JSON(nodeView(n))
}

func (s *Server) getNode(c fiber.Ctx) error {
	n, err := s.store.Node(c.Params("id"))
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "node not found"})
	}
	return c.JSON(nodeView(n))
}

type updateNodeRequest struct {
	Label    *string            `json:"label"`
	Position *workflow.Position `json:"position"`
	Config   map[string]any     `json:"config"`
}

func (s *Server) updateNode(c fiber.Ctx) error {
	var req updateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	n, err := s.store.Node(c.Params("id"))
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "node not found"})
	}
	u := workflow.Update{Label: req.Label, Position: req.Position}
	if req.Config != nil {
		raw := gjson.GetBytes(c.Body(), "config").Raw
		cfg, err := workflow.DecodeConfig(n.Type, []byte(raw))
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		u.Config = cfg
	}
	if err := s.store.UpdateNode(n.ID, u); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	s.scheduleSave()
	return c.SendStatus(204)
}

func (s *Server) deleteNode(c fiber.Ctx) error {
	id := c.Params("id")
	removed := s.store.Graph().RemoveNodes(func(n workflow.Node) bool { return n.ID == id })
	if removed == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "node not found"})
	}
	s.scheduleSave()
	return c.SendStatus(204)
}

type triggerRequest struct {
	Input string `json:"input"`
}

func (s *Server) triggerNode(c fiber.Ctx) error {
	var req triggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	err := s.engine.Trigger(context.Background(), c.Params("id"), workflow.TextPayload(req.Input))
	var unknown *workflow.UnknownNodeError
	if errors.As(err, &unknown) {
		return c.Status(404).JSON(fiber.Map{"error": "node not found"})
	}
	var noInput *workflow.InputRequiredError
	var noDownstream *workflow.NoDownstreamError
	if errors.As(err, &noInput) || errors.As(err, &noDownstream) {
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	s.scheduleSave()
	return c.SendStatus(202)
}

// ── Edges ─────────────────────────────────────────────────────────────

type addEdgeRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

func (s *Server) addEdge(c fiber.Ctx) error {
	var req addEdgeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	e, err := s.store.Graph().AddEdge(req.Source, req.Target)
	var unknown *workflow.UnknownNodeError
	if errors.As(err, &unknown) {
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	}
	var selfConn *workflow.SelfConnectionError
	var dup *workflow.DuplicateConnectionError
	if errors.As(err, &selfConn) || errors.As(err, &dup) {
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	s.scheduleSave()
	return c.Status(201).JSON(fiber.Map{
		"id":       e.ID,
		"source":   e.Source,
		"target":   e.Target,
		"animated": e.Animated,
	})
}

func (s *Server) deleteEdge(c fiber.Ctx) error {
	if !s.store.Graph().RemoveEdge(c.Params("id")) {
		return c.Status(404).JSON(fiber.Map{"error": "edge not found"})
	}
	s.scheduleSave()
	return c.SendStatus(204)
}

// ── Views ─────────────────────────────────────────────────────────────

func nodeView(n workflow.Node) fiber.Map {
	m := fiber.Map{
		"id":       n.ID,
		"type":     n.Type,
		"label":    n.Label,
		"position": n.Position,
		"config":   n.Config,
		"state": fiber.Map{
			"input":        n.State.Input.Text,
			"inputType":    n.State.InputType,
			"response":     n.State.Response.Text,
			"responseType": n.State.ResponseType,
			"processing":   n.State.Processing,
			"executed":     n.State.Executed,
			"error":        n.State.Err,
		},
	}
	if len(n.State.Context) > 0 {
		m["context"] = n.State.Context
	}
	return m
}
