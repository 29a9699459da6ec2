package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Snapshot codec for the JSON shape the canvas UI persists: nodes with
// position and a data bag, edges with source/target/animated. Decoding
// is tolerant — missing fields default, unknown node types fall back to
// a generic config — because persisted snapshots come from many UI
// revisions.

// snapshotNode is the serialized form of a node.
type snapshotNode struct {
	ID       string           `json:"id"`
	Position Position         `json:"position"`
	Data     snapshotNodeData `json:"data"`
}

type snapshotNodeData struct {
	Label        string          `json:"label,omitempty"`
	Type         NodeType        `json:"type"`
	Config       json.RawMessage `json:"config,omitempty"`
	Input        string          `json:"input,omitempty"`
	InputType    PayloadType     `json:"inputType,omitempty"`
	Response     string          `json:"response,omitempty"`
	ResponseType PayloadType     `json:"responseType,omitempty"`
	Error        string          `json:"error,omitempty"`
	Executed     bool            `json:"executed,omitempty"`
	Context      []Exchange      `json:"context,omitempty"`
}

type snapshotEdge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Animated bool   `json:"animated"`
}

type snapshot struct {
	Nodes []snapshotNode `json:"nodes"`
	Edges []snapshotEdge `json:"edges"`
}

// EncodeSnapshot serializes a graph. Binary payloads are not carried in
// snapshots: only text inputs and responses survive a save/load cycle.
func EncodeSnapshot(g *Graph) ([]byte, error) {
	// Empty collections encode as [] rather than null so decoders can
	// iterate them unconditionally.
	snap := snapshot{
		Nodes: []snapshotNode{},
		Edges: []snapshotEdge{},
	}
	for _, n := range g.Nodes() {
		var rawCfg json.RawMessage
		if n.Config != nil {
			b, err := json.Marshal(n.Config)
			if err != nil {
				return nil, fmt.Errorf("encode node %q config: %w", n.ID, err)
			}
			rawCfg = b
		}
		sn := snapshotNode{
			ID:       n.ID,
			Position: n.Position,
			Data: snapshotNodeData{
				Label:    n.Label,
				Type:     n.Type,
				Config:   rawCfg,
				Error:    n.State.Err,
				Executed: n.State.Executed,
				Context:  n.State.Context,
			},
		}
		if n.State.Input.IsText() {
			sn.Data.Input = n.State.Input.Text
			sn.Data.InputType = n.State.InputType
		}
		if n.State.Response.IsText() {
			sn.Data.Response = n.State.Response.Text
			sn.Data.ResponseType = n.State.ResponseType
		}
		snap.Nodes = append(snap.Nodes, sn)
	}
	for _, e := range g.Edges() {
		snap.Edges = append(snap.Edges, snapshotEdge{
			ID: e.ID, Source: e.Source, Target: e.Target, Animated: e.Animated,
		})
	}
	return json.MarshalIndent(snap, "", "  ")
}

// DecodeSnapshot rebuilds a graph from serialized form. Both collections
// are guarded with IsArray: older snapshots carry null for empty ones,
// and gjson's ForEach on a null invokes the iterator once with an empty
// element.
func DecodeSnapshot(data []byte) (*Graph, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("snapshot is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	g := NewGraph()

	var decodeErr error
	if nodes := root.Get("nodes"); nodes.IsArray() {
		nodes.ForEach(func(_, v gjson.Result) bool {
			id := v.Get("id").String()
			if id == "" {
				decodeErr = fmt.Errorf("snapshot node missing id")
				return false
			}
			data := v.Get("data")
			t := NodeType(data.Get("type").String())

			var rawCfg []byte
			if cfg := data.Get("config"); cfg.Exists() {
				rawCfg = []byte(cfg.Raw)
			}
			cfg, err := DecodeConfig(t, rawCfg)
			if err != nil {
				decodeErr = fmt.Errorf("node %q: %w", id, err)
				return false
			}

			n := Node{
				ID:    id,
				Type:  t,
				Label: data.Get("label").String(),
				Position: Position{
					X: v.Get("position.x").Float(),
					Y: v.Get("position.y").Float(),
				},
				Config: cfg,
				State: RuntimeState{
					Err:      data.Get("error").String(),
					Executed: data.Get("executed").Bool(),
				},
			}
			if in := data.Get("input"); in.Exists() && in.String() != "" {
				n.State.Input = TextPayload(in.String())
				n.State.InputType = PayloadType(data.Get("inputType").String())
				if n.State.InputType == "" {
					n.State.InputType = PayloadText
				}
			}
			if resp := data.Get("response"); resp.Exists() && resp.String() != "" {
				n.State.Response = TextPayload(resp.String())
				n.State.ResponseType = PayloadType(data.Get("responseType").String())
				if n.State.ResponseType == "" {
					n.State.ResponseType = PayloadText
				}
			}
			if ctx := data.Get("context"); ctx.Exists() {
				var exchanges []Exchange
				if err := json.Unmarshal([]byte(ctx.Raw), &exchanges); err == nil {
					n.State.Context = exchanges
				}
			}
			if err := g.AddNode(n); err != nil {
				decodeErr = err
				return false
			}
			return true
		})
	}
	if decodeErr != nil {
		return nil, decodeErr
	}

	if edges := root.Get("edges"); edges.IsArray() {
		edges.ForEach(func(_, v gjson.Result) bool {
			e := Edge{
				ID:       v.Get("id").String(),
				Source:   v.Get("source").String(),
				Target:   v.Get("target").String(),
				Animated: v.Get("animated").Bool(),
			}
			if err := g.restoreEdge(e); err != nil {
				decodeErr = err
				return false
			}
			return true
		})
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return g, nil
}

// maxInlineResponse is the longest response a reduced-fidelity snapshot
// keeps, matching the persistence adapter's degraded-save policy.
const maxInlineResponse = 1000

// CompressSnapshot returns a reduced-fidelity copy of a serialized
// snapshot: responses longer than maxInlineResponse and all
// conversation context are dropped. Used as the overflow fallback when
// a full snapshot exceeds the storage limit.
func CompressSnapshot(data []byte) ([]byte, error) {
	out := data
	nodes := gjson.GetBytes(data, "nodes")
	var err error
	nodes.ForEach(func(idx, v gjson.Result) bool {
		i := idx.Int()
		if resp := v.Get("data.response"); resp.Exists() && len(resp.String()) > maxInlineResponse {
			out, err = sjson.DeleteBytes(out, fmt.Sprintf("nodes.%d.data.response", i))
			if err != nil {
				return false
			}
			out, err = sjson.DeleteBytes(out, fmt.Sprintf("nodes.%d.data.responseType", i))
			if err != nil {
				return false
			}
		}
		if v.Get("data.context").Exists() {
			out, err = sjson.DeleteBytes(out, fmt.Sprintf("nodes.%d.data.context", i))
			if err != nil {
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return out, nil
}
