// Package domain contains the core models of the claim graph: levels and
// locations, graph snapshots, raw level payloads and layout parameters.
package domain

import (
	"errors"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

// NodeID identifies a node within one snapshot.
type NodeID string

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is a graph vertex. Payload is carried through the layout untouched.
// Position, when set, is used as the initial placement.
type Node struct {
	ID       NodeID
	Payload  any
	Position *Point
}

// Edge connects two nodes. Edges are undirected for layout purposes.
type Edge struct {
	Source NodeID `json:"source" yaml:"source"`
	Target NodeID `json:"target" yaml:"target"`
}

// IsSelfLoop reports whether the edge starts and ends on the same node.
func (e Edge) IsSelfLoop() bool {
	return e.Source == e.Target
}

// SnapshotOption configures snapshot construction.
type SnapshotOption func(*snapshotConfig)

type snapshotConfig struct {
	strictEdges bool
}

// WithStrictEdges makes dangling edges an error instead of dropping them.
func WithStrictEdges(strict bool) SnapshotOption {
	return func(c *snapshotConfig) {
		c.strictEdges = strict
	}
}

// Snapshot is an immutable, validated graph: node ids are unique and every
// edge references nodes of the snapshot.
type Snapshot struct {
	nodes   []Node
	edges   []Edge
	index   map[NodeID]int
	dropped int
}

// NewSnapshot validates nodes and edges and builds a Snapshot.
// Duplicate node ids are rejected. Edges referencing unknown nodes are
// dropped unless strict edges are requested.
func NewSnapshot(nodes []Node, edges []Edge, opts ...SnapshotOption) (*Snapshot, error) {
	cfg := snapshotConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Snapshot{
		nodes: make([]Node, len(nodes)),
		edges: make([]Edge, 0, len(edges)),
		index: make(map[NodeID]int, len(nodes)),
	}
	for i, n := range nodes {
		if first, exists := s.index[n.ID]; exists {
			err := zerr.With(zerr.Wrap(ErrDuplicateNode, "snapshot rejected"), "node_id", string(n.ID))
			return nil, zerr.With(err, "first_index", first)
		}
		s.index[n.ID] = i
		if n.Position != nil {
			p := *n.Position
			n.Position = &p
		}
		s.nodes[i] = n
	}

	for _, e := range edges {
		_, okSource := s.index[e.Source]
		_, okTarget := s.index[e.Target]
		if okSource && okTarget {
			s.edges = append(s.edges, e)
			continue
		}
		if cfg.strictEdges {
			err := zerr.With(zerr.Wrap(ErrDanglingEdge, "snapshot rejected"), "source", string(e.Source))
			return nil, zerr.With(err, "target", string(e.Target))
		}
		s.dropped++
	}

	return s, nil
}

// Len returns the number of nodes.
func (s *Snapshot) Len() int {
	return len(s.nodes)
}

// Nodes returns a copy of the nodes in insertion order.
func (s *Snapshot) Nodes() []Node {
	return slices.Clone(s.nodes)
}

// Node returns the node at index i.
func (s *Snapshot) Node(i int) Node {
	return s.nodes[i]
}

// Edges returns a copy of the retained edges in insertion order.
func (s *Snapshot) Edges() []Edge {
	return slices.Clone(s.edges)
}

// Index returns the position of id in the node order.
func (s *Snapshot) Index(id NodeID) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// DroppedEdges returns how many dangling edges were discarded.
func (s *Snapshot) DroppedEdges() int {
	return s.dropped
}

// Fingerprint hashes node ids and edges. Payloads are not included.
func (s *Snapshot) Fingerprint() uint64 {
	d := xxhash.New()
	for _, n := range s.nodes {
		_, _ = d.WriteString(string(n.ID))
		_, _ = d.Write([]byte{0})
	}
	_, _ = d.Write([]byte{1})
	for _, e := range s.edges {
		_, _ = d.WriteString(string(e.Source))
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(string(e.Target))
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

// PositionedNode is a node with its final layout coordinate.
type PositionedNode struct {
	ID       NodeID `json:"id" yaml:"id"`
	Payload  any    `json:"payload,omitempty" yaml:"payload,omitempty"`
	Position Point  `json:"position" yaml:"position"`
}

// PositionedSnapshot is the frozen output of a layout run.
type PositionedSnapshot struct {
	Nodes       []PositionedNode `json:"nodes" yaml:"nodes"`
	Edges       []Edge           `json:"edges" yaml:"edges"`
	Fingerprint uint64           `json:"fingerprint,string" yaml:"fingerprint"`
}

// Node looks up a positioned node by id.
func (p *PositionedSnapshot) Node(id NodeID) (PositionedNode, bool) {
	if p == nil {
		return PositionedNode{}, false
	}
	for _, n := range p.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return PositionedNode{}, false
}

// ETag renders the fingerprint as a quoted HTTP entity tag.
func (p *PositionedSnapshot) ETag() string {
	if p == nil {
		return `""`
	}
	return `"` + strconv.FormatUint(p.Fingerprint, 16) + `"`
}

// IsMalformed reports whether err stems from graph validation.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedGraph)
}
