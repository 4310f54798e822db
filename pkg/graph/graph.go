package graph

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/natevvv/snaproute/pkg/geometry"
)

// NodeId is the dense index of a node inside a Graph. It is not the persisted
// node id; use Graph.NodeIndex to translate.
type NodeId = int

var (
	ErrUnknownNode = errors.New("edge references unknown node")
	ErrInvalidEdge = errors.New("invalid edge")
	ErrInvalidNode = errors.New("invalid node")
)

// Node is an intersection or end point of the road network, in the projected frame.
type Node struct {
	ID    int64
	Point orb.Point
	Type  string
	Name  string
}

// EdgeRecord is a road segment as it is persisted: directed From -> To with
// its full geometry in the same direction.
type EdgeRecord struct {
	ID       int64
	From     int64
	To       int64
	Length   float64
	Geometry orb.LineString
	OneWay   bool
}

// Edge is a traversable direction of a road segment. Reversed edges are only
// present when the graph was built bidirectional; they share ID and Length
// with their forward edge and carry the reversed geometry.
type Edge struct {
	ID       int64
	From     int64
	To       int64
	Length   float64
	Geometry orb.LineString
	OneWay   bool
	Reversed bool
}

// Arc is an outgoing connection of a node.
type Arc struct {
	To   NodeId
	Edge int // index into the graph's edges
	Cost float64
}

// Record returns the persisted form of a forward edge.
func (e Edge) Record() EdgeRecord {
	return EdgeRecord{ID: e.ID, From: e.From, To: e.To, Length: e.Length, Geometry: e.Geometry, OneWay: e.OneWay}
}

func (a Arc) Destination() NodeId { return a.To }

func (a Arc) Weight() float64 { return a.Cost }

type BuildOptions struct {
	// Bidirectional adds a reverse arc for every edge that is not one way.
	Bidirectional bool
}

// Graph is the immutable road network. It is safe for concurrent use once
// built since no method mutates it.
type Graph struct {
	nodes     []Node
	nodeIndex map[int64]NodeId

	edges        []Edge // forward edges first, then reversed ones
	forwardCount int
	edgeIndex    map[int64]int

	arcs    []Arc
	offsets []int

	bound orb.Bound
}

// Build creates the graph from node and edge records. It fails on the first
// inconsistent record instead of dropping it.
func Build(nodes []Node, records []EdgeRecord, opts BuildOptions) (*Graph, error) {
	g := &Graph{
		nodes:     make([]Node, 0, len(nodes)),
		nodeIndex: make(map[int64]NodeId, len(nodes)),
		edges:     make([]Edge, 0, len(records)),
		edgeIndex: make(map[int64]int, len(records)),
	}

	for _, n := range nodes {
		if _, exists := g.nodeIndex[n.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate node id %d", ErrInvalidNode, n.ID)
		}
		g.nodeIndex[n.ID] = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}

	for _, r := range records {
		if err := g.checkRecord(r); err != nil {
			return nil, err
		}
		g.edgeIndex[r.ID] = len(g.edges)
		g.edges = append(g.edges, Edge{ID: r.ID, From: r.From, To: r.To, Length: r.Length, Geometry: r.Geometry, OneWay: r.OneWay})
		if len(g.edges) == 1 {
			g.bound = r.Geometry.Bound()
		} else {
			g.bound = g.bound.Union(r.Geometry.Bound())
		}
	}
	g.forwardCount = len(g.edges)

	if opts.Bidirectional {
		for i := 0; i < g.forwardCount; i++ {
			forward := g.edges[i]
			if forward.OneWay {
				continue
			}
			g.edges = append(g.edges, Edge{
				ID:       forward.ID,
				From:     forward.To,
				To:       forward.From,
				Length:   forward.Length,
				Geometry: geometry.Reversed(forward.Geometry),
				Reversed: true,
			})
		}
	}

	g.buildArcs()
	return g, nil
}

func (g *Graph) checkRecord(r EdgeRecord) error {
	if _, exists := g.edgeIndex[r.ID]; exists {
		return fmt.Errorf("%w: duplicate edge id %d", ErrInvalidEdge, r.ID)
	}
	if _, ok := g.nodeIndex[r.From]; !ok {
		return fmt.Errorf("%w: edge %d from node %d", ErrUnknownNode, r.ID, r.From)
	}
	if _, ok := g.nodeIndex[r.To]; !ok {
		return fmt.Errorf("%w: edge %d to node %d", ErrUnknownNode, r.ID, r.To)
	}
	if math.IsNaN(r.Length) || math.IsInf(r.Length, 0) || r.Length <= 0 {
		return fmt.Errorf("%w: edge %d has length %v", ErrInvalidEdge, r.ID, r.Length)
	}
	if len(r.Geometry) < 2 || planar.Length(r.Geometry) == 0 {
		return fmt.Errorf("%w: edge %d has degenerate geometry", ErrInvalidEdge, r.ID)
	}
	return nil
}

// buildArcs lays the arcs out as an adjacency array, keeping the edge order
// per node.
func (g *Graph) buildArcs() {
	g.offsets = make([]int, len(g.nodes)+1)
	for _, e := range g.edges {
		g.offsets[g.nodeIndex[e.From]+1]++
	}
	for i := 1; i < len(g.offsets); i++ {
		g.offsets[i] += g.offsets[i-1]
	}

	g.arcs = make([]Arc, len(g.edges))
	next := make([]int, len(g.nodes))
	copy(next, g.offsets[:len(g.nodes)])
	for i, e := range g.edges {
		from := g.nodeIndex[e.From]
		g.arcs[next[from]] = Arc{To: g.nodeIndex[e.To], Edge: i, Cost: e.Length}
		next[from]++
	}
}

// Return the number of nodes
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Return the number of road segments (reverse arcs not counted)
func (g *Graph) EdgeCount() int { return g.forwardCount }

// Return the number of arcs, including reverse arcs
func (g *Graph) ArcCount() int { return len(g.arcs) }

// Bound is the bounding box of all edge geometries.
func (g *Graph) Bound() orb.Bound { return g.bound }

// NodeIndex translates a persisted node id into its dense index.
func (g *Graph) NodeIndex(id int64) (NodeId, bool) {
	idx, ok := g.nodeIndex[id]
	return idx, ok
}

// Return the node at the given dense index
func (g *Graph) Node(idx NodeId) Node {
	if idx < 0 || idx >= len(g.nodes) {
		panic(fmt.Sprintf("NodeId %d is not contained in the graph.", idx))
	}
	return g.nodes[idx]
}

func (g *Graph) NodeByID(id int64) (Node, bool) {
	idx, ok := g.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[idx], true
}

// Nodes returns all nodes in insertion order. The slice must not be modified.
func (g *Graph) Nodes() []Node { return g.nodes }

// Get the arcs for the given node
func (g *Graph) ArcsFrom(idx NodeId) []Arc {
	if idx < 0 || idx >= len(g.nodes) {
		panic(fmt.Sprintf("NodeId %d is not contained in the graph.", idx))
	}
	return g.arcs[g.offsets[idx]:g.offsets[idx+1]]
}

// Edge returns the edge at the given index (as referenced by Arc.Edge).
func (g *Graph) Edge(i int) *Edge { return &g.edges[i] }

// EdgeByID returns the forward edge with the given id.
func (g *Graph) EdgeByID(id int64) (*Edge, bool) {
	i, ok := g.edgeIndex[id]
	if !ok {
		return nil, false
	}
	return &g.edges[i], true
}

// Edges returns the forward edges in insertion order. The slice must not be modified.
func (g *Graph) Edges() []Edge { return g.edges[:g.forwardCount] }

// EdgeBetween returns the cheapest edge leading directly from -> to. On equal
// lengths the first inserted edge wins.
func (g *Graph) EdgeBetween(from, to int64) (*Edge, bool) {
	fromIdx, ok := g.nodeIndex[from]
	if !ok {
		return nil, false
	}
	toIdx, ok := g.nodeIndex[to]
	if !ok {
		return nil, false
	}
	var best *Edge
	for _, arc := range g.ArcsFrom(fromIdx) {
		if arc.To != toIdx {
			continue
		}
		if e := &g.edges[arc.Edge]; best == nil || e.Length < best.Length {
			best = e
		}
	}
	return best, best != nil
}

// Return a human readable string of the graph
func (g *Graph) AsString() string {
	var sb strings.Builder
	records := make([]EdgeRecord, 0, g.forwardCount)
	for _, e := range g.Edges() {
		records = append(records, e.Record())
	}
	// writing into a strings.Builder cannot fail
	_ = WriteNetwork(&sb, g.nodes, records)
	return sb.String()
}
