package snap

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"

	"github.com/natevvv/snaproute/pkg/geometry"
	"github.com/natevvv/snaproute/pkg/graph"
)

// DefaultPieceLength is used when Options.PieceLength is not set. In a metric
// frame this is meters.
const DefaultPieceLength = 50.0

var ErrNoSegmentFound = errors.New("could not snap to network")

type Options struct {
	// PieceLength bounds the length of the pieces each line segment is cut
	// into before indexing. Smaller pieces mean more index entries but fewer
	// exact distance computations per query.
	PieceLength float64
	// MaxRadius rejects matches farther away than this. 0 means unlimited.
	MaxRadius float64
}

// Result is a query point matched onto a road segment.
type Result struct {
	EdgeID   int64
	From     int64
	To       int64
	Length   float64
	Fraction float64   // 0 at From, 1 at To, clamped
	Point    orb.Point // projection of the query point onto the edge
	Distance float64   // planar distance between query point and Point
	Segment  int       // segment of the edge geometry holding Point
}

// piece is an indexed part of one straight segment of an edge geometry. It is
// found through its midpoint.
type piece struct {
	mid     orb.Point
	edge    int // index into Graph.Edges()
	segment int
}

func (p *piece) Point() orb.Point { return p.mid }

// Index answers nearest segment queries on a graph. It is immutable after
// NewIndex and safe for concurrent use.
type Index struct {
	g       *graph.Graph
	edges   []graph.Edge
	tree    *quadtree.Quadtree
	pieces  int
	maxHalf float64 // largest half length of any piece
	opts    Options
}

// NewIndex indexes the forward edges of g. Reverse arcs of a bidirectional
// graph share geometry with their forward edge and are not indexed twice.
func NewIndex(g *graph.Graph, opts Options) (*Index, error) {
	if opts.PieceLength < 0 || math.IsNaN(opts.PieceLength) {
		return nil, fmt.Errorf("invalid piece length %v", opts.PieceLength)
	}
	if opts.MaxRadius < 0 || math.IsNaN(opts.MaxRadius) {
		return nil, fmt.Errorf("invalid max radius %v", opts.MaxRadius)
	}
	if opts.PieceLength == 0 {
		opts.PieceLength = DefaultPieceLength
	}

	idx := &Index{
		g:     g,
		edges: g.Edges(),
		tree:  quadtree.New(g.Bound()),
		opts:  opts,
	}

	for e, edge := range idx.edges {
		for s := 0; s+1 < len(edge.Geometry); s++ {
			a, b := edge.Geometry[s], edge.Geometry[s+1]
			length := planar.Distance(a, b)
			if length == 0 {
				continue
			}
			count := int(math.Ceil(length / opts.PieceLength))
			if count < 1 {
				count = 1
			}
			half := length / float64(count) / 2
			if half > idx.maxHalf {
				idx.maxHalf = half
			}
			for i := 0; i < count; i++ {
				t := (float64(i) + 0.5) / float64(count)
				mid := orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
				if err := idx.tree.Add(&piece{mid: mid, edge: e, segment: s}); err != nil {
					return nil, fmt.Errorf("index edge %d: %w", edge.ID, err)
				}
				idx.pieces++
			}
		}
	}
	return idx, nil
}

// Pieces returns the number of indexed segment pieces.
func (idx *Index) Pieces() int { return idx.pieces }

type candidate struct {
	edge     int
	segment  int
	point    orb.Point
	t        float64
	distance float64
}

// better reports whether c beats o: smaller distance, then lower edge id, then
// earlier segment.
func (c candidate) better(o candidate, edges []graph.Edge) bool {
	if c.distance != o.distance {
		return c.distance < o.distance
	}
	if edges[c.edge].ID != edges[o.edge].ID {
		return edges[c.edge].ID < edges[o.edge].ID
	}
	return c.segment < o.segment
}

func (idx *Index) measure(edge, segment int, p orb.Point) candidate {
	ls := idx.edges[edge].Geometry
	q, t := geometry.ProjectOntoSegment(ls[segment], ls[segment+1], p)
	return candidate{edge: edge, segment: segment, point: q, t: t, distance: planar.Distance(p, q)}
}

// Snap finds the segment nearest to p, which must be in the frame of the graph.
//
// The nearest piece midpoint gives an upper bound U for the answer. Every
// point of a piece is within maxHalf of its midpoint, so the piece holding the
// true nearest point has its midpoint within U+maxHalf of p and is returned by
// the bound query.
func (idx *Index) Snap(p orb.Point) (Result, error) {
	seed := idx.tree.Find(p)
	if seed == nil {
		return Result{}, ErrNoSegmentFound
	}
	sp := seed.(*piece)
	best := idx.measure(sp.edge, sp.segment, p)

	radius := best.distance + idx.maxHalf
	bound := orb.Bound{
		Min: orb.Point{p[0] - radius, p[1] - radius},
		Max: orb.Point{p[0] + radius, p[1] + radius},
	}

	type key struct{ edge, segment int }
	seen := map[key]bool{{sp.edge, sp.segment}: true}
	for _, found := range idx.tree.InBound(nil, bound) {
		pc := found.(*piece)
		k := key{pc.edge, pc.segment}
		if seen[k] {
			continue
		}
		seen[k] = true
		if c := idx.measure(pc.edge, pc.segment, p); c.better(best, idx.edges) {
			best = c
		}
	}

	if idx.opts.MaxRadius > 0 && best.distance > idx.opts.MaxRadius {
		return Result{}, fmt.Errorf("%w: nearest segment is %.1f away, limit %.1f", ErrNoSegmentFound, best.distance, idx.opts.MaxRadius)
	}

	edge := idx.edges[best.edge]
	return Result{
		EdgeID:   edge.ID,
		From:     edge.From,
		To:       edge.To,
		Length:   edge.Length,
		Fraction: geometry.FractionAt(edge.Geometry, best.segment, best.t),
		Point:    best.point,
		Distance: best.distance,
		Segment:  best.segment,
	}, nil
}
