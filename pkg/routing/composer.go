package routing

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/natevvv/snaproute/pkg/geometry"
	"github.com/natevvv/snaproute/pkg/graph"
)

// Composition is a route line in the frame of the graph.
type Composition struct {
	Line   orb.LineString
	Length float64 // planar length of Line
}

type Composer struct {
	g *graph.Graph
}

func NewComposer(g *graph.Graph) *Composer {
	return &Composer{g: g}
}

// Compose stitches the line for a resolution. It always runs from the start
// snapped point to the end snapped point.
func (c *Composer) Compose(res Resolution) (Composition, error) {
	var line orb.LineString
	var err error
	if res.SameEdge {
		line, err = c.sameEdge(res)
	} else {
		line, err = c.acrossEdges(res)
	}
	if err != nil {
		return Composition{}, err
	}

	if geometry.DistinctCount(line) < 2 {
		if res.Distance > 0 {
			return Composition{}, fmt.Errorf("%w: %d distinct coordinates for a route of %.3f", ErrComposition, geometry.DistinctCount(line), res.Distance)
		}
		line = orb.LineString{res.Start.Point, res.Start.Point}
	}
	line[0] = res.Start.Point
	line[len(line)-1] = res.End.Point
	return Composition{Line: line, Length: planar.Length(line)}, nil
}

func (c *Composer) edge(id int64) (*graph.Edge, error) {
	e, ok := c.g.EdgeByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: edge %d is not in the graph", ErrComposition, id)
	}
	return e, nil
}

func (c *Composer) sameEdge(res Resolution) (orb.LineString, error) {
	e, err := c.edge(res.Start.EdgeID)
	if err != nil {
		return nil, err
	}
	line := geometry.Substring(e.Geometry, res.Start.Fraction, res.End.Fraction)
	if res.Start.Fraction > res.End.Fraction {
		line = geometry.Reversed(line)
	}
	return line, nil
}

func (c *Composer) acrossEdges(res Resolution) (orb.LineString, error) {
	nodes := res.Best.Path.Nodes
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: empty node path", ErrComposition)
	}
	first, last := nodes[0], nodes[len(nodes)-1]

	startEdge, err := c.edge(res.Start.EdgeID)
	if err != nil {
		return nil, err
	}
	endEdge, err := c.edge(res.End.EdgeID)
	if err != nil {
		return nil, err
	}

	pieces := make([]orb.LineString, 0, len(nodes)+1)

	// snapped start point -> first node
	f := res.Start.Fraction
	switch first {
	case startEdge.From:
		pieces = append(pieces, geometry.Reversed(geometry.Substring(startEdge.Geometry, 0, f)))
	case startEdge.To:
		pieces = append(pieces, geometry.Substring(startEdge.Geometry, f, 1))
	default:
		return nil, fmt.Errorf("%w: path starts at node %d which is not on edge %d", ErrComposition, first, startEdge.ID)
	}

	for i := 0; i+1 < len(nodes); i++ {
		e, ok := c.g.EdgeBetween(nodes[i], nodes[i+1])
		if !ok {
			return nil, fmt.Errorf("%w: no edge %d -> %d", ErrComposition, nodes[i], nodes[i+1])
		}
		pieces = append(pieces, e.Geometry)
	}

	// last node -> snapped end point
	f = res.End.Fraction
	switch last {
	case endEdge.From:
		pieces = append(pieces, geometry.Substring(endEdge.Geometry, 0, f))
	case endEdge.To:
		pieces = append(pieces, geometry.Reversed(geometry.Substring(endEdge.Geometry, f, 1)))
	default:
		return nil, fmt.Errorf("%w: path ends at node %d which is not on edge %d", ErrComposition, last, endEdge.ID)
	}

	line, err := geometry.Join(pieces...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrComposition, err)
	}
	return line, nil
}
