package path

import (
	"context"
	"errors"
	"fmt"

	"github.com/natevvv/snaproute/pkg/graph"
)

var ErrUnknownNode = errors.New("unknown node")

// Path is a connected node sequence (persisted node ids) and its summed arc cost.
type Path struct {
	Nodes  []int64
	Weight float64
	KPIs   SearchKPIs
}

// SearchKPIs describe the work a search performed.
type SearchKPIs struct {
	PqPops       int // pops performed on the priority queue
	PqUpdates    int // pushes and decrease-key updates
	RelaxedEdges int // arcs that improved a tentative distance
}

type Navigator interface {
	// ShortestPath searches origin -> destination. A missing connection is
	// reported with ok == false and a nil error.
	ShortestPath(ctx context.Context, origin, destination int64) (p Path, ok bool, err error)
	Name() string
}

// NewNavigator returns the navigator registered under the given name.
func NewNavigator(name string, g *graph.Graph) (Navigator, error) {
	switch name {
	case "", "dijkstra":
		return NewDijkstra(g), nil
	case "astar":
		return NewAStar(g), nil
	default:
		return nil, fmt.Errorf("unknown navigator %q", name)
	}
}
