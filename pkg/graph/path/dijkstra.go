package path

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/paulmach/orb/planar"

	"github.com/natevvv/snaproute/pkg/graph"
	"github.com/natevvv/snaproute/pkg/queue"
	"github.com/natevvv/snaproute/pkg/slice"
)

// number of queue pops between two context checks
const cancelCheckInterval = 1024

// Dijkstra searches the graph with non-negative arc costs. All search state is
// allocated per call, so one instance may serve concurrent queries.
//
// With the heuristic enabled it runs A* using the straight line distance in
// the projected frame, scaled down by the smallest cost to chord ratio found on
// any arc. Stored lengths shorter than their chord keep the estimate admissible.
type Dijkstra struct {
	g            *graph.Graph
	useHeuristic bool
	scale        float64
}

func NewDijkstra(g *graph.Graph) *Dijkstra {
	return &Dijkstra{g: g}
}

func NewAStar(g *graph.Graph) *Dijkstra {
	return &Dijkstra{g: g, useHeuristic: true, scale: heuristicScale(g)}
}

// heuristicScale returns min(1, cost/chord) over all arcs with a non-zero chord.
func heuristicScale(g *graph.Graph) float64 {
	scale := 1.0
	for idx := 0; idx < g.NodeCount(); idx++ {
		from := g.Node(graph.NodeId(idx)).Point
		for _, arc := range g.ArcsFrom(graph.NodeId(idx)) {
			chord := planar.Distance(from, g.Node(arc.Destination()).Point)
			if chord == 0 {
				continue
			}
			if ratio := arc.Weight() / chord; ratio < scale {
				scale = ratio
			}
		}
	}
	return scale
}

func (d *Dijkstra) Name() string {
	if d.useHeuristic {
		return "astar"
	}
	return "dijkstra"
}

func (d *Dijkstra) ShortestPath(ctx context.Context, origin, destination int64) (Path, bool, error) {
	originIdx, ok := d.g.NodeIndex(origin)
	if !ok {
		return Path{}, false, fmt.Errorf("%w: origin %d", ErrUnknownNode, origin)
	}
	destinationIdx, ok := d.g.NodeIndex(destination)
	if !ok {
		return Path{}, false, fmt.Errorf("%w: destination %d", ErrUnknownNode, destination)
	}

	items, kpis, err := d.search(ctx, originIdx, destinationIdx)
	if err != nil {
		return Path{}, false, err
	}
	if items[destinationIdx] == nil {
		return Path{KPIs: kpis}, false, nil
	}

	nodes := make([]int64, 0)
	for nodeIdx := destinationIdx; nodeIdx != -1; nodeIdx = items[nodeIdx].Predecessor {
		nodes = append(nodes, d.g.Node(nodeIdx).ID)
	}
	slice.ReverseInPlace(nodes)
	return Path{Nodes: nodes, Weight: items[destinationIdx].Distance, KPIs: kpis}, true, nil
}

func (d *Dijkstra) search(ctx context.Context, origin, destination graph.NodeId) ([]*queue.Item, SearchKPIs, error) {
	var kpis SearchKPIs
	items := make([]*queue.Item, d.g.NodeCount())
	settled := make([]bool, d.g.NodeCount())

	items[origin] = queue.NewQueueItem(origin, 0, d.estimate(origin, destination), -1)
	pq := queue.NewQueue(items[origin])

	for pq.Len() > 0 {
		if kpis.PqPops%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, kpis, err
			}
		}

		current := heap.Pop(pq).(*queue.Item)
		kpis.PqPops++
		settled[current.ItemId] = true

		if current.ItemId == destination {
			break
		}

		for _, arc := range d.g.ArcsFrom(current.ItemId) {
			successor := arc.Destination()
			if settled[successor] {
				continue
			}
			distance := current.Distance + arc.Weight()
			if items[successor] == nil {
				items[successor] = queue.NewQueueItem(successor, distance, d.estimate(successor, destination), current.ItemId)
				heap.Push(pq, items[successor])
				kpis.PqUpdates++
				kpis.RelaxedEdges++
			} else if distance < items[successor].Distance {
				pq.Update(items[successor], distance, d.estimate(successor, destination))
				items[successor].Predecessor = current.ItemId
				kpis.PqUpdates++
				kpis.RelaxedEdges++
			}
		}
	}

	return items, kpis, nil
}

func (d *Dijkstra) estimate(from, to graph.NodeId) float64 {
	if !d.useHeuristic {
		return 0
	}
	return d.scale * planar.Distance(d.g.Node(from).Point, d.g.Node(to).Point)
}
