package routing

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natevvv/snaproute/pkg/graph"
	"github.com/natevvv/snaproute/pkg/graph/path"
	"github.com/natevvv/snaproute/pkg/snap"
)

// diamond: A(1) -> B(2) 10, A -> C(3) 3, C -> B 4, B -> D(4) 5
const diamondNetwork = `4
4
#Nodes
1	0	0	junction	A
2	10	0	junction	B
3	0	3	junction	C
4	15	0	end	D
#Edges
1	1	2	10	false	0 0,10 0
2	1	3	3	false	0 0,0 3
3	3	2	4	false	0 3,10 3,10 0
4	2	4	5	true	10 0,15 0
`

// two components: 1 -> 2 and 3 -> 4, plus a single 100m edge 5 -> 6
const splitNetwork = `6
3
#Nodes
1	0	0
2	10	0
3	0	50
4	10	50
5	0	100
6	100	100
#Edges
1	1	2	10	false	0 0,10 0
2	3	4	10	false	0 50,10 50
3	5	6	100	false	0 100,100 100
`

func network(t *testing.T, text string) *graph.Graph {
	t.Helper()
	g, err := graph.NewGraphFromNetworkString(text, graph.BuildOptions{})
	require.NoError(t, err)
	return g
}

func snapped(t *testing.T, g *graph.Graph, p orb.Point) snap.Result {
	t.Helper()
	idx, err := snap.NewIndex(g, snap.Options{})
	require.NoError(t, err)
	r, err := idx.Snap(p)
	require.NoError(t, err)
	return r
}

func resolve(t *testing.T, g *graph.Graph, start, end snap.Result) (Resolution, error) {
	t.Helper()
	return NewResolver(path.NewDijkstra(g), nil).Resolve(context.Background(), start, end)
}

func TestResolveDiamondTakesDetour(t *testing.T) {
	g := network(t, diamondNetwork)
	start := snapped(t, g, orb.Point{0, 0})
	end := snapped(t, g, orb.Point{15, 0})
	require.Equal(t, int64(1), start.EdgeID)
	require.Equal(t, 0.0, start.Fraction)
	require.Equal(t, int64(4), end.EdgeID)
	require.Equal(t, 1.0, end.Fraction)

	res, err := resolve(t, g, start, end)
	require.NoError(t, err)
	assert.False(t, res.SameEdge)
	assert.Equal(t, 12.0, res.Distance)

	// (1,2) and (1,4) both cost 12, the first one wins
	assert.Equal(t, int64(1), res.Best.StartNode)
	assert.Equal(t, int64(2), res.Best.EndNode)
	assert.Equal(t, []int64{1, 3, 2}, res.Best.Path.Nodes)
	assert.Equal(t, 0.0, res.Best.Entry)
	assert.Equal(t, 7.0, res.Best.Main)
	assert.Equal(t, 5.0, res.Best.Exit)

	require.Len(t, res.Evaluated, 4)
	for _, c := range res.Evaluated {
		assert.GreaterOrEqual(t, c.Total(), res.Best.Total(), "%d -> %d", c.StartNode, c.EndNode)
	}
}

func TestResolveSkipsDisconnectedCombinations(t *testing.T) {
	g := network(t, diamondNetwork)
	// on C -> B, close to C
	start := snapped(t, g, orb.Point{1, 3})
	// on A -> B, close to A
	end := snapped(t, g, orb.Point{1, 0})

	res, err := resolve(t, g, start, end)
	require.NoError(t, err)
	// nothing leads back to A, only B is reachable from C
	require.Len(t, res.Evaluated, 2)
	for _, c := range res.Evaluated {
		assert.Equal(t, int64(2), c.EndNode)
	}
	// leaving C -> B at B is cheaper than walking back to C and taking the edge
	assert.Equal(t, int64(2), res.Best.StartNode)
	assert.Equal(t, []int64{2}, res.Best.Path.Nodes)
	assert.InDelta(t, (1-start.Fraction)*4+9, res.Distance, 1e-9)
}

func TestResolveSameEdge(t *testing.T) {
	g := network(t, splitNetwork)
	start := snapped(t, g, orb.Point{20, 101})
	end := snapped(t, g, orb.Point{80, 99})

	res, err := resolve(t, g, start, end)
	require.NoError(t, err)
	assert.True(t, res.SameEdge)
	assert.InDelta(t, 60.0, res.Distance, 1e-9)
	assert.Empty(t, res.Evaluated)

	backwards, err := resolve(t, g, end, start)
	require.NoError(t, err)
	assert.InDelta(t, 60.0, backwards.Distance, 1e-9)
}

func TestResolveSameEdgeProperty(t *testing.T) {
	edge := snap.Result{EdgeID: 3, From: 5, To: 6, Length: 100}
	resolver := NewResolver(nil, nil)
	for _, f := range [][2]float64{{0, 1}, {0.25, 0.5}, {0.9, 0.1}, {0.33, 0.33}, {1, 1}} {
		start, end := edge, edge
		start.Fraction, end.Fraction = f[0], f[1]
		res, err := resolver.Resolve(context.Background(), start, end)
		require.NoError(t, err)
		diff := f[0] - f[1]
		if diff < 0 {
			diff = -diff
		}
		assert.InDelta(t, 100*diff, res.Distance, 1e-9)
	}
}

func TestResolveNoPath(t *testing.T) {
	g := network(t, splitNetwork)
	start := snapped(t, g, orb.Point{5, 1})
	end := snapped(t, g, orb.Point{5, 49})
	require.NotEqual(t, start.EdgeID, end.EdgeID)

	_, err := resolve(t, g, start, end)
	assert.ErrorIs(t, err, ErrNoPathFound)
}

func TestResolveCancelled(t *testing.T) {
	g := network(t, diamondNetwork)
	start := snapped(t, g, orb.Point{0, 0})
	end := snapped(t, g, orb.Point{15, 0})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewResolver(path.NewDijkstra(g), nil).Resolve(ctx, start, end)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComposeDiamond(t *testing.T) {
	g := network(t, diamondNetwork)
	res, err := resolve(t, g, snapped(t, g, orb.Point{0, 0}), snapped(t, g, orb.Point{15, 0}))
	require.NoError(t, err)

	c, err := NewComposer(g).Compose(res)
	require.NoError(t, err)
	assert.Equal(t, orb.LineString{{0, 0}, {0, 3}, {10, 3}, {10, 0}, {15, 0}}, c.Line)
	assert.InDelta(t, 3+13+5, c.Length, 1e-9)
}

func TestComposePartials(t *testing.T) {
	g := network(t, diamondNetwork)
	start := snapped(t, g, orb.Point{2, -1}) // on A -> B at 0.2
	end := snapped(t, g, orb.Point{12, 1})   // on B -> D at 0.4
	res, err := resolve(t, g, start, end)
	require.NoError(t, err)
	assert.InDelta(t, 8+2, res.Distance, 1e-9)

	c, err := NewComposer(g).Compose(res)
	require.NoError(t, err)
	assert.Equal(t, orb.LineString{{2, 0}, {10, 0}, {12, 0}}, c.Line)
	assert.Equal(t, start.Point, c.Line[0])
	assert.Equal(t, end.Point, c.Line[len(c.Line)-1])
}

func TestComposeSameEdge(t *testing.T) {
	g := network(t, splitNetwork)
	start := snapped(t, g, orb.Point{20, 101})
	end := snapped(t, g, orb.Point{80, 99})

	forward, err := resolve(t, g, start, end)
	require.NoError(t, err)
	c, err := NewComposer(g).Compose(forward)
	require.NoError(t, err)
	assert.Equal(t, orb.LineString{{20, 100}, {80, 100}}, c.Line)
	assert.InDelta(t, 60, c.Length, 1e-9)

	backward, err := resolve(t, g, end, start)
	require.NoError(t, err)
	c, err = NewComposer(g).Compose(backward)
	require.NoError(t, err)
	assert.Equal(t, orb.LineString{{80, 100}, {20, 100}}, c.Line, "runs from start to end")
}

func TestComposeCoincidentPoints(t *testing.T) {
	g := network(t, splitNetwork)
	p := snapped(t, g, orb.Point{40, 100})
	res, err := resolve(t, g, p, p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Distance)

	c, err := NewComposer(g).Compose(res)
	require.NoError(t, err)
	assert.Equal(t, orb.LineString{{40, 100}, {40, 100}}, c.Line)
	assert.Zero(t, c.Length)
}

func TestComposeZeroDistanceAcrossEdges(t *testing.T) {
	g := network(t, diamondNetwork)
	// both points sit on node B: end of A -> B and start of B -> D
	start := snap.Result{EdgeID: 1, From: 1, To: 2, Length: 10, Fraction: 1, Point: orb.Point{10, 0}}
	end := snap.Result{EdgeID: 4, From: 2, To: 4, Length: 5, Fraction: 0, Point: orb.Point{10, 0}}
	res, err := resolve(t, g, start, end)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Distance)

	c, err := NewComposer(g).Compose(res)
	require.NoError(t, err)
	assert.Equal(t, orb.LineString{{10, 0}, {10, 0}}, c.Line)
}

func TestComposeFailures(t *testing.T) {
	g := network(t, diamondNetwork)
	start := snap.Result{EdgeID: 1, From: 1, To: 2, Length: 10, Fraction: 0.5, Point: orb.Point{5, 0}}
	end := snap.Result{EdgeID: 4, From: 2, To: 4, Length: 5, Fraction: 0.5, Point: orb.Point{12.5, 0}}

	tests := []struct {
		name string
		res  Resolution
	}{
		{"missing edge for a step", Resolution{Start: start, End: end, Distance: 10, Best: Candidate{Path: path.Path{Nodes: []int64{1, 4}}}}},
		{"edge against its direction", Resolution{Start: start, End: end, Distance: 10, Best: Candidate{Path: path.Path{Nodes: []int64{2, 1, 2}}}}},
		{"path not touching start edge", Resolution{Start: start, End: end, Distance: 10, Best: Candidate{Path: path.Path{Nodes: []int64{3, 2}}}}},
		{"path not touching end edge", Resolution{Start: start, End: end, Distance: 10, Best: Candidate{Path: path.Path{Nodes: []int64{1, 3}}}}},
		{"empty path", Resolution{Start: start, End: end, Distance: 10}},
		{"unknown edge", Resolution{Start: snap.Result{EdgeID: 99}, End: end, Distance: 10, Best: Candidate{Path: path.Path{Nodes: []int64{2}}}}},
		{"same edge missing", Resolution{Start: snap.Result{EdgeID: 99}, End: snap.Result{EdgeID: 99}, SameEdge: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewComposer(g).Compose(tt.res)
			assert.ErrorIs(t, err, ErrComposition)
		})
	}
}
