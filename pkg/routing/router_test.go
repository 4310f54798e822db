package routing

import (
	"context"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natevvv/snaproute/pkg/geometry"
	"github.com/natevvv/snaproute/pkg/graph"
	"github.com/natevvv/snaproute/pkg/snap"
)

// plane maps lon/lat one to one onto x/y so small synthetic networks can be
// addressed with geographic coordinates.
type plane struct{}

func (plane) Name() string { return "plane" }

func (plane) Forward(ll geometry.LatLon) orb.Point { return orb.Point{ll.Lon, ll.Lat} }

func (plane) Inverse(p orb.Point) geometry.LatLon { return geometry.LatLon{Lat: p[1], Lon: p[0]} }

func newRouter(t *testing.T, g *graph.Graph, navigator string, snapOpts snap.Options, logger *logrus.Logger) *Router {
	t.Helper()
	idx, err := snap.NewIndex(g, snapOpts)
	require.NoError(t, err)
	r, err := NewRouter(g, idx, plane{}, Options{Navigator: navigator, MaxConcurrent: 2, Logger: logger})
	require.NoError(t, err)
	return r
}

// gridNetwork is a bidirectional n x n grid with spacing 10 whose lengths
// match the geometry.
func gridNetwork(t *testing.T, n int) *graph.Graph {
	t.Helper()
	id := func(x, y int) int64 { return int64(y*n + x + 1) }
	nodes := make([]graph.Node, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			nodes = append(nodes, graph.Node{ID: id(x, y), Point: orb.Point{float64(10 * x), float64(10 * y)}})
		}
	}
	edges := make([]graph.EdgeRecord, 0)
	add := func(a, b int64) {
		line := orb.LineString{nodes[a-1].Point, nodes[b-1].Point}
		edges = append(edges, graph.EdgeRecord{ID: int64(len(edges) + 1), From: a, To: b, Length: planar.Length(line), Geometry: line})
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if x+1 < n {
				add(id(x, y), id(x+1, y))
			}
			if y+1 < n {
				add(id(x, y+1), id(x, y))
			}
		}
	}
	g, err := graph.Build(nodes, edges, graph.BuildOptions{Bidirectional: true})
	require.NoError(t, err)
	return g
}

func TestRouteDiamond(t *testing.T) {
	for _, navigator := range []string{"dijkstra", "astar"} {
		t.Run(navigator, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			r := newRouter(t, network(t, diamondNetwork), navigator, snap.Options{}, logger)

			route, err := r.Route(context.Background(), geometry.MakeLatLon(0, 0), geometry.MakeLatLon(0, 15))
			require.NoError(t, err)
			assert.Equal(t, 12.0, route.Distance)
			assert.Equal(t, []int64{1, 3, 2}, route.Nodes)
			assert.Equal(t, orb.LineString{{0, 0}, {0, 3}, {10, 3}, {10, 0}, {15, 0}}, route.Geometry)

			// C -> B is 4 long but its geometry is 13
			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
			assert.Equal(t, "route geometry length differs from its cost", hook.LastEntry().Message)
		})
	}
}

func TestRouteSameEdge(t *testing.T) {
	r := newRouter(t, network(t, splitNetwork), "dijkstra", snap.Options{}, nil)

	_, err := r.Route(context.Background(), geometry.MakeLatLon(101, 20), geometry.MakeLatLon(99, 80))
	assert.ErrorIs(t, err, ErrInvalidCoordinate, "latitude 101 is out of range")

	route, err := r.Route(context.Background(), geometry.MakeLatLon(80, 20), geometry.MakeLatLon(89, 80))
	require.NoError(t, err)
	assert.True(t, route.SameEdge)
	assert.InDelta(t, 60.0, route.Distance, 1e-9)
	assert.Equal(t, orb.LineString{{20, 100}, {80, 100}}, route.Geometry)
	assert.Empty(t, route.Nodes)
}

func TestRouteErrors(t *testing.T) {
	r := newRouter(t, network(t, splitNetwork), "dijkstra", snap.Options{MaxRadius: 5}, nil)

	_, err := r.Route(context.Background(), geometry.MakeLatLon(1, 5), geometry.MakeLatLon(49, 5))
	assert.ErrorIs(t, err, ErrNoPathFound)

	_, err = r.Route(context.Background(), geometry.MakeLatLon(1, 5), geometry.MakeLatLon(75, 5))
	assert.ErrorIs(t, err, ErrNoSegmentFound)

	_, err = r.Route(context.Background(), geometry.MakeLatLon(1, 5), geometry.MakeLatLon(0, 181))
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestRouteCancelled(t *testing.T) {
	r := newRouter(t, network(t, diamondNetwork), "dijkstra", snap.Options{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Route(ctx, geometry.MakeLatLon(0, 0), geometry.MakeLatLon(0, 15))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnap(t *testing.T) {
	r := newRouter(t, network(t, diamondNetwork), "dijkstra", snap.Options{}, nil)
	s, err := r.Snap(context.Background(), geometry.MakeLatLon(-2, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.EdgeID)
	assert.InDelta(t, 0.4, s.Fraction, 1e-12)
	assert.Equal(t, geometry.MakeLatLon(0, 4), s.Location)
	assert.InDelta(t, 2, s.Distance, 1e-12)

	_, err = r.Snap(context.Background(), geometry.MakeLatLon(-91, 0))
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

// On a network whose lengths match its geometry the stitched line must start
// and end at the snapped points and be exactly as long as the route cost.
func TestRouteGeometryContinuity(t *testing.T) {
	r := newRouter(t, gridNetwork(t, 5), "astar", snap.Options{PieceLength: 3}, nil)
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 300; i++ {
		from := geometry.MakeLatLon(rng.Float64()*50-5, rng.Float64()*50-5)
		to := geometry.MakeLatLon(rng.Float64()*50-5, rng.Float64()*50-5)

		route, err := r.Route(context.Background(), from, to)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(route.Geometry), 2)

		assert.Equal(t, route.Start.Point, route.Geometry[0])
		assert.Equal(t, route.End.Point, route.Geometry[len(route.Geometry)-1])
		assert.InDelta(t, route.Distance, route.GeometryLength, 1e-6)
		assert.InDelta(t, route.Distance, planar.Length(route.Geometry), 1e-6)

		// no route may be longer than walking the grid in manhattan metric
		dx := route.Start.Point.X() - route.End.Point.X()
		dy := route.Start.Point.Y() - route.End.Point.Y()
		if dx < 0 {
			dx = -dx
		}
		if dy < 0 {
			dy = -dy
		}
		assert.LessOrEqual(t, route.Distance, dx+dy+40+1e-9)
	}
}

func TestRouteConcurrent(t *testing.T) {
	r := newRouter(t, gridNetwork(t, 6), "astar", snap.Options{}, nil)
	expected, err := r.Route(context.Background(), geometry.MakeLatLon(1, 1), geometry.MakeLatLon(48, 49))
	require.NoError(t, err)

	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func() {
			route, err := r.Route(context.Background(), geometry.MakeLatLon(1, 1), geometry.MakeLatLon(48, 49))
			if err == nil && route.Distance != expected.Distance {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	for i := 0; i < 16; i++ {
		assert.NoError(t, <-errs)
	}
}
