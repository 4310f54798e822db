package routing

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	"github.com/natevvv/snaproute/pkg/geometry"
	"github.com/natevvv/snaproute/pkg/graph"
	"github.com/natevvv/snaproute/pkg/graph/path"
	"github.com/natevvv/snaproute/pkg/snap"
)

// relative difference between cost distance and line length that is logged
const lengthMismatchWarning = 0.01

type Options struct {
	// Navigator selects the search algorithm, see path.NewNavigator.
	Navigator string
	// MaxConcurrent bounds the number of queries computed at once. 0 uses
	// the number of CPUs.
	MaxConcurrent int64
	Logger        *logrus.Logger
}

// Route is the answer to a route query.
type Route struct {
	Distance       float64
	Geometry       orb.LineString // WGS84, lon/lat
	GeometryLength float64        // planar length of the line in the graph frame
	Start          snap.Result
	End            snap.Result
	SameEdge       bool
	Nodes          []int64
}

// Snapped is a query point matched onto the network.
type Snapped struct {
	snap.Result
	Location geometry.LatLon // the snapped point in WGS84
}

// Router answers route and snap queries on one immutable network. It holds
// no mutable state besides the concurrency limit and is shared by all
// requests.
type Router struct {
	g        *graph.Graph
	index    *snap.Index
	proj     geometry.Projection
	resolver *Resolver
	composer *Composer
	sem      *semaphore.Weighted
	log      *logrus.Entry
}

func NewRouter(g *graph.Graph, index *snap.Index, proj geometry.Projection, opts Options) (*Router, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = int64(runtime.NumCPU())
	}
	navigator, err := path.NewNavigator(opts.Navigator, g)
	if err != nil {
		return nil, err
	}
	return &Router{
		g:        g,
		index:    index,
		proj:     proj,
		resolver: NewResolver(navigator, opts.Logger),
		composer: NewComposer(g),
		sem:      semaphore.NewWeighted(opts.MaxConcurrent),
		log:      opts.Logger.WithField("component", "router"),
	}, nil
}

func (r *Router) Graph() *graph.Graph { return r.g }

func (r *Router) Projection() geometry.Projection { return r.proj }

func (r *Router) snap(ll geometry.LatLon) (snap.Result, error) {
	if err := ll.Validate(); err != nil {
		return snap.Result{}, err
	}
	result, err := r.index.Snap(r.proj.Forward(ll))
	if err != nil {
		return snap.Result{}, fmt.Errorf("snap %v: %w", ll, err)
	}
	return result, nil
}

// Snap matches a single point onto the network.
func (r *Router) Snap(ctx context.Context, ll geometry.LatLon) (Snapped, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return Snapped{}, err
	}
	defer r.sem.Release(1)

	result, err := r.snap(ll)
	if err != nil {
		return Snapped{}, err
	}
	return Snapped{Result: result, Location: r.proj.Inverse(result.Point)}, nil
}

// Route computes the shortest route between two WGS84 positions.
func (r *Router) Route(ctx context.Context, from, to geometry.LatLon) (Route, error) {
	ctx, span := tracer.Start(ctx, "routing.Route")
	defer span.End()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return Route{}, err
	}
	defer r.sem.Release(1)

	route, err := r.route(ctx, from, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Route{}, err
	}
	span.SetAttributes(
		attribute.Float64("route.distance", route.Distance),
		attribute.Int("route.points", len(route.Geometry)),
	)
	return route, nil
}

func (r *Router) route(ctx context.Context, from, to geometry.LatLon) (Route, error) {
	start, err := r.snap(from)
	if err != nil {
		return Route{}, err
	}
	end, err := r.snap(to)
	if err != nil {
		return Route{}, err
	}

	res, err := r.resolver.Resolve(ctx, start, end)
	if err != nil {
		return Route{}, err
	}

	_, span := tracer.Start(ctx, "routing.compose")
	composition, err := r.composer.Compose(res)
	span.End()
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"start_edge": start.EdgeID,
			"end_edge":   end.EdgeID,
		}).Error("route composition failed")
		return Route{}, err
	}

	if res.Distance > 0 && math.Abs(composition.Length-res.Distance)/res.Distance > lengthMismatchWarning {
		r.log.WithFields(logrus.Fields{
			"distance":        res.Distance,
			"geometry_length": composition.Length,
			"start_edge":      start.EdgeID,
			"end_edge":        end.EdgeID,
		}).Warn("route geometry length differs from its cost")
	}

	return Route{
		Distance:       res.Distance,
		Geometry:       geometry.InverseLineString(r.proj, composition.Line),
		GeometryLength: composition.Length,
		Start:          start,
		End:            end,
		SameEdge:       res.SameEdge,
		Nodes:          res.Best.Path.Nodes,
	}, nil
}
