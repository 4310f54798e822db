package routing

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/natevvv/snaproute/pkg/graph/path"
	"github.com/natevvv/snaproute/pkg/snap"
)

var tracer = otel.Tracer("github.com/natevvv/snaproute/pkg/routing")

// Candidate is one interpretation of a route: leave the start edge at
// StartNode, follow the network to EndNode, enter the end edge there.
type Candidate struct {
	StartNode int64
	EndNode   int64
	Entry     float64 // snapped start point -> StartNode along the start edge
	Main      float64
	Exit      float64 // EndNode -> snapped end point along the end edge
	Path      path.Path
}

func (c Candidate) Total() float64 { return c.Entry + c.Main + c.Exit }

// Resolution is the cheapest traversal between two snapped points.
type Resolution struct {
	Start    snap.Result
	End      snap.Result
	SameEdge bool
	Distance float64
	// Best and Evaluated are only set when the points are on different edges.
	// Evaluated holds every connected combination in evaluation order.
	Best      Candidate
	Evaluated []Candidate
}

type Resolver struct {
	navigator path.Navigator
	log       *logrus.Entry
}

func NewResolver(navigator path.Navigator, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{navigator: navigator, log: logger.WithField("component", "resolver")}
}

// costToNode is the length along the snapped edge between the snapped point
// and one of the edge's end nodes.
func costToNode(r snap.Result, node int64) float64 {
	if node == r.From {
		return r.Fraction * r.Length
	}
	return (1 - r.Fraction) * r.Length
}

// Resolve picks the cheapest way from start to end. Points on the same edge
// are connected directly along it. Otherwise both end nodes of either edge
// are tried, in the order (from,from), (from,to), (to,from), (to,to); the
// first strictly cheapest combination wins.
func (r *Resolver) Resolve(ctx context.Context, start, end snap.Result) (Resolution, error) {
	ctx, span := tracer.Start(ctx, "routing.resolve", trace.WithAttributes(
		attribute.Int64("route.start_edge", start.EdgeID),
		attribute.Int64("route.end_edge", end.EdgeID),
	))
	defer span.End()

	res := Resolution{Start: start, End: end}
	if start.EdgeID == end.EdgeID {
		lo, hi := start.Fraction, end.Fraction
		if lo > hi {
			lo, hi = hi, lo
		}
		res.SameEdge = true
		res.Distance = start.Length * (hi - lo)
		span.SetAttributes(attribute.Bool("route.same_edge", true), attribute.Float64("route.distance", res.Distance))
		r.log.WithFields(logrus.Fields{
			"edge":     start.EdgeID,
			"from":     start.Fraction,
			"to":       end.Fraction,
			"distance": res.Distance,
		}).Debug("points share one segment")
		return res, nil
	}

	type pair struct{ start, end int64 }
	combinations := []pair{{start.From, end.From}, {start.From, end.To}, {start.To, end.From}, {start.To, end.To}}
	seen := make(map[pair]bool, len(combinations))
	found := false

	for _, combination := range combinations {
		if seen[combination] {
			continue
		}
		seen[combination] = true

		p, ok, err := r.navigator.ShortestPath(ctx, combination.start, combination.end)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "search failed")
			return Resolution{}, fmt.Errorf("search %d -> %d: %w", combination.start, combination.end, err)
		}
		fields := logrus.Fields{"start_node": combination.start, "end_node": combination.end, "pq_pops": p.KPIs.PqPops}
		if !ok {
			r.log.WithFields(fields).Debug("combination not connected")
			continue
		}

		c := Candidate{
			StartNode: combination.start,
			EndNode:   combination.end,
			Entry:     costToNode(start, combination.start),
			Main:      p.Weight,
			Exit:      costToNode(end, combination.end),
			Path:      p,
		}
		res.Evaluated = append(res.Evaluated, c)
		fields["entry"], fields["main"], fields["exit"], fields["total"] = c.Entry, c.Main, c.Exit, c.Total()
		r.log.WithFields(fields).Debug("combination evaluated")
		span.AddEvent("candidate", trace.WithAttributes(
			attribute.Int64("start_node", c.StartNode),
			attribute.Int64("end_node", c.EndNode),
			attribute.Float64("total", c.Total()),
		))

		if !found || c.Total() < res.Best.Total() {
			res.Best = c
			found = true
		}
	}

	if !found {
		span.SetStatus(codes.Error, ErrNoPathFound.Error())
		return Resolution{}, fmt.Errorf("%w: edges %d and %d are not connected", ErrNoPathFound, start.EdgeID, end.EdgeID)
	}
	res.Distance = res.Best.Total()
	span.SetAttributes(attribute.Float64("route.distance", res.Distance), attribute.Int("route.candidates", len(res.Evaluated)))
	return res, nil
}
