package openapi_server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"github.com/natevvv/snaproute/internal/metrics"
	"github.com/natevvv/snaproute/internal/search"
	"github.com/natevvv/snaproute/pkg/routing"
)

var ErrNetworkAlreadySet = errors.New("network is already loaded")

// Network bundles everything a loaded road network serves.
type Network struct {
	Router *routing.Router
	Search *search.Index // optional
}

// DefaultApiService is a service that implements the logic for the DefaultApiServicer
// Requests arriving before the network is set are answered with ErrGraphNotReady.
type DefaultApiService struct {
	network atomic.Pointer[Network]
	log     *logrus.Entry
}

// NewDefaultApiService creates a default api service
func NewDefaultApiService(logger *logrus.Logger) *DefaultApiService {
	if logger == nil {
		logger = logrus.New()
	}
	return &DefaultApiService{log: logger.WithField("component", "api")}
}

// SetNetwork publishes the loaded network. It can only be called once.
func (s *DefaultApiService) SetNetwork(n *Network) error {
	if n == nil || n.Router == nil {
		return errors.New("network without router")
	}
	if !s.network.CompareAndSwap(nil, n) {
		return ErrNetworkAlreadySet
	}
	g := n.Router.Graph()
	metrics.GraphSize.WithLabelValues("nodes").Set(float64(g.NodeCount()))
	metrics.GraphSize.WithLabelValues("edges").Set(float64(g.EdgeCount()))
	metrics.GraphSize.WithLabelValues("arcs").Set(float64(g.ArcCount()))
	metrics.GraphReady.Set(1)
	s.log.WithFields(logrus.Fields{
		"nodes": g.NodeCount(),
		"edges": g.EdgeCount(),
	}).Info("network ready")
	return nil
}

func (s *DefaultApiService) GetRoot(ctx context.Context) (ImplResponse, error) {
	return Response(http.StatusOK, Message{Message: "Welcome to the snaproute API"}), nil
}

func (s *DefaultApiService) GetHealth(ctx context.Context) (ImplResponse, error) {
	health := Health{Status: "ok"}
	if n := s.network.Load(); n != nil {
		g := n.Router.Graph()
		health.GraphReady = true
		health.Nodes = g.NodeCount()
		health.Edges = g.EdgeCount()
	}
	return Response(http.StatusOK, health), nil
}

// ComputeRoute - Compute the shortest route between two points
func (s *DefaultApiService) ComputeRoute(ctx context.Context, routeRequest RouteRequest) (ImplResponse, error) {
	n := s.network.Load()
	if n == nil {
		metrics.RoutesTotal.WithLabelValues(outcome(routing.ErrGraphNotReady)).Inc()
		return Response(http.StatusServiceUnavailable, nil), routing.ErrGraphNotReady
	}

	route, err := n.Router.Route(ctx, routeRequest.StartPoint.LatLon(), routeRequest.EndPoint.LatLon())
	metrics.RoutesTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		code, _ := StatusOf(err)
		return Response(code, nil), err
	}
	metrics.RouteDistance.Observe(route.Distance)
	metrics.SnapDistance.Observe(route.Start.Distance)
	metrics.SnapDistance.Observe(route.End.Distance)

	return Response(http.StatusOK, RouteResponse{
		TotalDistanceMeters: route.Distance,
		PathGeometry:        geojson.NewGeometry(route.Geometry),
	}), nil
}

// SnapPoint - Match a point onto the road network
func (s *DefaultApiService) SnapPoint(ctx context.Context, point Point) (ImplResponse, error) {
	n := s.network.Load()
	if n == nil {
		return Response(http.StatusServiceUnavailable, nil), routing.ErrGraphNotReady
	}
	snapped, err := n.Router.Snap(ctx, point.LatLon())
	if err != nil {
		code, _ := StatusOf(err)
		return Response(code, nil), err
	}
	metrics.SnapDistance.Observe(snapped.Distance)
	return Response(http.StatusOK, SnapResponse{
		EdgeID:         snapped.EdgeID,
		From:           snapped.From,
		To:             snapped.To,
		Fraction:       snapped.Fraction,
		Location:       NewLatLon(snapped.Location),
		DistanceMeters: snapped.Distance,
	}), nil
}

// SearchPlaces - Find named places and junctions
func (s *DefaultApiService) SearchPlaces(ctx context.Context, q string, limit int) (ImplResponse, error) {
	n := s.network.Load()
	if n == nil || n.Search == nil {
		return Response(http.StatusServiceUnavailable, nil), routing.ErrGraphNotReady
	}
	entries, err := n.Search.Search(q, limit)
	if err != nil {
		return Response(http.StatusInternalServerError, nil), err
	}
	results := make([]SearchResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, SearchResult{
			Name:     e.Name,
			Kind:     e.Kind,
			Category: e.Category,
			Address:  e.Address,
			Location: NewLatLon(e.Location),
		})
	}
	return Response(http.StatusOK, SearchResponse{Results: results}), nil
}

// outcome labels a route result for the metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, routing.ErrInvalidCoordinate):
		return "invalid_coordinate"
	case errors.Is(err, routing.ErrNoSegmentFound):
		return "no_segment"
	case errors.Is(err, routing.ErrNoPathFound):
		return "no_path"
	case errors.Is(err, routing.ErrComposition):
		return "composition"
	case errors.Is(err, routing.ErrGraphNotReady):
		return "not_ready"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
