package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snaproute_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snaproute_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// RoutesTotal counts route queries by outcome: ok, invalid_coordinate,
	// no_segment, no_path, composition, not_ready, canceled or error.
	RoutesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snaproute_routes_total",
			Help: "Route queries by outcome",
		},
		[]string{"outcome"},
	)

	RouteDistance = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snaproute_route_distance_meters",
			Help:    "Network distance of successful routes",
			Buckets: prometheus.ExponentialBuckets(100, 2, 12),
		},
	)

	// SnapDistance is the gap between a query point and the road it snapped to.
	SnapDistance = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snaproute_snap_distance_meters",
			Help:    "Distance from query points to the network",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
	)

	GraphSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snaproute_graph_size",
			Help: "Loaded network size by element",
		},
		[]string{"element"}, // nodes, edges, arcs
	)

	GraphReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snaproute_graph_ready",
			Help: "1 once the network is loaded and routable",
		},
	)
)
