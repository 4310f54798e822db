package openapi_server

import (
	"github.com/paulmach/orb/geojson"
)

type RouteResponse struct {
	TotalDistanceMeters float64           `json:"total_distance_meters"`
	PathGeometry        *geojson.Geometry `json:"path_geometry"`
}
