package openapi_server

import (
	"github.com/natevvv/snaproute/pkg/geometry"
)

// Point is a WGS84 position in a request. Both fields are pointers so that a
// missing coordinate is told apart from 0.
type Point struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

// AssertPointRequired checks if the required fields are not zero-ed
func AssertPointRequired(obj Point) error {
	return validateStruct(obj)
}

func (p Point) LatLon() geometry.LatLon {
	return geometry.MakeLatLon(*p.Lat, *p.Lon)
}

// LatLon is a WGS84 position in a response.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewLatLon(ll geometry.LatLon) LatLon {
	return LatLon{Lat: ll.Lat, Lon: ll.Lon}
}
