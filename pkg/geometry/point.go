package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// JoinTolerance is the maximum distance (in projected units) at which two
// coordinates are still considered the same vertex when stitching lines.
const JoinTolerance = 1e-6

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// LatLon is a geographic WGS84 position in degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

func MakeLatLon(lat, lon float64) LatLon {
	return LatLon{Lat: lat, Lon: lon}
}

// Validate rejects NaN, infinite and out of range coordinates.
func (ll LatLon) Validate() error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lon) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lon, 0) {
		return fmt.Errorf("%w: (%v, %v) is not a finite position", ErrInvalidCoordinate, ll.Lat, ll.Lon)
	}
	if ll.Lat < -90 || ll.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, ll.Lat)
	}
	if ll.Lon < -180 || ll.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, ll.Lon)
	}
	return nil
}

// Point returns the position in GeoJSON axis order (lon, lat).
func (ll LatLon) Point() orb.Point {
	return orb.Point{ll.Lon, ll.Lat}
}

func (ll LatLon) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", ll.Lat, ll.Lon)
}

func LatLonFromPoint(p orb.Point) LatLon {
	return LatLon{Lat: p.Lat(), Lon: p.Lon()}
}

// SamePoint reports whether a and b are within JoinTolerance of each other.
func SamePoint(a, b orb.Point) bool {
	return planar.Distance(a, b) <= JoinTolerance
}
