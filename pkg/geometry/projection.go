package geometry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/wroge/wgs84"
)

// Projection converts between WGS84 and the planar frame the network is stored in.
type Projection interface {
	Name() string
	Forward(ll LatLon) orb.Point
	Inverse(p orb.Point) LatLon
}

// ProjectionByName resolves "EPSG:5186", "EPSG:3857" and the WGS84 UTM zones
// "EPSG:326zz" (north) and "EPSG:327zz" (south).
func ProjectionByName(name string) (Projection, error) {
	code := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "EPSG:")
	switch code {
	case "5186":
		return KoreaCentralBelt2010(), nil
	case "3857":
		return WebMercator{}, nil
	}
	if len(code) == 5 && (strings.HasPrefix(code, "326") || strings.HasPrefix(code, "327")) {
		zone, err := strconv.Atoi(code[3:])
		if err == nil && zone >= 1 && zone <= 60 {
			return UTM(zone, code[2] == '6'), nil
		}
	}
	return nil, fmt.Errorf("unsupported projection %q", name)
}

// ForwardLineString projects every vertex of a WGS84 (lon, lat) line.
func ForwardLineString(proj Projection, ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = proj.Forward(LatLonFromPoint(p))
	}
	return out
}

// InverseLineString converts a projected line back to WGS84 in (lon, lat) order.
func InverseLineString(proj Projection, ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = proj.Inverse(p).Point()
	}
	return out
}

// WebMercator is EPSG:3857, backed by orb/project.
type WebMercator struct{}

func (WebMercator) Name() string { return "EPSG:3857" }

func (WebMercator) Forward(ll LatLon) orb.Point {
	return project.WGS84.ToMercator(ll.Point())
}

func (WebMercator) Inverse(p orb.Point) LatLon {
	return LatLonFromPoint(project.Mercator.ToWGS84(p))
}

// TransverseMercator is a Transverse Mercator frame on the WGS84 datum, backed
// by wroge/wgs84. Korea 2000 uses GRS80, whose flattening differs from WGS84 by
// far less than a millimetre at the surface.
type TransverseMercator struct {
	name    string
	forward wgs84.Func
	inverse wgs84.Func
}

// NewTransverseMercator takes the origin in degrees, the central scale factor
// and the false easting and northing in metres.
func NewTransverseMercator(name string, lat0, lon0, k0, falseEasting, falseNorthing float64) *TransverseMercator {
	frame := wgs84.WGS84().TransverseMercator(lon0, lat0, k0, falseEasting, falseNorthing)
	return &TransverseMercator{
		name:    name,
		forward: wgs84.LonLat().To(frame),
		inverse: frame.To(wgs84.LonLat()),
	}
}

// KoreaCentralBelt2010 is EPSG:5186.
func KoreaCentralBelt2010() *TransverseMercator {
	return NewTransverseMercator("EPSG:5186", 38, 127, 1, 200000, 600000)
}

// UTM returns the WGS84 UTM projection of the given zone (1-60).
func UTM(zone int, north bool) *TransverseMercator {
	code, falseNorthing := 32600+zone, 0.0
	if !north {
		code, falseNorthing = 32700+zone, 10000000
	}
	return NewTransverseMercator(fmt.Sprintf("EPSG:%d", code), 0, float64(zone*6-183), 0.9996, 500000, falseNorthing)
}

func (tm *TransverseMercator) Name() string { return tm.name }

func (tm *TransverseMercator) Forward(ll LatLon) orb.Point {
	x, y, _ := tm.forward(ll.Lon, ll.Lat, 0)
	return orb.Point{x, y}
}

func (tm *TransverseMercator) Inverse(p orb.Point) LatLon {
	lon, lat, _ := tm.inverse(p.X(), p.Y(), 0)
	return LatLon{Lat: lat, Lon: lon}
}
