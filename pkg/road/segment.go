package road

import (
	"strings"

	"github.com/paulmach/orb"
)

type RoadType int

const (
	Unknown RoadType = iota
	Motorway
	Trunk
	Primary
	Secondary
	Tertiary
	Unclassified
	Residential
	LivingStreet
	Service
)

var roadTypeNames = []string{"Unknown", "Motorway", "Trunk", "Primary", "Secondary", "Tertiary", "Unclassified", "Residential", "LivingStreet", "Service"}

func (r RoadType) String() string {
	if int(r) < 0 || int(r) >= len(roadTypeNames) {
		return roadTypeNames[Unknown]
	}
	return roadTypeNames[r]
}

// TypeOf maps an OSM highway tag onto a road type. Link roads count as their
// parent class.
func TypeOf(highway string) RoadType {
	switch strings.TrimSuffix(highway, "_link") {
	case "motorway":
		return Motorway
	case "trunk":
		return Trunk
	case "primary":
		return Primary
	case "secondary":
		return Secondary
	case "tertiary":
		return Tertiary
	case "unclassified":
		return Unclassified
	case "residential":
		return Residential
	case "living_street":
		return LivingStreet
	case "service":
		return Service
	default:
		return Unknown
	}
}

// Segment is an OSM way usable by cars. NodeIDs and Points are parallel;
// Points are WGS84 in (lon, lat) order.
type Segment struct {
	ID      int64
	Type    RoadType
	Name    string
	NodeIDs []int64
	Points  []orb.Point
	OneWay  bool
}

// NewSegment builds a segment from a tagged way. Ways tagged oneway=-1 are
// reversed so the segment always runs in the allowed direction. ok is false
// for ways that are not roads.
func NewSegment(id int64, tags map[string]string, nodeIDs []int64, points []orb.Point) (*Segment, bool) {
	roadType := TypeOf(tags["highway"])
	if roadType == Unknown || len(nodeIDs) < 2 || len(nodeIDs) != len(points) {
		return nil, false
	}
	s := &Segment{
		ID:      id,
		Type:    roadType,
		Name:    tags["name"],
		NodeIDs: append([]int64(nil), nodeIDs...),
		Points:  append([]orb.Point(nil), points...),
	}
	switch tags["oneway"] {
	case "yes", "true", "1":
		s.OneWay = true
	case "-1", "reverse":
		s.OneWay = true
		for i, j := 0, len(s.NodeIDs)-1; i < j; i, j = i+1, j-1 {
			s.NodeIDs[i], s.NodeIDs[j] = s.NodeIDs[j], s.NodeIDs[i]
			s.Points[i], s.Points[j] = s.Points[j], s.Points[i]
		}
	case "no", "false", "0":
	default:
		// motorways and roundabouts are one way unless tagged otherwise
		s.OneWay = roadType == Motorway || tags["junction"] == "roundabout"
	}
	return s, true
}

// Place is a named point of interest offered by place search.
type Place struct {
	ID       int64
	Name     string
	Category string
	Address  string
	Location orb.Point // WGS84 (lon, lat)
}

// PlaceFromTags returns a place for named OSM nodes that describe a point of
// interest.
func PlaceFromTags(id int64, tags map[string]string, location orb.Point) (Place, bool) {
	name := tags["name"]
	if name == "" {
		return Place{}, false
	}
	category := ""
	for _, key := range []string{"amenity", "shop", "tourism", "place", "railway", "public_transport", "leisure", "office"} {
		if v := tags[key]; v != "" {
			category = key + ":" + v
			break
		}
	}
	if category == "" {
		return Place{}, false
	}
	return Place{ID: id, Name: name, Category: category, Address: address(tags), Location: location}, true
}

func address(tags map[string]string) string {
	parts := make([]string, 0, 4)
	street := strings.TrimSpace(tags["addr:street"] + " " + tags["addr:housenumber"])
	for _, part := range []string{street, tags["addr:postcode"], tags["addr:city"]} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}
