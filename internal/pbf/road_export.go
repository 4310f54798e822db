package pbf

import (
	"encoding/json"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/natevvv/snaproute/pkg/road"
)

// ExportRoadGeoJSON writes the segments as a GeoJSON feature collection of
// WGS84 line strings, for inspection in any GIS tool.
func ExportRoadGeoJSON(w io.Writer, segments []*road.Segment) error {
	fc := geojson.NewFeatureCollection()
	for _, segment := range segments {
		f := geojson.NewFeature(orb.LineString(segment.Points))
		f.ID = segment.ID
		f.Properties["type"] = segment.Type.String()
		f.Properties["oneway"] = segment.OneWay
		if segment.Name != "" {
			f.Properties["name"] = segment.Name
		}
		fc.Append(f)
	}
	return json.NewEncoder(w).Encode(fc)
}
