package pbf

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natevvv/snaproute/pkg/road"
)

const extract = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="hand">
  <node id="1" lat="37.0" lon="127.0"/>
  <node id="2" lat="37.0" lon="127.001"/>
  <node id="3" lat="37.001" lon="127.001">
    <tag k="name" v="Corner Cafe"/>
    <tag k="amenity" v="cafe"/>
  </node>
  <node id="4" lat="37.002" lon="127.001"/>
  <way id="10">
    <nd ref="1"/>
    <nd ref="2"/>
    <nd ref="3"/>
    <tag k="highway" v="residential"/>
    <tag k="name" v="Main St"/>
  </way>
  <way id="11">
    <nd ref="3"/>
    <nd ref="4"/>
    <tag k="highway" v="footway"/>
  </way>
  <way id="12">
    <nd ref="4"/>
    <nd ref="99"/>
    <tag k="highway" v="primary"/>
  </way>
  <way id="13">
    <nd ref="4"/>
    <nd ref="3"/>
    <nd ref="98"/>
    <tag k="highway" v="primary"/>
    <tag k="oneway" v="yes"/>
  </way>
</osm>
`

func TestImportXML(t *testing.T) {
	ri := NewRoadImporter("extract.osm", nil)
	require.NoError(t, ri.ImportXML(context.Background(), strings.NewReader(extract)))

	segments := ri.Segments()
	require.Len(t, segments, 2, "footway and way with a single known node are dropped")

	assert.Equal(t, int64(10), segments[0].ID)
	assert.Equal(t, road.Residential, segments[0].Type)
	assert.Equal(t, "Main St", segments[0].Name)
	assert.Equal(t, []int64{1, 2, 3}, segments[0].NodeIDs)
	assert.Equal(t, []orb.Point{{127.0, 37.0}, {127.001, 37.0}, {127.001, 37.001}}, segments[0].Points)

	assert.Equal(t, int64(13), segments[1].ID)
	assert.Equal(t, []int64{4, 3}, segments[1].NodeIDs, "missing node 98 dropped")
	assert.True(t, segments[1].OneWay)

	require.Len(t, ri.Places(), 1)
	assert.Equal(t, "Corner Cafe", ri.Places()[0].Name)
	assert.Equal(t, "amenity:cafe", ri.Places()[0].Category)
}

func TestImportRejectsUnknownFormat(t *testing.T) {
	err := NewRoadImporter("roads.shp", nil).Import(context.Background())
	assert.ErrorContains(t, err, "unsupported OSM file")
}

func TestExportRoadGeoJSON(t *testing.T) {
	ri := NewRoadImporter("extract.osm", nil)
	require.NoError(t, ri.ImportXML(context.Background(), strings.NewReader(extract)))

	var buf bytes.Buffer
	require.NoError(t, ExportRoadGeoJSON(&buf, ri.Segments()))

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			ID         float64                `json:"id"`
			Geometry   map[string]interface{} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)
	require.Len(t, decoded.Features, 2)
	assert.Equal(t, float64(10), decoded.Features[0].ID)
	assert.Equal(t, "LineString", decoded.Features[0].Geometry["type"])
	assert.Equal(t, "Main St", decoded.Features[0].Properties["name"])
	assert.Equal(t, "Residential", decoded.Features[0].Properties["type"])
	assert.Equal(t, true, decoded.Features[1].Properties["oneway"])
}
