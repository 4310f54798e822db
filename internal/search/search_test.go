package search

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natevvv/snaproute/pkg/geometry"
	"github.com/natevvv/snaproute/pkg/graph"
	"github.com/natevvv/snaproute/pkg/road"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	places := []road.Place{
		{ID: 1, Name: "Corner Cafe", Category: "amenity:cafe", Address: "Main St 1", Location: orb.Point{127.001, 37.001}},
		{ID: 2, Name: "City Hall", Category: "amenity:townhall", Address: "Sejong-daero 110, Seoul", Location: orb.Point{126.978, 37.5665}},
		{ID: 3, Name: "Central Station", Category: "railway:station", Location: orb.Point{127.0, 37.0}},
	}
	nodes := []graph.Node{
		{ID: 10, Point: orb.Point{0, 0}, Type: "junction", Name: "Main St / Cross Rd"},
		{ID: 11, Point: orb.Point{1, 1}, Type: "end"},
	}
	idx, err := New(places, nodes, geometry.WebMercator{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestSearchByNamePrefix(t *testing.T) {
	idx := newTestIndex(t)
	assert.Equal(t, 4, idx.Len(), "unnamed node left out")

	res, err := idx.Search("corn", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"place/1"}, ids(res))
	assert.Equal(t, "Corner Cafe", res[0].Name)
	assert.Equal(t, KindPlace, res[0].Kind)
	assert.InDelta(t, 37.001, res[0].Location.Lat, 1e-12)
	assert.InDelta(t, 127.001, res[0].Location.Lon, 1e-12)
}

func TestSearchRequiresEveryWord(t *testing.T) {
	idx := newTestIndex(t)

	res, err := idx.Search("main cross", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"node/10"}, ids(res))
	assert.Equal(t, KindNode, res[0].Kind)
	assert.InDelta(t, 0, res[0].Location.Lat, 1e-9)
	assert.InDelta(t, 0, res[0].Location.Lon, 1e-9)

	res, err = idx.Search("main", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"place/1", "node/10"}, ids(res))
}

func TestSearchByCategory(t *testing.T) {
	idx := newTestIndex(t)
	res, err := idx.Search("station", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"place/3"}, ids(res))
}

func TestSearchEmptyAndLimit(t *testing.T) {
	idx := newTestIndex(t)

	res, err := idx.Search("   ", 0)
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = idx.Search("c", 0)
	require.NoError(t, err)
	assert.Empty(t, res, "shorter than the shortest indexed prefix")

	res, err = idx.Search("ci ce co", 1)
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = idx.Search("ce", 1)
	require.NoError(t, err)
	assert.Len(t, res, 1)
}
