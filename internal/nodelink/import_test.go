package nodelink

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"github.com/natevvv/snaproute/pkg/graph"
)

type link struct {
	id, from, to string
	length       float64
	parts        [][]shp.Point
}

func eucKR(t *testing.T, s string) string {
	t.Helper()
	encoded, err := korean.EUCKR.NewEncoder().String(s)
	require.NoError(t, err)
	return encoded
}

// writeNodeLink writes MOCT_NODE.shp and MOCT_LINK.shp to a temporary directory.
func writeNodeLink(t *testing.T, links []link) (string, string) {
	t.Helper()
	dir := t.TempDir()

	nodeFile := filepath.Join(dir, "MOCT_NODE.shp")
	nodes, err := shp.Create(nodeFile, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, nodes.SetFields([]shp.Field{
		shp.StringField("NODE_ID", 10),
		shp.StringField("NODE_TYPE", 3),
		shp.StringField("NODE_NAME", 30),
	}))
	for _, n := range []struct {
		id, kind, name string
		x, y           float64
	}{
		{"1000000001", "101", eucKR(t, "시청교차로"), 198000, 551000},
		{"1000000002", "101", eucKR(t, "광화문"), 198100, 551000},
		{"1000000003", "103", "", 198100, 551200},
	} {
		row := int(nodes.Write(&shp.Point{X: n.x, Y: n.y}))
		require.NoError(t, nodes.WriteAttribute(row, 0, n.id))
		require.NoError(t, nodes.WriteAttribute(row, 1, n.kind))
		require.NoError(t, nodes.WriteAttribute(row, 2, n.name))
	}
	nodes.Close()

	linkFile := filepath.Join(dir, "MOCT_LINK.shp")
	writer, err := shp.Create(linkFile, shp.POLYLINE)
	require.NoError(t, err)
	require.NoError(t, writer.SetFields([]shp.Field{
		shp.StringField("LINK_ID", 10),
		shp.StringField("F_NODE", 10),
		shp.StringField("T_NODE", 10),
		shp.FloatField("LENGTH", 18, 6),
	}))
	for _, l := range links {
		row := int(writer.Write(shp.NewPolyLine(l.parts)))
		require.NoError(t, writer.WriteAttribute(row, 0, l.id))
		require.NoError(t, writer.WriteAttribute(row, 1, l.from))
		require.NoError(t, writer.WriteAttribute(row, 2, l.to))
		require.NoError(t, writer.WriteAttribute(row, 3, l.length))
	}
	writer.Close()

	return nodeFile, linkFile
}

func TestImport(t *testing.T) {
	nodeFile, linkFile := writeNodeLink(t, []link{
		{"2000000001", "1000000001", "1000000002", 101.5, [][]shp.Point{{{X: 198000, Y: 551000}, {X: 198100, Y: 551000}}}},
		{"2000000002", "1000000002", "1000000003", 200, [][]shp.Point{
			{{X: 198100, Y: 551000}, {X: 198100, Y: 551100}},
			{{X: 198100, Y: 551100}, {X: 198100, Y: 551200}},
		}},
		{"2000000003", "1000000003", "1000000099", 50, [][]shp.Point{{{X: 198100, Y: 551200}, {X: 198150, Y: 551200}}}},
		{"2000000004", "1000000003", "1000000001", 0, [][]shp.Point{{{X: 198100, Y: 551200}, {X: 198000, Y: 551000}}}},
	})

	im := NewImporter(nodeFile, linkFile, nil)
	require.NoError(t, im.Import(context.Background()))

	require.Len(t, im.Nodes(), 3)
	assert.Equal(t, graph.Node{ID: 1000000001, Point: orb.Point{198000, 551000}, Type: "101", Name: "시청교차로"}, im.Nodes()[0])
	assert.Equal(t, "광화문", im.Nodes()[1].Name)
	assert.Equal(t, "", im.Nodes()[2].Name)

	require.Len(t, im.Edges(), 2)
	first := im.Edges()[0]
	assert.Equal(t, int64(2000000001), first.ID)
	assert.Equal(t, int64(1000000001), first.From)
	assert.Equal(t, int64(1000000002), first.To)
	assert.Equal(t, 101.5, first.Length, "LENGTH is kept as the cost")

	// parts are joined without repeating the shared vertex
	assert.Equal(t, orb.LineString{{198100, 551000}, {198100, 551100}, {198100, 551200}}, im.Edges()[1].Geometry)

	assert.Equal(t, 2, im.SkippedCount(), "unknown end node and zero LENGTH")

	_, err := graph.Build(im.Nodes(), im.Edges(), graph.BuildOptions{})
	assert.NoError(t, err)
}

func TestImportMissingField(t *testing.T) {
	nodeFile, _ := writeNodeLink(t, nil)

	im := NewImporter(nodeFile, nodeFile, nil)
	err := im.Import(context.Background())
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestImportRejectsOtherFiles(t *testing.T) {
	im := NewImporter("nodes.dbf", "links.dbf", nil)
	assert.Error(t, im.Import(context.Background()))
}

func TestImportCancelled(t *testing.T) {
	nodeFile, linkFile := writeNodeLink(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewImporter(nodeFile, linkFile, nil).Import(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
