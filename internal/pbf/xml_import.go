package pbf

import (
	"context"
	"io"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"
)

// ImportXML reads an OSM XML document. Nodes must precede the ways using
// them, as in files written by the OSM API and osmosis.
func (ri *RoadImporter) ImportXML(ctx context.Context, r io.Reader) error {
	scanner := osmxml.New(ctx, r)
	defer scanner.Close()

	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			ri.addNode(int64(o.ID), o.Lat, o.Lon, o.Tags.Map())
		case *osm.Way:
			nodeIDs := make([]int64, 0, len(o.Nodes))
			for _, n := range o.Nodes {
				nodeIDs = append(nodeIDs, int64(n.ID))
			}
			if segment, ok := ri.way(int64(o.ID), o.Tags.Map(), nodeIDs); ok {
				ri.segments = append(ri.segments, segment)
			}
		}
	}
	return scanner.Err()
}
