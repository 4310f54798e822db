package pbf

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/qedus/osmpbf"
	"github.com/sirupsen/logrus"

	"github.com/natevvv/snaproute/pkg/road"
)

// RoadImporter reads the drivable roads and named places of an OSM extract,
// either .osm.pbf or .osm XML.
type RoadImporter struct {
	filename string
	segments []*road.Segment
	places   []road.Place
	nodes    map[int64]orb.Point
	log      *logrus.Entry
}

func NewRoadImporter(filename string, logger *logrus.Logger) *RoadImporter {
	if logger == nil {
		logger = logrus.New()
	}
	return &RoadImporter{
		filename: filename,
		segments: make([]*road.Segment, 0),
		places:   make([]road.Place, 0),
		nodes:    make(map[int64]orb.Point),
		log:      logger.WithField("file", filepath.Base(filename)),
	}
}

func (ri *RoadImporter) Import(ctx context.Context) error {
	name := strings.ToLower(ri.filename)
	switch {
	case strings.HasSuffix(name, ".pbf"):
		if err := ri.collectNodes(); err != nil {
			return err
		}
		if err := ri.collectWays(); err != nil {
			return err
		}
	case strings.HasSuffix(name, ".osm"), strings.HasSuffix(name, ".xml"):
		file, err := os.Open(ri.filename)
		if err != nil {
			return err
		}
		defer file.Close()
		if err := ri.ImportXML(ctx, file); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported OSM file %q, expected .pbf or .osm", ri.filename)
	}

	ri.log.WithFields(logrus.Fields{
		"nodes":    len(ri.nodes),
		"segments": len(ri.segments),
		"places":   len(ri.places),
	}).Info("imported OSM data")
	return nil
}

func (ri *RoadImporter) Segments() []*road.Segment {
	return ri.segments
}

func (ri *RoadImporter) Places() []road.Place {
	return ri.places
}

func (ri *RoadImporter) addNode(id int64, lat, lon float64, tags map[string]string) {
	location := orb.Point{lon, lat}
	ri.nodes[id] = location
	if place, ok := road.PlaceFromTags(id, tags, location); ok {
		ri.places = append(ri.places, place)
	}
}

// way resolves the node coordinates of a way. Nodes missing from the extract
// are dropped.
func (ri *RoadImporter) way(id int64, tags map[string]string, nodeIDs []int64) (*road.Segment, bool) {
	if road.TypeOf(tags["highway"]) == road.Unknown {
		return nil, false
	}
	ids := make([]int64, 0, len(nodeIDs))
	points := make([]orb.Point, 0, len(nodeIDs))
	for _, nodeID := range nodeIDs {
		if point, ok := ri.nodes[nodeID]; ok {
			ids = append(ids, nodeID)
			points = append(points, point)
		}
	}
	if len(ids) < len(nodeIDs) {
		ri.log.WithFields(logrus.Fields{"way": id, "missing": len(nodeIDs) - len(ids)}).Debug("way references nodes outside the extract")
	}
	return road.NewSegment(id, tags, ids, points)
}

func (ri *RoadImporter) newDecoder(file *os.File) (*osmpbf.Decoder, error) {
	decoder := osmpbf.NewDecoder(file)
	decoder.SetBufferSize(osmpbf.MaxBlobSize)
	if err := decoder.Start(runtime.GOMAXPROCS(-1)); err != nil {
		return nil, err
	}
	return decoder, nil
}

func (ri *RoadImporter) collectNodes() error {
	file, err := os.Open(ri.filename)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder, err := ri.newDecoder(file)
	if err != nil {
		return err
	}

	for {
		v, err := decoder.Decode()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if node, ok := v.(*osmpbf.Node); ok {
			ri.addNode(node.ID, node.Lat, node.Lon, node.Tags)
		}
	}
}

func (ri *RoadImporter) collectWays() error {
	file, err := os.Open(ri.filename)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder, err := ri.newDecoder(file)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	segments := make(chan *road.Segment, 1000)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for segment := range segments {
			ri.segments = append(ri.segments, segment)
		}
	}()

	var decodeErr error
	for {
		v, err := decoder.Decode()
		if err != nil {
			if err != io.EOF {
				decodeErr = err
			}
			break
		}
		if way, ok := v.(*osmpbf.Way); ok {
			if segment, ok := ri.way(way.ID, way.Tags, way.NodeIDs); ok {
				segments <- segment
			}
		}
	}
	close(segments)
	wg.Wait()
	return decodeErr
}
