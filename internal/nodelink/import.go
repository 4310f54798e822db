// Package nodelink imports the national standard node link data set (MOCT_NODE
// and MOCT_LINK shapefiles). Coordinates are already in EPSG:5186 and text
// attributes are EUC-KR encoded.
package nodelink

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/korean"

	"github.com/natevvv/snaproute/pkg/graph"
)

// Projection is the frame MOCT node link data is published in.
const Projection = "EPSG:5186"

var ErrMissingField = errors.New("shapefile is missing a field")

// Importer reads a node shapefile and a link shapefile into graph records.
type Importer struct {
	nodeFile string
	linkFile string
	nodes    []graph.Node
	edges    []graph.EdgeRecord
	skipped  int
	log      *logrus.Entry
}

func NewImporter(nodeFile, linkFile string, logger *logrus.Logger) *Importer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Importer{
		nodeFile: nodeFile,
		linkFile: linkFile,
		log:      logger.WithField("file", filepath.Base(linkFile)),
	}
}

func (im *Importer) Import(ctx context.Context) error {
	if err := im.readNodes(ctx); err != nil {
		return fmt.Errorf("read %s: %w", im.nodeFile, err)
	}
	if err := im.readLinks(ctx); err != nil {
		return fmt.Errorf("read %s: %w", im.linkFile, err)
	}
	im.log.WithFields(logrus.Fields{
		"nodes":   len(im.nodes),
		"links":   len(im.edges),
		"skipped": im.skipped,
	}).Info("imported node link data")
	return nil
}

func (im *Importer) Nodes() []graph.Node { return im.nodes }

func (im *Importer) Edges() []graph.EdgeRecord { return im.edges }

// SkippedCount is the number of links dropped for unknown end nodes, a
// non-positive LENGTH or degenerate geometry.
func (im *Importer) SkippedCount() int { return im.skipped }

func (im *Importer) readNodes(ctx context.Context) error {
	reader, fields, err := open(im.nodeFile, "NODE_ID", "NODE_TYPE", "NODE_NAME")
	if err != nil {
		return err
	}
	defer reader.Close()

	seen := make(map[int64]bool)
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, shape := reader.Shape()
		point, ok := shape.(*shp.Point)
		if !ok {
			return fmt.Errorf("record %d: expected a point, got %T", row, shape)
		}
		id, err := parseID(attribute(reader, row, fields["NODE_ID"]))
		if err != nil {
			return fmt.Errorf("record %d: %w", row, err)
		}
		if seen[id] {
			im.log.WithField("node", id).Warn("duplicate node id, keeping the first")
			continue
		}
		seen[id] = true
		im.nodes = append(im.nodes, graph.Node{
			ID:    id,
			Point: orb.Point{point.X, point.Y},
			Type:  decode(attribute(reader, row, fields["NODE_TYPE"])),
			Name:  decode(attribute(reader, row, fields["NODE_NAME"])),
		})
	}
	return reader.Err()
}

func (im *Importer) readLinks(ctx context.Context) error {
	reader, fields, err := open(im.linkFile, "LINK_ID", "F_NODE", "T_NODE", "LENGTH")
	if err != nil {
		return err
	}
	defer reader.Close()

	known := make(map[int64]bool, len(im.nodes))
	for _, n := range im.nodes {
		known[n.ID] = true
	}
	seen := make(map[int64]bool)

	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, shape := reader.Shape()
		polyline, ok := shape.(*shp.PolyLine)
		if !ok {
			return fmt.Errorf("record %d: expected a polyline, got %T", row, shape)
		}

		var record graph.EdgeRecord
		if record.ID, err = parseID(attribute(reader, row, fields["LINK_ID"])); err != nil {
			return fmt.Errorf("record %d: %w", row, err)
		}
		if record.From, err = parseID(attribute(reader, row, fields["F_NODE"])); err != nil {
			return fmt.Errorf("record %d: %w", row, err)
		}
		if record.To, err = parseID(attribute(reader, row, fields["T_NODE"])); err != nil {
			return fmt.Errorf("record %d: %w", row, err)
		}
		length, err := strconv.ParseFloat(attribute(reader, row, fields["LENGTH"]), 64)
		if err != nil {
			return fmt.Errorf("record %d: LENGTH: %w", row, err)
		}
		record.Length = length
		record.Geometry = lineString(polyline)

		entry := im.log.WithField("link", record.ID)
		switch {
		case seen[record.ID]:
			entry.Warn("duplicate link id, keeping the first")
		case !known[record.From] || !known[record.To]:
			entry.Debug("link references an unknown node")
		case math.IsNaN(length) || length <= 0:
			entry.Debug("link has no positive LENGTH")
		case len(record.Geometry) < 2 || planar.Length(record.Geometry) == 0:
			entry.Debug("link has degenerate geometry")
		default:
			seen[record.ID] = true
			im.edges = append(im.edges, record)
			continue
		}
		im.skipped++
	}
	return reader.Err()
}

// open returns the reader and the column of every required field.
func open(filename string, required ...string) (*shp.Reader, map[string]int, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".shp") {
		return nil, nil, fmt.Errorf("expected a .shp file, got %q", filename)
	}
	reader, err := shp.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	fields := make(map[string]int)
	for i, f := range reader.Fields() {
		fields[strings.ToUpper(f.String())] = i
	}
	for _, name := range required {
		if _, ok := fields[name]; !ok {
			reader.Close()
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}
	return reader, fields, nil
}

// lineString joins the parts of a polyline, dropping repeated vertices.
func lineString(p *shp.PolyLine) orb.LineString {
	line := make(orb.LineString, 0, len(p.Points))
	for _, pt := range p.Points {
		point := orb.Point{pt.X, pt.Y}
		if len(line) > 0 && line[len(line)-1] == point {
			continue
		}
		line = append(line, point)
	}
	return line
}

// attribute returns a DBF value without its space or NUL padding.
func attribute(reader *shp.Reader, row, column int) string {
	return strings.TrimRight(reader.ReadAttribute(row, column), "\x00 ")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

// decode turns an EUC-KR attribute into UTF-8, keeping the raw text if it is
// not valid EUC-KR.
func decode(s string) string {
	decoded, err := korean.EUCKR.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return decoded
}
