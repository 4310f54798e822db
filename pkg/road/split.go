package road

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/natevvv/snaproute/pkg/geometry"
	"github.com/natevvv/snaproute/pkg/graph"
	"github.com/natevvv/snaproute/pkg/slice"
)

// Splitter turns road segments into a routable network: ways are cut at every
// node shared with another way (or visited twice by the same way), so each
// resulting edge connects two junctions or ends.
type Splitter struct {
	segments     []*Segment
	edgeCount    int
	skippedCount int
}

func NewSplitter(segments []*Segment) *Splitter {
	return &Splitter{segments: segments}
}

type nodeInfo struct {
	refs  int // occurrences in all ways
	end   bool
	point orb.Point
	names []string
}

func (n *nodeInfo) splits() bool { return n.end || n.refs > 1 }

// Split projects the segments and returns nodes and edges in the frame of proj.
// Edge lengths are the planar lengths of the projected geometries.
func (s *Splitter) Split(proj geometry.Projection) ([]graph.Node, []graph.EdgeRecord) {
	info := make(map[int64]*nodeInfo)
	for _, seg := range s.segments {
		for i, id := range seg.NodeIDs {
			n, ok := info[id]
			if !ok {
				n = &nodeInfo{point: proj.Forward(geometry.LatLonFromPoint(seg.Points[i]))}
				info[id] = n
			}
			n.refs++
			if i == 0 || i == len(seg.NodeIDs)-1 {
				n.end = true
			}
			if seg.Name != "" && !slice.Contains(n.names, seg.Name) {
				n.names = append(n.names, seg.Name)
			}
		}
	}

	nodes := make([]graph.Node, 0)
	added := make(map[int64]bool)
	addNode := func(id int64) {
		if added[id] {
			return
		}
		added[id] = true
		n := info[id]
		nodeType := "end"
		if n.refs > 1 {
			nodeType = "junction"
		}
		nodes = append(nodes, graph.Node{ID: id, Point: n.point, Type: nodeType, Name: strings.Join(n.names, " / ")})
	}

	edges := make([]graph.EdgeRecord, 0)
	s.edgeCount, s.skippedCount = 0, 0
	for _, seg := range s.segments {
		start := 0
		for i := 1; i < len(seg.NodeIDs); i++ {
			if !info[seg.NodeIDs[i]].splits() {
				continue
			}
			line := make(orb.LineString, 0, i-start+1)
			for _, id := range seg.NodeIDs[start : i+1] {
				p := info[id].point
				if len(line) == 0 || line[len(line)-1] != p {
					line = append(line, p)
				}
			}
			from, to := seg.NodeIDs[start], seg.NodeIDs[i]
			start = i

			length := planar.Length(line)
			if len(line) < 2 || length == 0 {
				s.skippedCount++
				continue
			}
			addNode(from)
			addNode(to)
			s.edgeCount++
			edges = append(edges, graph.EdgeRecord{
				ID:       int64(s.edgeCount),
				From:     from,
				To:       to,
				Length:   length,
				Geometry: line,
				OneWay:   seg.OneWay,
			})
		}
	}
	return nodes, edges
}

func (s *Splitter) EdgeCount() int { return s.edgeCount }

// SkippedCount is the number of degenerate pieces (zero length) left out.
func (s *Splitter) SkippedCount() int { return s.skippedCount }
