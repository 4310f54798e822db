package graph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// network text parse states
const (
	PARSE_NODE_COUNT = iota
	PARSE_EDGE_COUNT = iota
	PARSE_NODES      = iota
	PARSE_EDGES      = iota
)

// WriteNetwork writes nodes and edges in the tab separated text format read by
// ReadNetwork:
//
//	<node count>
//	<edge count>
//	#Nodes
//	id	x	y	type	name
//	#Edges
//	id	from	to	length	oneway	x y,x y,...
func WriteNetwork(w io.Writer, nodes []Node, edges []EdgeRecord) error {
	writer := bufio.NewWriter(w)

	fmt.Fprintf(writer, "%d\n%d\n", len(nodes), len(edges))

	writer.WriteString("#Nodes\n")
	for _, n := range nodes {
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\n", n.ID, formatFloat(n.Point.X()), formatFloat(n.Point.Y()), escapeField(n.Type), escapeField(n.Name))
	}

	writer.WriteString("#Edges\n")
	for _, e := range edges {
		coords := make([]string, len(e.Geometry))
		for i, p := range e.Geometry {
			coords[i] = formatFloat(p.X()) + " " + formatFloat(p.Y())
		}
		fmt.Fprintf(writer, "%d\t%d\t%d\t%s\t%t\t%s\n", e.ID, e.From, e.To, formatFloat(e.Length), e.OneWay, strings.Join(coords, ","))
	}
	return writer.Flush()
}

// ReadNetwork parses the format written by WriteNetwork. Empty lines and lines
// starting with '#' are skipped.
func ReadNetwork(r io.Reader) ([]Node, []EdgeRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	numNodes, numEdges := 0, 0
	nodes := make([]Node, 0)
	edges := make([]EdgeRecord, 0)

	lineNumber := 0
	parseState := PARSE_NODE_COUNT
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if len(strings.TrimSpace(line)) < 1 {
			// skip empty lines
			continue
		} else if line[0] == '#' {
			// skip comments
			continue
		}

		switch parseState {
		case PARSE_NODE_COUNT:
			val, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: node count: %w", lineNumber, err)
			}
			numNodes = val
			parseState = PARSE_EDGE_COUNT
		case PARSE_EDGE_COUNT:
			val, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: edge count: %w", lineNumber, err)
			}
			numEdges = val
			parseState = PARSE_NODES
			if numNodes == 0 {
				parseState = PARSE_EDGES
			}
		case PARSE_NODES:
			n, err := parseNode(line)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			nodes = append(nodes, n)
			if len(nodes) == numNodes {
				parseState = PARSE_EDGES
			}
		case PARSE_EDGES:
			e, err := parseEdge(line)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			edges = append(edges, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	if len(nodes) != numNodes || len(edges) != numEdges {
		return nil, nil, fmt.Errorf("invalid network: expected %d nodes and %d edges, parsed %d and %d", numNodes, numEdges, len(nodes), len(edges))
	}
	return nodes, edges, nil
}

// NewGraphFromNetworkString parses and builds a graph in one go.
func NewGraphFromNetworkString(network string, opts BuildOptions) (*Graph, error) {
	nodes, edges, err := ReadNetwork(strings.NewReader(network))
	if err != nil {
		return nil, err
	}
	return Build(nodes, edges, opts)
}

func NewGraphFromNetworkFile(filename string, opts BuildOptions) (*Graph, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	nodes, edges, err := ReadNetwork(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return Build(nodes, edges, opts)
}

func parseNode(line string) (Node, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		return Node{}, fmt.Errorf("node needs at least 3 fields, got %d", len(fields))
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Node{}, fmt.Errorf("node id: %w", err)
	}
	x, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Node{}, fmt.Errorf("node %d x: %w", id, err)
	}
	y, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Node{}, fmt.Errorf("node %d y: %w", id, err)
	}
	n := Node{ID: id, Point: orb.Point{x, y}}
	if len(fields) > 3 {
		n.Type = unescapeField(fields[3])
	}
	if len(fields) > 4 {
		n.Name = unescapeField(fields[4])
	}
	return n, nil
}

func parseEdge(line string) (EdgeRecord, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 6 {
		return EdgeRecord{}, fmt.Errorf("edge needs 6 fields, got %d", len(fields))
	}
	var e EdgeRecord
	var err error
	if e.ID, err = strconv.ParseInt(fields[0], 10, 64); err != nil {
		return e, fmt.Errorf("edge id: %w", err)
	}
	if e.From, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
		return e, fmt.Errorf("edge %d from: %w", e.ID, err)
	}
	if e.To, err = strconv.ParseInt(fields[2], 10, 64); err != nil {
		return e, fmt.Errorf("edge %d to: %w", e.ID, err)
	}
	if e.Length, err = strconv.ParseFloat(fields[3], 64); err != nil {
		return e, fmt.Errorf("edge %d length: %w", e.ID, err)
	}
	if e.OneWay, err = strconv.ParseBool(fields[4]); err != nil {
		return e, fmt.Errorf("edge %d oneway: %w", e.ID, err)
	}
	for _, pair := range strings.Split(fields[5], ",") {
		var x, y float64
		if _, err := fmt.Sscanf(strings.TrimSpace(pair), "%g %g", &x, &y); err != nil {
			return e, fmt.Errorf("edge %d coordinate %q: %w", e.ID, pair, err)
		}
		e.Geometry = append(e.Geometry, orb.Point{x, y})
	}
	return e, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var fieldEscaper = strings.NewReplacer("\\", "\\\\", "\t", "\\t", "\n", "\\n")
var fieldUnescaper = strings.NewReplacer("\\\\", "\\", "\\t", "\t", "\\n", "\n")

func escapeField(s string) string { return fieldEscaper.Replace(s) }

func unescapeField(s string) string { return fieldUnescaper.Replace(s) }
