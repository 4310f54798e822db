package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/natevvv/snaproute/internal/config"
	"github.com/natevvv/snaproute/internal/nodelink"
	"github.com/natevvv/snaproute/internal/pbf"
	"github.com/natevvv/snaproute/internal/store"
	"github.com/natevvv/snaproute/pkg/geometry"
	"github.com/natevvv/snaproute/pkg/graph"
	"github.com/natevvv/snaproute/pkg/road"
)

func main() {
	configFile := flag.String("config", "", "YAML configuration file")
	osmFile := flag.String("osm", "", "import roads from an OSM extract (.osm.pbf or .osm)")
	loadFile := flag.String("load", "", "import a network text dump")
	shpFiles := flag.String("shp", "", "import MOCT node link shapefiles, given as nodes.shp,links.shp")
	dumpFile := flag.String("dump", "", "write the stored network as text dump")
	geojsonFile := flag.String("geojson", "", "write the imported roads as GeoJSON (with -osm)")
	storePath := flag.String("store", "", "override the store directory")
	projection := flag.String("projection", "", "override the network projection, e.g. EPSG:32652")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatal(err)
	}
	if *storePath != "" {
		cfg.Store.Path = *storePath
	}
	if *projection != "" {
		cfg.Network.Projection = *projection
	}
	logger := cfg.Log.NewLogger()

	if *osmFile == "" && *loadFile == "" && *shpFiles == "" && *dumpFile == "" {
		flag.Usage()
		os.Exit(2)
	}
	sources := 0
	for _, f := range []string{*osmFile, *loadFile, *shpFiles} {
		if f != "" {
			sources++
		}
	}
	if sources > 1 {
		logger.Fatal("-osm, -load and -shp are exclusive")
	}

	proj, err := cfg.Projection()
	if err != nil {
		logger.Fatal(err)
	}

	st, err := store.NewNetworkStore(store.StoreConfig{Path: cfg.Store.Path, Logger: logger})
	if err != nil {
		logger.Fatal(err)
	}
	defer st.Close()

	ctx := context.Background()
	if *osmFile != "" {
		if err := importOsm(ctx, st, *osmFile, *geojsonFile, proj, cfg.Network.Bidirectional, logger); err != nil {
			logger.Fatal(err)
		}
	}
	if *loadFile != "" {
		if err := importDump(st, *loadFile, proj, cfg.Network.Bidirectional); err != nil {
			logger.Fatal(err)
		}
	}
	if *shpFiles != "" {
		if err := importShp(ctx, st, *shpFiles, proj, cfg.Network.Bidirectional, logger); err != nil {
			logger.Fatal(err)
		}
	}
	if *dumpFile != "" {
		if err := dump(st, *dumpFile); err != nil {
			logger.Fatal(err)
		}
	}
}

func importOsm(ctx context.Context, st *store.NetworkStore, osmFile, geojsonFile string, proj geometry.Projection, bidirectional bool, logger *logrus.Logger) error {
	start := time.Now()
	importer := pbf.NewRoadImporter(osmFile, logger)
	if err := importer.Import(ctx); err != nil {
		return fmt.Errorf("import %s: %w", osmFile, err)
	}
	fmt.Printf("[TIME] Import: %s\n", time.Since(start))
	fmt.Printf("Road segments: %d, places: %d\n", len(importer.Segments()), len(importer.Places()))

	if geojsonFile != "" {
		if err := writeGeoJSON(geojsonFile, importer.Segments()); err != nil {
			return err
		}
	}

	start = time.Now()
	splitter := road.NewSplitter(importer.Segments())
	nodes, edges := splitter.Split(proj)
	fmt.Printf("[TIME] Split: %s\n", time.Since(start))
	fmt.Printf("Nodes: %d, edges: %d, skipped degenerate pieces: %d\n", len(nodes), splitter.EdgeCount(), splitter.SkippedCount())

	return storeNetwork(st, nodes, edges, importer.Places(), proj, osmFile, bidirectional)
}

func importDump(st *store.NetworkStore, loadFile string, proj geometry.Projection, bidirectional bool) error {
	start := time.Now()
	file, err := os.Open(loadFile)
	if err != nil {
		return err
	}
	defer file.Close()
	nodes, edges, err := graph.ReadNetwork(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", loadFile, err)
	}
	fmt.Printf("[TIME] Read dump: %s\n", time.Since(start))
	return storeNetwork(st, nodes, edges, nil, proj, loadFile, bidirectional)
}

// importShp keeps the coordinates and LENGTH of the shapefiles, so the
// network is stored in their frame whatever projection is configured.
func importShp(ctx context.Context, st *store.NetworkStore, files string, configured geometry.Projection, bidirectional bool, logger *logrus.Logger) error {
	nodeFile, linkFile, ok := strings.Cut(files, ",")
	if !ok || nodeFile == "" || linkFile == "" {
		return fmt.Errorf("-shp expects nodes.shp,links.shp, got %q", files)
	}
	proj, err := geometry.ProjectionByName(nodelink.Projection)
	if err != nil {
		return err
	}
	if configured.Name() != proj.Name() {
		logger.WithFields(logrus.Fields{
			"configured": configured.Name(),
			"data":       proj.Name(),
		}).Warn("node link data keeps its own projection")
	}

	start := time.Now()
	importer := nodelink.NewImporter(nodeFile, linkFile, logger)
	if err := importer.Import(ctx); err != nil {
		return err
	}
	fmt.Printf("[TIME] Import: %s\n", time.Since(start))
	fmt.Printf("Nodes: %d, links: %d, skipped links: %d\n", len(importer.Nodes()), len(importer.Edges()), importer.SkippedCount())

	return storeNetwork(st, importer.Nodes(), importer.Edges(), nil, proj, linkFile, bidirectional)
}

// storeNetwork checks that the records form a valid graph before replacing the
// stored network.
func storeNetwork(st *store.NetworkStore, nodes []graph.Node, edges []graph.EdgeRecord, places []road.Place, proj geometry.Projection, source string, bidirectional bool) error {
	start := time.Now()
	g, err := graph.Build(nodes, edges, graph.BuildOptions{Bidirectional: bidirectional})
	if err != nil {
		return fmt.Errorf("network is not consistent: %w", err)
	}
	fmt.Printf("[TIME] Build graph: %s\n", time.Since(start))
	fmt.Printf("Arcs: %d\n", g.ArcCount())

	start = time.Now()
	meta := store.Meta{Projection: proj.Name(), Source: filepath.Base(source)}
	if err := st.Replace(nodes, edges, places, meta); err != nil {
		return err
	}
	fmt.Printf("[TIME] Store: %s\n", time.Since(start))
	return nil
}

func dump(st *store.NetworkStore, dumpFile string) error {
	start := time.Now()
	nodes, err := st.Nodes()
	if err != nil {
		return err
	}
	edges, err := st.Edges()
	if err != nil {
		return err
	}
	file, err := os.Create(dumpFile)
	if err != nil {
		return err
	}
	if err := graph.WriteNetwork(file, nodes, edges); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Printf("[TIME] Dump: %s\n", time.Since(start))
	fmt.Printf("Wrote %d nodes and %d edges to %s\n", len(nodes), len(edges), dumpFile)
	return nil
}

func writeGeoJSON(filename string, segments []*road.Segment) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := pbf.ExportRoadGeoJSON(file, segments); err != nil {
		file.Close()
		return err
	}
	fmt.Printf("Exported roads to %s\n", filename)
	return file.Close()
}
