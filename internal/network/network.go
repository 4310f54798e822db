package network

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/natevvv/snaproute/internal/config"
	"github.com/natevvv/snaproute/internal/search"
	"github.com/natevvv/snaproute/internal/store"
	"github.com/natevvv/snaproute/pkg/geometry"
	"github.com/natevvv/snaproute/pkg/graph"
	"github.com/natevvv/snaproute/pkg/routing"
	"github.com/natevvv/snaproute/pkg/snap"
)

// Network is a stored road network made ready for queries.
type Network struct {
	Meta       store.Meta
	Projection geometry.Projection
	Graph      *graph.Graph
	Index      *snap.Index
	Router     *routing.Router
	Search     *search.Index
}

func (n *Network) Close() error {
	if n.Search != nil {
		return n.Search.Close()
	}
	return nil
}

// Open reads the network from the configured store.
func Open(cfg config.Config, logger *logrus.Logger) (*Network, error) {
	st, err := store.NewNetworkStore(store.StoreConfig{Path: cfg.Store.Path, Logger: logger})
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return FromStore(st, cfg, logger)
}

// FromStore builds graph, snap index, router and search index from st. The
// projection recorded with the network wins over the configured one since
// the stored coordinates are in that frame.
func FromStore(st *store.NetworkStore, cfg config.Config, logger *logrus.Logger) (*Network, error) {
	if logger == nil {
		logger = logrus.New()
	}
	log := logger.WithField("component", "loader")
	start := time.Now()

	g, meta, err := st.LoadGraph(graph.BuildOptions{Bidirectional: cfg.Network.Bidirectional})
	if err != nil {
		return nil, fmt.Errorf("load network: %w", err)
	}

	projName := cfg.Network.Projection
	if meta.Projection != "" && meta.Projection != projName {
		log.WithFields(logrus.Fields{
			"configured": projName,
			"stored":     meta.Projection,
		}).Warn("using the projection the network was built with")
		projName = meta.Projection
	}
	proj, err := geometry.ProjectionByName(projName)
	if err != nil {
		return nil, err
	}

	idx, err := snap.NewIndex(g, snap.Options{
		PieceLength: cfg.Routing.SnapPieceLength,
		MaxRadius:   cfg.Routing.SnapMaxRadius,
	})
	if err != nil {
		return nil, err
	}

	router, err := routing.NewRouter(g, idx, proj, routing.Options{
		Navigator:     cfg.Routing.Navigator,
		MaxConcurrent: cfg.Routing.MaxConcurrent,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	places, err := st.Places()
	if err != nil {
		return nil, fmt.Errorf("load places: %w", err)
	}
	searchIndex, err := search.New(places, g.Nodes(), proj, logger)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"nodes":      g.NodeCount(),
		"edges":      g.EdgeCount(),
		"arcs":       g.ArcCount(),
		"pieces":     idx.Pieces(),
		"places":     len(places),
		"projection": proj.Name(),
		"duration":   time.Since(start),
	}).Info("network loaded")

	return &Network{
		Meta:       meta,
		Projection: proj,
		Graph:      g,
		Index:      idx,
		Router:     router,
		Search:     searchIndex,
	}, nil
}
