package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/natevvv/snaproute/pkg/graph"
	"github.com/natevvv/snaproute/pkg/road"
)

var (
	nodePrefix  = []byte("n/")
	edgePrefix  = []byte("e/")
	placePrefix = []byte("p/")
	metaKey     = []byte("meta")
)

var (
	ErrEmpty        = errors.New("store holds no network")
	ErrUnknownNode  = errors.New("edge references a node that is not stored")
	ErrDuplicateKey = errors.New("duplicate id")
)

type StoreConfig struct {
	Path     string // directory of the badger database
	InMemory bool   // ignore Path and keep everything in memory
	Logger   *logrus.Logger
}

// Meta describes the network currently held by the store.
type Meta struct {
	Projection string    `msgpack:"projection"`
	Source     string    `msgpack:"source"`
	Nodes      int       `msgpack:"nodes"`
	Edges      int       `msgpack:"edges"`
	Places     int       `msgpack:"places"`
	ImportedAt time.Time `msgpack:"imported_at"`
	// Generation selects the key space holding the tables. Replace writes a
	// new generation and then switches the meta record to it.
	Generation uint64 `msgpack:"generation"`
}

// NetworkStore persists the node, edge and place tables of one road network.
type NetworkStore struct {
	config   StoreConfig
	badgerDB *badger.DB
	log      *logrus.Entry
}

func NewNetworkStore(config StoreConfig) (*NetworkStore, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.Path == "" && !config.InMemory {
		return nil, fmt.Errorf("store needs a path or in-memory mode")
	}
	log := config.Logger.WithField("component", "store")

	opts := badger.DefaultOptions(config.Path)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(log).WithLoggingLevel(badger.WARNING)
	opts.ValueLogFileSize = 1024 * 1024 * 100 // 100MB per value log file

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("error opening network store: %w", err)
	}
	return &NetworkStore{config: config, badgerDB: db, log: log}, nil
}

func (s *NetworkStore) Close() error {
	return s.badgerDB.Close()
}

type nodeRecord struct {
	ID   int64   `msgpack:"id"`
	X    float64 `msgpack:"x"`
	Y    float64 `msgpack:"y"`
	Type string  `msgpack:"type,omitempty"`
	Name string  `msgpack:"name,omitempty"`
}

type edgeRecord struct {
	ID     int64     `msgpack:"id"`
	From   int64     `msgpack:"from"`
	To     int64     `msgpack:"to"`
	Length float64   `msgpack:"length"`
	OneWay bool      `msgpack:"oneway,omitempty"`
	Coords []float64 `msgpack:"coords"` // x0 y0 x1 y1 ...
}

type placeRecord struct {
	ID       int64   `msgpack:"id"`
	Name     string  `msgpack:"name"`
	Category string  `msgpack:"category,omitempty"`
	Address  string  `msgpack:"address,omitempty"`
	Lon      float64 `msgpack:"lon"`
	Lat      float64 `msgpack:"lat"`
}

// generationPrefix is the key space of one stored network, e.g. "g/7/".
func generationPrefix(generation uint64) []byte {
	return []byte(fmt.Sprintf("g/%d/", generation))
}

func tablePrefix(generation uint64, table []byte) []byte {
	return append(generationPrefix(generation), table...)
}

// key orders ids numerically, negative ids first.
func key(prefix []byte, id int64) []byte {
	k := make([]byte, len(prefix)+8)
	copy(k, prefix)
	binary.BigEndian.PutUint64(k[len(prefix):], uint64(id)^(1<<63))
	return k
}

// Replace writes the given network next to the stored one and switches to it
// in a single transaction. If writing fails the previous network stays in
// place.
func (s *NetworkStore) Replace(nodes []graph.Node, edges []graph.EdgeRecord, places []road.Place, meta Meta) error {
	previous, err := s.Meta()
	switch {
	case errors.Is(err, ErrEmpty):
		meta.Generation = 1
	case err != nil:
		return err
	default:
		meta.Generation = previous.Generation + 1
	}

	if err := s.write(meta.Generation, nodes, edges, places); err != nil {
		if dropErr := s.badgerDB.DropPrefix(generationPrefix(meta.Generation)); dropErr != nil {
			s.log.WithError(dropErr).Warn("could not remove partially written network")
		}
		return err
	}

	meta.Nodes, meta.Edges, meta.Places = len(nodes), len(edges), len(places)
	if meta.ImportedAt.IsZero() {
		meta.ImportedAt = time.Now().UTC()
	}
	data, err := msgpack.Marshal(meta)
	if err != nil {
		return fmt.Errorf("error encoding meta: %w", err)
	}
	if err := s.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey, data)
	}); err != nil {
		return fmt.Errorf("error switching network: %w", err)
	}

	if previous.Generation > 0 {
		if err := s.badgerDB.DropPrefix(generationPrefix(previous.Generation)); err != nil {
			s.log.WithError(err).WithField("generation", previous.Generation).Warn("could not remove previous network")
		}
	}
	s.log.WithFields(logrus.Fields{
		"nodes":      meta.Nodes,
		"edges":      meta.Edges,
		"places":     meta.Places,
		"projection": meta.Projection,
		"generation": meta.Generation,
	}).Info("network stored")
	return nil
}

// write stores the tables below the generation prefix. Nothing refers to them
// until the meta record is switched.
func (s *NetworkStore) write(generation uint64, nodes []graph.Node, edges []graph.EdgeRecord, places []road.Place) error {
	if err := s.badgerDB.DropPrefix(generationPrefix(generation)); err != nil {
		return fmt.Errorf("error clearing generation %d: %w", generation, err)
	}

	wb := s.badgerDB.NewWriteBatch()
	defer wb.Cancel()

	set := func(k []byte, v interface{}) error {
		data, err := msgpack.Marshal(v)
		if err != nil {
			return err
		}
		return wb.Set(k, data)
	}

	nodeKeys, edgeKeys, placeKeys := tablePrefix(generation, nodePrefix), tablePrefix(generation, edgePrefix), tablePrefix(generation, placePrefix)

	stored := make(map[int64]bool, len(nodes))
	for _, n := range nodes {
		if stored[n.ID] {
			return fmt.Errorf("%w: node %d", ErrDuplicateKey, n.ID)
		}
		stored[n.ID] = true
		if err := set(key(nodeKeys, n.ID), nodeRecord{ID: n.ID, X: n.Point.X(), Y: n.Point.Y(), Type: n.Type, Name: n.Name}); err != nil {
			return fmt.Errorf("error writing node %d: %w", n.ID, err)
		}
	}
	written := make(map[int64]bool, len(edges))
	for _, e := range edges {
		if !stored[e.From] || !stored[e.To] {
			return fmt.Errorf("%w: edge %d (%d -> %d)", ErrUnknownNode, e.ID, e.From, e.To)
		}
		if written[e.ID] {
			return fmt.Errorf("%w: edge %d", ErrDuplicateKey, e.ID)
		}
		written[e.ID] = true
		coords := make([]float64, 0, 2*len(e.Geometry))
		for _, p := range e.Geometry {
			coords = append(coords, p[0], p[1])
		}
		r := edgeRecord{ID: e.ID, From: e.From, To: e.To, Length: e.Length, OneWay: e.OneWay, Coords: coords}
		if err := set(key(edgeKeys, e.ID), r); err != nil {
			return fmt.Errorf("error writing edge %d: %w", e.ID, err)
		}
	}
	for _, p := range places {
		r := placeRecord{ID: p.ID, Name: p.Name, Category: p.Category, Address: p.Address, Lon: p.Location.Lon(), Lat: p.Location.Lat()}
		if err := set(key(placeKeys, p.ID), r); err != nil {
			return fmt.Errorf("error writing place %d: %w", p.ID, err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("error flushing network: %w", err)
	}
	return nil
}

func (s *NetworkStore) Meta() (Meta, error) {
	var meta Meta
	err := s.badgerDB.View(func(txn *badger.Txn) error {
		var err error
		meta, err = readMeta(txn)
		return err
	})
	return meta, err
}

func readMeta(txn *badger.Txn) (Meta, error) {
	var meta Meta
	item, err := txn.Get(metaKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Meta{}, ErrEmpty
	}
	if err != nil {
		return Meta{}, err
	}
	err = item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &meta)
	})
	return meta, err
}

// each decodes every value of a table of the current network in key order.
// An empty store has empty tables.
func (s *NetworkStore) each(table []byte, decode func(val []byte) error) error {
	return s.badgerDB.View(func(txn *badger.Txn) error {
		meta, err := readMeta(txn)
		if errors.Is(err, ErrEmpty) {
			return nil
		}
		if err != nil {
			return err
		}
		prefix := tablePrefix(meta.Generation, table)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(decode); err != nil {
				return fmt.Errorf("key %x: %w", it.Item().Key(), err)
			}
		}
		return nil
	})
}

func (s *NetworkStore) Nodes() ([]graph.Node, error) {
	nodes := make([]graph.Node, 0)
	err := s.each(nodePrefix, func(val []byte) error {
		var r nodeRecord
		if err := msgpack.Unmarshal(val, &r); err != nil {
			return err
		}
		nodes = append(nodes, graph.Node{ID: r.ID, Point: orb.Point{r.X, r.Y}, Type: r.Type, Name: r.Name})
		return nil
	})
	return nodes, err
}

func (s *NetworkStore) Edges() ([]graph.EdgeRecord, error) {
	edges := make([]graph.EdgeRecord, 0)
	err := s.each(edgePrefix, func(val []byte) error {
		var r edgeRecord
		if err := msgpack.Unmarshal(val, &r); err != nil {
			return err
		}
		if len(r.Coords)%2 != 0 {
			return fmt.Errorf("edge %d has an odd number of coordinates", r.ID)
		}
		line := make(orb.LineString, 0, len(r.Coords)/2)
		for i := 0; i < len(r.Coords); i += 2 {
			line = append(line, orb.Point{r.Coords[i], r.Coords[i+1]})
		}
		edges = append(edges, graph.EdgeRecord{ID: r.ID, From: r.From, To: r.To, Length: r.Length, Geometry: line, OneWay: r.OneWay})
		return nil
	})
	return edges, err
}

func (s *NetworkStore) Places() ([]road.Place, error) {
	places := make([]road.Place, 0)
	err := s.each(placePrefix, func(val []byte) error {
		var r placeRecord
		if err := msgpack.Unmarshal(val, &r); err != nil {
			return err
		}
		places = append(places, road.Place{ID: r.ID, Name: r.Name, Category: r.Category, Address: r.Address, Location: orb.Point{r.Lon, r.Lat}})
		return nil
	})
	return places, err
}

// LoadGraph reads the stored network and builds the graph from it.
func (s *NetworkStore) LoadGraph(opts graph.BuildOptions) (*graph.Graph, Meta, error) {
	meta, err := s.Meta()
	if err != nil {
		return nil, Meta{}, err
	}
	nodes, err := s.Nodes()
	if err != nil {
		return nil, Meta{}, fmt.Errorf("error reading nodes: %w", err)
	}
	edges, err := s.Edges()
	if err != nil {
		return nil, Meta{}, fmt.Errorf("error reading edges: %w", err)
	}
	g, err := graph.Build(nodes, edges, opts)
	if err != nil {
		return nil, Meta{}, err
	}
	return g, meta, nil
}
