package search

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/token/edgengram"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/sirupsen/logrus"

	"github.com/natevvv/snaproute/pkg/geometry"
	"github.com/natevvv/snaproute/pkg/graph"
	"github.com/natevvv/snaproute/pkg/road"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50

	nameAnalyzerName    = "namePrefix"
	nameTokenFilterName = "namePrefixFilter"
)

const (
	KindPlace = "place"
	KindNode  = "node"
)

// Entry is a searchable location: either a named point of interest or a named
// node of the road network.
type Entry struct {
	ID       string
	Kind     string
	Name     string
	Category string
	Address  string
	Location geometry.LatLon
}

// Index is an in-memory full text index over place and node names.
type Index struct {
	bi      bleve.Index
	entries map[string]Entry
	log     *logrus.Entry
}

func buildIndexMapping() (mapping.IndexMapping, error) {
	doc := bleve.NewDocumentMapping()
	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = nameAnalyzerName
	doc.AddFieldMappingsAt("name", nameField)
	addressField := bleve.NewTextFieldMapping()
	addressField.Analyzer = nameAnalyzerName
	doc.AddFieldMappingsAt("address", addressField)
	categoryField := bleve.NewTextFieldMapping()
	categoryField.Analyzer = standard.Name
	doc.AddFieldMappingsAt("category", categoryField)
	kindField := bleve.NewKeywordFieldMapping()
	kindField.IncludeInAll = false
	doc.AddFieldMappingsAt("kind", kindField)

	idxMapping := bleve.NewIndexMapping()
	idxMapping.DefaultMapping = doc
	idxMapping.DefaultAnalyzer = nameAnalyzerName

	if err := idxMapping.AddCustomTokenFilter(nameTokenFilterName, map[string]any{
		"type": edgengram.Name,
		"min":  2.0,
		"max":  25.0,
	}); err != nil {
		return nil, fmt.Errorf("add token filter: %w", err)
	}
	if err := idxMapping.AddCustomAnalyzer(nameAnalyzerName, map[string]any{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
			nameTokenFilterName,
		},
	}); err != nil {
		return nil, fmt.Errorf("add analyzer: %w", err)
	}
	return idxMapping, nil
}

// New indexes the places and every named node. Node positions are given in
// the frame of proj and stored as WGS84.
func New(places []road.Place, nodes []graph.Node, proj geometry.Projection, logger *logrus.Logger) (*Index, error) {
	if logger == nil {
		logger = logrus.New()
	}
	m, err := buildIndexMapping()
	if err != nil {
		return nil, err
	}
	bi, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}
	idx := &Index{bi: bi, entries: make(map[string]Entry), log: logger.WithField("component", "search")}

	batch := bi.NewBatch()
	add := func(e Entry) error {
		idx.entries[e.ID] = e
		return batch.Index(e.ID, map[string]any{
			"kind":     e.Kind,
			"name":     e.Name,
			"category": strings.ReplaceAll(e.Category, ":", " "),
			"address":  e.Address,
		})
	}
	for _, p := range places {
		e := Entry{
			ID:       fmt.Sprintf("%s/%d", KindPlace, p.ID),
			Kind:     KindPlace,
			Name:     p.Name,
			Category: p.Category,
			Address:  p.Address,
			Location: geometry.LatLonFromPoint(p.Location),
		}
		if err := add(e); err != nil {
			return nil, err
		}
	}
	for _, n := range nodes {
		if n.Name == "" {
			continue
		}
		e := Entry{
			ID:       fmt.Sprintf("%s/%d", KindNode, n.ID),
			Kind:     KindNode,
			Name:     n.Name,
			Category: n.Type,
			Location: proj.Inverse(n.Point),
		}
		if err := add(e); err != nil {
			return nil, err
		}
	}
	if err := bi.Batch(batch); err != nil {
		return nil, fmt.Errorf("index entries: %w", err)
	}
	idx.log.WithField("entries", len(idx.entries)).Info("search index built")
	return idx, nil
}

func (idx *Index) Close() error {
	return idx.bi.Close()
}

func (idx *Index) Len() int { return len(idx.entries) }

// Search returns the entries matching every word of text, best match first.
// limit is clamped to MaxLimit; zero or less means DefaultLimit.
func (idx *Index) Search(text string, limit int) ([]Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Entry{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	match := bleve.NewMatchQuery(text)
	match.Analyzer = standard.Name
	match.SetOperator(query.MatchQueryOperatorAnd)
	req := bleve.NewSearchRequestOptions(match, limit, 0, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := idx.bi.Search(req)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if e, ok := idx.entries[hit.ID]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}
