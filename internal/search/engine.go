// Package search indexes the tracked company universe in an in-memory
// bleve index and answers ticker/name lookups for the UI's symbol picker.
package search

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/claradash/marketfeed/internal/catalog"
)

// Hit is one search result, strongest match first.
type Hit struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Sector string  `json:"sector"`
	Score  float64 `json:"score"`
}

type companyDoc struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

// Engine wraps a memory-only bleve index over the catalog. The universe is
// small and static, so the index is rebuilt at startup and never mutated.
type Engine struct {
	index bleve.Index
}

func NewEngine() (*Engine, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}

	batch := idx.NewBatch()
	for _, c := range catalog.Companies() {
		doc := companyDoc{Symbol: c.Symbol, Name: c.Name, Sector: c.Sector}
		if err := batch.Index(c.Symbol, doc); err != nil {
			return nil, fmt.Errorf("index %s: %w", c.Symbol, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("load search index: %w", err)
	}
	return &Engine{index: idx}, nil
}

func buildMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	symbol := bleve.NewTextFieldMapping()
	symbol.Analyzer = "keyword"
	doc.AddFieldMappingsAt("symbol", symbol)

	name := bleve.NewTextFieldMapping()
	doc.AddFieldMappingsAt("name", name)

	sector := bleve.NewTextFieldMapping()
	sector.Analyzer = "keyword"
	doc.AddFieldMappingsAt("sector", sector)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Search ranks companies against a free-text query. Exact ticker matches
// outrank ticker prefixes, which outrank name matches.
func (e *Engine) Search(q string, limit int) ([]Hit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	upper := strings.ToUpper(q)

	exact := bleve.NewTermQuery(upper)
	exact.SetField("symbol")
	exact.SetBoost(10)

	prefix := bleve.NewPrefixQuery(upper)
	prefix.SetField("symbol")
	prefix.SetBoost(5)

	name := bleve.NewMatchQuery(q)
	name.SetField("name")
	name.SetBoost(3)

	namePrefix := bleve.NewWildcardQuery("*" + strings.ToLower(q) + "*")
	namePrefix.SetField("name")

	query := bleve.NewDisjunctionQuery(exact, prefix, name, namePrefix)
	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	req.Fields = []string{"symbol", "name", "sector"}

	res, err := e.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{Symbol: h.ID, Score: h.Score}
		if v, ok := h.Fields["name"].(string); ok {
			hit.Name = v
		}
		if v, ok := h.Fields["sector"].(string); ok {
			hit.Sector = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (e *Engine) Close() error {
	return e.index.Close()
}
