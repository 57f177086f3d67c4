package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a catalog search.
type Params struct {
	Query  string
	Limit  int
	Offset int
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{Limit: 20}
}

// Result is one page of catalog search results.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is a single matching item.
type Hit struct {
	ItemID   string  `json:"itemId"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score"`
}

// Search finds catalog items matching the query, checking canonical
// names first and falling back to the alias pile, with fuzzy and prefix
// matching for typos and partial input.
func (i *Index) Search(ctx context.Context, params Params) (*Result, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultParams().Limit
	}

	req := bleve.NewSearchRequestOptions(buildQuery(params.Query), params.Limit, params.Offset, false)
	req.Fields = []string{"name", "category"}

	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	out := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		h := Hit{ItemID: hit.ID, Score: hit.Score}
		if n, ok := hit.Fields["name"].(string); ok {
			h.Name = n
		}
		if c, ok := hit.Fields["category"].(string); ok {
			h.Category = c
		}
		out.Hits = append(out.Hits, h)
	}
	return out, nil
}

func buildQuery(q string) query.Query {
	if q == "" {
		return bleve.NewMatchAllQuery()
	}

	// Canonical name carries the highest boost, aliases next; fuzzy and
	// prefix variants mop up typos and mid-word searches.
	nameMatch := bleve.NewMatchQuery(q)
	nameMatch.SetField("name")
	nameMatch.SetBoost(3.0)

	aliasMatch := bleve.NewMatchQuery(q)
	aliasMatch.SetField("aliases")
	aliasMatch.SetBoost(1.5)

	nameFuzzy := bleve.NewFuzzyQuery(q)
	nameFuzzy.SetField("name")
	nameFuzzy.SetFuzziness(2)

	namePrefix := bleve.NewPrefixQuery(strings.ToLower(q))
	namePrefix.SetField("name")

	return bleve.NewDisjunctionQuery(nameMatch, aliasMatch, nameFuzzy, namePrefix)
}
