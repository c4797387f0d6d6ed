package db

import "github.com/dbpedia/lookup/internal/domain/search/querytree"

// SearchRequest is the input of a snapshot search.
type SearchRequest struct {
	Query querytree.Node
	Size  int
	// Fields lists stored fields to return; nil returns all of them.
	Fields []string
	// Highlight lists fields to compute best fragments for.
	Highlight []string
}

// SearchResult is the output of a snapshot search.
type SearchResult struct {
	Total uint64
	Hits  []SearchHit
}

// SearchHit is a single document hit.
type SearchHit struct {
	ID        string
	Score     float64
	Fields    map[string][]string
	Fragments map[string][]string
}
