package db

import "github.com/kailas-cloud/obstore/internal/domain/search/query"

// SearchQuery is the input for a structured search over one index.
type SearchQuery struct {
	Index string
	Query query.Query
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total int
	Hits  []Document
}
