// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"
	"encoding/json"

	"github.com/platewise/engine/internal/domain/food"
)

// SearchService turns free text into catalog results
type SearchService interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResult, error)
	RecommendFromQuery(ctx context.Context, req QueryRecommendationRequest) (*QueryRecommendationResult, error)
}

// SearchRequest carries the raw query as received. Query is kept raw so the
// service can tell a missing value from a non-string one.
type SearchRequest struct {
	Query json.RawMessage
	Sort  string
	Limit int
}

// SearchResult is the outcome of a text search
type SearchResult struct {
	Criteria food.Constraint   `json:"criteria"`
	Items    []food.PricedItem `json:"items"`
	Count    int               `json:"count"`
}

// QueryRecommendationRequest asks for recommendations matching free text
type QueryRecommendationRequest struct {
	Query json.RawMessage
	Limit int
}

// QueryRecommendationResult is a criteria-driven recommendation list
type QueryRecommendationResult struct {
	Criteria food.Constraint   `json:"criteria"`
	Summary  string            `json:"summary"`
	Items    []food.PricedItem `json:"items"`
}
