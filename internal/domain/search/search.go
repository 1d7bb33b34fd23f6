package search

import (
	"context"
	"encoding/json"
	"errors"
)

type Scope string

const (
	ScopeBrand   Scope = "brand"
	ScopeCreator Scope = "creator"
	ScopeAll     Scope = "all"
)

var ErrInvalidScope = errors.New("scope must be one of: brand, creator, all")

// ParseScope accepts only the exact lowercase scope names.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeBrand, ScopeCreator, ScopeAll:
		return Scope(s), nil
	default:
		return "", ErrInvalidScope
	}
}

// Query is what a single upstream search call carries besides the index id.
type Query struct {
	Text      string
	Page      int
	PageLimit int
}

// Clip is one matched segment as returned by the upstream, tagged with the
// index that produced it once it enters a merged response.
type Clip struct {
	VideoID      string  `json:"video_id"`
	ThumbnailURL string  `json:"thumbnail_url"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Confidence   string  `json:"confidence"`
	Score        float64 `json:"score"`
	IndexID      string  `json:"index_id"`
}

// IndexResult is one index's page of matches. PageInfo is kept verbatim so
// clients see exactly what the upstream reported.
type IndexResult struct {
	IndexID       string
	Clips         []Clip
	PageInfo      json.RawMessage
	NextPageToken string
}

type MergedResult struct {
	PageInfoByIndex map[string]json.RawMessage `json:"pageInfoByIndex"`
	Data            []Clip                     `json:"data"`
	HasMore         bool                       `json:"hasMore"`
	NextPageTokens  map[string]*string         `json:"nextPageTokens"`
}

// Searcher runs one search against one upstream index. Implementations
// return *apperror.AppError values so callers can branch on status.
type Searcher interface {
	SearchIndex(ctx context.Context, indexID string, q Query) (*IndexResult, error)
}
