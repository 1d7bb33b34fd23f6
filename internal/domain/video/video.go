package video

import (
	"context"
	"encoding/json"
)

type ListQuery struct {
	IndexID string
	Page    int
	Limit   int
}

// UpstreamPage is the upstream listing as received. Videos are never decoded.
type UpstreamPage struct {
	Data     []json.RawMessage `json:"data"`
	PageInfo struct {
		TotalPage    int `json:"total_page"`
		TotalResults int `json:"total_results"`
	} `json:"page_info"`
}

type PageInfo struct {
	Page       int `json:"page"`
	TotalPage  int `json:"total_page"`
	TotalCount int `json:"total_count"`
}

type Listing struct {
	Data     []json.RawMessage `json:"data"`
	PageInfo PageInfo          `json:"page_info"`
}

type Lister interface {
	ListVideos(ctx context.Context, q ListQuery) (*UpstreamPage, error)
}
