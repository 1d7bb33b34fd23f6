package http

// SearchTextRequest is the body of POST /search/text. Omitted page fields
// fall back to server defaults.
type SearchTextRequest struct {
	Query     string `json:"query"`
	Scope     string `json:"scope"`
	PageLimit int    `json:"page_limit"`
	Page      int    `json:"page"`
}

type HealthDTO struct {
	Status             string `json:"status"`
	UpstreamConfigured bool   `json:"upstream_configured"`
}
