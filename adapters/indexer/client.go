package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/khoahotran/video-search-proxy/internal/config"
	"github.com/khoahotran/video-search-proxy/internal/domain/search"
	"github.com/khoahotran/video-search-proxy/internal/domain/video"
	"github.com/khoahotran/video-search-proxy/pkg/apperror"
	"github.com/khoahotran/video-search-proxy/pkg/logger"
)

const (
	apiKeyHeader = "x-api-key"
	maxErrorBody = 64 << 10
)

// Client talks to the video-indexing service. It is safe for concurrent use.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
	logger  logger.Logger
}

func NewClient(cfg config.UpstreamConfig, log logger.Logger) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		tracer: otel.Tracer("github.com/khoahotran/video-search-proxy/adapters/indexer"),
		logger: log.With(zap.String("component", "indexer")),
	}
}

// SearchIndex posts a multipart search for one index and returns its page of clips.
func (c *Client) SearchIndex(ctx context.Context, indexID string, q search.Query) (*search.IndexResult, error) {
	ctx, span := c.tracer.Start(ctx, "indexer.SearchIndex", trace.WithAttributes(
		attribute.String("index_id", indexID),
		attribute.Int("page", q.Page),
		attribute.Int("page_limit", q.PageLimit),
	))
	defer span.End()

	body, contentType, err := searchForm(indexID, q)
	if err != nil {
		return nil, c.fail(span, apperror.NewInternal("failed to build search form", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", body)
	if err != nil {
		return nil, c.fail(span, apperror.NewInternal("failed to create search request", err))
	}
	req.Header.Set("Content-Type", contentType)

	raw, err := c.do(req, span)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data     []search.Clip   `json:"data"`
		PageInfo json.RawMessage `json:"page_info"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, c.fail(span, apperror.NewInternal("failed to decode search response", err))
	}

	result := &search.IndexResult{
		IndexID:  indexID,
		Clips:    payload.Data,
		PageInfo: payload.PageInfo,
	}
	if len(result.PageInfo) == 0 || string(result.PageInfo) == "null" {
		result.PageInfo = json.RawMessage(`{}`)
	}

	var cursor struct {
		NextPageToken json.RawMessage `json:"next_page_token"`
	}
	if err := json.Unmarshal(result.PageInfo, &cursor); err != nil {
		return nil, c.fail(span, apperror.NewInternal("failed to decode search page_info", err))
	}
	result.NextPageToken = pageToken(cursor.NextPageToken)

	span.SetAttributes(attribute.Int("clip_count", len(result.Clips)))
	return result, nil
}

// ListVideos fetches one page of an index's videos.
func (c *Client) ListVideos(ctx context.Context, q video.ListQuery) (*video.UpstreamPage, error) {
	ctx, span := c.tracer.Start(ctx, "indexer.ListVideos", trace.WithAttributes(
		attribute.String("index_id", q.IndexID),
		attribute.Int("page", q.Page),
		attribute.Int("page_limit", q.Limit),
	))
	defer span.End()

	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("page_limit", strconv.Itoa(q.Limit))
	endpoint := fmt.Sprintf("%s/indexes/%s/videos?%s", c.baseURL, url.PathEscape(q.IndexID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, c.fail(span, apperror.NewInternal("failed to create videos request", err))
	}

	raw, err := c.do(req, span)
	if err != nil {
		return nil, err
	}

	var page video.UpstreamPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, c.fail(span, apperror.NewInternal("failed to decode videos response", err))
	}
	if page.Data == nil {
		page.Data = []json.RawMessage{}
	}
	return &page, nil
}

func (c *Client) do(req *http.Request, span trace.Span) ([]byte, error) {
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(span, apperror.NewInternal("failed to reach video indexing service", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("Upstream returned non-2xx",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, c.fail(span, Classify(resp.StatusCode, string(body)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(span, apperror.NewInternal("failed to read upstream response", err))
	}
	return raw, nil
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Classify maps a non-2xx upstream status onto the error taxonomy.
// 500 stays a plain upstream error; deciding to retry it is the caller's job.
func Classify(status int, body string) error {
	switch status {
	case http.StatusUnauthorized:
		return apperror.NewUnauthorized(body)
	case http.StatusTooManyRequests:
		return apperror.NewRateLimited(body)
	default:
		return apperror.NewUpstream(status, body)
	}
}

// pageToken reads next_page_token whatever its JSON type. Strings are
// unquoted, null and absent yield "", anything else keeps its raw text.
func pageToken(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func searchForm(indexID string, q search.Query) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"search_options", "visual"},
		{"search_options", "audio"},
		{"group_by", "clip"},
		{"sort_option", "score"},
		{"page_limit", strconv.Itoa(q.PageLimit)},
		{"page", strconv.Itoa(q.Page)},
		{"index_id", indexID},
		{"query_text", q.Text},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
