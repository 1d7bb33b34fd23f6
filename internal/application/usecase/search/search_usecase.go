package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khoahotran/video-search-proxy/internal/config"
	"github.com/khoahotran/video-search-proxy/internal/domain/search"
	"github.com/khoahotran/video-search-proxy/pkg/apperror"
	"github.com/khoahotran/video-search-proxy/pkg/logger"
)

type SearchUseCase struct {
	searcher search.Searcher
	upstream config.UpstreamConfig
	indexes  config.IndexesConfig
	opts     config.SearchConfig
	logger   logger.Logger
	sleep    func(context.Context, time.Duration) error
}

func NewSearchUseCase(
	s search.Searcher,
	upstream config.UpstreamConfig,
	indexes config.IndexesConfig,
	opts config.SearchConfig,
	log logger.Logger,
) *SearchUseCase {
	if opts.DefaultPageLimit <= 0 {
		opts.DefaultPageLimit = 12
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &SearchUseCase{
		searcher: s,
		upstream: upstream,
		indexes:  indexes,
		opts:     opts,
		logger:   log,
		sleep:    sleep,
	}
}

type SearchInput struct {
	Query     string
	Scope     string
	PageLimit int
	Page      int
}

func (uc *SearchUseCase) Execute(ctx context.Context, input SearchInput) (*search.MergedResult, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, apperror.NewInvalidInput("Query is required", nil)
	}
	scope, err := search.ParseScope(input.Scope)
	if err != nil {
		return nil, apperror.NewInvalidInput("Invalid scope. Must be one of: brand, creator, all", err)
	}
	if input.PageLimit <= 0 {
		input.PageLimit = uc.opts.DefaultPageLimit
	}
	if input.Page <= 0 {
		input.Page = 1
	}

	indexIDs, err := uc.resolve(scope)
	if err != nil {
		return nil, err
	}

	l := uc.logger.With(zap.String("scope", string(scope)), zap.Strings("index_ids", indexIDs))
	l.Info("Executing multi-index search", zap.String("query", query), zap.Int("page", input.Page), zap.Int("page_limit", input.PageLimit))

	q := search.Query{Text: query, Page: input.Page, PageLimit: input.PageLimit}
	results := make([]*search.IndexResult, len(indexIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, indexID := range indexIDs {
		g.Go(func() error {
			res, err := uc.searchWithRetry(gctx, indexID, q)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.Error("Multi-index search failed", err)
		return nil, err
	}

	merged := Merge(results)
	l.Info("Multi-index search completed", zap.Int("total_clips", len(merged.Data)), zap.Bool("has_more", merged.HasMore))
	return merged, nil
}

// resolve maps a scope to index ids in a fixed order, brand before creator.
func (uc *SearchUseCase) resolve(scope search.Scope) ([]string, error) {
	if uc.upstream.APIKey == "" {
		return nil, apperror.NewConfiguration("upstream API key is not configured")
	}
	if uc.upstream.BaseURL == "" {
		return nil, apperror.NewConfiguration("upstream base URL is not configured")
	}

	var ids []string
	if scope == search.ScopeBrand || scope == search.ScopeAll {
		if uc.indexes.Brand == "" {
			return nil, apperror.NewConfiguration("brand index id is not configured")
		}
		ids = append(ids, uc.indexes.Brand)
	}
	if scope == search.ScopeCreator || scope == search.ScopeAll {
		if uc.indexes.Creator == "" {
			return nil, apperror.NewConfiguration("creator index id is not configured")
		}
		// one index configured for both scopes is searched once
		if len(ids) == 0 || ids[0] != uc.indexes.Creator {
			ids = append(ids, uc.indexes.Creator)
		}
	}
	return ids, nil
}

// searchWithRetry retries only upstream 500s, waiting attempt*RetryDelay
// between attempts.
func (uc *SearchUseCase) searchWithRetry(ctx context.Context, indexID string, q search.Query) (*search.IndexResult, error) {
	l := uc.logger.With(zap.String("index_id", indexID))

	var lastErr error
	for attempt := 0; attempt <= uc.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * uc.opts.RetryDelay
			l.Warn("Upstream returned 500, retrying", zap.Int("attempt", attempt+1), zap.Duration("delay", delay))
			if err := uc.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		l.Debug("Searching index", zap.Int("attempt", attempt+1))
		res, err := uc.searcher.SearchIndex(ctx, indexID, q)
		if err == nil {
			return res, nil
		}
		if !isServerError(err) {
			return nil, err
		}
		lastErr = err
	}

	l.Error("Upstream still failing after retries", lastErr, zap.Int("attempts", uc.opts.MaxRetries+1))
	return nil, apperror.NewUpstreamUnavailable("index "+indexID+" returned 500 on every attempt", lastErr)
}

func isServerError(err error) bool {
	return errors.Is(err, apperror.ErrUpstream) && apperror.StatusOf(err) == http.StatusInternalServerError
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Merge tags every clip with its index, sorts all clips by score descending
// and folds the per-index cursors. Input order decides ties.
func Merge(results []*search.IndexResult) *search.MergedResult {
	merged := &search.MergedResult{
		PageInfoByIndex: make(map[string]json.RawMessage, len(results)),
		Data:            []search.Clip{},
		NextPageTokens:  make(map[string]*string, len(results)),
	}

	for _, res := range results {
		if res == nil {
			continue
		}
		pageInfo := res.PageInfo
		if len(pageInfo) == 0 {
			pageInfo = json.RawMessage(`{}`)
		}
		merged.PageInfoByIndex[res.IndexID] = pageInfo
		for _, clip := range res.Clips {
			clip.IndexID = res.IndexID
			merged.Data = append(merged.Data, clip)
		}
		if res.NextPageToken != "" {
			token := res.NextPageToken
			merged.NextPageTokens[res.IndexID] = &token
			merged.HasMore = true
		} else {
			merged.NextPageTokens[res.IndexID] = nil
		}
	}

	sort.SliceStable(merged.Data, func(i, j int) bool {
		return merged.Data[i].Score > merged.Data[j].Score
	})
	return merged
}
