package video

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/khoahotran/video-search-proxy/internal/config"
	"github.com/khoahotran/video-search-proxy/internal/domain/video"
	"github.com/khoahotran/video-search-proxy/pkg/apperror"
	"github.com/khoahotran/video-search-proxy/pkg/logger"
)

type ListVideosUseCase struct {
	lister   video.Lister
	upstream config.UpstreamConfig
	opts     config.VideosConfig
	logger   logger.Logger
}

func NewListVideosUseCase(l video.Lister, upstream config.UpstreamConfig, opts config.VideosConfig, log logger.Logger) *ListVideosUseCase {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 12
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 50
	}
	return &ListVideosUseCase{
		lister:   l,
		upstream: upstream,
		opts:     opts,
		logger:   log,
	}
}

type ListVideosInput struct {
	IndexID string
	Page    int
	Limit   int
}

func (uc *ListVideosUseCase) Execute(ctx context.Context, input ListVideosInput) (*video.Listing, error) {
	indexID := strings.TrimSpace(input.IndexID)
	if indexID == "" {
		return nil, apperror.NewInvalidInput("index_id is required", nil)
	}
	if !uc.upstream.Configured() {
		return nil, apperror.NewConfiguration("upstream API key or base URL is not configured")
	}

	l := uc.logger.With(zap.String("index_id", indexID))

	page := input.Page
	if page <= 0 {
		page = 1
	}
	limit := input.Limit
	if limit <= 0 {
		limit = uc.opts.DefaultLimit
	}
	if limit > uc.opts.MaxLimit {
		l.Warn("Requested limit exceeds maximum, clamping", zap.Int("requested", limit), zap.Int("max", uc.opts.MaxLimit))
		limit = uc.opts.MaxLimit
	}

	upstream, err := uc.lister.ListVideos(ctx, video.ListQuery{IndexID: indexID, Page: page, Limit: limit})
	if err != nil {
		l.Error("Failed to list videos", err)
		return nil, err
	}

	l.Info("Listed videos", zap.Int("page", page), zap.Int("count", len(upstream.Data)))
	return &video.Listing{
		Data: upstream.Data,
		PageInfo: video.PageInfo{
			Page:       page,
			TotalPage:  upstream.PageInfo.TotalPage,
			TotalCount: upstream.PageInfo.TotalResults,
		},
	}, nil
}
