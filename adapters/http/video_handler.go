package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	videoUC "github.com/khoahotran/video-search-proxy/internal/application/usecase/video"
	"github.com/khoahotran/video-search-proxy/pkg/apperror"
	"github.com/khoahotran/video-search-proxy/pkg/logger"
)

type VideoHandler struct {
	listVideosUseCase *videoUC.ListVideosUseCase
	logger            logger.Logger
}

func NewVideoHandler(uc *videoUC.ListVideosUseCase, log logger.Logger) *VideoHandler {
	return &VideoHandler{
		listVideosUseCase: uc,
		logger:            log,
	}
}

func (h *VideoHandler) ListVideos(c *gin.Context) {
	page, err := positiveInt(c.DefaultQuery("page", "1"))
	if err != nil {
		c.Error(apperror.NewInvalidInput("page must be a positive integer", err))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = positiveInt(raw); err != nil {
			c.Error(apperror.NewInvalidInput("limit must be a positive integer", err))
			return
		}
	}

	output, err := h.listVideosUseCase.Execute(c.Request.Context(), videoUC.ListVideosInput{
		IndexID: c.Query("index_id"),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, output)
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
