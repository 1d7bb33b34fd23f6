package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	searchUC "github.com/khoahotran/video-search-proxy/internal/application/usecase/search"
	"github.com/khoahotran/video-search-proxy/pkg/apperror"
	"github.com/khoahotran/video-search-proxy/pkg/logger"
)

type SearchHandler struct {
	searchUseCase *searchUC.SearchUseCase
	logger        logger.Logger
}

func NewSearchHandler(uc *searchUC.SearchUseCase, log logger.Logger) *SearchHandler {
	return &SearchHandler{
		searchUseCase: uc,
		logger:        log,
	}
}

func (h *SearchHandler) SearchText(c *gin.Context) {
	var req SearchTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("Invalid request body", err))
		return
	}

	output, err := h.searchUseCase.Execute(c.Request.Context(), searchUC.SearchInput{
		Query:     req.Query,
		Scope:     req.Scope,
		PageLimit: req.PageLimit,
		Page:      req.Page,
	})
	if err != nil {
		c.Error(apperror.WithoutDetails(err))
		return
	}

	c.JSON(http.StatusOK, output)
}
