package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/video-search-proxy/pkg/apperror"
	"github.com/khoahotran/video-search-proxy/pkg/logger"
)

type RouterDeps struct {
	SearchHandler      *SearchHandler
	VideoHandler       *VideoHandler
	AllowOrigins       []string
	UpstreamConfigured bool
	Logger             logger.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		CORSMiddleware(deps.AllowOrigins),
		TracingMiddleware(),
		AccessLogMiddleware(deps.Logger),
		ErrorMiddleware(deps.Logger),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthDTO{Status: "UP", UpstreamConfigured: deps.UpstreamConfigured})
	})
	router.POST("/search/text", deps.SearchHandler.SearchText)
	router.GET("/videos", deps.VideoHandler.ListVideos)

	router.NoRoute(func(c *gin.Context) {
		c.Error(apperror.NewNotFound("route", c.Request.Method+" "+c.Request.URL.Path))
	})

	return router
}
