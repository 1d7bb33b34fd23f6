package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	httpAdapter "github.com/khoahotran/video-search-proxy/adapters/http"
	"github.com/khoahotran/video-search-proxy/adapters/indexer"
	searchUC "github.com/khoahotran/video-search-proxy/internal/application/usecase/search"
	videoUC "github.com/khoahotran/video-search-proxy/internal/application/usecase/video"
	"github.com/khoahotran/video-search-proxy/internal/config"
	"github.com/khoahotran/video-search-proxy/pkg/logger"
	"github.com/khoahotran/video-search-proxy/pkg/tracing"
)

const serviceName = "video-search-proxy"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()

	if !cfg.Upstream.Configured() {
		appLogger.Warn("Upstream API key or base URL not set, requests will fail with a configuration error")
	}

	shutdownTracing, err := tracing.Setup(cfg.Jaeger.OTLPEndpoint, serviceName, appLogger)
	if err != nil {
		appLogger.Fatal("Cannot initialize tracing", err)
	}

	// Upstream client
	indexerClient := indexer.NewClient(cfg.Upstream, appLogger)

	// Use Cases
	searchUseCase := searchUC.NewSearchUseCase(indexerClient, cfg.Upstream, cfg.Indexes, cfg.Search, appLogger)
	listVideosUseCase := videoUC.NewListVideosUseCase(indexerClient, cfg.Upstream, cfg.Videos, appLogger)

	// HTTP Handlers
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		SearchHandler:      httpAdapter.NewSearchHandler(searchUseCase, appLogger),
		VideoHandler:       httpAdapter.NewVideoHandler(listVideosUseCase, appLogger),
		AllowOrigins:       cfg.CORS.AllowOrigins,
		UpstreamConfigured: cfg.Upstream.Configured(),
		Logger:             appLogger,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server shutdown error", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		appLogger.Error("Tracer shutdown error", err)
	}
	appLogger.Info("Server gracefully stopped")
}
