package api

import (
	v1 "github.com/flexprice/debitsync/internal/api/v1"
	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/metrics"
	"github.com/flexprice/debitsync/internal/rest/middleware"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health     *v1.HealthHandler
	Debits     *v1.DebitsHandler
	DeadLetter *v1.DeadLetterHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger, m *metrics.Metrics) *gin.Engine {
	if cfg.Deployment.Environment == types.EnvironmentProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.ErrorHandler(logger),
	)

	router.GET("/health", handlers.Health.Health)
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// the processor webhook keeps its historical unversioned path
	router.POST("/debits/sync", handlers.Debits.Sync)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	deadLetters := router.Group("/deadletters")
	{
		deadLetters.GET("", handlers.DeadLetter.List)
		deadLetters.GET("/:id", handlers.DeadLetter.Get)
		deadLetters.POST("/:id/replay", handlers.DeadLetter.Replay)
		deadLetters.DELETE("/:id", handlers.DeadLetter.Delete)
	}
}
