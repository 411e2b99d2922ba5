package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/pathwise/pathwise-backend/internal/handlers"
	"github.com/pathwise/pathwise-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName     string
	AllowedOrigins  []string
	AuthMiddleware  *middleware.AuthMiddleware
	ModuleHandler   *handlers.ModuleHandler
	ProgressHandler *handlers.ProgressHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "pathwise-backend"
	}
	router.Use(otelgin.Middleware(serviceName))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Dashboard
	api.GET("/modules", cfg.ModuleHandler.ListModules)

	// Module detail & progression
	api.GET("/modules/:id", cfg.ProgressHandler.GetModuleDetail)
	api.POST("/modules/:id/start", cfg.ProgressHandler.StartModule)
	api.POST("/modules/:id/navigate", cfg.ProgressHandler.Navigate)
	api.POST("/modules/:id/chapters/:chapterID/complete", cfg.ProgressHandler.CompleteChapter)
	api.GET("/modules/:id/gate", cfg.ProgressHandler.GetGate)
	api.POST("/modules/:id/refresh", cfg.ProgressHandler.RefreshSession)
	api.DELETE("/modules/:id/session", cfg.ProgressHandler.CloseSession)

	// First-paint snapshots
	api.GET("/progress/snapshots", cfg.ProgressHandler.ListSnapshots)
	api.GET("/modules/:id/snapshot", cfg.ProgressHandler.GetSnapshot)

	return router
}
