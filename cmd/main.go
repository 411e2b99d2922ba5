package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pathwise/pathwise-backend/internal/clients/docstore"
	"github.com/pathwise/pathwise-backend/internal/clients/treecache"
	"github.com/pathwise/pathwise-backend/internal/config"
	"github.com/pathwise/pathwise-backend/internal/db"
	"github.com/pathwise/pathwise-backend/internal/handlers"
	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/middleware"
	"github.com/pathwise/pathwise-backend/internal/observability"
	"github.com/pathwise/pathwise-backend/internal/repos"
	"github.com/pathwise/pathwise-backend/internal/server"
	"github.com/pathwise/pathwise-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading configuration from main...")
	cfg := config.Load(log)

	// Tracing
	shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	if shutdownOtel != nil {
		defer func() { _ = shutdownOtel(context.Background()) }()
	}

	// Snapshot database
	database, err := db.NewDatabaseService(log)
	if err != nil {
		log.Error("Could not init snapshot database", "error", err)
		os.Exit(1)
	}
	if err := database.AutoMigrateAll(); err != nil {
		log.Error("Snapshot database migration failed", "error", err)
		os.Exit(1)
	}
	theDB := database.DB()

	// Clients
	log.Info("Setting up clients from main...")
	store, err := docstore.NewClient(log)
	if err != nil {
		log.Error("Could not init docstore client", "error", err)
		os.Exit(1)
	}
	trees, err := treecache.New(log)
	if err != nil {
		log.Error("Could not init module tree cache", "error", err)
		os.Exit(1)
	}

	// Repos
	log.Info("Setting up repos from main...")
	snapshotRepo := repos.NewSnapshotRepo(theDB, log)

	// Services
	log.Info("Setting up services from main...")
	authService := services.NewAuthService(log, cfg.JWTSecret)
	moduleService := services.NewModuleService(log, store)
	progressService := services.NewProgressService(log, store, trees, snapshotRepo)
	defer progressService.CloseAll()

	// Handlers
	log.Info("Setting up handlers from main...")
	moduleHandler := handlers.NewModuleHandler(moduleService)
	progressHandler := handlers.NewProgressHandler(log, moduleService, progressService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ServiceName:     cfg.ServiceName,
		AllowedOrigins:  cfg.AllowedOrigins,
		AuthMiddleware:  authMiddleware,
		ModuleHandler:   moduleHandler,
		ProgressHandler: progressHandler,
	})

	fmt.Printf("Server listening on :%s\n", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
