package main

import (
	"context"
	"log"
	"time"

	"github.com/blink-new/ipo-showcase-backend/config"
	"github.com/blink-new/ipo-showcase-backend/database"
	"github.com/blink-new/ipo-showcase-backend/handlers"
	"github.com/blink-new/ipo-showcase-backend/jobs"
	"github.com/blink-new/ipo-showcase-backend/models"
	"github.com/blink-new/ipo-showcase-backend/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load config
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Database is optional: without it the cache runs memory-only and
	// snapshots do not survive restarts.
	var snapshotStore services.SnapshotStore
	var pgStore *database.PostgresSnapshotStore
	if cfg.DatabaseURL != "" {
		if err := database.Connect(cfg.DatabaseURL); err != nil {
			log.Printf("Database unavailable, running memory-only: %v", err)
		} else {
			defer database.Close()
			pgStore = database.NewPostgresSnapshotStore(database.DB)
			snapshotStore = pgStore
		}
	}

	// Initialize pipeline services
	utilityService := services.NewUtilityService()
	synthetic := services.NewSyntheticDataGenerator()
	feedConfig := config.DefaultFeedConfig()
	feedConfig.BaseURL = cfg.FeedBaseURL
	feedConfig.RequestTimeout = cfg.GetFeedTimeout()
	feedService := services.NewFeedService(feedConfig)
	transformService := services.NewTransformService(utilityService, synthetic)
	pipelineService := services.NewPipelineService(utilityService, transformService)
	cacheService := services.NewBatchCacheService(snapshotStore, cfg.GetCacheTTL())

	var decorators []services.BatchDecorator
	if cfg.EnableLiveGMP {
		decorators = append(decorators, services.NewLiveGMPService(utilityService))
		log.Println("Live GMP overlay enabled")
	}
	if cfg.EnableDetailEnrichment {
		decorators = append(decorators, services.NewDetailEnrichmentService())
		log.Println("Prospectus detail enrichment enabled")
	}

	dataService := services.NewIPODataService(feedService, pipelineService, cacheService, synthetic, decorators...)

	// Warm up with an initial load so the first request is served from the
	// working set.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := dataService.Load(ctx, models.CategoryMainboard); err != nil {
			log.Printf("Initial IPO data load failed: %v", err)
		}
	}()

	// Background jobs
	refreshJob := jobs.NewRefreshJob(dataService, cfg.GetRefreshInterval())
	refreshJob.Start()
	defer refreshJob.Stop()

	if pgStore != nil {
		cleanupJob := jobs.NewSnapshotCleanupJob(pgStore, 24*time.Hour)
		go func() {
			cleanupTicker := time.NewTicker(12 * time.Hour)
			defer cleanupTicker.Stop()
			for range cleanupTicker.C {
				cleanupJob.Run()
			}
		}()
	}

	// Initialize handlers
	ipoHandler := handlers.NewIPOHandler(dataService)

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	// Routes
	api := app.Group("/api/v1")

	api.Get("/ipos", ipoHandler.GetDashboard)
	api.Get("/ipos/:id/subscription", ipoHandler.GetSubscriptionStatus)
	api.Get("/ipos/:id", ipoHandler.GetIPOByID)
	api.Post("/ipos/refresh", ipoHandler.Refresh)
	api.Get("/metrics", ipoHandler.GetMetrics)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
