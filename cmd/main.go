package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	fiberRecover "github.com/gofiber/fiber/v3/middleware/recover"

	"streamflix-catalog-service/internal/catalog"
	"streamflix-catalog-service/internal/config"
	"streamflix-catalog-service/internal/database"
	"streamflix-catalog-service/internal/handler"
	"streamflix-catalog-service/internal/middleware"
	"streamflix-catalog-service/internal/models"
	"streamflix-catalog-service/internal/query"
	"streamflix-catalog-service/internal/repository"
	"streamflix-catalog-service/internal/service"
)

func main() {
	// Structured logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Connect to Redis (non-fatal if unavailable; falls back to an
	// in-process session cache)
	var sessionCache query.SessionCache
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, using in-process session cache", "error", err)
		sessionCache = query.NewMemoryCache()
	} else {
		sessionCache = query.NewRedisCache(rdb)
	}

	// Pick the catalog source: Postgres when configured, otherwise the
	// built-in generator.
	source := func(ctx context.Context) ([]models.ContentItem, error) {
		return catalog.Generate(cfg.Catalog.Size), nil
	}
	if cfg.DB.Enabled() {
		db, err := database.NewPostgres(cfg.DB)
		if err != nil {
			slog.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		repo := repository.NewCatalogRepository(db)
		if count, err := repo.CountContent(); err == nil && count == 0 {
			slog.Info("seeding empty catalog", "size", cfg.Catalog.Size)
			if err := repo.ReplaceCatalog(catalog.Generate(cfg.Catalog.Size)); err != nil {
				slog.Error("failed to seed catalog", "error", err)
				os.Exit(1)
			}
		}
		source = func(ctx context.Context) ([]models.ContentItem, error) {
			return repo.ListContent()
		}
	}

	// Session service owns the catalog loader and per-session stores.
	svc := service.NewSessionService(sessionCache, source, cfg.Catalog, cfg.Session)
	svc.Start(context.Background())
	defer svc.Stop()

	catalogHandler := handler.NewCatalogHandler(svc)
	sessionHandler := handler.NewSessionHandler(svc)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Streamflix Catalog Service",
		ServerHeader: "Streamflix-Catalog",
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			slog.Error("unhandled error", "error", err, "status", code)
			return c.Status(code).JSON(handler.ErrorResponse{Error: err.Error()})
		},
	})

	// Middleware
	app.Use(fiberRecover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(middleware.SessionMiddleware())
	if rdb != nil {
		rateLimiter := middleware.NewRateLimiter(rdb, cfg.RateLimitMax, cfg.RateLimitWindowSeconds)
		app.Use(rateLimiter.Handler())
	}

	// Swagger docs
	swaggerYAML, err := os.ReadFile("docs/swagger.yaml")
	if err != nil {
		slog.Warn("swagger.yaml not found, swagger UI will be unavailable", "error", err)
	} else {
		handler.RegisterSwagger(app, swaggerYAML)
	}

	// API routes
	api := app.Group("/api/v1")
	api.Get("/health", catalogHandler.Health)
	api.Get("/catalog", catalogHandler.GetCatalog)
	api.Post("/catalog/refresh", catalogHandler.RefreshCatalog)

	api.Get("/views/browse", catalogHandler.Browse)
	api.Get("/views/trending", catalogHandler.Trending)
	api.Get("/views/recommended", catalogHandler.Recommendations)
	api.Get("/views/featured", catalogHandler.Featured)
	api.Get("/views/continue-watching", catalogHandler.ContinueWatching)
	api.Get("/views/genres/:genre", catalogHandler.GenreRail)

	api.Get("/session", sessionHandler.GetState)
	api.Put("/session/tab", sessionHandler.SetTab)
	api.Put("/session/search", sessionHandler.Search)

	api.Get("/profile", sessionHandler.GetProfile)
	api.Patch("/profile", sessionHandler.PatchProfile)
	api.Post("/watchlist/:id/toggle", sessionHandler.ToggleWatchlist)
	api.Post("/history/:id", sessionHandler.AddHistory)
	api.Put("/progress/:id", sessionHandler.UpdateProgress)

	api.Post("/playback/:id/start", sessionHandler.StartPlayback)
	api.Post("/playback/stop", sessionHandler.StopPlayback)

	api.Get("/notifications", sessionHandler.ListNotifications)
	api.Post("/notifications", sessionHandler.CreateNotification)
	api.Delete("/notifications/:id", sessionHandler.DismissNotification)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		slog.Info("shutting down catalog service...")
		_ = app.Shutdown()
	}()

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting catalog service", "addr", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
