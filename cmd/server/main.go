package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/joho/godotenv"

	"github.com/localnerve/tabledit/internal/config"
	"github.com/localnerve/tabledit/internal/database"
	"github.com/localnerve/tabledit/internal/handlers"
	"github.com/localnerve/tabledit/internal/middleware"
	"github.com/localnerve/tabledit/internal/ratelimit"
	"github.com/localnerve/tabledit/internal/services"
	"github.com/localnerve/tabledit/internal/store"
	"github.com/localnerve/tabledit/internal/types"
	"github.com/localnerve/tabledit/internal/utils"

	_ "github.com/localnerve/tabledit/docs/api" // Swagger docs
)

// @title Tabledit API
// @version 1.0.0
// @description Cloud file store for the Tabledit table editor
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/tabledit
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Optional .env file, ignored when absent
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// File store over the shared pool
	fileStore := store.New(db, nil, store.Config{
		MaxFiles:         cfg.MaxFiles,
		MaxBatchDelete:   cfg.MaxBatchDelete,
		MaxDocumentBytes: cfg.MaxDocumentBytes,
		ListCacheTTL:     cfg.ListCacheTTL,
		Limits: ratelimit.Config{
			ratelimit.ActionSave:   cfg.RateSavePerMinute,
			ratelimit.ActionLoad:   cfg.RateLoadPerMinute,
			ratelimit.ActionDelete: cfg.RateDeletePerMinute,
		},
	})

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("tabledit")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	// Health endpoint
	api.Get("/health", func(c *fiber.Ctx) error {
		result := services.HealthCheck(cfg, db)
		status := fiber.StatusOK
		if result.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	})

	// File routes (all require user authentication)
	handler := &handlers.FilesHandler{Store: fileStore}
	files := api.Group("/files", middleware.AuthUser(cfg))
	files.Post("/", handler.CreateFile)
	files.Get("/", handler.ListFiles)
	files.Get("/search", handler.SearchFiles)
	files.Post("/batch-delete", handler.BatchDeleteFiles)
	files.Post("/import", handler.ImportFile)
	files.Get("/:id", handler.GetFile)
	files.Put("/:id", handler.UpdateFile)
	files.Put("/:id/metadata", handler.SetFileMetadata)
	files.Delete("/:id", handler.DeleteFile)
	files.Delete("/:id/permanent", handler.PurgeFile)
	files.Get("/:id/export", handler.ExportFile)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFoundResponse(c, "[404] Resource Not Found")
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	if e, ok := err.(*types.CustomError); ok {
		code = e.Code
		message = e.Message
		errorType = e.Type
	}

	versionError := false
	if code == fiber.StatusConflict {
		versionError = true
		errorType = "version"
	}

	return c.Status(code).JSON(fiber.Map{
		"status":       code,
		"message":      message,
		"ok":           false,
		"versionError": versionError,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"url":          c.OriginalURL(),
		"type":         errorType,
	})
}
