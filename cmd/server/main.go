package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/arturoeanton/commitlens/internal/adapter/ai"
	"github.com/arturoeanton/commitlens/internal/adapter/scm"
	"github.com/arturoeanton/commitlens/internal/adapter/store"
	"github.com/arturoeanton/commitlens/internal/handler"
	"github.com/arturoeanton/commitlens/internal/middleware"
	"github.com/arturoeanton/commitlens/internal/port"
	"github.com/arturoeanton/commitlens/internal/service"
	"github.com/arturoeanton/commitlens/pkg/config"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting CommitLens",
		"port", cfg.Port,
		"ollama_embed", cfg.OllamaEmbedURL,
		"ollama_chat", cfg.OllamaChatURL,
		"batch_size", cfg.BatchSize,
	)

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	vectorStore := store.NewVectorStore(pgStore, cfg.EmbeddingDimension)

	// ── Adapters ─────────────────────────────────────────────────────────
	ollamaAI := ai.NewOllamaProvider(
		ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaEmbedURL,
			Model:   cfg.OllamaEmbedModel,
			Token:   cfg.OllamaEmbedToken,
		},
		ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaChatURL,
			Model:   cfg.OllamaChatModel,
			Token:   cfg.OllamaChatToken,
		},
	)

	// Ordered fallback chain: primary chat model first, then the configured
	// spares on the same endpoint.
	generators := []port.Generator{ollamaAI}
	for _, model := range cfg.FallbackChatModels {
		generators = append(generators, ai.NewOllamaProvider(
			ai.OllamaEndpointConfig{
				BaseURL: cfg.OllamaEmbedURL,
				Model:   cfg.OllamaEmbedModel,
				Token:   cfg.OllamaEmbedToken,
			},
			ai.OllamaEndpointConfig{
				BaseURL: cfg.OllamaChatURL,
				Model:   model,
				Token:   cfg.OllamaChatToken,
			},
		))
	}
	generator := ai.NewFallback(generators...)

	github := scm.NewGitHubProvider(cfg.GitHubToken)

	// ── Services ─────────────────────────────────────────────────────────
	retry := service.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    8 * time.Second,
		Multiplier:  2.0,
	}
	analyzer := service.NewAnalyzer(generator, service.NewMemoryCache(), retry)
	batcher := service.NewBatchOrchestrator(analyzer, cfg.BatchSize)
	ingestor := service.NewIngestor(github, pgStore)
	indexer := service.NewIndexer(ollamaAI, vectorStore, generator, pgStore)
	queries := service.NewQueryService(ollamaAI, vectorStore, pgStore, generator)
	runs := service.NewRunRecorder(pgStore)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	// Audit middleware (logs all requests)
	app.Use(middleware.AuditMiddleware(pgStore))

	// Health check
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"app":     cfg.AppName,
			"version": "1.0.0",
		})
	})

	// ── Public Routes ────────────────────────────────────────────────────
	commitsHandler := handler.NewCommitsHandler(github, pgStore)
	commitsHandler.Register(app.Group("/api/v1"))

	// ── Protected Routes ─────────────────────────────────────────────────
	var api fiber.Router
	if cfg.AuthEnabled {
		jwtMiddleware := middleware.JWTMiddleware(middleware.JWTConfig{
			Secret:    cfg.JWTSecret,
			Issuer:    cfg.JWTIssuer,
			ExpiresIn: time.Duration(cfg.JWTExpiration) * time.Hour,
		})
		api = app.Group("/api/v1", jwtMiddleware)
	} else {
		slog.Warn("authentication disabled, API is open")
		api = app.Group("/api/v1")
	}

	jobTracker := handler.NewJobTracker()

	analysisHandler := handler.NewAnalysisHandler(ingestor, batcher, indexer, queries, pgStore, runs, jobTracker, cfg.QueryK)
	analysisHandler.Register(api)

	jobsHandler := handler.NewJobsHandler(jobTracker)
	jobsHandler.Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
