package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/novelreel/api/internal/audit"
	"github.com/novelreel/api/internal/client"
	"github.com/novelreel/api/internal/config"
	"github.com/novelreel/api/internal/handler"
	"github.com/novelreel/api/internal/middleware"
	"github.com/novelreel/api/internal/model"
	"github.com/novelreel/api/internal/prompt"
	"github.com/novelreel/api/internal/service"
	"github.com/novelreel/api/internal/store"
	ws "github.com/novelreel/api/internal/websocket"
	"github.com/novelreel/api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	// Redis: job records, supersede keys, rate limits
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis not available")
	}

	// Postgres: the entity store
	entityStore, err := store.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer entityStore.Close()
	if err := entityStore.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	llmClient := client.NewLLMClient(&cfg.LLM)
	if !llmClient.IsConfigured() {
		log.Warn().Msg("LLM API key not configured, generation steps will fail")
	}

	taskService := service.NewTaskService(redisClient, asynqClient)
	modelResolver := service.NewModelResolver(redisClient)
	auditLogger := audit.NewLogger()

	generateHandler := handler.NewGenerateHandler(taskService, validate)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // novel text payloads
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	generate := api.Group("/generate")
	generate.Post("/script", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), generateHandler.StartScript)
	generate.Post("/storyboard", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), generateHandler.StartStoryboard)
	generate.Get("/status/:jobId", generateHandler.Status)
	generate.Get("/result/:jobId", generateHandler.Result)
	generate.Post("/cancel/:jobId", generateHandler.Cancel)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	deps := worker.Deps{
		Tasks:   taskService,
		Store:   entityStore,
		Models:  modelResolver,
		LLM:     llmClient,
		Prompts: prompt.NewResolver(),
		Audit:   auditLogger,
		Hub:     hub,
	}
	go startWorkerServer(cfg, deps)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Msg("server starting")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Server.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func startWorkerServer(cfg *config.Config, deps worker.Deps) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				service.QueueScript:     6,
				service.QueueStoryboard: 4,
			},
		},
	)

	scriptWorker := worker.NewStoryScriptWorker(deps)
	storyboardWorker := worker.NewStoryboardWorker(deps)

	mux := asynq.NewServeMux()
	mux.HandleFunc(model.TaskTypeStoryToScript, scriptWorker.ProcessTask)
	mux.HandleFunc(model.TaskTypeScriptToStoryboard, storyboardWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Error().Err(err).Msg("asynq worker error")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
