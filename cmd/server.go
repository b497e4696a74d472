package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Abraxas-365/agentwire/pkg/config"
	"github.com/Abraxas-365/agentwire/pkg/errx"
	"github.com/Abraxas-365/agentwire/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// 1. Initialize Logger
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		logx.SetLevel(logx.LevelDebug)
	case "warn":
		logx.SetLevel(logx.LevelWarn)
	case "error":
		logx.SetLevel(logx.LevelError)
	default:
		logx.SetLevel(logx.LevelInfo)
	}

	logx.Info("🚀 Starting agentwire relay...")

	// 2. Load Config & Container
	srvCfg := config.LoadServerConfig()
	container := NewContainer(config.LoadPipelineConfig())
	defer container.Cleanup()

	// 3. Create Fiber App
	app := fiber.New(fiber.Config{
		AppName:               "agentwire relay",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler,
	})

	// 4. Global Middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: srvCfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${reqHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	// 5. Routes
	app.Get("/health", healthCheckHandler(container))
	app.Post("/v1/agent/stream", streamHandler(container))

	// 6. Start Server with Graceful Shutdown
	startServer(app, srvCfg)
}

func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		store := "memory"
		if container.Redis != nil {
			store = "redis"
		}
		return c.JSON(fiber.Map{
			"status": "healthy",
			"store":  store,
		})
	}
}

// globalErrorHandler renders errx errors with their registered status codes
func globalErrorHandler(c *fiber.Ctx, err error) error {
	var customErr *errx.Error
	if errx.As(err, &customErr) {
		return c.Status(customErr.HTTPStatus).JSON(customErr.ToHTTPResponse())
	}

	var fiberErr *fiber.Error
	if errx.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	logx.Errorf("unhandled error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func startServer(app *fiber.App, cfg config.ServerConfig) {
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logx.Infof("Listening on %s", addr)
		if err := app.Listen(addr); err != nil {
			logx.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logx.Info("Shutting down...")
	if err := app.Shutdown(); err != nil {
		logx.Errorf("shutdown error: %v", err)
	}
}
