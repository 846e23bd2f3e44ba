// Package router assembles the Fiber application.
package router

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/wichananm65/pet-shop-orders/internal/infrastructure/logging"
	"github.com/wichananm65/pet-shop-orders/internal/interface/presenter"
	"go.uber.org/zap"
)

// Routes is implemented by every feature handler.
type Routes interface {
	RegisterRoutes(router fiber.Router)
}

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

type Options struct {
	Logger *zap.Logger
	// Checks run on GET /health; any failure answers 503.
	Checks map[string]Check
}

// New builds the app with request id, request logging, recover and CORS, a
// health endpoint, and the given feature routes.
func New(opts Options, routes ...Routes) *fiber.App {
	log := logging.OrNop(opts.Logger)

	app := fiber.New(fiber.Config{
		AppName:      "pet-shop-orders",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return presenter.Error(c, err)
		},
	})

	app.Use(requestid.New())
	app.Use(requestLogger(log))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	app.Get("/health", health(opts.Checks))

	for _, r := range routes {
		r.RegisterRoutes(app)
	}
	return app
}

func health(checks map[string]Check) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		failed := fiber.Map{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "failed": failed})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

func requestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// Let the error handler write the response before logging its status.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		rid, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
		log.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", rid))
		return nil
	}
}
