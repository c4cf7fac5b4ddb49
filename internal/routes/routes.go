package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/banksys/bankcore/internal/client"
	"github.com/banksys/bankcore/internal/config"
	"github.com/banksys/bankcore/internal/ledger"
	"github.com/banksys/bankcore/internal/middleware"
	"github.com/banksys/bankcore/internal/notification"
	"github.com/banksys/bankcore/internal/transactions"
	"github.com/banksys/bankcore/internal/user"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	var engine ledger.Ledger
	if d.DB != nil {
		engine = ledger.NewPostgresLedger(d.DB)
	} else {
		engine = ledger.NewInMemory()
	}

	var clientRepo client.Repository
	if d.DB != nil {
		clientRepo = client.NewPostgresRepository(d.DB)
	} else {
		clientRepo = client.NewMemoryRepository()
	}
	clientSvc := client.NewService(clientRepo, engine)

	var userRepo user.Repository
	if d.DB != nil {
		userRepo = user.NewPostgresRepository(d.DB)
	} else {
		userRepo = user.NewMemoryRepository()
	}
	userSvc := user.NewService(userRepo, engine)

	notifier := notification.NewLoggerNotifier(d.Logger)
	txSvc := transactions.NewService(engine, notifier)

	clientHandler := client.NewHandler(clientSvc)
	userHandler := user.NewHandler(userSvc)
	txHandler := transactions.NewHandler(txSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterClientRoutes(api, clientHandler)
	RegisterUserRoutes(api, userHandler)

	// Transaction endpoints get idempotency replay and a rate cap so a
	// retrying terminal cannot double-post or flood the ledger.
	tx := api.Group("/transactions")
	if d.Cache != nil {
		tx.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
		tx.Use(middleware.RateLimit(d.Cache, d.Cfg.RateLimit))
	}
	RegisterTransactionRoutes(tx, txHandler)

	return nil
}
