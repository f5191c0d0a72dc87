package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/chibank/wallet-core/internal/approval"
	"github.com/chibank/wallet-core/internal/config"
	"github.com/chibank/wallet-core/internal/currency"
	"github.com/chibank/wallet-core/internal/ledger"
	"github.com/chibank/wallet-core/internal/middleware"
	"github.com/chibank/wallet-core/internal/notification"
	"github.com/chibank/wallet-core/internal/transfer"
	"github.com/chibank/wallet-core/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. A nil DB or Cache
// is tolerated only in development, where in-memory stores take over.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	RegisterHealthRoutes(app, d)

	// Currency registry: Postgres-backed rows in production, the static set
	// in development.
	var currencyRepo currency.Repository
	if d.DB != nil {
		currencyRepo = currency.NewPostgresRepository(d.DB)
	} else {
		currencyRepo = currency.NewStaticRepository(currency.DefaultSet())
	}
	registry, err := currency.NewRegistry(context.Background(), currencyRepo)
	if err != nil {
		return fmt.Errorf("load currency registry: %w", err)
	}

	var recorder ledger.Recorder
	var walletRepo wallet.Repository
	if d.DB != nil {
		pgRecorder := ledger.NewPostgresRecorder(d.DB)
		recorder = pgRecorder
		walletRepo = wallet.NewPostgresRepository(d.DB, pgRecorder, d.Cfg.LockWait)
	} else {
		recorder = ledger.NewInMemory()
		walletRepo = wallet.NewMemoryRepository(recorder, d.Cfg.LockWait)
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	store := wallet.NewStore(walletRepo)
	queries := wallet.NewQueryService(walletRepo, registry, recorder)
	engine := transfer.NewEngine(walletRepo, registry, notifier)

	var approvalRepo approval.Repository
	if d.DB != nil {
		approvalRepo = approval.NewPostgresRepository(d.DB)
	} else {
		approvalRepo = approval.NewMemoryRepository()
	}
	approvalSvc := approval.NewService(approvalRepo, notifier, time.Now, d.Cfg.ApprovalTTL)

	walletHandler := wallet.NewHandler(store, queries, registry)
	transferHandler := transfer.NewHandler(engine)
	approvalHandler := approval.NewHandler(approvalSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterCurrencyRoutes(api, registry)

	// Transfers are replay-protected when Redis is available.
	var idem fiber.Handler
	if d.Cache != nil {
		idem = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	for kind, prefix := range map[wallet.OwnerKind]string{
		wallet.KindUser:     "/user",
		wallet.KindAgent:    "/agent",
		wallet.KindMerchant: "/merchant",
	} {
		group := api.Group(prefix, wallet.RoleLocal(kind))
		RegisterWalletRoutes(group, walletHandler)
		RegisterTransferRoutes(group, transferHandler, idem)
	}

	RegisterApprovalRoutes(api.Group("/enterprise"), approvalHandler, idem)

	return nil
}
