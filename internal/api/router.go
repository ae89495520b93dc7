package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"transparencia/internal/api/handlers"
	"transparencia/pkg/auth"
	"transparencia/pkg/middleware"
)

func SetupRouter(
	ledgerHandler *handlers.LedgerHandler,
	txHandler *handlers.TransactionHandler,
	authHandler *handlers.AuthHandler,
	jwtManager *auth.JWTManager,
	allowList middleware.AllowList,
	uploadsDir string,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	// Receipts uploaded through the local storage driver are served from
	// here; the GCS driver hands out bucket URLs instead.
	if uploadsDir != "" {
		appLogger.Info("Serving local receipt uploads", zap.String("path", uploadsDir))
		app.Static("/uploads", uploadsDir)
	}

	// Public ledger (read-only)
	public := app.Group("/api/v1")
	public.Get("/transactions", ledgerHandler.ListTransactions)
	public.Get("/transactions/totals", ledgerHandler.Totals)
	public.Get("/receipts/locate", ledgerHandler.LocateReceipt)

	// Admin auth (public routes)
	adminAuth := app.Group("/admin/auth")
	adminAuth.Post("/login", authHandler.Login)
	adminAuth.Post("/refresh", authHandler.RefreshToken)

	// Admin panel: token plus allow-list membership
	admin := app.Group("/api/v1/admin",
		middleware.AuthMiddleware(jwtManager, appLogger),
		middleware.AdminOnly(allowList, appLogger),
	)
	admin.Get("/transactions", txHandler.List)
	admin.Post("/transactions", txHandler.Create)
	admin.Put("/transactions/:id", txHandler.Update)
	admin.Delete("/transactions/:id", txHandler.Delete)
	admin.Get("/transactions/export", txHandler.Export)

	return app
}
