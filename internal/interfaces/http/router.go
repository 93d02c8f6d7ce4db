package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tluanga-dev/rental-manager-sub003/internal/application/inventory"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger    *inventory.StockLedgerUseCase
	Queries   *inventory.StockQueryUseCase
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Healthcheck (público)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	inv := protected.Group("/inventory")
	handler := NewInventoryHandler(deps.Ledger, deps.Queries)

	// Operaciones de escritura sobre el ledger
	inv.Post("/receipts", handler.Receive)
	inv.Post("/checkouts", handler.Checkout)
	inv.Post("/returns", handler.Return)
	inv.Post("/sales", handler.Sale)
	inv.Post("/transfers", handler.Transfer)
	inv.Post("/adjustments", handler.Adjust)
	inv.Post("/adjustments/:id/approve", RequireRole("admin"), handler.ApproveAdjustment)
	inv.Post("/reservations", handler.Reserve)
	inv.Post("/reservations/release", handler.ReleaseReservation)
	inv.Post("/write-offs", RequireRole("admin"), handler.WriteOff)
	inv.Post("/units/:id/maintenance", handler.SendToMaintenance)
	inv.Post("/units/:id/repair-complete", handler.CompleteRepair)

	// Consultas
	inv.Get("/stock-levels/:item_id/:location_id", handler.GetStockLevel)
	inv.Get("/movements", handler.ListMovements)
	inv.Get("/movements/summary", handler.MovementSummary)
	inv.Get("/movements/transaction/:transaction_id", handler.MovementsByTransaction)
	inv.Get("/adjustments/pending", handler.PendingApprovals)
	inv.Get("/summary", handler.Summary)
	inv.Get("/alerts/low-stock", handler.LowStock)
	inv.Get("/alerts/out-of-stock", handler.OutOfStock)
}
