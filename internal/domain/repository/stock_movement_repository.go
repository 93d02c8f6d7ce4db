package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/entity"
)

// MovementSummaryRow agregado de movimientos por tipo (conteo y cantidades).
type MovementSummaryRow struct {
	Type          entity.MovementType
	Count         int64
	TotalQuantity decimal.Decimal
	TotalChange   decimal.Decimal
}

// StockMovementRepository define el puerto del ledger append-only.
// Create es inserción pura; la única actualización permitida es adjuntar una aprobación.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)

	ListByStockLevel(ctx context.Context, stockLevelID string, limit, offset int) ([]*entity.StockMovement, error)

	// ListByItem lista movimientos de un item; locationID vacío no filtra por ubicación.
	ListByItem(ctx context.Context, itemID, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)

	ListByTransaction(ctx context.Context, transactionID string) ([]*entity.StockMovement, error)

	// Summary agrega conteos y cantidades por tipo de movimiento en una ventana de tiempo.
	Summary(ctx context.Context, itemID, locationID string, from, to *time.Time) ([]MovementSummaryRow, error)

	// ListPendingApprovals lista ajustes sin approved_by, más antiguos primero.
	ListPendingApprovals(ctx context.Context, limit, offset int) ([]*entity.StockMovement, error)

	// Approve adjunta la aprobación a un ajuste pendiente. No toca cantidades: esas ya
	// se aplicaron al crear el movimiento. Devuelve ErrNotFound si el id no existe y
	// ErrConflict si ya estaba aprobado.
	Approve(ctx context.Context, movementID, approver, notes string, at time.Time) error
}
