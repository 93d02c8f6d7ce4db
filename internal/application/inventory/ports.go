package inventory

import (
	"context"
	"time"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/entity"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios
// atados a esa tx. Garantiza la atomicidad multi-fila del motor de inventario: o
// confirman juntos el agregado, las unidades y el movimiento, o ninguno.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		levels repository.StockLevelRepository,
		units repository.InventoryUnitRepository,
		movements repository.StockMovementRepository,
	) error) error
}

// StockCache cachea snapshots de stock para el lado de lectura y marca transacciones
// para detectar reenvíos. Es opcional: un cache nil degrada a solo-BD.
type StockCache interface {
	GetLevel(ctx context.Context, itemID, locationID string) (*entity.StockLevel, error)
	SetLevel(ctx context.Context, level *entity.StockLevel, ttl time.Duration) error
	InvalidateLevel(ctx context.Context, itemID, locationID string) error

	// MarkTransaction marca un transaction_id como visto (SetNX). Devuelve false si ya
	// estaba marcado: reenvío probable, a confirmar contra el ledger.
	MarkTransaction(ctx context.Context, transactionID string, ttl time.Duration) (bool, error)
}
