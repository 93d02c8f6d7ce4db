package repository

import (
	"context"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/entity"
)

// InventoryUnitRepository define el puerto de persistencia para unidades serializadas.
// Las unidades se mutan solo dentro de la misma transacción que su StockLevel.
type InventoryUnitRepository interface {
	Create(ctx context.Context, unit *entity.InventoryUnit) error
	CreateBatch(ctx context.Context, units []*entity.InventoryUnit) error
	GetByID(ctx context.Context, id string) (*entity.InventoryUnit, error)
	GetByIDs(ctx context.Context, ids []string) ([]*entity.InventoryUnit, error)
	Update(ctx context.Context, unit *entity.InventoryUnit) error

	// ListRentable devuelve hasta limit unidades AVAILABLE sin bloqueo de renta para el
	// par (item, ubicación), las más antiguas primero (FIFO por fecha de compra).
	ListRentable(ctx context.Context, itemID, locationID string, limit int) ([]*entity.InventoryUnit, error)

	// ListAvailable devuelve hasta limit unidades AVAILABLE sin importar el bloqueo de
	// renta, mismo orden FIFO. El bloqueo de renta solo aplica a rentas: ventas y
	// traslados disponen de toda unidad disponible.
	ListAvailable(ctx context.Context, itemID, locationID string, limit int) ([]*entity.InventoryUnit, error)

	ListByStatus(ctx context.Context, itemID, locationID string, status entity.UnitStatus, limit, offset int) ([]*entity.InventoryUnit, error)

	// CountByStatus cuenta unidades por estado para verificar la coherencia
	// unidad-vs-bucket del agregado.
	CountByStatus(ctx context.Context, itemID, locationID string) (map[entity.UnitStatus]int64, error)
}
