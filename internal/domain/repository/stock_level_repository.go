package repository

import (
	"context"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/entity"
)

// StockLevelRepository define el puerto para leer y escribir agregados de stock (DIP).
// Las escrituras van siempre condicionadas a la versión optimista.
type StockLevelRepository interface {
	// Get devuelve el agregado o nil si no existe todavía.
	Get(ctx context.Context, itemID, locationID string) (*entity.StockLevel, error)

	// GetOrInit devuelve el agregado, creándolo en cero si es la primera vez que ese
	// par (item, ubicación) recibe stock.
	GetOrInit(ctx context.Context, itemID, locationID string) (*entity.StockLevel, error)

	// UpdateWithVersion escribe el agregado solo si la fila sigue en expectedVersion;
	// incrementa Version en el agregado al confirmar. Devuelve ErrConflict si la
	// versión cambió desde la lectura.
	UpdateWithVersion(ctx context.Context, level *entity.StockLevel, expectedVersion int64) error

	ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.StockLevel, error)
	ListByItem(ctx context.Context, itemID string) ([]*entity.StockLevel, error)
	List(ctx context.Context, limit, offset int) ([]*entity.StockLevel, error)

	// ListBelowReorderPoint devuelve agregados con available <= reorder_point
	// (solo con punto de reorden configurado), ordenados por mayor déficit primero.
	ListBelowReorderPoint(ctx context.Context, locationID string) ([]*entity.StockLevel, error)

	// ListOutOfStock devuelve agregados con available == 0.
	ListOutOfStock(ctx context.Context, locationID string) ([]*entity.StockLevel, error)
}
