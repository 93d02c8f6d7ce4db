package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/entity"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/repository"
)

var _ repository.StockLevelRepository = (*StockLevelRepo)(nil)

// StockLevelRepo implementación sobre PostgreSQL (usable con pool o tx).
// Las escrituras van condicionadas a la columna version (concurrencia optimista):
// no se usa SELECT FOR UPDATE.
type StockLevelRepo struct {
	q Querier
}

// NewStockLevelRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockLevelRepository(q Querier) *StockLevelRepo {
	return &StockLevelRepo{q: q}
}

const stockLevelColumns = `
	id, item_id, location_id,
	on_hand, available, reserved, on_rent, damaged, in_maintenance,
	reorder_point, reorder_quantity, max_stock_level, average_daily_usage, last_stock_check,
	version, created_at, updated_at`

// Get obtiene el agregado o nil si el par (item, ubicación) no existe todavía.
func (r *StockLevelRepo) Get(ctx context.Context, itemID, locationID string) (*entity.StockLevel, error) {
	query := `SELECT` + stockLevelColumns + `
		FROM stock_levels WHERE item_id = $1 AND location_id = $2`
	s, err := r.scanOne(r.q.QueryRow(ctx, query, itemID, locationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock level: %w", err)
	}
	return s, nil
}

// GetOrInit obtiene el agregado, creándolo en cero la primera vez. El insert usa
// ON CONFLICT DO NOTHING: si otra transacción lo creó primero, se relee.
func (r *StockLevelRepo) GetOrInit(ctx context.Context, itemID, locationID string) (*entity.StockLevel, error) {
	level, err := r.Get(ctx, itemID, locationID)
	if err != nil || level != nil {
		return level, err
	}

	level = entity.NewStockLevel(itemID, locationID)
	level.ID = uuid.New().String()
	query := `
		INSERT INTO stock_levels (id, item_id, location_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (item_id, location_id) DO NOTHING`
	tag, err := r.q.Exec(ctx, query, level.ID, itemID, locationID, level.Version, level.CreatedAt, level.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("init stock level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Otra transacción ganó la inicialización.
		return r.Get(ctx, itemID, locationID)
	}
	return level, nil
}

// UpdateWithVersion escribe el agregado solo si la fila sigue en expectedVersion.
// Cero filas afectadas significa que la versión cambió desde la lectura: ErrConflict.
func (r *StockLevelRepo) UpdateWithVersion(ctx context.Context, level *entity.StockLevel, expectedVersion int64) error {
	query := `
		UPDATE stock_levels SET
			on_hand = $1, available = $2, reserved = $3, on_rent = $4,
			damaged = $5, in_maintenance = $6,
			reorder_point = $7, reorder_quantity = $8, max_stock_level = $9,
			average_daily_usage = $10, last_stock_check = $11,
			version = version + 1, updated_at = now()
		WHERE id = $12 AND version = $13`
	tag, err := r.q.Exec(ctx, query,
		level.OnHand, level.Available, level.Reserved, level.OnRent,
		level.Damaged, level.InMaintenance,
		level.ReorderPoint, level.ReorderQuantity, level.MaxStockLevel,
		level.AverageDailyUsage, level.LastStockCheck,
		level.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update stock level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stock level %s cambió de versión (esperada %d): %w",
			level.ID, expectedVersion, domain.ErrConflict)
	}
	level.Version = expectedVersion + 1
	return nil
}

// ListByLocation agregados de una ubicación, paginados.
func (r *StockLevelRepo) ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.StockLevel, error) {
	query := `SELECT` + stockLevelColumns + `
		FROM stock_levels WHERE location_id = $1
		ORDER BY item_id LIMIT $2 OFFSET $3`
	return r.list(ctx, query, locationID, limit, offset)
}

// ListByItem agregados de un item en todas las ubicaciones.
func (r *StockLevelRepo) ListByItem(ctx context.Context, itemID string) ([]*entity.StockLevel, error) {
	query := `SELECT` + stockLevelColumns + `
		FROM stock_levels WHERE item_id = $1
		ORDER BY location_id`
	return r.list(ctx, query, itemID)
}

// List todos los agregados, paginados.
func (r *StockLevelRepo) List(ctx context.Context, limit, offset int) ([]*entity.StockLevel, error) {
	query := `SELECT` + stockLevelColumns + `
		FROM stock_levels
		ORDER BY item_id, location_id LIMIT $1 OFFSET $2`
	return r.list(ctx, query, limit, offset)
}

// ListBelowReorderPoint agregados bajo punto de reorden, mayor déficit primero.
// locationID vacío no filtra por ubicación.
func (r *StockLevelRepo) ListBelowReorderPoint(ctx context.Context, locationID string) ([]*entity.StockLevel, error) {
	query := `SELECT` + stockLevelColumns + `
		FROM stock_levels
		WHERE reorder_point > 0 AND available <= reorder_point
		  AND ($1 = '' OR location_id = $1)
		ORDER BY (reorder_point - available) DESC`
	return r.list(ctx, query, locationID)
}

// ListOutOfStock agregados sin disponible.
func (r *StockLevelRepo) ListOutOfStock(ctx context.Context, locationID string) ([]*entity.StockLevel, error) {
	query := `SELECT` + stockLevelColumns + `
		FROM stock_levels
		WHERE available = 0 AND ($1 = '' OR location_id = $1)
		ORDER BY item_id, location_id`
	return r.list(ctx, query, locationID)
}

func (r *StockLevelRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockLevel, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock levels: %w", err)
	}
	defer rows.Close()
	var out []*entity.StockLevel
	for rows.Next() {
		s, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *StockLevelRepo) scanOne(row pgx.Row) (*entity.StockLevel, error) {
	var s entity.StockLevel
	err := row.Scan(
		&s.ID, &s.ItemID, &s.LocationID,
		&s.OnHand, &s.Available, &s.Reserved, &s.OnRent, &s.Damaged, &s.InMaintenance,
		&s.ReorderPoint, &s.ReorderQuantity, &s.MaxStockLevel, &s.AverageDailyUsage, &s.LastStockCheck,
		&s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
