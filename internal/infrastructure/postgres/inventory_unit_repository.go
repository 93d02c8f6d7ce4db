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

var _ repository.InventoryUnitRepository = (*InventoryUnitRepo)(nil)

// InventoryUnitRepo implementación sobre PostgreSQL (usable con pool o tx).
type InventoryUnitRepo struct {
	q Querier
}

// NewInventoryUnitRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryUnitRepository(q Querier) *InventoryUnitRepo {
	return &InventoryUnitRepo{q: q}
}

const unitColumns = `
	id, unit_code, serial_number, batch_code, item_id, location_id,
	status, condition, purchase_price, purchase_date, warranty_until,
	last_maintenance_at, next_maintenance_at,
	rental_count, current_customer_id, rental_blocked, rental_block_reason,
	created_at, updated_at`

// Create persiste una unidad. Un número de serie repetido para el mismo item
// es ErrDuplicate.
func (r *InventoryUnitRepo) Create(ctx context.Context, u *entity.InventoryUnit) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	query := `
		INSERT INTO inventory_units (` + unitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.q.Exec(ctx, query,
		u.ID, u.UnitCode, nullable(u.SerialNumber), nullable(u.BatchCode), u.ItemID, u.LocationID,
		u.Status, u.Condition, u.PurchasePrice, u.PurchaseDate, u.WarrantyUntil,
		u.LastMaintenanceAt, u.NextMaintenanceAt,
		u.RentalCount, nullable(u.CurrentCustomerID), u.RentalBlocked, nullable(u.RentalBlockReason),
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("serial %q ya registrado para item %s: %w", u.SerialNumber, u.ItemID, domain.ErrDuplicate)
		}
		return fmt.Errorf("create inventory unit: %w", err)
	}
	return nil
}

// CreateBatch persiste el lote de unidades de una recepción.
func (r *InventoryUnitRepo) CreateBatch(ctx context.Context, units []*entity.InventoryUnit) error {
	for _, u := range units {
		if err := r.Create(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

// GetByID obtiene una unidad o nil si no existe.
func (r *InventoryUnitRepo) GetByID(ctx context.Context, id string) (*entity.InventoryUnit, error) {
	query := `SELECT` + unitColumns + ` FROM inventory_units WHERE id = $1`
	u, err := r.scanOne(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory unit: %w", err)
	}
	return u, nil
}

// GetByIDs obtiene las unidades existentes de la lista; el caller compara longitudes
// para detectar ids desconocidos.
func (r *InventoryUnitRepo) GetByIDs(ctx context.Context, ids []string) ([]*entity.InventoryUnit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT` + unitColumns + ` FROM inventory_units WHERE id = ANY($1)`
	return r.list(ctx, query, ids)
}

// Update escribe el estado completo de la unidad.
func (r *InventoryUnitRepo) Update(ctx context.Context, u *entity.InventoryUnit) error {
	query := `
		UPDATE inventory_units SET
			location_id = $1, status = $2, condition = $3,
			warranty_until = $4, last_maintenance_at = $5, next_maintenance_at = $6,
			rental_count = $7, current_customer_id = $8,
			rental_blocked = $9, rental_block_reason = $10,
			updated_at = now()
		WHERE id = $11`
	tag, err := r.q.Exec(ctx, query,
		u.LocationID, u.Status, u.Condition,
		u.WarrantyUntil, u.LastMaintenanceAt, u.NextMaintenanceAt,
		u.RentalCount, nullable(u.CurrentCustomerID),
		u.RentalBlocked, nullable(u.RentalBlockReason),
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("update inventory unit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unidad %s: %w", u.ID, domain.ErrNotFound)
	}
	return nil
}

// ListRentable unidades AVAILABLE sin bloqueo de renta, más antiguas primero (FIFO).
func (r *InventoryUnitRepo) ListRentable(ctx context.Context, itemID, locationID string, limit int) ([]*entity.InventoryUnit, error) {
	query := `SELECT` + unitColumns + `
		FROM inventory_units
		WHERE item_id = $1 AND location_id = $2 AND status = $3 AND NOT rental_blocked
		ORDER BY purchase_date, created_at
		LIMIT $4`
	return r.list(ctx, query, itemID, locationID, entity.UnitAvailable, limit)
}

// ListAvailable unidades AVAILABLE incluyendo las bloqueadas para renta, FIFO.
func (r *InventoryUnitRepo) ListAvailable(ctx context.Context, itemID, locationID string, limit int) ([]*entity.InventoryUnit, error) {
	query := `SELECT` + unitColumns + `
		FROM inventory_units
		WHERE item_id = $1 AND location_id = $2 AND status = $3
		ORDER BY purchase_date, created_at
		LIMIT $4`
	return r.list(ctx, query, itemID, locationID, entity.UnitAvailable, limit)
}

// ListByStatus unidades de un par (item, ubicación) en un estado dado.
func (r *InventoryUnitRepo) ListByStatus(ctx context.Context, itemID, locationID string, status entity.UnitStatus, limit, offset int) ([]*entity.InventoryUnit, error) {
	query := `SELECT` + unitColumns + `
		FROM inventory_units
		WHERE item_id = $1 AND location_id = $2 AND status = $3
		ORDER BY purchase_date, created_at
		LIMIT $4 OFFSET $5`
	return r.list(ctx, query, itemID, locationID, status, limit, offset)
}

// CountByStatus conteo de unidades por estado para la verificación unidad-vs-bucket.
func (r *InventoryUnitRepo) CountByStatus(ctx context.Context, itemID, locationID string) (map[entity.UnitStatus]int64, error) {
	query := `
		SELECT status, COUNT(*)
		FROM inventory_units
		WHERE item_id = $1 AND location_id = $2
		GROUP BY status`
	rows, err := r.q.Query(ctx, query, itemID, locationID)
	if err != nil {
		return nil, fmt.Errorf("count units by status: %w", err)
	}
	defer rows.Close()
	counts := make(map[entity.UnitStatus]int64)
	for rows.Next() {
		var status entity.UnitStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan unit count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *InventoryUnitRepo) list(ctx context.Context, query string, args ...any) ([]*entity.InventoryUnit, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory units: %w", err)
	}
	defer rows.Close()
	var out []*entity.InventoryUnit
	for rows.Next() {
		u, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory unit: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *InventoryUnitRepo) scanOne(row pgx.Row) (*entity.InventoryUnit, error) {
	var u entity.InventoryUnit
	var serial, batch, customer, blockReason *string
	err := row.Scan(
		&u.ID, &u.UnitCode, &serial, &batch, &u.ItemID, &u.LocationID,
		&u.Status, &u.Condition, &u.PurchasePrice, &u.PurchaseDate, &u.WarrantyUntil,
		&u.LastMaintenanceAt, &u.NextMaintenanceAt,
		&u.RentalCount, &customer, &u.RentalBlocked, &blockReason,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.SerialNumber = deref(serial)
	u.BatchCode = deref(batch)
	u.CurrentCustomerID = deref(customer)
	u.RentalBlockReason = deref(blockReason)
	return &u, nil
}
