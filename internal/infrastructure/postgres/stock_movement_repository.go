package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/entity"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo implementación del ledger sobre PostgreSQL (usable con pool o tx).
// Create es inserción pura; las filas solo se actualizan para adjuntar una aprobación.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `
	id, movement_type, item_id, location_id, stock_level_id,
	quantity, quantity_change, quantity_before, quantity_after,
	unit_cost, total_cost,
	transaction_id, transfer_id, customer_id, supplier_id, unit_ids,
	reason, notes, created_by, approved_by, approved_at, approval_notes, created_at`

// Create persiste una entrada del ledger.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		        $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.Type, m.ItemID, m.LocationID, nullable(m.StockLevelID),
		m.Quantity, m.QuantityChange, m.QuantityBefore, m.QuantityAfter,
		m.UnitCost, m.TotalCost,
		nullable(m.TransactionID), nullable(m.TransferID), nullable(m.CustomerID), nullable(m.SupplierID), m.UnitIDs,
		nullable(m.Reason), nullable(m.Notes), nullable(m.CreatedBy),
		nullable(m.ApprovedBy), m.ApprovedAt, nullable(m.ApprovalNotes), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene una entrada del ledger o nil si no existe.
func (r *StockMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	query := `SELECT` + movementColumns + ` FROM stock_movements WHERE id = $1`
	m, err := r.scanOne(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock movement: %w", err)
	}
	return m, nil
}

// ListByStockLevel historial de un agregado en orden de creación.
func (r *StockMovementRepo) ListByStockLevel(ctx context.Context, stockLevelID string, limit, offset int) ([]*entity.StockMovement, error) {
	query := `SELECT` + movementColumns + `
		FROM stock_movements WHERE stock_level_id = $1
		ORDER BY created_at, id LIMIT $2 OFFSET $3`
	return r.list(ctx, query, stockLevelID, limit, offset)
}

// ListByItem historial de un item; locationID vacío no filtra, ventana de tiempo opcional.
func (r *StockMovementRepo) ListByItem(ctx context.Context, itemID, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	query := `SELECT` + movementColumns + `
		FROM stock_movements WHERE item_id = $1`
	args := []any{itemID}
	pos := 2
	if locationID != "" {
		query += fmt.Sprintf(" AND location_id = $%d", pos)
		args = append(args, locationID)
		pos++
	}
	if from != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)
	return r.list(ctx, query, args...)
}

// ListByTransaction movimientos de una transacción de negocio.
func (r *StockMovementRepo) ListByTransaction(ctx context.Context, transactionID string) ([]*entity.StockMovement, error) {
	query := `SELECT` + movementColumns + `
		FROM stock_movements WHERE transaction_id = $1
		ORDER BY created_at, id`
	return r.list(ctx, query, transactionID)
}

// Summary conteos y cantidades agrupados por tipo; item/ubicación/ventana opcionales.
func (r *StockMovementRepo) Summary(ctx context.Context, itemID, locationID string, from, to *time.Time) ([]repository.MovementSummaryRow, error) {
	query := `
		SELECT movement_type, COUNT(*), COALESCE(SUM(quantity), 0), COALESCE(SUM(quantity_change), 0)
		FROM stock_movements WHERE 1=1`
	var args []any
	pos := 1
	if itemID != "" {
		query += fmt.Sprintf(" AND item_id = $%d", pos)
		args = append(args, itemID)
		pos++
	}
	if locationID != "" {
		query += fmt.Sprintf(" AND location_id = $%d", pos)
		args = append(args, locationID)
		pos++
	}
	if from != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += " GROUP BY movement_type ORDER BY movement_type"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("movement summary: %w", err)
	}
	defer rows.Close()
	var out []repository.MovementSummaryRow
	for rows.Next() {
		var row repository.MovementSummaryRow
		if err := rows.Scan(&row.Type, &row.Count, &row.TotalQuantity, &row.TotalChange); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListPendingApprovals ajustes sin aprobar, más antiguos primero.
func (r *StockMovementRepo) ListPendingApprovals(ctx context.Context, limit, offset int) ([]*entity.StockMovement, error) {
	query := `SELECT` + movementColumns + `
		FROM stock_movements
		WHERE movement_type IN ($1, $2) AND approved_by IS NULL
		ORDER BY created_at, id LIMIT $3 OFFSET $4`
	return r.list(ctx, query, entity.MovementAdjustmentPositive, entity.MovementAdjustmentNegative, limit, offset)
}

// Approve adjunta la aprobación a un ajuste pendiente. La condición approved_by IS NULL
// hace la operación idempotente-segura: un segundo intento devuelve ErrConflict.
func (r *StockMovementRepo) Approve(ctx context.Context, movementID, approver, notes string, at time.Time) error {
	query := `
		UPDATE stock_movements
		SET approved_by = $1, approved_at = $2, approval_notes = $3
		WHERE id = $4 AND movement_type IN ($5, $6) AND approved_by IS NULL`
	tag, err := r.q.Exec(ctx, query, approver, at, nullable(notes), movementID,
		entity.MovementAdjustmentPositive, entity.MovementAdjustmentNegative)
	if err != nil {
		return fmt.Errorf("approve movement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, err := r.GetByID(ctx, movementID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("movimiento %s: %w", movementID, domain.ErrNotFound)
		}
		return fmt.Errorf("ajuste %s ya aprobado o no aprobable: %w", movementID, domain.ErrConflict)
	}
	return nil
}

func (r *StockMovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var out []*entity.StockMovement
	for rows.Next() {
		m, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *StockMovementRepo) scanOne(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var stockLevelID, transactionID, transferID, customerID, supplierID *string
	var reason, notes, createdBy, approvedBy, approvalNotes *string
	err := row.Scan(
		&m.ID, &m.Type, &m.ItemID, &m.LocationID, &stockLevelID,
		&m.Quantity, &m.QuantityChange, &m.QuantityBefore, &m.QuantityAfter,
		&m.UnitCost, &m.TotalCost,
		&transactionID, &transferID, &customerID, &supplierID, &m.UnitIDs,
		&reason, &notes, &createdBy, &approvedBy, &m.ApprovedAt, &approvalNotes, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.StockLevelID = deref(stockLevelID)
	m.TransactionID = deref(transactionID)
	m.TransferID = deref(transferID)
	m.CustomerID = deref(customerID)
	m.SupplierID = deref(supplierID)
	m.Reason = deref(reason)
	m.Notes = deref(notes)
	m.CreatedBy = deref(createdBy)
	m.ApprovedBy = deref(approvedBy)
	m.ApprovalNotes = deref(approvalNotes)
	return &m, nil
}
