package inventory_test

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/entity"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria para los tests del motor de inventario.
//
// fakeTx emula la atomicidad de una transacción real: la función corre sobre un
// clon del estado y solo se confirma si no hubo error. Así los tests pueden
// verificar que una operación fallida no deja mutación parcial.
//
// El campo conflicts inyecta fallos de versión: las próximas N llamadas a
// UpdateWithVersion devuelven ErrConflict, para ejercitar el bucle de reintentos.
// ──────────────────────────────────────────────────────────────────────────────

type fakeDB struct {
	levels    map[string]*entity.StockLevel
	units     map[string]*entity.InventoryUnit
	movements []*entity.StockMovement
	seq       int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		levels: make(map[string]*entity.StockLevel),
		units:  make(map[string]*entity.InventoryUnit),
	}
}

func (db *fakeDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *fakeDB) clone() *fakeDB {
	c := newFakeDB()
	c.seq = db.seq
	for k, v := range db.levels {
		cp := *v
		c.levels[k] = &cp
	}
	for k, v := range db.units {
		cp := *v
		c.units[k] = &cp
	}
	c.movements = make([]*entity.StockMovement, len(db.movements))
	for i, m := range db.movements {
		cp := *m
		c.movements[i] = &cp
	}
	return c
}

func levelKey(itemID, locationID string) string { return itemID + "|" + locationID }

type fakeTx struct {
	db        *fakeDB
	conflicts int // próximas escrituras de agregado que fallarán con ErrConflict
	// onConflict simula al escritor concurrente: muta la base real al inyectar el
	// conflicto, así el reintento relee un estado distinto al del primer intento.
	onConflict func(db *fakeDB)
}

func (t *fakeTx) Run(_ context.Context, fn func(
	levels repository.StockLevelRepository,
	units repository.InventoryUnitRepository,
	movements repository.StockMovementRepository,
) error) error {
	snap := t.db.clone()
	err := fn(
		&fakeLevelRepo{db: snap, tx: t},
		&fakeUnitRepo{db: snap},
		&fakeMovementRepo{db: snap},
	)
	if err != nil {
		return err // rollback: el clon se descarta
	}
	*t.db = *snap
	return nil
}

// ── StockLevelRepository ──────────────────────────────────────────────────────

type fakeLevelRepo struct {
	db *fakeDB
	tx *fakeTx
}

func (r *fakeLevelRepo) Get(_ context.Context, itemID, locationID string) (*entity.StockLevel, error) {
	lv, ok := r.db.levels[levelKey(itemID, locationID)]
	if !ok {
		return nil, nil
	}
	cp := *lv
	return &cp, nil
}

func (r *fakeLevelRepo) GetOrInit(ctx context.Context, itemID, locationID string) (*entity.StockLevel, error) {
	if lv, _ := r.Get(ctx, itemID, locationID); lv != nil {
		return lv, nil
	}
	lv := entity.NewStockLevel(itemID, locationID)
	lv.ID = r.db.nextID("sl")
	r.db.levels[levelKey(itemID, locationID)] = lv
	cp := *lv
	return &cp, nil
}

func (r *fakeLevelRepo) UpdateWithVersion(_ context.Context, level *entity.StockLevel, expectedVersion int64) error {
	if r.tx.conflicts > 0 {
		r.tx.conflicts--
		if r.tx.onConflict != nil {
			r.tx.onConflict(r.tx.db)
		}
		return fmt.Errorf("escritura concurrente simulada: %w", domain.ErrConflict)
	}
	key := levelKey(level.ItemID, level.LocationID)
	cur, ok := r.db.levels[key]
	if !ok || cur.Version != expectedVersion {
		return fmt.Errorf("versión cambió: %w", domain.ErrConflict)
	}
	level.Version = expectedVersion + 1
	cp := *level
	r.db.levels[key] = &cp
	return nil
}

func (r *fakeLevelRepo) ListByLocation(_ context.Context, locationID string, limit, offset int) ([]*entity.StockLevel, error) {
	var out []*entity.StockLevel
	for _, lv := range r.db.levels {
		if lv.LocationID == locationID {
			cp := *lv
			out = append(out, &cp)
		}
	}
	return paginateLevels(out, limit, offset), nil
}

func (r *fakeLevelRepo) ListByItem(_ context.Context, itemID string) ([]*entity.StockLevel, error) {
	var out []*entity.StockLevel
	for _, lv := range r.db.levels {
		if lv.ItemID == itemID {
			cp := *lv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeLevelRepo) List(_ context.Context, limit, offset int) ([]*entity.StockLevel, error) {
	var out []*entity.StockLevel
	for _, lv := range r.db.levels {
		cp := *lv
		out = append(out, &cp)
	}
	return paginateLevels(out, limit, offset), nil
}

func (r *fakeLevelRepo) ListBelowReorderPoint(_ context.Context, locationID string) ([]*entity.StockLevel, error) {
	var out []*entity.StockLevel
	for _, lv := range r.db.levels {
		if (locationID == "" || lv.LocationID == locationID) && lv.IsLowStock() {
			cp := *lv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeLevelRepo) ListOutOfStock(_ context.Context, locationID string) ([]*entity.StockLevel, error) {
	var out []*entity.StockLevel
	for _, lv := range r.db.levels {
		if (locationID == "" || lv.LocationID == locationID) && lv.IsOutOfStock() {
			cp := *lv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func paginateLevels(in []*entity.StockLevel, limit, offset int) []*entity.StockLevel {
	sort.Slice(in, func(i, j int) bool { return in[i].ID < in[j].ID })
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

// ── InventoryUnitRepository ───────────────────────────────────────────────────

type fakeUnitRepo struct {
	db *fakeDB
}

func (r *fakeUnitRepo) Create(_ context.Context, unit *entity.InventoryUnit) error {
	if unit.ID == "" {
		unit.ID = r.db.nextID("unit")
	}
	cp := *unit
	r.db.units[unit.ID] = &cp
	return nil
}

func (r *fakeUnitRepo) CreateBatch(ctx context.Context, units []*entity.InventoryUnit) error {
	for _, u := range units {
		if err := r.Create(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeUnitRepo) GetByID(_ context.Context, id string) (*entity.InventoryUnit, error) {
	u, ok := r.db.units[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUnitRepo) GetByIDs(ctx context.Context, ids []string) ([]*entity.InventoryUnit, error) {
	var out []*entity.InventoryUnit
	for _, id := range ids {
		if u, _ := r.GetByID(ctx, id); u != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUnitRepo) Update(_ context.Context, unit *entity.InventoryUnit) error {
	if _, ok := r.db.units[unit.ID]; !ok {
		return fmt.Errorf("unidad %s: %w", unit.ID, domain.ErrNotFound)
	}
	cp := *unit
	r.db.units[unit.ID] = &cp
	return nil
}

func (r *fakeUnitRepo) ListRentable(_ context.Context, itemID, locationID string, limit int) ([]*entity.InventoryUnit, error) {
	var out []*entity.InventoryUnit
	for _, u := range r.db.units {
		if u.ItemID == itemID && u.LocationID == locationID && u.Status == entity.UnitAvailable && !u.RentalBlocked {
			cp := *u
			out = append(out, &cp)
		}
	}
	// FIFO: las más antiguas primero
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PurchaseDate.Equal(out[j].PurchaseDate) {
			return out[i].PurchaseDate.Before(out[j].PurchaseDate)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeUnitRepo) ListAvailable(_ context.Context, itemID, locationID string, limit int) ([]*entity.InventoryUnit, error) {
	var out []*entity.InventoryUnit
	for _, u := range r.db.units {
		if u.ItemID == itemID && u.LocationID == locationID && u.Status == entity.UnitAvailable {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PurchaseDate.Equal(out[j].PurchaseDate) {
			return out[i].PurchaseDate.Before(out[j].PurchaseDate)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeUnitRepo) ListByStatus(_ context.Context, itemID, locationID string, status entity.UnitStatus, limit, offset int) ([]*entity.InventoryUnit, error) {
	var out []*entity.InventoryUnit
	for _, u := range r.db.units {
		if u.ItemID == itemID && u.LocationID == locationID && u.Status == status {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeUnitRepo) CountByStatus(_ context.Context, itemID, locationID string) (map[entity.UnitStatus]int64, error) {
	counts := make(map[entity.UnitStatus]int64)
	for _, u := range r.db.units {
		if u.ItemID == itemID && u.LocationID == locationID {
			counts[u.Status]++
		}
	}
	return counts, nil
}

// ── StockMovementRepository ───────────────────────────────────────────────────

type fakeMovementRepo struct {
	db *fakeDB
}

func (r *fakeMovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = r.db.nextID("mov")
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	cp := *m
	r.db.movements = append(r.db.movements, &cp)
	return nil
}

func (r *fakeMovementRepo) GetByID(_ context.Context, id string) (*entity.StockMovement, error) {
	for _, m := range r.db.movements {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeMovementRepo) ListByStockLevel(_ context.Context, stockLevelID string, limit, offset int) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.db.movements {
		if m.StockLevelID == stockLevelID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return paginateMovements(out, limit, offset), nil
}

func (r *fakeMovementRepo) ListByItem(_ context.Context, itemID, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.db.movements {
		if m.ItemID != itemID {
			continue
		}
		if locationID != "" && m.LocationID != locationID {
			continue
		}
		if from != nil && m.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && m.CreatedAt.After(*to) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return paginateMovements(out, limit, offset), nil
}

func (r *fakeMovementRepo) ListByTransaction(_ context.Context, transactionID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.db.movements {
		if transactionID != "" && m.TransactionID == transactionID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) Summary(_ context.Context, itemID, locationID string, from, to *time.Time) ([]repository.MovementSummaryRow, error) {
	byType := make(map[entity.MovementType]*repository.MovementSummaryRow)
	for _, m := range r.db.movements {
		if itemID != "" && m.ItemID != itemID {
			continue
		}
		if locationID != "" && m.LocationID != locationID {
			continue
		}
		row, ok := byType[m.Type]
		if !ok {
			row = &repository.MovementSummaryRow{Type: m.Type}
			byType[m.Type] = row
		}
		row.Count++
		row.TotalQuantity = row.TotalQuantity.Add(m.Quantity)
		row.TotalChange = row.TotalChange.Add(m.QuantityChange)
	}
	var out []repository.MovementSummaryRow
	for _, row := range byType {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (r *fakeMovementRepo) ListPendingApprovals(_ context.Context, limit, offset int) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.db.movements {
		if m.PendingApproval() {
			cp := *m
			out = append(out, &cp)
		}
	}
	return paginateMovements(out, limit, offset), nil
}

func (r *fakeMovementRepo) Approve(_ context.Context, movementID, approver, notes string, at time.Time) error {
	for _, m := range r.db.movements {
		if m.ID != movementID {
			continue
		}
		if m.ApprovedBy != "" {
			return fmt.Errorf("ajuste %s ya aprobado: %w", movementID, domain.ErrConflict)
		}
		m.ApprovedBy = approver
		m.ApprovedAt = &at
		m.ApprovalNotes = notes
		return nil
	}
	return fmt.Errorf("movimiento %s: %w", movementID, domain.ErrNotFound)
}

func paginateMovements(in []*entity.StockMovement, limit, offset int) []*entity.StockMovement {
	sort.Slice(in, func(i, j int) bool { return in[i].ID < in[j].ID })
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

// dec abrevia decimal.NewFromInt en los tests.
func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }
