package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/entity"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/repository"
	"github.com/tluanga-dev/rental-manager-sub003/pkg/logger"
)

// ttlLevelSnapshot vigencia del snapshot de agregado en cache.
const ttlLevelSnapshot = 30 * time.Second

// StockQueryUseCase resuelve el lado de lectura del motor: consulta de agregados,
// historial de movimientos, resúmenes y alertas de stock. Solo lecturas; los repos
// van atados al pool, no a una transacción.
type StockQueryUseCase struct {
	levels    repository.StockLevelRepository
	movements repository.StockMovementRepository
	cache     StockCache
	log       *logger.Logger
}

// NewStockQueryUseCase construye el caso de uso de consultas. cache puede ser nil.
func NewStockQueryUseCase(
	levels repository.StockLevelRepository,
	movements repository.StockMovementRepository,
	cache StockCache,
	log *logger.Logger,
) *StockQueryUseCase {
	return &StockQueryUseCase{levels: levels, movements: movements, cache: cache, log: log}
}

// StockSummary totales de stock sobre un conjunto de agregados.
type StockSummary struct {
	StockLevels   int
	OnHand        decimal.Decimal
	Available     decimal.Decimal
	Reserved      decimal.Decimal
	OnRent        decimal.Decimal
	Damaged       decimal.Decimal
	InMaintenance decimal.Decimal
	LowStock      int
	OutOfStock    int
}

// GetStockLevel devuelve el agregado para (item, ubicación), cache primero.
func (uc *StockQueryUseCase) GetStockLevel(ctx context.Context, itemID, locationID string) (*entity.StockLevel, error) {
	if itemID == "" || locationID == "" {
		return nil, fmt.Errorf("consulta requiere item y ubicación: %w", domain.ErrValidation)
	}
	if uc.cache != nil {
		if cached, err := uc.cache.GetLevel(ctx, itemID, locationID); err == nil && cached != nil {
			return cached, nil
		}
	}
	level, err := uc.levels.Get(ctx, itemID, locationID)
	if err != nil {
		return nil, err
	}
	if level == nil {
		return nil, fmt.Errorf("stock para item=%s ubicación=%s: %w", itemID, locationID, domain.ErrNotFound)
	}
	if uc.cache != nil {
		if err := uc.cache.SetLevel(ctx, level, ttlLevelSnapshot); err != nil {
			uc.log.Warn().Err(err).Msg("cacheo de snapshot falló")
		}
	}
	return level, nil
}

// MovementsByItem historial de un item, opcionalmente filtrado por ubicación y ventana de tiempo.
func (uc *StockQueryUseCase) MovementsByItem(ctx context.Context, itemID, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	if itemID == "" {
		return nil, fmt.Errorf("consulta requiere item: %w", domain.ErrValidation)
	}
	return uc.movements.ListByItem(ctx, itemID, locationID, from, to, normalizeLimit(limit), offset)
}

// MovementsByStockLevel historial completo de un agregado.
func (uc *StockQueryUseCase) MovementsByStockLevel(ctx context.Context, stockLevelID string, limit, offset int) ([]*entity.StockMovement, error) {
	if stockLevelID == "" {
		return nil, fmt.Errorf("consulta requiere stock level: %w", domain.ErrValidation)
	}
	return uc.movements.ListByStockLevel(ctx, stockLevelID, normalizeLimit(limit), offset)
}

// MovementsByTransaction movimientos de una transacción de negocio (detecta reenvíos).
func (uc *StockQueryUseCase) MovementsByTransaction(ctx context.Context, transactionID string) ([]*entity.StockMovement, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("consulta requiere transacción: %w", domain.ErrValidation)
	}
	return uc.movements.ListByTransaction(ctx, transactionID)
}

// MovementSummary conteos y cantidades agrupados por tipo en una ventana de tiempo.
func (uc *StockQueryUseCase) MovementSummary(ctx context.Context, itemID, locationID string, from, to *time.Time) ([]repository.MovementSummaryRow, error) {
	return uc.movements.Summary(ctx, itemID, locationID, from, to)
}

// PendingApprovals ajustes esperando aprobación, más antiguos primero.
func (uc *StockQueryUseCase) PendingApprovals(ctx context.Context, limit, offset int) ([]*entity.StockMovement, error) {
	return uc.movements.ListPendingApprovals(ctx, normalizeLimit(limit), offset)
}

// Summary totales de on_hand/available/on_rent/damaged más conteo de alertas.
func (uc *StockQueryUseCase) Summary(ctx context.Context) (*StockSummary, error) {
	// Paginar no aporta aquí: el resumen recorre los agregados completos.
	all, err := uc.levels.List(ctx, 10_000, 0)
	if err != nil {
		return nil, err
	}
	s := &StockSummary{StockLevels: len(all)}
	for _, lv := range all {
		s.OnHand = s.OnHand.Add(lv.OnHand)
		s.Available = s.Available.Add(lv.Available)
		s.Reserved = s.Reserved.Add(lv.Reserved)
		s.OnRent = s.OnRent.Add(lv.OnRent)
		s.Damaged = s.Damaged.Add(lv.Damaged)
		s.InMaintenance = s.InMaintenance.Add(lv.InMaintenance)
		if lv.IsLowStock() {
			s.LowStock++
		}
		if lv.IsOutOfStock() {
			s.OutOfStock++
		}
	}
	return s, nil
}

// LowStock agregados con available <= reorder_point (con punto de reorden configurado).
// locationID vacío no filtra.
func (uc *StockQueryUseCase) LowStock(ctx context.Context, locationID string) ([]*entity.StockLevel, error) {
	return uc.levels.ListBelowReorderPoint(ctx, locationID)
}

// OutOfStock agregados con available == 0.
func (uc *StockQueryUseCase) OutOfStock(ctx context.Context, locationID string) ([]*entity.StockLevel, error) {
	return uc.levels.ListOutOfStock(ctx, locationID)
}

// ReplayOnHand reconstruye el on_hand de un agregado sumando los deltas del ledger en
// orden de creación. Herramienta de auditoría: debe coincidir con el on_hand materializado.
func (uc *StockQueryUseCase) ReplayOnHand(ctx context.Context, stockLevelID string) (decimal.Decimal, error) {
	movs, err := uc.movements.ListByStockLevel(ctx, stockLevelID, 100_000, 0)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, m := range movs {
		total = total.Add(m.QuantityChange)
	}
	return total, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
