package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain"
)

// MovementType taxonomía cerrada de movimientos del ledger.
type MovementType string

const (
	MovementPurchase            MovementType = "PURCHASE"
	MovementSale                MovementType = "SALE"
	MovementRentalOut           MovementType = "RENTAL_OUT"
	MovementRentalReturn        MovementType = "RENTAL_RETURN"
	MovementRentalReturnDamaged MovementType = "RENTAL_RETURN_DAMAGED"
	MovementRentalReturnMixed   MovementType = "RENTAL_RETURN_MIXED"
	MovementTransferOut         MovementType = "TRANSFER_OUT"
	MovementTransferIn          MovementType = "TRANSFER_IN"
	MovementAdjustmentPositive  MovementType = "ADJUSTMENT_POSITIVE"
	MovementAdjustmentNegative  MovementType = "ADJUSTMENT_NEGATIVE"
	MovementDamageLoss          MovementType = "DAMAGE_LOSS"
	MovementRepairCompleted     MovementType = "REPAIR_COMPLETED"
	MovementWriteOff            MovementType = "WRITE_OFF"
	MovementSystemCorrection    MovementType = "SYSTEM_CORRECTION"
)

var validMovementTypes = map[MovementType]bool{
	MovementPurchase: true, MovementSale: true,
	MovementRentalOut: true, MovementRentalReturn: true,
	MovementRentalReturnDamaged: true, MovementRentalReturnMixed: true,
	MovementTransferOut: true, MovementTransferIn: true,
	MovementAdjustmentPositive: true, MovementAdjustmentNegative: true,
	MovementDamageLoss: true, MovementRepairCompleted: true,
	MovementWriteOff: true, MovementSystemCorrection: true,
}

// StockMovement es una entrada inmutable del ledger: un cambio de cantidad y su causa.
//
// Quantity es la magnitud de unidades movidas (siempre positiva). QuantityChange es el
// delta firmado sobre on_hand, con QuantityBefore/QuantityAfter como valores de on_hand
// antes y después. Los movimientos que solo reubican entre buckets (RENTAL_OUT, retornos
// sanos, REPAIR_COMPLETED) llevan QuantityChange cero: no alteran on_hand, por lo que
// sumar los deltas del ledger en orden de creación reconstruye exactamente el on_hand.
//
// Las filas nunca se actualizan, salvo para adjuntar la aprobación de un ajuste.
type StockMovement struct {
	ID   string
	Type MovementType

	ItemID       string
	LocationID   string
	StockLevelID string

	Quantity       decimal.Decimal
	QuantityChange decimal.Decimal
	QuantityBefore decimal.Decimal
	QuantityAfter  decimal.Decimal

	UnitCost  *decimal.Decimal
	TotalCost *decimal.Decimal

	TransactionID string
	TransferID    string // correlaciona el par TRANSFER_OUT/TRANSFER_IN
	CustomerID    string
	SupplierID    string
	UnitIDs       []string

	Reason string
	Notes  string

	CreatedBy     string
	ApprovedBy    string
	ApprovedAt    *time.Time
	ApprovalNotes string

	CreatedAt time.Time
}

// Validate verifica la aritmética del ledger antes de persistir. Una violación es un
// error duro de validación; nunca se corrige silenciosamente.
func (m *StockMovement) Validate() error {
	if !validMovementTypes[m.Type] {
		return fmt.Errorf("tipo de movimiento desconocido %q: %w", m.Type, domain.ErrValidation)
	}
	if m.ItemID == "" || m.LocationID == "" {
		return fmt.Errorf("movimiento sin item o ubicación: %w", domain.ErrValidation)
	}
	if !m.Quantity.IsPositive() {
		return fmt.Errorf("cantidad del movimiento debe ser positiva, recibida %s: %w",
			m.Quantity, domain.ErrValidation)
	}
	if !m.QuantityAfter.Equal(m.QuantityBefore.Add(m.QuantityChange)) {
		return fmt.Errorf("ledger roto: after=%s != before=%s + change=%s: %w",
			m.QuantityAfter, m.QuantityBefore, m.QuantityChange, domain.ErrInvariantViolation)
	}
	if m.IsAdjustment() && m.Reason == "" {
		return fmt.Errorf("ajuste sin razón: %w", domain.ErrValidation)
	}
	return nil
}

// IsAdjustment indica si el movimiento es un ajuste manual (sujeto a aprobación).
func (m *StockMovement) IsAdjustment() bool {
	return m.Type == MovementAdjustmentPositive || m.Type == MovementAdjustmentNegative
}

// PendingApproval indica si el ajuste sigue esperando aprobación.
func (m *StockMovement) PendingApproval() bool {
	return m.IsAdjustment() && m.ApprovedBy == ""
}

// MovementTypeForReturn resuelve el tipo de retorno según cuántas unidades volvieron dañadas.
func MovementTypeForReturn(quantity, damaged decimal.Decimal) MovementType {
	switch {
	case damaged.IsZero():
		return MovementRentalReturn
	case damaged.Equal(quantity):
		return MovementRentalReturnDamaged
	default:
		return MovementRentalReturnMixed
	}
}
