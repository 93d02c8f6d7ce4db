package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/entity"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/repository"
)

// ReceiveRequest body para POST /api/inventory/receipts.
type ReceiveRequest struct {
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	Serialized bool            `json:"serialized,omitempty"`
	Serials    []string        `json:"serials,omitempty"`
	BatchCode  string          `json:"batch_code,omitempty"`
	SupplierID string          `json:"supplier_id,omitempty"`
	Notes      string          `json:"notes,omitempty"`
}

// CheckoutRequest body para POST /api/inventory/checkouts.
type CheckoutRequest struct {
	ItemID        string          `json:"item_id"`
	LocationID    string          `json:"location_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	CustomerID    string          `json:"customer_id"`
	TransactionID string          `json:"transaction_id"`
	Notes         string          `json:"notes,omitempty"`
}

// ReturnRequest body para POST /api/inventory/returns.
// Los primeros damaged_quantity ids de unit_ids se tratan como dañados.
type ReturnRequest struct {
	ItemID          string          `json:"item_id"`
	LocationID      string          `json:"location_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	DamagedQuantity decimal.Decimal `json:"damaged_quantity,omitempty"`
	UnitIDs         []string        `json:"unit_ids,omitempty"`
	TransactionID   string          `json:"transaction_id"`
	Notes           string          `json:"notes,omitempty"`
}

// SaleRequest body para POST /api/inventory/sales.
type SaleRequest struct {
	ItemID        string          `json:"item_id"`
	LocationID    string          `json:"location_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	CustomerID    string          `json:"customer_id,omitempty"`
	TransactionID string          `json:"transaction_id"`
	Notes         string          `json:"notes,omitempty"`
}

// TransferRequest body para POST /api/inventory/transfers.
type TransferRequest struct {
	ItemID         string          `json:"item_id"`
	FromLocationID string          `json:"from_location_id"`
	ToLocationID   string          `json:"to_location_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	TransactionID  string          `json:"transaction_id,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// AdjustRequest body para POST /api/inventory/adjustments.
type AdjustRequest struct {
	ItemID           string          `json:"item_id"`
	LocationID       string          `json:"location_id"`
	Quantity         decimal.Decimal `json:"quantity"` // firmada
	Bucket           string          `json:"bucket,omitempty"`
	Reason           string          `json:"reason"`
	Notes            string          `json:"notes,omitempty"`
	RequiresApproval bool            `json:"requires_approval,omitempty"`
}

// ApproveAdjustmentRequest body para POST /api/inventory/adjustments/:id/approve.
type ApproveAdjustmentRequest struct {
	Notes string `json:"notes,omitempty"`
}

// ReserveRequest body para crear o liberar una reserva de stock.
type ReserveRequest struct {
	ItemID        string          `json:"item_id"`
	LocationID    string          `json:"location_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	CustomerID    string          `json:"customer_id"`
	TransactionID string          `json:"transaction_id,omitempty"`
}

// WriteOffRequest baja definitiva de una unidad serializada.
type WriteOffRequest struct {
	UnitID string `json:"unit_id"`
	Lost   bool   `json:"lost,omitempty"`
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
}

// CompleteRepairRequest cierre del mantenimiento de una unidad.
type CompleteRepairRequest struct {
	Notes string `json:"notes,omitempty"`
}

// StockLevelDTO respuesta con el snapshot de un agregado.
type StockLevelDTO struct {
	ID            string          `json:"id"`
	ItemID        string          `json:"item_id"`
	LocationID    string          `json:"location_id"`
	OnHand        decimal.Decimal `json:"on_hand"`
	Available     decimal.Decimal `json:"available"`
	Reserved      decimal.Decimal `json:"reserved"`
	OnRent        decimal.Decimal `json:"on_rent"`
	Damaged       decimal.Decimal `json:"damaged"`
	InMaintenance decimal.Decimal `json:"in_maintenance"`
	ReorderPoint  decimal.Decimal `json:"reorder_point"`
	Version       int64           `json:"version"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// StockMovementDTO respuesta con una entrada del ledger.
type StockMovementDTO struct {
	ID             string           `json:"id"`
	Type           string           `json:"type"`
	ItemID         string           `json:"item_id"`
	LocationID     string           `json:"location_id"`
	Quantity       decimal.Decimal  `json:"quantity"`
	QuantityChange decimal.Decimal  `json:"quantity_change"`
	QuantityBefore decimal.Decimal  `json:"quantity_before"`
	QuantityAfter  decimal.Decimal  `json:"quantity_after"`
	UnitCost       *decimal.Decimal `json:"unit_cost,omitempty"`
	TotalCost      *decimal.Decimal `json:"total_cost,omitempty"`
	TransactionID  string           `json:"transaction_id,omitempty"`
	TransferID     string           `json:"transfer_id,omitempty"`
	CustomerID     string           `json:"customer_id,omitempty"`
	UnitIDs        []string         `json:"unit_ids,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	CreatedBy      string           `json:"created_by,omitempty"`
	ApprovedBy     string           `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time       `json:"approved_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// MovementSummaryDTO fila del resumen por tipo de movimiento.
type MovementSummaryDTO struct {
	Type          string          `json:"type"`
	Count         int64           `json:"count"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalChange   decimal.Decimal `json:"total_change"`
}

// StockSummaryDTO totales globales de stock y alertas.
type StockSummaryDTO struct {
	StockLevels   int             `json:"stock_levels"`
	OnHand        decimal.Decimal `json:"on_hand"`
	Available     decimal.Decimal `json:"available"`
	Reserved      decimal.Decimal `json:"reserved"`
	OnRent        decimal.Decimal `json:"on_rent"`
	Damaged       decimal.Decimal `json:"damaged"`
	InMaintenance decimal.Decimal `json:"in_maintenance"`
	LowStock      int             `json:"low_stock"`
	OutOfStock    int             `json:"out_of_stock"`
}

// FromStockLevel proyecta la entidad al DTO de respuesta.
func FromStockLevel(s *entity.StockLevel) StockLevelDTO {
	return StockLevelDTO{
		ID:            s.ID,
		ItemID:        s.ItemID,
		LocationID:    s.LocationID,
		OnHand:        s.OnHand,
		Available:     s.Available,
		Reserved:      s.Reserved,
		OnRent:        s.OnRent,
		Damaged:       s.Damaged,
		InMaintenance: s.InMaintenance,
		ReorderPoint:  s.ReorderPoint,
		Version:       s.Version,
		UpdatedAt:     s.UpdatedAt,
	}
}

// FromStockMovement proyecta la entidad al DTO de respuesta.
func FromStockMovement(m *entity.StockMovement) StockMovementDTO {
	return StockMovementDTO{
		ID:             m.ID,
		Type:           string(m.Type),
		ItemID:         m.ItemID,
		LocationID:     m.LocationID,
		Quantity:       m.Quantity,
		QuantityChange: m.QuantityChange,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		UnitCost:       m.UnitCost,
		TotalCost:      m.TotalCost,
		TransactionID:  m.TransactionID,
		TransferID:     m.TransferID,
		CustomerID:     m.CustomerID,
		UnitIDs:        m.UnitIDs,
		Reason:         m.Reason,
		Notes:          m.Notes,
		CreatedBy:      m.CreatedBy,
		ApprovedBy:     m.ApprovedBy,
		ApprovedAt:     m.ApprovedAt,
		CreatedAt:      m.CreatedAt,
	}
}

// FromStockMovements proyecta un listado del ledger.
func FromStockMovements(ms []*entity.StockMovement) []StockMovementDTO {
	out := make([]StockMovementDTO, len(ms))
	for i, m := range ms {
		out[i] = FromStockMovement(m)
	}
	return out
}

// FromStockLevels proyecta un listado de agregados.
func FromStockLevels(ss []*entity.StockLevel) []StockLevelDTO {
	out := make([]StockLevelDTO, len(ss))
	for i, s := range ss {
		out[i] = FromStockLevel(s)
	}
	return out
}

// InventoryUnitDTO respuesta con una unidad física serializada.
type InventoryUnitDTO struct {
	ID                string          `json:"id"`
	UnitCode          string          `json:"unit_code"`
	SerialNumber      string          `json:"serial_number,omitempty"`
	ItemID            string          `json:"item_id"`
	LocationID        string          `json:"location_id"`
	Status            string          `json:"status"`
	Condition         string          `json:"condition"`
	PurchasePrice     decimal.Decimal `json:"purchase_price"`
	RentalCount       int             `json:"rental_count"`
	CurrentCustomerID string          `json:"current_customer_id,omitempty"`
	RentalBlocked     bool            `json:"rental_blocked,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// FromInventoryUnit proyecta la unidad al DTO de respuesta.
func FromInventoryUnit(u *entity.InventoryUnit) InventoryUnitDTO {
	return InventoryUnitDTO{
		ID:                u.ID,
		UnitCode:          u.UnitCode,
		SerialNumber:      u.SerialNumber,
		ItemID:            u.ItemID,
		LocationID:        u.LocationID,
		Status:            string(u.Status),
		Condition:         u.Condition,
		PurchasePrice:     u.PurchasePrice,
		RentalCount:       u.RentalCount,
		CurrentCustomerID: u.CurrentCustomerID,
		RentalBlocked:     u.RentalBlocked,
		UpdatedAt:         u.UpdatedAt,
	}
}

// FromMovementSummary proyecta el resumen por tipo.
func FromMovementSummary(rows []repository.MovementSummaryRow) []MovementSummaryDTO {
	out := make([]MovementSummaryDTO, len(rows))
	for i, r := range rows {
		out[i] = MovementSummaryDTO{
			Type:          string(r.Type),
			Count:         r.Count,
			TotalQuantity: r.TotalQuantity,
			TotalChange:   r.TotalChange,
		}
	}
	return out
}
