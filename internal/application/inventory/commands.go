package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/entity"
)

// Comandos tipados por operación. Cada comando se valida completo antes de abrir
// la transacción: un comando inválido nunca llega a tocar la BD.

// ReceiveCommand recepción de stock (compra o alta inicial).
// Serialized crea una fila InventoryUnit por unidad recibida; Serials, si se envían,
// deben traer exactamente Quantity números de serie.
type ReceiveCommand struct {
	ItemID     string
	LocationID string
	Quantity   decimal.Decimal
	UnitCost   decimal.Decimal
	Serialized bool
	Serials    []string
	BatchCode  string
	SupplierID string
	Notes      string
	ActorID    string
}

func (c ReceiveCommand) Validate() error {
	if c.ItemID == "" || c.LocationID == "" {
		return fmt.Errorf("recepción requiere item y ubicación: %w", domain.ErrValidation)
	}
	if !c.Quantity.IsPositive() {
		return fmt.Errorf("cantidad a recibir debe ser positiva, recibida %s: %w", c.Quantity, domain.ErrValidation)
	}
	if c.UnitCost.IsNegative() {
		return fmt.Errorf("costo unitario negativo: %w", domain.ErrValidation)
	}
	if c.Serialized && !c.Quantity.IsInteger() {
		return fmt.Errorf("items serializados requieren cantidad entera: %w", domain.ErrValidation)
	}
	if len(c.Serials) > 0 && !c.Quantity.Equal(decimal.NewFromInt(int64(len(c.Serials)))) {
		return fmt.Errorf("se recibieron %d seriales para cantidad %s: %w", len(c.Serials), c.Quantity, domain.ErrValidation)
	}
	return nil
}

// CheckoutCommand salida en renta.
type CheckoutCommand struct {
	ItemID        string
	LocationID    string
	Quantity      decimal.Decimal
	CustomerID    string
	TransactionID string
	Notes         string
	ActorID       string
}

func (c CheckoutCommand) Validate() error {
	if c.ItemID == "" || c.LocationID == "" || c.CustomerID == "" || c.TransactionID == "" {
		return fmt.Errorf("checkout requiere item, ubicación, cliente y transacción: %w", domain.ErrValidation)
	}
	if !c.Quantity.IsPositive() {
		return fmt.Errorf("cantidad de checkout debe ser positiva, recibida %s: %w", c.Quantity, domain.ErrValidation)
	}
	return nil
}

// ReturnCommand retorno de renta. Los primeros DamagedQuantity ids de UnitIDs se
// tratan como dañados (el orquestador de rentas lista las unidades dañadas primero).
// UnitIDs vacío es un retorno de stock no serializado.
type ReturnCommand struct {
	ItemID          string
	LocationID      string
	Quantity        decimal.Decimal
	DamagedQuantity decimal.Decimal
	UnitIDs         []string
	TransactionID   string
	Notes           string
	ActorID         string
}

func (c ReturnCommand) Validate() error {
	if c.ItemID == "" || c.LocationID == "" || c.TransactionID == "" {
		return fmt.Errorf("retorno requiere item, ubicación y transacción: %w", domain.ErrValidation)
	}
	if !c.Quantity.IsPositive() {
		return fmt.Errorf("cantidad de retorno debe ser positiva, recibida %s: %w", c.Quantity, domain.ErrValidation)
	}
	if c.DamagedQuantity.IsNegative() || c.DamagedQuantity.GreaterThan(c.Quantity) {
		return fmt.Errorf("cantidad dañada %s fuera de rango [0, %s]: %w", c.DamagedQuantity, c.Quantity, domain.ErrValidation)
	}
	if len(c.UnitIDs) > 0 && !c.Quantity.Equal(decimal.NewFromInt(int64(len(c.UnitIDs)))) {
		return fmt.Errorf("se recibieron %d unidades para cantidad %s: %w", len(c.UnitIDs), c.Quantity, domain.ErrValidation)
	}
	return nil
}

// SaleCommand venta: baja directa de available y on_hand, sin bucket de renta.
type SaleCommand struct {
	ItemID        string
	LocationID    string
	Quantity      decimal.Decimal
	CustomerID    string
	TransactionID string
	Notes         string
	ActorID       string
}

func (c SaleCommand) Validate() error {
	if c.ItemID == "" || c.LocationID == "" || c.TransactionID == "" {
		return fmt.Errorf("venta requiere item, ubicación y transacción: %w", domain.ErrValidation)
	}
	if !c.Quantity.IsPositive() {
		return fmt.Errorf("cantidad de venta debe ser positiva, recibida %s: %w", c.Quantity, domain.ErrValidation)
	}
	return nil
}

// TransferCommand traslado entre ubicaciones.
type TransferCommand struct {
	ItemID         string
	FromLocationID string
	ToLocationID   string
	Quantity       decimal.Decimal
	TransactionID  string
	Reason         string
	Notes          string
	ActorID        string
}

func (c TransferCommand) Validate() error {
	if c.ItemID == "" || c.FromLocationID == "" || c.ToLocationID == "" {
		return fmt.Errorf("traslado requiere item, origen y destino: %w", domain.ErrValidation)
	}
	if c.FromLocationID == c.ToLocationID {
		return fmt.Errorf("origen y destino del traslado son la misma ubicación: %w", domain.ErrValidation)
	}
	if !c.Quantity.IsPositive() {
		return fmt.Errorf("cantidad de traslado debe ser positiva, recibida %s: %w", c.Quantity, domain.ErrValidation)
	}
	return nil
}

// AdjustCommand ajuste manual con razón obligatoria. Quantity es firmada.
// Bucket vacío ajusta available (convención); on_hand se mueve siempre.
type AdjustCommand struct {
	ItemID           string
	LocationID       string
	Quantity         decimal.Decimal
	Bucket           entity.Bucket
	Reason           string
	Notes            string
	RequiresApproval bool
	ActorID          string
}

func (c AdjustCommand) Validate() error {
	if c.ItemID == "" || c.LocationID == "" {
		return fmt.Errorf("ajuste requiere item y ubicación: %w", domain.ErrValidation)
	}
	if c.Reason == "" {
		return fmt.Errorf("ajuste requiere una razón: %w", domain.ErrValidation)
	}
	if c.Quantity.IsZero() {
		return fmt.Errorf("ajuste con cantidad cero: %w", domain.ErrValidation)
	}
	return nil
}

// ReserveCommand aparta stock disponible para un cliente antes del checkout.
type ReserveCommand struct {
	ItemID        string
	LocationID    string
	Quantity      decimal.Decimal
	CustomerID    string
	TransactionID string
	ActorID       string
}

func (c ReserveCommand) Validate() error {
	if c.ItemID == "" || c.LocationID == "" || c.CustomerID == "" {
		return fmt.Errorf("reserva requiere item, ubicación y cliente: %w", domain.ErrValidation)
	}
	if !c.Quantity.IsPositive() {
		return fmt.Errorf("cantidad de reserva debe ser positiva, recibida %s: %w", c.Quantity, domain.ErrValidation)
	}
	return nil
}

// WriteOffCommand baja definitiva de una unidad (retiro o pérdida).
type WriteOffCommand struct {
	UnitID  string
	Lost    bool // true = LOST, false = RETIRED
	Reason  string
	Notes   string
	ActorID string
}

func (c WriteOffCommand) Validate() error {
	if c.UnitID == "" {
		return fmt.Errorf("baja requiere unidad: %w", domain.ErrValidation)
	}
	if c.Reason == "" {
		return fmt.Errorf("baja requiere una razón: %w", domain.ErrValidation)
	}
	return nil
}
