package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain"
)

// UnitStatus estado de una unidad física serializada. Enumeración cerrada;
// las transiciones válidas están en unitTransitions.
type UnitStatus string

const (
	UnitAvailable     UnitStatus = "AVAILABLE"
	UnitReserved      UnitStatus = "RESERVED"
	UnitRented        UnitStatus = "RENTED"
	UnitDamaged       UnitStatus = "DAMAGED"
	UnitInMaintenance UnitStatus = "IN_MAINTENANCE"
	UnitInTransit     UnitStatus = "IN_TRANSIT"
	UnitRetired       UnitStatus = "RETIRED" // terminal
	UnitLost          UnitStatus = "LOST"    // terminal
)

// Condiciones físicas de una unidad.
const (
	ConditionNew     = "NEW"
	ConditionGood    = "GOOD"
	ConditionFair    = "FAIR"
	ConditionDamaged = "DAMAGED"
)

// unitTransitions tabla cerrada de transiciones del ciclo de vida.
// RETIRED y LOST son terminales: no aparecen como origen.
var unitTransitions = map[UnitStatus][]UnitStatus{
	UnitAvailable:     {UnitReserved, UnitRented, UnitInTransit, UnitRetired, UnitLost},
	UnitReserved:      {UnitRented, UnitAvailable},
	UnitRented:        {UnitAvailable, UnitDamaged, UnitInMaintenance},
	UnitDamaged:       {UnitInMaintenance, UnitRetired, UnitLost},
	UnitInMaintenance: {UnitAvailable, UnitRetired, UnitLost},
	UnitInTransit:     {UnitAvailable},
}

// InventoryUnit registro por unidad física de un item serializado. El estado de la
// unidad debe coincidir siempre con el bucket del StockLevel al que aporta; por eso
// solo las operaciones del servicio de inventario mutan unidades, dentro de la misma
// transacción que el agregado.
type InventoryUnit struct {
	ID           string
	UnitCode     string
	SerialNumber string
	BatchCode    string

	ItemID     string
	LocationID string

	Status    UnitStatus
	Condition string

	PurchasePrice decimal.Decimal
	PurchaseDate  time.Time
	WarrantyUntil *time.Time

	LastMaintenanceAt *time.Time
	NextMaintenanceAt *time.Time

	RentalCount       int
	CurrentCustomerID string
	RentalBlocked     bool
	RentalBlockReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewInventoryUnit crea una unidad recién recibida (estado AVAILABLE, condición NEW).
func NewInventoryUnit(unitCode, itemID, locationID string, purchasePrice decimal.Decimal, purchaseDate time.Time) *InventoryUnit {
	now := time.Now()
	return &InventoryUnit{
		UnitCode:      unitCode,
		ItemID:        itemID,
		LocationID:    locationID,
		Status:        UnitAvailable,
		Condition:     ConditionNew,
		PurchasePrice: purchasePrice,
		PurchaseDate:  purchaseDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// TransitionTo cambia el estado de la unidad si la transición está declarada en la tabla.
// Una transición no declarada falla con ErrValidation y deja la unidad intacta.
func (u *InventoryUnit) TransitionTo(next UnitStatus) error {
	for _, allowed := range unitTransitions[u.Status] {
		if allowed == next {
			u.Status = next
			u.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("transición %s -> %s no permitida (unidad %s): %w",
		u.Status, next, u.UnitCode, domain.ErrValidation)
}

// IsTerminal indica si la unidad llegó a un estado sin salida (retirada o perdida).
func (u *InventoryUnit) IsTerminal() bool {
	return u.Status == UnitRetired || u.Status == UnitLost
}

// Rentable indica si la unidad puede salir en renta.
func (u *InventoryUnit) Rentable() bool {
	return u.Status == UnitAvailable && !u.RentalBlocked
}

// MarkRented pasa la unidad a RENTED con el cliente actual y suma el contador de rentas.
func (u *InventoryUnit) MarkRented(customerID string) error {
	if u.RentalBlocked {
		return fmt.Errorf("unidad %s bloqueada para renta (%s): %w",
			u.UnitCode, u.RentalBlockReason, domain.ErrValidation)
	}
	if err := u.TransitionTo(UnitRented); err != nil {
		return err
	}
	u.CurrentCustomerID = customerID
	u.RentalCount++
	return nil
}

// MarkReturned cierra la renta: AVAILABLE si vuelve sana, DAMAGED si vuelve dañada.
func (u *InventoryUnit) MarkReturned(damaged bool) error {
	next := UnitAvailable
	if damaged {
		next = UnitDamaged
	}
	if err := u.TransitionTo(next); err != nil {
		return err
	}
	u.CurrentCustomerID = ""
	if damaged {
		u.Condition = ConditionDamaged
	}
	return nil
}
