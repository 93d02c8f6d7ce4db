package entity_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tests InventoryUnit — ciclo de vida de unidades serializadas.
//
// La tabla de transiciones es cerrada: toda transición no declarada falla con
// ErrValidation y deja la unidad intacta. RETIRED y LOST son terminales.
// ──────────────────────────────────────────────────────────────────────────────

func buildUnit() *entity.InventoryUnit {
	return entity.NewInventoryUnit("UNIT-001", "item-1", "loc-1",
		decimal.NewFromInt(100), time.Now())
}

func TestNewInventoryUnit_NaceDisponibleYNueva(t *testing.T) {
	u := buildUnit()

	assert.Equal(t, entity.UnitAvailable, u.Status)
	assert.Equal(t, entity.ConditionNew, u.Condition)
	assert.True(t, u.Rentable())
	assert.Zero(t, u.RentalCount)
}

func TestTransitionTo_TransicionesValidas(t *testing.T) {
	casos := []struct {
		desde entity.UnitStatus
		hacia entity.UnitStatus
	}{
		{entity.UnitAvailable, entity.UnitReserved},
		{entity.UnitAvailable, entity.UnitRented},
		{entity.UnitAvailable, entity.UnitInTransit},
		{entity.UnitReserved, entity.UnitRented},
		{entity.UnitReserved, entity.UnitAvailable},
		{entity.UnitRented, entity.UnitAvailable},
		{entity.UnitRented, entity.UnitDamaged},
		{entity.UnitDamaged, entity.UnitInMaintenance},
		{entity.UnitInMaintenance, entity.UnitAvailable},
		{entity.UnitInMaintenance, entity.UnitRetired},
		{entity.UnitInTransit, entity.UnitAvailable},
		{entity.UnitDamaged, entity.UnitLost},
	}
	for _, c := range casos {
		u := buildUnit()
		u.Status = c.desde
		assert.NoErrorf(t, u.TransitionTo(c.hacia), "%s -> %s debe estar permitida", c.desde, c.hacia)
		assert.Equal(t, c.hacia, u.Status)
	}
}

func TestTransitionTo_TransicionesInvalidas(t *testing.T) {
	casos := []struct {
		desde entity.UnitStatus
		hacia entity.UnitStatus
	}{
		{entity.UnitAvailable, entity.UnitDamaged},      // solo una unidad rentada puede dañarse
		{entity.UnitAvailable, entity.UnitInMaintenance},
		{entity.UnitReserved, entity.UnitDamaged},
		{entity.UnitRented, entity.UnitRetired}, // hay que cerrarla antes de retirarla
		{entity.UnitRetired, entity.UnitAvailable},
		{entity.UnitLost, entity.UnitAvailable},
	}
	for _, c := range casos {
		u := buildUnit()
		u.Status = c.desde
		err := u.TransitionTo(c.hacia)
		require.ErrorIsf(t, err, domain.ErrValidation, "%s -> %s debe estar prohibida", c.desde, c.hacia)
		assert.Equal(t, c.desde, u.Status, "la unidad debe quedar intacta tras una transición rechazada")
	}
}

func TestIsTerminal(t *testing.T) {
	u := buildUnit()
	assert.False(t, u.IsTerminal())

	u.Status = entity.UnitRetired
	assert.True(t, u.IsTerminal())

	u.Status = entity.UnitLost
	assert.True(t, u.IsTerminal())
}

// ── MarkRented / MarkReturned ─────────────────────────────────────────────────

func TestMarkRented_AsignaClienteYCuentaRenta(t *testing.T) {
	u := buildUnit()

	require.NoError(t, u.MarkRented("cust-7"))

	assert.Equal(t, entity.UnitRented, u.Status)
	assert.Equal(t, "cust-7", u.CurrentCustomerID)
	assert.Equal(t, 1, u.RentalCount)
}

func TestMarkRented_BloqueadaParaRenta(t *testing.T) {
	u := buildUnit()
	u.RentalBlocked = true
	u.RentalBlockReason = "pendiente de inspección"

	err := u.MarkRented("cust-7")
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, entity.UnitAvailable, u.Status)
	assert.Zero(t, u.RentalCount, "una renta rechazada no debe contar")
	assert.False(t, u.Rentable())
}

func TestMarkReturned_SanaVuelveDisponible(t *testing.T) {
	u := buildUnit()
	require.NoError(t, u.MarkRented("cust-7"))

	require.NoError(t, u.MarkReturned(false))

	assert.Equal(t, entity.UnitAvailable, u.Status)
	assert.Empty(t, u.CurrentCustomerID, "al retornar se limpia el cliente actual")
	assert.Equal(t, entity.ConditionNew, u.Condition, "un retorno sano no degrada la condición")
}

func TestMarkReturned_DanadaQuedaEnDamaged(t *testing.T) {
	u := buildUnit()
	require.NoError(t, u.MarkRented("cust-7"))

	require.NoError(t, u.MarkReturned(true))

	assert.Equal(t, entity.UnitDamaged, u.Status)
	assert.Equal(t, entity.ConditionDamaged, u.Condition)
	assert.Empty(t, u.CurrentCustomerID)
	assert.False(t, u.Rentable(), "una unidad dañada no puede volver a rentarse")
}

func TestMarkReturned_SinRentaActiva_Falla(t *testing.T) {
	u := buildUnit() // AVAILABLE, nunca rentada
	err := u.MarkReturned(false)
	assert.ErrorIs(t, err, domain.ErrValidation,
		"AVAILABLE -> AVAILABLE no está declarada en la tabla")
}
