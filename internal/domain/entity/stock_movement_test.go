package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tests StockMovement — aritmética del ledger.
//
// Toda fila debe cumplir after == before + change; los ajustes requieren razón.
// ──────────────────────────────────────────────────────────────────────────────

// buildMovement crea una compra válida de 5 unidades sobre un on_hand de 10.
func buildMovement() *entity.StockMovement {
	return &entity.StockMovement{
		Type:           entity.MovementPurchase,
		ItemID:         "item-1",
		LocationID:     "loc-1",
		Quantity:       dec(5),
		QuantityChange: dec(5),
		QuantityBefore: dec(10),
		QuantityAfter:  dec(15),
		CreatedBy:      "user-1",
	}
}

func TestValidate_MovimientoValido(t *testing.T) {
	assert.NoError(t, buildMovement().Validate())
}

func TestValidate_TipoDesconocido(t *testing.T) {
	m := buildMovement()
	m.Type = entity.MovementType("INVENTO")
	assert.ErrorIs(t, m.Validate(), domain.ErrValidation)
}

func TestValidate_SinItemOUbicacion(t *testing.T) {
	m := buildMovement()
	m.ItemID = ""
	assert.ErrorIs(t, m.Validate(), domain.ErrValidation)

	m = buildMovement()
	m.LocationID = ""
	assert.ErrorIs(t, m.Validate(), domain.ErrValidation)
}

func TestValidate_CantidadNoPositiva(t *testing.T) {
	m := buildMovement()
	m.Quantity = decimal.Zero
	assert.ErrorIs(t, m.Validate(), domain.ErrValidation)

	m = buildMovement()
	m.Quantity = dec(-3)
	assert.ErrorIs(t, m.Validate(), domain.ErrValidation)
}

func TestValidate_AritmeticaRota(t *testing.T) {
	m := buildMovement()
	m.QuantityAfter = dec(99) // 10 + 5 != 99
	assert.ErrorIs(t, m.Validate(), domain.ErrInvariantViolation)
}

func TestValidate_ChangeCeroEsValidoParaReubicaciones(t *testing.T) {
	// RENTAL_OUT mueve 3 unidades entre buckets sin tocar on_hand.
	m := buildMovement()
	m.Type = entity.MovementRentalOut
	m.Quantity = dec(3)
	m.QuantityChange = decimal.Zero
	m.QuantityAfter = m.QuantityBefore

	require.NoError(t, m.Validate(),
		"un movimiento de reubicación lleva change=0 y before==after")
}

func TestValidate_AjusteSinRazon(t *testing.T) {
	m := buildMovement()
	m.Type = entity.MovementAdjustmentNegative
	m.QuantityChange = dec(-5)
	m.QuantityAfter = dec(5)
	m.Reason = ""

	assert.ErrorIs(t, m.Validate(), domain.ErrValidation,
		"un ajuste sin razón no puede entrar al ledger")

	m.Reason = "conteo físico"
	assert.NoError(t, m.Validate())
}

// ── Aprobación de ajustes ─────────────────────────────────────────────────────

func TestPendingApproval(t *testing.T) {
	m := buildMovement()
	assert.False(t, m.PendingApproval(), "una compra nunca está pendiente de aprobación")

	m.Type = entity.MovementAdjustmentPositive
	m.Reason = "conteo físico"
	assert.True(t, m.PendingApproval())

	m.ApprovedBy = "admin-1"
	assert.False(t, m.PendingApproval())
}

func TestIsAdjustment(t *testing.T) {
	m := buildMovement()
	assert.False(t, m.IsAdjustment())

	m.Type = entity.MovementAdjustmentNegative
	assert.True(t, m.IsAdjustment())
}

// ── Tipo de retorno según daños ───────────────────────────────────────────────

func TestMovementTypeForReturn(t *testing.T) {
	assert.Equal(t, entity.MovementRentalReturn,
		entity.MovementTypeForReturn(dec(3), decimal.Zero),
		"sin daños el retorno es RENTAL_RETURN")

	assert.Equal(t, entity.MovementRentalReturnDamaged,
		entity.MovementTypeForReturn(dec(3), dec(3)),
		"todo dañado es RENTAL_RETURN_DAMAGED")

	assert.Equal(t, entity.MovementRentalReturnMixed,
		entity.MovementTypeForReturn(dec(3), dec(1)),
		"parcialmente dañado es RENTAL_RETURN_MIXED")
}
