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
// Tests StockLevel — ley de conservación y aplicación de deltas.
//
// El agregado debe cumplir siempre:
//
//	OnHand == Available + Reserved + OnRent + Damaged + InMaintenance
//
// y ningún bucket puede quedar negativo. Apply es todo-o-nada: si el delta
// viola cualquiera de las dos reglas, el agregado queda intacto.
// ──────────────────────────────────────────────────────────────────────────────

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// buildLevel crea un agregado con 10 on_hand = 6 disponible + 2 reservado + 2 en renta.
func buildLevel() *entity.StockLevel {
	s := entity.NewStockLevel("item-1", "loc-1")
	s.OnHand = dec(10)
	s.Available = dec(6)
	s.Reserved = dec(2)
	s.OnRent = dec(2)
	return s
}

func TestNewStockLevel_IniciaEnCeroConservado(t *testing.T) {
	s := entity.NewStockLevel("item-1", "loc-1")

	require.NoError(t, s.CheckConservation(), "un agregado nuevo debe nacer conservado")
	assert.True(t, s.OnHand.IsZero())
	assert.EqualValues(t, 1, s.Version, "la versión inicial debe ser 1")
}

func TestApply_RecepcionSumaOnHandYDisponible(t *testing.T) {
	s := buildLevel()

	d, err := entity.DeltaFor(entity.BucketAvailable, dec(5))
	require.NoError(t, err)
	require.NoError(t, s.Apply(d))

	assert.True(t, s.OnHand.Equal(dec(15)), "on_hand debe subir a 15")
	assert.True(t, s.Available.Equal(dec(11)), "available debe subir a 11")
	assert.NoError(t, s.CheckConservation())
}

func TestApply_CheckoutMueveDisponibleARenta(t *testing.T) {
	s := buildLevel()

	// Un checkout no toca on_hand: solo reubica entre buckets.
	err := s.Apply(entity.BucketDelta{Available: dec(-3), OnRent: dec(3)})
	require.NoError(t, err)

	assert.True(t, s.OnHand.Equal(dec(10)), "on_hand no cambia en un checkout")
	assert.True(t, s.Available.Equal(dec(3)))
	assert.True(t, s.OnRent.Equal(dec(5)))
	assert.NoError(t, s.CheckConservation())
}

func TestApply_BucketNegativo_FallaYNoMuta(t *testing.T) {
	s := buildLevel()

	err := s.Apply(entity.BucketDelta{Available: dec(-7), OnRent: dec(7)})
	require.ErrorIs(t, err, domain.ErrInsufficientStock,
		"sacar 7 de un disponible de 6 debe fallar por stock insuficiente")

	// El agregado debe quedar exactamente como estaba.
	assert.True(t, s.Available.Equal(dec(6)), "available no debe haber cambiado")
	assert.True(t, s.OnRent.Equal(dec(2)), "on_rent no debe haber cambiado")
	assert.True(t, s.OnHand.Equal(dec(10)))
}

func TestApply_DeltaIncoherente_RompeConservacion(t *testing.T) {
	s := buildLevel()

	// on_hand sube 5 pero ningún bucket lo acompaña: conservación rota.
	err := s.Apply(entity.BucketDelta{OnHand: dec(5)})
	require.ErrorIs(t, err, domain.ErrInvariantViolation)

	assert.True(t, s.OnHand.Equal(dec(10)), "el agregado debe quedar intacto tras el fallo")
	assert.NoError(t, s.CheckConservation())
}

func TestApply_DeltaNegativoEnUnSoloBucket(t *testing.T) {
	s := buildLevel()

	// Ajuste negativo: baja available y on_hand juntos.
	d, err := entity.DeltaFor(entity.BucketAvailable, dec(-4))
	require.NoError(t, err)
	require.NoError(t, s.Apply(d))

	assert.True(t, s.OnHand.Equal(dec(6)))
	assert.True(t, s.Available.Equal(dec(2)))
	assert.NoError(t, s.CheckConservation())
}

func TestDeltaFor_BucketDesconocido(t *testing.T) {
	_, err := entity.DeltaFor(entity.Bucket("inexistente"), dec(1))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCheckConservation_DetectaCorrupcion(t *testing.T) {
	s := buildLevel()
	s.OnHand = dec(99) // corrupción directa, nunca debería pasar por Apply

	assert.ErrorIs(t, s.CheckConservation(), domain.ErrInvariantViolation)
}

// ── Alertas de reorden ────────────────────────────────────────────────────────

func TestIsLowStock_SoloConPuntoConfigurado(t *testing.T) {
	s := buildLevel()

	assert.False(t, s.IsLowStock(), "sin punto de reorden no hay alerta")

	s.ReorderPoint = dec(6)
	assert.True(t, s.IsLowStock(), "available=6 <= reorder_point=6 dispara la alerta")

	s.ReorderPoint = dec(3)
	assert.False(t, s.IsLowStock(), "available=6 > reorder_point=3 no dispara")
}

func TestIsOutOfStock(t *testing.T) {
	s := buildLevel()
	assert.False(t, s.IsOutOfStock())

	require.NoError(t, s.Apply(entity.BucketDelta{Available: dec(-6), OnRent: dec(6)}))
	assert.True(t, s.IsOutOfStock(), "con available=0 el item está agotado aunque haya on_hand")
	assert.True(t, s.OnHand.Equal(dec(10)))
}
