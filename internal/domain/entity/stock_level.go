package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain"
)

// Bucket nombra una partición de cantidad dentro de un StockLevel.
type Bucket string

const (
	BucketAvailable     Bucket = "available"
	BucketReserved      Bucket = "reserved"
	BucketOnRent        Bucket = "on_rent"
	BucketDamaged       Bucket = "damaged"
	BucketInMaintenance Bucket = "in_maintenance"
)

// StockLevel es el agregado de stock por (item, ubicación): la fuente única de verdad
// de "cuánto hay y dónde". Los buckets siempre cumplen la ley de conservación:
//
//	OnHand == Available + Reserved + OnRent + Damaged + InMaintenance
//
// Version es el token de concurrencia optimista: cada escritura exitosa lo incrementa;
// una escritura condicionada a una versión vieja falla con ErrConflict.
type StockLevel struct {
	ID         string
	ItemID     string
	LocationID string

	OnHand        decimal.Decimal
	Available     decimal.Decimal
	Reserved      decimal.Decimal
	OnRent        decimal.Decimal
	Damaged       decimal.Decimal
	InMaintenance decimal.Decimal

	ReorderPoint      decimal.Decimal
	ReorderQuantity   decimal.Decimal
	MaxStockLevel     decimal.Decimal
	AverageDailyUsage decimal.Decimal
	LastStockCheck    *time.Time

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewStockLevel inicializa un agregado en cero para un par (item, ubicación).
// Se crea perezosamente en la primera recepción; nunca se borra físicamente.
func NewStockLevel(itemID, locationID string) *StockLevel {
	now := time.Now()
	return &StockLevel{
		ItemID:     itemID,
		LocationID: locationID,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// BucketDelta describe el cambio que una operación aplica a los buckets del agregado.
// Los campos en cero no tocan su bucket. OnHand debe ser coherente con la suma de los
// demás deltas; Apply lo verifica.
type BucketDelta struct {
	OnHand        decimal.Decimal
	Available     decimal.Decimal
	Reserved      decimal.Decimal
	OnRent        decimal.Decimal
	Damaged       decimal.Decimal
	InMaintenance decimal.Decimal
}

// Apply suma el delta a los buckets. Falla con ErrInsufficientStock si algún bucket
// quedaría negativo y con ErrInvariantViolation si la ley de conservación se rompería;
// en ambos casos el agregado queda intacto.
func (s *StockLevel) Apply(d BucketDelta) error {
	next := *s
	next.OnHand = s.OnHand.Add(d.OnHand)
	next.Available = s.Available.Add(d.Available)
	next.Reserved = s.Reserved.Add(d.Reserved)
	next.OnRent = s.OnRent.Add(d.OnRent)
	next.Damaged = s.Damaged.Add(d.Damaged)
	next.InMaintenance = s.InMaintenance.Add(d.InMaintenance)

	for _, b := range []struct {
		name Bucket
		qty  decimal.Decimal
	}{
		{"on_hand", next.OnHand},
		{BucketAvailable, next.Available},
		{BucketReserved, next.Reserved},
		{BucketOnRent, next.OnRent},
		{BucketDamaged, next.Damaged},
		{BucketInMaintenance, next.InMaintenance},
	} {
		if b.qty.IsNegative() {
			return fmt.Errorf("bucket %s quedaría en %s (item=%s ubicación=%s): %w",
				b.name, b.qty, s.ItemID, s.LocationID, domain.ErrInsufficientStock)
		}
	}
	if err := next.CheckConservation(); err != nil {
		return err
	}

	s.OnHand = next.OnHand
	s.Available = next.Available
	s.Reserved = next.Reserved
	s.OnRent = next.OnRent
	s.Damaged = next.Damaged
	s.InMaintenance = next.InMaintenance
	s.UpdatedAt = time.Now()
	return nil
}

// CheckConservation verifica la ley de conservación del agregado.
// Una violación es un defecto de programación, no un error de usuario.
func (s *StockLevel) CheckConservation() error {
	sum := s.Available.Add(s.Reserved).Add(s.OnRent).Add(s.Damaged).Add(s.InMaintenance)
	if !s.OnHand.Equal(sum) {
		return fmt.Errorf("on_hand=%s != suma de buckets=%s (item=%s ubicación=%s): %w",
			s.OnHand, sum, s.ItemID, s.LocationID, domain.ErrInvariantViolation)
	}
	return nil
}

// IsLowStock indica si el disponible cayó al punto de reorden (solo si hay punto configurado).
func (s *StockLevel) IsLowStock() bool {
	return s.ReorderPoint.IsPositive() && s.Available.LessThanOrEqual(s.ReorderPoint)
}

// IsOutOfStock indica si no queda nada disponible.
func (s *StockLevel) IsOutOfStock() bool {
	return s.Available.IsZero()
}

// DeltaFor construye el BucketDelta que mueve qty hacia un solo bucket junto con on_hand
// (recepciones, ajustes). qty puede ser negativa.
func DeltaFor(bucket Bucket, qty decimal.Decimal) (BucketDelta, error) {
	d := BucketDelta{OnHand: qty}
	switch bucket {
	case BucketAvailable:
		d.Available = qty
	case BucketReserved:
		d.Reserved = qty
	case BucketOnRent:
		d.OnRent = qty
	case BucketDamaged:
		d.Damaged = qty
	case BucketInMaintenance:
		d.InMaintenance = qty
	default:
		return BucketDelta{}, fmt.Errorf("bucket desconocido %q: %w", bucket, domain.ErrValidation)
	}
	return d, nil
}
