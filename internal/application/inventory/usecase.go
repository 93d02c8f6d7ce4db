package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tluanga-dev/rental-manager-sub003/internal/domain"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/entity"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/repository"
	"github.com/tluanga-dev/rental-manager-sub003/pkg/logger"
)

// maxConflictRetries reintentos ante conflicto de versión antes de rendirse.
const maxConflictRetries = 3

// ttlTransactionMarker vigencia del marcador de idempotencia por transaction_id.
const ttlTransactionMarker = 24 * time.Hour

// StockLedgerUseCase orquesta las operaciones del motor de inventario: recepción,
// checkout, retorno, venta, traslado, ajuste, reserva y ciclo de mantenimiento.
// Cada operación valida su comando, corre completa dentro de una transacción y ante
// conflicto de versión reintenta la transacción entera un número acotado de veces.
type StockLedgerUseCase struct {
	tx    TxRunner
	cache StockCache
	log   *logger.Logger
}

// NewStockLedgerUseCase construye el caso de uso. cache puede ser nil (solo BD).
func NewStockLedgerUseCase(tx TxRunner, cache StockCache, log *logger.Logger) *StockLedgerUseCase {
	return &StockLedgerUseCase{tx: tx, cache: cache, log: log}
}

// ReceiveResult snapshot posterior a una recepción.
type ReceiveResult struct {
	Level    *entity.StockLevel
	Units    []*entity.InventoryUnit
	Movement *entity.StockMovement
}

// CheckoutResult snapshot posterior a un checkout de renta.
type CheckoutResult struct {
	Level    *entity.StockLevel
	Units    []*entity.InventoryUnit
	Movement *entity.StockMovement
}

// ReturnResult snapshot posterior a un retorno de renta.
type ReturnResult struct {
	Level    *entity.StockLevel
	Movement *entity.StockMovement
}

// TransferResult snapshot posterior a un traslado: ambos agregados y el par de
// movimientos correlacionados.
type TransferResult struct {
	TransferID  string
	From        *entity.StockLevel
	To          *entity.StockLevel
	OutMovement *entity.StockMovement
	InMovement  *entity.StockMovement
}

// AdjustResult snapshot posterior a un ajuste.
type AdjustResult struct {
	Level    *entity.StockLevel
	Movement *entity.StockMovement
}

// Receive registra la entrada de stock: crea las unidades (si el item es serializado),
// suma on_hand y available, y asienta un movimiento PURCHASE con el on_hand pre/post.
// El agregado se inicializa en cero si el par (item, ubicación) aún no existe.
func (uc *StockLedgerUseCase) Receive(ctx context.Context, cmd ReceiveCommand) (*ReceiveResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	var res *ReceiveResult
	err := uc.runWithRetry(ctx, func(
		levels repository.StockLevelRepository,
		units repository.InventoryUnitRepository,
		movements repository.StockMovementRepository,
	) error {
		level, err := levels.GetOrInit(ctx, cmd.ItemID, cmd.LocationID)
		if err != nil {
			return err
		}
		before := level.OnHand
		expected := level.Version
		if err := level.Apply(entity.BucketDelta{OnHand: cmd.Quantity, Available: cmd.Quantity}); err != nil {
			return err
		}

		var created []*entity.InventoryUnit
		if cmd.Serialized {
			n := int(cmd.Quantity.IntPart())
			now := time.Now()
			unitCost := cmd.UnitCost
			for i := 0; i < n; i++ {
				u := entity.NewInventoryUnit(newUnitCode(cmd.ItemID), cmd.ItemID, cmd.LocationID, unitCost, now)
				u.BatchCode = cmd.BatchCode
				if i < len(cmd.Serials) {
					u.SerialNumber = cmd.Serials[i]
				}
				created = append(created, u)
			}
			if err := units.CreateBatch(ctx, created); err != nil {
				return err
			}
		}

		if err := levels.UpdateWithVersion(ctx, level, expected); err != nil {
			return err
		}

		unitCost := cmd.UnitCost
		totalCost := cmd.Quantity.Mul(cmd.UnitCost)
		mov := &entity.StockMovement{
			Type:           entity.MovementPurchase,
			ItemID:         cmd.ItemID,
			LocationID:     cmd.LocationID,
			StockLevelID:   level.ID,
			Quantity:       cmd.Quantity,
			QuantityChange: cmd.Quantity,
			QuantityBefore: before,
			QuantityAfter:  level.OnHand,
			UnitCost:       &unitCost,
			TotalCost:      &totalCost,
			SupplierID:     cmd.SupplierID,
			UnitIDs:        unitIDsOf(created),
			Notes:          cmd.Notes,
			CreatedBy:      cmd.ActorID,
		}
		if err := createMovement(ctx, movements, mov); err != nil {
			return err
		}
		res = &ReceiveResult{Level: level, Units: created, Movement: mov}
		return nil
	})
	if err != nil {
		return nil, uc.logFailure(err, "receive", cmd.ItemID, cmd.LocationID)
	}
	uc.invalidate(ctx, cmd.ItemID, cmd.LocationID)
	uc.log.Info().
		Str("item_id", cmd.ItemID).Str("location_id", cmd.LocationID).
		Str("quantity", cmd.Quantity.String()).
		Msg("recepción de stock registrada")
	return res, nil
}

// Checkout saca unidades en renta: valida disponible, marca las unidades más antiguas
// como RENTED, mueve available -> on_rent (on_hand intacto) y asienta RENTAL_OUT.
// Si available < cantidad falla con ErrInsufficientStock sin mutar nada.
func (uc *StockLedgerUseCase) Checkout(ctx context.Context, cmd CheckoutCommand) (*CheckoutResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if err := uc.checkDuplicate(ctx, cmd.TransactionID); err != nil {
		return nil, err
	}
	var res *CheckoutResult
	err := uc.runWithRetry(ctx, func(
		levels repository.StockLevelRepository,
		units repository.InventoryUnitRepository,
		movements repository.StockMovementRepository,
	) error {
		if err := ledgerDuplicate(ctx, movements, cmd.TransactionID, entity.MovementRentalOut); err != nil {
			return err
		}
		level, err := levels.GetOrInit(ctx, cmd.ItemID, cmd.LocationID)
		if err != nil {
			return err
		}
		if level.Available.LessThan(cmd.Quantity) {
			return fmt.Errorf("checkout de %s con %s disponible (item=%s ubicación=%s): %w",
				cmd.Quantity, level.Available, cmd.ItemID, cmd.LocationID, domain.ErrInsufficientStock)
		}
		expected := level.Version

		selected, err := selectRentableUnits(ctx, units, cmd.ItemID, cmd.LocationID, cmd.Quantity)
		if err != nil {
			return err
		}
		for _, u := range selected {
			if err := u.MarkRented(cmd.CustomerID); err != nil {
				return err
			}
			if err := units.Update(ctx, u); err != nil {
				return err
			}
		}

		if err := level.Apply(entity.BucketDelta{Available: cmd.Quantity.Neg(), OnRent: cmd.Quantity}); err != nil {
			return err
		}
		if err := reconcileUnits(ctx, units, level); err != nil {
			return err
		}
		if err := levels.UpdateWithVersion(ctx, level, expected); err != nil {
			return err
		}

		mov := &entity.StockMovement{
			Type:           entity.MovementRentalOut,
			ItemID:         cmd.ItemID,
			LocationID:     cmd.LocationID,
			StockLevelID:   level.ID,
			Quantity:       cmd.Quantity,
			QuantityBefore: level.OnHand,
			QuantityAfter:  level.OnHand,
			TransactionID:  cmd.TransactionID,
			CustomerID:     cmd.CustomerID,
			UnitIDs:        unitIDsOf(selected),
			Notes:          cmd.Notes,
			CreatedBy:      cmd.ActorID,
		}
		if err := createMovement(ctx, movements, mov); err != nil {
			return err
		}
		res = &CheckoutResult{Level: level, Units: selected, Movement: mov}
		return nil
	})
	if err != nil {
		return nil, uc.logFailure(err, "checkout", cmd.ItemID, cmd.LocationID)
	}
	uc.invalidate(ctx, cmd.ItemID, cmd.LocationID)
	uc.log.Info().
		Str("item_id", cmd.ItemID).Str("location_id", cmd.LocationID).
		Str("customer_id", cmd.CustomerID).Str("transaction_id", cmd.TransactionID).
		Str("quantity", cmd.Quantity.String()).
		Msg("checkout de renta registrado")
	return res, nil
}

// Return procesa el retorno de una renta: valida que las unidades existan y estén
// RENTED en ese par item/ubicación (si no, ErrNotFound sin mutación parcial), separa
// sanas de dañadas y asienta RENTAL_RETURN / RENTAL_RETURN_DAMAGED / RENTAL_RETURN_MIXED.
func (uc *StockLedgerUseCase) Return(ctx context.Context, cmd ReturnCommand) (*ReturnResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if err := uc.checkDuplicate(ctx, cmd.TransactionID); err != nil {
		return nil, err
	}
	var res *ReturnResult
	err := uc.runWithRetry(ctx, func(
		levels repository.StockLevelRepository,
		units repository.InventoryUnitRepository,
		movements repository.StockMovementRepository,
	) error {
		if err := ledgerDuplicate(ctx, movements, cmd.TransactionID,
			entity.MovementRentalReturn, entity.MovementRentalReturnDamaged, entity.MovementRentalReturnMixed); err != nil {
			return err
		}
		level, err := levels.Get(ctx, cmd.ItemID, cmd.LocationID)
		if err != nil {
			return err
		}
		if level == nil {
			return fmt.Errorf("sin stock para item=%s ubicación=%s: %w",
				cmd.ItemID, cmd.LocationID, domain.ErrNotFound)
		}
		expected := level.Version

		// Validar todas las unidades antes de mutar cualquiera.
		var returned []*entity.InventoryUnit
		if len(cmd.UnitIDs) > 0 {
			returned, err = units.GetByIDs(ctx, cmd.UnitIDs)
			if err != nil {
				return err
			}
			if len(returned) != len(cmd.UnitIDs) {
				return fmt.Errorf("retorno con unidades desconocidas (%d de %d encontradas): %w",
					len(returned), len(cmd.UnitIDs), domain.ErrNotFound)
			}
			byID := make(map[string]*entity.InventoryUnit, len(returned))
			for _, u := range returned {
				if u.Status != entity.UnitRented || u.ItemID != cmd.ItemID || u.LocationID != cmd.LocationID {
					return fmt.Errorf("unidad %s no está en renta para item=%s ubicación=%s: %w",
						u.UnitCode, cmd.ItemID, cmd.LocationID, domain.ErrNotFound)
				}
				byID[u.ID] = u
			}
			// Preservar el orden del caller: los primeros DamagedQuantity ids son los dañados.
			returned = returned[:0]
			for _, id := range cmd.UnitIDs {
				returned = append(returned, byID[id])
			}
			damagedN := int(cmd.DamagedQuantity.IntPart())
			for i, u := range returned {
				if err := u.MarkReturned(i < damagedN); err != nil {
					return err
				}
				if err := units.Update(ctx, u); err != nil {
					return err
				}
			}
		}

		good := cmd.Quantity.Sub(cmd.DamagedQuantity)
		if err := level.Apply(entity.BucketDelta{
			Available: good,
			Damaged:   cmd.DamagedQuantity,
			OnRent:    cmd.Quantity.Neg(),
		}); err != nil {
			return err
		}
		if err := reconcileUnits(ctx, units, level); err != nil {
			return err
		}
		if err := levels.UpdateWithVersion(ctx, level, expected); err != nil {
			return err
		}

		mov := &entity.StockMovement{
			Type:           entity.MovementTypeForReturn(cmd.Quantity, cmd.DamagedQuantity),
			ItemID:         cmd.ItemID,
			LocationID:     cmd.LocationID,
			StockLevelID:   level.ID,
			Quantity:       cmd.Quantity,
			QuantityBefore: level.OnHand,
			QuantityAfter:  level.OnHand,
			TransactionID:  cmd.TransactionID,
			UnitIDs:        cmd.UnitIDs,
			Notes:          cmd.Notes,
			CreatedBy:      cmd.ActorID,
		}
		if err := createMovement(ctx, movements, mov); err != nil {
			return err
		}
		res = &ReturnResult{Level: level, Movement: mov}
		return nil
	})
	if err != nil {
		return nil, uc.logFailure(err, "return", cmd.ItemID, cmd.LocationID)
	}
	uc.invalidate(ctx, cmd.ItemID, cmd.LocationID)
	uc.log.Info().
		Str("item_id", cmd.ItemID).Str("location_id", cmd.LocationID).
		Str("transaction_id", cmd.TransactionID).
		Str("quantity", cmd.Quantity.String()).Str("damaged", cmd.DamagedQuantity.String()).
		Msg("retorno de renta registrado")
	return res, nil
}

// Sale registra una venta: baja directa de available y on_hand, movimiento SALE.
// Las unidades vendidas (si el item es serializado) pasan a RETIRED.
func (uc *StockLedgerUseCase) Sale(ctx context.Context, cmd SaleCommand) (*AdjustResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if err := uc.checkDuplicate(ctx, cmd.TransactionID); err != nil {
		return nil, err
	}
	var res *AdjustResult
	err := uc.runWithRetry(ctx, func(
		levels repository.StockLevelRepository,
		units repository.InventoryUnitRepository,
		movements repository.StockMovementRepository,
	) error {
		if err := ledgerDuplicate(ctx, movements, cmd.TransactionID, entity.MovementSale); err != nil {
			return err
		}
		level, err := levels.GetOrInit(ctx, cmd.ItemID, cmd.LocationID)
		if err != nil {
			return err
		}
		if level.Available.LessThan(cmd.Quantity) {
			return fmt.Errorf("venta de %s con %s disponible (item=%s ubicación=%s): %w",
				cmd.Quantity, level.Available, cmd.ItemID, cmd.LocationID, domain.ErrInsufficientStock)
		}
		before := level.OnHand
		expected := level.Version

		sold, err := selectAvailableUnits(ctx, units, cmd.ItemID, cmd.LocationID, cmd.Quantity)
		if err != nil {
			return err
		}
		for _, u := range sold {
			if err := u.TransitionTo(entity.UnitRetired); err != nil {
				return err
			}
			if err := units.Update(ctx, u); err != nil {
				return err
			}
		}

		if err := level.Apply(entity.BucketDelta{OnHand: cmd.Quantity.Neg(), Available: cmd.Quantity.Neg()}); err != nil {
			return err
		}
		if err := levels.UpdateWithVersion(ctx, level, expected); err != nil {
			return err
		}

		mov := &entity.StockMovement{
			Type:           entity.MovementSale,
			ItemID:         cmd.ItemID,
			LocationID:     cmd.LocationID,
			StockLevelID:   level.ID,
			Quantity:       cmd.Quantity,
			QuantityChange: cmd.Quantity.Neg(),
			QuantityBefore: before,
			QuantityAfter:  level.OnHand,
			TransactionID:  cmd.TransactionID,
			CustomerID:     cmd.CustomerID,
			UnitIDs:        unitIDsOf(sold),
			Notes:          cmd.Notes,
			CreatedBy:      cmd.ActorID,
		}
		if err := createMovement(ctx, movements, mov); err != nil {
			return err
		}
		res = &AdjustResult{Level: level, Movement: mov}
		return nil
	})
	if err != nil {
		return nil, uc.logFailure(err, "sale", cmd.ItemID, cmd.LocationID)
	}
	uc.invalidate(ctx, cmd.ItemID, cmd.LocationID)
	uc.log.Info().
		Str("item_id", cmd.ItemID).Str("location_id", cmd.LocationID).
		Str("transaction_id", cmd.TransactionID).Str("quantity", cmd.Quantity.String()).
		Msg("venta registrada")
	return res, nil
}

// Transfer traslada cantidad entre ubicaciones: resta available/on_hand en origen, suma
// en destino (creándolo si no existe) y asienta el par TRANSFER_OUT/TRANSFER_IN con el
// mismo transfer_id. Los dos agregados se adquieren y escriben en orden global fijo
// (item, ubicación) para que traslados opuestos concurrentes no se bloqueen mutuamente.
func (uc *StockLedgerUseCase) Transfer(ctx context.Context, cmd TransferCommand) (*TransferResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if err := uc.checkDuplicate(ctx, cmd.TransactionID); err != nil {
		return nil, err
	}
	transferID := uuid.New().String()
	var res *TransferResult
	err := uc.runWithRetry(ctx, func(
		levels repository.StockLevelRepository,
		units repository.InventoryUnitRepository,
		movements repository.StockMovementRepository,
	) error {
		if err := ledgerDuplicate(ctx, movements, cmd.TransactionID, entity.MovementTransferOut); err != nil {
			return err
		}
		// Adquisición en orden global por clave (item, ubicación).
		locs := []string{cmd.FromLocationID, cmd.ToLocationID}
		sort.Strings(locs)
		byLoc := make(map[string]*entity.StockLevel, 2)
		versions := make(map[string]int64, 2)
		for _, loc := range locs {
			lv, err := levels.GetOrInit(ctx, cmd.ItemID, loc)
			if err != nil {
				return err
			}
			byLoc[loc] = lv
			versions[loc] = lv.Version
		}
		src, dst := byLoc[cmd.FromLocationID], byLoc[cmd.ToLocationID]

		if src.Available.LessThan(cmd.Quantity) {
			return fmt.Errorf("stock insuficiente en origen: traslado de %s con %s disponible (item=%s origen=%s): %w",
				cmd.Quantity, src.Available, cmd.ItemID, cmd.FromLocationID, domain.ErrInsufficientStock)
		}
		srcBefore, dstBefore := src.OnHand, dst.OnHand

		moved, err := selectAvailableUnits(ctx, units, cmd.ItemID, cmd.FromLocationID, cmd.Quantity)
		if err != nil {
			return err
		}
		for _, u := range moved {
			// AVAILABLE -> IN_TRANSIT -> AVAILABLE en destino, dentro de la misma tx.
			if err := u.TransitionTo(entity.UnitInTransit); err != nil {
				return err
			}
			u.LocationID = cmd.ToLocationID
			if err := u.TransitionTo(entity.UnitAvailable); err != nil {
				return err
			}
			if err := units.Update(ctx, u); err != nil {
				return err
			}
		}

		if err := src.Apply(entity.BucketDelta{OnHand: cmd.Quantity.Neg(), Available: cmd.Quantity.Neg()}); err != nil {
			return err
		}
		if err := dst.Apply(entity.BucketDelta{OnHand: cmd.Quantity, Available: cmd.Quantity}); err != nil {
			return err
		}
		for _, loc := range locs {
			if err := levels.UpdateWithVersion(ctx, byLoc[loc], versions[loc]); err != nil {
				return err
			}
		}

		outMov := &entity.StockMovement{
			Type:           entity.MovementTransferOut,
			ItemID:         cmd.ItemID,
			LocationID:     cmd.FromLocationID,
			StockLevelID:   src.ID,
			Quantity:       cmd.Quantity,
			QuantityChange: cmd.Quantity.Neg(),
			QuantityBefore: srcBefore,
			QuantityAfter:  src.OnHand,
			TransactionID:  cmd.TransactionID,
			TransferID:     transferID,
			UnitIDs:        unitIDsOf(moved),
			Reason:         cmd.Reason,
			Notes:          cmd.Notes,
			CreatedBy:      cmd.ActorID,
		}
		inMov := &entity.StockMovement{
			Type:           entity.MovementTransferIn,
			ItemID:         cmd.ItemID,
			LocationID:     cmd.ToLocationID,
			StockLevelID:   dst.ID,
			Quantity:       cmd.Quantity,
			QuantityChange: cmd.Quantity,
			QuantityBefore: dstBefore,
			QuantityAfter:  dst.OnHand,
			TransactionID:  cmd.TransactionID,
			TransferID:     transferID,
			UnitIDs:        unitIDsOf(moved),
			Reason:         cmd.Reason,
			Notes:          cmd.Notes,
			CreatedBy:      cmd.ActorID,
		}
		if err := createMovement(ctx, movements, outMov); err != nil {
			return err
		}
		if err := createMovement(ctx, movements, inMov); err != nil {
			return err
		}
		res = &TransferResult{TransferID: transferID, From: src, To: dst, OutMovement: outMov, InMovement: inMov}
		return nil
	})
	if err != nil {
		return nil, uc.logFailure(err, "transfer", cmd.ItemID, cmd.FromLocationID)
	}
	uc.invalidate(ctx, cmd.ItemID, cmd.FromLocationID)
	uc.invalidate(ctx, cmd.ItemID, cmd.ToLocationID)
	uc.log.Info().
		Str("item_id", cmd.ItemID).
		Str("from", cmd.FromLocationID).Str("to", cmd.ToLocationID).
		Str("transfer_id", transferID).Str("quantity", cmd.Quantity.String()).
		Msg("traslado registrado")
	return res, nil
}

// Adjust aplica un ajuste manual firmado a on_hand y al bucket elegido (available por
// convención). La razón es obligatoria y se valida antes de cualquier escritura. Con
// RequiresApproval el movimiento queda pendiente hasta ApproveAdjustment; sin él queda
// aprobado por su propio creador.
func (uc *StockLedgerUseCase) Adjust(ctx context.Context, cmd AdjustCommand) (*AdjustResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	bucket := cmd.Bucket
	if bucket == "" {
		bucket = entity.BucketAvailable
	}
	var res *AdjustResult
	err := uc.runWithRetry(ctx, func(
		levels repository.StockLevelRepository,
		units repository.InventoryUnitRepository,
		movements repository.StockMovementRepository,
	) error {
		level, err := levels.GetOrInit(ctx, cmd.ItemID, cmd.LocationID)
		if err != nil {
			return err
		}
		before := level.OnHand
		expected := level.Version

		delta, err := entity.DeltaFor(bucket, cmd.Quantity)
		if err != nil {
			return err
		}
		if err := level.Apply(delta); err != nil {
			return err
		}
		if err := levels.UpdateWithVersion(ctx, level, expected); err != nil {
			return err
		}

		movType := entity.MovementAdjustmentPositive
		if cmd.Quantity.IsNegative() {
			movType = entity.MovementAdjustmentNegative
		}
		mov := &entity.StockMovement{
			Type:           movType,
			ItemID:         cmd.ItemID,
			LocationID:     cmd.LocationID,
			StockLevelID:   level.ID,
			Quantity:       cmd.Quantity.Abs(),
			QuantityChange: cmd.Quantity,
			QuantityBefore: before,
			QuantityAfter:  level.OnHand,
			Reason:         cmd.Reason,
			Notes:          cmd.Notes,
			CreatedBy:      cmd.ActorID,
		}
		if !cmd.RequiresApproval {
			now := time.Now()
			mov.ApprovedBy = cmd.ActorID
			mov.ApprovedAt = &now
		}
		if err := createMovement(ctx, movements, mov); err != nil {
			return err
		}
		res = &AdjustResult{Level: level, Movement: mov}
		return nil
	})
	if err != nil {
		return nil, uc.logFailure(err, "adjust", cmd.ItemID, cmd.LocationID)
	}
	uc.invalidate(ctx, cmd.ItemID, cmd.LocationID)
	uc.log.Info().
		Str("item_id", cmd.ItemID).Str("location_id", cmd.LocationID).
		Str("quantity", cmd.Quantity.String()).Str("reason", cmd.Reason).
		Bool("pending_approval", cmd.RequiresApproval).
		Msg("ajuste registrado")
	return res, nil
}

// ApproveAdjustment adjunta la aprobación a un ajuste pendiente. Es un registro de
// gobernanza: las cantidades ya se aplicaron al crear el movimiento y no se tocan.
func (uc *StockLedgerUseCase) ApproveAdjustment(ctx context.Context, movementID, approver, notes string) error {
	if movementID == "" || approver == "" {
		return fmt.Errorf("aprobación requiere movimiento y aprobador: %w", domain.ErrValidation)
	}
	err := uc.tx.Run(ctx, func(
		_ repository.StockLevelRepository,
		_ repository.InventoryUnitRepository,
		movements repository.StockMovementRepository,
	) error {
		mov, err := movements.GetByID(ctx, movementID)
		if err != nil {
			return err
		}
		if mov == nil {
			return fmt.Errorf("movimiento %s: %w", movementID, domain.ErrNotFound)
		}
		if !mov.IsAdjustment() {
			return fmt.Errorf("movimiento %s no es un ajuste: %w", movementID, domain.ErrValidation)
		}
		if !mov.PendingApproval() {
			return fmt.Errorf("ajuste %s ya aprobado por %s: %w", movementID, mov.ApprovedBy, domain.ErrConflict)
		}
		return movements.Approve(ctx, movementID, approver, notes, time.Now())
	})
	if err != nil {
		return err
	}
	uc.log.Info().Str("movement_id", movementID).Str("approved_by", approver).Msg("ajuste aprobado")
	return nil
}

// Reserve aparta stock disponible (available -> reserved) para un cliente antes del
// checkout. No escribe en el ledger: on_hand no cambia y la taxonomía de movimientos
// no contempla reservas.
func (uc *StockLedgerUseCase) Reserve(ctx context.Context, cmd ReserveCommand) (*entity.StockLevel, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return uc.shiftReservation(ctx, cmd, true)
}

// ReleaseReservation devuelve una reserva al disponible (reserved -> available).
func (uc *StockLedgerUseCase) ReleaseReservation(ctx context.Context, cmd ReserveCommand) (*entity.StockLevel, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return uc.shiftReservation(ctx, cmd, false)
}

func (uc *StockLedgerUseCase) shiftReservation(ctx context.Context, cmd ReserveCommand, reserve bool) (*entity.StockLevel, error) {
	var out *entity.StockLevel
	err := uc.runWithRetry(ctx, func(
		levels repository.StockLevelRepository,
		units repository.InventoryUnitRepository,
		_ repository.StockMovementRepository,
	) error {
		level, err := levels.GetOrInit(ctx, cmd.ItemID, cmd.LocationID)
		if err != nil {
			return err
		}
		expected := level.Version
		delta := entity.BucketDelta{Available: cmd.Quantity.Neg(), Reserved: cmd.Quantity}
		from, to := entity.UnitAvailable, entity.UnitReserved
		if !reserve {
			delta = entity.BucketDelta{Available: cmd.Quantity, Reserved: cmd.Quantity.Neg()}
			from, to = entity.UnitReserved, entity.UnitAvailable
		}

		n := int(cmd.Quantity.IntPart())
		held, err := units.ListByStatus(ctx, cmd.ItemID, cmd.LocationID, from, n, 0)
		if err != nil {
			return err
		}
		if len(held) > 0 && len(held) < n {
			return fmt.Errorf("solo %d unidades %s de %d pedidas (item=%s ubicación=%s): %w",
				len(held), from, n, cmd.ItemID, cmd.LocationID, domain.ErrInsufficientStock)
		}
		for _, u := range held {
			if err := u.TransitionTo(to); err != nil {
				return err
			}
			if err := units.Update(ctx, u); err != nil {
				return err
			}
		}

		if err := level.Apply(delta); err != nil {
			return err
		}
		if err := levels.UpdateWithVersion(ctx, level, expected); err != nil {
			return err
		}
		out = level
		return nil
	})
	if err != nil {
		return nil, uc.logFailure(err, "reserve", cmd.ItemID, cmd.LocationID)
	}
	uc.invalidate(ctx, cmd.ItemID, cmd.LocationID)
	return out, nil
}

// WriteOff da de baja definitiva una unidad (RETIRED o LOST): la saca de su bucket
// actual y de on_hand, y asienta WRITE_OFF (o DAMAGE_LOSS si venía dañada).
func (uc *StockLedgerUseCase) WriteOff(ctx context.Context, cmd WriteOffCommand) (*AdjustResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	var res *AdjustResult
	err := uc.runWithRetry(ctx, func(
		levels repository.StockLevelRepository,
		units repository.InventoryUnitRepository,
		movements repository.StockMovementRepository,
	) error {
		unit, err := units.GetByID(ctx, cmd.UnitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return fmt.Errorf("unidad %s: %w", cmd.UnitID, domain.ErrNotFound)
		}
		bucket, err := bucketForStatus(unit.Status)
		if err != nil {
			return err
		}
		movType := entity.MovementWriteOff
		if unit.Status == entity.UnitDamaged {
			movType = entity.MovementDamageLoss
		}
		terminal := entity.UnitRetired
		if cmd.Lost {
			terminal = entity.UnitLost
		}
		if err := unit.TransitionTo(terminal); err != nil {
			return err
		}
		if err := units.Update(ctx, unit); err != nil {
			return err
		}

		level, err := levels.GetOrInit(ctx, unit.ItemID, unit.LocationID)
		if err != nil {
			return err
		}
		before := level.OnHand
		expected := level.Version
		one := decimal.NewFromInt(1)
		delta, err := entity.DeltaFor(bucket, one.Neg())
		if err != nil {
			return err
		}
		if err := level.Apply(delta); err != nil {
			return err
		}
		if err := levels.UpdateWithVersion(ctx, level, expected); err != nil {
			return err
		}

		mov := &entity.StockMovement{
			Type:           movType,
			ItemID:         unit.ItemID,
			LocationID:     unit.LocationID,
			StockLevelID:   level.ID,
			Quantity:       one,
			QuantityChange: one.Neg(),
			QuantityBefore: before,
			QuantityAfter:  level.OnHand,
			UnitIDs:        []string{unit.ID},
			Reason:         cmd.Reason,
			Notes:          cmd.Notes,
			CreatedBy:      cmd.ActorID,
		}
		if err := createMovement(ctx, movements, mov); err != nil {
			return err
		}
		res = &AdjustResult{Level: level, Movement: mov}
		return nil
	})
	if err != nil {
		return nil, uc.logFailure(err, "write_off", cmd.UnitID, "")
	}
	if res != nil {
		uc.invalidate(ctx, res.Level.ItemID, res.Level.LocationID)
	}
	uc.log.Info().Str("unit_id", cmd.UnitID).Bool("lost", cmd.Lost).Str("reason", cmd.Reason).Msg("unidad dada de baja")
	return res, nil
}

// SendToMaintenance mueve una unidad dañada a mantenimiento (damaged -> in_maintenance).
// No escribe en el ledger: on_hand no cambia y la entrada a mantenimiento no tiene tipo
// propio en la taxonomía.
func (uc *StockLedgerUseCase) SendToMaintenance(ctx context.Context, unitID, actorID string) (*entity.InventoryUnit, error) {
	if unitID == "" {
		return nil, fmt.Errorf("mantenimiento requiere unidad: %w", domain.ErrValidation)
	}
	var out *entity.InventoryUnit
	err := uc.runWithRetry(ctx, func(
		levels repository.StockLevelRepository,
		units repository.InventoryUnitRepository,
		_ repository.StockMovementRepository,
	) error {
		unit, err := units.GetByID(ctx, unitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return fmt.Errorf("unidad %s: %w", unitID, domain.ErrNotFound)
		}
		fromBucket, err := bucketForStatus(unit.Status)
		if err != nil {
			return err
		}
		if err := unit.TransitionTo(entity.UnitInMaintenance); err != nil {
			return err
		}
		now := time.Now()
		unit.LastMaintenanceAt = &now
		if err := units.Update(ctx, unit); err != nil {
			return err
		}

		level, err := levels.GetOrInit(ctx, unit.ItemID, unit.LocationID)
		if err != nil {
			return err
		}
		expected := level.Version
		one := decimal.NewFromInt(1)
		delta, err := entity.DeltaFor(fromBucket, one.Neg())
		if err != nil {
			return err
		}
		delta.OnHand = decimal.Zero
		delta.InMaintenance = one
		if err := level.Apply(delta); err != nil {
			return err
		}
		if err := levels.UpdateWithVersion(ctx, level, expected); err != nil {
			return err
		}
		uc.invalidate(ctx, unit.ItemID, unit.LocationID)
		out = unit
		return nil
	})
	if err != nil {
		return nil, uc.logFailure(err, "send_to_maintenance", unitID, "")
	}
	return out, nil
}

// CompleteRepair devuelve una unidad reparada al disponible y asienta REPAIR_COMPLETED
// (on_hand intacto: solo cambia de bucket).
func (uc *StockLedgerUseCase) CompleteRepair(ctx context.Context, unitID, notes, actorID string) (*AdjustResult, error) {
	if unitID == "" {
		return nil, fmt.Errorf("reparación requiere unidad: %w", domain.ErrValidation)
	}
	var res *AdjustResult
	err := uc.runWithRetry(ctx, func(
		levels repository.StockLevelRepository,
		units repository.InventoryUnitRepository,
		movements repository.StockMovementRepository,
	) error {
		unit, err := units.GetByID(ctx, unitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return fmt.Errorf("unidad %s: %w", unitID, domain.ErrNotFound)
		}
		if err := unit.TransitionTo(entity.UnitAvailable); err != nil {
			return err
		}
		unit.Condition = entity.ConditionGood
		if err := units.Update(ctx, unit); err != nil {
			return err
		}

		level, err := levels.GetOrInit(ctx, unit.ItemID, unit.LocationID)
		if err != nil {
			return err
		}
		expected := level.Version
		one := decimal.NewFromInt(1)
		if err := level.Apply(entity.BucketDelta{InMaintenance: one.Neg(), Available: one}); err != nil {
			return err
		}
		if err := levels.UpdateWithVersion(ctx, level, expected); err != nil {
			return err
		}

		mov := &entity.StockMovement{
			Type:           entity.MovementRepairCompleted,
			ItemID:         unit.ItemID,
			LocationID:     unit.LocationID,
			StockLevelID:   level.ID,
			Quantity:       one,
			QuantityBefore: level.OnHand,
			QuantityAfter:  level.OnHand,
			UnitIDs:        []string{unit.ID},
			Notes:          notes,
			CreatedBy:      actorID,
		}
		if err := createMovement(ctx, movements, mov); err != nil {
			return err
		}
		res = &AdjustResult{Level: level, Movement: mov}
		return nil
	})
	if err != nil {
		return nil, uc.logFailure(err, "complete_repair", unitID, "")
	}
	if res != nil {
		uc.invalidate(ctx, res.Level.ItemID, res.Level.LocationID)
	}
	return res, nil
}

// runWithRetry corre la transacción y reintenta completa ante conflicto de versión,
// hasta maxConflictRetries veces. Cada reintento relee el estado desde cero.
func (uc *StockLedgerUseCase) runWithRetry(ctx context.Context, fn func(
	levels repository.StockLevelRepository,
	units repository.InventoryUnitRepository,
	movements repository.StockMovementRepository,
) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = uc.tx.Run(ctx, fn)
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		uc.log.Debug().Int("attempt", attempt+1).Msg("conflicto de versión, reintentando")
	}
	return err
}

// checkDuplicate marca el transaction_id en cache; un marcador ya presente sugiere
// reenvío y se confirma contra el ledger dentro de la transacción.
func (uc *StockLedgerUseCase) checkDuplicate(ctx context.Context, transactionID string) error {
	if uc.cache == nil || transactionID == "" {
		return nil
	}
	fresh, err := uc.cache.MarkTransaction(ctx, transactionID, ttlTransactionMarker)
	if err != nil {
		// El cache es una optimización; el ledger decide los duplicados.
		uc.log.Warn().Err(err).Str("transaction_id", transactionID).Msg("marcador de idempotencia no disponible")
		return nil
	}
	if !fresh {
		uc.log.Debug().Str("transaction_id", transactionID).Msg("transacción ya vista, verificando ledger")
	}
	return nil
}

// invalidate descarta el snapshot cacheado de un agregado tras cualquier mutación.
func (uc *StockLedgerUseCase) invalidate(ctx context.Context, itemID, locationID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.InvalidateLevel(ctx, itemID, locationID); err != nil {
		uc.log.Warn().Err(err).Str("item_id", itemID).Str("location_id", locationID).Msg("invalidación de cache falló")
	}
}

// logFailure deja traza según la severidad: las violaciones de invariantes son defectos
// internos y se loguean fuerte; el resto son resultados esperables del negocio.
func (uc *StockLedgerUseCase) logFailure(err error, op, itemID, locationID string) error {
	if errors.Is(err, domain.ErrInvariantViolation) {
		uc.log.Error().Err(err).
			Str("op", op).Str("item_id", itemID).Str("location_id", locationID).
			Msg("invariante de inventario violada, operación abortada")
	} else {
		uc.log.Debug().Err(err).Str("op", op).Str("item_id", itemID).Msg("operación de inventario rechazada")
	}
	return err
}

// ledgerDuplicate verifica dentro de la transacción si el transaction_id ya tiene un
// movimiento de alguno de los tipos dados: reenvío del caller, rechazado como
// ErrDuplicate. Los retornos pasan sus tres variantes porque un reenvío puede llegar
// con otro reparto de dañadas.
func ledgerDuplicate(ctx context.Context, movements repository.StockMovementRepository, transactionID string, movTypes ...entity.MovementType) error {
	if transactionID == "" {
		return nil
	}
	prior, err := movements.ListByTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	for _, m := range prior {
		for _, t := range movTypes {
			if m.Type == t {
				return fmt.Errorf("transacción %s ya registrada como %s: %w", transactionID, m.Type, domain.ErrDuplicate)
			}
		}
	}
	return nil
}

// selectRentableUnits toma hasta qty unidades disponibles, más antiguas primero.
// Para stock no serializado (sin filas de unidad) devuelve vacío; para stock
// serializado exige que alcancen las unidades rentables.
func selectRentableUnits(ctx context.Context, units repository.InventoryUnitRepository, itemID, locationID string, qty decimal.Decimal) ([]*entity.InventoryUnit, error) {
	n := int(qty.IntPart())
	if n == 0 {
		return nil, nil
	}
	selected, err := units.ListRentable(ctx, itemID, locationID, n)
	if err != nil {
		return nil, err
	}
	if len(selected) > 0 && len(selected) < n {
		return nil, fmt.Errorf("solo %d unidades rentables de %d pedidas (item=%s ubicación=%s): %w",
			len(selected), n, itemID, locationID, domain.ErrInsufficientStock)
	}
	return selected, nil
}

// selectAvailableUnits toma hasta qty unidades AVAILABLE, bloqueadas para renta
// incluidas: el bloqueo de renta no impide vender ni trasladar una unidad.
func selectAvailableUnits(ctx context.Context, units repository.InventoryUnitRepository, itemID, locationID string, qty decimal.Decimal) ([]*entity.InventoryUnit, error) {
	n := int(qty.IntPart())
	if n == 0 {
		return nil, nil
	}
	selected, err := units.ListAvailable(ctx, itemID, locationID, n)
	if err != nil {
		return nil, err
	}
	if len(selected) > 0 && len(selected) < n {
		return nil, fmt.Errorf("solo %d unidades disponibles de %d pedidas (item=%s ubicación=%s): %w",
			len(selected), n, itemID, locationID, domain.ErrInsufficientStock)
	}
	return selected, nil
}

// reconcileUnits verifica transaccionalmente que el conteo de unidades por estado no
// exceda el bucket correspondiente del agregado (N unidades RENTED => on_rent >= N).
// Solo aplica a items serializados; una discrepancia aborta la operación completa.
func reconcileUnits(ctx context.Context, units repository.InventoryUnitRepository, level *entity.StockLevel) error {
	counts, err := units.CountByStatus(ctx, level.ItemID, level.LocationID)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		return nil // no serializado
	}
	checks := []struct {
		status entity.UnitStatus
		bucket decimal.Decimal
	}{
		{entity.UnitRented, level.OnRent},
		{entity.UnitReserved, level.Reserved},
		{entity.UnitDamaged, level.Damaged},
		{entity.UnitInMaintenance, level.InMaintenance},
	}
	for _, c := range checks {
		if n := counts[c.status]; decimal.NewFromInt(n).GreaterThan(c.bucket) {
			return fmt.Errorf("%d unidades %s con bucket en %s (item=%s ubicación=%s): %w",
				n, c.status, c.bucket, level.ItemID, level.LocationID, domain.ErrInvariantViolation)
		}
	}
	return nil
}

// bucketForStatus mapea el estado de una unidad al bucket del agregado que la cuenta.
func bucketForStatus(s entity.UnitStatus) (entity.Bucket, error) {
	switch s {
	case entity.UnitAvailable:
		return entity.BucketAvailable, nil
	case entity.UnitReserved:
		return entity.BucketReserved, nil
	case entity.UnitRented:
		return entity.BucketOnRent, nil
	case entity.UnitDamaged:
		return entity.BucketDamaged, nil
	case entity.UnitInMaintenance:
		return entity.BucketInMaintenance, nil
	default:
		return "", fmt.Errorf("estado %s no aporta a ningún bucket: %w", s, domain.ErrValidation)
	}
}

// createMovement valida la aritmética del ledger y persiste. La validación previa a
// persistir es obligatoria: una violación nunca se corrige en silencio.
func createMovement(ctx context.Context, movements repository.StockMovementRepository, m *entity.StockMovement) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return movements.Create(ctx, m)
}

// newUnitCode genera el código interno de una unidad serializada.
func newUnitCode(itemID string) string {
	suffix := uuid.New().String()[:8]
	if len(itemID) > 8 {
		itemID = itemID[:8]
	}
	return fmt.Sprintf("UNIT-%s-%s", itemID, suffix)
}

// unitIDsOf proyecta los ids de un lote de unidades para el movimiento.
func unitIDsOf(units []*entity.InventoryUnit) []string {
	if len(units) == 0 {
		return nil
	}
	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids
}
