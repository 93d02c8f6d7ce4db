package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tluanga-dev/rental-manager-sub003/internal/application/dto"
	"github.com/tluanga-dev/rental-manager-sub003/internal/application/inventory"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain"
	"github.com/tluanga-dev/rental-manager-sub003/internal/domain/entity"
)

// InventoryHandler maneja las peticiones HTTP del motor de inventario (protegido).
type InventoryHandler struct {
	ledger  *inventory.StockLedgerUseCase
	queries *inventory.StockQueryUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.StockLedgerUseCase, queries *inventory.StockQueryUseCase) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, queries: queries}
}

// respondDomainError mapea los errores de dominio a estados HTTP.
func respondDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrInvariantViolation):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INVARIANT_VIOLATION", Message: "inconsistencia interna de inventario"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

// Receive godoc
// @Summary      Registrar recepción de stock
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveRequest  true  "item_id, location_id, quantity, unit_cost, serialized, serials"
// @Success      201   {object}  dto.StockLevelDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/receipts [post]
func (h *InventoryHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.ledger.Receive(c.Context(), inventory.ReceiveCommand{
		ItemID:     in.ItemID,
		LocationID: in.LocationID,
		Quantity:   in.Quantity,
		UnitCost:   in.UnitCost,
		Serialized: in.Serialized,
		Serials:    in.Serials,
		BatchCode:  in.BatchCode,
		SupplierID: in.SupplierID,
		Notes:      in.Notes,
		ActorID:    GetUserID(c),
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"stock_level": dto.FromStockLevel(res.Level),
		"movement":    dto.FromStockMovement(res.Movement),
		"units":       len(res.Units),
	})
}

// Checkout godoc
// @Summary      Checkout de renta
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CheckoutRequest  true  "item_id, location_id, quantity, customer_id, transaction_id"
// @Success      201   {object}  dto.StockLevelDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/checkouts [post]
func (h *InventoryHandler) Checkout(c *fiber.Ctx) error {
	var in dto.CheckoutRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.ledger.Checkout(c.Context(), inventory.CheckoutCommand{
		ItemID:        in.ItemID,
		LocationID:    in.LocationID,
		Quantity:      in.Quantity,
		CustomerID:    in.CustomerID,
		TransactionID: in.TransactionID,
		Notes:         in.Notes,
		ActorID:       GetUserID(c),
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	unitIDs := make([]string, len(res.Units))
	for i, u := range res.Units {
		unitIDs[i] = u.ID
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"stock_level": dto.FromStockLevel(res.Level),
		"movement":    dto.FromStockMovement(res.Movement),
		"unit_ids":    unitIDs,
	})
}

// Return godoc
// @Summary      Retorno de renta
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReturnRequest  true  "item_id, location_id, quantity, damaged_quantity, unit_ids, transaction_id"
// @Success      201   {object}  dto.StockLevelDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/returns [post]
func (h *InventoryHandler) Return(c *fiber.Ctx) error {
	var in dto.ReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.ledger.Return(c.Context(), inventory.ReturnCommand{
		ItemID:          in.ItemID,
		LocationID:      in.LocationID,
		Quantity:        in.Quantity,
		DamagedQuantity: in.DamagedQuantity,
		UnitIDs:         in.UnitIDs,
		TransactionID:   in.TransactionID,
		Notes:           in.Notes,
		ActorID:         GetUserID(c),
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"stock_level": dto.FromStockLevel(res.Level),
		"movement":    dto.FromStockMovement(res.Movement),
	})
}

// Sale godoc
// @Summary      Registrar venta (baja directa de stock)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SaleRequest  true  "item_id, location_id, quantity, transaction_id"
// @Success      201   {object}  dto.StockLevelDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/sales [post]
func (h *InventoryHandler) Sale(c *fiber.Ctx) error {
	var in dto.SaleRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.ledger.Sale(c.Context(), inventory.SaleCommand{
		ItemID:        in.ItemID,
		LocationID:    in.LocationID,
		Quantity:      in.Quantity,
		CustomerID:    in.CustomerID,
		TransactionID: in.TransactionID,
		Notes:         in.Notes,
		ActorID:       GetUserID(c),
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"stock_level": dto.FromStockLevel(res.Level),
		"movement":    dto.FromStockMovement(res.Movement),
	})
}

// Transfer godoc
// @Summary      Traslado de stock entre ubicaciones
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "item_id, from_location_id, to_location_id, quantity, reason"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.ledger.Transfer(c.Context(), inventory.TransferCommand{
		ItemID:         in.ItemID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Quantity:       in.Quantity,
		TransactionID:  in.TransactionID,
		Reason:         in.Reason,
		Notes:          in.Notes,
		ActorID:        GetUserID(c),
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"transfer_id": res.TransferID,
		"from":        dto.FromStockLevel(res.From),
		"to":          dto.FromStockLevel(res.To),
		"movements":   []dto.StockMovementDTO{dto.FromStockMovement(res.OutMovement), dto.FromStockMovement(res.InMovement)},
	})
}

// Adjust godoc
// @Summary      Ajuste manual de stock (razón obligatoria)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustRequest  true  "item_id, location_id, quantity firmada, reason, requires_approval"
// @Success      201   {object}  dto.StockMovementDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.ledger.Adjust(c.Context(), inventory.AdjustCommand{
		ItemID:           in.ItemID,
		LocationID:       in.LocationID,
		Quantity:         in.Quantity,
		Bucket:           entity.Bucket(in.Bucket),
		Reason:           in.Reason,
		Notes:            in.Notes,
		RequiresApproval: in.RequiresApproval,
		ActorID:          GetUserID(c),
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"stock_level": dto.FromStockLevel(res.Level),
		"movement":    dto.FromStockMovement(res.Movement),
	})
}

// ApproveAdjustment godoc
// @Summary      Aprobar un ajuste pendiente
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del movimiento de ajuste"
// @Param        body  body  dto.ApproveAdjustmentRequest  false  "notes"
// @Success      200   {object}  map[string]string
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments/{id}/approve [post]
func (h *InventoryHandler) ApproveAdjustment(c *fiber.Ctx) error {
	movementID := c.Params("id")
	var in dto.ApproveAdjustmentRequest
	_ = c.BodyParser(&in) // body opcional
	if err := h.ledger.ApproveAdjustment(c.Context(), movementID, GetUserID(c), in.Notes); err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "ajuste aprobado"})
}

// Reserve godoc
// @Summary      Reservar stock disponible para un cliente
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReserveRequest  true  "item_id, location_id, quantity, customer_id"
// @Success      201   {object}  dto.StockLevelDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations [post]
func (h *InventoryHandler) Reserve(c *fiber.Ctx) error {
	var in dto.ReserveRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	level, err := h.ledger.Reserve(c.Context(), reserveCommand(in, GetUserID(c)))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromStockLevel(level))
}

// ReleaseReservation godoc
// @Summary      Liberar una reserva de stock
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReserveRequest  true  "item_id, location_id, quantity, customer_id"
// @Success      200   {object}  dto.StockLevelDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations/release [post]
func (h *InventoryHandler) ReleaseReservation(c *fiber.Ctx) error {
	var in dto.ReserveRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	level, err := h.ledger.ReleaseReservation(c.Context(), reserveCommand(in, GetUserID(c)))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(dto.FromStockLevel(level))
}

func reserveCommand(in dto.ReserveRequest, actorID string) inventory.ReserveCommand {
	return inventory.ReserveCommand{
		ItemID:        in.ItemID,
		LocationID:    in.LocationID,
		Quantity:      in.Quantity,
		CustomerID:    in.CustomerID,
		TransactionID: in.TransactionID,
		ActorID:       actorID,
	}
}

// WriteOff godoc
// @Summary      Baja definitiva de una unidad (retiro o pérdida)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.WriteOffRequest  true  "unit_id, lost, reason"
// @Success      201   {object}  dto.StockMovementDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/write-offs [post]
func (h *InventoryHandler) WriteOff(c *fiber.Ctx) error {
	var in dto.WriteOffRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.ledger.WriteOff(c.Context(), inventory.WriteOffCommand{
		UnitID:  in.UnitID,
		Lost:    in.Lost,
		Reason:  in.Reason,
		Notes:   in.Notes,
		ActorID: GetUserID(c),
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"stock_level": dto.FromStockLevel(res.Level),
		"movement":    dto.FromStockMovement(res.Movement),
	})
}

// SendToMaintenance godoc
// @Summary      Enviar una unidad a mantenimiento
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la unidad"
// @Success      200  {object}  dto.InventoryUnitDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/units/{id}/maintenance [post]
func (h *InventoryHandler) SendToMaintenance(c *fiber.Ctx) error {
	unit, err := h.ledger.SendToMaintenance(c.Context(), c.Params("id"), GetUserID(c))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(dto.FromInventoryUnit(unit))
}

// CompleteRepair godoc
// @Summary      Cerrar el mantenimiento de una unidad y devolverla a disponible
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la unidad"
// @Param        body  body  dto.CompleteRepairRequest  false  "notes"
// @Success      200   {object}  dto.StockMovementDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/units/{id}/repair-complete [post]
func (h *InventoryHandler) CompleteRepair(c *fiber.Ctx) error {
	var in dto.CompleteRepairRequest
	_ = c.BodyParser(&in) // body opcional
	res, err := h.ledger.CompleteRepair(c.Context(), c.Params("id"), in.Notes, GetUserID(c))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(fiber.Map{
		"stock_level": dto.FromStockLevel(res.Level),
		"movement":    dto.FromStockMovement(res.Movement),
	})
}

// GetStockLevel godoc
// @Summary      Consultar stock de un item en una ubicación
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id      path  string  true  "Item"
// @Param        location_id  path  string  true  "Ubicación"
// @Success      200  {object}  dto.StockLevelDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock-levels/{item_id}/{location_id} [get]
func (h *InventoryHandler) GetStockLevel(c *fiber.Ctx) error {
	level, err := h.queries.GetStockLevel(c.Context(), c.Params("item_id"), c.Params("location_id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(dto.FromStockLevel(level))
}

// ListMovements godoc
// @Summary      Historial de movimientos de un item
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id      query  string  true   "Item"
// @Param        location_id  query  string  false  "Filtrar por ubicación"
// @Param        from         query  string  false  "Desde (RFC3339)"
// @Param        to           query  string  false  "Hasta (RFC3339)"
// @Success      200  {array}  dto.StockMovementDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	page.DefaultPage()
	from, err := parseTimeQuery(c.Query("from"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "from inválido, usar RFC3339"})
	}
	to, err := parseTimeQuery(c.Query("to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "to inválido, usar RFC3339"})
	}
	movs, err := h.queries.MovementsByItem(c.Context(), c.Query("item_id"), c.Query("location_id"), from, to, page.Limit, page.Offset)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(fiber.Map{"page": page.Meta(len(movs)), "movements": dto.FromStockMovements(movs)})
}

// MovementsByTransaction godoc
// @Summary      Movimientos de una transacción de negocio
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        transaction_id  path  string  true  "Transacción"
// @Success      200  {array}  dto.StockMovementDTO
// @Router       /api/inventory/movements/transaction/{transaction_id} [get]
func (h *InventoryHandler) MovementsByTransaction(c *fiber.Ctx) error {
	movs, err := h.queries.MovementsByTransaction(c.Context(), c.Params("transaction_id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(movs), "movements": dto.FromStockMovements(movs)})
}

// MovementSummary godoc
// @Summary      Resumen de movimientos por tipo
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id      query  string  false  "Filtrar por item"
// @Param        location_id  query  string  false  "Filtrar por ubicación"
// @Param        from         query  string  false  "Desde (RFC3339)"
// @Param        to           query  string  false  "Hasta (RFC3339)"
// @Success      200  {array}  dto.MovementSummaryDTO
// @Router       /api/inventory/movements/summary [get]
func (h *InventoryHandler) MovementSummary(c *fiber.Ctx) error {
	from, err := parseTimeQuery(c.Query("from"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "from inválido, usar RFC3339"})
	}
	to, err := parseTimeQuery(c.Query("to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "to inválido, usar RFC3339"})
	}
	rows, err := h.queries.MovementSummary(c.Context(), c.Query("item_id"), c.Query("location_id"), from, to)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(dto.FromMovementSummary(rows))
}

// PendingApprovals godoc
// @Summary      Ajustes pendientes de aprobación
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.StockMovementDTO
// @Router       /api/inventory/adjustments/pending [get]
func (h *InventoryHandler) PendingApprovals(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	page.DefaultPage()
	movs, err := h.queries.PendingApprovals(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(fiber.Map{"page": page.Meta(len(movs)), "adjustments": dto.FromStockMovements(movs)})
}

// Summary godoc
// @Summary      Totales globales de stock y alertas
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.StockSummaryDTO
// @Router       /api/inventory/summary [get]
func (h *InventoryHandler) Summary(c *fiber.Ctx) error {
	s, err := h.queries.Summary(c.Context())
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(dto.StockSummaryDTO{
		StockLevels:   s.StockLevels,
		OnHand:        s.OnHand,
		Available:     s.Available,
		Reserved:      s.Reserved,
		OnRent:        s.OnRent,
		Damaged:       s.Damaged,
		InMaintenance: s.InMaintenance,
		LowStock:      s.LowStock,
		OutOfStock:    s.OutOfStock,
	})
}

// LowStock godoc
// @Summary      Items bajo punto de reorden
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        location_id  query  string  false  "Filtrar por ubicación"
// @Success      200  {array}  dto.StockLevelDTO
// @Router       /api/inventory/alerts/low-stock [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	levels, err := h.queries.LowStock(c.Context(), c.Query("location_id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(levels), "stock_levels": dto.FromStockLevels(levels)})
}

// OutOfStock godoc
// @Summary      Items sin stock disponible
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        location_id  query  string  false  "Filtrar por ubicación"
// @Success      200  {array}  dto.StockLevelDTO
// @Router       /api/inventory/alerts/out-of-stock [get]
func (h *InventoryHandler) OutOfStock(c *fiber.Ctx) error {
	levels, err := h.queries.OutOfStock(c.Context(), c.Query("location_id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(levels), "stock_levels": dto.FromStockLevels(levels)})
}

// parseTimeQuery interpreta un parámetro de tiempo RFC3339 opcional.
func parseTimeQuery(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
