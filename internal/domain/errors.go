package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	// ErrNotFound: referencia desconocida (item, ubicación, unidad o movimiento).
	ErrNotFound = errors.New("recurso no encontrado")
	// ErrValidation: entrada inválida detectada antes de cualquier escritura.
	ErrValidation = errors.New("entrada inválida")
	// ErrInsufficientStock: la cantidad solicitada excede el disponible al momento de mutar.
	ErrInsufficientStock = errors.New("stock insuficiente")
	// ErrConflict: la versión optimista cambió y los reintentos se agotaron,
	// o la operación choca con el estado actual (ej. ajuste ya aprobado).
	ErrConflict = errors.New("conflicto con el estado actual")
	// ErrDuplicate: transacción ya registrada en el ledger (reenvío del mismo transaction_id).
	ErrDuplicate = errors.New("recurso duplicado")
	// ErrInvariantViolation: la ley de conservación o la aritmética del ledger se rompió.
	// Es un defecto interno, nunca un error de usuario; siempre aborta la operación completa.
	ErrInvariantViolation = errors.New("invariante de inventario violada")
)
