package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrForbidden             = errors.New("acceso denegado")
	ErrConflict              = errors.New("conflicto con el estado actual")
	ErrInsufficientInventory = errors.New("inventario insuficiente")
	ErrInvalidConfiguration  = errors.New("configuración de escala inválida")
	ErrLotClosed             = errors.New("el lote está cerrado")
	ErrTierAlreadyExecuted   = errors.New("el tramo ya fue ejecutado")
)

// ValidationError campo requerido ausente o con valor inválido.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validación: " + e.Reason
	}
	return fmt.Sprintf("validación: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError construye un ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientInventoryError la cantidad pedida supera lo disponible (o lo existente).
// El mensaje nombra la operación y ambas cantidades para que el llamador pueda corregir.
type InsufficientInventoryError struct {
	Operation string // "vender", "comprometer", "entregar"...
	Requested decimal.Decimal
	Available decimal.Decimal
	Unit      string
}

func (e *InsufficientInventoryError) Error() string {
	unit := e.Unit
	if unit == "" {
		unit = "unidades"
	}
	return fmt.Sprintf("no se pueden %s %s %s; solo hay %s disponibles",
		e.Operation, e.Requested.String(), unit, e.Available.String())
}

func (e *InsufficientInventoryError) Unwrap() error { return ErrInsufficientInventory }

// NotFoundError lote, contrato o tramo inexistente.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q no encontrado", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError construye un NotFoundError.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError la operación perdió una carrera concurrente o choca con el estado del lote.
// Transient=true indica que reintentar puede tener éxito (revisión obsoleta, lock ocupado,
// serialization failure); el reintento acotado de la capa de aplicación solo mira este flag.
type ConflictError struct {
	Reason    string
	Transient bool
	Err       error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conflicto: %s: %v", e.Reason, e.Err)
	}
	return "conflicto: " + e.Reason
}

func (e *ConflictError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConflict, e.Err}
	}
	return []error{ErrConflict}
}

// NewTransientConflict conflicto reintentable (p. ej. revisión obsoleta).
func NewTransientConflict(reason string, err error) error {
	return &ConflictError{Reason: reason, Transient: true, Err: err}
}

// ConfigurationError tramo de escala deslizante mal formado. Tier = -1 si aplica a toda la escala.
type ConfigurationError struct {
	Tier   int
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Tier < 0 {
		return "escala deslizante: " + e.Reason
	}
	return fmt.Sprintf("escala deslizante: tramo %d: %s", e.Tier, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidConfiguration }

// IsTransient indica si err es un conflicto reintentable.
func IsTransient(err error) bool {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Transient
	}
	return false
}
