package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")

	// Cantidades y bultos.
	ErrInsufficientQuantity = errors.New("cantidad disponible insuficiente")
	ErrLotLocked            = errors.New("bulto bloqueado (pallet cerrado, consumido o en uso)")
	ErrQuantityMismatch     = errors.New("las cantidades no cuadran")
	ErrUnknownMaterial      = errors.New("material desconocido")

	// Máquinas de estado.
	ErrInvalidTransition          = errors.New("transición de estado inválida")
	ErrStaleState                 = errors.New("el estado cambió; recargue e intente de nuevo")
	ErrPrecedingProcessIncomplete = errors.New("existe una pauta previa sin completar")
	ErrPrecedingStepIncomplete    = errors.New("el paso anterior no está completado")
	ErrProcessNotReady            = errors.New("la pauta no está lista para completarse")
	ErrMissingOutputQuantity      = errors.New("falta la cantidad del bulto resultante")
	ErrUnexpectedOutput           = errors.New("la pauta no produce bultos nuevos")
)

// ErrConflict es un alias de ErrStaleState para los llamadores que hablan de conflictos.
var ErrConflict = ErrStaleState

// IsConflict indica si err es contención concurrente (reintentable recargando el estado),
// distinta de un error de validación que hay que mostrar al operador.
func IsConflict(err error) bool {
	return errors.Is(err, ErrStaleState) || errors.Is(err, ErrLotLocked)
}

// IsBusiness indica si err es una regla de negocio conocida (no un fallo de infraestructura).
func IsBusiness(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var businessErrors = []error{
	ErrNotFound, ErrInvalidInput,
	ErrInsufficientQuantity, ErrLotLocked, ErrQuantityMismatch, ErrUnknownMaterial,
	ErrInvalidTransition, ErrStaleState, ErrPrecedingProcessIncomplete, ErrPrecedingStepIncomplete,
	ErrProcessNotReady, ErrMissingOutputQuantity, ErrUnexpectedOutput,
}
