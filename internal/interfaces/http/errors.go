package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/bultos-api/internal/application/dto"
	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/pkg/logger"
)

// errorCodes código estable por error de dominio y su estado HTTP.
var errorCodes = []struct {
	err    error
	code   string
	status int
}{
	{domain.ErrNotFound, "NOT_FOUND", fiber.StatusNotFound},
	{domain.ErrInvalidInput, "VALIDATION", fiber.StatusBadRequest},
	{domain.ErrUnknownMaterial, "UNKNOWN_MATERIAL", fiber.StatusUnprocessableEntity},
	{domain.ErrInsufficientQuantity, "INSUFFICIENT_QUANTITY", fiber.StatusConflict},
	{domain.ErrLotLocked, "LOT_LOCKED", fiber.StatusConflict},
	{domain.ErrQuantityMismatch, "QUANTITY_MISMATCH", fiber.StatusConflict},
	{domain.ErrInvalidTransition, "INVALID_TRANSITION", fiber.StatusConflict},
	{domain.ErrStaleState, "STALE_STATE", fiber.StatusConflict},
	{domain.ErrPrecedingProcessIncomplete, "PRECEDING_PROCESS_INCOMPLETE", fiber.StatusConflict},
	{domain.ErrPrecedingStepIncomplete, "PRECEDING_STEP_INCOMPLETE", fiber.StatusConflict},
	{domain.ErrProcessNotReady, "PROCESS_NOT_READY", fiber.StatusConflict},
	{domain.ErrMissingOutputQuantity, "MISSING_OUTPUT_QUANTITY", fiber.StatusConflict},
	{domain.ErrUnexpectedOutput, "UNEXPECTED_OUTPUT", fiber.StatusConflict},
}

// writeError traduce err a la respuesta HTTP. Los errores no reconocidos se registran
// y se devuelven como INTERNAL sin exponer el detalle.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var bad *errBadRequest
	if errors.As(err, &bad) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "VALIDATION",
			Message: bad.message,
			Details: bad.details,
		})
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return c.Status(ec.status).JSON(dto.ErrorResponse{
				Code:      ec.code,
				Message:   err.Error(),
				Retryable: domain.IsConflict(err),
			})
		}
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Code:    "INTERNAL",
		Message: "error interno",
	})
}
