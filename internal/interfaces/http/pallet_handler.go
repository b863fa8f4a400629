package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/bultos-api/internal/application/dispatch"
	"github.com/jhoicas/bultos-api/internal/application/dto"
	"github.com/jhoicas/bultos-api/pkg/logger"
)

// PalletHandler maneja la carga de bultos en pallets.
type PalletHandler struct {
	uc  *dispatch.PalletUseCase
	log *logger.Logger
}

// NewPalletHandler construye el handler.
func NewPalletHandler(uc *dispatch.PalletUseCase, log *logger.Logger) *PalletHandler {
	return &PalletHandler{uc: uc, log: log}
}

// GetByID godoc
// @Summary      Obtener pallet
// @Tags         pallets
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del pallet"
// @Success      200  {object}  dto.PalletResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/pallets/{id} [get]
func (h *PalletHandler) GetByID(c *fiber.Ctx) error {
	p, err := h.uc.GetPallet(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PalletFromEntity(p))
}

// AssignLot godoc
// @Summary      Cargar bulto en el pallet
// @Description  Reserva todo el disponible del bulto a nombre del pallet.
// @Tags         pallets
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID del pallet"
// @Param        body  body  dto.AssignLotRequest  true  "Bulto"
// @Success      200   {object}  dto.PalletResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pallets/{id}/lots [post]
func (h *PalletHandler) AssignLot(c *fiber.Ctx) error {
	var in dto.AssignLotRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	p, err := h.uc.AssignLot(c.UserContext(), GetUserID(c), c.Params("id"), in.LotID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PalletFromEntity(p))
}

// RemoveLot godoc
// @Summary      Quitar bulto del pallet
// @Tags         pallets
// @Security     Bearer
// @Produce      json
// @Param        id     path  string  true  "ID del pallet"
// @Param        lotId  path  string  true  "ID del bulto"
// @Success      200   {object}  dto.PalletResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pallets/{id}/lots/{lotId} [delete]
func (h *PalletHandler) RemoveLot(c *fiber.Ctx) error {
	p, err := h.uc.RemoveLot(c.UserContext(), GetUserID(c), c.Params("id"), c.Params("lotId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PalletFromEntity(p))
}

// Close godoc
// @Summary      Cerrar pallet
// @Tags         pallets
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del pallet"
// @Success      200  {object}  dto.PalletResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/pallets/{id}/close [post]
func (h *PalletHandler) Close(c *fiber.Ctx) error {
	p, err := h.uc.ClosePallet(c.UserContext(), GetUserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PalletFromEntity(p))
}

// Reopen godoc
// @Summary      Reabrir pallet (supervisor)
// @Tags         pallets
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del pallet"
// @Success      200  {object}  dto.PalletResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/pallets/{id}/reopen [post]
func (h *PalletHandler) Reopen(c *fiber.Ctx) error {
	p, err := h.uc.ReopenPallet(c.UserContext(), GetUserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PalletFromEntity(p))
}
