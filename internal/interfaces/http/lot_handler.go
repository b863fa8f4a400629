package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/bultos-api/internal/application/dto"
	"github.com/jhoicas/bultos-api/internal/application/inventory"
	"github.com/jhoicas/bultos-api/pkg/logger"
)

// LotHandler maneja bultos y reservas (protegido).
type LotHandler struct {
	uc  *inventory.LotUseCase
	log *logger.Logger
}

// NewLotHandler construye el handler.
func NewLotHandler(uc *inventory.LotUseCase, log *logger.Logger) *LotHandler {
	return &LotHandler{uc: uc, log: log}
}

// Create godoc
// @Summary      Registrar bulto
// @Tags         lots
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateLotRequest  true  "Datos del bulto"
// @Success      201   {object}  dto.LotResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/lots [post]
func (h *LotHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateLotRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	lot, err := h.uc.CreateLot(c.UserContext(), GetUserID(c), inventory.CreateLotInput{
		MaterialRef:      in.MaterialRef,
		LocationID:       in.LocationID,
		Quantity:         in.Quantity,
		UnitWeight:       in.UnitWeight,
		UnitCost:         in.UnitCost,
		ProviderBatchRef: in.ProviderBatchRef,
		Code:             in.Code,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.LotFromEntity(lot))
}

// GetByID godoc
// @Summary      Obtener bulto
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del bulto"
// @Success      200  {object}  dto.LotResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/lots/{id} [get]
func (h *LotHandler) GetByID(c *fiber.Ctx) error {
	lot, err := h.uc.GetLot(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.LotFromEntity(lot))
}

// ListAvailable godoc
// @Summary      Bultos disponibles en una ubicación
// @Description  Excluye bultos en pallet, consumidos y sin disponible.
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        location_id   query  string  true   "Ubicación"
// @Param        material_ref  query  string  false  "Material"
// @Success      200  {object}  dto.ListResponse[dto.LotResponse]
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/lots [get]
func (h *LotHandler) ListAvailable(c *fiber.Ctx) error {
	lots, err := h.uc.GetAvailable(c.UserContext(), c.Query("location_id"), c.Query("material_ref"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewList(dto.LotsFromEntities(lots)))
}

// Children godoc
// @Summary      Linaje de un bulto
// @Description  Descendientes directos e indirectos de la división.
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del bulto"
// @Success      200  {object}  dto.ListResponse[dto.LotResponse]
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/children [get]
func (h *LotHandler) Children(c *fiber.Ctx) error {
	lots, err := h.uc.GetLineage(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewList(dto.LotsFromEntities(lots)))
}

// Movements godoc
// @Summary      Libro de movimientos del bulto
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del bulto"
// @Param        limit   query  int     false  "Límite"  default(100)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.ListResponse[dto.MovementResponse]
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/movements [get]
func (h *LotHandler) Movements(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := bindQuery(c, &page); err != nil {
		return writeError(c, h.log, err)
	}
	list, err := h.uc.ListMovements(c.UserContext(), c.Params("id"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewList(dto.MovementsFromEntities(list)))
}

// Split godoc
// @Summary      Dividir bulto
// @Description  La suma de las cantidades debe igualar el disponible del bulto.
// @Tags         lots
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string            true  "ID del bulto"
// @Param        body  body  dto.SplitRequest  true  "Cantidades de los hijos"
// @Success      201   {object}  dto.ListResponse[dto.LotResponse]
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/split [post]
func (h *LotHandler) Split(c *fiber.Ctx) error {
	var in dto.SplitRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	children, err := h.uc.Split(c.UserContext(), GetUserID(c), c.Params("id"), in.Quantities)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewList(dto.LotsFromEntities(children)))
}

// Reserve godoc
// @Summary      Reservar cantidad de un bulto
// @Tags         lots
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "ID del bulto"
// @Param        body  body  dto.ReserveRequest  true  "Cantidad y titular"
// @Success      201   {object}  dto.ReservationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/reservations [post]
func (h *LotHandler) Reserve(c *fiber.Ctx) error {
	var in dto.ReserveRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.uc.Reserve(c.UserContext(), GetUserID(c), inventory.ReserveInput{
		LotID:      c.Params("id"),
		Quantity:   in.Quantity,
		HolderType: in.HolderType,
		HolderID:   in.HolderID,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ReservationFromEntity(res))
}

// Release godoc
// @Summary      Liberar reserva
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la reserva"
// @Success      200  {object}  dto.ReservationResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/release [post]
func (h *LotHandler) Release(c *fiber.Ctx) error {
	res, err := h.uc.ReleaseReservation(c.UserContext(), GetUserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ReservationFromEntity(res))
}
