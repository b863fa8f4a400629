package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/bultos-api/internal/application/dispatch"
	"github.com/jhoicas/bultos-api/internal/application/dto"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/pkg/logger"
)

// RequestHandler maneja solicitudes de mercadería y la creación de sus pallets.
type RequestHandler struct {
	uc      *dispatch.RequestUseCase
	pallets *dispatch.PalletUseCase
	log     *logger.Logger
}

// NewRequestHandler construye el handler.
func NewRequestHandler(uc *dispatch.RequestUseCase, pallets *dispatch.PalletUseCase, log *logger.Logger) *RequestHandler {
	return &RequestHandler{uc: uc, pallets: pallets, log: log}
}

// Create godoc
// @Summary      Crear solicitud de mercadería
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateMerchandiseRequest  true  "Origen, destino y líneas"
// @Success      201   {object}  dto.MerchandiseRequestResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/requests [post]
func (h *RequestHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateMerchandiseRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dispatch.LineItemInput, 0, len(in.LineItems))
	for _, li := range in.LineItems {
		items = append(items, dispatch.LineItemInput{MaterialRef: li.MaterialRef, Quantity: li.Quantity})
	}
	req, err := h.uc.Create(c.UserContext(), GetUserID(c), dispatch.CreateRequestInput{
		SourceLocation:      in.SourceLocation,
		DestinationLocation: in.DestinationLocation,
		LineItems:           items,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.RequestFromEntity(req))
}

// GetByID godoc
// @Summary      Obtener solicitud
// @Tags         requests
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la solicitud"
// @Success      200  {object}  dto.MerchandiseRequestResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetByID(c *fiber.Ctx) error {
	req, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.RequestFromEntity(req))
}

// List godoc
// @Summary      Listar solicitudes
// @Tags         requests
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "Estado"
// @Param        limit   query  int     false  "Límite"  default(50)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.ListResponse[dto.MerchandiseRequestResponse]
// @Router       /api/requests [get]
func (h *RequestHandler) List(c *fiber.Ctx) error {
	var f dto.RequestFilter
	if err := bindQuery(c, &f); err != nil {
		return writeError(c, h.log, err)
	}
	f.DefaultPage()
	list, err := h.uc.List(c.UserContext(), f.Status, f.Limit, f.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewList(dto.RequestsFromEntities(list)))
}

// Validate godoc
// @Summary      Validar solicitud contra el catálogo
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true   "ID de la solicitud"
// @Param        body  body  dto.VersionedRequest  false  "Versión esperada"
// @Success      200   {object}  dto.MerchandiseRequestResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/validate [post]
func (h *RequestHandler) Validate(c *fiber.Ctx) error {
	return h.transition(c, h.uc.Validate)
}

// BeginPreparation godoc
// @Summary      Iniciar preparación
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true   "ID de la solicitud"
// @Param        body  body  dto.VersionedRequest  false  "Versión esperada"
// @Success      200   {object}  dto.MerchandiseRequestResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/begin-preparation [post]
func (h *RequestHandler) BeginPreparation(c *fiber.Ctx) error {
	return h.transition(c, h.uc.BeginPreparation)
}

// MarkReady godoc
// @Summary      Marcar lista para despacho
// @Description  Requiere al menos un pallet y todos cerrados con bultos.
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true   "ID de la solicitud"
// @Param        body  body  dto.VersionedRequest  false  "Versión esperada"
// @Success      200   {object}  dto.MerchandiseRequestResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/mark-ready [post]
func (h *RequestHandler) MarkReady(c *fiber.Ctx) error {
	return h.transition(c, h.uc.MarkReady)
}

// Cancel godoc
// @Summary      Cancelar solicitud
// @Description  Libera las reservas de todos los pallets. No aplica después del despacho.
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true   "ID de la solicitud"
// @Param        body  body  dto.VersionedRequest  false  "Versión esperada"
// @Success      200   {object}  dto.MerchandiseRequestResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/cancel [post]
func (h *RequestHandler) Cancel(c *fiber.Ctx) error {
	return h.transition(c, h.uc.Cancel)
}

// Dispatch godoc
// @Summary      Despachar solicitud
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID de la solicitud"
// @Param        body  body  dto.DispatchRequest  true  "Guía y modo de transporte"
// @Success      200   {object}  dto.MerchandiseRequestResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/dispatch [post]
func (h *RequestHandler) Dispatch(c *fiber.Ctx) error {
	var in dto.DispatchRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	req, err := h.uc.Dispatch(c.UserContext(), GetUserID(c), dispatch.DispatchInput{
		TransitionInput: dispatch.TransitionInput{RequestID: c.Params("id"), ExpectedVersion: in.ExpectedVersion},
		DispatchRef:     in.DispatchRef,
		TransportMode:   in.TransportMode,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.RequestFromEntity(req))
}

// Receive godoc
// @Summary      Registrar recepción en destino
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "ID de la solicitud"
// @Param        body  body  dto.ReceiveRequest  true  "Cantidades recibidas por material"
// @Success      200   {object}  dto.MerchandiseRequestResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/receive [post]
func (h *RequestHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	req, err := h.uc.Receive(c.UserContext(), GetUserID(c), dispatch.ReceiveInput{
		TransitionInput: dispatch.TransitionInput{RequestID: c.Params("id"), ExpectedVersion: in.ExpectedVersion},
		Received:        in.Received,
		LossDeclared:    in.LossDeclared,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.RequestFromEntity(req))
}

// CreatePallet godoc
// @Summary      Crear pallet en la solicitud
// @Tags         pallets
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true   "ID de la solicitud"
// @Param        body  body  dto.VersionedRequest  false  "Versión esperada"
// @Success      201   {object}  dto.PalletResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/pallets [post]
func (h *RequestHandler) CreatePallet(c *fiber.Ctx) error {
	in, err := h.transitionInput(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	p, err := h.pallets.CreatePallet(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.PalletFromEntity(p))
}

// ListPallets godoc
// @Summary      Pallets de la solicitud
// @Tags         pallets
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la solicitud"
// @Success      200  {object}  dto.ListResponse[dto.PalletResponse]
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/pallets [get]
func (h *RequestHandler) ListPallets(c *fiber.Ctx) error {
	list, err := h.pallets.ListByRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewList(dto.PalletsFromEntities(list)))
}

type transitionFunc func(ctx context.Context, actor string, in dispatch.TransitionInput) (*entity.MerchandiseRequest, error)

func (h *RequestHandler) transition(c *fiber.Ctx, fn transitionFunc) error {
	in, err := h.transitionInput(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	req, err := fn(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.RequestFromEntity(req))
}

// transitionInput el cuerpo es opcional; sin cuerpo no se verifica la versión.
func (h *RequestHandler) transitionInput(c *fiber.Ctx) (dispatch.TransitionInput, error) {
	var v dto.VersionedRequest
	if len(c.Body()) > 0 {
		if err := bindBody(c, &v); err != nil {
			return dispatch.TransitionInput{}, err
		}
	}
	return dispatch.TransitionInput{RequestID: c.Params("id"), ExpectedVersion: v.ExpectedVersion}, nil
}
