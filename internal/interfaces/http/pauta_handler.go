package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/bultos-api/internal/application/dto"
	"github.com/jhoicas/bultos-api/internal/application/production"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/pkg/logger"
)

// PautaHandler maneja pautas de producción y sus pasos.
type PautaHandler struct {
	uc  *production.PautaUseCase
	log *logger.Logger
}

// NewPautaHandler construye el handler.
func NewPautaHandler(uc *production.PautaUseCase, log *logger.Logger) *PautaHandler {
	return &PautaHandler{uc: uc, log: log}
}

// Create godoc
// @Summary      Crear pauta sobre un bulto
// @Tags         pautas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreatePautaRequest  true  "Proceso, orden, pasos e insumos"
// @Success      201   {object}  dto.PautaResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/pautas [post]
func (h *PautaHandler) Create(c *fiber.Ctx) error {
	var in dto.CreatePautaRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	required := make([]entity.RequiredInput, 0, len(in.RequiredInputs))
	for _, ri := range in.RequiredInputs {
		required = append(required, entity.RequiredInput(ri))
	}
	p, err := h.uc.Create(c.UserContext(), GetUserID(c), production.CreatePautaInput{
		LotID:          in.LotID,
		ProcessTypeID:  in.ProcessTypeID,
		SequenceOrder:  in.SequenceOrder,
		Steps:          in.Steps,
		RequiredInputs: required,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.PautaFromEntity(p))
}

// GetByID godoc
// @Summary      Obtener pauta
// @Tags         pautas
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la pauta"
// @Success      200  {object}  dto.PautaResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/pautas/{id} [get]
func (h *PautaHandler) GetByID(c *fiber.Ctx) error {
	p, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PautaFromEntity(p))
}

// ListByLot godoc
// @Summary      Pautas de un bulto en orden de secuencia
// @Tags         pautas
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del bulto"
// @Success      200  {object}  dto.ListResponse[dto.PautaResponse]
// @Router       /api/lots/{id}/pautas [get]
func (h *PautaHandler) ListByLot(c *fiber.Ctx) error {
	list, err := h.uc.ListByLot(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewList(dto.PautasFromEntities(list)))
}

// Begin godoc
// @Summary      Comenzar pauta
// @Description  Reserva los bultos elegidos para cada insumo; divide el bulto si sobra.
// @Tags         pautas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID de la pauta"
// @Param        body  body  dto.BeginPautaRequest  true  "Bultos elegidos"
// @Success      200   {object}  dto.PautaResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pautas/{id}/begin [post]
func (h *PautaHandler) Begin(c *fiber.Ctx) error {
	var in dto.BeginPautaRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	selections := make([]production.InputSelection, 0, len(in.Selections))
	for _, s := range in.Selections {
		selections = append(selections, production.InputSelection(s))
	}
	p, err := h.uc.Begin(c.UserContext(), GetUserID(c), production.BeginInput{
		PautaID:         c.Params("id"),
		ExpectedVersion: in.ExpectedVersion,
		Selections:      selections,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PautaFromEntity(p))
}

// Complete godoc
// @Summary      Completar pauta
// @Tags         pautas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID de la pauta"
// @Param        body  body  dto.CompletePautaRequest  true  "Resultado"
// @Success      200   {object}  dto.PautaResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pautas/{id}/complete [post]
func (h *PautaHandler) Complete(c *fiber.Ctx) error {
	var in dto.CompletePautaRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	p, err := h.uc.Complete(c.UserContext(), GetUserID(c), production.CompleteInput{
		PautaID:         c.Params("id"),
		ExpectedVersion: in.ExpectedVersion,
		Outcome: production.Outcome{
			QuantityWithdrawn: in.QuantityWithdrawn,
			OutputUnits:       in.OutputUnits,
			NewLotQuantity:    in.NewLotQuantity,
		},
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PautaFromEntity(p))
}

// StartStep godoc
// @Summary      Iniciar paso
// @Tags         pautas
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del paso"
// @Success      200  {object}  dto.PautaResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/steps/{id}/start [post]
func (h *PautaHandler) StartStep(c *fiber.Ctx) error {
	p, err := h.uc.StartStep(c.UserContext(), GetUserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PautaFromEntity(p))
}

// CompleteStep godoc
// @Summary      Completar paso
// @Tags         pautas
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del paso"
// @Success      200  {object}  dto.PautaResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/steps/{id}/complete [post]
func (h *PautaHandler) CompleteStep(c *fiber.Ctx) error {
	p, err := h.uc.CompleteStep(c.UserContext(), GetUserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PautaFromEntity(p))
}
