package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bultos-api/internal/domain/entity"
)

// RequiredInputRequest insumo requerido por la pauta.
type RequiredInputRequest struct {
	MaterialRef string          `json:"material_ref" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// CreatePautaRequest body para POST /api/pautas.
type CreatePautaRequest struct {
	LotID          string                 `json:"lot_id" validate:"required"`
	ProcessTypeID  string                 `json:"process_type_id" validate:"required"`
	SequenceOrder  int                    `json:"sequence_order" validate:"required,min=1"`
	Steps          []string               `json:"steps" validate:"dive,required,max=100"`
	RequiredInputs []RequiredInputRequest `json:"required_inputs" validate:"dive"`
}

// InputSelectionRequest bulto elegido para cubrir un insumo.
type InputSelectionRequest struct {
	MaterialRef string          `json:"material_ref" validate:"required"`
	LotID       string          `json:"lot_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// BeginPautaRequest body para POST /api/pautas/:id/begin.
type BeginPautaRequest struct {
	VersionedRequest
	Selections []InputSelectionRequest `json:"selections" validate:"dive"`
}

// CompletePautaRequest body para POST /api/pautas/:id/complete.
type CompletePautaRequest struct {
	VersionedRequest
	QuantityWithdrawn decimal.Decimal  `json:"quantity_withdrawn"`
	OutputUnits       decimal.Decimal  `json:"output_units"`
	NewLotQuantity    *decimal.Decimal `json:"new_lot_quantity,omitempty"`
}

// StepResponse paso de la pauta.
type StepResponse struct {
	ID          string     `json:"id"`
	Order       int        `json:"order"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ConsumedInputResponse bulto reservado para un insumo.
type ConsumedInputResponse struct {
	MaterialRef   string          `json:"material_ref"`
	LotID         string          `json:"lot_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	ReservationID string          `json:"reservation_id"`
}

// PautaResponse pauta en respuestas.
type PautaResponse struct {
	ID                string                  `json:"id"`
	LotID             string                  `json:"lot_id"`
	ProcessTypeID     string                  `json:"process_type_id"`
	SequenceOrder     int                     `json:"sequence_order"`
	Status            string                  `json:"status"`
	ProducesNewLots   bool                    `json:"produces_new_lots"`
	OutputMaterialRef string                  `json:"output_material_ref,omitempty"`
	Steps             []StepResponse          `json:"steps"`
	RequiredInputs    []RequiredInputRequest  `json:"required_inputs"`
	ConsumedInputs    []ConsumedInputResponse `json:"consumed_inputs"`
	QuantityWithdrawn decimal.Decimal         `json:"quantity_withdrawn"`
	OutputUnits       decimal.Decimal         `json:"output_units"`
	OutputLotID       *string                 `json:"output_lot_id,omitempty"`
	Version           int                     `json:"version"`
	CreatedAt         time.Time               `json:"created_at"`
	StartedAt         *time.Time              `json:"started_at,omitempty"`
	CompletedAt       *time.Time              `json:"completed_at,omitempty"`
}

// PautaFromEntity mapea la pauta.
func PautaFromEntity(p *entity.Pauta) PautaResponse {
	steps := make([]StepResponse, 0, len(p.Steps))
	for _, s := range p.Steps {
		steps = append(steps, StepResponse{
			ID:          s.ID,
			Order:       s.Order,
			Name:        s.Name,
			Status:      string(s.Status),
			StartedAt:   s.StartedAt,
			CompletedAt: s.CompletedAt,
		})
	}
	required := make([]RequiredInputRequest, 0, len(p.RequiredInputs))
	for _, in := range p.RequiredInputs {
		required = append(required, RequiredInputRequest(in))
	}
	consumed := make([]ConsumedInputResponse, 0, len(p.ConsumedInputs))
	for _, in := range p.ConsumedInputs {
		consumed = append(consumed, ConsumedInputResponse(in))
	}
	return PautaResponse{
		ID:                p.ID,
		LotID:             p.LotID,
		ProcessTypeID:     p.ProcessTypeID,
		SequenceOrder:     p.SequenceOrder,
		Status:            string(p.Status),
		ProducesNewLots:   p.ProducesNewLots,
		OutputMaterialRef: p.OutputMaterialRef,
		Steps:             steps,
		RequiredInputs:    required,
		ConsumedInputs:    consumed,
		QuantityWithdrawn: p.QuantityWithdrawn,
		OutputUnits:       p.OutputUnits,
		OutputLotID:       p.OutputLotID,
		Version:           p.Version,
		CreatedAt:         p.CreatedAt,
		StartedAt:         p.StartedAt,
		CompletedAt:       p.CompletedAt,
	}
}

// PautasFromEntities mapea una lista de pautas.
func PautasFromEntities(list []*entity.Pauta) []PautaResponse {
	out := make([]PautaResponse, 0, len(list))
	for _, p := range list {
		out = append(out, PautaFromEntity(p))
	}
	return out
}
