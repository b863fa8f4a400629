package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProcessStatus estado de una pauta o de uno de sus pasos.
type ProcessStatus string

// Estados de pauta y paso.
const (
	ProcessPending    ProcessStatus = "PENDING"
	ProcessInProgress ProcessStatus = "IN_PROGRESS"
	ProcessCompleted  ProcessStatus = "COMPLETED"
)

// RequiredInput insumo que la pauta necesita para comenzar.
type RequiredInput struct {
	MaterialRef string
	Quantity    decimal.Decimal
}

// ConsumedInput bulto efectivamente reservado para un insumo al comenzar la pauta.
type ConsumedInput struct {
	MaterialRef   string
	LotID         string
	Quantity      decimal.Decimal
	ReservationID string
}

// StepRecord paso de una pauta. El paso Order=k solo inicia si k-1 está completado.
type StepRecord struct {
	ID          string
	PautaID     string
	Order       int
	Name        string
	Status      ProcessStatus
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Pauta instancia de un proceso de valor agregado sobre un bulto de producción.
// Entre las pautas de un mismo LotID, la de SequenceOrder=k inicia solo si las anteriores
// están completadas.
type Pauta struct {
	ID                string
	LotID             string
	ProcessTypeID     string
	SequenceOrder     int
	Status            ProcessStatus
	ProducesNewLots   bool
	OutputMaterialRef string
	Steps             []StepRecord
	RequiredInputs    []RequiredInput
	ConsumedInputs    []ConsumedInput
	QuantityWithdrawn decimal.Decimal
	OutputUnits       decimal.Decimal
	OutputLotID       *string
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	CreatedBy         string
}

// StepIDs devuelve los IDs de los pasos en orden.
func (p *Pauta) StepIDs() []string {
	ids := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		ids = append(ids, s.ID)
	}
	return ids
}

// Step devuelve el paso con ese ID o nil.
func (p *Pauta) Step(stepID string) *StepRecord {
	for i := range p.Steps {
		if p.Steps[i].ID == stepID {
			return &p.Steps[i]
		}
	}
	return nil
}

// StepByOrder devuelve el paso con ese orden o nil.
func (p *Pauta) StepByOrder(order int) *StepRecord {
	for i := range p.Steps {
		if p.Steps[i].Order == order {
			return &p.Steps[i]
		}
	}
	return nil
}

// AllStepsCompleted indica si todos los pasos están completados (verdadero sin pasos).
func (p *Pauta) AllStepsCompleted() bool {
	for _, s := range p.Steps {
		if s.Status != ProcessCompleted {
			return false
		}
	}
	return true
}
