package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LotStatus estado de un bulto.
type LotStatus string

// Estados de bulto.
const (
	LotStatusActive     LotStatus = "ACTIVE"      // en bodega, puede reservarse o dividirse
	LotStatusInTransit  LotStatus = "IN_TRANSIT"  // despachado en un pallet
	LotStatusConsumed   LotStatus = "CONSUMED"    // dividido o consumido por una pauta
	LotStatusWrittenOff LotStatus = "WRITTEN_OFF" // no llegó a destino (merma)
)

// Lot representa un bulto físico de material.
// Invariante: 0 <= AvailableQuantity <= TotalQuantity.
// Un bulto con PalletID no se divide ni cambia de ubicación hasta salir del pallet.
type Lot struct {
	ID                string
	Code              string // identificador legible para etiquetas
	MaterialRef       string
	TotalQuantity     decimal.Decimal
	AvailableQuantity decimal.Decimal
	UnitWeight        decimal.Decimal
	UnitCost          decimal.Decimal
	LocationID        string
	PalletID          *string
	ParentLotID       *string // bulto del que se dividió
	OriginPautaID     *string // pauta que lo produjo
	ProviderBatchRef  string
	Status            LotStatus
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CreatedBy         string
}

// OnPallet indica si el bulto está asignado a un pallet.
func (l *Lot) OnPallet() bool {
	return l.PalletID != nil && *l.PalletID != ""
}

// IsActive indica si el bulto está en bodega y no fue consumido.
func (l *Lot) IsActive() bool {
	return l.Status == LotStatusActive
}

// ReservationStatus estado de una reserva.
type ReservationStatus string

// Estados de reserva.
const (
	ReservationActive   ReservationStatus = "ACTIVE"
	ReservationReleased ReservationStatus = "RELEASED"
	ReservationConsumed ReservationStatus = "CONSUMED"
)

// Quién retiene la cantidad reservada.
const (
	HolderPallet = "PALLET"
	HolderPauta  = "PAUTA"
	HolderManual = "MANUAL" // retención directa de un operador
)

// Reservation es el token devuelto por Reserve. La operación de mayor nivel (asignación a
// pallet, insumo de pauta) lo consume al finalizar o lo libera si se deshace.
type Reservation struct {
	ID         string
	LotID      string
	Quantity   decimal.Decimal
	HolderType string
	HolderID   string
	Status     ReservationStatus
	CreatedAt  time.Time
	ResolvedAt *time.Time
	CreatedBy  string
}

// IsActive indica si la reserva aún puede liberarse o consumirse.
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationActive
}
