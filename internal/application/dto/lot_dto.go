package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bultos-api/internal/domain/entity"
)

// CreateLotRequest body para POST /api/lots.
type CreateLotRequest struct {
	MaterialRef      string          `json:"material_ref" validate:"required,max=64"`
	LocationID       string          `json:"location_id" validate:"required"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitWeight       decimal.Decimal `json:"unit_weight"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	ProviderBatchRef string          `json:"provider_batch_ref" validate:"max=100"`
	Code             string          `json:"code,omitempty" validate:"max=64"`
}

// SplitRequest body para POST /api/lots/:id/split.
type SplitRequest struct {
	Quantities []decimal.Decimal `json:"quantities" validate:"required,min=1"`
}

// ReserveRequest body para POST /api/lots/:id/reservations.
// Las reservas de pallet se crean solo al asignar el bulto a un pallet.
type ReserveRequest struct {
	Quantity   decimal.Decimal `json:"quantity"`
	HolderType string          `json:"holder_type" validate:"required,oneof=PAUTA MANUAL"`
	HolderID   string          `json:"holder_id" validate:"required"`
}

// LotResponse bulto en respuestas.
type LotResponse struct {
	ID                string          `json:"id"`
	Code              string          `json:"code"`
	MaterialRef       string          `json:"material_ref"`
	TotalQuantity     decimal.Decimal `json:"total_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	UnitWeight        decimal.Decimal `json:"unit_weight"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	LocationID        string          `json:"location_id"`
	PalletID          *string         `json:"pallet_id,omitempty"`
	ParentLotID       *string         `json:"parent_lot_id,omitempty"`
	OriginPautaID     *string         `json:"origin_pauta_id,omitempty"`
	ProviderBatchRef  string          `json:"provider_batch_ref,omitempty"`
	Status            string          `json:"status"`
	Version           int             `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// LotFromEntity mapea la entidad a la respuesta.
func LotFromEntity(l *entity.Lot) LotResponse {
	return LotResponse{
		ID:                l.ID,
		Code:              l.Code,
		MaterialRef:       l.MaterialRef,
		TotalQuantity:     l.TotalQuantity,
		AvailableQuantity: l.AvailableQuantity,
		UnitWeight:        l.UnitWeight,
		UnitCost:          l.UnitCost,
		LocationID:        l.LocationID,
		PalletID:          l.PalletID,
		ParentLotID:       l.ParentLotID,
		OriginPautaID:     l.OriginPautaID,
		ProviderBatchRef:  l.ProviderBatchRef,
		Status:            string(l.Status),
		Version:           l.Version,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

// LotsFromEntities mapea una lista de bultos.
func LotsFromEntities(list []*entity.Lot) []LotResponse {
	out := make([]LotResponse, 0, len(list))
	for _, l := range list {
		out = append(out, LotFromEntity(l))
	}
	return out
}

// ReservationResponse token de reserva.
type ReservationResponse struct {
	ID         string          `json:"id"`
	LotID      string          `json:"lot_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	HolderType string          `json:"holder_type"`
	HolderID   string          `json:"holder_id"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

// ReservationFromEntity mapea la reserva.
func ReservationFromEntity(r *entity.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:         r.ID,
		LotID:      r.LotID,
		Quantity:   r.Quantity,
		HolderType: r.HolderType,
		HolderID:   r.HolderID,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
		ResolvedAt: r.ResolvedAt,
	}
}

// MovementResponse entrada del libro de un bulto.
type MovementResponse struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Type          string          `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	LocationID    string          `json:"location_id"`
	ReferenceType string          `json:"reference_type,omitempty"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CreatedBy     string          `json:"created_by"`
}

// MovementsFromEntities mapea el libro.
func MovementsFromEntities(list []*entity.LotMovement) []MovementResponse {
	out := make([]MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, MovementResponse{
			ID:            m.ID,
			TransactionID: m.TransactionID,
			Type:          m.Type,
			Quantity:      m.Quantity,
			LocationID:    m.LocationID,
			ReferenceType: m.ReferenceType,
			ReferenceID:   m.ReferenceID,
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
		})
	}
	return out
}
