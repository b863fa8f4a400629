package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bultos-api/internal/domain/entity"
)

// LineItemRequest línea de una solicitud nueva.
type LineItemRequest struct {
	MaterialRef string          `json:"material_ref" validate:"required,max=64"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// CreateMerchandiseRequest body para POST /api/requests.
type CreateMerchandiseRequest struct {
	SourceLocation      string            `json:"source_location" validate:"required"`
	DestinationLocation string            `json:"destination_location" validate:"required,nefield=SourceLocation"`
	LineItems           []LineItemRequest `json:"line_items" validate:"required,min=1,dive"`
}

// DispatchRequest body para POST /api/requests/:id/dispatch.
type DispatchRequest struct {
	VersionedRequest
	DispatchRef   string `json:"dispatch_ref" validate:"required,max=100"`
	TransportMode string `json:"transport_mode" validate:"required,oneof=TRUCK VAN COURIER OWN"`
}

// ReceiveRequest body para POST /api/requests/:id/receive.
// Received acumula por material lo contado en destino en esta entrega.
type ReceiveRequest struct {
	VersionedRequest
	Received     map[string]decimal.Decimal `json:"received" validate:"required"`
	LossDeclared bool                       `json:"loss_declared"`
}

// RequestFilter filtros del listado de solicitudes.
type RequestFilter struct {
	PageRequest
	Status string `query:"status" validate:"omitempty,oneof=CREATED VALIDATED IN_PREPARATION READY_FOR_DISPATCH IN_TRANSIT RECEIVED_PARTIAL RECEIVED_COMPLETE RECEIVED_PARTIAL_WITH_LOSS CANCELLED"`
}

// LineItemResponse línea con sus cantidades de flujo.
type LineItemResponse struct {
	MaterialRef        string          `json:"material_ref"`
	QuantityRequested  decimal.Decimal `json:"quantity_requested"`
	QuantityDispatched decimal.Decimal `json:"quantity_dispatched"`
	QuantityReceived   decimal.Decimal `json:"quantity_received"`
}

// MerchandiseRequestResponse solicitud en respuestas.
type MerchandiseRequestResponse struct {
	ID                  string             `json:"id"`
	SourceLocation      string             `json:"source_location"`
	DestinationLocation string             `json:"destination_location"`
	Status              string             `json:"status"`
	LineItems           []LineItemResponse `json:"line_items"`
	PalletIDs           []string           `json:"pallet_ids"`
	DispatchRef         string             `json:"dispatch_ref,omitempty"`
	TransportMode       string             `json:"transport_mode,omitempty"`
	LossDeclared        bool               `json:"loss_declared"`
	Version             int                `json:"version"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
	DispatchedAt        *time.Time         `json:"dispatched_at,omitempty"`
	ReceivedAt          *time.Time         `json:"received_at,omitempty"`
}

// RequestFromEntity mapea la solicitud.
func RequestFromEntity(r *entity.MerchandiseRequest) MerchandiseRequestResponse {
	items := make([]LineItemResponse, 0, len(r.LineItems))
	for _, li := range r.LineItems {
		items = append(items, LineItemResponse(li))
	}
	pallets := r.PalletIDs
	if pallets == nil {
		pallets = []string{}
	}
	return MerchandiseRequestResponse{
		ID:                  r.ID,
		SourceLocation:      r.SourceLocation,
		DestinationLocation: r.DestinationLocation,
		Status:              r.Status.String(),
		LineItems:           items,
		PalletIDs:           pallets,
		DispatchRef:         r.DispatchRef,
		TransportMode:       r.TransportMode,
		LossDeclared:        r.LossDeclared,
		Version:             r.Version,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
		DispatchedAt:        r.DispatchedAt,
		ReceivedAt:          r.ReceivedAt,
	}
}

// RequestsFromEntities mapea una lista de solicitudes.
func RequestsFromEntities(list []*entity.MerchandiseRequest) []MerchandiseRequestResponse {
	out := make([]MerchandiseRequestResponse, 0, len(list))
	for _, r := range list {
		out = append(out, RequestFromEntity(r))
	}
	return out
}

// AssignLotRequest body para POST /api/pallets/:id/lots.
type AssignLotRequest struct {
	LotID string `json:"lot_id" validate:"required"`
}

// PalletItemResponse bulto cargado.
type PalletItemResponse struct {
	LotID            string          `json:"lot_id"`
	MaterialRef      string          `json:"material_ref"`
	Quantity         decimal.Decimal `json:"quantity"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	ReservationID    string          `json:"reservation_id"`
	Resolved         bool            `json:"resolved"`
}

// PalletResponse pallet en respuestas.
type PalletResponse struct {
	ID         string               `json:"id"`
	Identifier string               `json:"identifier"`
	RequestID  string               `json:"request_id"`
	Status     string               `json:"status"`
	Items      []PalletItemResponse `json:"items"`
	ClosedAt   *time.Time           `json:"closed_at,omitempty"`
	ShippedAt  *time.Time           `json:"shipped_at,omitempty"`
	Version    int                  `json:"version"`
	CreatedAt  time.Time            `json:"created_at"`
}

// PalletFromEntity mapea el pallet.
func PalletFromEntity(p *entity.Pallet) PalletResponse {
	items := make([]PalletItemResponse, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, PalletItemResponse(it))
	}
	return PalletResponse{
		ID:         p.ID,
		Identifier: p.Identifier,
		RequestID:  p.RequestID,
		Status:     string(p.Status),
		Items:      items,
		ClosedAt:   p.ClosedAt,
		ShippedAt:  p.ShippedAt,
		Version:    p.Version,
		CreatedAt:  p.CreatedAt,
	}
}

// PalletsFromEntities mapea una lista de pallets.
func PalletsFromEntities(list []*entity.Pallet) []PalletResponse {
	out := make([]PalletResponse, 0, len(list))
	for _, p := range list {
		out = append(out, PalletFromEntity(p))
	}
	return out
}
