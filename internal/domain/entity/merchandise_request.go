package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus estado de una solicitud de mercadería.
type RequestStatus string

// Estados de la solicitud (el orden de declaración es el orden del flujo).
const (
	RequestStatusCreated                 RequestStatus = "CREATED"
	RequestStatusValidated               RequestStatus = "VALIDATED"
	RequestStatusInPreparation           RequestStatus = "IN_PREPARATION"
	RequestStatusReadyForDispatch        RequestStatus = "READY_FOR_DISPATCH"
	RequestStatusInTransit               RequestStatus = "IN_TRANSIT"
	RequestStatusReceivedPartial         RequestStatus = "RECEIVED_PARTIAL"
	RequestStatusReceivedComplete        RequestStatus = "RECEIVED_COMPLETE"
	RequestStatusReceivedPartialWithLoss RequestStatus = "RECEIVED_PARTIAL_WITH_LOSS"
	RequestStatusCancelled               RequestStatus = "CANCELLED"
)

// Eventos del flujo de la solicitud.
const (
	RequestEventValidate         = "validate"
	RequestEventBeginPreparation = "begin_preparation"
	RequestEventCreatePallet     = "create_pallet"
	RequestEventClosePallet      = "close_pallet"
	RequestEventMarkReady        = "mark_ready"
	RequestEventDispatch         = "dispatch"
	RequestEventReceive          = "receive"
	RequestEventCancel           = "cancel"
)

// String devuelve la representación en texto del estado.
func (s RequestStatus) String() string {
	return string(s)
}

// IsTerminal indica si ningún evento adicional es aceptado.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusReceivedComplete, RequestStatusReceivedPartialWithLoss, RequestStatusCancelled:
		return true
	}
	return false
}

// IsDispatched indica si la solicitud ya pasó el punto irreversible del despacho.
func (s RequestStatus) IsDispatched() bool {
	switch s {
	case RequestStatusInTransit, RequestStatusReceivedPartial,
		RequestStatusReceivedComplete, RequestStatusReceivedPartialWithLoss:
		return true
	}
	return false
}

// Accepts indica si el evento es legal desde el estado actual (sin evaluar precondiciones).
func (s RequestStatus) Accepts(event string) bool {
	switch event {
	case RequestEventValidate:
		return s == RequestStatusCreated
	case RequestEventBeginPreparation:
		return s == RequestStatusValidated
	case RequestEventCreatePallet, RequestEventClosePallet, RequestEventMarkReady:
		return s == RequestStatusInPreparation
	case RequestEventDispatch:
		return s == RequestStatusReadyForDispatch
	case RequestEventReceive:
		return s == RequestStatusInTransit || s == RequestStatusReceivedPartial
	case RequestEventCancel:
		switch s {
		case RequestStatusCreated, RequestStatusValidated, RequestStatusInPreparation, RequestStatusReadyForDispatch:
			return true
		}
	}
	return false
}

// Modos de transporte.
const (
	TransportTruck   = "TRUCK"
	TransportVan     = "VAN"
	TransportCourier = "COURIER"
	TransportOwn     = "OWN"
)

// RequestLineItem línea de una solicitud por material.
// Invariante: QuantityReceived <= QuantityDispatched.
type RequestLineItem struct {
	MaterialRef        string
	QuantityRequested  decimal.Decimal
	QuantityDispatched decimal.Decimal
	QuantityReceived   decimal.Decimal
}

// MerchandiseRequest solicitud de traslado de mercadería entre ubicaciones.
type MerchandiseRequest struct {
	ID                  string
	SourceLocation      string
	DestinationLocation string
	Status              RequestStatus
	LineItems           []RequestLineItem
	PalletIDs           []string
	DispatchRef         string
	TransportMode       string
	LossDeclared        bool
	Version             int
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DispatchedAt        *time.Time
	ReceivedAt          *time.Time
	CreatedBy           string
}

// LineItem devuelve la línea del material o nil.
func (r *MerchandiseRequest) LineItem(materialRef string) *RequestLineItem {
	for i := range r.LineItems {
		if r.LineItems[i].MaterialRef == materialRef {
			return &r.LineItems[i]
		}
	}
	return nil
}
