package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PalletStatus estado de un pallet.
type PalletStatus string

// Estados de pallet.
const (
	PalletStatusOpen   PalletStatus = "OPEN"
	PalletStatusClosed PalletStatus = "CLOSED"
)

// PalletItem es un bulto cargado en un pallet con la cantidad reservada para el traslado.
type PalletItem struct {
	LotID            string
	MaterialRef      string
	Quantity         decimal.Decimal // cantidad despachada
	ReceivedQuantity decimal.Decimal // acreditada en destino
	ReservationID    string
	Resolved         bool // recibido completo o dado de baja
}

// Pending devuelve la cantidad despachada que aún no se ha acreditado.
func (i PalletItem) Pending() decimal.Decimal {
	return i.Quantity.Sub(i.ReceivedQuantity)
}

// Pallet agrupa bultos dentro de una solicitud de mercadería.
// Un pallet cerrado no admite cambios en sus bultos.
type Pallet struct {
	ID         string
	Identifier string
	RequestID  string
	Status     PalletStatus
	Items      []PalletItem
	ClosedAt   *time.Time
	ShippedAt  *time.Time
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	CreatedBy  string
}

// LotIDs devuelve los IDs de los bultos del pallet en orden de carga.
func (p *Pallet) LotIDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		ids = append(ids, it.LotID)
	}
	return ids
}

// IsClosed indica si el pallet está cerrado.
func (p *Pallet) IsClosed() bool {
	return p.Status == PalletStatusClosed
}

// IsShipped indica si el pallet fue despachado.
func (p *Pallet) IsShipped() bool {
	return p.ShippedAt != nil
}

// IndexOf devuelve la posición del bulto en el pallet o -1.
func (p *Pallet) IndexOf(lotID string) int {
	for i, it := range p.Items {
		if it.LotID == lotID {
			return i
		}
	}
	return -1
}
