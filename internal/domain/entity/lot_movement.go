package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de bulto (libro de eventos que justifican cada cambio de cantidad).
const (
	LotMovementIntake   = "INTAKE"    // alta por recepción de compra
	LotMovementSplitOut = "SPLIT_OUT" // el padre entrega su disponible a los hijos
	LotMovementSplitIn  = "SPLIT_IN"  // el hijo nace de una división
	LotMovementReserve  = "RESERVE"
	LotMovementRelease  = "RELEASE"
	LotMovementConsume  = "CONSUME"
	LotMovementDispatch = "DISPATCH"
	LotMovementReceive  = "RECEIVE"
	LotMovementWriteOff = "WRITE_OFF" // merma no recibida en destino
	LotMovementWithdraw = "WITHDRAW"  // retiro desde el bulto de producción al completar una pauta
	LotMovementOutput   = "OUTPUT"    // bulto nuevo producido por una pauta
)

// Tipos de referencia de un movimiento.
const (
	ReferenceRequest = "REQUEST"
	ReferencePallet  = "PALLET"
	ReferencePauta   = "PAUTA"
	ReferenceLot     = "LOT"
	ReferenceIntake  = "INTAKE"
)

// LotMovement registra un cambio de cantidad o ubicación sobre un bulto.
// Quantity es negativa cuando resta disponible (RESERVE, SPLIT_OUT, WITHDRAW). DISPATCH, CONSUME y
// WRITE_OFF llevan la cantidad afectada en positivo porque ya estaba fuera del disponible.
type LotMovement struct {
	ID            string
	TransactionID string
	LotID         string
	Type          string
	Quantity      decimal.Decimal
	LocationID    string
	ReferenceType string
	ReferenceID   string
	CreatedAt     time.Time
	CreatedBy     string
}
