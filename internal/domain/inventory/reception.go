package inventory

import (
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ReceptionLine cantidades acumuladas de una línea al momento de clasificar.
type ReceptionLine struct {
	Dispatched decimal.Decimal
	Received   decimal.Decimal
}

// ClassifyReception resuelve el estado de una recepción:
//   - todas las líneas recibidas igual a lo despachado: ReceivedComplete
//   - faltante con merma declarada: ReceivedPartialWithLoss
//   - faltante sin merma (pendiente de completar): ReceivedPartial
func ClassifyReception(lines []ReceptionLine, lossDeclared bool) entity.RequestStatus {
	complete := true
	for _, l := range lines {
		if !l.Received.Equal(l.Dispatched) {
			complete = false
			break
		}
	}
	switch {
	case complete:
		return entity.RequestStatusReceivedComplete
	case lossDeclared:
		return entity.RequestStatusReceivedPartialWithLoss
	default:
		return entity.RequestStatusReceivedPartial
	}
}

// AllocateReceived reparte una cantidad recibida entre los pendientes de los bultos de un
// material, en orden de carga. Devuelve lo acreditado a cada uno; lo que exceda el total
// pendiente no se asigna (el llamador valida antes que no exceda lo despachado).
func AllocateReceived(pending []decimal.Decimal, received decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(pending))
	left := received
	for i, p := range pending {
		if !left.IsPositive() {
			out[i] = decimal.Zero
			continue
		}
		take := decimal.Min(p, left)
		out[i] = take
		left = left.Sub(take)
	}
	return out
}
