package dispatch

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bultos-api/internal/application/inventory"
	"github.com/jhoicas/bultos-api/internal/application/ports"
	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	domaininv "github.com/jhoicas/bultos-api/internal/domain/inventory"
	"github.com/jhoicas/bultos-api/internal/domain/repository"
)

// palletSlot ubica un ítem dentro de los pallets bloqueados.
type palletSlot struct {
	pallet int
	item   int
}

// Receive acredita en destino las cantidades confirmadas y clasifica la recepción.
// Las cantidades son incrementales: lo recibido acumulado por material no puede superar lo
// despachado (domain.ErrQuantityMismatch). En RECEIVED_PARTIAL los bultos pendientes siguen en
// el pallet a la espera de otra recepción; en un estado final el residuo se da de baja.
func (uc *RequestUseCase) Receive(ctx context.Context, actor string, in ReceiveInput) (*entity.MerchandiseRequest, error) {
	for ref, q := range in.Received {
		if q.IsNegative() {
			return nil, fmt.Errorf("%w: cantidad recibida negativa para %s", domain.ErrInvalidInput, ref)
		}
	}
	return uc.transition(ctx, actor, entity.RequestEventReceive, in.TransitionInput,
		func(repos repository.Repositories, op ports.Op, req *entity.MerchandiseRequest) (entity.RequestStatus, error) {
			for ref := range in.Received {
				if req.LineItem(ref) == nil {
					return "", fmt.Errorf("%w: el material %s no está en la solicitud", domain.ErrInvalidInput, ref)
				}
			}
			for _, li := range req.LineItems {
				cum := li.QuantityReceived.Add(in.Received[li.MaterialRef])
				if cum.GreaterThan(li.QuantityDispatched) {
					return "", fmt.Errorf("%w: %s recibido %s supera lo despachado %s",
						domain.ErrQuantityMismatch, li.MaterialRef, cum, li.QuantityDispatched)
				}
			}

			pallets, err := lockPallets(ctx, repos, req)
			if err != nil {
				return "", err
			}
			for i := range req.LineItems {
				li := &req.LineItems[i]
				delta := in.Received[li.MaterialRef]
				if !delta.IsPositive() {
					continue
				}
				if err := uc.credit(ctx, repos, op, req, pallets, li.MaterialRef, delta); err != nil {
					return "", err
				}
				li.QuantityReceived = li.QuantityReceived.Add(delta)
			}

			lines := make([]domaininv.ReceptionLine, 0, len(req.LineItems))
			for _, li := range req.LineItems {
				lines = append(lines, domaininv.ReceptionLine{Dispatched: li.QuantityDispatched, Received: li.QuantityReceived})
			}
			loss := req.LossDeclared || in.LossDeclared
			status := domaininv.ClassifyReception(lines, loss)
			if status.IsTerminal() {
				if err := writeOffResidual(ctx, repos, op, req, pallets); err != nil {
					return "", err
				}
			}
			for _, p := range pallets {
				p.UpdatedAt = op.Now
				if err := repos.Pallets.Update(ctx, p); err != nil {
					return "", err
				}
			}
			at := op.Now
			req.ReceivedAt = &at
			req.LossDeclared = loss
			return status, nil
		})
}

// credit reparte delta entre los ítems pendientes del material en orden de carga.
// Cada bulto acreditado pasa a la ubicación de destino y recupera disponible.
func (uc *RequestUseCase) credit(
	ctx context.Context,
	repos repository.Repositories,
	op ports.Op,
	req *entity.MerchandiseRequest,
	pallets []*entity.Pallet,
	materialRef string,
	delta decimal.Decimal,
) error {
	var (
		slots   []palletSlot
		pending []decimal.Decimal
	)
	for pi, p := range pallets {
		for ii, it := range p.Items {
			if it.MaterialRef == materialRef && !it.Resolved && it.Pending().IsPositive() {
				slots = append(slots, palletSlot{pallet: pi, item: ii})
				pending = append(pending, it.Pending())
			}
		}
	}
	alloc := domaininv.AllocateReceived(pending, delta)
	for n, s := range slots {
		q := alloc[n]
		if !q.IsPositive() {
			continue
		}
		it := &pallets[s.pallet].Items[s.item]
		lot, err := inventory.FindLot(ctx, repos, it.LotID, true)
		if err != nil {
			return err
		}
		lot.AvailableQuantity = lot.AvailableQuantity.Add(q)
		lot.LocationID = req.DestinationLocation
		lot.Status = entity.LotStatusActive
		it.ReceivedQuantity = it.ReceivedQuantity.Add(q)
		if !it.Pending().IsPositive() {
			it.Resolved = true
			lot.PalletID = nil
		}
		lot.UpdatedAt = op.Now
		if err := repos.Lots.Update(ctx, lot); err != nil {
			return err
		}
		if err := inventory.RecordMovement(ctx, repos, op, lot, entity.LotMovementReceive, q, entity.ReferenceRequest, req.ID); err != nil {
			return err
		}
	}
	return nil
}

// writeOffResidual da de baja lo que no llegó y libera los bultos de sus pallets.
// Un bulto sin nada acreditado queda WRITTEN_OFF.
func writeOffResidual(ctx context.Context, repos repository.Repositories, op ports.Op, req *entity.MerchandiseRequest, pallets []*entity.Pallet) error {
	for _, p := range pallets {
		for i := range p.Items {
			it := &p.Items[i]
			if it.Resolved {
				continue
			}
			lot, err := inventory.FindLot(ctx, repos, it.LotID, true)
			if err != nil {
				return err
			}
			if residual := it.Pending(); residual.IsPositive() {
				if err := inventory.RecordMovement(ctx, repos, op, lot, entity.LotMovementWriteOff, residual, entity.ReferenceRequest, req.ID); err != nil {
					return err
				}
			}
			if lot.AvailableQuantity.IsZero() {
				lot.Status = entity.LotStatusWrittenOff
			} else {
				lot.Status = entity.LotStatusActive
			}
			lot.PalletID = nil
			lot.UpdatedAt = op.Now
			if err := repos.Lots.Update(ctx, lot); err != nil {
				return err
			}
			it.Resolved = true
		}
	}
	return nil
}
