package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/bultos-api/internal/application/inventory"
	"github.com/jhoicas/bultos-api/internal/application/ports"
	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/internal/domain/repository"
)

// PalletUseCase arma los pallets de una solicitud en preparación.
// Orden de bloqueo: solicitud, pallet, bulto.
type PalletUseCase struct {
	tx   ports.TxRunner
	lots *inventory.LotUseCase
	obs  *ports.Observer
}

// NewPalletUseCase construye el caso de uso.
func NewPalletUseCase(tx ports.TxRunner, lots *inventory.LotUseCase, obs *ports.Observer) *PalletUseCase {
	if obs == nil {
		obs = ports.NewObserver(nil, nil)
	}
	return &PalletUseCase{tx: tx, lots: lots, obs: obs}
}

// CreatePallet agrega un pallet abierto a la solicitud.
func (uc *PalletUseCase) CreatePallet(ctx context.Context, actor string, in TransitionInput) (*entity.Pallet, error) {
	op := ports.NewOp(actor)
	var pallet *entity.Pallet
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		req, err := lockRequest(ctx, repos, in, entity.RequestEventCreatePallet)
		if err != nil {
			return err
		}
		pallet = &entity.Pallet{
			ID:         uuid.New().String(),
			Identifier: palletIdentifier(req.ID, len(req.PalletIDs)+1),
			RequestID:  req.ID,
			Status:     entity.PalletStatusOpen,
			Version:    1,
			CreatedAt:  op.Now,
			UpdatedAt:  op.Now,
			CreatedBy:  op.Actor,
		}
		if err := repos.Pallets.Create(ctx, pallet); err != nil {
			return err
		}
		req.PalletIDs = append(req.PalletIDs, pallet.ID)
		return touchRequest(ctx, repos, op, req)
	})
	ev := uc.obs.Done(op, entity.RequestEventCreatePallet, err).Str("request_id", in.RequestID)
	if err != nil {
		ev.Msg("creación de pallet rechazada")
		return nil, err
	}
	ev.Str("pallet_id", pallet.ID).Msg("pallet creado")
	return pallet, nil
}

// AssignLot reserva todo el disponible del bulto y lo carga en el pallet abierto.
func (uc *PalletUseCase) AssignLot(ctx context.Context, actor, palletID, lotID string) (*entity.Pallet, error) {
	return uc.mutate(ctx, actor, "assign_lot", palletID, lotID,
		func(repos repository.Repositories, op ports.Op, req *entity.MerchandiseRequest, p *entity.Pallet) error {
			lot, err := inventory.FindLot(ctx, repos, lotID, true)
			if err != nil {
				return err
			}
			if lot.OnPallet() {
				return fmt.Errorf("%w: el bulto ya está en un pallet", domain.ErrLotLocked)
			}
			if lot.LocationID != req.SourceLocation {
				return fmt.Errorf("%w: el bulto no está en la ubicación de origen", domain.ErrInvalidInput)
			}
			if req.LineItem(lot.MaterialRef) == nil {
				return fmt.Errorf("%w: el material %s no fue solicitado", domain.ErrInvalidInput, lot.MaterialRef)
			}
			if lot.IsActive() && !lot.AvailableQuantity.IsPositive() {
				return domain.ErrInsufficientQuantity
			}
			// el bulto viaja completo: un saldo retenido se separa antes con Split
			if !lot.AvailableQuantity.Equal(lot.TotalQuantity) {
				return fmt.Errorf("%w: el bulto tiene cantidad retenida, divídalo antes de cargarlo", domain.ErrLotLocked)
			}
			held, err := repos.Reservations.ListActiveByLot(ctx, lot.ID)
			if err != nil {
				return err
			}
			if len(held) > 0 {
				return fmt.Errorf("%w: el bulto tiene reservas activas", domain.ErrLotLocked)
			}
			res, lot, err := uc.lots.ReserveInTx(ctx, repos, op, inventory.ReserveInput{
				LotID:      lot.ID,
				Quantity:   lot.AvailableQuantity,
				HolderType: entity.HolderPallet,
				HolderID:   p.ID,
			})
			if err != nil {
				return err
			}
			pid := p.ID
			lot.PalletID = &pid
			lot.UpdatedAt = op.Now
			if err := repos.Lots.Update(ctx, lot); err != nil {
				return err
			}
			p.Items = append(p.Items, entity.PalletItem{
				LotID:         lot.ID,
				MaterialRef:   lot.MaterialRef,
				Quantity:      res.Quantity,
				ReservationID: res.ID,
			})
			return nil
		})
}

// RemoveLot libera la reserva del bulto y lo quita del pallet abierto.
func (uc *PalletUseCase) RemoveLot(ctx context.Context, actor, palletID, lotID string) (*entity.Pallet, error) {
	return uc.mutate(ctx, actor, "remove_lot", palletID, lotID,
		func(repos repository.Repositories, op ports.Op, _ *entity.MerchandiseRequest, p *entity.Pallet) error {
			idx := p.IndexOf(lotID)
			if idx < 0 {
				return fmt.Errorf("%w: el bulto no está en el pallet", domain.ErrNotFound)
			}
			res, err := repos.Reservations.GetByID(ctx, p.Items[idx].ReservationID)
			if err != nil {
				return err
			}
			if res == nil {
				return fmt.Errorf("%w: reserva del bulto %s", domain.ErrNotFound, lotID)
			}
			lot, err := uc.lots.ReleaseInTx(ctx, repos, op, res)
			if err != nil {
				return err
			}
			lot.PalletID = nil
			lot.UpdatedAt = op.Now
			if err := repos.Lots.Update(ctx, lot); err != nil {
				return err
			}
			p.Items = append(p.Items[:idx], p.Items[idx+1:]...)
			return nil
		})
}

// mutate bloquea solicitud y pallet, exige pallet abierto en solicitud en preparación,
// aplica fn y guarda el pallet.
func (uc *PalletUseCase) mutate(
	ctx context.Context,
	actor, operation, palletID, lotID string,
	fn func(repos repository.Repositories, op ports.Op, req *entity.MerchandiseRequest, p *entity.Pallet) error,
) (*entity.Pallet, error) {
	op := ports.NewOp(actor)
	var out *entity.Pallet
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		req, p, err := lockPallet(ctx, repos, palletID)
		if err != nil {
			return err
		}
		if req.Status != entity.RequestStatusInPreparation {
			return fmt.Errorf("%w: la solicitud está %s", domain.ErrInvalidTransition, req.Status)
		}
		if p.IsClosed() {
			return fmt.Errorf("%w: el pallet %s está cerrado", domain.ErrInvalidTransition, p.Identifier)
		}
		if err := fn(repos, op, req, p); err != nil {
			return err
		}
		p.UpdatedAt = op.Now
		if err := repos.Pallets.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	ev := uc.obs.Done(op, operation, err).Str("pallet_id", palletID).Str("lot_id", lotID)
	if err != nil {
		ev.Msg("cambio de pallet rechazado")
		return nil, err
	}
	ev.Int("items", len(out.Items)).Msg("pallet actualizado")
	return out, nil
}

// ClosePallet cierra un pallet con al menos un bulto; desde ahí no admite cambios.
func (uc *PalletUseCase) ClosePallet(ctx context.Context, actor, palletID string) (*entity.Pallet, error) {
	op := ports.NewOp(actor)
	var out *entity.Pallet
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		req, p, err := lockPallet(ctx, repos, palletID)
		if err != nil {
			return err
		}
		if !req.Status.Accepts(entity.RequestEventClosePallet) {
			return fmt.Errorf("%w: %s no admite %s", domain.ErrInvalidTransition, req.Status, entity.RequestEventClosePallet)
		}
		if p.IsClosed() {
			return fmt.Errorf("%w: el pallet ya está cerrado", domain.ErrInvalidTransition)
		}
		if len(p.Items) == 0 {
			return fmt.Errorf("%w: el pallet está vacío", domain.ErrInvalidTransition)
		}
		closed := op.Now
		p.Status = entity.PalletStatusClosed
		p.ClosedAt = &closed
		p.UpdatedAt = op.Now
		if err := repos.Pallets.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return touchRequest(ctx, repos, op, req)
	})
	ev := uc.obs.Done(op, entity.RequestEventClosePallet, err).Str("pallet_id", palletID)
	if err != nil {
		ev.Msg("cierre de pallet rechazado")
		return nil, err
	}
	ev.Str("request_id", out.RequestID).Int("items", len(out.Items)).Msg("pallet cerrado")
	return out, nil
}

// ReopenPallet vuelve a abrir un pallet cerrado mientras la solicitud siga en preparación.
func (uc *PalletUseCase) ReopenPallet(ctx context.Context, actor, palletID string) (*entity.Pallet, error) {
	op := ports.NewOp(actor)
	var out *entity.Pallet
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		req, p, err := lockPallet(ctx, repos, palletID)
		if err != nil {
			return err
		}
		if req.Status != entity.RequestStatusInPreparation {
			return fmt.Errorf("%w: la solicitud está %s", domain.ErrInvalidTransition, req.Status)
		}
		if !p.IsClosed() || p.IsShipped() {
			return fmt.Errorf("%w: solo se reabre un pallet cerrado y no despachado", domain.ErrInvalidTransition)
		}
		p.Status = entity.PalletStatusOpen
		p.ClosedAt = nil
		p.UpdatedAt = op.Now
		if err := repos.Pallets.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return touchRequest(ctx, repos, op, req)
	})
	ev := uc.obs.Done(op, "reopen_pallet", err).Str("pallet_id", palletID)
	if err != nil {
		ev.Msg("reapertura de pallet rechazada")
		return nil, err
	}
	ev.Str("request_id", out.RequestID).Msg("pallet reabierto")
	return out, nil
}

// GetPallet devuelve el pallet o domain.ErrNotFound.
func (uc *PalletUseCase) GetPallet(ctx context.Context, id string) (*entity.Pallet, error) {
	var out *entity.Pallet
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		p, err := repos.Pallets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: pallet %s", domain.ErrNotFound, id)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByRequest lista los pallets de la solicitud en orden de creación.
func (uc *PalletUseCase) ListByRequest(ctx context.Context, requestID string) ([]*entity.Pallet, error) {
	var out []*entity.Pallet
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		req, err := repos.Requests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("%w: solicitud %s", domain.ErrNotFound, requestID)
		}
		out, err = repos.Pallets.ListByRequest(ctx, requestID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lockPallet resuelve la solicitud dueña del pallet y bloquea ambos en ese orden.
func lockPallet(ctx context.Context, repos repository.Repositories, palletID string) (*entity.MerchandiseRequest, *entity.Pallet, error) {
	p, err := repos.Pallets.GetByID(ctx, palletID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, fmt.Errorf("%w: pallet %s", domain.ErrNotFound, palletID)
	}
	req, err := lockRequest(ctx, repos, TransitionInput{RequestID: p.RequestID}, "")
	if err != nil {
		return nil, nil, err
	}
	p, err = repos.Pallets.GetForUpdate(ctx, palletID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, fmt.Errorf("%w: pallet %s", domain.ErrNotFound, palletID)
	}
	return req, p, nil
}

// touchRequest guarda la solicitud sin cambiar de estado para que las transiciones
// concurrentes detecten el cambio por versión.
func touchRequest(ctx context.Context, repos repository.Repositories, op ports.Op, req *entity.MerchandiseRequest) error {
	req.UpdatedAt = op.Now
	return repos.Requests.Update(ctx, req, req.Status)
}

func palletIdentifier(requestID string, n int) string {
	short := strings.ReplaceAll(requestID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("PAL-%s-%02d", strings.ToUpper(short), n)
}
