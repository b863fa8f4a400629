package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bultos-api/internal/application/ports"
	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/internal/domain/repository"
)

// LotUseCase registro de bultos: alta, consulta, reservas y división.
// Los métodos *InTx reciben los repositorios de la transacción del llamador para que
// pallets y pautas compongan varias operaciones en una sola unidad de trabajo.
type LotUseCase struct {
	tx      ports.TxRunner
	catalog repository.CatalogRepository
	obs     *ports.Observer
}

// NewLotUseCase construye el caso de uso.
func NewLotUseCase(tx ports.TxRunner, catalog repository.CatalogRepository, obs *ports.Observer) *LotUseCase {
	if obs == nil {
		obs = ports.NewObserver(nil, nil)
	}
	return &LotUseCase{tx: tx, catalog: catalog, obs: obs}
}

// CreateLotInput datos de alta de un bulto (recepción de compra o salida de pauta).
type CreateLotInput struct {
	MaterialRef      string
	LocationID       string
	Quantity         decimal.Decimal
	UnitWeight       decimal.Decimal
	UnitCost         decimal.Decimal
	ProviderBatchRef string
	Code             string  // vacío = se genera
	OriginPautaID    *string // pauta que lo produjo
}

// ReserveInput datos de una reserva sobre un bulto.
type ReserveInput struct {
	LotID      string
	Quantity   decimal.Decimal
	HolderType string
	HolderID   string
}

// CreateLot da de alta un bulto con disponible == total.
func (uc *LotUseCase) CreateLot(ctx context.Context, actor string, in CreateLotInput) (*entity.Lot, error) {
	op := ports.NewOp(actor)
	var lot *entity.Lot
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		var err error
		lot, err = uc.CreateLotInTx(ctx, repos, op, in)
		return err
	})
	ev := uc.obs.Done(op, "create_lot", err).Str("material_ref", in.MaterialRef).Str("location_id", in.LocationID)
	if err != nil {
		ev.Msg("alta de bulto rechazada")
		return nil, err
	}
	ev.Str("lot_id", lot.ID).Str("quantity", lot.TotalQuantity.String()).Msg("alta de bulto")
	return lot, nil
}

// GetLot devuelve el bulto o domain.ErrNotFound.
func (uc *LotUseCase) GetLot(ctx context.Context, id string) (*entity.Lot, error) {
	var lot *entity.Lot
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		var err error
		lot, err = FindLot(ctx, repos, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// GetAvailable lista los bultos con disponible > 0 en la ubicación; materialRef vacío = todos.
// No tiene efectos.
func (uc *LotUseCase) GetAvailable(ctx context.Context, locationID, materialRef string) ([]*entity.Lot, error) {
	if locationID == "" {
		return nil, fmt.Errorf("%w: location_id es obligatorio", domain.ErrInvalidInput)
	}
	var lots []*entity.Lot
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		var err error
		lots, err = repos.Lots.ListAvailable(ctx, locationID, materialRef)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lots, nil
}

// GetLineage devuelve los hijos directos de un bulto dividido.
func (uc *LotUseCase) GetLineage(ctx context.Context, id string) ([]*entity.Lot, error) {
	var children []*entity.Lot
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		if _, err := FindLot(ctx, repos, id, false); err != nil {
			return err
		}
		var err error
		children, err = repos.Lots.ListChildren(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return children, nil
}

// ListMovements devuelve el libro de movimientos del bulto, más antiguos primero.
func (uc *LotUseCase) ListMovements(ctx context.Context, id string, limit, offset int) ([]*entity.LotMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var list []*entity.LotMovement
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		if _, err := FindLot(ctx, repos, id, false); err != nil {
			return err
		}
		var err error
		list, err = repos.Movements.ListByLot(ctx, id, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Reserve descuenta quantity del disponible del bulto y devuelve el token de reserva.
func (uc *LotUseCase) Reserve(ctx context.Context, actor string, in ReserveInput) (*entity.Reservation, error) {
	op := ports.NewOp(actor)
	var res *entity.Reservation
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		var err error
		res, _, err = uc.ReserveInTx(ctx, repos, op, in)
		return err
	})
	ev := uc.obs.Done(op, "reserve", err).Str("lot_id", in.LotID).Str("quantity", in.Quantity.String())
	if err != nil {
		ev.Msg("reserva rechazada")
		return nil, err
	}
	ev.Str("reservation_id", res.ID).Msg("reserva de bulto")
	return res, nil
}

// ReleaseReservation devuelve al disponible una reserva activa.
func (uc *LotUseCase) ReleaseReservation(ctx context.Context, actor, reservationID string) (*entity.Reservation, error) {
	op := ports.NewOp(actor)
	var res *entity.Reservation
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		r, err := repos.Reservations.GetByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("%w: reserva %s", domain.ErrNotFound, reservationID)
		}
		if r.HolderType != entity.HolderManual {
			// pallets y pautas liberan sus reservas por su propio flujo
			return fmt.Errorf("%w: la reserva pertenece a %s %s", domain.ErrLotLocked, r.HolderType, r.HolderID)
		}
		if _, err := uc.ReleaseInTx(ctx, repos, op, r); err != nil {
			return err
		}
		res = r
		return nil
	})
	ev := uc.obs.Done(op, "release_reservation", err).Str("reservation_id", reservationID)
	if err != nil {
		ev.Msg("liberación rechazada")
		return nil, err
	}
	ev.Str("lot_id", res.LotID).Msg("reserva liberada")
	return res, nil
}

// Split reparte todo el disponible del bulto en hijos con las cantidades dadas.
func (uc *LotUseCase) Split(ctx context.Context, actor, lotID string, quantities []decimal.Decimal) ([]*entity.Lot, error) {
	op := ports.NewOp(actor)
	var children []*entity.Lot
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		var err error
		children, err = uc.SplitInTx(ctx, repos, op, lotID, quantities)
		return err
	})
	ev := uc.obs.Done(op, "split", err).Str("lot_id", lotID).Int("parts", len(quantities))
	if err != nil {
		ev.Msg("división rechazada")
		return nil, err
	}
	ids := make([]string, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.ID)
	}
	ev.Strs("children", ids).Msg("bulto dividido")
	return children, nil
}
