package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bultos-api/internal/application/inventory"
	"github.com/jhoicas/bultos-api/internal/application/ports"
	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/internal/domain/repository"
)

// RequestUseCase flujo de la solicitud de mercadería: validación, preparación, despacho,
// recepción y cancelación. Cada transición es compare-and-swap sobre (estado, versión).
type RequestUseCase struct {
	tx      ports.TxRunner
	catalog repository.CatalogRepository
	lots    *inventory.LotUseCase
	obs     *ports.Observer
}

// NewRequestUseCase construye el caso de uso.
func NewRequestUseCase(tx ports.TxRunner, catalog repository.CatalogRepository, lots *inventory.LotUseCase, obs *ports.Observer) *RequestUseCase {
	if obs == nil {
		obs = ports.NewObserver(nil, nil)
	}
	return &RequestUseCase{tx: tx, catalog: catalog, lots: lots, obs: obs}
}

// LineItemInput material y cantidad solicitada.
type LineItemInput struct {
	MaterialRef string
	Quantity    decimal.Decimal
}

// CreateRequestInput datos de una nueva solicitud.
type CreateRequestInput struct {
	SourceLocation      string
	DestinationLocation string
	LineItems           []LineItemInput
}

// TransitionInput identifica la solicitud y, opcionalmente, la versión leída por el operador.
// ExpectedVersion 0 omite la verificación.
type TransitionInput struct {
	RequestID       string
	ExpectedVersion int
}

// DispatchInput datos del despacho.
type DispatchInput struct {
	TransitionInput
	DispatchRef   string
	TransportMode string
}

// ReceiveInput cantidades confirmadas en destino por material (incrementales en cada llamada).
type ReceiveInput struct {
	TransitionInput
	Received     map[string]decimal.Decimal
	LossDeclared bool
}

// Create registra una solicitud en estado CREATED.
func (uc *RequestUseCase) Create(ctx context.Context, actor string, in CreateRequestInput) (*entity.MerchandiseRequest, error) {
	op := ports.NewOp(actor)
	req, err := uc.buildRequest(ctx, op, in)
	if err == nil {
		err = uc.tx.Run(ctx, func(repos repository.Repositories) error {
			return repos.Requests.Create(ctx, req)
		})
	}
	ev := uc.obs.Done(op, "create_request", err).
		Str("source", in.SourceLocation).
		Str("destination", in.DestinationLocation)
	if err != nil {
		ev.Msg("solicitud rechazada")
		return nil, err
	}
	ev.Str("request_id", req.ID).Msg("solicitud creada")
	return req, nil
}

func (uc *RequestUseCase) buildRequest(ctx context.Context, op ports.Op, in CreateRequestInput) (*entity.MerchandiseRequest, error) {
	if in.SourceLocation == "" || in.DestinationLocation == "" {
		return nil, fmt.Errorf("%w: origen y destino son obligatorios", domain.ErrInvalidInput)
	}
	if in.SourceLocation == in.DestinationLocation {
		return nil, fmt.Errorf("%w: origen y destino deben ser distintos", domain.ErrInvalidInput)
	}
	for _, id := range []string{in.SourceLocation, in.DestinationLocation} {
		loc, err := uc.catalog.GetLocation(ctx, id)
		if err != nil {
			return nil, err
		}
		if loc == nil {
			return nil, fmt.Errorf("%w: ubicación %s desconocida", domain.ErrInvalidInput, id)
		}
	}
	if len(in.LineItems) == 0 {
		return nil, fmt.Errorf("%w: la solicitud requiere al menos un material", domain.ErrInvalidInput)
	}
	seen := make(map[string]bool, len(in.LineItems))
	items := make([]entity.RequestLineItem, 0, len(in.LineItems))
	for _, li := range in.LineItems {
		if li.MaterialRef == "" || !li.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: cada línea requiere material y cantidad mayor a cero", domain.ErrInvalidInput)
		}
		if seen[li.MaterialRef] {
			return nil, fmt.Errorf("%w: material %s repetido", domain.ErrInvalidInput, li.MaterialRef)
		}
		seen[li.MaterialRef] = true
		items = append(items, entity.RequestLineItem{
			MaterialRef:        li.MaterialRef,
			QuantityRequested:  li.Quantity,
			QuantityDispatched: decimal.Zero,
			QuantityReceived:   decimal.Zero,
		})
	}
	return &entity.MerchandiseRequest{
		ID:                  uuid.New().String(),
		SourceLocation:      in.SourceLocation,
		DestinationLocation: in.DestinationLocation,
		Status:              entity.RequestStatusCreated,
		LineItems:           items,
		Version:             1,
		CreatedAt:           op.Now,
		UpdatedAt:           op.Now,
		CreatedBy:           op.Actor,
	}, nil
}

// Get devuelve la solicitud o domain.ErrNotFound.
func (uc *RequestUseCase) Get(ctx context.Context, id string) (*entity.MerchandiseRequest, error) {
	var req *entity.MerchandiseRequest
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		r, err := repos.Requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("%w: solicitud %s", domain.ErrNotFound, id)
		}
		req = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// List lista solicitudes, opcionalmente filtradas por estado, más recientes primero.
func (uc *RequestUseCase) List(ctx context.Context, status string, limit, offset int) ([]*entity.MerchandiseRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var list []*entity.MerchandiseRequest
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		var err error
		list, err = repos.Requests.List(ctx, status, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Validate verifica contra el catálogo todos los materiales solicitados.
// Un material desconocido falla con domain.ErrUnknownMaterial y el estado no cambia.
func (uc *RequestUseCase) Validate(ctx context.Context, actor string, in TransitionInput) (*entity.MerchandiseRequest, error) {
	return uc.transition(ctx, actor, entity.RequestEventValidate, in,
		func(_ repository.Repositories, _ ports.Op, req *entity.MerchandiseRequest) (entity.RequestStatus, error) {
			for _, li := range req.LineItems {
				if err := inventory.CheckMaterial(ctx, uc.catalog, li.MaterialRef); err != nil {
					return "", err
				}
			}
			return entity.RequestStatusValidated, nil
		})
}

// BeginPreparation habilita la creación de pallets.
func (uc *RequestUseCase) BeginPreparation(ctx context.Context, actor string, in TransitionInput) (*entity.MerchandiseRequest, error) {
	return uc.transition(ctx, actor, entity.RequestEventBeginPreparation, in,
		func(repository.Repositories, ports.Op, *entity.MerchandiseRequest) (entity.RequestStatus, error) {
			return entity.RequestStatusInPreparation, nil
		})
}

// MarkReady requiere al menos un pallet y todos cerrados.
func (uc *RequestUseCase) MarkReady(ctx context.Context, actor string, in TransitionInput) (*entity.MerchandiseRequest, error) {
	return uc.transition(ctx, actor, entity.RequestEventMarkReady, in,
		func(repos repository.Repositories, _ ports.Op, req *entity.MerchandiseRequest) (entity.RequestStatus, error) {
			pallets, err := repos.Pallets.ListByRequest(ctx, req.ID)
			if err != nil {
				return "", err
			}
			if len(pallets) == 0 {
				return "", fmt.Errorf("%w: la solicitud no tiene pallets", domain.ErrInvalidTransition)
			}
			for _, p := range pallets {
				if !p.IsClosed() {
					return "", fmt.Errorf("%w: el pallet %s sigue abierto", domain.ErrInvalidTransition, p.Identifier)
				}
				if len(p.Items) == 0 {
					return "", fmt.Errorf("%w: el pallet %s está vacío", domain.ErrInvalidTransition, p.Identifier)
				}
			}
			return entity.RequestStatusReadyForDispatch, nil
		})
}

// Dispatch marca los pallets como despachados, finaliza sus reservas y pone los bultos en tránsito.
// Es el punto irreversible: después ya no se cancela.
func (uc *RequestUseCase) Dispatch(ctx context.Context, actor string, in DispatchInput) (*entity.MerchandiseRequest, error) {
	if in.DispatchRef == "" {
		return nil, fmt.Errorf("%w: dispatch_ref es obligatorio", domain.ErrInvalidInput)
	}
	switch in.TransportMode {
	case entity.TransportTruck, entity.TransportVan, entity.TransportCourier, entity.TransportOwn:
	default:
		return nil, fmt.Errorf("%w: modo de transporte %q inválido", domain.ErrInvalidInput, in.TransportMode)
	}
	return uc.transition(ctx, actor, entity.RequestEventDispatch, in.TransitionInput,
		func(repos repository.Repositories, op ports.Op, req *entity.MerchandiseRequest) (entity.RequestStatus, error) {
			pallets, err := lockPallets(ctx, repos, req)
			if err != nil {
				return "", err
			}
			dispatched := make(map[string]decimal.Decimal)
			for _, p := range pallets {
				if !p.IsClosed() {
					return "", fmt.Errorf("%w: el pallet %s sigue abierto", domain.ErrInvalidTransition, p.Identifier)
				}
				for _, it := range p.Items {
					if err := uc.dispatchItem(ctx, repos, op, req, it); err != nil {
						return "", err
					}
					dispatched[it.MaterialRef] = dispatched[it.MaterialRef].Add(it.Quantity)
				}
				shipped := op.Now
				p.ShippedAt = &shipped
				p.UpdatedAt = op.Now
				if err := repos.Pallets.Update(ctx, p); err != nil {
					return "", err
				}
			}
			for i := range req.LineItems {
				req.LineItems[i].QuantityDispatched = dispatched[req.LineItems[i].MaterialRef]
			}
			at := op.Now
			req.DispatchRef = in.DispatchRef
			req.TransportMode = in.TransportMode
			req.DispatchedAt = &at
			return entity.RequestStatusInTransit, nil
		})
}

func (uc *RequestUseCase) dispatchItem(ctx context.Context, repos repository.Repositories, op ports.Op, req *entity.MerchandiseRequest, it entity.PalletItem) error {
	res, err := repos.Reservations.GetByID(ctx, it.ReservationID)
	if err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("%w: reserva %s del bulto %s", domain.ErrNotFound, it.ReservationID, it.LotID)
	}
	if err := uc.lots.ConsumeInTx(ctx, repos, op, res); err != nil {
		return err
	}
	lot, err := inventory.FindLot(ctx, repos, it.LotID, true)
	if err != nil {
		return err
	}
	lot.Status = entity.LotStatusInTransit
	lot.UpdatedAt = op.Now
	if err := repos.Lots.Update(ctx, lot); err != nil {
		return err
	}
	return inventory.RecordMovement(ctx, repos, op, lot, entity.LotMovementDispatch, it.Quantity, entity.ReferenceRequest, req.ID)
}

// Cancel libera todas las reservas de pallets aún no despachados.
func (uc *RequestUseCase) Cancel(ctx context.Context, actor string, in TransitionInput) (*entity.MerchandiseRequest, error) {
	return uc.transition(ctx, actor, entity.RequestEventCancel, in,
		func(repos repository.Repositories, op ports.Op, req *entity.MerchandiseRequest) (entity.RequestStatus, error) {
			pallets, err := lockPallets(ctx, repos, req)
			if err != nil {
				return "", err
			}
			for _, p := range pallets {
				for i := range p.Items {
					if p.Items[i].Resolved {
						continue
					}
					if err := uc.releaseItem(ctx, repos, op, &p.Items[i]); err != nil {
						return "", err
					}
				}
				p.UpdatedAt = op.Now
				if err := repos.Pallets.Update(ctx, p); err != nil {
					return "", err
				}
			}
			return entity.RequestStatusCancelled, nil
		})
}

// releaseItem libera la reserva del ítem y saca el bulto del pallet.
func (uc *RequestUseCase) releaseItem(ctx context.Context, repos repository.Repositories, op ports.Op, it *entity.PalletItem) error {
	res, err := repos.Reservations.GetByID(ctx, it.ReservationID)
	if err != nil {
		return err
	}
	if res == nil || !res.IsActive() {
		return fmt.Errorf("%w: la reserva del bulto %s no está activa", domain.ErrStaleState, it.LotID)
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
	it.Resolved = true
	return nil
}

// transition carga y bloquea la solicitud, aplica fn y guarda el nuevo estado con CAS.
func (uc *RequestUseCase) transition(
	ctx context.Context,
	actor, event string,
	in TransitionInput,
	fn func(repos repository.Repositories, op ports.Op, req *entity.MerchandiseRequest) (entity.RequestStatus, error),
) (*entity.MerchandiseRequest, error) {
	op := ports.NewOp(actor)
	var (
		out  *entity.MerchandiseRequest
		from entity.RequestStatus
	)
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		req, err := lockRequest(ctx, repos, in, event)
		if err != nil {
			return err
		}
		from = req.Status
		to, err := fn(repos, op, req)
		if err != nil {
			return err
		}
		req.Status = to
		req.UpdatedAt = op.Now
		if err := repos.Requests.Update(ctx, req, from); err != nil {
			return err
		}
		out = req
		return nil
	})
	ev := uc.obs.Done(op, event, err).Str("request_id", in.RequestID).Str("from", string(from))
	if err != nil {
		ev.Msg("transición rechazada")
		return nil, err
	}
	ev.Str("to", string(out.Status)).Int("version", out.Version).Msg("transición de solicitud")
	return out, nil
}

// lockRequest bloquea la solicitud y verifica versión esperada y, si event no es vacío,
// que el estado actual acepte el evento.
func lockRequest(ctx context.Context, repos repository.Repositories, in TransitionInput, event string) (*entity.MerchandiseRequest, error) {
	req, err := repos.Requests.GetForUpdate(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: solicitud %s", domain.ErrNotFound, in.RequestID)
	}
	if in.ExpectedVersion > 0 && req.Version != in.ExpectedVersion {
		return nil, fmt.Errorf("%w: versión actual %d, esperada %d", domain.ErrStaleState, req.Version, in.ExpectedVersion)
	}
	if event != "" && !req.Status.Accepts(event) {
		return nil, fmt.Errorf("%w: %s no admite %s", domain.ErrInvalidTransition, req.Status, event)
	}
	return req, nil
}

// lockPallets bloquea los pallets de la solicitud en el orden en que se crearon.
func lockPallets(ctx context.Context, repos repository.Repositories, req *entity.MerchandiseRequest) ([]*entity.Pallet, error) {
	pallets := make([]*entity.Pallet, 0, len(req.PalletIDs))
	for _, id := range req.PalletIDs {
		p, err := repos.Pallets.GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: pallet %s", domain.ErrNotFound, id)
		}
		pallets = append(pallets, p)
	}
	return pallets, nil
}
