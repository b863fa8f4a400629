package production

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bultos-api/internal/application/inventory"
	"github.com/jhoicas/bultos-api/internal/application/ports"
	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	domaininv "github.com/jhoicas/bultos-api/internal/domain/inventory"
	"github.com/jhoicas/bultos-api/internal/domain/repository"
)

// PautaUseCase ejecuta los procesos de valor agregado sobre un bulto de producción.
type PautaUseCase struct {
	tx      ports.TxRunner
	catalog repository.CatalogRepository
	lots    *inventory.LotUseCase
	obs     *ports.Observer
}

// NewPautaUseCase construye el caso de uso.
func NewPautaUseCase(tx ports.TxRunner, catalog repository.CatalogRepository, lots *inventory.LotUseCase, obs *ports.Observer) *PautaUseCase {
	if obs == nil {
		obs = ports.NewObserver(nil, nil)
	}
	return &PautaUseCase{tx: tx, catalog: catalog, lots: lots, obs: obs}
}

// CreatePautaInput datos de una pauta nueva.
type CreatePautaInput struct {
	LotID          string
	ProcessTypeID  string
	SequenceOrder  int
	Steps          []string // nombres en orden de ejecución
	RequiredInputs []entity.RequiredInput
}

// InputSelection bulto elegido por el operador para un insumo.
type InputSelection struct {
	MaterialRef string
	LotID       string
	Quantity    decimal.Decimal
}

// BeginInput selección de insumos al comenzar.
type BeginInput struct {
	PautaID         string
	ExpectedVersion int
	Selections      []InputSelection
}

// Outcome resultado declarado al completar. NewLotQuantity solo aplica si la pauta produce bultos.
type Outcome struct {
	QuantityWithdrawn decimal.Decimal
	OutputUnits       decimal.Decimal
	NewLotQuantity    *decimal.Decimal
}

// CompleteInput cierre de la pauta.
type CompleteInput struct {
	PautaID         string
	ExpectedVersion int
	Outcome         Outcome
}

// Create registra una pauta PENDING. El tipo de proceso se toma del catálogo y se copia.
func (uc *PautaUseCase) Create(ctx context.Context, actor string, in CreatePautaInput) (*entity.Pauta, error) {
	op := ports.NewOp(actor)
	var p *entity.Pauta
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		var err error
		p, err = uc.build(ctx, repos, op, in)
		if err != nil {
			return err
		}
		return repos.Pautas.Create(ctx, p)
	})
	ev := uc.obs.Done(op, "create_pauta", err).Str("lot_id", in.LotID).Int("sequence_order", in.SequenceOrder)
	if err != nil {
		ev.Msg("pauta rechazada")
		return nil, err
	}
	ev.Str("pauta_id", p.ID).Msg("pauta creada")
	return p, nil
}

func (uc *PautaUseCase) build(ctx context.Context, repos repository.Repositories, op ports.Op, in CreatePautaInput) (*entity.Pauta, error) {
	if in.SequenceOrder < 1 {
		return nil, fmt.Errorf("%w: sequence_order debe ser >= 1", domain.ErrInvalidInput)
	}
	if _, err := inventory.FindLot(ctx, repos, in.LotID, false); err != nil {
		return nil, err
	}
	pt, err := uc.catalog.GetProcessType(ctx, in.ProcessTypeID)
	if err != nil {
		return nil, err
	}
	if pt == nil {
		return nil, fmt.Errorf("%w: tipo de proceso %s desconocido", domain.ErrInvalidInput, in.ProcessTypeID)
	}
	siblings, err := repos.Pautas.ListByLot(ctx, in.LotID)
	if err != nil {
		return nil, err
	}
	for _, s := range siblings {
		if s.SequenceOrder == in.SequenceOrder {
			return nil, fmt.Errorf("%w: ya existe la pauta %d para el bulto", domain.ErrInvalidInput, in.SequenceOrder)
		}
		if s.SequenceOrder > in.SequenceOrder && s.Status != entity.ProcessPending {
			return nil, fmt.Errorf("%w: la pauta %d ya está %s", domain.ErrInvalidTransition, s.SequenceOrder, s.Status)
		}
	}

	seen := make(map[string]bool, len(in.RequiredInputs))
	for _, ri := range in.RequiredInputs {
		if !ri.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: la cantidad de cada insumo debe ser mayor a cero", domain.ErrInvalidInput)
		}
		if seen[ri.MaterialRef] {
			return nil, fmt.Errorf("%w: insumo %s repetido", domain.ErrInvalidInput, ri.MaterialRef)
		}
		seen[ri.MaterialRef] = true
		if err := inventory.CheckMaterial(ctx, uc.catalog, ri.MaterialRef); err != nil {
			return nil, err
		}
	}

	id := uuid.New().String()
	steps := make([]entity.StepRecord, 0, len(in.Steps))
	for i, name := range in.Steps {
		if name == "" {
			return nil, fmt.Errorf("%w: los pasos requieren nombre", domain.ErrInvalidInput)
		}
		steps = append(steps, entity.StepRecord{
			ID:      uuid.New().String(),
			PautaID: id,
			Order:   i + 1,
			Name:    name,
			Status:  entity.ProcessPending,
		})
	}
	return &entity.Pauta{
		ID:                id,
		LotID:             in.LotID,
		ProcessTypeID:     pt.ID,
		SequenceOrder:     in.SequenceOrder,
		Status:            entity.ProcessPending,
		ProducesNewLots:   pt.ProducesNewLots,
		OutputMaterialRef: pt.OutputMaterialRef,
		Steps:             steps,
		RequiredInputs:    append([]entity.RequiredInput(nil), in.RequiredInputs...),
		QuantityWithdrawn: decimal.Zero,
		OutputUnits:       decimal.Zero,
		Version:           1,
		CreatedAt:         op.Now,
		UpdatedAt:         op.Now,
		CreatedBy:         op.Actor,
	}, nil
}

// Get devuelve la pauta o domain.ErrNotFound.
func (uc *PautaUseCase) Get(ctx context.Context, id string) (*entity.Pauta, error) {
	var p *entity.Pauta
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		var err error
		p, err = findPauta(ctx, repos, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListByLot devuelve las pautas del bulto ordenadas por SequenceOrder.
func (uc *PautaUseCase) ListByLot(ctx context.Context, lotID string) ([]*entity.Pauta, error) {
	var list []*entity.Pauta
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		if _, err := inventory.FindLot(ctx, repos, lotID, false); err != nil {
			return err
		}
		var err error
		list, err = repos.Pautas.ListByLot(ctx, lotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Begin verifica la secuencia, reserva los insumos (dividiendo cuando se usa una parte del
// bulto) y pasa la pauta a IN_PROGRESS.
func (uc *PautaUseCase) Begin(ctx context.Context, actor string, in BeginInput) (*entity.Pauta, error) {
	op := ports.NewOp(actor)
	var out *entity.Pauta
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		p, err := lockPauta(ctx, repos, in.PautaID, in.ExpectedVersion)
		if err != nil {
			return err
		}
		if p.Status != entity.ProcessPending {
			return fmt.Errorf("%w: la pauta está %s", domain.ErrInvalidTransition, p.Status)
		}
		siblings, err := repos.Pautas.ListByLot(ctx, p.LotID)
		if err != nil {
			return err
		}
		instances := make([]entity.Pauta, 0, len(siblings))
		for _, s := range siblings {
			instances = append(instances, *s)
		}
		if !domaininv.CanStart(instances, p.SequenceOrder) {
			return domain.ErrPrecedingProcessIncomplete
		}

		selections, err := matchSelections(p.RequiredInputs, in.Selections)
		if err != nil {
			return err
		}
		for _, sel := range selections {
			ci, err := uc.reserveInput(ctx, repos, op, p, sel)
			if err != nil {
				return err
			}
			p.ConsumedInputs = append(p.ConsumedInputs, ci)
		}

		started := op.Now
		p.Status = entity.ProcessInProgress
		p.StartedAt = &started
		p.UpdatedAt = op.Now
		if err := repos.Pautas.Update(ctx, p, entity.ProcessPending); err != nil {
			return err
		}
		out = p
		return nil
	})
	ev := uc.obs.Done(op, "begin_pauta", err).Str("pauta_id", in.PautaID)
	if err != nil {
		ev.Msg("inicio de pauta rechazado")
		return nil, err
	}
	ev.Int("inputs", len(out.ConsumedInputs)).Msg("pauta iniciada")
	return out, nil
}

// matchSelections exige exactamente una selección por insumo, con la cantidad requerida.
func matchSelections(required []entity.RequiredInput, selections []InputSelection) ([]InputSelection, error) {
	if len(selections) != len(required) {
		return nil, fmt.Errorf("%w: se esperan %d selecciones, llegaron %d", domain.ErrInvalidInput, len(required), len(selections))
	}
	byMaterial := make(map[string]InputSelection, len(selections))
	for _, s := range selections {
		if _, dup := byMaterial[s.MaterialRef]; dup {
			return nil, fmt.Errorf("%w: selección repetida para %s", domain.ErrInvalidInput, s.MaterialRef)
		}
		byMaterial[s.MaterialRef] = s
	}
	ordered := make([]InputSelection, 0, len(required))
	for _, ri := range required {
		s, ok := byMaterial[ri.MaterialRef]
		if !ok {
			return nil, fmt.Errorf("%w: falta la selección de %s", domain.ErrInvalidInput, ri.MaterialRef)
		}
		if !s.Quantity.Equal(ri.Quantity) {
			return nil, fmt.Errorf("%w: %s requiere %s, seleccionado %s", domain.ErrQuantityMismatch, ri.MaterialRef, ri.Quantity, s.Quantity)
		}
		ordered = append(ordered, s)
	}
	return ordered, nil
}

func (uc *PautaUseCase) reserveInput(ctx context.Context, repos repository.Repositories, op ports.Op, p *entity.Pauta, sel InputSelection) (entity.ConsumedInput, error) {
	lot, err := inventory.FindLot(ctx, repos, sel.LotID, true)
	if err != nil {
		return entity.ConsumedInput{}, err
	}
	if lot.MaterialRef != sel.MaterialRef {
		return entity.ConsumedInput{}, fmt.Errorf("%w: el bulto %s es de %s", domain.ErrInvalidInput, lot.Code, lot.MaterialRef)
	}
	if err := domaininv.CheckReservable(lot, sel.Quantity); err != nil {
		return entity.ConsumedInput{}, err
	}

	target := lot.ID
	if sel.Quantity.LessThan(lot.AvailableQuantity) {
		rest := lot.AvailableQuantity.Sub(sel.Quantity)
		children, err := uc.lots.SplitInTx(ctx, repos, op, lot.ID, []decimal.Decimal{sel.Quantity, rest})
		if err != nil {
			return entity.ConsumedInput{}, err
		}
		target = children[0].ID
	}
	res, _, err := uc.lots.ReserveInTx(ctx, repos, op, inventory.ReserveInput{
		LotID:      target,
		Quantity:   sel.Quantity,
		HolderType: entity.HolderPauta,
		HolderID:   p.ID,
	})
	if err != nil {
		return entity.ConsumedInput{}, err
	}
	return entity.ConsumedInput{
		MaterialRef:   sel.MaterialRef,
		LotID:         target,
		Quantity:      sel.Quantity,
		ReservationID: res.ID,
	}, nil
}

// StartStep inicia un paso PENDING cuyo anterior esté completado.
func (uc *PautaUseCase) StartStep(ctx context.Context, actor, stepID string) (*entity.Pauta, error) {
	return uc.stepTransition(ctx, actor, "start_step", stepID, func(p *entity.Pauta, s *entity.StepRecord, op ports.Op) error {
		if s.Status != entity.ProcessPending {
			return fmt.Errorf("%w: el paso está %s", domain.ErrInvalidTransition, s.Status)
		}
		if !domaininv.CanStartStep(p.Steps, s.Order) {
			return domain.ErrPrecedingStepIncomplete
		}
		at := op.Now
		s.Status = entity.ProcessInProgress
		s.StartedAt = &at
		return nil
	})
}

// CompleteStep completa un paso en curso.
func (uc *PautaUseCase) CompleteStep(ctx context.Context, actor, stepID string) (*entity.Pauta, error) {
	return uc.stepTransition(ctx, actor, "complete_step", stepID, func(_ *entity.Pauta, s *entity.StepRecord, op ports.Op) error {
		if s.Status != entity.ProcessInProgress {
			return fmt.Errorf("%w: el paso está %s", domain.ErrInvalidTransition, s.Status)
		}
		at := op.Now
		s.Status = entity.ProcessCompleted
		s.CompletedAt = &at
		return nil
	})
}

func (uc *PautaUseCase) stepTransition(
	ctx context.Context,
	actor, operation, stepID string,
	fn func(p *entity.Pauta, s *entity.StepRecord, op ports.Op) error,
) (*entity.Pauta, error) {
	op := ports.NewOp(actor)
	var out *entity.Pauta
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		pautaID, err := repos.Pautas.FindIDByStep(ctx, stepID)
		if err != nil {
			return err
		}
		if pautaID == "" {
			return fmt.Errorf("%w: paso %s", domain.ErrNotFound, stepID)
		}
		p, err := lockPauta(ctx, repos, pautaID, 0)
		if err != nil {
			return err
		}
		if p.Status != entity.ProcessInProgress {
			return fmt.Errorf("%w: la pauta está %s", domain.ErrInvalidTransition, p.Status)
		}
		s := p.Step(stepID)
		if err := fn(p, s, op); err != nil {
			return err
		}
		p.UpdatedAt = op.Now
		if err := repos.Pautas.Update(ctx, p, entity.ProcessInProgress); err != nil {
			return err
		}
		out = p
		return nil
	})
	ev := uc.obs.Done(op, operation, err).Str("step_id", stepID)
	if err != nil {
		ev.Msg("cambio de paso rechazado")
		return nil, err
	}
	ev.Str("pauta_id", out.ID).Msg("paso actualizado")
	return out, nil
}

// Complete registra el resultado: retira del bulto de producción, consume los insumos
// reservados y, si el proceso produce bultos, crea el bulto resultante.
func (uc *PautaUseCase) Complete(ctx context.Context, actor string, in CompleteInput) (*entity.Pauta, error) {
	out := in.Outcome
	if out.QuantityWithdrawn.IsNegative() || out.OutputUnits.IsNegative() {
		return nil, fmt.Errorf("%w: las cantidades no pueden ser negativas", domain.ErrInvalidInput)
	}
	op := ports.NewOp(actor)
	var done *entity.Pauta
	err := uc.tx.Run(ctx, func(repos repository.Repositories) error {
		p, err := lockPauta(ctx, repos, in.PautaID, in.ExpectedVersion)
		if err != nil {
			return err
		}
		if p.Status != entity.ProcessInProgress || !p.AllStepsCompleted() {
			return domain.ErrProcessNotReady
		}
		hasOutput := out.NewLotQuantity != nil && out.NewLotQuantity.IsPositive()
		if p.ProducesNewLots && !hasOutput {
			return domain.ErrMissingOutputQuantity
		}
		if !p.ProducesNewLots && out.NewLotQuantity != nil && !out.NewLotQuantity.IsZero() {
			return domain.ErrUnexpectedOutput
		}

		prod, err := inventory.FindLot(ctx, repos, p.LotID, true)
		if err != nil {
			return err
		}
		if out.QuantityWithdrawn.IsPositive() {
			if err := withdraw(ctx, repos, op, p, prod, out.QuantityWithdrawn); err != nil {
				return err
			}
		}

		active, err := repos.Reservations.ListActiveByHolder(ctx, entity.HolderPauta, p.ID)
		if err != nil {
			return err
		}
		for _, res := range active {
			if err := uc.consumeInput(ctx, repos, op, res); err != nil {
				return err
			}
		}

		if hasOutput {
			material := p.OutputMaterialRef
			if material == "" {
				material = prod.MaterialRef
			}
			pautaID := p.ID
			lot, err := uc.lots.CreateLotInTx(ctx, repos, op, inventory.CreateLotInput{
				MaterialRef:      material,
				LocationID:       prod.LocationID,
				Quantity:         *out.NewLotQuantity,
				UnitWeight:       prod.UnitWeight,
				UnitCost:         prod.UnitCost,
				ProviderBatchRef: prod.ProviderBatchRef,
				OriginPautaID:    &pautaID,
			})
			if err != nil {
				return err
			}
			p.OutputLotID = &lot.ID
		}

		completed := op.Now
		p.Status = entity.ProcessCompleted
		p.CompletedAt = &completed
		p.QuantityWithdrawn = out.QuantityWithdrawn
		p.OutputUnits = out.OutputUnits
		p.UpdatedAt = op.Now
		if err := repos.Pautas.Update(ctx, p, entity.ProcessInProgress); err != nil {
			return err
		}
		done = p
		return nil
	})
	ev := uc.obs.Done(op, "complete_pauta", err).Str("pauta_id", in.PautaID)
	if err != nil {
		ev.Msg("cierre de pauta rechazado")
		return nil, err
	}
	if done.OutputLotID != nil {
		ev = ev.Str("output_lot_id", *done.OutputLotID)
	}
	ev.Str("withdrawn", done.QuantityWithdrawn.String()).Msg("pauta completada")
	return done, nil
}

func withdraw(ctx context.Context, repos repository.Repositories, op ports.Op, p *entity.Pauta, prod *entity.Lot, q decimal.Decimal) error {
	if prod.OnPallet() || !prod.IsActive() {
		return domain.ErrLotLocked
	}
	if q.GreaterThan(prod.AvailableQuantity) {
		return domain.ErrInsufficientQuantity
	}
	prod.AvailableQuantity = prod.AvailableQuantity.Sub(q)
	prod.UpdatedAt = op.Now
	if err := repos.Lots.Update(ctx, prod); err != nil {
		return err
	}
	return inventory.RecordMovement(ctx, repos, op, prod, entity.LotMovementWithdraw, q.Neg(), entity.ReferencePauta, p.ID)
}

// consumeInput finaliza la reserva del insumo; el bulto agotado queda CONSUMED.
func (uc *PautaUseCase) consumeInput(ctx context.Context, repos repository.Repositories, op ports.Op, res *entity.Reservation) error {
	if err := uc.lots.ConsumeInTx(ctx, repos, op, res); err != nil {
		return err
	}
	lot, err := inventory.FindLot(ctx, repos, res.LotID, true)
	if err != nil {
		return err
	}
	if !lot.AvailableQuantity.IsZero() {
		return nil
	}
	remaining, err := repos.Reservations.ListActiveByLot(ctx, lot.ID)
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return nil
	}
	lot.Status = entity.LotStatusConsumed
	lot.UpdatedAt = op.Now
	return repos.Lots.Update(ctx, lot)
}

func findPauta(ctx context.Context, repos repository.Repositories, id string, lock bool) (*entity.Pauta, error) {
	var (
		p   *entity.Pauta
		err error
	)
	if lock {
		p, err = repos.Pautas.GetForUpdate(ctx, id)
	} else {
		p, err = repos.Pautas.GetByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: pauta %s", domain.ErrNotFound, id)
	}
	return p, nil
}

func lockPauta(ctx context.Context, repos repository.Repositories, id string, expectedVersion int) (*entity.Pauta, error) {
	p, err := findPauta(ctx, repos, id, true)
	if err != nil {
		return nil, err
	}
	if expectedVersion > 0 && p.Version != expectedVersion {
		return nil, fmt.Errorf("%w: versión actual %d, esperada %d", domain.ErrStaleState, p.Version, expectedVersion)
	}
	return p, nil
}
