package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bultos-api/internal/application/ports"
	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	domaininv "github.com/jhoicas/bultos-api/internal/domain/inventory"
	"github.com/jhoicas/bultos-api/internal/domain/repository"
)

// FindLot carga el bulto (bloqueándolo si lock) o devuelve domain.ErrNotFound.
func FindLot(ctx context.Context, repos repository.Repositories, id string, lock bool) (*entity.Lot, error) {
	var (
		lot *entity.Lot
		err error
	)
	if lock {
		lot, err = repos.Lots.GetForUpdate(ctx, id)
	} else {
		lot, err = repos.Lots.GetByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, fmt.Errorf("%w: bulto %s", domain.ErrNotFound, id)
	}
	return lot, nil
}

// CheckMaterial verifica que la referencia exista en el catálogo.
func CheckMaterial(ctx context.Context, catalog repository.CatalogRepository, ref string) error {
	m, err := catalog.GetMaterial(ctx, ref)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnknownMaterial, ref)
	}
	return nil
}

// NewLotCode genera un código de etiqueta para un bulto sin padre.
func NewLotCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "B-" + strings.ToUpper(raw[:8])
}

// RecordMovement agrega una entrada al libro del bulto dentro de la transacción de op.
func RecordMovement(
	ctx context.Context,
	repos repository.Repositories,
	op ports.Op,
	lot *entity.Lot,
	movementType string,
	quantity decimal.Decimal,
	referenceType, referenceID string,
) error {
	return repos.Movements.Create(ctx, &entity.LotMovement{
		ID:            uuid.New().String(),
		TransactionID: op.TxID,
		LotID:         lot.ID,
		Type:          movementType,
		Quantity:      quantity,
		LocationID:    lot.LocationID,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		CreatedAt:     op.Now,
		CreatedBy:     op.Actor,
	})
}

// CreateLotInTx valida contra el catálogo y crea el bulto en la transacción del llamador.
// Con OriginPautaID el movimiento de alta es OUTPUT; si no, INTAKE.
func (uc *LotUseCase) CreateLotInTx(ctx context.Context, repos repository.Repositories, op ports.Op, in CreateLotInput) (*entity.Lot, error) {
	if in.MaterialRef == "" || in.LocationID == "" {
		return nil, fmt.Errorf("%w: material_ref y location_id son obligatorios", domain.ErrInvalidInput)
	}
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: la cantidad debe ser mayor a cero", domain.ErrInvalidInput)
	}
	if in.UnitCost.IsNegative() || in.UnitWeight.IsNegative() {
		return nil, fmt.Errorf("%w: costo y peso no pueden ser negativos", domain.ErrInvalidInput)
	}
	if err := CheckMaterial(ctx, uc.catalog, in.MaterialRef); err != nil {
		return nil, err
	}
	loc, err := uc.catalog.GetLocation(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, fmt.Errorf("%w: ubicación %s desconocida", domain.ErrInvalidInput, in.LocationID)
	}

	code := in.Code
	if code == "" {
		code = NewLotCode()
	}
	lot := &entity.Lot{
		ID:                uuid.New().String(),
		Code:              code,
		MaterialRef:       in.MaterialRef,
		TotalQuantity:     in.Quantity,
		AvailableQuantity: in.Quantity,
		UnitWeight:        in.UnitWeight,
		UnitCost:          in.UnitCost,
		LocationID:        in.LocationID,
		OriginPautaID:     in.OriginPautaID,
		ProviderBatchRef:  in.ProviderBatchRef,
		Status:            entity.LotStatusActive,
		Version:           1,
		CreatedAt:         op.Now,
		UpdatedAt:         op.Now,
		CreatedBy:         op.Actor,
	}
	if err := repos.Lots.Create(ctx, lot); err != nil {
		return nil, err
	}

	movType, refType, refID := entity.LotMovementIntake, entity.ReferenceIntake, in.ProviderBatchRef
	if in.OriginPautaID != nil {
		movType, refType, refID = entity.LotMovementOutput, entity.ReferencePauta, *in.OriginPautaID
	}
	if err := RecordMovement(ctx, repos, op, lot, movType, lot.TotalQuantity, refType, refID); err != nil {
		return nil, err
	}
	return lot, nil
}

// ReserveInTx bloquea el bulto, descuenta la cantidad y crea la reserva.
// Devuelve también el bulto actualizado para que el llamador lo siga modificando.
func (uc *LotUseCase) ReserveInTx(ctx context.Context, repos repository.Repositories, op ports.Op, in ReserveInput) (*entity.Reservation, *entity.Lot, error) {
	if in.HolderType == "" || in.HolderID == "" {
		return nil, nil, fmt.Errorf("%w: la reserva requiere holder_type y holder_id", domain.ErrInvalidInput)
	}
	lot, err := FindLot(ctx, repos, in.LotID, true)
	if err != nil {
		return nil, nil, err
	}
	if err := domaininv.CheckReservable(lot, in.Quantity); err != nil {
		return nil, nil, err
	}

	lot.AvailableQuantity = lot.AvailableQuantity.Sub(in.Quantity)
	lot.UpdatedAt = op.Now
	if err := repos.Lots.Update(ctx, lot); err != nil {
		return nil, nil, err
	}
	res := &entity.Reservation{
		ID:         uuid.New().String(),
		LotID:      lot.ID,
		Quantity:   in.Quantity,
		HolderType: in.HolderType,
		HolderID:   in.HolderID,
		Status:     entity.ReservationActive,
		CreatedAt:  op.Now,
		CreatedBy:  op.Actor,
	}
	if err := repos.Reservations.Create(ctx, res); err != nil {
		return nil, nil, err
	}
	if err := RecordMovement(ctx, repos, op, lot, entity.LotMovementReserve, in.Quantity.Neg(), in.HolderType, in.HolderID); err != nil {
		return nil, nil, err
	}
	return res, lot, nil
}

// ReleaseInTx devuelve la cantidad de una reserva activa al disponible del bulto.
func (uc *LotUseCase) ReleaseInTx(ctx context.Context, repos repository.Repositories, op ports.Op, res *entity.Reservation) (*entity.Lot, error) {
	if !res.IsActive() {
		return nil, fmt.Errorf("%w: la reserva está %s", domain.ErrInvalidTransition, res.Status)
	}
	lot, err := FindLot(ctx, repos, res.LotID, true)
	if err != nil {
		return nil, err
	}
	// solo el pallet dueño libera un bulto cargado
	if res.HolderType != entity.HolderPallet && (!lot.IsActive() || lot.OnPallet()) {
		return nil, fmt.Errorf("%w: el bulto está %s o cargado en un pallet", domain.ErrLotLocked, lot.Status)
	}
	restored := lot.AvailableQuantity.Add(res.Quantity)
	if restored.GreaterThan(lot.TotalQuantity) {
		return nil, fmt.Errorf("%w: la liberación excede el total del bulto", domain.ErrQuantityMismatch)
	}
	lot.AvailableQuantity = restored
	lot.UpdatedAt = op.Now
	if err := repos.Lots.Update(ctx, lot); err != nil {
		return nil, err
	}
	if err := repos.Reservations.Resolve(ctx, res, entity.ReservationReleased); err != nil {
		return nil, err
	}
	if err := RecordMovement(ctx, repos, op, lot, entity.LotMovementRelease, res.Quantity, res.HolderType, res.HolderID); err != nil {
		return nil, err
	}
	return lot, nil
}

// ConsumeInTx finaliza una reserva activa: la cantidad ya no vuelve al disponible.
// El estado del bulto lo decide el llamador (despacho o pauta).
func (uc *LotUseCase) ConsumeInTx(ctx context.Context, repos repository.Repositories, op ports.Op, res *entity.Reservation) error {
	if !res.IsActive() {
		return fmt.Errorf("%w: la reserva está %s", domain.ErrInvalidTransition, res.Status)
	}
	lot, err := FindLot(ctx, repos, res.LotID, false)
	if err != nil {
		return err
	}
	if err := repos.Reservations.Resolve(ctx, res, entity.ReservationConsumed); err != nil {
		return err
	}
	return RecordMovement(ctx, repos, op, lot, entity.LotMovementConsume, res.Quantity, res.HolderType, res.HolderID)
}

// SplitInTx divide el bulto en hijos cuya suma es el disponible; el padre queda consumido.
func (uc *LotUseCase) SplitInTx(ctx context.Context, repos repository.Repositories, op ports.Op, lotID string, quantities []decimal.Decimal) ([]*entity.Lot, error) {
	parent, err := FindLot(ctx, repos, lotID, true)
	if err != nil {
		return nil, err
	}
	if err := domaininv.CheckSplittable(parent); err != nil {
		return nil, err
	}
	active, err := repos.Reservations.ListActiveByLot(ctx, parent.ID)
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		return nil, fmt.Errorf("%w: el bulto tiene reservas activas", domain.ErrLotLocked)
	}
	if err := domaininv.ValidateSplit(parent.AvailableQuantity, quantities); err != nil {
		return nil, err
	}

	handedOver := parent.AvailableQuantity
	parent.AvailableQuantity = decimal.Zero
	parent.Status = entity.LotStatusConsumed
	parent.UpdatedAt = op.Now
	if err := repos.Lots.Update(ctx, parent); err != nil {
		return nil, err
	}
	if err := RecordMovement(ctx, repos, op, parent, entity.LotMovementSplitOut, handedOver.Neg(), entity.ReferenceLot, parent.ID); err != nil {
		return nil, err
	}

	parentID := parent.ID
	children := make([]*entity.Lot, 0, len(quantities))
	for i, q := range quantities {
		child := &entity.Lot{
			ID:                uuid.New().String(),
			Code:              domaininv.ChildCode(parent.Code, i+1),
			MaterialRef:       parent.MaterialRef,
			TotalQuantity:     q,
			AvailableQuantity: q,
			UnitWeight:        parent.UnitWeight,
			UnitCost:          parent.UnitCost,
			LocationID:        parent.LocationID,
			ParentLotID:       &parentID,
			ProviderBatchRef:  parent.ProviderBatchRef,
			Status:            entity.LotStatusActive,
			Version:           1,
			CreatedAt:         op.Now,
			UpdatedAt:         op.Now,
			CreatedBy:         op.Actor,
		}
		if err := repos.Lots.Create(ctx, child); err != nil {
			return nil, err
		}
		if err := RecordMovement(ctx, repos, op, child, entity.LotMovementSplitIn, q, entity.ReferenceLot, parent.ID); err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}
