package dispatch_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bultos-api/internal/application/dispatch"
	"github.com/jhoicas/bultos-api/internal/application/inventory"
	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/internal/infrastructure/memory"
)

const actor = "bodeguero-1"

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type fixture struct {
	lots     *inventory.LotUseCase
	requests *dispatch.RequestUseCase
	pallets  *dispatch.PalletUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog := memory.NewCatalog().
		AddMaterial(entity.Material{Ref: "MAT-1", Name: "Tela"}).
		AddMaterial(entity.Material{Ref: "MAT-2", Name: "Hilo"}).
		AddLocation(entity.Location{ID: "BOD-1", Name: "Central"}).
		AddLocation(entity.Location{ID: "BOD-2", Name: "Taller"})
	store := memory.NewStore()
	lots := inventory.NewLotUseCase(store, catalog, nil)
	return &fixture{
		lots:     lots,
		requests: dispatch.NewRequestUseCase(store, catalog, lots, nil),
		pallets:  dispatch.NewPalletUseCase(store, lots, nil),
	}
}

func (f *fixture) lot(t *testing.T, material string, qty int64) *entity.Lot {
	t.Helper()
	lot, err := f.lots.CreateLot(context.Background(), actor, inventory.CreateLotInput{
		MaterialRef: material, LocationID: "BOD-1", Quantity: d(qty),
	})
	require.NoError(t, err)
	return lot
}

func in(id string) dispatch.TransitionInput { return dispatch.TransitionInput{RequestID: id} }

// preparing crea una solicitud de MAT-1 y la deja en preparación.
func (f *fixture) preparing(t *testing.T, qty int64) *entity.MerchandiseRequest {
	t.Helper()
	ctx := context.Background()
	req, err := f.requests.Create(ctx, actor, dispatch.CreateRequestInput{
		SourceLocation:      "BOD-1",
		DestinationLocation: "BOD-2",
		LineItems:           []dispatch.LineItemInput{{MaterialRef: "MAT-1", Quantity: d(qty)}},
	})
	require.NoError(t, err)
	_, err = f.requests.Validate(ctx, actor, in(req.ID))
	require.NoError(t, err)
	req, err = f.requests.BeginPreparation(ctx, actor, in(req.ID))
	require.NoError(t, err)
	return req
}

// dispatched carga los bultos en un pallet, lo cierra y despacha.
func (f *fixture) dispatched(t *testing.T, lots ...*entity.Lot) *entity.MerchandiseRequest {
	t.Helper()
	ctx := context.Background()
	total := int64(0)
	for _, l := range lots {
		total += l.AvailableQuantity.IntPart()
	}
	req := f.preparing(t, total)
	p, err := f.pallets.CreatePallet(ctx, actor, in(req.ID))
	require.NoError(t, err)
	for _, l := range lots {
		_, err = f.pallets.AssignLot(ctx, actor, p.ID, l.ID)
		require.NoError(t, err)
	}
	_, err = f.pallets.ClosePallet(ctx, actor, p.ID)
	require.NoError(t, err)
	_, err = f.requests.MarkReady(ctx, actor, in(req.ID))
	require.NoError(t, err)
	req, err = f.requests.Dispatch(ctx, actor, dispatch.DispatchInput{
		TransitionInput: in(req.ID), DispatchRef: "GUIA-1", TransportMode: entity.TransportTruck,
	})
	require.NoError(t, err)
	require.Equal(t, entity.RequestStatusInTransit, req.Status)
	return req
}

func receive(req *entity.MerchandiseRequest, qty int64, loss bool) dispatch.ReceiveInput {
	return dispatch.ReceiveInput{
		TransitionInput: in(req.ID),
		Received:        map[string]decimal.Decimal{"MAT-1": d(qty)},
		LossDeclared:    loss,
	}
}

func TestDispatch_MarcaBultosEnTransito(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lot := f.lot(t, "MAT-1", 50)

	req := f.dispatched(t, lot)
	assert.True(t, req.LineItems[0].QuantityDispatched.Equal(d(50)))
	assert.NotNil(t, req.DispatchedAt)
	assert.Equal(t, "GUIA-1", req.DispatchRef)

	got, err := f.lots.GetLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.LotStatusInTransit, got.Status)
	assert.True(t, got.OnPallet())

	pallets, err := f.pallets.ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, pallets, 1)
	assert.True(t, pallets[0].IsShipped())

	_, err = f.requests.Cancel(ctx, actor, in(req.ID))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "después del despacho no se cancela")
}

func TestReceive_Completa(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lot := f.lot(t, "MAT-1", 50)
	req := f.dispatched(t, lot)

	req, err := f.requests.Receive(ctx, actor, receive(req, 50, false))
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusReceivedComplete, req.Status)

	got, _ := f.lots.GetLot(ctx, lot.ID)
	assert.Equal(t, "BOD-2", got.LocationID)
	assert.Equal(t, entity.LotStatusActive, got.Status)
	assert.True(t, got.AvailableQuantity.Equal(d(50)))
	assert.False(t, got.OnPallet())

	avail, err := f.lots.GetAvailable(ctx, "BOD-2", "MAT-1")
	require.NoError(t, err)
	assert.Len(t, avail, 1)

	_, err = f.requests.Receive(ctx, actor, receive(req, 0, false))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "estado terminal")
}

func TestReceive_ParcialQuedaAbierta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lot := f.lot(t, "MAT-1", 50)
	req := f.dispatched(t, lot)

	req, err := f.requests.Receive(ctx, actor, receive(req, 30, false))
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusReceivedPartial, req.Status)
	assert.True(t, req.LineItems[0].QuantityReceived.Equal(d(30)))

	got, _ := f.lots.GetLot(ctx, lot.ID)
	assert.True(t, got.AvailableQuantity.Equal(d(30)))
	assert.True(t, got.OnPallet(), "lo pendiente sigue en el pallet")

	_, err = f.requests.Receive(ctx, actor, receive(req, 21, false))
	assert.ErrorIs(t, err, domain.ErrQuantityMismatch)

	req, err = f.requests.Receive(ctx, actor, receive(req, 20, false))
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusReceivedComplete, req.Status)
	got, _ = f.lots.GetLot(ctx, lot.ID)
	assert.True(t, got.AvailableQuantity.Equal(d(50)))
	assert.False(t, got.OnPallet())
}

func TestReceive_ConMermaDaDeBajaElResiduo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.lot(t, "MAT-1", 30)
	second := f.lot(t, "MAT-1", 20)
	req := f.dispatched(t, first, second)

	req, err := f.requests.Receive(ctx, actor, receive(req, 30, true))
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusReceivedPartialWithLoss, req.Status)
	assert.True(t, req.LossDeclared)

	got, _ := f.lots.GetLot(ctx, first.ID)
	assert.Equal(t, entity.LotStatusActive, got.Status)
	assert.True(t, got.AvailableQuantity.Equal(d(30)))

	lost, _ := f.lots.GetLot(ctx, second.ID)
	assert.Equal(t, entity.LotStatusWrittenOff, lost.Status)
	assert.False(t, lost.OnPallet())

	movs, err := f.lots.ListMovements(ctx, second.ID, 0, 0)
	require.NoError(t, err)
	last := movs[len(movs)-1]
	assert.Equal(t, entity.LotMovementWriteOff, last.Type)
	assert.True(t, last.Quantity.Equal(d(20)))
}

func TestReceive_EntradaInvalida(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.dispatched(t, f.lot(t, "MAT-1", 10))

	_, err := f.requests.Receive(ctx, actor, dispatch.ReceiveInput{
		TransitionInput: in(req.ID),
		Received:        map[string]decimal.Decimal{"MAT-2": d(1)},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.requests.Receive(ctx, actor, receive(req, -1, false))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPallet_CerradoEsInmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.lot(t, "MAT-1", 10)
	b := f.lot(t, "MAT-1", 5)
	req := f.preparing(t, 15)

	p, err := f.pallets.CreatePallet(ctx, actor, in(req.ID))
	require.NoError(t, err)
	assert.Regexp(t, `^PAL-[0-9A-F]{8}-01$`, p.Identifier)

	_, err = f.pallets.ClosePallet(ctx, actor, p.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "un pallet vacío no se cierra")

	_, err = f.pallets.AssignLot(ctx, actor, p.ID, a.ID)
	require.NoError(t, err)
	_, err = f.pallets.ClosePallet(ctx, actor, p.ID)
	require.NoError(t, err)

	_, err = f.pallets.AssignLot(ctx, actor, p.ID, b.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.pallets.RemoveLot(ctx, actor, p.ID, a.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.pallets.ReopenPallet(ctx, actor, p.ID)
	require.NoError(t, err)
	p, err = f.pallets.AssignLot(ctx, actor, p.ID, b.ID)
	require.NoError(t, err)
	assert.Len(t, p.Items, 2)
}

func TestPallet_AsignacionYRetiro(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.lot(t, "MAT-1", 10)
	other := f.lot(t, "MAT-2", 10)
	req := f.preparing(t, 10)

	p1, err := f.pallets.CreatePallet(ctx, actor, in(req.ID))
	require.NoError(t, err)
	p2, err := f.pallets.CreatePallet(ctx, actor, in(req.ID))
	require.NoError(t, err)

	_, err = f.pallets.AssignLot(ctx, actor, p1.ID, other.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "material no solicitado")

	_, err = f.pallets.AssignLot(ctx, actor, p1.ID, a.ID)
	require.NoError(t, err)
	_, err = f.pallets.AssignLot(ctx, actor, p2.ID, a.ID)
	assert.ErrorIs(t, err, domain.ErrLotLocked, "un bulto en un solo pallet")

	_, err = f.lots.Split(ctx, actor, a.ID, []decimal.Decimal{d(5), d(5)})
	assert.ErrorIs(t, err, domain.ErrLotLocked)

	got, _ := f.lots.GetLot(ctx, a.ID)
	assert.True(t, got.AvailableQuantity.IsZero(), "la asignación reserva todo el disponible")

	_, err = f.requests.MarkReady(ctx, actor, in(req.ID))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "hay pallets abiertos")

	p1, err = f.pallets.RemoveLot(ctx, actor, p1.ID, a.ID)
	require.NoError(t, err)
	assert.Empty(t, p1.Items)
	got, _ = f.lots.GetLot(ctx, a.ID)
	assert.True(t, got.AvailableQuantity.Equal(d(10)))
	assert.False(t, got.OnPallet())
}

func TestPallet_BultoRetenidoSeDivideAntes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.lot(t, "MAT-1", 100)
	req := f.preparing(t, 70)
	p, err := f.pallets.CreatePallet(ctx, actor, in(req.ID))
	require.NoError(t, err)

	hold, err := f.lots.Reserve(ctx, actor, inventory.ReserveInput{
		LotID: a.ID, Quantity: d(30), HolderType: entity.HolderManual, HolderID: "op-1",
	})
	require.NoError(t, err)
	_, err = f.pallets.AssignLot(ctx, actor, p.ID, a.ID)
	assert.ErrorIs(t, err, domain.ErrLotLocked, "con retención el bulto no viaja completo")

	got, _ := f.lots.GetLot(ctx, a.ID)
	assert.False(t, got.OnPallet())
	assert.True(t, got.AvailableQuantity.Equal(d(70)), "el rechazo no deja efectos")

	_, err = f.lots.ReleaseReservation(ctx, actor, hold.ID)
	require.NoError(t, err)
	children, err := f.lots.Split(ctx, actor, a.ID, []decimal.Decimal{d(70), d(30)})
	require.NoError(t, err)

	p, err = f.pallets.AssignLot(ctx, actor, p.ID, children[0].ID)
	require.NoError(t, err)
	require.Len(t, p.Items, 1)
	assert.True(t, p.Items[0].Quantity.Equal(d(70)))

	rest, err := f.lots.GetLot(ctx, children[1].ID)
	require.NoError(t, err)
	assert.True(t, rest.AvailableQuantity.Equal(d(30)))
	assert.False(t, rest.OnPallet())
}

func TestPallet_CerradoBloqueaDivision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.lot(t, "MAT-1", 10)
	req := f.preparing(t, 10)
	p, err := f.pallets.CreatePallet(ctx, actor, in(req.ID))
	require.NoError(t, err)
	_, err = f.pallets.AssignLot(ctx, actor, p.ID, a.ID)
	require.NoError(t, err)
	_, err = f.pallets.ClosePallet(ctx, actor, p.ID)
	require.NoError(t, err)

	_, err = f.lots.Split(ctx, actor, a.ID, []decimal.Decimal{d(5), d(5)})
	assert.ErrorIs(t, err, domain.ErrLotLocked)

	children, err := f.lots.GetLineage(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestCancel_LiberaReservas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.lot(t, "MAT-1", 10)
	req := f.preparing(t, 10)
	p, err := f.pallets.CreatePallet(ctx, actor, in(req.ID))
	require.NoError(t, err)
	_, err = f.pallets.AssignLot(ctx, actor, p.ID, a.ID)
	require.NoError(t, err)

	req, err = f.requests.Cancel(ctx, actor, in(req.ID))
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusCancelled, req.Status)

	got, _ := f.lots.GetLot(ctx, a.ID)
	assert.True(t, got.AvailableQuantity.Equal(d(10)))
	assert.False(t, got.OnPallet())

	_, err = f.pallets.CreatePallet(ctx, actor, in(req.ID))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransiciones_Rechazadas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.Create(ctx, actor, dispatch.CreateRequestInput{
		SourceLocation:      "BOD-1",
		DestinationLocation: "BOD-2",
		LineItems:           []dispatch.LineItemInput{{MaterialRef: "DESCONOCIDO", Quantity: d(1)}},
	})
	require.NoError(t, err)

	_, err = f.requests.Validate(ctx, actor, in(req.ID))
	assert.ErrorIs(t, err, domain.ErrUnknownMaterial)
	got, _ := f.requests.Get(ctx, req.ID)
	assert.Equal(t, entity.RequestStatusCreated, got.Status, "la validación fallida no cambia el estado")

	_, err = f.requests.Dispatch(ctx, actor, dispatch.DispatchInput{
		TransitionInput: in(req.ID), DispatchRef: "G", TransportMode: entity.TransportVan,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.requests.Cancel(ctx, actor, dispatch.TransitionInput{RequestID: req.ID, ExpectedVersion: got.Version + 1})
	assert.ErrorIs(t, err, domain.ErrStaleState)

	_, err = f.requests.Cancel(ctx, actor, dispatch.TransitionInput{RequestID: req.ID, ExpectedVersion: got.Version})
	require.NoError(t, err)

	_, err = f.requests.Create(ctx, actor, dispatch.CreateRequestInput{
		SourceLocation: "BOD-1", DestinationLocation: "BOD-1",
		LineItems: []dispatch.LineItemInput{{MaterialRef: "MAT-1", Quantity: d(1)}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
