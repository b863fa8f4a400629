package production_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bultos-api/internal/application/inventory"
	"github.com/jhoicas/bultos-api/internal/application/production"
	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/internal/infrastructure/memory"
)

const actor = "produccion-1"

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func dp(v int64) *decimal.Decimal {
	x := d(v)
	return &x
}

type fixture struct {
	lots   *inventory.LotUseCase
	pautas *production.PautaUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog := memory.NewCatalog().
		AddMaterial(entity.Material{Ref: "TELA", Name: "Tela"}).
		AddMaterial(entity.Material{Ref: "HILO", Name: "Hilo"}).
		AddMaterial(entity.Material{Ref: "POLERA", Name: "Polera"}).
		AddLocation(entity.Location{ID: "TALLER", Name: "Taller"}).
		AddProcessType(entity.ProcessType{ID: "CORTE", Code: "CORTE"}).
		AddProcessType(entity.ProcessType{ID: "CONFECCION", Code: "CONF", ProducesNewLots: true, OutputMaterialRef: "POLERA"})
	store := memory.NewStore()
	lots := inventory.NewLotUseCase(store, catalog, nil)
	return &fixture{lots: lots, pautas: production.NewPautaUseCase(store, catalog, lots, nil)}
}

func (f *fixture) lot(t *testing.T, material string, qty int64) *entity.Lot {
	t.Helper()
	lot, err := f.lots.CreateLot(context.Background(), actor, inventory.CreateLotInput{
		Code: material, MaterialRef: material, LocationID: "TALLER", Quantity: d(qty), UnitCost: d(3),
	})
	require.NoError(t, err)
	return lot
}

func (f *fixture) pauta(t *testing.T, in production.CreatePautaInput) *entity.Pauta {
	t.Helper()
	p, err := f.pautas.Create(context.Background(), actor, in)
	require.NoError(t, err)
	return p
}

func TestBegin_RespetaLaSecuencia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lot := f.lot(t, "TELA", 100)

	p1 := f.pauta(t, production.CreatePautaInput{LotID: lot.ID, ProcessTypeID: "CORTE", SequenceOrder: 1})
	p2 := f.pauta(t, production.CreatePautaInput{LotID: lot.ID, ProcessTypeID: "CORTE", SequenceOrder: 2})
	f.pauta(t, production.CreatePautaInput{LotID: lot.ID, ProcessTypeID: "CORTE", SequenceOrder: 3})

	_, err := f.pautas.Begin(ctx, actor, production.BeginInput{PautaID: p2.ID})
	assert.ErrorIs(t, err, domain.ErrPrecedingProcessIncomplete)

	_, err = f.pautas.Begin(ctx, actor, production.BeginInput{PautaID: p1.ID})
	require.NoError(t, err)
	_, err = f.pautas.Begin(ctx, actor, production.BeginInput{PautaID: p2.ID})
	assert.ErrorIs(t, err, domain.ErrPrecedingProcessIncomplete, "en curso no basta")

	_, err = f.pautas.Complete(ctx, actor, production.CompleteInput{PautaID: p1.ID})
	require.NoError(t, err)
	p2, err = f.pautas.Begin(ctx, actor, production.BeginInput{PautaID: p2.ID})
	require.NoError(t, err)
	assert.Equal(t, entity.ProcessInProgress, p2.Status)

	_, err = f.pautas.Create(ctx, actor, production.CreatePautaInput{LotID: lot.ID, ProcessTypeID: "CORTE", SequenceOrder: 2})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "orden repetido")

	list, err := f.pautas.ListByLot(ctx, lot.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{list[0].SequenceOrder, list[1].SequenceOrder, list[2].SequenceOrder})
}

func TestBegin_DivideYReservaInsumos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prod := f.lot(t, "TELA", 100)
	hilo := f.lot(t, "HILO", 100)

	p := f.pauta(t, production.CreatePautaInput{
		LotID: prod.ID, ProcessTypeID: "CORTE", SequenceOrder: 1,
		RequiredInputs: []entity.RequiredInput{{MaterialRef: "HILO", Quantity: d(30)}},
	})

	p, err := f.pautas.Begin(ctx, actor, production.BeginInput{
		PautaID:    p.ID,
		Selections: []production.InputSelection{{MaterialRef: "HILO", LotID: hilo.ID, Quantity: d(30)}},
	})
	require.NoError(t, err)
	require.Len(t, p.ConsumedInputs, 1)

	children, err := f.lots.GetLineage(ctx, hilo.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, children[0].ID, p.ConsumedInputs[0].LotID)
	assert.True(t, children[0].AvailableQuantity.IsZero(), "el hijo usado queda reservado")
	assert.True(t, children[1].AvailableQuantity.Equal(d(70)))

	parent, _ := f.lots.GetLot(ctx, hilo.ID)
	assert.Equal(t, entity.LotStatusConsumed, parent.Status)

	_, err = f.pautas.Complete(ctx, actor, production.CompleteInput{PautaID: p.ID})
	require.NoError(t, err)
	used, _ := f.lots.GetLot(ctx, children[0].ID)
	assert.Equal(t, entity.LotStatusConsumed, used.Status)
}

func TestBegin_BultoCompletoNoSeDivide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prod := f.lot(t, "TELA", 100)
	hilo := f.lot(t, "HILO", 30)

	p := f.pauta(t, production.CreatePautaInput{
		LotID: prod.ID, ProcessTypeID: "CORTE", SequenceOrder: 1,
		RequiredInputs: []entity.RequiredInput{{MaterialRef: "HILO", Quantity: d(30)}},
	})
	p, err := f.pautas.Begin(ctx, actor, production.BeginInput{
		PautaID:    p.ID,
		Selections: []production.InputSelection{{MaterialRef: "HILO", LotID: hilo.ID, Quantity: d(30)}},
	})
	require.NoError(t, err)
	assert.Equal(t, hilo.ID, p.ConsumedInputs[0].LotID)

	children, err := f.lots.GetLineage(ctx, hilo.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestBegin_ReservaDeInsumoNoSeLiberaAMano(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prod := f.lot(t, "TELA", 100)
	hilo := f.lot(t, "HILO", 5)

	p := f.pauta(t, production.CreatePautaInput{
		LotID: prod.ID, ProcessTypeID: "CORTE", SequenceOrder: 1,
		RequiredInputs: []entity.RequiredInput{{MaterialRef: "HILO", Quantity: d(5)}},
	})
	p, err := f.pautas.Begin(ctx, actor, production.BeginInput{
		PautaID:    p.ID,
		Selections: []production.InputSelection{{MaterialRef: "HILO", LotID: hilo.ID, Quantity: d(5)}},
	})
	require.NoError(t, err)
	require.Len(t, p.ConsumedInputs, 1)

	_, err = f.lots.ReleaseReservation(ctx, actor, p.ConsumedInputs[0].ReservationID)
	assert.ErrorIs(t, err, domain.ErrLotLocked)

	_, err = f.pautas.Complete(ctx, actor, production.CompleteInput{PautaID: p.ID})
	require.NoError(t, err)
	used, err := f.lots.GetLot(ctx, hilo.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.LotStatusConsumed, used.Status)
	assert.True(t, used.AvailableQuantity.IsZero())
}

func TestCreate_RechazaOrdenAnteriorAUnaPautaIniciada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lot := f.lot(t, "TELA", 100)

	p2 := f.pauta(t, production.CreatePautaInput{LotID: lot.ID, ProcessTypeID: "CORTE", SequenceOrder: 2})
	_, err := f.pautas.Begin(ctx, actor, production.BeginInput{PautaID: p2.ID})
	require.NoError(t, err)

	_, err = f.pautas.Create(ctx, actor, production.CreatePautaInput{LotID: lot.ID, ProcessTypeID: "CORTE", SequenceOrder: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	f.pauta(t, production.CreatePautaInput{LotID: lot.ID, ProcessTypeID: "CORTE", SequenceOrder: 3})
	list, err := f.pautas.ListByLot(ctx, lot.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []int{2, 3}, []int{list[0].SequenceOrder, list[1].SequenceOrder})
}

func TestBegin_SeleccionesInvalidas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prod := f.lot(t, "TELA", 100)
	hilo := f.lot(t, "HILO", 20)

	p := f.pauta(t, production.CreatePautaInput{
		LotID: prod.ID, ProcessTypeID: "CORTE", SequenceOrder: 1,
		RequiredInputs: []entity.RequiredInput{{MaterialRef: "HILO", Quantity: d(30)}},
	})

	_, err := f.pautas.Begin(ctx, actor, production.BeginInput{PautaID: p.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "falta la selección")

	_, err = f.pautas.Begin(ctx, actor, production.BeginInput{
		PautaID:    p.ID,
		Selections: []production.InputSelection{{MaterialRef: "HILO", LotID: hilo.ID, Quantity: d(20)}},
	})
	assert.ErrorIs(t, err, domain.ErrQuantityMismatch)

	_, err = f.pautas.Begin(ctx, actor, production.BeginInput{
		PautaID:    p.ID,
		Selections: []production.InputSelection{{MaterialRef: "HILO", LotID: hilo.ID, Quantity: d(30)}},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientQuantity)

	_, err = f.pautas.Begin(ctx, actor, production.BeginInput{
		PautaID:    p.ID,
		Selections: []production.InputSelection{{MaterialRef: "HILO", LotID: prod.ID, Quantity: d(30)}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "el bulto es de otro material")

	_, err = f.pautas.Begin(ctx, actor, production.BeginInput{PautaID: p.ID, ExpectedVersion: 7})
	assert.ErrorIs(t, err, domain.ErrStaleState)

	got, err := f.pautas.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ProcessPending, got.Status)

	_, err = f.pautas.Create(ctx, actor, production.CreatePautaInput{
		LotID: prod.ID, ProcessTypeID: "CORTE", SequenceOrder: 2,
		RequiredInputs: []entity.RequiredInput{{MaterialRef: "BOTON", Quantity: d(1)}},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownMaterial)
}

func TestPasos_EnOrden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prod := f.lot(t, "TELA", 100)

	p := f.pauta(t, production.CreatePautaInput{
		LotID: prod.ID, ProcessTypeID: "CORTE", SequenceOrder: 1,
		Steps: []string{"marcar", "cortar"},
	})
	first, second := p.Steps[0].ID, p.Steps[1].ID

	_, err := f.pautas.StartStep(ctx, actor, first)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "la pauta aún no comienza")

	_, err = f.pautas.Begin(ctx, actor, production.BeginInput{PautaID: p.ID})
	require.NoError(t, err)

	_, err = f.pautas.StartStep(ctx, actor, second)
	assert.ErrorIs(t, err, domain.ErrPrecedingStepIncomplete)

	_, err = f.pautas.CompleteStep(ctx, actor, first)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "no se completa un paso sin iniciar")

	_, err = f.pautas.StartStep(ctx, actor, first)
	require.NoError(t, err)
	_, err = f.pautas.Complete(ctx, actor, production.CompleteInput{PautaID: p.ID})
	assert.ErrorIs(t, err, domain.ErrProcessNotReady)

	_, err = f.pautas.CompleteStep(ctx, actor, first)
	require.NoError(t, err)
	_, err = f.pautas.StartStep(ctx, actor, second)
	require.NoError(t, err)
	p, err = f.pautas.CompleteStep(ctx, actor, second)
	require.NoError(t, err)
	assert.True(t, p.AllStepsCompleted())

	_, err = f.pautas.StartStep(ctx, actor, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestComplete_BultoResultante(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prod := f.lot(t, "TELA", 100)

	conf := f.pauta(t, production.CreatePautaInput{LotID: prod.ID, ProcessTypeID: "CONFECCION", SequenceOrder: 1})
	_, err := f.pautas.Begin(ctx, actor, production.BeginInput{PautaID: conf.ID})
	require.NoError(t, err)

	_, err = f.pautas.Complete(ctx, actor, production.CompleteInput{PautaID: conf.ID})
	assert.ErrorIs(t, err, domain.ErrMissingOutputQuantity)

	done, err := f.pautas.Complete(ctx, actor, production.CompleteInput{
		PautaID: conf.ID,
		Outcome: production.Outcome{QuantityWithdrawn: d(40), OutputUnits: d(20), NewLotQuantity: dp(20)},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.ProcessCompleted, done.Status)
	require.NotNil(t, done.OutputLotID)

	out, err := f.lots.GetLot(ctx, *done.OutputLotID)
	require.NoError(t, err)
	assert.Equal(t, "POLERA", out.MaterialRef)
	assert.Equal(t, "TALLER", out.LocationID)
	require.NotNil(t, out.OriginPautaID)
	assert.Equal(t, conf.ID, *out.OriginPautaID)
	assert.Nil(t, out.ParentLotID)
	assert.True(t, out.TotalQuantity.Equal(d(20)))

	src, _ := f.lots.GetLot(ctx, prod.ID)
	assert.True(t, src.AvailableQuantity.Equal(d(60)), "se descuenta lo retirado")
}

func TestComplete_SalidaInesperada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prod := f.lot(t, "TELA", 10)

	corte := f.pauta(t, production.CreatePautaInput{LotID: prod.ID, ProcessTypeID: "CORTE", SequenceOrder: 1})
	_, err := f.pautas.Complete(ctx, actor, production.CompleteInput{PautaID: corte.ID})
	assert.ErrorIs(t, err, domain.ErrProcessNotReady, "pendiente no se completa")

	_, err = f.pautas.Begin(ctx, actor, production.BeginInput{PautaID: corte.ID})
	require.NoError(t, err)

	_, err = f.pautas.Complete(ctx, actor, production.CompleteInput{
		PautaID: corte.ID, Outcome: production.Outcome{NewLotQuantity: dp(5)},
	})
	assert.ErrorIs(t, err, domain.ErrUnexpectedOutput)

	_, err = f.pautas.Complete(ctx, actor, production.CompleteInput{
		PautaID: corte.ID, Outcome: production.Outcome{QuantityWithdrawn: d(11)},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientQuantity)

	done, err := f.pautas.Complete(ctx, actor, production.CompleteInput{
		PautaID: corte.ID, Outcome: production.Outcome{QuantityWithdrawn: d(10), OutputUnits: d(4)},
	})
	require.NoError(t, err)
	assert.Nil(t, done.OutputLotID)
	assert.True(t, done.OutputUnits.Equal(d(4)))
}
