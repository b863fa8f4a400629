//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/bultos-api/internal/application/dispatch"
	"github.com/jhoicas/bultos-api/internal/application/inventory"
	"github.com/jhoicas/bultos-api/internal/application/production"
	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/internal/infrastructure/postgres"
	"github.com/jhoicas/bultos-api/pkg/config"
	"github.com/jhoicas/bultos-api/pkg/logger"
)

const actor = "integracion"

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type engine struct {
	pool     *pgxpool.Pool
	lots     *inventory.LotUseCase
	requests *dispatch.RequestUseCase
	pallets  *dispatch.PalletUseCase
	pautas   *production.PautaUseCase
}

// newEngine levanta PostgreSQL en un contenedor, migra y siembra el catálogo.
func newEngine(t *testing.T) *engine {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("bultos_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	mg, err := postgres.NewMigrator(dsn, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, mg.Up())
	require.NoError(t, mg.Up(), "segunda ejecución sin cambios")
	v, dirty, err := mg.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)
	require.NoError(t, mg.Close())

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 5})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	catalog := postgres.NewCatalogRepository(pool)
	require.NoError(t, catalog.UpsertMaterial(ctx, entity.Material{Ref: "MAT-1", Name: "Tela"}))
	require.NoError(t, catalog.UpsertMaterial(ctx, entity.Material{Ref: "MAT-2", Name: "Hilo"}))
	require.NoError(t, catalog.UpsertLocation(ctx, entity.Location{ID: "BOD-1", Name: "Central"}))
	require.NoError(t, catalog.UpsertLocation(ctx, entity.Location{ID: "BOD-2", Name: "Taller"}))
	require.NoError(t, catalog.UpsertProcessType(ctx, entity.ProcessType{
		ID: "PT-CORTE", Code: "CORTE", Name: "Corte", ProducesNewLots: true, OutputMaterialRef: "MAT-2",
	}))

	tx := postgres.NewTxRunner(pool)
	lots := inventory.NewLotUseCase(tx, catalog, nil)
	return &engine{
		pool:     pool,
		lots:     lots,
		requests: dispatch.NewRequestUseCase(tx, catalog, lots, nil),
		pallets:  dispatch.NewPalletUseCase(tx, lots, nil),
		pautas:   production.NewPautaUseCase(tx, catalog, lots, nil),
	}
}

func (e *engine) lot(t *testing.T, material string, qty int64) *entity.Lot {
	t.Helper()
	l, err := e.lots.CreateLot(context.Background(), actor, inventory.CreateLotInput{
		MaterialRef: material, LocationID: "BOD-1", Quantity: d(qty), UnitCost: decimal.RequireFromString("12.5"),
	})
	require.NoError(t, err)
	return l
}

func TestPostgres_Bultos(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	t.Run("división conserva cantidad y linaje", func(t *testing.T) {
		parent := e.lot(t, "MAT-1", 100)
		children, err := e.lots.Split(ctx, actor, parent.ID, []decimal.Decimal{d(60), d(40)})
		require.NoError(t, err)
		require.Len(t, children, 2)

		got, err := e.lots.GetLot(ctx, parent.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.LotStatusConsumed, got.Status)
		assert.True(t, got.AvailableQuantity.IsZero())
		assert.True(t, got.UnitCost.Equal(decimal.RequireFromString("12.5")))

		lineage, err := e.lots.GetLineage(ctx, parent.ID)
		require.NoError(t, err)
		assert.Len(t, lineage, 2)

		movs, err := e.lots.ListMovements(ctx, parent.ID, 50, 0)
		require.NoError(t, err)
		require.Len(t, movs, 2)
		assert.Equal(t, entity.LotMovementSplitOut, movs[1].Type)
	})

	t.Run("código duplicado", func(t *testing.T) {
		l := e.lot(t, "MAT-1", 1)
		_, err := e.lots.CreateLot(ctx, actor, inventory.CreateLotInput{
			MaterialRef: "MAT-1", LocationID: "BOD-1", Quantity: d(1), Code: l.Code,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("reserva y liberación", func(t *testing.T) {
		l := e.lot(t, "MAT-1", 10)
		res, err := e.lots.Reserve(ctx, actor, inventory.ReserveInput{
			LotID: l.ID, Quantity: d(4), HolderType: entity.HolderManual, HolderID: "OP-1",
		})
		require.NoError(t, err)

		got, err := e.lots.GetLot(ctx, l.ID)
		require.NoError(t, err)
		assert.True(t, got.AvailableQuantity.Equal(d(6)))

		_, err = e.lots.ReleaseReservation(ctx, actor, res.ID)
		require.NoError(t, err)
		got, err = e.lots.GetLot(ctx, l.ID)
		require.NoError(t, err)
		assert.True(t, got.AvailableQuantity.Equal(d(10)))

		_, err = e.lots.ReleaseReservation(ctx, actor, res.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("fila bloqueada por otra transacción", func(t *testing.T) {
		l := e.lot(t, "MAT-1", 10)
		tx, err := e.pool.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()
		_, err = tx.Exec(ctx, `SELECT id FROM lots WHERE id = $1 FOR UPDATE`, l.ID)
		require.NoError(t, err)

		_, err = e.lots.Reserve(ctx, actor, inventory.ReserveInput{
			LotID: l.ID, Quantity: d(1), HolderType: entity.HolderManual, HolderID: "OP-2",
		})
		assert.ErrorIs(t, err, domain.ErrLotLocked)
		assert.True(t, domain.IsConflict(err))
	})
}

func TestPostgres_SolicitudCompleta(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	l1 := e.lot(t, "MAT-1", 30)
	l2 := e.lot(t, "MAT-1", 20)
	in := func(id string) dispatch.TransitionInput { return dispatch.TransitionInput{RequestID: id} }

	req, err := e.requests.Create(ctx, actor, dispatch.CreateRequestInput{
		SourceLocation:      "BOD-1",
		DestinationLocation: "BOD-2",
		LineItems:           []dispatch.LineItemInput{{MaterialRef: "MAT-1", Quantity: d(50)}},
	})
	require.NoError(t, err)
	_, err = e.requests.Validate(ctx, actor, in(req.ID))
	require.NoError(t, err)
	_, err = e.requests.BeginPreparation(ctx, actor, in(req.ID))
	require.NoError(t, err)

	p, err := e.pallets.CreatePallet(ctx, actor, in(req.ID))
	require.NoError(t, err)
	_, err = e.pallets.AssignLot(ctx, actor, p.ID, l1.ID)
	require.NoError(t, err)
	p, err = e.pallets.AssignLot(ctx, actor, p.ID, l2.ID)
	require.NoError(t, err)
	assert.Len(t, p.Items, 2)

	_, err = e.pallets.ClosePallet(ctx, actor, p.ID)
	require.NoError(t, err)
	req, err = e.requests.MarkReady(ctx, actor, in(req.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, req.PalletIDs)

	stale := in(req.ID)
	stale.ExpectedVersion = req.Version - 1
	_, err = e.requests.Dispatch(ctx, actor, dispatch.DispatchInput{
		TransitionInput: stale, DispatchRef: "GUIA-9", TransportMode: entity.TransportTruck,
	})
	assert.ErrorIs(t, err, domain.ErrStaleState)

	req, err = e.requests.Dispatch(ctx, actor, dispatch.DispatchInput{
		TransitionInput: in(req.ID), DispatchRef: "GUIA-9", TransportMode: entity.TransportTruck,
	})
	require.NoError(t, err)
	assert.True(t, req.LineItems[0].QuantityDispatched.Equal(d(50)))

	req, err = e.requests.Receive(ctx, actor, dispatch.ReceiveInput{
		TransitionInput: in(req.ID),
		Received:        map[string]decimal.Decimal{"MAT-1": d(50)},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusReceivedComplete, req.Status)

	got, err := e.lots.GetLot(ctx, l1.ID)
	require.NoError(t, err)
	assert.Equal(t, "BOD-2", got.LocationID)
	assert.Equal(t, entity.LotStatusActive, got.Status)
	assert.Nil(t, got.PalletID)

	list, err := e.requests.List(ctx, string(entity.RequestStatusReceivedComplete), 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostgres_Pauta(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	prod := e.lot(t, "MAT-1", 20)
	insumo := e.lot(t, "MAT-2", 10)

	p, err := e.pautas.Create(ctx, actor, production.CreatePautaInput{
		LotID: prod.ID, ProcessTypeID: "PT-CORTE", SequenceOrder: 1,
		Steps:          []string{"Trazar", "Cortar"},
		RequiredInputs: []entity.RequiredInput{{MaterialRef: "MAT-2", Quantity: d(4)}},
	})
	require.NoError(t, err)
	require.Len(t, p.Steps, 2)

	_, err = e.pautas.Create(ctx, actor, production.CreatePautaInput{
		LotID: prod.ID, ProcessTypeID: "PT-CORTE", SequenceOrder: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "orden repetido en el mismo bulto")

	p, err = e.pautas.Begin(ctx, actor, production.BeginInput{
		PautaID:    p.ID,
		Selections: []production.InputSelection{{MaterialRef: "MAT-2", LotID: insumo.ID, Quantity: d(4)}},
	})
	require.NoError(t, err)
	require.Len(t, p.ConsumedInputs, 1)

	_, err = e.pautas.StartStep(ctx, actor, p.Steps[1].ID)
	assert.ErrorIs(t, err, domain.ErrPrecedingStepIncomplete)

	for _, s := range p.Steps {
		_, err = e.pautas.StartStep(ctx, actor, s.ID)
		require.NoError(t, err)
		_, err = e.pautas.CompleteStep(ctx, actor, s.ID)
		require.NoError(t, err)
	}

	qty := d(5)
	p, err = e.pautas.Complete(ctx, actor, production.CompleteInput{
		PautaID: p.ID,
		Outcome: production.Outcome{QuantityWithdrawn: d(5), OutputUnits: d(5), NewLotQuantity: &qty},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.ProcessCompleted, p.Status)
	require.NotNil(t, p.OutputLotID)

	out, err := e.lots.GetLot(ctx, *p.OutputLotID)
	require.NoError(t, err)
	assert.Equal(t, "MAT-2", out.MaterialRef)
	require.NotNil(t, out.OriginPautaID)
	assert.Equal(t, p.ID, *out.OriginPautaID)

	got, err := e.lots.GetLot(ctx, prod.ID)
	require.NoError(t, err)
	assert.True(t, got.AvailableQuantity.Equal(d(15)))

	listed, err := e.pautas.ListByLot(ctx, prod.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Len(t, listed[0].Steps, 2)
	assert.Len(t, listed[0].ConsumedInputs, 1)
}
