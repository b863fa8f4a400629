package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/internal/domain/repository"
	"github.com/jhoicas/bultos-api/internal/infrastructure/memory"
)

func newLot(id string) *entity.Lot {
	return &entity.Lot{
		ID:                id,
		Code:              "B-" + id,
		MaterialRef:       "MAT-1",
		TotalQuantity:     decimal.NewFromInt(10),
		AvailableQuantity: decimal.NewFromInt(10),
		LocationID:        "BOD-1",
		Status:            entity.LotStatusActive,
		Version:           1,
	}
}

func TestStore_RunDescartaCambiosSiFalla(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	boom := errors.New("boom")

	err := store.Run(ctx, func(repos repository.Repositories) error {
		require.NoError(t, repos.Lots.Create(ctx, newLot("a")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = store.Run(ctx, func(repos repository.Repositories) error {
		lot, err := repos.Lots.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.Nil(t, lot, "el alta no debe persistir tras el error")
		return nil
	})
	require.NoError(t, err)
}

func TestStore_UpdateControlOptimista(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Run(ctx, func(repos repository.Repositories) error {
		return repos.Lots.Create(ctx, newLot("a"))
	}))

	err := store.Run(ctx, func(repos repository.Repositories) error {
		first, _ := repos.Lots.GetForUpdate(ctx, "a")
		second, _ := repos.Lots.GetForUpdate(ctx, "a")

		first.AvailableQuantity = decimal.NewFromInt(5)
		require.NoError(t, repos.Lots.Update(ctx, first))
		assert.Equal(t, 2, first.Version)

		second.AvailableQuantity = decimal.NewFromInt(1)
		return repos.Lots.Update(ctx, second)
	})
	assert.ErrorIs(t, err, domain.ErrStaleState)
}

func TestStore_LecturasSonCopias(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Run(ctx, func(repos repository.Repositories) error {
		return repos.Pallets.Create(ctx, &entity.Pallet{ID: "p", RequestID: "r", Status: entity.PalletStatusOpen, Version: 1})
	}))

	require.NoError(t, store.Run(ctx, func(repos repository.Repositories) error {
		p, _ := repos.Pallets.GetByID(ctx, "p")
		p.Items = append(p.Items, entity.PalletItem{LotID: "x"})
		return nil
	}))

	require.NoError(t, store.Run(ctx, func(repos repository.Repositories) error {
		p, _ := repos.Pallets.GetByID(ctx, "p")
		assert.Empty(t, p.Items, "mutar una lectura sin Update no cambia el estado")
		open, _ := repos.Pallets.FindOpenByLot(ctx, "x")
		assert.Nil(t, open)
		return nil
	}))
}

func TestStore_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := memory.NewStore().Run(ctx, func(repository.Repositories) error {
		t.Fatal("no debe ejecutarse")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPautaRepo_OrdenUnicoPorBulto(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	err := store.Run(ctx, func(repos repository.Repositories) error {
		require.NoError(t, repos.Pautas.Create(ctx, &entity.Pauta{ID: "p1", LotID: "L", SequenceOrder: 1}))
		return repos.Pautas.Create(ctx, &entity.Pauta{ID: "p2", LotID: "L", SequenceOrder: 1})
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
