package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/internal/domain/inventory"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestValidateSplit(t *testing.T) {
	tests := []struct {
		name      string
		available decimal.Decimal
		parts     []decimal.Decimal
		wantErr   error
	}{
		{"suma exacta", d(100), []decimal.Decimal{d(40), d(60)}, nil},
		{"una sola parte", d(100), []decimal.Decimal{d(100)}, nil},
		{"decimales", decimal.RequireFromString("10.5"), []decimal.Decimal{decimal.RequireFromString("0.5"), d(10)}, nil},
		{"suma menor deja residuo", d(100), []decimal.Decimal{d(40), d(50)}, domain.ErrQuantityMismatch},
		{"suma mayor", d(100), []decimal.Decimal{d(60), d(60)}, domain.ErrQuantityMismatch},
		{"sin partes", d(100), nil, domain.ErrInvalidInput},
		{"parte cero", d(100), []decimal.Decimal{d(100), d(0)}, domain.ErrInvalidInput},
		{"parte negativa", d(100), []decimal.Decimal{d(110), d(-10)}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := inventory.ValidateSplit(tt.available, tt.parts)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckReservable(t *testing.T) {
	palletID := "p-1"
	active := &entity.Lot{Status: entity.LotStatusActive, TotalQuantity: d(10), AvailableQuantity: d(10)}
	onPallet := &entity.Lot{Status: entity.LotStatusActive, AvailableQuantity: d(10), PalletID: &palletID}
	consumed := &entity.Lot{Status: entity.LotStatusConsumed}

	assert.NoError(t, inventory.CheckReservable(active, d(10)))
	assert.ErrorIs(t, inventory.CheckReservable(active, d(11)), domain.ErrInsufficientQuantity)
	assert.ErrorIs(t, inventory.CheckReservable(active, d(0)), domain.ErrInvalidInput)
	assert.ErrorIs(t, inventory.CheckReservable(onPallet, d(1)), domain.ErrLotLocked)
	assert.ErrorIs(t, inventory.CheckReservable(consumed, d(1)), domain.ErrLotLocked)

	assert.NoError(t, inventory.CheckSplittable(active))
	assert.ErrorIs(t, inventory.CheckSplittable(onPallet), domain.ErrLotLocked)
	assert.ErrorIs(t, inventory.CheckSplittable(consumed), domain.ErrLotLocked)
}

func TestCanStart(t *testing.T) {
	pautas := func(statuses ...entity.ProcessStatus) []entity.Pauta {
		out := make([]entity.Pauta, len(statuses))
		for i, s := range statuses {
			out[i] = entity.Pauta{SequenceOrder: i + 1, Status: s}
		}
		return out
	}

	assert.True(t, inventory.CanStart(nil, 1), "sin pautas previas")
	assert.True(t, inventory.CanStart(pautas(entity.ProcessPending), 1), "la primera no depende de nadie")
	assert.True(t, inventory.CanStart(pautas(entity.ProcessCompleted, entity.ProcessPending), 2))
	assert.False(t, inventory.CanStart(pautas(entity.ProcessInProgress, entity.ProcessPending), 2))
	assert.False(t, inventory.CanStart(pautas(entity.ProcessPending, entity.ProcessPending), 2))
	assert.False(t, inventory.CanStart(pautas(entity.ProcessCompleted, entity.ProcessPending, entity.ProcessPending), 3),
		"basta con que una pauta anterior esté incompleta")
	assert.True(t, inventory.CanStart(pautas(entity.ProcessCompleted, entity.ProcessPending, entity.ProcessPending), 2),
		"las pautas posteriores no bloquean")
}

func TestCanStartStep(t *testing.T) {
	steps := []entity.StepRecord{
		{Order: 1, Status: entity.ProcessCompleted},
		{Order: 2, Status: entity.ProcessInProgress},
		{Order: 3, Status: entity.ProcessPending},
	}
	assert.True(t, inventory.CanStartStep(steps, 1))
	assert.True(t, inventory.CanStartStep(steps, 2))
	assert.False(t, inventory.CanStartStep(steps, 3))
	assert.False(t, inventory.CanStartStep(steps, 0))
	assert.False(t, inventory.CanStartStep(steps, 9), "el anterior no existe")
}

func TestClassifyReception(t *testing.T) {
	line := func(dispatched, received int64) inventory.ReceptionLine {
		return inventory.ReceptionLine{Dispatched: d(dispatched), Received: d(received)}
	}

	assert.Equal(t, entity.RequestStatusReceivedComplete,
		inventory.ClassifyReception([]inventory.ReceptionLine{line(50, 50), line(10, 10)}, false))
	assert.Equal(t, entity.RequestStatusReceivedComplete,
		inventory.ClassifyReception([]inventory.ReceptionLine{line(50, 50)}, true),
		"la merma declarada no importa si llegó todo")
	assert.Equal(t, entity.RequestStatusReceivedPartial,
		inventory.ClassifyReception([]inventory.ReceptionLine{line(50, 30)}, false))
	assert.Equal(t, entity.RequestStatusReceivedPartial,
		inventory.ClassifyReception([]inventory.ReceptionLine{line(50, 0), line(10, 0)}, false),
		"recibir cero en todo no es completo")
	assert.Equal(t, entity.RequestStatusReceivedPartialWithLoss,
		inventory.ClassifyReception([]inventory.ReceptionLine{line(50, 30), line(10, 10)}, true))
}

func TestAllocateReceived(t *testing.T) {
	got := inventory.AllocateReceived([]decimal.Decimal{d(20), d(30), d(10)}, d(35))
	assert.True(t, got[0].Equal(d(20)))
	assert.True(t, got[1].Equal(d(15)))
	assert.True(t, got[2].IsZero())

	got = inventory.AllocateReceived([]decimal.Decimal{d(20)}, d(0))
	assert.True(t, got[0].IsZero())
}
