package repository

import (
	"context"

	"github.com/jhoicas/bultos-api/internal/domain/entity"
)

// PautaRepository define el puerto de persistencia para pautas (procesos de valor agregado) y sus pasos.
type PautaRepository interface {
	Create(ctx context.Context, p *entity.Pauta) error
	GetByID(ctx context.Context, id string) (*entity.Pauta, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Pauta, error)
	// FindIDByStep devuelve el ID de la pauta dueña del paso o "" si no existe.
	FindIDByStep(ctx context.Context, stepID string) (string, error)
	ListByLot(ctx context.Context, lotID string) ([]*entity.Pauta, error)
	// Update es compare-and-swap sobre (status, version); domain.ErrStaleState si cambiaron.
	Update(ctx context.Context, p *entity.Pauta, expected entity.ProcessStatus) error
}

// Repositories agrupa los repositorios atados a una misma transacción.
type Repositories struct {
	Lots         LotRepository
	Reservations ReservationRepository
	Movements    LotMovementRepository
	Pallets      PalletRepository
	Requests     RequestRepository
	Pautas       PautaRepository
}
