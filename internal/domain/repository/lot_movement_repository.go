package repository

import (
	"context"

	"github.com/jhoicas/bultos-api/internal/domain/entity"
)

// LotMovementRepository define el puerto de persistencia para el libro de movimientos de bultos.
type LotMovementRepository interface {
	Create(ctx context.Context, movement *entity.LotMovement) error
	ListByLot(ctx context.Context, lotID string, limit, offset int) ([]*entity.LotMovement, error)
}
