package repository

import (
	"context"

	"github.com/jhoicas/bultos-api/internal/domain/entity"
)

// LotRepository define el puerto para consultar/actualizar bultos.
// Usado dentro de transacciones para garantizar consistencia.
type LotRepository interface {
	Create(ctx context.Context, lot *entity.Lot) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Lot, error)
	// GetForUpdate bloquea la fila sin esperar; si otra transacción la tiene devuelve domain.ErrLotLocked.
	GetForUpdate(ctx context.Context, id string) (*entity.Lot, error)
	// Update guarda bajo control optimista: falla con domain.ErrStaleState si la versión cambió.
	// En éxito incrementa lot.Version.
	Update(ctx context.Context, lot *entity.Lot) error
	// ListAvailable bultos con disponible > 0 en una ubicación; materialRef vacío = todos.
	ListAvailable(ctx context.Context, locationID, materialRef string) ([]*entity.Lot, error)
	ListChildren(ctx context.Context, parentID string) ([]*entity.Lot, error)
}

// ReservationRepository define el puerto de persistencia para reservas de bultos.
type ReservationRepository interface {
	Create(ctx context.Context, r *entity.Reservation) error
	GetByID(ctx context.Context, id string) (*entity.Reservation, error)
	// Resolve pasa una reserva activa a RELEASED o CONSUMED; domain.ErrStaleState si ya no estaba activa.
	Resolve(ctx context.Context, r *entity.Reservation, to entity.ReservationStatus) error
	ListActiveByHolder(ctx context.Context, holderType, holderID string) ([]*entity.Reservation, error)
	ListActiveByLot(ctx context.Context, lotID string) ([]*entity.Reservation, error)
}
