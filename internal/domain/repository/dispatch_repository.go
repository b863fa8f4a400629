package repository

import (
	"context"

	"github.com/jhoicas/bultos-api/internal/domain/entity"
)

// PalletRepository define el puerto de persistencia para pallets y sus bultos.
type PalletRepository interface {
	Create(ctx context.Context, pallet *entity.Pallet) error
	GetByID(ctx context.Context, id string) (*entity.Pallet, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE): cierre y asignación se serializan aquí.
	GetForUpdate(ctx context.Context, id string) (*entity.Pallet, error)
	// Update guarda estado e ítems bajo control optimista (domain.ErrStaleState).
	Update(ctx context.Context, pallet *entity.Pallet) error
	ListByRequest(ctx context.Context, requestID string) ([]*entity.Pallet, error)
	// FindOpenByLot devuelve el pallet abierto que contiene el bulto o nil.
	FindOpenByLot(ctx context.Context, lotID string) (*entity.Pallet, error)
}

// RequestRepository define el puerto de persistencia para solicitudes de mercadería.
type RequestRepository interface {
	Create(ctx context.Context, req *entity.MerchandiseRequest) error
	GetByID(ctx context.Context, id string) (*entity.MerchandiseRequest, error)
	GetForUpdate(ctx context.Context, id string) (*entity.MerchandiseRequest, error)
	// Update es compare-and-swap sobre (status, version) leídos; domain.ErrStaleState si cambiaron.
	Update(ctx context.Context, req *entity.MerchandiseRequest, expected entity.RequestStatus) error
	List(ctx context.Context, status string, limit, offset int) ([]*entity.MerchandiseRequest, error)
}
