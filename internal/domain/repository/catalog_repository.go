package repository

import (
	"context"

	"github.com/jhoicas/bultos-api/internal/domain/entity"
)

// CatalogRepository define el puerto de solo lectura hacia el catálogo (materiales, recetas,
// bodegas). El motor nunca resuelve nombres por su cuenta.
type CatalogRepository interface {
	GetMaterial(ctx context.Context, ref string) (*entity.Material, error)
	GetProcessType(ctx context.Context, id string) (*entity.ProcessType, error)
	GetLocation(ctx context.Context, id string) (*entity.Location, error)
}
