package postgres

import (
	"context"

	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo lectura del catálogo (materiales, tipos de proceso, bodegas).
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador del catálogo.
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

// GetMaterial obtiene el material o nil si no existe.
func (r *CatalogRepo) GetMaterial(ctx context.Context, ref string) (*entity.Material, error) {
	var m entity.Material
	err := r.q.QueryRow(ctx, `SELECT ref, name, unit_measure FROM materials WHERE ref = $1`, ref).
		Scan(&m.Ref, &m.Name, &m.UnitMeasure)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, mapError("get material", err)
	}
	return &m, nil
}

// GetProcessType obtiene el tipo de proceso o nil si no existe.
func (r *CatalogRepo) GetProcessType(ctx context.Context, id string) (*entity.ProcessType, error) {
	var pt entity.ProcessType
	err := r.q.QueryRow(ctx, `
		SELECT id, code, name, produces_new_lots, output_material_ref
		FROM process_types WHERE id = $1`, id).
		Scan(&pt.ID, &pt.Code, &pt.Name, &pt.ProducesNewLots, &pt.OutputMaterialRef)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, mapError("get process type", err)
	}
	return &pt, nil
}

// GetLocation obtiene la bodega o nil si no existe.
func (r *CatalogRepo) GetLocation(ctx context.Context, id string) (*entity.Location, error) {
	var l entity.Location
	err := r.q.QueryRow(ctx, `SELECT id, name, address, created_at, updated_at FROM locations WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.Address, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, mapError("get location", err)
	}
	return &l, nil
}

// UpsertMaterial crea o actualiza un material.
func (r *CatalogRepo) UpsertMaterial(ctx context.Context, m entity.Material) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO materials (ref, name, unit_measure) VALUES ($1, $2, $3)
		ON CONFLICT (ref) DO UPDATE SET name = EXCLUDED.name, unit_measure = EXCLUDED.unit_measure`,
		m.Ref, m.Name, m.UnitMeasure)
	return mapError("upsert material", err)
}

// UpsertLocation crea o actualiza una bodega.
func (r *CatalogRepo) UpsertLocation(ctx context.Context, l entity.Location) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO locations (id, name, address) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, address = EXCLUDED.address, updated_at = now()`,
		l.ID, l.Name, l.Address)
	return mapError("upsert location", err)
}

// UpsertProcessType crea o actualiza un tipo de proceso.
func (r *CatalogRepo) UpsertProcessType(ctx context.Context, pt entity.ProcessType) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO process_types (id, code, name, produces_new_lots, output_material_ref)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code, name = EXCLUDED.name,
			produces_new_lots = EXCLUDED.produces_new_lots, output_material_ref = EXCLUDED.output_material_ref`,
		pt.ID, pt.Code, pt.Name, pt.ProducesNewLots, pt.OutputMaterialRef)
	return mapError("upsert process type", err)
}
