package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

const lotColumns = `id, code, material_ref, total_quantity, available_quantity, unit_weight, unit_cost,
	location_id, pallet_id, parent_lot_id, origin_pauta_id, provider_batch_ref, status, version,
	created_at, updated_at, created_by`

// LotRepo implementación de LotRepository sobre PostgreSQL (usable con pool o tx).
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador de bultos. Pasar pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

func scanLot(row pgx.Row) (*entity.Lot, error) {
	var l entity.Lot
	err := row.Scan(
		&l.ID, &l.Code, &l.MaterialRef, &l.TotalQuantity, &l.AvailableQuantity, &l.UnitWeight, &l.UnitCost,
		&l.LocationID, &l.PalletID, &l.ParentLotID, &l.OriginPautaID, &l.ProviderBatchRef, &l.Status, &l.Version,
		&l.CreatedAt, &l.UpdatedAt, &l.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserta el bulto.
func (r *LotRepo) Create(ctx context.Context, l *entity.Lot) error {
	query := `INSERT INTO lots (` + lotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.Code, l.MaterialRef, l.TotalQuantity, l.AvailableQuantity, l.UnitWeight, l.UnitCost,
		l.LocationID, l.PalletID, l.ParentLotID, l.OriginPautaID, l.ProviderBatchRef, string(l.Status), l.Version,
		l.CreatedAt, l.UpdatedAt, l.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: código de bulto %s duplicado", domain.ErrInvalidInput, l.Code)
		}
		return mapError("create lot", err)
	}
	return nil
}

// GetByID obtiene el bulto o nil si no existe.
func (r *LotRepo) GetByID(ctx context.Context, id string) (*entity.Lot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = $1`, id))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, mapError("get lot", err)
	}
	return l, nil
}

// GetForUpdate bloquea la fila sin esperar (FOR UPDATE NOWAIT).
// Si otra transacción la tiene, devuelve domain.ErrLotLocked.
func (r *LotRepo) GetForUpdate(ctx context.Context, id string) (*entity.Lot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = $1 FOR UPDATE NOWAIT`, id))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, mapError("get lot for update", err)
	}
	return l, nil
}

// Update guarda el bulto si la versión no cambió e incrementa lot.Version.
func (r *LotRepo) Update(ctx context.Context, l *entity.Lot) error {
	query := `
		UPDATE lots SET
			available_quantity = $3, total_quantity = $4, location_id = $5, pallet_id = $6,
			status = $7, updated_at = $8, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query,
		l.ID, l.Version, l.AvailableQuantity, l.TotalQuantity, l.LocationID, l.PalletID, string(l.Status), l.UpdatedAt,
	)
	if err != nil {
		return mapError("update lot", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleState
	}
	l.Version++
	return nil
}

// ListAvailable bultos activos, fuera de pallet y con disponible en la ubicación.
func (r *LotRepo) ListAvailable(ctx context.Context, locationID, materialRef string) ([]*entity.Lot, error) {
	query := `
		SELECT ` + lotColumns + ` FROM lots
		WHERE location_id = $1 AND status = 'ACTIVE' AND pallet_id IS NULL AND available_quantity > 0
		  AND ($2::text = '' OR material_ref = $2)
		ORDER BY created_at, code`
	return r.list(ctx, "list available lots", query, locationID, materialRef)
}

// ListChildren hijos directos de una división.
func (r *LotRepo) ListChildren(ctx context.Context, parentID string) ([]*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE parent_lot_id = $1 ORDER BY code`
	return r.list(ctx, "list lot children", query, parentID)
}

func (r *LotRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Lot, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	var out []*entity.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
