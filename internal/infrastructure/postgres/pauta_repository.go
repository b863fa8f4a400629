package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/internal/domain/repository"
)

var _ repository.PautaRepository = (*PautaRepo)(nil)

const pautaColumns = `id, lot_id, process_type_id, sequence_order, status, produces_new_lots, output_material_ref,
	quantity_withdrawn, output_units, output_lot_id, version, created_at, updated_at, started_at, completed_at, created_by`

// PautaRepo pautas con pasos e insumos sobre PostgreSQL.
type PautaRepo struct {
	q Querier
}

// NewPautaRepository construye el adaptador de pautas.
func NewPautaRepository(q Querier) *PautaRepo {
	return &PautaRepo{q: q}
}

// Create inserta la pauta, sus pasos y sus insumos requeridos.
// Un (lot_id, sequence_order) repetido devuelve domain.ErrInvalidInput.
func (r *PautaRepo) Create(ctx context.Context, p *entity.Pauta) error {
	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO pautas (`+pautaColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		p.ID, p.LotID, p.ProcessTypeID, p.SequenceOrder, string(p.Status), p.ProducesNewLots, p.OutputMaterialRef,
		p.QuantityWithdrawn, p.OutputUnits, p.OutputLotID, p.Version, p.CreatedAt, p.UpdatedAt,
		p.StartedAt, p.CompletedAt, p.CreatedBy,
	)
	for _, s := range p.Steps {
		batch.Queue(`
			INSERT INTO pauta_steps (id, pauta_id, step_order, name, status, started_at, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			s.ID, p.ID, s.Order, s.Name, string(s.Status), s.StartedAt, s.CompletedAt,
		)
	}
	for i, in := range p.RequiredInputs {
		batch.Queue(`
			INSERT INTO pauta_required_inputs (pauta_id, position, material_ref, quantity)
			VALUES ($1, $2, $3, $4)`,
			p.ID, i, in.MaterialRef, in.Quantity,
		)
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ya existe la pauta %d para el bulto", domain.ErrInvalidInput, p.SequenceOrder)
		}
		return mapError("create pauta", err)
	}
	return r.replaceConsumed(ctx, p)
}

func (r *PautaRepo) replaceConsumed(ctx context.Context, p *entity.Pauta) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM pauta_consumed_inputs WHERE pauta_id = $1`, p.ID); err != nil {
		return mapError("clear consumed inputs", err)
	}
	if len(p.ConsumedInputs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(p.ConsumedInputs))
	for i, c := range p.ConsumedInputs {
		rows = append(rows, []any{p.ID, i, c.MaterialRef, c.LotID, c.Quantity, c.ReservationID})
	}
	_, err := r.q.CopyFrom(ctx, pgx.Identifier{"pauta_consumed_inputs"},
		[]string{"pauta_id", "position", "material_ref", "lot_id", "quantity", "reservation_id"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return mapError("insert consumed inputs", err)
	}
	return nil
}

// GetByID obtiene la pauta completa o nil.
func (r *PautaRepo) GetByID(ctx context.Context, id string) (*entity.Pauta, error) {
	return r.get(ctx, `SELECT `+pautaColumns+` FROM pautas WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila de la pauta (SELECT FOR UPDATE).
func (r *PautaRepo) GetForUpdate(ctx context.Context, id string) (*entity.Pauta, error) {
	return r.get(ctx, `SELECT `+pautaColumns+` FROM pautas WHERE id = $1 FOR UPDATE`, id)
}

func scanPauta(row pgx.Row) (*entity.Pauta, error) {
	var p entity.Pauta
	if err := row.Scan(
		&p.ID, &p.LotID, &p.ProcessTypeID, &p.SequenceOrder, &p.Status, &p.ProducesNewLots, &p.OutputMaterialRef,
		&p.QuantityWithdrawn, &p.OutputUnits, &p.OutputLotID, &p.Version, &p.CreatedAt, &p.UpdatedAt,
		&p.StartedAt, &p.CompletedAt, &p.CreatedBy,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PautaRepo) get(ctx context.Context, query string, args ...any) (*entity.Pauta, error) {
	p, err := scanPauta(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, mapError("get pauta", err)
	}
	if err := r.loadChildren(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PautaRepo) loadChildren(ctx context.Context, p *entity.Pauta) error {
	rows, err := r.q.Query(ctx, `
		SELECT id, pauta_id, step_order, name, status, started_at, completed_at
		FROM pauta_steps WHERE pauta_id = $1 ORDER BY step_order`, p.ID)
	if err != nil {
		return mapError("load steps", err)
	}
	p.Steps, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.StepRecord, error) {
		var s entity.StepRecord
		err := row.Scan(&s.ID, &s.PautaID, &s.Order, &s.Name, &s.Status, &s.StartedAt, &s.CompletedAt)
		return s, err
	})
	if err != nil {
		return fmt.Errorf("load steps: %w", err)
	}

	rows, err = r.q.Query(ctx, `
		SELECT material_ref, quantity FROM pauta_required_inputs WHERE pauta_id = $1 ORDER BY position`, p.ID)
	if err != nil {
		return mapError("load required inputs", err)
	}
	p.RequiredInputs, err = pgx.CollectRows(rows, pgx.RowToStructByPos[entity.RequiredInput])
	if err != nil {
		return fmt.Errorf("load required inputs: %w", err)
	}

	rows, err = r.q.Query(ctx, `
		SELECT material_ref, lot_id, quantity, reservation_id
		FROM pauta_consumed_inputs WHERE pauta_id = $1 ORDER BY position`, p.ID)
	if err != nil {
		return mapError("load consumed inputs", err)
	}
	p.ConsumedInputs, err = pgx.CollectRows(rows, pgx.RowToStructByPos[entity.ConsumedInput])
	if err != nil {
		return fmt.Errorf("load consumed inputs: %w", err)
	}
	return nil
}

// FindIDByStep ID de la pauta dueña del paso o "".
func (r *PautaRepo) FindIDByStep(ctx context.Context, stepID string) (string, error) {
	var id string
	err := r.q.QueryRow(ctx, `SELECT pauta_id FROM pauta_steps WHERE id = $1`, stepID).Scan(&id)
	if err != nil {
		if noRows(err) {
			return "", nil
		}
		return "", mapError("find pauta by step", err)
	}
	return id, nil
}

// ListByLot pautas del bulto en orden de secuencia.
func (r *PautaRepo) ListByLot(ctx context.Context, lotID string) ([]*entity.Pauta, error) {
	rows, err := r.q.Query(ctx, `SELECT `+pautaColumns+` FROM pautas WHERE lot_id = $1 ORDER BY sequence_order`, lotID)
	if err != nil {
		return nil, mapError("list pautas", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.Pauta, error) {
		return scanPauta(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list pautas: %w", err)
	}
	for _, p := range list {
		if err := r.loadChildren(ctx, p); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// Update compare-and-swap sobre (status, version); guarda pasos e insumos consumidos.
func (r *PautaRepo) Update(ctx context.Context, p *entity.Pauta, expected entity.ProcessStatus) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE pautas SET
			status = $4, quantity_withdrawn = $5, output_units = $6, output_lot_id = $7,
			updated_at = $8, started_at = $9, completed_at = $10, version = version + 1
		WHERE id = $1 AND status = $2 AND version = $3`,
		p.ID, string(expected), p.Version, string(p.Status), p.QuantityWithdrawn, p.OutputUnits, p.OutputLotID,
		p.UpdatedAt, p.StartedAt, p.CompletedAt,
	)
	if err != nil {
		return mapError("update pauta", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleState
	}
	if len(p.Steps) > 0 {
		batch := &pgx.Batch{}
		for _, s := range p.Steps {
			batch.Queue(`UPDATE pauta_steps SET status = $2, started_at = $3, completed_at = $4 WHERE id = $1`,
				s.ID, string(s.Status), s.StartedAt, s.CompletedAt)
		}
		if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
			return mapError("update steps", err)
		}
	}
	if err := r.replaceConsumed(ctx, p); err != nil {
		return err
	}
	p.Version++
	return nil
}
