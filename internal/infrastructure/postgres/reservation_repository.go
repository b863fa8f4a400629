package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/internal/domain/repository"
)

var (
	_ repository.ReservationRepository = (*ReservationRepo)(nil)
	_ repository.LotMovementRepository = (*LotMovementRepo)(nil)
)

const reservationColumns = `id, lot_id, quantity, holder_type, holder_id, status, created_at, resolved_at, created_by`

// ReservationRepo implementación de ReservationRepository sobre PostgreSQL.
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador de reservas.
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var res entity.Reservation
	if err := row.Scan(
		&res.ID, &res.LotID, &res.Quantity, &res.HolderType, &res.HolderID, &res.Status,
		&res.CreatedAt, &res.ResolvedAt, &res.CreatedBy,
	); err != nil {
		return nil, err
	}
	return &res, nil
}

// Create inserta la reserva.
func (r *ReservationRepo) Create(ctx context.Context, res *entity.Reservation) error {
	query := `INSERT INTO reservations (` + reservationColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		res.ID, res.LotID, res.Quantity, res.HolderType, res.HolderID, string(res.Status),
		res.CreatedAt, res.ResolvedAt, res.CreatedBy,
	)
	if err != nil {
		return mapError("create reservation", err)
	}
	return nil
}

// GetByID obtiene la reserva o nil si no existe.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*entity.Reservation, error) {
	res, err := scanReservation(r.q.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, mapError("get reservation", err)
	}
	return res, nil
}

// Resolve cierra una reserva activa; domain.ErrStaleState si ya estaba resuelta.
func (r *ReservationRepo) Resolve(ctx context.Context, res *entity.Reservation, to entity.ReservationStatus) error {
	now := time.Now().UTC()
	tag, err := r.q.Exec(ctx,
		`UPDATE reservations SET status = $2, resolved_at = $3 WHERE id = $1 AND status = 'ACTIVE'`,
		res.ID, string(to), now,
	)
	if err != nil {
		return mapError("resolve reservation", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleState
	}
	res.Status = to
	res.ResolvedAt = &now
	return nil
}

// ListActiveByHolder reservas activas de un titular en orden de creación.
func (r *ReservationRepo) ListActiveByHolder(ctx context.Context, holderType, holderID string) ([]*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE holder_type = $1 AND holder_id = $2 AND status = 'ACTIVE'
		ORDER BY created_at, id`
	return r.list(ctx, "list reservations by holder", query, holderType, holderID)
}

// ListActiveByLot reservas activas de un bulto en orden de creación.
func (r *ReservationRepo) ListActiveByLot(ctx context.Context, lotID string) ([]*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE lot_id = $1 AND status = 'ACTIVE'
		ORDER BY created_at, id`
	return r.list(ctx, "list reservations by lot", query, lotID)
}

func (r *ReservationRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Reservation, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	var out []*entity.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// LotMovementRepo libro de movimientos de bultos (solo inserción).
type LotMovementRepo struct {
	q Querier
}

// NewLotMovementRepository construye el adaptador del libro.
func NewLotMovementRepository(q Querier) *LotMovementRepo {
	return &LotMovementRepo{q: q}
}

// Create agrega un movimiento.
func (r *LotMovementRepo) Create(ctx context.Context, m *entity.LotMovement) error {
	query := `
		INSERT INTO lot_movements
			(id, transaction_id, lot_id, type, quantity, location_id, reference_type, reference_id, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.TransactionID, m.LotID, m.Type, m.Quantity, m.LocationID,
		m.ReferenceType, m.ReferenceID, m.CreatedAt, m.CreatedBy,
	)
	if err != nil {
		return mapError("create lot movement", err)
	}
	return nil
}

// ListByLot movimientos del bulto en orden de registro.
func (r *LotMovementRepo) ListByLot(ctx context.Context, lotID string, limit, offset int) ([]*entity.LotMovement, error) {
	query := `
		SELECT id, transaction_id, lot_id, type, quantity, location_id, reference_type, reference_id, created_at, created_by
		FROM lot_movements WHERE lot_id = $1
		ORDER BY seq
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, lotID, limit, offset)
	if err != nil {
		return nil, mapError("list lot movements", err)
	}
	defer rows.Close()
	var out []*entity.LotMovement
	for rows.Next() {
		var m entity.LotMovement
		if err := rows.Scan(
			&m.ID, &m.TransactionID, &m.LotID, &m.Type, &m.Quantity, &m.LocationID,
			&m.ReferenceType, &m.ReferenceID, &m.CreatedAt, &m.CreatedBy,
		); err != nil {
			return nil, fmt.Errorf("scan lot movement: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
