package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/internal/domain/repository"
)

var (
	_ repository.PalletRepository  = (*PalletRepo)(nil)
	_ repository.RequestRepository = (*RequestRepo)(nil)
)

const palletColumns = `id, identifier, request_id, status, closed_at, shipped_at, version, created_at, updated_at, created_by`

var palletItemColumns = []string{
	"pallet_id", "position", "lot_id", "material_ref", "quantity", "received_quantity", "reservation_id", "resolved",
}

// PalletRepo pallets y sus bultos sobre PostgreSQL.
type PalletRepo struct {
	q Querier
}

// NewPalletRepository construye el adaptador de pallets.
func NewPalletRepository(q Querier) *PalletRepo {
	return &PalletRepo{q: q}
}

// Create inserta el pallet con sus ítems.
func (r *PalletRepo) Create(ctx context.Context, p *entity.Pallet) error {
	query := `INSERT INTO pallets (` + palletColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.Identifier, p.RequestID, string(p.Status), p.ClosedAt, p.ShippedAt, p.Version,
		p.CreatedAt, p.UpdatedAt, p.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create pallet %s: %w", p.Identifier, domain.ErrStaleState)
		}
		return mapError("create pallet", err)
	}
	return r.insertItems(ctx, p)
}

func (r *PalletRepo) insertItems(ctx context.Context, p *entity.Pallet) error {
	if len(p.Items) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(p.Items))
	for i, it := range p.Items {
		rows = append(rows, []any{
			p.ID, i, it.LotID, it.MaterialRef, it.Quantity, it.ReceivedQuantity, it.ReservationID, it.Resolved,
		})
	}
	if _, err := r.q.CopyFrom(ctx, pgx.Identifier{"pallet_items"}, palletItemColumns, pgx.CopyFromRows(rows)); err != nil {
		return mapError("insert pallet items", err)
	}
	return nil
}

// GetByID obtiene el pallet con sus ítems o nil.
func (r *PalletRepo) GetByID(ctx context.Context, id string) (*entity.Pallet, error) {
	return r.get(ctx, `SELECT `+palletColumns+` FROM pallets WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila del pallet (SELECT FOR UPDATE).
func (r *PalletRepo) GetForUpdate(ctx context.Context, id string) (*entity.Pallet, error) {
	return r.get(ctx, `SELECT `+palletColumns+` FROM pallets WHERE id = $1 FOR UPDATE`, id)
}

func (r *PalletRepo) get(ctx context.Context, query string, args ...any) (*entity.Pallet, error) {
	var p entity.Pallet
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.Identifier, &p.RequestID, &p.Status, &p.ClosedAt, &p.ShippedAt, &p.Version,
		&p.CreatedAt, &p.UpdatedAt, &p.CreatedBy,
	)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, mapError("get pallet", err)
	}
	if err := r.loadItems(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PalletRepo) loadItems(ctx context.Context, p *entity.Pallet) error {
	rows, err := r.q.Query(ctx, `
		SELECT lot_id, material_ref, quantity, received_quantity, reservation_id, resolved
		FROM pallet_items WHERE pallet_id = $1 ORDER BY position`, p.ID)
	if err != nil {
		return mapError("load pallet items", err)
	}
	defer rows.Close()
	p.Items = nil
	for rows.Next() {
		var it entity.PalletItem
		if err := rows.Scan(&it.LotID, &it.MaterialRef, &it.Quantity, &it.ReceivedQuantity, &it.ReservationID, &it.Resolved); err != nil {
			return fmt.Errorf("scan pallet item: %w", err)
		}
		p.Items = append(p.Items, it)
	}
	return rows.Err()
}

// Update guarda estado e ítems si la versión no cambió; reemplaza los ítems completos.
func (r *PalletRepo) Update(ctx context.Context, p *entity.Pallet) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE pallets SET status = $3, closed_at = $4, shipped_at = $5, updated_at = $6, version = version + 1
		WHERE id = $1 AND version = $2`,
		p.ID, p.Version, string(p.Status), p.ClosedAt, p.ShippedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapError("update pallet", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleState
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM pallet_items WHERE pallet_id = $1`, p.ID); err != nil {
		return mapError("clear pallet items", err)
	}
	if err := r.insertItems(ctx, p); err != nil {
		return err
	}
	p.Version++
	return nil
}

// ListByRequest pallets de la solicitud en orden de creación.
func (r *PalletRepo) ListByRequest(ctx context.Context, requestID string) ([]*entity.Pallet, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM pallets WHERE request_id = $1 ORDER BY identifier`, requestID)
	if err != nil {
		return nil, mapError("list pallets", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list pallets: %w", err)
	}
	out := make([]*entity.Pallet, 0, len(ids))
	for _, id := range ids {
		p, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// FindOpenByLot pallet abierto con el bulto pendiente o nil.
func (r *PalletRepo) FindOpenByLot(ctx context.Context, lotID string) (*entity.Pallet, error) {
	var id string
	err := r.q.QueryRow(ctx, `
		SELECT p.id FROM pallets p
		JOIN pallet_items i ON i.pallet_id = p.id
		WHERE i.lot_id = $1 AND NOT i.resolved AND p.status = 'OPEN'
		LIMIT 1`, lotID).Scan(&id)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, mapError("find open pallet by lot", err)
	}
	return r.GetByID(ctx, id)
}

const requestColumns = `id, source_location, destination_location, status, dispatch_ref, transport_mode,
	loss_declared, version, created_at, updated_at, dispatched_at, received_at, created_by`

// RequestRepo solicitudes de mercadería y sus líneas sobre PostgreSQL.
type RequestRepo struct {
	q Querier
}

// NewRequestRepository construye el adaptador de solicitudes.
func NewRequestRepository(q Querier) *RequestRepo {
	return &RequestRepo{q: q}
}

// Create inserta la solicitud con sus líneas en un solo batch.
func (r *RequestRepo) Create(ctx context.Context, req *entity.MerchandiseRequest) error {
	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO merchandise_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		req.ID, req.SourceLocation, req.DestinationLocation, req.Status.String(), req.DispatchRef, req.TransportMode,
		req.LossDeclared, req.Version, req.CreatedAt, req.UpdatedAt, req.DispatchedAt, req.ReceivedAt, req.CreatedBy,
	)
	for i, li := range req.LineItems {
		batch.Queue(`
			INSERT INTO request_line_items
				(request_id, position, material_ref, quantity_requested, quantity_dispatched, quantity_received)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			req.ID, i, li.MaterialRef, li.QuantityRequested, li.QuantityDispatched, li.QuantityReceived,
		)
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: material repetido en la solicitud", domain.ErrInvalidInput)
		}
		return mapError("create request", err)
	}
	return nil
}

// GetByID obtiene la solicitud con líneas y pallets o nil.
func (r *RequestRepo) GetByID(ctx context.Context, id string) (*entity.MerchandiseRequest, error) {
	return r.get(ctx, `SELECT `+requestColumns+` FROM merchandise_requests WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila de la solicitud (SELECT FOR UPDATE).
func (r *RequestRepo) GetForUpdate(ctx context.Context, id string) (*entity.MerchandiseRequest, error) {
	return r.get(ctx, `SELECT `+requestColumns+` FROM merchandise_requests WHERE id = $1 FOR UPDATE`, id)
}

func scanRequest(row pgx.Row) (*entity.MerchandiseRequest, error) {
	var req entity.MerchandiseRequest
	if err := row.Scan(
		&req.ID, &req.SourceLocation, &req.DestinationLocation, &req.Status, &req.DispatchRef, &req.TransportMode,
		&req.LossDeclared, &req.Version, &req.CreatedAt, &req.UpdatedAt, &req.DispatchedAt, &req.ReceivedAt, &req.CreatedBy,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepo) get(ctx context.Context, query string, args ...any) (*entity.MerchandiseRequest, error) {
	req, err := scanRequest(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, mapError("get request", err)
	}
	if err := r.loadChildren(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *RequestRepo) loadChildren(ctx context.Context, req *entity.MerchandiseRequest) error {
	rows, err := r.q.Query(ctx, `
		SELECT material_ref, quantity_requested, quantity_dispatched, quantity_received
		FROM request_line_items WHERE request_id = $1 ORDER BY position`, req.ID)
	if err != nil {
		return mapError("load line items", err)
	}
	req.LineItems, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.RequestLineItem, error) {
		var li entity.RequestLineItem
		err := row.Scan(&li.MaterialRef, &li.QuantityRequested, &li.QuantityDispatched, &li.QuantityReceived)
		return li, err
	})
	if err != nil {
		return fmt.Errorf("load line items: %w", err)
	}

	rows, err = r.q.Query(ctx, `SELECT id FROM pallets WHERE request_id = $1 ORDER BY identifier`, req.ID)
	if err != nil {
		return mapError("load request pallets", err)
	}
	req.PalletIDs, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("load request pallets: %w", err)
	}
	return nil
}

// Update compare-and-swap sobre (status, version); actualiza cantidades de las líneas.
// Los IDs de pallet se derivan de la tabla pallets.
func (r *RequestRepo) Update(ctx context.Context, req *entity.MerchandiseRequest, expected entity.RequestStatus) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE merchandise_requests SET
			status = $4, dispatch_ref = $5, transport_mode = $6, loss_declared = $7,
			updated_at = $8, dispatched_at = $9, received_at = $10, version = version + 1
		WHERE id = $1 AND status = $2 AND version = $3`,
		req.ID, expected.String(), req.Version, req.Status.String(), req.DispatchRef, req.TransportMode,
		req.LossDeclared, req.UpdatedAt, req.DispatchedAt, req.ReceivedAt,
	)
	if err != nil {
		return mapError("update request", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleState
	}
	if len(req.LineItems) > 0 {
		batch := &pgx.Batch{}
		for _, li := range req.LineItems {
			batch.Queue(`
				UPDATE request_line_items SET quantity_dispatched = $3, quantity_received = $4
				WHERE request_id = $1 AND material_ref = $2`,
				req.ID, li.MaterialRef, li.QuantityDispatched, li.QuantityReceived,
			)
		}
		if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
			return mapError("update line items", err)
		}
	}
	req.Version++
	return nil
}

// List solicitudes más recientes primero, opcionalmente por estado.
func (r *RequestRepo) List(ctx context.Context, status string, limit, offset int) ([]*entity.MerchandiseRequest, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+requestColumns+` FROM merchandise_requests
		WHERE ($1::text = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, mapError("list requests", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.MerchandiseRequest, error) {
		return scanRequest(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	for _, req := range list {
		if err := r.loadChildren(ctx, req); err != nil {
			return nil, err
		}
	}
	return list, nil
}
