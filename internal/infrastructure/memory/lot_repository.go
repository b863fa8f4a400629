package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
)

type lotRepo struct{ st *state }

func (r lotRepo) Create(_ context.Context, lot *entity.Lot) error {
	if _, ok := r.st.lots[lot.ID]; ok {
		return fmt.Errorf("memory: bulto %s duplicado", lot.ID)
	}
	r.st.lots[lot.ID] = *lot
	r.st.lotOrder = append(r.st.lotOrder, lot.ID)
	return nil
}

func (r lotRepo) GetByID(_ context.Context, id string) (*entity.Lot, error) {
	lot, ok := r.st.lots[id]
	if !ok {
		return nil, nil
	}
	return &lot, nil
}

// GetForUpdate no necesita bloquear: Store.Run ya serializa las unidades de trabajo.
func (r lotRepo) GetForUpdate(ctx context.Context, id string) (*entity.Lot, error) {
	return r.GetByID(ctx, id)
}

func (r lotRepo) Update(_ context.Context, lot *entity.Lot) error {
	cur, ok := r.st.lots[lot.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != lot.Version {
		return domain.ErrStaleState
	}
	lot.Version++
	r.st.lots[lot.ID] = *lot
	return nil
}

func (r lotRepo) ListAvailable(_ context.Context, locationID, materialRef string) ([]*entity.Lot, error) {
	var out []*entity.Lot
	for _, id := range r.st.lotOrder {
		lot := r.st.lots[id]
		if lot.LocationID != locationID || !lot.IsActive() || lot.OnPallet() || !lot.AvailableQuantity.IsPositive() {
			continue
		}
		if materialRef != "" && lot.MaterialRef != materialRef {
			continue
		}
		out = append(out, &lot)
	}
	return out, nil
}

func (r lotRepo) ListChildren(_ context.Context, parentID string) ([]*entity.Lot, error) {
	var out []*entity.Lot
	for _, id := range r.st.lotOrder {
		lot := r.st.lots[id]
		if lot.ParentLotID != nil && *lot.ParentLotID == parentID {
			out = append(out, &lot)
		}
	}
	return out, nil
}

type reservationRepo struct{ st *state }

func (r reservationRepo) Create(_ context.Context, res *entity.Reservation) error {
	if _, ok := r.st.reservations[res.ID]; ok {
		return fmt.Errorf("memory: reserva %s duplicada", res.ID)
	}
	r.st.reservations[res.ID] = *res
	return nil
}

func (r reservationRepo) GetByID(_ context.Context, id string) (*entity.Reservation, error) {
	res, ok := r.st.reservations[id]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (r reservationRepo) Resolve(_ context.Context, res *entity.Reservation, to entity.ReservationStatus) error {
	cur, ok := r.st.reservations[res.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if !cur.IsActive() {
		return domain.ErrStaleState
	}
	now := time.Now().UTC()
	cur.Status = to
	cur.ResolvedAt = &now
	r.st.reservations[res.ID] = cur
	res.Status = to
	res.ResolvedAt = cur.ResolvedAt
	return nil
}

func (r reservationRepo) ListActiveByHolder(_ context.Context, holderType, holderID string) ([]*entity.Reservation, error) {
	return r.filter(func(res entity.Reservation) bool {
		return res.HolderType == holderType && res.HolderID == holderID
	}), nil
}

func (r reservationRepo) ListActiveByLot(_ context.Context, lotID string) ([]*entity.Reservation, error) {
	return r.filter(func(res entity.Reservation) bool { return res.LotID == lotID }), nil
}

func (r reservationRepo) filter(match func(entity.Reservation) bool) []*entity.Reservation {
	var out []*entity.Reservation
	for _, res := range r.st.reservations {
		if res.IsActive() && match(res) {
			res := res
			out = append(out, &res)
		}
	}
	sortReservations(out)
	return out
}

type movementRepo struct{ st *state }

func (r movementRepo) Create(_ context.Context, m *entity.LotMovement) error {
	r.st.movements = append(r.st.movements, *m)
	return nil
}

func (r movementRepo) ListByLot(_ context.Context, lotID string, limit, offset int) ([]*entity.LotMovement, error) {
	var out []*entity.LotMovement
	skipped := 0
	for _, m := range r.st.movements {
		if m.LotID != lotID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		m := m
		out = append(out, &m)
	}
	return out, nil
}

func sortReservations(list []*entity.Reservation) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
