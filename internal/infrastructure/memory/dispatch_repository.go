package memory

import (
	"context"
	"fmt"

	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
)

func clonePallet(p entity.Pallet) entity.Pallet {
	p.Items = append([]entity.PalletItem(nil), p.Items...)
	return p
}

func cloneRequest(r entity.MerchandiseRequest) entity.MerchandiseRequest {
	r.LineItems = append([]entity.RequestLineItem(nil), r.LineItems...)
	r.PalletIDs = append([]string(nil), r.PalletIDs...)
	return r
}

type palletRepo struct{ st *state }

func (r palletRepo) Create(_ context.Context, p *entity.Pallet) error {
	if _, ok := r.st.pallets[p.ID]; ok {
		return fmt.Errorf("memory: pallet %s duplicado", p.ID)
	}
	r.st.pallets[p.ID] = clonePallet(*p)
	r.st.palletOrder = append(r.st.palletOrder, p.ID)
	return nil
}

func (r palletRepo) GetByID(_ context.Context, id string) (*entity.Pallet, error) {
	p, ok := r.st.pallets[id]
	if !ok {
		return nil, nil
	}
	p = clonePallet(p)
	return &p, nil
}

func (r palletRepo) GetForUpdate(ctx context.Context, id string) (*entity.Pallet, error) {
	return r.GetByID(ctx, id)
}

func (r palletRepo) Update(_ context.Context, p *entity.Pallet) error {
	cur, ok := r.st.pallets[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != p.Version {
		return domain.ErrStaleState
	}
	p.Version++
	r.st.pallets[p.ID] = clonePallet(*p)
	return nil
}

func (r palletRepo) ListByRequest(_ context.Context, requestID string) ([]*entity.Pallet, error) {
	var out []*entity.Pallet
	for _, id := range r.st.palletOrder {
		p := r.st.pallets[id]
		if p.RequestID == requestID {
			p = clonePallet(p)
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r palletRepo) FindOpenByLot(_ context.Context, lotID string) (*entity.Pallet, error) {
	for _, id := range r.st.palletOrder {
		p := r.st.pallets[id]
		if p.IsClosed() {
			continue
		}
		for _, it := range p.Items {
			if it.LotID == lotID && !it.Resolved {
				p = clonePallet(p)
				return &p, nil
			}
		}
	}
	return nil, nil
}

type requestRepo struct{ st *state }

func (r requestRepo) Create(_ context.Context, req *entity.MerchandiseRequest) error {
	if _, ok := r.st.requests[req.ID]; ok {
		return fmt.Errorf("memory: solicitud %s duplicada", req.ID)
	}
	r.st.requests[req.ID] = cloneRequest(*req)
	r.st.requestOrder = append(r.st.requestOrder, req.ID)
	return nil
}

func (r requestRepo) GetByID(_ context.Context, id string) (*entity.MerchandiseRequest, error) {
	req, ok := r.st.requests[id]
	if !ok {
		return nil, nil
	}
	req = cloneRequest(req)
	return &req, nil
}

func (r requestRepo) GetForUpdate(ctx context.Context, id string) (*entity.MerchandiseRequest, error) {
	return r.GetByID(ctx, id)
}

func (r requestRepo) Update(_ context.Context, req *entity.MerchandiseRequest, expected entity.RequestStatus) error {
	cur, ok := r.st.requests[req.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != expected || cur.Version != req.Version {
		return domain.ErrStaleState
	}
	req.Version++
	r.st.requests[req.ID] = cloneRequest(*req)
	return nil
}

func (r requestRepo) List(_ context.Context, status string, limit, offset int) ([]*entity.MerchandiseRequest, error) {
	var out []*entity.MerchandiseRequest
	skipped := 0
	// más recientes primero
	for i := len(r.st.requestOrder) - 1; i >= 0; i-- {
		req := r.st.requests[r.st.requestOrder[i]]
		if status != "" && string(req.Status) != status {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		req = cloneRequest(req)
		out = append(out, &req)
	}
	return out, nil
}
