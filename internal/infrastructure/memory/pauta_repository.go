package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/entity"
)

func clonePauta(p entity.Pauta) entity.Pauta {
	p.Steps = append([]entity.StepRecord(nil), p.Steps...)
	p.RequiredInputs = append([]entity.RequiredInput(nil), p.RequiredInputs...)
	p.ConsumedInputs = append([]entity.ConsumedInput(nil), p.ConsumedInputs...)
	return p
}

type pautaRepo struct{ st *state }

func (r pautaRepo) Create(_ context.Context, p *entity.Pauta) error {
	if _, ok := r.st.pautas[p.ID]; ok {
		return fmt.Errorf("memory: pauta %s duplicada", p.ID)
	}
	for _, other := range r.st.pautas {
		if other.LotID == p.LotID && other.SequenceOrder == p.SequenceOrder {
			return fmt.Errorf("%w: ya existe la pauta %d para el bulto", domain.ErrInvalidInput, p.SequenceOrder)
		}
	}
	r.st.pautas[p.ID] = clonePauta(*p)
	r.st.pautaOrder = append(r.st.pautaOrder, p.ID)
	return nil
}

func (r pautaRepo) GetByID(_ context.Context, id string) (*entity.Pauta, error) {
	p, ok := r.st.pautas[id]
	if !ok {
		return nil, nil
	}
	p = clonePauta(p)
	return &p, nil
}

func (r pautaRepo) GetForUpdate(ctx context.Context, id string) (*entity.Pauta, error) {
	return r.GetByID(ctx, id)
}

func (r pautaRepo) FindIDByStep(_ context.Context, stepID string) (string, error) {
	for _, id := range r.st.pautaOrder {
		for _, s := range r.st.pautas[id].Steps {
			if s.ID == stepID {
				return id, nil
			}
		}
	}
	return "", nil
}

func (r pautaRepo) ListByLot(_ context.Context, lotID string) ([]*entity.Pauta, error) {
	var out []*entity.Pauta
	for _, id := range r.st.pautaOrder {
		p := r.st.pautas[id]
		if p.LotID == lotID {
			p = clonePauta(p)
			out = append(out, &p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SequenceOrder < out[j].SequenceOrder })
	return out, nil
}

func (r pautaRepo) Update(_ context.Context, p *entity.Pauta, expected entity.ProcessStatus) error {
	cur, ok := r.st.pautas[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != expected || cur.Version != p.Version {
		return domain.ErrStaleState
	}
	p.Version++
	r.st.pautas[p.ID] = clonePauta(*p)
	return nil
}
