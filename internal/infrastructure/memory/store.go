// Package memory implementa los puertos de persistencia en memoria. Cada unidad de trabajo
// se ejecuta sobre una copia del estado y se publica solo si termina sin error.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/internal/domain/repository"
)

type state struct {
	lots         map[string]entity.Lot
	lotOrder     []string
	reservations map[string]entity.Reservation
	movements    []entity.LotMovement
	pallets      map[string]entity.Pallet
	palletOrder  []string
	requests     map[string]entity.MerchandiseRequest
	requestOrder []string
	pautas       map[string]entity.Pauta
	pautaOrder   []string
}

func newState() *state {
	return &state{
		lots:         map[string]entity.Lot{},
		reservations: map[string]entity.Reservation{},
		pallets:      map[string]entity.Pallet{},
		requests:     map[string]entity.MerchandiseRequest{},
		pautas:       map[string]entity.Pauta{},
	}
}

// clone copia mapas y órdenes. Los valores guardados nunca se mutan en sitio (se leen y
// escriben como copias), así que basta con una copia superficial.
func (s *state) clone() *state {
	c := &state{
		lots:         make(map[string]entity.Lot, len(s.lots)),
		lotOrder:     append([]string(nil), s.lotOrder...),
		reservations: make(map[string]entity.Reservation, len(s.reservations)),
		movements:    append([]entity.LotMovement(nil), s.movements...),
		pallets:      make(map[string]entity.Pallet, len(s.pallets)),
		palletOrder:  append([]string(nil), s.palletOrder...),
		requests:     make(map[string]entity.MerchandiseRequest, len(s.requests)),
		requestOrder: append([]string(nil), s.requestOrder...),
		pautas:       make(map[string]entity.Pauta, len(s.pautas)),
		pautaOrder:   append([]string(nil), s.pautaOrder...),
	}
	for k, v := range s.lots {
		c.lots[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.pallets {
		c.pallets[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.pautas {
		c.pautas[k] = v
	}
	return c
}

func (s *state) repositories() repository.Repositories {
	return repository.Repositories{
		Lots:         lotRepo{st: s},
		Reservations: reservationRepo{st: s},
		Movements:    movementRepo{st: s},
		Pallets:      palletRepo{st: s},
		Requests:     requestRepo{st: s},
		Pautas:       pautaRepo{st: s},
	}
}

// Store almacén transaccional en memoria. Implementa ports.TxRunner.
// Las unidades de trabajo se serializan; no hay lectores concurrentes con escritores.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Run ejecuta fn sobre una copia del estado y la publica si fn no devuelve error.
func (s *Store) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(work.repositories()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}
