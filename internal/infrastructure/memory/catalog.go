package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/bultos-api/internal/domain/entity"
)

// Catalog catálogo estático en memoria (materiales, tipos de proceso y ubicaciones).
type Catalog struct {
	mu           sync.RWMutex
	materials    map[string]entity.Material
	processTypes map[string]entity.ProcessType
	locations    map[string]entity.Location
}

// NewCatalog crea un catálogo vacío.
func NewCatalog() *Catalog {
	return &Catalog{
		materials:    map[string]entity.Material{},
		processTypes: map[string]entity.ProcessType{},
		locations:    map[string]entity.Location{},
	}
}

// AddMaterial registra o reemplaza un material.
func (c *Catalog) AddMaterial(m entity.Material) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.materials[m.Ref] = m
	return c
}

// AddProcessType registra o reemplaza un tipo de proceso.
func (c *Catalog) AddProcessType(pt entity.ProcessType) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processTypes[pt.ID] = pt
	return c
}

// AddLocation registra o reemplaza una ubicación.
func (c *Catalog) AddLocation(l entity.Location) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locations[l.ID] = l
	return c
}

func (c *Catalog) GetMaterial(_ context.Context, ref string) (*entity.Material, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.materials[ref]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (c *Catalog) GetProcessType(_ context.Context, id string) (*entity.ProcessType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pt, ok := c.processTypes[id]
	if !ok {
		return nil, nil
	}
	return &pt, nil
}

func (c *Catalog) GetLocation(_ context.Context, id string) (*entity.Location, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.locations[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}
