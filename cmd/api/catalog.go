package main

import (
	"github.com/jhoicas/bultos-api/internal/domain/entity"
	"github.com/jhoicas/bultos-api/internal/infrastructure/memory"
)

// demoCatalog catálogo mínimo para correr con STORE_DRIVER=memory.
func demoCatalog() *memory.Catalog {
	return memory.NewCatalog().
		AddLocation(entity.Location{ID: "BOD-CENTRAL", Name: "Bodega central"}).
		AddLocation(entity.Location{ID: "BOD-TALLER", Name: "Taller de confección"}).
		AddMaterial(entity.Material{Ref: "TELA-ALG", Name: "Tela de algodón", UnitMeasure: "m"}).
		AddMaterial(entity.Material{Ref: "HILO-POL", Name: "Hilo poliéster", UnitMeasure: "un"}).
		AddMaterial(entity.Material{Ref: "CAMISA-M", Name: "Camisa talla M", UnitMeasure: "un"}).
		AddProcessType(entity.ProcessType{ID: "PT-CORTE", Code: "CORTE", Name: "Corte"}).
		AddProcessType(entity.ProcessType{
			ID: "PT-CONFECCION", Code: "CONFECCION", Name: "Confección",
			ProducesNewLots: true, OutputMaterialRef: "CAMISA-M",
		})
}
