package entity

// Material representa un material del catálogo (proveedor, producto o insumo).
// El catálogo vive fuera del motor; aquí solo se necesita para validar referencias.
type Material struct {
	Ref         string // referencia única (código de producto/insumo)
	Name        string
	UnitMeasure string
}

// ProcessType describe un tipo de proceso de valor agregado (receta) del catálogo.
// Si ProducesNewLots es verdadero, completar una pauta de este tipo genera un bulto nuevo
// con OutputMaterialRef (o el material del bulto de producción si está vacío).
type ProcessType struct {
	ID                string
	Code              string
	Name              string
	ProducesNewLots   bool
	OutputMaterialRef string
}
