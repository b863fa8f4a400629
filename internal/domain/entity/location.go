package entity

import "time"

// Location representa una bodega o ubicación de almacenamiento (origen/destino de traslados).
type Location struct {
	ID        string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
