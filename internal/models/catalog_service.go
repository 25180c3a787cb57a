package models

import "time"

// CatalogService is the live service catalog. Prices here are the only
// prices the pricing resolver trusts; client-supplied prices are ignored.
type CatalogService struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	BarberID string `gorm:"type:uuid;index;not null" json:"barber_id"`

	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
	PriceSen    int64  `gorm:"not null" json:"price_sen"`
	DurationMin int    `json:"duration_min"`
	Active      bool   `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
