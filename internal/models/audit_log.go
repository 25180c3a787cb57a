package models

import "time"

type AuditLog struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ActorID *string `gorm:"type:uuid" json:"actor_id"` // nil for system events
	Action  string  `gorm:"size:50;not null" json:"action"`

	Entity   string  `gorm:"size:50" json:"entity"`
	EntityID *string `gorm:"type:uuid" json:"entity_id"`
	Metadata string  `gorm:"type:text" json:"metadata"`

	// Alerts are audit rows that an operator must act on (for example a
	// capture that kept failing after retries).
	Alert bool `gorm:"default:false;index" json:"alert"`

	CreatedAt time.Time `json:"created_at"`
}
