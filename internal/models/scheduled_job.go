package models

import "time"

const (
	JobKindCapture = "capture" // delayed payment capture after completion
	JobKindExpire  = "expire"  // pending booking with no barber response

	JobStatusPending   = "pending"
	JobStatusFired     = "fired"
	JobStatusCancelled = "cancelled"
	JobStatusFailed    = "failed" // retries exhausted, needs an operator
)

// ScheduledJob is a durable delayed action. Rows survive restarts; the
// worker claims them by compare-and-swap on status so a job fires at most
// once even under concurrent pollers.
type ScheduledJob struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	Kind      string `gorm:"size:20;not null;index" json:"kind"`
	BookingID string `gorm:"type:uuid;not null;index:idx_job_booking_kind" json:"booking_id"`

	ScheduledAt time.Time `gorm:"not null;index" json:"scheduled_at"`
	Status      string    `gorm:"size:20;default:'pending';index" json:"status"`

	RetryCount  int        `json:"retry_count"`
	LastError   string     `gorm:"size:500" json:"last_error"`
	ProcessedAt *time.Time `json:"processed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
