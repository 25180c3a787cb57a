package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ServiceSnapshot is the price/duration of one service frozen at booking
// time. Catalog edits after creation never touch existing bookings.
type ServiceSnapshot struct {
	ServiceID   string `json:"service_id"`
	Name        string `json:"name"`
	PriceSen    int64  `json:"price_sen"`
	DurationMin int    `json:"duration_min"`
}

type ServiceSnapshots []ServiceSnapshot

func (s ServiceSnapshots) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *ServiceSnapshots) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			b = []byte(str)
		} else {
			return errors.New("services: unsupported column type")
		}
	}
	return json.Unmarshal(b, s)
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code,omitempty"`
}

func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Address) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			b = []byte(str)
		} else {
			return errors.New("address: unsupported column type")
		}
	}
	return json.Unmarshal(b, a)
}

type Booking struct {
	ID            string `gorm:"type:uuid;primaryKey" json:"id"`
	BookingNumber string `gorm:"size:30;uniqueIndex;not null" json:"booking_number"`

	CustomerID   string  `gorm:"type:uuid;index;not null" json:"customer_id"`
	BarberID     string  `gorm:"type:uuid;index;not null" json:"barber_id"`
	BarbershopID *string `gorm:"type:uuid" json:"barbershop_id"`

	// home_service travels to the customer; walk_in happens at the shop.
	ServiceType     string           `gorm:"size:20;not null" json:"service_type"`
	Services        ServiceSnapshots `gorm:"type:jsonb;not null" json:"services"`
	CustomerAddress *Address         `gorm:"type:jsonb" json:"customer_address"`

	// All amounts in sen (MYR minor units).
	SubtotalSen   int64 `json:"subtotal_sen"`
	ServiceFeeSen int64 `json:"service_fee_sen"`
	TravelFeeSen  int64 `json:"travel_fee_sen"`
	DiscountSen   int64 `json:"discount_sen"`
	TotalPriceSen int64 `json:"total_price_sen"`

	ScheduledAt time.Time `gorm:"not null" json:"scheduled_at"` // UTC instant

	Status string `gorm:"size:20;default:'pending';index" json:"status"`

	PaymentMethod  string  `gorm:"size:20" json:"payment_method"`
	PaymentStatus  string  `gorm:"size:20;default:'pending';index" json:"payment_status"`
	CurlecOrderID  *string `gorm:"size:60" json:"curlec_order_id"`
	CurlecPaymentID *string `gorm:"size:60;index" json:"curlec_payment_id"`
	CurlecRefundID *string `gorm:"size:60" json:"curlec_refund_id"`
	RefundAmountSen int64  `json:"refund_amount_sen"`

	CustomerNotes      string `gorm:"size:500" json:"customer_notes"`
	CancellationReason string `gorm:"size:500" json:"cancellation_reason"`
	DisputeReason      string `gorm:"size:500" json:"dispute_reason"`

	// Set when a money-moving call failed after retries; the booking
	// transition itself still committed. Cleared by reconciliation.
	SettlementAlert string `gorm:"size:500" json:"settlement_alert,omitempty"`

	AcceptedAt            *time.Time `json:"accepted_at"`
	StartedAt             *time.Time `json:"started_at"`
	CompletedAt           *time.Time `json:"completed_at"`
	CancelledAt           *time.Time `json:"cancelled_at"`
	DisputedAt            *time.Time `json:"disputed_at"`
	CompletionConfirmedAt *time.Time `json:"completion_confirmed_at"`
	PaidAt                *time.Time `json:"paid_at"`

	// Optimistic lock; every status or payment-status write bumps it.
	Version int64 `gorm:"default:0" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
