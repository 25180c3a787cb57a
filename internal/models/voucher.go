package models

import "time"

const (
	VoucherTypePercentage = "percentage"
	VoucherTypeFixed      = "fixed"
)

type Voucher struct {
	ID    string `gorm:"type:uuid;primaryKey" json:"id"`
	Code  string `gorm:"size:30;uniqueIndex;not null" json:"code"`
	Title string `gorm:"size:100" json:"title"`

	Type  string `gorm:"size:20;not null" json:"type"` // percentage | fixed
	Value int64  `gorm:"not null" json:"value"`        // percent (0-100) or sen

	MinSpendSen    int64 `json:"min_spend_sen"`
	MaxDiscountSen int64 `json:"max_discount_sen"` // 0 = uncapped

	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`
	Active     bool      `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	UserVoucherActive  = "active"
	UserVoucherUsed    = "used"
	UserVoucherExpired = "expired"
)

// UserVoucher is a voucher held by one customer after redemption with
// points. It can be spent on exactly one booking.
type UserVoucher struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string `gorm:"type:uuid;index;not null" json:"user_id"`
	VoucherID string `gorm:"type:uuid;not null" json:"voucher_id"`

	Voucher Voucher `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"voucher"`

	Status           string     `gorm:"size:20;default:'active'" json:"status"`
	UsedAt           *time.Time `json:"used_at"`
	UsedForBookingID *string    `gorm:"type:uuid" json:"used_for_booking_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VoucherRedemption binds one UserVoucher spend to one booking, written in
// the same transaction as the booking row.
type VoucherRedemption struct {
	ID            string `gorm:"type:uuid;primaryKey" json:"id"`
	UserVoucherID string `gorm:"type:uuid;uniqueIndex;not null" json:"user_voucher_id"`
	BookingID     string `gorm:"type:uuid;uniqueIndex;not null" json:"booking_id"`

	OriginalTotalSen   int64 `json:"original_total_sen"`
	DiscountAppliedSen int64 `json:"discount_applied_sen"`
	FinalTotalSen      int64 `json:"final_total_sen"`

	CreatedAt time.Time `json:"created_at"`
}
