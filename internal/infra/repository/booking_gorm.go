package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domain "github.com/mari-gunting/booking-core/internal/domain/booking"
	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/models"
)

const pgUniqueViolation = "23505"

type BookingGormRepository struct {
	db *gorm.DB
}

func NewBookingGormRepository(db *gorm.DB) *BookingGormRepository {
	return &BookingGormRepository{db: db}
}

// --------------------------------------------------
// Catalog
// --------------------------------------------------

func (r *BookingGormRepository) GetServices(
	ctx context.Context,
	barberID string,
	serviceIDs []string,
) ([]models.CatalogService, error) {

	var services []models.CatalogService
	if err := r.db.WithContext(ctx).
		Where("barber_id = ? AND id IN ?", barberID, serviceIDs).
		Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}

// --------------------------------------------------
// Vouchers
// --------------------------------------------------

func (r *BookingGormRepository) GetUserVoucher(
	ctx context.Context,
	userVoucherID string,
) (*models.UserVoucher, error) {

	var uv models.UserVoucher
	if err := r.db.WithContext(ctx).
		Preload("Voucher").
		First(&uv, "id = ?", userVoucherID).Error; err != nil {
		return nil, err
	}
	return &uv, nil
}

// --------------------------------------------------
// Booking (create)
// --------------------------------------------------

// CreateBooking writes the booking, the voucher redemption and the
// user-voucher flip in one transaction. The user-voucher flip is a CAS on
// status, so two bookings racing for the same voucher cannot both win.
func (r *BookingGormRepository) CreateBooking(
	ctx context.Context,
	b *models.Booking,
	redemption *models.VoucherRedemption,
) error {

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(b).Error; err != nil {
			return err
		}

		if redemption == nil {
			return nil
		}

		now := time.Now()
		res := tx.Model(&models.UserVoucher{}).
			Where("id = ? AND status = ?", redemption.UserVoucherID, models.UserVoucherActive).
			Updates(map[string]any{
				"status":              models.UserVoucherUsed,
				"used_at":             now,
				"used_for_booking_id": b.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return httperr.ErrVoucher("voucher_already_used")
		}

		if err := tx.Create(redemption).Error; err != nil {
			if isUniqueViolation(err) {
				return httperr.ErrVoucher("voucher_already_used")
			}
			return err
		}
		return nil
	})
}

// --------------------------------------------------
// Booking (read / CAS write)
// --------------------------------------------------

func (r *BookingGormRepository) GetBooking(
	ctx context.Context,
	id string,
) (*models.Booking, error) {

	var b models.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.ErrNotFound("booking_not_found")
		}
		return nil, err
	}
	return &b, nil
}

func (r *BookingGormRepository) GetBookingByPaymentID(
	ctx context.Context,
	curlecPaymentID string,
) (*models.Booking, error) {

	var b models.Booking
	if err := r.db.WithContext(ctx).
		First(&b, "curlec_payment_id = ?", curlecPaymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.ErrNotFound("booking_not_found")
		}
		return nil, err
	}
	return &b, nil
}

func (r *BookingGormRepository) UpdateBooking(
	ctx context.Context,
	b *models.Booking,
	expectedVersion int64,
) error {

	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND version = ?", b.ID, expectedVersion).
		Updates(map[string]any{
			"status":                  b.Status,
			"payment_status":          b.PaymentStatus,
			"curlec_payment_id":       b.CurlecPaymentID,
			"curlec_refund_id":        b.CurlecRefundID,
			"refund_amount_sen":       b.RefundAmountSen,
			"cancellation_reason":     b.CancellationReason,
			"dispute_reason":          b.DisputeReason,
			"settlement_alert":        b.SettlementAlert,
			"accepted_at":             b.AcceptedAt,
			"started_at":              b.StartedAt,
			"completed_at":            b.CompletedAt,
			"cancelled_at":            b.CancelledAt,
			"disputed_at":             b.DisputedAt,
			"completion_confirmed_at": b.CompletionConfirmedAt,
			"paid_at":                 b.PaidAt,
			"version":                 expectedVersion + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return httperr.ErrConflict("booking_version_conflict")
	}
	b.Version = expectedVersion + 1
	return nil
}

func (r *BookingGormRepository) ListBookingsForCustomer(
	ctx context.Context,
	customerID string,
	statuses []string,
	limit int,
) ([]models.Booking, error) {
	return r.listBookings(ctx, "customer_id", customerID, statuses, limit)
}

func (r *BookingGormRepository) ListBookingsForBarber(
	ctx context.Context,
	barberID string,
	statuses []string,
	limit int,
) ([]models.Booking, error) {
	return r.listBookings(ctx, "barber_id", barberID, statuses, limit)
}

func (r *BookingGormRepository) listBookings(
	ctx context.Context,
	column string,
	id string,
	statuses []string,
	limit int,
) ([]models.Booking, error) {

	q := r.db.WithContext(ctx).Where(column+" = ?", id)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var bookings []models.Booking
	if err := q.Order("scheduled_at DESC").Limit(limit).Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Compile-time check
var _ domain.Repository = (*BookingGormRepository)(nil)
