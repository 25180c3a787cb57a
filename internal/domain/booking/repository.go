package booking

import (
	"context"
	"time"

	"github.com/mari-gunting/booking-core/internal/models"
)

type Repository interface {
	// -------- Catalog --------
	GetServices(
		ctx context.Context,
		barberID string,
		serviceIDs []string,
	) ([]models.CatalogService, error)

	// -------- Vouchers --------
	GetUserVoucher(
		ctx context.Context,
		userVoucherID string,
	) (*models.UserVoucher, error)

	// -------- Booking --------

	// CreateBooking persists the booking and, when redemption is non-nil,
	// the voucher redemption and the user-voucher "used" flip in one
	// transaction. Nothing survives a failure of any part.
	CreateBooking(
		ctx context.Context,
		b *models.Booking,
		redemption *models.VoucherRedemption,
	) error

	GetBooking(
		ctx context.Context,
		id string,
	) (*models.Booking, error)

	GetBookingByPaymentID(
		ctx context.Context,
		curlecPaymentID string,
	) (*models.Booking, error)

	// UpdateBooking writes the row only if its version still equals
	// expectedVersion, bumping it by one. A miss returns a
	// concurrency-conflict business error.
	UpdateBooking(
		ctx context.Context,
		b *models.Booking,
		expectedVersion int64,
	) error

	ListBookingsForCustomer(
		ctx context.Context,
		customerID string,
		statuses []string,
		limit int,
	) ([]models.Booking, error)

	ListBookingsForBarber(
		ctx context.Context,
		barberID string,
		statuses []string,
		limit int,
	) ([]models.Booking, error)

	// -------- Scheduled jobs --------

	// CreateJob inserts a pending job unless the booking already has an
	// active one of the same kind; in that case it reports created=false.
	CreateJob(
		ctx context.Context,
		job *models.ScheduledJob,
	) (created bool, err error)

	CancelPendingJobs(
		ctx context.Context,
		bookingID string,
		kind string,
		reason string,
	) error

	DueJobs(
		ctx context.Context,
		now time.Time,
		maxRetries int,
		limit int,
	) ([]models.ScheduledJob, error)

	// ClaimJob flips a job pending → fired by compare-and-swap. claimed is
	// false when another worker got there first.
	ClaimJob(
		ctx context.Context,
		jobID string,
		now time.Time,
	) (claimed bool, err error)

	// RequeueJob puts a claimed job back for retry (or parks it failed when
	// retries are exhausted), recording the error.
	RequeueJob(
		ctx context.Context,
		job *models.ScheduledJob,
		lastError string,
		failed bool,
	) error

	MarkJobCancelled(
		ctx context.Context,
		jobID string,
		reason string,
	) error
}
