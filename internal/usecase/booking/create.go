package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mari-gunting/booking-core/internal/audit"
	domain "github.com/mari-gunting/booking-core/internal/domain/booking"
	"github.com/mari-gunting/booking-core/internal/domain/payment"
	"github.com/mari-gunting/booking-core/internal/gate"
	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/models"
	"github.com/mari-gunting/booking-core/internal/payments"
	"github.com/mari-gunting/booking-core/internal/pricing"
	"github.com/mari-gunting/booking-core/internal/timezone"
)

// ======================================================
// INPUT
// ======================================================

type CreateBookingInput struct {
	CustomerID   string
	BarberID     string
	BarbershopID *string

	ServiceIDs  []string
	ServiceType string
	ScheduledAt time.Time

	CustomerAddress *models.Address
	DistanceKm      float64
	CustomerNotes   string

	PaymentMethod   string
	CurlecPaymentID *string
	CurlecOrderID   *string

	UserVoucherID  string
	IdempotencyKey string
}

// ======================================================
// USE CASE
// ======================================================

type CreateBooking struct {
	repo       domain.Repository
	gate       *gate.Gate
	pricer     *pricing.Resolver
	engine     *payments.Engine
	audit      *audit.Dispatcher
	clock      clockwork.Clock
	pendingTTL time.Duration
}

func NewCreateBooking(
	repo domain.Repository,
	g *gate.Gate,
	pricer *pricing.Resolver,
	engine *payments.Engine,
	auditDisp *audit.Dispatcher,
	clock clockwork.Clock,
	pendingTTL time.Duration,
) *CreateBooking {
	return &CreateBooking{
		repo:       repo,
		gate:       g,
		pricer:     pricer,
		engine:     engine,
		audit:      auditDisp,
		clock:      clock,
		pendingTTL: pendingTTL,
	}
}

// ======================================================
// EXECUTE
// ======================================================

func (uc *CreateBooking) Execute(
	ctx context.Context,
	in CreateBookingInput,
) (*models.Booking, error) {

	// --------------------------------------------------
	// 1. Rate limit: outermost, before any priced work
	// --------------------------------------------------
	if err := uc.gate.Allow(ctx, in.CustomerID); err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 2. Idempotency replay
	// --------------------------------------------------
	if cached, err := uc.gate.Cached(ctx, in.CustomerID, in.IdempotencyKey); err != nil {
		return nil, err
	} else if cached != nil {
		return uc.repo.GetBooking(ctx, cached.BookingID)
	}

	// --------------------------------------------------
	// 3. Request validation
	// --------------------------------------------------
	if err := validateCreate(in, uc.clock.Now()); err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 4. Server-side pricing (never the client's numbers)
	// --------------------------------------------------
	quote, err := uc.pricer.Price(ctx, pricing.Input{
		BarberID:      in.BarberID,
		CustomerID:    in.CustomerID,
		ServiceIDs:    in.ServiceIDs,
		ServiceType:   in.ServiceType,
		DistanceKm:    in.DistanceKm,
		UserVoucherID: in.UserVoucherID,
	})
	if err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 5. Online payments: verify the authorization amount
	// --------------------------------------------------
	paymentStatus := payment.StatusPending
	if payment.IsOnline(in.PaymentMethod) {
		if in.CurlecPaymentID == nil {
			return nil, httperr.ErrValidation("missing_gateway_payment")
		}
		if _, err := uc.engine.VerifyAuthorization(ctx, *in.CurlecPaymentID, quote.TotalSen); err != nil {
			// Gateway trouble or amount tamper aborts creation entirely.
			return nil, err
		}
		paymentStatus = payment.StatusAuthorized
	}

	// --------------------------------------------------
	// 6. Booking row + voucher redemption, one transaction
	// --------------------------------------------------
	now := uc.clock.Now()
	b := &models.Booking{
		ID:            uuid.NewString(),
		BookingNumber: bookingNumber(now),

		CustomerID:   in.CustomerID,
		BarberID:     in.BarberID,
		BarbershopID: in.BarbershopID,

		ServiceType:     in.ServiceType,
		Services:        quote.Services,
		CustomerAddress: in.CustomerAddress,

		SubtotalSen:   quote.SubtotalSen,
		ServiceFeeSen: quote.ServiceFeeSen,
		TravelFeeSen:  quote.TravelFeeSen,
		DiscountSen:   quote.DiscountSen,
		TotalPriceSen: quote.TotalSen,

		ScheduledAt: in.ScheduledAt.UTC(),
		Status:      string(domain.StatusPending),

		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   string(paymentStatus),
		CurlecPaymentID: in.CurlecPaymentID,
		CurlecOrderID:   in.CurlecOrderID,

		CustomerNotes: in.CustomerNotes,
	}

	var redemption *models.VoucherRedemption
	if quote.UserVoucher != nil {
		redemption = &models.VoucherRedemption{
			ID:                 uuid.NewString(),
			UserVoucherID:      quote.UserVoucher.ID,
			BookingID:          b.ID,
			OriginalTotalSen:   quote.SubtotalSen + quote.ServiceFeeSen + quote.TravelFeeSen,
			DiscountAppliedSen: quote.DiscountSen,
			FinalTotalSen:      quote.TotalSen,
		}
	}

	if err := uc.repo.CreateBooking(ctx, b, redemption); err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 7. Pending-response expiry job
	// --------------------------------------------------
	if _, err := uc.repo.CreateJob(ctx, &models.ScheduledJob{
		ID:          uuid.NewString(),
		Kind:        models.JobKindExpire,
		BookingID:   b.ID,
		ScheduledAt: now.Add(uc.pendingTTL),
		Status:      models.JobStatusPending,
	}); err != nil {
		// The booking exists; a missing expiry job is an ops concern,
		// not a creation failure.
		uc.audit.Dispatch(audit.SettlementAlert("expiry_job_create_failed", b.ID, err.Error()))
	}

	// --------------------------------------------------
	// 8. Idempotency record + audit
	// --------------------------------------------------
	if err := uc.gate.Store(ctx, in.CustomerID, in.IdempotencyKey, gate.Result{
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		TotalPriceSen: b.TotalPriceSen,
	}); err != nil {
		uc.audit.Dispatch(audit.SettlementAlert("idempotency_store_failed", b.ID, err.Error()))
	}

	uc.audit.Dispatch(audit.BookingEvent(&in.CustomerID, "booking_created", b.ID))

	return b, nil
}

func validateCreate(in CreateBookingInput, now time.Time) error {
	if in.CustomerID == "" || in.BarberID == "" {
		return httperr.ErrValidation("missing_parties")
	}
	if in.ServiceType != pricing.ServiceTypeHome && in.ServiceType != pricing.ServiceTypeWalkIn {
		return httperr.ErrValidation("invalid_service_type")
	}
	if in.ServiceType == pricing.ServiceTypeHome && in.CustomerAddress == nil {
		return httperr.ErrValidation("missing_address")
	}
	if in.ScheduledAt.Before(now) {
		return httperr.ErrValidation("scheduled_in_past")
	}
	if in.PaymentMethod != "cash" && !payment.IsOnline(in.PaymentMethod) {
		return httperr.ErrValidation("invalid_payment_method")
	}
	return nil
}

// bookingNumber is human-readable and unique but not guessable. The date
// part follows the Kuala Lumpur calendar so numbers match what customers
// and support staff see, not the UTC day.
func bookingNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("MG-%s-%s", timezone.Display(now, "").Format("20060102"), suffix)
}
