package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mari-gunting/booking-core/internal/audit"
	domain "github.com/mari-gunting/booking-core/internal/domain/booking"
	"github.com/mari-gunting/booking-core/internal/domain/payment"
	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/models"
)

// Engine owns payment-status transitions. Booking-status writes never wait
// on it: a gateway failure here is recorded for retry and alerting, not
// allowed to roll back a lifecycle transition that already happened.
type Engine struct {
	repo  domain.Repository
	gw    Gateway
	audit *audit.Dispatcher
	clock clockwork.Clock

	captureDelay time.Duration
	maxAttempts  int
	retryDelay   time.Duration
}

func NewEngine(
	repo domain.Repository,
	gw Gateway,
	auditDisp *audit.Dispatcher,
	clock clockwork.Clock,
	captureDelay time.Duration,
) *Engine {
	return &Engine{
		repo:         repo,
		gw:           gw,
		audit:        auditDisp,
		clock:        clock,
		captureDelay: captureDelay,
		maxAttempts:  3,
		retryDelay:   2 * time.Second,
	}
}

// ======================================================
// AUTHORIZE (creation time)
// ======================================================

// CreateOrder opens a manual-capture gateway order for the quoted total.
// The client pays against this order; the booking is created only after the
// resulting payment is verified.
func (e *Engine) CreateOrder(ctx context.Context, amountSen int64, receipt string) (string, error) {
	var orderID string
	err := withRetry(ctx, e.clock, e.maxAttempts, e.retryDelay, func() error {
		var oerr error
		orderID, oerr = e.gw.CreateOrder(ctx, amountSen, receipt)
		return oerr
	})
	if err != nil {
		return "", httperr.ErrGateway("order_create_failed")
	}
	return orderID, nil
}

// VerifyAuthorization checks the gateway's view of the payment against the
// server-computed total. The client never gets to assert what it paid.
func (e *Engine) VerifyAuthorization(ctx context.Context, paymentID string, expectedSen int64) (*Payment, error) {
	var p *Payment
	err := withRetry(ctx, e.clock, e.maxAttempts, e.retryDelay, func() error {
		var ferr error
		p, ferr = e.gw.FetchPayment(ctx, paymentID)
		return ferr
	})
	if err != nil {
		return nil, httperr.ErrGateway("payment_verification_failed")
	}

	if p.Status != GatewayAuthorized && p.Status != GatewayCaptured {
		return nil, httperr.ErrValidation("payment_not_authorized")
	}
	if p.AmountSen != expectedSen {
		return nil, httperr.ErrAmountMismatch("payment_amount_mismatch")
	}
	return p, nil
}

// ======================================================
// DELAYED CAPTURE
// ======================================================

// ScheduleCapture queues the delayed capture for a completed booking.
// At most one active capture job exists per booking.
func (e *Engine) ScheduleCapture(ctx context.Context, b *models.Booking) error {
	base := e.clock.Now()
	if b.CompletedAt != nil {
		base = *b.CompletedAt
	}

	job := &models.ScheduledJob{
		ID:          uuid.NewString(),
		Kind:        models.JobKindCapture,
		BookingID:   b.ID,
		ScheduledAt: base.Add(e.captureDelay),
		Status:      models.JobStatusPending,
	}
	created, err := e.repo.CreateJob(ctx, job)
	if err != nil {
		return err
	}
	if created {
		e.audit.Dispatch(audit.BookingEvent(nil, "capture_scheduled", b.ID))
	}
	return nil
}

// CancelCapture drops any pending capture job (dispute, early confirm,
// cancellation).
func (e *Engine) CancelCapture(ctx context.Context, bookingID, reason string) error {
	return e.repo.CancelPendingJobs(ctx, bookingID, models.JobKindCapture, reason)
}

// ConfirmEarly captures immediately at the customer's request. Confirming
// an already-captured booking succeeds without touching the gateway.
func (e *Engine) ConfirmEarly(ctx context.Context, bookingID string) error {
	b, err := e.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if payment.Status(b.PaymentStatus) == payment.StatusCompleted {
		return nil
	}
	if err := e.CancelCapture(ctx, bookingID, "customer confirmed early"); err != nil {
		return err
	}
	return e.CaptureNow(ctx, bookingID)
}

// CaptureNow performs the gateway capture and records the result. Safe
// under at-least-once delivery: a second call on a captured booking is a
// no-op, and the gateway treats repeated captures as success.
func (e *Engine) CaptureNow(ctx context.Context, bookingID string) error {
	b, err := e.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	switch payment.Status(b.PaymentStatus) {
	case payment.StatusCompleted:
		return nil
	case payment.StatusAuthorized:
		// proceed
	default:
		return httperr.ErrTransition("payment_not_capturable")
	}

	// Re-check the booking itself on this read: a dispute or cancellation
	// committed after scheduling must win over the capture.
	if domain.Status(b.Status) != domain.StatusCompleted || b.DisputedAt != nil {
		return httperr.ErrTransition("booking_not_capturable")
	}
	if b.CurlecPaymentID == nil {
		return httperr.ErrValidation("missing_gateway_payment")
	}

	err = withRetry(ctx, e.clock, e.maxAttempts, e.retryDelay, func() error {
		return e.gw.Capture(ctx, *b.CurlecPaymentID, b.TotalPriceSen)
	})
	if err != nil {
		e.recordFailure(ctx, b, "capture_failed", err)
		return httperr.ErrGateway("capture_failed")
	}

	return e.markCaptured(ctx, b)
}

// markCaptured writes the captured state locally. The gateway call already
// succeeded, so version races are resolved by re-reading and re-checking,
// never by failing the capture.
func (e *Engine) markCaptured(ctx context.Context, b *models.Booking) error {
	for i := 0; i < 3; i++ {
		// Anything past authorized means the capture is already recorded
		// (and possibly refunded since); a late delivery changes nothing.
		st := payment.Status(b.PaymentStatus)
		if st != payment.StatusPending && st != payment.StatusAuthorized {
			return nil
		}
		st, err := payment.Transition(st, payment.StatusCompleted)
		if err != nil {
			return err
		}
		now := e.clock.Now()
		b.PaymentStatus = string(st)
		b.PaidAt = &now
		b.SettlementAlert = ""

		err = e.repo.UpdateBooking(ctx, b, b.Version)
		if err == nil {
			e.audit.Dispatch(audit.BookingEvent(nil, "payment_captured", b.ID))
			return nil
		}
		if !httperr.IsKind(err, httperr.KindConflict) {
			return err
		}
		fresh, ferr := e.repo.GetBooking(ctx, b.ID)
		if ferr != nil {
			return ferr
		}
		*b = *fresh
	}
	return httperr.ErrConflict("booking_update_conflict")
}

// ======================================================
// CANCELLATION / REFUND
// ======================================================

// Cancel settles the payment side of a cancelled booking. Authorized holds
// are left to lapse at the gateway (Curlec has no void call); captured
// payments get a full refund. The caller has already committed the status
// transition, so a failure here is recorded, not propagated as a rollback.
func (e *Engine) Cancel(ctx context.Context, bookingID, reason string) error {
	b, err := e.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	switch payment.Status(b.PaymentStatus) {
	case payment.StatusAuthorized:
		if err := e.CancelCapture(ctx, bookingID, "booking cancelled"); err != nil {
			return err
		}
		return e.markReversed(ctx, b)

	case payment.StatusCompleted:
		return e.refund(ctx, b, b.TotalPriceSen, reason)

	default:
		// Nothing held, nothing captured: no settlement action.
		return nil
	}
}

func (e *Engine) markReversed(ctx context.Context, b *models.Booking) error {
	st, err := payment.Transition(payment.Status(b.PaymentStatus), payment.StatusReversed)
	if err != nil {
		return err
	}
	b.PaymentStatus = string(st)
	if err := e.repo.UpdateBooking(ctx, b, b.Version); err != nil {
		return err
	}
	e.audit.Dispatch(audit.BookingEvent(nil, "authorization_reversed", b.ID))
	return nil
}

func (e *Engine) refund(ctx context.Context, b *models.Booking, amountSen int64, reason string) error {
	if amountSen > b.TotalPriceSen {
		amountSen = b.TotalPriceSen
	}
	if b.CurlecPaymentID == nil {
		return httperr.ErrValidation("missing_gateway_payment")
	}

	receipt := "refund_" + shortID(b.ID)
	var refundID string
	err := withRetry(ctx, e.clock, e.maxAttempts, e.retryDelay, func() error {
		var rerr error
		refundID, rerr = e.gw.Refund(ctx, *b.CurlecPaymentID, amountSen, reason, receipt)
		return rerr
	})
	if err != nil {
		e.recordFailure(ctx, b, "refund_failed", err)
		return httperr.ErrGateway("refund_failed")
	}

	// The gateway refund already succeeded; the local write must not be
	// lost to a version race. Webhooks and reconcile can still repair a
	// truly lost write, but only if the alert below gets an operator (or
	// the gateway's redelivery) looking at the booking again.
	for i := 0; i < 3; i++ {
		st := payment.Status(b.PaymentStatus)
		if st == payment.StatusRefundInitiated || st == payment.StatusRefunded {
			return nil
		}
		st, terr := payment.Transition(st, payment.StatusRefundInitiated)
		if terr != nil {
			return terr
		}
		b.PaymentStatus = string(st)
		b.CurlecRefundID = &refundID
		b.RefundAmountSen = amountSen
		b.SettlementAlert = ""

		err = e.repo.UpdateBooking(ctx, b, b.Version)
		if err == nil {
			e.audit.Dispatch(audit.BookingEvent(nil, "refund_initiated", b.ID))
			return nil
		}
		if !httperr.IsKind(err, httperr.KindConflict) {
			break
		}
		fresh, ferr := e.repo.GetBooking(ctx, b.ID)
		if ferr != nil {
			err = ferr
			break
		}
		*b = *fresh
	}

	e.audit.Dispatch(audit.SettlementAlert("refund_record_failed", b.ID, map[string]string{
		"refund_id": refundID,
		"error":     err.Error(),
	}))
	return err
}

// ======================================================
// CASH
// ======================================================

// SettleCash marks a cash booking paid when the service completes. No
// gateway involved.
func (e *Engine) SettleCash(ctx context.Context, b *models.Booking) error {
	if payment.Status(b.PaymentStatus) == payment.StatusCompleted {
		return nil
	}
	st, err := payment.Transition(payment.Status(b.PaymentStatus), payment.StatusCompleted)
	if err != nil {
		return err
	}
	now := e.clock.Now()
	b.PaymentStatus = string(st)
	b.PaidAt = &now
	return e.repo.UpdateBooking(ctx, b, b.Version)
}

// ======================================================
// RECONCILIATION / WEBHOOKS
// ======================================================

// Reconcile repairs local payment state from the gateway's authoritative
// view. It covers the window where a gateway call succeeded but the local
// write was lost.
func (e *Engine) Reconcile(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := e.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.CurlecPaymentID == nil {
		return b, nil
	}

	p, err := e.gw.FetchPayment(ctx, *b.CurlecPaymentID)
	if err != nil {
		return nil, httperr.ErrGateway("reconcile_fetch_failed")
	}

	switch {
	// Money already went back to the customer: fold that in whatever the
	// local status says, so a lost refund_initiated write still heals.
	case p.AmountRefundedSen > 0:
		if err := e.markRefunded(ctx, b); err != nil {
			return nil, err
		}
	case p.Status == GatewayCaptured && payment.Status(b.PaymentStatus) == payment.StatusAuthorized:
		if err := e.markCaptured(ctx, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// ApplyGatewayEvent folds a verified webhook event into local state.
func (e *Engine) ApplyGatewayEvent(ctx context.Context, event, paymentID, refundID string) error {
	b, err := e.repo.GetBookingByPaymentID(ctx, paymentID)
	if err != nil {
		// Webhooks can race booking creation; an unknown payment is acked
		// so the gateway stops redelivering. Anything else (the database
		// being down, say) must surface as an error so it retries.
		if httperr.IsKind(err, httperr.KindNotFound) {
			return nil
		}
		return err
	}

	switch event {
	case "payment.captured":
		return e.markCaptured(ctx, b)
	case "payment.failed":
		return e.markFailed(ctx, b)
	case "refund.processed":
		if refundID != "" {
			b.CurlecRefundID = &refundID
		}
		return e.markRefunded(ctx, b)
	}
	return nil
}

// markRefunded folds the gateway's refund truth into local state. The
// interesting case is a lost refund_initiated write: local still says
// completed while the money already moved, so both steps are walked here.
// States the refund graph cannot reach refunded from mean the event is
// stale or misdelivered; those are acked as no-ops, never errored, or the
// gateway would redeliver forever.
func (e *Engine) markRefunded(ctx context.Context, b *models.Booking) error {
	st := payment.Status(b.PaymentStatus)
	switch st {
	case payment.StatusRefunded:
		return nil
	case payment.StatusCompleted:
		next, err := payment.Transition(st, payment.StatusRefundInitiated)
		if err != nil {
			return err
		}
		st = next
	case payment.StatusRefundInitiated:
		// proceed
	default:
		return nil
	}
	next, err := payment.Transition(st, payment.StatusRefunded)
	if err != nil {
		return err
	}
	b.PaymentStatus = string(next)
	if err := e.repo.UpdateBooking(ctx, b, b.Version); err != nil {
		return err
	}
	e.audit.Dispatch(audit.BookingEvent(nil, "refund_processed", b.ID))
	return nil
}

func (e *Engine) markFailed(ctx context.Context, b *models.Booking) error {
	st := payment.Status(b.PaymentStatus)
	if st != payment.StatusPending && st != payment.StatusAuthorized {
		return nil
	}
	next, err := payment.Transition(st, payment.StatusFailed)
	if err != nil {
		return err
	}
	b.PaymentStatus = string(next)
	if err := e.repo.UpdateBooking(ctx, b, b.Version); err != nil {
		return err
	}
	e.audit.Dispatch(audit.BookingEvent(nil, "payment_failed", b.ID))
	return nil
}

// recordFailure leaves an operator trail: an alert audit row plus a
// settlement flag on the booking itself. Best effort; the original error
// is what the caller surfaces.
func (e *Engine) recordFailure(ctx context.Context, b *models.Booking, action string, cause error) {
	e.audit.Dispatch(audit.SettlementAlert(action, b.ID, map[string]string{
		"error": cause.Error(),
	}))

	b.SettlementAlert = fmt.Sprintf("%s: %s", action, cause.Error())
	if err := e.repo.UpdateBooking(ctx, b, b.Version); err != nil {
		// The audit alert above is the durable record.
		return
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
