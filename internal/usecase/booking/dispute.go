package booking

import (
	"context"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/mari-gunting/booking-core/internal/audit"
	domain "github.com/mari-gunting/booking-core/internal/domain/booking"
	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/models"
	"github.com/mari-gunting/booking-core/internal/payments"
)

const minDisputeReasonLen = 10

type DisputeCompletion struct {
	repo   domain.Repository
	engine *payments.Engine
	audit  *audit.Dispatcher
	clock  clockwork.Clock
}

func NewDisputeCompletion(
	repo domain.Repository,
	engine *payments.Engine,
	auditDisp *audit.Dispatcher,
	clock clockwork.Clock,
) *DisputeCompletion {
	return &DisputeCompletion{
		repo:   repo,
		engine: engine,
		audit:  auditDisp,
		clock:  clock,
	}
}

// Execute freezes the delayed capture and flags the booking for manual
// review. No automatic refund; an operator decides what happens next.
func (uc *DisputeCompletion) Execute(
	ctx context.Context,
	bookingID string,
	customerID string,
	reason string,
) (*models.Booking, error) {

	if len(strings.TrimSpace(reason)) < minDisputeReasonLen {
		return nil, httperr.ErrValidation("dispute_reason_too_short")
	}

	b, err := uc.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != customerID {
		return nil, httperr.ErrUnauthorized("not_booking_customer")
	}
	if domain.Status(b.Status) != domain.StatusCompleted {
		return nil, httperr.ErrTransition("booking_not_completed")
	}
	if b.CompletionConfirmedAt != nil {
		return nil, httperr.ErrValidation("completion_already_confirmed")
	}
	if b.DisputedAt != nil {
		return b, nil
	}

	now := uc.clock.Now()
	b.DisputedAt = &now
	b.DisputeReason = strings.TrimSpace(reason)
	if err := uc.repo.UpdateBooking(ctx, b, b.Version); err != nil {
		return nil, err
	}

	if err := uc.engine.CancelCapture(ctx, b.ID, "disputed by customer"); err != nil {
		uc.audit.Dispatch(audit.SettlementAlert("dispute_capture_cancel_failed", b.ID, err.Error()))
	}

	uc.audit.Dispatch(audit.Event{
		ActorID:  &customerID,
		Action:   "booking_disputed",
		Entity:   "booking",
		EntityID: &b.ID,
		Metadata: map[string]string{"reason": b.DisputeReason},
		Alert:    true, // manual review queue
	})

	return b, nil
}
