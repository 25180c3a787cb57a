package booking

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/mari-gunting/booking-core/internal/audit"
	domain "github.com/mari-gunting/booking-core/internal/domain/booking"
	"github.com/mari-gunting/booking-core/internal/domain/payment"
	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/models"
	"github.com/mari-gunting/booking-core/internal/payments"
)

type ConfirmCompletion struct {
	repo   domain.Repository
	engine *payments.Engine
	audit  *audit.Dispatcher
	clock  clockwork.Clock
}

func NewConfirmCompletion(
	repo domain.Repository,
	engine *payments.Engine,
	auditDisp *audit.Dispatcher,
	clock clockwork.Clock,
) *ConfirmCompletion {
	return &ConfirmCompletion{
		repo:   repo,
		engine: engine,
		audit:  auditDisp,
		clock:  clock,
	}
}

// Execute is the customer saying "the service happened, release the
// money now" instead of waiting out the capture delay. Idempotent: a
// second confirmation returns the booking unchanged.
func (uc *ConfirmCompletion) Execute(
	ctx context.Context,
	bookingID string,
	customerID string,
) (*models.Booking, error) {

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
	if b.DisputedAt != nil {
		return nil, httperr.ErrValidation("booking_disputed")
	}
	if b.CompletionConfirmedAt != nil {
		return b, nil
	}

	now := uc.clock.Now()
	b.CompletionConfirmedAt = &now
	if err := uc.repo.UpdateBooking(ctx, b, b.Version); err != nil {
		return nil, err
	}

	if payment.Status(b.PaymentStatus) == payment.StatusAuthorized {
		if err := uc.engine.ConfirmEarly(ctx, b.ID); err != nil {
			// The confirmation stamp stands; the capture failure is
			// alerted and surfaced so the client can tell the user.
			return nil, err
		}
	}

	uc.audit.Dispatch(audit.BookingEvent(&customerID, "completion_confirmed", b.ID))

	return uc.repo.GetBooking(ctx, b.ID)
}
