package booking

import (
	"context"
	"strings"

	domain "github.com/mari-gunting/booking-core/internal/domain/booking"
	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/models"
)

// CancelBooking is a thin wrapper over the generic transition: it exists
// so cancellation can demand a reason and stay one call for clients.
type CancelBooking struct {
	transition *TransitionBooking
}

func NewCancelBooking(transition *TransitionBooking) *CancelBooking {
	return &CancelBooking{transition: transition}
}

func (uc *CancelBooking) Execute(
	ctx context.Context,
	bookingID string,
	actor domain.Actor,
	reason string,
) (*models.Booking, error) {

	if strings.TrimSpace(reason) == "" {
		return nil, httperr.ErrValidation("cancellation_reason_required")
	}

	return uc.transition.Execute(ctx, bookingID, domain.StatusCancelled, actor, reason)
}
