package booking

import (
	"context"

	domain "github.com/mari-gunting/booking-core/internal/domain/booking"
	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/models"
	"github.com/mari-gunting/booking-core/internal/payments"
)

type GetBooking struct {
	repo   domain.Repository
	engine *payments.Engine
}

func NewGetBooking(repo domain.Repository, engine *payments.Engine) *GetBooking {
	return &GetBooking{repo: repo, engine: engine}
}

// Execute loads one booking for a party to it. A booking carrying a
// settlement alert gets reconciled against the gateway on read, so a lost
// local write heals the next time anyone looks.
func (uc *GetBooking) Execute(
	ctx context.Context,
	bookingID string,
	actor domain.Actor,
) (*models.Booking, error) {

	b, err := uc.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.ID != b.CustomerID && actor.ID != b.BarberID {
		return nil, httperr.ErrUnauthorized("not_booking_party")
	}

	if b.SettlementAlert != "" && b.CurlecPaymentID != nil {
		if repaired, rerr := uc.engine.Reconcile(ctx, b.ID); rerr == nil {
			return repaired, nil
		}
	}
	return b, nil
}

type ListBookings struct {
	repo domain.Repository
}

func NewListBookings(repo domain.Repository) *ListBookings {
	return &ListBookings{repo: repo}
}

func (uc *ListBookings) Execute(
	ctx context.Context,
	actor domain.Actor,
	statuses []string,
	limit int,
) ([]models.Booking, error) {

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	switch actor.Role {
	case domain.RoleCustomer:
		return uc.repo.ListBookingsForCustomer(ctx, actor.ID, statuses, limit)
	case domain.RoleBarber:
		return uc.repo.ListBookingsForBarber(ctx, actor.ID, statuses, limit)
	}
	return nil, httperr.ErrUnauthorized("unknown_role")
}
