package booking

import (
	"time"

	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/models"
)

// ===============================
// Domain Actions
// ===============================

// Transition moves a booking along one edge of the lifecycle graph and
// stamps the matching timestamp exactly once. It mutates only in memory;
// persistence (with the version check) is the caller's job.
func Transition(b *models.Booking, to Status, actor Actor, now time.Time) error {
	from := Status(b.Status)

	if IsTerminal(from) {
		return httperr.ErrTransition("booking_terminal")
	}
	if err := Authorize(Parties{CustomerID: b.CustomerID, BarberID: b.BarberID}, actor, to); err != nil {
		return err
	}
	if !CanTransition(from, to) {
		return httperr.ErrTransition("invalid_transition")
	}

	// Travel states never apply to walk-in bookings.
	if b.ServiceType == "walk_in" {
		switch to {
		case StatusReady, StatusOnTheWay, StatusArrived:
			return httperr.ErrTransition("invalid_transition")
		}
	}
	if b.ServiceType == "home_service" && to == StatusConfirmed {
		return httperr.ErrTransition("invalid_transition")
	}

	b.Status = string(to)
	switch to {
	case StatusAccepted:
		if b.AcceptedAt == nil {
			b.AcceptedAt = &now
		}
	case StatusInProgress:
		if b.StartedAt == nil {
			b.StartedAt = &now
		}
	case StatusCompleted:
		if b.CompletedAt == nil {
			b.CompletedAt = &now
		}
	case StatusCancelled:
		if b.CancelledAt == nil {
			b.CancelledAt = &now
		}
	}
	return nil
}

// Expire is the system-driven pending timeout. Firing it against a booking
// that already moved on is a no-op, not an error (at-least-once delivery).
func Expire(b *models.Booking, now time.Time) (bool, error) {
	if Status(b.Status) != StatusPending {
		return false, nil
	}
	if err := Transition(b, StatusExpired, Actor{Role: RoleSystem}, now); err != nil {
		return false, err
	}
	return true, nil
}
