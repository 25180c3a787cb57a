package booking

import "github.com/mari-gunting/booking-core/internal/httperr"

// ===============================
// Booking Status
// ===============================

type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusConfirmed  Status = "confirmed" // walk-in: customer confirmed at shop
	StatusReady      Status = "ready"     // home service: barber preparing
	StatusOnTheWay   Status = "on_the_way"
	StatusArrived    Status = "arrived"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRejected   Status = "rejected"
	StatusExpired    Status = "expired"
)

type Actor struct {
	ID   string
	Role string // customer | barber | system
}

const (
	RoleCustomer = "customer"
	RoleBarber   = "barber"
	RoleSystem   = "system"
)

// transitions is the closed edge set of the lifecycle graph. Travel states
// only exist for home-service bookings; walk-ins go accepted → confirmed.
var transitions = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusRejected, StatusCancelled, StatusExpired},
	StatusAccepted:   {StatusConfirmed, StatusReady, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusReady:      {StatusOnTheWay, StatusCancelled},
	StatusOnTheWay:   {StatusArrived, StatusCancelled},
	StatusArrived:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(s Status) bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// barberTargets are the statuses the assigned barber may drive a booking
// into. Customers may only cancel; expiry belongs to the system.
var barberTargets = map[Status]bool{
	StatusAccepted:   true,
	StatusRejected:   true,
	StatusConfirmed:  true,
	StatusReady:      true,
	StatusOnTheWay:   true,
	StatusArrived:    true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusCancelled:  true,
}

// Authorize checks that the acting party may request the target status on
// this booking at all, before the edge itself is validated.
func Authorize(b Parties, actor Actor, to Status) error {
	switch actor.Role {
	case RoleSystem:
		if to != StatusExpired {
			return httperr.ErrUnauthorized("system_actor_not_allowed")
		}
		return nil
	case RoleBarber:
		if actor.ID != b.BarberID {
			return httperr.ErrUnauthorized("not_assigned_barber")
		}
		if !barberTargets[to] {
			return httperr.ErrUnauthorized("barber_cannot_set_status")
		}
		return nil
	case RoleCustomer:
		if actor.ID != b.CustomerID {
			return httperr.ErrUnauthorized("not_booking_customer")
		}
		if to != StatusCancelled {
			return httperr.ErrUnauthorized("customer_cannot_set_status")
		}
		return nil
	}
	return httperr.ErrUnauthorized("unknown_role")
}

// Parties is the slice of a booking the authorization rules need.
type Parties struct {
	CustomerID string
	BarberID   string
}
