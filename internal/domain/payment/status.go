package payment

import "github.com/mari-gunting/booking-core/internal/httperr"

// ===============================
// Payment Status
// ===============================

type Status string

const (
	StatusPending         Status = "pending"
	StatusAuthorized      Status = "authorized" // funds held, not transferred
	StatusCompleted       Status = "completed"  // captured
	StatusFailed          Status = "failed"
	StatusReversed        Status = "reversed" // authorization left to lapse
	StatusRefundInitiated Status = "refund_initiated"
	StatusRefunded        Status = "refunded"
)

var transitions = map[Status][]Status{
	StatusPending:         {StatusAuthorized, StatusCompleted, StatusFailed},
	StatusAuthorized:      {StatusCompleted, StatusReversed, StatusFailed},
	StatusCompleted:       {StatusRefundInitiated},
	StatusRefundInitiated: {StatusRefunded},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates the edge and returns the new status, so callers can
// never write an unreachable payment state.
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, httperr.ErrTransition("invalid_payment_transition")
	}
	return to, nil
}

func IsTerminal(s Status) bool {
	return s == StatusFailed || s == StatusReversed || s == StatusRefunded
}

// OnlineMethods are the methods that go through the Curlec
// authorize/capture flow. Cash settles on completion without the gateway.
var OnlineMethods = map[string]bool{
	"card":          true,
	"fpx":           true,
	"ewallet_tng":   true,
	"ewallet_grab":  true,
	"ewallet_boost": true,
	"ewallet_shopee": true,
}

func IsOnline(method string) bool {
	return OnlineMethods[method]
}
