package payments

import "context"

// Payment is the gateway's view of one payment. For money movement the
// gateway is authoritative; local payment_status is a cache of this.
type Payment struct {
	ID                string
	OrderID           string
	Status            string // created | authorized | captured | refunded | failed
	AmountSen         int64
	AmountRefundedSen int64
}

const (
	GatewayAuthorized = "authorized"
	GatewayCaptured   = "captured"
	GatewayRefunded   = "refunded"
	GatewayFailed     = "failed"
)

// Gateway is the only surface through which the core talks to Curlec.
// Implementations must mark transient failures with IsTransient so the
// retry wrapper can tell them from permanent rejections.
type Gateway interface {
	CreateOrder(ctx context.Context, amountSen int64, receipt string) (orderID string, err error)
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
	Capture(ctx context.Context, paymentID string, amountSen int64) error
	Refund(ctx context.Context, paymentID string, amountSen int64, reason, receipt string) (refundID string, err error)
}

// TransientError wraps gateway failures worth retrying (timeouts, 5xx).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "gateway transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }
