package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mari-gunting/booking-core/internal/domain/payment"
	"github.com/mari-gunting/booking-core/internal/payments"
	"github.com/mari-gunting/booking-core/internal/pricing"
)

// ======================================================
// INPUT / OUTPUT
// ======================================================

type QuoteBookingInput struct {
	CustomerID    string
	BarberID      string
	ServiceIDs    []string
	ServiceType   string
	DistanceKm    float64
	UserVoucherID string
	PaymentMethod string
}

type QuoteBookingOutput struct {
	SubtotalSen   int64 `json:"subtotal_sen"`
	ServiceFeeSen int64 `json:"service_fee_sen"`
	TravelFeeSen  int64 `json:"travel_fee_sen"`
	DiscountSen   int64 `json:"discount_sen"`
	TotalSen      int64 `json:"total_sen"`

	// Set for online methods: the gateway order the client pays against.
	CurlecOrderID string `json:"curlec_order_id,omitempty"`
}

// ======================================================
// USE CASE
// ======================================================

// QuoteBooking prices a prospective booking and, for online methods, opens
// the gateway order for checkout. Nothing is persisted; the client brings
// the resulting payment back to createBooking.
type QuoteBooking struct {
	pricer *pricing.Resolver
	engine *payments.Engine
	clock  clockwork.Clock
}

func NewQuoteBooking(pricer *pricing.Resolver, engine *payments.Engine, clock clockwork.Clock) *QuoteBooking {
	return &QuoteBooking{pricer: pricer, engine: engine, clock: clock}
}

func (uc *QuoteBooking) Execute(
	ctx context.Context,
	in QuoteBookingInput,
) (*QuoteBookingOutput, error) {

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

	out := &QuoteBookingOutput{
		SubtotalSen:   quote.SubtotalSen,
		ServiceFeeSen: quote.ServiceFeeSen,
		TravelFeeSen:  quote.TravelFeeSen,
		DiscountSen:   quote.DiscountSen,
		TotalSen:      quote.TotalSen,
	}

	if payment.IsOnline(in.PaymentMethod) {
		receipt := fmt.Sprintf("quote_%s_%s",
			uc.clock.Now().UTC().Format("20060102"),
			uuid.NewString()[:8])
		orderID, err := uc.engine.CreateOrder(ctx, quote.TotalSen, receipt)
		if err != nil {
			return nil, err
		}
		out.CurlecOrderID = orderID
	}

	return out, nil
}
