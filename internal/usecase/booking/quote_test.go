package booking

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mari-gunting/booking-core/internal/audit"
	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/models"
	"github.com/mari-gunting/booking-core/internal/payments"
	"github.com/mari-gunting/booking-core/internal/pricing"
)

func newQuoteUC(repo *fakeRepo, gw *fakeGateway) *QuoteBooking {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	dispatcher := audit.NewDispatcher(noopSink{})
	engine := payments.NewEngine(repo, gw, dispatcher, clock, 2*time.Hour)
	pricer := pricing.NewResolver(repo, clock)
	return NewQuoteBooking(pricer, engine, clock)
}

func quoteCatalogRepo() *fakeRepo {
	repo := newFakeRepo()
	repo.services = []models.CatalogService{
		{ID: "svc-1", BarberID: "barber-1", Name: "Haircut", PriceSen: 3500, Active: true},
	}
	return repo
}

func TestQuoteOnlineOpensGatewayOrder(t *testing.T) {
	gw := &fakeGateway{}
	uc := newQuoteUC(quoteCatalogRepo(), gw)

	out, err := uc.Execute(context.Background(), QuoteBookingInput{
		CustomerID:    "cust-1",
		BarberID:      "barber-1",
		ServiceIDs:    []string{"svc-1"},
		ServiceType:   "home_service",
		DistanceKm:    3,
		PaymentMethod: "card",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3500), out.SubtotalSen)
	assert.Equal(t, int64(200), out.ServiceFeeSen)
	assert.Equal(t, int64(500), out.TravelFeeSen)
	assert.Equal(t, int64(4200), out.TotalSen)
	assert.Equal(t, "order_1", out.CurlecOrderID)
}

func TestQuoteCashSkipsGateway(t *testing.T) {
	gw := &fakeGateway{}
	uc := newQuoteUC(quoteCatalogRepo(), gw)

	out, err := uc.Execute(context.Background(), QuoteBookingInput{
		CustomerID:    "cust-1",
		BarberID:      "barber-1",
		ServiceIDs:    []string{"svc-1"},
		ServiceType:   "walk_in",
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3700), out.TotalSen)
	assert.Empty(t, out.CurlecOrderID)
}

func TestQuoteUnknownServiceRejected(t *testing.T) {
	uc := newQuoteUC(newFakeRepo(), &fakeGateway{})

	_, err := uc.Execute(context.Background(), QuoteBookingInput{
		CustomerID:    "cust-1",
		BarberID:      "barber-1",
		ServiceIDs:    []string{"svc-unknown"},
		ServiceType:   "walk_in",
		PaymentMethod: "cash",
	})
	assert.True(t, httperr.IsKind(err, httperr.KindValidation))
}
