package booking

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mari-gunting/booking-core/internal/audit"
	"github.com/mari-gunting/booking-core/internal/domain/payment"
	"github.com/mari-gunting/booking-core/internal/gate"
	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/models"
	"github.com/mari-gunting/booking-core/internal/payments"
	"github.com/mari-gunting/booking-core/internal/pricing"
)

func validInput() CreateBookingInput {
	return CreateBookingInput{
		CustomerID:    "cust-1",
		BarberID:      "barber-1",
		ServiceIDs:    []string{"svc-1"},
		ServiceType:   "walk_in",
		ScheduledAt:   time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC),
		PaymentMethod: "cash",
	}
}

func TestValidateCreate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("valid walk-in cash", func(t *testing.T) {
		assert.NoError(t, validateCreate(validInput(), now))
	})

	t.Run("missing parties", func(t *testing.T) {
		in := validInput()
		in.BarberID = ""
		assert.True(t, httperr.IsKind(validateCreate(in, now), httperr.KindValidation))
	})

	t.Run("bad service type", func(t *testing.T) {
		in := validInput()
		in.ServiceType = "delivery"
		assert.True(t, httperr.IsKind(validateCreate(in, now), httperr.KindValidation))
	})

	t.Run("home service needs an address", func(t *testing.T) {
		in := validInput()
		in.ServiceType = "home_service"
		assert.True(t, httperr.IsKind(validateCreate(in, now), httperr.KindValidation))

		in.CustomerAddress = &models.Address{Line1: "12 Jalan Example", City: "Kuala Lumpur", State: "WP"}
		assert.NoError(t, validateCreate(in, now))
	})

	t.Run("scheduled in the past", func(t *testing.T) {
		in := validInput()
		in.ScheduledAt = now.Add(-time.Hour)
		assert.True(t, httperr.IsKind(validateCreate(in, now), httperr.KindValidation))
	})

	t.Run("unknown payment method", func(t *testing.T) {
		in := validInput()
		in.PaymentMethod = "cheque"
		assert.True(t, httperr.IsKind(validateCreate(in, now), httperr.KindValidation))

		in.PaymentMethod = "ewallet_tng"
		assert.NoError(t, validateCreate(in, now))
	})
}

func TestBookingNumber(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	n := bookingNumber(now)

	assert.True(t, strings.HasPrefix(n, "MG-20260310-"), n)
	assert.Len(t, n, len("MG-20260310-")+6)
	assert.Equal(t, strings.ToUpper(n), n)

	assert.NotEqual(t, n, bookingNumber(now), "suffix must be random")

	// The date part follows the Kuala Lumpur calendar, not the UTC day.
	lateUTC := time.Date(2026, 3, 10, 23, 50, 0, 0, time.UTC)
	assert.True(t, strings.HasPrefix(bookingNumber(lateUTC), "MG-20260311-"))
}

// ======================================================
// EXECUTE (end to end against fakes + miniredis)
// ======================================================

func newCreateUC(t *testing.T, repo *fakeRepo, gw *fakeGateway, limit int) (*CreateBooking, *clockwork.FakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	dispatcher := audit.NewDispatcher(noopSink{})
	g := gate.New(rdb, clock, limit, time.Minute, 24*time.Hour)
	engine := payments.NewEngine(repo, gw, dispatcher, clock, 2*time.Hour)
	pricer := pricing.NewResolver(repo, clock)
	return NewCreateBooking(repo, g, pricer, engine, dispatcher, clock, 3*time.Minute), clock
}

func catalogRepo() *fakeRepo {
	repo := newFakeRepo()
	repo.services = []models.CatalogService{
		{ID: "svc-1", BarberID: "barber-1", Name: "Haircut", PriceSen: 5000, DurationMin: 30, Active: true},
	}
	return repo
}

func TestCreateBookingIdempotentReplay(t *testing.T) {
	repo := catalogRepo()
	uc, clock := newCreateUC(t, repo, &fakeGateway{}, 10)

	in := validInput()
	in.IdempotencyKey = "key-1"

	first, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)
	clock.Advance(time.Second)

	second, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same key replays the original booking")
	assert.Equal(t, first.BookingNumber, second.BookingNumber)
	assert.Len(t, repo.bookings, 1, "the retry must not persist a second row")
	assert.Len(t, repo.pendingJobs(models.JobKindExpire), 1)
}

func TestCreateBookingRateLimitIsOutermost(t *testing.T) {
	repo := catalogRepo()
	uc, clock := newCreateUC(t, repo, &fakeGateway{}, 2)

	in := validInput()
	in.IdempotencyKey = "key-1"

	_, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)
	clock.Advance(time.Second)

	_, err = uc.Execute(context.Background(), in)
	require.NoError(t, err, "replay within the limit is fine")
	clock.Advance(time.Second)

	// Same idempotency key, but the window is full: the limit fires
	// before the replay is even consulted.
	_, err = uc.Execute(context.Background(), in)
	assert.True(t, httperr.IsKind(err, httperr.KindRateLimited))
	assert.Len(t, repo.bookings, 1)
}

func TestCreateBookingVoucher(t *testing.T) {
	activeVoucher := func(clock clockwork.Clock) *models.UserVoucher {
		now := clock.Now()
		return &models.UserVoucher{
			ID:        "uv-1",
			UserID:    "cust-1",
			VoucherID: "v-1",
			Status:    models.UserVoucherActive,
			Voucher: models.Voucher{
				ID:         "v-1",
				Type:       models.VoucherTypeFixed,
				Value:      1000,
				Active:     true,
				ValidFrom:  now.Add(-24 * time.Hour),
				ValidUntil: now.Add(24 * time.Hour),
			},
		}
	}

	t.Run("redeemed atomically with the booking", func(t *testing.T) {
		repo := catalogRepo()
		uc, clock := newCreateUC(t, repo, &fakeGateway{}, 10)
		repo.voucher = activeVoucher(clock)

		in := validInput()
		in.UserVoucherID = "uv-1"

		b, err := uc.Execute(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), b.DiscountSen)
		assert.Equal(t, int64(5000+200-1000), b.TotalPriceSen)

		assert.Equal(t, models.UserVoucherUsed, repo.voucher.Status)
		require.NotNil(t, repo.voucher.UsedForBookingID)
		assert.Equal(t, b.ID, *repo.voucher.UsedForBookingID)
	})

	t.Run("spent voucher creates nothing", func(t *testing.T) {
		repo := catalogRepo()
		uc, clock := newCreateUC(t, repo, &fakeGateway{}, 10)
		repo.voucher = activeVoucher(clock)
		repo.voucher.Status = models.UserVoucherUsed

		in := validInput()
		in.UserVoucherID = "uv-1"

		_, err := uc.Execute(context.Background(), in)
		assert.True(t, httperr.IsKind(err, httperr.KindVoucher))
		assert.Empty(t, repo.bookings, "a failed redemption persists no booking")
		assert.Empty(t, repo.pendingJobs(models.JobKindExpire))
	})
}

func TestCreateBookingOnline(t *testing.T) {
	t.Run("verified authorization is recorded", func(t *testing.T) {
		repo := catalogRepo()
		gw := &fakeGateway{fetchAmountSen: 5200}
		uc, _ := newCreateUC(t, repo, gw, 10)

		in := validInput()
		in.PaymentMethod = "card"
		in.CurlecPaymentID = strPtr("pay_1")

		b, err := uc.Execute(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, string(payment.StatusAuthorized), b.PaymentStatus)
	})

	t.Run("amount mismatch aborts creation", func(t *testing.T) {
		repo := catalogRepo()
		gw := &fakeGateway{fetchAmountSen: 100}
		uc, _ := newCreateUC(t, repo, gw, 10)

		in := validInput()
		in.PaymentMethod = "card"
		in.CurlecPaymentID = strPtr("pay_1")

		_, err := uc.Execute(context.Background(), in)
		assert.True(t, httperr.IsKind(err, httperr.KindAmountMismatch))
		assert.Empty(t, repo.bookings)
	})
}
