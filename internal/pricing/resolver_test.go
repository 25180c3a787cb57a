package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/mari-gunting/booking-core/internal/domain/booking"
	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/models"
)

// fakeRepo serves only the catalog and voucher reads the resolver makes.
type fakeRepo struct {
	domain.Repository

	services []models.CatalogService
	voucher  *models.UserVoucher
}

func (f *fakeRepo) GetServices(_ context.Context, barberID string, serviceIDs []string) ([]models.CatalogService, error) {
	var out []models.CatalogService
	for _, svc := range f.services {
		for _, id := range serviceIDs {
			if svc.ID == id && svc.BarberID == barberID {
				out = append(out, svc)
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) GetUserVoucher(_ context.Context, id string) (*models.UserVoucher, error) {
	if f.voucher == nil || f.voucher.ID != id {
		return nil, httperr.ErrNotFound("not_found")
	}
	return f.voucher, nil
}

func testClock() clockwork.Clock {
	return clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
}

func activeVoucher(v models.Voucher) *models.UserVoucher {
	v.Active = true
	v.ValidFrom = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v.ValidUntil = time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	return &models.UserVoucher{
		ID:      "uv-1",
		UserID:  "cust-1",
		Status:  models.UserVoucherActive,
		Voucher: v,
	}
}

func TestTravelFee(t *testing.T) {
	assert.Equal(t, int64(0), TravelFee(ServiceTypeWalkIn, 10))
	assert.Equal(t, int64(500), TravelFee(ServiceTypeHome, 0))
	assert.Equal(t, int64(500), TravelFee(ServiceTypeHome, 4))
	assert.Equal(t, int64(600), TravelFee(ServiceTypeHome, 5))
	assert.Equal(t, int64(800), TravelFee(ServiceTypeHome, 7.2))
}

func TestDiscount(t *testing.T) {
	t.Run("percentage", func(t *testing.T) {
		v := models.Voucher{Type: models.VoucherTypePercentage, Value: 20}
		assert.Equal(t, int64(1000), Discount(v, 5000))
	})

	t.Run("percentage hits max cap", func(t *testing.T) {
		v := models.Voucher{Type: models.VoucherTypePercentage, Value: 50, MaxDiscountSen: 1500}
		assert.Equal(t, int64(1500), Discount(v, 10000))
	})

	t.Run("fixed capped at subtotal", func(t *testing.T) {
		v := models.Voucher{Type: models.VoucherTypeFixed, Value: 8000}
		assert.Equal(t, int64(5000), Discount(v, 5000))
	})
}

func TestPriceHomeService(t *testing.T) {
	repo := &fakeRepo{
		services: []models.CatalogService{
			{ID: "svc-1", BarberID: "barber-1", Name: "Haircut", PriceSen: 3500, DurationMin: 30, Active: true},
			{ID: "svc-2", BarberID: "barber-1", Name: "Beard trim", PriceSen: 1500, DurationMin: 15, Active: true},
		},
	}
	r := NewResolver(repo, testClock())

	q, err := r.Price(context.Background(), Input{
		BarberID:    "barber-1",
		CustomerID:  "cust-1",
		ServiceIDs:  []string{"svc-1", "svc-2"},
		ServiceType: ServiceTypeHome,
		DistanceKm:  6,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5000), q.SubtotalSen)
	assert.Equal(t, int64(200), q.ServiceFeeSen)
	assert.Equal(t, int64(700), q.TravelFeeSen)
	assert.Equal(t, int64(0), q.DiscountSen)
	assert.Equal(t, int64(5900), q.TotalSen)
	assert.Len(t, q.Services, 2)
	assert.Equal(t, int64(3500), q.Services[0].PriceSen)
}

func TestPriceWithVoucher(t *testing.T) {
	repo := &fakeRepo{
		services: []models.CatalogService{
			{ID: "svc-1", BarberID: "barber-1", Name: "Haircut", PriceSen: 5000, Active: true},
		},
		voucher: activeVoucher(models.Voucher{
			Type: models.VoucherTypePercentage, Value: 20, MinSpendSen: 3000,
		}),
	}
	r := NewResolver(repo, testClock())

	q, err := r.Price(context.Background(), Input{
		BarberID:      "barber-1",
		CustomerID:    "cust-1",
		ServiceIDs:    []string{"svc-1"},
		ServiceType:   ServiceTypeWalkIn,
		UserVoucherID: "uv-1",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1000), q.DiscountSen)
	assert.Equal(t, int64(4200), q.TotalSen) // 5000 + 200 - 1000
	require.NotNil(t, q.UserVoucher)
	assert.Equal(t, "uv-1", q.UserVoucher.ID)
}

func TestPriceVoucherRejections(t *testing.T) {
	base := []models.CatalogService{
		{ID: "svc-1", BarberID: "barber-1", Name: "Haircut", PriceSen: 2000, Active: true},
	}
	input := Input{
		BarberID:      "barber-1",
		CustomerID:    "cust-1",
		ServiceIDs:    []string{"svc-1"},
		ServiceType:   ServiceTypeWalkIn,
		UserVoucherID: "uv-1",
	}

	t.Run("not owned", func(t *testing.T) {
		uv := activeVoucher(models.Voucher{Type: models.VoucherTypeFixed, Value: 500})
		uv.UserID = "someone-else"
		r := NewResolver(&fakeRepo{services: base, voucher: uv}, testClock())

		_, err := r.Price(context.Background(), input)
		assert.True(t, httperr.IsKind(err, httperr.KindVoucher))
	})

	t.Run("already used", func(t *testing.T) {
		uv := activeVoucher(models.Voucher{Type: models.VoucherTypeFixed, Value: 500})
		uv.Status = models.UserVoucherUsed
		r := NewResolver(&fakeRepo{services: base, voucher: uv}, testClock())

		_, err := r.Price(context.Background(), input)
		assert.True(t, httperr.IsKind(err, httperr.KindVoucher))
	})

	t.Run("min spend not met", func(t *testing.T) {
		uv := activeVoucher(models.Voucher{Type: models.VoucherTypeFixed, Value: 500, MinSpendSen: 5000})
		r := NewResolver(&fakeRepo{services: base, voucher: uv}, testClock())

		_, err := r.Price(context.Background(), input)
		assert.True(t, httperr.IsKind(err, httperr.KindVoucher))
	})

	t.Run("outside validity window", func(t *testing.T) {
		uv := activeVoucher(models.Voucher{Type: models.VoucherTypeFixed, Value: 500})
		uv.Voucher.ValidUntil = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		r := NewResolver(&fakeRepo{services: base, voucher: uv}, testClock())

		_, err := r.Price(context.Background(), input)
		assert.True(t, httperr.IsKind(err, httperr.KindVoucher))
	})
}

func TestPriceRejectsBadCatalog(t *testing.T) {
	t.Run("unknown service", func(t *testing.T) {
		r := NewResolver(&fakeRepo{}, testClock())
		_, err := r.Price(context.Background(), Input{
			BarberID:    "barber-1",
			ServiceIDs:  []string{"svc-missing"},
			ServiceType: ServiceTypeWalkIn,
		})
		assert.True(t, httperr.IsKind(err, httperr.KindValidation))
	})

	t.Run("inactive service", func(t *testing.T) {
		repo := &fakeRepo{services: []models.CatalogService{
			{ID: "svc-1", BarberID: "barber-1", PriceSen: 1000, Active: false},
		}}
		r := NewResolver(repo, testClock())
		_, err := r.Price(context.Background(), Input{
			BarberID:    "barber-1",
			ServiceIDs:  []string{"svc-1"},
			ServiceType: ServiceTypeWalkIn,
		})
		assert.True(t, httperr.IsKind(err, httperr.KindValidation))
	})
}
