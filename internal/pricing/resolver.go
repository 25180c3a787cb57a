package pricing

import (
	"context"
	"math"

	"github.com/jonboulle/clockwork"

	domain "github.com/mari-gunting/booking-core/internal/domain/booking"
	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/models"
)

// Platform fees, in sen. Travel: RM5 base up to 4 km, RM1 per km after.
const (
	ServiceFeeSen     = 200
	TravelBaseSen     = 500
	TravelBaseKm      = 4.0
	TravelPerKmSen    = 100
	ServiceTypeHome   = "home_service"
	ServiceTypeWalkIn = "walk_in"
)

type Quote struct {
	Services      models.ServiceSnapshots
	SubtotalSen   int64
	ServiceFeeSen int64
	TravelFeeSen  int64
	DiscountSen   int64
	TotalSen      int64

	// Set when a voucher participated; creation records the redemption.
	UserVoucher *models.UserVoucher
}

type Input struct {
	BarberID      string
	CustomerID    string
	ServiceIDs    []string
	ServiceType   string
	DistanceKm    float64
	UserVoucherID string
}

// Resolver computes every amount server-side. Client-supplied prices are
// never read.
type Resolver struct {
	repo  domain.Repository
	clock clockwork.Clock
}

func NewResolver(repo domain.Repository, clock clockwork.Clock) *Resolver {
	return &Resolver{repo: repo, clock: clock}
}

func (r *Resolver) Price(ctx context.Context, in Input) (*Quote, error) {
	if len(in.ServiceIDs) == 0 {
		return nil, httperr.ErrValidation("no_services")
	}

	services, err := r.repo.GetServices(ctx, in.BarberID, in.ServiceIDs)
	if err != nil {
		return nil, err
	}
	if len(services) != len(in.ServiceIDs) {
		return nil, httperr.ErrValidation("unknown_service")
	}

	q := &Quote{ServiceFeeSen: ServiceFeeSen}
	for _, svc := range services {
		if !svc.Active {
			return nil, httperr.ErrValidation("service_inactive")
		}
		q.Services = append(q.Services, models.ServiceSnapshot{
			ServiceID:   svc.ID,
			Name:        svc.Name,
			PriceSen:    svc.PriceSen,
			DurationMin: svc.DurationMin,
		})
		q.SubtotalSen += svc.PriceSen
	}

	q.TravelFeeSen = TravelFee(in.ServiceType, in.DistanceKm)

	if in.UserVoucherID != "" {
		discount, uv, err := r.resolveVoucher(ctx, in.CustomerID, in.UserVoucherID, q.SubtotalSen)
		if err != nil {
			return nil, err
		}
		q.DiscountSen = discount
		q.UserVoucher = uv
	}

	q.TotalSen = q.SubtotalSen + q.ServiceFeeSen + q.TravelFeeSen - q.DiscountSen
	if q.TotalSen < 0 {
		// Discount is capped at the subtotal, so this is unreachable;
		// clamp anyway to keep the invariant local.
		q.TotalSen = 0
	}
	return q, nil
}

// TravelFee is zero for walk-ins; home service pays a base fare plus a
// per-km rate beyond the base distance.
func TravelFee(serviceType string, distanceKm float64) int64 {
	if serviceType != ServiceTypeHome {
		return 0
	}
	if distanceKm <= TravelBaseKm {
		return TravelBaseSen
	}
	extra := math.Round(distanceKm - TravelBaseKm)
	return TravelBaseSen + int64(extra)*TravelPerKmSen
}

func (r *Resolver) resolveVoucher(
	ctx context.Context,
	customerID string,
	userVoucherID string,
	subtotalSen int64,
) (int64, *models.UserVoucher, error) {

	uv, err := r.repo.GetUserVoucher(ctx, userVoucherID)
	if err != nil {
		return 0, nil, httperr.ErrVoucher("voucher_not_found")
	}
	if uv.UserID != customerID {
		return 0, nil, httperr.ErrVoucher("voucher_not_owned")
	}
	if uv.Status != models.UserVoucherActive {
		return 0, nil, httperr.ErrVoucher("voucher_already_used")
	}

	v := uv.Voucher
	now := r.clock.Now()
	if !v.Active || now.Before(v.ValidFrom) || now.After(v.ValidUntil) {
		return 0, nil, httperr.ErrVoucher("voucher_expired")
	}
	if subtotalSen < v.MinSpendSen {
		return 0, nil, httperr.ErrVoucher("voucher_min_spend_not_met")
	}

	discount := Discount(v, subtotalSen)
	return discount, uv, nil
}

// Discount applies the voucher to the service subtotal, honouring the
// voucher's own cap and never exceeding the subtotal itself.
func Discount(v models.Voucher, subtotalSen int64) int64 {
	var discount int64
	switch v.Type {
	case models.VoucherTypePercentage:
		discount = subtotalSen * v.Value / 100
	case models.VoucherTypeFixed:
		discount = v.Value
	}
	if v.MaxDiscountSen > 0 && discount > v.MaxDiscountSen {
		discount = v.MaxDiscountSen
	}
	if discount > subtotalSen {
		discount = subtotalSen
	}
	return discount
}
