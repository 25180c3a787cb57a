package booking

import (
	"context"
	"log"

	"github.com/jonboulle/clockwork"

	"github.com/mari-gunting/booking-core/internal/audit"
	domain "github.com/mari-gunting/booking-core/internal/domain/booking"
	"github.com/mari-gunting/booking-core/internal/domain/payment"
	"github.com/mari-gunting/booking-core/internal/models"
	"github.com/mari-gunting/booking-core/internal/payments"
)

type TransitionBooking struct {
	repo   domain.Repository
	engine *payments.Engine
	audit  *audit.Dispatcher
	clock  clockwork.Clock
}

func NewTransitionBooking(
	repo domain.Repository,
	engine *payments.Engine,
	auditDisp *audit.Dispatcher,
	clock clockwork.Clock,
) *TransitionBooking {
	return &TransitionBooking{
		repo:   repo,
		engine: engine,
		audit:  auditDisp,
		clock:  clock,
	}
}

// Execute applies one lifecycle transition. The status write is durable
// before success is reported; settlement side effects run after it and
// are recorded (never silently dropped) when they fail.
func (uc *TransitionBooking) Execute(
	ctx context.Context,
	bookingID string,
	target domain.Status,
	actor domain.Actor,
	notes string,
) (*models.Booking, error) {

	b, err := uc.repo.GetBooking(ctx, bookingID)
	if err != nil {
		// The repository already distinguishes a missing booking from an
		// infrastructure failure; neither is rewritten here.
		return nil, err
	}

	now := uc.clock.Now()
	if err := domain.Transition(b, target, actor, now); err != nil {
		return nil, err
	}
	if target == domain.StatusCancelled && notes != "" {
		b.CancellationReason = notes
	}

	if err := uc.repo.UpdateBooking(ctx, b, b.Version); err != nil {
		// Concurrent transition won; the caller re-reads and retries.
		return nil, err
	}

	uc.afterTransition(ctx, b, target)

	actorID := actor.ID
	uc.audit.Dispatch(audit.Event{
		ActorID:  &actorID,
		Action:   "booking_" + string(target),
		Entity:   "booking",
		EntityID: &b.ID,
	})

	return b, nil
}

// afterTransition runs the settlement hooks for the edge just taken.
// Failures here are alerted inside the engine; the transition stands.
func (uc *TransitionBooking) afterTransition(ctx context.Context, b *models.Booking, target domain.Status) {
	switch target {
	case domain.StatusAccepted:
		if err := uc.repo.CancelPendingJobs(ctx, b.ID, models.JobKindExpire, "barber accepted"); err != nil {
			log.Println("cancel expiry job:", err)
		}

	case domain.StatusRejected:
		if err := uc.repo.CancelPendingJobs(ctx, b.ID, models.JobKindExpire, "barber rejected"); err != nil {
			log.Println("cancel expiry job:", err)
		}
		// An online booking is authorized at creation; the hold must not
		// outlive the rejection.
		if err := uc.engine.Cancel(ctx, b.ID, "booking rejected"); err != nil {
			log.Println("settlement on reject:", err)
		}

	case domain.StatusCompleted:
		switch payment.Status(b.PaymentStatus) {
		case payment.StatusAuthorized:
			if err := uc.engine.ScheduleCapture(ctx, b); err != nil {
				uc.audit.Dispatch(audit.SettlementAlert("capture_schedule_failed", b.ID, err.Error()))
			}
		case payment.StatusCompleted:
			// Pre-paid; nothing to settle.
		default:
			if b.PaymentMethod == "cash" {
				if err := uc.engine.SettleCash(ctx, b); err != nil {
					uc.audit.Dispatch(audit.SettlementAlert("cash_settle_failed", b.ID, err.Error()))
				}
			}
		}

	case domain.StatusCancelled:
		if err := uc.repo.CancelPendingJobs(ctx, b.ID, models.JobKindExpire, "booking cancelled"); err != nil {
			log.Println("cancel expiry job:", err)
		}
		if err := uc.engine.Cancel(ctx, b.ID, b.CancellationReason); err != nil {
			// Recorded as an alert by the engine; the cancellation stands.
			log.Println("settlement on cancel:", err)
		}
	}
}
