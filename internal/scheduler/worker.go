// Package scheduler drains due ScheduledJob rows. Durability lives in the
// jobs table; gocron only provides the tick. Jobs are claimed by
// compare-and-swap so concurrent workers (or a worker racing a
// customer-initiated confirm/dispute) never double-fire.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/mari-gunting/booking-core/internal/audit"
	domain "github.com/mari-gunting/booking-core/internal/domain/booking"
	"github.com/mari-gunting/booking-core/internal/domain/payment"
	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/models"
	"github.com/mari-gunting/booking-core/internal/payments"
)

const (
	BatchSize  = 10
	MaxRetries = 3
)

type Worker struct {
	repo   domain.Repository
	engine *payments.Engine
	audit  *audit.Dispatcher
	clock  clockwork.Clock
}

func NewWorker(
	repo domain.Repository,
	engine *payments.Engine,
	auditDisp *audit.Dispatcher,
	clock clockwork.Clock,
) *Worker {
	return &Worker{
		repo:   repo,
		engine: engine,
		audit:  auditDisp,
		clock:  clock,
	}
}

// Start runs the poll loop on a gocron scheduler. The returned scheduler
// owns the goroutine; callers stop it on shutdown.
func (w *Worker) Start(interval time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithClock(w.clock))
	if err != nil {
		return nil, err
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := w.ProcessDue(context.Background()); err != nil {
				log.Println("scheduler tick error:", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	s.Start()
	return s, nil
}

// ProcessDue fires every due pending job, up to the batch size.
func (w *Worker) ProcessDue(ctx context.Context) error {
	jobs, err := w.repo.DueJobs(ctx, w.clock.Now(), MaxRetries, BatchSize)
	if err != nil {
		return err
	}
	for i := range jobs {
		if err := w.Fire(ctx, &jobs[i]); err != nil {
			log.Printf("job %s (%s): %v", jobs[i].ID, jobs[i].Kind, err)
		}
	}
	return nil
}

// Fire claims and executes one job. The claim is the only write that must
// win a race; everything after re-checks state, so at-least-once delivery
// of the same job cannot capture twice or expire a progressed booking.
func (w *Worker) Fire(ctx context.Context, job *models.ScheduledJob) error {
	claimed, err := w.repo.ClaimJob(ctx, job.ID, w.clock.Now())
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	switch job.Kind {
	case models.JobKindCapture:
		return w.fireCapture(ctx, job)
	case models.JobKindExpire:
		return w.fireExpiry(ctx, job)
	default:
		return w.repo.MarkJobCancelled(ctx, job.ID, "unknown job kind")
	}
}

func (w *Worker) fireCapture(ctx context.Context, job *models.ScheduledJob) error {
	b, err := w.repo.GetBooking(ctx, job.BookingID)
	if err != nil {
		return w.requeue(ctx, job, err)
	}

	// Last check wins: dispute, early confirmation or cancellation since
	// scheduling makes this job moot, not an error.
	if domain.Status(b.Status) != domain.StatusCompleted ||
		payment.Status(b.PaymentStatus) != payment.StatusAuthorized ||
		b.DisputedAt != nil {
		return w.repo.MarkJobCancelled(ctx, job.ID, "booking state changed before capture")
	}

	if err := w.engine.CaptureNow(ctx, job.BookingID); err != nil {
		if httperr.IsKind(err, httperr.KindGateway) {
			return w.requeue(ctx, job, err)
		}
		// Permanent state rejection: the payment moved on underneath us.
		return w.repo.MarkJobCancelled(ctx, job.ID, err.Error())
	}
	return nil
}

func (w *Worker) fireExpiry(ctx context.Context, job *models.ScheduledJob) error {
	b, err := w.repo.GetBooking(ctx, job.BookingID)
	if err != nil {
		return w.requeue(ctx, job, err)
	}

	expired, err := domain.Expire(b, w.clock.Now())
	if err != nil {
		return err
	}
	if !expired {
		// Barber responded in time.
		return w.repo.MarkJobCancelled(ctx, job.ID, "booking no longer pending")
	}

	if err := w.repo.UpdateBooking(ctx, b, b.Version); err != nil {
		if httperr.IsKind(err, httperr.KindConflict) {
			// Someone accepted or cancelled between our read and write.
			return w.repo.MarkJobCancelled(ctx, job.ID, "lost expiry race")
		}
		return w.requeue(ctx, job, err)
	}

	w.audit.Dispatch(audit.BookingEvent(nil, "booking_expired", b.ID))

	// An authorized hold on an expired booking must be released, same as a
	// cancellation. The expiry stands either way; the engine alerts on
	// settlement failure.
	if err := w.engine.Cancel(ctx, b.ID, "booking expired"); err != nil {
		log.Println("settlement on expiry:", err)
	}
	return nil
}

// requeue releases a claimed job for another attempt, or parks it failed
// with an operator alert once retries are exhausted. A never-captured
// authorized payment is a financial defect, never a silent outcome.
func (w *Worker) requeue(ctx context.Context, job *models.ScheduledJob, cause error) error {
	job.RetryCount++
	failed := job.RetryCount >= MaxRetries
	if err := w.repo.RequeueJob(ctx, job, cause.Error(), failed); err != nil {
		return err
	}
	if failed {
		w.audit.Dispatch(audit.SettlementAlert(job.Kind+"_retries_exhausted", job.BookingID, map[string]any{
			"job_id":     job.ID,
			"last_error": cause.Error(),
		}))
	}
	return nil
}
