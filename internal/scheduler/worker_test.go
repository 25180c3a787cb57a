package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mari-gunting/booking-core/internal/audit"
	domain "github.com/mari-gunting/booking-core/internal/domain/booking"
	"github.com/mari-gunting/booking-core/internal/domain/payment"
	"github.com/mari-gunting/booking-core/internal/httperr"
	"github.com/mari-gunting/booking-core/internal/models"
	"github.com/mari-gunting/booking-core/internal/payments"
)

// ======================================================
// FAKES
// ======================================================

type fakeRepo struct {
	domain.Repository

	bookings map[string]models.Booking
	jobs     map[string]models.ScheduledJob
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		bookings: map[string]models.Booking{},
		jobs:     map[string]models.ScheduledJob{},
	}
}

func (r *fakeRepo) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, httperr.ErrNotFound("booking_not_found")
	}
	copied := b
	return &copied, nil
}

func (r *fakeRepo) UpdateBooking(_ context.Context, b *models.Booking, expectedVersion int64) error {
	stored, ok := r.bookings[b.ID]
	if !ok {
		return httperr.ErrNotFound("booking_not_found")
	}
	if stored.Version != expectedVersion {
		return httperr.ErrConflict("booking_version_conflict")
	}
	b.Version = expectedVersion + 1
	r.bookings[b.ID] = *b
	return nil
}

func (r *fakeRepo) DueJobs(_ context.Context, now time.Time, maxRetries, limit int) ([]models.ScheduledJob, error) {
	var due []models.ScheduledJob
	for _, j := range r.jobs {
		if j.Status == models.JobStatusPending && !j.ScheduledAt.After(now) && j.RetryCount < maxRetries {
			due = append(due, j)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (r *fakeRepo) ClaimJob(_ context.Context, jobID string, now time.Time) (bool, error) {
	j, ok := r.jobs[jobID]
	if !ok || j.Status != models.JobStatusPending {
		return false, nil
	}
	j.Status = models.JobStatusFired
	j.ProcessedAt = &now
	r.jobs[jobID] = j
	return true, nil
}

func (r *fakeRepo) RequeueJob(_ context.Context, job *models.ScheduledJob, lastError string, failed bool) error {
	j := r.jobs[job.ID]
	j.Status = models.JobStatusPending
	if failed {
		j.Status = models.JobStatusFailed
	}
	j.RetryCount = job.RetryCount
	j.LastError = lastError
	r.jobs[job.ID] = j
	return nil
}

func (r *fakeRepo) MarkJobCancelled(_ context.Context, jobID, reason string) error {
	j := r.jobs[jobID]
	j.Status = models.JobStatusCancelled
	j.LastError = reason
	r.jobs[jobID] = j
	return nil
}

func (r *fakeRepo) CancelPendingJobs(_ context.Context, bookingID, kind, reason string) error {
	for id, j := range r.jobs {
		if j.BookingID == bookingID && j.Kind == kind && j.Status == models.JobStatusPending {
			j.Status = models.JobStatusCancelled
			j.LastError = reason
			r.jobs[id] = j
		}
	}
	return nil
}

type fakeGateway struct {
	captureErr   error
	captureCalls int
}

func (g *fakeGateway) CreateOrder(context.Context, int64, string) (string, error) {
	return "order_1", nil
}

func (g *fakeGateway) FetchPayment(_ context.Context, id string) (*payments.Payment, error) {
	return &payments.Payment{ID: id, Status: payments.GatewayAuthorized}, nil
}

func (g *fakeGateway) Capture(context.Context, string, int64) error {
	g.captureCalls++
	return g.captureErr
}

func (g *fakeGateway) Refund(context.Context, string, int64, string, string) (string, error) {
	return "rfnd_1", nil
}

type noopSink struct{}

func (noopSink) Log(audit.Event) error { return nil }

// ======================================================
// HELPERS
// ======================================================

func setup(gw *fakeGateway) (*Worker, *fakeRepo, *clockwork.FakeClock) {
	repo := newFakeRepo()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC))
	dispatcher := audit.NewDispatcher(noopSink{})
	engine := payments.NewEngine(repo, gw, dispatcher, clock, 2*time.Hour)
	return NewWorker(repo, engine, dispatcher, clock), repo, clock
}

func captureJob(bookingID string, at time.Time) models.ScheduledJob {
	return models.ScheduledJob{
		ID:          "job-capture",
		Kind:        models.JobKindCapture,
		BookingID:   bookingID,
		ScheduledAt: at,
		Status:      models.JobStatusPending,
	}
}

func expiryJob(bookingID string, at time.Time) models.ScheduledJob {
	return models.ScheduledJob{
		ID:          "job-expire",
		Kind:        models.JobKindExpire,
		BookingID:   bookingID,
		ScheduledAt: at,
		Status:      models.JobStatusPending,
	}
}

func pid(s string) *string { return &s }

// ======================================================
// TESTS
// ======================================================

func TestFireCapture(t *testing.T) {
	t.Run("captures a due completed booking", func(t *testing.T) {
		gw := &fakeGateway{}
		w, repo, clock := setup(gw)

		repo.bookings["bkg-1"] = models.Booking{
			ID:              "bkg-1",
			Status:          string(domain.StatusCompleted),
			PaymentStatus:   string(payment.StatusAuthorized),
			CurlecPaymentID: pid("pay_1"),
			TotalPriceSen:   5900,
		}
		job := captureJob("bkg-1", clock.Now().Add(-time.Minute))
		repo.jobs[job.ID] = job

		require.NoError(t, w.ProcessDue(context.Background()))

		assert.Equal(t, 1, gw.captureCalls)
		b, _ := repo.GetBooking(context.Background(), "bkg-1")
		assert.Equal(t, string(payment.StatusCompleted), b.PaymentStatus)
	})

	t.Run("claimed job never fires twice", func(t *testing.T) {
		gw := &fakeGateway{}
		w, repo, clock := setup(gw)

		repo.bookings["bkg-1"] = models.Booking{
			ID:              "bkg-1",
			Status:          string(domain.StatusCompleted),
			PaymentStatus:   string(payment.StatusAuthorized),
			CurlecPaymentID: pid("pay_1"),
		}
		job := captureJob("bkg-1", clock.Now())
		repo.jobs[job.ID] = job

		require.NoError(t, w.Fire(context.Background(), &job))
		require.NoError(t, w.Fire(context.Background(), &job))

		assert.Equal(t, 1, gw.captureCalls)
	})

	t.Run("disputed booking cancels the job untouched", func(t *testing.T) {
		gw := &fakeGateway{}
		w, repo, clock := setup(gw)

		disputedAt := clock.Now()
		repo.bookings["bkg-1"] = models.Booking{
			ID:              "bkg-1",
			Status:          string(domain.StatusCompleted),
			PaymentStatus:   string(payment.StatusAuthorized),
			CurlecPaymentID: pid("pay_1"),
			DisputedAt:      &disputedAt,
		}
		job := captureJob("bkg-1", clock.Now())
		repo.jobs[job.ID] = job

		require.NoError(t, w.Fire(context.Background(), &job))

		assert.Equal(t, 0, gw.captureCalls, "disputed money stays held")
		assert.Equal(t, models.JobStatusCancelled, repo.jobs[job.ID].Status)
	})

	t.Run("gateway failure requeues with retry bookkeeping", func(t *testing.T) {
		gw := &fakeGateway{captureErr: errors.New("BAD_GATEWAY")}
		w, repo, clock := setup(gw)

		repo.bookings["bkg-1"] = models.Booking{
			ID:              "bkg-1",
			Status:          string(domain.StatusCompleted),
			PaymentStatus:   string(payment.StatusAuthorized),
			CurlecPaymentID: pid("pay_1"),
		}
		job := captureJob("bkg-1", clock.Now())
		repo.jobs[job.ID] = job

		require.NoError(t, w.Fire(context.Background(), &job))

		stored := repo.jobs[job.ID]
		assert.Equal(t, models.JobStatusPending, stored.Status, "released for retry")
		assert.Equal(t, 1, stored.RetryCount)
		assert.NotEmpty(t, stored.LastError)
	})
}

func TestFireExpiry(t *testing.T) {
	t.Run("expires a stale pending booking", func(t *testing.T) {
		w, repo, clock := setup(&fakeGateway{})

		repo.bookings["bkg-1"] = models.Booking{
			ID:     "bkg-1",
			Status: string(domain.StatusPending),
		}
		job := expiryJob("bkg-1", clock.Now().Add(-time.Minute))
		repo.jobs[job.ID] = job

		require.NoError(t, w.ProcessDue(context.Background()))

		b, _ := repo.GetBooking(context.Background(), "bkg-1")
		assert.Equal(t, string(domain.StatusExpired), b.Status)
	})

	t.Run("expiry releases an authorized hold", func(t *testing.T) {
		gw := &fakeGateway{}
		w, repo, clock := setup(gw)

		repo.bookings["bkg-1"] = models.Booking{
			ID:              "bkg-1",
			Status:          string(domain.StatusPending),
			PaymentMethod:   "card",
			PaymentStatus:   string(payment.StatusAuthorized),
			CurlecPaymentID: pid("pay_1"),
			TotalPriceSen:   5900,
		}
		job := expiryJob("bkg-1", clock.Now().Add(-time.Minute))
		repo.jobs[job.ID] = job

		require.NoError(t, w.ProcessDue(context.Background()))

		b, _ := repo.GetBooking(context.Background(), "bkg-1")
		assert.Equal(t, string(domain.StatusExpired), b.Status)
		assert.Equal(t, string(payment.StatusReversed), b.PaymentStatus, "the hold must not outlive the booking")
		assert.Equal(t, 0, gw.captureCalls)
	})

	t.Run("accepted booking survives a late expiry job", func(t *testing.T) {
		w, repo, clock := setup(&fakeGateway{})

		repo.bookings["bkg-1"] = models.Booking{
			ID:     "bkg-1",
			Status: string(domain.StatusAccepted),
		}
		job := expiryJob("bkg-1", clock.Now())
		repo.jobs[job.ID] = job

		require.NoError(t, w.Fire(context.Background(), &job))

		b, _ := repo.GetBooking(context.Background(), "bkg-1")
		assert.Equal(t, string(domain.StatusAccepted), b.Status)
		assert.Equal(t, models.JobStatusCancelled, repo.jobs[job.ID].Status)
	})
}

func TestProcessDueSkipsFutureJobs(t *testing.T) {
	gw := &fakeGateway{}
	w, repo, clock := setup(gw)

	repo.bookings["bkg-1"] = models.Booking{
		ID:              "bkg-1",
		Status:          string(domain.StatusCompleted),
		PaymentStatus:   string(payment.StatusAuthorized),
		CurlecPaymentID: pid("pay_1"),
	}
	job := captureJob("bkg-1", clock.Now().Add(2*time.Hour))
	repo.jobs[job.ID] = job

	require.NoError(t, w.ProcessDue(context.Background()))

	assert.Equal(t, 0, gw.captureCalls)
	assert.Equal(t, models.JobStatusPending, repo.jobs[job.ID].Status)
}
