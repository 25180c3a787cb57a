package repository

import (
	"context"
	"time"

	"github.com/mari-gunting/booking-core/internal/models"
)

// --------------------------------------------------
// Scheduled jobs
// --------------------------------------------------

func (r *BookingGormRepository) CreateJob(
	ctx context.Context,
	job *models.ScheduledJob,
) (bool, error) {

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ScheduledJob{}).
		Where(
			"booking_id = ? AND kind = ? AND status = ?",
			job.BookingID, job.Kind, models.JobStatusPending,
		).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *BookingGormRepository) CancelPendingJobs(
	ctx context.Context,
	bookingID string,
	kind string,
	reason string,
) error {

	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.ScheduledJob{}).
		Where(
			"booking_id = ? AND kind = ? AND status = ?",
			bookingID, kind, models.JobStatusPending,
		).
		Updates(map[string]any{
			"status":       models.JobStatusCancelled,
			"last_error":   reason,
			"processed_at": now,
		}).Error
}

func (r *BookingGormRepository) DueJobs(
	ctx context.Context,
	now time.Time,
	maxRetries int,
	limit int,
) ([]models.ScheduledJob, error) {

	var jobs []models.ScheduledJob
	if err := r.db.WithContext(ctx).
		Where(
			"status = ? AND scheduled_at <= ? AND retry_count < ?",
			models.JobStatusPending, now, maxRetries,
		).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// ClaimJob is the double-fire guard: pending → fired by CAS. Losing the
// swap means another worker (or an early confirmation) owns the job.
func (r *BookingGormRepository) ClaimJob(
	ctx context.Context,
	jobID string,
	now time.Time,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&models.ScheduledJob{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusPending).
		Updates(map[string]any{
			"status":       models.JobStatusFired,
			"processed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *BookingGormRepository) RequeueJob(
	ctx context.Context,
	job *models.ScheduledJob,
	lastError string,
	failed bool,
) error {

	status := models.JobStatusPending
	var processedAt any
	if failed {
		status = models.JobStatusFailed
		processedAt = time.Now()
	}

	return r.db.WithContext(ctx).
		Model(&models.ScheduledJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":       status,
			"retry_count":  job.RetryCount,
			"last_error":   lastError,
			"processed_at": processedAt,
		}).Error
}

func (r *BookingGormRepository) MarkJobCancelled(
	ctx context.Context,
	jobID string,
	reason string,
) error {

	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.ScheduledJob{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status":       models.JobStatusCancelled,
			"last_error":   reason,
			"processed_at": now,
		}).Error
}
