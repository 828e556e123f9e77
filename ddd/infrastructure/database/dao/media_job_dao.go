package dao

import (
	"context"
	"time"

	"gorm.io/gorm"

	"transcribe-service/ddd/infrastructure/database/po"
	"transcribe-service/internal/resource"
)

// openStatuses are the statuses a job can still move out of. Every
// transition predicates on them so a completed or failed row never changes
// again, no matter how stale the caller's read was.
var openStatuses = []string{"pending", "extracting", "processing"}

type MediaJobDAO struct {
	db *gorm.DB
}

func NewMediaJobDAO() *MediaJobDAO {
	return &MediaJobDAO{db: resource.DefaultMysqlResource().MainDB()}
}

// NewMediaJobDAOWithDB is used by tests that bring their own connection.
func NewMediaJobDAOWithDB(db *gorm.DB) *MediaJobDAO {
	return &MediaJobDAO{db: db}
}

func (d *MediaJobDAO) Create(ctx context.Context, job *po.MediaJob) error {
	return d.db.WithContext(ctx).Model(&po.MediaJob{}).Create(job).Error
}

func (d *MediaJobDAO) FindByJobUUID(ctx context.Context, jobUUID string) (*po.MediaJob, error) {
	var job po.MediaJob
	if err := d.db.WithContext(ctx).Where("job_uuid = ?", jobUUID).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ClaimStatus performs the conditional transition that keeps concurrent
// workers off the same job. Exactly one caller sees a non-zero row count.
func (d *MediaJobDAO) ClaimStatus(ctx context.Context, jobUUID, from, to string) (bool, error) {
	tx := d.db.WithContext(ctx).Model(&po.MediaJob{}).
		Where("job_uuid = ? AND status = ?", jobUUID, from).
		Updates(map[string]interface{}{"status": to, "error_message": ""})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// UpdateStatus writes the status and diagnostic message, refusing to touch a
// row that already reached a terminal status. Returns whether the row changed.
func (d *MediaJobDAO) UpdateStatus(ctx context.Context, jobUUID, status, message string) (bool, error) {
	tx := d.db.WithContext(ctx).Model(&po.MediaJob{}).
		Where("job_uuid = ? AND status IN ?", jobUUID, openStatuses).
		Updates(map[string]interface{}{"status": status, "error_message": message})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (d *MediaJobDAO) SetExtractedAudioPath(ctx context.Context, jobUUID, path string) error {
	return d.db.WithContext(ctx).Model(&po.MediaJob{}).
		Where("job_uuid = ? AND extracted_audio_path IS NULL", jobUUID).
		Update("extracted_audio_path", path).Error
}

// CompleteWithResult attaches the result to a job the caller still owns. Only
// a row in processing can complete; anything else means the claim was lost
// and the write must not land.
func (d *MediaJobDAO) CompleteWithResult(ctx context.Context, jobUUID, status, resultJSON string, processingTime float64) (bool, error) {
	tx := d.db.WithContext(ctx).Model(&po.MediaJob{}).
		Where("job_uuid = ? AND status = ?", jobUUID, "processing").
		Updates(map[string]interface{}{
			"status":          status,
			"result_json":     resultJSON,
			"processing_time": processingTime,
			"error_message":   "",
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// ScheduleRetry re-opens a still-open job for another attempt. A row that
// completed or failed since the caller read it stays untouched.
func (d *MediaJobDAO) ScheduleRetry(ctx context.Context, jobUUID, status, message string, nextAttemptAt time.Time) (bool, error) {
	tx := d.db.WithContext(ctx).Model(&po.MediaJob{}).
		Where("job_uuid = ? AND status IN ?", jobUUID, openStatuses).
		Updates(map[string]interface{}{
			"status":          status,
			"error_message":   message,
			"next_attempt_at": nextAttemptAt,
			"retry_count":     gorm.Expr("retry_count + 1"),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (d *MediaJobDAO) QueryByStatusUpdatedBefore(ctx context.Context, statuses []string, updatedBefore time.Time, limit int) ([]*po.MediaJob, error) {
	var jobs []*po.MediaJob
	q := d.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", statuses, updatedBefore).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// QueryDue finds pending rows whose retry came due, plus pending rows with no
// scheduled attempt that have not been touched since the cutoff — the latter
// are submissions whose queue entry was lost before any attempt ran.
func (d *MediaJobDAO) QueryDue(ctx context.Context, now time.Time, limit int) ([]*po.MediaJob, error) {
	var jobs []*po.MediaJob
	q := d.db.WithContext(ctx).
		Where("status = ? AND (next_attempt_at <= ? OR (next_attempt_at IS NULL AND updated_at <= ?))", "pending", now, now).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
