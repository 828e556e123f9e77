package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"transcribe-service/ddd/domain/entity"
	"transcribe-service/ddd/domain/repo"
	"transcribe-service/ddd/domain/vo"
	"transcribe-service/ddd/infrastructure/database/convertor"
	"transcribe-service/ddd/infrastructure/database/dao"
	"transcribe-service/ddd/infrastructure/database/po"
	"transcribe-service/pkg/logger"
)

type mediaJobRepositoryImpl struct {
	jobDao    *dao.MediaJobDAO
	convertor *convertor.MediaJobConvertor
}

func NewMediaJobRepository() repo.MediaJobRepository {
	return &mediaJobRepositoryImpl{
		jobDao:    dao.NewMediaJobDAO(),
		convertor: convertor.NewMediaJobConvertor(),
	}
}

// NewMediaJobRepositoryWithDAO is used by tests that bring their own DAO.
func NewMediaJobRepositoryWithDAO(jobDao *dao.MediaJobDAO) repo.MediaJobRepository {
	return &mediaJobRepositoryImpl{
		jobDao:    jobDao,
		convertor: convertor.NewMediaJobConvertor(),
	}
}

func (r *mediaJobRepositoryImpl) CreateMediaJob(ctx context.Context, job *entity.MediaJobEntity) error {
	row := r.convertor.ToPO(job)
	if err := r.jobDao.Create(ctx, row); err != nil {
		return err
	}
	job.SetID(row.Id)
	return nil
}

func (r *mediaJobRepositoryImpl) GetMediaJob(ctx context.Context, jobUUID string) (*entity.MediaJobEntity, error) {
	row, err := r.jobDao.FindByJobUUID(ctx, jobUUID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.convertor.ToEntity(row), nil
}

func (r *mediaJobRepositoryImpl) Claim(ctx context.Context, jobUUID string, from, to vo.JobStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("illegal status transition %s -> %s", from, to)
	}
	return r.jobDao.ClaimStatus(ctx, jobUUID, string(from), string(to))
}

func (r *mediaJobRepositoryImpl) UpdateStatus(ctx context.Context, jobUUID string, status vo.JobStatus, message string) error {
	applied, err := r.jobDao.UpdateStatus(ctx, jobUUID, string(status), message)
	if err != nil {
		return err
	}
	if !applied {
		logger.Warnf("status write skipped, job already terminal job_uuid=%s status=%s", jobUUID, status)
	}
	return nil
}

func (r *mediaJobRepositoryImpl) SetExtractedAudioPath(ctx context.Context, jobUUID, path string) error {
	return r.jobDao.SetExtractedAudioPath(ctx, jobUUID, path)
}

func (r *mediaJobRepositoryImpl) CompleteWithResult(ctx context.Context, jobUUID string, result *vo.TranscriptResult) error {
	resultJSON, err := r.convertor.ResultToJSON(result)
	if err != nil {
		return fmt.Errorf("serialize result: %w", err)
	}
	applied, err := r.jobDao.CompleteWithResult(ctx, jobUUID, string(vo.JobStatusCompleted), resultJSON, result.ProcessingTime)
	if err != nil {
		return err
	}
	if !applied {
		// The claim was lost after inference ran; the winner's writes stand.
		logger.Warnf("completion dropped, job no longer owned job_uuid=%s", jobUUID)
	}
	return nil
}

func (r *mediaJobRepositoryImpl) ScheduleRetry(ctx context.Context, jobUUID string, nextAttemptAt time.Time, message string) error {
	applied, err := r.jobDao.ScheduleRetry(ctx, jobUUID, string(vo.JobStatusPending), message, nextAttemptAt)
	if err != nil {
		return err
	}
	if !applied {
		logger.Warnf("retry skipped, job already terminal job_uuid=%s", jobUUID)
	}
	return nil
}

func (r *mediaJobRepositoryImpl) QueryStaleJobs(ctx context.Context, statuses []vo.JobStatus, updatedBefore time.Time, limit int) ([]*entity.MediaJobEntity, error) {
	raw := make([]string, 0, len(statuses))
	for _, s := range statuses {
		raw = append(raw, string(s))
	}
	rows, err := r.jobDao.QueryByStatusUpdatedBefore(ctx, raw, updatedBefore, limit)
	if err != nil {
		return nil, err
	}
	return r.toEntities(rows), nil
}

func (r *mediaJobRepositoryImpl) QueryDueJobs(ctx context.Context, now time.Time, limit int) ([]*entity.MediaJobEntity, error) {
	rows, err := r.jobDao.QueryDue(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	return r.toEntities(rows), nil
}

func (r *mediaJobRepositoryImpl) toEntities(rows []*po.MediaJob) []*entity.MediaJobEntity {
	jobs := make([]*entity.MediaJobEntity, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, r.convertor.ToEntity(row))
	}
	return jobs
}
