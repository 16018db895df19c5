package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const jobKeyPrefix = "execution_job:"

type ExecutionJobRepository interface {
	SaveJob(ctx context.Context, job *model.ExecutionJob) error
	GetJobByID(ctx context.Context, id string) (*model.ExecutionJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status string, lastError *string) (*model.ExecutionJob, error)
	IncrementJobAttempts(ctx context.Context, jobID string) (*model.ExecutionJob, error)
}

// redisExecutionJobRepository keeps each job as a JSON string under
// execution_job:{id}. Every write refreshes the key's TTL.
type redisExecutionJobRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisExecutionJobRepository(rdb *redis.Client, ttl time.Duration) ExecutionJobRepository {
	return &redisExecutionJobRepository{rdb: rdb, ttl: ttl}
}

// jobRecord exposes the payload, which the API representation hides.
type jobRecord struct {
	*model.ExecutionJob
	Payload model.SubmissionJobPayload `json:"payload"`
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

func (r *redisExecutionJobRepository) SaveJob(ctx context.Context, job *model.ExecutionJob) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	data, err := json.Marshal(jobRecord{ExecutionJob: job, Payload: job.Payload})
	if err != nil {
		return fmt.Errorf("redisExecutionJobRepository.SaveJob: marshal: %w", err)
	}
	if err := r.rdb.Set(ctx, jobKey(job.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redisExecutionJobRepository.SaveJob: %w", err)
	}
	return nil
}

func (r *redisExecutionJobRepository) GetJobByID(ctx context.Context, id string) (*model.ExecutionJob, error) {
	data, err := r.rdb.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.NewError(common.ErrNotFound, "Job not found")
		}
		return nil, fmt.Errorf("redisExecutionJobRepository.GetJobByID: %w", err)
	}

	rec := jobRecord{ExecutionJob: &model.ExecutionJob{}}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("redisExecutionJobRepository.GetJobByID: unmarshal: %w", err)
	}
	rec.ExecutionJob.Payload = rec.Payload
	return rec.ExecutionJob, nil
}

func (r *redisExecutionJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status string, lastError *string) (*model.ExecutionJob, error) {
	job, err := r.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job.Status = status
	job.LastError = lastError
	if err := r.SaveJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (r *redisExecutionJobRepository) IncrementJobAttempts(ctx context.Context, jobID string) (*model.ExecutionJob, error) {
	job, err := r.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job.Attempts++
	if err := r.SaveJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}
