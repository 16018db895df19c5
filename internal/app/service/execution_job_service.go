package service

import (
	"context"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type ExecutionJobService struct {
	jobRepo     repository.ExecutionJobRepository
	problemRepo repository.ProblemRepository
	rdb         *redis.Client
	queueName   string
}

func NewExecutionJobService(jobRepo repository.ExecutionJobRepository, problemRepo repository.ProblemRepository, rdb *redis.Client, queueName string) *ExecutionJobService {
	return &ExecutionJobService{jobRepo: jobRepo, problemRepo: problemRepo, rdb: rdb, queueName: queueName}
}

// EnqueueSubmission stores a job for req and pushes its id to the queue.
// The worker replays the submission as userID.
func (s *ExecutionJobService) EnqueueSubmission(ctx context.Context, userID string, req CodeRequest) (*model.ExecutionJob, error) {
	if _, err := req.resolve(); err != nil {
		return nil, err
	}
	if _, err := s.problemRepo.FindProblemByID(ctx, req.ProblemID); err != nil {
		return nil, err
	}

	job := &model.ExecutionJob{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProblemID: req.ProblemID,
		JobType:   model.JobTypeSubmissionEvaluation,
		Payload: model.SubmissionJobPayload{
			ProblemID:  req.ProblemID,
			LanguageID: req.LanguageID,
			Code:       req.Code,
		},
		Status: model.JobStatusQueued,
	}
	if err := s.jobRepo.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to store execution job: %w", err)
	}

	if err := s.rdb.LPush(ctx, s.queueName, job.ID).Err(); err != nil {
		// The stored job expires on its own.
		return nil, common.WrapError(common.ErrServiceUnavailable, "Failed to queue submission", err)
	}

	logger.Info(ctx, "execution job enqueued", zap.String("job_id", job.ID), zap.String("problem_id", job.ProblemID))
	return job, nil
}

// GetJob returns one of the caller's jobs. Other users' jobs look missing.
func (s *ExecutionJobService) GetJob(ctx context.Context, userID, jobID string) (*model.ExecutionJob, error) {
	job, err := s.jobRepo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, common.NewError(common.ErrNotFound, "Job not found")
	}
	return job, nil
}
