package worker

import (
	"context"
	"errors"
	"time"

	"codearena/internal/app/service"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseLock deletes the lock only while it still holds our value.
var releaseLock = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// Submitter judges and records a submission.
type Submitter interface {
	Submit(ctx context.Context, userID string, req service.CodeRequest) (*model.SubmitResult, error)
}

type Options struct {
	QueueName  string
	LockKey    string
	LockTTL    time.Duration
	JobTimeout time.Duration
	// PopTimeout bounds each BRPOP so the loop notices cancellation.
	PopTimeout time.Duration
}

type ExecutionWorker struct {
	rdb       *redis.Client
	jobRepo   repository.ExecutionJobRepository
	submitter Submitter
	opts      Options
}

func NewExecutionWorker(rdb *redis.Client, jobRepo repository.ExecutionJobRepository, submitter Submitter, opts Options) *ExecutionWorker {
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = time.Second
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 2 * time.Minute
	}
	return &ExecutionWorker{rdb: rdb, jobRepo: jobRepo, submitter: submitter, opts: opts}
}

// Start processes jobs one at a time until ctx is cancelled.
func (w *ExecutionWorker) Start(ctx context.Context) {
	logger.Info(ctx, "execution worker started", zap.String("queue", w.opts.QueueName))
	for {
		select {
		case <-ctx.Done():
			logger.Info(context.Background(), "execution worker stopping")
			return
		default:
		}
		w.ProcessNext(ctx)
	}
}

// next pops one job id. It returns false on timeout, shutdown or error.
func (w *ExecutionWorker) next(ctx context.Context) (string, bool) {
	res, err := w.rdb.BRPop(ctx, w.opts.PopTimeout, w.opts.QueueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return "", false
		}
		logger.Error(ctx, "failed to pop from execution queue", zap.String("queue", w.opts.QueueName), zap.Error(err))
		sleep(ctx, 5*time.Second)
		return "", false
	}
	// res is [queue, value]
	if len(res) < 2 || res[1] == "" {
		logger.Warn(ctx, "execution queue returned an empty job id")
		return "", false
	}
	return res[1], true
}

// ProcessNext pops and handles at most one job. It reports whether a job was
// taken from the queue.
func (w *ExecutionWorker) ProcessNext(ctx context.Context) bool {
	jobID, ok := w.next(ctx)
	if !ok {
		return false
	}
	w.processJobWithLock(ctx, jobID)
	return true
}

func (w *ExecutionWorker) processJobWithLock(ctx context.Context, jobID string) {
	lockValue := uuid.NewString()
	ok, err := w.rdb.SetNX(ctx, w.opts.LockKey, lockValue, w.opts.LockTTL).Result()
	if err != nil {
		logger.Error(ctx, "failed to acquire execution lock", zap.String("job_id", jobID), zap.Error(err))
		w.requeueJob(ctx, jobID)
		return
	}
	if !ok {
		logger.Info(ctx, "execution lock busy, re-queueing", zap.String("job_id", jobID))
		w.requeueJob(ctx, jobID)
		sleep(ctx, w.opts.PopTimeout)
		return
	}

	defer func() {
		deleted, err := releaseLock.Run(context.Background(), w.rdb, []string{w.opts.LockKey}, lockValue).Int64()
		switch {
		case err != nil:
			logger.Error(ctx, "failed to release execution lock", zap.String("job_id", jobID), zap.Error(err))
		case deleted == 0:
			logger.Warn(ctx, "execution lock expired before release", zap.String("job_id", jobID))
		}
	}()

	w.handleJob(ctx, jobID)
}

func (w *ExecutionWorker) requeueJob(ctx context.Context, jobID string) {
	if err := w.rdb.RPush(ctx, w.opts.QueueName, jobID).Err(); err != nil {
		logger.Error(ctx, "failed to re-queue job", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (w *ExecutionWorker) handleJob(ctx context.Context, jobID string) {
	job, err := w.jobRepo.GetJobByID(ctx, jobID)
	if err != nil {
		// Expired or never stored; nothing to report back to.
		logger.Warn(ctx, "dropping unknown execution job", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if job.Finished() {
		return
	}

	job.Status = model.JobStatusProcessing
	job.Attempts++
	if err := w.jobRepo.SaveJob(ctx, job); err != nil {
		logger.Error(ctx, "failed to mark job processing", zap.String("job_id", job.ID), zap.Error(err))
	}

	jobCtx := logger.WithUserID(ctx, job.UserID)
	if job.JobType != model.JobTypeSubmissionEvaluation {
		w.fail(jobCtx, job, "Unknown job type: "+job.JobType)
		return
	}

	runCtx, cancel := context.WithTimeout(jobCtx, w.opts.JobTimeout)
	defer cancel()

	result, err := w.submitter.Submit(runCtx, job.UserID, service.CodeRequest{
		ProblemID:  job.Payload.ProblemID,
		LanguageID: job.Payload.LanguageID,
		Code:       job.Payload.Code,
	})
	if err != nil {
		w.fail(jobCtx, job, err.Error())
		return
	}

	job.Status = model.JobStatusCompleted
	job.Result = result
	job.LastError = nil
	if err := w.jobRepo.SaveJob(context.WithoutCancel(jobCtx), job); err != nil {
		logger.Error(jobCtx, "failed to store job result", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	logger.Info(jobCtx, "execution job completed",
		zap.String("job_id", job.ID),
		zap.String("status", string(result.Submission.Status)),
	)
}

func (w *ExecutionWorker) fail(ctx context.Context, job *model.ExecutionJob, msg string) {
	logger.Error(ctx, "execution job failed", zap.String("job_id", job.ID), zap.String("error", msg))
	job.Status = model.JobStatusFailed
	job.LastError = &msg
	if err := w.jobRepo.SaveJob(context.WithoutCancel(ctx), job); err != nil {
		logger.Error(ctx, "failed to store job failure", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
