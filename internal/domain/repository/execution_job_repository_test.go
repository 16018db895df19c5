package repository_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newJobRepo(t *testing.T, ttl time.Duration) (repository.ExecutionJobRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return repository.NewRedisExecutionJobRepository(rdb, ttl), mr
}

func sampleJob() *model.ExecutionJob {
	return &model.ExecutionJob{
		ID:        "job-1",
		UserID:    "u-1",
		ProblemID: "p-1",
		JobType:   model.JobTypeSubmissionEvaluation,
		Payload:   model.SubmissionJobPayload{ProblemID: "p-1", LanguageID: 71, Code: "print(1)"},
		Status:    model.JobStatusQueued,
	}
}

func TestSaveAndGetJob(t *testing.T) {
	repo, mr := newJobRepo(t, time.Hour)
	ctx := context.Background()

	job := sampleJob()
	if err := repo.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Fatalf("timestamps must be set on save")
	}

	raw, err := mr.Get("execution_job:job-1")
	if err != nil {
		t.Fatalf("job key missing: %v", err)
	}
	if !strings.Contains(raw, `"payload"`) || !strings.Contains(raw, `"print(1)"`) {
		t.Fatalf("stored record must carry the payload: %s", raw)
	}
	if ttl := mr.TTL("execution_job:job-1"); ttl != time.Hour {
		t.Fatalf("expected 1h TTL, got %v", ttl)
	}

	got, err := repo.GetJobByID(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJobByID failed: %v", err)
	}
	if got.UserID != "u-1" || got.Status != model.JobStatusQueued || got.Payload.Code != "print(1)" {
		t.Fatalf("unexpected job: %+v", got)
	}
}

func TestGetJobMissing(t *testing.T) {
	repo, _ := newJobRepo(t, time.Hour)
	_, err := repo.GetJobByID(context.Background(), "nope")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestJobExpires(t *testing.T) {
	repo, mr := newJobRepo(t, time.Minute)
	ctx := context.Background()
	if err := repo.SaveJob(ctx, sampleJob()); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := repo.GetJobByID(ctx, "job-1"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expired job must be gone, got %v", err)
	}
}

func TestUpdateJobStatusAndAttempts(t *testing.T) {
	repo, mr := newJobRepo(t, time.Minute)
	ctx := context.Background()
	if err := repo.SaveJob(ctx, sampleJob()); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}
	mr.FastForward(30 * time.Second)

	msg := "boom"
	job, err := repo.UpdateJobStatus(ctx, "job-1", model.JobStatusFailed, &msg)
	if err != nil {
		t.Fatalf("UpdateJobStatus failed: %v", err)
	}
	if job.Status != model.JobStatusFailed || job.LastError == nil || *job.LastError != "boom" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if ttl := mr.TTL("execution_job:job-1"); ttl != time.Minute {
		t.Fatalf("writes must refresh the TTL, got %v", ttl)
	}

	job, err = repo.IncrementJobAttempts(ctx, "job-1")
	if err != nil || job.Attempts != 1 {
		t.Fatalf("IncrementJobAttempts: %+v %v", job, err)
	}
	job, err = repo.IncrementJobAttempts(ctx, "job-1")
	if err != nil || job.Attempts != 2 {
		t.Fatalf("IncrementJobAttempts: %+v %v", job, err)
	}

	got, err := repo.GetJobByID(ctx, "job-1")
	if err != nil || got.Attempts != 2 || got.Payload.LanguageID != 71 {
		t.Fatalf("updates not persisted: %+v %v", got, err)
	}

	if _, err := repo.UpdateJobStatus(ctx, "nope", model.JobStatusCompleted, nil); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
