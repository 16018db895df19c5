package model

import (
	"time"
)

const (
	JobTypeSubmissionEvaluation = "submission_evaluation"

	JobStatusQueued     = "Queued"
	JobStatusProcessing = "Processing" // Worker holds the lock and is judging
	JobStatusCompleted  = "Completed"
	JobStatusFailed     = "Failed"
)

// ExecutionJob is a graded submission judged in the background. Jobs live in
// Redis and expire after a configured TTL.
type ExecutionJob struct {
	ID        string               `json:"id"`
	UserID    string               `json:"userId"`
	ProblemID string               `json:"problemId"`
	JobType   string               `json:"jobType"`
	Payload   SubmissionJobPayload `json:"-"`
	Status    string               `json:"status"`
	Attempts  int                  `json:"attempts"`
	LastError *string              `json:"lastError,omitempty"`
	Result    *SubmitResult        `json:"result,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

func (j *ExecutionJob) Finished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// SubmissionJobPayload carries what the worker needs to replay the submit.
type SubmissionJobPayload struct {
	ProblemID  string `json:"problemId"`
	LanguageID int    `json:"languageId"`
	Code       string `json:"code"`
}

// SubmitResult is the response of a graded submission. Only public test
// case results are included.
type SubmitResult struct {
	Submission      *Submission      `json:"submission"`
	TestCaseResults []TestCaseResult `json:"testCaseResults"`
	Results         PassFailCount    `json:"results"`
}
