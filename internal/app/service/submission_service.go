package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/database"
	"codearena/internal/platform/judge0"
	"codearena/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CodeRunner runs a batch of submissions to completion. *judge0.Client
// implements it.
type CodeRunner interface {
	RunBatch(ctx context.Context, items []judge0.BatchItem) ([]judge0.Result, error)
}

type SubmissionService struct {
	problemRepo    repository.ProblemRepository
	submissionRepo repository.SubmissionRepository
	runner         CodeRunner
	txRunner       database.TxRunner
}

func NewSubmissionService(
	problemRepo repository.ProblemRepository,
	submissionRepo repository.SubmissionRepository,
	runner CodeRunner,
	txRunner database.TxRunner,
) *SubmissionService {
	return &SubmissionService{
		problemRepo:    problemRepo,
		submissionRepo: submissionRepo,
		runner:         runner,
		txRunner:       txRunner,
	}
}

type CodeRequest struct {
	ProblemID  string `json:"problemId" validate:"required"`
	LanguageID int    `json:"languageId" validate:"required"`
	Code       string `json:"code" validate:"required"`
}

// resolve validates req and returns its language.
func (req CodeRequest) resolve() (judge0.Language, error) {
	if err := common.Validate(req); err != nil {
		return "", err
	}
	lang, ok := judge0.LanguageByID(req.LanguageID)
	if !ok {
		return "", common.NewErrorf(common.ErrBadRequest, "Unsupported language: %d", req.LanguageID)
	}
	return lang, nil
}

// Execute runs code against the public test cases only. Nothing is stored.
func (s *SubmissionService) Execute(ctx context.Context, userID string, req CodeRequest) ([]model.RunCodeResult, error) {
	lang, err := req.resolve()
	if err != nil {
		return nil, err
	}

	problem, err := s.problemRepo.FindProblemByID(ctx, req.ProblemID)
	if err != nil {
		return nil, err
	}
	testCases := problem.PublicTestCases()
	if len(testCases) == 0 {
		return nil, common.NewError(common.ErrBadRequest, "Problem has no public test cases")
	}

	results, err := s.runner.RunBatch(ctx, batchItems(lang, req.Code, testCases))
	if err != nil {
		return nil, err
	}
	if len(results) != len(testCases) {
		return nil, common.NewError(common.ErrServiceUnavailable, "Failed to get submission results from Judge0")
	}

	out := make([]model.RunCodeResult, len(results))
	for i, res := range results {
		out[i] = model.RunCodeResult{
			TestCase:       i + 1,
			Input:          testCases[i].Input,
			Output:         res.TrimmedStdout(),
			ExpectedOutput: testCases[i].Output,
			Status:         res.Status.Description,
			Passed:         res.Status.Accepted(),
			Time:           string(res.Time),
			Memory:         string(res.Memory),
		}
	}
	logger.Info(ctx, "code executed",
		zap.String("user_id", userID),
		zap.String("problem_id", problem.ID),
		zap.String("language", string(lang)),
		zap.Int("cases", len(out)),
	)
	return out, nil
}

// Submit judges code against every test case of the problem and records the
// outcome. The submission, the solved marker and the per-case results are
// written in one transaction.
func (s *SubmissionService) Submit(ctx context.Context, userID string, req CodeRequest) (*model.SubmitResult, error) {
	lang, err := req.resolve()
	if err != nil {
		return nil, err
	}

	problem, err := s.problemRepo.FindProblemByID(ctx, req.ProblemID)
	if err != nil {
		return nil, err
	}
	testCases := problem.TestCases
	if len(testCases) == 0 {
		return nil, common.NewError(common.ErrBadRequest, "Problem has no test cases")
	}

	results, err := s.runner.RunBatch(ctx, batchItems(lang, req.Code, testCases))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || len(results) != len(testCases) {
		return nil, common.NewError(common.ErrServiceUnavailable, "Failed to get submission results from Judge0")
	}

	submission, caseResults, counts := grade(userID, problem.ID, lang, req.Code, testCases, results)

	err = s.txRunner.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.submissionRepo.CreateSubmission(ctx, tx, submission); err != nil {
			return err
		}
		if submission.Status == model.StatusAccepted {
			if err := s.submissionRepo.MarkProblemSolved(ctx, tx, userID, problem.ID); err != nil {
				return err
			}
		}
		for i := range caseResults {
			caseResults[i].SubmissionID = submission.ID
		}
		return s.submissionRepo.CreateTestCaseResults(ctx, tx, caseResults)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	logger.Info(ctx, "submission judged",
		zap.String("submission_id", submission.ID),
		zap.String("problem_id", problem.ID),
		zap.String("status", string(submission.Status)),
		zap.Int("passed", counts.Passed),
		zap.Int("failed", counts.Failed),
	)

	public := make([]model.TestCaseResult, 0, len(caseResults))
	for _, r := range caseResults {
		if r.Type == model.TestCasePublic {
			public = append(public, r)
		}
	}
	return &model.SubmitResult{Submission: submission, TestCaseResults: public, Results: counts}, nil
}

// GetSubmission returns one of the caller's submissions with all its results.
func (s *SubmissionService) GetSubmission(ctx context.Context, userID, submissionID string) (*model.Submission, error) {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, common.NewError(common.ErrNotFound, "Submission not found")
	}
	sub.TestCaseResults, err = s.submissionRepo.GetTestCaseResults(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubmissionService) ListByUser(ctx context.Context, userID string) ([]model.Submission, error) {
	subs, err := s.submissionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	return subs, nil
}

func (s *SubmissionService) ListForProblem(ctx context.Context, userID, problemID string) ([]model.Submission, error) {
	subs, err := s.submissionRepo.ListByUserAndProblem(ctx, userID, problemID)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	return subs, nil
}

func (s *SubmissionService) CountForProblem(ctx context.Context, problemID string) (int, error) {
	return s.submissionRepo.CountByProblem(ctx, problemID)
}

func batchItems(lang judge0.Language, code string, testCases []model.TestCase) []judge0.BatchItem {
	items := make([]judge0.BatchItem, len(testCases))
	for i, tc := range testCases {
		items[i] = judge0.BatchItem{
			LanguageID:     lang.ID(),
			SourceCode:     code,
			Stdin:          tc.Input,
			ExpectedOutput: tc.Output,
		}
	}
	return items
}

// grade builds the submission record and its per-case rows. results must be
// index-aligned with testCases.
func grade(userID, problemID string, lang judge0.Language, code string, testCases []model.TestCase, results []judge0.Result) (*model.Submission, []model.TestCaseResult, model.PassFailCount) {
	var (
		counts    model.PassFailCount
		totalSecs float64
		totalMem  int
	)
	sub := &model.Submission{
		ID:            uuid.NewString(),
		UserID:        userID,
		ProblemID:     problemID,
		SourceCode:    model.SourceCode{Language: lang.DisplayName(), Code: code},
		Language:      lang.DisplayName(),
		Stdin:         make([]string, len(testCases)),
		Stdout:        make([]*string, len(results)),
		Stderr:        make([]*string, len(results)),
		CompileOutput: make([]*string, len(results)),
	}
	caseResults := make([]model.TestCaseResult, len(results))

	for i, res := range results {
		tc := testCases[i]
		sub.Stdin[i] = tc.Input
		if out := res.TrimmedStdout(); out != "" {
			sub.Stdout[i] = &out
		}
		sub.Stderr[i] = res.Stderr
		sub.CompileOutput[i] = res.CompileOutput

		if res.Status.Accepted() {
			counts.Passed++
		} else {
			counts.Failed++
		}
		totalSecs += res.Seconds()
		totalMem += res.MemoryKB()

		caseType := tc.Type
		if caseType == "" {
			caseType = model.TestCasePublic
		}
		caseResults[i] = model.TestCaseResult{
			ID:             uuid.NewString(),
			SubmissionID:   sub.ID,
			TestCaseIndex:  i + 1,
			Input:          tc.Input,
			ExpectedOutput: tc.Output,
			ActualOutput:   res.TrimmedStdout(),
			Status:         strings.ToLower(res.Status.Description),
			TimeMs:         res.TimeMs(),
			MemoryKb:       res.MemoryKB(),
			Type:           caseType,
		}
	}

	sub.Status = model.StatusWrongAnswer
	if counts.Failed == 0 {
		sub.Status = model.StatusAccepted
	}
	sub.TimeMs = int(math.Round(totalSecs * 1000))
	sub.MemoryKb = totalMem
	return sub, caseResults, counts
}
