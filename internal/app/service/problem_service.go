package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/database"
	"codearena/internal/platform/judge0"
	"codearena/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	runner      CodeRunner
	txRunner    database.TxRunner
}

func NewProblemService(problemRepo repository.ProblemRepository, runner CodeRunner, txRunner database.TxRunner) *ProblemService {
	return &ProblemService{problemRepo: problemRepo, runner: runner, txRunner: txRunner}
}

type CreateProblemRequest struct {
	Title              string            `json:"title" validate:"required,min=3,max=200"`
	Description        string            `json:"description" validate:"required"`
	Difficulty         string            `json:"difficulty" validate:"required"`
	Tags               []string          `json:"tags"`
	Examples           json.RawMessage   `json:"examples"`
	Constraints        string            `json:"constraints"`
	Hints              *string           `json:"hints"`
	Editorial          *string           `json:"editorial"`
	TestCases          []model.TestCase  `json:"testCases" validate:"required,min=1,dive"`
	CodeSnippets       map[string]string `json:"codeSnippets"`
	ReferenceSolutions map[string]string `json:"referenceSolutions" validate:"required,min=1"`
}

// UpdateProblemRequest replaces the problem's fields. Omitted test cases,
// code snippets or reference solutions keep their stored values.
type UpdateProblemRequest struct {
	Title              string            `json:"title" validate:"required,min=3,max=200"`
	Description        string            `json:"description" validate:"required"`
	Difficulty         string            `json:"difficulty" validate:"required"`
	Tags               []string          `json:"tags"`
	Examples           json.RawMessage   `json:"examples"`
	Constraints        string            `json:"constraints"`
	Hints              *string           `json:"hints"`
	Editorial          *string           `json:"editorial"`
	TestCases          []model.TestCase  `json:"testCases" validate:"omitempty,dive"`
	CodeSnippets       map[string]string `json:"codeSnippets"`
	ReferenceSolutions map[string]string `json:"referenceSolutions"`
}

func parseDifficulty(s string) (model.ProblemDifficulty, error) {
	d, ok := model.ParseDifficulty(s)
	if !ok {
		return "", common.NewErrorf(common.ErrBadRequest, "Invalid difficulty: %s", s)
	}
	return d, nil
}

func (s *ProblemService) CreateProblem(ctx context.Context, userID string, req CreateProblemRequest) (*model.Problem, error) {
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	difficulty, err := parseDifficulty(req.Difficulty)
	if err != nil {
		return nil, err
	}

	exists, err := s.problemRepo.ExistsByTitle(ctx, req.Title)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.NewError(common.ErrConflict, "Problem with this title already exists")
	}

	if err := s.ValidateReferenceSolutions(ctx, req.ReferenceSolutions, req.TestCases); err != nil {
		return nil, err
	}

	problem := &model.Problem{
		ID:                 uuid.NewString(),
		Title:              req.Title,
		Slug:               slug.Make(req.Title),
		Description:        req.Description,
		Difficulty:         difficulty,
		Tags:               req.Tags,
		Examples:           req.Examples,
		Constraints:        req.Constraints,
		Hints:              req.Hints,
		Editorial:          req.Editorial,
		TestCases:          req.TestCases,
		CodeSnippets:       req.CodeSnippets,
		ReferenceSolutions: req.ReferenceSolutions,
		UserID:             userID,
	}

	err = s.txRunner.WithinTx(ctx, func(tx *sql.Tx) error {
		return s.problemRepo.CreateProblem(ctx, tx, problem)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "problem created", zap.String("problem_id", problem.ID), zap.String("slug", problem.Slug))
	return problem, nil
}

func (s *ProblemService) UpdateProblem(ctx context.Context, problemID string, req UpdateProblemRequest) (*model.Problem, error) {
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	difficulty, err := parseDifficulty(req.Difficulty)
	if err != nil {
		return nil, err
	}

	existing, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, err
	}

	testCases := req.TestCases
	if len(testCases) == 0 {
		testCases = existing.TestCases
	}
	solutions := req.ReferenceSolutions
	if len(solutions) == 0 {
		solutions = existing.ReferenceSolutions
	}
	snippets := req.CodeSnippets
	if snippets == nil {
		snippets = existing.CodeSnippets
	}

	if err := s.ValidateReferenceSolutions(ctx, solutions, testCases); err != nil {
		return nil, err
	}

	updated := *existing
	updated.Title = req.Title
	updated.Slug = slug.Make(req.Title)
	updated.Description = req.Description
	updated.Difficulty = difficulty
	updated.Tags = req.Tags
	updated.Examples = req.Examples
	updated.Constraints = req.Constraints
	updated.Hints = req.Hints
	updated.Editorial = req.Editorial
	updated.TestCases = testCases
	updated.CodeSnippets = snippets
	updated.ReferenceSolutions = solutions

	err = s.txRunner.WithinTx(ctx, func(tx *sql.Tx) error {
		return s.problemRepo.UpdateProblem(ctx, tx, &updated)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "problem updated", zap.String("problem_id", updated.ID))
	return &updated, nil
}

// ValidateReferenceSolutions runs every reference solution against all test
// cases and fails on the first case that is not accepted. Languages are
// checked in sorted order.
func (s *ProblemService) ValidateReferenceSolutions(ctx context.Context, solutions map[string]string, testCases []model.TestCase) error {
	if len(testCases) == 0 {
		return common.NewError(common.ErrBadRequest, "At least one test case is required")
	}

	names := make([]string, 0, len(solutions))
	for name := range solutions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		lang, ok := judge0.ParseLanguage(name)
		if !ok {
			return common.NewErrorf(common.ErrBadRequest, "Unsupported language: %s", name)
		}

		results, err := s.runner.RunBatch(ctx, batchItems(lang, solutions[name], testCases))
		if err != nil {
			return err
		}
		for i, res := range results {
			if !res.Status.Accepted() {
				logger.Warn(ctx, "reference solution rejected",
					zap.String("language", name),
					zap.Int("test_case", i+1),
					zap.String("status", res.Status.Description),
				)
				return common.NewErrorf(common.ErrBadRequest, "Testcase %d failed for language %s", i+1, name)
			}
		}
	}
	return nil
}

func (s *ProblemService) DeleteProblem(ctx context.Context, problemID string) error {
	if err := s.problemRepo.DeleteProblem(ctx, problemID); err != nil {
		return err
	}
	logger.Info(ctx, "problem deleted", zap.String("problem_id", problemID))
	return nil
}

func (s *ProblemService) GetProblem(ctx context.Context, problemID string, isAdmin bool) (*model.Problem, error) {
	p, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	return p.ForViewer(isAdmin), nil
}

func (s *ProblemService) ListProblems(ctx context.Context, isAdmin bool) ([]model.Problem, error) {
	problems, err := s.problemRepo.ListProblems(ctx)
	return forViewer(problems, err, isAdmin)
}

func (s *ProblemService) ListProblemsByTag(ctx context.Context, tag string, isAdmin bool) ([]model.Problem, error) {
	problems, err := s.problemRepo.ListProblemsByTag(ctx, tag)
	return forViewer(problems, err, isAdmin)
}

func (s *ProblemService) ListProblemsByDifficulty(ctx context.Context, level string, isAdmin bool) ([]model.Problem, error) {
	difficulty, err := parseDifficulty(level)
	if err != nil {
		return nil, err
	}
	problems, err := s.problemRepo.ListProblemsByDifficulty(ctx, difficulty)
	return forViewer(problems, err, isAdmin)
}

func (s *ProblemService) ListSolvedByUser(ctx context.Context, userID string) ([]model.Problem, error) {
	problems, err := s.problemRepo.ListSolvedByUser(ctx, userID)
	return forViewer(problems, err, false)
}

// forViewer turns an empty list into a not-found error and strips
// admin-only fields.
func forViewer(problems []model.Problem, err error, isAdmin bool) ([]model.Problem, error) {
	if err != nil {
		return nil, err
	}
	if len(problems) == 0 {
		return nil, common.NewError(common.ErrNotFound, "No problems found")
	}
	out := make([]model.Problem, len(problems))
	for i := range problems {
		out[i] = *problems[i].ForViewer(isAdmin)
	}
	return out, nil
}
