package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/google/uuid"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	CreateTestCaseResults(ctx context.Context, tx *sql.Tx, results []model.TestCaseResult) error
	MarkProblemSolved(ctx context.Context, tx *sql.Tx, userID, problemID string) error

	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	GetTestCaseResults(ctx context.Context, submissionID string) ([]model.TestCaseResult, error)
	ListByUser(ctx context.Context, userID string) ([]model.Submission, error)
	ListByUserAndProblem(ctx context.Context, userID, problemID string) ([]model.Submission, error)
	CountByProblem(ctx context.Context, problemID string) (int, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

const submissionColumns = `id, user_id, problem_id, source_code, language, stdin, stdout, stderr,
	compile_output, status, time_ms, memory_kb, created_at, updated_at`

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	cols := make([][]byte, 5)
	var err error
	for i, v := range []interface{}{sub.SourceCode, nonNilStrings(sub.Stdin), nonNilPtrs(sub.Stdout), nonNilPtrs(sub.Stderr), nonNilPtrs(sub.CompileOutput)} {
		if cols[i], err = marshalJSON(v); err != nil {
			return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
		}
	}

	query := `INSERT INTO submissions (id, user_id, problem_id, source_code, language, stdin, stdout, stderr,
	              compile_output, status, time_ms, memory_kb)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          RETURNING created_at, updated_at`
	err = conn(r.db, tx).QueryRowContext(ctx, query,
		sub.ID, sub.UserID, sub.ProblemID, cols[0], sub.Language, cols[1], cols[2], cols[3],
		cols[4], sub.Status, sub.TimeMs, sub.MemoryKb,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

const (
	resultColumns = 10
	// resultRowsPerInsert keeps each statement under the 65535 bind parameter limit.
	resultRowsPerInsert = 1000
)

// CreateTestCaseResults inserts the rows in multi-row statements of at most
// resultRowsPerInsert rows each.
func (r *pgSubmissionRepository) CreateTestCaseResults(ctx context.Context, tx *sql.Tx, results []model.TestCaseResult) error {
	for start := 0; start < len(results); start += resultRowsPerInsert {
		end := min(start+resultRowsPerInsert, len(results))
		query, args := buildResultInsert(results[start:end])
		if _, err := conn(r.db, tx).ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("pgSubmissionRepository.CreateTestCaseResults: rows %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

func buildResultInsert(results []model.TestCaseResult) (string, []interface{}) {
	var (
		sb   strings.Builder
		args = make([]interface{}, 0, len(results)*resultColumns)
	)
	sb.WriteString(`INSERT INTO test_case_results (id, submission_id, test_case_index, input, expected_output,
	    actual_output, status, time_ms, memory_kb, type) VALUES `)
	for i := range results {
		res := &results[i]
		if res.ID == "" {
			res.ID = uuid.NewString()
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * resultColumns
		sb.WriteString("(")
		for j := 1; j <= resultColumns; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")
		args = append(args, res.ID, res.SubmissionID, res.TestCaseIndex, res.Input, res.ExpectedOutput,
			res.ActualOutput, res.Status, res.TimeMs, res.MemoryKb, res.Type)
	}
	return sb.String(), args
}

// MarkProblemSolved is idempotent.
func (r *pgSubmissionRepository) MarkProblemSolved(ctx context.Context, tx *sql.Tx, userID, problemID string) error {
	query := `INSERT INTO problems_solved (id, user_id, problem_id) VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, problem_id) DO NOTHING`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, uuid.NewString(), userID, problemID); err != nil {
		return fmt.Errorf("pgSubmissionRepository.MarkProblemSolved: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	id, ok := parseID(id)
	if !ok {
		return nil, common.NewError(common.ErrNotFound, "Submission not found")
	}
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.ErrNotFound, "Submission not found")
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) GetTestCaseResults(ctx context.Context, submissionID string) ([]model.TestCaseResult, error) {
	query := `SELECT id, submission_id, test_case_index, input, expected_output, actual_output, status,
	              time_ms, memory_kb, type, created_at
	          FROM test_case_results WHERE submission_id = $1 ORDER BY test_case_index`
	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetTestCaseResults: %w", err)
	}
	defer rows.Close()

	var results []model.TestCaseResult
	for rows.Next() {
		var tcr model.TestCaseResult
		if err := rows.Scan(&tcr.ID, &tcr.SubmissionID, &tcr.TestCaseIndex, &tcr.Input, &tcr.ExpectedOutput,
			&tcr.ActualOutput, &tcr.Status, &tcr.TimeMs, &tcr.MemoryKb, &tcr.Type, &tcr.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GetTestCaseResults: scan: %w", err)
		}
		results = append(results, tcr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetTestCaseResults: rows: %w", err)
	}
	return results, nil
}

func (r *pgSubmissionRepository) ListByUser(ctx context.Context, userID string) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, "pgSubmissionRepository.ListByUser", query, userID)
}

func (r *pgSubmissionRepository) ListByUserAndProblem(ctx context.Context, userID, problemID string) ([]model.Submission, error) {
	problemID, ok := parseID(problemID)
	if !ok {
		return nil, nil
	}
	query := `SELECT ` + submissionColumns + ` FROM submissions
	          WHERE user_id = $1 AND problem_id = $2 ORDER BY created_at DESC`
	return r.list(ctx, "pgSubmissionRepository.ListByUserAndProblem", query, userID, problemID)
}

func (r *pgSubmissionRepository) CountByProblem(ctx context.Context, problemID string) (int, error) {
	problemID, ok := parseID(problemID)
	if !ok {
		return 0, nil
	}
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE problem_id = $1`, problemID).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgSubmissionRepository.CountByProblem: %w", err)
	}
	return n, nil
}

func (r *pgSubmissionRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]model.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return subs, nil
}

func scanSubmission(s scanner) (*model.Submission, error) {
	var sub model.Submission
	var source, stdin, stdout, stderr, compileOut []byte
	if err := s.Scan(&sub.ID, &sub.UserID, &sub.ProblemID, &source, &sub.Language, &stdin, &stdout, &stderr,
		&compileOut, &sub.Status, &sub.TimeMs, &sub.MemoryKb, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(source, &sub.SourceCode); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(stdin, &sub.Stdin); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(stdout, &sub.Stdout); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(stderr, &sub.Stderr); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(compileOut, &sub.CompileOutput); err != nil {
		return nil, err
	}
	return &sub, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilPtrs(s []*string) []*string {
	if s == nil {
		return []*string{}
	}
	return s
}
