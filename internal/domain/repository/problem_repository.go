package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"
)

type ProblemRepository interface {
	CreateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	UpdateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	DeleteProblem(ctx context.Context, id string) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	ExistsByTitle(ctx context.Context, title string) (bool, error)
	ListProblems(ctx context.Context) ([]model.Problem, error)
	ListProblemsByTag(ctx context.Context, tag string) ([]model.Problem, error)
	ListProblemsByDifficulty(ctx context.Context, difficulty model.ProblemDifficulty) ([]model.Problem, error)
	ListSolvedByUser(ctx context.Context, userID string) ([]model.Problem, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

const problemColumns = `p.id, p.title, p.slug, p.description, p.difficulty, p.tags, p.examples, p.constraints,
	p.hints, p.editorial, p.test_cases, p.code_snippets, p.reference_solutions, p.user_id, p.created_at, p.updated_at`

// problemJSON holds the encoded jsonb columns of a problem row.
type problemJSON struct {
	tags, examples, testCases, snippets, solutions []byte
}

func encodeProblem(p *model.Problem) (*problemJSON, error) {
	var (
		enc problemJSON
		err error
	)
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	if enc.tags, err = marshalJSON(tags); err != nil {
		return nil, err
	}
	enc.examples = p.Examples
	if len(enc.examples) == 0 {
		enc.examples = []byte("{}")
	}
	testCases := p.TestCases
	if testCases == nil {
		testCases = []model.TestCase{}
	}
	if enc.testCases, err = marshalJSON(testCases); err != nil {
		return nil, err
	}
	if enc.snippets, err = marshalJSON(nonNilMap(p.CodeSnippets)); err != nil {
		return nil, err
	}
	if enc.solutions, err = marshalJSON(nonNilMap(p.ReferenceSolutions)); err != nil {
		return nil, err
	}
	return &enc, nil
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func (r *pgProblemRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	enc, err := encodeProblem(p)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}

	query := `INSERT INTO problems (id, title, slug, description, difficulty, tags, examples, constraints,
	              hints, editorial, test_cases, code_snippets, reference_solutions, user_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	          RETURNING created_at, updated_at`
	err = conn(r.db, tx).QueryRowContext(ctx, query,
		p.ID, p.Title, p.Slug, p.Description, p.Difficulty, enc.tags, enc.examples, p.Constraints,
		p.Hints, p.Editorial, enc.testCases, enc.snippets, enc.solutions, p.UserID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return common.WrapError(common.ErrConflict, "Problem with this title already exists", err)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) UpdateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	enc, err := encodeProblem(p)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.UpdateProblem: %w", err)
	}

	id, ok := parseID(p.ID)
	if !ok {
		return common.NewError(common.ErrNotFound, "Problem not found")
	}

	query := `UPDATE problems SET
	              title = $1, slug = $2, description = $3, difficulty = $4, tags = $5, examples = $6,
	              constraints = $7, hints = $8, editorial = $9, test_cases = $10, code_snippets = $11,
	              reference_solutions = $12, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $13
	          RETURNING updated_at`
	err = conn(r.db, tx).QueryRowContext(ctx, query,
		p.Title, p.Slug, p.Description, p.Difficulty, enc.tags, enc.examples,
		p.Constraints, p.Hints, p.Editorial, enc.testCases, enc.snippets,
		enc.solutions, id,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.NewError(common.ErrNotFound, "Problem not found")
		}
		if common.IsUniqueViolation(err) {
			return common.WrapError(common.ErrConflict, "Problem with this title already exists", err)
		}
		return fmt.Errorf("pgProblemRepository.UpdateProblem: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) DeleteProblem(ctx context.Context, id string) error {
	id, ok := parseID(id)
	if !ok {
		return common.NewError(common.ErrNotFound, "Problem not found")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM problems WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.DeleteProblem: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgProblemRepository.DeleteProblem: %w", err)
	}
	if n == 0 {
		return common.NewError(common.ErrNotFound, "Problem not found")
	}
	return nil
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	id, ok := parseID(id)
	if !ok {
		return nil, common.NewError(common.ErrNotFound, "Problem not found")
	}
	query := `SELECT ` + problemColumns + `, u.name, u.image
	          FROM problems p JOIN users u ON u.id = p.user_id
	          WHERE p.id = $1`
	p, err := scanProblem(r.db.QueryRowContext(ctx, query, id), true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.ErrNotFound, "Problem not found")
		}
		return nil, fmt.Errorf("pgProblemRepository.FindProblemByID: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM problems WHERE title = $1)`, title).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pgProblemRepository.ExistsByTitle: %w", err)
	}
	return exists, nil
}

func (r *pgProblemRepository) ListProblems(ctx context.Context) ([]model.Problem, error) {
	query := `SELECT ` + problemColumns + `, u.name, u.image
	          FROM problems p JOIN users u ON u.id = p.user_id
	          ORDER BY p.created_at DESC`
	return r.list(ctx, "pgProblemRepository.ListProblems", query, true)
}

func (r *pgProblemRepository) ListProblemsByTag(ctx context.Context, tag string) ([]model.Problem, error) {
	query := `SELECT ` + problemColumns + `, u.name, u.image
	          FROM problems p JOIN users u ON u.id = p.user_id
	          WHERE p.tags ? $1
	          ORDER BY p.created_at DESC`
	return r.list(ctx, "pgProblemRepository.ListProblemsByTag", query, true, tag)
}

func (r *pgProblemRepository) ListProblemsByDifficulty(ctx context.Context, difficulty model.ProblemDifficulty) ([]model.Problem, error) {
	query := `SELECT ` + problemColumns + `, u.name, u.image
	          FROM problems p JOIN users u ON u.id = p.user_id
	          WHERE p.difficulty = $1
	          ORDER BY p.created_at DESC`
	return r.list(ctx, "pgProblemRepository.ListProblemsByDifficulty", query, true, difficulty)
}

func (r *pgProblemRepository) ListSolvedByUser(ctx context.Context, userID string) ([]model.Problem, error) {
	query := `SELECT ` + problemColumns + `
	          FROM problems p JOIN problems_solved ps ON ps.problem_id = p.id
	          WHERE ps.user_id = $1
	          ORDER BY ps.created_at DESC`
	return r.list(ctx, "pgProblemRepository.ListSolvedByUser", query, false, userID)
}

func (r *pgProblemRepository) list(ctx context.Context, op, query string, withAuthor bool, args ...interface{}) ([]model.Problem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var problems []model.Problem
	for rows.Next() {
		p, err := scanProblem(rows, withAuthor)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		problems = append(problems, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return problems, nil
}

func scanProblem(s scanner, withAuthor bool) (*model.Problem, error) {
	var (
		p   model.Problem
		enc problemJSON
	)
	dest := []interface{}{
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty, &enc.tags, &enc.examples, &p.Constraints,
		&p.Hints, &p.Editorial, &enc.testCases, &enc.snippets, &enc.solutions, &p.UserID, &p.CreatedAt, &p.UpdatedAt,
	}
	var authorName, authorImage string
	if withAuthor {
		dest = append(dest, &authorName, &authorImage)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(enc.tags, &p.Tags); err != nil {
		return nil, err
	}
	if len(enc.examples) > 0 {
		p.Examples = append(p.Examples[:0], enc.examples...)
	}
	if err := unmarshalJSON(enc.testCases, &p.TestCases); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(enc.snippets, &p.CodeSnippets); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(enc.solutions, &p.ReferenceSolutions); err != nil {
		return nil, err
	}
	if withAuthor {
		p.User = &model.UserSummary{ID: p.UserID, Name: authorName, Image: authorImage}
	}
	return &p, nil
}
