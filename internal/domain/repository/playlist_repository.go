package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/google/uuid"
)

type PlaylistRepository interface {
	CreatePlaylist(ctx context.Context, playlist *model.Playlist) error
	UpdatePlaylist(ctx context.Context, playlist *model.Playlist) error
	DeletePlaylist(ctx context.Context, id string) error
	FindPlaylistByID(ctx context.Context, id string) (*model.Playlist, error)
	ListPlaylists(ctx context.Context) ([]model.Playlist, error)
	ListPlaylistsByUser(ctx context.Context, userID string) ([]model.Playlist, error)
	ListPlaylistsByProblem(ctx context.Context, problemID string) ([]model.Playlist, error)

	AddProblem(ctx context.Context, playlistID, problemID string) (*model.ProblemInPlaylist, error)
	RemoveProblem(ctx context.Context, playlistID, problemID string) error
	ListProblems(ctx context.Context, playlistID string) ([]model.Problem, error)
}

type pgPlaylistRepository struct {
	db *sql.DB
}

func NewPgPlaylistRepository(db *sql.DB) PlaylistRepository {
	return &pgPlaylistRepository{db: db}
}

const playlistColumns = `pl.id, pl.user_id, pl.name, pl.description, pl.created_at, pl.updated_at, u.name, u.image`

func (r *pgPlaylistRepository) CreatePlaylist(ctx context.Context, pl *model.Playlist) error {
	if pl.ID == "" {
		pl.ID = uuid.NewString()
	}
	query := `INSERT INTO playlists (id, user_id, name, description) VALUES ($1, $2, $3, $4)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, pl.ID, pl.UserID, pl.Name, pl.Description).Scan(&pl.CreatedAt, &pl.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return common.WrapError(common.ErrConflict, "Playlist with this name already exists", err)
		}
		return fmt.Errorf("pgPlaylistRepository.CreatePlaylist: %w", err)
	}
	return nil
}

func (r *pgPlaylistRepository) UpdatePlaylist(ctx context.Context, pl *model.Playlist) error {
	id, ok := parseID(pl.ID)
	if !ok {
		return common.NewError(common.ErrNotFound, "Playlist not found")
	}
	query := `UPDATE playlists SET name = $1, description = $2, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $3 RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, pl.Name, pl.Description, id).Scan(&pl.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.NewError(common.ErrNotFound, "Playlist not found")
		}
		if common.IsUniqueViolation(err) {
			return common.WrapError(common.ErrConflict, "Playlist with this name already exists", err)
		}
		return fmt.Errorf("pgPlaylistRepository.UpdatePlaylist: %w", err)
	}
	return nil
}

func (r *pgPlaylistRepository) DeletePlaylist(ctx context.Context, id string) error {
	id, ok := parseID(id)
	if !ok {
		return common.NewError(common.ErrNotFound, "Playlist not found")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgPlaylistRepository.DeletePlaylist: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("pgPlaylistRepository.DeletePlaylist: %w", err)
	} else if n == 0 {
		return common.NewError(common.ErrNotFound, "Playlist not found")
	}
	return nil
}

func (r *pgPlaylistRepository) FindPlaylistByID(ctx context.Context, id string) (*model.Playlist, error) {
	id, ok := parseID(id)
	if !ok {
		return nil, common.NewError(common.ErrNotFound, "Playlist not found")
	}
	query := `SELECT ` + playlistColumns + `
	          FROM playlists pl JOIN users u ON u.id = pl.user_id
	          WHERE pl.id = $1`
	pl, err := scanPlaylist(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.ErrNotFound, "Playlist not found")
		}
		return nil, fmt.Errorf("pgPlaylistRepository.FindPlaylistByID: %w", err)
	}
	return pl, nil
}

func (r *pgPlaylistRepository) ListPlaylists(ctx context.Context) ([]model.Playlist, error) {
	query := `SELECT ` + playlistColumns + `
	          FROM playlists pl JOIN users u ON u.id = pl.user_id
	          ORDER BY pl.created_at DESC`
	return r.list(ctx, "pgPlaylistRepository.ListPlaylists", query)
}

func (r *pgPlaylistRepository) ListPlaylistsByUser(ctx context.Context, userID string) ([]model.Playlist, error) {
	query := `SELECT ` + playlistColumns + `
	          FROM playlists pl JOIN users u ON u.id = pl.user_id
	          WHERE pl.user_id = $1
	          ORDER BY pl.created_at DESC`
	return r.list(ctx, "pgPlaylistRepository.ListPlaylistsByUser", query, userID)
}

func (r *pgPlaylistRepository) ListPlaylistsByProblem(ctx context.Context, problemID string) ([]model.Playlist, error) {
	problemID, ok := parseID(problemID)
	if !ok {
		return nil, nil
	}
	query := `SELECT ` + playlistColumns + `
	          FROM playlists pl
	          JOIN users u ON u.id = pl.user_id
	          JOIN problems_in_playlist pip ON pip.playlist_id = pl.id
	          WHERE pip.problem_id = $1
	          ORDER BY pl.created_at DESC`
	return r.list(ctx, "pgPlaylistRepository.ListPlaylistsByProblem", query, problemID)
}

func (r *pgPlaylistRepository) AddProblem(ctx context.Context, playlistID, problemID string) (*model.ProblemInPlaylist, error) {
	pip := &model.ProblemInPlaylist{ID: uuid.NewString(), PlaylistID: playlistID, ProblemID: problemID}
	query := `INSERT INTO problems_in_playlist (id, playlist_id, problem_id) VALUES ($1, $2, $3)
	          RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, pip.ID, playlistID, problemID).Scan(&pip.CreatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return nil, common.WrapError(common.ErrConflict, "Problem already exists in playlist", err)
		}
		return nil, fmt.Errorf("pgPlaylistRepository.AddProblem: %w", err)
	}
	return pip, nil
}

func (r *pgPlaylistRepository) RemoveProblem(ctx context.Context, playlistID, problemID string) error {
	playlistID, ok := parseID(playlistID)
	if !ok {
		return common.NewError(common.ErrNotFound, "Problem not found in playlist")
	}
	problemID, ok = parseID(problemID)
	if !ok {
		return common.NewError(common.ErrNotFound, "Problem not found in playlist")
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM problems_in_playlist WHERE playlist_id = $1 AND problem_id = $2`, playlistID, problemID)
	if err != nil {
		return fmt.Errorf("pgPlaylistRepository.RemoveProblem: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("pgPlaylistRepository.RemoveProblem: %w", err)
	} else if n == 0 {
		return common.NewError(common.ErrNotFound, "Problem not found in playlist")
	}
	return nil
}

func (r *pgPlaylistRepository) ListProblems(ctx context.Context, playlistID string) ([]model.Problem, error) {
	playlistID, ok := parseID(playlistID)
	if !ok {
		return nil, nil
	}
	query := `SELECT ` + problemColumns + `
	          FROM problems p JOIN problems_in_playlist pip ON pip.problem_id = p.id
	          WHERE pip.playlist_id = $1
	          ORDER BY pip.created_at`
	rows, err := r.db.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("pgPlaylistRepository.ListProblems: %w", err)
	}
	defer rows.Close()

	var problems []model.Problem
	for rows.Next() {
		p, err := scanProblem(rows, false)
		if err != nil {
			return nil, fmt.Errorf("pgPlaylistRepository.ListProblems: scan: %w", err)
		}
		problems = append(problems, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgPlaylistRepository.ListProblems: rows: %w", err)
	}
	return problems, nil
}

func (r *pgPlaylistRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]model.Playlist, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var playlists []model.Playlist
	for rows.Next() {
		pl, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		playlists = append(playlists, *pl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return playlists, nil
}

func scanPlaylist(s scanner) (*model.Playlist, error) {
	pl := &model.Playlist{User: &model.UserSummary{}}
	if err := s.Scan(&pl.ID, &pl.UserID, &pl.Name, &pl.Description, &pl.CreatedAt, &pl.UpdatedAt,
		&pl.User.Name, &pl.User.Image); err != nil {
		return nil, err
	}
	pl.User.ID = pl.UserID
	return pl, nil
}
