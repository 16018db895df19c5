package service

import (
	"context"
	"strings"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/logger"

	"go.uber.org/zap"
)

type PlaylistService struct {
	playlistRepo repository.PlaylistRepository
	problemRepo  repository.ProblemRepository
}

func NewPlaylistService(playlistRepo repository.PlaylistRepository, problemRepo repository.ProblemRepository) *PlaylistService {
	return &PlaylistService{playlistRepo: playlistRepo, problemRepo: problemRepo}
}

type PlaylistRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type AddProblemRequest struct {
	ProblemID string `json:"problemId" validate:"required"`
}

func (s *PlaylistService) CreatePlaylist(ctx context.Context, userID string, req PlaylistRequest) (*model.Playlist, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	pl := &model.Playlist{UserID: userID, Name: req.Name, Description: req.Description}
	if err := s.playlistRepo.CreatePlaylist(ctx, pl); err != nil {
		return nil, err
	}
	logger.Info(ctx, "playlist created", zap.String("playlist_id", pl.ID))
	return pl, nil
}

// ListPlaylists returns every playlist; an empty result is not an error.
func (s *PlaylistService) ListPlaylists(ctx context.Context) ([]model.Playlist, error) {
	playlists, err := s.playlistRepo.ListPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	if playlists == nil {
		playlists = []model.Playlist{}
	}
	return playlists, nil
}

// GetPlaylist returns the playlist with its problems, hidden fields stripped.
func (s *PlaylistService) GetPlaylist(ctx context.Context, playlistID string) (*model.Playlist, error) {
	pl, err := s.playlistRepo.FindPlaylistByID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	problems, err := s.playlistRepo.ListProblems(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	pl.Problems = stripProblems(problems)
	return pl, nil
}

func (s *PlaylistService) UpdatePlaylist(ctx context.Context, playlistID string, req PlaylistRequest) (*model.Playlist, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	pl, err := s.playlistRepo.FindPlaylistByID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	pl.Name = req.Name
	pl.Description = req.Description
	if err := s.playlistRepo.UpdatePlaylist(ctx, pl); err != nil {
		return nil, err
	}
	return pl, nil
}

func (s *PlaylistService) DeletePlaylist(ctx context.Context, playlistID string) error {
	if err := s.playlistRepo.DeletePlaylist(ctx, playlistID); err != nil {
		return err
	}
	logger.Info(ctx, "playlist deleted", zap.String("playlist_id", playlistID))
	return nil
}

func (s *PlaylistService) AddProblem(ctx context.Context, playlistID string, req AddProblemRequest) (*model.ProblemInPlaylist, error) {
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.playlistRepo.FindPlaylistByID(ctx, playlistID); err != nil {
		return nil, err
	}
	if _, err := s.problemRepo.FindProblemByID(ctx, req.ProblemID); err != nil {
		return nil, err
	}
	return s.playlistRepo.AddProblem(ctx, playlistID, req.ProblemID)
}

func (s *PlaylistService) RemoveProblem(ctx context.Context, playlistID, problemID string) error {
	return s.playlistRepo.RemoveProblem(ctx, playlistID, problemID)
}

func (s *PlaylistService) ListProblems(ctx context.Context, playlistID string) ([]model.Problem, error) {
	problems, err := s.playlistRepo.ListProblems(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if len(problems) == 0 {
		return nil, common.NewError(common.ErrNotFound, "No problems found in this playlist")
	}
	return stripProblems(problems), nil
}

func (s *PlaylistService) ListByUser(ctx context.Context, userID string) ([]model.Playlist, error) {
	playlists, err := s.playlistRepo.ListPlaylistsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(playlists) == 0 {
		return nil, common.NewError(common.ErrNotFound, "No playlists found for this user")
	}
	return playlists, nil
}

func (s *PlaylistService) ListByProblem(ctx context.Context, problemID string) ([]model.Playlist, error) {
	playlists, err := s.playlistRepo.ListPlaylistsByProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if len(playlists) == 0 {
		return nil, common.NewError(common.ErrNotFound, "No playlists found for this problem")
	}
	return playlists, nil
}

func stripProblems(problems []model.Problem) []model.Problem {
	out := make([]model.Problem, len(problems))
	for i := range problems {
		out[i] = *problems[i].ForViewer(false)
	}
	return out
}
