package model

import "time"

type Playlist struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	User        *UserSummary `json:"user,omitempty"`
	Problems    []Problem    `json:"problems,omitempty"`
}

// ProblemInPlaylist is the membership row; (PlaylistID, ProblemID) is unique.
type ProblemInPlaylist struct {
	ID         string    `json:"id"`
	PlaylistID string    `json:"playlistId"`
	ProblemID  string    `json:"problemId"`
	CreatedAt  time.Time `json:"createdAt"`
	Problem    *Problem  `json:"problem,omitempty"`
	Playlist   *Playlist `json:"playlist,omitempty"`
}
