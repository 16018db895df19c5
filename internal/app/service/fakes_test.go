package service_test

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/platform/judge0"

	"github.com/google/uuid"
)

// fakeRunner answers every batch with verdict(i, item). It records each
// batch it receives.
type fakeRunner struct {
	mu      sync.Mutex
	batches [][]judge0.BatchItem
	verdict func(i int, item judge0.BatchItem) judge0.Result
	err     error
}

func (f *fakeRunner) RunBatch(_ context.Context, items []judge0.BatchItem) ([]judge0.Result, error) {
	f.mu.Lock()
	f.batches = append(f.batches, items)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]judge0.Result, len(items))
	for i, item := range items {
		if f.verdict != nil {
			out[i] = f.verdict(i, item)
		} else {
			out[i] = echo(item)
		}
	}
	return out, nil
}

func (f *fakeRunner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

// echo accepts the item by printing its expected output.
func echo(item judge0.BatchItem) judge0.Result {
	out := item.ExpectedOutput + "\n"
	return judge0.Result{
		Stdout: &out,
		Status: judge0.Status{ID: judge0.StatusAccepted, Description: "Accepted"},
		Time:   "0.010",
		Memory: "1000",
	}
}

func wrongAnswer() judge0.Result {
	out := "nope"
	return judge0.Result{
		Stdout: &out,
		Status: judge0.Status{ID: 4, Description: "Wrong Answer"},
		Time:   "0.020",
		Memory: "2000",
	}
}

type fakeTxRunner struct {
	calls int
}

func (f *fakeTxRunner) WithinTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	f.calls++
	return fn(nil)
}

type fakeProblemRepo struct {
	problems map[string]*model.Problem
	solved   map[string][]string
	created  []*model.Problem
	updated  []*model.Problem
}

func newFakeProblemRepo(problems ...*model.Problem) *fakeProblemRepo {
	r := &fakeProblemRepo{problems: map[string]*model.Problem{}, solved: map[string][]string{}}
	for _, p := range problems {
		r.problems[p.ID] = p
	}
	return r
}

func (r *fakeProblemRepo) CreateProblem(_ context.Context, _ *sql.Tx, p *model.Problem) error {
	r.created = append(r.created, p)
	r.problems[p.ID] = p
	return nil
}

func (r *fakeProblemRepo) UpdateProblem(_ context.Context, _ *sql.Tx, p *model.Problem) error {
	if _, ok := r.problems[p.ID]; !ok {
		return common.NewError(common.ErrNotFound, "Problem not found")
	}
	r.updated = append(r.updated, p)
	r.problems[p.ID] = p
	return nil
}

func (r *fakeProblemRepo) DeleteProblem(_ context.Context, id string) error {
	if _, ok := r.problems[id]; !ok {
		return common.NewError(common.ErrNotFound, "Problem not found")
	}
	delete(r.problems, id)
	return nil
}

func (r *fakeProblemRepo) FindProblemByID(_ context.Context, id string) (*model.Problem, error) {
	p, ok := r.problems[id]
	if !ok {
		return nil, common.NewError(common.ErrNotFound, "Problem not found")
	}
	clone := *p
	return &clone, nil
}

func (r *fakeProblemRepo) ExistsByTitle(_ context.Context, title string) (bool, error) {
	for _, p := range r.problems {
		if p.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeProblemRepo) sorted(keep func(*model.Problem) bool) []model.Problem {
	var out []model.Problem
	for _, p := range r.problems {
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeProblemRepo) ListProblems(context.Context) ([]model.Problem, error) {
	return r.sorted(func(*model.Problem) bool { return true }), nil
}

func (r *fakeProblemRepo) ListProblemsByTag(_ context.Context, tag string) ([]model.Problem, error) {
	return r.sorted(func(p *model.Problem) bool {
		for _, t := range p.Tags {
			if t == tag {
				return true
			}
		}
		return false
	}), nil
}

func (r *fakeProblemRepo) ListProblemsByDifficulty(_ context.Context, d model.ProblemDifficulty) ([]model.Problem, error) {
	return r.sorted(func(p *model.Problem) bool { return p.Difficulty == d }), nil
}

func (r *fakeProblemRepo) ListSolvedByUser(_ context.Context, userID string) ([]model.Problem, error) {
	ids := map[string]bool{}
	for _, id := range r.solved[userID] {
		ids[id] = true
	}
	return r.sorted(func(p *model.Problem) bool { return ids[p.ID] }), nil
}

type fakeSubmissionRepo struct {
	submissions map[string]*model.Submission
	results     map[string][]model.TestCaseResult
	solved      []string
	failOn      string
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{
		submissions: map[string]*model.Submission{},
		results:     map[string][]model.TestCaseResult{},
	}
}

func (r *fakeSubmissionRepo) CreateSubmission(_ context.Context, _ *sql.Tx, sub *model.Submission) error {
	if r.failOn == "submission" {
		return sql.ErrConnDone
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	r.submissions[sub.ID] = sub
	return nil
}

func (r *fakeSubmissionRepo) CreateTestCaseResults(_ context.Context, _ *sql.Tx, results []model.TestCaseResult) error {
	if r.failOn == "results" {
		return sql.ErrConnDone
	}
	for _, res := range results {
		r.results[res.SubmissionID] = append(r.results[res.SubmissionID], res)
	}
	return nil
}

func (r *fakeSubmissionRepo) MarkProblemSolved(_ context.Context, _ *sql.Tx, userID, problemID string) error {
	r.solved = append(r.solved, userID+"/"+problemID)
	return nil
}

func (r *fakeSubmissionRepo) GetSubmissionByID(_ context.Context, id string) (*model.Submission, error) {
	sub, ok := r.submissions[id]
	if !ok {
		return nil, common.NewError(common.ErrNotFound, "Submission not found")
	}
	clone := *sub
	return &clone, nil
}

func (r *fakeSubmissionRepo) GetTestCaseResults(_ context.Context, submissionID string) ([]model.TestCaseResult, error) {
	return r.results[submissionID], nil
}

func (r *fakeSubmissionRepo) ListByUser(_ context.Context, userID string) ([]model.Submission, error) {
	var out []model.Submission
	for _, sub := range r.submissions {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) ListByUserAndProblem(_ context.Context, userID, problemID string) ([]model.Submission, error) {
	var out []model.Submission
	for _, sub := range r.submissions {
		if sub.UserID == userID && sub.ProblemID == problemID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) CountByProblem(_ context.Context, problemID string) (int, error) {
	n := 0
	for _, sub := range r.submissions {
		if sub.ProblemID == problemID {
			n++
		}
	}
	return n, nil
}

type fakeUserRepo struct {
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return common.NewError(common.ErrConflict, "Email already exists, please login")
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

type fakePlaylistRepo struct {
	playlists map[string]*model.Playlist
	members   map[string][]string
	problems  *fakeProblemRepo
}

func newFakePlaylistRepo(problems *fakeProblemRepo) *fakePlaylistRepo {
	return &fakePlaylistRepo{
		playlists: map[string]*model.Playlist{},
		members:   map[string][]string{},
		problems:  problems,
	}
}

func (r *fakePlaylistRepo) CreatePlaylist(_ context.Context, pl *model.Playlist) error {
	for _, p := range r.playlists {
		if p.UserID == pl.UserID && p.Name == pl.Name {
			return common.NewError(common.ErrConflict, "Playlist with this name already exists")
		}
	}
	pl.ID = uuid.NewString()
	clone := *pl
	r.playlists[pl.ID] = &clone
	return nil
}

func (r *fakePlaylistRepo) UpdatePlaylist(_ context.Context, pl *model.Playlist) error {
	if _, ok := r.playlists[pl.ID]; !ok {
		return common.NewError(common.ErrNotFound, "Playlist not found")
	}
	clone := *pl
	r.playlists[pl.ID] = &clone
	return nil
}

func (r *fakePlaylistRepo) DeletePlaylist(_ context.Context, id string) error {
	if _, ok := r.playlists[id]; !ok {
		return common.NewError(common.ErrNotFound, "Playlist not found")
	}
	delete(r.playlists, id)
	delete(r.members, id)
	return nil
}

func (r *fakePlaylistRepo) FindPlaylistByID(_ context.Context, id string) (*model.Playlist, error) {
	pl, ok := r.playlists[id]
	if !ok {
		return nil, common.NewError(common.ErrNotFound, "Playlist not found")
	}
	clone := *pl
	return &clone, nil
}

func (r *fakePlaylistRepo) ListPlaylists(context.Context) ([]model.Playlist, error) {
	var out []model.Playlist
	for _, pl := range r.playlists {
		out = append(out, *pl)
	}
	return out, nil
}

func (r *fakePlaylistRepo) ListPlaylistsByUser(_ context.Context, userID string) ([]model.Playlist, error) {
	var out []model.Playlist
	for _, pl := range r.playlists {
		if pl.UserID == userID {
			out = append(out, *pl)
		}
	}
	return out, nil
}

func (r *fakePlaylistRepo) ListPlaylistsByProblem(_ context.Context, problemID string) ([]model.Playlist, error) {
	var out []model.Playlist
	for id, members := range r.members {
		for _, m := range members {
			if m == problemID {
				out = append(out, *r.playlists[id])
			}
		}
	}
	return out, nil
}

func (r *fakePlaylistRepo) AddProblem(_ context.Context, playlistID, problemID string) (*model.ProblemInPlaylist, error) {
	for _, m := range r.members[playlistID] {
		if m == problemID {
			return nil, common.NewError(common.ErrConflict, "Problem already exists in playlist")
		}
	}
	r.members[playlistID] = append(r.members[playlistID], problemID)
	return &model.ProblemInPlaylist{ID: uuid.NewString(), PlaylistID: playlistID, ProblemID: problemID}, nil
}

func (r *fakePlaylistRepo) RemoveProblem(_ context.Context, playlistID, problemID string) error {
	members := r.members[playlistID]
	for i, m := range members {
		if m == problemID {
			r.members[playlistID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return common.NewError(common.ErrNotFound, "Problem not found in playlist")
}

func (r *fakePlaylistRepo) ListProblems(_ context.Context, playlistID string) ([]model.Problem, error) {
	var out []model.Problem
	for _, id := range r.members[playlistID] {
		if p, ok := r.problems.problems[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

// twoSumProblem has two public cases and one hidden case.
func twoSumProblem() *model.Problem {
	return &model.Problem{
		ID:         "p-1",
		Title:      "Two Sum",
		Slug:       "two-sum",
		Difficulty: model.DifficultyEasy,
		Tags:       []string{"array"},
		UserID:     "admin-1",
		TestCases: []model.TestCase{
			{Input: "1 2", Output: "3", Type: model.TestCasePublic},
			{Input: "2 2", Output: "4"},
			{Input: "5 5", Output: "10", Type: model.TestCaseHidden},
		},
		ReferenceSolutions: map[string]string{"PYTHON": "print(sum(map(int, input().split())))"},
		CodeSnippets:       map[string]string{"PYTHON": "# write here"},
	}
}

func statusOf(err error) int {
	return common.HTTPStatusFromError(err)
}

func messageOf(err error) string {
	var appErr *common.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}
