package model

import (
	"encoding/json"
	"strings"
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy   ProblemDifficulty = "EASY"
	DifficultyMedium ProblemDifficulty = "MEDIUM"
	DifficultyHard   ProblemDifficulty = "HARD"
)

// ParseDifficulty accepts any letter case.
func ParseDifficulty(s string) (ProblemDifficulty, bool) {
	d := ProblemDifficulty(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, true
	}
	return "", false
}

type TestCaseType string

const (
	TestCasePublic TestCaseType = "public"
	TestCaseHidden TestCaseType = "hidden"
)

// TestCase is stored inside its Problem; order is significant.
type TestCase struct {
	Input  string       `json:"input"`
	Output string       `json:"output"`
	Type   TestCaseType `json:"type,omitempty" validate:"omitempty,oneof=public hidden"`
}

// IsPublic treats an empty type as public.
func (tc TestCase) IsPublic() bool {
	return tc.Type == "" || tc.Type == TestCasePublic
}

type Problem struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Slug               string            `json:"slug"`
	Description        string            `json:"description"`
	Difficulty         ProblemDifficulty `json:"difficulty"`
	Tags               []string          `json:"tags"`
	Examples           json.RawMessage   `json:"examples,omitempty"`
	Constraints        string            `json:"constraints"`
	Hints              *string           `json:"hints,omitempty"`
	Editorial          *string           `json:"editorial,omitempty"`
	TestCases          []TestCase        `json:"testCases,omitempty"`
	CodeSnippets       map[string]string `json:"codeSnippets,omitempty"`
	ReferenceSolutions map[string]string `json:"referenceSolutions,omitempty"` // Admin only view
	UserID             string            `json:"userId"`
	User               *UserSummary      `json:"user,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// PublicTestCases keeps the original order of the public cases.
func (p *Problem) PublicTestCases() []TestCase {
	var out []TestCase
	for _, tc := range p.TestCases {
		if tc.IsPublic() {
			out = append(out, tc)
		}
	}
	return out
}

// ForViewer strips what only admins may see.
func (p *Problem) ForViewer(isAdmin bool) *Problem {
	if isAdmin {
		return p
	}
	clone := *p
	clone.ReferenceSolutions = nil
	clone.TestCases = p.PublicTestCases()
	return &clone
}

// ProblemSolved marks that a user solved a problem at least once.
type ProblemSolved struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProblemID string    `json:"problemId"`
	CreatedAt time.Time `json:"createdAt"`
	Problem   *Problem  `json:"problem,omitempty"`
}
