package model

import "time"

type SubmissionStatus string

// Aggregate verdicts. Any non-accepted case, whatever its cause, makes the
// whole submission a wrong answer; per-case rows keep the provider detail.
const (
	StatusAccepted    SubmissionStatus = "Accepted"
	StatusWrongAnswer SubmissionStatus = "Wrong Answer"
)

type SourceCode struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Submission arrays (Stdin, Stdout, Stderr, CompileOutput) are index-aligned
// with the problem's test cases at submit time.
type Submission struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	ProblemID       string           `json:"problemId"`
	SourceCode      SourceCode       `json:"sourceCode"`
	Language        string           `json:"language"`
	Stdin           []string         `json:"stdin"`
	Stdout          []*string        `json:"stdout"`
	Stderr          []*string        `json:"stderr"`
	CompileOutput   []*string        `json:"compileOutput"`
	Status          SubmissionStatus `json:"status"`
	TimeMs          int              `json:"timeMs"`
	MemoryKb        int              `json:"memoryKb"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
	TestCaseResults []TestCaseResult `json:"testCaseResults,omitempty"`
}

type TestCaseResult struct {
	ID             string       `json:"id"`
	SubmissionID   string       `json:"submissionId"`
	TestCaseIndex  int          `json:"testCaseIndex"` // 1-based
	Input          string       `json:"input"`
	ExpectedOutput string       `json:"expectedOutput"`
	ActualOutput   string       `json:"actualOutput"`
	Status         string       `json:"status"`
	TimeMs         int          `json:"timeMs"`
	MemoryKb       int          `json:"memoryKb"`
	Type           TestCaseType `json:"type"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// PassFailCount is the "results" block of a graded submission response.
type PassFailCount struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// RunCodeResult is one row of an ungraded execution. Nothing is persisted.
type RunCodeResult struct {
	TestCase       int    `json:"testCase"`
	Input          string `json:"input"`
	Output         string `json:"output"`
	ExpectedOutput string `json:"expectedOutput"`
	Status         string `json:"status"`
	Passed         bool   `json:"passed"`
	Time           string `json:"time"`
	Memory         string `json:"memory"`
}
