package judge0

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Judge0 status ids. Everything from StatusAccepted upwards is terminal.
const (
	StatusInQueue    = 1
	StatusProcessing = 2
	StatusAccepted   = 3
)

// BatchItem is one submission of a batch request.
type BatchItem struct {
	LanguageID     int    `json:"language_id"`
	SourceCode     string `json:"source_code"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
}

type Token struct {
	Token string `json:"token"`
}

type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

func (s Status) Terminal() bool {
	return s.ID >= StatusAccepted
}

func (s Status) Accepted() bool {
	return s.ID == StatusAccepted
}

// Result is the judged state of one submission. Time is reported in
// seconds as a decimal string and memory in kilobytes; both may be null.
type Result struct {
	Token         string      `json:"token"`
	Stdout        *string     `json:"stdout"`
	Stderr        *string     `json:"stderr"`
	CompileOutput *string     `json:"compile_output"`
	Status        Status      `json:"status"`
	Time          json.Number `json:"time"`
	Memory        json.Number `json:"memory"`
}

// Seconds parses Time, treating missing or malformed values as zero.
func (r Result) Seconds() float64 {
	f, err := strconv.ParseFloat(string(r.Time), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// TimeMs converts Time to whole milliseconds.
func (r Result) TimeMs() int {
	return int(math.Round(r.Seconds() * 1000))
}

// MemoryKB parses Memory as an integer; fractional values are truncated.
func (r Result) MemoryKB() int {
	s := string(r.Memory)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// TrimmedStdout is stdout without surrounding whitespace, "" when absent.
func (r Result) TrimmedStdout() string {
	if r.Stdout == nil {
		return ""
	}
	return strings.TrimSpace(*r.Stdout)
}

type batchRequest struct {
	Submissions []BatchItem `json:"submissions"`
}

type batchResponse struct {
	Submissions []Result `json:"submissions"`
}
