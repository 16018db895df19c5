package model_test

import (
	"testing"

	"codearena/internal/domain/model"
)

func TestParseDifficulty(t *testing.T) {
	for in, want := range map[string]model.ProblemDifficulty{
		"easy":     model.DifficultyEasy,
		" Medium ": model.DifficultyMedium,
		"HARD":     model.DifficultyHard,
	} {
		got, ok := model.ParseDifficulty(in)
		if !ok || got != want {
			t.Fatalf("ParseDifficulty(%q) = %s, %v", in, got, ok)
		}
	}
	if _, ok := model.ParseDifficulty("insane"); ok {
		t.Fatalf("unknown difficulty accepted")
	}
}

func TestForViewer(t *testing.T) {
	p := &model.Problem{
		ID: "p-1",
		TestCases: []model.TestCase{
			{Input: "1", Output: "1"},
			{Input: "2", Output: "2", Type: model.TestCaseHidden},
			{Input: "3", Output: "3", Type: model.TestCasePublic},
		},
		ReferenceSolutions: map[string]string{"PYTHON": "print(1)"},
	}

	viewer := p.ForViewer(false)
	if viewer.ReferenceSolutions != nil {
		t.Fatalf("reference solutions must be stripped")
	}
	if len(viewer.TestCases) != 2 || viewer.TestCases[0].Input != "1" || viewer.TestCases[1].Input != "3" {
		t.Fatalf("public cases must keep their order: %+v", viewer.TestCases)
	}
	if len(p.TestCases) != 3 || p.ReferenceSolutions == nil {
		t.Fatalf("ForViewer must not modify the original")
	}
	if p.ForViewer(true) != p {
		t.Fatalf("admins get the problem unchanged")
	}
}
