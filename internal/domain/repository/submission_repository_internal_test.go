package repository

import (
	"strconv"
	"strings"
	"testing"

	"codearena/internal/domain/model"
)

func TestBuildResultInsert(t *testing.T) {
	results := []model.TestCaseResult{
		{SubmissionID: "s-1", TestCaseIndex: 1, Status: "accepted", Type: model.TestCasePublic},
		{ID: "r-2", SubmissionID: "s-1", TestCaseIndex: 2, Status: "wrong answer", Type: model.TestCaseHidden},
	}
	query, args := buildResultInsert(results)

	if len(args) != 2*resultColumns {
		t.Fatalf("expected %d args, got %d", 2*resultColumns, len(args))
	}
	if !strings.HasSuffix(query, "($11, $12, $13, $14, $15, $16, $17, $18, $19, $20)") {
		t.Fatalf("unexpected placeholders: %s", query)
	}
	if results[0].ID == "" || args[0] != results[0].ID || args[resultColumns] != "r-2" {
		t.Fatalf("row ids not bound: %v", args)
	}
}

func TestResultInsertStaysUnderParameterLimit(t *testing.T) {
	if resultRowsPerInsert*resultColumns > 65535 {
		t.Fatalf("%d rows of %d columns exceed the bind parameter limit", resultRowsPerInsert, resultColumns)
	}

	rows := make([]model.TestCaseResult, resultRowsPerInsert)
	query, args := buildResultInsert(rows)
	if len(args) != resultRowsPerInsert*resultColumns {
		t.Fatalf("unexpected arg count %d", len(args))
	}
	last := resultRowsPerInsert * resultColumns
	if !strings.Contains(query, "$"+strconv.Itoa(last)+")") || strings.Contains(query, "$"+strconv.Itoa(last+1)) {
		t.Fatalf("placeholders must stop at $%d", last)
	}
}
