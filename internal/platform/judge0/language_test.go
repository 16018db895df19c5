package judge0_test

import (
	"testing"
	"time"

	"codearena/internal/platform/judge0"
)

func TestLanguageIDs(t *testing.T) {
	cases := map[judge0.Language]int{
		judge0.LanguageCPP:        54,
		judge0.LanguageJava:       62,
		judge0.LanguagePython:     71,
		judge0.LanguageJavaScript: 63,
	}
	for lang, id := range cases {
		if lang.ID() != id {
			t.Fatalf("%s: expected id %d, got %d", lang, id, lang.ID())
		}
		back, ok := judge0.LanguageByID(id)
		if !ok || back != lang {
			t.Fatalf("LanguageByID(%d) = %s, %v", id, back, ok)
		}
	}
	if _, ok := judge0.LanguageByID(50); ok {
		t.Fatalf("expected id 50 to be unsupported")
	}
}

func TestParseLanguage(t *testing.T) {
	lang, ok := judge0.ParseLanguage(" python ")
	if !ok || lang != judge0.LanguagePython {
		t.Fatalf("unexpected parse: %s %v", lang, ok)
	}
	if _, ok := judge0.ParseLanguage("RUST"); ok {
		t.Fatalf("expected RUST to be rejected")
	}
	if judge0.Language("RUST").ID() != 0 {
		t.Fatalf("unknown language must map to id 0")
	}
	if judge0.LanguageCPP.DisplayName() != "C++" {
		t.Fatalf("unexpected display name %q", judge0.LanguageCPP.DisplayName())
	}
}

func TestSupportedLanguagesSorted(t *testing.T) {
	got := judge0.SupportedLanguages()
	want := []judge0.Language{"CPP", "JAVA", "JAVASCRIPT", "PYTHON"}
	if len(got) != len(want) {
		t.Fatalf("expected %d languages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestMaxValidationWaitCoversEveryLanguage(t *testing.T) {
	got := judge0.MaxValidationWait(90 * time.Second)
	want := 90 * time.Second * time.Duration(len(judge0.SupportedLanguages()))
	if got != want || got != 6*time.Minute {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
