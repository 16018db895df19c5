package judge0

import (
	"sort"
	"strings"
	"time"
)

// Language is the closed set of languages the platform accepts. Each value
// carries its Judge0 language id.
type Language string

const (
	LanguageCPP        Language = "CPP"
	LanguageJava       Language = "JAVA"
	LanguagePython     Language = "PYTHON"
	LanguageJavaScript Language = "JAVASCRIPT"
)

type languageInfo struct {
	id          int
	displayName string
}

var languages = map[Language]languageInfo{
	LanguageCPP:        {id: 54, displayName: "C++"},
	LanguageJava:       {id: 62, displayName: "Java"},
	LanguagePython:     {id: 71, displayName: "Python"},
	LanguageJavaScript: {id: 63, displayName: "JavaScript"},
}

var languagesByID = func() map[int]Language {
	m := make(map[int]Language, len(languages))
	for lang, info := range languages {
		m[info.id] = lang
	}
	return m
}()

// ParseLanguage resolves a name like "python" or "PYTHON".
func ParseLanguage(name string) (Language, bool) {
	lang := Language(strings.ToUpper(strings.TrimSpace(name)))
	_, ok := languages[lang]
	return lang, ok
}

// LanguageByID resolves a Judge0 language id.
func LanguageByID(id int) (Language, bool) {
	lang, ok := languagesByID[id]
	return lang, ok
}

// ID returns the Judge0 id, or 0 for an unknown language.
func (l Language) ID() int {
	return languages[l].id
}

func (l Language) DisplayName() string {
	if info, ok := languages[l]; ok {
		return info.displayName
	}
	return string(l)
}

// MaxValidationWait bounds the polling needed to validate one reference
// solution per supported language, each batch allowed pollTimeout.
func MaxValidationWait(pollTimeout time.Duration) time.Duration {
	return pollTimeout * time.Duration(len(languages))
}

// SupportedLanguages lists every language in a stable order.
func SupportedLanguages() []Language {
	out := make([]Language, 0, len(languages))
	for lang := range languages {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
