package intent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewDefault()
	require.NoError(t, err)
	return c
}

func TestDetectLearningModeExamples(t *testing.T) {
	c := newClassifier(t)
	cases := map[string]Mode{
		"fix this error in my code":                  ModeDebugCode,
		"design a system for 1M users":               ModeSystemDesign,
		"hello":                                      ModeDefault,
		"What is the time complexity of quicksort?":  ModeAnalyzeAlgorithm,
		"Can you write a tutorial on React hooks?":   ModeCreateTutorial,
		"Please review my pull request":              ModeCodeReview,
		"How do I negotiate salary for my first job": ModeCareerAdvice,
		"explain this code snippet":                  ModeAnalyseCode,
		"my app doesn't work after upgrading":        ModeDebugCode,
	}
	for q, want := range cases {
		assert.Equal(t, want, c.DetectLearningMode(q), q)
	}
}

func TestDetectLearningModePriority(t *testing.T) {
	c := newClassifier(t)
	// debugging wins over tutorial-seeking
	assert.Equal(t, ModeDebugCode, c.DetectLearningMode("fix the bug in this tutorial project"))
	// system design wins over career
	assert.Equal(t, ModeSystemDesign, c.DetectLearningMode("system design interview prep"))
}

func TestDetectLearningModeMatchesWholeWords(t *testing.T) {
	c := newClassifier(t)
	assert.Equal(t, ModeDefault, c.DetectLearningMode("what does the prefix mean"))
	assert.Equal(t, ModeDebugCode, c.DetectLearningMode("debugging goroutines"))
}

func TestDetectComplexity(t *testing.T) {
	c := newClassifier(t)
	assert.Equal(t, ComplexityComplex, c.DetectComplexity("how does concurrency work in go"))
	assert.Equal(t, ComplexitySimple, c.DetectComplexity("quick question about loops"))
	assert.Equal(t, ComplexityComplex, c.DetectComplexity("a basic intro to distributed consensus"))
	assert.Equal(t, ComplexitySimple, c.DetectComplexity("tell me about loops"))
	assert.Equal(t, ComplexityComplex, c.DetectComplexity(strings.Repeat("word ", 30)))
}

func TestShouldPerformSearch(t *testing.T) {
	c := newClassifier(t)
	assert.False(t, c.ShouldPerformSearch("fix this error", ModeDebugCode))
	assert.True(t, c.ShouldPerformSearch("fix this error before my interview", ModeDebugCode))
	assert.False(t, c.ShouldPerformSearch("binary search complexity", ModeAnalyzeAlgorithm))
	assert.True(t, c.ShouldPerformSearch("anything", ModeCareerAdvice))
	assert.True(t, c.ShouldPerformSearch("anything", ModeCreateTutorial))
	assert.True(t, c.ShouldPerformSearch("anything", ModeSystemDesign))
	assert.False(t, c.ShouldPerformSearch("hello", ModeDefault))
	assert.True(t, c.ShouldPerformSearch("is jquery still relevant", ModeDefault))
	assert.True(t, c.ShouldPerformSearch("which skills are employers asking for", ModeCodeReview))
}

func TestSkillUrgencyAndCareerHelpers(t *testing.T) {
	c := newClassifier(t)
	assert.Equal(t, SkillBeginner, c.DetectSkillLevel("I'm new to Go"))
	assert.Equal(t, SkillAdvanced, c.DetectSkillLevel("an advanced look at generics"))
	assert.Equal(t, SkillIntermediate, c.DetectSkillLevel("generics"))

	assert.Equal(t, UrgencyHigh, c.DetectUrgency("production is down, help ASAP"))
	assert.Equal(t, UrgencyNormal, c.DetectUrgency("whenever you have time"))

	assert.True(t, c.IsTacticalCareer("how to write a resume"))
	assert.False(t, c.IsTacticalCareer("should I move into management"))
	assert.True(t, c.HasSoftwareContext("react state"))
	assert.True(t, c.HasCareerTerm("job market"))
}

func TestParseTaxonomyValidation(t *testing.T) {
	_, err := ParseTaxonomy([]byte("modes:\n  - mode: juggling\n    terms: [balls]\n"))
	assert.Error(t, err)

	_, err = ParseTaxonomy([]byte("modes:\n  - mode: debug-code\n    terms: [a]\n  - mode: debug-code\n    terms: [b]\n"))
	assert.Error(t, err)

	_, err = ParseTaxonomy([]byte("modes: []\n"))
	assert.Error(t, err)
}

func TestTaxonomyFromEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
modes:
  - mode: career-advice
    terms: [hello]
search:
  always_modes: [career-advice]
`), 0o644))
	t.Setenv(taxonomyPathEnv, path)

	tax, err := TaxonomyFromEnv(logger.Nop())
	require.NoError(t, err)
	c := New(tax)
	assert.Equal(t, ModeCareerAdvice, c.DetectLearningMode("hello there"))
	assert.Equal(t, ComplexitySimple, c.DetectComplexity("short"))
	assert.True(t, c.ShouldPerformSearch("hello", ModeCareerAdvice))
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode(" Debug-Code ")
	assert.True(t, ok)
	assert.Equal(t, ModeDebugCode, m)
	_, ok = ParseMode("chit-chat")
	assert.False(t, ok)
}
