package selector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/intent"
)

func newSelector(t *testing.T) (*Selector, *intent.Classifier) {
	t.Helper()
	c, err := intent.NewDefault()
	require.NoError(t, err)
	return New(Config{HeavyModel: "heavy-model", LightModel: "light-model"}, c), c
}

func TestStaticTierTable(t *testing.T) {
	s, _ := newSelector(t)
	heavy := []intent.Mode{intent.ModeSystemDesign, intent.ModeAnalyzeAlgorithm, intent.ModeCreateTutorial}
	light := []intent.Mode{intent.ModeDebugCode, intent.ModeCodeReview, intent.ModeAnalyseCode, intent.ModeDefault}
	for _, m := range heavy {
		assert.Equal(t, "heavy-model", s.SelectOptimalModel(m, "question", intent.ComplexityComplex), m)
	}
	for _, m := range light {
		assert.Equal(t, "light-model", s.SelectOptimalModel(m, "question", intent.ComplexitySimple), m)
	}
}

func TestEscalationNeedsComplexityTerm(t *testing.T) {
	s, c := newSelector(t)
	q := "fix the race condition in my worker pool"
	require.Equal(t, intent.ComplexityComplex, c.DetectComplexity(q))
	assert.Equal(t, TierHeavy, s.SelectTier(intent.ModeDebugCode, q, intent.ComplexityComplex))

	long := "fix this " + strings.Repeat("thing ", 25)
	require.Equal(t, intent.ComplexityComplex, c.DetectComplexity(long))
	assert.Equal(t, TierLight, s.SelectTier(intent.ModeDebugCode, long, intent.ComplexityComplex),
		"length alone does not escalate")

	assert.Equal(t, TierLight, s.SelectTier(intent.ModeCodeReview, q, intent.ComplexityComplex),
		"code review is not escalated")
}

func TestDeEscalationNeedsSimplicityTerm(t *testing.T) {
	s, _ := newSelector(t)
	assert.Equal(t, TierLight, s.SelectTier(intent.ModeCreateTutorial, "a quick tutorial on loops", intent.ComplexitySimple))
	assert.Equal(t, TierHeavy, s.SelectTier(intent.ModeCreateTutorial, "tutorial on loops", intent.ComplexitySimple))
	assert.Equal(t, TierHeavy, s.SelectTier(intent.ModeAnalyzeAlgorithm, "a quick look at bfs", intent.ComplexitySimple))
}

func TestCareerSubRule(t *testing.T) {
	s, _ := newSelector(t)
	assert.Equal(t, "light-model", s.SelectOptimalModel(intent.ModeCareerAdvice, "how to improve my resume", intent.ComplexitySimple))
	assert.Equal(t, "heavy-model", s.SelectOptimalModel(intent.ModeCareerAdvice, "should I pivot my career toward ML", intent.ComplexitySimple))
}

func TestTemperatures(t *testing.T) {
	s, _ := newSelector(t)
	assert.Equal(t, 0.2, s.Temperature(intent.ModeDebugCode))
	assert.Equal(t, 0.2, s.Temperature(intent.ModeAnalyzeAlgorithm))
	assert.Equal(t, 0.7, s.Temperature(intent.ModeCreateTutorial))
	assert.Equal(t, defaultTemperature, s.Temperature(intent.ModeDefault))
	for _, m := range []intent.Mode{intent.ModeCodeReview, intent.ModeAnalyseCode} {
		assert.LessOrEqual(t, s.Temperature(m), 0.3)
	}
}

func TestPromptForLearningMode(t *testing.T) {
	s, _ := newSelector(t)
	p := s.PromptForLearningMode(intent.ModeDebugCode)
	assert.True(t, strings.HasPrefix(p, basePrompt))
	assert.Contains(t, p, "MODE: DEBUGGING")
	assert.True(t, strings.HasSuffix(p, responseRequirements))

	assert.Contains(t, s.PromptForLearningMode(intent.ModeDefault), "MODE: GENERAL")
}

func TestDirectives(t *testing.T) {
	assert.Empty(t, UrgencyDirective(intent.ModeDebugCode, intent.UrgencyNormal))
	assert.Contains(t, UrgencyDirective(intent.ModeDebugCode, intent.UrgencyHigh), "immediate steps")
	assert.Equal(t, defaultUrgentDirective, UrgencyDirective(intent.ModeCreateTutorial, intent.UrgencyHigh))

	assert.NotEqual(t, ComplexityDirective(intent.ComplexitySimple), ComplexityDirective(intent.ComplexityComplex))
}

func TestDefaultsFillMissingModels(t *testing.T) {
	s := New(Config{}, nil)
	assert.Equal(t, DefaultHeavyModel, s.Model(TierHeavy))
	assert.Equal(t, DefaultLightModel, s.RAGModel())
}
