// Package selector maps a detected learning mode to a model, a system prompt
// and a sampling temperature.
package selector

import (
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/intent"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/envutil"
)

type Tier string

const (
	TierHeavy Tier = "heavy"
	TierLight Tier = "light"
)

const (
	DefaultHeavyModel = "gpt-4o"
	DefaultLightModel = "gpt-4o-mini"

	// RAGTemperature is used for every answer grounded in retrieved context.
	RAGTemperature = 0.2
)

type Config struct {
	HeavyModel string
	LightModel string
}

func ConfigFromEnv() Config {
	return Config{
		HeavyModel: envutil.String("ASSISTANT_MODEL_HEAVY", DefaultHeavyModel),
		LightModel: envutil.String("ASSISTANT_MODEL_LIGHT", DefaultLightModel),
	}
}

// Terms exposes the raw-query checks the tier rules depend on.
type Terms interface {
	HasComplexityTerm(query string) bool
	HasSimplicityTerm(query string) bool
	IsTacticalCareer(query string) bool
}

type Selector struct {
	cfg   Config
	terms Terms
}

func New(cfg Config, terms Terms) *Selector {
	if cfg.HeavyModel == "" {
		cfg.HeavyModel = DefaultHeavyModel
	}
	if cfg.LightModel == "" {
		cfg.LightModel = DefaultLightModel
	}
	return &Selector{cfg: cfg, terms: terms}
}

var baseTiers = map[intent.Mode]Tier{
	intent.ModeSystemDesign:     TierHeavy,
	intent.ModeAnalyzeAlgorithm: TierHeavy,
	intent.ModeCreateTutorial:   TierHeavy,
}

// SelectTier applies the static table and then the escalation rules:
//   - debug-code and analyse-code escalate to heavy when the query is complex
//     and names a complexity term;
//   - create-tutorial and system-design drop to light when the query is simple
//     and names a simplicity term;
//   - career-advice stays light for tactical questions and goes heavy otherwise.
func (s *Selector) SelectTier(mode intent.Mode, query string, complexity intent.Complexity) Tier {
	if mode == intent.ModeCareerAdvice {
		if s.terms.IsTacticalCareer(query) {
			return TierLight
		}
		return TierHeavy
	}
	tier, ok := baseTiers[mode]
	if !ok {
		tier = TierLight
	}
	switch {
	case tier == TierLight && complexity == intent.ComplexityComplex &&
		(mode == intent.ModeDebugCode || mode == intent.ModeAnalyseCode) &&
		s.terms.HasComplexityTerm(query):
		return TierHeavy
	case tier == TierHeavy && complexity == intent.ComplexitySimple &&
		(mode == intent.ModeCreateTutorial || mode == intent.ModeSystemDesign) &&
		s.terms.HasSimplicityTerm(query):
		return TierLight
	}
	return tier
}

func (s *Selector) SelectOptimalModel(mode intent.Mode, query string, complexity intent.Complexity) string {
	return s.Model(s.SelectTier(mode, query, complexity))
}

func (s *Selector) Model(t Tier) string {
	if t == TierHeavy {
		return s.cfg.HeavyModel
	}
	return s.cfg.LightModel
}

// RAGModel is the model used for context-grounded answers.
func (s *Selector) RAGModel() string { return s.cfg.LightModel }

var temperatures = map[intent.Mode]float64{
	intent.ModeDebugCode:        0.2,
	intent.ModeAnalyzeAlgorithm: 0.2,
	intent.ModeCodeReview:       0.3,
	intent.ModeAnalyseCode:      0.3,
	intent.ModeSystemDesign:     0.4,
	intent.ModeCareerAdvice:     0.6,
	intent.ModeCreateTutorial:   0.7,
}

const defaultTemperature = 0.5

func (s *Selector) Temperature(mode intent.Mode) float64 {
	if t, ok := temperatures[mode]; ok {
		return t
	}
	return defaultTemperature
}
