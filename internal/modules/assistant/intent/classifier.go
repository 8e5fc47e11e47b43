// Package intent classifies a query into a learning mode, a complexity
// level and a web search decision using an ordered keyword taxonomy.
package intent

import (
	"strings"
	"unicode"
)

type Mode string

const (
	ModeDebugCode        Mode = "debug-code"
	ModeSystemDesign     Mode = "system-design"
	ModeAnalyzeAlgorithm Mode = "analyze-algorithm"
	ModeCreateTutorial   Mode = "create-tutorial"
	ModeCodeReview       Mode = "code-review"
	ModeCareerAdvice     Mode = "career-advice"
	ModeAnalyseCode      Mode = "analyse-code"
	ModeDefault          Mode = "default"
)

var allModes = []Mode{
	ModeDebugCode, ModeSystemDesign, ModeAnalyzeAlgorithm, ModeCreateTutorial,
	ModeCodeReview, ModeCareerAdvice, ModeAnalyseCode, ModeDefault,
}

func (m Mode) Valid() bool {
	for _, v := range allModes {
		if m == v {
			return true
		}
	}
	return false
}

// ParseMode accepts a mode name case-insensitively.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	return m, m.Valid()
}

type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

func ParseSkillLevel(s string) (SkillLevel, bool) {
	switch l := SkillLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case SkillBeginner, SkillIntermediate, SkillAdvanced:
		return l, true
	}
	return "", false
}

type rule struct {
	mode  Mode
	match func(normalized string) bool
}

type Classifier struct {
	rules []rule

	complexTerms    termSet
	simpleTerms     termSet
	lengthThreshold int

	suppress map[Mode]bool
	always   map[Mode]bool
	career   termSet
	trend    termSet
	software termSet

	tactical termSet
	urgent   termSet
	beginner termSet
	advanced termSet
}

func New(t *Taxonomy) *Classifier {
	c := &Classifier{
		complexTerms:    compileTerms(t.Complexity.Complex),
		simpleTerms:     compileTerms(t.Complexity.Simple),
		lengthThreshold: t.Complexity.LengthThreshold,
		suppress:        modeSet(t.Search.SuppressModes),
		always:          modeSet(t.Search.AlwaysModes),
		career:          compileTerms(t.Search.Career),
		trend:           compileTerms(t.Search.Trend),
		software:        compileTerms(t.Search.SoftwareContext),
		tactical:        compileTerms(t.Career.Tactical),
		urgent:          compileTerms(t.Urgency.High),
		beginner:        compileTerms(t.Skill.Beginner),
		advanced:        compileTerms(t.Skill.Advanced),
	}
	if c.lengthThreshold <= 0 {
		c.lengthThreshold = 100
	}
	for _, r := range t.Modes {
		c.rules = append(c.rules, rule{mode: r.Mode, match: compileTerms(r.Terms).matches})
	}
	return c
}

// NewDefault builds a classifier over the built-in taxonomy.
func NewDefault() (*Classifier, error) {
	t, err := DefaultTaxonomy()
	if err != nil {
		return nil, err
	}
	return New(t), nil
}

// DetectLearningMode returns the mode of the first rule whose terms appear in
// the query, or ModeDefault.
func (c *Classifier) DetectLearningMode(query string) Mode {
	norm := normalize(query)
	for _, r := range c.rules {
		if r.match(norm) {
			return r.mode
		}
	}
	return ModeDefault
}

// DetectComplexity prefers explicit complexity terms, then simplicity terms,
// then falls back to query length.
func (c *Classifier) DetectComplexity(query string) Complexity {
	norm := normalize(query)
	switch {
	case c.complexTerms.matches(norm):
		return ComplexityComplex
	case c.simpleTerms.matches(norm):
		return ComplexitySimple
	case len([]rune(strings.TrimSpace(query))) > c.lengthThreshold:
		return ComplexityComplex
	default:
		return ComplexitySimple
	}
}

func (c *Classifier) ShouldPerformSearch(query string, mode Mode) bool {
	norm := normalize(query)
	hasCareer := c.career.matches(norm)
	switch {
	case c.suppress[mode]:
		return hasCareer
	case c.always[mode]:
		return true
	default:
		return hasCareer || c.trend.matches(norm)
	}
}

func (c *Classifier) HasComplexityTerm(query string) bool {
	return c.complexTerms.matches(normalize(query))
}

func (c *Classifier) HasSimplicityTerm(query string) bool {
	return c.simpleTerms.matches(normalize(query))
}

func (c *Classifier) HasCareerTerm(query string) bool {
	return c.career.matches(normalize(query))
}

func (c *Classifier) HasSoftwareContext(query string) bool {
	return c.software.matches(normalize(query))
}

// IsTacticalCareer reports concrete job-hunt questions (resume, salary,
// "how to") as opposed to broad career strategy.
func (c *Classifier) IsTacticalCareer(query string) bool {
	return c.tactical.matches(normalize(query))
}

func (c *Classifier) DetectUrgency(query string) Urgency {
	if c.urgent.matches(normalize(query)) {
		return UrgencyHigh
	}
	return UrgencyNormal
}

func (c *Classifier) DetectSkillLevel(query string) SkillLevel {
	norm := normalize(query)
	switch {
	case c.beginner.matches(norm):
		return SkillBeginner
	case c.advanced.matches(norm):
		return SkillAdvanced
	default:
		return SkillIntermediate
	}
}

func modeSet(modes []Mode) map[Mode]bool {
	out := make(map[Mode]bool, len(modes))
	for _, m := range modes {
		out[m] = true
	}
	return out
}

// termSet matches whole words or phrases against a normalized query. A term
// with a trailing '*' matches any word with that prefix.
type termSet []string

func compileTerms(terms []string) termSet {
	out := make(termSet, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		prefix := strings.HasSuffix(t, "*")
		words := tokens(t)
		if len(words) == 0 {
			continue
		}
		pat := " " + strings.Join(words, " ")
		if !prefix {
			pat += " "
		}
		out = append(out, pat)
	}
	return out
}

func (s termSet) matches(normalized string) bool {
	for _, pat := range s {
		if strings.Contains(normalized, pat) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return " " + strings.Join(tokens(s), " ") + " "
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
