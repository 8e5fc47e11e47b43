package intent

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

const taxonomyPathEnv = "INTENT_TAXONOMY_PATH"

//go:embed taxonomy.yaml
var taxonomyFS embed.FS

type Taxonomy struct {
	Version    int             `yaml:"version"`
	Modes      []ModeRule      `yaml:"modes"`
	Complexity ComplexityTerms `yaml:"complexity"`
	Search     SearchTerms     `yaml:"search"`
	Career     CareerTerms     `yaml:"career"`
	Urgency    UrgencyTerms    `yaml:"urgency"`
	Skill      SkillLevelTerms `yaml:"skill"`
}

type ModeRule struct {
	Mode  Mode     `yaml:"mode"`
	Terms []string `yaml:"terms"`
}

type ComplexityTerms struct {
	LengthThreshold int      `yaml:"length_threshold"`
	Complex         []string `yaml:"complex"`
	Simple          []string `yaml:"simple"`
}

type SearchTerms struct {
	SuppressModes   []Mode   `yaml:"suppress_modes"`
	AlwaysModes     []Mode   `yaml:"always_modes"`
	Career          []string `yaml:"career"`
	Trend           []string `yaml:"trend"`
	SoftwareContext []string `yaml:"software_context"`
}

type CareerTerms struct {
	Tactical []string `yaml:"tactical"`
}

type UrgencyTerms struct {
	High []string `yaml:"high"`
}

type SkillLevelTerms struct {
	Beginner []string `yaml:"beginner"`
	Advanced []string `yaml:"advanced"`
}

// DefaultTaxonomy returns the built-in taxonomy.
func DefaultTaxonomy() (*Taxonomy, error) {
	raw, err := taxonomyFS.ReadFile("taxonomy.yaml")
	if err != nil {
		return nil, err
	}
	return ParseTaxonomy(raw)
}

func LoadTaxonomy(path string) (*Taxonomy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %s: %w", path, err)
	}
	return ParseTaxonomy(raw)
}

// TaxonomyFromEnv loads INTENT_TAXONOMY_PATH when set, else the built-in one.
func TaxonomyFromEnv(log *logger.Logger) (*Taxonomy, error) {
	if path := strings.TrimSpace(os.Getenv(taxonomyPathEnv)); path != "" {
		log.Info("Loading intent taxonomy", "path", path)
		return LoadTaxonomy(path)
	}
	return DefaultTaxonomy()
}

func ParseTaxonomy(raw []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Taxonomy) validate() error {
	if len(t.Modes) == 0 {
		return errors.New("taxonomy: no mode rules")
	}
	seen := map[Mode]bool{}
	for i, r := range t.Modes {
		if !r.Mode.Valid() || r.Mode == ModeDefault {
			return fmt.Errorf("taxonomy: rule %d: unknown mode %q", i, r.Mode)
		}
		if seen[r.Mode] {
			return fmt.Errorf("taxonomy: duplicate mode %q", r.Mode)
		}
		if len(r.Terms) == 0 {
			return fmt.Errorf("taxonomy: mode %q has no terms", r.Mode)
		}
		seen[r.Mode] = true
	}
	for _, m := range append(append([]Mode{}, t.Search.SuppressModes...), t.Search.AlwaysModes...) {
		if !m.Valid() {
			return fmt.Errorf("taxonomy: unknown search mode %q", m)
		}
	}
	if t.Complexity.LengthThreshold <= 0 {
		t.Complexity.LengthThreshold = 100
	}
	return nil
}
