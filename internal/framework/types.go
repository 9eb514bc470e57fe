package framework

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// PlaceholderURL marks an image reference that has no real asset yet.
const PlaceholderURL = "PLACEHOLDER"

// CategoryWellChild is the category shared by all well-child visit
// frameworks.
const CategoryWellChild = "well_child"

// Framework is the teaching content for one condition or one well-child
// visit age. It is immutable after Load.
type Framework struct {
	Key         string   `yaml:"-"`
	Topic       string   `yaml:"topic"`
	DisplayName string   `yaml:"display_name"`
	Category    string   `yaml:"category"`
	Aliases     []string `yaml:"aliases"`
	AgeRange    AgeRange `yaml:"age_range_months"`

	ParentStyles []ParentStyle `yaml:"parent_styles"`

	TeachingGoals       []string `yaml:"teaching_goals"`
	CommonMistakes      []string `yaml:"common_mistakes"`
	RedFlags            []string `yaml:"red_flags"`
	ClinicalPearls      []string `yaml:"clinical_pearls"`
	KeyHistoryQuestions []string `yaml:"key_history_questions"`
	KeyExamFindings     []string `yaml:"key_exam_findings"`
	TreatmentPrinciples []string `yaml:"treatment_principles"`
	DispositionGuidance []string `yaml:"disposition_guidance"`

	Images      []Image    `yaml:"images"`
	ReadingList []Resource `yaml:"reading_list"`

	// Sick-visit generation tables.
	Demographics Demographics `yaml:"demographics"`
	Presentation Presentation `yaml:"presentation"`
	VitalsImpact VitalsImpact `yaml:"vitals_impact"`

	// Well-child content. VisitAgeMonths is nil for sick-visit frameworks.
	VisitAgeMonths       *int                `yaml:"visit_age_months"`
	ExpectedMilestones   map[string][]string `yaml:"expected_milestones"`
	ImmunizationsDue     []string            `yaml:"immunizations_due"`
	AnticipatoryGuidance map[string][]string `yaml:"anticipatory_guidance"`
	ScreeningTools       []string            `yaml:"screening_tools"`
	ExamFocus            []string            `yaml:"exam_focus"`
	PossibleFindings     []IncidentalFinding `yaml:"possible_findings"`
}

// IsWellChild reports whether the framework describes a routine visit.
func (f *Framework) IsWellChild() bool {
	return f.VisitAgeMonths != nil || f.Category == CategoryWellChild
}

// Name returns the display name, falling back to the topic.
func (f *Framework) Name() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return f.Topic
}

// StyleKeys returns the parent persona style keys in file order.
func (f *Framework) StyleKeys() []string {
	keys := make([]string, len(f.ParentStyles))
	for i, s := range f.ParentStyles {
		keys[i] = s.Key
	}
	return keys
}

// MilestoneDomains returns the milestone domain names sorted.
func (f *Framework) MilestoneDomains() []string {
	return sortedKeys(f.ExpectedMilestones)
}

// GuidanceTopics returns the anticipatory guidance group names sorted.
func (f *Framework) GuidanceTopics() []string {
	return sortedKeys(f.AnticipatoryGuidance)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AgeRange is a closed interval in months, written in YAML as [min, max].
type AgeRange struct {
	Min int
	Max int
}

// DefaultAgeRange covers the whole pediatric span, birth to 18 years.
var DefaultAgeRange = AgeRange{Min: 0, Max: 216}

// Contains reports whether months lies inside the interval.
func (r AgeRange) Contains(months int) bool {
	return months >= r.Min && months <= r.Max
}

// Intersect returns the overlap of r and o and whether one exists.
func (r AgeRange) Intersect(o AgeRange) (AgeRange, bool) {
	out := AgeRange{Min: max(r.Min, o.Min), Max: min(r.Max, o.Max)}
	return out, out.Min <= out.Max
}

func (r AgeRange) String() string {
	return fmt.Sprintf("%d-%d months", r.Min, r.Max)
}

func (r *AgeRange) UnmarshalYAML(node *yaml.Node) error {
	var pair []int
	if err := node.Decode(&pair); err != nil {
		return fmt.Errorf("age range: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("age range: want [min, max], got %d values", len(pair))
	}
	if pair[0] > pair[1] {
		return fmt.Errorf("age range: min %d greater than max %d", pair[0], pair[1])
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

// ParentStyle is one persona the simulated parent can take. In YAML it is
// either a bare string or a {key, description} mapping.
type ParentStyle struct {
	Key         string `yaml:"key"`
	Description string `yaml:"description"`
}

func (p *ParentStyle) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		p.Key = node.Value
		return nil
	}
	type plain ParentStyle
	return node.Decode((*plain)(p))
}

// Image is a teaching image revealed during a given phase.
type Image struct {
	Phase   string `yaml:"phase"`
	URL     string `yaml:"url"`
	Caption string `yaml:"caption"`
}

// Resource is a reading-list entry.
type Resource struct {
	Title  string `yaml:"title" json:"title"`
	Source string `yaml:"source" json:"source"`
	URL    string `yaml:"url" json:"url"`
}

type Demographics struct {
	AgeMonths  AgeSpread  `yaml:"age_months"`
	GenderBias GenderBias `yaml:"gender_bias"`
}

// AgeSpread is the typical age distribution for a condition. Peak, when
// present, is the narrower [min, max] band most cases fall in.
type AgeSpread struct {
	Min  int   `yaml:"min"`
	Max  int   `yaml:"max"`
	Peak []int `yaml:"peak"`
}

// PeakRange returns the peak band, or [Min, Max] when none is given.
func (a AgeSpread) PeakRange() AgeRange {
	if len(a.Peak) == 2 && a.Peak[0] <= a.Peak[1] {
		return AgeRange{Min: a.Peak[0], Max: a.Peak[1]}
	}
	return AgeRange{Min: a.Min, Max: a.Max}
}

type GenderBias struct {
	Male *float64 `yaml:"male"`
}

// MaleProbability defaults to an even split.
func (g GenderBias) MaleProbability() float64 {
	if g.Male == nil {
		return 0.5
	}
	return *g.Male
}

type Presentation struct {
	ChiefComplaints []string       `yaml:"chief_complaints"`
	Symptoms        []SymptomEntry `yaml:"symptoms"`
	PhysicalExam    []ExamEntry    `yaml:"physical_exam"`
}

// SymptomEntry is a symptom with the probability it is present. A bare
// string in YAML means the symptom is always present.
type SymptomEntry struct {
	Name        string  `yaml:"name"`
	Probability float64 `yaml:"probability"`
}

func (s *SymptomEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Name = node.Value
		s.Probability = 1
		return nil
	}
	type plain SymptomEntry
	out := plain{Probability: 0.5}
	if err := node.Decode(&out); err != nil {
		return err
	}
	*s = SymptomEntry(out)
	return nil
}

// ExamEntry is an exam finding with the probability it is present.
type ExamEntry struct {
	System      string  `yaml:"system"`
	Finding     string  `yaml:"finding"`
	Probability float64 `yaml:"probability"`
}

func (e *ExamEntry) UnmarshalYAML(node *yaml.Node) error {
	type plain ExamEntry
	out := plain{System: "general", Probability: 0.8}
	if err := node.Decode(&out); err != nil {
		return err
	}
	*e = ExamEntry(out)
	return nil
}

// VitalsImpact shifts age-based baseline vitals for a condition.
type VitalsImpact struct {
	TempF        []float64 `yaml:"temp_f"`
	HRMultiplier float64   `yaml:"hr_multiplier"`
	RRMultiplier float64   `yaml:"rr_multiplier"`
	SpO2Min      int       `yaml:"spo2_min"`
}

// TempRange returns the temperature band in °F, afebrile by default.
func (v VitalsImpact) TempRange() (lo, hi float64) {
	if len(v.TempF) == 2 {
		return v.TempF[0], v.TempF[1]
	}
	return 98.6, 98.6
}

// IncidentalFinding is a well-child detail that may be planted in a case.
type IncidentalFinding struct {
	Key           string  `yaml:"key" json:"key"`
	Description   string  `yaml:"description" json:"description"`
	Probability   float64 `yaml:"probability" json:"probability"`
	TeachingPoint string  `yaml:"teaching_point" json:"teaching_point,omitempty"`
}

// ConditionSummary is the catalog view of a framework.
type ConditionSummary struct {
	Key      string   `json:"key"`
	Topic    string   `json:"topic"`
	Category string   `json:"category"`
	AgeRange AgeRange `json:"age_range"`
}

// VisitSummary is the catalog view of a well-child framework.
type VisitSummary struct {
	Key            string `json:"key"`
	Topic          string `json:"topic"`
	VisitAgeMonths int    `json:"visit_age_months"`
}

func (r AgeRange) MarshalJSON() ([]byte, error) {
	return fmt.Appendf(nil, "[%d,%d]", r.Min, r.Max), nil
}
