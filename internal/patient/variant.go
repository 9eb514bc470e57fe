package patient

import (
	"fmt"

	"github.com/abhisek/casetutor/internal/framework"
)

type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

type AgeBracket string

const (
	BracketNeonate    AgeBracket = "neonate"
	BracketInfant     AgeBracket = "infant"
	BracketToddler    AgeBracket = "toddler"
	BracketChild      AgeBracket = "child"
	BracketAdolescent AgeBracket = "adolescent"
)

var bracketRanges = map[AgeBracket]framework.AgeRange{
	BracketNeonate:    {Min: 0, Max: 1},
	BracketInfant:     {Min: 1, Max: 12},
	BracketToddler:    {Min: 12, Max: 36},
	BracketChild:      {Min: 36, Max: 144},
	BracketAdolescent: {Min: 144, Max: 216},
}

// Range returns the bracket's age span in months.
func (b AgeBracket) Range() (framework.AgeRange, bool) {
	r, ok := bracketRanges[b]
	return r, ok
}

type Presentation string

const (
	PresentationTypical  Presentation = "typical"
	PresentationAtypical Presentation = "atypical"
	PresentationEarly    Presentation = "early"
	PresentationLate     Presentation = "late"
)

type Complexity string

const (
	ComplexityStraightforward Complexity = "straightforward"
	ComplexityNuanced         Complexity = "nuanced"
	ComplexityChallenging     Complexity = "challenging"
)

// Variant tunes how a case presents. A zero field leaves the choice to the
// generator.
type Variant struct {
	Severity     Severity     `json:"severity,omitempty"`
	AgeBracket   AgeBracket   `json:"age_bracket,omitempty"`
	Presentation Presentation `json:"presentation,omitempty"`
	Complexity   Complexity   `json:"complexity,omitempty"`
}

// Validate rejects values outside the closed enumerations.
func (v Variant) Validate() error {
	switch v.Severity {
	case "", SeverityMild, SeverityModerate, SeveritySevere:
	default:
		return fmt.Errorf("invalid severity %q", v.Severity)
	}
	if v.AgeBracket != "" {
		if _, ok := v.AgeBracket.Range(); !ok {
			return fmt.Errorf("invalid age bracket %q", v.AgeBracket)
		}
	}
	switch v.Presentation {
	case "", PresentationTypical, PresentationAtypical, PresentationEarly, PresentationLate:
	default:
		return fmt.Errorf("invalid presentation %q", v.Presentation)
	}
	switch v.Complexity {
	case "", ComplexityStraightforward, ComplexityNuanced, ComplexityChallenging:
	default:
		return fmt.Errorf("invalid complexity %q", v.Complexity)
	}
	return nil
}

// severityScale stretches a condition's deviation from baseline.
func (s Severity) scale() float64 {
	switch s {
	case SeverityMild:
		return 0.5
	case SeveritySevere:
		return 1.5
	default:
		return 1.0
	}
}

// probabilityFactor adjusts how likely each listed symptom or finding is.
func (v Variant) probabilityFactor() float64 {
	f := 1.0
	switch v.Severity {
	case SeverityMild:
		f *= 0.85
	case SeveritySevere:
		f *= 1.15
	}
	switch v.Presentation {
	case PresentationEarly:
		f *= 0.6
	case PresentationLate:
		f *= 1.2
	}
	return f
}
