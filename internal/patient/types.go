// Package patient generates the synthetic patients that case sessions are
// built around.
package patient

import (
	"fmt"

	"github.com/abhisek/casetutor/internal/framework"
)

type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

// Pronoun returns the subject pronoun used in prompts.
func (s Sex) Pronoun() string {
	if s == Female {
		return "she"
	}
	return "he"
}

// Vitals are the hidden measured vital signs.
type Vitals struct {
	TempF           float64 `json:"temp_f"`
	HeartRate       int     `json:"heart_rate"`
	RespiratoryRate int     `json:"respiratory_rate"`
	SpO2            int     `json:"spo2"`
}

// ExamFinding is what the learner finds when examining one body system.
type ExamFinding struct {
	System  string `json:"system"`
	Finding string `json:"finding"`
}

// SymptomCourse describes how the illness has evolved.
type SymptomCourse struct {
	DurationDays int    `json:"duration_days"`
	Severity     string `json:"severity"`
	Progression  string `json:"progression"`
}

// GrowthData holds percentiles for a well-child visit.
type GrowthData struct {
	WeightPercentile            int    `json:"weight_percentile"`
	LengthPercentile            int    `json:"length_percentile"`
	HeadCircumferencePercentile int    `json:"head_circumference_percentile"`
	WeightTrend                 string `json:"weight_trend"`
	PreviousWeightPercentile    int    `json:"previous_weight_percentile"`
}

// Milestones records which milestones the child has met per domain.
// Concerns lists any that are not yet met.
type Milestones struct {
	GrossMotor      []string `json:"gross_motor"`
	FineMotor       []string `json:"fine_motor"`
	Language        []string `json:"language"`
	SocialEmotional []string `json:"social_emotional"`
	Cognitive       []string `json:"cognitive"`
	Concerns        []string `json:"concerns"`
}

// Patient is the subject of one case session. Everything below the
// identity block is hidden ground truth the learner has to discover.
type Patient struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Age            int     `json:"age"`
	AgeUnit        string  `json:"age_unit"`
	AgeMonths      int     `json:"age_months"`
	Sex            Sex     `json:"sex"`
	WeightKg       float64 `json:"weight_kg"`
	ChiefComplaint string  `json:"chief_complaint,omitempty"`
	ParentName     string  `json:"parent_name"`
	ParentStyle    string  `json:"parent_style"`
	SocialContext  string  `json:"social_context,omitempty"`

	ConditionKey     string         `json:"condition_key"`
	ConditionDisplay string         `json:"condition_display"`
	Symptoms         []string       `json:"symptoms"`
	SymptomDetails   *SymptomCourse `json:"symptom_details,omitempty"`
	RelevantHistory  []string       `json:"relevant_history,omitempty"`
	Vitals           Vitals         `json:"vitals"`
	ExamFindings     []ExamFinding  `json:"exam_findings"`
	Variant          Variant        `json:"variant"`

	VisitAgeMonths      *int                         `json:"visit_age_months,omitempty"`
	GrowthData          *GrowthData                  `json:"growth_data,omitempty"`
	Milestones          *Milestones                  `json:"milestones,omitempty"`
	ImmunizationHistory []string                     `json:"immunization_history,omitempty"`
	ParentConcerns      []string                     `json:"parent_concerns,omitempty"`
	IncidentalFinding   *framework.IncidentalFinding `json:"incidental_finding,omitempty"`
}

// IsWellChild reports whether the patient was generated for a routine visit.
func (p *Patient) IsWellChild() bool {
	return p.VisitAgeMonths != nil
}

// AgeDisplay renders the age with its unit, e.g. "18 months".
func (p *Patient) AgeDisplay() string {
	unit := p.AgeUnit
	if p.Age == 1 && len(unit) > 1 && unit[len(unit)-1] == 's' {
		unit = unit[:len(unit)-1]
	}
	return fmt.Sprintf("%d %s", p.Age, unit)
}

// ageUnits converts an age in months to the unit a clinician would say.
func ageUnits(months int) (int, string) {
	switch {
	case months < 1:
		return 1, "weeks"
	case months < 24:
		return months, "months"
	default:
		return months / 12, "years"
	}
}
