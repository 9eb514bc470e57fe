package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/casetutor/internal/framework"
	"github.com/abhisek/casetutor/internal/llm"
)

var errIncomplete = errors.New("generated patient is incomplete")

// sickOutput is the raw model response before it is merged into a Patient.
type sickOutput struct {
	Name            string         `json:"name"`
	Age             int            `json:"age"`
	AgeUnit         string         `json:"age_unit"`
	Sex             Sex            `json:"sex"`
	WeightKg        float64        `json:"weight_kg"`
	ChiefComplaint  string         `json:"chief_complaint"`
	ParentName      string         `json:"parent_name"`
	ParentStyle     string         `json:"parent_style"`
	Symptoms        []string       `json:"symptoms"`
	SymptomDetails  *SymptomCourse `json:"symptom_details"`
	Vitals          *Vitals        `json:"vitals"`
	ExamFindings    []ExamFinding  `json:"exam_findings"`
	RelevantHistory []string       `json:"relevant_history"`
	SocialContext   string         `json:"social_context"`
}

type wellChildOutput struct {
	Name                string        `json:"name"`
	Sex                 Sex           `json:"sex"`
	WeightKg            float64       `json:"weight_kg"`
	ParentName          string        `json:"parent_name"`
	ParentStyle         string        `json:"parent_style"`
	GrowthData          *GrowthData   `json:"growth_data"`
	Milestones          *Milestones   `json:"milestones"`
	ImmunizationHistory []string      `json:"immunization_history"`
	Vitals              *Vitals       `json:"vitals"`
	ExamFindings        []ExamFinding `json:"exam_findings"`
	ParentConcerns      []string      `json:"parent_concerns"`
	SocialContext       string        `json:"social_context"`
}

func (g *Generator) request(system, user string, schema *llm.Schema) llm.Request {
	return llm.Request{
		System:      system,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: user}},
		Schema:      schema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}
}

// generateSick asks the model for a sick-visit patient. Fields the model
// leaves out keep the values drawn for base.
func (g *Generator) generateSick(ctx context.Context, fw *framework.Framework, v Variant, base *Patient) (*Patient, error) {
	ctx = llm.WithPurpose(ctx, "patient-gen")

	req := g.request(sickSystemPrompt, sickUserMessage(fw, v, base), SickPatientSchema)
	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate patient: %w", err)
	}

	var out sickOutput
	if err := llm.DecodeJSON(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("parse patient: %w", err)
	}
	if strings.TrimSpace(out.Name) == "" || strings.TrimSpace(out.ChiefComplaint) == "" {
		return nil, errIncomplete
	}

	p := *base
	p.Name = out.Name
	p.ChiefComplaint = out.ChiefComplaint
	p.SymptomDetails = out.SymptomDetails
	p.RelevantHistory = out.RelevantHistory
	p.SocialContext = out.SocialContext
	if out.Sex == Male || out.Sex == Female {
		p.Sex = out.Sex
	}
	if out.Age > 0 && out.AgeUnit != "" {
		p.Age, p.AgeUnit = out.Age, out.AgeUnit
		p.AgeMonths = toMonths(out.Age, out.AgeUnit)
	}
	if out.WeightKg > 0 {
		p.WeightKg = out.WeightKg
	}
	if out.ParentName != "" {
		p.ParentName = out.ParentName
	}
	if out.ParentStyle != "" {
		p.ParentStyle = out.ParentStyle
	}
	if len(out.Symptoms) > 0 {
		p.Symptoms = out.Symptoms
	}
	if out.Vitals != nil {
		p.Vitals = *out.Vitals
	}
	if len(out.ExamFindings) > 0 {
		p.ExamFindings = out.ExamFindings
	}
	return &p, nil
}

func (g *Generator) generateWellChild(ctx context.Context, fw *framework.Framework, base *Patient) (*Patient, error) {
	ctx = llm.WithPurpose(ctx, "patient-gen")

	req := g.request(wellChildSystemPrompt, wellChildUserMessage(fw, base.IncidentalFinding), WellChildPatientSchema)
	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate well-child patient: %w", err)
	}

	var out wellChildOutput
	if err := llm.DecodeJSON(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("parse well-child patient: %w", err)
	}
	if strings.TrimSpace(out.Name) == "" || out.GrowthData == nil || out.Milestones == nil {
		return nil, errIncomplete
	}

	p := *base
	p.Name = out.Name
	p.GrowthData = out.GrowthData
	p.Milestones = out.Milestones
	p.SocialContext = out.SocialContext
	p.ParentConcerns = out.ParentConcerns
	if out.Sex == Male || out.Sex == Female {
		p.Sex = out.Sex
	}
	if out.WeightKg > 0 {
		p.WeightKg = out.WeightKg
	}
	if out.ParentName != "" {
		p.ParentName = out.ParentName
	}
	if out.ParentStyle != "" {
		p.ParentStyle = out.ParentStyle
	}
	if len(out.ImmunizationHistory) > 0 {
		p.ImmunizationHistory = out.ImmunizationHistory
	}
	if out.Vitals != nil {
		p.Vitals = *out.Vitals
	}
	if len(out.ExamFindings) > 0 {
		p.ExamFindings = out.ExamFindings
	}
	return &p, nil
}

func toMonths(age int, unit string) int {
	switch unit {
	case "days", "weeks":
		return 0
	case "years":
		return age * 12
	default:
		return age
	}
}
