package patient

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/casetutor/internal/framework"
)

func (g *Generator) createWellChild(ctx context.Context, fw *framework.Framework, r *rand.Rand) *Patient {
	base := buildWellChild(fw, r)
	if g.provider == nil {
		return base
	}
	p, err := g.generateWellChild(ctx, fw, base)
	if err != nil {
		g.log.Warn("well-child generation fell back to tables",
			zap.String("visit", fw.Key), zap.Error(err))
		return base
	}
	return p
}

// rollIncidental returns the first possible finding whose roll succeeds,
// checked in listed order.
func rollIncidental(findings []framework.IncidentalFinding, r *rand.Rand) *framework.IncidentalFinding {
	for i := range findings {
		if r.Float64() < findings[i].Probability {
			f := findings[i]
			return &f
		}
	}
	return nil
}

// buildWellChild draws a healthy child for the visit. Every expected
// milestone is met unless the planted finding says otherwise.
func buildWellChild(fw *framework.Framework, r *rand.Rand) *Patient {
	visitAge := *fw.VisitAgeMonths
	age, unit := ageUnits(visitAge)
	if visitAge == 0 {
		age, unit = 3, "days"
	}

	sex := Female
	if r.IntN(2) == 0 {
		sex = Male
	}

	hr, rr := baselineVitals(visitAge)
	weightPct := 10 + r.IntN(81)

	milestones := &Milestones{
		GrossMotor:      fw.ExpectedMilestones["gross_motor"],
		FineMotor:       fw.ExpectedMilestones["fine_motor"],
		Language:        fw.ExpectedMilestones["language"],
		SocialEmotional: fw.ExpectedMilestones["social_emotional"],
		Cognitive:       fw.ExpectedMilestones["cognitive"],
		Concerns:        []string{},
	}

	findings := make([]ExamFinding, 0, len(fw.ExamFocus)+1)
	for _, focus := range fw.ExamFocus {
		findings = append(findings, ExamFinding{System: focus, Finding: "normal for age"})
	}

	var concerns []string
	if topics := fw.GuidanceTopics(); len(topics) > 0 {
		concerns = append(concerns, fmt.Sprintf("Has questions about %s", topics[r.IntN(len(topics))]))
	}

	p := &Patient{
		ID:               uuid.NewString(),
		Name:             pick(firstNames[sex], r) + " " + pick(lastNames, r),
		Age:              age,
		AgeUnit:          unit,
		AgeMonths:        visitAge,
		Sex:              sex,
		WeightKg:         expectedWeight(visitAge),
		ParentName:       pick(parentNames, r),
		ParentStyle:      pickStyle(fw, r),
		ConditionKey:     fw.Key,
		ConditionDisplay: fw.Name(),
		Symptoms:         []string{},
		Vitals: Vitals{
			TempF:           98.6,
			HeartRate:       hr,
			RespiratoryRate: rr,
			SpO2:            99,
		},
		ExamFindings:   findings,
		VisitAgeMonths: &visitAge,
		GrowthData: &GrowthData{
			WeightPercentile:            weightPct,
			LengthPercentile:            10 + r.IntN(81),
			HeadCircumferencePercentile: 10 + r.IntN(81),
			WeightTrend:                 "stable",
			PreviousWeightPercentile:    weightPct,
		},
		Milestones:          milestones,
		ImmunizationHistory: []string{"up to date for age"},
		ParentConcerns:      concerns,
	}

	if inc := rollIncidental(fw.PossibleFindings, r); inc != nil {
		p.IncidentalFinding = inc
		p.ExamFindings = append(p.ExamFindings, ExamFinding{System: "incidental", Finding: inc.Description})
	}
	return p
}
