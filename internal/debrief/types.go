// Package debrief scores a finished case and answers follow-up questions
// about it.
package debrief

// Debrief is the structured end-of-case feedback.
type Debrief struct {
	Summary             string           `json:"summary"`
	Strengths           []string         `json:"strengths"`
	AreasForImprovement []string         `json:"areas_for_improvement"`
	MissedItems         []string         `json:"missed_items"`
	TeachingPoints      []string         `json:"teaching_points"`
	FollowUpResources   []string         `json:"follow_up_resources"`
	WellChildScores     *WellChildScores `json:"well_child_scores,omitempty"`

	// Fallback is set when the model output could not be used and the
	// debrief was built from raw text or session data.
	Fallback bool `json:"-"`
}

// DomainScore is one well-child sub-score, 0 to 10.
type DomainScore struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// WellChildScores are the six fixed well-child domains.
type WellChildScores struct {
	GrowthInterpretation  DomainScore `json:"growth_interpretation"`
	MilestoneAssessment   DomainScore `json:"milestone_assessment"`
	ExamThoroughness      DomainScore `json:"exam_thoroughness"`
	AnticipatoryGuidance  DomainScore `json:"anticipatory_guidance"`
	ImmunizationKnowledge DomainScore `json:"immunization_knowledge"`
	CommunicationSkill    DomainScore `json:"communication_skill"`
}

// Domains returns the scores in fixed order with their JSON names.
func (w *WellChildScores) Domains() []NamedScore {
	return []NamedScore{
		{"growth_interpretation", w.GrowthInterpretation},
		{"milestone_assessment", w.MilestoneAssessment},
		{"exam_thoroughness", w.ExamThoroughness},
		{"anticipatory_guidance", w.AnticipatoryGuidance},
		{"immunization_knowledge", w.ImmunizationKnowledge},
		{"communication_skill", w.CommunicationSkill},
	}
}

// Total sums the six domain scores.
func (w *WellChildScores) Total() int {
	total := 0
	for _, d := range w.Domains() {
		total += d.Score.Score
	}
	return total
}

type NamedScore struct {
	Name  string
	Score DomainScore
}

func (w *WellChildScores) clamp() {
	for _, d := range []*DomainScore{
		&w.GrowthInterpretation, &w.MilestoneAssessment, &w.ExamThoroughness,
		&w.AnticipatoryGuidance, &w.ImmunizationKnowledge, &w.CommunicationSkill,
	} {
		d.Score = min(max(d.Score, 0), 10)
	}
}

// Exchange is one post-debrief question and its answer.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Answer is the reply to a post-debrief question.
type Answer struct {
	Answer                string   `json:"answer"`
	RelatedTeachingPoints []string `json:"related_teaching_points"`
}

// emptyFallback returns a debrief whose only content is summary.
func emptyFallback(summary string) *Debrief {
	return &Debrief{
		Summary:             summary,
		Strengths:           []string{},
		AreasForImprovement: []string{},
		MissedItems:         []string{},
		TeachingPoints:      []string{},
		FollowUpResources:   []string{},
		Fallback:            true,
	}
}

func (d *Debrief) fillEmpty() {
	for _, list := range []*[]string{&d.Strengths, &d.AreasForImprovement, &d.MissedItems, &d.TeachingPoints, &d.FollowUpResources} {
		if *list == nil {
			*list = []string{}
		}
	}
}
