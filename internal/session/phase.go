package session

import "fmt"

// VisitType selects the phase track and transition rules of a session.
type VisitType string

const (
	VisitSick      VisitType = "sick"
	VisitWellChild VisitType = "well_child"
)

// Phase is a stage of the encounter.
type Phase string

const (
	PhaseIntro    Phase = "intro"
	PhaseExam     Phase = "exam"
	PhaseDebrief  Phase = "debrief"
	PhaseComplete Phase = "complete"

	// Sick visit.
	PhaseHistory    Phase = "history"
	PhaseAssessment Phase = "assessment"
	PhasePlan       Phase = "plan"

	// Well-child visit.
	PhaseGrowthReview           Phase = "growth_review"
	PhaseDevelopmentalScreening Phase = "developmental_screening"
	PhaseAnticipatoryGuidance   Phase = "anticipatory_guidance"
	PhaseImmunizations          Phase = "immunizations"
	PhaseParentQuestions        Phase = "parent_questions"
)

var phaseOrder = map[VisitType][]Phase{
	VisitSick: {
		PhaseIntro, PhaseHistory, PhaseExam, PhaseAssessment, PhasePlan,
		PhaseDebrief, PhaseComplete,
	},
	VisitWellChild: {
		PhaseIntro, PhaseGrowthReview, PhaseDevelopmentalScreening, PhaseExam,
		PhaseAnticipatoryGuidance, PhaseImmunizations, PhaseParentQuestions,
		PhaseDebrief, PhaseComplete,
	},
}

// Validate rejects unknown visit types.
func (v VisitType) Validate() error {
	if _, ok := phaseOrder[v]; !ok {
		return fmt.Errorf("unknown visit type %q", v)
	}
	return nil
}

// Phases returns the track for v in order.
func (v VisitType) Phases() []Phase {
	return phaseOrder[v]
}

// Terminal is the phase a session is frozen in after debrief.
func (v VisitType) Terminal() Phase {
	return PhaseComplete
}

// Rank returns the position of p on the track, or -1 if p is not on it.
func (v VisitType) Rank(p Phase) int {
	for i, q := range phaseOrder[v] {
		if q == p {
			return i
		}
	}
	return -1
}

// Has reports whether p belongs to the track.
func (v VisitType) Has(p Phase) bool {
	return v.Rank(p) >= 0
}

// Label renders the phase for display, e.g. "Growth review".
func (p Phase) Label() string {
	s := []byte(p)
	for i, c := range s {
		if c == '_' {
			s[i] = ' '
		}
	}
	if len(s) > 0 && s[0] >= 'a' && s[0] <= 'z' {
		s[0] -= 'a' - 'A'
	}
	return string(s)
}
