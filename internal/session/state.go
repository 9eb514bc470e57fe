package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/casetutor/internal/patient"
)

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleLearner Role = "learner"
	RoleTutor   Role = "tutor"
)

// Turn is one entry of the conversation log.
type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Discovery accumulates what the learner has covered during a sick visit.
type Discovery struct {
	HistoryGathered []string `json:"history_gathered"`
	ExamsPerformed  []string `json:"exams_performed"`
	Differential    []string `json:"differential"`
	PlanProposed    []string `json:"plan_proposed"`
}

// WellChildProgress accumulates what the learner has covered during a
// well-child visit.
type WellChildProgress struct {
	GrowthReviewed         bool     `json:"growth_reviewed"`
	MilestonesAssessed     []string `json:"milestones_assessed"`
	GuidanceCovered        []string `json:"guidance_covered"`
	ImmunizationsAddressed bool     `json:"immunizations_addressed"`
	ScreeningToolsUsed     []string `json:"screening_tools_used"`
	ConcernsAddressed      []string `json:"concerns_addressed"`
}

// Session is the mutable state of one encounter. It is created with its
// patient and mutated only through the tutor and debrief engines; the
// caller must serialize access.
type Session struct {
	ID             string       `json:"id"`
	OwnerID        string       `json:"owner_id,omitempty"`
	VisitType      VisitType    `json:"visit_type"`
	Phase          Phase        `json:"phase"`
	LearnerLevel   LearnerLevel `json:"learner_level"`
	TimeConstraint *int         `json:"time_constraint,omitempty"`
	StartedAt      time.Time    `json:"started_at"`

	Patient *patient.Patient `json:"patient"`

	Discovery Discovery         `json:"discovery"`
	WellChild WellChildProgress `json:"well_child"`

	HintsGiven         int      `json:"hints_given"`
	TeachingMoments    []string `json:"teaching_moments"`
	Conversation       []Turn   `json:"conversation"`
	IncidentalRevealed bool     `json:"incidental_revealed"`
}

// New starts a session at intro for p. The visit type follows the patient.
func New(p *patient.Patient, spec StartSpec) *Session {
	visit := VisitSick
	if p.IsWellChild() {
		visit = VisitWellChild
	}
	return &Session{
		ID:              uuid.NewString(),
		OwnerID:         spec.OwnerID,
		VisitType:       visit,
		Phase:           PhaseIntro,
		LearnerLevel:    spec.LearnerLevel,
		TimeConstraint:  spec.TimeConstraint,
		StartedAt:       time.Now(),
		Patient:         p,
		TeachingMoments: []string{},
		Conversation:    []Turn{},
	}
}
