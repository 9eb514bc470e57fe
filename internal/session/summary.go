package session

import "time"

// Summary is the one-line history view of a session.
type Summary struct {
	ID               string
	ConditionKey     string
	ConditionDisplay string
	VisitType        VisitType
	Phase            Phase
	Status           string
	LearnerLevel     LearnerLevel
	HintsGiven       int
	Turns            int
	StartedAt        time.Time
	Duration         time.Duration
}

// BuildSummary condenses s as of now.
func BuildSummary(s *Session, now time.Time) Summary {
	sum := Summary{
		ID:           s.ID,
		VisitType:    s.VisitType,
		Phase:        s.Phase,
		Status:       s.Status(),
		LearnerLevel: s.LearnerLevel,
		HintsGiven:   s.HintsGiven,
		Turns:        len(s.Conversation),
		StartedAt:    s.StartedAt,
		Duration:     s.Elapsed(now),
	}
	if s.Patient != nil {
		sum.ConditionKey = s.Patient.ConditionKey
		sum.ConditionDisplay = s.Patient.ConditionDisplay
	}
	return sum
}
