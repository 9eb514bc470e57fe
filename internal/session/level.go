package session

import (
	"fmt"

	"github.com/abhisek/casetutor/internal/patient"
)

// LearnerLevel is the training level the case is pitched at.
type LearnerLevel string

const (
	LevelStudent   LearnerLevel = "student"
	LevelNPStudent LearnerLevel = "np_student"
	LevelResident  LearnerLevel = "resident"
	LevelFellow    LearnerLevel = "fellow"
	LevelAttending LearnerLevel = "attending"
)

// LearnerLevels lists every level from least to most experienced.
var LearnerLevels = []LearnerLevel{LevelStudent, LevelNPStudent, LevelResident, LevelFellow, LevelAttending}

func (l LearnerLevel) Validate() error {
	for _, v := range LearnerLevels {
		if l == v {
			return nil
		}
	}
	return fmt.Errorf("unknown learner level %q", l)
}

// DefaultComplexity is the case complexity used when a start request
// leaves it open.
func (l LearnerLevel) DefaultComplexity() patient.Complexity {
	switch l {
	case LevelResident:
		return patient.ComplexityNuanced
	case LevelFellow, LevelAttending:
		return patient.ComplexityChallenging
	default:
		return patient.ComplexityStraightforward
	}
}

// Guidance tells the persona how much scaffolding this learner needs.
func (l LearnerLevel) Guidance() string {
	switch l {
	case LevelResident:
		return "The learner is a resident. Expect a focused history and a reasoned differential; push on management details."
	case LevelFellow:
		return "The learner is a fellow. Expect expert reasoning; challenge edge cases and evidence."
	case LevelAttending:
		return "The learner is an attending. Treat them as a peer and focus on nuance and current evidence."
	case LevelNPStudent:
		return "The learner is a nurse practitioner student. Be supportive and emphasize systematic assessment."
	default:
		return "The learner is a medical student. Be encouraging and scaffold their reasoning step by step."
	}
}
