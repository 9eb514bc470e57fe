package session

import (
	"errors"
	"fmt"
	"time"
)

// ErrPhaseRegression is returned when a transition would move a session
// backward or off its track.
var ErrPhaseRegression = errors.New("phase cannot move backward")

// Advance moves the session to phase to. Moving to the current phase is a
// no-op; moving backward fails and leaves the session unchanged.
func (s *Session) Advance(to Phase) error {
	from, next := s.VisitType.Rank(s.Phase), s.VisitType.Rank(to)
	if next < 0 {
		return fmt.Errorf("%w: %q is not a %s phase", ErrPhaseRegression, to, s.VisitType)
	}
	if next < from {
		return fmt.Errorf("%w: %s to %s", ErrPhaseRegression, s.Phase, to)
	}
	if s.Phase == PhaseGrowthReview && to == PhaseDevelopmentalScreening {
		s.WellChild.GrowthReviewed = true
	}
	s.Phase = to
	if s.Patient != nil && s.Patient.IncidentalFinding != nil && (to == PhaseExam || to == PhaseParentQuestions) {
		s.IncidentalRevealed = true
	}
	return nil
}

// Complete freezes the session in its terminal phase. Calling it again is
// harmless.
func (s *Session) Complete() {
	s.Phase = s.VisitType.Terminal()
}

// IsComplete reports whether the session has been debriefed.
func (s *Session) IsComplete() bool {
	return s.Phase == s.VisitType.Terminal()
}

// Status is the persisted lifecycle label.
func (s *Session) Status() string {
	if s.IsComplete() {
		return "completed"
	}
	return "active"
}

// AppendTurn adds a turn to the conversation log.
func (s *Session) AppendTurn(role Role, content string) {
	s.Conversation = append(s.Conversation, Turn{Role: role, Content: content, At: time.Now()})
}

// RecordHint counts one more hint given to the learner.
func (s *Session) RecordHint() {
	s.HintsGiven++
}

// AddTeachingMoment records an annotation the tutor made during the case.
func (s *Session) AddTeachingMoment(text string) {
	s.TeachingMoments = append(s.TeachingMoments, text)
}

// RecentTurns returns at most the last n turns.
func (s *Session) RecentTurns(n int) []Turn {
	if n <= 0 || n >= len(s.Conversation) {
		return s.Conversation
	}
	return s.Conversation[len(s.Conversation)-n:]
}

// LearnerTurns counts turns authored by the learner.
func (s *Session) LearnerTurns() int {
	n := 0
	for _, t := range s.Conversation {
		if t.Role == RoleLearner {
			n++
		}
	}
	return n
}

// Elapsed returns the time since the session started.
func (s *Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

// OverTime reports whether a timed session has run past its limit.
func (s *Session) OverTime(now time.Time) bool {
	if s.TimeConstraint == nil {
		return false
	}
	return s.Elapsed(now) > time.Duration(*s.TimeConstraint)*time.Minute
}

// AddUnique appends v to list unless it is already present.
func AddUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
