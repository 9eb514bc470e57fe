package encounter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/casetutor/internal/debrief"
	"github.com/abhisek/casetutor/internal/session"
	"github.com/abhisek/casetutor/internal/store"
)

// toRecord serializes s. The conversation is stored as message rows, so it
// is left out of the state blob.
func toRecord(s *session.Session) (*store.SessionRecord, error) {
	state := *s
	state.Conversation = nil
	raw, err := json.Marshal(&state)
	if err != nil {
		return nil, fmt.Errorf("marshal session %s: %w", s.ID, err)
	}

	rec := &store.SessionRecord{
		ID:           s.ID,
		OwnerID:      s.OwnerID,
		VisitType:    string(s.VisitType),
		Phase:        string(s.Phase),
		LearnerLevel: string(s.LearnerLevel),
		Status:       s.Status(),
		HintsGiven:   s.HintsGiven,
		State:        raw,
		StartedAt:    s.StartedAt,
		Messages:     make([]store.MessageRecord, len(s.Conversation)),
	}
	if s.Patient != nil {
		rec.ConditionKey = s.Patient.ConditionKey
		rec.ConditionDisplay = s.Patient.ConditionDisplay
	}
	for i, t := range s.Conversation {
		rec.Messages[i] = store.MessageRecord{Role: string(t.Role), Content: t.Content, At: t.At}
	}
	return rec, nil
}

// fromRecord rebuilds a session from its stored form.
func fromRecord(rec *store.SessionRecord) (*session.Session, error) {
	var s session.Session
	if err := json.Unmarshal(rec.State, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", rec.ID, err)
	}
	s.Conversation = make([]session.Turn, len(rec.Messages))
	for i, m := range rec.Messages {
		s.Conversation[i] = session.Turn{Role: session.Role(m.Role), Content: m.Content, At: m.At}
	}
	if s.TeachingMoments == nil {
		s.TeachingMoments = []string{}
	}
	return &s, nil
}

func historyEntry(s *session.Session, now time.Time) store.HistoryEntry {
	sum := session.BuildSummary(s, now)
	e := store.HistoryEntry{
		ID:               sum.ID,
		OwnerID:          s.OwnerID,
		ConditionKey:     sum.ConditionKey,
		ConditionDisplay: sum.ConditionDisplay,
		VisitType:        string(sum.VisitType),
		Phase:            string(sum.Phase),
		Status:           sum.Status,
		LearnerLevel:     string(sum.LearnerLevel),
		HintsGiven:       sum.HintsGiven,
		StartedAt:        sum.StartedAt,
	}
	if s.IsComplete() {
		done := now
		mins := store.DurationMinutes(s.StartedAt, now)
		e.CompletedAt = &done
		e.DurationMinutes = &mins
	}
	return e
}

func (s *Service) complete(ctx context.Context, id string, x *debrief.CaseExport, at time.Time) error {
	d, err := json.Marshal(x.Debrief)
	if err != nil {
		return fmt.Errorf("marshal debrief: %w", err)
	}
	m, err := json.Marshal(x.LearningMaterials)
	if err != nil {
		return fmt.Errorf("marshal learning materials: %w", err)
	}
	return s.deps.Sessions.CompleteSession(ctx, id, d, m, at)
}

// Resume loads a stored session back into the service so it can continue.
// An empty owner skips the ownership check.
func (s *Service) Resume(ctx context.Context, id, owner string) (*session.Session, error) {
	if c, err := s.get(id); err == nil {
		if owner != "" && c.session.OwnerID != owner {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return c.session, nil
	}
	if s.deps.Sessions == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	rec, err := s.deps.Sessions.LoadSession(ctx, id, owner)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	sess, err := fromRecord(rec)
	if err != nil {
		return nil, err
	}
	if sess.Patient == nil {
		return nil, fmt.Errorf("session %s has no patient", id)
	}
	fw, err := s.deps.Frameworks.Lookup(sess.Patient.ConditionKey)
	if err != nil {
		return nil, err
	}

	c := &activeCase{session: sess, framework: fw}
	if len(rec.Debrief) > 0 {
		var d debrief.Debrief
		if err := json.Unmarshal(rec.Debrief, &d); err == nil {
			c.debrief = &d
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cases[id]; ok {
		return existing.session, nil
	}
	s.cases[id] = c
	return sess, nil
}

// History lists owner's past cases, newest first. Without a database it
// reports the cases started by this process.
func (s *Service) History(ctx context.Context, owner string, limit int, status string) ([]store.HistoryEntry, error) {
	if s.deps.Sessions != nil {
		return s.deps.Sessions.UserHistory(ctx, owner, limit, status)
	}

	var out []store.HistoryEntry
	for _, e := range s.history.All() {
		if owner != "" && e.OwnerID != owner {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
