// Package encounter runs whole cases: it creates the patient and session,
// routes learner messages to the tutor, closes the case with a debrief and
// persists everything along the way.
package encounter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/casetutor/internal/debrief"
	"github.com/abhisek/casetutor/internal/framework"
	"github.com/abhisek/casetutor/internal/patient"
	"github.com/abhisek/casetutor/internal/session"
	"github.com/abhisek/casetutor/internal/store"
	"github.com/abhisek/casetutor/internal/tutor"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionComplete = errors.New("session is already complete")

	// ErrNotDebriefed is returned for review questions asked before the
	// debrief.
	ErrNotDebriefed = errors.New("session has not been debriefed")
)

// Deps are the collaborators a Service drives. Sessions may be nil, in
// which case cases live only in memory.
type Deps struct {
	Frameworks *framework.Store
	Generator  *patient.Generator
	Tutor      *tutor.Engine
	Debrief    *debrief.Engine
	Sessions   store.SessionRepo
	Log        *zap.Logger
}

// Service coordinates cases. Calls for the same session are serialized;
// different sessions proceed in parallel.
type Service struct {
	deps    Deps
	history *store.History
	log     *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	cases map[string]*activeCase
}

// activeCase is a session with everything needed to continue it.
type activeCase struct {
	mu        sync.Mutex
	session   *session.Session
	framework *framework.Framework
	debrief   *debrief.Debrief
	questions []debrief.Exchange
}

// New creates a Service.
func New(deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		deps:    deps,
		history: store.NewHistory(),
		log:     log,
		now:     time.Now,
		cases:   make(map[string]*activeCase),
	}
}

// Started is the result of opening a case.
type Started struct {
	Session   *session.Session
	Framework *framework.Framework
	Opening   string
}

// Start opens a new case for learner.
func (s *Service) Start(ctx context.Context, start session.Start, learner session.Learner) (*Started, error) {
	spec, err := session.Normalize(start, learner)
	if err != nil {
		return nil, err
	}

	var (
		p  *patient.Patient
		fw *framework.Framework
	)
	switch {
	case spec.VisitType == session.VisitWellChild:
		p, fw, err = s.deps.Generator.CreateWellChild(ctx, spec.VisitAgeMonths)
	case spec.Random():
		p, fw, err = s.deps.Generator.CreateRandom(ctx, spec.Category, spec.Variant)
	default:
		p, fw, err = s.deps.Generator.CreateForKey(ctx, spec.ConditionKey, spec.Variant)
	}
	if err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}

	sess := session.New(p, spec)
	opening, err := s.deps.Tutor.Opening(ctx, sess, fw)
	if err != nil {
		return nil, err
	}

	c := &activeCase{session: sess, framework: fw}
	s.mu.Lock()
	s.cases[sess.ID] = c
	s.mu.Unlock()
	s.history.Add(historyEntry(sess, s.now()))

	s.log.Info("case started",
		zap.String("session_id", sess.ID),
		zap.String("condition", p.ConditionKey),
		zap.String("visit_type", string(sess.VisitType)),
		zap.String("learner_level", string(sess.LearnerLevel)))
	s.persist(ctx, c)
	return &Started{Session: sess, Framework: fw, Opening: opening}, nil
}

// Turn sends one learner message to the case.
func (s *Service) Turn(ctx context.Context, id, message string) (*tutor.TurnResult, error) {
	c, err := s.get(id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.IsComplete() {
		return nil, fmt.Errorf("%w: %s", ErrSessionComplete, id)
	}

	res, err := s.deps.Tutor.Turn(ctx, c.session, c.framework, message)
	var turnErr *tutor.TurnError
	if err == nil || (errors.As(err, &turnErr) && turnErr.StateIntact) {
		s.persist(ctx, c)
	}
	return res, err
}

// Debrief closes the case and returns its feedback. Repeated calls return
// a fresh debrief of the already completed case.
func (s *Service) Debrief(ctx context.Context, id string) (*debrief.Debrief, error) {
	c, err := s.get(id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := s.deps.Debrief.Debrief(ctx, c.session, c.framework)
	if err != nil {
		return nil, err
	}
	c.debrief = d

	now := s.now()
	s.history.Add(historyEntry(c.session, now))
	s.persist(ctx, c)
	if s.deps.Sessions != nil {
		x := debrief.Export(c.session, c.framework, d, now)
		if err := s.complete(ctx, c.session.ID, x, now); err != nil {
			s.log.Warn("persist debrief", zap.String("session_id", id), zap.Error(err))
		}
	}
	return d, nil
}

// Ask answers a follow-up question about a debriefed case.
func (s *Service) Ask(ctx context.Context, id, question string) (*debrief.Answer, error) {
	c, err := s.get(id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.debrief == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotDebriefed, id)
	}
	a, err := s.deps.Debrief.Ask(ctx, c.session, c.framework, c.debrief, question, c.questions)
	if err != nil {
		return nil, err
	}
	c.questions = append(c.questions, debrief.Exchange{Question: question, Answer: a.Answer})
	return a, nil
}

// Export bundles a case with its debrief and learning materials.
func (s *Service) Export(id string) (*debrief.CaseExport, error) {
	c, err := s.get(id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return debrief.Export(c.session, c.framework, c.debrief, s.now()), nil
}

// Session returns the live session for id.
func (s *Service) Session(id string) (*session.Session, error) {
	c, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return c.session, nil
}

func (s *Service) get(id string) (*activeCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return c, nil
}

// persist saves the session when a repository is configured. Storage
// failures are logged; the case continues in memory.
func (s *Service) persist(ctx context.Context, c *activeCase) {
	if s.deps.Sessions == nil {
		return
	}
	rec, err := toRecord(c.session)
	if err == nil {
		err = s.deps.Sessions.SaveSession(ctx, rec)
	}
	if err != nil {
		s.log.Warn("persist session", zap.String("session_id", c.session.ID), zap.Error(err))
	}
}
