// Package tutor runs the turn-by-turn case conversation: stuck detection,
// phase inference, prompt assembly, and the model call.
package tutor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/casetutor/internal/framework"
	"github.com/abhisek/casetutor/internal/llm"
	"github.com/abhisek/casetutor/internal/session"
)

var (
	// ErrGeneration means the model produced no usable reply.
	ErrGeneration = errors.New("tutor reply generation failed")

	// ErrCaseClosed is returned for turns sent after the debrief.
	ErrCaseClosed = errors.New("case is closed")
)

// TurnError reports a failed turn. StateIntact is true when phase and
// hint bookkeeping for the message were applied and only the reply is
// missing; the conversation log is never touched by a failed turn.
type TurnError struct {
	SessionID   string
	Phase       session.Phase
	StateIntact bool
	Err         error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn failed (session %s, phase %s): %v", e.SessionID, e.Phase, e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }

// TurnResult is what one learner message produces.
type TurnResult struct {
	AssistantText  string
	Session        *session.Session
	TeachingMoment string
	Stuck          bool

	// PhaseFrom and PhaseTo differ when the message advanced the session.
	PhaseFrom session.Phase
	PhaseTo   session.Phase
}

// Advanced reports whether the turn changed phase.
func (r *TurnResult) Advanced() bool {
	return r.PhaseFrom != r.PhaseTo
}

// Engine drives case conversations. It holds no per-session state and is
// safe for concurrent use across sessions.
type Engine struct {
	provider llm.Provider
	policy   Policy
	config   Config
	log      *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithPolicy replaces the keyword phase policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// New creates an Engine that calls provider for replies.
func New(provider llm.Provider, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		provider: provider,
		policy:   DefaultPolicy(),
		config:   cfg,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Turn processes one learner message against s.
//
// Stuck detection and phase inference run first and are kept even when
// the model call fails. On success the learner message and the reply are
// appended to the conversation, and any teaching annotation is recorded.
func (e *Engine) Turn(ctx context.Context, s *session.Session, fw *framework.Framework, message string) (*TurnResult, error) {
	if s.Phase == session.PhaseDebrief || s.IsComplete() {
		return nil, fmt.Errorf("%w: session %s is in %s", ErrCaseClosed, s.ID, s.Phase)
	}

	stuck := IsStuck(e.config, message, s.RecentTurns(e.config.RecentTurnWindow))

	from := s.Phase
	if to, ok := e.policy.Next(s, message); ok {
		if err := s.Advance(to); err != nil {
			e.log.Warn("phase policy proposed an invalid transition",
				zap.String("session_id", s.ID), zap.Error(err))
		} else if to != from {
			e.log.Info("phase advanced",
				zap.String("session_id", s.ID),
				zap.String("phase_from", string(from)),
				zap.String("phase_to", string(to)))
		}
	}
	trackDiscovery(s, fw, message)

	if stuck {
		s.RecordHint()
		e.log.Info("learner stuck",
			zap.String("session_id", s.ID),
			zap.Int("hints_given", s.HintsGiven))
	}

	req := llm.Request{
		System:      SystemPrompt(s, fw),
		Messages:    e.history(s, TurnPrompt(s.Phase, message, stuck)),
		MaxTokens:   e.config.TurnMaxTokens,
		Temperature: e.config.Temperature,
	}

	ctx = llm.WithSession(llm.WithPurpose(ctx, "case-turn"), s.ID)
	resp, err := e.provider.Generate(ctx, req)
	if err != nil {
		e.log.Warn("turn generation failed", zap.String("session_id", s.ID), zap.Error(err))
		return nil, &TurnError{SessionID: s.ID, Phase: s.Phase, StateIntact: true, Err: fmt.Errorf("%w: %w", ErrGeneration, err)}
	}

	visible, moment := ExtractTeaching(resp.Text())
	if visible == "" {
		visible = moment
	}
	if visible == "" {
		return nil, &TurnError{SessionID: s.ID, Phase: s.Phase, StateIntact: true, Err: fmt.Errorf("%w: empty reply", ErrGeneration)}
	}

	if moment != "" {
		s.AddTeachingMoment(moment)
	}
	s.AppendTurn(session.RoleLearner, message)
	s.AppendTurn(session.RoleTutor, visible)

	return &TurnResult{
		AssistantText:  visible,
		Session:        s,
		TeachingMoment: moment,
		Stuck:          stuck,
		PhaseFrom:      from,
		PhaseTo:        s.Phase,
	}, nil
}

// Opening produces the first persona utterance and appends it to the
// conversation. A model failure falls back to an opening built from the
// patient record, so Opening only fails on a cancelled context.
func (e *Engine) Opening(ctx context.Context, s *session.Session, fw *framework.Framework) (string, error) {
	req := llm.Request{
		System:      SystemPrompt(s, fw),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: openingPrompt(s, fw)}},
		MaxTokens:   e.config.OpeningMaxTokens,
		Temperature: e.config.Temperature,
	}

	ctx = llm.WithSession(llm.WithPurpose(ctx, "case-opening"), s.ID)
	var text string
	resp, err := e.provider.Generate(ctx, req)
	switch {
	case ctx.Err() != nil:
		return "", ctx.Err()
	case err != nil:
		e.log.Warn("opening generation failed, using fallback", zap.String("session_id", s.ID), zap.Error(err))
	default:
		text, _ = ExtractTeaching(resp.Text())
	}
	if text == "" {
		text = fallbackOpening(s, fw)
	}

	s.AppendTurn(session.RoleTutor, text)
	return text, nil
}

// history converts the conversation to model messages and appends the
// wrapped learner turn. The model expects a user message first, so a
// conversation that starts with the persona gets a short lead-in.
func (e *Engine) history(s *session.Session, prompt string) []llm.Message {
	msgs := make([]llm.Message, 0, len(s.Conversation)+2)
	if len(s.Conversation) > 0 && s.Conversation[0].Role != session.RoleLearner {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: "Begin the case."})
	}
	for _, t := range s.Conversation {
		role := llm.RoleAssistant
		if t.Role == session.RoleLearner {
			role = llm.RoleUser
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Content})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: prompt})
}
