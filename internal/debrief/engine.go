package debrief

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/casetutor/internal/framework"
	"github.com/abhisek/casetutor/internal/llm"
	"github.com/abhisek/casetutor/internal/session"
)

// ErrGeneration is returned by Ask when the model call fails. Debrief
// itself always degrades to a fallback instead.
var ErrGeneration = errors.New("debrief generation failed")

// Config bounds debrief model calls.
type Config struct {
	MaxTokens         int
	QuestionMaxTokens int
	Temperature       float64
}

// DefaultConfig returns the standard debrief settings.
func DefaultConfig() Config {
	return Config{
		MaxTokens:         1500,
		QuestionMaxTokens: 1024,
		Temperature:       0.5,
	}
}

// Engine produces debriefs and answers review questions.
type Engine struct {
	provider llm.Provider
	config   Config
	log      *zap.Logger
}

// New creates an Engine. A nil log discards output.
func New(provider llm.Provider, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{provider: provider, config: cfg, log: log}
}

// Debrief scores s and freezes it in its terminal phase.
//
// It never fails on bad model output: prose becomes the summary, JSON of
// the wrong shape keeps its usable lists under a summary built from the
// session, and a failed call yields that session summary alone. Calling it on a completed session is allowed.
func (e *Engine) Debrief(ctx context.Context, s *session.Session, fw *framework.Framework) (*Debrief, error) {
	if !s.IsComplete() {
		if err := s.Advance(session.PhaseDebrief); err != nil {
			return nil, err
		}
	}

	d, err := e.generate(ctx, s, fw)
	if err != nil {
		return nil, err
	}
	s.Complete()
	return d, nil
}

func (e *Engine) generate(ctx context.Context, s *session.Session, fw *framework.Framework) (*Debrief, error) {
	schema := SickDebriefSchema
	if s.VisitType == session.VisitWellChild {
		schema = WellChildDebriefSchema
	}
	req := llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: Prompt(s, fw)}},
		Schema:      schema,
		MaxTokens:   e.config.MaxTokens,
		Temperature: e.config.Temperature,
	}

	ctx = llm.WithSession(llm.WithPurpose(ctx, "debrief"), s.ID)
	resp, err := e.provider.Generate(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if raw, ok := llm.RawContent(err); ok {
			e.log.Warn("debrief output rejected, salvaging", zap.String("session_id", s.ID), zap.Error(err))
			return salvage(raw, s), nil
		}
		e.log.Warn("debrief generation failed, summarizing from session", zap.String("session_id", s.ID), zap.Error(err))
		return emptyFallback(sessionSummary(s)), nil
	}

	d, err := parse(resp.Content, s.VisitType)
	if err != nil {
		e.log.Warn("debrief output unparseable, salvaging", zap.String("session_id", s.ID), zap.Error(err))
		return salvage(resp.Content, s), nil
	}
	e.log.Info("debrief generated", zap.String("session_id", s.ID), zap.Int("missed_items", len(d.MissedItems)))
	return d, nil
}

func parse(raw json.RawMessage, visit session.VisitType) (*Debrief, error) {
	var d Debrief
	if err := llm.DecodeJSON(raw, &d); err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.Summary) == "" {
		return nil, errors.New("debrief has no summary")
	}
	d.fillEmpty()
	if visit != session.VisitWellChild {
		d.WellChildScores = nil
	} else if d.WellChildScores != nil {
		d.WellChildScores.clamp()
	}
	return &d, nil
}

// salvage builds a fallback debrief from output that failed parsing. Prose
// becomes the summary as is. JSON never reaches the learner: well-formed
// lists are kept and the summary is rebuilt from the session.
func salvage(raw []byte, s *session.Session) *Debrief {
	text := strings.TrimSpace(string(llm.StripCodeFences(raw)))
	if text == "" {
		return emptyFallback(sessionSummary(s))
	}
	if !looksLikeJSON(text) {
		return emptyFallback(text)
	}

	d := emptyFallback(sessionSummary(s))
	var fields map[string]json.RawMessage
	if json.Unmarshal([]byte(text), &fields) != nil {
		return d
	}
	var summary string
	if json.Unmarshal(fields["summary"], &summary) == nil && !looksLikeJSON(strings.TrimSpace(summary)) && strings.TrimSpace(summary) != "" {
		d.Summary = strings.TrimSpace(summary)
	}
	keepList(fields["strengths"], &d.Strengths)
	keepList(fields["areas_for_improvement"], &d.AreasForImprovement)
	keepList(fields["missed_items"], &d.MissedItems)
	keepList(fields["teaching_points"], &d.TeachingPoints)
	keepList(fields["follow_up_resources"], &d.FollowUpResources)

	if s.VisitType == session.VisitWellChild && len(fields["well_child_scores"]) > 0 {
		var sc WellChildScores
		if json.Unmarshal(fields["well_child_scores"], &sc) == nil {
			sc.clamp()
			d.WellChildScores = &sc
		}
	}
	return d
}

// keepList decodes raw into dst when it is a list of strings.
func keepList(raw json.RawMessage, dst *[]string) {
	if len(raw) == 0 {
		return
	}
	var items []string
	if json.Unmarshal(raw, &items) != nil {
		return
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	*dst = out
}

// looksLikeJSON also catches truncated objects that no longer parse.
func looksLikeJSON(text string) bool {
	return strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[")
}

// sessionSummary describes the encounter without the model.
func sessionSummary(s *session.Session) string {
	subject := "the patient"
	if s.Patient != nil {
		subject = s.Patient.Name
		if s.Patient.ConditionDisplay != "" {
			subject += " (" + s.Patient.ConditionDisplay + ")"
		}
	}
	if s.VisitType == session.VisitWellChild {
		w := s.WellChild
		return fmt.Sprintf("Case complete. You saw %s for a well-child visit, assessed %d milestone domain(s), covered %d guidance topic(s) and used %d hint(s).",
			subject, len(w.MilestonesAssessed), len(w.GuidanceCovered), s.HintsGiven)
	}
	d := s.Discovery
	return fmt.Sprintf("Case complete. You saw %s, covered %d history topic(s), examined %d system(s) and used %d hint(s).",
		subject, len(d.HistoryGathered), len(d.ExamsPerformed), s.HintsGiven)
}

// Ask answers a follow-up question about a completed case. Prose output is
// returned as the answer text; malformed JSON is never shown.
func (e *Engine) Ask(ctx context.Context, s *session.Session, fw *framework.Framework, d *Debrief, question string, previous []Exchange) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, errors.New("question is empty")
	}
	req := llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: QuestionPrompt(s, fw, d, question, previous)}},
		Schema:      AnswerSchema,
		MaxTokens:   e.config.QuestionMaxTokens,
		Temperature: e.config.Temperature,
	}

	ctx = llm.WithSession(llm.WithPurpose(ctx, "debrief-question"), s.ID)
	resp, err := e.provider.Generate(ctx, req)
	var raw json.RawMessage
	switch {
	case err == nil:
		raw = resp.Content
	default:
		var ok bool
		if raw, ok = llm.RawContent(err); !ok {
			return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
		}
	}

	text := strings.TrimSpace(string(llm.StripCodeFences(raw)))
	if text == "" {
		return nil, fmt.Errorf("%w: empty answer", ErrGeneration)
	}
	if !looksLikeJSON(text) {
		return &Answer{Answer: text, RelatedTeachingPoints: []string{}}, nil
	}

	a := Answer{RelatedTeachingPoints: []string{}}
	var fields map[string]json.RawMessage
	if json.Unmarshal([]byte(text), &fields) == nil {
		_ = json.Unmarshal(fields["answer"], &a.Answer)
		keepList(fields["related_teaching_points"], &a.RelatedTeachingPoints)
	}
	a.Answer = strings.TrimSpace(a.Answer)
	if a.Answer == "" || looksLikeJSON(a.Answer) {
		a.Answer = noAnswer
	}
	return &a, nil
}

const noAnswer = "I couldn't put together a clear answer to that. Try asking it another way."
