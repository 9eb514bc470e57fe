package tutor

import (
	"strings"

	"github.com/abhisek/casetutor/internal/session"
)

// Trigger decides whether a learner message moves the session out of one
// particular phase, and where to.
type Trigger interface {
	Next(message string) (session.Phase, bool)
}

// TriggerFunc adapts a plain function to Trigger.
type TriggerFunc func(message string) (session.Phase, bool)

func (f TriggerFunc) Next(message string) (session.Phase, bool) { return f(message) }

// Keywords fires when the lower-cased message contains any of words.
func Keywords(to session.Phase, words ...string) Trigger {
	return TriggerFunc(func(message string) (session.Phase, bool) {
		msg := strings.ToLower(message)
		for _, w := range words {
			if strings.Contains(msg, w) {
				return to, true
			}
		}
		return "", false
	})
}

// Policy maps each phase of each track to the triggers checked while the
// session sits in that phase. Triggers are tried in order and the first
// match wins. Only the current phase is consulted, so one message moves a
// session at most one step.
type Policy map[session.VisitType]map[session.Phase][]Trigger

// Next returns the phase the message moves s to, if any.
func (p Policy) Next(s *session.Session, message string) (session.Phase, bool) {
	for _, t := range p[s.VisitType][s.Phase] {
		if to, ok := t.Next(message); ok {
			return to, true
		}
	}
	return "", false
}

// Keyword vocabularies per transition.
var (
	historyWords = []string{"when", "how long", "fever", "pain", "eating", "sleeping", "happened"}
	examWords    = []string{"examine", "look at", "check", "ears", "throat", "lungs", "heart", "belly"}
	assessWords  = []string{"think", "diagnosis", "differential", "could be", "looks like", "probably"}
	planWords    = []string{"prescribe", "give", "recommend", "treat", "plan", "antibiotic", "medicine"}

	growthWords      = []string{"growth", "weight", "percentile", "chart", "gaining", "length", "head circumference"}
	developmentWords = []string{"milestone", "development", "rolling", "sitting", "walking", "talking", "words"}
	screeningWords   = []string{"milestone", "development", "rolling", "sitting", "walking", "talking", "babbl", "words", "screen"}
	wellExamWords    = []string{"examine", "look at", "check", "exam", "heart", "ears", "hips", "lungs", "belly", "reflex"}
	guidanceWords    = []string{"safety", "sleep", "feeding", "nutrition", "car seat", "tummy time", "screen time", "guidance", "counsel", "anticipatory"}
	vaccineWords     = []string{"vaccine", "immuniz", "shot", "dtap", "mmr", "pcv", "hep", "flu", "schedule"}
	wrapUpWords      = []string{"question", "concern", "anything else", "wrap up", "done", "follow up"}
)

// DefaultPolicy is the keyword policy for both tracks. Plan to debrief is
// never message driven; the caller requests the debrief.
func DefaultPolicy() Policy {
	return Policy{
		session.VisitSick: {
			session.PhaseIntro:      {Keywords(session.PhaseHistory, historyWords...)},
			session.PhaseHistory:    {Keywords(session.PhaseExam, examWords...)},
			session.PhaseExam:       {Keywords(session.PhaseAssessment, assessWords...)},
			session.PhaseAssessment: {Keywords(session.PhasePlan, planWords...)},
		},
		session.VisitWellChild: {
			session.PhaseIntro: {
				Keywords(session.PhaseGrowthReview, growthWords...),
				Keywords(session.PhaseDevelopmentalScreening, developmentWords...),
			},
			session.PhaseGrowthReview:           {Keywords(session.PhaseDevelopmentalScreening, screeningWords...)},
			session.PhaseDevelopmentalScreening: {Keywords(session.PhaseExam, wellExamWords...)},
			session.PhaseExam:                   {Keywords(session.PhaseAnticipatoryGuidance, guidanceWords...)},
			session.PhaseAnticipatoryGuidance:   {Keywords(session.PhaseImmunizations, vaccineWords...)},
			session.PhaseImmunizations:          {Keywords(session.PhaseParentQuestions, wrapUpWords...)},
		},
	}
}
