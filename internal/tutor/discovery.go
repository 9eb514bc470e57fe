package tutor

import (
	"strings"

	"github.com/abhisek/casetutor/internal/framework"
	"github.com/abhisek/casetutor/internal/session"
)

var historyTopics = []string{
	"onset", "how long", "fever", "pain", "eating", "drinking", "sleeping",
	"cough", "vomit", "diarrhea", "rash", "wet diaper", "urine", "breathing",
	"sick contacts", "daycare", "vaccin", "medication", "allerg", "history",
}

var examSystems = []string{
	"ears", "throat", "mouth", "lungs", "chest", "heart", "belly", "abdomen",
	"skin", "eyes", "neck", "lymph", "hips", "reflex", "vitals", "oxygen",
	"temperature", "breath sounds", "work of breathing",
}

var milestoneDomains = map[string][]string{
	"gross_motor":      {"rolling", "rolls", "sitting", "sits", "crawl", "walking", "walks", "stairs", "jump", "run"},
	"fine_motor":       {"grasp", "pincer", "reach", "stack", "scribbl", "draw", "transfer"},
	"language":         {"words", "babbl", "talking", "speech", "sentence", "coo", "point"},
	"social_emotional": {"smil", "stranger", "wave", "peek", "play", "eye contact"},
	"cognitive":        {"object permanence", "pretend", "colors", "count", "explor", "problem solv"},
}

var domainOrder = []string{"gross_motor", "fine_motor", "language", "social_emotional", "cognitive"}

const maxRecorded = 160

// trackDiscovery records what the message covers into the session's
// discovery sets. It runs after phase inference so a message that moves
// the session into a phase is credited to that phase.
func trackDiscovery(s *session.Session, fw *framework.Framework, message string) {
	msg := strings.ToLower(message)

	if s.VisitType == session.VisitWellChild {
		trackWellChild(s, fw, msg)
		return
	}

	d := &s.Discovery
	switch s.Phase {
	case session.PhaseHistory:
		for _, topic := range matches(msg, historyTopics) {
			d.HistoryGathered = session.AddUnique(d.HistoryGathered, topic)
		}
	case session.PhaseExam:
		for _, sys := range matches(msg, examSystems) {
			d.ExamsPerformed = session.AddUnique(d.ExamsPerformed, sys)
		}
	case session.PhaseAssessment:
		d.Differential = session.AddUnique(d.Differential, clip(message))
	case session.PhasePlan:
		d.PlanProposed = session.AddUnique(d.PlanProposed, clip(message))
	}
}

func trackWellChild(s *session.Session, fw *framework.Framework, msg string) {
	w := &s.WellChild

	for _, domain := range domainOrder {
		if len(matches(msg, milestoneDomains[domain])) > 0 {
			w.MilestonesAssessed = session.AddUnique(w.MilestonesAssessed, domain)
		}
	}

	if fw != nil {
		for _, topic := range fw.GuidanceTopics() {
			if strings.Contains(msg, strings.ReplaceAll(topic, "_", " ")) {
				w.GuidanceCovered = session.AddUnique(w.GuidanceCovered, topic)
			}
		}
		for _, tool := range fw.ScreeningTools {
			if strings.Contains(msg, strings.ToLower(tool)) {
				w.ScreeningToolsUsed = session.AddUnique(w.ScreeningToolsUsed, tool)
			}
		}
	}

	if len(matches(msg, vaccineWords)) > 0 {
		w.ImmunizationsAddressed = true
	}

	if s.Patient != nil {
		for _, concern := range s.Patient.ParentConcerns {
			if mentionsConcern(msg, concern) {
				w.ConcernsAddressed = session.AddUnique(w.ConcernsAddressed, concern)
			}
		}
	}
}

// mentionsConcern reports whether msg shares a significant word with the
// parent's concern.
func mentionsConcern(msg, concern string) bool {
	for _, w := range strings.Fields(strings.ToLower(concern)) {
		w = strings.Trim(w, ".,?!'\"")
		if len(w) >= 5 && strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

func matches(msg string, vocab []string) []string {
	var out []string
	for _, v := range vocab {
		if strings.Contains(msg, v) {
			out = append(out, v)
		}
	}
	return out
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxRecorded {
		return string(r[:maxRecorded]) + "..."
	}
	return s
}
