package debrief

import (
	"fmt"
	"strings"

	"github.com/abhisek/casetutor/internal/framework"
	"github.com/abhisek/casetutor/internal/session"
)

const systemPrompt = `You are a warm, experienced pediatric attending reviewing a training case
with a learner. Be specific and encouraging. Reference what the learner
actually said or did, explain why things matter for patient care, and
share one or two pearls they can use next time.

Return valid JSON only. No markdown, no code blocks.`

const (
	maxTranscriptTurns  = 20
	maxTranscriptRunes  = 200
	maxPreviousExchange = 5
)

// Prompt builds the debrief request for s.
func Prompt(s *session.Session, fw *framework.Framework) string {
	if s.VisitType == session.VisitWellChild {
		return wellChildPrompt(s, fw)
	}
	return sickPrompt(s, fw)
}

func sickPrompt(s *session.Session, fw *framework.Framework) string {
	p := s.Patient
	d := s.Discovery
	var b strings.Builder

	b.WriteString("The case is complete. Time for a debrief.\n\n")
	b.WriteString("## Case Summary\n")
	fmt.Fprintf(&b, "- Patient: %s, %s old\n", p.Name, p.AgeDisplay())
	fmt.Fprintf(&b, "- Condition: %s\n", p.ConditionDisplay)
	fmt.Fprintf(&b, "- Learner level: %s\n", s.LearnerLevel)
	fmt.Fprintf(&b, "- Hints given: %d\n", s.HintsGiven)

	b.WriteString("\n## What Was Discovered\n")
	fmt.Fprintf(&b, "- History gathered: %s\n", joinOr(d.HistoryGathered, "limited history"))
	fmt.Fprintf(&b, "- Exam performed: %s\n", joinOr(d.ExamsPerformed, "limited exam"))
	fmt.Fprintf(&b, "- Differential considered: %s\n", joinOr(d.Differential, "not clearly stated"))
	fmt.Fprintf(&b, "- Plan proposed: %s\n", joinOr(d.PlanProposed, "not clearly stated"))

	writeList(&b, "Teaching Goals for This Condition", fw.TeachingGoals)
	writeList(&b, "Clinical Pearls", fw.ClinicalPearls)
	writeList(&b, "Common Mistakes", fw.CommonMistakes)
	writeList(&b, "Teaching Moments During the Case", s.TeachingMoments)

	b.WriteString("\n## Response Format\n")
	b.WriteString(`Return a JSON object with "summary" (2-3 sentences ending with a brief check-in),`)
	b.WriteString(` "strengths", "areas_for_improvement", "missed_items" (empty if nothing was missed),`)
	b.WriteString(` "teaching_points" (1-3 pearls) and "follow_up_resources" (may be empty).`)
	b.WriteString("\n")
	return b.String()
}

func wellChildPrompt(s *session.Session, fw *framework.Framework) string {
	p := s.Patient
	w := s.WellChild
	var b strings.Builder

	b.WriteString("The well-child visit is complete. Time for a debrief.\n\n")
	b.WriteString("## Case Summary\n")
	fmt.Fprintf(&b, "- Visit: %s\n", fw.Topic)
	fmt.Fprintf(&b, "- Patient: %s, %s\n", p.Name, p.AgeDisplay())
	fmt.Fprintf(&b, "- Learner level: %s\n", s.LearnerLevel)

	b.WriteString("\n## What the Learner Covered\n")
	fmt.Fprintf(&b, "- Growth reviewed: %t\n", w.GrowthReviewed)
	fmt.Fprintf(&b, "- Milestones assessed: %s\n", joinOr(w.MilestonesAssessed, "none documented"))
	fmt.Fprintf(&b, "- Guidance topics: %s\n", joinOr(w.GuidanceCovered, "none documented"))
	fmt.Fprintf(&b, "- Immunizations addressed: %t\n", w.ImmunizationsAddressed)
	fmt.Fprintf(&b, "- Screening tools used: %s\n", joinOr(w.ScreeningToolsUsed, "none"))
	fmt.Fprintf(&b, "- Parent concerns addressed: %s\n", joinOr(w.ConcernsAddressed, "none"))
	if p.IncidentalFinding != nil {
		fmt.Fprintf(&b, "- Incidental finding present: %s, %s (revealed: %t)\n", p.IncidentalFinding.Key, p.IncidentalFinding.Description, s.IncidentalRevealed)
	}

	b.WriteString("\n## Expected at This Visit\n")
	fmt.Fprintf(&b, "- Milestone domains: %s\n", joinOr(fw.MilestoneDomains(), "none"))
	fmt.Fprintf(&b, "- Immunizations due: %s\n", joinOr(fw.ImmunizationsDue, "none"))
	fmt.Fprintf(&b, "- Screening tools: %s\n", joinOr(fw.ScreeningTools, "none"))
	fmt.Fprintf(&b, "- Anticipatory guidance topics: %s\n", joinOr(fw.GuidanceTopics(), "none"))
	writeList(&b, "Teaching Goals", fw.TeachingGoals)

	b.WriteString("\n## Response Format\n")
	b.WriteString(`Return a JSON object with "summary", "strengths", "areas_for_improvement",`)
	b.WriteString(` "missed_items", "teaching_points", "follow_up_resources" and "well_child_scores".`)
	b.WriteString(` "well_child_scores" has growth_interpretation, milestone_assessment, exam_thoroughness,`)
	b.WriteString(` anticipatory_guidance, immunization_knowledge and communication_skill, each an object`)
	b.WriteString(` {"score": 0-10, "feedback": "specific feedback"}.`)
	b.WriteString("\n")
	return b.String()
}

// QuestionPrompt builds the follow-up request for a completed case.
func QuestionPrompt(s *session.Session, fw *framework.Framework, d *Debrief, question string, previous []Exchange) string {
	p := s.Patient
	var b strings.Builder

	b.WriteString("A learner has completed a case and is asking a follow-up question during debrief review.\n\n")
	b.WriteString("## Case Context\n")
	fmt.Fprintf(&b, "- Patient: %s, %s\n", p.Name, p.AgeDisplay())
	fmt.Fprintf(&b, "- Condition: %s\n", p.ConditionDisplay)
	if p.ChiefComplaint != "" {
		fmt.Fprintf(&b, "- Chief complaint: %s\n", p.ChiefComplaint)
	}

	if s.VisitType == session.VisitSick {
		b.WriteString("\n## What the Learner Did\n")
		fmt.Fprintf(&b, "- History gathered: %s\n", joinOr(s.Discovery.HistoryGathered, "not recorded"))
		fmt.Fprintf(&b, "- Exam performed: %s\n", joinOr(s.Discovery.ExamsPerformed, "not recorded"))
		fmt.Fprintf(&b, "- Differential: %s\n", joinOr(s.Discovery.Differential, "not recorded"))
		fmt.Fprintf(&b, "- Plan proposed: %s\n", joinOr(s.Discovery.PlanProposed, "not recorded"))
	}

	if transcript := transcriptTail(s.Conversation); len(transcript) > 0 {
		writeList(&b, "Key Conversation Moments", transcript)
	}
	if d != nil {
		fmt.Fprintf(&b, "\n## Debrief Summary\n%s\n", d.Summary)
		writeList(&b, "Teaching Points from This Case", d.TeachingPoints)
	}
	writeList(&b, "Clinical Pearls", fw.ClinicalPearls)

	if n := len(previous); n > 0 {
		b.WriteString("\n## Previous Questions in This Review\n")
		for _, qa := range previous[max(0, n-maxPreviousExchange):] {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", qa.Question, qa.Answer)
		}
	}

	fmt.Fprintf(&b, "\n## Learner's Question\n\"%s\"\n", question)
	b.WriteString("\nAnswer conversationally and reference what actually happened in the case.")
	b.WriteString(` Return a JSON object {"answer": "...", "related_teaching_points": ["..."]}.`)
	b.WriteString("\n")
	return b.String()
}

// transcriptTail renders the last turns of the conversation, each clipped.
func transcriptTail(turns []session.Turn) []string {
	start := max(0, len(turns)-maxTranscriptTurns)
	out := make([]string, 0, len(turns)-start)
	for _, t := range turns[start:] {
		who := "Tutor"
		if t.Role == session.RoleLearner {
			who = "Learner"
		}
		out = append(out, fmt.Sprintf("%s: %s", who, clip(t.Content, maxTranscriptRunes)))
	}
	return out
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
