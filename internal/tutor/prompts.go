package tutor

import (
	"fmt"
	"strings"

	"github.com/abhisek/casetutor/internal/framework"
	"github.com/abhisek/casetutor/internal/patient"
	"github.com/abhisek/casetutor/internal/session"
)

const preamble = `You are an experienced pediatric attending teaching a learner through a simulated patient encounter.

How you teach:
- Help, don't interrogate. After two or three questions from you, give support instead of another question.
- Meet the learner where they are. Praise good reasoning briefly and specifically.
- Correct safety problems directly but without shame.
- Keep the family in view: what the parent wants and fears matters as much as the diagnosis.
- Prefer watchful waiting, reassurance and shared decisions where they are appropriate.
- Use plain language with the parent and clinical language with the learner.

When you want to record a key teaching point, add it once as [TEACHING: the point] anywhere in your reply.`

const rolePlayRules = `## Rules

1. Stay in the parent's voice by default. Step out to teach only when it helps.
2. Reveal information only when the learner asks for it. Do not volunteer symptoms or findings.
3. Never name the diagnosis before the learner commits to an assessment.
4. Signal a switch of voice with one short bracketed phrase, e.g. "[Stepping out for a moment]" or "[Back to the parent]".
5. If the learner seems lost, offer how you would think about it rather than another question.`

const wellChildRules = `## Rules

1. There is no chief complaint. This child is here for a routine check.
2. Answer as the parent would. Let the learner drive the visit and do not prompt topics.
3. Notice which milestones, guidance topics, screenings and vaccines the learner covers.
4. If an incidental finding is listed, let it surface naturally only during the exam or when the parent asks questions.
5. Praise thoroughness when the learner remembers an important screening or guidance topic.`

// phaseGuidance is the fixed per-phase instruction for the persona.
var phaseGuidance = map[session.Phase]string{
	session.PhaseIntro:      "The learner is just starting. Let them take the lead.",
	session.PhaseHistory:    "They are gathering history. Answer only what is asked, as the parent would. Do not volunteer anything else.",
	session.PhaseExam:       "They are examining the child. Describe exactly what they find for the parts they examine, normal and abnormal.",
	session.PhaseAssessment: "They are forming an assessment. Listen to their reasoning and probe gently if the differential is incomplete.",
	session.PhasePlan:       "They are making a plan. Support good choices, question risky ones, and remember the parent has a say.",
	session.PhaseDebrief:    "Time to debrief. Summarize what went well and what to improve.",
	session.PhaseComplete:   "The case is complete.",

	session.PhaseGrowthReview:           "They are reviewing growth. See whether they interpret the trajectory and not just the numbers.",
	session.PhaseDevelopmentalScreening: "They are assessing development. See whether they cover every domain and know the screening tools.",
	session.PhaseAnticipatoryGuidance:   "They are counseling the parent. Do not suggest topics. Play the parent with realistic questions.",
	session.PhaseImmunizations:          "They are addressing vaccines. See whether they know what is due. If the parent is hesitant, stay in character.",
	session.PhaseParentQuestions:        "The parent has questions or a concern, possibly about an incidental finding. See how the learner handles it.",
}

// PhaseGuidance returns the persona instruction for phase.
func PhaseGuidance(phase session.Phase) string {
	if g, ok := phaseGuidance[phase]; ok {
		return g
	}
	return "Continue the encounter naturally."
}

// StuckDirective is added to the turn prompt when the learner is stuck. The
// persona gives one piece of help and then stops.
const StuckDirective = `IMPORTANT: The learner seems stuck or unsure. Step into supportive attending mode:
- Do not ask another question. Give them something concrete to work with.
- Offer a frame ("Here's how I'd think about this...") or a gentle nudge.
- Keep it warm. There is no shame in being stuck.

After your hint, STOP. Do not continue the case.
- Do not have the parent ask a follow-up question.
- Do not add more roleplay after the hint.
- End your reply after the teaching point and wait for the learner.`

// SystemPrompt builds the persona and policy prompt for s.
func SystemPrompt(s *session.Session, fw *framework.Framework) string {
	if s.VisitType == session.VisitWellChild {
		return wellChildSystemPrompt(s, fw)
	}
	return sickSystemPrompt(s, fw)
}

func sickSystemPrompt(s *session.Session, fw *framework.Framework) string {
	p := s.Patient
	var b strings.Builder

	b.WriteString(preamble)
	b.WriteString("\n\n")
	b.WriteString(s.LearnerLevel.Guidance())
	b.WriteString("\n\n## Current Case\n\n")
	fmt.Fprintf(&b, "You move between two voices: the parent, %s (%s), and the teaching attending.\n",
		p.ParentName, styleDescription(fw, p.ParentStyle))

	b.WriteString("\n### Patient (hidden from the learner, reveal only as discovered)\n")
	fmt.Fprintf(&b, "- Name: %s\n", p.Name)
	fmt.Fprintf(&b, "- Age: %s\n", p.AgeDisplay())
	fmt.Fprintf(&b, "- Sex: %s\n", p.Sex)
	fmt.Fprintf(&b, "- Weight: %.1f kg\n", p.WeightKg)
	fmt.Fprintf(&b, "- Chief complaint: %s\n", p.ChiefComplaint)
	fmt.Fprintf(&b, "- Actual condition: %s (do not reveal)\n", p.ConditionDisplay)
	fmt.Fprintf(&b, "- Symptoms present: %s\n", joinOrNone(p.Symptoms))
	if d := p.SymptomDetails; d != nil {
		fmt.Fprintf(&b, "- Course: %d days, %s, %s\n", d.DurationDays, d.Severity, d.Progression)
	}
	if len(p.RelevantHistory) > 0 {
		fmt.Fprintf(&b, "- Relevant history: %s\n", strings.Join(p.RelevantHistory, "; "))
	}
	if p.SocialContext != "" {
		fmt.Fprintf(&b, "- Social context: %s\n", p.SocialContext)
	}

	if reached(s, session.PhaseExam) {
		writeVitals(&b, p.Vitals)
		b.WriteString("- Exam findings:\n")
		for _, f := range p.ExamFindings {
			fmt.Fprintf(&b, "  - %s: %s\n", f.System, f.Finding)
		}
	} else {
		b.WriteString("- Vitals and exam findings are withheld until the learner examines the child.\n")
	}

	ctx := fw.TeachingContext()
	writeSection(&b, "Teaching Goals", ctx.TeachingGoals)
	writeSection(&b, "Common Learner Mistakes", ctx.CommonMistakes)
	writeSection(&b, "Red Flags (must not be missed)", ctx.RedFlags)
	writeSection(&b, "Clinical Pearls", ctx.ClinicalPearls)
	writeSection(&b, "Key History Questions", ctx.KeyHistoryQuestions)
	writeSection(&b, "Key Exam Findings", ctx.KeyExamFindings)
	writeSection(&b, "Treatment Principles", ctx.TreatmentPrinciples)
	writeSection(&b, "Disposition", ctx.DispositionGuidance)
	writeImages(&b, fw, s.Phase)

	fmt.Fprintf(&b, "\n## Current Phase: %s\n\n", s.Phase)
	b.WriteString(rolePlayRules)
	return b.String()
}

func wellChildSystemPrompt(s *session.Session, fw *framework.Framework) string {
	p := s.Patient
	var b strings.Builder

	b.WriteString(preamble)
	b.WriteString("\n\n")
	b.WriteString(s.LearnerLevel.Guidance())
	b.WriteString("\n\n## Current Well-Child Visit\n\n")
	fmt.Fprintf(&b, "- Visit: %s\n", fw.Topic)
	fmt.Fprintf(&b, "- Name: %s\n", p.Name)
	fmt.Fprintf(&b, "- Age: %s\n", p.AgeDisplay())
	fmt.Fprintf(&b, "- Sex: %s\n", p.Sex)
	fmt.Fprintf(&b, "- Weight: %.1f kg\n", p.WeightKg)
	fmt.Fprintf(&b, "- Parent: %s (%s)\n", p.ParentName, p.ParentStyle)
	if p.SocialContext != "" {
		fmt.Fprintf(&b, "- Social context: %s\n", p.SocialContext)
	}

	if g := p.GrowthData; g != nil {
		b.WriteString("\n### Growth\n")
		fmt.Fprintf(&b, "- Weight %d%%ile (previously %d%%ile, trend %s)\n", g.WeightPercentile, g.PreviousWeightPercentile, g.WeightTrend)
		fmt.Fprintf(&b, "- Length %d%%ile\n", g.LengthPercentile)
		fmt.Fprintf(&b, "- Head circumference %d%%ile\n", g.HeadCircumferencePercentile)
	}

	b.WriteString("\n### Expected Milestones\n")
	for _, domain := range fw.MilestoneDomains() {
		fmt.Fprintf(&b, "- %s: %s\n", domain, strings.Join(fw.ExpectedMilestones[domain], ", "))
	}
	if m := p.Milestones; m != nil {
		b.WriteString("\n### Actual Milestone Status\n")
		fmt.Fprintf(&b, "- Gross motor: %s\n", joinOrNone(m.GrossMotor))
		fmt.Fprintf(&b, "- Fine motor: %s\n", joinOrNone(m.FineMotor))
		fmt.Fprintf(&b, "- Language: %s\n", joinOrNone(m.Language))
		fmt.Fprintf(&b, "- Social/emotional: %s\n", joinOrNone(m.SocialEmotional))
		fmt.Fprintf(&b, "- Cognitive: %s\n", joinOrNone(m.Cognitive))
		fmt.Fprintf(&b, "- Not yet met: %s\n", joinOrNone(m.Concerns))
	}

	writeSection(&b, "Immunization History", p.ImmunizationHistory)
	writeSection(&b, "Immunizations Due Today", fw.ImmunizationsDue)

	b.WriteString("\n### Anticipatory Guidance Topics\n")
	for _, topic := range fw.GuidanceTopics() {
		items := fw.AnticipatoryGuidance[topic]
		fmt.Fprintf(&b, "- %s: %s\n", topic, strings.Join(items[:min(3, len(items))], ", "))
	}

	writeSection(&b, "Exam Focus", fw.ExamFocus)
	writeSection(&b, "Screening Tools", fw.ScreeningTools)
	writeSection(&b, "Parent Concerns", p.ParentConcerns)

	if reached(s, session.PhaseExam) {
		writeVitals(&b, p.Vitals)
		b.WriteString("- Exam findings:\n")
		for _, f := range p.ExamFindings {
			if f.System == "incidental" {
				continue
			}
			fmt.Fprintf(&b, "  - %s: %s\n", f.System, f.Finding)
		}
	}

	if inc := p.IncidentalFinding; inc != nil && s.IncidentalRevealed {
		b.WriteString("\n### Incidental Finding (let the learner discover it)\n")
		fmt.Fprintf(&b, "- %s\n", inc.Description)
		b.WriteString("- Present it naturally. Do not announce it.\n")
	}

	ctx := fw.TeachingContext()
	writeSection(&b, "Teaching Goals", ctx.TeachingGoals)
	writeSection(&b, "Common Learner Mistakes", ctx.CommonMistakes)
	writeSection(&b, "Red Flags", ctx.RedFlags)
	writeImages(&b, fw, s.Phase)

	fmt.Fprintf(&b, "\n## Current Phase: %s\n\n", s.Phase)
	b.WriteString(wellChildRules)
	return b.String()
}

// TurnPrompt wraps the learner's message with the phase guidance and, when
// the learner is stuck, the stop-after-hint directive.
func TurnPrompt(phase session.Phase, message string, stuck bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[Current phase: %s]\n", phase)
	b.WriteString(PhaseGuidance(phase))
	b.WriteString("\n")
	if stuck {
		b.WriteString("\n")
		b.WriteString(StuckDirective)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nThe learner says: \"%s\"\n\n", message)
	b.WriteString("Respond naturally as the parent, as the teaching attending, or moving between both.\n")
	b.WriteString("Answer questions in character. Step into the attending voice to comment on clinical decisions.\n")
	b.WriteString("Remember: help, don't interrogate.")
	return b.String()
}

// openingPrompt asks for the first persona utterance of the case.
func openingPrompt(s *session.Session, fw *framework.Framework) string {
	p := s.Patient
	var b strings.Builder

	if s.VisitType == session.VisitWellChild {
		fmt.Fprintf(&b, "You are starting a well-child visit with a %s.\n\n", s.LearnerLevel)
		fmt.Fprintf(&b, "%s is a %s old %s here for the %s. The parent, %s, is %s.\n\n",
			p.Name, p.AgeDisplay(), p.Sex, fw.Topic, p.ParentName, p.ParentStyle)
		b.WriteString("Open the encounter:\n")
		b.WriteString("1. Set the scene briefly as the attending.\n")
		b.WriteString("2. Speak as the parent bringing the child in for the check-up.\n")
		b.WriteString("3. Mention a parent concern if there is one, otherwise say things are going well.\n")
		b.WriteString("4. End by inviting the learner to lead the visit.\n\n")
		b.WriteString("No chief complaint. At most 3 or 4 sentences from the parent.")
		return b.String()
	}

	fmt.Fprintf(&b, "You are starting a new case with a %s.\n\n", s.LearnerLevel)
	fmt.Fprintf(&b, "%s is a %s old %s. The parent, %s, brings them in saying:\n\n%q\n\n",
		p.Name, p.AgeDisplay(), p.Sex, p.ParentName, p.ChiefComplaint)
	b.WriteString("Open the encounter:\n")
	b.WriteString("1. Set the scene briefly as the attending.\n")
	b.WriteString("2. Speak as the parent and give the chief complaint in their voice.\n")
	b.WriteString("3. End by inviting the learner to take the lead.\n\n")
	b.WriteString("Keep it conversational and low pressure. At most 3 or 4 sentences from the parent.")
	return b.String()
}

// fallbackOpening is used when the model cannot produce an opening.
func fallbackOpening(s *session.Session, fw *framework.Framework) string {
	p := s.Patient
	if s.VisitType == session.VisitWellChild {
		return fmt.Sprintf("[Attending] You're seeing %s, %s, for the %s.\n\n"+
			"%s: Hi! We're here for the check-up. Things have mostly been going well. Where would you like to start?",
			p.Name, p.AgeDisplay(), fw.Topic, p.ParentName)
	}
	return fmt.Sprintf("[Attending] You're seeing %s, a %s old %s. The parent is with them.\n\n%s: %s",
		p.Name, p.AgeDisplay(), p.Sex, p.ParentName, p.ChiefComplaint)
}

func reached(s *session.Session, p session.Phase) bool {
	return s.VisitType.Rank(s.Phase) >= s.VisitType.Rank(p)
}

func styleDescription(fw *framework.Framework, key string) string {
	for _, st := range fw.ParentStyles {
		if st.Key == key && st.Description != "" {
			return st.Description
		}
	}
	if key == "" {
		return "concerned"
	}
	return key
}

func writeVitals(b *strings.Builder, v patient.Vitals) {
	fmt.Fprintf(b, "- Vitals: Temp %.1f°F, HR %d, RR %d, SpO2 %d%%\n", v.TempF, v.HeartRate, v.RespiratoryRate, v.SpO2)
}

func writeSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func writeImages(b *strings.Builder, fw *framework.Framework, phase session.Phase) {
	imgs := fw.ImagesForPhase(string(phase))
	if len(imgs) == 0 {
		return
	}
	b.WriteString("\n### Images Shown in This Phase\n")
	for _, img := range imgs {
		fmt.Fprintf(b, "- %s (%s)\n", img.Caption, img.URL)
	}
	b.WriteString("You may refer to what the image shows.\n")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
