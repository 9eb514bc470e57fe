package patient

import (
	"fmt"
	"strings"

	"github.com/abhisek/casetutor/internal/framework"
)

const sickSystemPrompt = `You create realistic synthetic pediatric patients for clinical teaching cases.

Rules:
- The patient must be consistent with the condition, age guidance and variant parameters given.
- The chief complaint is what the parent says on arrival, in their own voice.
- Vitals must be plausible for the age and severity.
- Prefer realistic variation over the most classic textbook presentation.
- Include a few normal findings alongside the abnormal ones.
- Never name the diagnosis in anything the parent says.
- Respond with JSON only.`

const wellChildSystemPrompt = `You create realistic synthetic healthy children for well-child visit teaching cases.

Rules:
- The child is healthy and mostly developing normally, with natural variation.
- Milestones met should be drawn from the expected list; list any unmet ones under concerns.
- Vitals must be normal for the age.
- Include 4 to 6 exam systems with mostly normal findings.
- If an incidental finding is given, plant subtle clues without making it obvious.
- Respond with JSON only.`

// sickUserMessage describes the condition and variant the model should
// build a patient for.
func sickUserMessage(fw *framework.Framework, v Variant, base *Patient) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Condition: %s\n", fw.Topic)
	fmt.Fprintf(&b, "Category: %s\n", fw.Category)

	ageGuidance := fw.AgeRange.String()
	if r, ok := v.AgeBracket.Range(); ok {
		ageGuidance = fmt.Sprintf("%s (%s)", r, v.AgeBracket)
	}
	fmt.Fprintf(&b, "Age guidance: %s\n", ageGuidance)
	fmt.Fprintf(&b, "Parent styles: %s\n", strings.Join(fw.StyleKeys(), ", "))

	b.WriteString("\nVariant:\n")
	fmt.Fprintf(&b, "- Severity: %s\n", orChoice(string(v.Severity), "your choice"))
	fmt.Fprintf(&b, "- Presentation: %s\n", orChoice(string(v.Presentation), "typical or atypical"))
	fmt.Fprintf(&b, "- Complexity: %s\n", orChoice(string(v.Complexity), "straightforward"))

	b.WriteString("\nTeaching goals:\n")
	writeList(&b, fw.TeachingGoals)
	b.WriteString("\nCommon learner mistakes:\n")
	writeList(&b, fw.CommonMistakes)
	if len(fw.RedFlags) > 0 {
		b.WriteString("\nRed flags you may include:\n")
		writeList(&b, fw.RedFlags[:min(2, len(fw.RedFlags))])
	}

	fmt.Fprintf(&b, "\nSuggested starting point: %s, %s, %.1f kg, parent %s.\n",
		base.AgeDisplay(), base.Sex, base.WeightKg, base.ParentName)
	return b.String()
}

func wellChildUserMessage(fw *framework.Framework, incidental *framework.IncidentalFinding) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Visit: %s\n", fw.Topic)
	fmt.Fprintf(&b, "Visit age: %d months\n", *fw.VisitAgeMonths)
	fmt.Fprintf(&b, "Parent styles: %s\n", strings.Join(fw.StyleKeys(), ", "))

	b.WriteString("\nExpected milestones:\n")
	for _, domain := range fw.MilestoneDomains() {
		fmt.Fprintf(&b, "- %s: %s\n", domain, strings.Join(fw.ExpectedMilestones[domain], "; "))
	}

	b.WriteString("\nImmunizations due:\n")
	writeList(&b, fw.ImmunizationsDue)

	if incidental != nil {
		b.WriteString("\nIncidental finding to plant:\n")
		fmt.Fprintf(&b, "- %s\n", incidental.Description)
		b.WriteString("It should surface during the exam or when the parent asks questions.\n")
	}
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("None\n")
		return
	}
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func orChoice(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
