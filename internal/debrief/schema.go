package debrief

import "github.com/abhisek/casetutor/internal/llm"

var stringArray = map[string]any{
	"type":  "array",
	"items": map[string]any{"type": "string"},
}

var domainScore = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"score":    map[string]any{"type": "integer", "minimum": 0, "maximum": 10},
		"feedback": map[string]any{"type": "string"},
	},
	"required": []any{"score", "feedback"},
}

func debriefProperties(wellChild bool) map[string]any {
	props := map[string]any{
		"summary":               map[string]any{"type": "string", "minLength": 1},
		"strengths":             stringArray,
		"areas_for_improvement": stringArray,
		"missed_items":          stringArray,
		"teaching_points":       stringArray,
		"follow_up_resources":   stringArray,
	}
	if wellChild {
		props["well_child_scores"] = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"growth_interpretation":  domainScore,
				"milestone_assessment":   domainScore,
				"exam_thoroughness":      domainScore,
				"anticipatory_guidance":  domainScore,
				"immunization_knowledge": domainScore,
				"communication_skill":    domainScore,
			},
			"required": []any{
				"growth_interpretation", "milestone_assessment", "exam_thoroughness",
				"anticipatory_guidance", "immunization_knowledge", "communication_skill",
			},
		}
	}
	return props
}

var baseRequired = []any{"summary", "strengths", "areas_for_improvement", "missed_items", "teaching_points", "follow_up_resources"}

// SickDebriefSchema is the JSON contract for a sick-visit debrief.
var SickDebriefSchema = &llm.Schema{
	Name:        "sick-visit-debrief",
	Description: "Structured feedback on a completed sick-visit case",
	Definition: map[string]any{
		"type":       "object",
		"properties": debriefProperties(false),
		"required":   baseRequired,
	},
}

// WellChildDebriefSchema adds the six domain scores.
var WellChildDebriefSchema = &llm.Schema{
	Name:        "well-child-debrief",
	Description: "Structured feedback and domain scores for a completed well-child visit",
	Definition: map[string]any{
		"type":       "object",
		"properties": debriefProperties(true),
		"required":   append(append([]any{}, baseRequired...), "well_child_scores"),
	},
}

// AnswerSchema is the JSON contract for a post-debrief answer.
var AnswerSchema = &llm.Schema{
	Name:        "debrief-answer",
	Description: "An answer to a follow-up question about a completed case",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer":                  map[string]any{"type": "string", "minLength": 1},
			"related_teaching_points": stringArray,
		},
		"required": []any{"answer", "related_teaching_points"},
	},
}
