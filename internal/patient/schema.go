package patient

import "github.com/abhisek/casetutor/internal/llm"

var vitalsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"temp_f":           map[string]any{"type": "number"},
		"heart_rate":       map[string]any{"type": "integer"},
		"respiratory_rate": map[string]any{"type": "integer"},
		"spo2":             map[string]any{"type": "integer", "minimum": 70, "maximum": 100},
	},
	"required": []any{"temp_f", "heart_rate", "respiratory_rate", "spo2"},
}

var examFindingsSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"system":  map[string]any{"type": "string"},
			"finding": map[string]any{"type": "string"},
		},
		"required": []any{"system", "finding"},
	},
}

var stringList = map[string]any{
	"type":  "array",
	"items": map[string]any{"type": "string"},
}

// SickPatientSchema is the JSON contract for a model-generated sick-visit
// patient.
var SickPatientSchema = &llm.Schema{
	Name:        "sick-patient",
	Description: "A synthetic pediatric patient presenting with an acute illness",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":            map[string]any{"type": "string", "minLength": 1},
			"age":             map[string]any{"type": "integer", "minimum": 0},
			"age_unit":        map[string]any{"type": "string", "enum": []any{"days", "weeks", "months", "years"}},
			"sex":             map[string]any{"type": "string", "enum": []any{"male", "female"}},
			"weight_kg":       map[string]any{"type": "number", "exclusiveMinimum": 0},
			"chief_complaint": map[string]any{"type": "string", "minLength": 1},
			"parent_name":     map[string]any{"type": "string"},
			"parent_style":    map[string]any{"type": "string"},
			"symptoms":        stringList,
			"symptom_details": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"duration_days": map[string]any{"type": "integer"},
					"severity":      map[string]any{"type": "string", "enum": []any{"mild", "moderate", "severe"}},
					"progression":   map[string]any{"type": "string", "enum": []any{"improving", "stable", "worsening"}},
				},
			},
			"vitals":           vitalsSchema,
			"exam_findings":    examFindingsSchema,
			"relevant_history": stringList,
			"social_context":   map[string]any{"type": "string"},
		},
		"required": []any{"name", "age", "age_unit", "sex", "weight_kg", "chief_complaint", "parent_name", "parent_style", "symptoms", "vitals", "exam_findings"},
	},
}

// WellChildPatientSchema is the JSON contract for a model-generated
// well-child patient.
var WellChildPatientSchema = &llm.Schema{
	Name:        "well-child-patient",
	Description: "A synthetic healthy child attending a routine visit",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":         map[string]any{"type": "string", "minLength": 1},
			"sex":          map[string]any{"type": "string", "enum": []any{"male", "female"}},
			"weight_kg":    map[string]any{"type": "number", "exclusiveMinimum": 0},
			"parent_name":  map[string]any{"type": "string"},
			"parent_style": map[string]any{"type": "string"},
			"growth_data": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"weight_percentile":             map[string]any{"type": "integer", "minimum": 1, "maximum": 99},
					"length_percentile":             map[string]any{"type": "integer", "minimum": 1, "maximum": 99},
					"head_circumference_percentile": map[string]any{"type": "integer", "minimum": 1, "maximum": 99},
					"weight_trend":                  map[string]any{"type": "string", "enum": []any{"stable", "crossing_up", "crossing_down"}},
					"previous_weight_percentile":    map[string]any{"type": "integer", "minimum": 1, "maximum": 99},
				},
				"required": []any{"weight_percentile", "length_percentile", "weight_trend"},
			},
			"milestones": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"gross_motor":      stringList,
					"fine_motor":       stringList,
					"language":         stringList,
					"social_emotional": stringList,
					"cognitive":        stringList,
					"concerns":         stringList,
				},
			},
			"immunization_history": stringList,
			"vitals":               vitalsSchema,
			"exam_findings":        examFindingsSchema,
			"parent_concerns":      stringList,
			"social_context":       map[string]any{"type": "string"},
		},
		"required": []any{"name", "sex", "weight_kg", "parent_name", "parent_style", "growth_data", "milestones", "vitals", "exam_findings"},
	},
}
