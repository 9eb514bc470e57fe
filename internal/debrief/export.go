package debrief

import (
	"time"

	"github.com/abhisek/casetutor/internal/framework"
	"github.com/abhisek/casetutor/internal/session"
)

// LearningMaterials is the study pack attached to an exported case.
type LearningMaterials struct {
	TeachingGoals  []string             `json:"teaching_goals"`
	ClinicalPearls []string             `json:"clinical_pearls"`
	CommonMistakes []string             `json:"common_mistakes"`
	RedFlags       []string             `json:"red_flags"`
	ReadingList    []framework.Resource `json:"reading_list"`
}

// CaseExport is the full record of a completed case.
type CaseExport struct {
	ExportedAt        time.Time         `json:"exported_at"`
	Session           *session.Session  `json:"session"`
	Debrief           *Debrief          `json:"debrief,omitempty"`
	LearningMaterials LearningMaterials `json:"learning_materials"`
}

// genericReading is used when a framework has no reading list.
var genericReading = []framework.Resource{
	{Title: "Bright Futures Guidelines", Source: "AAP", URL: "https://brightfutures.aap.org"},
	{Title: "Clinical Practice Guidelines", Source: "AAP", URL: "https://publications.aap.org/pediatrics/pages/aap-clinical-practice-guidelines"},
	{Title: "Nelson Textbook of Pediatrics", Source: "Elsevier"},
}

// Export bundles s, its debrief and the framework's learning materials.
func Export(s *session.Session, fw *framework.Framework, d *Debrief, now time.Time) *CaseExport {
	reading := fw.ReadingList
	if len(reading) == 0 {
		reading = genericReading
	}
	return &CaseExport{
		ExportedAt: now,
		Session:    s,
		Debrief:    d,
		LearningMaterials: LearningMaterials{
			TeachingGoals:  nonNil(fw.TeachingGoals),
			ClinicalPearls: nonNil(fw.ClinicalPearls),
			CommonMistakes: nonNil(fw.CommonMistakes),
			RedFlags:       nonNil(fw.RedFlags),
			ReadingList:    reading,
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
