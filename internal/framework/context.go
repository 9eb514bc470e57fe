package framework

// TeachingContext is the subset of a framework the prompt builders use.
// Images with placeholder URLs are left out.
type TeachingContext struct {
	Topic               string
	TeachingGoals       []string
	CommonMistakes      []string
	RedFlags            []string
	ClinicalPearls      []string
	KeyHistoryQuestions []string
	KeyExamFindings     []string
	TreatmentPrinciples []string
	DispositionGuidance []string
	ParentStyles        []string
	Images              []Image
}

// TeachingContext builds the prompt view of f.
func (f *Framework) TeachingContext() TeachingContext {
	return TeachingContext{
		Topic:               f.Topic,
		TeachingGoals:       f.TeachingGoals,
		CommonMistakes:      f.CommonMistakes,
		RedFlags:            f.RedFlags,
		ClinicalPearls:      f.ClinicalPearls,
		KeyHistoryQuestions: f.KeyHistoryQuestions,
		KeyExamFindings:     f.KeyExamFindings,
		TreatmentPrinciples: f.TreatmentPrinciples,
		DispositionGuidance: f.DispositionGuidance,
		ParentStyles:        f.StyleKeys(),
		Images:              f.UsableImages(),
	}
}

// UsableImages returns images that point at a real asset.
func (f *Framework) UsableImages() []Image {
	var out []Image
	for _, img := range f.Images {
		if img.URL != "" && img.URL != PlaceholderURL {
			out = append(out, img)
		}
	}
	return out
}

// ImagesForPhase returns the usable images tagged with phase.
func (f *Framework) ImagesForPhase(phase string) []Image {
	var out []Image
	for _, img := range f.UsableImages() {
		if img.Phase == phase {
			out = append(out, img)
		}
	}
	return out
}
