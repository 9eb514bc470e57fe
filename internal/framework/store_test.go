package framework

import (
	"errors"
	"math/rand/v2"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func loadBuiltin(t *testing.T) *Store {
	t.Helper()
	s, err := LoadBuiltin(t.Context(), nil)
	require.NoError(t, err)
	return s
}

func TestLoadBuiltin_Croup(t *testing.T) {
	s := loadBuiltin(t)

	fw, ok := s.Get("croup")
	require.True(t, ok)
	assert.Equal(t, "Croup", fw.Topic)
	assert.Equal(t, AgeRange{Min: 6, Max: 36}, fw.AgeRange)
	assert.Equal(t, "respiratory", fw.Category)
	assert.Equal(t, []string{"anxious", "experienced", "minimizer"}, fw.StyleKeys())
	assert.NotEmpty(t, fw.TeachingGoals)
	assert.NotEmpty(t, fw.RedFlags)
	assert.False(t, fw.IsWellChild())

	assert.Equal(t, AgeRange{Min: 12, Max: 24}, fw.Demographics.AgeMonths.PeakRange())
	assert.InDelta(t, 0.6, fw.Demographics.GenderBias.MaleProbability(), 1e-9)
	require.NotEmpty(t, fw.Presentation.Symptoms)
	assert.Equal(t, SymptomEntry{Name: "barky cough", Probability: 1.0}, fw.Presentation.Symptoms[0])
}

func TestLoadBuiltin_SkipsUnderscoreFiles(t *testing.T) {
	s := loadBuiltin(t)
	_, ok := s.Get("_template")
	assert.False(t, ok)
}

func TestLoadBuiltin_WellChild(t *testing.T) {
	s := loadBuiltin(t)

	visits := s.WellChildVisits()
	require.NotEmpty(t, visits)
	for i := 1; i < len(visits); i++ {
		assert.Less(t, visits[i-1].VisitAgeMonths, visits[i].VisitAgeMonths)
	}

	fw, err := s.WellChildForAge(12)
	require.NoError(t, err)
	assert.Equal(t, "well_child_12mo", fw.Key)
	assert.True(t, fw.IsWellChild())
	assert.Contains(t, fw.MilestoneDomains(), "language")
	assert.Contains(t, fw.ImmunizationsDue, "MMR")
	assert.NotEmpty(t, fw.PossibleFindings)
	assert.Equal(t, []string{"parent asking about switching to cow's milk"}, fw.StyleKeys()[2:])

	_, err = s.WellChildForAge(7)
	assert.True(t, errors.Is(err, ErrUnknownCondition))
}

func TestListConditions_ExcludesWellChild(t *testing.T) {
	s := loadBuiltin(t)
	for _, c := range s.ListConditions() {
		assert.NotEqual(t, CategoryWellChild, c.Category, c.Key)
	}
	assert.Contains(t, s.Keys(), "croup")
}

func TestFind(t *testing.T) {
	s := loadBuiltin(t)

	tests := []struct {
		name    string
		want    string
		wantHit bool
	}{
		{"croup", "croup", true},
		{"Acute Otitis Media", "acute_otitis_media", true},
		{"acute-otitis-media", "acute_otitis_media", true},
		{"RSV", "bronchiolitis", true},
		{"strep throat", "strep_pharyngitis", true},
		{"Streptococcal Pharyngitis", "strep_pharyngitis", true},
		{"kawasaki", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fw, ok := s.Find(tt.name)
			require.Equal(t, tt.wantHit, ok)
			if ok {
				assert.Equal(t, tt.want, fw.Key)
			}
		})
	}
}

func TestLookup_UnknownCondition(t *testing.T) {
	s := loadBuiltin(t)
	_, err := s.Lookup("scurvy")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCondition)
}

func TestForAge(t *testing.T) {
	s := loadBuiltin(t)
	keys := map[string]bool{}
	for _, fw := range s.ForAge(3) {
		keys[fw.Key] = true
	}
	assert.True(t, keys["bronchiolitis"])
	assert.False(t, keys["croup"])
	assert.False(t, keys["strep_pharyngitis"])
}

func TestRandom(t *testing.T) {
	s := loadBuiltin(t)
	r := rand.New(rand.NewPCG(1, 2))

	for range 20 {
		fw, err := s.Random(r, "")
		require.NoError(t, err)
		assert.False(t, fw.IsWellChild())
	}

	fw, err := s.Random(r, "ent")
	require.NoError(t, err)
	assert.Equal(t, "acute_otitis_media", fw.Key)

	_, err = s.Random(r, "cardiology")
	assert.ErrorIs(t, err, ErrUnknownCondition)
}

func TestTeachingContext_FiltersPlaceholderImages(t *testing.T) {
	s := loadBuiltin(t)
	fw, _ := s.Get("croup")

	ctx := fw.TeachingContext()
	for _, img := range ctx.Images {
		assert.NotEqual(t, PlaceholderURL, img.URL)
	}
	assert.Len(t, ctx.Images, 1)
	assert.Len(t, fw.ImagesForPhase("exam"), 1)
	assert.Empty(t, fw.ImagesForPhase("history"))
}

func TestLoad_MapFS(t *testing.T) {
	fsys := fstest.MapFS{
		"otitis.yaml": {Data: []byte(`
topic: Otitis
category: ent
aliases: [Ear Ache]
parent_styles: [calm, "worried"]
presentation:
  symptoms:
    - ear pain
    - {name: fever}
  physical_exam:
    - {finding: red TM}
`)},
		"broken.yaml":   {Data: []byte("topic: [unclosed")},
		"notopic.yaml":  {Data: []byte("category: ent")},
		"badrange.yaml": {Data: []byte("topic: X\nage_range_months: [10, 2]")},
		"_draft.yaml":   {Data: []byte("topic: Draft")},
		"readme.md":     {Data: []byte("# not a framework")},
	}

	s, err := Load(t.Context(), fsys, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"otitis"}, s.Keys())

	fw, ok := s.Find("ear ache")
	require.True(t, ok)
	assert.Equal(t, DefaultAgeRange, fw.AgeRange)
	assert.Equal(t, []string{"calm", "worried"}, fw.StyleKeys())
	assert.Equal(t, SymptomEntry{Name: "ear pain", Probability: 1}, fw.Presentation.Symptoms[0])
	assert.Equal(t, SymptomEntry{Name: "fever", Probability: 0.5}, fw.Presentation.Symptoms[1])
	assert.Equal(t, ExamEntry{System: "general", Finding: "red TM", Probability: 0.8}, fw.Presentation.PhysicalExam[0])
	assert.Equal(t, []string{"ent"}, s.Categories())
}

func TestAgeRange(t *testing.T) {
	r := AgeRange{Min: 6, Max: 36}
	assert.True(t, r.Contains(6))
	assert.True(t, r.Contains(36))
	assert.False(t, r.Contains(37))

	got, ok := r.Intersect(AgeRange{Min: 12, Max: 36})
	assert.True(t, ok)
	assert.Equal(t, AgeRange{Min: 12, Max: 36}, got)

	_, ok = r.Intersect(AgeRange{Min: 144, Max: 216})
	assert.False(t, ok)

	b, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "[6,36]", string(b))
}

func TestStore_SharedReadOnly(t *testing.T) {
	s := loadBuiltin(t)
	want := s.Keys()

	var g errgroup.Group
	for i := range 8 {
		g.Go(func() error {
			r := rand.New(rand.NewPCG(uint64(i), 1))
			for range 50 {
				if _, err := s.Random(r, ""); err != nil {
					return err
				}
				if _, ok := s.Find("croup"); !ok {
					return errors.New("croup not found")
				}
				s.ListConditions()
				s.WellChildVisits()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, want, s.Keys())
}
