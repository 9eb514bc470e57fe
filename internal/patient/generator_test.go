package patient

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/casetutor/internal/framework"
	"github.com/abhisek/casetutor/internal/llm"
)

func builtin(t *testing.T) *framework.Store {
	t.Helper()
	s, err := framework.LoadBuiltin(t.Context(), nil)
	require.NoError(t, err)
	return s
}

func seeded(seed uint64) Option {
	return WithRandSource(func() rand.Source { return rand.NewPCG(seed, seed+1) })
}

func TestCreateForKey_SeededIsReproducible(t *testing.T) {
	store := builtin(t)

	a, _, err := New(store, nil, DefaultConfig(), seeded(7)).CreateForKey(t.Context(), "croup", Variant{})
	require.NoError(t, err)
	b, _, err := New(store, nil, DefaultConfig(), seeded(7)).CreateForKey(t.Context(), "croup", Variant{})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	a.ID, b.ID = "", ""
	assert.Equal(t, a, b)
}

func TestCreateForKey_UnknownCondition(t *testing.T) {
	gen := New(builtin(t), nil, DefaultConfig())

	_, _, err := gen.CreateForKey(t.Context(), "dragon_pox", Variant{})
	assert.True(t, errors.Is(err, framework.ErrUnknownCondition))
}

func TestCreatePatient_InvalidVariant(t *testing.T) {
	store := builtin(t)
	fw, _ := store.Get("croup")
	gen := New(store, nil, DefaultConfig())

	_, err := gen.CreatePatient(t.Context(), fw, Variant{Severity: "critical"})
	assert.Error(t, err)
	_, err = gen.CreatePatient(t.Context(), fw, Variant{AgeBracket: "elderly"})
	assert.Error(t, err)
}

func TestCreatePatient_AgeFollowsPeakAndBracket(t *testing.T) {
	store := builtin(t)
	fw, _ := store.Get("croup")

	tests := []struct {
		name    string
		variant Variant
		want    framework.AgeRange
	}{
		{"peak band", Variant{}, framework.AgeRange{Min: 12, Max: 24}},
		{"infant narrowed to framework", Variant{AgeBracket: BracketInfant}, framework.AgeRange{Min: 6, Max: 12}},
		{"toddler", Variant{AgeBracket: BracketToddler}, framework.AgeRange{Min: 12, Max: 36}},
		{"no overlap keeps peak", Variant{AgeBracket: BracketAdolescent}, framework.AgeRange{Min: 12, Max: 24}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := range uint64(40) {
				gen := New(store, nil, DefaultConfig(), seeded(seed))
				p, err := gen.CreatePatient(t.Context(), fw, tt.variant)
				require.NoError(t, err)
				assert.True(t, tt.want.Contains(p.AgeMonths), "age %d outside %s", p.AgeMonths, tt.want)
			}
		})
	}
}

func TestCreatePatient_TableFields(t *testing.T) {
	store := builtin(t)
	fw, _ := store.Get("croup")

	for seed := range uint64(25) {
		p, err := New(store, nil, DefaultConfig(), seeded(seed)).CreatePatient(t.Context(), fw, Variant{})
		require.NoError(t, err)

		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "croup", p.ConditionKey)
		assert.Contains(t, fw.Presentation.ChiefComplaints, p.ChiefComplaint)
		assert.Contains(t, fw.StyleKeys(), p.ParentStyle)
		assert.Contains(t, p.Symptoms, "barky cough")
		assert.Contains(t, []Sex{Male, Female}, p.Sex)
		assert.Contains(t, firstNames[p.Sex], firstWord(p.Name))
		assert.Contains(t, parentNames, p.ParentName)
		assert.False(t, p.IsWellChild())
		assert.GreaterOrEqual(t, p.Vitals.TempF, 99.0)
		assert.LessOrEqual(t, p.Vitals.TempF, 101.5)
		assert.Equal(t, 132, p.Vitals.HeartRate)
		assert.Equal(t, 31, p.Vitals.RespiratoryRate)
		assert.Equal(t, 96, p.Vitals.SpO2)
	}
}

func TestCreatePatient_SeverityShiftsVitals(t *testing.T) {
	store := builtin(t)
	fw, _ := store.Get("croup")

	for seed := range uint64(25) {
		gen := New(store, nil, DefaultConfig(), seeded(seed))

		mild, err := gen.CreatePatient(t.Context(), fw, Variant{Severity: SeverityMild})
		require.NoError(t, err)
		severe, err := gen.CreatePatient(t.Context(), fw, Variant{Severity: SeveritySevere})
		require.NoError(t, err)

		assert.LessOrEqual(t, mild.Vitals.TempF, 100.25)
		assert.GreaterOrEqual(t, severe.Vitals.TempF, 100.25)
		assert.Equal(t, 98, mild.Vitals.SpO2)
		assert.Equal(t, 93, severe.Vitals.SpO2)
		assert.Equal(t, 121, mild.Vitals.HeartRate)
		assert.Equal(t, 143, severe.Vitals.HeartRate)
	}
}

func TestCreatePatient_AtypicalDropsClassicSymptom(t *testing.T) {
	store := builtin(t)
	fw, _ := store.Get("croup")

	for seed := range uint64(25) {
		gen := New(store, nil, DefaultConfig(), seeded(seed))
		p, err := gen.CreatePatient(t.Context(), fw, Variant{Presentation: PresentationAtypical})
		require.NoError(t, err)
		assert.NotContains(t, p.Symptoms, "barky cough")
		assert.NotEmpty(t, p.Symptoms)
	}
}

func TestPickSymptoms_NeverEmpty(t *testing.T) {
	entries := []framework.SymptomEntry{{Name: "fever", Probability: 0}, {Name: "cough", Probability: 0}}
	r := rand.New(rand.NewPCG(1, 2))

	got := pickSymptoms(entries, Variant{}, r)
	assert.Equal(t, []string{"fever"}, got)
}

func TestCreatePatient_ModelOutputMerged(t *testing.T) {
	store := builtin(t)
	fw, _ := store.Get("croup")

	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{
		"name": "Tomas Reyes",
		"age": 18,
		"age_unit": "months",
		"sex": "male",
		"weight_kg": 11.2,
		"chief_complaint": "He sounds like a seal and I'm scared.",
		"parent_name": "Lucia",
		"parent_style": "anxious",
		"symptoms": ["barky cough", "stridor"],
		"symptom_details": {"duration_days": 2, "severity": "moderate", "progression": "worsening"},
		"vitals": {"temp_f": 100.8, "heart_rate": 140, "respiratory_rate": 36, "spo2": 95},
		"exam_findings": [{"system": "respiratory", "finding": "stridor at rest"}],
		"relevant_history": ["born full term"],
		"social_context": "Lives with both parents and an older sister."
	}`)})
	gen := New(store, mock, DefaultConfig(), seeded(3))

	p, err := gen.CreatePatient(t.Context(), fw, Variant{Severity: SeverityModerate})
	require.NoError(t, err)

	assert.Equal(t, "Tomas Reyes", p.Name)
	assert.Equal(t, 18, p.AgeMonths)
	assert.Equal(t, "He sounds like a seal and I'm scared.", p.ChiefComplaint)
	assert.Equal(t, []string{"barky cough", "stridor"}, p.Symptoms)
	assert.Equal(t, 95, p.Vitals.SpO2)
	require.NotNil(t, p.SymptomDetails)
	assert.Equal(t, "worsening", p.SymptomDetails.Progression)
	assert.Equal(t, "croup", p.ConditionKey)
	assert.Equal(t, SeverityModerate, p.Variant.Severity)

	call, ok := mock.LastCall()
	require.True(t, ok)
	assert.Equal(t, SickPatientSchema, call.Schema)
	assert.Equal(t, 1024, call.MaxTokens)
	assert.Contains(t, call.Messages[0].Content, "Severity: moderate")
}

func TestCreatePatient_FallsBackOnBadModelOutput(t *testing.T) {
	store := builtin(t)
	fw, _ := store.Get("croup")

	tests := []struct {
		name string
		resp llm.MockResponse
	}{
		{"prose", llm.MockText("I'd be happy to help create a patient!")},
		{"missing name", llm.MockResponse{Content: json.RawMessage(`{"chief_complaint": "cough"}`)}},
		{"provider error", llm.MockResponse{Err: &llm.ErrProviderUnavailable{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := New(store, nil, DefaultConfig(), seeded(11)).CreatePatient(t.Context(), fw, Variant{})
			require.NoError(t, err)

			gen := New(store, llm.NewMockProvider(tt.resp), DefaultConfig(), seeded(11))
			got, err := gen.CreatePatient(t.Context(), fw, Variant{})
			require.NoError(t, err)

			got.ID, want.ID = "", ""
			assert.Equal(t, want, got)
		})
	}
}

func TestCreateRandom_Category(t *testing.T) {
	gen := New(builtin(t), nil, DefaultConfig(), seeded(5))

	p, fw, err := gen.CreateRandom(t.Context(), "ent", Variant{})
	require.NoError(t, err)
	assert.Equal(t, "acute_otitis_media", fw.Key)
	assert.Equal(t, fw.Key, p.ConditionKey)

	_, _, err = gen.CreateRandom(t.Context(), "dermatology", Variant{})
	assert.True(t, errors.Is(err, framework.ErrUnknownCondition))
}

func TestCreateWellChild_Tables(t *testing.T) {
	gen := New(builtin(t), nil, DefaultConfig(), seeded(9))

	p, fw, err := gen.CreateWellChild(t.Context(), 6)
	require.NoError(t, err)

	assert.True(t, p.IsWellChild())
	assert.Equal(t, 6, *p.VisitAgeMonths)
	assert.Equal(t, 6, p.Age)
	assert.Equal(t, "months", p.AgeUnit)
	assert.Empty(t, p.Symptoms)
	assert.Empty(t, p.ChiefComplaint)
	require.NotNil(t, p.GrowthData)
	assert.Equal(t, "stable", p.GrowthData.WeightTrend)
	require.NotNil(t, p.Milestones)
	assert.Equal(t, fw.ExpectedMilestones["language"], p.Milestones.Language)
	assert.Equal(t, 98.6, p.Vitals.TempF)
	assert.Contains(t, fw.StyleKeys(), p.ParentStyle)
	if p.IncidentalFinding != nil {
		assert.True(t, slices.ContainsFunc(fw.PossibleFindings, func(f framework.IncidentalFinding) bool {
			return f.Key == p.IncidentalFinding.Key
		}))
	}
}

func TestCreateWellChild_UnknownAge(t *testing.T) {
	gen := New(builtin(t), nil, DefaultConfig())

	_, _, err := gen.CreateWellChild(t.Context(), 7)
	assert.True(t, errors.Is(err, framework.ErrUnknownCondition))
}

func TestCreateWellChild_ModelOutput(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage("```json\n" + `{
		"name": "Nia Okafor",
		"sex": "female",
		"weight_kg": 7.6,
		"parent_name": "Ada",
		"parent_style": "eager parent asking about solid foods",
		"growth_data": {"weight_percentile": 45, "length_percentile": 50, "head_circumference_percentile": 40, "weight_trend": "crossing_down", "previous_weight_percentile": 70},
		"milestones": {"gross_motor": ["rolls"], "fine_motor": [], "language": ["babbles"], "social_emotional": [], "cognitive": [], "concerns": ["not yet sitting with support"]},
		"immunization_history": ["Hep B x2", "DTaP x2"],
		"vitals": {"temp_f": 98.4, "heart_rate": 128, "respiratory_rate": 32, "spo2": 99},
		"exam_findings": [{"system": "hips", "finding": "negative Ortolani"}],
		"parent_concerns": ["When can she have water?"],
		"social_context": "Attends daycare three days a week."
	}` + "\n```")})
	gen := New(builtin(t), mock, DefaultConfig(), seeded(2))

	p, _, err := gen.CreateWellChild(t.Context(), 6)
	require.NoError(t, err)

	assert.Equal(t, "Nia Okafor", p.Name)
	assert.Equal(t, "crossing_down", p.GrowthData.WeightTrend)
	assert.Equal(t, []string{"not yet sitting with support"}, p.Milestones.Concerns)
	assert.Equal(t, []string{"When can she have water?"}, p.ParentConcerns)
	assert.Equal(t, 6, *p.VisitAgeMonths)

	call, _ := mock.LastCall()
	assert.Equal(t, WellChildPatientSchema, call.Schema)
	assert.Contains(t, call.Messages[0].Content, "Visit age: 6 months")
}

func TestRollIncidental_FirstPassingRollWins(t *testing.T) {
	r := rand.New(rand.NewPCG(4, 5))
	findings := []framework.IncidentalFinding{
		{Key: "never", Probability: 0},
		{Key: "always", Probability: 1},
		{Key: "also", Probability: 1},
	}

	got := rollIncidental(findings, r)
	require.NotNil(t, got)
	assert.Equal(t, "always", got.Key)

	assert.Nil(t, rollIncidental(findings[:1], r))
	assert.Nil(t, rollIncidental(nil, r))
}

func TestExpectedWeight(t *testing.T) {
	tests := []struct {
		months int
		want   float64
	}{
		{0, 3.5},
		{6, 6.5},
		{12, 9},
		{24, 11.4},
		{60, 18.6},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, expectedWeight(tt.months), 1e-9, "months=%d", tt.months)
	}
}

func TestAgeUnits(t *testing.T) {
	n, unit := ageUnits(0)
	assert.Equal(t, 1, n)
	assert.Equal(t, "weeks", unit)

	n, unit = ageUnits(18)
	assert.Equal(t, 18, n)
	assert.Equal(t, "months", unit)

	n, unit = ageUnits(30)
	assert.Equal(t, 2, n)
	assert.Equal(t, "years", unit)

	p := &Patient{Age: 1, AgeUnit: "months"}
	assert.Equal(t, "1 month", p.AgeDisplay())
}

func TestVariantValidate(t *testing.T) {
	assert.NoError(t, Variant{}.Validate())
	assert.NoError(t, Variant{Severity: SeveritySevere, AgeBracket: BracketChild, Presentation: PresentationLate, Complexity: ComplexityNuanced}.Validate())
	assert.Error(t, Variant{Presentation: "weird"}.Validate())
	assert.Error(t, Variant{Complexity: "impossible"}.Validate())
}

func firstWord(s string) string {
	for i, c := range s {
		if c == ' ' {
			return s[:i]
		}
	}
	return s
}
