package patient

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/casetutor/internal/framework"
	"github.com/abhisek/casetutor/internal/llm"
)

// ErrNoWellChildVisit is returned for a well-child framework that has no
// visit age.
var ErrNoWellChildVisit = errors.New("framework has no well-child visit age")

// Config controls model-backed generation.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the standard generation settings.
func DefaultConfig() Config {
	return Config{MaxTokens: 1024, Temperature: 0.9}
}

// Generator creates patients from frameworks. With a nil provider it uses
// the probability tables only; otherwise it asks the model and falls back
// to the tables when the model fails or returns unusable output.
type Generator struct {
	frameworks *framework.Store
	provider   llm.Provider
	config     Config
	log        *zap.Logger
	newRand    func() *rand.Rand
}

// Option customizes a Generator.
type Option func(*Generator)

// WithRandSource makes every call draw from a source built by fn. Tests use
// it for reproducible patients.
func WithRandSource(fn func() rand.Source) Option {
	return func(g *Generator) {
		g.newRand = func() *rand.Rand { return rand.New(fn()) }
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(g *Generator) { g.log = log }
}

// New creates a Generator over the given framework store.
func New(frameworks *framework.Store, provider llm.Provider, cfg Config, opts ...Option) *Generator {
	g := &Generator{
		frameworks: frameworks,
		provider:   provider,
		config:     cfg,
		log:        zap.NewNop(),
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreateForKey generates a patient for the framework with the given key.
// Unknown keys fail with framework.ErrUnknownCondition.
func (g *Generator) CreateForKey(ctx context.Context, key string, v Variant) (*Patient, *framework.Framework, error) {
	fw, err := g.frameworks.Lookup(key)
	if err != nil {
		return nil, nil, err
	}
	p, err := g.CreatePatient(ctx, fw, v)
	return p, fw, err
}

// CreateRandom picks a sick-visit framework, optionally within category,
// and generates a patient for it.
func (g *Generator) CreateRandom(ctx context.Context, category string, v Variant) (*Patient, *framework.Framework, error) {
	fw, err := g.frameworks.Random(g.newRand(), category)
	if err != nil {
		return nil, nil, err
	}
	p, err := g.CreatePatient(ctx, fw, v)
	return p, fw, err
}

// CreateWellChild generates a patient for the well-child visit at the
// given age in months.
func (g *Generator) CreateWellChild(ctx context.Context, visitAgeMonths int) (*Patient, *framework.Framework, error) {
	fw, err := g.frameworks.WellChildForAge(visitAgeMonths)
	if err != nil {
		return nil, nil, err
	}
	p, err := g.CreatePatient(ctx, fw, Variant{})
	return p, fw, err
}

// CreatePatient generates a patient for fw. Model failures never surface;
// they are logged and replaced by a table-driven patient.
func (g *Generator) CreatePatient(ctx context.Context, fw *framework.Framework, v Variant) (*Patient, error) {
	if fw == nil {
		return nil, fmt.Errorf("%w: nil framework", framework.ErrUnknownCondition)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	r := g.newRand()
	if fw.IsWellChild() {
		if fw.VisitAgeMonths == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoWellChildVisit, fw.Key)
		}
		return g.createWellChild(ctx, fw, r), nil
	}

	base := buildSick(fw, v, r)
	if g.provider == nil {
		return base, nil
	}

	p, err := g.generateSick(ctx, fw, v, base)
	if err != nil {
		g.log.Warn("patient generation fell back to tables",
			zap.String("condition", fw.Key), zap.Error(err))
		return base, nil
	}
	return p, nil
}

// buildSick draws a sick-visit patient from the framework's probability
// tables.
func buildSick(fw *framework.Framework, v Variant, r *rand.Rand) *Patient {
	ageMonths := pickAge(fw, v, r)
	age, unit := ageUnits(ageMonths)

	sex := Female
	if r.Float64() < fw.Demographics.GenderBias.MaleProbability() {
		sex = Male
	}

	complaint := fmt.Sprintf("My child has %s", fw.Name())
	if cc := fw.Presentation.ChiefComplaints; len(cc) > 0 {
		complaint = cc[r.IntN(len(cc))]
	}

	return &Patient{
		ID:               uuid.NewString(),
		Name:             pick(firstNames[sex], r) + " " + pick(lastNames, r),
		Age:              age,
		AgeUnit:          unit,
		AgeMonths:        ageMonths,
		Sex:              sex,
		WeightKg:         expectedWeight(ageMonths),
		ChiefComplaint:   complaint,
		ParentName:       pick(parentNames, r),
		ParentStyle:      pickStyle(fw, r),
		ConditionKey:     fw.Key,
		ConditionDisplay: fw.Name(),
		Symptoms:         pickSymptoms(fw.Presentation.Symptoms, v, r),
		Vitals:           sickVitals(fw.VitalsImpact, ageMonths, v.Severity, r),
		ExamFindings:     pickFindings(fw.Presentation.PhysicalExam, v, r),
		Variant:          v,
	}
}

// pickAge draws from the condition's peak band, narrowed to the requested
// age bracket when the two overlap.
func pickAge(fw *framework.Framework, v Variant, r *rand.Rand) int {
	span := fw.AgeRange
	if d := fw.Demographics.AgeMonths; d.Max > 0 {
		span = d.PeakRange()
	}
	if bracket, ok := v.AgeBracket.Range(); ok {
		if narrowed, ok := bracket.Intersect(fw.AgeRange); ok {
			span = narrowed
		}
	}
	return span.Min + r.IntN(span.Max-span.Min+1)
}

// expectedWeight approximates weight: about 0.5 kg/month in the first year
// and 0.2 kg/month after.
func expectedWeight(months int) float64 {
	var kg float64
	if months < 12 {
		kg = 3.5 + float64(months)*0.5
	} else {
		kg = 9 + float64(months-12)*0.2
	}
	return math.Round(kg*10) / 10
}

func pickStyle(fw *framework.Framework, r *rand.Rand) string {
	if len(fw.ParentStyles) == 0 {
		return "anxious"
	}
	return fw.ParentStyles[r.IntN(len(fw.ParentStyles))].Key
}

func pickSymptoms(entries []framework.SymptomEntry, v Variant, r *rand.Rand) []string {
	factor := v.probabilityFactor()
	skip := -1
	if v.Presentation == PresentationAtypical {
		skip = mostLikely(entries)
	}

	out := []string{}
	for i, e := range entries {
		if i == skip {
			continue
		}
		if r.Float64() < math.Min(e.Probability*factor, 1) {
			out = append(out, e.Name)
		}
	}
	if len(out) == 0 && len(entries) > 0 {
		// A case with no symptoms cannot be worked up.
		i := mostLikely(entries)
		if i == skip && len(entries) > 1 {
			i = (i + 1) % len(entries)
		}
		out = append(out, entries[i].Name)
	}
	return out
}

func mostLikely(entries []framework.SymptomEntry) int {
	best := 0
	for i, e := range entries {
		if e.Probability > entries[best].Probability {
			best = i
		}
	}
	return best
}

func pickFindings(entries []framework.ExamEntry, v Variant, r *rand.Rand) []ExamFinding {
	factor := 1.0
	switch v.Severity {
	case SeverityMild:
		factor = 0.85
	case SeveritySevere:
		factor = 1.15
	}
	out := []ExamFinding{}
	for _, e := range entries {
		if r.Float64() < math.Min(e.Probability*factor, 1) {
			out = append(out, ExamFinding{System: e.System, Finding: e.Finding})
		}
	}
	return out
}

// baselineVitals returns resting heart and respiratory rates by age.
func baselineVitals(months int) (hr, rr int) {
	switch {
	case months < 12:
		return 120, 30
	case months < 36:
		return 110, 24
	default:
		return 100, 20
	}
}

func sickVitals(impact framework.VitalsImpact, months int, sev Severity, r *rand.Rand) Vitals {
	lo, hi := impact.TempRange()
	switch sev {
	case SeverityMild:
		hi = lo + (hi-lo)/2
	case SeveritySevere:
		lo = lo + (hi-lo)/2
	}
	temp := lo + r.Float64()*(hi-lo)

	hr, rr := baselineVitals(months)
	scale := sev.scale()
	hrMult, rrMult := impact.HRMultiplier, impact.RRMultiplier
	if hrMult == 0 {
		hrMult = 1
	}
	if rrMult == 0 {
		rrMult = 1
	}

	spo2 := impact.SpO2Min
	if spo2 == 0 {
		spo2 = 98
	}
	switch sev {
	case SeverityMild:
		spo2 = min(spo2+2, 100)
	case SeveritySevere:
		spo2 = max(spo2-3, 82)
	}

	return Vitals{
		TempF:           math.Round(temp*10) / 10,
		HeartRate:       int(math.Round(float64(hr) * (1 + (hrMult-1)*scale))),
		RespiratoryRate: int(math.Round(float64(rr) * (1 + (rrMult-1)*scale))),
		SpO2:            spo2,
	}
}

func pick(options []string, r *rand.Rand) string {
	return options[r.IntN(len(options))]
}
