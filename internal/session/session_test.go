package session

import (
	"errors"
	"testing"
	"time"

	"github.com/abhisek/casetutor/internal/framework"
	"github.com/abhisek/casetutor/internal/patient"
)

func sickPatient() *patient.Patient {
	return &patient.Patient{ID: "p1", Name: "Liam Smith", ConditionKey: "croup", ConditionDisplay: "Croup"}
}

func wellChildPatient(incidental bool) *patient.Patient {
	age := 6
	p := &patient.Patient{ID: "p2", Name: "Mia Kim", ConditionKey: "well_child_6mo", VisitAgeMonths: &age}
	if incidental {
		p.IncidentalFinding = &framework.IncidentalFinding{Key: "plagiocephaly"}
	}
	return p
}

func TestNew_VisitTypeFollowsPatient(t *testing.T) {
	s := New(sickPatient(), StartSpec{LearnerLevel: LevelResident, OwnerID: "u1"})
	if s.VisitType != VisitSick {
		t.Errorf("VisitType = %q, want sick", s.VisitType)
	}
	if s.Phase != PhaseIntro {
		t.Errorf("Phase = %q, want intro", s.Phase)
	}
	if s.ID == "" {
		t.Error("expected a session ID")
	}
	if s.OwnerID != "u1" || s.LearnerLevel != LevelResident {
		t.Errorf("owner/level not copied: %q %q", s.OwnerID, s.LearnerLevel)
	}

	w := New(wellChildPatient(false), StartSpec{})
	if w.VisitType != VisitWellChild {
		t.Errorf("VisitType = %q, want well_child", w.VisitType)
	}
}

func TestAdvance_NeverRegresses(t *testing.T) {
	s := New(sickPatient(), StartSpec{})

	for _, p := range []Phase{PhaseHistory, PhaseExam, PhaseAssessment} {
		if err := s.Advance(p); err != nil {
			t.Fatalf("Advance(%s): %v", p, err)
		}
	}

	err := s.Advance(PhaseHistory)
	if !errors.Is(err, ErrPhaseRegression) {
		t.Fatalf("Advance(history) err = %v, want ErrPhaseRegression", err)
	}
	if s.Phase != PhaseAssessment {
		t.Errorf("Phase = %q after rejected regression, want assessment", s.Phase)
	}

	if err := s.Advance(PhaseAssessment); err != nil {
		t.Errorf("Advance to current phase should be a no-op, got %v", err)
	}
}

func TestAdvance_RejectsOtherTrack(t *testing.T) {
	s := New(sickPatient(), StartSpec{})
	if err := s.Advance(PhaseGrowthReview); !errors.Is(err, ErrPhaseRegression) {
		t.Errorf("err = %v, want ErrPhaseRegression", err)
	}
	if s.Phase != PhaseIntro {
		t.Errorf("Phase = %q, want intro", s.Phase)
	}
}

func TestAdvance_GrowthReviewedFlag(t *testing.T) {
	s := New(wellChildPatient(false), StartSpec{})

	if err := s.Advance(PhaseGrowthReview); err != nil {
		t.Fatal(err)
	}
	if s.WellChild.GrowthReviewed {
		t.Error("growth_reviewed set before leaving growth_review")
	}
	if err := s.Advance(PhaseDevelopmentalScreening); err != nil {
		t.Fatal(err)
	}
	if !s.WellChild.GrowthReviewed {
		t.Error("expected growth_reviewed after growth_review -> developmental_screening")
	}
	if err := s.Advance(PhaseGrowthReview); err == nil {
		t.Error("expected no path back to growth_review")
	}
}

func TestAdvance_IntroStraightToScreening(t *testing.T) {
	s := New(wellChildPatient(false), StartSpec{})
	if err := s.Advance(PhaseDevelopmentalScreening); err != nil {
		t.Fatal(err)
	}
	if s.WellChild.GrowthReviewed {
		t.Error("growth_reviewed should stay false when growth_review was skipped")
	}
}

func TestAdvance_IncidentalRevealed(t *testing.T) {
	tests := []struct {
		name       string
		incidental bool
		path       []Phase
		want       bool
	}{
		{"no finding", false, []Phase{PhaseDevelopmentalScreening, PhaseExam}, false},
		{"before exam", true, []Phase{PhaseGrowthReview, PhaseDevelopmentalScreening}, false},
		{"at exam", true, []Phase{PhaseDevelopmentalScreening, PhaseExam}, true},
		{"at parent questions", true, []Phase{PhaseParentQuestions}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(wellChildPatient(tt.incidental), StartSpec{})
			for _, p := range tt.path {
				if err := s.Advance(p); err != nil {
					t.Fatal(err)
				}
			}
			if s.IncidentalRevealed != tt.want {
				t.Errorf("IncidentalRevealed = %v, want %v", s.IncidentalRevealed, tt.want)
			}
		})
	}
}

func TestComplete_Idempotent(t *testing.T) {
	s := New(sickPatient(), StartSpec{})
	s.Complete()
	s.Complete()
	if !s.IsComplete() || s.Phase != PhaseComplete {
		t.Errorf("Phase = %q, want complete", s.Phase)
	}
	if s.Status() != "completed" {
		t.Errorf("Status = %q, want completed", s.Status())
	}
}

func TestConversation(t *testing.T) {
	s := New(sickPatient(), StartSpec{})
	s.AppendTurn(RoleTutor, "He's been coughing all night.")
	s.AppendTurn(RoleLearner, "When did it start?")
	s.AppendTurn(RoleTutor, "Two days ago.")

	if got := s.LearnerTurns(); got != 1 {
		t.Errorf("LearnerTurns = %d, want 1", got)
	}
	recent := s.RecentTurns(2)
	if len(recent) != 2 || recent[0].Content != "When did it start?" {
		t.Errorf("RecentTurns(2) = %+v", recent)
	}
	if len(s.RecentTurns(10)) != 3 {
		t.Error("RecentTurns beyond length should return everything")
	}
}

func TestOverTime(t *testing.T) {
	s := New(sickPatient(), StartSpec{})
	if s.OverTime(time.Now().Add(time.Hour)) {
		t.Error("untimed session should never be over time")
	}

	limit := 10
	s.TimeConstraint = &limit
	if s.OverTime(s.StartedAt.Add(9 * time.Minute)) {
		t.Error("over time too early")
	}
	if !s.OverTime(s.StartedAt.Add(11 * time.Minute)) {
		t.Error("expected over time after limit")
	}
}

func TestNormalize(t *testing.T) {
	ten := 10
	zero := 0

	tests := []struct {
		name    string
		start   Start
		learner Learner
		want    StartSpec
		wantErr bool
	}{
		{
			name:  "condition defaults",
			start: ConditionStart{ConditionKey: "croup"},
			want: StartSpec{
				VisitType:    VisitSick,
				ConditionKey: "croup",
				Variant:      patient.Variant{Complexity: patient.ComplexityStraightforward},
				LearnerLevel: LevelStudent,
			},
		},
		{
			name:    "resident complexity",
			start:   RandomStart{Category: "respiratory", Variant: patient.Variant{Severity: patient.SeveritySevere}},
			learner: Learner{Level: LevelResident, OwnerID: "u1", TimeConstraint: &ten},
			want: StartSpec{
				VisitType:      VisitSick,
				Category:       "respiratory",
				Variant:        patient.Variant{Severity: patient.SeveritySevere, Complexity: patient.ComplexityNuanced},
				OwnerID:        "u1",
				LearnerLevel:   LevelResident,
				TimeConstraint: &ten,
			},
		},
		{
			name:    "explicit complexity kept",
			start:   ConditionStart{ConditionKey: "croup", Variant: patient.Variant{Complexity: patient.ComplexityChallenging}},
			learner: Learner{Level: LevelStudent},
			want: StartSpec{
				VisitType:    VisitSick,
				ConditionKey: "croup",
				Variant:      patient.Variant{Complexity: patient.ComplexityChallenging},
				LearnerLevel: LevelStudent,
			},
		},
		{
			name:  "well child",
			start: WellChildStart{VisitAgeMonths: 12},
			want:  StartSpec{VisitType: VisitWellChild, VisitAgeMonths: 12, LearnerLevel: LevelStudent},
		},
		{name: "missing key", start: ConditionStart{}, wantErr: true},
		{name: "nil start", start: nil, wantErr: true},
		{name: "bad level", start: RandomStart{}, learner: Learner{Level: "intern"}, wantErr: true},
		{name: "bad variant", start: RandomStart{Variant: patient.Variant{Severity: "extreme"}}, wantErr: true},
		{name: "zero minutes", start: RandomStart{}, learner: Learner{TimeConstraint: &zero}, wantErr: true},
		{name: "negative age", start: WellChildStart{VisitAgeMonths: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.start, tt.learner)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidStart) {
					t.Fatalf("err = %v, want ErrInvalidStart", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.VisitType != tt.want.VisitType || got.ConditionKey != tt.want.ConditionKey ||
				got.Category != tt.want.Category || got.VisitAgeMonths != tt.want.VisitAgeMonths ||
				got.Variant != tt.want.Variant || got.LearnerLevel != tt.want.LearnerLevel ||
				got.OwnerID != tt.want.OwnerID || got.TimeConstraint != tt.want.TimeConstraint {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPhaseLabel(t *testing.T) {
	if got := PhaseDevelopmentalScreening.Label(); got != "Developmental screening" {
		t.Errorf("Label = %q", got)
	}
}

func TestBuildSummary(t *testing.T) {
	s := New(sickPatient(), StartSpec{})
	s.AppendTurn(RoleLearner, "hi")
	s.RecordHint()

	sum := BuildSummary(s, s.StartedAt.Add(5*time.Minute))
	if sum.ConditionKey != "croup" || sum.Turns != 1 || sum.HintsGiven != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Duration != 5*time.Minute {
		t.Errorf("Duration = %s, want 5m", sum.Duration)
	}
	if sum.Status != "active" {
		t.Errorf("Status = %q, want active", sum.Status)
	}
}
