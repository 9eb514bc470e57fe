package session

import (
	"errors"
	"fmt"

	"github.com/abhisek/casetutor/internal/patient"
)

// ErrInvalidStart is returned by Normalize for a malformed start request.
var ErrInvalidStart = errors.New("invalid start request")

// Start is a request to open an encounter. It is one of ConditionStart,
// WellChildStart or RandomStart.
type Start interface {
	isStart()
}

// ConditionStart opens a sick visit for a named condition.
type ConditionStart struct {
	ConditionKey string
	Variant      patient.Variant
}

// WellChildStart opens the well-child visit at a given age.
type WellChildStart struct {
	VisitAgeMonths int
}

// RandomStart opens a sick visit for a random condition, optionally within
// a category.
type RandomStart struct {
	Category string
	Variant  patient.Variant
}

func (ConditionStart) isStart() {}
func (WellChildStart) isStart() {}
func (RandomStart) isStart()    {}

// Learner carries who is starting the encounter and under what limits.
type Learner struct {
	OwnerID        string
	Level          LearnerLevel
	TimeConstraint *int
}

// StartSpec is the canonical form every Start is reduced to.
type StartSpec struct {
	VisitType      VisitType
	ConditionKey   string
	Category       string
	VisitAgeMonths int
	Variant        patient.Variant

	OwnerID        string
	LearnerLevel   LearnerLevel
	TimeConstraint *int
}

// Random reports whether the condition is still to be picked.
func (s StartSpec) Random() bool {
	return s.VisitType == VisitSick && s.ConditionKey == ""
}

// Normalize validates a start request and fills the defaults: learner
// level student, and a complexity matched to the learner level.
func Normalize(start Start, learner Learner) (StartSpec, error) {
	level := learner.Level
	if level == "" {
		level = LevelStudent
	}
	if err := level.Validate(); err != nil {
		return StartSpec{}, fmt.Errorf("%w: %w", ErrInvalidStart, err)
	}
	if tc := learner.TimeConstraint; tc != nil && *tc <= 0 {
		return StartSpec{}, fmt.Errorf("%w: time constraint must be positive, got %d", ErrInvalidStart, *tc)
	}

	spec := StartSpec{
		OwnerID:        learner.OwnerID,
		LearnerLevel:   level,
		TimeConstraint: learner.TimeConstraint,
	}

	switch s := start.(type) {
	case ConditionStart:
		if s.ConditionKey == "" {
			return StartSpec{}, fmt.Errorf("%w: condition key is required", ErrInvalidStart)
		}
		spec.VisitType = VisitSick
		spec.ConditionKey = s.ConditionKey
		spec.Variant = s.Variant
	case RandomStart:
		spec.VisitType = VisitSick
		spec.Category = s.Category
		spec.Variant = s.Variant
	case WellChildStart:
		if s.VisitAgeMonths < 0 {
			return StartSpec{}, fmt.Errorf("%w: visit age must not be negative", ErrInvalidStart)
		}
		spec.VisitType = VisitWellChild
		spec.VisitAgeMonths = s.VisitAgeMonths
		return spec, nil
	case nil:
		return StartSpec{}, fmt.Errorf("%w: empty request", ErrInvalidStart)
	default:
		return StartSpec{}, fmt.Errorf("%w: unsupported request %T", ErrInvalidStart, start)
	}

	if spec.Variant.Complexity == "" {
		spec.Variant.Complexity = level.DefaultComplexity()
	}
	if err := spec.Variant.Validate(); err != nil {
		return StartSpec{}, fmt.Errorf("%w: %w", ErrInvalidStart, err)
	}
	return spec, nil
}
