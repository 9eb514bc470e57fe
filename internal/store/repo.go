package store

import (
	"context"
	"encoding/json"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int    // max results (0 = unlimited)
	Purpose string // exact purpose match when set
	Session string // exact session ID match when set
}

// LLMEventData captures one model call.
type LLMEventData struct {
	Provider     string
	Model        string
	Purpose      string
	SessionID    string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored model call.
type LLMEvent struct {
	ID        int64
	Timestamp time.Time
	LLMEventData
}

// UsageStat aggregates calls grouped by purpose or model. Key holds the
// group value.
type UsageStat struct {
	Key          string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// LLMEventRepo is the write side of the event log used by the LLM
// logging decorator.
type LLMEventRepo interface {
	AppendLLMEvent(ctx context.Context, data LLMEventData) error
}

// EventRepo provides append and query access to the LLM event log.
type EventRepo interface {
	LLMEventRepo

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns nil when id does not exist.
	GetLLMEvent(ctx context.Context, id int64) (*LLMEvent, error)

	LLMUsageByPurpose(ctx context.Context) ([]UsageStat, error)
	LLMUsageByModel(ctx context.Context) ([]UsageStat, error)
}

// MessageRecord is one persisted conversation turn.
type MessageRecord struct {
	Role    string
	Content string
	At      time.Time
}

// SessionRecord is the persisted form of a case session. State holds the
// serialized session without its conversation, which is stored row by row
// in Messages.
type SessionRecord struct {
	ID               string
	OwnerID          string
	ConditionKey     string
	ConditionDisplay string
	VisitType        string
	Phase            string
	LearnerLevel     string
	Status           string
	HintsGiven       int
	State            json.RawMessage
	StartedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time

	Debrief           json.RawMessage
	LearningMaterials json.RawMessage

	Messages []MessageRecord
}

// HistoryEntry is the list view of a past session.
type HistoryEntry struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"owner_id,omitempty"`
	ConditionKey     string     `json:"condition_key"`
	ConditionDisplay string     `json:"condition_display"`
	VisitType        string     `json:"visit_type"`
	Phase            string     `json:"phase"`
	Status           string     `json:"status"`
	LearnerLevel     string     `json:"learner_level"`
	HintsGiven       int        `json:"hints_given"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	DurationMinutes  *int       `json:"duration_minutes,omitempty"`
}

// SessionRepo persists sessions.
type SessionRepo interface {
	// SaveSession upserts the session row and appends any messages beyond
	// those already stored.
	SaveSession(ctx context.Context, rec *SessionRecord) error

	// LoadSession returns ErrNotFound when id is unknown or, for a
	// non-empty owner, belongs to someone else.
	LoadSession(ctx context.Context, id, owner string) (*SessionRecord, error)

	// CompleteSession marks the session completed with its debrief.
	CompleteSession(ctx context.Context, id string, debrief, materials json.RawMessage, at time.Time) error

	// UserHistory lists owner's sessions newest first. An empty status
	// matches all.
	UserHistory(ctx context.Context, owner string, limit int, status string) ([]HistoryEntry, error)
}
