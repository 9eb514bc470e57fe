package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_NotConfigured(t *testing.T) {
	if _, err := Open(""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Open(\"\") error = %v, want ErrNotConfigured", err)
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: dialectPostgres}
	lite := &Store{dialect: dialectSQLite}
	q := "SELECT * FROM t WHERE a = ? AND b = ?"

	if got, want := pg.rebind(q), "SELECT * FROM t WHERE a = $1 AND b = $2"; got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
	if got := lite.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMEventData{
		{Provider: "anthropic", Model: "claude-sonnet", Purpose: "case-turn", SessionID: "s1", InputTokens: 100, OutputTokens: 20, LatencyMs: 300, Success: true, RequestBody: "req", ResponseBody: "resp"},
		{Provider: "anthropic", Model: "claude-sonnet", Purpose: "case-turn", SessionID: "s1", InputTokens: 200, OutputTokens: 40, LatencyMs: 500, Success: true},
		{Provider: "anthropic", Model: "claude-haiku", Purpose: "debrief", SessionID: "s2", LatencyMs: 100, Success: false, ErrorMessage: "timeout"},
	}
	for _, e := range events {
		if err := repo.AppendLLMEvent(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d events, want 3", len(all))
	}
	if all[0].Purpose != "debrief" || all[0].Success {
		t.Errorf("newest event = %+v, want failed debrief", all[0])
	}

	turns, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "case-turn", Limit: 1})
	if err != nil {
		t.Fatalf("query purpose: %v", err)
	}
	if len(turns) != 1 || turns[0].InputTokens != 200 {
		t.Errorf("purpose query = %+v, want the second turn", turns)
	}

	e, err := repo.GetLLMEvent(ctx, all[2].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e == nil || e.RequestBody != "req" || e.ResponseBody != "resp" || !e.Success {
		t.Errorf("get = %+v", e)
	}
	if e, err := repo.GetLLMEvent(ctx, 999); err != nil || e != nil {
		t.Errorf("get missing = %v, %v; want nil, nil", e, err)
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("usage by purpose: %v", err)
	}
	if len(byPurpose) != 2 {
		t.Fatalf("got %d purposes, want 2", len(byPurpose))
	}
	turn := byPurpose[0]
	if turn.Key != "case-turn" || turn.Calls != 2 || turn.InputTokens != 300 || turn.OutputTokens != 60 || turn.AvgLatencyMs != 400 {
		t.Errorf("case-turn usage = %+v", turn)
	}

	byModel, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatalf("usage by model: %v", err)
	}
	if len(byModel) != 2 || byModel[0].Key != "claude-haiku" {
		t.Errorf("model usage = %+v", byModel)
	}
}

func sessionRecord(id, owner string, started time.Time) *SessionRecord {
	return &SessionRecord{
		ID:               id,
		OwnerID:          owner,
		ConditionKey:     "croup",
		ConditionDisplay: "Croup",
		VisitType:        "sick",
		Phase:            "intro",
		LearnerLevel:     "student",
		Status:           "active",
		State:            json.RawMessage(`{"id":"` + id + `"}`),
		StartedAt:        started,
	}
}

func TestSaveSession_AppendsOnlyNewMessages(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()
	now := time.Now()

	rec := sessionRecord("s1", "u1", now)
	rec.Messages = []MessageRecord{{Role: "tutor", Content: "hello", At: now}}
	if err := repo.SaveSession(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec.Phase = "history"
	rec.HintsGiven = 1
	rec.Messages = append(rec.Messages,
		MessageRecord{Role: "learner", Content: "when did it start?", At: now},
		MessageRecord{Role: "tutor", Content: "yesterday", At: now},
	)
	if err := repo.SaveSession(ctx, rec); err != nil {
		t.Fatalf("save again: %v", err)
	}
	// Saving an unchanged record must not duplicate messages.
	if err := repo.SaveSession(ctx, rec); err != nil {
		t.Fatalf("save unchanged: %v", err)
	}

	got, err := repo.LoadSession(ctx, "s1", "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Phase != "history" || got.HintsGiven != 1 {
		t.Errorf("phase/hints = %s/%d, want history/1", got.Phase, got.HintsGiven)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(got.Messages))
	}
	if got.Messages[1].Content != "when did it start?" {
		t.Errorf("message order wrong: %+v", got.Messages)
	}
	if string(got.State) != `{"id":"s1"}` {
		t.Errorf("state = %s", got.State)
	}
	if got.StartedAt.UnixMilli() != now.UnixMilli() {
		t.Errorf("started_at = %v, want %v", got.StartedAt, now)
	}
}

func TestLoadSession_Owner(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	if err := repo.SaveSession(ctx, sessionRecord("s1", "u1", time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := repo.LoadSession(ctx, "s1", "u2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("other owner error = %v, want ErrNotFound", err)
	}
	if _, err := repo.LoadSession(ctx, "missing", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing error = %v, want ErrNotFound", err)
	}
	if _, err := repo.LoadSession(ctx, "s1", ""); err != nil {
		t.Errorf("load without owner: %v", err)
	}
}

func TestCompleteSessionAndHistory(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := repo.SaveSession(ctx, sessionRecord(id, "u1", base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	if err := repo.SaveSession(ctx, sessionRecord("x", "u2", base)); err != nil {
		t.Fatalf("save x: %v", err)
	}

	debrief := json.RawMessage(`{"summary":"done"}`)
	if err := repo.CompleteSession(ctx, "b", debrief, nil, base.Add(time.Hour+25*time.Minute)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := repo.CompleteSession(ctx, "nope", debrief, nil, base); !errors.Is(err, ErrNotFound) {
		t.Errorf("complete missing error = %v, want ErrNotFound", err)
	}

	all, err := repo.UserHistory(ctx, "u1", 0, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("history order = %+v", all)
	}

	done, err := repo.UserHistory(ctx, "u1", 10, "completed")
	if err != nil {
		t.Fatalf("history completed: %v", err)
	}
	if len(done) != 1 || done[0].ID != "b" {
		t.Fatalf("completed history = %+v", done)
	}
	if done[0].DurationMinutes == nil || *done[0].DurationMinutes != 25 {
		t.Errorf("duration = %v, want 25", done[0].DurationMinutes)
	}

	limited, err := repo.UserHistory(ctx, "u1", 2, "")
	if err != nil {
		t.Fatalf("history limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited history has %d entries, want 2", len(limited))
	}

	rec, err := repo.LoadSession(ctx, "b", "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.Status != "completed" || string(rec.Debrief) != `{"summary":"done"}` || rec.CompletedAt == nil {
		t.Errorf("completed record = %+v", rec)
	}
	if rec.LearningMaterials != nil {
		t.Errorf("learning materials = %s, want none", rec.LearningMaterials)
	}
}

func TestHistory(t *testing.T) {
	h := NewHistory()
	h.Add(HistoryEntry{ID: "1", ConditionKey: "croup"})
	h.Add(HistoryEntry{ID: "2", ConditionKey: "bronchiolitis"})
	h.Add(HistoryEntry{ID: "3", ConditionKey: "croup"})
	h.Add(HistoryEntry{ID: "1", ConditionKey: "croup", Status: "completed"})

	if h.Count() != 3 {
		t.Errorf("count = %d, want 3", h.Count())
	}
	all := h.All()
	if all[0].ID != "3" || all[2].ID != "1" {
		t.Errorf("All order = %+v", all)
	}
	if e, ok := h.ByID("1"); !ok || e.Status != "completed" {
		t.Errorf("ByID(1) = %+v, %v", e, ok)
	}
	if _, ok := h.ByID("9"); ok {
		t.Error("ByID(9) found an entry")
	}
	croup := h.ByCondition("croup")
	if len(croup) != 2 || croup[0].ID != "3" {
		t.Errorf("ByCondition = %+v", croup)
	}
}
