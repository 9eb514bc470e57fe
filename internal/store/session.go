package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

func (s *Store) SaveSession(ctx context.Context, rec *SessionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO sessions
		(id, owner_id, condition_key, condition_display, visit_type, phase, learner_level,
		 status, hints_given, state, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			phase = excluded.phase,
			status = excluded.status,
			hints_given = excluded.hints_given,
			state = excluded.state,
			updated_at = excluded.updated_at`),
		rec.ID, rec.OwnerID, rec.ConditionKey, rec.ConditionDisplay, rec.VisitType, rec.Phase,
		rec.LearnerLevel, rec.Status, rec.HintsGiven, string(rec.State),
		millis(rec.StartedAt), millis(now),
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", rec.ID, err)
	}

	var stored int
	if err := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM session_messages WHERE session_id = ?`), rec.ID).Scan(&stored); err != nil {
		return fmt.Errorf("count messages: %w", err)
	}
	for i := stored; i < len(rec.Messages); i++ {
		m := rec.Messages[i]
		_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO session_messages
			(session_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)`),
			rec.ID, i, m.Role, m.Content, millis(m.At))
		if err != nil {
			return fmt.Errorf("append message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	rec.UpdatedAt = now
	return nil
}

func (s *Store) LoadSession(ctx context.Context, id, owner string) (*SessionRecord, error) {
	var (
		rec                SessionRecord
		state              string
		debrief, materials sql.NullString
		started, updated   int64
		completed          sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, owner_id, condition_key, condition_display,
		visit_type, phase, learner_level, status, hints_given, state, debrief, learning_materials,
		started_at, updated_at, completed_at
		FROM sessions WHERE id = ?`), id).Scan(
		&rec.ID, &rec.OwnerID, &rec.ConditionKey, &rec.ConditionDisplay,
		&rec.VisitType, &rec.Phase, &rec.LearnerLevel, &rec.Status, &rec.HintsGiven,
		&state, &debrief, &materials, &started, &updated, &completed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if owner != "" && rec.OwnerID != owner {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	rec.State = json.RawMessage(state)
	if debrief.Valid {
		rec.Debrief = json.RawMessage(debrief.String)
	}
	if materials.Valid {
		rec.LearningMaterials = json.RawMessage(materials.String)
	}
	rec.StartedAt = fromMillis(started)
	rec.UpdatedAt = fromMillis(updated)
	if completed.Valid {
		t := fromMillis(completed.Int64)
		rec.CompletedAt = &t
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT role, content, created_at
		FROM session_messages WHERE session_id = ? ORDER BY seq`), id)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			m  MessageRecord
			at int64
		)
		if err := rows.Scan(&m.Role, &m.Content, &at); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.At = fromMillis(at)
		rec.Messages = append(rec.Messages, m)
	}
	return &rec, rows.Err()
}

func (s *Store) CompleteSession(ctx context.Context, id string, debrief, materials json.RawMessage, at time.Time) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE sessions
		SET status = 'completed', debrief = ?, learning_materials = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`),
		nullJSON(debrief), nullJSON(materials), millis(at), millis(at), id)
	if err != nil {
		return fmt.Errorf("complete session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) UserHistory(ctx context.Context, owner string, limit int, status string) ([]HistoryEntry, error) {
	q := `SELECT id, condition_key, condition_display, visit_type, phase, status, learner_level,
		hints_given, started_at, completed_at FROM sessions WHERE owner_id = ?`
	args := []any{owner}
	if status != "" {
		q += " AND status = ?"
		args = append(args, status)
	}
	q += " ORDER BY started_at DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			h         HistoryEntry
			started   int64
			completed sql.NullInt64
		)
		if err := rows.Scan(&h.ID, &h.ConditionKey, &h.ConditionDisplay, &h.VisitType, &h.Phase,
			&h.Status, &h.LearnerLevel, &h.HintsGiven, &started, &completed); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.OwnerID = owner
		h.StartedAt = fromMillis(started)
		if completed.Valid {
			t := fromMillis(completed.Int64)
			h.CompletedAt = &t
			mins := DurationMinutes(h.StartedAt, t)
			h.DurationMinutes = &mins
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// DurationMinutes is the whole minutes between start and end.
func DurationMinutes(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
