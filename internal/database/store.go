package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SPEAKER_TRACK/go-backend/internal/models"
)

func (s *Store) CreateSession(ctx context.Context, sess models.TrackingSession) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO tracking_sessions (id, source, status, start_time, notes) VALUES (?, ?, ?, ?, ?)"),
		sess.ID, sess.Source, sess.Status, sess.StartTime.Unix(), sess.Notes,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) EndSession(ctx context.Context, id string, end time.Time) error {
	result, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE tracking_sessions SET end_time = ?, status = ? WHERE id = ?"),
		end.Unix(), models.SessionClosed, id,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (models.TrackingSession, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind("SELECT id, source, status, start_time, end_time, notes FROM tracking_sessions WHERE id = ?"), id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return sess, ErrNotFound
	}
	return sess, err
}

func (s *Store) ListSessions(ctx context.Context, limit int) ([]models.TrackingSession, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT id, source, status, start_time, end_time, notes FROM tracking_sessions ORDER BY start_time DESC, id LIMIT ?"), limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.TrackingSession{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (models.TrackingSession, error) {
	var (
		sess  models.TrackingSession
		start int64
		end   sql.NullInt64
	)
	if err := row.Scan(&sess.ID, &sess.Source, &sess.Status, &start, &end, &sess.Notes); err != nil {
		return sess, err
	}
	sess.StartTime = time.Unix(start, 0).UTC()
	if end.Valid {
		t := time.Unix(end.Int64, 0).UTC()
		sess.EndTime = &t
	}
	return sess, nil
}

func (s *Store) InsertShotEvent(ctx context.Context, ev models.ShotEvent) error {
	changedInt := 0
	if ev.Changed {
		changedInt = 1
	}
	_, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO shot_events (id, session_id, stream_ts_us, changed, created_at) VALUES (?, ?, ?, ?, ?)"),
		ev.ID, ev.SessionID, ev.StreamTS.Microseconds(), changedInt, ev.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert shot event: %w", err)
	}
	return nil
}

// ListShotEvents returns a session's events in stream order. onlyChanges
// drops the "no change" signals.
func (s *Store) ListShotEvents(ctx context.Context, sessionID string, onlyChanges bool) ([]models.ShotEvent, error) {
	query := "SELECT id, session_id, stream_ts_us, changed, created_at FROM shot_events WHERE session_id = ?"
	if onlyChanges {
		query += " AND changed = 1"
	}
	query += " ORDER BY stream_ts_us, created_at"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), sessionID)
	if err != nil {
		return nil, fmt.Errorf("list shot events: %w", err)
	}
	defer rows.Close()

	events := []models.ShotEvent{}
	for rows.Next() {
		var (
			ev         models.ShotEvent
			tsUs       int64
			changedInt int
			created    int64
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &tsUs, &changedInt, &created); err != nil {
			return nil, err
		}
		ev.StreamTS = time.Duration(tsUs) * time.Microsecond
		ev.Changed = changedInt == 1
		ev.CreatedAt = time.Unix(created, 0).UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Store) InsertWindowSummary(ctx context.Context, w models.WindowSummary) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO window_summaries
			(id, session_id, start_ts_us, end_ts_us, frames, meta_faces, dominant_meta_face, dominant_hits, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		w.ID, w.SessionID, w.StartTS.Microseconds(), w.EndTS.Microseconds(),
		w.Frames, w.MetaFaces, w.DominantMetaFace, w.DominantHits, w.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert window summary: %w", err)
	}
	return nil
}

func (s *Store) ListWindowSummaries(ctx context.Context, sessionID string) ([]models.WindowSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, session_id, start_ts_us, end_ts_us, frames, meta_faces, dominant_meta_face, dominant_hits, created_at
			FROM window_summaries WHERE session_id = ? ORDER BY start_ts_us`), sessionID)
	if err != nil {
		return nil, fmt.Errorf("list window summaries: %w", err)
	}
	defer rows.Close()

	summaries := []models.WindowSummary{}
	for rows.Next() {
		var (
			w              models.WindowSummary
			startUs, endUs int64
			created        int64
		)
		if err := rows.Scan(&w.ID, &w.SessionID, &startUs, &endUs, &w.Frames, &w.MetaFaces,
			&w.DominantMetaFace, &w.DominantHits, &created); err != nil {
			return nil, err
		}
		w.StartTS = time.Duration(startUs) * time.Microsecond
		w.EndTS = time.Duration(endUs) * time.Microsecond
		w.CreatedAt = time.Unix(created, 0).UTC()
		summaries = append(summaries, w)
	}
	return summaries, rows.Err()
}

// PurgeBefore deletes closed sessions that ended before cutoff together with
// their rows, and any event or summary created before cutoff. It returns the
// number of deleted rows.
func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	unix := cutoff.Unix()
	stale := "SELECT id FROM tracking_sessions WHERE status = ? AND end_time IS NOT NULL AND end_time < ?"

	statements := []struct {
		query string
		args  []any
	}{
		{"DELETE FROM shot_events WHERE created_at < ? OR session_id IN (" + stale + ")", []any{unix, models.SessionClosed, unix}},
		{"DELETE FROM window_summaries WHERE created_at < ? OR session_id IN (" + stale + ")", []any{unix, models.SessionClosed, unix}},
		{"DELETE FROM tracking_sessions WHERE id IN (" + stale + ")", []any{models.SessionClosed, unix}},
	}

	var total int64
	for _, st := range statements {
		result, err := tx.ExecContext(ctx, s.rebind(st.query), st.args...)
		if err != nil {
			return 0, fmt.Errorf("purge: %w", err)
		}
		n, _ := result.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}
