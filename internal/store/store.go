// Package store persists sessions, stroke outcomes, and highlights to a local
// SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/racketlab/swingtrace/internal/classify"
	"github.com/racketlab/swingtrace/internal/highlight"
	"github.com/racketlab/swingtrace/internal/pipeline"
	"github.com/racketlab/swingtrace/internal/score"
)

type Store struct {
	*sql.DB
}

// Open creates or opens the database at path and ensures the base schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id        TEXT PRIMARY KEY,
			device_id         TEXT,
			started_at        TIMESTAMP,
			ended_at          TIMESTAMP,
			stroke_count      BIGINT,
			avg_score         DOUBLE,
			max_score         BIGINT,
			avg_confidence    DOUBLE,
			strokes_per_min   DOUBLE,
			by_type           TEXT
		);
		CREATE TABLE IF NOT EXISTS strokes (
			stroke_id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id        TEXT,
			stroke_type       TEXT,
			score             BIGINT,
			confidence        DOUBLE,
			peak_acceleration DOUBLE,
			duration_ms       BIGINT,
			feedback          TEXT,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
		CREATE TABLE IF NOT EXISTS highlights (
			highlight_id      TEXT PRIMARY KEY,
			session_id        TEXT,
			event_ts_ms       BIGINT,
			stroke_type       TEXT,
			score             BIGINT,
			confidence        DOUBLE,
			heart_rate_bpm    BIGINT,
			auto_saved        BOOLEAN,
			peak_acceleration DOUBLE,
			avg_rotation      DOUBLE,
			duration_ms       BIGINT,
			key_points        TEXT,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
	`)
	if err != nil {
		return nil, err
	}

	return &Store{db}, nil
}

// BeginSession inserts the session row. deviceID is the sensor address the
// session was recorded against, empty for sources without one.
func (s *Store) BeginSession(ctx context.Context, sessionID, deviceID string, startedAt time.Time) error {
	_, err := s.ExecContext(ctx,
		`INSERT INTO sessions (session_id, device_id, started_at) VALUES (?, ?, ?)`,
		sessionID, deviceID, startedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// SessionDevice returns the device address a session was recorded against.
func (s *Store) SessionDevice(ctx context.Context, sessionID string) (string, error) {
	var deviceID sql.NullString
	err := s.QueryRowContext(ctx,
		`SELECT device_id FROM sessions WHERE session_id = ?`, sessionID).Scan(&deviceID)
	if err != nil {
		return "", fmt.Errorf("failed to query session device: %w", err)
	}
	return deviceID.String, nil
}

// EndSession stamps the end time and final aggregates onto the session row.
func (s *Store) EndSession(ctx context.Context, sessionID string, stats pipeline.SessionStats) error {
	byType, err := json.Marshal(stats.ByType)
	if err != nil {
		return fmt.Errorf("failed to encode stroke breakdown: %w", err)
	}
	_, err = s.ExecContext(ctx,
		`UPDATE sessions SET
			ended_at = ?, stroke_count = ?, avg_score = ?, max_score = ?,
			avg_confidence = ?, strokes_per_min = ?, by_type = ?
		WHERE session_id = ?`,
		time.Now(), stats.StrokeCount, stats.AvgScore, stats.MaxScore,
		stats.AvgConfidence, stats.StrokesPerMin, string(byType), sessionID)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// SaveOutcome records one stroke outcome.
func (s *Store) SaveOutcome(ctx context.Context, sessionID string, o score.Outcome) error {
	_, err := s.ExecContext(ctx,
		`INSERT INTO strokes (
			session_id, stroke_type, score, confidence,
			peak_acceleration, duration_ms, feedback
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, o.Stroke.String(), o.Score, o.Confidence,
		o.PeakAcceleration, o.DurationMs, o.Feedback)
	if err != nil {
		return fmt.Errorf("failed to insert stroke: %w", err)
	}
	return nil
}

// SaveHighlight records one highlight entry. Key points are stored as a JSON
// column; they are read back whole, never queried.
func (s *Store) SaveHighlight(ctx context.Context, sessionID string, e highlight.Entry) error {
	keyPoints, err := json.Marshal(e.Summary.KeyPoints)
	if err != nil {
		return fmt.Errorf("failed to encode key points: %w", err)
	}
	_, err = s.ExecContext(ctx,
		`INSERT INTO highlights (
			highlight_id, session_id, event_ts_ms, stroke_type, score,
			confidence, heart_rate_bpm, auto_saved, peak_acceleration,
			avg_rotation, duration_ms, key_points
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, sessionID, e.TimestampMs, e.Stroke.String(), e.Score,
		e.Confidence, e.HeartRateBpm, e.AutoSaved, e.Summary.PeakAcceleration,
		e.Summary.AvgAngularVelocity, e.Summary.DurationMs, string(keyPoints))
	if err != nil {
		return fmt.Errorf("failed to insert highlight: %w", err)
	}
	return nil
}

// StrokeRow is a persisted stroke outcome as read back from the database.
type StrokeRow struct {
	SessionID        string
	StrokeType       string
	Score            int
	Confidence       float64
	PeakAcceleration float64
	DurationMs       int64
	Feedback         string
}

// SessionStrokes returns the strokes of one session in insertion order.
func (s *Store) SessionStrokes(ctx context.Context, sessionID string) ([]StrokeRow, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT session_id, stroke_type, score, confidence,
			peak_acceleration, duration_ms, feedback
		FROM strokes WHERE session_id = ? ORDER BY stroke_id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query strokes: %w", err)
	}
	defer rows.Close()

	var out []StrokeRow
	for rows.Next() {
		var r StrokeRow
		if err := rows.Scan(&r.SessionID, &r.StrokeType, &r.Score, &r.Confidence,
			&r.PeakAcceleration, &r.DurationMs, &r.Feedback); err != nil {
			return nil, fmt.Errorf("failed to scan stroke: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SessionHighlights returns the highlight rows of one session, auto-saved and
// manual alike, newest last.
func (s *Store) SessionHighlights(ctx context.Context, sessionID string) ([]highlight.Entry, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT highlight_id, event_ts_ms, stroke_type, score, confidence,
			heart_rate_bpm, auto_saved, peak_acceleration, avg_rotation,
			duration_ms, key_points
		FROM highlights WHERE session_id = ? ORDER BY timestamp`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query highlights: %w", err)
	}
	defer rows.Close()

	var out []highlight.Entry
	for rows.Next() {
		var e highlight.Entry
		var strokeName string
		var keyPoints string
		if err := rows.Scan(&e.ID, &e.TimestampMs, &strokeName, &e.Score,
			&e.Confidence, &e.HeartRateBpm, &e.AutoSaved,
			&e.Summary.PeakAcceleration, &e.Summary.AvgAngularVelocity,
			&e.Summary.DurationMs, &keyPoints); err != nil {
			return nil, fmt.Errorf("failed to scan highlight: %w", err)
		}
		e.Stroke = classify.FromName(strokeName)
		if err := json.Unmarshal([]byte(keyPoints), &e.Summary.KeyPoints); err != nil {
			return nil, fmt.Errorf("failed to decode key points: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
