// Package sqlite persists voice-note records in a local SQLite database.
// It stands in for the hosted document store: one table of note-shaped
// rows, filtered by owner and ordered by creation time descending.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"murmur/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS voice_notes (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL DEFAULT 0,
	audio_url TEXT NOT NULL,
	transcript TEXT NOT NULL DEFAULT '',
	segments TEXT,
	language TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_voice_notes_owner ON voice_notes(user_id, created_at DESC);
`

// NoteStore is the SQLite-backed note record store.
type NoteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*NoteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &NoteStore{db: db}, nil
}

func (s *NoteStore) Close() error {
	return s.db.Close()
}

func (s *NoteStore) Create(ctx context.Context, note domain.VoiceNote) error {
	segments, err := marshalSegments(note.Segments)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO voice_notes (id, user_id, title, duration_seconds, audio_url, transcript, segments, language, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, note.ID, note.UserID, note.Title, note.Duration, note.AudioURL, note.Transcript,
		segments, note.Language, string(note.Status), unixSeconds(note.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (s *NoteStore) Get(ctx context.Context, userID string, id string) (domain.VoiceNote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, duration_seconds, audio_url, transcript, segments, language, status, created_at
		FROM voice_notes
		WHERE user_id = ? AND id = ?
	`, userID, id)

	note, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.VoiceNote{}, domain.ErrNoteNotFound
		}
		return domain.VoiceNote{}, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

// List returns the user's notes, newest first.
func (s *NoteStore) List(ctx context.Context, userID string) ([]domain.VoiceNote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, duration_seconds, audio_url, transcript, segments, language, status, created_at
		FROM voice_notes
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.VoiceNote
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func (s *NoteStore) SetTranscript(ctx context.Context, userID string, id string, transcript string, segments []domain.TranscriptSegment) error {
	encoded, err := marshalSegments(segments)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE voice_notes SET transcript = ?, segments = ?, status = ?
		WHERE user_id = ? AND id = ?
	`, transcript, encoded, string(domain.NoteStatusReady), userID, id)
	if err != nil {
		return fmt.Errorf("update transcript: %w", err)
	}
	return requireRow(result)
}

func (s *NoteStore) SetStatus(ctx context.Context, userID string, id string, status domain.NoteStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE voice_notes SET status = ? WHERE user_id = ? AND id = ?
	`, string(status), userID, id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return requireRow(result)
}

func (s *NoteStore) Delete(ctx context.Context, userID string, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM voice_notes WHERE user_id = ? AND id = ?
	`, userID, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanNote is the single deserialization boundary: defaults for missing
// segments and language are applied here, nowhere else.
func scanNote(row rowScanner) (domain.VoiceNote, error) {
	var note domain.VoiceNote
	var segments sql.NullString
	var status string
	var createdAt float64

	if err := row.Scan(&note.ID, &note.UserID, &note.Title, &note.Duration, &note.AudioURL,
		&note.Transcript, &segments, &note.Language, &status, &createdAt); err != nil {
		return domain.VoiceNote{}, err
	}

	note.Status = domain.NoteStatus(status)
	note.CreatedAt = timeFromUnix(createdAt)
	if strings.TrimSpace(note.Language) == "" {
		note.Language = domain.DefaultLanguage
	}
	if segments.Valid && segments.String != "" {
		if err := json.Unmarshal([]byte(segments.String), &note.Segments); err != nil {
			// A corrupt segment blob degrades to no segments rather than
			// making the whole note unreadable.
			note.Segments = nil
		}
	}
	return note, nil
}

func marshalSegments(segments []domain.TranscriptSegment) (sql.NullString, error) {
	if len(segments) == 0 {
		return sql.NullString{}, nil
	}
	encoded, err := json.Marshal(segments)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode segments: %w", err)
	}
	return sql.NullString{String: string(encoded), Valid: true}, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
