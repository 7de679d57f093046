package usecase

import (
	"context"
	"fmt"

	"murmur/internal/domain"
	"murmur/internal/ports"
)

// NoteLibrary is the read/delete surface over stored notes.
type NoteLibrary struct {
	notes ports.NoteStore
	blobs ports.BlobStore
}

func NewNoteLibrary(notes ports.NoteStore, blobs ports.BlobStore) *NoteLibrary {
	return &NoteLibrary{notes: notes, blobs: blobs}
}

// List returns the owner's notes, newest first.
func (l *NoteLibrary) List(ctx context.Context, userID string) ([]domain.VoiceNote, error) {
	return l.notes.List(ctx, userID)
}

func (l *NoteLibrary) Get(ctx context.Context, userID, id string) (domain.VoiceNote, error) {
	return l.notes.Get(ctx, userID, id)
}

// Delete removes the record and its audio artifact. The artifact delete
// is best effort: a missing blob must not strand the record.
func (l *NoteLibrary) Delete(ctx context.Context, userID, id string) error {
	note, err := l.notes.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if note.AudioURL != "" {
		_ = l.blobs.Delete(ctx, note.AudioURL)
	}
	if err := l.notes.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete note record: %w", err)
	}
	return nil
}
