package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"murmur/internal/domain"
)

func newTestPipeline(blobs *fakeBlobStore, notes *memoryNoteStore, transcriber *fakeTranscriber, sink *recordingSink) *NotePipeline {
	p := NewNotePipeline(blobs, notes, transcriber, sink)
	next := 0
	p.ids = func() string {
		next++
		return "note-" + string(rune('a'+next-1))
	}
	p.now = func() time.Time { return time.Date(2026, time.August, 29, 10, 0, 0, 0, time.UTC) }
	return p
}

func TestPipelineSaveAndTranscribe(t *testing.T) {
	t.Parallel()

	blobs := &fakeBlobStore{}
	notes := newMemoryNoteStore()
	transcriber := &fakeTranscriber{result: domain.TranscriptionResult{
		Transcript: "hola mundo",
		Segments:   []domain.TranscriptSegment{{Speaker: 0, Text: "hola mundo"}},
	}}
	sink := &recordingSink{}
	p := newTestPipeline(blobs, notes, transcriber, sink)

	rec := domain.RecordingResult{ArtifactPath: "/tmp/a.m4a", Duration: 12, MimeType: "audio/mp4"}
	note, err := p.Save(context.Background(), "alice", "Standup", "es", rec)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if note.Status != domain.NoteStatusTranscribing {
		t.Fatalf("status after Save = %q", note.Status)
	}
	if note.Title != "Standup" || note.Duration != 12 || note.Language != "es" {
		t.Fatalf("note = %+v", note)
	}
	if !strings.HasPrefix(note.AudioURL, "file://") {
		t.Fatalf("audio URL = %q", note.AudioURL)
	}

	p.Wait()

	stored, err := notes.Get(context.Background(), "alice", note.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != domain.NoteStatusReady {
		t.Fatalf("status after transcription = %q", stored.Status)
	}
	if stored.Transcript != "hola mundo" || len(stored.Segments) != 1 {
		t.Fatalf("stored = %+v", stored)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.saved) != 1 || sink.saved[0].ID != note.ID {
		t.Fatalf("saved events = %+v", sink.saved)
	}
	if len(sink.updated) != 1 || sink.updated[0].Status != domain.NoteStatusReady {
		t.Fatalf("updated events = %+v", sink.updated)
	}
}

func TestPipelineDefaultTitle(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(&fakeBlobStore{}, newMemoryNoteStore(), &fakeTranscriber{}, &recordingSink{})

	note, err := p.Save(context.Background(), "alice", "", "", domain.RecordingResult{ArtifactPath: "/tmp/a.m4a"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if note.Title != "Note Aug 29, 2026" {
		t.Fatalf("default title = %q", note.Title)
	}
	p.Wait()
}

func TestPipelineUploadFailureAborts(t *testing.T) {
	t.Parallel()

	blobs := &fakeBlobStore{putErr: errBoom}
	notes := newMemoryNoteStore()
	sink := &recordingSink{}
	p := newTestPipeline(blobs, notes, &fakeTranscriber{}, sink)

	if _, err := p.Save(context.Background(), "alice", "x", "es", domain.RecordingResult{ArtifactPath: "/tmp/a.m4a"}); err == nil {
		t.Fatal("expected Save to fail when upload fails")
	}

	got, _ := notes.List(context.Background(), "alice")
	if len(got) != 0 {
		t.Fatalf("no record should exist after a failed upload, got %+v", got)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.saved) != 0 {
		t.Fatalf("unexpected NoteSaved events: %+v", sink.saved)
	}
}

func TestPipelineTranscriptionFailure(t *testing.T) {
	t.Parallel()

	notes := newMemoryNoteStore()
	sink := &recordingSink{}
	p := newTestPipeline(&fakeBlobStore{}, notes, &fakeTranscriber{err: errBoom}, sink)

	note, err := p.Save(context.Background(), "alice", "x", "es", domain.RecordingResult{ArtifactPath: "/tmp/a.m4a"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	p.Wait()

	stored, err := notes.Get(context.Background(), "alice", note.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != domain.NoteStatusError {
		t.Fatalf("status = %q, want error", stored.Status)
	}
	if stored.Transcript != "" {
		t.Fatalf("transcript should stay empty, got %q", stored.Transcript)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.updated) != 1 || sink.updated[0].Status != domain.NoteStatusError {
		t.Fatalf("updated events = %+v", sink.updated)
	}
	if len(sink.errors) != 1 || sink.errors[0].code != domain.ErrorCodeTranscription {
		t.Fatalf("errors = %+v", sink.errors)
	}
}

func TestPipelineEmptyTranscriptIsReady(t *testing.T) {
	t.Parallel()

	notes := newMemoryNoteStore()
	p := newTestPipeline(&fakeBlobStore{}, notes, &fakeTranscriber{}, &recordingSink{})

	note, err := p.Save(context.Background(), "alice", "silence", "es", domain.RecordingResult{ArtifactPath: "/tmp/a.m4a"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	p.Wait()

	stored, _ := notes.Get(context.Background(), "alice", note.ID)
	if stored.Status != domain.NoteStatusReady {
		t.Fatalf("status = %q, want ready for an empty transcript", stored.Status)
	}
}
