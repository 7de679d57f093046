package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"murmur/internal/domain"
	"murmur/internal/ports"
)

type recordedError struct {
	code   domain.ErrorCode
	detail string
}

// recordingSink captures every event the code under test emits.
type recordingSink struct {
	mu           sync.Mutex
	ticks        []int
	stateChanges []bool
	captions     []domain.CaptionEvent
	saved        []domain.VoiceNote
	updated      []domain.VoiceNote
	playback     []domain.PlaybackStatus
	errors       []recordedError
}

func (s *recordingSink) RecordingTick(elapsed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = append(s.ticks, elapsed)
}

func (s *recordingSink) RecordingStateChanged(recording bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateChanges = append(s.stateChanges, recording)
}

func (s *recordingSink) LiveCaption(event domain.CaptionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captions = append(s.captions, event)
}

func (s *recordingSink) NoteSaved(note domain.VoiceNote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, note)
}

func (s *recordingSink) NoteUpdated(note domain.VoiceNote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, note)
}

func (s *recordingSink) PlaybackChanged(status domain.PlaybackStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playback = append(s.playback, status)
}

func (s *recordingSink) BackendError(code domain.ErrorCode, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, recordedError{code: code, detail: detail})
}

type fakeCapture struct {
	pcm      *bytes.Reader
	path     string
	mimeType string
	stopErr  error

	mu      sync.Mutex
	stopped bool
	aborted bool
}

func newFakeCapture(pcm []byte) *fakeCapture {
	return &fakeCapture{
		pcm:      bytes.NewReader(pcm),
		path:     "/tmp/fake-capture.m4a",
		mimeType: "audio/mp4",
	}
}

func (c *fakeCapture) Read(p []byte) (int, error) {
	return c.pcm.Read(p)
}

func (c *fakeCapture) Stop() (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.stopErr != nil {
		return "", "", c.stopErr
	}
	return c.path, c.mimeType, nil
}

func (c *fakeCapture) Abort() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aborted = true
	return nil
}

type fakeRecorder struct {
	session  *fakeCapture
	startErr error
	starts   int
}

func (r *fakeRecorder) Start(_ context.Context, _ ports.RecorderConfig) (ports.CaptureSession, error) {
	r.starts++
	if r.startErr != nil {
		return nil, r.startErr
	}
	return r.session, nil
}

type fakeCaptionSession struct {
	events chan domain.CaptionEvent

	mu        sync.Mutex
	audio     []byte
	closed    bool
	closeOnce sync.Once
}

func newFakeCaptionSession() *fakeCaptionSession {
	return &fakeCaptionSession{events: make(chan domain.CaptionEvent, 8)}
}

func (s *fakeCaptionSession) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, chunk...)
	return nil
}

func (s *fakeCaptionSession) Events() <-chan domain.CaptionEvent {
	return s.events
}

func (s *fakeCaptionSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.events)
	})
	return nil
}

type fakeCaptionStreamer struct {
	session  *fakeCaptionSession
	startErr error
}

func (f *fakeCaptionStreamer) StartCaptions(_ context.Context, _ string) (ports.CaptionSession, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.session, nil
}

type fakeBlobStore struct {
	mu      sync.Mutex
	putErr  error
	delErr  error
	puts    []string
	deletes []string
}

func (b *fakeBlobStore) Put(_ context.Context, userID, localPath, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return "", b.putErr
	}
	b.puts = append(b.puts, localPath)
	return fmt.Sprintf("file:///blobs/%s/%d.m4a", userID, len(b.puts)), nil
}

func (b *fakeBlobStore) Delete(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.delErr != nil {
		return b.delErr
	}
	b.deletes = append(b.deletes, url)
	return nil
}

// memoryNoteStore is a map-backed NoteStore good enough for pipeline and
// library tests.
type memoryNoteStore struct {
	mu    sync.Mutex
	notes map[string]domain.VoiceNote
}

func newMemoryNoteStore() *memoryNoteStore {
	return &memoryNoteStore{notes: make(map[string]domain.VoiceNote)}
}

func (m *memoryNoteStore) Create(_ context.Context, note domain.VoiceNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[note.ID] = note
	return nil
}

func (m *memoryNoteStore) Get(_ context.Context, userID, id string) (domain.VoiceNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	note, ok := m.notes[id]
	if !ok || note.UserID != userID {
		return domain.VoiceNote{}, domain.ErrNoteNotFound
	}
	return note, nil
}

func (m *memoryNoteStore) List(_ context.Context, userID string) ([]domain.VoiceNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.VoiceNote
	for _, note := range m.notes {
		if note.UserID == userID {
			out = append(out, note)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryNoteStore) SetTranscript(_ context.Context, userID, id, transcript string, segments []domain.TranscriptSegment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	note, ok := m.notes[id]
	if !ok || note.UserID != userID {
		return domain.ErrNoteNotFound
	}
	note.Transcript = transcript
	note.Segments = segments
	note.Status = domain.NoteStatusReady
	m.notes[id] = note
	return nil
}

func (m *memoryNoteStore) SetStatus(_ context.Context, userID, id string, status domain.NoteStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	note, ok := m.notes[id]
	if !ok || note.UserID != userID {
		return domain.ErrNoteNotFound
	}
	note.Status = status
	m.notes[id] = note
	return nil
}

func (m *memoryNoteStore) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	note, ok := m.notes[id]
	if !ok || note.UserID != userID {
		return domain.ErrNoteNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *memoryNoteStore) Close() error { return nil }

type fakeTranscriber struct {
	mu     sync.Mutex
	result domain.TranscriptionResult
	err    error
	calls  []string
}

func (t *fakeTranscriber) Transcribe(_ context.Context, audioURL, _ string) (domain.TranscriptionResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, audioURL)
	if t.err != nil {
		return domain.TranscriptionResult{}, t.err
	}
	return t.result, nil
}

type fakeCompleter struct {
	reply string
	err   error

	mu    sync.Mutex
	seen  [][]domain.ChatMessage
	calls int
}

func (c *fakeCompleter) Complete(_ context.Context, messages []domain.ChatMessage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	copied := make([]domain.ChatMessage, len(messages))
	copy(copied, messages)
	c.seen = append(c.seen, copied)
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

var errBoom = errors.New("boom")
