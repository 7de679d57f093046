package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"murmur/internal/domain"
	"murmur/internal/ports"
)

// NotePipeline carries a finished recording through upload, record
// creation, and background transcription. Upload failures abort before
// anything is persisted; transcription failures leave the record in a
// terminal error state.
type NotePipeline struct {
	blobs       ports.BlobStore
	notes       ports.NoteStore
	transcriber ports.Transcriber
	events      ports.EventSink

	ids func() string
	now func() time.Time

	wg sync.WaitGroup
}

func NewNotePipeline(blobs ports.BlobStore, notes ports.NoteStore, transcriber ports.Transcriber, events ports.EventSink) *NotePipeline {
	return &NotePipeline{
		blobs:       blobs,
		notes:       notes,
		transcriber: transcriber,
		events:      events,
		ids:         uuid.NewString,
		now:         time.Now,
	}
}

// Save uploads the artifact, persists the note in transcribing state,
// and schedules transcription. The returned note is the pre-transcript
// snapshot; readers learn about the transcript via NoteUpdated.
func (p *NotePipeline) Save(ctx context.Context, userID, title, language string, rec domain.RecordingResult) (domain.VoiceNote, error) {
	audioURL, err := p.blobs.Put(ctx, userID, rec.ArtifactPath, rec.MimeType)
	if err != nil {
		return domain.VoiceNote{}, fmt.Errorf("upload artifact: %w", err)
	}

	createdAt := p.now()
	if title == "" {
		title = defaultTitle(createdAt)
	}
	if language == "" {
		language = domain.DefaultLanguage
	}

	note := domain.VoiceNote{
		ID:        p.ids(),
		UserID:    userID,
		Title:     title,
		Duration:  rec.Duration,
		AudioURL:  audioURL,
		Language:  language,
		Status:    domain.NoteStatusTranscribing,
		CreatedAt: createdAt,
	}

	if err := p.notes.Create(ctx, note); err != nil {
		return domain.VoiceNote{}, fmt.Errorf("persist note: %w", err)
	}

	p.events.NoteSaved(note)

	p.wg.Add(1)
	go p.transcribe(note)

	return note, nil
}

// Wait blocks until in-flight transcriptions settle. Intended for
// shutdown and tests.
func (p *NotePipeline) Wait() {
	p.wg.Wait()
}

func (p *NotePipeline) transcribe(note domain.VoiceNote) {
	defer p.wg.Done()

	ctx := context.Background()

	result, err := p.transcriber.Transcribe(ctx, note.AudioURL, note.Language)
	if err != nil {
		if setErr := p.notes.SetStatus(ctx, note.UserID, note.ID, domain.NoteStatusError); setErr != nil {
			p.events.BackendError(domain.ErrorCodeStore, fmt.Sprintf("mark note %s failed: %v", note.ID, setErr))
			return
		}
		note.Status = domain.NoteStatusError
		p.events.NoteUpdated(note)
		p.events.BackendError(domain.ErrorCodeTranscription, fmt.Sprintf("transcribe note %s: %v", note.ID, err))
		return
	}

	// An empty transcript still counts as a completed transcription;
	// silence is a valid recording.
	if err := p.notes.SetTranscript(ctx, note.UserID, note.ID, result.Transcript, result.Segments); err != nil {
		p.events.BackendError(domain.ErrorCodeStore, fmt.Sprintf("store transcript for %s: %v", note.ID, err))
		return
	}

	note.Transcript = result.Transcript
	note.Segments = result.Segments
	note.Status = domain.NoteStatusReady
	p.events.NoteUpdated(note)
}

func defaultTitle(t time.Time) string {
	return "Note " + t.Format("Jan 2, 2006")
}
