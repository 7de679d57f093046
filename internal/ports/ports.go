package ports

import (
	"context"
	"io"
	"time"

	"murmur/internal/domain"
)

// RecorderConfig describes how the microphone should be captured.
type RecorderConfig struct {
	InputFormat string
	InputDevice string
	SampleRate  int
	Channels    int
}

// CaptureSession is a live microphone capture writing a local artifact.
// Read yields raw PCM teed off the encoder, consumed by the live-caption
// pump; it returns io.EOF once capture stops.
type CaptureSession interface {
	io.Reader
	// Stop finalizes the artifact and returns its path plus MIME type.
	Stop() (path string, mimeType string, err error)
	// Abort discards the capture and removes any partial artifact.
	Abort() error
}

// Recorder creates microphone capture sessions.
type Recorder interface {
	Start(ctx context.Context, cfg RecorderConfig) (CaptureSession, error)
}

// AudioSource is one loaded playback resource. Updates emits position
// samples while playing and a Finished sample at natural end-of-track;
// it stops emitting while paused and closes on Close.
type AudioSource interface {
	Play() error
	Pause() error
	Seek(pos time.Duration) error
	Duration() time.Duration
	Updates() <-chan domain.PositionUpdate
	Close() error
}

// AudioOutput prepares audio artifacts for playback without auto-starting.
type AudioOutput interface {
	Load(ctx context.Context, url string) (AudioSource, error)
}

// Transcriber runs prerecorded transcription against a hosted or local
// audio artifact identified by its retrieval URL.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string, language string) (domain.TranscriptionResult, error)
}

// CaptionSession is an active live-caption stream for an in-progress
// recording.
type CaptionSession interface {
	SendAudio(chunk []byte) error
	Events() <-chan domain.CaptionEvent
	Close() error
}

// CaptionStreamer starts live-caption sessions. Optional; recording works
// without one.
type CaptionStreamer interface {
	StartCaptions(ctx context.Context, language string) (CaptionSession, error)
}

// ChatCompleter submits a composed message sequence and returns the
// assistant reply text.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// NoteStore is the CRUD surface over note records. Every operation is
// scoped to the owning user at the query layer.
type NoteStore interface {
	Create(ctx context.Context, note domain.VoiceNote) error
	Get(ctx context.Context, userID string, id string) (domain.VoiceNote, error)
	List(ctx context.Context, userID string) ([]domain.VoiceNote, error)
	SetTranscript(ctx context.Context, userID string, id string, transcript string, segments []domain.TranscriptSegment) error
	SetStatus(ctx context.Context, userID string, id string, status domain.NoteStatus) error
	Delete(ctx context.Context, userID string, id string) error
	Close() error
}

// BlobStore owns audio artifacts in durable storage. Put moves a local
// artifact into the store and returns a stable retrieval URL; Delete is
// best-effort and must treat a missing object as success.
type BlobStore interface {
	Put(ctx context.Context, userID string, localPath string, mimeType string) (url string, err error)
	Delete(ctx context.Context, url string) error
}

// EventSink emits backend state and errors to the UI layer.
type EventSink interface {
	RecordingTick(elapsedSeconds int)
	RecordingStateChanged(recording bool)
	LiveCaption(event domain.CaptionEvent)
	NoteSaved(note domain.VoiceNote)
	NoteUpdated(note domain.VoiceNote)
	PlaybackChanged(status domain.PlaybackStatus)
	BackendError(code domain.ErrorCode, detail string)
}
