package domain

import "time"

// NoteStatus models the voice-note lifecycle.
type NoteStatus string

const (
	NoteStatusRecording    NoteStatus = "recording"
	NoteStatusTranscribing NoteStatus = "transcribing"
	NoteStatusReady        NoteStatus = "ready"
	NoteStatusError        NoteStatus = "error"
)

// DefaultLanguage is assumed when a stored note carries no language code.
const DefaultLanguage = "es"

// TranscriptSegment is one speaker-attributed span of transcript text.
// Speaker is an arbitrary small index with no identity guarantee; display
// layers map it to a label color via SpeakerHue.
type TranscriptSegment struct {
	Speaker int    `json:"speaker"`
	Text    string `json:"text"`
}

// VoiceNote is the persisted note record. Duration is the display value
// measured at recording time, never re-derived from the audio. AudioURL is
// set once at creation and serves both playback and transcription input.
type VoiceNote struct {
	ID         string              `json:"id"`
	UserID     string              `json:"userId"`
	Title      string              `json:"title"`
	Duration   int                 `json:"duration"`
	AudioURL   string              `json:"audioUrl"`
	Transcript string              `json:"transcript"`
	Segments   []TranscriptSegment `json:"segments,omitempty"`
	Language   string              `json:"language"`
	Status     NoteStatus          `json:"status"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// Chatable reports whether the note has a transcript to ground chat on.
func (n VoiceNote) Chatable() bool {
	return n.Status == NoteStatusReady && n.Transcript != ""
}

// RecordingResult is returned once a capture session is finalized.
type RecordingResult struct {
	ArtifactPath string `json:"artifactPath"`
	Duration     int    `json:"duration"`
	MimeType     string `json:"mimeType"`
}

// TranscriptionResult is the parsed output of a prerecorded transcription
// call. An empty transcript from a successful call is still a success.
type TranscriptionResult struct {
	Transcript string
	Segments   []TranscriptSegment
}

// CaptionEvent is an incremental live caption emitted while recording.
type CaptionEvent struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry in a chat-over-transcript conversation.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// PlayerState models the per-note playback state machine.
type PlayerState string

const (
	PlayerStateUnloaded PlayerState = "unloaded"
	PlayerStateLoading  PlayerState = "loading"
	PlayerStateReady    PlayerState = "ready"
	PlayerStatePlaying  PlayerState = "playing"
	PlayerStatePaused   PlayerState = "paused"
)

// PositionUpdate is one sample from a playback position subscription.
// Finished marks natural end-of-track; the producer stops emitting after it.
type PositionUpdate struct {
	Position time.Duration
	Finished bool
}

// PlaybackStatus is the UI-facing snapshot of a player.
type PlaybackStatus struct {
	NoteID   string      `json:"noteId"`
	State    PlayerState `json:"state"`
	Position float64     `json:"position"`
	Duration float64     `json:"duration"`
}

// ErrorCode identifies non-fatal backend errors surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup       ErrorCode = "startup"
	ErrorCodePermission    ErrorCode = "mic_permission"
	ErrorCodeRecording     ErrorCode = "recording"
	ErrorCodeUpload        ErrorCode = "upload"
	ErrorCodeTranscription ErrorCode = "transcription"
	ErrorCodeChat          ErrorCode = "chat"
	ErrorCodePlayback      ErrorCode = "playback"
	ErrorCodeStore         ErrorCode = "store"
)
