package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"murmur/internal/bootstrap"
	"murmur/internal/config"
	"murmur/internal/domain"
	"murmur/internal/playback"
	"murmur/internal/ports"
	"murmur/internal/usecase"
)

const (
	eventRecordingTick  = "murmur:recording-tick"
	eventRecordingState = "murmur:recording-state"
	eventCaption        = "murmur:caption"
	eventNoteSaved      = "murmur:note-saved"
	eventNoteUpdated    = "murmur:note-updated"
	eventPlayback       = "murmur:playback"
	eventError          = "murmur:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	recording *usecase.RecordingController
	pipeline  *usecase.NotePipeline
	library   *usecase.NoteLibrary
	chat      ports.ChatCompleter
	audioOut  ports.AudioOutput
	notes     ports.NoteStore
	cfg       config.Config
	bootErr   error

	coordinator *playback.Coordinator

	mu      sync.Mutex
	players map[string]*playback.Player
	chats   map[string]*usecase.ChatSession
}

func NewApp() *App {
	return &App{
		coordinator: playback.NewCoordinator(),
		players:     make(map[string]*playback.Player),
		chats:       make(map[string]*usecase.ChatSession),
	}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.BackendError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.recording = services.Recording
	a.pipeline = services.Pipeline
	a.library = services.Library
	a.chat = services.Chat
	a.audioOut = services.AudioOutput
	a.notes = services.Notes
}

func (a *App) shutdown(_ context.Context) {
	a.mu.Lock()
	players := make([]*playback.Player, 0, len(a.players))
	for _, p := range a.players {
		players = append(players, p)
	}
	a.players = make(map[string]*playback.Player)
	a.mu.Unlock()

	for _, p := range players {
		_ = p.Close()
	}
	// Anything still holding the playback claim (a non-player resource, or
	// a player created after the snapshot above) gets paused here.
	a.coordinator.Release()

	if a.pipeline != nil {
		a.pipeline.Wait()
	}
	if a.notes != nil {
		_ = a.notes.Close()
	}
}

// StartRecording begins microphone capture with live captions when
// configured.
func (a *App) StartRecording() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.recording.Start(a.ctx, domain.DefaultLanguage); err != nil {
		code := domain.ErrorCodeRecording
		if errors.Is(err, domain.ErrMicPermissionDenied) {
			code = domain.ErrorCodePermission
		}
		a.BackendError(code, err.Error())
		return err
	}
	return nil
}

// StopRecording finalizes the capture and hands the artifact to the
// save pipeline. The returned note is still transcribing; the ready
// transcript arrives via a note-updated event.
func (a *App) StopRecording(title string) (domain.VoiceNote, error) {
	if err := a.requireReady(); err != nil {
		return domain.VoiceNote{}, err
	}

	result, err := a.recording.Stop(a.ctx)
	if err != nil {
		a.BackendError(domain.ErrorCodeRecording, err.Error())
		return domain.VoiceNote{}, err
	}

	note, err := a.pipeline.Save(a.ctx, a.cfg.Data.Profile, title, domain.DefaultLanguage, result)
	if err != nil {
		a.BackendError(domain.ErrorCodeUpload, err.Error())
		return domain.VoiceNote{}, err
	}
	return note, nil
}

// IsRecording reports whether a capture session is active.
func (a *App) IsRecording() bool {
	if a.recording == nil {
		return false
	}
	return a.recording.Recording()
}

// ListNotes returns the profile's notes, newest first.
func (a *App) ListNotes() ([]domain.VoiceNote, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	notes, err := a.library.List(a.ctx, a.cfg.Data.Profile)
	if err != nil {
		a.BackendError(domain.ErrorCodeStore, err.Error())
		return nil, err
	}
	return notes, nil
}

// GetNote returns a single note by id.
func (a *App) GetNote(id string) (domain.VoiceNote, error) {
	if err := a.requireReady(); err != nil {
		return domain.VoiceNote{}, err
	}
	return a.library.Get(a.ctx, a.cfg.Data.Profile, id)
}

// DeleteNote removes a note, its audio artifact, and any playback or
// chat state attached to it.
func (a *App) DeleteNote(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}

	a.mu.Lock()
	player := a.players[id]
	delete(a.players, id)
	delete(a.chats, id)
	a.mu.Unlock()

	if player != nil {
		_ = player.Close()
	}

	if err := a.library.Delete(a.ctx, a.cfg.Data.Profile, id); err != nil {
		a.BackendError(domain.ErrorCodeStore, err.Error())
		return err
	}
	return nil
}

// TogglePlay starts or pauses playback of a note. At most one note
// plays at a time; starting one pauses whichever was playing.
func (a *App) TogglePlay(noteID string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	player, err := a.playerFor(noteID)
	if err != nil {
		return err
	}
	if err := player.TogglePlay(a.ctx); err != nil {
		a.BackendError(domain.ErrorCodePlayback, err.Error())
		return err
	}
	return nil
}

// SeekPlayback moves a note's playback position, clamped to the track.
func (a *App) SeekPlayback(noteID string, seconds float64) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	player, err := a.playerFor(noteID)
	if err != nil {
		return err
	}
	if err := player.Seek(seconds); err != nil {
		a.BackendError(domain.ErrorCodePlayback, err.Error())
		return err
	}
	return nil
}

// ReleasePlayback unloads a note's player, e.g. when its detail view
// closes.
func (a *App) ReleasePlayback(noteID string) error {
	a.mu.Lock()
	player := a.players[noteID]
	delete(a.players, noteID)
	a.mu.Unlock()

	if player == nil {
		return nil
	}
	return player.Close()
}

// GetPlaybackStatus returns the playback snapshot for a note.
func (a *App) GetPlaybackStatus(noteID string) domain.PlaybackStatus {
	a.mu.Lock()
	player := a.players[noteID]
	a.mu.Unlock()

	if player == nil {
		return domain.PlaybackStatus{NoteID: noteID, State: domain.PlayerStateUnloaded}
	}
	return player.Status()
}

// SendChatMessage asks the assistant about a note's transcript and
// returns the reply.
func (a *App) SendChatMessage(noteID string, text string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}

	session, err := a.chatFor(noteID)
	if err != nil {
		a.BackendError(domain.ErrorCodeChat, err.Error())
		return "", err
	}

	reply, err := session.Send(a.ctx, text)
	if err != nil {
		a.BackendError(domain.ErrorCodeChat, err.Error())
		return "", err
	}
	return reply, nil
}

// GetChatHistory returns the conversation so far for a note.
func (a *App) GetChatHistory(noteID string) []domain.ChatMessage {
	a.mu.Lock()
	session := a.chats[noteID]
	a.mu.Unlock()

	if session == nil {
		return nil
	}
	return session.History()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"transcriptionProvider": "Deepgram",
		"transcriptionModel":    a.cfg.Deepgram.Model,
		"chatModel":             a.cfg.AI.Model,
		"profile":               a.cfg.Data.Profile,
		"dataDir":               a.cfg.Data.Dir,
		"audioInput":            a.cfg.Audio.InputDevice,
		"audioInputFormat":      a.cfg.Audio.InputFormat,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.library == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) playerFor(noteID string) (*playback.Player, error) {
	a.mu.Lock()
	if player, ok := a.players[noteID]; ok {
		a.mu.Unlock()
		return player, nil
	}
	a.mu.Unlock()

	note, err := a.library.Get(a.ctx, a.cfg.Data.Profile, noteID)
	if err != nil {
		a.BackendError(domain.ErrorCodePlayback, err.Error())
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if player, ok := a.players[noteID]; ok {
		return player, nil
	}
	player := playback.NewPlayer(note.ID, note.AudioURL, a.audioOut, a.coordinator, a)
	a.players[noteID] = player
	return player, nil
}

func (a *App) chatFor(noteID string) (*usecase.ChatSession, error) {
	a.mu.Lock()
	if session, ok := a.chats[noteID]; ok {
		a.mu.Unlock()
		return session, nil
	}
	a.mu.Unlock()

	note, err := a.library.Get(a.ctx, a.cfg.Data.Profile, noteID)
	if err != nil {
		return nil, err
	}
	session, err := usecase.NewChatSession(a.chat, note)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.chats[noteID]; ok {
		return existing, nil
	}
	a.chats[noteID] = session
	return session, nil
}

// RecordingTick emits the elapsed recording seconds.
func (a *App) RecordingTick(elapsedSeconds int) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventRecordingTick, map[string]any{
		"elapsed": elapsedSeconds,
		"clock":   domain.FormatClock(float64(elapsedSeconds)),
	})
}

// RecordingStateChanged emits recording lifecycle updates.
func (a *App) RecordingStateChanged(recording bool) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventRecordingState, map[string]bool{"recording": recording})
}

// LiveCaption emits interim caption text while recording.
func (a *App) LiveCaption(event domain.CaptionEvent) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventCaption, event)
}

// NoteSaved emits the freshly persisted note.
func (a *App) NoteSaved(note domain.VoiceNote) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventNoteSaved, note)
}

// NoteUpdated emits a note whose transcription settled.
func (a *App) NoteUpdated(note domain.VoiceNote) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventNoteUpdated, note)
}

// PlaybackChanged emits playback status snapshots.
func (a *App) PlaybackChanged(status domain.PlaybackStatus) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventPlayback, status)
}

// BackendError emits backend errors to the UI.
func (a *App) BackendError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermission:
		return "Microphone permission denied"
	case domain.ErrorCodeRecording:
		return "Recording error"
	case domain.ErrorCodeUpload:
		return "Could not save the recording"
	case domain.ErrorCodeTranscription:
		return "Transcription error"
	case domain.ErrorCodeChat:
		return "Chat error"
	case domain.ErrorCodePlayback:
		return "Playback error"
	case domain.ErrorCodeStore:
		return "Storage error"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
