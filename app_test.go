package main

import (
	"context"
	"errors"
	"testing"

	"murmur/internal/domain"
)

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.ErrorCode]string{
		domain.ErrorCodeStartup:       "Startup failed",
		domain.ErrorCodePermission:    "Microphone permission denied",
		domain.ErrorCodeRecording:     "Recording error",
		domain.ErrorCodeUpload:        "Could not save the recording",
		domain.ErrorCodeTranscription: "Transcription error",
		domain.ErrorCodeChat:          "Chat error",
		domain.ErrorCodePlayback:      "Playback error",
		domain.ErrorCodeStore:         "Storage error",
	}
	for code, want := range cases {
		code := code
		want := want
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			if got := errorMessage(code, "ignored"); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := errorMessage("unknown", "detail"); got != "detail" {
		t.Fatalf("expected detail fallback, got %q", got)
	}
	if got := errorMessage("unknown", ""); got != "Unknown error" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := NewApp()
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
}

func TestIsRecordingWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := NewApp()
	if app.IsRecording() {
		t.Fatal("uninitialized app must not report an active recording")
	}
}

func TestGetPlaybackStatusWithoutPlayer(t *testing.T) {
	t.Parallel()

	app := NewApp()
	status := app.GetPlaybackStatus("n1")
	if status.NoteID != "n1" || status.State != domain.PlayerStateUnloaded {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestGetChatHistoryWithoutSession(t *testing.T) {
	t.Parallel()

	app := NewApp()
	if history := app.GetChatHistory("n1"); history != nil {
		t.Fatalf("expected no history, got %+v", history)
	}
}

func TestGetRuntimeInfoWithBootError(t *testing.T) {
	t.Parallel()

	app := NewApp()
	app.bootErr = errors.New("boot")
	info := app.GetRuntimeInfo()
	if info["error"] != "boot" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestReleasePlaybackWithoutPlayer(t *testing.T) {
	t.Parallel()

	app := NewApp()
	if err := app.ReleasePlayback("n1"); err != nil {
		t.Fatalf("release without player should be a no-op: %v", err)
	}
}

type stubClaimHolder struct{ paused bool }

func (r *stubClaimHolder) Pause() error {
	r.paused = true
	return nil
}

func TestShutdownReleasesPlaybackClaim(t *testing.T) {
	t.Parallel()

	app := NewApp()
	holder := &stubClaimHolder{}
	app.coordinator.Acquire(holder, nil)

	app.shutdown(context.Background())

	if !holder.paused {
		t.Fatalf("shutdown must pause the claim holder")
	}
}
