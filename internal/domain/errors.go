package domain

import "errors"

var (
	// ErrMicPermissionDenied reports that the platform refused microphone
	// access. Surfaced immediately; there is no retry.
	ErrMicPermissionDenied = errors.New("microphone permission denied")

	// ErrNoActiveRecording is a sequencing error: Stop without Start.
	ErrNoActiveRecording = errors.New("no active recording")

	// ErrRecordingInProgress is a caller error: Start while recording.
	ErrRecordingInProgress = errors.New("a recording is already in progress")

	// ErrNoteNotFound reports a lookup for a note the user does not own
	// or that does not exist; the two cases are indistinguishable.
	ErrNoteNotFound = errors.New("note not found")
)
