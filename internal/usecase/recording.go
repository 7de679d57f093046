// Package usecase orchestrates the note lifecycle: capture, the
// upload/transcription pipeline, the note library, and chat over a
// transcript.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"murmur/internal/domain"
	"murmur/internal/ports"
)

// RecordingConfig controls microphone capture and the caption pump.
type RecordingConfig struct {
	Recorder  ports.RecorderConfig
	ChunkSize int
}

// RecordingController owns the single active capture session. Exactly
// one recording may be active per process; starting a second one is a
// caller error, not something handled internally.
type RecordingController struct {
	recorder ports.Recorder
	captions ports.CaptionStreamer
	events   ports.EventSink
	cfg      RecordingConfig

	mu      sync.Mutex
	current *activeRecording
}

type activeRecording struct {
	session   ports.CaptureSession
	stream    ports.CaptionSession
	language  string
	startedAt time.Time

	stopTicker   chan struct{}
	tickerDone   chan struct{}
	pumpDone     chan struct{}
	captionsDone chan struct{}
}

// NewRecordingController builds a controller; captions may be nil, in
// which case recording proceeds without live text.
func NewRecordingController(recorder ports.Recorder, captions ports.CaptionStreamer, events ports.EventSink, cfg RecordingConfig) *RecordingController {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	return &RecordingController{recorder: recorder, captions: captions, events: events, cfg: cfg}
}

// Start begins microphone capture and the elapsed-seconds ticker.
func (c *RecordingController) Start(ctx context.Context, language string) error {
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return domain.ErrRecordingInProgress
	}
	c.mu.Unlock()

	session, err := c.recorder.Start(ctx, c.cfg.Recorder)
	if err != nil {
		if errors.Is(err, domain.ErrMicPermissionDenied) {
			return err
		}
		return fmt.Errorf("start capture: %w", err)
	}

	active := &activeRecording{
		session:    session,
		language:   language,
		startedAt:  time.Now(),
		stopTicker: make(chan struct{}),
		tickerDone: make(chan struct{}),
	}

	// Live captions are advisory; a streaming failure downgrades the
	// session rather than failing the recording.
	if c.captions != nil {
		stream, streamErr := c.captions.StartCaptions(ctx, language)
		if streamErr != nil {
			c.events.BackendError(domain.ErrorCodeTranscription, fmt.Sprintf("live captions unavailable: %v", streamErr))
		} else {
			active.stream = stream
			active.pumpDone = make(chan struct{})
			active.captionsDone = make(chan struct{})
			go pumpCaptionAudio(session, stream, c.cfg.ChunkSize, active.pumpDone)
			go c.consumeCaptions(stream, active.captionsDone)
		}
	}

	c.mu.Lock()
	c.current = active
	c.mu.Unlock()

	go c.tick(active)
	c.events.RecordingStateChanged(true)
	return nil
}

// Stop finalizes the capture and returns the local artifact plus the
// elapsed duration rounded to the nearest second.
func (c *RecordingController) Stop(ctx context.Context) (domain.RecordingResult, error) {
	c.mu.Lock()
	active := c.current
	c.current = nil
	c.mu.Unlock()

	if active == nil {
		return domain.RecordingResult{}, domain.ErrNoActiveRecording
	}

	close(active.stopTicker)
	<-active.tickerDone

	path, mimeType, err := active.session.Stop()

	if active.stream != nil {
		_ = active.stream.Close()
		<-active.pumpDone
		<-active.captionsDone
	}

	c.events.RecordingStateChanged(false)

	if err != nil {
		return domain.RecordingResult{}, fmt.Errorf("finalize capture: %w", err)
	}

	elapsed := int(math.Round(time.Since(active.startedAt).Seconds()))
	return domain.RecordingResult{
		ArtifactPath: path,
		Duration:     elapsed,
		MimeType:     mimeType,
	}, nil
}

// Recording reports whether a capture session is active.
func (c *RecordingController) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

func (c *RecordingController) tick(active *activeRecording) {
	defer close(active.tickerDone)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	elapsed := 0
	for {
		select {
		case <-ticker.C:
			elapsed++
			c.events.RecordingTick(elapsed)
		case <-active.stopTicker:
			return
		}
	}
}

func (c *RecordingController) consumeCaptions(stream ports.CaptionSession, done chan struct{}) {
	defer close(done)
	for event := range stream.Events() {
		c.events.LiveCaption(event)
	}
}

// pumpCaptionAudio feeds captured PCM into the caption stream until the
// capture ends.
func pumpCaptionAudio(session ports.CaptureSession, stream ports.CaptionSession, chunkSize int, done chan struct{}) {
	defer close(done)

	buf := make([]byte, chunkSize)
	for {
		n, err := session.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				_ = stream.Close()
			}
			return
		}
	}
}
