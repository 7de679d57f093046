package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"murmur/internal/domain"
	"murmur/internal/ports"
)

const positionInterval = 200 * time.Millisecond

// FFPlayOutput loads audio artifacts for playback through ffplay, with
// ffprobe supplying the total duration up front. file:// URLs resolve to
// local paths; anything else is handed to the processes verbatim.
type FFPlayOutput struct {
	playCommand  string
	probeCommand string
}

func NewFFPlayOutput(playCommand string, probeCommand string) *FFPlayOutput {
	if playCommand == "" {
		playCommand = "ffplay"
	}
	if probeCommand == "" {
		probeCommand = "ffprobe"
	}
	return &FFPlayOutput{playCommand: playCommand, probeCommand: probeCommand}
}

func (o *FFPlayOutput) Load(ctx context.Context, rawURL string) (ports.AudioSource, error) {
	target := resolveTarget(rawURL)
	if target == "" {
		return nil, fmt.Errorf("unsupported audio url %q", rawURL)
	}

	duration, err := o.probeDuration(ctx, target)
	if err != nil {
		return nil, err
	}

	return &ffplaySource{
		command:  o.playCommand,
		target:   target,
		duration: duration,
		updates:  make(chan domain.PositionUpdate, 16),
	}, nil
}

func (o *FFPlayOutput) probeDuration(ctx context.Context, target string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		target,
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, o.probeCommand, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("probe audio duration: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil || seconds < 0 {
		// A broken probe is not fatal; the player degrades to 0:00.
		return 0, nil
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func resolveTarget(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	switch parsed.Scheme {
	case "file":
		return parsed.Path
	case "http", "https":
		return rawURL
	case "":
		return rawURL
	default:
		return ""
	}
}

// ffplaySource plays one artifact by spawning ffplay at an offset and
// deriving position from wall clock. Pausing kills the process and
// remembers the offset; seeking respawns at the new offset.
type ffplaySource struct {
	command  string
	target   string
	duration time.Duration

	mu        sync.Mutex
	offset    time.Duration
	startedAt time.Time
	playing   bool
	closed    bool
	process   *os.Process
	gen       int

	updates   chan domain.PositionUpdate
	closeOnce sync.Once
}

func (s *ffplaySource) Duration() time.Duration {
	return s.duration
}

func (s *ffplaySource) Updates() <-chan domain.PositionUpdate {
	return s.updates
}

func (s *ffplaySource) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("audio source is closed")
	}
	if s.playing {
		return nil
	}
	return s.spawnLocked()
}

func (s *ffplaySource) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.haltLocked()
	return nil
}

func (s *ffplaySource) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("audio source is closed")
	}

	if pos < 0 {
		pos = 0
	}
	if s.duration > 0 && pos > s.duration {
		pos = s.duration
	}

	wasPlaying := s.playing
	s.haltLocked()
	s.offset = pos
	if wasPlaying {
		return s.spawnLocked()
	}
	return nil
}

func (s *ffplaySource) Close() error {
	s.mu.Lock()
	s.haltLocked()
	s.closed = true
	s.mu.Unlock()

	s.closeOnce.Do(func() { close(s.updates) })
	return nil
}

// spawnLocked starts ffplay at the current offset and a watcher that
// emits position samples until the generation is superseded.
func (s *ffplaySource) spawnLocked() error {
	args := []string{
		"-nodisp",
		"-autoexit",
		"-loglevel", "quiet",
		"-ss", fmt.Sprintf("%.3f", s.offset.Seconds()),
		s.target,
	}
	cmd := exec.Command(s.command, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}

	s.gen++
	s.playing = true
	s.startedAt = time.Now()
	s.process = cmd.Process

	gen := s.gen
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()
	go s.watch(gen, exited)
	return nil
}

// haltLocked kills the player process and folds elapsed time into the
// stored offset.
func (s *ffplaySource) haltLocked() {
	if !s.playing {
		return
	}
	s.offset += time.Since(s.startedAt)
	if s.duration > 0 && s.offset > s.duration {
		s.offset = s.duration
	}
	s.playing = false
	if s.process != nil {
		_ = s.process.Kill()
		s.process = nil
	}
}

func (s *ffplaySource) watch(gen int, exited chan struct{}) {
	ticker := time.NewTicker(positionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			if s.closed || s.gen != gen || !s.playing {
				s.mu.Unlock()
				return
			}
			position := s.offset + time.Since(s.startedAt)
			s.mu.Unlock()
			s.emit(domain.PositionUpdate{Position: position})

		case <-exited:
			s.mu.Lock()
			if s.closed || s.gen != gen || !s.playing {
				// Killed by pause/seek/close, not a natural end.
				s.mu.Unlock()
				return
			}
			s.playing = false
			s.process = nil
			s.offset = 0
			s.mu.Unlock()
			s.emit(domain.PositionUpdate{Position: s.duration, Finished: true})
			return
		}
	}
}

// emit publishes a position sample without blocking the watcher. Ordinary
// samples are droppable when the consumer lags; the Finished sample is not,
// so it retries until delivered or the source closes.
func (s *ffplaySource) emit(update domain.PositionUpdate) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		select {
		case s.updates <- update:
			s.mu.Unlock()
			return
		default:
		}
		s.mu.Unlock()
		if !update.Finished {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}
