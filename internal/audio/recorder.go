// Package audio shells out to the ffmpeg family for microphone capture
// and playback. Everything here sits behind the ports interfaces so the
// rest of the app never sees a process.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"murmur/internal/domain"
	"murmur/internal/ports"
)

const artifactMimeType = "audio/mp4"

// FFMPEGRecorder captures microphone input into a local .m4a artifact.
type FFMPEGRecorder struct {
	command string
	workDir string
}

func NewFFMPEGRecorder(command string, workDir string) *FFMPEGRecorder {
	if command == "" {
		command = "ffmpeg"
	}
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &FFMPEGRecorder{command: command, workDir: workDir}
}

func (r *FFMPEGRecorder) Start(ctx context.Context, cfg ports.RecorderConfig) (ports.CaptureSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}

	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create recording dir: %w", err)
	}
	target := filepath.Join(r.workDir, fmt.Sprintf("rec-%d.m4a", time.Now().UnixMilli()))

	// Two outputs: the encoded artifact, plus raw PCM on stdout for the
	// live-caption pump.
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", "aac",
		"-y", target,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, r.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create recorder pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start recorder: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// An immediate exit means the device could not be opened at all.
	select {
	case err := <-waitErr:
		detail := strings.TrimSpace(stderr.String())
		if deniedByPlatform(detail) {
			return nil, fmt.Errorf("%w: %s", domain.ErrMicPermissionDenied, detail)
		}
		if err != nil {
			return nil, fmt.Errorf("recorder exited before capture started: %w: %s", err, detail)
		}
		return nil, errors.New("recorder exited before capture started")
	case <-time.After(250 * time.Millisecond):
	}

	return &captureSession{
		target:  target,
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

func deniedByPlatform(stderr string) bool {
	lowered := strings.ToLower(stderr)
	for _, marker := range []string{"permission denied", "access denied", "not authorized", "operation not permitted"} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

type captureSession struct {
	target  string
	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *captureSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *captureSession) Stop() (string, string, error) {
	s.stopOnce.Do(func() {
		s.stopErr = s.shutdown()
	})
	if s.stopErr != nil {
		return "", "", s.stopErr
	}
	return s.target, artifactMimeType, nil
}

func (s *captureSession) Abort() error {
	s.stopOnce.Do(func() {
		s.stopErr = s.shutdown()
	})
	if err := os.Remove(s.target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// shutdown asks ffmpeg to finalize the container, escalating to a kill if
// it does not exit promptly.
func (s *captureSession) shutdown() error {
	if s.process != nil {
		_ = s.process.Signal(os.Interrupt)
	}

	var exitErr error
	select {
	case err, ok := <-s.waitErr:
		if ok {
			exitErr = normalizeExit(err)
		}
	case <-time.After(1500 * time.Millisecond):
		if s.process != nil {
			_ = s.process.Kill()
		}
		err, ok := <-s.waitErr
		if ok {
			exitErr = normalizeExit(err)
		}
	}

	if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && exitErr == nil {
		exitErr = closeErr
	}

	if exitErr != nil {
		detail := strings.TrimSpace(s.stderr.String())
		if detail != "" {
			return fmt.Errorf("%w: %s", exitErr, detail)
		}
		return exitErr
	}

	info, err := os.Stat(s.target)
	if err != nil {
		return fmt.Errorf("recording produced no artifact: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("recording produced an empty artifact")
	}
	return nil
}

// normalizeExit drops the non-zero status ffmpeg reports when interrupted
// mid-encode; the artifact is still finalized.
func normalizeExit(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
