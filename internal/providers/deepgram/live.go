package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"murmur/internal/domain"
	"murmur/internal/ports"
)

// StreamConfig describes the raw audio fed to the caption stream.
type StreamConfig struct {
	SampleRate int
	Channels   int
	Encoding   string
}

// LiveClient starts websocket caption sessions for in-progress
// recordings. Captions are advisory display text; the saved note is
// still transcribed from the uploaded artifact.
type LiveClient struct {
	cfg    Config
	stream StreamConfig
}

func NewLiveClient(cfg Config, stream StreamConfig) *LiveClient {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if stream.Encoding == "" {
		stream.Encoding = "linear16"
	}
	if stream.SampleRate <= 0 {
		stream.SampleRate = 44100
	}
	if stream.Channels <= 0 {
		stream.Channels = 1
	}
	return &LiveClient{cfg: cfg, stream: stream}
}

func (c *LiveClient) StartCaptions(ctx context.Context, language string) (ports.CaptionSession, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, errors.New("DEEPGRAM_API_KEY is not configured")
	}

	wsURL, err := c.listenSocketURL(language)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+c.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("connect caption stream: %w", err)
	}

	session := &captionSession{
		conn:   conn,
		events: make(chan domain.CaptionEvent, 64),
		audio:  make(chan []byte, 32),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	go session.writeLoop()
	go func() {
		session.readLoop()
		close(session.events)
		close(session.done)
		_ = conn.Close()
	}()
	// After CloseStream the server is expected to flush finals and hang
	// up; the deadline bounds how long we wait for it.
	go func() {
		<-session.quit
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = session.Close()
		case <-session.done:
		}
	}()

	return session, nil
}

func (c *LiveClient) listenSocketURL(language string) (string, error) {
	base := strings.TrimSpace(c.cfg.APIBaseURL)
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	endpoint, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	query := endpoint.Query()
	query.Set("model", c.cfg.Model)
	query.Set("encoding", c.stream.Encoding)
	query.Set("sample_rate", fmt.Sprintf("%d", c.stream.SampleRate))
	query.Set("channels", fmt.Sprintf("%d", c.stream.Channels))
	query.Set("interim_results", "true")
	query.Set("smart_format", fmt.Sprintf("%t", c.cfg.SmartFormat))
	if language != "" {
		query.Set("language", language)
	}
	endpoint.RawQuery = query.Encode()
	return endpoint.String(), nil
}

type captionSession struct {
	conn *websocket.Conn

	events chan domain.CaptionEvent
	audio  chan []byte
	quit   chan struct{}
	done   chan struct{}

	closeOnce sync.Once
}

func (s *captionSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.quit:
		return errors.New("caption session closed")
	case <-s.done:
		return errors.New("caption session closed")
	}
}

func (s *captionSession) Events() <-chan domain.CaptionEvent {
	return s.events
}

// Close stops the audio feed, asks the server to flush, and blocks until
// the read side drains or times out.
func (s *captionSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
	return nil
}

func (s *captionSession) writeLoop() {
	for {
		select {
		case chunk := <-s.audio:
			if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				return
			}
		case <-s.quit:
			_ = s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
			return
		case <-s.done:
			return
		}
	}
}

func (s *captionSession) readLoop() {
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var response streamEnvelope
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}
		if strings.EqualFold(response.Type, "Error") {
			return
		}

		text := extractStreamTranscript(response)
		if text == "" {
			continue
		}
		s.emit(domain.CaptionEvent{Text: text, Final: response.IsFinal || response.SpeechFinal})
	}
}

func (s *captionSession) emit(event domain.CaptionEvent) {
	select {
	case s.events <- event:
	case <-s.done:
	default:
	}
}

type streamEnvelope struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func extractStreamTranscript(response streamEnvelope) string {
	if len(response.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(response.Channel.Alternatives[0].Transcript)
}
