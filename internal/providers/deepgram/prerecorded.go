// Package deepgram implements the transcription ports against the
// Deepgram speech-to-text API: prerecorded transcription for saved notes
// and websocket streaming for live captions during recording.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"murmur/internal/domain"
)

const defaultBaseURL = "https://api.deepgram.com/v1"

// Config controls Deepgram client settings, shared by both the
// prerecorded and streaming clients.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	SmartFormat bool
	Diarize     bool
}

// PrerecordedClient transcribes already-captured audio. Hosted artifacts
// are submitted by URL; local (file://) artifacts are uploaded as raw
// bytes with their content type.
type PrerecordedClient struct {
	cfg        Config
	httpClient *http.Client
}

func NewPrerecordedClient(cfg Config) *PrerecordedClient {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return &PrerecordedClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *PrerecordedClient) Transcribe(ctx context.Context, audioURL string, language string) (domain.TranscriptionResult, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return domain.TranscriptionResult{}, errors.New("DEEPGRAM_API_KEY is not configured")
	}

	endpoint, err := c.listenURL(language)
	if err != nil {
		return domain.TranscriptionResult{}, err
	}

	req, err := buildRequest(ctx, endpoint, audioURL)
	if err != nil {
		return domain.TranscriptionResult{}, err
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.TranscriptionResult{}, fmt.Errorf("transcription failed: %s", strings.TrimSpace(string(body)))
	}

	var parsed listenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("decode transcription response: %w", err)
	}
	return extractResult(parsed), nil
}

// buildRequest selects the submission mode: hosted URLs go as a JSON
// body, local artifacts as raw audio bytes.
func buildRequest(ctx context.Context, endpoint string, audioURL string) (*http.Request, error) {
	parsed, err := url.Parse(audioURL)
	if err != nil {
		return nil, fmt.Errorf("invalid audio url %q: %w", audioURL, err)
	}

	if parsed.Scheme == "https" || parsed.Scheme == "http" {
		payload, err := json.Marshal(map[string]string{"url": audioURL})
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	path := audioURL
	if parsed.Scheme == "file" {
		path = parsed.Path
	}
	audio, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read local artifact: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mimeTypeForPath(path))
	return req, nil
}

func mimeTypeForPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".m4a"), strings.HasSuffix(path, ".mp4"):
		return "audio/mp4"
	case strings.HasSuffix(path, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(path, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(path, ".ogg"):
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

func (c *PrerecordedClient) listenURL(language string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(c.cfg.APIBaseURL), "/")
	listen, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	query := listen.Query()
	query.Set("model", c.cfg.Model)
	query.Set("smart_format", fmt.Sprintf("%t", c.cfg.SmartFormat))
	query.Set("punctuate", "true")
	query.Set("paragraphs", "true")
	if c.cfg.Diarize {
		query.Set("diarize", "true")
	}
	if language != "" {
		query.Set("language", language)
	}
	listen.RawQuery = query.Encode()
	return listen.String(), nil
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
				Paragraphs struct {
					Transcript string `json:"transcript"`
					Paragraphs []struct {
						Speaker   int `json:"speaker"`
						Sentences []struct {
							Text string `json:"text"`
						} `json:"sentences"`
					} `json:"paragraphs"`
				} `json:"paragraphs"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// extractResult prefers the paragraph-assembled transcript and falls
// back to the flat one; diarized paragraphs become ordered segments.
func extractResult(resp listenResponse) domain.TranscriptionResult {
	if len(resp.Results.Channels) == 0 || len(resp.Results.Channels[0].Alternatives) == 0 {
		return domain.TranscriptionResult{}
	}
	alternative := resp.Results.Channels[0].Alternatives[0]

	transcript := strings.TrimSpace(alternative.Paragraphs.Transcript)
	if transcript == "" {
		transcript = strings.TrimSpace(alternative.Transcript)
	}

	var segments []domain.TranscriptSegment
	for _, paragraph := range alternative.Paragraphs.Paragraphs {
		parts := make([]string, 0, len(paragraph.Sentences))
		for _, sentence := range paragraph.Sentences {
			if text := strings.TrimSpace(sentence.Text); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) == 0 {
			continue
		}
		speaker := paragraph.Speaker
		if speaker < 0 {
			speaker = 0
		}
		segments = append(segments, domain.TranscriptSegment{
			Speaker: speaker,
			Text:    strings.Join(parts, " "),
		})
	}

	return domain.TranscriptionResult{Transcript: transcript, Segments: segments}
}
