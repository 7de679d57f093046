package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration for the app.
type Config struct {
	Deepgram DeepgramConfig
	AI       AIConfig
	Audio    AudioConfig
	Data     DataConfig
	Session  SessionConfig
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	SmartFormat bool
	Diarize     bool
}

type AIConfig struct {
	APIKey     string
	APIBaseURL string
	Model      string
}

type AudioConfig struct {
	RecorderCommand string
	PlayerCommand   string
	ProbeCommand    string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

type DataConfig struct {
	Dir     string
	Profile string
}

type SessionConfig struct {
	ChunkSize    int
	LiveCaptions bool
}

// Load resolves configuration from a .env file (if present) and
// environment variables with sensible defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
			Diarize:     envOrDefaultBool("DEEPGRAM_DIARIZE", true),
		},
		AI: AIConfig{
			APIKey:     strings.TrimSpace(os.Getenv("MURMUR_AI_API_KEY")),
			APIBaseURL: envOrDefault("MURMUR_AI_API_BASE", "https://api.groq.com/openai/v1"),
			Model:      envOrDefault("MURMUR_AI_MODEL", "llama-3.3-70b-versatile"),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("MURMUR_FFMPEG_COMMAND", "ffmpeg"),
			PlayerCommand:   envOrDefault("MURMUR_FFPLAY_COMMAND", "ffplay"),
			ProbeCommand:    envOrDefault("MURMUR_FFPROBE_COMMAND", "ffprobe"),
			InputFormat:     envOrDefault("MURMUR_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("MURMUR_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("MURMUR_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("MURMUR_CHANNELS", 1),
		},
		Data: DataConfig{
			Dir:     envOrDefault("MURMUR_DATA_DIR", filepath.Join(home, ".local", "share", "murmur")),
			Profile: envOrDefault("MURMUR_PROFILE", "local"),
		},
		Session: SessionConfig{
			ChunkSize:    envOrDefaultInt("MURMUR_AUDIO_CHUNK_SIZE", 4096),
			LiveCaptions: envOrDefaultBool("MURMUR_LIVE_CAPTIONS", true),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}

	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
