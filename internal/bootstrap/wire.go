package bootstrap

import (
	"path/filepath"

	"murmur/internal/audio"
	"murmur/internal/config"
	"murmur/internal/ports"
	"murmur/internal/providers/deepgram"
	"murmur/internal/providers/openai"
	"murmur/internal/storage"
	"murmur/internal/store/sqlite"
	"murmur/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Recording   *usecase.RecordingController
	Pipeline    *usecase.NotePipeline
	Library     *usecase.NoteLibrary
	Chat        ports.ChatCompleter
	AudioOutput ports.AudioOutput
	Notes       ports.NoteStore
	Config      config.Config
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	notes, err := sqlite.Open(filepath.Join(cfg.Data.Dir, "notes.db"))
	if err != nil {
		return Services{}, err
	}

	blobs := storage.NewLocalStore(filepath.Join(cfg.Data.Dir, "audio"))

	transcriber := deepgram.NewPrerecordedClient(deepgram.Config{
		APIKey:      cfg.Deepgram.APIKey,
		APIBaseURL:  cfg.Deepgram.APIBaseURL,
		Model:       cfg.Deepgram.Model,
		SmartFormat: cfg.Deepgram.SmartFormat,
		Diarize:     cfg.Deepgram.Diarize,
	})

	var captions ports.CaptionStreamer
	if cfg.Session.LiveCaptions && cfg.Deepgram.APIKey != "" {
		captions = deepgram.NewLiveClient(
			deepgram.Config{
				APIKey:      cfg.Deepgram.APIKey,
				APIBaseURL:  cfg.Deepgram.APIBaseURL,
				Model:       cfg.Deepgram.Model,
				SmartFormat: cfg.Deepgram.SmartFormat,
			},
			deepgram.StreamConfig{
				SampleRate: cfg.Audio.SampleRate,
				Channels:   cfg.Audio.Channels,
				Encoding:   "linear16",
			},
		)
	}

	recording := usecase.NewRecordingController(
		audio.NewFFMPEGRecorder(cfg.Audio.RecorderCommand, ""),
		captions,
		eventSink,
		usecase.RecordingConfig{
			Recorder: ports.RecorderConfig{
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
			},
			ChunkSize: cfg.Session.ChunkSize,
		},
	)

	return Services{
		Recording: recording,
		Pipeline:  usecase.NewNotePipeline(blobs, notes, transcriber, eventSink),
		Library:   usecase.NewNoteLibrary(notes, blobs),
		Chat: openai.NewChatClient(openai.Config{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.APIBaseURL,
			Model:   cfg.AI.Model,
		}),
		AudioOutput: audio.NewFFPlayOutput(cfg.Audio.PlayerCommand, cfg.Audio.ProbeCommand),
		Notes:       notes,
		Config:      cfg,
	}, nil
}
