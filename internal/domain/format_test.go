package domain

import (
	"math"
	"testing"
)

func TestFormatClock(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		seconds float64
		want    string
	}{
		"zero":      {0, "0:00"},
		"seconds":   {7, "0:07"},
		"minute":    {60, "1:00"},
		"long":      {754, "12:34"},
		"fraction":  {59.9, "0:59"},
		"negative":  {-5, "0:00"},
		"nan":       {math.NaN(), "0:00"},
		"plus-inf":  {math.Inf(1), "0:00"},
		"minus-inf": {math.Inf(-1), "0:00"},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := FormatClock(tc.seconds); got != tc.want {
				t.Fatalf("FormatClock(%v) = %q, want %q", tc.seconds, got, tc.want)
			}
		})
	}
}

func TestSpeakerHueRotates(t *testing.T) {
	t.Parallel()

	if SpeakerHue(0) != SpeakerHue(len(speakerPalette)) {
		t.Fatalf("expected palette to wrap at %d", len(speakerPalette))
	}
	if SpeakerHue(1) == SpeakerHue(2) {
		t.Fatalf("adjacent speakers should not share a hue")
	}
	// Negative indexes must not panic; sign is irrelevant for display.
	if SpeakerHue(-3) != SpeakerHue(3) {
		t.Fatalf("negative index should mirror positive")
	}
}

func TestChatable(t *testing.T) {
	t.Parallel()

	ready := VoiceNote{Status: NoteStatusReady, Transcript: "hello"}
	if !ready.Chatable() {
		t.Fatalf("ready note with transcript should be chatable")
	}

	for _, n := range []VoiceNote{
		{Status: NoteStatusReady},
		{Status: NoteStatusError, Transcript: "hello"},
		{Status: NoteStatusTranscribing, Transcript: "hello"},
	} {
		if n.Chatable() {
			t.Fatalf("note %+v should not be chatable", n)
		}
	}
}
