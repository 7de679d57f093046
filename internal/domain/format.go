package domain

import (
	"fmt"
	"math"
)

// speakerPalette rotates display hues for diarized speaker indexes.
var speakerPalette = []string{"#7c4dff", "#00897b", "#e65100", "#c2185b", "#1565c0", "#558b2f"}

// FormatClock renders a second count as M:SS. Non-finite or negative input
// degrades to "0:00" instead of leaking NaN/Inf into the UI.
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// SpeakerHue maps an arbitrary speaker index onto the rotating palette.
// Indexes are not guaranteed contiguous, so only the modulus matters.
func SpeakerHue(index int) string {
	if index < 0 {
		index = -index
	}
	return speakerPalette[index%len(speakerPalette)]
}
