// ABOUTME: Linear fade-to-silence envelope for the end of a song
// ABOUTME: Scales interleaved int16 frames in place with clamped integer math
package decoder

import "github.com/Resonate-Protocol/chipdec/pkg/audio"

// FadeSample scales sample by numerator/denominator, saturating to int16.
// Non-positive factors silence the sample.
func FadeSample(sample int16, numerator, denominator int64) int16 {
	if sample == 0 {
		return 0
	}
	if denominator <= 0 || numerator <= 0 {
		return 0
	}
	return audio.ClampInt16(int64(sample) * numerator / denominator)
}

// ApplyFade attenuates buf, holding frames interleaved frames of channels
// samples each. Frames before startFrame are left untouched. The frame at
// startFrame+k is scaled by (fadeRemaining-k)/fadeTotal, so a frame k where
// k >= fadeRemaining is silent.
func ApplyFade(buf []int16, frames, channels int, startFrame, fadeRemaining, fadeTotal int64) {
	if channels <= 0 || startFrame >= int64(frames) {
		return
	}
	if startFrame < 0 {
		startFrame = 0
	}
	if limit := len(buf) / channels; frames > limit {
		frames = limit
	}

	for i := startFrame; i < int64(frames); i++ {
		remaining := fadeRemaining - (i - startFrame)
		base := int(i) * channels
		for c := 0; c < channels; c++ {
			if fadeTotal <= 0 || remaining <= 0 {
				buf[base+c] = 0
				continue
			}
			buf[base+c] = FadeSample(buf[base+c], remaining, fadeTotal)
		}
	}
}
