// ABOUTME: Audio type definitions
// ABOUTME: Defines the session PCM format and sample/frame conversions
package audio

import (
	"fmt"
	"math"
)

const (
	// Channels is the channel count every decode session produces
	Channels = 2

	// BitDepth is the sample width every decode session produces
	BitDepth = 16

	// MaxSampleRate bounds what a backend may report
	MaxSampleRate = 768000
)

// SampleFormat identifies the PCM sample encoding
type SampleFormat int

const (
	// S16 is signed 16-bit native-endian PCM
	S16 SampleFormat = iota
)

// String returns the short name used in logs
func (f SampleFormat) String() string {
	if f == S16 {
		return "S16"
	}
	return fmt.Sprintf("SampleFormat(%d)", int(f))
}

// Format describes a decoded PCM stream
type Format struct {
	SampleRate   int
	Channels     int
	SampleFormat SampleFormat
}

// Stereo16 returns the fixed session format at sampleRate
func Stereo16(sampleRate int) Format {
	return Format{
		SampleRate:   sampleRate,
		Channels:     Channels,
		SampleFormat: S16,
	}
}

// Validate checks that the format can be opened by an output
func (f Format) Validate() error {
	if f.SampleRate <= 0 || f.SampleRate > MaxSampleRate {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", f.Channels)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", f.SampleRate, f.Channels, f.SampleFormat)
}

// ClampInt16 saturates a wide sample to the 16-bit signed range
func ClampInt16(v int64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// SampleToInt16 narrows a sample of the given bit depth to 16 bits
func SampleToInt16(sample int32, bitDepth int) int16 {
	switch {
	case bitDepth == 16:
		return int16(sample)
	case bitDepth > 16:
		return int16(sample >> (bitDepth - 16))
	case bitDepth > 0:
		return int16(sample << (16 - bitDepth))
	default:
		return 0
	}
}

// FramesFromMs converts a millisecond count to frames at sampleRate
func FramesFromMs(ms int64, sampleRate int) int64 {
	return ms * int64(sampleRate) / 1000
}

// MsFromFrames converts a frame count at sampleRate to milliseconds
func MsFromFrames(frames int64, sampleRate int) int64 {
	if sampleRate <= 0 {
		return 0
	}
	return frames * 1000 / int64(sampleRate)
}
