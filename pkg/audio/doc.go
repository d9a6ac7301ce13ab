// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and the sample/frame conversion helpers
// Package audio provides the PCM types shared by engines, sessions and outputs.
//
// Every decode session in chipdec produces interleaved stereo signed 16-bit
// samples; only the sample rate varies per backend:
//   - Format: sample rate, channel count and sample encoding
//   - ClampInt16 / SampleToInt16: narrowing helpers used by engines
//   - FramesFromMs / MsFromFrames: position arithmetic used by sessions
//
// Example:
//
//	format := audio.Stereo16(44100)
//	frames := audio.FramesFromMs(5000, format.SampleRate) // 220500
package audio
