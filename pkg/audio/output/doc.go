// ABOUTME: Audio output package for playing decoded sessions
// ABOUTME: Provides Output interface with oto, WAV file and discard sinks
// Package output provides audio sinks for decode sessions.
//
// All sinks take interleaved int16 frames in the session format and share
// a Volume for software gain and mute:
//   - Oto plays through the system sound card
//   - WAVFile renders to a file with go-audio/wav
//   - Discard drops samples and counts frames
//
// Example:
//
//	out := output.NewOto(output.NewVolume())
//	err := out.Open(audio.Stereo16(44100))
//	err = out.Write(samples)
package output
