// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts interleaved int16 audio between sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates and keeps
// the last input frame between calls, so a stream can be fed in chunks of
// any size. The decode session uses it to give fixed-rate engines a forced
// output rate.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	out = r.Resample(out[:0], chunk)
package resample
