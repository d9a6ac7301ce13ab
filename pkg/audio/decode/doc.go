// ABOUTME: Built-in decode backends for chipdec
// ABOUTME: FLAC, MP3, WAV, Opus and a synthesized tone source
// Package decode provides the backends shipped with chipdec.
//
// Each backend implements decoder.Backend and renders interleaved stereo
// int16 frames, whatever the source channel count or bit depth:
//   - FLAC via mewkiz/flac, with Vorbis comment tags and a native length
//   - MP3 via hajimehoshi/go-mp3, with discard-by-seek
//   - WAV via go-audio/wav, with RIFF INFO tags
//   - Opus via libopusfile (disable with the nolibopusfile build tag)
//   - Tone, a key=value text file rendered at any requested rate
//
// Example:
//
//	reg := registry.New(decode.All()...)
//	if err := reg.Init(cfg); err != nil {
//		log.Fatal(err)
//	}
package decode
