// ABOUTME: Decoder package documentation
// ABOUTME: Describes the session contract shared by every backend
// Package decoder implements the decode session shared by every chipdec
// backend.
//
// A Backend opens a file into an Engine and reports metadata pairs while
// loading. A Session then drives the engine:
//
//	Opening -> Ready -> Rendering <-> Seeking -> Draining -> Closed
//
// Each rendered quantum is faded once the song body has elapsed and is
// handed to a Client, whose reply (none, seek or stop) is acted on before
// the next render. Seeking restarts the engine and discards frames up to the
// target, resuming mid-fade when the target lies in the fade tail.
//
// Example:
//
//	s, err := decoder.Open(backend, "song.flac")
//	if err != nil {
//		return err
//	}
//	return s.Run(ctx, client)
package decoder
