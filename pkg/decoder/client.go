// ABOUTME: Player-side client contract driven by a decode session
// ABOUTME: Defines the commands observed at buffer submission boundaries
package decoder

import (
	"time"

	"github.com/Resonate-Protocol/chipdec/pkg/audio"
)

// CommandKind is the command a client returns after a submission
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandSeek
	CommandStop
)

func (k CommandKind) String() string {
	switch k {
	case CommandNone:
		return "none"
	case CommandSeek:
		return "seek"
	case CommandStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Command is a client response. Seek is the target position for
// CommandSeek.
type Command struct {
	Kind CommandKind
	Seek time.Duration
}

// None continues rendering
func None() Command { return Command{Kind: CommandNone} }

// Stop ends the session
func Stop() Command { return Command{Kind: CommandStop} }

// SeekTo moves playback to target
func SeekTo(target time.Duration) Command {
	return Command{Kind: CommandSeek, Seek: target}
}

// Client consumes a session's audio
type Client interface {
	// Ready is called exactly once, before the first submission. length is
	// body plus fade when known.
	Ready(format audio.Format, seekable bool, length OptionalMs)

	// SubmitAudio hands over interleaved samples. It may block until the
	// output accepts them. The slice is reused after the call returns.
	SubmitAudio(samples []int16) Command

	// CommandFinished acknowledges a completed seek
	CommandFinished()
}
