// ABOUTME: Bridge between a decode session and the player's output
// ABOUTME: Writes PCM, reports progress and hands over pending commands
package player

import (
	"log"
	"time"

	"github.com/Resonate-Protocol/chipdec/pkg/audio"
	"github.com/Resonate-Protocol/chipdec/pkg/decoder"
)

// statusInterval bounds how often position updates are published
const statusInterval = 250 * time.Millisecond

// sessionClient implements decoder.Client for one session
type sessionClient struct {
	p         *Player
	session   *decoder.Session
	outErr    error
	published time.Time
}

func (c *sessionClient) Ready(format audio.Format, seekable bool, length decoder.OptionalMs) {
	if err := c.p.out.Open(format); err != nil {
		log.Printf("Failed to open output for %s: %v", format, err)
		c.outErr = err
	}

	md := c.session.Metadata()
	tags := md.Tags()
	c.p.status.update(func(s *Status) {
		s.State = StatePlaying
		s.Path = c.session.Path()
		s.Backend = c.session.Backend()
		s.Session = c.session.ID().String()
		s.Format = format
		s.Seekable = seekable
		s.Length = length
		s.Position = 0
		s.Title, _ = tags.Get(decoder.TagTitle)
		s.Artist, _ = tags.Get(decoder.TagArtist)
		s.Album, _ = tags.Get(decoder.TagAlbum)
		s.Err = ""
	})
}

func (c *sessionClient) SubmitAudio(samples []int16) decoder.Command {
	if c.outErr != nil {
		return decoder.Stop()
	}
	if err := c.p.out.Write(samples); err != nil {
		log.Printf("Output write failed: %v", err)
		c.outErr = err
		return decoder.Stop()
	}

	cmd := c.p.takeCommand()
	if cmd.Kind == decoder.CommandSeek {
		c.p.status.update(func(s *Status) { s.State = StateSeeking })
		return cmd
	}

	if now := time.Now(); now.Sub(c.published) >= statusInterval {
		c.published = now
		pos := c.session.Position()
		c.p.status.update(func(s *Status) { s.Position = pos })
	}
	return cmd
}

func (c *sessionClient) CommandFinished() {
	pos := c.session.Position()
	c.p.status.update(func(s *Status) {
		s.State = StatePlaying
		s.Position = pos
	})
}
