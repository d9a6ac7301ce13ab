// ABOUTME: Track metadata collected while an engine loads a file
// ABOUTME: Maps raw key/value callbacks onto length, fade and tag fields
package decoder

import (
	"math"
	"strings"
	"time"
)

// MetaFunc is called by an engine once per key/value pair found while
// loading a file
type MetaFunc func(key, value string)

// OptionalMs is a millisecond count that may be unknown
type OptionalMs struct {
	Ms    uint32
	Valid bool
}

// KnownMs returns a valid OptionalMs
func KnownMs(ms uint32) OptionalMs {
	return OptionalMs{Ms: ms, Valid: true}
}

// Duration converts the value; unknown is 0
func (o OptionalMs) Duration() time.Duration {
	if !o.Valid {
		return 0
	}
	return time.Duration(o.Ms) * time.Millisecond
}

func (o OptionalMs) String() string {
	if !o.Valid {
		return "unknown"
	}
	return o.Duration().String()
}

// TrackMetadata is produced once per opened file
type TrackMetadata struct {
	Length OptionalMs
	FadeMs uint32
	Raw    RawFields
}

// Declared returns the length the player is told about: body plus fade
func (m TrackMetadata) Declared() OptionalMs {
	if !m.Length.Valid {
		return OptionalMs{}
	}
	total := uint64(m.Length.Ms) + uint64(m.FadeMs)
	if total > math.MaxUint32 {
		total = math.MaxUint32
	}
	return KnownMs(uint32(total))
}

// Emit sends duration and tags to sink
func (m TrackMetadata) Emit(sink TagSink) {
	EmitDuration(sink, m)
	EmitTrackMetadata(sink, m.Raw)
}

// Tags returns the normalized tags and pairs
func (m TrackMetadata) Tags() *TagSet {
	set := &TagSet{}
	m.Emit(set)
	return set
}

// Collector accumulates MetaFunc callbacks into TrackMetadata.
// Keys are matched case-insensitively. The first length and fade win;
// later text fields replace earlier ones.
type Collector struct {
	md TrackMetadata
}

// NewCollector returns an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Meta is the MetaFunc handed to engines
func (c *Collector) Meta(key, value string) {
	k := strings.ToLower(strings.TrimSpace(key))
	raw := &c.md.Raw

	switch k {
	case "length":
		if !c.md.Length.Valid {
			if ms := ParseTimeMs(value); ms > 0 {
				c.md.Length = KnownMs(ms)
			}
		}
	case "fade":
		if c.md.FadeMs == 0 {
			c.md.FadeMs = ParseTimeMs(value)
		}
	case "title":
		raw.Title = value
	case "artist":
		raw.Artist = value
	case "game", "album":
		raw.Game = value
	case "year", "date":
		raw.Year = value
	case "genre":
		raw.Genre = value
	case "comment", "description":
		raw.Comment = value
	case "track", "tracknumber":
		raw.Track = value
	case "copyright":
		raw.Copyright = value
	case "encodedby", "encoder":
		raw.Encoder = value
		raw.EncoderKey = k
	default:
		// psfby, usfby, gsfby, 2sfby and friends
		if strings.HasSuffix(k, "sfby") {
			raw.Encoder = value
			raw.EncoderKey = k
		}
	}
}

// Metadata returns what has been collected so far
func (c *Collector) Metadata() TrackMetadata {
	return c.md
}

// SetLength fills the body length when no tag supplied one
func (c *Collector) SetLength(ms uint32) {
	if !c.md.Length.Valid && ms > 0 {
		c.md.Length = KnownMs(ms)
	}
}

// SetDefaultFade fills the fade when a length is known but no tag gave a fade
func (c *Collector) SetDefaultFade(ms uint32) {
	if c.md.Length.Valid && c.md.FadeMs == 0 {
		c.md.FadeMs = ms
	}
}
