// ABOUTME: Tag normalization from raw engine fields to a tag sink
// ABOUTME: Applies the useful-value filter and the artist-from-game fallback
package decoder

import (
	"strings"
	"time"
)

// TagKind identifies a structured tag
type TagKind int

const (
	TagTitle TagKind = iota
	TagArtist
	TagAlbum
	TagDate
	TagGenre
	TagComment
	TagTrack
)

var tagNames = [...]string{
	TagTitle:   "title",
	TagArtist:  "artist",
	TagAlbum:   "album",
	TagDate:    "date",
	TagGenre:   "genre",
	TagComment: "comment",
	TagTrack:   "track",
}

func (k TagKind) String() string {
	if k >= 0 && int(k) < len(tagNames) {
		return tagNames[k]
	}
	return "unknown"
}

// TagSink receives normalized metadata. Each Wants* method gates the
// matching On* calls.
type TagSink interface {
	WantsTags() bool
	WantsPairs() bool
	WantsDuration() bool
	OnTag(kind TagKind, value string)
	OnPair(key, value string)
	OnDuration(d time.Duration)
}

// RawFields holds the metadata values an engine reported for a file
type RawFields struct {
	Title     string
	Artist    string
	Game      string
	Year      string
	Genre     string
	Comment   string
	Track     string
	Encoder   string
	Copyright string

	// EncoderKey is the pair key the encoder credit arrived under,
	// e.g. "psfby" or "usfby". Empty means "encoder".
	EncoderKey string
}

// IsUseful reports whether a metadata value carries information
func IsUseful(value string) bool {
	if value == "" {
		return false
	}
	return !strings.EqualFold(value, "n/a") && value != "-"
}

// EmitTrackMetadata forwards the useful fields of raw to sink. It only calls
// into the sink and may be invoked any number of times.
func EmitTrackMetadata(sink TagSink, raw RawFields) {
	wantTags := sink.WantsTags()
	wantPairs := sink.WantsPairs()
	if !wantTags && !wantPairs {
		return
	}

	emit := func(key string, kind TagKind, value string) {
		if !IsUseful(value) {
			return
		}
		if wantPairs {
			sink.OnPair(key, value)
		}
		if wantTags {
			sink.OnTag(kind, value)
		}
	}

	emit("title", TagTitle, raw.Title)
	emit("artist", TagArtist, raw.Artist)
	emit("game", TagAlbum, raw.Game)
	emit("year", TagDate, raw.Year)
	emit("genre", TagGenre, raw.Genre)
	emit("comment", TagComment, raw.Comment)
	emit("track", TagTrack, raw.Track)

	if wantPairs {
		if IsUseful(raw.Encoder) {
			key := raw.EncoderKey
			if key == "" {
				key = "encoder"
			}
			sink.OnPair(key, raw.Encoder)
		}
		if IsUseful(raw.Copyright) {
			sink.OnPair("copyright", raw.Copyright)
		}
	}

	if wantTags && !IsUseful(raw.Artist) && IsUseful(raw.Game) {
		sink.OnTag(TagArtist, raw.Game)
	}
}

// EmitDuration reports the declared duration (body plus fade) when it is
// known and the sink wants it.
func EmitDuration(sink TagSink, md TrackMetadata) {
	if !sink.WantsDuration() {
		return
	}
	if d := md.Declared(); d.Valid {
		sink.OnDuration(d.Duration())
	}
}

// Tag is one structured tag value
type Tag struct {
	Kind  TagKind
	Value string
}

// Pair is one freeform key/value
type Pair struct {
	Key   string
	Value string
}

// TagSet is a TagSink that records everything, in emission order
type TagSet struct {
	Tags     []Tag
	Pairs    []Pair
	Duration time.Duration
	HasDur   bool
}

func (s *TagSet) WantsTags() bool     { return true }
func (s *TagSet) WantsPairs() bool    { return true }
func (s *TagSet) WantsDuration() bool { return true }

func (s *TagSet) OnTag(kind TagKind, value string) {
	s.Tags = append(s.Tags, Tag{Kind: kind, Value: value})
}

func (s *TagSet) OnPair(key, value string) {
	s.Pairs = append(s.Pairs, Pair{Key: key, Value: value})
}

func (s *TagSet) OnDuration(d time.Duration) {
	s.Duration = d
	s.HasDur = true
}

// Get returns the first value recorded for kind
func (s *TagSet) Get(kind TagKind) (string, bool) {
	for _, t := range s.Tags {
		if t.Kind == kind {
			return t.Value, true
		}
	}
	return "", false
}
