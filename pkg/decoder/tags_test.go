// ABOUTME: Tests for tag normalization and metadata collection
// ABOUTME: Covers useful-value filtering, sink gating and the artist fallback
package decoder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	wantTags, wantPairs, wantDuration bool
	TagSet
}

func (s *recordingSink) WantsTags() bool     { return s.wantTags }
func (s *recordingSink) WantsPairs() bool    { return s.wantPairs }
func (s *recordingSink) WantsDuration() bool { return s.wantDuration }

func TestIsUseful(t *testing.T) {
	assert.False(t, IsUseful(""))
	assert.False(t, IsUseful("N/A"))
	assert.False(t, IsUseful("n/a"))
	assert.False(t, IsUseful("N/a"))
	assert.False(t, IsUseful("-"))
	assert.True(t, IsUseful("--"))
	assert.True(t, IsUseful("NA"))
	assert.True(t, IsUseful(" "))
	assert.True(t, IsUseful("Koji Kondo"))
}

func TestEmitTrackMetadataFiltersUseless(t *testing.T) {
	sink := &recordingSink{wantTags: true, wantPairs: true}
	EmitTrackMetadata(sink, RawFields{
		Title:     "Overworld",
		Artist:    "N/A",
		Game:      "-",
		Year:      "",
		Genre:     "n/a",
		Copyright: "-",
		Encoder:   "",
	})

	assert.Equal(t, []Tag{{TagTitle, "Overworld"}}, sink.Tags)
	assert.Equal(t, []Pair{{"title", "Overworld"}}, sink.Pairs)
}

func TestEmitTrackMetadataOrder(t *testing.T) {
	sink := &recordingSink{wantTags: true, wantPairs: true}
	EmitTrackMetadata(sink, RawFields{
		Title:      "Title",
		Artist:     "Artist",
		Game:       "Game",
		Year:       "1996",
		Genre:      "Game",
		Comment:    "Comment",
		Track:      "3",
		Encoder:    "Ripper",
		EncoderKey: "psfby",
		Copyright:  "Studio",
	})

	assert.Equal(t, []Tag{
		{TagTitle, "Title"},
		{TagArtist, "Artist"},
		{TagAlbum, "Game"},
		{TagDate, "1996"},
		{TagGenre, "Game"},
		{TagComment, "Comment"},
		{TagTrack, "3"},
	}, sink.Tags)
	assert.Equal(t, []Pair{
		{"title", "Title"},
		{"artist", "Artist"},
		{"game", "Game"},
		{"year", "1996"},
		{"genre", "Game"},
		{"comment", "Comment"},
		{"track", "3"},
		{"psfby", "Ripper"},
		{"copyright", "Studio"},
	}, sink.Pairs)
}

func TestEmitTrackMetadataArtistFallback(t *testing.T) {
	sink := &recordingSink{wantTags: true, wantPairs: true}
	EmitTrackMetadata(sink, RawFields{Artist: "n/a", Game: "Chrono Trigger"})

	assert.Equal(t, []Tag{
		{TagAlbum, "Chrono Trigger"},
		{TagArtist, "Chrono Trigger"},
	}, sink.Tags)
	// The fallback is a tag only, never a pair
	assert.Equal(t, []Pair{{"game", "Chrono Trigger"}}, sink.Pairs)
}

func TestEmitTrackMetadataNoDoubleArtist(t *testing.T) {
	sink := &recordingSink{wantTags: true}
	EmitTrackMetadata(sink, RawFields{Artist: "Yoko Shimomura", Game: "Kingdom"})

	artists := 0
	for _, tag := range sink.Tags {
		if tag.Kind == TagArtist {
			artists++
			assert.Equal(t, "Yoko Shimomura", tag.Value)
		}
	}
	assert.Equal(t, 1, artists)
}

func TestEmitTrackMetadataGating(t *testing.T) {
	raw := RawFields{Title: "T", Copyright: "C", Encoder: "E"}

	tagsOnly := &recordingSink{wantTags: true}
	EmitTrackMetadata(tagsOnly, raw)
	assert.Len(t, tagsOnly.Tags, 1)
	assert.Empty(t, tagsOnly.Pairs)

	pairsOnly := &recordingSink{wantPairs: true}
	EmitTrackMetadata(pairsOnly, raw)
	assert.Empty(t, pairsOnly.Tags)
	assert.Equal(t, []Pair{{"title", "T"}, {"encoder", "E"}, {"copyright", "C"}}, pairsOnly.Pairs)

	neither := &recordingSink{}
	EmitTrackMetadata(neither, raw)
	assert.Empty(t, neither.Tags)
	assert.Empty(t, neither.Pairs)
}

func TestEmitTrackMetadataIdempotent(t *testing.T) {
	raw := RawFields{Title: "T", Game: "G"}
	a := &recordingSink{wantTags: true, wantPairs: true}
	b := &recordingSink{wantTags: true, wantPairs: true}

	EmitTrackMetadata(a, raw)
	EmitTrackMetadata(b, raw)
	EmitTrackMetadata(b, raw)

	assert.Equal(t, append(a.Tags, a.Tags...), b.Tags)
	assert.Equal(t, append(a.Pairs, a.Pairs...), b.Pairs)
}

func TestEmitDuration(t *testing.T) {
	md := TrackMetadata{Length: KnownMs(180000), FadeMs: 5000}

	sink := &recordingSink{wantDuration: true}
	EmitDuration(sink, md)
	require.True(t, sink.HasDur)
	assert.Equal(t, 185*time.Second, sink.Duration)

	unknown := &recordingSink{wantDuration: true}
	EmitDuration(unknown, TrackMetadata{FadeMs: 5000})
	assert.False(t, unknown.HasDur)

	ungated := &recordingSink{}
	EmitDuration(ungated, md)
	assert.False(t, ungated.HasDur)
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.Meta("LENGTH", "3:00")
	c.Meta("length", "9:99")
	c.Meta("Fade", "5")
	c.Meta("fade", "10")
	c.Meta("title", "first")
	c.Meta("title", "second")
	c.Meta("album", "Soundtrack")
	c.Meta("date", "1994")
	c.Meta("tracknumber", "7")
	c.Meta("usfby", "ripper")
	c.Meta("_lib", "ignored.usflib")

	md := c.Metadata()
	assert.Equal(t, KnownMs(180000), md.Length)
	assert.Equal(t, uint32(5000), md.FadeMs)
	assert.Equal(t, "second", md.Raw.Title)
	assert.Equal(t, "Soundtrack", md.Raw.Game)
	assert.Equal(t, "1994", md.Raw.Year)
	assert.Equal(t, "7", md.Raw.Track)
	assert.Equal(t, "ripper", md.Raw.Encoder)
	assert.Equal(t, "usfby", md.Raw.EncoderKey)
	assert.Equal(t, KnownMs(185000), md.Declared())
}

func TestCollectorZeroLengthIsUnknown(t *testing.T) {
	c := NewCollector()
	c.Meta("length", "0")
	c.Meta("length", "garbage")
	assert.False(t, c.Metadata().Length.Valid)

	// A later valid length still wins when earlier ones were unusable
	c.Meta("length", "2:00")
	assert.Equal(t, KnownMs(120000), c.Metadata().Length)
}

func TestCollectorFallbacks(t *testing.T) {
	c := NewCollector()
	c.SetDefaultFade(3000)
	assert.Equal(t, uint32(0), c.Metadata().FadeMs, "no fade without a length")

	c.SetLength(60000)
	c.SetLength(1000)
	c.SetDefaultFade(3000)

	md := c.Metadata()
	assert.Equal(t, KnownMs(60000), md.Length)
	assert.Equal(t, uint32(3000), md.FadeMs)
}

func TestTrackMetadataTags(t *testing.T) {
	md := TrackMetadata{
		Length: KnownMs(1000),
		Raw:    RawFields{Title: "T", Game: "G"},
	}
	set := md.Tags()

	title, ok := set.Get(TagTitle)
	assert.True(t, ok)
	assert.Equal(t, "T", title)

	artist, ok := set.Get(TagArtist)
	assert.True(t, ok)
	assert.Equal(t, "G", artist)

	assert.True(t, set.HasDur)
	assert.Equal(t, time.Second, set.Duration)
}

func TestOptionalMs(t *testing.T) {
	assert.Equal(t, "unknown", OptionalMs{}.String())
	assert.Equal(t, time.Duration(0), OptionalMs{}.Duration())
	assert.Equal(t, "1.5s", KnownMs(1500).String())
}

func TestTagKindString(t *testing.T) {
	assert.Equal(t, "album", TagAlbum.String())
	assert.Equal(t, "unknown", TagKind(42).String())
}
