// ABOUTME: Tests for metadata scanning
// ABOUTME: Covers the Scanner capability and the open-and-close fallback
package decoder

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanWithScanner(t *testing.T) {
	b := &scanBackend{fakeBackend: fakeBackend{
		name: "fake",
		meta: [][2]string{
			{"length", "2:00"},
			{"fade", "10"},
			{"title", "Battle"},
			{"artist", "-"},
			{"game", "Final Fantasy VI"},
			{"psfby", "Ripper"},
		},
	}}

	set := &TagSet{}
	require.NoError(t, Scan(b, "song.fake", set))

	assert.Equal(t, 1, b.scans)
	assert.Zero(t, b.opened, "Scanner avoids creating an engine")
	assert.True(t, set.HasDur)
	assert.Equal(t, 130*time.Second, set.Duration)

	artist, ok := set.Get(TagArtist)
	assert.True(t, ok)
	assert.Equal(t, "Final Fantasy VI", artist)
	assert.Contains(t, set.Pairs, Pair{"psfby", "Ripper"})
}

func TestScanOpensEngine(t *testing.T) {
	engine := &lengthEngine{fakeEngine: newFakeEngine(44100), lengthMs: 60000}
	b := &fakeBackend{
		name:   "fake",
		engine: engine,
		meta:   [][2]string{{"title", "Intro"}},
		opts:   Options{DefaultFadeMs: 8000},
	}

	md, err := ScanMetadata(b, "song.fake")
	require.NoError(t, err)

	assert.Equal(t, 1, b.opened)
	assert.Equal(t, 1, engine.closed)
	assert.Zero(t, engine.renders)
	assert.Equal(t, KnownMs(60000), md.Length)
	assert.Equal(t, uint32(8000), md.FadeMs)
	assert.Equal(t, "Intro", md.Raw.Title)
}

func TestScanErrors(t *testing.T) {
	cause := errors.New("truncated header")

	err := Scan(&fakeBackend{name: "fake", openErr: cause}, "x", &TagSet{})
	assert.ErrorIs(t, err, ErrOpen)
	assert.ErrorIs(t, err, cause)

	sb := &scanBackend{fakeBackend: fakeBackend{name: "fake", openErr: cause}}
	err = Scan(sb, "x", &TagSet{})
	assert.ErrorIs(t, err, ErrOpen)

	// Open returning no engine and no error
	_, err = ScanMetadata(&fakeBackend{name: "fake"}, "x")
	assert.ErrorIs(t, err, ErrAllocation)
}
