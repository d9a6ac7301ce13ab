// ABOUTME: Tests for the decode session state machine
// ABOUTME: Covers the render loop, fade tail, seeking and error paths
package decoder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Resonate-Protocol/chipdec/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openFake(t *testing.T, engine Engine, meta ...[2]string) (*Session, *fakeBackend) {
	t.Helper()
	b := &fakeBackend{name: "fake", engine: engine, meta: meta}
	s, err := Open(b, "song.fake")
	require.NoError(t, err)
	return s, b
}

func TestSessionEndToEndFade(t *testing.T) {
	const rate = 44100
	engine := newFakeEngine(rate)
	s, _ := openFake(t, engine, [2]string{"length", "3:00"}, [2]string{"fade", "5"})

	lengthFrames := audio.FramesFromMs(180000, rate)
	fadeFrames := audio.FramesFromMs(5000, rate)
	amp := int64(engine.amp)

	var frame int64
	var mismatches int
	client := &fakeClient{
		onSubmit: func(n int, samples []int16) {
			for i := 0; i < len(samples); i += audio.Channels {
				want := amp
				if frame >= lengthFrames {
					k := frame - lengthFrames
					want = amp * (fadeFrames - k) / fadeFrames
				}
				if int64(samples[i]) != want || int64(samples[i+1]) != want {
					mismatches++
				}
				frame++
			}
		},
	}

	require.NoError(t, s.Run(context.Background(), client))

	assert.Equal(t, 1, client.readyCalls)
	assert.Equal(t, audio.Stereo16(rate), client.format)
	assert.True(t, client.seekable)
	assert.Equal(t, KnownMs(185000), client.length)

	assert.Equal(t, lengthFrames+fadeFrames, client.frames)
	assert.Equal(t, int64(8158500), client.frames)
	assert.Zero(t, mismatches)
	assert.Equal(t, 185*time.Second, s.Position())

	assert.Equal(t, 1, engine.closed)
	assert.Equal(t, StateClosed, s.State())
	assert.NoError(t, s.Err())
}

func TestSessionSeekIntoFadeThenBack(t *testing.T) {
	const rate = 8000
	engine := newFakeEngine(rate)
	s, _ := openFake(t, engine, [2]string{"length", "1"}, [2]string{"fade", "1"})
	require.Equal(t, int64(8000), s.fadeFrames)

	type counters struct{ song, fade int64 }
	var afterSeek []counters
	var firstAfterSeek int16

	client := &fakeClient{
		commands: map[int]Command{
			1: SeekTo(1500 * time.Millisecond),
			2: SeekTo(0),
		},
		onSubmit: func(n int, samples []int16) {
			if n == 2 {
				firstAfterSeek = samples[0]
			}
		},
		onFinished: func(int) {
			afterSeek = append(afterSeek, counters{s.songRemaining, s.fadeRemaining})
		},
	}

	require.NoError(t, s.Run(context.Background(), client))

	require.Len(t, afterSeek, 2)
	assert.Equal(t, counters{0, 4000}, afterSeek[0], "resumes mid-fade")
	assert.Equal(t, counters{8000, 8000}, afterSeek[1], "full fade restored")
	assert.Equal(t, int16(5000), firstAfterSeek, "half-way through the fade")

	// 1024 before the first seek, 1024 in the tail, then a full body and fade
	assert.Equal(t, int64(1024+1024+16000), client.frames)
	assert.Equal(t, 2, engine.restarts)
	assert.LessOrEqual(t, engine.maxRender, DefaultSeekChunkFrames)
}

func TestSessionSeekOnFinalBuffer(t *testing.T) {
	engine := newFakeEngine(8000)
	s, _ := openFake(t, engine, [2]string{"length", "1"})

	// 8000 frames in quanta of 1024: the eighth buffer is the last one
	client := &fakeClient{commands: map[int]Command{8: SeekTo(500 * time.Millisecond)}}
	require.NoError(t, s.Run(context.Background(), client))

	assert.Equal(t, 1, client.finished)
	assert.Equal(t, 12, client.submissions)
	assert.Equal(t, int64(12000), client.frames)
}

func TestSessionSeekClamps(t *testing.T) {
	t.Run("negative target", func(t *testing.T) {
		engine := newFakeEngine(8000)
		s, _ := openFake(t, engine, [2]string{"length", "1"})

		client := &fakeClient{commands: map[int]Command{1: SeekTo(-time.Second)}}
		require.NoError(t, s.Run(context.Background(), client))

		assert.Equal(t, int64(1024+8000), client.frames)
	})

	t.Run("past the end", func(t *testing.T) {
		engine := newFakeEngine(8000)
		s, _ := openFake(t, engine, [2]string{"length", "1"}, [2]string{"fade", "1"})

		client := &fakeClient{commands: map[int]Command{1: SeekTo(time.Hour)}}
		require.NoError(t, s.Run(context.Background(), client))

		assert.Equal(t, 1, client.finished)
		assert.Equal(t, 1, client.submissions)
		assert.Equal(t, int64(16000), s.Frames())
		assert.Equal(t, StateClosed, s.State())
	})
}

func TestSessionStop(t *testing.T) {
	engine := newFakeEngine(44100)
	s, _ := openFake(t, engine)

	client := &fakeClient{commands: map[int]Command{3: Stop()}}
	require.NoError(t, s.Run(context.Background(), client))

	assert.Equal(t, 3, client.submissions)
	assert.Equal(t, 3, engine.renders)
	assert.Equal(t, 1, engine.closed)
	assert.Equal(t, StateClosed, s.State())
}

func TestSessionUnknownLength(t *testing.T) {
	engine := newFakeEngine(44100)
	engine.total = 5000
	s, _ := openFake(t, engine, [2]string{"length", "n/a"}, [2]string{"fade", "5"})

	client := &fakeClient{
		onSubmit: func(n int, samples []int16) {
			for _, v := range samples {
				if v != engine.amp {
					t.Fatalf("submission %d: unexpected fade with unknown length", n)
				}
			}
		},
	}
	require.NoError(t, s.Run(context.Background(), client))

	assert.False(t, client.seekable)
	assert.False(t, client.length.Valid)
	assert.Equal(t, int64(5000), client.frames)
	assert.Equal(t, 5, client.submissions)
}

func TestSessionRenderError(t *testing.T) {
	engine := newFakeEngine(44100)
	engine.failAt = 3
	s, _ := openFake(t, engine)

	client := &fakeClient{}
	err := s.Run(context.Background(), client)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRender))
	assert.Equal(t, 2, client.submissions)
	assert.Equal(t, 1, engine.closed)
	assert.Equal(t, StateClosed, s.State())
	assert.ErrorIs(t, s.Err(), ErrRender)
}

func TestSessionSeekFailure(t *testing.T) {
	t.Run("restart", func(t *testing.T) {
		engine := newFakeEngine(44100)
		engine.restartErr = errors.New("no restart")
		s, _ := openFake(t, engine, [2]string{"length", "10"})

		client := &fakeClient{commands: map[int]Command{1: SeekTo(time.Second)}}
		err := s.Run(context.Background(), client)

		assert.ErrorIs(t, err, ErrSeek)
		assert.Zero(t, client.finished)
		assert.Equal(t, 1, client.submissions)
		assert.Equal(t, 1, engine.closed)
	})

	t.Run("catch-up render", func(t *testing.T) {
		engine := newFakeEngine(44100)
		engine.failAt = 2
		s, _ := openFake(t, engine, [2]string{"length", "10"})

		client := &fakeClient{commands: map[int]Command{1: SeekTo(time.Second)}}
		err := s.Run(context.Background(), client)

		assert.ErrorIs(t, err, ErrSeek)
		assert.Zero(t, client.finished)
		assert.Equal(t, 1, client.submissions, "no audio after a failed seek")
		assert.Equal(t, StateClosed, s.State())
	})
}

func TestSessionContextCancel(t *testing.T) {
	engine := newFakeEngine(44100)
	s, _ := openFake(t, engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &fakeClient{
		onSubmit: func(n int, _ []int16) {
			if n == 2 {
				cancel()
			}
		},
	}
	require.NoError(t, s.Run(ctx, client))

	assert.Equal(t, 2, client.submissions)
	assert.Equal(t, 1, engine.closed)
}

func TestSessionRunTwice(t *testing.T) {
	engine := newFakeEngine(44100)
	engine.total = 10
	s, _ := openFake(t, engine)

	require.NoError(t, s.Run(context.Background(), &fakeClient{}))
	assert.Error(t, s.Run(context.Background(), &fakeClient{}))
	assert.Equal(t, 1, engine.closed)
}

func TestSessionCloseWithoutRun(t *testing.T) {
	engine := newFakeEngine(44100)
	s, _ := openFake(t, engine)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, engine.closed)
	assert.Equal(t, StateClosed, s.State())
}

func TestSessionDiscarder(t *testing.T) {
	engine := &discardEngine{fakeEngine: newFakeEngine(8000)}
	s, _ := openFake(t, engine)

	client := &fakeClient{commands: map[int]Command{1: SeekTo(2 * time.Second), 2: Stop()}}
	require.NoError(t, s.Run(context.Background(), client))

	assert.Equal(t, []int{8192, 7808}, engine.skips)
	assert.Equal(t, 2, engine.renders, "seeking did not render")
	assert.Equal(t, int64(16000+1024), s.Frames())
}

func TestSessionDiscarderSeekPastStreamEnd(t *testing.T) {
	// Declared 1s body and 2s fade over a stream that ends at 10000 frames
	fake := newFakeEngine(8000)
	fake.total = 10000
	engine := &discardEngine{fakeEngine: fake}
	s, _ := openFake(t, engine, [2]string{"length", "1"}, [2]string{"fade", "2"})

	client := &fakeClient{commands: map[int]Command{1: SeekTo(2 * time.Second)}}
	require.NoError(t, s.Run(context.Background(), client))

	assert.Equal(t, []int{8192, 7808}, engine.skips)
	assert.Equal(t, 1, client.finished)
	assert.Equal(t, int64(10000), s.Frames())
	assert.Equal(t, StateClosed, s.State())
}

func TestSessionCustomOptions(t *testing.T) {
	engine := newFakeEngine(8000)
	b := &fakeBackend{
		name:   "fake",
		engine: engine,
		meta:   [][2]string{{"length", "1"}},
		opts:   Options{QuantumFrames: 500, SeekChunkFrames: 1000},
	}
	s, err := Open(b, "song.fake")
	require.NoError(t, err)

	client := &fakeClient{commands: map[int]Command{1: SeekTo(750 * time.Millisecond)}}
	require.NoError(t, s.Run(context.Background(), client))

	assert.Equal(t, 1000, engine.maxRender)
	// 500, then 6000 skipped and 2000 left in quanta of 500
	assert.Equal(t, 1+4, client.submissions)
}

func TestSessionLengthReporterAndDefaultFade(t *testing.T) {
	engine := &lengthEngine{fakeEngine: newFakeEngine(8000), lengthMs: 2000}
	b := &fakeBackend{name: "fake", engine: engine, opts: Options{DefaultFadeMs: 500}}

	s, err := Open(b, "song.fake")
	require.NoError(t, err)

	md := s.Metadata()
	assert.Equal(t, KnownMs(2000), md.Length)
	assert.Equal(t, uint32(500), md.FadeMs)
	assert.True(t, s.Seekable())

	client := &fakeClient{}
	require.NoError(t, s.Run(context.Background(), client))
	assert.Equal(t, int64(16000+4000), client.frames)
}

func TestSessionTagLengthBeatsEngine(t *testing.T) {
	engine := &lengthEngine{fakeEngine: newFakeEngine(8000), lengthMs: 2000}
	s, _ := openFake(t, engine, [2]string{"length", "1"})

	assert.Equal(t, KnownMs(1000), s.Metadata().Length)
	require.NoError(t, s.Close())
}

func TestSessionResampleAwareEngine(t *testing.T) {
	engine := &awareEngine{fakeEngine: newFakeEngine(44100)}
	b := &fakeBackend{name: "fake", engine: engine, opts: Options{SampleRate: 48000}}

	s, err := Open(b, "song.fake")
	require.NoError(t, err)
	assert.Equal(t, 48000, engine.requested)
	assert.Equal(t, 48000, s.Format().SampleRate)
	require.NoError(t, s.Close())

	engine = &awareEngine{fakeEngine: newFakeEngine(44100)}
	s, _ = openFake(t, engine)
	assert.Equal(t, 0, engine.requested)
	assert.Equal(t, 22050, s.Format().SampleRate)
	require.NoError(t, s.Close())
}

func TestSessionForcedRateResamples(t *testing.T) {
	engine := newFakeEngine(44100)
	b := &fakeBackend{
		name:   "fake",
		engine: engine,
		meta:   [][2]string{{"length", "1"}},
		opts:   Options{SampleRate: 48000},
	}

	s, err := Open(b, "song.fake")
	require.NoError(t, err)
	_, wrapped := s.engine.(*resampledEngine)
	assert.True(t, wrapped)
	assert.Equal(t, audio.Stereo16(48000), s.Format())

	client := &fakeClient{commands: map[int]Command{2: SeekTo(0)}}
	require.NoError(t, s.Run(context.Background(), client))

	assert.Equal(t, int64(1024*2+48000), client.frames)
	assert.Equal(t, 1, engine.restarts)
	assert.Equal(t, 1, engine.closed)
}

func TestOpenFailures(t *testing.T) {
	t.Run("engine error", func(t *testing.T) {
		cause := errors.New("not a PSF file")
		b := &fakeBackend{name: "fake", openErr: cause}

		s, err := Open(b, "bad.fake")
		assert.Nil(t, s)
		assert.ErrorIs(t, err, ErrOpen)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("allocation", func(t *testing.T) {
		b := &fakeBackend{name: "fake", openErr: ErrAllocation}

		_, err := Open(b, "big.fake")
		assert.ErrorIs(t, err, ErrAllocation)
		assert.NotErrorIs(t, err, ErrOpen)
	})

	t.Run("nil engine", func(t *testing.T) {
		b := &fakeBackend{name: "fake"}

		_, err := Open(b, "x.fake")
		assert.ErrorIs(t, err, ErrAllocation)
	})

	t.Run("no sample rate", func(t *testing.T) {
		engine := &bareEngine{}
		b := &fakeBackend{name: "fake", engine: engine}

		_, err := Open(b, "x.fake")
		assert.ErrorIs(t, err, ErrOpen)
		assert.Equal(t, 1, engine.closed)
	})

	t.Run("invalid sample rate", func(t *testing.T) {
		engine := newFakeEngine(0)
		b := &fakeBackend{name: "fake", engine: engine}

		_, err := Open(b, "x.fake")
		assert.ErrorIs(t, err, ErrOpen)
		assert.Equal(t, 1, engine.closed)
	})
}

func TestDecode(t *testing.T) {
	engine := newFakeEngine(44100)
	engine.total = 3000
	b := &fakeBackend{name: "fake", engine: engine}

	client := &fakeClient{}
	require.NoError(t, Decode(context.Background(), b, "x.fake", client))
	assert.Equal(t, int64(3000), client.frames)

	_, err := Open(&fakeBackend{name: "fake", openErr: errors.New("boom")}, "x")
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "rendering", StateRendering.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.Equal(t, "seek", CommandSeek.String())
}
