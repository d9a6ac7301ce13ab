// ABOUTME: Test doubles for engines, backends and clients
// ABOUTME: Shared by the session, scan and resampling tests
package decoder

import (
	"errors"

	"github.com/Resonate-Protocol/chipdec/pkg/audio"
	"github.com/Resonate-Protocol/chipdec/pkg/config"
)

// fakeEngine renders a constant amplitude at a fixed rate
type fakeEngine struct {
	rate  int
	amp   int16
	total int64 // frames available before end of stream, <0 for endless
	pos   int64

	renders    int
	maxRender  int
	restarts   int
	closed     int
	failAt     int // render call that fails, 0 for never
	restartErr error
}

func newFakeEngine(rate int) *fakeEngine {
	return &fakeEngine{rate: rate, amp: 10000, total: -1}
}

func (e *fakeEngine) Render(dst []int16) (int, error) {
	e.renders++
	if e.failAt > 0 && e.renders >= e.failAt {
		return 0, errors.New("emulation core crashed")
	}

	frames := len(dst) / audio.Channels
	if e.total >= 0 {
		if left := e.total - e.pos; int64(frames) > left {
			frames = int(left)
		}
	}
	for i := 0; i < frames*audio.Channels; i++ {
		dst[i] = e.amp
	}
	e.pos += int64(frames)
	if frames > e.maxRender {
		e.maxRender = frames
	}
	return frames, nil
}

func (e *fakeEngine) SampleRate() (int, error) { return e.rate, nil }

func (e *fakeEngine) Restart() error {
	e.restarts++
	if e.restartErr != nil {
		return e.restartErr
	}
	e.pos = 0
	return nil
}

func (e *fakeEngine) Close() error {
	e.closed++
	return nil
}

// awareEngine renders at whatever rate the session asks for
type awareEngine struct {
	*fakeEngine
	requested int
}

func (e *awareEngine) SetOutputRate(rate int) (int, error) {
	e.requested = rate
	if rate == 0 {
		rate = 22050
	}
	e.rate = rate
	return rate, nil
}

// discardEngine can skip without rendering
type discardEngine struct {
	*fakeEngine
	skips []int
}

func (e *discardEngine) Skip(frames int) (int, error) {
	e.skips = append(e.skips, frames)
	if e.total >= 0 {
		if left := e.total - e.pos; int64(frames) > left {
			frames = int(max(left, 0))
		}
	}
	e.pos += int64(frames)
	return frames, nil
}

// lengthEngine knows its own length
type lengthEngine struct {
	*fakeEngine
	lengthMs uint32
}

func (e *lengthEngine) LengthMs() (uint32, bool) { return e.lengthMs, e.lengthMs > 0 }

// bareEngine cannot report a sample rate
type bareEngine struct{ closed int }

func (e *bareEngine) Render(dst []int16) (int, error) { return 0, nil }
func (e *bareEngine) Restart() error                  { return nil }
func (e *bareEngine) Close() error                    { e.closed++; return nil }

type fakeBackend struct {
	name     string
	suffixes []string
	meta     [][2]string
	engine   Engine
	openErr  error
	opts     Options
	opened   int
}

func (b *fakeBackend) Name() string                 { return b.name }
func (b *fakeBackend) Suffixes() []string           { return b.suffixes }
func (b *fakeBackend) Configure(config.Block) error { return nil }
func (b *fakeBackend) SessionOptions() Options      { return b.opts }

func (b *fakeBackend) Open(path string, meta MetaFunc) (Engine, error) {
	b.opened++
	for _, kv := range b.meta {
		meta(kv[0], kv[1])
	}
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.engine, nil
}

// scanBackend reads tags without opening an engine
type scanBackend struct {
	fakeBackend
	scans int
}

func (b *scanBackend) ScanFile(path string, meta MetaFunc) error {
	b.scans++
	for _, kv := range b.meta {
		meta(kv[0], kv[1])
	}
	return b.openErr
}

type fakeClient struct {
	readyCalls int
	format     audio.Format
	seekable   bool
	length     OptionalMs

	submissions int
	frames      int64
	finished    int

	// commands maps a 1-based submission number to the reply
	commands   map[int]Command
	onSubmit   func(n int, samples []int16)
	onFinished func(n int)
}

func (c *fakeClient) Ready(format audio.Format, seekable bool, length OptionalMs) {
	c.readyCalls++
	c.format = format
	c.seekable = seekable
	c.length = length
}

func (c *fakeClient) SubmitAudio(samples []int16) Command {
	c.submissions++
	c.frames += int64(len(samples) / audio.Channels)
	if c.onSubmit != nil {
		c.onSubmit(c.submissions, samples)
	}
	if cmd, ok := c.commands[c.submissions]; ok {
		return cmd
	}
	return None()
}

func (c *fakeClient) CommandFinished() {
	c.finished++
	if c.onFinished != nil {
		c.onFinished(c.finished)
	}
}
