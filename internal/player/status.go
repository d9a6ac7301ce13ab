// ABOUTME: Player status snapshot and subscription fan-out
// ABOUTME: Published on every state change and periodically while rendering
package player

import (
	"sync"
	"time"

	"github.com/Resonate-Protocol/chipdec/pkg/audio"
	"github.com/Resonate-Protocol/chipdec/pkg/decoder"
)

// PlayState is the coarse player state shown to users
type PlayState string

const (
	StateIdle    PlayState = "idle"
	StatePlaying PlayState = "playing"
	StateSeeking PlayState = "seeking"
	StateStopped PlayState = "stopped"
	StateError   PlayState = "error"
)

// Status describes what the player is doing
type Status struct {
	State    PlayState
	Path     string
	Backend  string
	Session  string
	Format   audio.Format
	Seekable bool
	Position time.Duration
	Length   decoder.OptionalMs
	Title    string
	Artist   string
	Album    string
	Index    int // position of the current file in the queue
	Queued   int // files in the queue, including played ones
	Err      string
}

// statusHub fans snapshots out to subscribers without blocking the
// render loop. Slow subscribers miss intermediate snapshots.
type statusHub struct {
	mu      sync.Mutex
	current Status
	subs    map[chan Status]struct{}
}

func newStatusHub() *statusHub {
	return &statusHub{
		current: Status{State: StateIdle},
		subs:    make(map[chan Status]struct{}),
	}
}

func (h *statusHub) update(fn func(*Status)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	fn(&h.current)
	snapshot := h.current
	for ch := range h.subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func (h *statusHub) get() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *statusHub) subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 16)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}
