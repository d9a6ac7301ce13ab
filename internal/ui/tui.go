// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program and forwards player status into it
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/chipdec/internal/player"
)

// NewModel creates a new TUI model. ctrl and mixer may be nil.
func NewModel(ctrl Controller, mixer Mixer) Model {
	m := Model{
		volume: 100,
		status: player.Status{State: player.StateIdle},
		ctrl:   ctrl,
		mixer:  mixer,
	}
	if mixer != nil {
		m.volume = mixer.Level()
		m.muted = mixer.Muted()
	}
	return m
}

// Run creates the TUI program and forwards status snapshots from updates
// until the channel closes
func Run(ctrl Controller, mixer Mixer, updates <-chan player.Status) *tea.Program {
	p := tea.NewProgram(NewModel(ctrl, mixer), tea.WithAltScreen())

	go func() {
		for st := range updates {
			p.Send(StatusMsg(st))
		}
	}()

	return p
}
