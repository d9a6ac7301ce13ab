// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Defines application state, key bindings and rendering
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Resonate-Protocol/chipdec/internal/player"
)

// seekStep is how far left/right move the playhead
const seekStep = 5 * time.Second

// Controller is the subset of the player the UI drives
type Controller interface {
	Seek(target time.Duration)
	Next()
	Stop()
}

// Mixer is the software volume the UI adjusts
type Mixer interface {
	SetVolume(volume int)
	SetMuted(muted bool)
	Level() int
	Muted() bool
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(9)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var frameStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("63")).
	Padding(0, 1).
	Width(56)

// Model represents the TUI state
type Model struct {
	status player.Status

	// Playback
	volume int
	muted  bool

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int

	ctrl  Controller
	mixer Mixer
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.status = player.Status(msg)
	case QuitMsg:
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("chipdec"))
	b.WriteString("  ")
	b.WriteString(string(m.status.State))
	b.WriteString("\n\n")
	b.WriteString(m.renderTrack())
	b.WriteString("\n")
	b.WriteString(m.renderProgress())
	b.WriteString("\n")
	b.WriteString(m.renderControls())

	if m.status.Err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(truncate(m.status.Err, 54)))
	}
	if m.showDebug {
		b.WriteString("\n")
		b.WriteString(m.renderDebug())
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("←/→ seek  n next  s stop  ↑/↓ vol  m mute  q quit"))

	return frameStyle.Render(b.String()) + "\n"
}

func field(label, value string) string {
	return labelStyle.Render(label) + truncate(value, 45) + "\n"
}

// renderTrack renders current file and metadata
func (m Model) renderTrack() string {
	if m.status.Path == "" {
		return "No track\n"
	}

	title := m.status.Title
	if title == "" {
		title = "(No metadata)"
	}

	s := field("Track:", title)
	if m.status.Artist != "" {
		s += field("Artist:", m.status.Artist)
	}
	if m.status.Album != "" {
		s += field("Game:", m.status.Album)
	}
	s += field("Decoder:", fmt.Sprintf("%s %dHz %s", m.status.Backend,
		m.status.Format.SampleRate, channelName(m.status.Format.Channels)))
	if m.status.Queued > 0 {
		s += field("Queue:", fmt.Sprintf("%d of %d", m.status.Index+1, m.status.Queued))
	}
	return s
}

// renderProgress renders position against the declared length
func (m Model) renderProgress() string {
	pos := formatDuration(m.status.Position)
	if !m.status.Length.Valid {
		return field("Time:", pos+" / --:--")
	}

	length := m.status.Length.Duration()
	bar := renderBar(int(m.status.Position/time.Millisecond), int(length/time.Millisecond), 30)
	return field("Time:", fmt.Sprintf("%s %s / %s", bar, pos, formatDuration(length)))
}

// renderControls renders volume status
func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}
	return field("Volume:", fmt.Sprintf("%s %d%%%s", renderBar(m.volume, 100, 10), m.volume, muteIcon))
}

// renderDebug renders session details
func (m Model) renderDebug() string {
	return field("Session:", m.status.Session) +
		field("Path:", m.status.Path) +
		field("Seekable:", fmt.Sprintf("%v", m.status.Seekable))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.ctrl != nil {
			m.ctrl.Stop()
		}
		return m, tea.Quit
	case "up":
		m.setVolume(m.volume + 5)
	case "down":
		m.setVolume(m.volume - 5)
	case "m":
		m.muted = !m.muted
		if m.mixer != nil {
			m.mixer.SetMuted(m.muted)
		}
	case "right":
		m.seek(m.status.Position + seekStep)
	case "left":
		m.seek(m.status.Position - seekStep)
	case "n":
		if m.ctrl != nil {
			m.ctrl.Next()
		}
	case "s":
		if m.ctrl != nil {
			m.ctrl.Stop()
		}
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

func (m *Model) setVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	m.volume = volume
	if m.mixer != nil {
		m.mixer.SetVolume(volume)
	}
}

func (m *Model) seek(target time.Duration) {
	if m.ctrl == nil || !m.status.Seekable {
		return
	}
	if target < 0 {
		target = 0
	}
	m.status.Position = target
	m.ctrl.Seek(target)
}

// StatusMsg carries a player snapshot into the TUI
type StatusMsg player.Status

// QuitMsg asks the TUI to exit
type QuitMsg struct{}

// Utility functions
func renderBar(value, max, width int) string {
	if max <= 0 {
		return strings.Repeat("░", width)
	}
	filled := (value * width) / max
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%d:%02d", m, s)
}
