package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ConnectionStatus represents the block source status.
type ConnectionStatus struct {
	Name       string
	State      string
	Round      uint64
	LastUpdate time.Time
}

// Connected reports whether the source is usable.
func (c ConnectionStatus) Connected() bool {
	return c.State == "connected"
}

// StatusComponent renders block source status.
type StatusComponent struct {
	connections []ConnectionStatus
}

// NewStatusComponent creates a new status component.
func NewStatusComponent() *StatusComponent {
	return &StatusComponent{
		connections: make([]ConnectionStatus, 0),
	}
}

// Update updates a connection's status.
func (s *StatusComponent) Update(status ConnectionStatus) {
	for i, conn := range s.connections {
		if conn.Name == status.Name {
			s.connections[i] = status
			return
		}
	}
	s.connections = append(s.connections, status)
}

// View renders the status component.
func (s *StatusComponent) View() string {
	if len(s.connections) == 0 {
		return "No block source"
	}

	var result string
	for _, conn := range s.connections {
		status := "● " + conn.State
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
		if !conn.Connected() {
			status = "○ " + conn.State
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
		}

		line := fmt.Sprintf("%s: %s", conn.Name, style.Render(status))
		if conn.Round > 0 {
			line += fmt.Sprintf("  round #%d", conn.Round)
		}
		result += line
	}

	return result
}
