package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles of the CLI.
type Styles struct {
	Header1    lipgloss.Style
	Header2    lipgloss.Style
	Bold       lipgloss.Style
	Muted      lipgloss.Style
	Success    lipgloss.Style
	Warning    lipgloss.Style
	Error      lipgloss.Style
	Info       lipgloss.Style
	TargetName lipgloss.Style

	StatusSuccess   lipgloss.Style
	StatusFailed    lipgloss.Style
	StatusUnchanged lipgloss.Style
}

// Palette
var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	colorError   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
)

// NewStyles creates the styles for a lipgloss renderer.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1:    r.NewStyle().Bold(true).Foreground(colorPrimary),
		Header2:    r.NewStyle().Bold(true),
		Bold:       r.NewStyle().Bold(true),
		Muted:      r.NewStyle().Foreground(colorMuted),
		Success:    r.NewStyle().Foreground(colorSuccess),
		Warning:    r.NewStyle().Foreground(colorWarning),
		Error:      r.NewStyle().Foreground(colorError),
		Info:       r.NewStyle().Foreground(colorPrimary),
		TargetName: r.NewStyle().Foreground(colorPrimary),

		StatusSuccess:   r.NewStyle().Foreground(colorSuccess).SetString("✓"),
		StatusFailed:    r.NewStyle().Foreground(colorError).SetString("✗"),
		StatusUnchanged: r.NewStyle().Foreground(colorMuted).SetString("="),
	}
}

// StatusIcon returns the icon of a run or target status.
func (s *Styles) StatusIcon(status string) string {
	switch status {
	case "failed":
		return s.StatusFailed.String()
	case "unchanged":
		return s.StatusUnchanged.String()
	default:
		return s.StatusSuccess.String()
	}
}
