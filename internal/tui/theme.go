package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	TextPrimary lipgloss.AdaptiveColor
	TextMuted   lipgloss.AdaptiveColor

	Accent  lipgloss.AdaptiveColor
	Success lipgloss.AdaptiveColor
	Warn    lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor

	TopBar      lipgloss.Style
	TopBarTitle lipgloss.Style
	TopBarBadge lipgloss.Style
	TopBarMeta  lipgloss.Style

	Pane        lipgloss.Style
	PaneFocused lipgloss.Style
	PaneTitle   lipgloss.Style
	Footer      lipgloss.Style
	InputBox    lipgloss.Style
	InputBoxF   lipgloss.Style
	Spinner     lipgloss.Style

	RoleYou lipgloss.Style
	RoleBot lipgloss.Style
	RoleSys lipgloss.Style

	// Banner renders transient failures; Notice renders refusals, which are
	// a capability boundary rather than an error.
	Banner lipgloss.Style
	Notice lipgloss.Style

	Attachment lipgloss.Style
	DayTab     lipgloss.Style
	DayTabSel  lipgloss.Style
	HourCursor lipgloss.Style
}

func NewTheme() Theme {
	if os.Getenv("CLIMAVIZ_NO_COLOR") == "1" {
		return newNoColorTheme()
	}
	return newSkyTheme()
}

func newSkyTheme() Theme {
	t := Theme{
		TextPrimary: lipgloss.AdaptiveColor{Light: "#1d2433", Dark: "#f2f2f2"},
		TextMuted:   lipgloss.AdaptiveColor{Light: "#4a5568", Dark: "#c7c7c7"},

		Accent:  lipgloss.AdaptiveColor{Light: "#1f6feb", Dark: "#7aa2ff"},
		Success: lipgloss.AdaptiveColor{Light: "#0f766e", Dark: "#46d1b7"},
		Warn:    lipgloss.AdaptiveColor{Light: "#b45309", Dark: "#f4b27d"},
		Error:   lipgloss.AdaptiveColor{Light: "#b42318", Dark: "#ff7a7a"},
		Border:  lipgloss.AdaptiveColor{Light: "#cbd5e0", Dark: "#3a3a3a"},
	}

	t.TopBar = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.TopBarTitle = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary)
	t.TopBarBadge = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.TopBarMeta = lipgloss.NewStyle().Foreground(t.TextMuted)

	t.Pane = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(t.Border).Padding(0, 1)
	t.PaneFocused = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(t.Accent).Padding(0, 1)
	t.PaneTitle = lipgloss.NewStyle().Bold(true).Foreground(t.TextMuted)
	t.Footer = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.InputBox = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(t.Border).Padding(0, 1)
	t.InputBoxF = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(t.Accent).Padding(0, 1)
	t.Spinner = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)

	t.RoleYou = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.RoleBot = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary)
	t.RoleSys = lipgloss.NewStyle().Foreground(t.TextMuted)

	t.Banner = lipgloss.NewStyle().Bold(true).Foreground(t.Error)
	t.Notice = lipgloss.NewStyle().Foreground(t.Warn)

	t.Attachment = lipgloss.NewStyle().Foreground(t.Success)
	t.DayTab = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.DayTabSel = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.HourCursor = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary)
	return t
}

func newNoColorTheme() Theme {
	t := Theme{
		TextPrimary: lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"},
		TextMuted:   lipgloss.AdaptiveColor{Light: "#333333", Dark: "#dddddd"},
		Border:      lipgloss.AdaptiveColor{Light: "#555555", Dark: "#777777"},
	}
	plain := lipgloss.NewStyle().Foreground(t.TextPrimary)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)
	bold := lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary)
	boxed := lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(t.Border).Padding(0, 1)

	t.TopBar, t.TopBarTitle, t.TopBarBadge, t.TopBarMeta = plain, bold, bold, muted
	t.Pane, t.PaneFocused, t.PaneTitle, t.Footer = boxed, boxed, bold, muted
	t.InputBox, t.InputBoxF, t.Spinner = boxed, boxed, bold
	t.RoleYou, t.RoleBot, t.RoleSys = bold, bold, muted
	t.Banner, t.Notice, t.Attachment = bold, muted, plain
	t.DayTab, t.DayTabSel, t.HourCursor = muted, bold, bold
	return t
}
