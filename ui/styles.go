package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorAccent  = lipgloss.Color("#00ADD8")
	ColorPurple  = lipgloss.Color("#7D56F4")
	ColorSubtle  = lipgloss.Color("#626262")
	ColorSurface = lipgloss.Color("#49454F")
	ColorSuccess = lipgloss.Color("#04B575")
	ColorWarn    = lipgloss.Color("#FFB86C")
	ColorError   = lipgloss.Color("#FF5F87")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent).
			MarginBottom(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Width(10)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorPurple)

	SectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSurface).
			Padding(0, 1).
			MarginTop(1)

	TopicStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	FeedbackStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Italic(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			MarginTop(1)

	AppStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Padding(1, 2).
			Margin(1, 1).
			Width(72)
)

// stateStyle colors the connection indicator
func stateStyle(connected, errored bool) lipgloss.Style {
	switch {
	case errored:
		return lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	case connected:
		return lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(ColorWarn).Bold(true)
	}
}
