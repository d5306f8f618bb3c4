package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"promptarch/app"
)

// styles is the palette for one theme
type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	prompt  lipgloss.Style
	header  lipgloss.Style
}

func newStyles(theme app.Theme) styles {
	accent := lipgloss.Color("#7D56F4")
	text := lipgloss.Color("#FAFAFA")
	muted := lipgloss.Color("#8A8F98")
	if theme == app.ThemeLight {
		accent = lipgloss.Color("#5A3FC0")
		text = lipgloss.Color("#101F38")
		muted = lipgloss.Color("#5C6370")
	}

	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(accent).
			Padding(0, 1),
		label:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		muted:   lipgloss.NewStyle().Foreground(muted),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#E53935")),
		prompt: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Foreground(text).
			Padding(1, 2),
		header: lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1),
	}
}
