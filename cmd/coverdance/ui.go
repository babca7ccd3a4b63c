package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"coverdance.app/internal/sim/projects"
)

var (
	cPrimary = lipgloss.Color("63")
	cAccent  = lipgloss.Color("205")
	cGood    = lipgloss.Color("42")
	cWarn    = lipgloss.Color("214")
	cBad     = lipgloss.Color("196")
	cMuted   = lipgloss.Color("244")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	keyStyle   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	goodStyle  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	badStyle   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	mutedStyle = lipgloss.NewStyle().Foreground(cMuted)
	panelStyle = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
)

func heading(title string) string {
	return titleStyle.Render(title)
}

func labelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", keyStyle.Render(label+":"), value)
}

func statusText(s projects.Status) string {
	switch s {
	case projects.StatusCompleted:
		return goodStyle.Render(string(s))
	case projects.StatusActive:
		return keyStyle.Render(string(s))
	case projects.StatusFailed:
		return badStyle.Render(string(s))
	case projects.StatusCancelled:
		return warnStyle.Render(string(s))
	default:
		return mutedStyle.Render(string(s))
	}
}

func table(header []string, rows [][]string) string {
	hs := make([]string, len(header))
	for i, h := range header {
		hs[i] = keyStyle.Render(h)
	}
	return ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(hs...).
		Rows(rows...).
		String()
}
