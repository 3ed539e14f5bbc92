package output

import "github.com/charmbracelet/lipgloss"

// Styles holds lipgloss styles for text output.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Code    lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusSkipped lipgloss.Style
}

// NewStyles returns styles for text output. Without a terminal every style
// renders plain text.
func NewStyles(isTTY bool) *Styles {
	if !isTTY {
		plain := lipgloss.NewStyle()
		return &Styles{
			Header1: plain, Header2: plain, Bold: plain, Muted: plain,
			Success: plain, Warning: plain, Error: plain, Code: plain,
			StatusSuccess: plain.SetString("PASS"),
			StatusFailed:  plain.SetString("FAIL"),
			StatusSkipped: plain.SetString("SKIP"),
		}
	}

	green := lipgloss.Color("42")
	red := lipgloss.Color("196")
	yellow := lipgloss.Color("214")
	gray := lipgloss.Color("245")

	return &Styles{
		Header1: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Header2: lipgloss.NewStyle().Bold(true),
		Bold:    lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(gray),
		Success: lipgloss.NewStyle().Foreground(green),
		Warning: lipgloss.NewStyle().Foreground(yellow),
		Error:   lipgloss.NewStyle().Foreground(red),
		Code:    lipgloss.NewStyle().Foreground(lipgloss.Color("141")),

		StatusSuccess: lipgloss.NewStyle().Foreground(green).Bold(true).SetString("PASS"),
		StatusFailed:  lipgloss.NewStyle().Foreground(red).Bold(true).SetString("FAIL"),
		StatusSkipped: lipgloss.NewStyle().Foreground(gray).SetString("SKIP"),
	}
}

// Verdict returns the status style for a pass/fail outcome.
func (s *Styles) Verdict(ok bool) lipgloss.Style {
	if ok {
		return s.StatusSuccess
	}
	return s.StatusFailed
}
