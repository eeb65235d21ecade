// Package cli renders quickexpense results for the terminal.
package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).MarginBottom(1)

	// Message and confidence band styles.
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	InfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1D3"))

	SubtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	BoldStyle   = lipgloss.NewStyle().Bold(true)

	// StatusBoxStyle frames the rule cache status.
	StatusBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 2)
)

const (
	SuccessIcon  = "✓"
	ErrorIcon    = "✗"
	WarningIcon  = "⚠️"
	InfoIcon     = "ℹ️"
	ReceiptIcon  = "🧾"
	ChartIcon    = "📊"
	FallbackIcon = "?"
)

// Results at or above HighConfidence render green, below LowConfidence red.
const (
	HighConfidence = 0.90
	LowConfidence  = 0.50
)

func FormatSuccess(message string) string { return SuccessStyle.Render(SuccessIcon + " " + message) }
func FormatError(message string) string   { return ErrorStyle.Render(ErrorIcon + " " + message) }
func FormatWarning(message string) string { return WarningStyle.Render(WarningIcon + " " + message) }
func FormatInfo(message string) string    { return InfoStyle.Render(InfoIcon + " " + message) }

// FormatTitle prefixes title with the receipt icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(ReceiptIcon + " " + title)
}

// FormatConfidence renders a score as a whole percentage colored by band.
func FormatConfidence(score float64) string {
	text := fmt.Sprintf("%.0f%%", score*100)
	switch {
	case score >= HighConfidence:
		return SuccessStyle.Render(text)
	case score < LowConfidence:
		return ErrorStyle.Render(text)
	default:
		return WarningStyle.Render(text)
	}
}

// RenderBox frames content under a title.
func RenderBox(title, content string) string {
	heading := TitleStyle.UnsetMargins().Render(title)
	return StatusBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, content))
}
