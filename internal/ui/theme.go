// Package ui renders pipeline progress for the terminal.
package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TermTheme holds all color values for a terminal theme.
type TermTheme struct {
	Name string

	// Brand
	Accent    lipgloss.Color
	AccentDim lipgloss.Color

	// Semantic
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	// Text
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Dim       lipgloss.Color
}

// DarkTheme is the default dark terminal theme.
var DarkTheme = TermTheme{
	Name:      "dark",
	Accent:    lipgloss.Color("#38bdf8"),
	AccentDim: lipgloss.Color("#0369a1"),
	Success:   lipgloss.Color("#22c55e"),
	Warning:   lipgloss.Color("#eab308"),
	Error:     lipgloss.Color("#ef4444"),
	Primary:   lipgloss.Color("#e0e0e8"),
	Secondary: lipgloss.Color("#888888"),
	Dim:       lipgloss.Color("#5a5a70"),
}

// LightTheme is the light terminal theme.
var LightTheme = TermTheme{
	Name:      "light",
	Accent:    lipgloss.Color("#0369a1"),
	AccentDim: lipgloss.Color("#0c4a6e"),
	Success:   lipgloss.Color("#15803d"),
	Warning:   lipgloss.Color("#a16207"),
	Error:     lipgloss.Color("#b91c1c"),
	Primary:   lipgloss.Color("#0f172a"),
	Secondary: lipgloss.Color("#374151"),
	Dim:       lipgloss.Color("#4b5563"),
}

// DetectTheme returns the appropriate theme based on flag, env, or detection.
func DetectTheme(flagVal string) TermTheme {
	// 1. --theme flag
	if t, ok := themeByName(flagVal); ok {
		return t
	}

	// 2. PIPELINE_THEME env
	if t, ok := themeByName(os.Getenv("PIPELINE_THEME")); ok {
		return t
	}

	// 3. COLORFGBG heuristic (format: "fg;bg")
	if colorfgbg := os.Getenv("COLORFGBG"); colorfgbg != "" {
		parts := strings.Split(colorfgbg, ";")
		if len(parts) >= 2 {
			bg := parts[len(parts)-1]
			if bg == "15" || bg == "7" {
				return LightTheme
			}
		}
	}

	// 4. Default to dark
	return DarkTheme
}

func themeByName(name string) (TermTheme, bool) {
	switch strings.ToLower(name) {
	case "dark":
		return DarkTheme, true
	case "light":
		return LightTheme, true
	}
	return TermTheme{}, false
}

// StyleSet contains pre-computed lipgloss styles derived from a theme.
type StyleSet struct {
	Theme TermTheme

	Title        lipgloss.Style
	AccentTxt    lipgloss.Style
	DimTxt       lipgloss.Style
	SuccessTxt   lipgloss.Style
	WarningTxt   lipgloss.Style
	ErrorTxt     lipgloss.Style
	PrimaryTxt   lipgloss.Style
	SecondaryTxt lipgloss.Style

	// Summary
	SummaryKey   lipgloss.Style
	SummaryValue lipgloss.Style
}

// NewStyleSet creates a StyleSet from a theme. Styles are bound to r so
// color output follows the capabilities of r's writer.
func NewStyleSet(theme TermTheme, r *lipgloss.Renderer) *StyleSet {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return &StyleSet{
		Theme: theme,

		Title:        r.NewStyle().Foreground(theme.Accent).Bold(true),
		AccentTxt:    r.NewStyle().Foreground(theme.Accent),
		DimTxt:       r.NewStyle().Foreground(theme.Dim),
		SuccessTxt:   r.NewStyle().Foreground(theme.Success),
		WarningTxt:   r.NewStyle().Foreground(theme.Warning),
		ErrorTxt:     r.NewStyle().Foreground(theme.Error),
		PrimaryTxt:   r.NewStyle().Foreground(theme.Primary),
		SecondaryTxt: r.NewStyle().Foreground(theme.Secondary),

		SummaryKey: r.NewStyle().
			Foreground(theme.Secondary),
		SummaryValue: r.NewStyle().
			Foreground(theme.Primary).
			Bold(true),
	}
}
