// Package ui renders CLI status markers and headwords.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	passStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	accentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	headwordStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Faint(true)
)

func RenderPass(s string) string     { return passStyle.Render(s) }
func RenderWarn(s string) string     { return warnStyle.Render(s) }
func RenderFail(s string) string     { return failStyle.Render(s) }
func RenderAccent(s string) string   { return accentStyle.Render(s) }
func RenderHeadword(s string) string { return headwordStyle.Render(s) }
func RenderMuted(s string) string    { return mutedStyle.Render(s) }

// IsTerminal reports whether w is an interactive terminal, in which case
// progress can be redrawn in place.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
