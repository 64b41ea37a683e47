package main

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette is a small stylesheet for command output built with named [lipgloss.Style] fields.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	muted lipgloss.Style
}

func NewPalette(t, s, e, w, m string) *Palette {
	return &Palette{
		title: newBold(t),
		ok:    newBold(s),
		err:   newBold(e),
		warn:  newStyle(w),
		muted: newStyle(m).Italic(true),
	}
}

// DefaultPalette uses Spotify green for success marks.
func DefaultPalette() *Palette {
	return NewPalette("#7D56F4", "#1DB954", "#E22134", "#FFA500", "#626262")
}

// PlainPalette renders text unchanged.
func PlainPalette() *Palette {
	s := lipgloss.NewStyle()
	return &Palette{title: s, ok: s, err: s, warn: s, muted: s}
}

func newStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func newBold(fg string) lipgloss.Style {
	return newStyle(fg).Bold(true)
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render("✓ " + s) }
func (p *Palette) Fail(s string) string  { return p.err.Render("✗ " + s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render("⚠ " + s) }
func (p *Palette) Muted(s string) string { return p.muted.Render(s) }
