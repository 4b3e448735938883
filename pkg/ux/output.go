// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux holds the terminal palette and small output helpers shared by
// the CLI commands.
package ux

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles are the shared text styles.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Box       lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render colors the icon by meaning.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// Printer writes styled lines to w. With Plain set, styles are skipped so
// output stays greppable.
type Printer struct {
	W     io.Writer
	Plain bool
}

func (p Printer) render(s lipgloss.Style, text string) string {
	if p.Plain {
		return text
	}
	return s.Render(text)
}

func (p Printer) Title(text string) {
	fmt.Fprintln(p.W, p.render(Styles.Title, text))
}

func (p Printer) Success(text string) {
	fmt.Fprintln(p.W, p.icon(IconSuccess)+" "+text)
}

func (p Printer) Warn(text string) {
	fmt.Fprintln(p.W, p.icon(IconWarning)+" "+p.render(Styles.Warning, text))
}

func (p Printer) Error(text string) {
	fmt.Fprintln(p.W, p.icon(IconError)+" "+p.render(Styles.Error, text))
}

func (p Printer) Line(text string) {
	fmt.Fprintln(p.W, text)
}

// Box draws text inside a rounded border; plain mode prints it as is.
func (p Printer) Box(text string) {
	if p.Plain {
		fmt.Fprintln(p.W, text)
		return
	}
	fmt.Fprintln(p.W, Styles.Box.Render(text))
}

func (p Printer) Muted(text string) string {
	return p.render(Styles.Muted, text)
}

func (p Printer) Bold(text string) string {
	return p.render(Styles.Bold, text)
}

func (p Printer) icon(i Icon) string {
	if p.Plain {
		return string(i)
	}
	return i.Render()
}

// Icon returns i, colored unless plain.
func (p Printer) Icon(i Icon) string {
	return p.icon(i)
}
