// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal styling for the veridict CLI.
package ux

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Veridict palette - slate blues with verdict accents
var (
	ColorIndigo  = lipgloss.Color("#5D6FD4") // Primary brand color
	ColorSteel   = lipgloss.Color("#7A8BA3") // Secondary text, borders
	ColorSlate   = lipgloss.Color("#4A5568") // Muted text
	ColorGreen   = lipgloss.Color("#3BB273") // Supported verdicts
	ColorRed     = lipgloss.Color("#D64550") // Contradicted verdicts
	ColorAmber   = lipgloss.Color("#E3B341") // Uncertain verdicts, warnings
	ColorWarning = ColorAmber
	ColorError   = ColorRed
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Supported lipgloss.Style
	Contra    lipgloss.Style
	Uncertain lipgloss.Style
	Box       lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorIndigo),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Warning:   lipgloss.NewStyle().Foreground(ColorAmber),
	Error:     lipgloss.NewStyle().Foreground(ColorRed),
	Supported: lipgloss.NewStyle().Bold(true).Foreground(ColorGreen),
	Contra:    lipgloss.NewStyle().Bold(true).Foreground(ColorRed),
	Uncertain: lipgloss.NewStyle().Bold(true).Foreground(ColorAmber),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSteel).
		Padding(0, 1),
}

// plain disables styling for machine-readable output. Set once at startup.
var plain bool

// SetPlain switches all helpers to unstyled output.
func SetPlain(p bool) { plain = p }

// Verdict renders a classification label in its verdict color.
func Verdict(label string) string {
	if plain {
		return label
	}
	switch label {
	case "SUPPORTED":
		return Styles.Supported.Render(label)
	case "CONTRADICTED":
		return Styles.Contra.Render(label)
	case "UNCERTAIN":
		return Styles.Uncertain.Render(label)
	default:
		return label
	}
}

// Title prints a styled heading line.
func Title(text string) {
	if plain {
		fmt.Println(text)
		return
	}
	fmt.Println(Styles.Title.Render(text))
}

// Warning prints a warning message to stderr.
func Warning(text string) {
	if plain {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", Styles.Warning.Render("⚠"), Styles.Warning.Render(text))
}

// Error prints an error message to stderr.
func Error(text string) {
	if plain {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", Styles.Error.Render("✗"), Styles.Error.Render(text))
}

// Muted renders secondary text such as evidence attribution.
func Muted(text string) string {
	if plain {
		return text
	}
	return Styles.Muted.Render(text)
}

// Box prints titled content in a rounded box.
func Box(title, content string) {
	if plain {
		fmt.Printf("%s: %s\n", title, content)
		return
	}
	boxStyle := Styles.Box.Width(60)
	fmt.Println(boxStyle.Render(Styles.Title.Render(title) + "\n" + content))
}

// Summary prints verdict counts for a classification run.
func Summary(supported, contradicted, uncertain int) {
	if plain {
		fmt.Printf("SUMMARY: supported=%d contradicted=%d uncertain=%d\n",
			supported, contradicted, uncertain)
		return
	}
	fmt.Printf("\n%s %s  %s %s  %s %s\n",
		Styles.Supported.Render(fmt.Sprintf("%d", supported)), Muted("supported"),
		Styles.Contra.Render(fmt.Sprintf("%d", contradicted)), Muted("contradicted"),
		Styles.Uncertain.Render(fmt.Sprintf("%d", uncertain)), Muted("uncertain"),
	)
}
