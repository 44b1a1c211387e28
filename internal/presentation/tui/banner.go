package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Espalier banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Leaf greens, darkest at the top.
	lines := []struct{ text, color string }{
		{"   ___                 _ _", "#166534"},
		{"  | __|____ __  __ _  | (_)___ _ _", "#15803d"},
		{"  | _|(_-< '_ \\/ _` | | | / -_) '_|", "#16a34a"},
		{"  |___/__/ .__/\\__,_| |_|_\\___|_|", "#22c55e"},
		{"         |_|", "#4ade80"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
