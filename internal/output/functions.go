package output

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

const BarWidth = 30

// ProgressBar renders a fixed-width "[====------]" bar.
func ProgressBar(current, total int64, width int) string {
	if width <= 0 {
		width = BarWidth
	}
	filled := width * Percent(current, total) / 100
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}

// Percent is current/total as a whole percentage clamped to [0, 100]. An
// empty object counts as done.
func Percent(current, total int64) int {
	if total <= 0 {
		return 100
	}
	current = max(0, min(current, total))
	return int(current * 100 / total)
}

// FormatETA renders seconds as mm:ss. Minutes are not wrapped into hours.
func FormatETA(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// ProgressLine is the live status line without styling.
func ProgressLine(current, total, bytesPerSec, etaSeconds int64) string {
	return fmt.Sprintf("Progress: %s %d%% | Speed: %.2f MB/s | ETA: %s",
		ProgressBar(current, total, BarWidth),
		Percent(current, total),
		float64(bytesPerSec)/(1024*1024),
		FormatETA(etaSeconds),
	)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // Default fallback width
	}
	return width
}

// FitLine cuts text to the terminal width so a "\r" redraw stays on one row.
func FitLine(text string) string {
	width := getTerminalWidth()
	if len(text) < width {
		return text
	}
	return text[:width-1]
}
