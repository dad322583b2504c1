package models

import (
	"fmt"
	"strings"
	"time"
)

// Window is a lookback window label.
type Window string

const (
	Window1D Window = "1d"
	Window1W Window = "1w"
	Window1M Window = "1m"
)

var windows = []Window{Window1D, Window1W, Window1M}

// Windows returns the tracked windows in display order.
func Windows() []Window {
	out := make([]Window, len(windows))
	copy(out, windows)
	return out
}

// Lookback returns how far back the window reaches in calendar days.
func (w Window) Lookback() int {
	switch w {
	case Window1D:
		return 1
	case Window1W:
		return 7
	case Window1M:
		return 28
	default:
		return 0
	}
}

// AsOf returns the calendar date the window refers to, relative to now.
// Days are counted on the wall clock of now's location.
func (w Window) AsOf(now time.Time) time.Time {
	return now.AddDate(0, 0, -w.Lookback())
}

// Title is the chart heading for the window.
func (w Window) Title() string {
	return strings.ToUpper(string(w)) + " Change"
}

// IsValid reports whether w is a tracked window.
func (w Window) IsValid() bool {
	switch w {
	case Window1D, Window1W, Window1M:
		return true
	default:
		return false
	}
}

// ParseWindow converts a raw label to a Window.
func ParseWindow(s string) (Window, error) {
	w := Window(strings.ToLower(strings.TrimSpace(s)))
	if !w.IsValid() {
		return "", fmt.Errorf("unknown window %q", s)
	}
	return w, nil
}
