package gate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "tradepulse/internal/errors"
)

// Window is a quiet-hours window expressed in minutes since local
// midnight. Start is inclusive, End exclusive. A window may wrap past
// midnight (Start > End), e.g. 22:00-07:00.
type Window struct {
	Start int
	End   int
}

const minutesPerDay = 24 * 60

// ParseWindow parses a "HH:MM-HH:MM" quiet-hours string.
func ParseWindow(s string) (Window, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return Window{}, apperrors.NewValidationError("quiet_hours", s, "expected HH:MM-HH:MM")
	}

	start, err := parseMinutes(parts[0])
	if err != nil {
		return Window{}, apperrors.NewValidationError("quiet_hours", s, err.Error())
	}
	end, err := parseMinutes(parts[1])
	if err != nil {
		return Window{}, apperrors.NewValidationError("quiet_hours", s, err.Error())
	}

	return Window{Start: start, End: end}, nil
}

// ParseWindows parses a list of quiet-hours strings. The first invalid
// entry fails the whole list so a partial update never replaces a
// previously valid configuration.
func ParseWindows(specs []string) ([]Window, error) {
	windows := make([]Window, 0, len(specs))
	for _, s := range specs {
		w, err := ParseWindow(s)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func parseMinutes(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour %q", parts[0])
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute %q", parts[1])
	}
	return h*60 + m, nil
}

// Contains reports whether the local time t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	if w.Start == w.End {
		// Zero-length window covers nothing.
		return false
	}
	if w.Start < w.End {
		return m >= w.Start && m < w.End
	}
	// Wraps midnight.
	return m >= w.Start || m < w.End
}

// String renders the window back to "HH:MM-HH:MM" form.
func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.Start/60, w.Start%60, w.End/60, w.End%60)
}

// InQuietHours reports whether t falls inside any of the windows.
func InQuietHours(t time.Time, windows []Window) bool {
	for _, w := range windows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}
