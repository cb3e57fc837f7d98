package respawn

import "fmt"

// FormatDelta renders a signed offset from now the way timer listings show
// it: "1h 23m" in the future, "-7m" just past, "-Nada" once the overdue
// grace has elapsed.
func FormatDelta(deltaSeconds, graceSeconds int64) string {
	if deltaSeconds <= 0 {
		overdue := -deltaSeconds
		if overdue > graceSeconds {
			return "-Nada"
		}
		return fmt.Sprintf("-%dm", overdue/60)
	}
	m := deltaSeconds / 60
	h, m := m/60, m%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", deltaSeconds)
	}
}

// HumanAgo renders an elapsed duration for catch-up notices.
func HumanAgo(seconds int64) string {
	if seconds < 60 {
		return "just now"
	}
	m := seconds / 60
	h, m := m/60, m%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm ago", h, m)
	}
	return fmt.Sprintf("%dm ago", m)
}
