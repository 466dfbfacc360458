package media

import (
	"fmt"
	"time"
)

// Prober reports the total duration of a source. Implementations live with
// the decoding code; probe failure is non-fatal and callers fall back to a
// zero (unknown) duration.
type Prober interface {
	TotalDuration(src Source) (time.Duration, error)
}

// FormatDuration renders a duration as MM:SS, or HH:MM:SS once it reaches
// an hour.
func FormatDuration(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 0 {
		secs = 0
	}
	seconds := secs % 60
	minutes := (secs / 60) % 60
	hours := secs / 3600
	if hours >= 1 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
