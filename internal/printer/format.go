package printer

import (
	"time"

	"github.com/docker/go-units"
)

// FormatBytes returns a human-readable binary size (e.g. "512MiB", "1.5GiB").
func FormatBytes(bytes uint64) string {
	return units.BytesSize(float64(bytes))
}

// TimeAgo returns how long ago t was (e.g. "5 minutes ago", "3 days ago").
func TimeAgo(t time.Time) string {
	d := time.Since(t)
	if d < 0 {
		return "in the future"
	}
	return units.HumanDuration(d) + " ago"
}

// FormatTimestamp returns a formatted timestamp string in UTC.
// Format: "2006-01-02 15:04:05 UTC".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}
