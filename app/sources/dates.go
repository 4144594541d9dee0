package sources

import (
	"time"

	"github.com/araddon/dateparse"
)

// publishDateLayouts are tried in order before handing the string to
// dateparse. Wire-service feeds are inconsistent about date formats, so
// the common RSS variants come first.
var publishDateLayouts = []string{
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
}

// ParsePublishedAt parses a publish-date string trying each known layout
// in sequence, then dateparse as a last resort. Total failure returns the
// fallback (normally the ingestion time) rather than an error: a missing
// origin timestamp must never drop an item.
func ParsePublishedAt(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}

	for _, layout := range publishDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}

	if t, err := dateparse.ParseAny(value); err == nil {
		return t
	}

	return fallback
}
