package schema

import (
	"strings"
	"time"
)

// StampLayout is the timestamp format stored in updatedAt/createdAt fields.
// Minute precision matches what the rounding sheet has always stored.
const StampLayout = "2006-01-02 15:04"

var stampLayouts = []string{
	StampLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// NowStamp returns the current local time formatted as a record timestamp.
func NowStamp() Text {
	return Text(time.Now().Format(StampLayout))
}

// ParseStamp parses a record timestamp. Unparseable or empty stamps return
// the zero time, which sorts before every real stamp; conflict resolution
// relies on that so records with broken timestamps always lose.
func ParseStamp(s Text) time.Time {
	raw := strings.TrimSpace(string(s))
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range stampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// StampAfter reports whether a is strictly newer than b.
func StampAfter(a, b Text) bool {
	return ParseStamp(a).After(ParseStamp(b))
}
