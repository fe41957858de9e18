package stream

import (
	"fmt"
	"strings"
	"time"
)

// Suffix is appended verbatim to every timestamp. It is a lowercase literal,
// not a zone designator.
const Suffix = "z"

const (
	layoutSeconds = "2006-01-02T15:04:05"
	layoutMicros  = "2006-01-02T15:04:05.000000"
)

// FormatTimestamp renders t in UTC as an ISO-8601 string followed by Suffix.
// Six fractional digits are written unless the microsecond part is zero, in
// which case the fraction is omitted.
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	layout := layoutMicros
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		layout = layoutSeconds
	}
	return t.Format(layout) + Suffix
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	if !strings.HasSuffix(s, Suffix) {
		return time.Time{}, fmt.Errorf("timestamp %q lacks %q suffix", s, Suffix)
	}
	// The fraction is optional when parsing, so one layout covers both forms.
	return time.ParseInLocation(layoutSeconds, strings.TrimSuffix(s, Suffix), time.UTC)
}
