// Package feedtime normalizes the upstream feed's datetime strings.
//
// The feed emits "YYYY-MM-DD HH:MM:SS +HH:MM" with a space before the offset
// and an occasionally single-digit hour, which no standard layout parses
// directly. Every consumer of a raw datetime (scoring, storage timestamp
// derivation) must go through Normalize so they all agree on validity.
package feedtime

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrUnparseable marks a raw datetime that cannot be normalized into a
// valid point in time. Use errors.Is to detect it.
var ErrUnparseable = errors.New("unparseable feed datetime")

// rawPattern matches the feed format, tolerating a one-digit hour.
var rawPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}) (\d{1,2}):(\d{2}:\d{2}) ([+-]\d{2}):(\d{2})$`)

// Normalize rewrites raw into RFC3339 and parses it. The returned time
// carries the feed's own zone offset.
func Normalize(raw string) (time.Time, error) {
	m := rawPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, raw)
	}
	hour := m[2]
	if len(hour) == 1 {
		hour = "0" + hour
	}
	rfc := fmt.Sprintf("%sT%s:%s%s:%s", m[1], hour, m[3], m[4], m[5])
	t, err := time.Parse(time.RFC3339, rfc)
	if err != nil {
		// Shape matched but the components are not a real calendar date.
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, raw)
	}
	return t, nil
}

// NormalizeMillis is Normalize projected onto the storage representation:
// epoch milliseconds.
func NormalizeMillis(raw string) (int64, error) {
	t, err := Normalize(raw)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
