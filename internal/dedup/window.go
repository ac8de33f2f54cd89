// Package dedup implements event- and action-level duplicate suppression over
// the persisted deduplication state. Every operation is pure: callers supply
// the state and persist the transformed result themselves.
package dedup

import (
	"regexp"
	"strconv"
	"time"
)

// DefaultWindow applies when a window string is absent or malformed.
const DefaultWindow = 24 * time.Hour

// DefaultMaxRecordAge bounds how long records survive cleanup.
const DefaultMaxRecordAge = 7 * 24 * time.Hour

var timeWindowRegex = regexp.MustCompile(`^(\d+)([hdwm])$`)

// ParseTimeWindow parses "<n><unit>" with units h(our), d(ay), w(eek) and
// m(onth, 30d). Anything that does not match falls back to DefaultWindow.
func ParseTimeWindow(s string) time.Duration {
	m := timeWindowRegex.FindStringSubmatch(s)
	if m == nil {
		return DefaultWindow
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultWindow
	}
	var unit time.Duration
	switch m[2] {
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	case "w":
		unit = 7 * 24 * time.Hour
	case "m":
		unit = 30 * 24 * time.Hour
	}
	return time.Duration(n) * unit
}
