package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SortMode selects how timeline events are ordered by created_at.
type SortMode string

const (
	// SortModeLexical compares created_at as plain strings. ISO-8601 timestamps of uniform
	// precision sort correctly this way; mixed precision does not.
	SortModeLexical SortMode = "lexical"
	// SortModeParsed compares parsed timestamps and falls back to string order for values
	// that do not parse.
	SortModeParsed SortMode = "parsed"
)

// ParseSortMode validates a configured sort mode. Empty selects lexical.
func ParseSortMode(value string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", SortModeLexical:
		return SortModeLexical, nil
	case SortModeParsed:
		return SortModeParsed, nil
	default:
		return "", fmt.Errorf("unknown sort mode %q", value)
	}
}

// SortTimelineDesc orders events newest first. Ties keep their current relative order.
func SortTimelineDesc(events []TimelineEvent, mode SortMode) {
	sort.SliceStable(events, func(i, j int) bool {
		return createdAfter(events[i].CreatedAt, events[j].CreatedAt, mode)
	})
}

// IsSortedDesc reports whether events are in non-increasing created_at order.
func IsSortedDesc(events []TimelineEvent, mode SortMode) bool {
	for i := 1; i < len(events); i++ {
		if createdAfter(events[i].CreatedAt, events[i-1].CreatedAt, mode) {
			return false
		}
	}
	return true
}

func createdAfter(a, b string, mode SortMode) bool {
	if mode == SortModeParsed {
		ta, errA := time.Parse(time.RFC3339Nano, a)
		tb, errB := time.Parse(time.RFC3339Nano, b)
		if errA == nil && errB == nil {
			return ta.After(tb)
		}
	}
	return a > b
}
