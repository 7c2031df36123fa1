// Package merge attaches timeline events to the company profiles they mention.
package merge

import (
	"errors"
	"fmt"

	"github.com/rpattn/placement-timeline/internal/domain"
	"github.com/rpattn/placement-timeline/internal/matcher"
)

// ErrMissingInput is returned when a required input (company list or event list) is absent.
var ErrMissingInput = errors.New("missing required input")

// ErrNoStore is returned by operations that need the database when none is configured.
var ErrNoStore = errors.New("no database configured")

// Fresh attaches every event to every profile whose name its title mentions.
// Profiles with a non-empty name get an initialised timeline. Events are appended with tags and
// are not deduplicated: running Fresh over profiles that already hold an event appends it again.
func Fresh(companies []domain.Company, events []domain.RawEvent) (domain.MergeSummary, error) {
	summary := domain.MergeSummary{Profiles: len(companies), Events: len(events)}
	if companies == nil {
		return summary, fmt.Errorf("company list: %w", ErrMissingInput)
	}
	if events == nil {
		return summary, fmt.Errorf("event list: %w", ErrMissingInput)
	}

	byName := make(map[string][]int)
	var names []string
	for idx := range companies {
		name := companies[idx].TrimmedName()
		if name == "" {
			continue
		}
		if _, ok := byName[name]; !ok {
			names = append(names, name)
		}
		byName[name] = append(byName[name], idx)
		companies[idx].EnsureTimeline()
	}

	m := matcher.New(names)
	for _, ev := range events {
		title := ev.MatchTitle()
		if title == "" {
			summary.SkippedEvents++
			continue
		}
		matches := m.Match(title)
		if len(matches) == 0 {
			summary.SkippedEvents++
			continue
		}

		summary.MatchedEvents++
		record := ev.NormalizeWithTags()
		for _, name := range matches {
			for _, idx := range byName[name] {
				companies[idx].Timeline = append(companies[idx].Timeline, record)
				summary.AttachedEvents++
			}
		}
	}
	return summary, nil
}

// Incremental upserts a batch of events into already merged profiles and re-sorts every
// timeline newest first. A new id is appended; an existing id is overwritten in place.
func Incremental(companies []domain.Company, events []domain.RawEvent, mode domain.SortMode) (domain.MergeSummary, error) {
	summary := domain.MergeSummary{Profiles: len(companies), Events: len(events)}
	if companies == nil {
		return summary, fmt.Errorf("company list: %w", ErrMissingInput)
	}

	seen := make(map[string]struct{})
	var names []string
	for _, c := range companies {
		name := c.TrimmedName()
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	m := matcher.New(names)
	for _, ev := range events {
		title := ev.MatchTitle()
		if title == "" {
			summary.SkippedEvents++
			continue
		}
		matches := m.Match(title)
		if len(matches) == 0 {
			summary.SkippedEvents++
			continue
		}

		summary.MatchedEvents++
		record := ev.Normalize()
		matched := make(map[string]struct{}, len(matches))
		for _, name := range matches {
			matched[name] = struct{}{}
		}

		for idx := range companies {
			if _, ok := matched[companies[idx].TrimmedName()]; !ok {
				continue
			}
			if upsert(&companies[idx], record) {
				summary.AddedEvents++
			} else {
				summary.UpdatedEvents++
			}
			summary.AttachedEvents++
		}
	}

	for idx := range companies {
		if companies[idx].HasTimeline() {
			domain.SortTimelineDesc(companies[idx].Timeline, mode)
		}
	}
	return summary, nil
}

// upsert reports true when the record was appended and false when it replaced existing entries.
func upsert(c *domain.Company, record domain.TimelineEvent) bool {
	if c.EventIndex(record.ID) < 0 {
		c.EnsureTimeline()
		c.Timeline = append(c.Timeline, record)
		return true
	}
	for i := range c.Timeline {
		if c.Timeline[i].MatchesID(record.ID) {
			c.Timeline[i] = record
		}
	}
	return false
}
