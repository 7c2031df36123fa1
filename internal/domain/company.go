package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	companyNameKey    = "company_name"
	timelineEventsKey = "timeline_events"
)

// Company is one company profile (one role at one employer) from the placement dataset.
// Fields other than company_name and timeline_events are carried through untouched and
// keep their original order when the profile is written back out.
type Company struct {
	Name     string
	Timeline []TimelineEvent

	doc         *document
	hasTimeline bool
}

// NewCompany builds a profile with the given name and no timeline.
func NewCompany(name string) Company {
	raw, _ := marshalNoEscape(name)
	doc := newDocument()
	doc.Set(companyNameKey, raw)
	return Company{Name: name, doc: doc}
}

// TrimmedName is the join key used when matching events to profiles.
func (c Company) TrimmedName() string {
	return strings.TrimSpace(c.Name)
}

// HasTimeline reports whether the profile carries a timeline_events field.
func (c Company) HasTimeline() bool {
	return c.hasTimeline
}

// EnsureTimeline adds an empty timeline_events field at the end of the profile when absent.
func (c *Company) EnsureTimeline() {
	if c.hasTimeline {
		return
	}
	c.hasTimeline = true
	if c.Timeline == nil {
		c.Timeline = []TimelineEvent{}
	}
	if c.doc == nil {
		c.doc = newDocument()
	}
	// the value is rendered from Timeline on output
	c.doc.Set(timelineEventsKey, nil)
}

// Clone returns a deep copy that can be merged into without touching c.
func (c Company) Clone() Company {
	out := Company{Name: c.Name, hasTimeline: c.hasTimeline, doc: cloneDocument(c.doc)}
	if c.Timeline != nil {
		out.Timeline = make([]TimelineEvent, len(c.Timeline))
		for i, ev := range c.Timeline {
			out.Timeline[i] = ev.clone()
		}
	}
	return out
}

// CloneCompanies deep-copies a profile list.
func CloneCompanies(companies []Company) []Company {
	if companies == nil {
		return nil
	}
	out := make([]Company, len(companies))
	for i, c := range companies {
		out[i] = c.Clone()
	}
	return out
}

// EventIndex returns the position of the first timeline event with the given id, or -1.
func (c Company) EventIndex(id int64) int {
	for i, ev := range c.Timeline {
		if ev.MatchesID(id) {
			return i
		}
	}
	return -1
}

// Field returns the raw JSON of an arbitrary profile field.
func (c Company) Field(key string) (json.RawMessage, bool) {
	if c.doc == nil || key == timelineEventsKey {
		return nil, false
	}
	return c.doc.Get(key)
}

// FieldString returns a string field, or "" when it is absent or not a string.
func (c Company) FieldString(key string) string {
	if c.doc == nil || key == timelineEventsKey {
		return ""
	}
	s, _ := documentString(c.doc, key)
	return s
}

// FieldKeys lists the profile's keys in document order, timeline_events excluded.
func (c Company) FieldKeys() []string {
	if c.doc == nil {
		return nil
	}
	keys := make([]string, 0, c.doc.Len())
	for pair := c.doc.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key != timelineEventsKey {
			keys = append(keys, pair.Key)
		}
	}
	return keys
}

// SetField sets a raw profile field, appending it when new.
func (c *Company) SetField(key string, value any) error {
	if key == timelineEventsKey {
		return fmt.Errorf("%s is managed through the timeline", timelineEventsKey)
	}
	raw, err := marshalNoEscape(value)
	if err != nil {
		return fmt.Errorf("failed to encode field %s: %w", key, err)
	}
	if key == companyNameKey {
		s, _ := value.(string)
		c.Name = s
	}
	if c.doc == nil {
		c.doc = newDocument()
	}
	c.doc.Set(key, raw)
	return nil
}

// UnmarshalJSON decodes a profile object while remembering key order. A repeated key keeps
// its first position and its last value.
func (c *Company) UnmarshalJSON(data []byte) error {
	doc, err := decodeDocument(data)
	if err != nil {
		return fmt.Errorf("company profile: %w", err)
	}

	out := Company{doc: doc}
	out.Name, _ = documentString(doc, companyNameKey)

	if raw, ok := doc.Get(timelineEventsKey); ok {
		var events []TimelineEvent
		if err := json.Unmarshal(raw, &events); err != nil {
			return fmt.Errorf("field %s: %w", timelineEventsKey, err)
		}
		if events == nil {
			events = []TimelineEvent{}
		}
		out.Timeline = events
		out.hasTimeline = true
		doc.Set(timelineEventsKey, nil)
	}

	*c = out
	return nil
}

// MarshalJSON writes the profile back with its original key order.
func (c Company) MarshalJSON() ([]byte, error) {
	out := newDocument()
	if c.doc == nil {
		return encodeDocument(out)
	}

	for pair := c.doc.Oldest(); pair != nil; pair = pair.Next() {
		value := pair.Value
		switch pair.Key {
		case timelineEventsKey:
			events := c.Timeline
			if events == nil {
				events = []TimelineEvent{}
			}
			raw, err := marshalNoEscape(events)
			if err != nil {
				return nil, err
			}
			value = raw
		case companyNameKey:
			var current string
			if err := json.Unmarshal(value, &current); err == nil && current != c.Name {
				raw, err := marshalNoEscape(c.Name)
				if err != nil {
					return nil, err
				}
				value = raw
			}
		}
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
		out.Set(pair.Key, value)
	}
	return encodeDocument(out)
}
