package domain

import (
	"fmt"
	"strings"
)

// RawEvent is a timeline announcement as exported by the placement portal.
// Only the fields the merge reads are modelled; anything else in the payload is ignored.
type RawEvent struct {
	ID          int64  `json:"ID" yaml:"ID"`
	CreatedAt   string `json:"CreatedAt" yaml:"CreatedAt"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Tags        string `json:"tags" yaml:"tags"`
}

// MatchTitle is the title used for company matching. Blank titles are never matched.
func (e RawEvent) MatchTitle() string {
	return strings.TrimSpace(e.Title)
}

// TimelineEvent is the normalized event attached to a company profile, keyed by ID.
//
// Events decoded from a merged dataset keep the document they were read from and are
// written back from it unchanged; their typed fields are a read-only view. Events built
// by Normalize are written from the typed fields.
type TimelineEvent struct {
	Title       string
	Description string
	CreatedAt   string
	ID          int64
	Tags        *string

	doc     *document
	idUnset bool
}

// NormalizeWithTags builds the record written by a fresh merge.
func (e RawEvent) NormalizeWithTags() TimelineEvent {
	ev := e.Normalize()
	tags := e.Tags
	ev.Tags = &tags
	return ev
}

// Normalize builds the record written by an incremental update (no tags).
func (e RawEvent) Normalize() TimelineEvent {
	return TimelineEvent{
		Title:       e.Title,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		ID:          e.ID,
	}
}

// HasID reports whether the event carries a numeric id.
func (e TimelineEvent) HasID() bool {
	return !e.idUnset
}

// MatchesID reports whether the event carries id. Events with a null, missing or
// non-numeric id match nothing.
func (e TimelineEvent) MatchesID(id int64) bool {
	return !e.idUnset && e.ID == id
}

// TagList splits the comma separated tags of an event.
func (e TimelineEvent) TagList() []string {
	if e.Tags == nil {
		return nil
	}
	var out []string
	for _, t := range strings.Split(*e.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (e TimelineEvent) clone() TimelineEvent {
	if e.Tags != nil {
		tags := *e.Tags
		e.Tags = &tags
	}
	e.doc = cloneDocument(e.doc)
	return e
}

// UnmarshalJSON keeps the whole event document and reads the typed view leniently:
// values of the wrong type read as their zero value.
func (e *TimelineEvent) UnmarshalJSON(data []byte) error {
	doc, err := decodeDocument(data)
	if err != nil {
		return fmt.Errorf("timeline event: %w", err)
	}

	out := TimelineEvent{doc: doc}
	out.Title, _ = documentString(doc, "title")
	out.Description, _ = documentString(doc, "description")
	out.CreatedAt, _ = documentString(doc, "created_at")

	id, ok := documentInt(doc, "id")
	out.ID = id
	out.idUnset = !ok

	if tags, ok := documentString(doc, "tags"); ok {
		out.Tags = &tags
	}

	*e = out
	return nil
}

type eventField struct {
	key   string
	value any
}

// MarshalJSON writes title, description, created_at, id and, when set, tags.
func (e TimelineEvent) MarshalJSON() ([]byte, error) {
	if e.doc != nil {
		return encodeDocument(e.doc)
	}

	doc := newDocument()
	fields := []eventField{
		{"title", e.Title},
		{"description", e.Description},
		{"created_at", e.CreatedAt},
		{"id", e.ID},
	}
	if e.Tags != nil {
		fields = append(fields, eventField{"tags", *e.Tags})
	}
	for _, f := range fields {
		raw, err := marshalNoEscape(f.value)
		if err != nil {
			return nil, err
		}
		doc.Set(f.key, raw)
	}
	return encodeDocument(doc)
}
