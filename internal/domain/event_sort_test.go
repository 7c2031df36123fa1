package domain

import "testing"

func ids(events []TimelineEvent) []int64 {
	out := make([]int64, len(events))
	for i, ev := range events {
		out[i] = ev.ID
	}
	return out
}

func TestSortTimelineDescIsStable(t *testing.T) {
	events := []TimelineEvent{
		{ID: 1, CreatedAt: "2026-01-01T00:00:00Z"},
		{ID: 2, CreatedAt: "2026-01-03T00:00:00Z"},
		{ID: 3, CreatedAt: "2026-01-01T00:00:00Z"},
		{ID: 4, CreatedAt: ""},
	}
	SortTimelineDesc(events, SortModeLexical)

	got := ids(events)
	want := []int64{2, 1, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if !IsSortedDesc(events, SortModeLexical) {
		t.Fatalf("expected sorted timeline")
	}
}

func TestParsedModeHandlesMixedPrecision(t *testing.T) {
	// lexically "10:00:00Z" sorts after "10:00:00.5Z" even though it is earlier
	events := []TimelineEvent{
		{ID: 1, CreatedAt: "2026-01-01T10:00:00Z"},
		{ID: 2, CreatedAt: "2026-01-01T10:00:00.5Z"},
	}

	lexical := append([]TimelineEvent(nil), events...)
	SortTimelineDesc(lexical, SortModeLexical)
	if lexical[0].ID != 1 {
		t.Fatalf("expected lexical order to put id 1 first, got %v", ids(lexical))
	}

	SortTimelineDesc(events, SortModeParsed)
	if events[0].ID != 2 {
		t.Fatalf("expected parsed order to put id 2 first, got %v", ids(events))
	}
}

func TestParseSortMode(t *testing.T) {
	if mode, err := ParseSortMode(""); err != nil || mode != SortModeLexical {
		t.Fatalf("expected lexical default, got %q %v", mode, err)
	}
	if mode, err := ParseSortMode(" Parsed "); err != nil || mode != SortModeParsed {
		t.Fatalf("expected parsed, got %q %v", mode, err)
	}
	if _, err := ParseSortMode("random"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
