// Package matcher finds which known company names an event title refers to.
package matcher

import (
	"regexp"
	"sort"
	"strings"
)

// wordClass mirrors a Unicode-aware \w: letters, digits and underscore.
const wordClass = `\p{L}\p{N}_`

// Matcher holds one compiled pattern per candidate company name.
type Matcher struct {
	names    []string
	patterns map[string]*regexp.Regexp
}

// New compiles patterns for the distinct, trimmed, non-empty names.
// Candidates are kept longest first; the substring filter in Match does not depend on it.
func New(names []string) *Matcher {
	m := &Matcher{patterns: make(map[string]*regexp.Regexp, len(names))}
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, ok := m.patterns[name]; ok {
			continue
		}
		m.patterns[name] = compile(name)
		m.names = append(m.names, name)
	}
	sort.SliceStable(m.names, func(i, j int) bool {
		return len(m.names[i]) > len(m.names[j])
	})
	return m
}

// Match returns the names genuinely referenced in title, after dropping any mention
// that is a case-insensitive substring of another, different mention.
func Match(title string, names []string) []string {
	return New(names).Match(title)
}

// Match returns the candidates mentioned in title. An empty result means no company reference.
func (m *Matcher) Match(title string) []string {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	var mentions []string
	for _, name := range m.names {
		if m.patterns[name].MatchString(title) {
			mentions = append(mentions, name)
		}
	}
	return dropSubMentions(mentions)
}

func compile(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^` + wordClass + `])` + regexp.QuoteMeta(name) + `(?:$|[^` + wordClass + `])`)
}

// dropSubMentions keeps "Google Cloud" and drops "Google" when both were found.
// Two mentions that differ only in case contain each other and are both dropped.
func dropSubMentions(mentions []string) []string {
	if len(mentions) == 0 {
		return nil
	}
	lowered := make([]string, len(mentions))
	for i, m := range mentions {
		lowered[i] = strings.ToLower(m)
	}

	var out []string
	for i, m := range mentions {
		contained := false
		for j, other := range mentions {
			if i != j && m != other && strings.Contains(lowered[j], lowered[i]) {
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, m)
		}
	}
	return out
}
