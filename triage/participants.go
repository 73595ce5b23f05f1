package triage

import (
	"sort"
	"strings"
)

// ParticipantSet is the deduplicated set of identifiers involved in one bug
type ParticipantSet map[string]struct{}

// NewParticipantSet returns a set holding ids. Empty strings are skipped.
func NewParticipantSet(ids ...string) ParticipantSet {
	s := make(ParticipantSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// NormalizeIdentifier drops everything from the first '@' onward, so
// "erahm@mozilla.com" and "erahm" compare equal. Bare identifiers are unchanged.
func NormalizeIdentifier(id string) string {
	if i := strings.IndexByte(id, '@'); i >= 0 {
		return id[:i]
	}
	return id
}

// CommentorSet builds the set of normalized comment creators
func CommentorSet(creators []string) ParticipantSet {
	s := make(ParticipantSet, len(creators))
	for _, c := range creators {
		s.Add(NormalizeIdentifier(c))
	}
	return s
}

// Add inserts id; empty strings are ignored
func (s ParticipantSet) Add(id string) {
	if id != "" {
		s[id] = struct{}{}
	}
}

// Contains reports whether id is a member
func (s ParticipantSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Union returns a new set with the members of s and other
func (s ParticipantSet) Union(other ParticipantSet) ParticipantSet {
	u := make(ParticipantSet, len(s)+len(other))
	for id := range s {
		u[id] = struct{}{}
	}
	for id := range other {
		u[id] = struct{}{}
	}
	return u
}

// WithIssue returns the commentors merged with the bug's assignee and
// reporter, taken verbatim from the export.
func (s ParticipantSet) WithIssue(issue IssueRecord) ParticipantSet {
	return s.Union(NewParticipantSet(issue.Assignee, issue.Reporter))
}

// Sorted returns the members in ascending order
func (s ParticipantSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
