// Package change renders field-level before/after pairs into audit messages.
package change

import "strings"

// Entry is one field's transition within a single mutation.
type Entry struct {
	Property string `json:"property"`
	Old      string `json:"old"`
	New      string `json:"new"`
}

func (e Entry) String() string {
	return "'" + e.Property + "' changed from '" + e.Old + "' to '" + e.New + "'"
}

// Message appends the rendered entries to base. base is returned unchanged when entries is empty.
func Message(base string, entries []Entry) string {
	if len(entries) == 0 {
		return base
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.String()
	}
	return base + " " + strings.Join(parts, ", ")
}

// Set collects entries for one mutation.
type Set struct {
	entries []Entry
}

// Track records a change when old and new differ. It reports whether an entry was added.
func (s *Set) Track(property, old, new string) bool {
	if old == new {
		return false
	}
	s.entries = append(s.entries, Entry{Property: property, Old: old, New: new})
	return true
}

// Entries returns the collected entries in the order they were tracked.
func (s *Set) Entries() []Entry { return s.entries }

// Empty reports whether nothing changed.
func (s *Set) Empty() bool { return len(s.entries) == 0 }

// Message renders base plus the collected entries.
func (s *Set) Message(base string) string { return Message(base, s.entries) }
