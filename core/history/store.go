// Package history holds the bounded command history of the interpreter and
// the navigator used for interactive recall.
package history

import (
	"errors"
	"strings"
)

// DefaultCapacity is the number of commands kept when no size is configured.
const DefaultCapacity = 100

// ErrInvalidCapacity is returned when a store can't hold a single entry.
var ErrInvalidCapacity = errors.New("history capacity must be at least 1")

// Direction selects which way a search walks through the live entries.
type Direction int

const (
	// Up walks toward the oldest entry.
	Up Direction = iota
	// Down walks toward the newest entry.
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// Entry is a single accepted command.
type Entry struct {
	// Sequence is 1-based and never reused, even after the entry is evicted.
	Sequence uint64
	Text     string
}

// Store is a fixed-capacity window over the command stream. When the store
// is full the oldest entry is dropped to make room for the new one.
//
// Positions are relative to the live window: 0 is the oldest live entry and
// Size()-1 the newest.
type Store struct {
	items []Entry
	head  int // ring index of the oldest live entry
	count int
	next  uint64
}

// NewStore creates a store for up to capacity entries.
func NewStore(capacity int) (*Store, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	return &Store{
		items: make([]Entry, capacity),
		next:  1,
	}, nil
}

// Append records text as the newest entry. Text is trimmed first; empty text
// is ignored and doesn't consume a sequence number.
func (s *Store) Append(text string) (Entry, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Entry{}, false
	}

	entry := Entry{Sequence: s.next, Text: text}
	s.next++

	writeIdx := (s.head + s.count) % len(s.items)
	s.items[writeIdx] = entry
	if s.count == len(s.items) {
		s.head = (s.head + 1) % len(s.items)
	} else {
		s.count++
	}

	return entry, true
}

// Size returns the number of live entries.
func (s *Store) Size() int {
	return s.count
}

// Capacity returns the maximum number of live entries.
func (s *Store) Capacity() int {
	return len(s.items)
}

// LastSequence returns the sequence number of the most recent command, or 0
// if nothing was appended yet.
func (s *Store) LastSequence() uint64 {
	return s.next - 1
}

// FirstSequence returns the sequence number of the oldest live entry, or 0 if
// the store is empty.
func (s *Store) FirstSequence() uint64 {
	if s.count == 0 {
		return 0
	}
	return s.items[s.head].Sequence
}

// At returns the entry at live position i.
func (s *Store) At(i int) (Entry, bool) {
	if i < 0 || i >= s.count {
		return Entry{}, false
	}
	return s.items[(s.head+i)%len(s.items)], true
}

// SequenceAt translates a live position into a sequence number.
func (s *Store) SequenceAt(i int) (uint64, bool) {
	entry, ok := s.At(i)
	return entry.Sequence, ok
}

// LookupSequence finds the live entry with sequence number n.
func (s *Store) LookupSequence(n uint64) (Entry, bool) {
	// Sequence numbers are contiguous inside the window, so the position
	// can be computed directly.
	first := s.FirstSequence()
	if s.count == 0 || n < first || n > s.LastSequence() {
		return Entry{}, false
	}
	return s.At(int(n - first))
}

// LookupPrefix returns the most recent entry starting with prefix.
func (s *Store) LookupPrefix(prefix string) (Entry, bool) {
	_, entry, ok := s.LookupPrefixFrom(prefix, s.count-1, Up)
	return entry, ok
}

// LookupPrefixFrom scans from live position start (inclusive) in direction
// dir and returns the position and entry of the first match.
func (s *Store) LookupPrefixFrom(prefix string, start int, dir Direction) (int, Entry, bool) {
	step := 1
	if dir == Up {
		step = -1
	}

	for i := start; i >= 0 && i < s.count; i += step {
		entry, _ := s.At(i)
		if strings.HasPrefix(entry.Text, prefix) {
			return i, entry, true
		}
	}
	return -1, Entry{}, false
}

// Entries returns a snapshot of the live entries, oldest first.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, s.count)
	for i := 0; i < s.count; i++ {
		entry, _ := s.At(i)
		out = append(out, entry)
	}
	return out
}

// Clear drops all live entries. The sequence counter keeps counting so
// numbers are never handed out twice.
func (s *Store) Clear() {
	for i := range s.items {
		s.items[i] = Entry{}
	}
	s.head = 0
	s.count = 0
}
