package autocomplete

import (
	"github.com/hearth-chat/hearth/internal/markup"
)

// State is the popup state machine. The zero value is closed.
type State struct {
	kind  Kind
	start int // rune offset of the trigger
	query string
	items []Suggestion
	index int // -1 when nothing is selected

	dismissed     bool
	dismissedAt   int
	dismissedText string
}

// Active reports whether the popup is open
func (s *State) Active() bool { return s.kind != KindNone && len(s.items) > 0 }

// Items returns the current suggestions
func (s *State) Items() []Suggestion { return s.items }

// Selected returns the selected index, or -1
func (s *State) Selected() int {
	if !s.Active() {
		return -1
	}
	return s.index
}

// Kind returns the kind of token being completed
func (s *State) Kind() Kind { return s.kind }

// Query returns the text typed after the trigger
func (s *State) Query() string { return s.query }

// Close hides the popup
func (s *State) Close() {
	s.kind = KindNone
	s.items = nil
	s.index = -1
}

// Refresh recomputes the popup for the input value and cursor. Selection
// is kept when the token did not change.
func (s *State) Refresh(value string, cursor int, dir markup.Lookup) {
	kind, start, query := FindToken(value, cursor)
	if kind == KindNone {
		s.dismissed = false
		s.Close()
		return
	}
	if s.dismissed && start == s.dismissedAt && query == s.dismissedText {
		s.Close()
		return
	}
	s.dismissed = false

	if s.Active() && kind == s.kind && start == s.start && query == s.query {
		return
	}
	s.kind = kind
	s.start = start
	s.query = query
	s.items = Build(kind, query, dir)
	s.index = -1
}

// Merge adds suggestions found remotely for query, skipping duplicates.
// Results for any other query are stale and ignored.
func (s *State) Merge(query string, remote []Suggestion) {
	if s.kind != KindMention || query != s.query {
		return
	}
	seen := make(map[string]bool, len(s.items))
	for _, it := range s.items {
		seen[it.Insert] = true
	}
	for _, it := range remote {
		if len(s.items) >= Limit {
			break
		}
		if !seen[it.Insert] {
			seen[it.Insert] = true
			s.items = append(s.items, it)
		}
	}
}

// HandleKey processes a navigation key ("up", "down", "tab", "enter",
// "esc"). It returns the possibly rewritten input and cursor, and whether
// the key was consumed. Enter without a selection is not consumed so the
// message can be sent.
func (s *State) HandleKey(key, value string, cursor int) (string, int, bool) {
	if !s.Active() {
		return value, cursor, false
	}
	n := len(s.items)

	switch key {
	case "down", "ctrl+n":
		s.index = (s.index + 1) % n
		return value, cursor, true

	case "up", "ctrl+p":
		if s.index < 0 {
			s.index = n - 1
		} else {
			s.index = (s.index - 1 + n) % n
		}
		return value, cursor, true

	case "tab":
		if s.index < 0 {
			s.index = 0
		}
		value, cursor = s.accept(value, cursor)
		return value, cursor, true

	case "enter":
		if s.index < 0 {
			return value, cursor, false
		}
		value, cursor = s.accept(value, cursor)
		return value, cursor, true

	case "esc":
		s.dismissed = true
		s.dismissedAt = s.start
		s.dismissedText = s.query
		s.Close()
		return value, cursor, true
	}
	return value, cursor, false
}

// accept replaces the token with the selected suggestion's insert text
// and returns the new value and cursor (rune offsets).
func (s *State) accept(value string, cursor int) (string, int) {
	item := s.items[s.index]
	runes := []rune(value)
	cursor = max(s.start, min(cursor, len(runes)))

	insert := []rune(item.Insert)
	out := make([]rune, 0, len(runes)+len(insert))
	out = append(out, runes[:s.start]...)
	out = append(out, insert...)
	out = append(out, runes[cursor:]...)

	s.Close()
	return string(out), s.start + len(insert)
}
