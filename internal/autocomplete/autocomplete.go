// Package autocomplete implements the @mention and #channel suggestion
// popup of the message input.
package autocomplete

import (
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/markup"
)

// Limit is the maximum number of suggestions shown at once
const Limit = 8

// Kind identifies what the token under the cursor completes to
type Kind int

const (
	KindNone Kind = iota
	KindMention
	KindChannel
)

// Suggestion is one entry of the popup
type Suggestion struct {
	Display string // "@alex", "#general"
	Detail  string // secondary text, e.g. the display name or "role"
	Insert  string // wire token written into the input
}

// UserSuggestion builds the suggestion for a user
func UserSuggestion(id uuid.UUID, username, displayName string) Suggestion {
	s := Suggestion{Display: "@" + username, Insert: "<@" + id.String() + "> "}
	if displayName != "" && displayName != username {
		s.Detail = displayName
	}
	return s
}

// RoleSuggestion builds the suggestion for a role
func RoleSuggestion(id uuid.UUID, name string) Suggestion {
	return Suggestion{Display: "@" + name, Detail: "role", Insert: "<@&" + id.String() + "> "}
}

// ChannelSuggestion builds the suggestion for a channel
func ChannelSuggestion(id uuid.UUID, name string) Suggestion {
	return Suggestion{Display: "#" + name, Insert: "<#" + id.String() + "> "}
}

var specials = []Suggestion{
	{Display: "@everyone", Detail: "notify everyone", Insert: "@everyone "},
	{Display: "@here", Detail: "notify online members", Insert: "@here "},
}

// FindToken locates an @ or # token that ends at cursor (a rune offset).
// The trigger must start the input or follow whitespace, and the query
// between trigger and cursor may not contain whitespace.
func FindToken(value string, cursor int) (Kind, int, string) {
	runes := []rune(value)
	cursor = max(0, min(cursor, len(runes)))

	for i := cursor - 1; i >= 0; i-- {
		r := runes[i]
		if unicode.IsSpace(r) {
			return KindNone, 0, ""
		}
		if r != '@' && r != '#' {
			continue
		}
		if i > 0 && !unicode.IsSpace(runes[i-1]) {
			return KindNone, 0, ""
		}
		query := string(runes[i+1 : cursor])
		if r == '@' {
			return KindMention, i, query
		}
		return KindChannel, i, query
	}
	return KindNone, 0, ""
}

// Build returns the local suggestions for a token, users first, then roles,
// then @everyone and @here. Matching is a case-insensitive prefix match.
func Build(kind Kind, query string, dir markup.Lookup) []Suggestion {
	q := strings.ToLower(query)
	matches := func(names ...string) bool {
		for _, n := range names {
			if n != "" && strings.HasPrefix(strings.ToLower(n), q) {
				return true
			}
		}
		return false
	}

	var out []Suggestion
	switch kind {
	case KindMention:
		var users, roles []Suggestion
		for id, u := range dir.Users {
			if matches(u.Username, u.DisplayName) {
				users = append(users, UserSuggestion(id, u.Username, u.DisplayName))
			}
		}
		for id, r := range dir.Roles {
			if matches(r.Name) {
				roles = append(roles, RoleSuggestion(id, r.Name))
			}
		}
		sortByDisplay(users)
		sortByDisplay(roles)
		out = append(append(users, roles...), filter(specials, q)...)

	case KindChannel:
		for id, name := range dir.Channels {
			if matches(name) {
				out = append(out, ChannelSuggestion(id, name))
			}
		}
		sortByDisplay(out)
	}

	if len(out) > Limit {
		out = out[:Limit]
	}
	return out
}

func filter(items []Suggestion, q string) []Suggestion {
	var out []Suggestion
	for _, s := range items {
		if strings.HasPrefix(strings.TrimPrefix(s.Display, "@"), q) {
			out = append(out, s)
		}
	}
	return out
}

func sortByDisplay(items []Suggestion) {
	sort.Slice(items, func(i, j int) bool {
		return strings.ToLower(items[i].Display) < strings.ToLower(items[j].Display)
	})
}
