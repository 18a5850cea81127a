package markup

import (
	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/models"
)

// Fallback labels for mentions whose id is not in the lookup.
const (
	UnknownUser    = "Unknown User"
	UnknownRole    = "Unknown Role"
	UnknownChannel = "channel"
)

// UserInfo is the display data for a user mention
type UserInfo struct {
	Username    string
	DisplayName string
}

// RoleInfo is the display data for a role mention. Color is a packed RGB
// integer; zero means the role has no color.
type RoleInfo struct {
	Name  string
	Color int
}

// Lookup holds the caller-owned tables used to resolve mention ids. Any of
// the maps may be nil.
type Lookup struct {
	Users    map[uuid.UUID]UserInfo
	Roles    map[uuid.UUID]RoleInfo
	Channels map[uuid.UUID]string
}

// Options controls a single render
type Options struct {
	Lookup        Lookup
	CurrentUserID uuid.UUID
	// Inline disables blockquotes and keeps newlines as text, for previews
	// and other single-line contexts.
	Inline bool
}

// UserName resolves a user id to DisplayName, then Username, then the
// fallback label.
func (l Lookup) UserName(id uuid.UUID) string {
	if u, ok := l.Users[id]; ok {
		if u.DisplayName != "" {
			return u.DisplayName
		}
		if u.Username != "" {
			return u.Username
		}
	}
	return UnknownUser
}

// Role resolves a role id to its name and "#RRGGBB" color ("" when unset).
func (l Lookup) Role(id uuid.UUID) (name, color string) {
	r, ok := l.Roles[id]
	if !ok {
		return UnknownRole, ""
	}
	name = r.Name
	if name == "" {
		name = UnknownRole
	}
	return name, models.ColorHex(r.Color)
}

// ChannelName resolves a channel id, falling back to a generic label.
func (l Lookup) ChannelName(id uuid.UUID) string {
	if name, ok := l.Channels[id]; ok && name != "" {
		return name
	}
	return UnknownChannel
}
