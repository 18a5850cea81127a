package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a server role
type Role struct {
	ID            uuid.UUID `json:"id"`
	ServerID      uuid.UUID `json:"server_id"`
	Name          string    `json:"name"`
	Color         int       `json:"color"`    // RGB color as integer
	Position      int       `json:"position"` // Higher = more important
	IsMentionable bool      `json:"is_mentionable"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewRole creates a new mentionable role without a color
func NewRole(serverID uuid.UUID, name string) *Role {
	return &Role{
		ID:            uuid.New(),
		ServerID:      serverID,
		Name:          name,
		IsMentionable: true,
		CreatedAt:     time.Now(),
	}
}

// ColorHex converts a packed RGB integer to "#RRGGBB". Zero means no color.
func ColorHex(color int) string {
	if color <= 0 {
		return ""
	}
	return "#" + intToHex(color)
}

// intToHex converts an integer to a 6-digit hex color
func intToHex(n int) string {
	const hexChars = "0123456789ABCDEF"
	result := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		result[i] = hexChars[n&0xF]
		n >>= 4
	}
	return string(result)
}
