package models

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus represents the online status of a user
type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusIdle    UserStatus = "idle"
	StatusDND     UserStatus = "dnd" // Do Not Disturb
	StatusOffline UserStatus = "offline"
)

// User represents a hearth user
type User struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name,omitempty"`
	Status      UserStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	IsBot       bool       `json:"is_bot"`
}

// NewUser creates a new user with a generated UUID
func NewUser(username, displayName string) *User {
	return &User{
		ID:          uuid.New(),
		Username:    username,
		DisplayName: displayName,
		Status:      StatusOffline,
		CreatedAt:   time.Now(),
	}
}

// GetDisplayName returns the display name if set, otherwise the username
func (u *User) GetDisplayName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// ServerMember represents a user's membership in a server
type ServerMember struct {
	UserID   uuid.UUID   `json:"user_id"`
	ServerID uuid.UUID   `json:"server_id"`
	Nickname string      `json:"nickname,omitempty"`
	RoleIDs  []uuid.UUID `json:"role_ids"`
	JoinedAt time.Time   `json:"joined_at"`
}
