package models

import (
	"time"

	"github.com/google/uuid"
)

// ChannelType represents the type of channel
type ChannelType int

const (
	ChannelTypeText     ChannelType = iota // Text chat channel
	ChannelTypeVoice                       // Voice channel
	ChannelTypeCategory                    // Channel category/folder
	ChannelTypeDM                          // Direct message
	ChannelTypeGroupDM                     // Group direct message
)

// String returns the lowercase name used in logs and the TUI.
func (t ChannelType) String() string {
	switch t {
	case ChannelTypeText:
		return "text"
	case ChannelTypeVoice:
		return "voice"
	case ChannelTypeCategory:
		return "category"
	case ChannelTypeDM:
		return "dm"
	case ChannelTypeGroupDM:
		return "group_dm"
	default:
		return "unknown"
	}
}

// Channel represents a communication channel within a server
type Channel struct {
	ID        uuid.UUID   `json:"id"`
	ServerID  uuid.UUID   `json:"server_id,omitempty"` // Empty for DMs
	Name      string      `json:"name"`
	Topic     string      `json:"topic,omitempty"`
	Type      ChannelType `json:"type"`
	Position  int         `json:"position"`
	ParentID  uuid.UUID   `json:"parent_id"` // uuid.Nil for top-level entries
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func newChannel(serverID uuid.UUID, name string, t ChannelType) *Channel {
	now := time.Now()
	return &Channel{
		ID:        uuid.New(),
		ServerID:  serverID,
		Name:      name,
		Type:      t,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTextChannel creates a new text channel
func NewTextChannel(serverID uuid.UUID, name string) *Channel {
	return newChannel(serverID, name, ChannelTypeText)
}

// NewVoiceChannel creates a new voice channel
func NewVoiceChannel(serverID uuid.UUID, name string) *Channel {
	return newChannel(serverID, name, ChannelTypeVoice)
}

// NewCategory creates a new channel category
func NewCategory(serverID uuid.UUID, name string) *Channel {
	return newChannel(serverID, name, ChannelTypeCategory)
}

// IsCategory returns true for grouping containers that hold no messages
func (c *Channel) IsCategory() bool {
	return c.Type == ChannelTypeCategory
}

// IsTextBased returns true if the channel supports text messages
func (c *Channel) IsTextBased() bool {
	return c.Type == ChannelTypeText || c.Type == ChannelTypeDM || c.Type == ChannelTypeGroupDM
}

// IsVoiceBased returns true if the channel supports voice
func (c *Channel) IsVoiceBased() bool {
	return c.Type == ChannelTypeVoice
}

// HasParent reports whether the channel sits inside a category
func (c *Channel) HasParent() bool {
	return c.ParentID != uuid.Nil
}

// SetParent moves the channel under categoryID (uuid.Nil for top level)
func (c *Channel) SetParent(categoryID uuid.UUID) {
	c.ParentID = categoryID
	c.UpdatedAt = time.Now()
}

// SetPosition sets the channel's sort position within its parent
func (c *Channel) SetPosition(position int) {
	c.Position = position
	c.UpdatedAt = time.Now()
}
