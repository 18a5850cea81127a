package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType represents the type of message
type MessageType int

const (
	MessageTypeDefault MessageType = iota // Regular user message
	MessageTypeSystem                     // System message (join, leave, etc.)
)

// Message represents a chat message
type Message struct {
	ID              uuid.UUID   `json:"id"`
	ChannelID       uuid.UUID   `json:"channel_id"`
	AuthorID        uuid.UUID   `json:"author_id"`
	Content         string      `json:"content"`
	Type            MessageType `json:"type"`
	CreatedAt       time.Time   `json:"created_at"`
	EditedAt        *time.Time  `json:"edited_at,omitempty"`
	Mentions        []uuid.UUID `json:"mentions,omitempty"`      // User IDs mentioned
	MentionRoles    []uuid.UUID `json:"mention_roles,omitempty"` // Role IDs mentioned
	MentionEveryone bool        `json:"mention_everyone"`
}

// NewMessage creates a new text message. Mentions are filled in by the
// caller once the content has been tokenized.
func NewMessage(channelID, authorID uuid.UUID, content string) *Message {
	return &Message{
		ID:        uuid.New(),
		ChannelID: channelID,
		AuthorID:  authorID,
		Content:   content,
		Type:      MessageTypeDefault,
		CreatedAt: time.Now(),
	}
}

// NewSystemMessage creates a new system message
func NewSystemMessage(channelID uuid.UUID, content string) *Message {
	return &Message{
		ID:        uuid.New(),
		ChannelID: channelID,
		AuthorID:  uuid.Nil, // System messages have no author
		Content:   content,
		Type:      MessageTypeSystem,
		CreatedAt: time.Now(),
	}
}

// SetMentions records the users and roles referenced by the content
func (m *Message) SetMentions(users, roles []uuid.UUID, everyone bool) {
	m.Mentions = users
	m.MentionRoles = roles
	m.MentionEveryone = everyone
}

// MentionsUser reports whether the message notifies the given user, either
// directly, through one of their roles, or via @everyone/@here.
func (m *Message) MentionsUser(userID uuid.UUID, roleIDs []uuid.UUID) bool {
	if m.MentionEveryone {
		return true
	}
	for _, id := range m.Mentions {
		if id == userID {
			return true
		}
	}
	for _, rid := range m.MentionRoles {
		for _, id := range roleIDs {
			if rid == id {
				return true
			}
		}
	}
	return false
}

// IsEdited returns true if the message has been edited
func (m *Message) IsEdited() bool {
	return m.EditedAt != nil
}

// IsSystemMessage returns true if this is a system-generated message
func (m *Message) IsSystemMessage() bool {
	return m.Type != MessageTypeDefault
}
