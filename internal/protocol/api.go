package protocol

import (
	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/markup"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/reorder"
)

// REST request and response bodies for /api.

// PatchChannelRequest is the body of PATCH /api/channels/{id}. Absent fields
// are unchanged.
type PatchChannelRequest struct {
	Position *int       `json:"position,omitempty"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

// ReorderRequest is the body of PATCH /api/servers/{id}/channels. All
// updates are applied atomically.
type ReorderRequest struct {
	Updates []reorder.Update `json:"updates"`
}

// ChannelsResponse lists the channels of a server
type ChannelsResponse struct {
	ServerID uuid.UUID         `json:"server_id"`
	Channels []*models.Channel `json:"channels"`
}

// MemberResponse is a server member as shown in the member list and in
// mention suggestions
type MemberResponse struct {
	ID          uuid.UUID   `json:"id"`
	Username    string      `json:"username"`
	DisplayName string      `json:"display_name,omitempty"`
	Status      string      `json:"status"`
	RoleIDs     []uuid.UUID `json:"role_ids,omitempty"`
}

// MembersResponse lists server members, possibly filtered by a query
type MembersResponse struct {
	Query   string           `json:"query,omitempty"`
	Members []MemberResponse `json:"members"`
}

// RolesResponse lists the roles of a server
type RolesResponse struct {
	Roles []*models.Role `json:"roles"`
}

// MessagesResponse lists messages of a channel, oldest first
type MessagesResponse struct {
	Messages []*models.Message `json:"messages"`
}

// SendMessageRequest is the body of POST /api/channels/{id}/messages
type SendMessageRequest struct {
	AuthorID uuid.UUID `json:"author_id"`
	Content  string    `json:"content"`
}

// RenderRequest asks the server to render content against a server's lookups
type RenderRequest struct {
	Content       string    `json:"content"`
	CurrentUserID uuid.UUID `json:"current_user_id,omitempty"`
	Inline        bool      `json:"inline,omitempty"`
}

// SpanResponse is the wire form of markup.Span
type SpanResponse struct {
	Kind          string    `json:"kind"`
	Text          string    `json:"text"`
	Name          string    `json:"name,omitempty"`
	Start         int       `json:"start"`
	End           int       `json:"end"`
	ID            uuid.UUID `json:"id,omitempty"`
	IsCurrentUser bool      `json:"is_current_user,omitempty"`
	Color         string    `json:"color,omitempty"`
}

// RenderResponse holds both renderings of the content
type RenderResponse struct {
	HTML  string         `json:"html"`
	Spans []SpanResponse `json:"spans"`
}

// NewSpanResponses converts spans to their wire form
func NewSpanResponses(spans []markup.Span) []SpanResponse {
	out := make([]SpanResponse, 0, len(spans))
	for _, s := range spans {
		r := SpanResponse{
			Kind:          s.Kind.String(),
			Text:          s.Text,
			Name:          s.Name,
			Start:         s.Start,
			End:           s.End,
			IsCurrentUser: s.IsCurrentUser,
			Color:         s.Color,
		}
		switch s.Kind {
		case markup.SpanUser:
			r.ID = s.UserID
		case markup.SpanRole:
			r.ID = s.RoleID
		case markup.SpanChannel:
			r.ID = s.ChannelID
		}
		out = append(out, r)
	}
	return out
}

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Clients int    `json:"clients"`
}
