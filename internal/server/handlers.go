package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/errs"
	"github.com/hearth-chat/hearth/internal/logging"
	"github.com/hearth-chat/hearth/internal/markup"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/hearth-chat/hearth/internal/reorder"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// MaxMessageLength is the longest accepted message content in runes
	MaxMessageLength = 4000

	defaultMessageLimit = 50
	maxMessageLimit     = 100
	defaultMemberLimit  = 25
	maxMemberLimit      = 100
)

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(s.accessLog)
	r.Use(s.recoverPanic)

	r.Get("/ws", s.handleWebSocket)
	r.Handle("/metrics", s.metrics.handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/servers", s.handleListServers)

		r.Route("/servers/{serverID}", func(r chi.Router) {
			r.Get("/channels", s.handleListChannels)
			r.With(s.requireToken).Patch("/channels", s.handleReorderChannels)
			r.Get("/members", s.handleListMembers)
			r.Get("/roles", s.handleListRoles)
			r.Post("/render", s.handleRender)
		})

		r.Route("/channels/{channelID}", func(r chi.Router) {
			r.With(s.requireToken).Patch("/", s.handlePatchChannel)
			r.Get("/messages", s.handleListMessages)
			r.With(s.requireToken).Post("/messages", s.handleCreateMessage)
		})
	})

	return r
}

func pathID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, goerr.Wrap(err, "invalid id in path", goerr.V(key, raw), goerr.T(errs.TagValidation))
	}
	return id, nil
}

func queryLimit(r *http.Request, def, upper int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, goerr.New("limit must be a positive integer", goerr.V("limit", raw), goerr.T(errs.TagValidation))
	}
	return min(n, upper), nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(err, "invalid request body", goerr.T(errs.TagValidation))
	}
	return nil
}

// handleWebSocket upgrades the request to a gateway connection
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.From(r.Context()).Warn("websocket upgrade failed", logging.ErrAttr(err))
		return
	}

	client := NewClient(conn, s)
	client.SendHello()

	// The connection outlives the request
	ctx := context.WithoutCancel(r.Context())
	go client.WritePump(ctx)
	go client.ReadPump(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.HealthResponse{
		Status:  "ok",
		Version: Version,
		Clients: s.hub.ClientCount(),
	})
}

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	servers, err := s.db.ListServers(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	if servers == nil {
		servers = []*models.Server{}
	}
	writeJSON(w, http.StatusOK, servers)
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	serverID, err := pathID(r, "serverID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if _, err := s.db.GetServerByID(r.Context(), serverID); err != nil {
		handleError(w, r, err)
		return
	}

	channels, err := s.db.GetServerChannels(r.Context(), serverID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.ChannelsResponse{ServerID: serverID, Channels: nonNil(channels)})
}

// handleReorderChannels applies a whole reorder atomically and broadcasts
// the resulting channel list
func (s *Server) handleReorderChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	serverID, err := pathID(r, "serverID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req protocol.ReorderRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if len(req.Updates) == 0 {
		handleError(w, r, goerr.New("no updates given", goerr.T(errs.TagValidation)))
		return
	}

	channels, err := s.db.ApplyChannelUpdates(ctx, serverID, req.Updates)
	if err != nil {
		s.metrics.reorderFailures.Inc()
		handleError(w, r, err)
		return
	}
	s.metrics.reorderUpdates.Add(float64(len(req.Updates)))

	s.broadcastChannels(r, serverID, channels)
	writeJSON(w, http.StatusOK, protocol.ChannelsResponse{ServerID: serverID, Channels: nonNil(channels)})
}

func (s *Server) handlePatchChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channelID, err := pathID(r, "channelID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req protocol.PatchChannelRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	ch, err := s.db.PatchChannel(ctx, reorder.Update{
		ChannelID: channelID,
		Position:  req.Position,
		ParentID:  req.ParentID,
	})
	if err != nil {
		s.metrics.reorderFailures.Inc()
		handleError(w, r, err)
		return
	}
	s.metrics.reorderUpdates.Inc()

	channels, err := s.db.GetServerChannels(ctx, ch.ServerID)
	if err != nil {
		errs.Handle(ctx, err)
	} else {
		s.broadcastChannels(r, ch.ServerID, channels)
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) broadcastChannels(r *http.Request, serverID uuid.UUID, channels []*models.Channel) {
	err := s.hub.BroadcastToServer(r.Context(), serverID, protocol.EventChannelUpdate, &protocol.ChannelUpdatePayload{
		ServerID: serverID,
		Channels: nonNil(channels),
	})
	if err != nil {
		errs.Handle(r.Context(), err)
	}
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	serverID, err := pathID(r, "serverID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	limit, err := queryLimit(r, defaultMemberLimit, maxMemberLimit)
	if err != nil {
		handleError(w, r, err)
		return
	}

	query := r.URL.Query().Get("q")
	members, err := s.db.SearchMembers(r.Context(), serverID, query, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := protocol.MembersResponse{Query: query, Members: []protocol.MemberResponse{}}
	for _, m := range members {
		resp.Members = append(resp.Members, protocol.MemberResponse{
			ID:          m.User.ID,
			Username:    m.User.Username,
			DisplayName: m.Name(),
			Status:      string(m.User.Status),
			RoleIDs:     m.RoleIDs,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	serverID, err := pathID(r, "serverID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	roles, err := s.db.GetServerRoles(r.Context(), serverID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if roles == nil {
		roles = []*models.Role{}
	}
	writeJSON(w, http.StatusOK, protocol.RolesResponse{Roles: roles})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	limit, err := queryLimit(r, defaultMessageLimit, maxMessageLimit)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var before *uuid.UUID
	if raw := r.URL.Query().Get("before"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handleError(w, r, goerr.Wrap(err, "invalid before id", goerr.V("before", raw), goerr.T(errs.TagValidation)))
			return
		}
		before = &id
	}

	if _, err := s.db.GetChannelByID(r.Context(), channelID); err != nil {
		handleError(w, r, err)
		return
	}
	messages, err := s.db.GetChannelMessages(r.Context(), channelID, limit, before)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	writeJSON(w, http.StatusOK, protocol.MessagesResponse{Messages: messages})
}

// handleCreateMessage stores a message with the mentions found in its
// content and dispatches it to the channel's server
func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channelID, err := pathID(r, "channelID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req protocol.SendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if err := validateContent(req.Content); err != nil {
		handleError(w, r, err)
		return
	}

	channel, err := s.db.GetChannelByID(ctx, channelID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !channel.IsTextBased() {
		handleError(w, r, goerr.New("channel does not accept messages",
			goerr.V("channel_id", channelID), goerr.V("type", channel.Type.String()), goerr.T(errs.TagValidation)))
		return
	}
	author, err := s.db.GetUserByID(ctx, req.AuthorID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	msg := models.NewMessage(channelID, author.ID, req.Content)
	msg.SetMentions(markup.Mentions(req.Content))
	if err := s.db.CreateMessage(ctx, msg); err != nil {
		handleError(w, r, err)
		return
	}
	s.metrics.messages.Inc()

	err = s.hub.BroadcastToServer(ctx, channel.ServerID, protocol.EventMessageCreate, &protocol.MessageCreatePayload{
		Message:  msg,
		ServerID: channel.ServerID,
		Author:   author,
	})
	if err != nil {
		errs.Handle(ctx, err)
	}
	writeJSON(w, http.StatusCreated, msg)
}

func validateContent(content string) error {
	if content == "" {
		return goerr.New("message content is empty", goerr.T(errs.TagValidation))
	}
	if !utf8.ValidString(content) {
		return goerr.New("message content is not valid UTF-8", goerr.T(errs.TagValidation))
	}
	if n := utf8.RuneCountInString(content); n > MaxMessageLength {
		return goerr.New("message content is too long",
			goerr.V("length", n), goerr.V("max", MaxMessageLength), goerr.T(errs.TagValidation))
	}
	return nil
}

// handleRender renders content against the server's mention lookups in
// both HTML and span form
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	serverID, err := pathID(r, "serverID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req protocol.RenderRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	lookup, err := s.db.Lookup(r.Context(), serverID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	opts := markup.Options{Lookup: lookup, CurrentUserID: req.CurrentUserID, Inline: req.Inline}
	resp := protocol.RenderResponse{
		HTML:  markup.Render(req.Content, opts),
		Spans: protocol.NewSpanResponses(markup.Spans(req.Content, opts)),
	}
	s.metrics.renders.WithLabelValues("html").Inc()
	s.metrics.renders.WithLabelValues("spans").Inc()

	writeJSON(w, http.StatusOK, resp)
}

func nonNil(channels []*models.Channel) []*models.Channel {
	if channels == nil {
		return []*models.Channel{}
	}
	return channels
}
