// Package client talks to a hearth server over the REST API and the
// websocket gateway.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/markup"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/hearth-chat/hearth/internal/reorder"
	"github.com/m-mizutani/goerr/v2"
)

// API is a REST client for a hearth server. It implements reorder.Patcher
// and reorder.BatchPatcher for one server.
type API struct {
	baseURL  *url.URL
	token    string
	serverID uuid.UUID
	http     *http.Client
}

var (
	_ reorder.Patcher      = (*API)(nil)
	_ reorder.BatchPatcher = (*API)(nil)
)

// NewAPI creates a client for the server at addr. addr may use the http,
// https, ws or wss scheme; a bare host:port means http.
func NewAPI(addr string, serverID uuid.UUID, token string) (*API, error) {
	u, err := httpURL(addr)
	if err != nil {
		return nil, err
	}
	return &API{
		baseURL:  u,
		token:    token,
		serverID: serverID,
		http:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// ServerID returns the server the client is bound to
func (a *API) ServerID() uuid.UUID {
	return a.serverID
}

// WithServer returns a copy bound to another server
func (a *API) WithServer(serverID uuid.UUID) *API {
	c := *a
	c.serverID = serverID
	return &c
}

func httpURL(addr string) (*url.URL, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid server address", goerr.V("addr", addr))
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return nil, goerr.New("unsupported server address scheme", goerr.V("addr", addr))
	}
	if u.Host == "" {
		return nil, goerr.New("server address has no host", goerr.V("addr", addr))
	}
	u.Path = ""
	u.RawQuery = ""
	return u, nil
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Code)
	}
	return strconv.Itoa(e.Code) + ": " + e.Message
}

func (a *API) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *a.baseURL
	u.Path = path
	u.RawQuery = query.Encode()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return goerr.Wrap(err, "failed to encode request body", goerr.V("path", path))
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return goerr.Wrap(err, "failed to create request", goerr.V("path", path))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return goerr.Wrap(err, "request failed", goerr.V("method", method), goerr.V("path", path))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return goerr.Wrap(err, "failed to read response", goerr.V("path", path))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e protocol.ErrorResponse
		_ = json.Unmarshal(data, &e)
		return goerr.Wrap(&StatusError{Code: resp.StatusCode, Message: e.Error},
			"server rejected request", goerr.V("method", method), goerr.V("path", path))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return goerr.Wrap(err, "failed to decode response", goerr.V("path", path))
	}
	return nil
}

func (a *API) serverPath(suffix string) string {
	return "/api/servers/" + a.serverID.String() + suffix
}

// Health checks the server
func (a *API) Health(ctx context.Context) (*protocol.HealthResponse, error) {
	var out protocol.HealthResponse
	if err := a.do(ctx, http.MethodGet, "/api/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListServers lists the servers hosted by the instance
func (a *API) ListServers(ctx context.Context) ([]*models.Server, error) {
	var out []*models.Server
	if err := a.do(ctx, http.MethodGet, "/api/servers", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListChannels lists the channels of the bound server
func (a *API) ListChannels(ctx context.Context) ([]*models.Channel, error) {
	var out protocol.ChannelsResponse
	if err := a.do(ctx, http.MethodGet, a.serverPath("/channels"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Channels, nil
}

// ListRoles lists the roles of the bound server
func (a *API) ListRoles(ctx context.Context) ([]*models.Role, error) {
	var out protocol.RolesResponse
	if err := a.do(ctx, http.MethodGet, a.serverPath("/roles"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Roles, nil
}

// SearchMembers returns members whose name starts with query. An empty
// query lists members.
func (a *API) SearchMembers(ctx context.Context, query string, limit int) ([]protocol.MemberResponse, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out protocol.MembersResponse
	if err := a.do(ctx, http.MethodGet, a.serverPath("/members"), q, nil, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// ListMessages returns up to limit messages of a channel, oldest first,
// optionally only those before the given message
func (a *API) ListMessages(ctx context.Context, channelID uuid.UUID, limit int, before *uuid.UUID) ([]*models.Message, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if before != nil {
		q.Set("before", before.String())
	}

	var out protocol.MessagesResponse
	if err := a.do(ctx, http.MethodGet, "/api/channels/"+channelID.String()+"/messages", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SendMessage posts a message as author
func (a *API) SendMessage(ctx context.Context, channelID, author uuid.UUID, content string) (*models.Message, error) {
	var out models.Message
	req := protocol.SendMessageRequest{AuthorID: author, Content: content}
	if err := a.do(ctx, http.MethodPost, "/api/channels/"+channelID.String()+"/messages", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Render asks the server to render content
func (a *API) Render(ctx context.Context, content string, currentUser uuid.UUID) (*protocol.RenderResponse, error) {
	var out protocol.RenderResponse
	req := protocol.RenderRequest{Content: content, CurrentUserID: currentUser}
	if err := a.do(ctx, http.MethodPost, a.serverPath("/render"), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchChannel stores a single channel update
func (a *API) PatchChannel(ctx context.Context, update reorder.Update) error {
	req := protocol.PatchChannelRequest{Position: update.Position, ParentID: update.ParentID}
	return a.do(ctx, http.MethodPatch, "/api/channels/"+update.ChannelID.String(), nil, req, nil)
}

// PatchChannels stores every update of one drop in a single request. The
// server applies all of them or none.
func (a *API) PatchChannels(ctx context.Context, updates []reorder.Update) error {
	return a.do(ctx, http.MethodPatch, a.serverPath("/channels"), nil, protocol.ReorderRequest{Updates: updates}, nil)
}

// Lookup fetches the members, roles and channels needed to resolve
// mentions locally
func (a *API) Lookup(ctx context.Context) (markup.Lookup, error) {
	lookup := markup.Lookup{
		Users:    make(map[uuid.UUID]markup.UserInfo),
		Roles:    make(map[uuid.UUID]markup.RoleInfo),
		Channels: make(map[uuid.UUID]string),
	}

	members, err := a.SearchMembers(ctx, "", 100)
	if err != nil {
		return lookup, err
	}
	for _, m := range members {
		lookup.Users[m.ID] = markup.UserInfo{Username: m.Username, DisplayName: m.DisplayName}
	}

	roles, err := a.ListRoles(ctx)
	if err != nil {
		return lookup, err
	}
	for _, r := range roles {
		lookup.Roles[r.ID] = markup.RoleInfo{Name: r.Name, Color: r.Color}
	}

	channels, err := a.ListChannels(ctx)
	if err != nil {
		return lookup, err
	}
	for _, ch := range channels {
		lookup.Channels[ch.ID] = ch.Name
	}
	return lookup, nil
}
