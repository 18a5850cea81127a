package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hearth-chat/hearth/internal/database"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/hearth-chat/hearth/internal/reorder"
	"github.com/hearth-chat/hearth/internal/server"
	"github.com/hearth-chat/hearth/pkg/crypto"
	"github.com/m-mizutani/gt"
)

type fixture struct {
	ts       *httptest.Server
	db       *database.DB
	serverID uuid.UUID
}

func newFixture(t *testing.T, config *server.Config) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	db, err := database.New(filepath.Join(t.TempDir(), "hearth.db"))
	gt.NoError(t, err).Required()
	srvModel, err := db.EnsureDefaultServer(ctx)
	gt.NoError(t, err).Required()

	if config == nil {
		config = server.DefaultConfig()
	}
	srv := server.New(config, db)
	go srv.RunHub(ctx)
	ts := httptest.NewServer(srv)

	t.Cleanup(func() {
		cancel()
		ts.Close()
		db.Close()
	})
	return &fixture{ts: ts, db: db, serverID: srvModel.ID}
}

func (f *fixture) do(t *testing.T, method, path string, body any, header http.Header) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		gt.NoError(t, err).Required()
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, f.ts.URL+path, r)
	gt.NoError(t, err).Required()
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	gt.NoError(t, err).Required()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	gt.NoError(t, err).Required()
	return resp, data
}

func (f *fixture) channels(t *testing.T) []*models.Channel {
	t.Helper()
	channels, err := f.db.GetServerChannels(context.Background(), f.serverID)
	gt.NoError(t, err).Required()
	return channels
}

func byName(channels []*models.Channel, name string) *models.Channel {
	for _, ch := range channels {
		if ch.Name == name {
			return ch
		}
	}
	return nil
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodGet, "/api/health", nil, nil)
	gt.V(t, resp.StatusCode).Equal(http.StatusOK)

	var health protocol.HealthResponse
	gt.NoError(t, json.Unmarshal(body, &health)).Required()
	gt.V(t, health.Status).Equal("ok")
	gt.V(t, health.Version).Equal(server.Version)
}

func TestListChannels(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("known server", func(t *testing.T) {
		resp, body := f.do(t, http.MethodGet, "/api/servers/"+f.serverID.String()+"/channels", nil, nil)
		gt.V(t, resp.StatusCode).Equal(http.StatusOK)

		var out protocol.ChannelsResponse
		gt.NoError(t, json.Unmarshal(body, &out)).Required()
		gt.A(t, out.Channels).Length(7)
	})

	t.Run("unknown server", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodGet, "/api/servers/"+uuid.NewString()+"/channels", nil, nil)
		gt.V(t, resp.StatusCode).Equal(http.StatusNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		resp, body := f.do(t, http.MethodGet, "/api/servers/1234/channels", nil, nil)
		gt.V(t, resp.StatusCode).Equal(http.StatusBadRequest)
		gt.S(t, string(body)).Contains("invalid id in path")
	})
}

func TestReorderChannels(t *testing.T) {
	f := newFixture(t, nil)
	channels := f.channels(t)
	random := byName(channels, "random")
	voice := byName(channels, "Voice Channels")
	path := "/api/servers/" + f.serverID.String() + "/channels"

	t.Run("drop inside another category", func(t *testing.T) {
		updates, err := reorder.Compute(reorder.FromChannels(channels), reorder.Drop{
			Source: random.ID, Target: voice.ID, Zone: reorder.Inside,
		})
		gt.NoError(t, err).Required()

		resp, body := f.do(t, http.MethodPatch, path, protocol.ReorderRequest{Updates: updates}, nil)
		gt.V(t, resp.StatusCode).Equal(http.StatusOK)

		var out protocol.ChannelsResponse
		gt.NoError(t, json.Unmarshal(body, &out)).Required()
		moved := byName(out.Channels, "random")
		gt.V(t, moved.ParentID).Equal(voice.ID)
		gt.V(t, moved.Position).Equal(1)
		gt.V(t, byName(out.Channels, "dev").Position).Equal(1)
	})

	t.Run("invalid batch changes nothing", func(t *testing.T) {
		before := f.channels(t)
		general := byName(before, "general")
		updates := []reorder.Update{
			{ChannelID: general.ID, Position: ptr(5)},
			{ChannelID: voice.ID, ParentID: ptr(byName(before, "Text Channels").ID)},
		}

		resp, _ := f.do(t, http.MethodPatch, path, protocol.ReorderRequest{Updates: updates}, nil)
		gt.V(t, resp.StatusCode).Equal(http.StatusBadRequest)
		gt.V(t, byName(f.channels(t), "general").Position).Equal(general.Position)
	})

	t.Run("empty batch", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodPatch, path, protocol.ReorderRequest{}, nil)
		gt.V(t, resp.StatusCode).Equal(http.StatusBadRequest)
	})
}

func TestPatchChannel(t *testing.T) {
	f := newFixture(t, nil)
	announcements := byName(f.channels(t), "announcements")

	resp, body := f.do(t, http.MethodPatch, "/api/channels/"+announcements.ID.String(),
		protocol.PatchChannelRequest{Position: ptr(0)}, nil)
	gt.V(t, resp.StatusCode).Equal(http.StatusOK)

	var ch models.Channel
	gt.NoError(t, json.Unmarshal(body, &ch)).Required()
	gt.V(t, ch.Position).Equal(0)
	gt.V(t, ch.Name).Equal("announcements")
}

func TestAuth(t *testing.T) {
	hash, err := crypto.HashToken("letmein")
	gt.NoError(t, err).Required()

	config := server.DefaultConfig()
	config.APITokenHash = hash
	f := newFixture(t, config)
	announcements := byName(f.channels(t), "announcements")
	path := "/api/channels/" + announcements.ID.String()
	body := protocol.PatchChannelRequest{Position: ptr(1)}

	resp, _ := f.do(t, http.MethodPatch, path, body, nil)
	gt.V(t, resp.StatusCode).Equal(http.StatusUnauthorized)

	resp, _ = f.do(t, http.MethodPatch, path, body, http.Header{"Authorization": {"Bearer nope"}})
	gt.V(t, resp.StatusCode).Equal(http.StatusUnauthorized)

	resp, _ = f.do(t, http.MethodPatch, path, body, http.Header{"Authorization": {"Bearer letmein"}})
	gt.V(t, resp.StatusCode).Equal(http.StatusOK)

	resp, _ = f.do(t, http.MethodGet, "/api/servers/"+f.serverID.String()+"/channels", nil, nil)
	gt.V(t, resp.StatusCode).Equal(http.StatusOK)
}

func TestCreateMessage(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	channels := f.channels(t)
	general := byName(channels, "general")

	members, err := f.db.SearchMembers(ctx, f.serverID, "alex", 1)
	gt.NoError(t, err).Required()
	alex := members[0].User
	roles, err := f.db.GetServerRoles(ctx, f.serverID)
	gt.NoError(t, err).Required()

	t.Run("mentions are extracted", func(t *testing.T) {
		content := "hi <@" + alex.ID.String() + "> and <@&" + roles[0].ID.String() + "> `<@" + uuid.NewString() + ">`"
		resp, body := f.do(t, http.MethodPost, "/api/channels/"+general.ID.String()+"/messages",
			protocol.SendMessageRequest{AuthorID: alex.ID, Content: content}, nil)
		gt.V(t, resp.StatusCode).Equal(http.StatusCreated)

		var msg models.Message
		gt.NoError(t, json.Unmarshal(body, &msg)).Required()
		gt.A(t, msg.Mentions).Equal([]uuid.UUID{alex.ID})
		gt.A(t, msg.MentionRoles).Equal([]uuid.UUID{roles[0].ID})
		gt.False(t, msg.MentionEveryone)

		stored, err := f.db.GetChannelMessages(ctx, general.ID, 10, nil)
		gt.NoError(t, err).Required()
		gt.A(t, stored).Length(2)
	})

	t.Run("validation", func(t *testing.T) {
		testCases := []struct {
			name    string
			channel uuid.UUID
			req     protocol.SendMessageRequest
			status  int
		}{
			{"empty content", general.ID, protocol.SendMessageRequest{AuthorID: alex.ID}, http.StatusBadRequest},
			{"too long", general.ID, protocol.SendMessageRequest{AuthorID: alex.ID, Content: strings.Repeat("a", server.MaxMessageLength+1)}, http.StatusBadRequest},
			{"voice channel", byName(channels, "lounge").ID, protocol.SendMessageRequest{AuthorID: alex.ID, Content: "hi"}, http.StatusBadRequest},
			{"unknown author", general.ID, protocol.SendMessageRequest{AuthorID: uuid.New(), Content: "hi"}, http.StatusNotFound},
			{"unknown channel", uuid.New(), protocol.SendMessageRequest{AuthorID: alex.ID, Content: "hi"}, http.StatusNotFound},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				resp, _ := f.do(t, http.MethodPost, "/api/channels/"+tc.channel.String()+"/messages", tc.req, nil)
				gt.V(t, resp.StatusCode).Equal(tc.status)
			})
		}
	})
}

func TestListMembers(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodGet, "/api/servers/"+f.serverID.String()+"/members?q=ri", nil, nil)
	gt.V(t, resp.StatusCode).Equal(http.StatusOK)

	var out protocol.MembersResponse
	gt.NoError(t, json.Unmarshal(body, &out)).Required()
	gt.V(t, out.Query).Equal("ri")
	gt.A(t, out.Members).Length(1)
	gt.V(t, out.Members[0].Username).Equal("riley")

	resp, _ = f.do(t, http.MethodGet, "/api/servers/"+f.serverID.String()+"/members?limit=abc", nil, nil)
	gt.V(t, resp.StatusCode).Equal(http.StatusBadRequest)
}

func TestRender(t *testing.T) {
	f := newFixture(t, nil)
	general := byName(f.channels(t), "general")

	req := protocol.RenderRequest{Content: "**hi** <#" + general.ID.String() + "> @here"}
	resp, body := f.do(t, http.MethodPost, "/api/servers/"+f.serverID.String()+"/render", req, nil)
	gt.V(t, resp.StatusCode).Equal(http.StatusOK)

	var out protocol.RenderResponse
	gt.NoError(t, json.Unmarshal(body, &out)).Required()
	gt.S(t, out.HTML).Contains("<strong>hi</strong>")
	gt.S(t, out.HTML).Contains(">#general</span>")
	gt.A(t, out.Spans).Length(4)
	gt.V(t, out.Spans[1].Kind).Equal("channel")
	gt.V(t, out.Spans[1].ID).Equal(general.ID)
	gt.V(t, out.Spans[3].Kind).Equal("here")
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodGet, "/api/health", nil, nil)

	resp, body := f.do(t, http.MethodGet, "/metrics", nil, nil)
	gt.V(t, resp.StatusCode).Equal(http.StatusOK)
	gt.S(t, string(body)).Contains(`hearth_http_requests_total{code="200",method="GET",route="/api/health"} 1`)
	gt.S(t, string(body)).Contains("hearth_gateway_clients 0")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	config, err := server.LoadConfig(filepath.Join(dir, "missing.toml"))
	gt.NoError(t, err).Required()
	gt.V(t, config.Port).Equal(8080)

	path := filepath.Join(dir, "hearth.toml")
	gt.NoError(t, os.WriteFile(path, []byte("port = 9000\nseed = false\ndatabase_path = \"x.db\"\n"), 0600)).Required()
	config, err = server.LoadConfig(path)
	gt.NoError(t, err).Required()
	gt.V(t, config.Port).Equal(9000)
	gt.V(t, config.DatabasePath).Equal("x.db")
	gt.False(t, config.Seed)
	gt.V(t, config.Host).Equal("0.0.0.0")

	gt.NoError(t, os.WriteFile(path, []byte("port = \"nope\""), 0600)).Required()
	_, err = server.LoadConfig(path)
	gt.Error(t, err)
}

func TestGateway(t *testing.T) {
	f := newFixture(t, nil)
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	gt.NoError(t, err).Required()
	defer conn.Close()

	read := func() protocol.Message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg protocol.Message
		gt.NoError(t, conn.ReadJSON(&msg)).Required()
		return msg
	}

	hello := read()
	gt.V(t, hello.Op).Equal(protocol.OpHello)

	identify, err := protocol.NewMessage(protocol.OpIdentify, protocol.IdentifyPayload{ServerID: f.serverID})
	gt.NoError(t, err).Required()
	gt.NoError(t, conn.WriteJSON(identify)).Required()

	ready := read()
	gt.V(t, ready.Op).Equal(protocol.OpReady)

	announcements := byName(f.channels(t), "announcements")
	resp, _ := f.do(t, http.MethodPatch, "/api/channels/"+announcements.ID.String(),
		protocol.PatchChannelRequest{Position: ptr(0)}, nil)
	gt.V(t, resp.StatusCode).Equal(http.StatusOK)

	dispatch := read()
	gt.V(t, dispatch.Op).Equal(protocol.OpDispatch)
	gt.V(t, dispatch.Type).Equal(protocol.EventChannelUpdate)

	var payload protocol.ChannelUpdatePayload
	gt.NoError(t, dispatch.Decode(&payload)).Required()
	gt.V(t, payload.ServerID).Equal(f.serverID)
	gt.V(t, byName(payload.Channels, "announcements").Position).Equal(0)
}

func TestGatewayUnknownServer(t *testing.T) {
	f := newFixture(t, nil)
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	gt.NoError(t, err).Required()
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var hello protocol.Message
	gt.NoError(t, conn.ReadJSON(&hello)).Required()

	identify, err := protocol.NewMessage(protocol.OpIdentify, protocol.IdentifyPayload{ServerID: uuid.New()})
	gt.NoError(t, err).Required()
	gt.NoError(t, conn.WriteJSON(identify)).Required()

	var reply protocol.Message
	gt.NoError(t, conn.ReadJSON(&reply)).Required()
	gt.V(t, reply.Op).Equal(protocol.OpInvalidSession)
}

func ptr[T any](v T) *T { return &v }
