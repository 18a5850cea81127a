package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/client"
	"github.com/hearth-chat/hearth/internal/database"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/hearth-chat/hearth/internal/reorder"
	"github.com/hearth-chat/hearth/internal/server"
	"github.com/hearth-chat/hearth/pkg/crypto"
	"github.com/m-mizutani/gt"
)

type fixture struct {
	addr     string
	db       *database.DB
	serverID uuid.UUID
}

func newFixture(t *testing.T, tokenHash string) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	db, err := database.New(filepath.Join(t.TempDir(), "hearth.db"))
	gt.NoError(t, err).Required()
	srvModel, err := db.EnsureDefaultServer(ctx)
	gt.NoError(t, err).Required()

	config := server.DefaultConfig()
	config.APITokenHash = tokenHash
	srv := server.New(config, db)
	go srv.RunHub(ctx)
	ts := httptest.NewServer(srv)

	t.Cleanup(func() {
		cancel()
		ts.Close()
		db.Close()
	})
	return &fixture{addr: ts.URL, db: db, serverID: srvModel.ID}
}

func channelByName(channels []*models.Channel, name string) *models.Channel {
	for _, ch := range channels {
		if ch.Name == name {
			return ch
		}
	}
	return nil
}

func TestNewAPI_Address(t *testing.T) {
	testCases := []struct {
		addr  string
		valid bool
	}{
		{"localhost:8080", true},
		{"http://localhost:8080", true},
		{"ws://localhost:8080/ws", true},
		{"wss://chat.example.com", true},
		{"ftp://example.com", false},
		{"http://", false},
	}

	for _, tc := range testCases {
		t.Run(tc.addr, func(t *testing.T) {
			_, err := client.NewAPI(tc.addr, uuid.Nil, "")
			if tc.valid {
				gt.NoError(t, err)
			} else {
				gt.Error(t, err)
			}
		})
	}
}

func TestAPI(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	api, err := client.NewAPI(f.addr, f.serverID, "")
	gt.NoError(t, err).Required()

	t.Run("health", func(t *testing.T) {
		health, err := api.Health(ctx)
		gt.NoError(t, err).Required()
		gt.V(t, health.Status).Equal("ok")
	})

	t.Run("ping", func(t *testing.T) {
		result := api.Ping(ctx, 5*time.Second)
		gt.True(t, result.Success)
		gt.V(t, result.Error).Equal("")
		gt.V(t, result.Version).Equal(server.Version)
		gt.N(t, int64(result.Latency)).Greater(0)
	})

	t.Run("servers", func(t *testing.T) {
		servers, err := api.ListServers(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, servers).Length(1)
		gt.V(t, servers[0].ID).Equal(f.serverID)
	})

	t.Run("members", func(t *testing.T) {
		members, err := api.SearchMembers(ctx, "sa", 5)
		gt.NoError(t, err).Required()
		gt.A(t, members).Length(1)
		gt.V(t, members[0].DisplayName).Equal("sammy")
	})

	t.Run("lookup", func(t *testing.T) {
		lookup, err := api.Lookup(ctx)
		gt.NoError(t, err).Required()
		gt.N(t, len(lookup.Users)).Equal(3)
		gt.N(t, len(lookup.Roles)).Equal(2)
		gt.N(t, len(lookup.Channels)).Equal(7)
	})

	t.Run("send and list messages", func(t *testing.T) {
		channels, err := api.ListChannels(ctx)
		gt.NoError(t, err).Required()
		random := channelByName(channels, "random")
		members, err := api.SearchMembers(ctx, "riley", 1)
		gt.NoError(t, err).Required()

		msg, err := api.SendMessage(ctx, random.ID, members[0].ID, "hello @everyone")
		gt.NoError(t, err).Required()
		gt.True(t, msg.MentionEveryone)

		messages, err := api.ListMessages(ctx, random.ID, 10, nil)
		gt.NoError(t, err).Required()
		gt.A(t, messages).Length(1)
		gt.V(t, messages[0].ID).Equal(msg.ID)
	})

	t.Run("render", func(t *testing.T) {
		out, err := api.Render(ctx, "*hi*", uuid.Nil)
		gt.NoError(t, err).Required()
		gt.V(t, out.HTML).Equal("<em>hi</em>")
	})

	t.Run("not found", func(t *testing.T) {
		_, err := api.WithServer(uuid.New()).ListChannels(ctx)
		var statusErr *client.StatusError
		gt.True(t, errors.As(err, &statusErr))
		gt.V(t, statusErr.Code).Equal(404)
	})
}

func TestAPI_CommitDrop(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	api, err := client.NewAPI(f.addr, f.serverID, "")
	gt.NoError(t, err).Required()

	channels, err := api.ListChannels(ctx)
	gt.NoError(t, err).Required()
	dev := channelByName(channels, "dev")
	general := channelByName(channels, "general")

	updates, err := reorder.Compute(reorder.FromChannels(channels), reorder.Drop{
		Source: dev.ID, Target: general.ID, Zone: reorder.Before,
	})
	gt.NoError(t, err).Required()
	gt.NoError(t, reorder.Commit(ctx, api, updates)).Required()

	channels, err = api.ListChannels(ctx)
	gt.NoError(t, err).Required()
	gt.V(t, channelByName(channels, "dev").Position).Equal(0)
	gt.V(t, channelByName(channels, "general").Position).Equal(1)
	gt.V(t, channelByName(channels, "random").Position).Equal(2)
}

func TestAPI_Token(t *testing.T) {
	hash, err := crypto.HashToken("s3cret")
	gt.NoError(t, err).Required()
	f := newFixture(t, hash)
	ctx := context.Background()

	channels, err := f.db.GetServerChannels(ctx, f.serverID)
	gt.NoError(t, err).Required()
	update := reorder.Update{ChannelID: channelByName(channels, "dev").ID, Position: ptr(0)}

	anon, err := client.NewAPI(f.addr, f.serverID, "")
	gt.NoError(t, err).Required()
	err = anon.PatchChannel(ctx, update)
	var statusErr *client.StatusError
	gt.True(t, errors.As(err, &statusErr))
	gt.V(t, statusErr.Code).Equal(401)

	authed, err := client.NewAPI(f.addr, f.serverID, "s3cret")
	gt.NoError(t, err).Required()
	gt.NoError(t, authed.PatchChannel(ctx, update))
}

type recorder struct {
	mu       sync.Mutex
	states   []client.ConnState
	messages []*protocol.Message
	errors   []error
	ready    chan struct{}
	update   chan *protocol.Message
}

func newRecorder() *recorder {
	return &recorder{ready: make(chan struct{}, 1), update: make(chan *protocol.Message, 4)}
}

func (r *recorder) onDispatch(msg *protocol.Message) {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()
	switch {
	case msg.Op == protocol.OpReady:
		r.ready <- struct{}{}
	case msg.Type == protocol.EventChannelUpdate:
		r.update <- msg
	}
}

func (r *recorder) onState(s client.ConnState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

func TestConnection(t *testing.T) {
	f := newFixture(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := client.NewConnection(f.addr, f.serverID, uuid.New(), "")
	rec := newRecorder()
	conn.SetHandlers(rec.onDispatch, rec.onState, rec.onError)

	done := make(chan error, 1)
	go func() { done <- conn.Run(ctx) }()

	select {
	case <-rec.ready:
	case <-time.After(5 * time.Second):
		t.Fatal("no READY from gateway")
	}
	gt.V(t, conn.State()).Equal(client.StateReady)
	gt.V(t, conn.SessionID()).NotEqual("")

	api, err := client.NewAPI(f.addr, f.serverID, "")
	gt.NoError(t, err).Required()
	channels, err := api.ListChannels(ctx)
	gt.NoError(t, err).Required()
	gt.NoError(t, api.PatchChannel(ctx, reorder.Update{
		ChannelID: channelByName(channels, "announcements").ID,
		Position:  ptr(0),
	})).Required()

	select {
	case msg := <-rec.update:
		var payload protocol.ChannelUpdatePayload
		gt.NoError(t, msg.Decode(&payload)).Required()
		gt.V(t, channelByName(payload.Channels, "announcements").Position).Equal(0)
	case <-time.After(5 * time.Second):
		t.Fatal("no CHANNEL_UPDATE from gateway")
	}
	gt.N(t, conn.LastSequence()).Greater(0)

	cancel()
	select {
	case err := <-done:
		gt.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("connection did not stop")
	}
	gt.V(t, conn.State()).Equal(client.StateDisconnected)
}

func TestConnection_Rejected(t *testing.T) {
	hash, err := crypto.HashToken("s3cret")
	gt.NoError(t, err).Required()
	f := newFixture(t, hash)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := client.NewConnection(f.addr, f.serverID, uuid.New(), "wrong")
	rec := newRecorder()
	conn.SetHandlers(rec.onDispatch, rec.onState, rec.onError)

	err = conn.Run(ctx)
	gt.True(t, errors.Is(err, client.ErrSessionRejected))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	gt.A(t, rec.errors).Length(1)
	gt.A(t, rec.states).Equal([]client.ConnState{client.StateConnecting, client.StateDisconnected})
}

func TestReconnectStrategy(t *testing.T) {
	rs := &client.ReconnectStrategy{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2,
	}

	gt.V(t, rs.NextDelay(0)).Equal(time.Second)
	gt.V(t, rs.NextDelay(1)).Equal(2 * time.Second)
	gt.V(t, rs.NextDelay(2)).Equal(4 * time.Second)
	gt.V(t, rs.NextDelay(3)).Equal(5 * time.Second)

	gt.True(t, rs.ShouldRetry(2))
	gt.False(t, rs.ShouldRetry(3))

	forever := client.DefaultReconnectStrategy()
	gt.True(t, forever.ShouldRetry(1000))
	for i := 0; i < 20; i++ {
		d := forever.NextDelay(10)
		gt.N(t, int64(d)).GreaterOrEqual(int64(24 * time.Second))
		gt.N(t, int64(d)).LessOrEqual(int64(36 * time.Second))
	}
}

func ptr[T any](v T) *T { return &v }

func TestPing_Unreachable(t *testing.T) {
	api, err := client.NewAPI("127.0.0.1:1", uuid.Nil, "")
	gt.NoError(t, err).Required()

	result := api.Ping(context.Background(), time.Second)
	gt.False(t, result.Success)
	gt.V(t, result.Error).NotEqual("")
}
