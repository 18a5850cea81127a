package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/markup"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/m-mizutani/goerr/v2"
)

// SystemUserID owns the seeded server and authors system messages
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// EnsureDefaultServer returns the oldest server, creating a demo server with
// members, roles, categories and a welcome message when the database is empty.
func (db *DB) EnsureDefaultServer(ctx context.Context) (*models.Server, error) {
	servers, err := db.ListServers(ctx)
	if err != nil {
		return nil, err
	}
	if len(servers) > 0 {
		return servers[0], nil
	}

	if _, err := db.GetUserByID(ctx, SystemUserID); err != nil {
		system := models.NewUser("system", "System")
		system.ID = SystemUserID
		system.IsBot = true
		if err := db.CreateUser(ctx, system); err != nil {
			return nil, goerr.Wrap(err, "failed to create system user")
		}
	}

	server := models.NewServer("Hearth", SystemUserID)
	server.Description = "Demo server"
	if err := db.CreateServer(ctx, server); err != nil {
		return nil, goerr.Wrap(err, "failed to create default server")
	}

	mods := models.NewRole(server.ID, "mods")
	mods.Color = 0xE74C3C
	mods.Position = 2
	helpers := models.NewRole(server.ID, "helpers")
	helpers.Color = 0x2ECC71
	helpers.Position = 1
	for _, role := range []*models.Role{mods, helpers} {
		if err := db.CreateRole(ctx, role); err != nil {
			return nil, err
		}
	}

	users := []struct {
		username, displayName, nickname string
		roles                           []uuid.UUID
	}{
		{"alex", "Alex", "", []uuid.UUID{mods.ID}},
		{"sam", "Sam", "sammy", []uuid.UUID{helpers.ID}},
		{"riley", "", "", nil},
	}
	var userIDs []uuid.UUID
	for _, u := range users {
		user := models.NewUser(u.username, u.displayName)
		if err := db.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		member := &models.ServerMember{
			UserID:   user.ID,
			ServerID: server.ID,
			Nickname: u.nickname,
			RoleIDs:  u.roles,
			JoinedAt: time.Now(),
		}
		if err := db.AddServerMember(ctx, member); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, user.ID)
	}

	text := models.NewCategory(server.ID, "Text Channels")
	voice := models.NewCategory(server.ID, "Voice Channels")
	voice.Position = 1

	announcements := models.NewTextChannel(server.ID, "announcements")
	announcements.Position = 2

	general := models.NewTextChannel(server.ID, "general")
	general.ParentID = text.ID
	general.Topic = "Anything goes"
	random := models.NewTextChannel(server.ID, "random")
	random.ParentID = text.ID
	random.Position = 1
	dev := models.NewTextChannel(server.ID, "dev")
	dev.ParentID = text.ID
	dev.Position = 2
	lounge := models.NewVoiceChannel(server.ID, "lounge")
	lounge.ParentID = voice.ID

	for _, ch := range []*models.Channel{text, voice, announcements, general, random, dev, lounge} {
		if err := db.CreateChannel(ctx, ch); err != nil {
			return nil, err
		}
	}

	welcome := models.NewSystemMessage(general.ID,
		"Welcome to **Hearth**, <@"+userIDs[0].String()+">! Say hi in <#"+random.ID.String()+
			"> and ping <@&"+mods.ID.String()+"> if you need help.\n"+
			"```go\nfmt.Println(\"hello\")\n```")
	welcome.AuthorID = SystemUserID
	welcome.SetMentions(markup.Mentions(welcome.Content))
	if err := db.CreateMessage(ctx, welcome); err != nil {
		return nil, err
	}

	return server, nil
}
