package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/markup"
	"github.com/m-mizutani/goerr/v2"
)

// Lookup builds the mention lookup tables for a server: its members (with
// nicknames taking precedence), roles and channels.
func (db *DB) Lookup(ctx context.Context, serverID uuid.UUID) (markup.Lookup, error) {
	lookup := markup.Lookup{
		Users:    make(map[uuid.UUID]markup.UserInfo),
		Roles:    make(map[uuid.UUID]markup.RoleInfo),
		Channels: make(map[uuid.UUID]string),
	}

	members, err := db.GetServerMembers(ctx, serverID)
	if err != nil {
		return lookup, goerr.Wrap(err, "failed to load members for lookup", goerr.V("server_id", serverID))
	}
	for _, m := range members {
		lookup.Users[m.User.ID] = markup.UserInfo{Username: m.User.Username, DisplayName: m.Name()}
	}

	roles, err := db.GetServerRoles(ctx, serverID)
	if err != nil {
		return lookup, goerr.Wrap(err, "failed to load roles for lookup", goerr.V("server_id", serverID))
	}
	for _, r := range roles {
		lookup.Roles[r.ID] = markup.RoleInfo{Name: r.Name, Color: r.Color}
	}

	channels, err := db.GetServerChannels(ctx, serverID)
	if err != nil {
		return lookup, goerr.Wrap(err, "failed to load channels for lookup", goerr.V("server_id", serverID))
	}
	for _, ch := range channels {
		lookup.Channels[ch.ID] = ch.Name
	}

	return lookup, nil
}
