package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/errs"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/reorder"
	"github.com/m-mizutani/goerr/v2"
)

// --- Channel Operations ---

const channelColumns = `id, server_id, name, topic, type, position, parent_id, created_at, updated_at`

// CreateChannel inserts a new channel
func (db *DB) CreateChannel(ctx context.Context, channel *models.Channel) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO channels (`+channelColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		channel.ID.String(), channel.ServerID.String(), channel.Name, channel.Topic, channel.Type,
		channel.Position, nullID(channel.ParentID), channel.CreatedAt, channel.UpdatedAt)
	if err != nil {
		return goerr.Wrap(err, "failed to create channel",
			goerr.V("name", channel.Name), goerr.V("server_id", channel.ServerID))
	}
	return nil
}

// GetServerChannels returns every channel of a server ordered by parent and position
func (db *DB) GetServerChannels(ctx context.Context, serverID uuid.UUID) ([]*models.Channel, error) {
	return getServerChannels(ctx, db.DB, serverID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getServerChannels(ctx context.Context, q querier, serverID uuid.UUID) ([]*models.Channel, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+channelColumns+`
		FROM channels WHERE server_id = ?
		ORDER BY coalesce(parent_id, ''), position, name`, serverID.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query channels", goerr.V("server_id", serverID))
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan channel")
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// GetChannelByID retrieves a channel by its ID
func (db *DB) GetChannelByID(ctx context.Context, channelID uuid.UUID) (*models.Channel, error) {
	return getChannel(ctx, db.DB, channelID)
}

func getChannel(ctx context.Context, q querier, channelID uuid.UUID) (*models.Channel, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+channelColumns+`
		FROM channels WHERE id = ?`, channelID.String())

	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("channel", channelID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get channel", goerr.V("id", channelID))
	}
	return ch, nil
}

func scanChannel(s scanner) (*models.Channel, error) {
	var ch models.Channel
	var idStr, serverStr string
	var topic, parentID sql.NullString

	err := s.Scan(&idStr, &serverStr, &ch.Name, &topic, &ch.Type, &ch.Position, &parentID,
		&ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return nil, err
	}

	ch.ID, _ = uuid.Parse(idStr)
	ch.ServerID, _ = uuid.Parse(serverStr)
	ch.Topic = topic.String
	ch.ParentID = parseNullID(parentID)
	return &ch, nil
}

// PatchChannel applies a single reorder update to one channel
func (db *DB) PatchChannel(ctx context.Context, update reorder.Update) (*models.Channel, error) {
	var result *models.Channel
	err := db.Tx(ctx, func(tx *sql.Tx) error {
		ch, err := getChannel(ctx, tx, update.ChannelID)
		if err != nil {
			return err
		}
		if err := applyUpdate(ctx, tx, ch.ServerID, update); err != nil {
			return err
		}
		result, err = getChannel(ctx, tx, update.ChannelID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyChannelUpdates stores all updates of one reorder in a single
// transaction. If any update is invalid nothing is written. The resulting
// channel list of the server is returned.
func (db *DB) ApplyChannelUpdates(ctx context.Context, serverID uuid.UUID, updates []reorder.Update) ([]*models.Channel, error) {
	var channels []*models.Channel
	err := db.Tx(ctx, func(tx *sql.Tx) error {
		for _, u := range updates {
			if err := applyUpdate(ctx, tx, serverID, u); err != nil {
				return err
			}
		}

		var err error
		channels, err = getServerChannels(ctx, tx, serverID)
		return err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to apply channel updates",
			goerr.V("server_id", serverID), goerr.V("updates", len(updates)))
	}
	return channels, nil
}

func applyUpdate(ctx context.Context, tx *sql.Tx, serverID uuid.UUID, u reorder.Update) error {
	ch, err := getChannel(ctx, tx, u.ChannelID)
	if err != nil {
		return err
	}
	if ch.ServerID != serverID {
		return goerr.New("channel belongs to another server",
			goerr.V("channel_id", ch.ID), goerr.V("server_id", serverID), goerr.T(errs.TagValidation))
	}

	if u.Position != nil {
		if *u.Position < 0 {
			return goerr.New("position must not be negative",
				goerr.V("channel_id", ch.ID), goerr.V("position", *u.Position), goerr.T(errs.TagValidation))
		}
		ch.SetPosition(*u.Position)
	}

	if u.ParentID != nil {
		parentID := *u.ParentID
		if parentID != uuid.Nil {
			if ch.IsCategory() {
				return goerr.New("categories cannot be nested",
					goerr.V("channel_id", ch.ID), goerr.T(errs.TagValidation))
			}
			parent, err := getChannel(ctx, tx, parentID)
			if err != nil {
				return err
			}
			if !parent.IsCategory() || parent.ServerID != serverID {
				return goerr.New("parent is not a category of this server",
					goerr.V("channel_id", ch.ID), goerr.V("parent_id", parentID), goerr.T(errs.TagValidation))
			}
		}
		ch.SetParent(parentID)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE channels SET position = ?, parent_id = ?, updated_at = ?
		WHERE id = ?`,
		ch.Position, nullID(ch.ParentID), ch.UpdatedAt, ch.ID.String())
	if err != nil {
		return goerr.Wrap(err, "failed to update channel", goerr.V("channel_id", ch.ID))
	}
	return nil
}
