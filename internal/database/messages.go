package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/m-mizutani/goerr/v2"
)

// --- Message Operations ---

// CreateMessage inserts a message and its mention rows
func (db *DB) CreateMessage(ctx context.Context, msg *models.Message) error {
	return db.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, channel_id, author_id, content, type, mention_everyone, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			msg.ID.String(), msg.ChannelID.String(), msg.AuthorID.String(),
			msg.Content, msg.Type, msg.MentionEveryone, msg.CreatedAt)
		if err != nil {
			return goerr.Wrap(err, "failed to create message", goerr.V("channel_id", msg.ChannelID))
		}

		insert := func(id uuid.UUID, isRole bool) error {
			_, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO message_mentions (message_id, target_id, is_role)
				VALUES (?, ?, ?)`, msg.ID.String(), id.String(), isRole)
			if err != nil {
				return goerr.Wrap(err, "failed to store mention", goerr.V("message_id", msg.ID), goerr.V("target", id))
			}
			return nil
		}
		for _, id := range msg.Mentions {
			if err := insert(id, false); err != nil {
				return err
			}
		}
		for _, id := range msg.MentionRoles {
			if err := insert(id, true); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetChannelMessages returns up to limit messages of a channel in
// chronological order. When before is set only older messages are returned.
func (db *DB) GetChannelMessages(ctx context.Context, channelID uuid.UUID, limit int, before *uuid.UUID) ([]*models.Message, error) {
	var query string
	var args []any

	if before != nil {
		query = `
			SELECT id, channel_id, author_id, content, type, mention_everyone, created_at, edited_at
			FROM messages
			WHERE channel_id = ? AND created_at < (SELECT created_at FROM messages WHERE id = ?)
			ORDER BY created_at DESC
			LIMIT ?`
		args = []any{channelID.String(), before.String(), limit}
	} else {
		query = `
			SELECT id, channel_id, author_id, content, type, mention_everyone, created_at, edited_at
			FROM messages
			WHERE channel_id = ?
			ORDER BY created_at DESC
			LIMIT ?`
		args = []any{channelID.String(), limit}
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query messages", goerr.V("channel_id", channelID))
	}
	defer rows.Close()

	var messages []*models.Message
	index := make(map[uuid.UUID]*models.Message)
	for rows.Next() {
		msg := &models.Message{}
		var idStr, channelStr, authorStr string
		var editedAt sql.NullTime

		err := rows.Scan(&idStr, &channelStr, &authorStr, &msg.Content, &msg.Type,
			&msg.MentionEveryone, &msg.CreatedAt, &editedAt)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan message")
		}

		msg.ID, _ = uuid.Parse(idStr)
		msg.ChannelID, _ = uuid.Parse(channelStr)
		msg.AuthorID, _ = uuid.Parse(authorStr)
		if editedAt.Valid {
			msg.EditedAt = &editedAt.Time
		}
		messages = append(messages, msg)
		index[msg.ID] = msg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := db.loadMentions(ctx, channelID, index); err != nil {
		return nil, err
	}

	// Newest N were fetched; return them oldest first so live messages append.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (db *DB) loadMentions(ctx context.Context, channelID uuid.UUID, index map[uuid.UUID]*models.Message) error {
	if len(index) == 0 {
		return nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT mm.message_id, mm.target_id, mm.is_role
		FROM message_mentions mm JOIN messages m ON m.id = mm.message_id
		WHERE m.channel_id = ?
		ORDER BY mm.rowid`, channelID.String())
	if err != nil {
		return goerr.Wrap(err, "failed to query mentions", goerr.V("channel_id", channelID))
	}
	defer rows.Close()

	for rows.Next() {
		var msgStr, targetStr string
		var isRole bool
		if err := rows.Scan(&msgStr, &targetStr, &isRole); err != nil {
			return goerr.Wrap(err, "failed to scan mention")
		}
		msgID, _ := uuid.Parse(msgStr)
		msg, ok := index[msgID]
		if !ok {
			continue
		}
		target, _ := uuid.Parse(targetStr)
		if isRole {
			msg.MentionRoles = append(msg.MentionRoles, target)
		} else {
			msg.Mentions = append(msg.Mentions, target)
		}
	}
	return rows.Err()
}
