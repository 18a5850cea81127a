package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/errs"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/m-mizutani/goerr/v2"
)

// --- User Operations ---

// CreateUser inserts a new user
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, username, display_name, status, is_bot, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID.String(), user.Username, user.DisplayName, user.Status, user.IsBot, user.CreatedAt)
	if err != nil {
		return goerr.Wrap(err, "failed to create user",
			goerr.V("username", user.Username), goerr.T(errs.TagConflict))
	}
	return nil
}

// GetUserByID retrieves a user by ID
func (db *DB) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, username, display_name, status, is_bot, created_at
		FROM users WHERE id = ?`, userID.String())

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", userID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("id", userID))
	}
	return user, nil
}

// GetUsersByIDs retrieves the users with the given IDs. Unknown IDs are skipped.
func (db *DB) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, username, display_name, status, is_bot, created_at
		FROM users WHERE id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY username`, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query users", goerr.V("count", len(ids)))
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan user")
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	var user models.User
	var idStr string
	var displayName sql.NullString

	if err := s.Scan(&idStr, &user.Username, &displayName, &user.Status, &user.IsBot, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.ID, _ = uuid.Parse(idStr)
	user.DisplayName = displayName.String
	return &user, nil
}

// --- Server Operations ---

// CreateServer inserts a new server
func (db *DB) CreateServer(ctx context.Context, server *models.Server) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO servers (id, name, description, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		server.ID.String(), server.Name, server.Description, server.OwnerID.String(), server.CreatedAt)
	if err != nil {
		return goerr.Wrap(err, "failed to create server", goerr.V("name", server.Name))
	}
	return nil
}

// GetServerByID retrieves a server by its ID
func (db *DB) GetServerByID(ctx context.Context, serverID uuid.UUID) (*models.Server, error) {
	var server models.Server
	var idStr, ownerStr string
	var description sql.NullString

	err := db.QueryRowContext(ctx, `
		SELECT id, name, description, owner_id, created_at
		FROM servers WHERE id = ?`, serverID.String()).
		Scan(&idStr, &server.Name, &description, &ownerStr, &server.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("server", serverID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get server", goerr.V("id", serverID))
	}

	server.ID, _ = uuid.Parse(idStr)
	server.OwnerID, _ = uuid.Parse(ownerStr)
	server.Description = description.String
	return &server, nil
}

// ListServers returns every server, oldest first
func (db *DB) ListServers(ctx context.Context) ([]*models.Server, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, description, owner_id, created_at
		FROM servers ORDER BY created_at ASC`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list servers")
	}
	defer rows.Close()

	var servers []*models.Server
	for rows.Next() {
		var server models.Server
		var idStr, ownerStr string
		var description sql.NullString
		if err := rows.Scan(&idStr, &server.Name, &description, &ownerStr, &server.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan server")
		}
		server.ID, _ = uuid.Parse(idStr)
		server.OwnerID, _ = uuid.Parse(ownerStr)
		server.Description = description.String
		servers = append(servers, &server)
	}
	return servers, rows.Err()
}

// --- Member Operations ---

// AddServerMember adds a user to a server together with their roles
func (db *DB) AddServerMember(ctx context.Context, member *models.ServerMember) error {
	return db.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO server_members (user_id, server_id, nickname, joined_at)
			VALUES (?, ?, ?, ?)`,
			member.UserID.String(), member.ServerID.String(), member.Nickname, member.JoinedAt)
		if err != nil {
			return goerr.Wrap(err, "failed to add server member",
				goerr.V("user_id", member.UserID), goerr.V("server_id", member.ServerID))
		}

		for _, roleID := range member.RoleIDs {
			_, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO member_roles (user_id, server_id, role_id)
				VALUES (?, ?, ?)`,
				member.UserID.String(), member.ServerID.String(), roleID.String())
			if err != nil {
				return goerr.Wrap(err, "failed to add member role",
					goerr.V("user_id", member.UserID), goerr.V("role_id", roleID))
			}
		}
		return nil
	})
}

// Member is a server member joined with their user record
type Member struct {
	User     *models.User
	Nickname string
	RoleIDs  []uuid.UUID
}

// Name returns the label shown for the member: nickname, display name or username
func (m *Member) Name() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	return m.User.GetDisplayName()
}

// GetServerMembers returns every member of a server ordered by username
func (db *DB) GetServerMembers(ctx context.Context, serverID uuid.UUID) ([]*Member, error) {
	return db.queryMembers(ctx, serverID, "", 0)
}

// SearchMembers returns members whose username, display name or nickname
// starts with query, case-insensitively. A limit of 0 means no limit.
func (db *DB) SearchMembers(ctx context.Context, serverID uuid.UUID, query string, limit int) ([]*Member, error) {
	return db.queryMembers(ctx, serverID, query, limit)
}

func (db *DB) queryMembers(ctx context.Context, serverID uuid.UUID, query string, limit int) ([]*Member, error) {
	q := `
		SELECT u.id, u.username, u.display_name, u.status, u.is_bot, u.created_at, m.nickname
		FROM server_members m JOIN users u ON u.id = m.user_id
		WHERE m.server_id = ?`
	args := []any{serverID.String()}

	if query != "" {
		pattern := escapeLike(strings.ToLower(query)) + "%"
		q += ` AND (lower(u.username) LIKE ? ESCAPE '\'
			OR lower(coalesce(u.display_name, '')) LIKE ? ESCAPE '\'
			OR lower(coalesce(m.nickname, '')) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern, pattern)
	}
	q += ` ORDER BY u.username`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query members", goerr.V("server_id", serverID), goerr.V("query", query))
	}
	defer rows.Close()

	var members []*Member
	index := make(map[uuid.UUID]*Member)
	for rows.Next() {
		var user models.User
		var idStr string
		var displayName, nickname sql.NullString
		if err := rows.Scan(&idStr, &user.Username, &displayName, &user.Status, &user.IsBot, &user.CreatedAt, &nickname); err != nil {
			return nil, goerr.Wrap(err, "failed to scan member")
		}
		user.ID, _ = uuid.Parse(idStr)
		user.DisplayName = displayName.String

		m := &Member{User: &user, Nickname: nickname.String}
		members = append(members, m)
		index[user.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(members) == 0 {
		return members, nil
	}

	roleRows, err := db.QueryContext(ctx, `
		SELECT user_id, role_id FROM member_roles WHERE server_id = ?`, serverID.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query member roles", goerr.V("server_id", serverID))
	}
	defer roleRows.Close()

	for roleRows.Next() {
		var userStr, roleStr string
		if err := roleRows.Scan(&userStr, &roleStr); err != nil {
			return nil, goerr.Wrap(err, "failed to scan member role")
		}
		userID, _ := uuid.Parse(userStr)
		if m, ok := index[userID]; ok {
			roleID, _ := uuid.Parse(roleStr)
			m.RoleIDs = append(m.RoleIDs, roleID)
		}
	}
	return members, roleRows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// --- Role Operations ---

// CreateRole inserts a new role
func (db *DB) CreateRole(ctx context.Context, role *models.Role) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO roles (id, server_id, name, color, position, is_mentionable, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		role.ID.String(), role.ServerID.String(), role.Name, role.Color, role.Position,
		role.IsMentionable, role.CreatedAt)
	if err != nil {
		return goerr.Wrap(err, "failed to create role", goerr.V("name", role.Name))
	}
	return nil
}

// GetServerRoles returns the roles of a server, highest position first
func (db *DB) GetServerRoles(ctx context.Context, serverID uuid.UUID) ([]*models.Role, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, server_id, name, color, position, is_mentionable, created_at
		FROM roles WHERE server_id = ?
		ORDER BY position DESC, name`, serverID.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query roles", goerr.V("server_id", serverID))
	}
	defer rows.Close()

	var roles []*models.Role
	for rows.Next() {
		var role models.Role
		var idStr, serverStr string
		if err := rows.Scan(&idStr, &serverStr, &role.Name, &role.Color, &role.Position,
			&role.IsMentionable, &role.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan role")
		}
		role.ID, _ = uuid.Parse(idStr)
		role.ServerID, _ = uuid.Parse(serverStr)
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}
