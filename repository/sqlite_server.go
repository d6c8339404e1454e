// Package repository — ServerRepository'nin SQLite implementasyonu.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akinalpfdn/coreplane/models"
	"github.com/akinalpfdn/coreplane/pkg"
)

type sqliteServerRepo struct {
	db *sql.DB
}

// NewSQLiteServerRepo, constructor — interface döner.
func NewSQLiteServerRepo(db *sql.DB) ServerRepository {
	return &sqliteServerRepo{db: db}
}

func (r *sqliteServerRepo) Create(ctx context.Context, server *models.Server) error {
	var generatedID string
	if err := r.db.QueryRowContext(ctx,
		`SELECT lower(hex(randomblob(8)))`,
	).Scan(&generatedID); err != nil {
		return fmt.Errorf("failed to generate server id: %w", err)
	}

	query := `
		INSERT INTO servers (id, name, icon_url, owner_id, invite_required, livekit_instance_id)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		generatedID, server.Name, server.IconURL, server.OwnerID,
		server.InviteRequired, server.LiveKitInstanceID,
	)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	server.ID = generatedID
	return r.db.QueryRowContext(ctx,
		`SELECT created_at FROM servers WHERE id = ?`, generatedID,
	).Scan(&server.CreatedAt)
}

func (r *sqliteServerRepo) GetByID(ctx context.Context, id string) (*models.Server, error) {
	query := `
		SELECT id, name, icon_url, owner_id, invite_required, livekit_instance_id, created_at
		FROM servers WHERE id = ?`

	server := &models.Server{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&server.ID, &server.Name, &server.IconURL, &server.OwnerID,
		&server.InviteRequired, &server.LiveKitInstanceID, &server.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server: %w", err)
	}

	return server, nil
}

func (r *sqliteServerRepo) Update(ctx context.Context, server *models.Server) error {
	query := `UPDATE servers SET name = ?, icon_url = ?, invite_required = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		server.Name, server.IconURL, server.InviteRequired, server.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update server: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	return nil
}

func (r *sqliteServerRepo) UpdateIconURL(ctx context.Context, serverID, iconURL string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE servers SET icon_url = ? WHERE id = ?`, iconURL, serverID,
	)
	if err != nil {
		return fmt.Errorf("failed to update server icon: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	return nil
}

func (r *sqliteServerRepo) UpdateLastVoiceActivity(ctx context.Context, serverID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE servers SET last_voice_activity = CURRENT_TIMESTAMP WHERE id = ?`, serverID,
	)
	if err != nil {
		return fmt.Errorf("failed to update last voice activity: %w", err)
	}
	return nil
}

func (r *sqliteServerRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM servers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	return nil
}

// GetUserServers, kullanıcının üye olduğu sunucuların minimal listesini
// server_members.position sırasına göre döner.
func (r *sqliteServerRepo) GetUserServers(ctx context.Context, userID string) ([]models.ServerListItem, error) {
	query := `
		SELECT s.id, s.name, s.icon_url
		FROM servers s
		INNER JOIN server_members sm ON sm.server_id = s.id
		WHERE sm.user_id = ?
		ORDER BY sm.position ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user servers: %w", err)
	}
	defer rows.Close()

	items := []models.ServerListItem{}
	for rows.Next() {
		var item models.ServerListItem
		if err := rows.Scan(&item.ID, &item.Name, &item.IconURL); err != nil {
			return nil, fmt.Errorf("failed to scan server list item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating server list rows: %w", err)
	}

	return items, nil
}

func (r *sqliteServerRepo) IsMember(ctx context.Context, serverID, userID string) (bool, error) {
	var dummy int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM server_members WHERE server_id = ? AND user_id = ? LIMIT 1`,
		serverID, userID,
	).Scan(&dummy)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check server membership: %w", err)
	}

	return true, nil
}

// AddMember, kullanıcıyı sunucuya üye ekler. position, kullanıcının mevcut
// sunucu listesinin en sonuna (max + 1) yerleştirilir.
func (r *sqliteServerRepo) AddMember(ctx context.Context, serverID, userID string) error {
	var nextPosition int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM server_members WHERE user_id = ?`, userID,
	).Scan(&nextPosition)
	if err != nil {
		return fmt.Errorf("failed to compute next server position: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO server_members (server_id, user_id, position) VALUES (?, ?, ?)`,
		serverID, userID, nextPosition,
	)
	if err != nil {
		return fmt.Errorf("failed to add server member: %w", err)
	}

	return nil
}

func (r *sqliteServerRepo) RemoveMember(ctx context.Context, serverID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM server_members WHERE server_id = ? AND user_id = ?`, serverID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove server member: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	return nil
}

// ReorderServers, kullanıcının sunucu listesi sırasını transaction içinde toplu günceller.
func (r *sqliteServerRepo) ReorderServers(ctx context.Context, userID string, serverIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE server_members SET position = ? WHERE user_id = ? AND server_id = ?`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, serverID := range serverIDs {
		result, err := stmt.ExecContext(ctx, i, userID, serverID)
		if err != nil {
			return fmt.Errorf("failed to update position for server %s: %w", serverID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: user is not a member of server %s", pkg.ErrBadRequest, serverID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder transaction: %w", err)
	}

	return nil
}

// ListAllWithStats, platform admin panelinde gösterilen tüm sunucuları
// üyelik/kanal/mesaj/depolama istatistikleriyle birlikte döner.
// Correlated subquery pattern — her sunucu için ayrı toplamlar hesaplanır.
func (r *sqliteServerRepo) ListAllWithStats(ctx context.Context) ([]models.AdminServerListItem, error) {
	query := `
		SELECT
			s.id, s.name, s.icon_url, s.owner_id,
			COALESCE(u.username, ''), s.created_at,
			COALESCE(li.is_platform_managed, 0), s.livekit_instance_id,
			(SELECT COUNT(*) FROM server_members sm WHERE sm.server_id = s.id),
			(SELECT COUNT(*) FROM channels c WHERE c.server_id = s.id),
			(SELECT COUNT(*) FROM messages m
				INNER JOIN channels c ON c.id = m.channel_id
				WHERE c.server_id = s.id),
			(SELECT COALESCE(SUM(a.file_size), 0) FROM attachments a
				INNER JOIN messages m ON m.id = a.message_id
				INNER JOIN channels c ON c.id = m.channel_id
				WHERE c.server_id = s.id),
			s.last_voice_activity
		FROM servers s
		LEFT JOIN users u ON u.id = s.owner_id
		LEFT JOIN livekit_instances li ON li.id = s.livekit_instance_id
		ORDER BY s.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers with stats: %w", err)
	}
	defer rows.Close()

	items := []models.AdminServerListItem{}
	for rows.Next() {
		var item models.AdminServerListItem
		var storageBytes int64
		if err := rows.Scan(
			&item.ID, &item.Name, &item.IconURL, &item.OwnerID,
			&item.OwnerUsername, &item.CreatedAt,
			&item.IsPlatformManaged, &item.LiveKitInstanceID,
			&item.MemberCount, &item.ChannelCount, &item.MessageCount,
			&storageBytes, &item.LastActivity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan server stats row: %w", err)
		}
		item.StorageMB = float64(storageBytes) / (1024 * 1024)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating server stats rows: %w", err)
	}

	return items, nil
}
