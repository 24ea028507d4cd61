package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vendora/presence/internal/models"
)

var ErrPresenceNotFound = errors.New("presence not found")

type PresenceRepository struct {
	pool *pgxpool.Pool
}

func NewPresenceRepository(pool *pgxpool.Pool) *PresenceRepository {
	return &PresenceRepository{pool: pool}
}

func (r *PresenceRepository) Get(ctx context.Context, userID string) (models.UserPresence, error) {
	const query = `
		SELECT user_id, is_online, last_seen, preference, notify_chat, notify_orders, notify_marketing, updated_at
		FROM user_presence
		WHERE user_id = $1
	`

	row := r.pool.QueryRow(ctx, query, userID)
	var p models.UserPresence
	if err := row.Scan(
		&p.UserID,
		&p.IsOnline,
		&p.LastSeen,
		&p.Preference,
		&p.NotificationPrefs.Chat,
		&p.NotificationPrefs.Orders,
		&p.NotificationPrefs.Marketing,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UserPresence{}, ErrPresenceNotFound
		}
		return models.UserPresence{}, err
	}
	return p, nil
}

// Upsert applies a partial update. Nil fields keep the stored value; a
// missing row is created with defaults for the unspecified fields.
func (r *PresenceRepository) Upsert(ctx context.Context, userID string, update models.PresenceUpdate) error {
	const query = `
		INSERT INTO user_presence (
			user_id, is_online, last_seen, preference, notify_chat, notify_orders, notify_marketing, updated_at
		) VALUES (
			$1,
			COALESCE($2, FALSE),
			COALESCE($3, NOW()),
			COALESCE($4, 'auto'),
			COALESCE($5, FALSE),
			COALESCE($6, FALSE),
			COALESCE($7, FALSE),
			NOW()
		)
		ON CONFLICT (user_id)
		DO UPDATE SET
			is_online = COALESCE($2, user_presence.is_online),
			last_seen = COALESCE($3, user_presence.last_seen),
			preference = COALESCE($4, user_presence.preference),
			notify_chat = COALESCE($5, user_presence.notify_chat),
			notify_orders = COALESCE($6, user_presence.notify_orders),
			notify_marketing = COALESCE($7, user_presence.notify_marketing),
			updated_at = NOW()
	`

	var (
		notifyChat      *bool
		notifyOrders    *bool
		notifyMarketing *bool
	)
	if update.NotificationPrefs != nil {
		notifyChat = &update.NotificationPrefs.Chat
		notifyOrders = &update.NotificationPrefs.Orders
		notifyMarketing = &update.NotificationPrefs.Marketing
	}

	_, err := r.pool.Exec(ctx, query,
		userID,
		update.IsOnline,
		update.LastSeen,
		update.Preference,
		notifyChat,
		notifyOrders,
		notifyMarketing,
	)
	return err
}

func (r *PresenceRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT user_id FROM user_presence ORDER BY user_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PresenceRepository) CountOnline(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM user_presence WHERE is_online = TRUE`
	row := r.pool.QueryRow(ctx, query)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListStaleOnline returns ids whose stored flag says online but whose last
// seen precedes the cutoff, restricted to auto mode. Feeds the auto-offline
// sweep.
func (r *PresenceRepository) ListStaleOnline(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `
		SELECT user_id FROM user_presence
		WHERE is_online = TRUE
		  AND preference = 'auto'
		  AND last_seen < $1
	`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
