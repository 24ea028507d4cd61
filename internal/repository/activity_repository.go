package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/ksuid"

	"vendora/presence/internal/models"
)

var ErrNoActivity = errors.New("no activity recorded")

type ActivityRepository struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

func (r *ActivityRepository) Append(ctx context.Context, event models.ActivityEvent) error {
	const query = `
		INSERT INTO user_activity (
			id, user_id, activity_type, occurred_at, page, product_id, chat_id, device
		) VALUES (
			$1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, '')
		)
	`

	if event.ID == "" {
		event.ID = ksuid.New().String()
	}

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.UserID,
		event.ActivityType,
		event.Timestamp,
		event.Metadata.Page,
		event.Metadata.ProductID,
		event.Metadata.ChatID,
		string(event.Metadata.Device),
	)
	return err
}

// LastActivityAt reads the timestamp of the newest event for a user.
func (r *ActivityRepository) LastActivityAt(ctx context.Context, userID string) (time.Time, error) {
	const query = `
		SELECT occurred_at FROM user_activity
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT 1
	`

	row := r.pool.QueryRow(ctx, query, userID)
	var ts time.Time
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrNoActivity
		}
		return time.Time{}, err
	}
	return ts, nil
}

func (r *ActivityRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.ActivityEvent, error) {
	const query = `
		SELECT id, user_id, activity_type, occurred_at,
		       COALESCE(page, ''), COALESCE(product_id, ''), COALESCE(chat_id, ''), COALESCE(device, '')
		FROM user_activity
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.ActivityEvent
	for rows.Next() {
		var (
			ev     models.ActivityEvent
			device string
		)
		if err := rows.Scan(
			&ev.ID,
			&ev.UserID,
			&ev.ActivityType,
			&ev.Timestamp,
			&ev.Metadata.Page,
			&ev.Metadata.ProductID,
			&ev.Metadata.ChatID,
			&device,
		); err != nil {
			return nil, err
		}
		ev.Metadata.Device = models.DeviceType(device)
		events = append(events, ev)
	}
	return events, rows.Err()
}
