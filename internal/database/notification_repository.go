package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricehawk/pricehawk/internal/models"
)

// NotificationRepository handles database operations for notifications.
// Records are immutable except for the read flag and deletion.
type NotificationRepository struct {
	pool DatabasePool
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(pool DatabasePool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Insert stores a new notification row.
func (r *NotificationRepository) Insert(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, message, product_id, old_price,
			new_price, url, image_url, product_name, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		n.ID, n.UserID, n.Type, n.Message, n.ProductID, nullDecimal(n.OldPrice),
		nullDecimal(n.NewPrice), n.URL, n.ImageURL, n.ProductName, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// List returns a user's notifications newest first, capped at limit,
// optionally restricted to unread records.
func (r *NotificationRepository) List(ctx context.Context, userID string, limit int, unreadOnly bool) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, type, message, product_id, old_price, new_price,
			url, image_url, product_name, read, created_at
		FROM notifications
		WHERE user_id = $1 AND ($2 = false OR read = false)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var oldPrice, newPrice decimal.NullDecimal
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Message, &n.ProductID, &oldPrice,
			&newPrice, &n.URL, &n.ImageURL, &n.ProductName, &n.Read, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if oldPrice.Valid {
			n.OldPrice = &oldPrice.Decimal
		}
		if newPrice.Valid {
			n.NewPrice = &newPrice.Decimal
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead flips the read flag on one record owned by userID and returns the
// number of rows matched.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (int64, error) {
	query := `UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`

	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkAllRead flips the read flag on every unread record for the user.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	query := `UPDATE notifications SET read = true WHERE user_id = $1 AND read = false`

	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes one record owned by userID and returns the number of rows
// deleted.
func (r *NotificationRepository) Delete(ctx context.Context, id, userID string) (int64, error) {
	query := `DELETE FROM notifications WHERE id = $1 AND user_id = $2`

	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notification: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteAll removes every record for the user.
func (r *NotificationRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM notifications WHERE user_id = $1`

	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountUnread returns the number of records with read = false for the user.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = false`

	var count int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// Count returns the total number of notification records.
func (r *NotificationRepository) Count(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications`

	var count int64
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes records created before cutoff and returns the
// number deleted.
func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE created_at < $1`

	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
