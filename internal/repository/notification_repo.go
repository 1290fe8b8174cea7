package repository

import (
	"database/sql"
	"fmt"
	"time"

	"familytree/internal/database"
	"familytree/internal/models"
)

const notificationColumns = `id, recipient_id, actor_id, type, message, reference_type, reference_id, is_read, created_at`

// NotificationRepository handles in-app notifications
type NotificationRepository struct {
	db database.DBTX
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db database.DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateNotification inserts an unread notification
func (r *NotificationRepository) CreateNotification(n *models.Notification) (*models.Notification, error) {
	query := `
		INSERT INTO notifications (recipient_id, actor_id, type, message, reference_type, reference_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, n.RecipientID, n.ActorID, n.Type, n.Message, n.ReferenceType, n.ReferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	created := *n
	created.ID = id
	created.IsRead = false
	created.CreatedAt = time.Now()
	return &created, nil
}

// ListNotifications returns a recipient's notifications, newest first
func (r *NotificationRepository) ListNotifications(recipientID int64, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	query := "SELECT " + notificationColumns + " FROM notifications WHERE recipient_id = ?"
	args := []interface{}{recipientID}
	if unreadOnly {
		query += " AND is_read = ?"
		args = append(args, false)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var actorID, referenceID sql.NullInt64
		if err := rows.Scan(
			&n.ID, &n.RecipientID, &actorID, &n.Type, &n.Message,
			&n.ReferenceType, &referenceID, &n.IsRead, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.ActorID = nullInt64Ptr(actorID)
		n.ReferenceID = nullInt64Ptr(referenceID)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// CountUnread counts a recipient's unread notifications
func (r *NotificationRepository) CountUnread(recipientID int64) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = ?", recipientID, false).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification read. It reports false when the notification
// does not exist or belongs to someone else.
func (r *NotificationRepository) MarkRead(notificationID, recipientID int64) (bool, error) {
	// is_read is left out of the filter so re-marking a read row still matches
	result, err := r.db.Exec("UPDATE notifications SET is_read = ? WHERE id = ? AND recipient_id = ?", true, notificationID, recipientID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// MarkAllRead marks every notification of a recipient read
func (r *NotificationRepository) MarkAllRead(recipientID int64) (int64, error) {
	result, err := r.db.Exec("UPDATE notifications SET is_read = ? WHERE recipient_id = ? AND is_read = ?", true, recipientID, false)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}

// DeleteNotification removes one of a recipient's notifications
func (r *NotificationRepository) DeleteNotification(notificationID, recipientID int64) (bool, error) {
	result, err := r.db.Exec("DELETE FROM notifications WHERE id = ? AND recipient_id = ?", notificationID, recipientID)
	if err != nil {
		return false, fmt.Errorf("failed to delete notification: %w", err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// DeleteReadBefore purges read notifications older than cutoff
func (r *NotificationRepository) DeleteReadBefore(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM notifications WHERE is_read = ? AND created_at < ?", true, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return result.RowsAffected()
}
