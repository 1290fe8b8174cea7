package service

import (
	"context"
	"fmt"
	"time"

	"familytree/internal/apperr"
	"familytree/internal/logger"
	"familytree/internal/metrics"
	"familytree/internal/models"
	"familytree/internal/repository"
)

const notificationEmailTimeout = 15 * time.Second

// Notifier delivers notifications to members
type Notifier interface {
	Notify(n *models.Notification) error
}

// NotificationService stores in-app notifications and mirrors them by email
type NotificationService struct {
	notifications *repository.NotificationRepository
	users         *repository.UserRepository
	email         *EmailService
	logger        *logger.Logger
	dispatch      func(func())
}

// NewNotificationService creates a new notification service
func NewNotificationService(notifications *repository.NotificationRepository, users *repository.UserRepository, email *EmailService, log *logger.Logger) *NotificationService {
	if log == nil {
		log = logger.Nop()
	}
	return &NotificationService{
		notifications: notifications,
		users:         users,
		email:         email,
		logger:        log,
		dispatch:      func(fn func()) { go fn() },
	}
}

// Notify stores a notification for its recipient. Members are never notified
// about their own actions.
func (s *NotificationService) Notify(n *models.Notification) error {
	if n.RecipientID == 0 || (n.ActorID != nil && *n.ActorID == n.RecipientID) {
		return nil
	}

	created, err := s.notifications.CreateNotification(n)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	metrics.RecordNotification(string(created.Type))

	if s.email.IsEnabled() {
		user, err := s.users.GetUserByMemberID(created.RecipientID)
		if err != nil {
			s.logger.Warn("failed to look up notification recipient", "member_id", created.RecipientID, "error", err)
			return nil
		}
		if user != nil && user.Email != "" {
			s.dispatch(func() {
				ctx, cancel := context.WithTimeout(context.Background(), notificationEmailTimeout)
				defer cancel()
				if err := s.email.SendNotificationEmail(ctx, user.Email, user.Name, created.Message); err != nil {
					s.logger.Warn("failed to email notification", "notification_id", created.ID, "error", err)
				}
			})
		}
	}
	return nil
}

// List returns the actor's notifications, newest first
func (s *NotificationService) List(actorID int64, unreadOnly bool, page Page) ([]models.Notification, error) {
	if actorID == 0 {
		return nil, apperr.Forbidden("no member profile")
	}
	page = page.Normalize()
	notifications, err := s.notifications.ListNotifications(actorID, unreadOnly, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// UnreadCount counts the actor's unread notifications
func (s *NotificationService) UnreadCount(actorID int64) (int, error) {
	if actorID == 0 {
		return 0, nil
	}
	count, err := s.notifications.CountUnread(actorID)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the actor's notifications read
func (s *NotificationService) MarkRead(actorID, notificationID int64) error {
	ok, err := s.notifications.MarkRead(notificationID, actorID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !ok {
		return apperr.NotFound("notification %d", notificationID)
	}
	return nil
}

// MarkAllRead marks every notification of the actor read
func (s *NotificationService) MarkAllRead(actorID int64) (int64, error) {
	n, err := s.notifications.MarkAllRead(actorID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}

// Delete removes one of the actor's notifications
func (s *NotificationService) Delete(actorID, notificationID int64) error {
	ok, err := s.notifications.DeleteNotification(notificationID, actorID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if !ok {
		return apperr.NotFound("notification %d", notificationID)
	}
	return nil
}

// PurgeRead deletes read notifications older than olderThan
func (s *NotificationService) PurgeRead(olderThan time.Duration) (int64, error) {
	n, err := s.notifications.DeleteReadBefore(time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return n, nil
}
