package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pricehawk/pricehawk/internal/models"
	"github.com/pricehawk/pricehawk/internal/utils"
)

const defaultNotificationLimit = 50

// NotificationService creates, queries and mutates notification records,
// always scoped to the owning user.
type NotificationService struct {
	store  NotificationStore
	logger *logrus.Logger
	now    func() time.Time
}

// NewNotificationService creates a new notification service.
func NewNotificationService(store NotificationStore, logger *logrus.Logger) *NotificationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &NotificationService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// CreateNotification persists a draft as an unread notification. Drafts
// missing any of user_id, type or message are rejected with a validation
// error naming the missing fields.
func (s *NotificationService) CreateNotification(ctx context.Context, draft models.NotificationDraft) (*models.Notification, error) {
	var missing []string
	if draft.UserID == "" {
		missing = append(missing, "user_id")
	}
	if draft.Type == "" {
		missing = append(missing, "type")
	}
	if draft.Message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return nil, utils.NewValidationErrorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	notification := &models.Notification{
		ID:          uuid.NewString(),
		UserID:      draft.UserID,
		Type:        draft.Type,
		Message:     draft.Message,
		ProductID:   draft.ProductID,
		OldPrice:    draft.OldPrice,
		NewPrice:    draft.NewPrice,
		URL:         draft.URL,
		ImageURL:    draft.ImageURL,
		ProductName: draft.ProductName,
		Read:        false,
		CreatedAt:   s.now(),
	}

	if err := s.store.Insert(ctx, notification); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": draft.UserID,
		"type":    draft.Type,
	}).Info("Created notification")

	return notification, nil
}

// GetNotifications returns a user's notifications newest first, capped at
// limit (default 50), optionally restricted to unread records.
func (s *NotificationService) GetNotifications(ctx context.Context, userID string, limit int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}

	notifications, err := s.store.List(ctx, userID, limit, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("get notifications: %w", err)
	}
	return notifications, nil
}

// MarkAsRead marks one notification as read. The record must belong to the
// user, otherwise the call reports not-found.
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID, userID string) error {
	matched, err := s.store.MarkRead(ctx, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark as read: %w", err)
	}
	if matched == 0 {
		return utils.NewNotFoundError("notification", notificationID)
	}
	return nil
}

// MarkAllAsRead marks every unread notification for the user as read and
// returns how many records changed.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	updated, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all as read: %w", err)
	}
	return updated, nil
}

// DeleteNotification removes one notification owned by the user.
func (s *NotificationService) DeleteNotification(ctx context.Context, notificationID, userID string) error {
	deleted, err := s.store.Delete(ctx, notificationID, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if deleted == 0 {
		return utils.NewNotFoundError("notification", notificationID)
	}
	return nil
}

// DeleteAllNotifications removes every notification for the user and returns
// how many records were deleted.
func (s *NotificationService) DeleteAllNotifications(ctx context.Context, userID string) (int64, error) {
	deleted, err := s.store.DeleteAll(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete all notifications: %w", err)
	}
	return deleted, nil
}

// GetUnreadCount returns the number of unread notifications for the user.
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get unread count: %w", err)
	}
	return count, nil
}
