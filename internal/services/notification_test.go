package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricehawk/pricehawk/internal/models"
	"github.com/pricehawk/pricehawk/internal/utils"
)

func newNotificationFixture() (*NotificationService, *fakeNotificationStore) {
	store := newFakeNotificationStore()
	svc := NewNotificationService(store, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestCreateNotificationValidation(t *testing.T) {
	svc, _ := newNotificationFixture()

	tests := []struct {
		name  string
		draft models.NotificationDraft
	}{
		{"missing all", models.NotificationDraft{}},
		{"missing message", models.NotificationDraft{UserID: "u1", Type: "price_drop"}},
		{"missing type", models.NotificationDraft{UserID: "u1", Message: "hi"}},
		{"missing user", models.NotificationDraft{Type: "price_drop", Message: "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateNotification(context.Background(), tt.draft)
			assert.True(t, utils.IsValidationError(err))
		})
	}
}

func TestCreateNotificationDefaults(t *testing.T) {
	svc, _ := newNotificationFixture()

	n, err := svc.CreateNotification(context.Background(), models.NotificationDraft{
		UserID:  "u1",
		Type:    models.NotificationTypePriceDrop,
		Message: "Price dropped from 100 to 90",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.Read)
	assert.False(t, n.CreatedAt.IsZero())
}

func TestGetNotificationsDefaultLimit(t *testing.T) {
	svc, _ := newNotificationFixture()

	for i := 0; i < 60; i++ {
		_, err := svc.CreateNotification(context.Background(), models.NotificationDraft{
			UserID:  "u1",
			Type:    models.NotificationTypeTest,
			Message: "n",
		})
		require.NoError(t, err)
	}

	notifications, err := svc.GetNotifications(context.Background(), "u1", 0, false)
	require.NoError(t, err)
	assert.Len(t, notifications, 50)
}

func TestMarkAllAsReadDrivesUnreadCountToZero(t *testing.T) {
	svc, _ := newNotificationFixture()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateNotification(context.Background(), models.NotificationDraft{
			UserID:  "u1",
			Type:    models.NotificationTypeTest,
			Message: "n",
		})
		require.NoError(t, err)
	}

	count, err := svc.GetUnreadCount(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	updated, err := svc.MarkAllAsRead(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	count, err = svc.GetUnreadCount(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestMarkAsReadScopedToOwner(t *testing.T) {
	svc, _ := newNotificationFixture()

	n, err := svc.CreateNotification(context.Background(), models.NotificationDraft{
		UserID:  "u1",
		Type:    models.NotificationTypeTest,
		Message: "n",
	})
	require.NoError(t, err)

	// Another user cannot mutate it.
	err = svc.MarkAsRead(context.Background(), n.ID, "u2")
	assert.True(t, utils.IsNotFound(err))

	require.NoError(t, svc.MarkAsRead(context.Background(), n.ID, "u1"))
}

func TestDeleteNotificationScopedToOwner(t *testing.T) {
	svc, _ := newNotificationFixture()

	n, err := svc.CreateNotification(context.Background(), models.NotificationDraft{
		UserID:  "u1",
		Type:    models.NotificationTypeTest,
		Message: "n",
	})
	require.NoError(t, err)

	err = svc.DeleteNotification(context.Background(), n.ID, "u2")
	assert.True(t, utils.IsNotFound(err))

	require.NoError(t, svc.DeleteNotification(context.Background(), n.ID, "u1"))

	err = svc.DeleteNotification(context.Background(), n.ID, "u1")
	assert.True(t, utils.IsNotFound(err))
}

func TestDeleteAllNotifications(t *testing.T) {
	svc, _ := newNotificationFixture()

	for _, user := range []string{"u1", "u1", "u2"} {
		_, err := svc.CreateNotification(context.Background(), models.NotificationDraft{
			UserID:  user,
			Type:    models.NotificationTypeTest,
			Message: "n",
		})
		require.NoError(t, err)
	}

	deleted, err := svc.DeleteAllNotifications(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := svc.GetNotifications(context.Background(), "u2", 0, false)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestGetNotificationsUnreadOnly(t *testing.T) {
	svc, _ := newNotificationFixture()

	first, err := svc.CreateNotification(context.Background(), models.NotificationDraft{
		UserID: "u1", Type: models.NotificationTypeTest, Message: "a",
	})
	require.NoError(t, err)
	_, err = svc.CreateNotification(context.Background(), models.NotificationDraft{
		UserID: "u1", Type: models.NotificationTypeTest, Message: "b",
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkAsRead(context.Background(), first.ID, "u1"))

	unread, err := svc.GetNotifications(context.Background(), "u1", 0, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "b", unread[0].Message)
}
