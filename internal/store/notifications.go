package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/universal-inbox/universal-inbox/internal/models"
)

// UpsertNotification creates or refreshes the notification derived from a
// source item. On refresh only derived fields are applied — title, status
// and the task back-reference — so user inbox state (snooze, read marker)
// survives later syncs. Returns the stored row and whether the write changed
// persisted state.
func (s *Store) UpsertNotification(candidate *models.Notification) (*models.Notification, bool, error) {
	var existing models.Notification
	err := s.db.First(&existing, "source_item_id = ?", candidate.SourceItemID).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.db.Create(candidate).Error; err != nil {
			return nil, false, err
		}
		return candidate, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	// A user who unsubscribed stays unsubscribed; upstream updates must not
	// resurface the notification.
	incomingStatus := candidate.Status
	if existing.Status == models.NotificationStatusUnsubscribed &&
		incomingStatus != models.NotificationStatusDeleted {
		incomingStatus = models.NotificationStatusUnsubscribed
	}

	modified := existing.Title != candidate.Title ||
		existing.Status != incomingStatus ||
		!stringPtrEqual(existing.TaskID, candidate.TaskID)
	if !modified {
		return &existing, false, nil
	}

	existing.Title = candidate.Title
	existing.Status = incomingStatus
	existing.TaskID = candidate.TaskID
	if err := s.db.Save(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, true, nil
}

// GetNotificationBySourceItem fetches the notification derived from an item.
func (s *Store) GetNotificationBySourceItem(sourceItemID string) (*models.Notification, error) {
	var notification models.Notification
	if err := s.db.First(&notification, "source_item_id = ?", sourceItemID).Error; err != nil {
		return nil, translateError(err)
	}
	return &notification, nil
}

// PurgeNotifications deletes all notifications of a provider kind that were
// synced through a connection. Used when a connection's config changes
// shape, so the next sync rebuilds inbox state from scratch instead of
// mixing config epochs.
func (s *Store) PurgeNotifications(userID string, kind models.ProviderKind) (int64, error) {
	res := s.db.
		Where("user_id = ? AND kind = ?", userID, kind).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
