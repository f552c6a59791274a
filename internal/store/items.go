package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/universal-inbox/universal-inbox/internal/models"
)

// UpsertItem creates or updates the canonical item addressed by
// (source_id, integration_connection_id). Returns the stored row and whether
// the write actually changed persisted state; a re-sync of byte-identical
// upstream data reports false.
func (s *Store) UpsertItem(item *models.ThirdPartyItem) (*models.ThirdPartyItem, bool, error) {
	var existing models.ThirdPartyItem
	err := s.db.
		Where("source_id = ? AND integration_connection_id = ?",
			item.SourceID, item.IntegrationConnectionID).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.db.Create(item).Error; err != nil {
			return nil, false, err
		}
		return item, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	if existing.ContentEqual(item) {
		return &existing, false, nil
	}

	existing.Kind = item.Kind
	existing.Data = item.Data
	existing.SourceItemID = item.SourceItemID
	if err := s.db.Save(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, true, nil
}

// GetItemBySource fetches the item addressed by its provider-native key
// within one connection.
func (s *Store) GetItemBySource(sourceID, integrationConnectionID string) (*models.ThirdPartyItem, error) {
	var item models.ThirdPartyItem
	err := s.db.
		Where("source_id = ? AND integration_connection_id = ?", sourceID, integrationConnectionID).
		First(&item).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &item, nil
}

// GetItemByID fetches an item by primary key.
func (s *Store) GetItemByID(id string) (*models.ThirdPartyItem, error) {
	var item models.ThirdPartyItem
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &item, nil
}

// GetStaleItems returns the previously synced items of the given kinds for a
// user whose source id is not in the currently fetched set and whose derived
// state is not yet settled: either the derived task is still active, or the
// item never grew a task and its notification is not yet deleted. These are
// the items that disappeared upstream and must be marked done by the
// staleness sweep.
func (s *Store) GetStaleItems(
	userID string,
	kinds []models.ItemKind,
	activeSourceIDs []string,
) ([]models.ThirdPartyItem, error) {
	query := s.db.
		Select("third_party_items.*").
		Joins("LEFT JOIN tasks ON tasks.source_item_id = third_party_items.id").
		Joins("LEFT JOIN notifications ON notifications.source_item_id = third_party_items.id").
		Where("third_party_items.user_id = ?", userID).
		Where("third_party_items.kind IN ?", kinds).
		Where(s.db.
			Where("tasks.status = ?", models.TaskStatusActive).
			Or("tasks.id IS NULL AND notifications.id IS NOT NULL AND notifications.status <> ?",
				models.NotificationStatusDeleted))
	if len(activeSourceIDs) > 0 {
		query = query.Where("third_party_items.source_id NOT IN ?", activeSourceIDs)
	}

	var items []models.ThirdPartyItem
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
