package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/universal-inbox/universal-inbox/internal/models"
)

// UpsertTask creates or refreshes the task derived from a source item. On
// first creation the candidate task is stored as-is (creation defaults
// included). On refresh only provider-sourced fields are applied — status,
// completion, due date and tags — so user edits to title, project or
// priority survive later syncs. Returns the stored row and whether the
// write changed persisted state.
func (s *Store) UpsertTask(candidate *models.Task) (*models.Task, bool, error) {
	var existing models.Task
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

	modified := existing.Status != candidate.Status ||
		!timePtrEqual(existing.CompletedAt, candidate.CompletedAt) ||
		!timePtrEqual(existing.DueAt, candidate.DueAt) ||
		!stringSliceEqual(existing.Tags, candidate.Tags)
	if !modified {
		return &existing, false, nil
	}

	existing.Status = candidate.Status
	existing.CompletedAt = candidate.CompletedAt
	existing.DueAt = candidate.DueAt
	existing.Tags = candidate.Tags
	if err := s.db.Save(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, true, nil
}

// GetTaskByID fetches a task by primary key.
func (s *Store) GetTaskByID(id string) (*models.Task, error) {
	var task models.Task
	if err := s.db.First(&task, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &task, nil
}

// GetTaskBySourceItem fetches the task derived from a given item.
func (s *Store) GetTaskBySourceItem(sourceItemID string) (*models.Task, error) {
	var task models.Task
	if err := s.db.First(&task, "source_item_id = ?", sourceItemID).Error; err != nil {
		return nil, translateError(err)
	}
	return &task, nil
}

// SetTaskSinkItem links a sink item to a task, but only when no sink item is
// linked yet. The conditional write makes concurrent linkers race safely:
// exactly one wins, the others get ErrSinkItemAlreadySet.
func (s *Store) SetTaskSinkItem(taskID, sinkItemID string) error {
	res := s.db.Model(&models.Task{}).
		Where("id = ? AND sink_item_id IS NULL", taskID).
		Update("sink_item_id", sinkItemID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSinkItemAlreadySet
	}
	return nil
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
