package services

import (
	"github.com/universal-inbox/universal-inbox/internal/models"
	"github.com/universal-inbox/universal-inbox/internal/store"
)

// syncItem runs the item -> task -> notification cascade for a single
// fetched item inside the sync transaction. Each layer propagates only when
// the layer above reports a modification; an unchanged item short-circuits
// the whole cascade.
func (s *SyncService) syncItem(
	tx *store.Store,
	conn *models.IntegrationConnection,
	item *models.ThirdPartyItem,
) (*ItemCreationResult, error) {
	stored, modified, err := tx.UpsertItem(item)
	if err != nil {
		return nil, err
	}
	itemStatus := newUpsertStatus(stored, modified)
	s.recordUpsert(conn.ProviderKind, "item", modified)

	result := &ItemCreationResult{Item: itemStatus.ModifiedValue()}
	changedItem := itemStatus.ModifiedValue()
	if changedItem == nil {
		return result, nil
	}

	kind := conn.ProviderKind
	defaults := taskCreationDefaults(conn)
	wantTask := (kind.IsTaskService() && conn.Config.SyncTasksEnabled) || defaults != nil

	var taskStatus UpsertStatus[models.Task]
	if wantTask {
		candidate := models.NewTaskFromItem(changedItem, defaults)
		task, taskModified, err := tx.UpsertTask(candidate)
		if err != nil {
			return nil, err
		}
		taskStatus = newUpsertStatus(task, taskModified)
		s.recordUpsert(kind, "task", taskModified)
		result.Task = taskStatus.ModifiedValue()
	}

	switch {
	case wantTask:
		// Task services surface an inbox entry only when configured to
		// mirror inbox tasks as notifications, and only when the task layer
		// actually changed.
		changedTask := taskStatus.ModifiedValue()
		if changedTask == nil || !conn.Config.CreateNotificationFromInboxTask {
			return result, nil
		}
		candidate := models.NewNotificationFromTask(changedTask, kind)
		notification, notifModified, err := tx.UpsertNotification(candidate)
		if err != nil {
			return nil, err
		}
		s.recordUpsert(kind, "notification", notifModified)
		if notifModified {
			result.Notification = notification
		}

	case conn.Config.SyncNotificationsEnabled:
		// Notification-only providers derive the inbox entry straight from
		// the item.
		candidate := models.NewNotificationFromItem(changedItem)
		notification, notifModified, err := tx.UpsertNotification(candidate)
		if err != nil {
			return nil, err
		}
		s.recordUpsert(kind, "notification", notifModified)
		if notifModified {
			result.Notification = notification
		}
	}

	return result, nil
}

// taskCreationDefaults returns the creation defaults a connection applies to
// tasks derived from its items, or nil when the connection does not derive
// tasks from a notification provider. Task services manage their own
// projects and priorities, so they never get defaults.
func taskCreationDefaults(conn *models.IntegrationConnection) *models.TaskCreationConfig {
	if conn.ProviderKind.IsTaskService() {
		return nil
	}
	if !conn.Config.SyncTasksEnabled {
		return nil
	}
	return &models.TaskCreationConfig{
		ProjectName: conn.Config.TargetProject,
		DueAt:       conn.Config.DefaultDueAt,
		Priority:    conn.Config.DefaultPriority,
	}
}

func (s *SyncService) recordUpsert(kind models.ProviderKind, layer string, modified bool) {
	if s.recorder == nil || !modified {
		return
	}
	s.recorder.RecordItemUpsert(kind.String(), layer)
}
