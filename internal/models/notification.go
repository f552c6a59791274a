package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification status constants
const (
	NotificationStatusUnread       = "unread"
	NotificationStatusRead         = "read"
	NotificationStatusDeleted      = "deleted"
	NotificationStatusUnsubscribed = "unsubscribed"
)

// Notification is the inbox entry derived from a task or directly from a
// provider item when the provider has no task concept.
type Notification struct {
	ID     string `gorm:"primaryKey"     json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`

	SourceItemID string          `gorm:"not null;uniqueIndex"    json:"source_item_id"`
	SourceItem   *ThirdPartyItem `gorm:"foreignKey:SourceItemID" json:"source_item,omitempty"`

	Title  string       `gorm:"not null"                        json:"title"`
	Kind   ProviderKind `gorm:"not null;index"                  json:"kind"`
	Status string       `gorm:"not null;default:'unread';index" json:"status"`

	// TaskID back-references the task this notification was derived from,
	// when there is one.
	TaskID *string `json:"task_id,omitempty"`
	Task   *Task   `gorm:"foreignKey:TaskID" json:"task,omitempty"`

	LastReadAt   *time.Time `json:"last_read_at,omitempty"`
	SnoozedUntil *time.Time `json:"snoozed_until,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NewNotificationFromItem derives an unread notification from a canonical
// item. Items already in the done state map to a deleted notification so the
// staleness sweep clears the inbox entry as well.
func NewNotificationFromItem(item *ThirdPartyItem) *Notification {
	status := NotificationStatusUnread
	if item.Data.Done {
		status = NotificationStatusDeleted
	}
	return &Notification{
		ID:           uuid.New().String(),
		UserID:       item.UserID,
		SourceItemID: item.ID,
		Title:        item.Data.Title,
		Kind:         item.Kind.ProviderKind(),
		Status:       status,
	}
}

// NewNotificationFromTask derives a notification from a task, keeping the
// task back-reference so inbox actions can reach the task.
func NewNotificationFromTask(task *Task, kind ProviderKind) *Notification {
	status := NotificationStatusUnread
	if task.Status != TaskStatusActive {
		status = NotificationStatusDeleted
	}
	return &Notification{
		ID:           uuid.New().String(),
		UserID:       task.UserID,
		SourceItemID: task.SourceItemID,
		Title:        task.Title,
		Kind:         kind,
		Status:       status,
		TaskID:       &task.ID,
	}
}
