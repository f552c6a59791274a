package models

import (
	"time"

	"github.com/google/uuid"
)

// Task status constants
const (
	TaskStatusActive  = "active"
	TaskStatusDone    = "done"
	TaskStatusDeleted = "deleted"
)

// TaskPriority follows the Todoist convention: 1 is the highest, 4 the
// lowest and the default.
type TaskPriority int

const (
	TaskPriorityP1 TaskPriority = 1
	TaskPriorityP2 TaskPriority = 2
	TaskPriorityP3 TaskPriority = 3
	TaskPriorityP4 TaskPriority = 4
)

// DefaultTaskPriority is applied when a provider supplies none.
const DefaultTaskPriority = TaskPriorityP4

// Task is the canonical task derived from exactly one ThirdPartyItem.
type Task struct {
	ID     string `gorm:"primaryKey"     json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`

	// SourceItemID is the ThirdPartyItem this task was derived from.
	// Exactly one task may exist per distinct source item.
	SourceItemID string          `gorm:"not null;uniqueIndex"      json:"source_item_id"`
	SourceItem   *ThirdPartyItem `gorm:"foreignKey:SourceItemID"   json:"source_item,omitempty"`

	// SinkItemID points at the item materializing this task in a second,
	// task-capable provider. Set at most once, by the sink linker.
	SinkItemID *string         `json:"sink_item_id,omitempty"`
	SinkItem   *ThirdPartyItem `gorm:"foreignKey:SinkItemID" json:"sink_item,omitempty"`

	Title       string       `gorm:"not null"                         json:"title"`
	Body        string       `gorm:"type:text"                        json:"body,omitempty"`
	Status      string       `gorm:"not null;default:'active';index"  json:"status"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Priority    TaskPriority `gorm:"not null;default:4"               json:"priority"`
	DueAt       *time.Time   `json:"due_at,omitempty"`
	Tags        []string     `gorm:"serializer:json"                  json:"tags,omitempty"`
	Project     string       `json:"project,omitempty"`
	IsRecurring bool         `json:"is_recurring"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// NewTaskFromItem derives a task from a canonical item. Creation defaults
// (project, priority, due date) apply only here; later refreshes must not
// overwrite user edits with them again.
func NewTaskFromItem(item *ThirdPartyItem, defaults *TaskCreationConfig) *Task {
	task := &Task{
		ID:           uuid.New().String(),
		UserID:       item.UserID,
		SourceItemID: item.ID,
		Title:        item.Data.Title,
		Body:         item.Data.Body,
		Status:       TaskStatusActive,
		Priority:     item.Data.Priority,
		DueAt:        item.Data.DueAt,
	}
	if item.Data.Done {
		task.Status = TaskStatusDone
		task.CompletedAt = item.Data.CompletedAt
	}
	if task.Priority == 0 {
		task.Priority = DefaultTaskPriority
	}
	if defaults != nil {
		if defaults.ProjectName != "" {
			task.Project = defaults.ProjectName
		}
		if defaults.Priority != 0 {
			task.Priority = defaults.Priority
		}
		if task.DueAt == nil {
			task.DueAt = defaults.DueAt
		}
	}
	return task
}

// TaskCreationConfig carries the provider policy defaults applied when a
// task is first created from an item.
type TaskCreationConfig struct {
	ProjectName string
	DueAt       *time.Time
	Priority    TaskPriority
}

// TaskCreation is the request shape handed to a provider adapter when a
// task must be created provider-side (sink linking).
type TaskCreation struct {
	Title    string
	Body     string
	Project  string
	Priority TaskPriority
	DueAt    *time.Time
}
