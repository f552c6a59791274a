package models

import (
	"time"
)

// ProviderKind identifies an upstream integration provider.
type ProviderKind string

const (
	ProviderGithub         ProviderKind = "github"
	ProviderLinear         ProviderKind = "linear"
	ProviderGoogleCalendar ProviderKind = "google_calendar"
	ProviderGoogleDrive    ProviderKind = "google_drive"
	ProviderGoogleMail     ProviderKind = "google_mail"
	ProviderNotion         ProviderKind = "notion"
	ProviderSlack          ProviderKind = "slack"
	ProviderTodoist        ProviderKind = "todoist"
	ProviderTickTick       ProviderKind = "ticktick"
)

// KnownProviderKinds lists every provider kind the core understands.
var KnownProviderKinds = []ProviderKind{
	ProviderGithub,
	ProviderLinear,
	ProviderGoogleCalendar,
	ProviderGoogleDrive,
	ProviderGoogleMail,
	ProviderNotion,
	ProviderSlack,
	ProviderTodoist,
	ProviderTickTick,
}

func (k ProviderKind) String() string { return string(k) }

// IsValid reports whether k is a known provider kind.
func (k ProviderKind) IsValid() bool {
	for _, known := range KnownProviderKinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsTaskService reports whether the provider natively hosts tasks.
func (k ProviderKind) IsTaskService() bool {
	return k == ProviderTodoist || k == ProviderTickTick
}

// IsNotificationService reports whether the provider produces notifications.
func (k ProviderKind) IsNotificationService() bool {
	switch k {
	case ProviderGithub, ProviderLinear, ProviderGoogleCalendar,
		ProviderGoogleDrive, ProviderGoogleMail, ProviderNotion, ProviderSlack:
		return true
	}
	return false
}

// ProviderConfig holds the per-connection feature toggles and task creation
// defaults. A single flat shape covers every provider; irrelevant fields are
// left at their zero value.
type ProviderConfig struct {
	SyncNotificationsEnabled        bool         `json:"sync_notifications_enabled"`
	SyncTasksEnabled                bool         `json:"sync_tasks_enabled"`
	CreateNotificationFromInboxTask bool         `json:"create_notification_from_inbox_task"`
	SyncedLabel                     string       `json:"synced_label,omitempty"`
	TargetProject                   string       `json:"target_project,omitempty"`
	DefaultPriority                 TaskPriority `json:"default_priority,omitempty"`
	DefaultDueAt                    *time.Time   `json:"default_due_at,omitempty"`
}

// DefaultProviderConfig returns the config a freshly created connection starts
// with for the given provider kind.
func DefaultProviderConfig(kind ProviderKind) ProviderConfig {
	return ProviderConfig{
		SyncNotificationsEnabled: kind.IsNotificationService(),
		SyncTasksEnabled:         kind.IsTaskService(),
	}
}

// Equal reports whether two configs are identical field for field.
func (c ProviderConfig) Equal(other ProviderConfig) bool {
	if c.SyncNotificationsEnabled != other.SyncNotificationsEnabled ||
		c.SyncTasksEnabled != other.SyncTasksEnabled ||
		c.CreateNotificationFromInboxTask != other.CreateNotificationFromInboxTask ||
		c.SyncedLabel != other.SyncedLabel ||
		c.TargetProject != other.TargetProject ||
		c.DefaultPriority != other.DefaultPriority {
		return false
	}
	if c.DefaultDueAt == nil || other.DefaultDueAt == nil {
		return c.DefaultDueAt == other.DefaultDueAt
	}
	return c.DefaultDueAt.Equal(*other.DefaultDueAt)
}

// SyncShapeChanged reports whether the change from old to new alters which
// upstream records are synced or how they are projected. When true, cached
// provider context and previously synced notifications are stale and must be
// rebuilt from scratch on the next sync.
func SyncShapeChanged(old, new ProviderConfig) bool {
	return old.SyncedLabel != new.SyncedLabel ||
		old.TargetProject != new.TargetProject ||
		old.SyncNotificationsEnabled != new.SyncNotificationsEnabled ||
		old.SyncTasksEnabled != new.SyncTasksEnabled
}

// ProviderContext caches provider-side metadata resolved during syncs, e.g.
// the id of the label configured in SyncedLabel. It is invalidated whenever
// the sync shape of the connection config changes.
type ProviderContext struct {
	ResolvedLabelID string `json:"resolved_label_id,omitempty"`
	InboxProjectID  string `json:"inbox_project_id,omitempty"`
}
