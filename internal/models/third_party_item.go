package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ItemKind identifies the shape of a third-party item's payload.
type ItemKind string

const (
	ItemKindTodoistItem         ItemKind = "todoist_item"
	ItemKindTickTickTask        ItemKind = "ticktick_task"
	ItemKindSlackStar           ItemKind = "slack_star"
	ItemKindSlackReaction       ItemKind = "slack_reaction"
	ItemKindSlackThread         ItemKind = "slack_thread"
	ItemKindLinearIssue         ItemKind = "linear_issue"
	ItemKindLinearNotification  ItemKind = "linear_notification"
	ItemKindGithubNotification  ItemKind = "github_notification"
	ItemKindGoogleMailThread    ItemKind = "google_mail_thread"
	ItemKindGoogleCalendarEvent ItemKind = "google_calendar_event"
)

func (k ItemKind) String() string { return string(k) }

// ProviderKind returns the provider a given item kind originates from.
func (k ItemKind) ProviderKind() ProviderKind {
	switch k {
	case ItemKindTodoistItem:
		return ProviderTodoist
	case ItemKindTickTickTask:
		return ProviderTickTick
	case ItemKindSlackStar, ItemKindSlackReaction, ItemKindSlackThread:
		return ProviderSlack
	case ItemKindLinearIssue, ItemKindLinearNotification:
		return ProviderLinear
	case ItemKindGithubNotification:
		return ProviderGithub
	case ItemKindGoogleMailThread:
		return ProviderGoogleMail
	case ItemKindGoogleCalendarEvent:
		return ProviderGoogleCalendar
	}
	return ""
}

// ItemKindsForProvider returns the item kinds a provider can produce.
func ItemKindsForProvider(kind ProviderKind) []ItemKind {
	switch kind {
	case ProviderTodoist:
		return []ItemKind{ItemKindTodoistItem}
	case ProviderTickTick:
		return []ItemKind{ItemKindTickTickTask}
	case ProviderSlack:
		return []ItemKind{ItemKindSlackStar, ItemKindSlackReaction, ItemKindSlackThread}
	case ProviderLinear:
		return []ItemKind{ItemKindLinearIssue, ItemKindLinearNotification}
	case ProviderGithub:
		return []ItemKind{ItemKindGithubNotification}
	case ProviderGoogleMail:
		return []ItemKind{ItemKindGoogleMailThread}
	case ProviderGoogleCalendar:
		return []ItemKind{ItemKindGoogleCalendarEvent}
	}
	return nil
}

// ItemData is the canonical projection of a provider-native record. Adapters
// fill the typed fields during conversion; Raw keeps the provider payload
// snapshot for change detection and detail rendering.
type ItemData struct {
	Title       string          `json:"title"`
	Body        string          `json:"body,omitempty"`
	Done        bool            `json:"done"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Priority    TaskPriority    `json:"priority,omitempty"`
	DueAt       *time.Time      `json:"due_at,omitempty"`
	HTMLURL     string          `json:"html_url,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// ThirdPartyItem is the provider-agnostic record every adapter converges
// into. One row exists per (source_id, integration_connection_id); rows are
// updated in place when the provider payload changes and never deleted.
type ThirdPartyItem struct {
	ID string `gorm:"primaryKey" json:"id"`

	// SourceID is the provider-native primary key, unique per connection.
	SourceID string   `gorm:"not null;uniqueIndex:idx_item_source_connection,priority:1" json:"source_id"`
	Kind     ItemKind `gorm:"not null;index"                                             json:"kind"`
	Data     ItemData `gorm:"serializer:json"                                            json:"data"`

	UserID                  string `gorm:"not null;index"                                             json:"user_id"`
	IntegrationConnectionID string `gorm:"not null;uniqueIndex:idx_item_source_connection,priority:2" json:"integration_connection_id"`

	// SourceItemID links multi-hop provenance, e.g. a calendar event item
	// derived from a mail thread item.
	SourceItemID *string         `json:"source_item_id,omitempty"`
	SourceItem   *ThirdPartyItem `gorm:"foreignKey:SourceItemID" json:"source_item,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ThirdPartyItem) TableName() string {
	return "third_party_items"
}

// NewThirdPartyItem builds a canonical item for a fetched provider record.
func NewThirdPartyItem(
	sourceID string,
	kind ItemKind,
	data ItemData,
	userID, integrationConnectionID string,
) *ThirdPartyItem {
	return &ThirdPartyItem{
		ID:                      uuid.New().String(),
		SourceID:                sourceID,
		Kind:                    kind,
		Data:                    data,
		UserID:                  userID,
		IntegrationConnectionID: integrationConnectionID,
	}
}

// ContentEqual reports whether the two items carry the same upstream state.
// Identity fields (ID, timestamps) are excluded so that a re-fetch of
// unchanged provider data compares equal to the stored row.
func (i *ThirdPartyItem) ContentEqual(other *ThirdPartyItem) bool {
	if other == nil {
		return false
	}
	return i.SourceID == other.SourceID &&
		i.Kind == other.Kind &&
		i.UserID == other.UserID &&
		i.IntegrationConnectionID == other.IntegrationConnectionID &&
		i.Data.Title == other.Data.Title &&
		i.Data.Body == other.Data.Body &&
		i.Data.Done == other.Data.Done &&
		i.Data.Priority == other.Data.Priority &&
		timePtrEqual(i.Data.DueAt, other.Data.DueAt) &&
		i.Data.HTMLURL == other.Data.HTMLURL &&
		bytes.Equal(i.Data.Raw, other.Data.Raw)
}

// MarkedAsDone returns a copy of the item with its payload flipped to the
// completed state. Used by the staleness sweep to propagate upstream
// disappearance through the regular cascade.
func (i *ThirdPartyItem) MarkedAsDone(now time.Time) *ThirdPartyItem {
	done := *i
	done.Data.Done = true
	done.Data.CompletedAt = &now
	done.UpdatedAt = now
	return &done
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
