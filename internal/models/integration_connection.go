package models

import (
	"time"

	"github.com/google/uuid"
)

// Integration connection status constants
const (
	ConnectionStatusCreated   = "created"
	ConnectionStatusValidated = "validated"
	ConnectionStatusFailing   = "failing"
)

// IntegrationConnection represents the link between a user and an upstream
// provider, addressed at the OAuth broker by ConnectionID. At most one
// connection exists per (user, provider kind); sync lookups only consider
// rows in "validated" status.
type IntegrationConnection struct {
	ID           string       `gorm:"primaryKey"                                                 json:"id"`
	UserID       string       `gorm:"not null;uniqueIndex:idx_connection_user_provider,priority:1" json:"user_id"`
	ProviderKind ProviderKind `gorm:"not null;uniqueIndex:idx_connection_user_provider,priority:2" json:"provider_kind"`

	// ConnectionID is the opaque handle under which the broker stores the
	// OAuth grant. It never changes for the lifetime of the row.
	ConnectionID string `gorm:"not null;index" json:"connection_id"`

	Status         string  `gorm:"not null;default:'created';index" json:"status"`
	FailureMessage *string `gorm:"type:text"                        json:"failure_message,omitempty"`

	// Snapshot of what the broker reported at the last successful check
	RegisteredOAuthScopes []string `gorm:"serializer:json" json:"registered_oauth_scopes,omitempty"`
	ProviderUserID        string   `json:"provider_user_id,omitempty"`

	// Sync bookkeeping; never affects Status
	LastSyncStartedAt      *time.Time `json:"last_sync_started_at,omitempty"`
	LastSyncFailureMessage *string    `gorm:"type:text" json:"last_sync_failure_message,omitempty"`

	Config  ProviderConfig   `gorm:"serializer:json" json:"config"`
	Context *ProviderContext `gorm:"serializer:json" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (IntegrationConnection) TableName() string {
	return "integration_connections"
}

// NewIntegrationConnection builds a connection in "created" status with a
// fresh broker connection handle.
func NewIntegrationConnection(userID string, kind ProviderKind) *IntegrationConnection {
	return &IntegrationConnection{
		ID:           uuid.New().String(),
		UserID:       userID,
		ProviderKind: kind,
		ConnectionID: uuid.New().String(),
		Status:       ConnectionStatusCreated,
		Config:       DefaultProviderConfig(kind),
	}
}

// IsConnected reports whether the connection is usable for syncing.
func (c *IntegrationConnection) IsConnected() bool {
	return c.Status == ConnectionStatusValidated
}

// IsConnectedTaskService reports whether the connection is usable as a task
// sink/source.
func (c *IntegrationConnection) IsConnectedTaskService() bool {
	return c.IsConnected() && c.ProviderKind.IsTaskService()
}
