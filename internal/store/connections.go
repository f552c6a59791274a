package store

import (
	"time"

	"github.com/universal-inbox/universal-inbox/internal/models"
)

// CreateConnection inserts a new integration connection. Returns
// ErrConnectionConflict when the user already has a connection for the same
// provider kind.
func (s *Store) CreateConnection(conn *models.IntegrationConnection) error {
	var count int64
	s.db.Model(&models.IntegrationConnection{}).
		Where("user_id = ? AND provider_kind = ?", conn.UserID, conn.ProviderKind).
		Count(&count)
	if count > 0 {
		return ErrConnectionConflict
	}
	return s.db.Create(conn).Error
}

// GetConnectionByID fetches a connection by primary key.
func (s *Store) GetConnectionByID(id string) (*models.IntegrationConnection, error) {
	var conn models.IntegrationConnection
	if err := s.db.First(&conn, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &conn, nil
}

// GetValidatedConnection returns the single validated connection for a
// (user, provider kind) pair. Connections in "created" or "failing" status
// are not addressed by sync lookups.
func (s *Store) GetValidatedConnection(
	userID string,
	kind models.ProviderKind,
) (*models.IntegrationConnection, error) {
	var conn models.IntegrationConnection
	err := s.db.
		Where("user_id = ? AND provider_kind = ? AND status = ?",
			userID, kind, models.ConnectionStatusValidated).
		First(&conn).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &conn, nil
}

// ListConnections returns all connections owned by a user.
func (s *Store) ListConnections(userID string) ([]models.IntegrationConnection, error) {
	conns := []models.IntegrationConnection{}
	if err := s.db.Where("user_id = ?", userID).Order("created_at").Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// UpdateConnectionStatus transitions a connection's status and failure
// message, but only when either actually differs from the stored row (the
// optimistic per-row condition; concurrent identical transitions are
// no-ops). Returns whether a row was modified.
func (s *Store) UpdateConnectionStatus(
	id, status string,
	failureMessage *string,
) (bool, error) {
	changed := s.db.Where("status <> ?", status)
	if failureMessage == nil {
		changed = changed.Or("failure_message IS NOT NULL")
	} else {
		changed = changed.Or("failure_message IS NULL OR failure_message <> ?", *failureMessage)
	}

	res := s.db.Model(&models.IntegrationConnection{}).
		Where("id = ?", id).
		Where(changed).
		Updates(map[string]any{
			"status":          status,
			"failure_message": failureMessage,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateConnectionProviderIdentity refreshes the scope/identity snapshot
// reported by the broker.
func (s *Store) UpdateConnectionProviderIdentity(
	id, providerUserID string,
	scopes []string,
) error {
	conn, err := s.GetConnectionByID(id)
	if err != nil {
		return err
	}
	conn.ProviderUserID = providerUserID
	conn.RegisteredOAuthScopes = scopes
	return s.db.Save(conn).Error
}

// SetSyncStarted records the start of a sync pass.
func (s *Store) SetSyncStarted(id string, startedAt time.Time) error {
	return s.db.Model(&models.IntegrationConnection{}).
		Where("id = ?", id).
		Update("last_sync_started_at", startedAt).Error
}

// SetSyncFailure records a sync failure message without touching Status.
func (s *Store) SetSyncFailure(id string, message *string) error {
	return s.db.Model(&models.IntegrationConnection{}).
		Where("id = ?", id).
		Update("last_sync_failure_message", message).Error
}

// UpdateConnectionConfig persists a new provider config.
func (s *Store) UpdateConnectionConfig(id string, config models.ProviderConfig) error {
	conn, err := s.GetConnectionByID(id)
	if err != nil {
		return err
	}
	conn.Config = config
	return s.db.Save(conn).Error
}

// UpdateConnectionContext persists (or clears, with nil) the cached provider
// context.
func (s *Store) UpdateConnectionContext(id string, context *models.ProviderContext) error {
	conn, err := s.GetConnectionByID(id)
	if err != nil {
		return err
	}
	conn.Context = context
	return s.db.Save(conn).Error
}
