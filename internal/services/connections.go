package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/universal-inbox/universal-inbox/internal/core"
	"github.com/universal-inbox/universal-inbox/internal/models"
	"github.com/universal-inbox/universal-inbox/internal/store"
)

// IntegrationConnectionService owns the per-user, per-provider connection
// lifecycle: creation, verification against the OAuth broker, disconnection,
// sync bookkeeping and config updates.
//
// Status state machine:
//
//	created --verify ok--> validated --broker unknown--> failing --verify ok--> validated
//	validated|failing --disconnect--> created
//
// Sync bookkeeping (StartSync/ErrorSync/ResetErrorSync) never changes
// Status; "failing" is reserved for credential-level failures.
type IntegrationConnectionService struct {
	store    *store.Store
	broker   core.ConnectionBroker
	recorder core.Recorder
}

func NewIntegrationConnectionService(
	s *store.Store,
	b core.ConnectionBroker,
	recorder core.Recorder,
) *IntegrationConnectionService {
	return &IntegrationConnectionService{
		store:    s,
		broker:   b,
		recorder: recorder,
	}
}

// CreateConnection registers a new connection in "created" status. The user
// completes the OAuth flow against the broker out of band, then calls
// Verify.
func (s *IntegrationConnectionService) CreateConnection(
	userID string,
	kind models.ProviderKind,
) (*models.IntegrationConnection, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown provider kind %q", kind)
	}
	conn := models.NewIntegrationConnection(userID, kind)
	if err := s.store.CreateConnection(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// ListConnections returns the user's connections.
func (s *IntegrationConnectionService) ListConnections(userID string) ([]models.IntegrationConnection, error) {
	return s.store.ListConnections(userID)
}

// ResolveAccessToken looks up the single validated connection for
// (user, provider kind) and asks the broker for live credentials.
//
// A missing validated connection yields ErrNotFound. A broker that no
// longer knows the connection handle flips the connection to "failing"
// with the fixed user-facing message and yields ErrRecoverable, so the
// caller retries the sync job later instead of crashing it.
func (s *IntegrationConnectionService) ResolveAccessToken(
	ctx context.Context,
	userID string,
	kind models.ProviderKind,
) (string, *models.IntegrationConnection, error) {
	conn, err := s.store.GetValidatedConnection(userID, kind)
	if errors.Is(err, store.ErrRecordNotFound) {
		return "", nil, fmt.Errorf("%w: no validated %s connection for user", ErrNotFound, kind)
	}
	if err != nil {
		return "", nil, err
	}

	brokerConn, err := s.broker.GetConnection(ctx, conn.ConnectionID, kind.String())
	if err != nil {
		return "", nil, recoverable(err)
	}
	if brokerConn == nil {
		s.markFailing(conn)
		return "", nil, fmt.Errorf("%w: broker does not know connection %s", ErrRecoverable, conn.ConnectionID)
	}

	return brokerConn.Credentials.AccessToken, conn, nil
}

// Verify re-checks a connection against the broker. On success the
// connection becomes "validated" with the failure message cleared and the
// scope/identity snapshot refreshed; when the broker does not know the
// handle it becomes "failing". A missing connection id is a no-op.
func (s *IntegrationConnectionService) Verify(
	ctx context.Context,
	connectionID, userID string,
) (UpdateStatus[models.IntegrationConnection], error) {
	noop := UpdateStatus[models.IntegrationConnection]{}

	conn, err := s.store.GetConnectionByID(connectionID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return noop, nil
	}
	if err != nil {
		return noop, err
	}
	if conn.UserID != userID {
		return noop, fmt.Errorf("%w: connection %s does not belong to user", ErrForbidden, connectionID)
	}

	brokerConn, err := s.broker.GetConnection(ctx, conn.ConnectionID, conn.ProviderKind.String())
	if err != nil {
		return noop, recoverable(err)
	}

	if brokerConn == nil {
		return s.transition(conn, models.ConnectionStatusFailing, failureMessage())
	}

	if err := s.store.UpdateConnectionProviderIdentity(
		conn.ID, brokerConn.ProviderUserID, brokerConn.GrantedScopes,
	); err != nil {
		return noop, err
	}
	return s.transition(conn, models.ConnectionStatusValidated, nil)
}

// Disconnect revokes the broker-side grant and resets the connection to
// "created", clearing failure state. Idempotent: disconnecting a connection
// the broker no longer knows still succeeds locally.
func (s *IntegrationConnectionService) Disconnect(
	ctx context.Context,
	connectionID, userID string,
) (UpdateStatus[models.IntegrationConnection], error) {
	noop := UpdateStatus[models.IntegrationConnection]{}

	conn, err := s.store.GetConnectionByID(connectionID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return noop, nil
	}
	if err != nil {
		return noop, err
	}
	if conn.UserID != userID {
		return noop, fmt.Errorf("%w: connection %s does not belong to user", ErrForbidden, connectionID)
	}

	if err := s.broker.DeleteConnection(ctx, conn.ConnectionID, conn.ProviderKind.String()); err != nil {
		return noop, recoverable(err)
	}

	if err := s.store.SetSyncFailure(conn.ID, nil); err != nil {
		return noop, err
	}
	return s.transition(conn, models.ConnectionStatusCreated, nil)
}

// StartSync records the start of a sync pass. Bookkeeping only.
func (s *IntegrationConnectionService) StartSync(connectionID string, at time.Time) error {
	return s.store.SetSyncStarted(connectionID, at)
}

// ErrorSync records a sync failure so it is visible to the user without
// flipping the connection to "failing".
func (s *IntegrationConnectionService) ErrorSync(connectionID, message string) error {
	return s.store.SetSyncFailure(connectionID, &message)
}

// ResetErrorSync clears the sync failure message after a successful pass.
func (s *IntegrationConnectionService) ResetErrorSync(connectionID string) error {
	return s.store.SetSyncFailure(connectionID, nil)
}

// UpdateConfig replaces a connection's provider config. When the change
// alters the synced shape (label, project, toggles), the cached provider
// context is invalidated and previously synced notifications for the
// provider are purged, so the next sync rebuilds state from scratch rather
// than mixing config epochs.
func (s *IntegrationConnectionService) UpdateConfig(
	connectionID string,
	newConfig models.ProviderConfig,
	userID string,
) (UpdateStatus[models.ProviderConfig], error) {
	noop := UpdateStatus[models.ProviderConfig]{}

	conn, err := s.store.GetConnectionByID(connectionID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return noop, nil
	}
	if err != nil {
		return noop, err
	}
	if conn.UserID != userID {
		return noop, fmt.Errorf("%w: connection %s does not belong to user", ErrForbidden, connectionID)
	}

	oldConfig := conn.Config
	if oldConfig.Equal(newConfig) {
		return UpdateStatus[models.ProviderConfig]{Updated: false, Result: &oldConfig}, nil
	}

	if err := s.store.UpdateConnectionConfig(conn.ID, newConfig); err != nil {
		return noop, err
	}

	if models.SyncShapeChanged(oldConfig, newConfig) {
		if err := s.store.UpdateConnectionContext(conn.ID, nil); err != nil {
			return noop, err
		}
		if _, err := s.store.PurgeNotifications(conn.UserID, conn.ProviderKind); err != nil {
			return noop, err
		}
	}

	return UpdateStatus[models.ProviderConfig]{Updated: true, Result: &newConfig}, nil
}

// UpdateContext persists cached provider metadata resolved during a sync.
func (s *IntegrationConnectionService) UpdateContext(
	connectionID string,
	context *models.ProviderContext,
) error {
	return s.store.UpdateConnectionContext(connectionID, context)
}

// WithStore returns a copy of the service bound to a transactional store.
func (s *IntegrationConnectionService) WithStore(tx *store.Store) *IntegrationConnectionService {
	return &IntegrationConnectionService{store: tx, broker: s.broker, recorder: s.recorder}
}

func (s *IntegrationConnectionService) markFailing(conn *models.IntegrationConnection) {
	// Best effort; the caller already returns a recoverable error.
	_, _ = s.transition(conn, models.ConnectionStatusFailing, failureMessage())
}

func (s *IntegrationConnectionService) transition(
	conn *models.IntegrationConnection,
	status string,
	message *string,
) (UpdateStatus[models.IntegrationConnection], error) {
	from := conn.Status
	updated, err := s.store.UpdateConnectionStatus(conn.ID, status, message)
	if err != nil {
		return UpdateStatus[models.IntegrationConnection]{}, err
	}
	if updated && s.recorder != nil {
		s.recorder.RecordConnectionTransition(conn.ProviderKind.String(), from, status)
	}

	refreshed, err := s.store.GetConnectionByID(conn.ID)
	if err != nil {
		return UpdateStatus[models.IntegrationConnection]{}, err
	}
	return UpdateStatus[models.IntegrationConnection]{Updated: updated, Result: refreshed}, nil
}

func failureMessage() *string {
	msg := UnknownBrokerConnectionMessage
	return &msg
}
