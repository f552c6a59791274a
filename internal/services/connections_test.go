package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/universal-inbox/universal-inbox/internal/models"
	"github.com/universal-inbox/universal-inbox/internal/store"
)

func TestCreateConnection(t *testing.T) {
	env := setupTestEnv(t)

	conn, err := env.connections.CreateConnection("user-1", models.ProviderGithub)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusCreated, conn.Status)
	assert.NotEmpty(t, conn.ConnectionID)
	assert.True(t, conn.Config.SyncNotificationsEnabled)
	assert.False(t, conn.Config.SyncTasksEnabled)

	t.Run("rejects duplicate provider for same user", func(t *testing.T) {
		_, err := env.connections.CreateConnection("user-1", models.ProviderGithub)
		assert.ErrorIs(t, err, store.ErrConnectionConflict)
	})

	t.Run("rejects unknown provider kind", func(t *testing.T) {
		_, err := env.connections.CreateConnection("user-1", models.ProviderKind("jira"))
		assert.Error(t, err)
	})

	t.Run("other users are unaffected", func(t *testing.T) {
		_, err := env.connections.CreateConnection("user-2", models.ProviderGithub)
		assert.NoError(t, err)
	})
}

func TestVerify_TransitionsToValidated(t *testing.T) {
	env := setupTestEnv(t)

	conn, err := env.connections.CreateConnection("user-1", models.ProviderGithub)
	require.NoError(t, err)
	env.broker.add(conn.ConnectionID, "token-1")

	status, err := env.connections.Verify(context.Background(), conn.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, status.Updated)
	assert.Equal(t, models.ConnectionStatusValidated, status.Result.Status)
	assert.Nil(t, status.Result.FailureMessage)
	assert.Equal(t, "provider-user-1", status.Result.ProviderUserID)
	assert.Equal(t, []string{"read", "write"}, status.Result.RegisteredOAuthScopes)
}

func TestVerify_UnknownBrokerConnection(t *testing.T) {
	env := setupTestEnv(t)
	conn := env.createValidatedConnection(t, "user-1", models.ProviderGithub)

	env.broker.remove(conn.ConnectionID)

	status, err := env.connections.Verify(context.Background(), conn.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, status.Updated)
	assert.Equal(t, models.ConnectionStatusFailing, status.Result.Status)
	require.NotNil(t, status.Result.FailureMessage)
	assert.Equal(t, UnknownBrokerConnectionMessage, *status.Result.FailureMessage)
}

func TestVerify_FailingBackToValidatedClearsMessage(t *testing.T) {
	env := setupTestEnv(t)
	conn := env.createValidatedConnection(t, "user-1", models.ProviderGithub)

	// Break the connection, then restore it broker-side.
	env.broker.remove(conn.ConnectionID)
	status, err := env.connections.Verify(context.Background(), conn.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, models.ConnectionStatusFailing, status.Result.Status)

	env.broker.add(conn.ConnectionID, "token-again")
	status, err = env.connections.Verify(context.Background(), conn.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, status.Updated)
	assert.Equal(t, models.ConnectionStatusValidated, status.Result.Status)
	assert.Nil(t, status.Result.FailureMessage)
}

func TestVerify_MissingConnectionIsNoop(t *testing.T) {
	env := setupTestEnv(t)

	status, err := env.connections.Verify(context.Background(), "no-such-id", "user-1")
	require.NoError(t, err)
	assert.False(t, status.Updated)
	assert.Nil(t, status.Result)
}

func TestVerify_OtherUsersConnectionIsForbidden(t *testing.T) {
	env := setupTestEnv(t)
	conn := env.createValidatedConnection(t, "user-1", models.ProviderGithub)

	_, err := env.connections.Verify(context.Background(), conn.ID, "user-2")
	require.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), conn.ID)
}

func TestDisconnect(t *testing.T) {
	env := setupTestEnv(t)
	conn := env.createValidatedConnection(t, "user-1", models.ProviderGithub)

	status, err := env.connections.Disconnect(context.Background(), conn.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, status.Updated)
	assert.Equal(t, models.ConnectionStatusCreated, status.Result.Status)
	assert.Nil(t, status.Result.FailureMessage)
	assert.Equal(t, 1, env.broker.deleteCalls)

	t.Run("disconnecting again is idempotent", func(t *testing.T) {
		status, err := env.connections.Disconnect(context.Background(), conn.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionStatusCreated, status.Result.Status)
	})
}

func TestResolveAccessToken(t *testing.T) {
	env := setupTestEnv(t)
	conn := env.createValidatedConnection(t, "user-1", models.ProviderTodoist)

	token, resolved, err := env.connections.ResolveAccessToken(
		context.Background(), "user-1", models.ProviderTodoist)
	require.NoError(t, err)
	assert.Equal(t, "token-"+conn.ConnectionID, token)
	assert.Equal(t, conn.ID, resolved.ID)
}

func TestResolveAccessToken_NoValidatedConnection(t *testing.T) {
	env := setupTestEnv(t)

	// A connection in created status does not count.
	_, err := env.connections.CreateConnection("user-1", models.ProviderTodoist)
	require.NoError(t, err)

	_, _, err = env.connections.ResolveAccessToken(
		context.Background(), "user-1", models.ProviderTodoist)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveAccessToken_UnknownBrokerConnectionMarksFailing(t *testing.T) {
	env := setupTestEnv(t)
	conn := env.createValidatedConnection(t, "user-1", models.ProviderTodoist)

	env.broker.remove(conn.ConnectionID)

	_, _, err := env.connections.ResolveAccessToken(
		context.Background(), "user-1", models.ProviderTodoist)
	require.ErrorIs(t, err, ErrRecoverable)

	stored, err := env.store.GetConnectionByID(conn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusFailing, stored.Status)
	require.NotNil(t, stored.FailureMessage)
	assert.Equal(t, UnknownBrokerConnectionMessage, *stored.FailureMessage)
}

func TestSyncBookkeepingNeverTouchesStatus(t *testing.T) {
	env := setupTestEnv(t)
	conn := env.createValidatedConnection(t, "user-1", models.ProviderTodoist)

	require.NoError(t, env.connections.StartSync(conn.ID, time.Now()))
	require.NoError(t, env.connections.ErrorSync(conn.ID, "provider timed out"))

	stored, err := env.store.GetConnectionByID(conn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusValidated, stored.Status)
	assert.NotNil(t, stored.LastSyncStartedAt)
	require.NotNil(t, stored.LastSyncFailureMessage)
	assert.Equal(t, "provider timed out", *stored.LastSyncFailureMessage)

	require.NoError(t, env.connections.ResetErrorSync(conn.ID))
	stored, err = env.store.GetConnectionByID(conn.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastSyncFailureMessage)
}

func TestUpdateConfig_NoopWhenEqual(t *testing.T) {
	env := setupTestEnv(t)
	conn := env.createValidatedConnection(t, "user-1", models.ProviderGithub)

	status, err := env.connections.UpdateConfig(conn.ID, conn.Config, "user-1")
	require.NoError(t, err)
	assert.False(t, status.Updated)
}

func TestUpdateConfig_SyncShapeChangePurgesState(t *testing.T) {
	env := setupTestEnv(t)
	adapter := newFakeAdapter(models.ProviderGithub, false)
	env.registry.Register(adapter)
	conn := env.createValidatedConnection(t, "user-1", models.ProviderGithub)

	// Seed a notification through a sync pass.
	adapter.setRecords(fakeRecord{
		sourceID: "gh-1",
		kind:     models.ItemKindGithubNotification,
		data:     models.ItemData{Title: "PR review requested"},
	})
	_, err := env.sync.SyncProvider(context.Background(), "user-1", models.ProviderGithub)
	require.NoError(t, err)

	require.NoError(t, env.connections.UpdateContext(conn.ID, &models.ProviderContext{
		ResolvedLabelID: "label-1",
	}))

	newConfig := conn.Config
	newConfig.SyncedLabel = "universal-inbox"
	status, err := env.connections.UpdateConfig(conn.ID, newConfig, "user-1")
	require.NoError(t, err)
	assert.True(t, status.Updated)

	stored, err := env.store.GetConnectionByID(conn.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Context)

	count, err := env.store.PurgeNotifications("user-1", models.ProviderGithub)
	require.NoError(t, err)
	assert.Zero(t, count, "notifications should already be purged")
}

func TestUpdateConfig_CosmeticChangeKeepsState(t *testing.T) {
	env := setupTestEnv(t)
	conn := env.createValidatedConnection(t, "user-1", models.ProviderGithub)

	require.NoError(t, env.connections.UpdateContext(conn.ID, &models.ProviderContext{
		ResolvedLabelID: "label-1",
	}))

	newConfig := conn.Config
	newConfig.DefaultPriority = models.TaskPriorityP2
	status, err := env.connections.UpdateConfig(conn.ID, newConfig, "user-1")
	require.NoError(t, err)
	assert.True(t, status.Updated)

	stored, err := env.store.GetConnectionByID(conn.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Context)
	assert.Equal(t, "label-1", stored.Context.ResolvedLabelID)
}
