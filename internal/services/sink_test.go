package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/universal-inbox/universal-inbox/internal/models"
)

// setupSinkEnv seeds a GitHub task-deriving connection, a validated Todoist
// sink connection, and one synced task.
func setupSinkEnv(t *testing.T) (*testEnv, *fakeAdapter, *models.Task) {
	env := setupTestEnv(t)

	source := newFakeAdapter(models.ProviderGithub, false)
	env.registry.Register(source)
	sink := newFakeAdapter(models.ProviderTodoist, false)
	env.registry.Register(sink)

	conn := env.createValidatedConnection(t, "user-1", models.ProviderGithub)
	env.createValidatedConnection(t, "user-1", models.ProviderTodoist)

	config := conn.Config
	config.SyncTasksEnabled = true
	config.TargetProject = "Follow-ups"
	_, err := env.connections.UpdateConfig(conn.ID, config, "user-1")
	require.NoError(t, err)

	source.setRecords(fakeRecord{
		sourceID: "gh-1",
		kind:     models.ItemKindGithubNotification,
		data:     models.ItemData{Title: "Review the RFC"},
	})
	_, err = env.sync.SyncProvider(context.Background(), "user-1", models.ProviderGithub)
	require.NoError(t, err)

	return env, sink, findTaskBySource(t, env, "gh-1", conn.ID)
}

func TestCreateSinkItemFromTask(t *testing.T) {
	env, sink, task := setupSinkEnv(t)

	item, err := env.sync.CreateSinkItemFromTask(context.Background(), task.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Review the RFC", item.Data.Title)
	assert.Equal(t, 1, sink.createTaskCalls)
	assert.Equal(t, 1, sink.createProjectCalls, "missing project is created once")

	stored, err := env.store.GetTaskByID(task.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SinkItemID)
	assert.Equal(t, item.ID, *stored.SinkItemID)

	t.Run("repeat call is a pure read", func(t *testing.T) {
		again, err := env.sync.CreateSinkItemFromTask(context.Background(), task.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, item.ID, again.ID)
		assert.Equal(t, 1, sink.createTaskCalls, "no second provider-side task")
		assert.Equal(t, 1, sink.createProjectCalls)
	})
}

func TestCreateSinkItemFromTask_ExistingProjectIsReused(t *testing.T) {
	env, sink, task := setupSinkEnv(t)
	sink.projects["Follow-ups"] = "project-existing"

	_, err := env.sync.CreateSinkItemFromTask(context.Background(), task.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, sink.createProjectCalls)
	require.Len(t, sink.createdTasks, 1)
	assert.Equal(t, "project-existing", sink.createdTasks[0].Project)
}

func TestCreateSinkItemFromTask_ConcurrentCallersLinkOnce(t *testing.T) {
	env, sink, task := setupSinkEnv(t)

	const callers = 8
	items := make([]*models.ThirdPartyItem, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items[i], errs[i] = env.sync.CreateSinkItemFromTask(
				context.Background(), task.ID, "user-1")
		}(i)
	}
	wg.Wait()

	stored, err := env.store.GetTaskByID(task.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SinkItemID)

	// Every caller converges on the single linked item.
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, items[i])
		assert.Equal(t, *stored.SinkItemID, items[i].ID)
	}

	assert.Equal(t, 1, sink.createProjectCalls, "single-flight project creation")
}

func TestCreateSinkItemFromTask_Ownership(t *testing.T) {
	env, _, task := setupSinkEnv(t)

	_, err := env.sync.CreateSinkItemFromTask(context.Background(), task.ID, "user-2")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateSinkItemFromTask_MissingTask(t *testing.T) {
	env, _, _ := setupSinkEnv(t)

	_, err := env.sync.CreateSinkItemFromTask(context.Background(), "no-such-task", "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateSinkItemFromTask_NoSinkConnection(t *testing.T) {
	env := setupTestEnv(t)

	source := newFakeAdapter(models.ProviderGithub, false)
	env.registry.Register(source)
	sink := newFakeAdapter(models.ProviderTodoist, false)
	env.registry.Register(sink)

	conn := env.createValidatedConnection(t, "user-1", models.ProviderGithub)
	config := conn.Config
	config.SyncTasksEnabled = true
	_, err := env.connections.UpdateConfig(conn.ID, config, "user-1")
	require.NoError(t, err)

	source.setRecords(fakeRecord{
		sourceID: "gh-1",
		kind:     models.ItemKindGithubNotification,
		data:     models.ItemData{Title: "No sink configured"},
	})
	_, err = env.sync.SyncProvider(context.Background(), "user-1", models.ProviderGithub)
	require.NoError(t, err)
	task := findTaskBySource(t, env, "gh-1", conn.ID)

	_, err = env.sync.CreateSinkItemFromTask(context.Background(), task.ID, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
