package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/universal-inbox/universal-inbox/internal/cache"
	"github.com/universal-inbox/universal-inbox/internal/config"
	"github.com/universal-inbox/universal-inbox/internal/core"
	"github.com/universal-inbox/universal-inbox/internal/models"
	"github.com/universal-inbox/universal-inbox/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	// Use in-memory SQLite database for testing
	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)
	return s
}

func testConfig() *config.Config {
	return &config.Config{
		SinkProviderKind:   "todoist",
		SinkDefaultProject: "Inbox",
		ProjectCacheTTL:    time.Minute,
	}
}

// fakeBroker is an in-memory ConnectionBroker. Connections added via add are
// known; everything else is unknown.
type fakeBroker struct {
	mu          sync.Mutex
	connections map[string]*core.BrokerConnection
	getCalls    int
	deleteCalls int
	err         error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{connections: make(map[string]*core.BrokerConnection)}
}

func (b *fakeBroker) add(connectionID, accessToken string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connections[connectionID] = &core.BrokerConnection{
		ConnectionID:   connectionID,
		Credentials:    oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"},
		ProviderUserID: "provider-user-1",
		GrantedScopes:  []string{"read", "write"},
	}
}

func (b *fakeBroker) remove(connectionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.connections, connectionID)
}

func (b *fakeBroker) GetConnection(
	ctx context.Context,
	connectionID, providerConfigKey string,
) (*core.BrokerConnection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getCalls++
	if b.err != nil {
		return nil, b.err
	}
	return b.connections[connectionID], nil
}

func (b *fakeBroker) DeleteConnection(
	ctx context.Context,
	connectionID, providerConfigKey string,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleteCalls++
	if b.err != nil {
		return b.err
	}
	delete(b.connections, connectionID)
	return nil
}

// fakeRecord is a canned provider record.
type fakeRecord struct {
	sourceID string
	kind     models.ItemKind
	data     models.ItemData
}

func (r fakeRecord) SourceID() string { return r.sourceID }

func (r fakeRecord) ToThirdPartyItem(userID, integrationConnectionID string) *models.ThirdPartyItem {
	return models.NewThirdPartyItem(r.sourceID, r.kind, r.data, userID, integrationConnectionID)
}

// fakeAdapter serves canned records and counts calls.
type fakeAdapter struct {
	mu sync.Mutex

	kind        models.ProviderKind
	incremental bool
	records     []core.ProviderRecord
	fetchErr    error

	fetchCalls         int
	createTaskCalls    int
	createdTasks       []*models.TaskCreation
	projects           map[string]string
	getProjectCalls    int
	createProjectCalls int
	nextProjectID      int
}

func newFakeAdapter(kind models.ProviderKind, incremental bool) *fakeAdapter {
	return &fakeAdapter{
		kind:        kind,
		incremental: incremental,
		projects:    make(map[string]string),
	}
}

func (a *fakeAdapter) setRecords(records ...core.ProviderRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = records
}

func (a *fakeAdapter) Kind() models.ProviderKind { return a.kind }
func (a *fakeAdapter) IsSyncIncremental() bool   { return a.incremental }

func (a *fakeAdapter) FetchItems(
	ctx context.Context,
	accessToken, userID string,
) ([]core.ProviderRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetchCalls++
	if a.fetchErr != nil {
		return nil, a.fetchErr
	}
	return a.records, nil
}

func (a *fakeAdapter) FetchNotificationDetails(
	ctx context.Context,
	accessToken string,
	notification *models.Notification,
	userID string,
) (*core.NotificationDetails, error) {
	return nil, nil
}

func (a *fakeAdapter) CreateTask(
	ctx context.Context,
	accessToken string,
	creation *models.TaskCreation,
	userID string,
) (core.ProviderRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.createTaskCalls++
	a.createdTasks = append(a.createdTasks, creation)
	return fakeRecord{
		sourceID: fmt.Sprintf("sink-%d", a.createTaskCalls),
		kind:     models.ItemKindTodoistItem,
		data: models.ItemData{
			Title:    creation.Title,
			Body:     creation.Body,
			Priority: creation.Priority,
			DueAt:    creation.DueAt,
		},
	}, nil
}

func (a *fakeAdapter) UpdateTask(
	ctx context.Context, accessToken string, item *models.ThirdPartyItem, userID string,
) error {
	return nil
}

func (a *fakeAdapter) CompleteTask(
	ctx context.Context, accessToken string, item *models.ThirdPartyItem, userID string,
) error {
	return nil
}

func (a *fakeAdapter) UncompleteTask(
	ctx context.Context, accessToken string, item *models.ThirdPartyItem, userID string,
) error {
	return nil
}

func (a *fakeAdapter) DeleteTask(
	ctx context.Context, accessToken string, item *models.ThirdPartyItem, userID string,
) error {
	return nil
}

func (a *fakeAdapter) GetProjectID(
	ctx context.Context,
	accessToken, name, userID string,
) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.getProjectCalls++
	return a.projects[name], nil
}

func (a *fakeAdapter) CreateProject(
	ctx context.Context,
	accessToken, name, userID string,
) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.createProjectCalls++
	a.nextProjectID++
	id := fmt.Sprintf("project-%d", a.nextProjectID)
	a.projects[name] = id
	return id, nil
}

// fakeRecorder counts what the services report.
type fakeRecorder struct {
	mu          sync.Mutex
	staleSweeps map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{staleSweeps: make(map[string]int)}
}

func (r *fakeRecorder) RecordSyncRun(provider, result string, duration time.Duration) {}

func (r *fakeRecorder) RecordItemUpsert(provider, layer string) {}

func (r *fakeRecorder) RecordStaleSweep(provider string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staleSweeps[provider] += count
}

func (r *fakeRecorder) RecordConnectionTransition(provider, from, to string) {}

func (r *fakeRecorder) RecordBrokerRequest(operation string, ok bool, d time.Duration) {}

func (r *fakeRecorder) sweptFor(provider models.ProviderKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.staleSweeps[provider.String()]
}

// testEnv bundles a full service graph over an in-memory store.
type testEnv struct {
	store       *store.Store
	broker      *fakeBroker
	registry    *core.Registry
	recorder    *fakeRecorder
	connections *IntegrationConnectionService
	sync        *SyncService
}

func setupTestEnv(t *testing.T) *testEnv {
	s := setupTestStore(t)
	broker := newFakeBroker()
	registry := core.NewRegistry()
	recorder := newFakeRecorder()
	connections := NewIntegrationConnectionService(s, broker, recorder)
	syncService := NewSyncService(
		s,
		connections,
		registry,
		cache.NewMemoryCache[string](),
		recorder,
		testConfig(),
	)
	return &testEnv{
		store:       s,
		broker:      broker,
		registry:    registry,
		recorder:    recorder,
		connections: connections,
		sync:        syncService,
	}
}

// createValidatedConnection creates a connection known to the broker and
// moves it to validated status.
func (e *testEnv) createValidatedConnection(
	t *testing.T,
	userID string,
	kind models.ProviderKind,
) *models.IntegrationConnection {
	conn, err := e.connections.CreateConnection(userID, kind)
	require.NoError(t, err)
	e.broker.add(conn.ConnectionID, "token-"+conn.ConnectionID)

	status, err := e.connections.Verify(context.Background(), conn.ID, userID)
	require.NoError(t, err)
	require.True(t, status.Updated)
	require.Equal(t, models.ConnectionStatusValidated, status.Result.Status)
	return status.Result
}
