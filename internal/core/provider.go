package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/universal-inbox/universal-inbox/internal/models"
)

// ProviderRecord is a provider-native record as returned by an adapter's
// fetch. It knows its provider-side identity and how to project itself into
// the canonical item shape.
type ProviderRecord interface {
	// SourceID returns the provider-native primary key of the record.
	SourceID() string

	// ToThirdPartyItem converts the record into a canonical item owned by
	// the given user and connection.
	ToThirdPartyItem(userID, integrationConnectionID string) *models.ThirdPartyItem
}

// NotificationDetails carries provider-specific detail for rendering a
// notification, fetched on demand.
type NotificationDetails struct {
	Body    string
	HTMLURL string
	Author  string
}

// ProviderAdapter is the per-provider integration contract. The reconciler
// and cascade depend only on this interface; adding a provider requires no
// change to the core.
type ProviderAdapter interface {
	// Kind identifies the provider this adapter integrates.
	Kind() models.ProviderKind

	// IsSyncIncremental reports whether FetchItems returns a delta feed.
	// Non-incremental adapters return full current state each time and
	// require a staleness sweep after every sync pass.
	IsSyncIncremental() bool

	// FetchItems returns the current batch of provider-native records for
	// the user. Pagination is the adapter's responsibility.
	FetchItems(ctx context.Context, accessToken, userID string) ([]ProviderRecord, error)

	// FetchNotificationDetails loads provider-specific detail for a
	// notification. Returns nil, nil when the provider has none.
	FetchNotificationDetails(
		ctx context.Context,
		accessToken string,
		notification *models.Notification,
		userID string,
	) (*NotificationDetails, error)

	// CreateTask creates a task provider-side and returns the resulting
	// record. Only meaningful for task-capable providers.
	CreateTask(
		ctx context.Context,
		accessToken string,
		creation *models.TaskCreation,
		userID string,
	) (ProviderRecord, error)

	UpdateTask(ctx context.Context, accessToken string, item *models.ThirdPartyItem, userID string) error
	CompleteTask(ctx context.Context, accessToken string, item *models.ThirdPartyItem, userID string) error
	UncompleteTask(ctx context.Context, accessToken string, item *models.ThirdPartyItem, userID string) error
	DeleteTask(ctx context.Context, accessToken string, item *models.ThirdPartyItem, userID string) error
}

// ProjectResolver is implemented by task-capable adapters that organize
// tasks into named projects. The sink linker uses it for its idempotent
// get-or-create project lookup.
type ProjectResolver interface {
	// GetProjectID resolves a project name to its provider-side id.
	// Returns "" and no error when the project does not exist.
	GetProjectID(ctx context.Context, accessToken, name, userID string) (string, error)

	// CreateProject creates a project with the given name and returns its id.
	CreateProject(ctx context.Context, accessToken, name, userID string) (string, error)
}

// Registry holds the provider adapters available to the sync surface,
// keyed by provider kind.
type Registry struct {
	mu       sync.RWMutex
	adapters map[models.ProviderKind]ProviderAdapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[models.ProviderKind]ProviderAdapter)}
}

// Register adds an adapter, replacing any previous adapter for the same kind.
func (r *Registry) Register(adapter ProviderAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Kind()] = adapter
}

// Get returns the adapter for a provider kind.
func (r *Registry) Get(kind models.ProviderKind) (ProviderAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", kind)
	}
	return adapter, nil
}

// Kinds returns the provider kinds with a registered adapter.
func (r *Registry) Kinds() []models.ProviderKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]models.ProviderKind, 0, len(r.adapters))
	for kind := range r.adapters {
		kinds = append(kinds, kind)
	}
	return kinds
}
