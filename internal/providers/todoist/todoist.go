// Package todoist integrates the Todoist Sync API as both a sync source and
// the task sink. Every operation goes through the single POST /sync endpoint:
// reads request resource types, writes submit commands.
package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	httpclient "github.com/appleboy/go-httpclient"
	retry "github.com/appleboy/go-httpretry"
	"github.com/google/uuid"

	"github.com/universal-inbox/universal-inbox/internal/core"
	"github.com/universal-inbox/universal-inbox/internal/models"
)

const defaultBaseURL = "https://api.todoist.com/sync/v9"

// Compile-time interface checks.
var (
	_ core.ProviderAdapter = (*Adapter)(nil)
	_ core.ProjectResolver = (*Adapter)(nil)
)

// Adapter implements the Todoist integration.
type Adapter struct {
	baseURL    string
	timeout    time.Duration
	maxRetries int
}

// Option configures the adapter.
type Option func(*Adapter)

// WithBaseURL overrides the Todoist API base URL, for tests.
func WithBaseURL(url string) Option {
	return func(a *Adapter) { a.baseURL = url }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

func New(opts ...Option) *Adapter {
	a := &Adapter{
		baseURL:    defaultBaseURL,
		timeout:    30 * time.Second,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Kind() models.ProviderKind { return models.ProviderTodoist }

// IsSyncIncremental reports false: each fetch requests full current state
// (sync_token "*"), so disappeared items are detected by the staleness sweep.
func (a *Adapter) IsSyncIncremental() bool { return false }

// item is a Todoist sync API item.
type item struct {
	ID          string   `json:"id"`
	ProjectID   string   `json:"project_id"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Checked     bool     `json:"checked"`
	CompletedAt *string  `json:"completed_at"`
	Priority    int      `json:"priority"`
	Labels      []string `json:"labels"`
	Due         *due     `json:"due"`
	IsDeleted   bool     `json:"is_deleted"`
}

type due struct {
	Date string `json:"date"`
}

type project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDeleted bool   `json:"is_deleted"`
}

type syncResponse struct {
	Items         []item            `json:"items"`
	Projects      []project         `json:"projects"`
	SyncToken     string            `json:"sync_token"`
	TempIDMapping map[string]string `json:"temp_id_mapping"`
	SyncStatus    map[string]any    `json:"sync_status"`
}

type command struct {
	Type   string         `json:"type"`
	UUID   string         `json:"uuid"`
	TempID string         `json:"temp_id,omitempty"`
	Args   map[string]any `json:"args"`
}

// record wraps a Todoist item as a provider record.
type record struct {
	item item
	raw  json.RawMessage
}

func (r record) SourceID() string { return r.item.ID }

func (r record) ToThirdPartyItem(userID, integrationConnectionID string) *models.ThirdPartyItem {
	data := models.ItemData{
		Title:    r.item.Content,
		Body:     r.item.Description,
		Done:     r.item.Checked,
		Priority: priorityFromTodoist(r.item.Priority),
		HTMLURL:  "https://todoist.com/showTask?id=" + r.item.ID,
		Raw:      r.raw,
	}
	if r.item.CompletedAt != nil {
		if t, err := time.Parse(time.RFC3339, *r.item.CompletedAt); err == nil {
			data.CompletedAt = &t
		}
	}
	if r.item.Due != nil {
		if t, err := parseDueDate(r.item.Due.Date); err == nil {
			data.DueAt = &t
		}
	}
	return models.NewThirdPartyItem(
		r.item.ID,
		models.ItemKindTodoistItem,
		data,
		userID,
		integrationConnectionID,
	)
}

// FetchItems returns the user's current items via a full sync.
func (a *Adapter) FetchItems(
	ctx context.Context,
	accessToken, userID string,
) ([]core.ProviderRecord, error) {
	resp, err := a.sync(ctx, accessToken, map[string]any{
		"sync_token":     "*",
		"resource_types": []string{"items"},
	})
	if err != nil {
		return nil, err
	}

	records := make([]core.ProviderRecord, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.IsDeleted {
			continue
		}
		raw, err := json.Marshal(it)
		if err != nil {
			return nil, err
		}
		records = append(records, record{item: it, raw: raw})
	}
	return records, nil
}

// FetchNotificationDetails returns nil: Todoist items carry no extra
// notification detail beyond the item payload.
func (a *Adapter) FetchNotificationDetails(
	ctx context.Context,
	accessToken string,
	notification *models.Notification,
	userID string,
) (*core.NotificationDetails, error) {
	return nil, nil
}

// CreateTask creates a Todoist item and returns it as a provider record.
func (a *Adapter) CreateTask(
	ctx context.Context,
	accessToken string,
	creation *models.TaskCreation,
	userID string,
) (core.ProviderRecord, error) {
	args := map[string]any{
		"content":     creation.Title,
		"description": creation.Body,
		"priority":    priorityToTodoist(creation.Priority),
	}
	if creation.Project != "" {
		args["project_id"] = creation.Project
	}
	if creation.DueAt != nil {
		args["due"] = map[string]any{"date": creation.DueAt.Format("2006-01-02")}
	}

	tempID := uuid.New().String()
	resp, err := a.sync(ctx, accessToken, map[string]any{
		"commands": []command{{
			Type:   "item_add",
			UUID:   uuid.New().String(),
			TempID: tempID,
			Args:   args,
		}},
	})
	if err != nil {
		return nil, err
	}

	itemID, ok := resp.TempIDMapping[tempID]
	if !ok {
		return nil, fmt.Errorf("todoist: item_add returned no id for temp id %s", tempID)
	}

	created := item{
		ID:          itemID,
		Content:     creation.Title,
		Description: creation.Body,
		Priority:    priorityToTodoist(creation.Priority),
	}
	if creation.Project != "" {
		created.ProjectID = creation.Project
	}
	if creation.DueAt != nil {
		created.Due = &due{Date: creation.DueAt.Format("2006-01-02")}
	}
	raw, err := json.Marshal(created)
	if err != nil {
		return nil, err
	}
	return record{item: created, raw: raw}, nil
}

// UpdateTask pushes title, body, due date and priority back to Todoist.
func (a *Adapter) UpdateTask(
	ctx context.Context,
	accessToken string,
	it *models.ThirdPartyItem,
	userID string,
) error {
	args := map[string]any{
		"id":          it.SourceID,
		"content":     it.Data.Title,
		"description": it.Data.Body,
		"priority":    priorityToTodoist(it.Data.Priority),
	}
	if it.Data.DueAt != nil {
		args["due"] = map[string]any{"date": it.Data.DueAt.Format("2006-01-02")}
	}
	return a.command(ctx, accessToken, "item_update", args)
}

func (a *Adapter) CompleteTask(
	ctx context.Context,
	accessToken string,
	it *models.ThirdPartyItem,
	userID string,
) error {
	return a.command(ctx, accessToken, "item_complete", map[string]any{"id": it.SourceID})
}

func (a *Adapter) UncompleteTask(
	ctx context.Context,
	accessToken string,
	it *models.ThirdPartyItem,
	userID string,
) error {
	return a.command(ctx, accessToken, "item_uncomplete", map[string]any{"id": it.SourceID})
}

func (a *Adapter) DeleteTask(
	ctx context.Context,
	accessToken string,
	it *models.ThirdPartyItem,
	userID string,
) error {
	return a.command(ctx, accessToken, "item_delete", map[string]any{"id": it.SourceID})
}

// GetProjectID resolves a project name to its Todoist id. Returns "" when no
// project with that name exists.
func (a *Adapter) GetProjectID(
	ctx context.Context,
	accessToken, name, userID string,
) (string, error) {
	resp, err := a.sync(ctx, accessToken, map[string]any{
		"sync_token":     "*",
		"resource_types": []string{"projects"},
	})
	if err != nil {
		return "", err
	}
	for _, p := range resp.Projects {
		if !p.IsDeleted && p.Name == name {
			return p.ID, nil
		}
	}
	return "", nil
}

// CreateProject creates a project and returns its id.
func (a *Adapter) CreateProject(
	ctx context.Context,
	accessToken, name, userID string,
) (string, error) {
	tempID := uuid.New().String()
	resp, err := a.sync(ctx, accessToken, map[string]any{
		"commands": []command{{
			Type:   "project_add",
			UUID:   uuid.New().String(),
			TempID: tempID,
			Args:   map[string]any{"name": name},
		}},
	})
	if err != nil {
		return "", err
	}
	projectID, ok := resp.TempIDMapping[tempID]
	if !ok {
		return "", fmt.Errorf("todoist: project_add returned no id for temp id %s", tempID)
	}
	return projectID, nil
}

func (a *Adapter) command(
	ctx context.Context,
	accessToken, commandType string,
	args map[string]any,
) error {
	_, err := a.sync(ctx, accessToken, map[string]any{
		"commands": []command{{
			Type: commandType,
			UUID: uuid.New().String(),
			Args: args,
		}},
	})
	return err
}

// sync performs one POST against the sync endpoint with bearer auth and
// retried transport.
func (a *Adapter) sync(
	ctx context.Context,
	accessToken string,
	reqBody map[string]any,
) (*syncResponse, error) {
	retryClient, err := a.clientFor(accessToken)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("todoist: failed to marshal request: %w", err)
	}

	resp, err := retryClient.Post(
		ctx,
		a.baseURL+"/sync",
		retry.WithBody("application/json", bytes.NewBuffer(jsonData)),
	)
	if err != nil {
		return nil, fmt.Errorf("todoist: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("todoist: failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("todoist: HTTP %d: %s", resp.StatusCode, truncate(body))
	}

	var parsed syncResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("todoist: invalid response: %w", err)
	}
	return &parsed, nil
}

func (a *Adapter) clientFor(accessToken string) (*retry.Client, error) {
	client, err := httpclient.NewAuthClient(
		"simple",
		"Bearer "+accessToken,
		httpclient.WithTimeout(a.timeout),
		httpclient.WithHeaderName("Authorization"),
	)
	if err != nil {
		return nil, fmt.Errorf("todoist: failed to create auth client: %w", err)
	}
	return retry.NewRealtimeClient(
		retry.WithHTTPClient(client),
		retry.WithMaxRetries(a.maxRetries),
	)
}

// Todoist priorities run 1 (lowest) to 4 (highest), the inverse of ours.
func priorityFromTodoist(p int) models.TaskPriority {
	if p < 1 || p > 4 {
		return models.DefaultTaskPriority
	}
	return models.TaskPriority(5 - p)
}

func priorityToTodoist(p models.TaskPriority) int {
	if p < 1 || p > 4 {
		return 1
	}
	return int(5 - p)
}

func parseDueDate(date string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", date); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", date)
}

func truncate(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
