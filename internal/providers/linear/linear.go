// Package linear integrates Linear notifications through the Linear GraphQL
// API. Linear is a notification source only: task operations are not
// supported.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	httpclient "github.com/appleboy/go-httpclient"
	retry "github.com/appleboy/go-httpretry"

	"github.com/universal-inbox/universal-inbox/internal/core"
	"github.com/universal-inbox/universal-inbox/internal/models"
)

const defaultAPIURL = "https://api.linear.app/graphql"

// Compile-time interface check.
var _ core.ProviderAdapter = (*Adapter)(nil)

// ErrNotTaskService is returned for every task operation.
var ErrNotTaskService = fmt.Errorf("linear is not a task service")

// Adapter implements the Linear integration.
type Adapter struct {
	apiURL     string
	timeout    time.Duration
	maxRetries int
}

// Option configures the adapter.
type Option func(*Adapter)

// WithAPIURL overrides the GraphQL endpoint, for tests.
func WithAPIURL(url string) Option {
	return func(a *Adapter) { a.apiURL = url }
}

func New(opts ...Option) *Adapter {
	a := &Adapter{
		apiURL:     defaultAPIURL,
		timeout:    30 * time.Second,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Kind() models.ProviderKind { return models.ProviderLinear }

// IsSyncIncremental reports false: each fetch returns the full set of
// current notifications, so read/archived notifications disappear from the
// feed and are settled by the staleness sweep.
func (a *Adapter) IsSyncIncremental() bool { return false }

const notificationsQuery = `
query {
  notifications {
    nodes {
      id
      type
      createdAt
      readAt
      snoozedUntilAt
      ... on IssueNotification {
        issue {
          id
          identifier
          title
          description
          url
          priority
          dueDate
          completedAt
        }
      }
    }
  }
}`

type graphqlRequest struct {
	Query string `json:"query"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type notificationsData struct {
	Notifications struct {
		Nodes []notification `json:"nodes"`
	} `json:"notifications"`
}

type notification struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	CreatedAt      time.Time  `json:"createdAt"`
	ReadAt         *time.Time `json:"readAt"`
	SnoozedUntilAt *time.Time `json:"snoozedUntilAt"`
	Issue          *issue     `json:"issue"`
}

type issue struct {
	ID          string     `json:"id"`
	Identifier  string     `json:"identifier"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	Priority    float64    `json:"priority"`
	DueDate     *string    `json:"dueDate"`
	CompletedAt *time.Time `json:"completedAt"`
}

// record wraps a Linear notification as a provider record.
type record struct {
	notification notification
	raw          json.RawMessage
}

func (r record) SourceID() string { return r.notification.ID }

func (r record) ToThirdPartyItem(userID, integrationConnectionID string) *models.ThirdPartyItem {
	data := models.ItemData{
		Title: r.notification.Type,
		Raw:   r.raw,
	}
	if issue := r.notification.Issue; issue != nil {
		data.Title = issue.Identifier + " " + issue.Title
		data.Body = issue.Description
		data.HTMLURL = issue.URL
		if issue.CompletedAt != nil {
			data.Done = true
			data.CompletedAt = issue.CompletedAt
		}
		if issue.DueDate != nil {
			if t, err := time.Parse("2006-01-02", *issue.DueDate); err == nil {
				data.DueAt = &t
			}
		}
	}
	return models.NewThirdPartyItem(
		r.notification.ID,
		models.ItemKindLinearNotification,
		data,
		userID,
		integrationConnectionID,
	)
}

// FetchItems returns the user's current Linear notifications.
func (a *Adapter) FetchItems(
	ctx context.Context,
	accessToken, userID string,
) ([]core.ProviderRecord, error) {
	data, err := a.query(ctx, accessToken, notificationsQuery)
	if err != nil {
		return nil, err
	}

	var parsed notificationsData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("linear: invalid notifications payload: %w", err)
	}

	records := make([]core.ProviderRecord, 0, len(parsed.Notifications.Nodes))
	for _, n := range parsed.Notifications.Nodes {
		raw, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		records = append(records, record{notification: n, raw: raw})
	}
	return records, nil
}

// FetchNotificationDetails extracts issue detail from the stored payload.
func (a *Adapter) FetchNotificationDetails(
	ctx context.Context,
	accessToken string,
	n *models.Notification,
	userID string,
) (*core.NotificationDetails, error) {
	if n.SourceItem == nil || len(n.SourceItem.Data.Raw) == 0 {
		return nil, nil
	}
	var stored notification
	if err := json.Unmarshal(n.SourceItem.Data.Raw, &stored); err != nil {
		return nil, fmt.Errorf("linear: invalid stored payload: %w", err)
	}
	if stored.Issue == nil {
		return nil, nil
	}
	return &core.NotificationDetails{
		Body:    stored.Issue.Description,
		HTMLURL: stored.Issue.URL,
	}, nil
}

func (a *Adapter) CreateTask(
	ctx context.Context,
	accessToken string,
	creation *models.TaskCreation,
	userID string,
) (core.ProviderRecord, error) {
	return nil, ErrNotTaskService
}

func (a *Adapter) UpdateTask(
	ctx context.Context,
	accessToken string,
	item *models.ThirdPartyItem,
	userID string,
) error {
	return ErrNotTaskService
}

func (a *Adapter) CompleteTask(
	ctx context.Context,
	accessToken string,
	item *models.ThirdPartyItem,
	userID string,
) error {
	return ErrNotTaskService
}

func (a *Adapter) UncompleteTask(
	ctx context.Context,
	accessToken string,
	item *models.ThirdPartyItem,
	userID string,
) error {
	return ErrNotTaskService
}

func (a *Adapter) DeleteTask(
	ctx context.Context,
	accessToken string,
	item *models.ThirdPartyItem,
	userID string,
) error {
	return ErrNotTaskService
}

// query performs one GraphQL POST with bearer auth and retried transport.
func (a *Adapter) query(
	ctx context.Context,
	accessToken, query string,
) (json.RawMessage, error) {
	client, err := httpclient.NewAuthClient(
		"simple",
		"Bearer "+accessToken,
		httpclient.WithTimeout(a.timeout),
		httpclient.WithHeaderName("Authorization"),
	)
	if err != nil {
		return nil, fmt.Errorf("linear: failed to create auth client: %w", err)
	}
	retryClient, err := retry.NewRealtimeClient(
		retry.WithHTTPClient(client),
		retry.WithMaxRetries(a.maxRetries),
	)
	if err != nil {
		return nil, fmt.Errorf("linear: failed to create retry client: %w", err)
	}

	jsonData, err := json.Marshal(graphqlRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("linear: failed to marshal request: %w", err)
	}

	resp, err := retryClient.Post(
		ctx,
		a.apiURL,
		retry.WithBody("application/json", bytes.NewBuffer(jsonData)),
	)
	if err != nil {
		return nil, fmt.Errorf("linear: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("linear: failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("linear: HTTP %d", resp.StatusCode)
	}

	var parsed graphqlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("linear: invalid response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("linear: graphql error: %s", parsed.Errors[0].Message)
	}
	return parsed.Data, nil
}
