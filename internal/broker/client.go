// Package broker implements the HTTP client for the external OAuth
// connection broker. The broker owns every OAuth grant; this service only
// ever addresses grants through opaque connection handles.
package broker

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	httpclient "github.com/appleboy/go-httpclient"
	retry "github.com/appleboy/go-httpretry"
	"golang.org/x/oauth2"

	"github.com/universal-inbox/universal-inbox/internal/config"
	"github.com/universal-inbox/universal-inbox/internal/core"
)

// Compile-time interface check.
var _ core.ConnectionBroker = (*Client)(nil)

// Client talks to the connection broker API with authenticated, retried
// requests.
type Client struct {
	baseURL     string
	retryClient *retry.Client
	recorder    core.Recorder
}

// New builds a broker client from configuration. Requests carry the broker
// secret via the configured auth mode and are retried with exponential
// backoff on transient failures.
func New(cfg *config.Config, recorder core.Recorder) (*Client, error) {
	// #nosec G402 -- InsecureSkipVerify is user-configurable for development/testing
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.BrokerInsecureSkipVerify,
		},
	}

	client, err := httpclient.NewAuthClient(
		cfg.BrokerAuthMode,
		cfg.BrokerSecretKey,
		httpclient.WithTimeout(cfg.BrokerTimeout),
		httpclient.WithTransport(transport),
		httpclient.WithHeaderName(cfg.BrokerAuthHeader),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}

	retryClient, err := retry.NewRealtimeClient(
		retry.WithHTTPClient(client),
		retry.WithMaxRetries(cfg.BrokerMaxRetries),
		retry.WithInitialRetryDelay(cfg.BrokerRetryDelay),
		retry.WithMaxRetryDelay(cfg.BrokerMaxRetryDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry client: %w", err)
	}

	return &Client{
		baseURL:     cfg.BrokerAPIURL,
		retryClient: retryClient,
		recorder:    recorder,
	}, nil
}

type connectionRequest struct {
	ConnectionID      string `json:"connection_id"`
	ProviderConfigKey string `json:"provider_config_key"`
}

type connectionPayload struct {
	ConnectionID      string    `json:"connection_id"`
	ProviderConfigKey string    `json:"provider_config_key"`
	AccessToken       string    `json:"access_token"`
	RefreshToken      string    `json:"refresh_token,omitempty"`
	ExpiresAt         time.Time `json:"expires_at,omitempty"`
	ProviderUserID    string    `json:"provider_user_id,omitempty"`
	GrantedScopes     []string  `json:"granted_scopes,omitempty"`
}

type connectionResponse struct {
	Success    bool               `json:"success"`
	Found      bool               `json:"found"`
	Connection *connectionPayload `json:"connection,omitempty"`
	Message    string             `json:"message,omitempty"`
}

// GetConnection returns the broker's state for a connection handle, or
// nil, nil when the handle is unknown to the broker.
func (c *Client) GetConnection(
	ctx context.Context,
	connectionID, providerConfigKey string,
) (*core.BrokerConnection, error) {
	start := time.Now()
	body, status, err := c.doPostRequest(ctx, "/api/v1/connections/get", connectionRequest{
		ConnectionID:      connectionID,
		ProviderConfigKey: providerConfigKey,
	})
	if c.recorder != nil {
		c.recorder.RecordBrokerRequest("get_connection", err == nil, time.Since(start))
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var resp connectionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrokerInvalidResponse, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrBrokerRequestFailed, resp.Message)
	}
	if !resp.Found || resp.Connection == nil {
		return nil, nil
	}

	return &core.BrokerConnection{
		ConnectionID:      resp.Connection.ConnectionID,
		ProviderConfigKey: resp.Connection.ProviderConfigKey,
		Credentials: oauth2.Token{
			AccessToken:  resp.Connection.AccessToken,
			RefreshToken: resp.Connection.RefreshToken,
			Expiry:       resp.Connection.ExpiresAt,
			TokenType:    "Bearer",
		},
		ProviderUserID: resp.Connection.ProviderUserID,
		GrantedScopes:  resp.Connection.GrantedScopes,
	}, nil
}

// DeleteConnection revokes the broker-side grant. Deleting a handle the
// broker does not know is treated as success.
func (c *Client) DeleteConnection(
	ctx context.Context,
	connectionID, providerConfigKey string,
) error {
	start := time.Now()
	body, status, err := c.doPostRequest(ctx, "/api/v1/connections/delete", connectionRequest{
		ConnectionID:      connectionID,
		ProviderConfigKey: providerConfigKey,
	})
	if c.recorder != nil {
		c.recorder.RecordBrokerRequest("delete_connection", err == nil, time.Since(start))
	}
	if status == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	var resp connectionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: %v", ErrBrokerInvalidResponse, err)
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrBrokerRequestFailed, resp.Message)
	}
	return nil
}

// doPostRequest performs a POST with JSON body and returns the raw response
// body and HTTP status.
func (c *Client) doPostRequest(
	ctx context.Context,
	endpoint string,
	reqBody any,
) ([]byte, int, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.retryClient.Post(
		ctx,
		c.baseURL+endpoint,
		retry.WithBody("application/json", bytes.NewBuffer(jsonData)),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrBrokerConnection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: failed to read response", ErrBrokerInvalidResponse)
	}

	if resp.StatusCode == http.StatusNotFound {
		return body, resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, resp.StatusCode, fmt.Errorf("%w: HTTP %d", ErrBrokerRequestFailed, resp.StatusCode)
	}

	return body, resp.StatusCode, nil
}
