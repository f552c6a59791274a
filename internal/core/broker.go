package core

import (
	"context"

	"golang.org/x/oauth2"
)

// BrokerConnection is the live credential state the OAuth broker holds for a
// connection handle.
type BrokerConnection struct {
	// ConnectionID echoes the opaque handle the connection was looked up by.
	ConnectionID string

	// ProviderConfigKey is the broker-side provider configuration the grant
	// belongs to (e.g. "github", "todoist").
	ProviderConfigKey string

	// Credentials carries the current access/refresh token pair. The broker
	// refreshes tokens transparently; callers use Credentials.AccessToken
	// as-is.
	Credentials oauth2.Token

	// ProviderUserID is the provider-side account id the grant belongs to.
	ProviderUserID string

	// GrantedScopes lists the OAuth scopes the user actually granted.
	GrantedScopes []string
}

// ConnectionBroker is the external OAuth broker capability. It is consumed,
// never implemented, by the sync core.
type ConnectionBroker interface {
	// GetConnection returns the broker state for a connection handle.
	// Returns nil, nil when the handle is unknown to the broker, which the
	// connection manager maps to the "failing" status.
	GetConnection(ctx context.Context, connectionID, providerConfigKey string) (*BrokerConnection, error)

	// DeleteConnection revokes the broker-side grant. Deleting an unknown
	// handle is not an error.
	DeleteConnection(ctx context.Context, connectionID, providerConfigKey string) error
}
