package transport

import (
	"context"
	"net/http"
)

// Authenticator applies authentication to outbound HTTP requests.
type Authenticator interface {
	Apply(ctx context.Context, req *http.Request) error
}

// NoAuth applies no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ context.Context, _ *http.Request) error {
	return nil
}

// APIKeyAuth applies Ex Libris style API key authentication
// ("Authorization: apikey <key>").
type APIKeyAuth struct {
	Key string
}

// Apply implements the Authenticator interface for APIKeyAuth.
func (a *APIKeyAuth) Apply(_ context.Context, req *http.Request) error {
	req.Header.Set("Authorization", "apikey "+a.Key)
	return nil
}

// TokenSource supplies a current bearer token, refreshing it first when it
// is absent or about to expire.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// BearerAuth applies bearer token authentication backed by a refreshing
// token source.
type BearerAuth struct {
	Source TokenSource
}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(ctx context.Context, req *http.Request) error {
	token, err := a.Source.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
