package worldcat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogops/oclcrecon/pkg/errors"
)

type capturingStore struct {
	saved []Credential
}

func (s *capturingStore) SaveCredential(c Credential) error {
	s.saved = append(s.saved, c)
	return nil
}

func tokenServer(t *testing.T, calls *int, expiresIn int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "WorldCatMetadataAPI", r.Form.Get("scope"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tk-new",
			"token_type":   "bearer",
			"expires_in":   expiresIn,
		})
	}))
}

func TestTokenFetchAndPersist(t *testing.T) {
	var calls int
	server := tokenServer(t, &calls, 1200)
	defer server.Close()

	store := &capturingStore{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	source := NewTokenSource("key", "secret", server.URL, store,
		WithClock(func() time.Time { return now }))

	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tk-new", token)
	assert.Equal(t, 1, calls)

	require.Len(t, store.saved, 1)
	assert.Equal(t, "tk-new", store.saved[0].AccessToken)
	assert.Equal(t, now.Add(1200*time.Second), store.saved[0].ExpiresAt)
}

func TestTokenReusedWhileUsable(t *testing.T) {
	var calls int
	server := tokenServer(t, &calls, 1200)
	defer server.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	source := NewTokenSource("key", "secret", server.URL, nil,
		WithClock(func() time.Time { return now }),
		WithStoredCredential(Credential{
			AccessToken: "tk-stored",
			ExpiresAt:   now.Add(10 * time.Minute),
		}))

	for i := 0; i < 3; i++ {
		token, err := source.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tk-stored", token)
	}
	assert.Zero(t, calls, "a usable stored credential must not be refreshed")
}

func TestTokenRefreshedWithinExpiryMargin(t *testing.T) {
	var calls int
	server := tokenServer(t, &calls, 1200)
	defer server.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	source := NewTokenSource("key", "secret", server.URL, nil,
		WithClock(func() time.Time { return now }),
		WithStoredCredential(Credential{
			AccessToken: "tk-dying",
			ExpiresAt:   now.Add(5 * time.Second), // inside the margin
		}))

	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tk-new", token)
	assert.Equal(t, 1, calls)
}

func TestTokenEndpointRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid client"}`))
	}))
	defer server.Close()

	source := NewTokenSource("key", "wrong", server.URL, nil)

	_, err := source.Token(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCredential(err))
}

func TestTokenExpiresAtFieldPreferred(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tk-new",
			"token_type":   "bearer",
			"expires_in":   1200,
			"expires_at":   "2026-03-01 12:20:07Z",
		})
	}))
	defer server.Close()

	source := NewTokenSource("key", "secret", server.URL, nil)
	_, err := source.Token(context.Background())
	require.NoError(t, err)

	expected := time.Date(2026, 3, 1, 12, 20, 7, 0, time.UTC)
	assert.Equal(t, expected, source.Credential().ExpiresAt)
}

func TestCredentialUsable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, Credential{}.Usable(now))
	assert.False(t, Credential{AccessToken: "tk", ExpiresAt: now.Add(-time.Minute)}.Usable(now))
	assert.False(t, Credential{AccessToken: "tk", ExpiresAt: now.Add(10 * time.Second)}.Usable(now))
	assert.True(t, Credential{AccessToken: "tk", ExpiresAt: now.Add(time.Minute)}.Usable(now))
}
