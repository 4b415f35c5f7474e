package worldcat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/catalogops/oclcrecon/pkg/errors"
	"github.com/catalogops/oclcrecon/pkg/logging"
)

// DefaultTokenURL is the OCLC authorization server's token endpoint.
const DefaultTokenURL = "https://oauth.oclc.org/token"

// tokenScope is the scope requested for Metadata API access.
const tokenScope = "WorldCatMetadataAPI"

// expiryMargin is how close to expiry a token may get before it is
// refreshed ahead of a request, so a token never dies mid-operation.
const expiryMargin = 15 * time.Second

// Credential is a bearer token with its expiry. It is persisted between
// runs so a still-valid token can be reused instead of re-fetched.
type Credential struct {
	AccessToken string    `yaml:"access_token" json:"access_token"`
	TokenType   string    `yaml:"token_type" json:"token_type"`
	ExpiresAt   time.Time `yaml:"expires_at" json:"expires_at"`
}

// Usable reports whether the credential can still authorize a request made
// at the given moment, allowing for the refresh margin.
func (c Credential) Usable(now time.Time) bool {
	return c.AccessToken != "" && now.Add(expiryMargin).Before(c.ExpiresAt)
}

// CredentialStore persists a refreshed credential so subsequent runs can
// reuse it. Storage mechanics live with the caller.
type CredentialStore interface {
	SaveCredential(Credential) error
}

// TokenSource maintains the bearer credential for the Metadata API,
// refreshing it synchronously via the client-credentials grant whenever it
// is absent or about to expire.
type TokenSource struct {
	mu       sync.Mutex
	key      string
	secret   string
	tokenURL string
	http     *http.Client
	store    CredentialStore
	cred     Credential
	now      func() time.Time
	logger   *zerolog.Logger
}

// TokenOption configures a TokenSource.
type TokenOption func(*TokenSource)

// WithStoredCredential seeds the source with a credential persisted by a
// previous run.
func WithStoredCredential(cred Credential) TokenOption {
	return func(s *TokenSource) { s.cred = cred }
}

// WithTokenHTTPClient replaces the HTTP client used for token requests.
func WithTokenHTTPClient(h *http.Client) TokenOption {
	return func(s *TokenSource) { s.http = h }
}

// WithClock replaces the time source (used by tests).
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenSource) { s.now = now }
}

// WithTokenLogger sets the logger.
func WithTokenLogger(logger *zerolog.Logger) TokenOption {
	return func(s *TokenSource) { s.logger = logger }
}

// NewTokenSource creates a token source for the given API key/secret pair.
// store may be nil when persistence is not wanted.
func NewTokenSource(key, secret, tokenURL string, store CredentialStore, opts ...TokenOption) *TokenSource {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	s := &TokenSource{
		key:      key,
		secret:   secret,
		tokenURL: tokenURL,
		http:     &http.Client{Timeout: 30 * time.Second},
		store:    store,
		now:      time.Now,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns a current access token, refreshing first if the held one
// is absent or expires within the safety margin.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred.Usable(s.now()) {
		return s.cred.AccessToken, nil
	}

	s.logger.Debug().
		Time("expires_at", s.cred.ExpiresAt).
		Msg("access token absent or expiring, requesting a new one")

	cred, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}
	s.cred = cred

	if s.store != nil {
		if err := s.store.SaveCredential(cred); err != nil {
			// A failed save costs a token fetch next run, nothing more.
			s.logger.Warn().Err(err).Msg("failed to persist refreshed credential")
		}
	}

	return cred.AccessToken, nil
}

// Credential returns the currently held credential.
func (s *TokenSource) Credential() Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred
}

// tokenResponse is the authorization server's token grant payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	ExpiresAt   string `json:"expires_at"`
}

func (s *TokenSource) fetch(ctx context.Context) (Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", tokenScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, &errors.AuthenticationError{Service: ServiceName, Message: "failed to build token request", Err: err}
	}
	req.SetBasicAuth(s.key, s.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return Credential{}, &errors.AuthenticationError{Service: ServiceName, Message: "token request failed", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Credential{}, &errors.AuthenticationError{Service: ServiceName, Message: "failed to read token response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return Credential{}, &errors.AuthenticationError{
			Service: ServiceName,
			Message: fmt.Sprintf("token endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Credential{}, &errors.AuthenticationError{Service: ServiceName, Message: "malformed token response", Err: err}
	}
	if tr.AccessToken == "" {
		return Credential{}, &errors.AuthenticationError{Service: ServiceName, Message: "token response contained no access token"}
	}

	cred := Credential{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
		ExpiresAt:   s.expiry(tr),
	}

	s.logger.Debug().Time("expires_at", cred.ExpiresAt).Msg("new access token granted")
	return cred, nil
}

// expiry resolves the token's expiry from whichever field the server sent.
// The authorization server reports expires_at as "2021-09-30 22:43:07Z".
func (s *TokenSource) expiry(tr tokenResponse) time.Time {
	if tr.ExpiresAt != "" {
		if t, err := time.Parse("2006-01-02 15:04:05Z", tr.ExpiresAt); err == nil {
			return t
		}
	}
	if tr.ExpiresIn > 0 {
		return s.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	// No expiry reported; assume the documented 20 minute lifetime.
	return s.now().Add(20 * time.Minute)
}
