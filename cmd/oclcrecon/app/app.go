// Package app provides the application context and dependency wiring for
// the oclcrecon CLI: configuration, logging, the shared quota tracker, and
// the service clients the workflow commands run against.
package app

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/catalogops/oclcrecon/internal/alma"
	"github.com/catalogops/oclcrecon/internal/transport"
	"github.com/catalogops/oclcrecon/internal/worldcat"
	"github.com/catalogops/oclcrecon/pkg/quota"
)

// App represents the oclcrecon application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Lazily built, shared between commands
	mu       sync.Mutex
	tracker  *quota.Tracker
	alma     *alma.Client
	worldcat *worldcat.Client
}

// New creates a new App instance with the given version information.
func New(version, commit, date string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Tracker returns the run's shared daily-quota tracker, creating it on
// first use. Both service clients spend from the same budget.
func (a *App) Tracker() *quota.Tracker {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tracker == nil {
		a.tracker = quota.NewTracker(a.config.QuotaBudget, a.config.QuotaFloor)
	}
	return a.tracker
}

// AlmaClient returns the Alma BIBs API client, creating it on first use.
func (a *App) AlmaClient() (*alma.Client, error) {
	if err := a.config.ValidateAlma(); err != nil {
		return nil, err
	}
	tracker := a.Tracker()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.alma == nil {
		t := transport.New(alma.ServiceName,
			&transport.APIKeyAuth{Key: a.config.AlmaAPIKey},
			tracker,
			a.config.AlmaRetryWait,
			transport.WithQuotaHeader(alma.QuotaHeader),
			transport.WithLogger(a.logger))
		a.alma = alma.NewClient(t, a.config.AlmaBaseURL, alma.WithLogger(a.logger))
	}
	return a.alma, nil
}

// WorldCatClient returns the WorldCat Metadata API client, creating it on
// first use. The bearer credential cached by a previous run is reused when
// still valid.
func (a *App) WorldCatClient() (*worldcat.Client, error) {
	if err := a.config.ValidateWorldCat(); err != nil {
		return nil, err
	}
	tracker := a.Tracker()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.worldcat == nil {
		store := NewFileCredentialStore(a.config.CredentialFile)
		cred, err := store.Load()
		if err != nil {
			a.logger.Warn().Err(err).Msg("ignoring unreadable credential cache")
			cred = worldcat.Credential{}
		}

		source := worldcat.NewTokenSource(
			a.config.WorldCatKey,
			a.config.WorldCatSecret,
			a.config.WorldCatTokenURL,
			store,
			worldcat.WithStoredCredential(cred),
			worldcat.WithTokenLogger(a.logger))

		t := transport.New(worldcat.ServiceName,
			&transport.BearerAuth{Source: source},
			tracker,
			a.config.WorldCatRetryWait,
			transport.WithLogger(a.logger))

		opts := []worldcat.ClientOption{worldcat.WithClientLogger(a.logger)}
		if a.config.WorldCatAPIURL != "" {
			opts = append(opts, worldcat.WithAPIURL(a.config.WorldCatAPIURL))
		}
		if a.config.WorldCatSearchAPIURL != "" {
			opts = append(opts, worldcat.WithSearchAPIURL(a.config.WorldCatSearchAPIURL))
		}
		if a.config.PrincipalID != "" {
			opts = append(opts, worldcat.WithTransactionIDs(a.config.PrincipalID))
		}
		a.worldcat = worldcat.NewClient(t, a.config.InstitutionSymbol, opts...)
	}
	return a.worldcat, nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}
