package app

import (
	"fmt"
	"io"
	"log"

	"cuppasync/internal/config"
	"cuppasync/internal/conflict"
	"cuppasync/internal/credentials"
	"cuppasync/internal/notify"
	"cuppasync/internal/queue"
	"cuppasync/internal/remote"
	"cuppasync/internal/sync"
	"cuppasync/internal/utils"
)

// App holds the application state
type App struct {
	config   *config.Config
	storage  queue.Storage
	store    *queue.Store
	client   *remote.Client
	creds    *credentials.Credentials
	resolver *conflict.Resolver
	sink     notify.Sink
	logger   *log.Logger
}

// NewApp opens the configured storage and prepares the remote client.
// Toasts are rendered on out in the configured style. Missing credentials
// are not an error here: sync passes fail their items as unconfigured.
func NewApp(cfg *config.Config, out io.Writer, resolver *credentials.Resolver) (*App, error) {
	storage, err := OpenStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	creds, err := resolver.Resolve(cfg.Profile, cfg.Remote.APIKey, cfg.Remote.AccessToken)
	if err != nil {
		utils.Debugf("credentials: %v", err)
	}
	if creds == nil {
		creds = &credentials.Credentials{Source: credentials.SourceNone, TokenSource: credentials.SourceNone}
	}

	strategies := conflict.NewResolver()
	if err := strategies.Configure(cfg.Conflict.Strategies); err != nil {
		storage.Close()
		return nil, err
	}

	a := &App{
		config:   cfg,
		storage:  storage,
		creds:    creds,
		resolver: strategies,
		sink:     notify.NewTerminalSink(out, notify.Style(cfg.Notifications.Style)),
		logger:   utils.NewComponentLogger("Sync"),
	}
	a.store = queue.NewStore(storage, nil, queue.WithLogger(utils.NewComponentLogger("Queue")))
	a.client = remote.NewClient(remote.Config{
		BaseURL:      cfg.Remote.BaseURL,
		Table:        cfg.Remote.Table,
		APIKey:       creds.APIKey,
		AccessToken:  creds.AccessToken,
		APIKeyHeader: cfg.Remote.APIKeyHeader,
		Timeout:      cfg.Remote.Timeout,
	})
	return a, nil
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.config }

// Store returns the queue store.
func (a *App) Store() *queue.Store { return a.store }

// Client returns the remote mutation log client.
func (a *App) Client() *remote.Client { return a.client }

// Credentials returns the resolved credentials and their sources.
func (a *App) Credentials() *credentials.Credentials { return a.creds }

// Sink returns the terminal toast sink.
func (a *App) Sink() notify.Sink { return a.sink }

// Resolver returns the conflict strategy registry shared by coordinators.
func (a *App) Resolver() *conflict.Resolver { return a.resolver }

// Coordinator builds a sync coordinator over the app's queue. opts are
// applied after the app defaults.
func (a *App) Coordinator(opts ...sync.Option) (*sync.Coordinator, error) {
	base := []sync.Option{
		sync.WithResolver(a.resolver),
		sync.WithSink(a.sink),
		sync.WithLogger(a.logger),
		sync.WithMaxRetries(a.config.Sync.MaxRetries),
	}
	return sync.NewCoordinator(a.store, a.client, append(base, opts...)...)
}

// Close releases the storage backend.
func (a *App) Close() error {
	return a.storage.Close()
}

// OpenStorage opens the queue backend selected by cfg.
func OpenStorage(cfg config.StorageConfig) (queue.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return queue.NewMemoryStorage(), nil
	case "file":
		return queue.NewFileStorage(cfg.Path)
	case "sqlite", "":
		return queue.OpenSQLiteStorage(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
