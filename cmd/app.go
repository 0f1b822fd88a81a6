package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/teemow/autogmail/internal/apiclient"
	"github.com/teemow/autogmail/internal/backend"
	"github.com/teemow/autogmail/internal/config"
	"github.com/teemow/autogmail/internal/endpoint"
	"github.com/teemow/autogmail/internal/instrumentation"
	"github.com/teemow/autogmail/internal/logging"
	"github.com/teemow/autogmail/internal/tokenstore"
)

// storeMode selects which token store the API client reads.
type storeMode int

const (
	// storePersistent reads the configured store (CLI commands).
	storePersistent storeMode = iota
	// storeScopedPersistent prefers a store bound to the request context and
	// falls back to the configured store (MCP server).
	storeScopedPersistent
	// storeScopedEmpty only uses stores bound to the request context (web site
	// and MCP over HTTP).
	storeScopedEmpty
)

// app holds the dependencies shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	resolver *endpoint.Resolver

	// store is the configured persistent store
	store tokenstore.TokenStore
	// clientStore is the store the API client reads the bearer token from
	clientStore tokenstore.TokenStore

	api     *apiclient.Client
	backend *backend.Client
}

// newApp builds the shared dependencies. ep selects the backend; only the site
// passes its own origin.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, mode storeMode, ep endpoint.Config, metrics *instrumentation.Metrics) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		store tokenstore.TokenStore
		err   error
	)
	if mode == storeScopedEmpty {
		store = tokenstore.NewMemory()
	} else {
		store, err = tokenstore.New(ctx, cfg.TokenStore)
		if err != nil {
			return nil, fmt.Errorf("failed to open token store: %w", err)
		}
	}

	clientStore := store
	if mode != storePersistent {
		clientStore = tokenstore.NewScoped(store)
	}

	resolver := endpoint.NewResolver(ep)
	api, err := apiclient.New(apiclient.Config{
		BaseURL: resolver.BaseURL(),
		Store:   clientStore,
		Timeout: cfg.API.Timeout,
		Decorators: []apiclient.Decorator{
			apiclient.StaticHeader("User-Agent", "autogmail/"+version),
		},
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	logger.Debug("backend resolved",
		slog.String(logging.KeyBaseURL, resolver.BaseURL()),
		slog.String("source", string(resolver.Source())),
		slog.String("token_store", cfg.TokenStore.Type))

	return &app{
		cfg:         cfg,
		logger:      logger,
		resolver:    resolver,
		store:       store,
		clientStore: clientStore,
		api:         api,
		backend:     backend.NewClient(api),
	}, nil
}

// Close releases the token store connection, if any.
func (a *app) Close() {
	closeStore(a.store)
}

func closeStore(store tokenstore.TokenStore) {
	if c, ok := store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("failed to close token store", logging.Err(err))
		}
	}
}

// bootstrap loads the configuration, configures logging and builds the app for
// a CLI command.
func bootstrap(ctx context.Context, cmd *cobra.Command, mode storeMode) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := setupLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, logger, mode, cfg.Endpoint(), nil)
}
