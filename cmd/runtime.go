// ABOUTME: Builds the collaborators shared by commands from configuration
// ABOUTME: Wires config, logging, credential store, session store and API client

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/shelfhq/shelf/internal/client"
	"github.com/shelfhq/shelf/internal/config"
	"github.com/shelfhq/shelf/internal/credstore"
	"github.com/shelfhq/shelf/internal/logger"
	"github.com/shelfhq/shelf/internal/session"
)

// runtime holds everything a command needs to talk to the backend
type runtime struct {
	cfg     *config.Config
	creds   credstore.Store
	session *session.Store
	client  *client.Client
}

// openRuntime loads config and opens the session. With fileLog set, logs
// go to debug.log in the config dir so they don't draw over a TUI.
func openRuntime(ctx context.Context, fileLog bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = GetAPIURL()
	}
	if configDir != "" {
		cfg.ConfigDir = configDir
	}

	logOpts := logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}
	if fileLog || cfg.DebugLog {
		logOpts.FileDir = cfg.ConfigDir
	}
	if err := logger.Init(logOpts); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	creds, err := credstore.Open(cfg.CredentialOptions())
	if err != nil {
		return nil, err
	}

	policy := session.KeepSession
	if cfg.ClearOnUnauthorized {
		policy = session.ClearSession
	}
	fetcher := client.New(cfg.APIURL, client.WithTimeout(cfg.Timeout()))
	store, err := session.New(ctx, creds, fetcher,
		session.WithLogger(log.Logger),
		session.WithUnauthorizedPolicy(policy))
	if err != nil {
		closeStore(creds)
		return nil, err
	}

	log.Debug().
		Str("api_url", cfg.APIURL).
		Str("credential_store", cfg.CredentialStore).
		Bool("authenticated", store.IsAuthenticated(ctx)).
		Msg("runtime ready")

	return &runtime{
		cfg:     cfg,
		creds:   creds,
		session: store,
		client: client.New(cfg.APIURL,
			client.WithTokenSource(store),
			client.WithTimeout(cfg.Timeout()),
			client.WithCategoryCache(cfg.CategoryTTL())),
	}, nil
}

// Close releases the credential store connection and the log file
func (rt *runtime) Close() {
	closeStore(rt.creds)
	logger.Close()
}

func closeStore(s credstore.Store) {
	if c, ok := s.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("closing credential store")
		}
	}
}

// withRuntime opens the runtime, runs fn and returns its exit code
func withRuntime(ctx context.Context, w io.Writer, fn func(rt *runtime) int) int {
	rt, err := openRuntime(ctx, false)
	if err != nil {
		return fail(w, err)
	}
	defer rt.Close()
	return fn(rt)
}
