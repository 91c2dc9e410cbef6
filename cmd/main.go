/*
Package main is the entry point for the headless HZ Presence client.

It loads configuration, initializes the global logging system, opens the configured token store,
restores the persisted session (or signs in with the configured fallback credentials), and keeps
the presence connection open until the process receives SIGINT or SIGTERM. Shutting down closes
the presence connection but keeps the session, so the next start restores it.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"hzpresence/internal/app/authapi"
	"hzpresence/internal/app/credential"
	"hzpresence/internal/app/db"
	"hzpresence/internal/app/notify"
	"hzpresence/internal/app/presence"
	"hzpresence/internal/app/session"
	"hzpresence/internal/app/tokenstore"
	"hzpresence/internal/configs"
	"hzpresence/internal/pkg/errs"
	"hzpresence/internal/pkg/logx"
)

func main() {
	// A missing .env file is fine: the environment may already be set.
	envErr := godotenv.Load()

	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	if envErr != nil {
		logx.Debug("No .env file loaded", "reason", envErr.Error())
	}
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("backend_url", cfg.BackendURL).
		Str("presence_url", cfg.PresenceURL).
		Str("token_store", cfg.TokenStore).
		Int("reconnect_max_attempts", cfg.ReconnectMaxAttempts).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, closeTokens, err := openTokenStore(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to open token store", "backend", cfg.TokenStore)
	}
	defer closeTokens()

	cred := credential.New()
	api, err := authapi.New(cfg.BackendURL, cred, authapi.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		logx.Fatal(err, "Failed to create authentication client")
	}

	notifier := notify.NewLogSink()

	var strategy presence.ReconnectStrategy = presence.NoReconnect{}
	if cfg.ReconnectMaxAttempts > 0 {
		backoff := presence.DefaultBackoff(cfg.ReconnectMaxAttempts)
		backoff.Base = cfg.ReconnectBaseDelay
		backoff.Max = cfg.ReconnectMaxDelay
		strategy = backoff
	}

	channel, err := presence.NewChannel(presence.Config{
		URL:       cfg.PresenceURL,
		Reconnect: strategy,
		OnRoster: func(ids []string) {
			logx.Logger().Info().Strs("online_user_ids", ids).Int("count", len(ids)).Msg("Online users updated")
		},
		OnState: func(state presence.State, userID string) {
			logx.Info("Presence state changed", "state", state.String(), "user_id", userID)
		},
		OnError: func(err *errs.CustomError) {
			notifier.Error(err.Message)
		},
	})
	if err != nil {
		logx.Fatal(err, "Failed to create presence channel")
	}

	store, err := session.New(session.Deps{
		API:        api,
		Presence:   channel,
		Tokens:     tokens,
		Credential: cred,
		Notifier:   notifier,
	}, session.Options{
		NavigationDelay:       cfg.NavigationDelay,
		ClearOnRestoreFailure: cfg.ClearOnRestoreFailure,
	})
	if err != nil {
		logx.Fatal(err, "Failed to create session store")
	}

	if err := store.Restore(ctx); err != nil {
		logx.Warn("Session could not be restored", "error", err.Error())
	}

	if !store.Authenticated() {
		if !cfg.HasLoginCredentials() {
			logx.Fatal(fmt.Errorf("no session"), "No stored session and no LOGIN_EMAIL/LOGIN_PASSWORD configured")
		}
		mode, _ := authapi.ParseMode(cfg.LoginMode)
		err := store.Login(ctx, mode, authapi.Credentials{
			FullName: cfg.LoginFullName,
			Email:    cfg.LoginEmail,
			Password: cfg.LoginPassword,
			Bio:      cfg.LoginBio,
		})
		if err != nil {
			logx.Fatal(err, "Sign in failed", "mode", cfg.LoginMode)
		}
	}

	logx.Info("Client running. Press Ctrl+C to stop.", "user_id", store.User().ID)

	<-ctx.Done()
	logx.Info("Received shutdown signal. Closing presence connection...")

	channel.Disconnect()

	logx.Info("Client stopped.")
}

// openTokenStore builds the configured backend and returns a function releasing its resources.
func openTokenStore(ctx context.Context, cfg *configs.AppConfig) (tokenstore.Store, func(), error) {
	noop := func() {}

	switch cfg.Backend() {
	case tokenstore.BackendMemory:
		logx.Warn("Using the in-memory token store. The session will not survive a restart.")
		return tokenstore.NewMemoryStore(), noop, nil

	case tokenstore.BackendRedis:
		client, err := tokenstore.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, noop, err
		}
		return tokenstore.NewRedisStore(client, ""), func() { client.Close() }, nil

	case tokenstore.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, noop, err
		}
		return tokenstore.NewPostgresStore(pool, ""), pool.Close, nil

	default:
		store, err := tokenstore.NewFileStore(cfg.TokenFileDir)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	}
}
