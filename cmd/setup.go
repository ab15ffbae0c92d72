package cmd

import (
	"fmt"

	"github.com/dkessler/cratekeeper/internal/app"
	"github.com/dkessler/cratekeeper/internal/auth"
	"github.com/dkessler/cratekeeper/internal/config"
	"github.com/dkessler/cratekeeper/internal/constants"
	"github.com/dkessler/cratekeeper/internal/discogs"
	"github.com/dkessler/cratekeeper/internal/logger"
	"github.com/dkessler/cratekeeper/internal/pricing"
	"github.com/dkessler/cratekeeper/internal/store"
)

// runtime bundles everything a command needs after wiring.
type runtime struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *store.DB
	Library  *app.Library
	Resolver *auth.Resolver
	Prices   *pricing.Cache
	Phases   *app.PhaseMachine
	Sync     *app.SyncService
	Annotate *app.AnnotateService
	Sessions *app.SessionService
	Accounts *app.AccountService
	Login    *auth.LoginFlow
}

func setup() (*runtime, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	client := discogs.NewClient(cfg.DiscogsURL, log)
	lib := app.NewLibrary()
	resolver := auth.NewResolver(client, log)
	if cfg.DiscogsToken != "" {
		resolver.UseManual(cfg.DiscogsToken)
	} else if account, err := db.LatestAccount(); err != nil {
		log.Warn("Failed to read stored account", "error", err)
	} else if account != nil {
		if account.ManualToken != "" {
			resolver.UseManual(account.ManualToken)
		} else if account.AccessToken != "" {
			resolver.UseDelegated(account.AccessToken, account.TokenSecret)
		}
	}

	prices := pricing.NewCache(db, client, log)
	if err := prices.Load(); err != nil {
		log.Warn("Failed to load price cache", "error", err)
	}

	phases := app.NewPhaseMachine()
	syncSvc := app.NewSyncService(lib, client, db, resolver, prices, phases, log)
	accounts := app.NewAccountService(lib, db, resolver, prices, syncSvc.Flags, log)

	// The delegated login flow needs the application's consumer pair; without
	// it only the manual token path is available.
	var login *auth.LoginFlow
	if cfg.DiscogsKey != "" {
		login = auth.NewLoginFlow(&discogs.OAuthFlow{
			Client:         client,
			ConsumerKey:    cfg.DiscogsKey,
			ConsumerSecret: cfg.DiscogsSecret,
			AuthorizeURL:   constants.DefaultAuthorizeURL,
		}, client, log)
	}

	return &runtime{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Library:  lib,
		Resolver: resolver,
		Prices:   prices,
		Phases:   phases,
		Sync:     syncSvc,
		Annotate: app.NewAnnotateService(lib, db, resolver, log),
		Sessions: app.NewSessionService(lib, db, resolver, log),
		Accounts: accounts,
		Login:    login,
	}, nil
}

func (rt *runtime) Close() {
	if err := rt.DB.Close(); err != nil {
		rt.Logger.Warn("Failed to close database", "error", err)
	}
}
