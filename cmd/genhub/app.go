package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/matiasleandrokruk/genhub/internal/api"
	"github.com/matiasleandrokruk/genhub/internal/domain/chat"
	"github.com/matiasleandrokruk/genhub/internal/domain/conversation"
	"github.com/matiasleandrokruk/genhub/internal/domain/model"
	"github.com/matiasleandrokruk/genhub/internal/domain/provider"
	"github.com/matiasleandrokruk/genhub/internal/domain/render"
	"github.com/matiasleandrokruk/genhub/internal/infra/config"
	"github.com/matiasleandrokruk/genhub/internal/infra/eventbus"
	"github.com/matiasleandrokruk/genhub/internal/infra/llm"
	"github.com/matiasleandrokruk/genhub/internal/infra/secrets"
	"github.com/matiasleandrokruk/genhub/internal/infra/settings"
	"github.com/matiasleandrokruk/genhub/internal/infra/sqlite"
	pkgauth "github.com/matiasleandrokruk/genhub/pkg/auth"
)

// apiSecretFile holds the generated token secret when GENHUB_API_SECRET is unset.
const apiSecretFile = "api.secret"

// app is the wired process: storage, services and the HTTP handler over them.
type app struct {
	db      *sql.DB
	handler http.Handler
	issuer  *pkgauth.TokenIssuer
}

// openStorage opens the database and applies pending migrations.
func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sqlite.NewDB(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	applied, err := sqlite.MigrateUp(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("database ready", "path", cfg.DBPath(), "migrations_applied", applied)
	return db, nil
}

// newIssuer builds the session token issuer from GENHUB_API_SECRET or the generated secret file.
func newIssuer(cfg config.Config) (*pkgauth.TokenIssuer, error) {
	secret := []byte(cfg.APISecret)
	if len(secret) == 0 {
		var err error
		if secret, err = secrets.LoadOrCreateKey(filepath.Join(cfg.DataDir, apiSecretFile)); err != nil {
			return nil, fmt.Errorf("load api secret: %w", err)
		}
	}
	return pkgauth.NewIssuer(secret, cfg.TokenTTL)
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	db, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a, err := wire(db, cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func wire(db *sql.DB, cfg config.Config, logger *slog.Logger) (*app, error) {
	masterKey, err := secrets.LoadOrCreateKey(cfg.KeyPath())
	if err != nil {
		return nil, fmt.Errorf("load master key: %w", err)
	}
	sealer, err := secrets.NewSealer(masterKey)
	if err != nil {
		return nil, err
	}

	store, err := settings.Load(cfg.SettingsPath())
	if err != nil {
		// store holds defaults; startup continues
		logger.Warn("settings not loaded, using defaults", "error", err)
	}

	issuer, err := newIssuer(cfg)
	if err != nil {
		return nil, err
	}

	dispatcher := llm.NewDispatcher(
		llm.WithTimeout(cfg.DispatchTimeout),
		llm.WithOllamaBaseURL(cfg.OllamaBaseURL),
		llm.WithLogger(logger),
	)
	bus := eventbus.New()
	convs := conversation.NewService(db)
	providers := provider.NewService(db, sealer, dispatcher, logger)

	orch := chat.NewOrchestrator(chat.Deps{
		Store:       convs,
		Credentials: providers,
		LLM:         dispatcher,
		Renderer:    render.New(),
		Theme:       store,
		Events:      bus,
		Logger:      logger,
	})

	handler := api.NewRouter(api.Deps{
		Turns:         orch,
		Conversations: convs,
		Models:        model.NewService(db),
		Providers:     providers,
		Settings:      store,
		Events:        bus,
		Tokens:        issuer,
		Logger:        logger,
		Development:   cfg.Development,
	})

	return &app{db: db, handler: handler, issuer: issuer}, nil
}
