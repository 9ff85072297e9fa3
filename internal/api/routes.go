// Package api wires the chi router for the local command surface.
// Every route under /api/v1 requires a session token; /health is public.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matiasleandrokruk/genhub/internal/api/handlers"
	apmiddleware "github.com/matiasleandrokruk/genhub/internal/api/middleware"
	"github.com/matiasleandrokruk/genhub/internal/domain/model"
	"github.com/matiasleandrokruk/genhub/internal/domain/provider"
	"github.com/matiasleandrokruk/genhub/internal/infra/settings"
)

// Deps are the services behind the routes.
type Deps struct {
	Turns         handlers.TurnSender
	Conversations handlers.ConversationService
	Models        *model.Service
	Providers     *provider.Service
	Settings      *settings.Store
	Events        handlers.Subscriber
	Tokens        apmiddleware.TokenParser
	Logger        *slog.Logger

	// Development exposes the environment key import.
	Development bool
}

// NewRouter creates and configures a new chi router with all routes.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// ===== PUBLIC ROUTES =====

	r.Get("/health", handlers.Health)

	// ===== PROTECTED ROUTES =====

	chatHandler := handlers.NewChatHandler(d.Turns, d.Conversations)
	modelHandler := handlers.NewModelHandler(d.Models)
	providerHandler := handlers.NewProviderHandler(d.Providers)
	settingsHandler := handlers.NewSettingsHandler(d.Settings)
	eventsHandler := handlers.NewEventsHandler(d.Events, d.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apmiddleware.AuthMiddleware(d.Tokens))
		r.Use(apmiddleware.AccessLog(d.Logger))

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", chatHandler.ListChats)                 // GET /api/v1/chats
			r.Put("/{id}", chatHandler.RenameChat)            // PUT /api/v1/chats/{id}
			r.Delete("/{id}", chatHandler.DeleteChat)         // DELETE /api/v1/chats/{id}
			r.Post("/{id}/turns", chatHandler.SendTurn)       // POST /api/v1/chats/{id}/turns
			r.Get("/{id}/messages", chatHandler.ListMessages) // GET /api/v1/chats/{id}/messages
			r.Post("/{id}/archive", chatHandler.ArchiveChat)  // POST /api/v1/chats/{id}/archive
		})

		r.Route("/models", func(r chi.Router) {
			r.Get("/", modelHandler.ListModels)
			r.Post("/", modelHandler.AddModel)
			r.Get("/{provider}/*", modelHandler.GetModel)
			r.Put("/{provider}/*", modelHandler.UpdateModel)
			r.Delete("/{provider}/*", modelHandler.DeleteModel)
		})

		r.Route("/providers", func(r chi.Router) {
			r.Get("/", providerHandler.ListProviders)
			r.Post("/", providerHandler.AddProvider)
			if d.Development {
				r.Post("/import-env", providerHandler.ImportEnvKeys)
			}
			r.Get("/{name}", providerHandler.GetProvider)
			r.Put("/{name}", providerHandler.UpdateProvider)
			r.Delete("/{name}", providerHandler.DeleteProvider)
			r.Put("/{name}/key", providerHandler.SetAPIKey)
			r.Post("/{name}/validate", providerHandler.ValidateKey)
		})

		r.Get("/settings", settingsHandler.GetSettings)
		r.Put("/settings", settingsHandler.ApplySettings)

		r.Get("/events", eventsHandler.Stream)
	})

	return r
}
