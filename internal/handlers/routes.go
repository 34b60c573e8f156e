package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcred/microcred-api/internal/auth"
)

type Handlers struct {
	Auth    *auth.AuthHandler
	Awards  *AwardHandler
	Grants  *GrantHandler
	API     *APIHandler
	Admin   *AdminHandler
	APIKeys *APIKeyHandler
	Icons   *IconHandler
}

func RegisterRoutes(r *chi.Mux, h Handlers) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Initialize Huma API
	config := huma.DefaultConfig("Microcred API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
		"apiKeyAuth": {
			Type: "apiKey",
			In:   "header",
			Name: "X-API-KEY",
		},
	}
	api := humachi.New(r, config)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Auth
	huma.Post(api, "/auth/register", h.Auth.HandleRegister)
	huma.Post(api, "/auth/login", h.Auth.HandleLogin)
	huma.Post(api, "/auth/logout", h.Auth.HandleLogout)
	huma.Get(api, "/me", h.Auth.HandleMe, secured)

	// Award catalog (issuer/admin)
	huma.Get(api, "/awards", h.Awards.HandleList, secured)
	huma.Post(api, "/awards", h.Awards.HandleCreate, secured)
	huma.Put(api, "/awards/{id}", h.Awards.HandleEdit, secured)
	huma.Put(api, "/awards/{id}/icon", h.Awards.HandleUploadIcon, secured)
	huma.Delete(api, "/awards/{id}", h.Awards.HandleDelete, secured)

	// Granting and the ledger
	huma.Post(api, "/grants", h.Grants.HandleGrant, secured)
	huma.Get(api, "/grants", h.Grants.HandleListIssued, secured)
	huma.Delete(api, "/achievements/{id}", h.Grants.HandleRevoke, secured)
	huma.Patch(api, "/achievements/{id}/note", h.Grants.HandleUpdateNote, secured)

	// Public read API
	huma.Get(api, "/api/awards", h.API.HandleListAwards)
	huma.Get(api, "/api/awards/{slug}/participants", h.API.HandleAwardHolders)
	huma.Get(api, "/api/participants/{participant_id}/awards", h.API.HandleParticipantAwards)
	huma.Get(api, "/api/participants/{participant_id}/awards/{slug}", h.API.HandleParticipantAwardDetail)

	// Admin
	huma.Get(api, "/admin/stats", h.Admin.HandleStats, secured)
	huma.Get(api, "/admin/users", h.Admin.HandleListUsers, secured)
	huma.Get(api, "/admin/users/{id}", h.Admin.HandleGetUser, secured)
	huma.Put(api, "/admin/users/{id}/roles", h.Admin.HandleSetRoles, secured)
	huma.Delete(api, "/admin/users/{id}", h.Admin.HandleDeleteUser, secured)

	// API keys
	huma.Post(api, "/apikeys", h.APIKeys.HandleCreate, secured)
	huma.Get(api, "/apikeys", h.APIKeys.HandleList, secured)
	huma.Delete(api, "/apikeys/{id}", h.APIKeys.HandleDelete, secured)

	// Icon library
	huma.Get(api, "/icons", h.Icons.HandleList, secured)
	huma.Post(api, "/icons", h.Icons.HandleUpload, secured)
	huma.Delete(api, "/icons/{id}", h.Icons.HandleDelete, secured)
}

func secured(o *huma.Operation) {
	o.Security = []map[string][]string{{"cookieAuth": {}}, {"apiKeyAuth": {}}}
}

// ServeStatic exposes the stored award icons and library images.
func ServeStatic(r *chi.Mux, urlBase, dir string) {
	if urlBase == "" || dir == "" {
		return
	}
	fs := http.StripPrefix(urlBase, http.FileServer(http.Dir(dir)))
	r.Get(urlBase+"/*", func(w http.ResponseWriter, req *http.Request) {
		fs.ServeHTTP(w, req)
	})
}
