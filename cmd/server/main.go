package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/microcred/microcred-api/internal/audit"
	"github.com/microcred/microcred-api/internal/auth"
	"github.com/microcred/microcred-api/internal/catalog"
	"github.com/microcred/microcred-api/internal/config"
	"github.com/microcred/microcred-api/internal/database"
	"github.com/microcred/microcred-api/internal/granting"
	"github.com/microcred/microcred-api/internal/handlers"
	"github.com/microcred/microcred-api/internal/ledger"
	"github.com/microcred/microcred-api/internal/notifier"
	"github.com/microcred/microcred-api/internal/storage"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db := database.Connect(cfg)

	// Asset stores
	awardIcons, err := storage.NewIconStore(cfg.AwardImageDir)
	if err != nil {
		log.Fatalf("Failed to prepare award icon directory: %v", err)
	}
	libraryIcons, err := storage.NewIconStore(cfg.IconDir)
	if err != nil {
		log.Fatalf("Failed to prepare icon library directory: %v", err)
	}

	// Notifier is best-effort; run without it when SMTP is not configured
	var grantNotifier notifier.Notifier
	emailNotifier, err := notifier.NewEmailNotifier(cfg)
	if err != nil {
		log.Printf("Email notifier not initialized: %v", err)
	} else {
		grantNotifier = emailNotifier
	}

	auditSink := audit.NewLog(os.Stderr)

	// Services
	catalogService := catalog.NewService(db, awardIcons)
	ledgerService := ledger.NewService(db)
	grantingService := granting.NewService(db, granting.AllowAll{}, auditSink, grantNotifier)

	// Handlers
	authHandler := auth.NewAuthHandler(cfg, db)
	h := handlers.Handlers{
		Auth:    authHandler,
		Awards:  handlers.NewAwardHandler(catalogService, authHandler, cfg.AwardImageBase),
		Grants:  handlers.NewGrantHandler(grantingService, ledgerService, authHandler, cfg.AwardImageBase),
		API:     handlers.NewAPIHandler(db, catalogService, ledgerService, cfg.AwardImageBase),
		Admin:   handlers.NewAdminHandler(db, ledgerService, authHandler),
		APIKeys: handlers.NewAPIKeyHandler(db, authHandler),
		Icons:   handlers.NewIconHandler(db, libraryIcons, authHandler, cfg.IconBase),
	}

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, h)
	handlers.ServeStatic(r, cfg.AwardImageBase, cfg.AwardImageDir)
	handlers.ServeStatic(r, cfg.IconBase, cfg.IconDir)

	// Start Server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
