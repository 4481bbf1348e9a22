package main

import (
	"context"
	"html/template"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/benson/survivor/config"
	"github.com/benson/survivor/database"
	"github.com/benson/survivor/handlers"
	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/metrics"
	"github.com/benson/survivor/middleware"
	"github.com/benson/survivor/services"
	"github.com/benson/survivor/templates"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Configure(cfg.ToLoggingConfig())
	cfg.LogConfiguration()

	logger := logging.WithPrefix("Main")

	// Root context cancels on SIGINT/SIGTERM and drives shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize MongoDB connection
	db, err := database.NewMongoConnection(cfg.ToDatabaseConfig())
	if err != nil {
		logger.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close()

	// Create repositories
	seasonRepo := database.NewMongoSeasonRepository(db)
	contestantRepo := database.NewMongoContestantRepository(db)
	entryRepo := database.NewMongoEntryRepository(db)
	userRepo := database.NewMongoUserRepository(db)

	// Create services around the pure scoring engine
	engine := services.NewScoringService()
	standingsService := services.NewStandingsService(seasonRepo, contestantRepo, entryRepo, engine)
	entryService := services.NewEntryService(entryRepo, seasonRepo, contestantRepo, standingsService)
	seasonService := services.NewSeasonService(seasonRepo, contestantRepo, entryRepo, standingsService)
	contestantService := services.NewContestantService(contestantRepo, seasonRepo, standingsService)
	authService := services.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	wikiClient := services.NewWikiClient(cfg.Sync.WikiURL)
	syncService := services.NewRosterSyncService(wikiClient, seasonRepo, contestantRepo, standingsService)

	// Make sure the admin API is reachable on a fresh deployment
	if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		logger.Errorf("Failed to bootstrap admin account: %v", err)
	}
	if count, err := userRepo.Count(ctx); err == nil && count == 0 {
		logger.Warn("No admin accounts exist; set ADMIN_USERNAME and ADMIN_PASSWORD to bootstrap one")
	}

	// Seed a season on first boot when a seed file is configured and the
	// database is still empty
	maybeSeedOnFirstBoot(ctx, cfg, seasonService, contestantRepo, entryRepo, userRepo, standingsService)

	// Parse templates with the scoring display helpers
	tmpl, err := template.New("").Funcs(templates.GetTemplateFuncs()).ParseGlob("templates/*.html")
	if err != nil {
		logger.Fatalf("Error parsing templates: %v", err)
	}

	// Create handlers
	standingsHandler := handlers.NewStandingsHandler(tmpl, standingsService, seasonService, cfg.App.DefaultSeason)
	entryHandler := handlers.NewEntryHandler(tmpl, entryService, seasonService, contestantService)
	seasonHandler := handlers.NewSeasonHandler(seasonService, contestantService)
	adminHandler := handlers.NewAdminHandler(tmpl, seasonService, contestantService, entryService, syncService, standingsService)
	authHandler := handlers.NewAuthHandler(tmpl, authService, cfg.Auth.TokenExpiry)
	healthHandler := handlers.NewHealthHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	// RequireAdmin gates writes; OptionalAdmin only decorates pages with
	// admin navigation when a valid token rides along.
	admin := func(h http.HandlerFunc) http.Handler { return authMiddleware.RequireAdmin(h) }
	optional := func(h http.HandlerFunc) http.Handler { return authMiddleware.OptionalAdmin(h) }

	// Setup routes
	r := mux.NewRouter()
	r.Use(middleware.SecurityMiddleware)
	r.Use(middleware.MetricsMiddleware)

	// Static files and operational endpoints
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir("static/"))))
	r.HandleFunc("/healthz", healthHandler.Healthz).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Pages
	r.Handle("/", optional(standingsHandler.Home)).Methods("GET")
	r.Handle("/seasons/{id}", optional(standingsHandler.StandingsPage)).Methods("GET")
	r.Handle("/seasons/{id}/picks", optional(entryHandler.PickForm)).Methods("GET")
	r.Handle("/seasons/{id}/picks", optional(entryHandler.SubmitEntryForm)).Methods("POST")
	r.Handle("/login", optional(authHandler.LoginPage)).Methods("GET")
	r.HandleFunc("/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/logout", authHandler.Logout).Methods("POST")
	r.Handle("/admin", admin(adminHandler.AdminPage)).Methods("GET")

	// Public API
	r.HandleFunc("/api/login", authHandler.LoginAPI).Methods("POST")
	r.HandleFunc("/api/seasons", seasonHandler.ListSeasonsAPI).Methods("GET")
	r.HandleFunc("/api/seasons/{id}", seasonHandler.GetSeasonAPI).Methods("GET")
	r.HandleFunc("/api/seasons/{id}/standings", standingsHandler.GetStandingsAPI).Methods("GET")
	r.HandleFunc("/api/seasons/{id}/entries", entryHandler.ListEntriesAPI).Methods("GET")
	r.HandleFunc("/api/seasons/{id}/entries/{player}", entryHandler.GetEntryAPI).Methods("GET")
	r.HandleFunc("/api/entries", entryHandler.SubmitEntryAPI).Methods("POST")

	// Admin API
	r.Handle("/api/me", admin(authHandler.Me)).Methods("GET")
	r.Handle("/api/seasons/{id}", admin(seasonHandler.SaveSeasonAPI)).Methods("PUT")
	r.Handle("/api/seasons/{id}", admin(seasonHandler.DeleteSeasonAPI)).Methods("DELETE")
	r.Handle("/api/seasons/{id}/roster", admin(adminHandler.ReplaceRosterAPI)).Methods("PUT")
	r.Handle("/api/seasons/{id}/contestants/{name}/placement", admin(adminHandler.SetPlacementAPI)).Methods("PUT")
	r.Handle("/api/seasons/{id}/contestants/{name}/bonus", admin(adminHandler.RecordBonusAPI)).Methods("POST")
	r.Handle("/api/seasons/{id}/standings/recompute", admin(standingsHandler.RecomputeAPI)).Methods("POST")
	r.Handle("/api/seasons/{id}/entries/{player}", admin(entryHandler.DeleteEntryAPI)).Methods("DELETE")
	r.Handle("/api/seasons/{id}/sync", admin(adminHandler.SyncSeasonAPI)).Methods("POST")
	r.Handle("/api/sync", admin(adminHandler.SyncAllAPI)).Methods("POST")
	r.Handle("/api/admin/cache", admin(adminHandler.CacheStatsAPI)).Methods("GET")

	// Start the background wiki sync loop
	if cfg.IsSyncEnabled() {
		scheduler := services.NewSyncScheduler(syncService, cfg.Sync.Interval)
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		logger.Info("Background wiki sync is disabled")
	}

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		var err error
		if cfg.Server.UseTLS && !cfg.Server.BehindProxy {
			logger.Infof("Server starting with TLS on %s", srv.Addr)
			err = srv.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			logger.Infof("Server starting on %s", srv.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	// Let in-flight requests finish before the deferred cleanups run.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}

// maybeSeedOnFirstBoot imports the configured seed file when the database
// has no seasons yet, so a fresh install comes up with something to show.
func maybeSeedOnFirstBoot(ctx context.Context, cfg *config.Config, seasons *services.SeasonService,
	contestantRepo *database.MongoContestantRepository, entryRepo *database.MongoEntryRepository,
	userRepo *database.MongoUserRepository, standings *services.StandingsService) {

	logger := logging.WithPrefix("Main")
	if cfg.App.SeedFile == "" {
		return
	}

	existing, err := seasons.ListSeasons(ctx)
	if err != nil {
		logger.Errorf("Skipping first-boot seed, cannot list seasons: %v", err)
		return
	}
	if len(existing) > 0 {
		return
	}

	seed, err := services.LoadFile(cfg.App.SeedFile)
	if err != nil {
		logger.Errorf("Skipping first-boot seed: %v", err)
		return
	}

	seeder := services.NewSeedService(seasons, contestantRepo, contestantRepo, entryRepo, userRepo, standings)
	if _, err := seeder.Apply(ctx, seed); err != nil {
		logger.Errorf("First-boot seed failed: %v", err)
		return
	}
	logger.Infof("Seeded season %s from %s", seed.Season.ID, cfg.App.SeedFile)
}
