/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the clinic API server. Handles configuration,
  dependency injection, seeding, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env file + environment)
  2. Initialize SQLite store
  3. Seed the treatment catalog and the bootstrap admin (first boot only)
  4. Configure HTTP router and start the overdue invoice sweeper
  5. Start server with graceful shutdown

CONFIGURATION:
  All config comes from the environment (see config/config.go):
  PORT, ENV, DB_PATH, JWT_SECRET, TOKEN_TTL, CORS_ORIGINS, ADMIN_EMAIL,
  ADMIN_PASSWORD, CLINIC_NAME, CLINIC_ADDRESS, CLINIC_PHONE,
  OVERDUE_SWEEP_INTERVAL.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the overdue sweeper and close the database
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration loading
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentaldesk/clinic-api/api"
	"github.com/dentaldesk/clinic-api/catalog"
	"github.com/dentaldesk/clinic-api/clinic"
	"github.com/dentaldesk/clinic-api/config"
	"github.com/dentaldesk/clinic-api/document"
	"github.com/dentaldesk/clinic-api/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Env)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	if err := seed(context.Background(), store, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("failed to seed database")
	}

	handler := api.NewHandler(store, clinic.DefaultAuthorizer(), api.Options{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
		Letterhead: document.Letterhead{
			ClinicName: cfg.ClinicName,
			Address:    cfg.ClinicAddress,
			Phone:      cfg.ClinicPhone,
		},
	}, log)

	router := api.NewRouter(handler, cfg.CORSOrigins)

	sweeper := api.NewOverdueScheduler(store, log)
	if cfg.OverdueSweepInterval > 0 {
		sweeper.CheckInterval = cfg.OverdueSweepInterval
	}
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}

// newLogger returns a console logger in development and JSON elsewhere.
func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// seed loads the default treatment catalog and creates the bootstrap admin
// account. Both run only when their table is empty, so restarts are no-ops.
func seed(ctx context.Context, store *sqlite.Store, cfg *config.Config, log zerolog.Logger) error {
	now := time.Now().UTC()

	created, err := catalog.Seed(ctx, store, []byte(catalog.DefaultJSON), now)
	if err != nil {
		return fmt.Errorf("catalog seed: %w", err)
	}
	if created > 0 {
		log.Info().Int("treatments", created).Msg("seeded treatment catalog")
	}

	count, err := store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if cfg.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required to create the bootstrap admin")
	}

	admin, err := clinic.NewUser(clinic.UserInput{
		Email:    cfg.AdminEmail,
		Name:     "Administrator",
		Role:     clinic.RoleAdmin,
		Password: cfg.AdminPassword,
	}, now)
	if err != nil {
		return err
	}
	if err := store.CreateUser(ctx, admin); err != nil {
		return err
	}

	log.Info().Str("email", admin.Email).Msg("created bootstrap admin")
	return nil
}
