package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/estatedesk/internal/api"
	"github.com/erazemk/estatedesk/internal/store"
)

// tokenPurgeInterval is how often expired token revocations are dropped.
const tokenPurgeInterval = time.Hour

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr, adminUser string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			closeLog, err := setupLogger(cfg.Log.Path, cfg.Log.Level)
			if err != nil {
				return err
			}
			defer closeLog()

			// Check if DB exists, auto-init if not.
			if _, err := os.Stat(cfg.DB.Path); errors.Is(err, os.ErrNotExist) {
				database, password, err := initDatabase(cfg.DB.Path, adminUser)
				if err != nil {
					slog.Error("failed to initialize database", "error", err)
					return err
				}
				database.Close()
				printInitResult(cmd, cfg.DB.Path, adminUser, password)
			}

			database, _, err := ctx.openDB()
			if err != nil {
				slog.Error("failed to open database", "error", err)
				return err
			}
			defer database.Close()
			slog.Info("database ready", "path", cfg.DB.Path)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			jwtSecret, err := store.GetJWTSecret(runCtx, database)
			if err != nil {
				slog.Error("failed to get JWT secret", "error", err)
				return err
			}

			svc, err := newService(runCtx, cfg, database)
			if err != nil {
				slog.Error("failed to set up service", "error", err)
				return err
			}
			slog.Info("service ready",
				"storage", cfg.Storage.Backend,
				"analysis", cfg.Analysis.Provider,
				"disposition_conflict", cfg.ConflictPolicy(),
			)

			router := api.NewRouter(database, svc, api.Config{
				JWTSecret:      jwtSecret,
				TokenExpiry:    cfg.TokenExpiry(),
				MaxUploadBytes: cfg.Upload.MaxBytes,
			})

			server := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           api.LoggingMiddleware(router),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       60 * time.Second,
				WriteTimeout:      cfg.AnalysisTimeout() + 30*time.Second,
				IdleTimeout:       120 * time.Second,
			}

			go purgeRevokedTokens(runCtx, func(ctx context.Context, now time.Time) (int64, error) {
				return store.PurgeRevokedTokens(ctx, database, now)
			})

			// Graceful shutdown on SIGINT/SIGTERM.
			go func() {
				<-runCtx.Done()
				slog.Info("shutdown signal received")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("server forced to shutdown", "error", err)
				}
			}()

			slog.Info("server started", "addr", cfg.Server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("server error", "error", err)
				return err
			}

			slog.Info("server stopped, closing database")
			return nil
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVarP(&adminUser, "user", "u", "admin", "admin username on first run")
	return cmd
}

// purgeRevokedTokens runs purge every tokenPurgeInterval until ctx is done.
func purgeRevokedTokens(ctx context.Context, purge func(context.Context, time.Time) (int64, error)) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := purge(ctx, now)
			if err != nil {
				slog.Warn("failed to purge revoked tokens", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged expired token revocations", "count", n)
			}
		}
	}
}
