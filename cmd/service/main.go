// cmd/service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github-activity-mirror/internal/api"
	"github-activity-mirror/internal/config"
	"github-activity-mirror/internal/database"
	"github-activity-mirror/internal/github"
	"github-activity-mirror/internal/syncer"
)

func main() {
	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(viper.GetViper()).ExecuteContext(ctx); err != nil {
		slog.Error("Application error", "error", err)
		cancel()
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var once bool

	root := &cobra.Command{
		Use:           "github-activity-mirror",
		Short:         "Mirror recent GitHub activity into PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), once)
		},
	}
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().String("repos-file", "", "path of the repository list file")
	_ = v.BindPFlag("LOG_LEVEL", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("REPOS_FILE", root.PersistentFlags().Lookup("repos-file"))
	root.Flags().BoolVar(&once, "once", false, "run a single sync pass and exit")

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	})

	return root
}

func newLogger() (*slog.Logger, *slog.LevelVar) {
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, logLevel
}

func runMigrate() error {
	logger, logLevel := newLogger()

	dbURL, err := config.LoadDatabaseURL()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(viper.GetString("LOG_LEVEL"), logLevel)
	if err := database.Migrate(dbURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")
	return nil
}

func run(ctx context.Context, once bool) error {
	// 1. Initialize structured logger
	logger, logLevel := newLogger()

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully", "repositories", len(cfg.ReposToSync), "once", once)

	// 3. Initialize database connection and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	logger.Info("Database connection established")

	if err := database.Migrate(cfg.DBURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 4. Initialize application components
	ghClient, err := github.NewClient(cfg.GithubToken, logger, github.Options{
		BaseURL:           cfg.GithubBaseURL,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}
	queries := database.New(dbpool)

	interval := cfg.SyncInterval
	if once {
		interval = 0
	}
	appSyncer, err := syncer.NewSyncer(queries, ghClient, github.NewRateLimiter(ghClient), logger, cfg.ReposToSync, syncer.Options{
		Interval:    interval,
		Retention:   cfg.Retention,
		Concurrency: cfg.FetchConcurrency,
	})
	if err != nil {
		return fmt.Errorf("failed to create syncer: %w", err)
	}

	// 5. Serve the read API if configured
	var srv *http.Server
	if cfg.HTTPAddr != "" {
		srv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.NewRouter(queries, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("Starting HTTP server", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server failed", "error", err)
			}
		}()
		defer shutdown(srv, logger)
	}

	// 6. Sync
	if once {
		summarize(logger, appSyncer.RunOnce(ctx))
		return nil
	}

	appSyncer.Start(ctx)
	if srv != nil {
		// A single pass without an interval still keeps the API up.
		logger.Info("Application started. Waiting for shutdown signal...")
		<-ctx.Done()
	}
	logger.Info("Syncer stopped. Exiting.", "reason", context.Cause(ctx))
	return nil
}

func shutdown(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
}

// summarize logs the outcome of a single pass. Failed repositories are reported but do
// not fail the process.
func summarize(logger *slog.Logger, results []syncer.RepoResult) {
	var failed []string
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, res.Repo)
		}
	}
	if len(failed) > 0 {
		logger.Warn("Some repositories failed to sync", "failed", failed, "total", len(results))
		return
	}
	logger.Info("All repositories synced", "total", len(results))
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
