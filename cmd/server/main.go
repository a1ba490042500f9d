package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sujalbistaa/polls/internal/config"
	"github.com/sujalbistaa/polls/internal/db"
	routes "github.com/sujalbistaa/polls/internal/http"
	"github.com/sujalbistaa/polls/internal/logging"
	"github.com/sujalbistaa/polls/internal/metrics"
	"github.com/sujalbistaa/polls/internal/ws"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "polls",
		Short:         "Web poll server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("polls version %s\n", version)
		},
	})

	return cmd
}

// bootstrap loads config, builds the logger and opens the database.
func bootstrap() (config.Config, *zap.SugaredLogger, *gorm.DB, error) {
	cfg, dotenv, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	logger := logging.New(cfg.IsDevEnvironment())
	if !dotenv {
		logger.Info("no .env file found, reading from environment")
	}

	database, err := db.Init(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Errorw("failed to initialize database", "error", err)
		return config.Config{}, nil, nil, err
	}

	logger.Info("running database migrations")
	if err := db.Migrate(database); err != nil {
		logger.Errorw("failed to run migrations", "error", err)
		return config.Config{}, nil, nil, err
	}
	logger.Info("migrations complete")

	return cfg, logger, database, nil
}

func migrate() error {
	_, logger, database, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()
	return closeDB(database)
}

func closeDB(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func serve() error {
	cfg, logger, database, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer closeDB(database)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(cfg.CORSOrigin, logger)
	go hub.Run(ctx)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	if !cfg.IsDevEnvironment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	env := routes.NewEnv(database, hub, m, logger)
	routes.SetupRoutes(ctx, router, cfg, env, registry)

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Errorw("listen failed", "error", err)
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("server forced to shutdown", "error", err)
		return err
	}

	logger.Info("server exiting")
	return nil
}
