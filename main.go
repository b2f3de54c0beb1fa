package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/openchami/rack-manager/internal/config"
	"github.com/openchami/rack-manager/internal/inventory"
	"github.com/openchami/rack-manager/internal/storage"
	"github.com/openchami/rack-manager/internal/storage/duckdb"
	"github.com/openchami/rack-manager/internal/storage/memory"
	"github.com/openchami/rack-manager/internal/storage/sqlite"
	"github.com/openchami/rack-manager/pkg/eventlogger"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	serveCmd   = flag.NewFlagSet("serve", flag.ExitOnError)
	configPath = serveCmd.String("config", "", "path to a YAML configuration file")
	schemaCmd  = flag.NewFlagSet("schemas", flag.ExitOnError)
	schemaPath = schemaCmd.String("dir", "schemas/", "directory to store JSON schemas")
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("expected 'serve' or 'schemas' subcommands")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		serveCmd.Parse(os.Args[2:])
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		setupLogging(cfg.Log)
		if err := serveAPI(cfg); err != nil {
			log.Fatal().Err(err).Msg("Server stopped")
		}
	case "schemas":
		schemaCmd.Parse(os.Args[2:])
		if err := generateAndWriteSchemas(*schemaPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to write schemas")
		}
	default:
		fmt.Println("expected 'serve' or 'schemas' subcommands")
		os.Exit(1)
	}
}

func setupLogging(cfg config.Log) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// newStorage opens the backend named in the configuration.
func newStorage(cfg config.Storage) (storage.Storage, error) {
	switch cfg.Backend {
	case config.BackendDuckDB:
		var options []duckdb.DuckDBStorageOption
		if cfg.Restore {
			options = append(options, duckdb.WithRestore(cfg.SnapshotPath))
		} else if cfg.SnapshotPath != "" {
			options = append(options, duckdb.WithSnapshotPath(cfg.SnapshotPath))
		}
		options = append(options, duckdb.WithCreateSnapshotDir(true))
		return duckdb.NewDuckDBStorage(cfg.DBPath, options...)
	case config.BackendSQLite:
		return sqlite.NewSQLiteStorage(cfg.DBPath)
	case config.BackendMemory, "":
		return memory.NewInMemoryStorage(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

func serveAPI(cfg config.Config) error {
	store, err := newStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}

	events, err := eventlogger.NewEventLogger(eventlogger.EventLoggerConfig{
		BaseDir:           cfg.Events.Dir,
		RetainInDB:        cfg.Events.RetainInDB,
		DuckDBPath:        cfg.Events.DBPath,
		PopulateFromFiles: cfg.Events.PopulateFromFiles,
	})
	if err != nil {
		return fmt.Errorf("starting event logger: %w", err)
	}

	svc := inventory.NewService(store, inventory.WithEventRecorder(events))
	r := NewRouter(svc, events, log.Logger)

	chi.Walk(r, func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		log.Debug().Str("method", method).Str("route", route).Int("middlewares", len(middlewares)).Msg("Route registered")
		return nil
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("listen", cfg.HTTP.Listen).Str("storage", cfg.Storage.Backend).Msg("Starting rack manager")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			events.Stop()
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if s, ok := store.(storage.Shutdowner); ok {
		s.Shutdown(ctx)
	}
	events.Stop()
	return nil
}
