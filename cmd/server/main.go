// Package main implements the entry point for the mediflash API server,
// which serves flashcard decks, document extraction jobs and study sessions
// over HTTP.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mediflash/mediflash-api/internal/config"
	"github.com/mediflash/mediflash-api/internal/platform/logger"
	"github.com/mediflash/mediflash-api/internal/platform/migrate"
	"github.com/mediflash/mediflash-api/internal/platform/postgres"
	"github.com/mediflash/mediflash-api/internal/platform/sqlite"
)

// options are the command line flags of the server.
type options struct {
	configPath string
	migrate    string
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	if err := run(context.Background(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "mediflash server: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.configPath, "config", "", "path to a config file (default: ./config.yaml when present)")
	fs.StringVar(&opts.migrate, "migrate", "",
		fmt.Sprintf("run a migration command and exit (%s)", strings.Join(migrate.Commands, "|")))

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

// run loads configuration, then either executes the requested migration
// command or serves the API until interrupted.
func run(ctx context.Context, opts options) error {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, logCloser, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database_driver", cfg.Database.Driver),
		slog.Bool("redis_enabled", cfg.Redis.Enabled),
		slog.Bool("extraction_enabled", cfg.LLM.Enabled()))

	ctx = logger.WithLogger(ctx, log)

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}

	if opts.migrate != "" {
		defer func() { _ = db.Close() }()
		if err := migrate.Run(ctx, db, migrationsFor(cfg.Database.Driver), opts.migrate); err != nil {
			return fmt.Errorf("migration %s failed: %w", opts.migrate, err)
		}
		return nil
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

// openDatabase connects to the configured backend. SQLite databases are
// migrated on open; Postgres schemas are managed with -migrate.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return db, nil
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func migrationsFor(driver string) migrate.Source {
	if driver == config.DriverSQLite {
		return sqlite.Migrations()
	}
	return postgres.Migrations()
}
