// Package migrate runs the embedded goose schema migrations shipped by the
// storage backends.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mediflash/mediflash-api/internal/platform/logger"
	"github.com/pressly/goose/v3"
)

// TableName is the goose version table used by every backend.
const TableName = "schema_migrations"

// Supported migration commands
const (
	CommandUp      = "up"
	CommandDown    = "down"
	CommandReset   = "reset"
	CommandStatus  = "status"
	CommandVersion = "version"
)

// Commands lists every command accepted by Run.
var Commands = []string{CommandUp, CommandDown, CommandReset, CommandStatus, CommandVersion}

// Source describes a set of embedded migrations for one SQL dialect.
type Source struct {
	Dialect string // goose dialect name, e.g. "postgres" or "sqlite3"
	FS      fs.FS
	Dir     string // directory inside FS holding the .sql files
}

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

// Run executes a goose command against db using the migrations in src.
func Run(ctx context.Context, db *sql.DB, src Source, command string) error {
	log := logger.FromContext(ctx).With(
		slog.String("component", "migrations"),
		slog.String("command", command),
		slog.String("dialect", src.Dialect),
	)

	if !slices.Contains(Commands, command) {
		return fmt.Errorf("unknown migration command %q (want one of %v)", command, Commands)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(&slogGooseLogger{log: log})
	goose.SetBaseFS(src.FS)
	defer goose.SetBaseFS(nil)
	goose.SetTableName(TableName)
	if err := goose.SetDialect(src.Dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect %q: %w", src.Dialect, err)
	}

	start := time.Now()
	log.Info("running migrations")

	var err error
	switch command {
	case CommandUp:
		err = goose.UpContext(ctx, db, src.Dir)
	case CommandDown:
		err = goose.DownContext(ctx, db, src.Dir)
	case CommandReset:
		err = goose.ResetContext(ctx, db, src.Dir)
	case CommandStatus:
		err = goose.StatusContext(ctx, db, src.Dir)
	case CommandVersion:
		err = goose.VersionContext(ctx, db, src.Dir)
	}
	if err != nil {
		log.Error("migration failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	log.Info("migrations finished", slog.Duration("duration", time.Since(start)))
	return nil
}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB, src Source) error {
	return Run(ctx, db, src, CommandUp)
}

// slogGooseLogger adapts goose.Logger to slog.
type slogGooseLogger struct {
	log *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.log.Info(fmt.Sprintf(format, v...))
}

// Fatalf logs at error level. It does not exit; goose returns the error to Run.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...))
}
