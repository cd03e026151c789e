package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/platform/logger"
	"github.com/mediflash/mediflash-api/internal/platform/sqlite"
	"github.com/mediflash/mediflash-api/internal/store"
	"github.com/spf13/cobra"
)

const (
	envDB   = "MEDIFLASH_DB"
	envUser = "MEDIFLASH_USER"

	formatText = "text"
	formatJSON = "json"
)

// localUserID owns everything created from the CLI unless --user is given.
var localUserID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("mediflash:local-user"))

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	dbPath   string
	user     string
	format   string
	logLevel string
}

// dbPathOrDefault resolves the database path from the flag, then $MEDIFLASH_DB,
// then ~/.mediflash/mediflash.db.
func (o *rootOptions) dbPathOrDefault() string {
	if o.dbPath != "" {
		return o.dbPath
	}
	if env := os.Getenv(envDB); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "mediflash.db"
	}
	return filepath.Join(home, ".mediflash", "mediflash.db")
}

func (o *rootOptions) userID() (uuid.UUID, error) {
	raw := o.user
	if raw == "" {
		raw = os.Getenv(envUser)
	}
	if raw == "" {
		return localUserID, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}

// env is what a command needs to run against the local database.
type env struct {
	db     *sql.DB
	decks  store.DeckStore
	userID uuid.UUID
	logger *slog.Logger
	out    io.Writer
	format string
}

func (e *env) Close() error {
	return e.db.Close()
}

// printJSON writes v as indented JSON.
func (e *env) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(e.out, string(b))
	return err
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "mediflash",
		Short:         "Spaced-repetition flashcards in the terminal",
		Long:          "Manage flashcard decks and study them with SM-2 scheduling. SQLite-backed, single binary.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatText && opts.format != formatJSON {
				return fmt.Errorf("unknown output format %q (want text or json)", opts.format)
			}
			if _, ok := logger.ParseLevel(opts.logLevel); !ok {
				return fmt.Errorf("unknown log level %q", opts.logLevel)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.dbPath, "db", "d", "", "Database path (default: $MEDIFLASH_DB or ~/.mediflash/mediflash.db)")
	flags.StringVarP(&opts.user, "user", "u", "", "User ID owning decks (default: $MEDIFLASH_USER or the local user)")
	flags.StringVarP(&opts.format, "format", "f", formatText, "Output format: text or json")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr: debug, info, warn or error")

	root.AddCommand(
		newDecksCmd(opts),
		newImportCmd(opts),
		newStudyCmd(opts),
	)
	return root
}

// openEnv opens the database and resolves the acting user for cmd.
func openEnv(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*env, error) {
	userID, err := opts.userID()
	if err != nil {
		return nil, err
	}

	level, _ := logger.ParseLevel(opts.logLevel)
	log := logger.New(cmd.ErrOrStderr(), level)

	db, err := sqlite.Open(logger.WithLogger(ctx, log), opts.dbPathOrDefault())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &env{
		db:     db,
		decks:  sqlite.NewDeckStore(db, log),
		userID: userID,
		logger: log,
		out:    cmd.OutOrStdout(),
		format: opts.format,
	}, nil
}
