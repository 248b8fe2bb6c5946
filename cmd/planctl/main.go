// Command planctl manages users and weekly plans from the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/myrjola/overload/internal/envstruct"
	"github.com/myrjola/overload/internal/errors"
	"github.com/myrjola/overload/internal/logging"
	"github.com/myrjola/overload/internal/sqlite"
	"github.com/myrjola/overload/internal/workout"
)

const usage = `planctl - weekly training plans with progressive overload

USAGE:
    planctl <command> [options]

COMMANDS:
    seed                    Load the built-in exercise catalog
    exercises               List the exercise catalog
    user create             Create a user (-name, -goal, -level, -equipment, -chat)
    user list               List users
    generate                Generate next week's plan (-user, -week, -focus)
    show                    Show a plan (-plan or -user, -format text|markdown|html)
    log                     Log a session result for a prescription (-prescription)
    complete                Complete a plan (-plan)
    progress                Show a plan's progress (-plan)
    help                    Show this help message

ENVIRONMENT:
    OVERLOAD_SQLITE_URL     Database path (default ./overload.sqlite3)
`

var errUsage = errors.NewSentinel("usage")

type config struct {
	SqliteURL string `env:"OVERLOAD_SQLITE_URL" envDefault:"./overload.sqlite3"`
}

// cli carries what every command needs.
type cli struct {
	service *workout.Service
	stdin   io.Reader
	stdout  io.Writer
	logger  *slog.Logger
}

func run(
	ctx context.Context,
	args []string,
	stdin io.Reader,
	stdout io.Writer,
	logger *slog.Logger,
	lookupEnv func(string) (string, bool),
) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		_, err := fmt.Fprint(stdout, usage)
		return err
	}

	var cfg config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	// Cancelling stops the database optimizer before the pools close.
	dbCtx, cancel := context.WithCancel(ctx)
	db, err := sqlite.NewDatabase(dbCtx, cfg.SqliteURL, logger)
	if err != nil {
		cancel()
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		cancel()
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close db", errors.SlogError(closeErr))
		}
	}()

	c := cli{service: workout.NewService(db, logger), stdin: stdin, stdout: stdout, logger: logger}
	command, rest := args[0], args[1:]
	switch command {
	case "seed":
		err = c.seed(ctx)
	case "exercises":
		err = c.exercises(ctx)
	case "user":
		err = c.user(ctx, rest)
	case "generate":
		err = c.generate(ctx, rest)
	case "show":
		err = c.show(ctx, rest)
	case "log":
		err = c.log(ctx, rest)
	case "complete":
		err = c.complete(ctx, rest)
	case "progress":
		err = c.progress(ctx, rest)
	default:
		return errors.Wrap(errUsage, "unknown command", slog.String("command", command))
	}
	if err != nil {
		return errors.Wrap(err, command)
	}
	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelWarn,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, logger, os.LookupEnv); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		logger.LogAttrs(ctx, slog.LevelError, "planctl failed", errors.SlogError(err))
		os.Exit(1)
	}
}
