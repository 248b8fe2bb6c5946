// Package sqlite owns the SQLite connection pools and keeps the schema in sync with schema.sql.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	_ "embed"
)

//go:embed schema.sql
var schemaDefinition string

// Database holds a single-connection pool for writes and a pool for concurrent reads.
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger
}

// NewDatabase connects to the database at url and migrates it to the embedded schema.
//
// The url is a path to the database file or ":memory:" for an in-memory database that lives as long
// as the returned Database.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(ctx, url, logger)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err = db.migrateTo(ctx, schemaDefinition); err != nil {
		return nil, errors.Join(fmt.Errorf("migrate: %w", err), db.Close())
	}

	go db.startDatabaseOptimizer(ctx)

	return db, nil
}

//nolint:gochecknoglobals // the driver may only be registered once per process.
var registerOnce sync.Once

const optimizedDriver = "sqlite3optimized"

func registerOptimizedDriver() {
	sql.Register(optimizedDriver,
		&sqlite3.SQLiteDriver{
			Extensions: nil,
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				if _, err := conn.Exec(
					"PRAGMA temp_store = memory;"+
						"PRAGMA mmap_size = 30000000000;", nil); err != nil {
					return fmt.Errorf("exec optimization pragmas: %w", err)
				}
				return nil
			},
		})
}

func connect(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	// In-memory databases need shared cache so both pools see the same data. Each one gets a random
	// name so that parallel tests stay isolated.
	inMemoryConfig := ""
	if strings.Contains(url, ":memory:") {
		url = rand.Text()
		inMemoryConfig = "&mode=memory&cache=shared"
	}
	commonConfig := strings.Join([]string{
		"_loc=auto",
		"_defer_foreign_keys=1",
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
	}, "&")

	// Options prefixed with '_' are documented at https://pkg.go.dev/github.com/mattn/go-sqlite3#SQLiteDriver.Open,
	// the rest at https://www.sqlite.org/uri.html.
	readConfig := fmt.Sprintf("file:%s?mode=ro&_txlock=deferred&_query_only=true&%s%s", url, commonConfig, inMemoryConfig)
	readWriteConfig := fmt.Sprintf("file:%s?mode=rwc&_txlock=immediate&%s%s", url, commonConfig, inMemoryConfig)

	registerOnce.Do(registerOptimizedDriver)

	readWriteDB, err := sql.Open(optimizedDriver, readWriteConfig)
	if err != nil {
		return nil, fmt.Errorf("open read-write database: %w", err)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "opened database", slog.String("dsn", readWriteConfig))

	readWriteDB.SetMaxOpenConns(1)
	readWriteDB.SetMaxIdleConns(1)
	readWriteDB.SetConnMaxLifetime(time.Hour)
	readWriteDB.SetConnMaxIdleTime(time.Hour)

	// sql.DB is lazy; ping so that the file or in-memory database exists before the read pool opens it.
	if err = readWriteDB.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping read-write database: %w", err), readWriteDB.Close())
	}

	readDB, err := sql.Open(optimizedDriver, readConfig)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open read database: %w", err), readWriteDB.Close())
	}

	maxReadConns := 10
	readDB.SetMaxOpenConns(maxReadConns)
	readDB.SetMaxIdleConns(maxReadConns)
	readDB.SetConnMaxLifetime(time.Hour)
	readDB.SetConnMaxIdleTime(time.Hour)

	return &Database{
		ReadWrite: readWriteDB,
		ReadOnly:  readDB,
		logger:    logger,
	}, nil
}

// Close closes both connection pools.
func (db *Database) Close() error {
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}

// IsUniqueViolation reports whether err was caused by a UNIQUE or PRIMARY KEY constraint.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
