package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// migrateTo brings the live schema in line with schemaDefinition.
//
// The target schema is created in a scratch in-memory database that is attached as schemaTarget and
// diffed against the live sqlite_schema. Removed tables are dropped, new tables created, and changed
// tables rebuilt with the 12-step procedure from https://www.sqlite.org/lang_altertable.html#otheralter.
// Indexes and triggers are synchronised last because rebuilding a table drops them.
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) (err error) {
	start := time.Now()

	detach, err := db.attachSchemaTarget(ctx, schemaDefinition)
	if err != nil {
		return fmt.Errorf("attach schema target: %w", err)
	}
	defer detach()

	// Foreign keys cannot be toggled inside a transaction.
	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(context.WithoutCancel(ctx), "PRAGMA foreign_keys = ON"); fkErr != nil {
			err = errors.Join(err, fmt.Errorf("re-enable foreign keys: %w", fkErr))
		}
	}()

	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer db.rollback(ctx, tx)

	steps := []struct {
		name string
		fn   func(context.Context, *sql.Tx) error
	}{
		{"drop removed tables", db.dropRemovedTables},
		{"create added tables", db.createAddedTables},
		{"rebuild changed tables", db.rebuildChangedTables},
		{"sync triggers", func(ctx context.Context, tx *sql.Tx) error { return db.syncObjects(ctx, tx, "trigger") }},
		{"sync indexes", func(ctx context.Context, tx *sql.Tx) error { return db.syncObjects(ctx, tx, "index") }},
		{"check foreign keys", db.checkForeignKeys},
	}
	for _, step := range steps {
		if err = step.fn(ctx, tx); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database", slog.Duration("duration", time.Since(start)))
	return nil
}

// attachSchemaTarget builds the target schema in a scratch database and attaches it as schemaTarget.
// The returned function detaches it again.
func (db *Database) attachSchemaTarget(ctx context.Context, schemaDefinition string) (func(), error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	scratch, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open scratch database: %w", err)
	}
	defer func() {
		if closeErr := scratch.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close scratch database", slog.Any("error", closeErr))
		}
	}()

	if _, err = scratch.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, fmt.Errorf("apply schema to scratch database: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", dsn); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}

	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(context.WithoutCancel(ctx), "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach schema target", slog.Any("error", detachErr))
		}
	}, nil
}

func (db *Database) rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction", slog.Any("error", err))
	}
}

func (db *Database) dropRemovedTables(ctx context.Context, tx *sql.Tx) error {
	removed, err := queryStrings(ctx, tx, `
		SELECT live.name
		FROM sqlite_schema AS live
		LEFT JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
		WHERE live.type = 'table' AND target.type IS NULL AND live.name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return err
	}
	for _, table := range removed {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", slog.String("table", table))
		if _, err = tx.ExecContext(ctx, "DROP TABLE "+table); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	return nil
}

func (db *Database) createAddedTables(ctx context.Context, tx *sql.Tx) error {
	added, err := queryStrings(ctx, tx, `
		SELECT target.sql
		FROM schemaTarget.sqlite_schema AS target
		LEFT JOIN sqlite_schema AS live ON live.name = target.name AND live.type = target.type
		WHERE target.type = 'table' AND live.type IS NULL AND target.name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return err
	}
	for _, query := range added {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("query", query))
		if _, err = tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

type schemaDiff struct {
	name    string
	liveSQL string
	newSQL  string
}

// rebuildChangedTables runs steps 4-7 of the SQLite 12-step procedure for every changed table.
func (db *Database) rebuildChangedTables(ctx context.Context, tx *sql.Tx) error {
	// Renaming a table quotes its name in sqlite_schema, so quotes are ignored in the comparison.
	changed, err := queryDiffs(ctx, tx, `
		SELECT live.name, live.sql, target.sql
		FROM sqlite_schema AS live
		JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
		WHERE live.type = 'table'
		  AND live.name NOT LIKE 'sqlite_%'
		  AND REPLACE(live.sql, '"', '') <> REPLACE(target.sql, '"', '')`)
	if err != nil {
		return err
	}

	for _, table := range changed {
		logger := db.logger.With(slog.String("table", table.name))
		logger.LogAttrs(ctx, slog.LevelInfo, "rebuilding table",
			slog.String("live_sql", table.liveSQL), slog.String("new_sql", table.newSQL))

		tempName := table.name + "_migration_temp"
		var columns []string
		// We wrap the column names in double quotes in case they are SQLite keywords.
		if columns, err = queryStrings(ctx, tx, `
			SELECT '"' || target.name || '"'
			FROM PRAGMA_TABLE_INFO(:table_name) AS live
			JOIN PRAGMA_TABLE_INFO(:table_name, 'schemaTarget') AS target ON target.name = live.name`,
			sql.Named("table_name", table.name)); err != nil {
			return fmt.Errorf("common columns of %s: %w", table.name, err)
		}
		common := strings.Join(columns, ", ")

		statements := []string{
			strings.Replace(table.newSQL, table.name, tempName, 1),
			fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", tempName, common, common, table.name),
			"DROP TABLE " + table.name,
			fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tempName, table.name),
		}
		for _, statement := range statements {
			logger.LogAttrs(ctx, slog.LevelDebug, "executing", slog.String("query", statement))
			if _, err = tx.ExecContext(ctx, statement); err != nil {
				return fmt.Errorf("rebuild %s: %w", table.name, err)
			}
		}
	}
	return nil
}

// syncObjects drops, creates, and recreates schema objects of the given type (index or trigger).
func (db *Database) syncObjects(ctx context.Context, tx *sql.Tx, objectType string) error {
	logger := db.logger.With(slog.String("type", objectType))

	removed, err := queryStrings(ctx, tx, `
		SELECT live.name
		FROM sqlite_schema AS live
		LEFT JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
		WHERE live.type = ? AND target.type IS NULL AND live.name NOT LIKE 'sqlite_%'`, objectType)
	if err != nil {
		return err
	}
	for _, name := range removed {
		logger.LogAttrs(ctx, slog.LevelInfo, "dropping", slog.String("name", name))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP %s %s", strings.ToUpper(objectType), name)); err != nil {
			return fmt.Errorf("drop %s %s: %w", objectType, name, err)
		}
	}

	added, err := queryStrings(ctx, tx, `
		SELECT target.sql
		FROM schemaTarget.sqlite_schema AS target
		LEFT JOIN sqlite_schema AS live ON live.name = target.name AND live.type = target.type
		WHERE target.type = ? AND live.type IS NULL AND target.name NOT LIKE 'sqlite_%'`, objectType)
	if err != nil {
		return err
	}
	for _, query := range added {
		logger.LogAttrs(ctx, slog.LevelInfo, "creating", slog.String("query", query))
		if _, err = tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create %s: %w", objectType, err)
		}
	}

	changed, err := queryDiffs(ctx, tx, `
		SELECT live.name, live.sql, target.sql
		FROM sqlite_schema AS live
		JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
		WHERE live.type = ? AND live.name NOT LIKE 'sqlite_%' AND live.sql <> target.sql`, objectType)
	if err != nil {
		return err
	}
	for _, object := range changed {
		logger.LogAttrs(ctx, slog.LevelInfo, "recreating",
			slog.String("name", object.name), slog.String("new_sql", object.newSQL))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP %s %s", strings.ToUpper(objectType), object.name)); err != nil {
			return fmt.Errorf("drop changed %s %s: %w", objectType, object.name, err)
		}
		if _, err = tx.ExecContext(ctx, object.newSQL); err != nil {
			return fmt.Errorf("create changed %s %s: %w", objectType, object.name, err)
		}
	}
	return nil
}

func (db *Database) checkForeignKeys(ctx context.Context, tx *sql.Tx) error {
	violations, err := queryStrings(ctx, tx, `SELECT "table" FROM pragma_foreign_key_check`)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return fmt.Errorf("foreign key violations in tables %v", violations)
	}
	return nil
}

// queryStrings returns the single string column produced by query.
func queryStrings(ctx context.Context, tx *sql.Tx, query string, args ...any) (_ []string, err error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var results []string
	for rows.Next() {
		var s string
		if err = rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		results = append(results, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return results, nil
}

func queryDiffs(ctx context.Context, tx *sql.Tx, query string, args ...any) (_ []schemaDiff, err error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var diffs []schemaDiff
	for rows.Next() {
		var d schemaDiff
		if err = rows.Scan(&d.name, &d.liveSQL, &d.newSQL); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		diffs = append(diffs, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return diffs, nil
}
