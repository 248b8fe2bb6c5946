package sqlite

import (
	"context"
	"log/slog"
	"time"
)

// startDatabaseOptimizer runs PRAGMA optimize hourly until ctx is done.
// See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) startDatabaseOptimizer(ctx context.Context) {
	pragma := "PRAGMA optimize = 0x10002;"
	for {
		start := time.Now()
		if _, err := db.ReadWrite.ExecContext(ctx, pragma); err != nil {
			if ctx.Err() != nil {
				return
			}
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", slog.Any("error", err))
		} else {
			db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database",
				slog.Duration("duration", time.Since(start)))
		}
		pragma = "PRAGMA optimize;"
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Hour):
		}
	}
}
