package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/overload/internal/sqlite"
)

const dateFormat = time.DateOnly

// userRepository stores training profiles.
type userRepository interface {
	Get(ctx context.Context, id int) (User, error)
	GetByTelegramChatID(ctx context.Context, chatID int64) (User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, id int, updateFn func(u *User) (bool, error)) error
}

// exerciseRepository stores the exercise catalog.
type exerciseRepository interface {
	Get(ctx context.Context, id int) (Exercise, error)
	List(ctx context.Context) ([]Exercise, error)
	Upsert(ctx context.Context, exercises []Exercise) error
}

// planRepository stores weekly plans with their days and prescriptions.
type planRepository interface {
	Get(ctx context.Context, id int) (WeeklyPlan, error)
	GetByWeek(ctx context.Context, userID int, weekStart time.Time) (WeeklyPlan, error)
	GetActive(ctx context.Context, userID int) (WeeklyPlan, error)
	GetLatestCompleted(ctx context.Context, userID int) (WeeklyPlan, error)
	GetDay(ctx context.Context, planID int, dayIndex int) (DailyWorkout, error)
	GetPrescription(ctx context.Context, id int) (ExercisePrescription, error)
	Create(ctx context.Context, plan WeeklyPlan) (WeeklyPlan, error)
	RecordResult(ctx context.Context, prescriptionID int, result SessionResult) error
	Complete(ctx context.Context, planID int) error
}

// repository bundles the aggregate repositories.
type repository struct {
	users     userRepository
	exercises exerciseRepository
	plans     planRepository
}

// repositoryFactory creates repositories that share one database.
type repositoryFactory struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newRepositoryFactory(db *sqlite.Database, logger *slog.Logger) *repositoryFactory {
	return &repositoryFactory{db: db, logger: logger}
}

func (f *repositoryFactory) newRepository() *repository {
	return &repository{
		users:     newSQLiteUserRepository(f.db, f.logger),
		exercises: newSQLiteExerciseRepository(f.db, f.logger),
		plans:     newSQLitePlanRepository(f.db, f.logger),
	}
}

// baseRepository holds what every SQLite repository needs.
type baseRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newBaseRepository(db *sqlite.Database, logger *slog.Logger) baseRepository {
	return baseRepository{db: db, logger: logger}
}

// withTx runs fn in a write transaction and commits when fn succeeds.
func (r baseRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback transaction: %w", rollbackErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// notFound converts sql.ErrNoRows into ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("query %s: %w", what, err)
}

func formatDate(t time.Time) string {
	return t.Format(dateFormat)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Float64: 0, Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	return &f.Float64
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{Int64: 0, Valid: false}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func intPtr(i sql.NullInt64) *int {
	if !i.Valid {
		return nil
	}
	v := int(i.Int64)
	return &v
}
