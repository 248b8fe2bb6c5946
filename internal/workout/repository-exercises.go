package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/myrjola/overload/internal/sqlite"
)

// sqliteExerciseRepository implements exerciseRepository.
type sqliteExerciseRepository struct {
	baseRepository
}

// newSQLiteExerciseRepository creates a new SQLite exercise repository.
func newSQLiteExerciseRepository(db *sqlite.Database, logger *slog.Logger) *sqliteExerciseRepository {
	return &sqliteExerciseRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

const exerciseColumns = `e.id, e.name, e.muscle_group, e.equipment, e.is_bodyweight, e.category,
	e.max_fraction, e.base_load_kg, e.technique, e.video_url`

func exerciseDest(ex *Exercise) []any {
	return []any{
		&ex.ID, &ex.Name, &ex.MuscleGroup, &ex.Equipment, &ex.Bodyweight, &ex.Category,
		&ex.MaxFraction, &ex.BaseLoadKg, &ex.Technique, &ex.VideoURL,
	}
}

// Get retrieves a single exercise by ID.
func (r *sqliteExerciseRepository) Get(ctx context.Context, id int) (Exercise, error) {
	var ex Exercise
	err := r.db.ReadOnly.QueryRowContext(ctx,
		`SELECT `+exerciseColumns+` FROM exercises e WHERE e.id = ?`, id).Scan(exerciseDest(&ex)...)
	if err != nil {
		return Exercise{}, notFound(err, fmt.Sprintf("exercise %d", id))
	}
	return ex, nil
}

// List returns the catalog in ID order.
func (r *sqliteExerciseRepository) List(ctx context.Context) (_ []Exercise, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `SELECT `+exerciseColumns+` FROM exercises e ORDER BY e.id`)
	if err != nil {
		return nil, fmt.Errorf("query exercises: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var exercises []Exercise
	for rows.Next() {
		var ex Exercise
		if err = rows.Scan(exerciseDest(&ex)...); err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		exercises = append(exercises, ex)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return exercises, nil
}

// Upsert inserts or replaces catalog entries by ID in one transaction.
func (r *sqliteExerciseRepository) Upsert(ctx context.Context, exercises []Exercise) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, ex := range exercises {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO exercises (id, name, muscle_group, equipment, is_bodyweight, category,
				                       max_fraction, base_load_kg, technique, video_url)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
					name = excluded.name,
					muscle_group = excluded.muscle_group,
					equipment = excluded.equipment,
					is_bodyweight = excluded.is_bodyweight,
					category = excluded.category,
					max_fraction = excluded.max_fraction,
					base_load_kg = excluded.base_load_kg,
					technique = excluded.technique,
					video_url = excluded.video_url`,
				ex.ID, ex.Name, ex.MuscleGroup, ex.Equipment, ex.Bodyweight, ex.Category,
				ex.MaxFraction, ex.BaseLoadKg, ex.Technique, ex.VideoURL)
			if sqlite.IsUniqueViolation(err) {
				return fmt.Errorf("upsert exercise %q: name taken: %w", ex.Name, ErrConflict)
			}
			if err != nil {
				return fmt.Errorf("upsert exercise %q: %w", ex.Name, err)
			}
		}
		return nil
	})
}
