package workout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/overload/internal/sqlite"
)

// ErrWeekPlanned is returned when the user already has a plan starting on the same date.
var ErrWeekPlanned = fmt.Errorf("week already planned: %w", ErrConflict)

// sqlitePlanRepository implements planRepository.
type sqlitePlanRepository struct {
	baseRepository
}

func newSQLitePlanRepository(db *sqlite.Database, logger *slog.Logger) *sqlitePlanRepository {
	return &sqlitePlanRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

const planColumns = `id, user_id, focus, week_number, start_date, end_date,
	intensity_multiplier, target_volume, completed`

func scanPlan(row rowScanner) (WeeklyPlan, error) {
	var (
		p          WeeklyPlan
		start, end string
		err        error
	)
	if err = row.Scan(&p.ID, &p.UserID, &p.Focus, &p.WeekNumber, &start, &end,
		&p.IntensityMultiplier, &p.TargetVolume, &p.Completed); err != nil {
		return WeeklyPlan{}, err //nolint:wrapcheck // callers add context.
	}
	if p.StartDate, err = parseDate(start); err != nil {
		return WeeklyPlan{}, err
	}
	if p.EndDate, err = parseDate(end); err != nil {
		return WeeklyPlan{}, err
	}
	return p, nil
}

// Get retrieves a plan with its days and prescriptions.
func (r *sqlitePlanRepository) Get(ctx context.Context, id int) (WeeklyPlan, error) {
	return r.getWhere(ctx, fmt.Sprintf("plan %d", id), `id = ?`, id)
}

// GetByWeek retrieves the user's plan that starts on weekStart.
func (r *sqlitePlanRepository) GetByWeek(ctx context.Context, userID int, weekStart time.Time) (WeeklyPlan, error) {
	return r.getWhere(ctx, fmt.Sprintf("plan of user %d for %s", userID, formatDate(weekStart)),
		`user_id = ? AND start_date = ?`, userID, formatDate(weekStart))
}

// GetActive retrieves the user's plan that is not completed yet.
func (r *sqlitePlanRepository) GetActive(ctx context.Context, userID int) (WeeklyPlan, error) {
	return r.getWhere(ctx, fmt.Sprintf("active plan of user %d", userID),
		`user_id = ? AND completed = 0`, userID)
}

// GetLatestCompleted retrieves the user's most recent completed plan.
func (r *sqlitePlanRepository) GetLatestCompleted(ctx context.Context, userID int) (WeeklyPlan, error) {
	return r.getWhere(ctx, fmt.Sprintf("completed plan of user %d", userID),
		`user_id = ? AND completed = 1 ORDER BY start_date DESC LIMIT 1`, userID)
}

func (r *sqlitePlanRepository) getWhere(ctx context.Context, what string, where string, args ...any) (WeeklyPlan, error) {
	plan, err := scanPlan(r.db.ReadOnly.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM weekly_plans WHERE `+where, args...))
	if err != nil {
		return WeeklyPlan{}, notFound(err, what)
	}
	if plan.Days, err = r.loadDays(ctx, plan.ID); err != nil {
		return WeeklyPlan{}, fmt.Errorf("load days of plan %d: %w", plan.ID, err)
	}
	return plan, nil
}

const dayColumns = `id, weekly_plan_id, day_index, muscle_group, workout_type, duration_minutes, total_volume`

func scanDay(row rowScanner) (DailyWorkout, error) {
	var d DailyWorkout
	err := row.Scan(&d.ID, &d.PlanID, &d.DayIndex, &d.MuscleGroup, &d.WorkoutType, &d.DurationMinutes, &d.TotalVolume)
	return d, err //nolint:wrapcheck // callers add context.
}

func (r *sqlitePlanRepository) loadDays(ctx context.Context, planID int) (_ []DailyWorkout, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx,
		`SELECT `+dayColumns+` FROM daily_workouts WHERE weekly_plan_id = ? ORDER BY day_index`, planID)
	if err != nil {
		return nil, fmt.Errorf("query days: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var days []DailyWorkout
	for rows.Next() {
		var d DailyWorkout
		if d, err = scanDay(rows); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		days = append(days, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	prescriptions, err := r.queryPrescriptions(ctx, `d.weekly_plan_id = ?`, planID)
	if err != nil {
		return nil, err
	}
	byDay := make(map[int][]ExercisePrescription, len(days))
	for _, p := range prescriptions {
		byDay[p.DayID] = append(byDay[p.DayID], p)
	}
	for i := range days {
		days[i].Prescriptions = byDay[days[i].ID]
	}
	return days, nil
}

// GetDay retrieves one day of a plan by its index.
func (r *sqlitePlanRepository) GetDay(ctx context.Context, planID int, dayIndex int) (DailyWorkout, error) {
	day, err := scanDay(r.db.ReadOnly.QueryRowContext(ctx,
		`SELECT `+dayColumns+` FROM daily_workouts WHERE weekly_plan_id = ? AND day_index = ?`, planID, dayIndex))
	if err != nil {
		return DailyWorkout{}, notFound(err, fmt.Sprintf("day %d of plan %d", dayIndex, planID))
	}
	if day.Prescriptions, err = r.queryPrescriptions(ctx, `p.daily_workout_id = ?`, day.ID); err != nil {
		return DailyWorkout{}, err
	}
	return day, nil
}

// GetPrescription retrieves one prescription with its exercise.
func (r *sqlitePlanRepository) GetPrescription(ctx context.Context, id int) (ExercisePrescription, error) {
	prescriptions, err := r.queryPrescriptions(ctx, `p.id = ?`, id)
	if err != nil {
		return ExercisePrescription{}, err
	}
	if len(prescriptions) == 0 {
		return ExercisePrescription{}, fmt.Errorf("prescription %d: %w", id, ErrNotFound)
	}
	return prescriptions[0], nil
}

func (r *sqlitePlanRepository) queryPrescriptions(
	ctx context.Context,
	where string,
	args ...any,
) (_ []ExercisePrescription, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT p.id, p.daily_workout_id, p.position, p.target_sets, p.target_reps, p.target_load_kg,
		       p.rest_seconds, p.target_rpe, p.is_completed, p.actual_sets, p.actual_reps,
		       p.actual_load_kg, p.actual_rpe, p.actual_duration_minutes, p.notes, `+exerciseColumns+`
		FROM exercise_prescriptions p
		JOIN daily_workouts d ON d.id = p.daily_workout_id
		JOIN exercises e ON e.id = p.exercise_id
		WHERE `+where+`
		ORDER BY d.day_index, p.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("query prescriptions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var prescriptions []ExercisePrescription
	for rows.Next() {
		var (
			p              ExercisePrescription
			targetReps     string
			targetLoad     sql.NullFloat64
			actualSets     sql.NullInt64
			actualReps     sql.NullString
			actualLoad     sql.NullFloat64
			actualRPE      sql.NullFloat64
			actualDuration sql.NullInt64
		)
		dest := append([]any{
			&p.ID, &p.DayID, &p.Position, &p.TargetSets, &targetReps, &targetLoad,
			&p.RestSeconds, &p.TargetRPE, &p.Completed, &actualSets, &actualReps,
			&actualLoad, &actualRPE, &actualDuration, &p.Notes,
		}, exerciseDest(&p.Exercise)...)
		if err = rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan prescription: %w", err)
		}
		if p.TargetReps, err = ParseRepRange(targetReps); err != nil {
			return nil, fmt.Errorf("prescription %d: %w", p.ID, err)
		}
		if actualReps.Valid {
			if err = json.Unmarshal([]byte(actualReps.String), &p.ActualReps); err != nil {
				return nil, fmt.Errorf("prescription %d: decode actual reps: %w", p.ID, err)
			}
		}
		p.TargetLoadKg = floatPtr(targetLoad)
		p.ActualSets = intPtr(actualSets)
		p.ActualLoadKg = floatPtr(actualLoad)
		p.ActualRPE = floatPtr(actualRPE)
		p.ActualDurationMinutes = intPtr(actualDuration)
		p.EstimatedDurationMinutes = estimateDurationMinutes(p.TargetSets, p.TargetReps.Low, p.RestSeconds)
		prescriptions = append(prescriptions, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return prescriptions, nil
}

// Create persists the plan, its days, and its prescriptions in one transaction and returns the plan
// with IDs filled in.
func (r *sqlitePlanRepository) Create(ctx context.Context, plan WeeklyPlan) (WeeklyPlan, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO weekly_plans (user_id, focus, week_number, start_date, end_date,
			                          intensity_multiplier, target_volume, completed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			plan.UserID, plan.Focus, plan.WeekNumber, formatDate(plan.StartDate), formatDate(plan.EndDate),
			plan.IntensityMultiplier, plan.TargetVolume, plan.Completed,
		).Scan(&plan.ID)
		if sqlite.IsUniqueViolation(err) {
			return planConflict(err)
		}
		if err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}

		for i := range plan.Days {
			if err = insertDay(ctx, tx, plan.ID, &plan.Days[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return WeeklyPlan{}, err
	}
	return plan, nil
}

// planConflict tells a second active plan apart from a second plan for the same week.
func planConflict(err error) error {
	if strings.Contains(err.Error(), "start_date") {
		return fmt.Errorf("insert plan: %w", ErrWeekPlanned)
	}
	return fmt.Errorf("insert plan: %w", ErrActivePlanExists)
}

func insertDay(ctx context.Context, tx *sql.Tx, planID int, day *DailyWorkout) error {
	day.PlanID = planID
	err := tx.QueryRowContext(ctx, `
		INSERT INTO daily_workouts (weekly_plan_id, day_index, muscle_group, workout_type,
		                            duration_minutes, total_volume)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		planID, day.DayIndex, day.MuscleGroup, day.WorkoutType, day.DurationMinutes, day.TotalVolume,
	).Scan(&day.ID)
	if err != nil {
		return fmt.Errorf("insert day %d: %w", day.DayIndex, err)
	}

	for i := range day.Prescriptions {
		p := &day.Prescriptions[i]
		p.DayID = day.ID
		if err = tx.QueryRowContext(ctx, `
			INSERT INTO exercise_prescriptions (daily_workout_id, exercise_id, position, target_sets,
			                                    target_reps, target_load_kg, rest_seconds, target_rpe)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			day.ID, p.Exercise.ID, p.Position, p.TargetSets,
			p.TargetReps.String(), nullFloat(p.TargetLoadKg), p.RestSeconds, p.TargetRPE,
		).Scan(&p.ID); err != nil {
			return fmt.Errorf("insert prescription %q on day %d: %w", p.Exercise.Name, day.DayIndex, err)
		}
	}
	return nil
}

// RecordResult stores the actual values of a pending prescription and marks it completed.
func (r *sqlitePlanRepository) RecordResult(ctx context.Context, prescriptionID int, result SessionResult) error {
	reps, err := json.Marshal(result.Reps)
	if err != nil {
		return fmt.Errorf("encode reps: %w", err)
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		var completed bool
		err = tx.QueryRowContext(ctx,
			`SELECT is_completed FROM exercise_prescriptions WHERE id = ?`, prescriptionID).Scan(&completed)
		if err != nil {
			return notFound(err, fmt.Sprintf("prescription %d", prescriptionID))
		}
		if completed {
			return fmt.Errorf("prescription %d: %w", prescriptionID, ErrAlreadyRecorded)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE exercise_prescriptions
			SET is_completed = 1,
			    actual_sets = ?,
			    actual_reps = ?,
			    actual_load_kg = ?,
			    actual_rpe = ?,
			    actual_duration_minutes = ?,
			    notes = ?
			WHERE id = ? AND is_completed = 0`,
			result.Sets, string(reps), nullFloat(result.LoadKg), nullFloat(result.RPE),
			nullInt(result.DurationMinutes), result.Notes, prescriptionID)
		if err != nil {
			return fmt.Errorf("update prescription %d: %w", prescriptionID, err)
		}
		return nil
	})
}

// Complete marks a plan as completed. Completing a completed plan is a no-op.
func (r *sqlitePlanRepository) Complete(ctx context.Context, planID int) error {
	res, err := r.db.ReadWrite.ExecContext(ctx, `UPDATE weekly_plans SET completed = 1 WHERE id = ?`, planID)
	if err != nil {
		return fmt.Errorf("complete plan %d: %w", planID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("plan %d: %w", planID, ErrNotFound)
	}
	return nil
}
