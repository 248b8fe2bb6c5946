package workout

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// TargetFor returns the sets, rep range, effort, and progression rate of a focus.
// Unknown focuses get the hypertrophy target.
func TargetFor(f Focus) Target {
	switch f {
	case FocusStrength:
		return Target{Sets: 5, Reps: RepRange{Low: 3, High: 5}, RPE: 8, ProgressionRate: 0.02}
	case FocusEndurance:
		return Target{Sets: 3, Reps: RepRange{Low: 15, High: 20}, RPE: 6, ProgressionRate: 0.03}
	case FocusHypertrophy:
		return Target{Sets: 3, Reps: RepRange{Low: 8, High: 12}, RPE: 7, ProgressionRate: 0.025}
	default:
		return TargetFor(FocusHypertrophy)
	}
}

type dayTemplate struct {
	label        string
	muscleGroups []string
	limit        int
}

const (
	dayUpper  = "upper"
	dayLower  = "lower"
	dayCardio = "cardio"
	dayRest   = "rest"
)

// weekSkeleton is the fixed split for days 1..7.
func weekSkeleton() []dayTemplate {
	upper := dayTemplate{label: dayUpper, muscleGroups: []string{"chest", "back", "shoulders"}, limit: 4}
	lower := dayTemplate{label: dayLower, muscleGroups: []string{"legs", "posterior_chain"}, limit: 3}
	cardio := dayTemplate{label: dayCardio, muscleGroups: []string{"cardio", "core"}, limit: 3}
	rest := dayTemplate{label: dayRest, muscleGroups: nil, limit: 0}
	return []dayTemplate{upper, lower, rest, upper, lower, cardio, rest}
}

// ISOWeekNumber encodes the ISO week of t as year*100+week, e.g. 202642.
func ISOWeekNumber(t time.Time) int {
	year, week := t.ISOWeek()
	return year*100 + week //nolint:mnd // year and week digits.
}

// dateOnly drops the clock and location so plan dates compare as calendar days.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// periodizer builds a plan skeleton and fills it with prescriptions at nominal intensity.
type periodizer struct {
	logger  *slog.Logger
	catalog []Exercise
}

func newPeriodizer(logger *slog.Logger, catalog []Exercise) periodizer {
	sorted := slices.Clone(catalog)
	slices.SortFunc(sorted, func(a, b Exercise) int { return a.ID - b.ID })
	return periodizer{logger: logger, catalog: sorted}
}

// build returns an unsaved plan with seven days. A day whose muscle groups have no matching exercise
// is left empty and logged as a warning.
func (p periodizer) build(ctx context.Context, user User, weekStart time.Time, focus Focus) WeeklyPlan {
	start := dateOnly(weekStart)
	target := TargetFor(focus)

	plan := WeeklyPlan{
		ID:                  0,
		UserID:              user.ID,
		Focus:               focus,
		WeekNumber:          ISOWeekNumber(start),
		StartDate:           start,
		EndDate:             start.AddDate(0, 0, 6), //nolint:mnd // a week spans seven days.
		IntensityMultiplier: 1,
		TargetVolume:        0,
		Completed:           false,
		Days:                nil,
	}

	for i, tmpl := range weekSkeleton() {
		day := DailyWorkout{
			ID:              0,
			PlanID:          0,
			DayIndex:        i + 1,
			MuscleGroup:     tmpl.label,
			WorkoutType:     workoutType(tmpl.label, focus),
			DurationMinutes: 0,
			TotalVolume:     0,
			Prescriptions:   nil,
		}
		if tmpl.label != dayRest {
			selected := p.selectExercises(user.Equipment, tmpl)
			if len(selected) == 0 {
				p.logger.LogAttrs(ctx, slog.LevelWarn, "no exercises match day",
					slog.Int("day_index", day.DayIndex),
					slog.String("day_type", tmpl.label),
					slog.Any("muscle_groups", tmpl.muscleGroups),
					slog.Any("equipment", user.Equipment))
			}
			for position, ex := range selected {
				day.Prescriptions = append(day.Prescriptions, prescribeForTarget(ex, user.Level, target, position))
			}
		}
		day.recompute()
		plan.Days = append(plan.Days, day)
	}

	return plan
}

func workoutType(label string, focus Focus) string {
	switch label {
	case dayRest:
		return WorkoutTypeRest
	case dayCardio:
		return string(FocusEndurance)
	default:
		return string(focus)
	}
}

// selectExercises walks the catalog in ID order and keeps the first matches up to the day limit.
func (p periodizer) selectExercises(equipment []string, tmpl dayTemplate) []Exercise {
	var selected []Exercise
	for _, ex := range p.catalog {
		if len(selected) == tmpl.limit {
			break
		}
		if !slices.Contains(tmpl.muscleGroups, ex.MuscleGroup) {
			continue
		}
		if !hasEquipment(equipment, ex) {
			continue
		}
		selected = append(selected, ex)
	}
	return selected
}

// hasEquipment reports whether the user can perform ex. An empty equipment list means no restriction.
func hasEquipment(equipment []string, ex Exercise) bool {
	if len(equipment) == 0 || ex.Bodyweight || ex.Equipment == "" {
		return true
	}
	return slices.ContainsFunc(equipment, func(e string) bool {
		return strings.EqualFold(strings.TrimSpace(e), ex.Equipment)
	})
}

// prescribeForTarget prescribes ex at nominal intensity with the focus rep range and effort.
func prescribeForTarget(ex Exercise, level Level, target Target, position int) ExercisePrescription {
	base := Prescribe(ex, level, 1)
	return ExercisePrescription{
		ID:                       0,
		DayID:                    0,
		Position:                 position,
		Exercise:                 ex,
		TargetSets:               base.Sets,
		TargetReps:               target.Reps,
		TargetLoadKg:             base.LoadKg,
		RestSeconds:              base.RestSeconds,
		TargetRPE:                target.RPE,
		EstimatedDurationMinutes: estimateDurationMinutes(base.Sets, target.Reps.Low, base.RestSeconds),
		Completed:                false,
		ActualSets:               nil,
		ActualReps:               nil,
		ActualLoadKg:             nil,
		ActualRPE:                nil,
		ActualDurationMinutes:    nil,
		Notes:                    "",
	}
}
