package workout

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/overload/internal/testhelpers"
)

func defaultCatalog(t *testing.T) []Exercise {
	t.Helper()
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	return catalog
}

func exerciseIDs(day DailyWorkout) []int {
	var ids []int
	for _, p := range day.Prescriptions {
		ids = append(ids, p.Exercise.ID)
	}
	return ids
}

var monday = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

func TestPeriodizer_build(t *testing.T) {
	tests := []struct {
		name      string
		equipment []string
		focus     Focus
		wantIDs   map[int][]int
		wantType  map[int]string
	}{
		{
			name:      "hypertrophy without equipment restriction",
			equipment: nil,
			focus:     FocusHypertrophy,
			wantIDs:   map[int][]int{1: {2, 3, 5, 6}, 2: {1, 4, 10}, 3: nil, 4: {2, 3, 5, 6}, 5: {1, 4, 10}, 6: {8, 9, 12}, 7: nil},
			wantType: map[int]string{
				1: "hypertrophy", 2: "hypertrophy", 3: "rest", 4: "hypertrophy",
				5: "hypertrophy", 6: "endurance", 7: "rest",
			},
		},
		{
			name:      "strength with dumbbells only",
			equipment: []string{"Dumbbell"},
			focus:     FocusStrength,
			wantIDs:   map[int][]int{1: {5, 6, 7}, 2: {10}, 3: nil, 4: {5, 6, 7}, 5: {10}, 6: {8, 9}, 7: nil},
			wantType: map[int]string{
				1: "strength", 2: "strength", 3: "rest", 4: "strength",
				5: "strength", 6: "endurance", 7: "rest",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
			user := User{ID: 1, Level: LevelIntermediate, Goal: GoalMaintain, Equipment: tt.equipment}

			plan := newPeriodizer(logger, defaultCatalog(t)).build(t.Context(), user, monday, tt.focus)

			if len(plan.Days) != 7 {
				t.Fatalf("got %d days, want 7", len(plan.Days))
			}
			gotIDs := make(map[int][]int)
			gotType := make(map[int]string)
			for i, day := range plan.Days {
				if day.DayIndex != i+1 {
					t.Errorf("day %d has index %d", i, day.DayIndex)
				}
				gotIDs[day.DayIndex] = exerciseIDs(day)
				gotType[day.DayIndex] = day.WorkoutType
			}
			if diff := cmp.Diff(tt.wantIDs, gotIDs); diff != "" {
				t.Errorf("exercises mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantType, gotType); diff != "" {
				t.Errorf("workout types mismatch (-want +got):\n%s", diff)
			}

			target := TargetFor(tt.focus)
			for _, p := range plan.Prescriptions() {
				if p.TargetReps != target.Reps || p.TargetRPE != target.RPE {
					t.Errorf("%s: reps %v RPE %v, want %v RPE %v",
						p.Exercise.Name, p.TargetReps, p.TargetRPE, target.Reps, target.RPE)
				}
			}
			if plan.WeekNumber != 202642 {
				t.Errorf("WeekNumber = %d, want 202642", plan.WeekNumber)
			}
			if want := monday.AddDate(0, 0, 6); !plan.EndDate.Equal(want) {
				t.Errorf("EndDate = %s, want %s", plan.EndDate, want)
			}
		})
	}
}

func TestPeriodizer_build_missingExercises(t *testing.T) {
	var buf bytes.Buffer
	logger := testhelpers.NewLogger(&buf)
	catalog := []Exercise{{ID: 1, Name: "Bench Press", MuscleGroup: "chest", Equipment: "barbell",
		Category: CategoryCompound, MaxFraction: 0.7, BaseLoadKg: 50}}
	user := User{ID: 1, Level: LevelBeginner, Goal: GoalFatLoss}

	plan := newPeriodizer(logger, catalog).build(t.Context(), user, monday, FocusEndurance)

	if len(plan.Days) != 7 {
		t.Fatalf("got %d days, want 7", len(plan.Days))
	}
	for _, index := range []int{2, 5, 6} {
		day, _ := plan.Day(index)
		if len(day.Prescriptions) != 0 {
			t.Errorf("day %d: got %d prescriptions, want none", index, len(day.Prescriptions))
		}
	}
	if !strings.Contains(buf.String(), "no exercises match day") {
		t.Errorf("expected a warning about empty days, got %s", buf.String())
	}
}

func TestAdaptWeek_volumeConservation(t *testing.T) {
	tests := []struct {
		name          string
		level         Level
		focus         Focus
		previous      *Progress
		wantTarget    float64
		wantIntensity float64
	}{
		{
			name:          "no history",
			level:         LevelIntermediate,
			focus:         FocusHypertrophy,
			previous:      nil,
			wantTarget:    5000,
			wantIntensity: 1.0,
		},
		{
			name:          "good week",
			level:         LevelAdvanced,
			focus:         FocusStrength,
			previous:      &Progress{TotalVolume: 6000, AverageRPE: 7, CompletionRate: 0.95},
			wantTarget:    6420,
			wantIntensity: 1.03,
		},
		{
			name:          "deload",
			level:         LevelBeginner,
			focus:         FocusEndurance,
			previous:      &Progress{TotalVolume: 3000, AverageRPE: 9.5, CompletionRate: 0.4},
			wantTarget:    3210,
			wantIntensity: 0.95,
		},
		{
			name:          "empty previous week uses baseline",
			level:         LevelIntermediate,
			focus:         FocusHypertrophy,
			previous:      &Progress{TotalVolume: 0, AverageRPE: 7.5, CompletionRate: 0},
			wantTarget:    5000,
			wantIntensity: 0.95,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
			user := User{ID: 1, Level: tt.level, Goal: GoalMaintain}

			plan := adaptWeek(t.Context(), newPeriodizer(logger, defaultCatalog(t)), user, monday, tt.focus, tt.previous)

			if math.Abs(plan.TargetVolume-tt.wantTarget) > 1e-9 {
				t.Errorf("TargetVolume = %v, want %v", plan.TargetVolume, tt.wantTarget)
			}
			if math.Abs(plan.IntensityMultiplier-tt.wantIntensity) > 1e-9 {
				t.Errorf("IntensityMultiplier = %v, want %v", plan.IntensityMultiplier, tt.wantIntensity)
			}
			if rel := math.Abs(plan.TotalVolume()-tt.wantTarget) / tt.wantTarget; rel > 1e-4 {
				t.Errorf("planned volume %v differs from target %v by %v", plan.TotalVolume(), tt.wantTarget, rel)
			}
			for _, day := range plan.Days {
				var sum float64
				for _, p := range day.Prescriptions {
					sum += p.TargetVolume()
				}
				if math.Abs(sum-day.TotalVolume) > 1e-9 {
					t.Errorf("day %d volume %v, prescriptions sum to %v", day.DayIndex, day.TotalVolume, sum)
				}
			}
		})
	}
}

func TestAdaptWeek_bodyweightOnly(t *testing.T) {
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	catalog := []Exercise{{ID: 1, Name: "Push-Up", MuscleGroup: "chest", Bodyweight: true, Category: CategoryAccessory}}

	plan := adaptWeek(t.Context(), newPeriodizer(logger, catalog), User{ID: 1, Level: LevelBeginner}, monday,
		FocusHypertrophy, nil)

	if plan.TotalVolume() != 0 {
		t.Errorf("TotalVolume() = %v, want 0", plan.TotalVolume())
	}
	for _, p := range plan.Prescriptions() {
		if p.TargetLoadKg != nil {
			t.Errorf("%s: got load %v, want none", p.Exercise.Name, *p.TargetLoadKg)
		}
	}
}
