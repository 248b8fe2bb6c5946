package workout_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/myrjola/overload/internal/ptr"
	"github.com/myrjola/overload/internal/sqlite"
	"github.com/myrjola/overload/internal/testhelpers"
	"github.com/myrjola/overload/internal/workout"
)

func newTestService(t *testing.T) *workout.Service {
	t.Helper()
	ctx := t.Context()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))

	db, err := sqlite.NewDatabase(ctx, ":memory:", logger)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})

	svc := workout.NewService(db, logger)
	catalog, err := workout.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	if err = svc.SeedCatalog(ctx, catalog); err != nil {
		t.Fatalf("SeedCatalog: %v", err)
	}
	return svc
}

func newTestUser(t *testing.T, svc *workout.Service, goal workout.Goal) workout.User {
	t.Helper()
	u, err := svc.CreateUser(t.Context(), workout.User{
		DisplayName: "Test User",
		Goal:        goal,
		Level:       workout.LevelIntermediate,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

var weekStart = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

func TestService_GenerateWeeklyPlan_noHistory(t *testing.T) {
	ctx := t.Context()
	svc := newTestService(t)
	user := newTestUser(t, svc, workout.GoalMuscleGain)

	plan, err := svc.GenerateWeeklyPlan(ctx, workout.PlanRequest{UserID: user.ID, WeekStart: weekStart})
	if err != nil {
		t.Fatalf("GenerateWeeklyPlan: %v", err)
	}

	stored, err := svc.GetPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if stored.Focus != workout.FocusHypertrophy {
		t.Errorf("Focus = %s, want hypertrophy", stored.Focus)
	}
	if stored.TargetVolume != 5000 || stored.IntensityMultiplier != 1 {
		t.Errorf("target volume %v intensity %v, want 5000 and 1", stored.TargetVolume, stored.IntensityMultiplier)
	}
	if rel := math.Abs(stored.TotalVolume()-5000) / 5000; rel > 1e-4 {
		t.Errorf("stored volume %v is not within 0.01%% of 5000", stored.TotalVolume())
	}
	if len(stored.Days) != 7 {
		t.Fatalf("got %d days, want 7", len(stored.Days))
	}
	for i, day := range stored.Days {
		if day.DayIndex != i+1 {
			t.Errorf("day %d has index %d", i+1, day.DayIndex)
		}
	}
	for _, index := range []int{3, 7} {
		day, _ := stored.Day(index)
		if !day.IsRest() || len(day.Prescriptions) != 0 {
			t.Errorf("day %d: type %s with %d prescriptions, want empty rest day",
				index, day.WorkoutType, len(day.Prescriptions))
		}
	}
	for _, index := range []int{1, 4} {
		day, _ := stored.Day(index)
		if day.MuscleGroup != "upper" || len(day.Prescriptions) == 0 {
			t.Errorf("day %d: muscle group %s with %d prescriptions, want upper exercises",
				index, day.MuscleGroup, len(day.Prescriptions))
		}
		for _, p := range day.Prescriptions {
			if p.TargetReps != (workout.RepRange{Low: 8, High: 12}) || p.TargetRPE != 7 {
				t.Errorf("day %d %s: reps %s RPE %v, want 8-12 RPE 7", index, p.Exercise.Name, p.TargetReps, p.TargetRPE)
			}
		}
	}

	byWeek, err := svc.PlanForWeek(ctx, user.ID, weekStart.Add(15*time.Hour))
	if err != nil {
		t.Fatalf("PlanForWeek: %v", err)
	}
	if byWeek.ID != plan.ID {
		t.Errorf("PlanForWeek returned plan %d, want %d", byWeek.ID, plan.ID)
	}
	day, err := svc.GetDay(ctx, plan.ID, 2)
	if err != nil {
		t.Fatalf("GetDay: %v", err)
	}
	if day.MuscleGroup != "lower" || day.DurationMinutes == 0 {
		t.Errorf("day 2: muscle group %s duration %d", day.MuscleGroup, day.DurationMinutes)
	}
	if _, err = svc.GetDay(ctx, plan.ID, 8); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("GetDay(8): got %v, want ErrNotFound", err)
	}
}

func TestService_GenerateWeeklyPlan_activePlanLock(t *testing.T) {
	ctx := t.Context()
	svc := newTestService(t)
	user := newTestUser(t, svc, workout.GoalMaintain)

	first, err := svc.GenerateWeeklyPlan(ctx, workout.PlanRequest{UserID: user.ID, WeekStart: weekStart})
	if err != nil {
		t.Fatalf("GenerateWeeklyPlan: %v", err)
	}

	_, err = svc.GenerateWeeklyPlan(ctx, workout.PlanRequest{UserID: user.ID, WeekStart: weekStart.AddDate(0, 0, 7)})
	if !errors.Is(err, workout.ErrActivePlanExists) || !errors.Is(err, workout.ErrConflict) {
		t.Fatalf("second GenerateWeeklyPlan: got %v, want ErrActivePlanExists", err)
	}

	active, err := svc.ActivePlan(ctx, user.ID)
	if err != nil {
		t.Fatalf("ActivePlan: %v", err)
	}
	if active.ID != first.ID {
		t.Errorf("ActivePlan = %d, want %d", active.ID, first.ID)
	}

	if err = svc.CompletePlan(ctx, first.ID); err != nil {
		t.Fatalf("CompletePlan: %v", err)
	}
	_, err = svc.GenerateWeeklyPlan(ctx, workout.PlanRequest{UserID: user.ID, WeekStart: weekStart})
	if !errors.Is(err, workout.ErrWeekPlanned) {
		t.Errorf("regenerating a completed week: got %v, want ErrWeekPlanned", err)
	}
	if _, err = svc.ActivePlan(ctx, user.ID); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("ActivePlan after failed generation: got %v, want ErrNotFound", err)
	}
	if err = svc.CompletePlan(ctx, 9999); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("CompletePlan(9999): got %v, want ErrNotFound", err)
	}
}

func TestService_RecordSessionResult(t *testing.T) {
	ctx := t.Context()
	svc := newTestService(t)
	user := newTestUser(t, svc, workout.GoalMuscleGain)

	plan, err := svc.GenerateWeeklyPlan(ctx, workout.PlanRequest{UserID: user.ID, WeekStart: weekStart})
	if err != nil {
		t.Fatalf("GenerateWeeklyPlan: %v", err)
	}
	day, _ := plan.Day(1)
	bench := day.Prescriptions[0]
	if bench.TargetLoadKg == nil {
		t.Fatalf("%s has no target load", bench.Exercise.Name)
	}

	_, err = svc.RecordSessionResult(ctx, bench.ID, workout.SessionResult{Sets: 3, Reps: []int{10, 9}})
	if !errors.Is(err, workout.ErrInvalidResult) {
		t.Fatalf("invalid result: got %v, want ErrInvalidResult", err)
	}
	if stored, _ := svc.GetPrescription(ctx, bench.ID); stored.Completed {
		t.Fatal("invalid result was written")
	}

	reps := make([]int, bench.TargetSets)
	for i := range reps {
		reps[i] = 10
	}
	outcome, err := svc.RecordSessionResult(ctx, bench.ID, workout.SessionResult{
		Sets:            bench.TargetSets,
		Reps:            reps,
		LoadKg:          ptr.Ref(40.0),
		RPE:             ptr.Ref(8.0),
		DurationMinutes: ptr.Ref(9),
		Notes:           "smooth",
	})
	if err != nil {
		t.Fatalf("RecordSessionResult: %v", err)
	}
	if !outcome.Success {
		t.Error("Success = false, want true")
	}
	if outcome.SuggestedNextLoadKg == nil || math.Abs(*outcome.SuggestedNextLoadKg-40*1.025) > 1e-9 {
		t.Errorf("SuggestedNextLoadKg = %v, want %v", outcome.SuggestedNextLoadKg, 40*1.025)
	}

	stored, err := svc.GetPrescription(ctx, bench.ID)
	if err != nil {
		t.Fatalf("GetPrescription: %v", err)
	}
	if !stored.Completed || ptr.ValueOr(stored.ActualLoadKg, 0) != 40 || ptr.ValueOr(stored.ActualRPE, 0) != 8 ||
		len(stored.ActualReps) != bench.TargetSets || stored.Notes != "smooth" {
		t.Errorf("stored result %+v does not match the logged one", stored)
	}
	if *stored.TargetLoadKg != *bench.TargetLoadKg {
		t.Errorf("target load changed from %v to %v", *bench.TargetLoadKg, *stored.TargetLoadKg)
	}

	_, err = svc.RecordSessionResult(ctx, bench.ID, workout.SessionResult{Sets: 1, Reps: []int{5}})
	if !errors.Is(err, workout.ErrAlreadyRecorded) {
		t.Errorf("second record: got %v, want ErrAlreadyRecorded", err)
	}
	_, err = svc.RecordSessionResult(ctx, 9999, workout.SessionResult{Sets: 1, Reps: []int{5}})
	if !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("unknown prescription: got %v, want ErrNotFound", err)
	}

	progress, err := svc.WeekProgress(ctx, plan.ID)
	if err != nil {
		t.Fatalf("WeekProgress: %v", err)
	}
	if want := 1 / float64(len(plan.Prescriptions())); math.Abs(progress.CompletionRate-want) > 1e-9 {
		t.Errorf("CompletionRate = %v, want %v", progress.CompletionRate, want)
	}
	if progress.AverageRPE != 8 {
		t.Errorf("AverageRPE = %v, want 8", progress.AverageRPE)
	}
}

func TestService_GenerateWeeklyPlan_adaptsToPreviousWeek(t *testing.T) {
	ctx := t.Context()
	svc := newTestService(t)
	user := newTestUser(t, svc, workout.GoalEventPrep)

	first, err := svc.GenerateWeeklyPlan(ctx, workout.PlanRequest{UserID: user.ID, WeekStart: weekStart})
	if err != nil {
		t.Fatalf("GenerateWeeklyPlan: %v", err)
	}
	if first.Focus != workout.FocusStrength {
		t.Errorf("Focus = %s, want strength", first.Focus)
	}

	// Every prescription done as prescribed at an easy effort.
	for _, p := range first.Prescriptions() {
		reps := make([]int, p.TargetSets)
		for i := range reps {
			reps[i] = p.TargetReps.Low
		}
		if _, err = svc.RecordSessionResult(ctx, p.ID, workout.SessionResult{
			Sets: p.TargetSets, Reps: reps, LoadKg: p.TargetLoadKg, RPE: ptr.Ref(7.0),
		}); err != nil {
			t.Fatalf("RecordSessionResult(%d): %v", p.ID, err)
		}
	}
	progress, err := svc.WeekProgress(ctx, first.ID)
	if err != nil {
		t.Fatalf("WeekProgress: %v", err)
	}
	if progress.CompletionRate != 1 || progress.AverageRPE != 7 {
		t.Errorf("progress %+v, want full completion at RPE 7", progress)
	}
	if err = svc.CompletePlan(ctx, first.ID); err != nil {
		t.Fatalf("CompletePlan: %v", err)
	}

	second, err := svc.GenerateWeeklyPlan(ctx, workout.PlanRequest{
		UserID:    user.ID,
		WeekStart: weekStart.AddDate(0, 0, 7),
		Focus:     workout.FocusHypertrophy,
	})
	if err != nil {
		t.Fatalf("GenerateWeeklyPlan next week: %v", err)
	}
	if second.Focus != workout.FocusHypertrophy {
		t.Errorf("focus override ignored, got %s", second.Focus)
	}
	if math.Abs(second.IntensityMultiplier-1.03) > 1e-9 {
		t.Errorf("IntensityMultiplier = %v, want 1.03", second.IntensityMultiplier)
	}
	wantTarget := progress.TotalVolume * 1.07
	if math.Abs(second.TargetVolume-wantTarget) > 1e-6 {
		t.Errorf("TargetVolume = %v, want %v", second.TargetVolume, wantTarget)
	}
	if rel := math.Abs(second.TotalVolume()-wantTarget) / wantTarget; rel > 1e-4 {
		t.Errorf("planned volume %v is not within 0.01%% of %v", second.TotalVolume(), wantTarget)
	}
	if second.WeekNumber != 202643 {
		t.Errorf("WeekNumber = %d, want 202643", second.WeekNumber)
	}
}

func TestService_users(t *testing.T) {
	ctx := t.Context()
	svc := newTestService(t)

	chatID := int64(4242)
	created, err := svc.CreateUser(ctx, workout.User{
		DisplayName:    "Ada",
		TelegramChatID: &chatID,
		Goal:           workout.GoalFatLoss,
		Level:          workout.LevelBeginner,
		Equipment:      []string{" dumbbell", "", "rope "},
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err = svc.CreateUser(ctx, workout.User{DisplayName: "Eve", TelegramChatID: &chatID,
		Goal: workout.GoalMaintain, Level: workout.LevelBeginner}); !errors.Is(err, workout.ErrConflict) {
		t.Errorf("duplicate chat: got %v, want ErrConflict", err)
	}

	got, err := svc.GetUserByTelegramChatID(ctx, chatID)
	if err != nil {
		t.Fatalf("GetUserByTelegramChatID: %v", err)
	}
	if got.ID != created.ID || len(got.Equipment) != 2 || got.Equipment[0] != "dumbbell" {
		t.Errorf("got user %+v", got)
	}

	err = svc.UpdateUser(ctx, created.ID, func(u *workout.User) (bool, error) {
		u.Level = workout.LevelAdvanced
		return true, nil
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if got, _ = svc.GetUser(ctx, created.ID); got.Level != workout.LevelAdvanced {
		t.Errorf("Level = %s, want advanced", got.Level)
	}

	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("got %d users, want 1", len(users))
	}
	if _, err = svc.GetUser(ctx, 9999); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("GetUser(9999): got %v, want ErrNotFound", err)
	}
}
