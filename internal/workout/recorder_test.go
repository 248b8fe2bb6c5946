package workout_test

import (
	"errors"
	"math"
	"testing"

	"github.com/myrjola/overload/internal/ptr"
	"github.com/myrjola/overload/internal/workout"
)

func TestIsSuccess(t *testing.T) {
	hypertrophy := workout.RepRange{Low: 8, High: 12}
	tests := []struct {
		name       string
		actualSets int
		actualReps []int
		want       bool
	}{
		{"all sets at or above floor", 3, []int{10, 9, 8}, true},
		{"one set below floor", 3, []int{10, 9, 5}, false},
		{"missing set", 2, []int{10, 10}, false},
		{"extra set", 4, []int{8, 8, 8, 8}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := workout.IsSuccess(3, hypertrophy, tt.actualSets, tt.actualReps); got != tt.want {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsSuccess_monotonic(t *testing.T) {
	floor := workout.RepRange{Low: 5, High: 8}
	for sets := 1; sets <= 5; sets++ {
		for reps := 1; reps <= 10; reps++ {
			actual := make([]int, sets)
			for i := range actual {
				actual[i] = reps
			}
			if !workout.IsSuccess(3, floor, sets, actual) {
				continue
			}
			more := make([]int, sets+1)
			for i := range more {
				more[i] = reps + 1
			}
			if !workout.IsSuccess(3, floor, sets+1, more) {
				t.Errorf("success with %d×%d became failure with %d×%d", sets, reps, sets+1, reps+1)
			}
		}
	}
}

func TestNextLoad(t *testing.T) {
	tests := []struct {
		name    string
		floor   int
		success bool
		want    float64
	}{
		{"hypertrophy success", 8, true, 100 * 1.025},
		{"strength success", 3, true, 100 * 1.02},
		{"endurance bucket success", 6, true, 100 * 1.03},
		{"high rep success", 15, true, 100 * 1.025},
		{"failure", 8, false, 97},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := workout.NextLoad(100, tt.floor, tt.success); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NextLoad() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateSessionResult(t *testing.T) {
	tests := []struct {
		name    string
		result  workout.SessionResult
		wantErr bool
	}{
		{"valid with load", workout.SessionResult{Sets: 3, Reps: []int{10, 9, 8}, LoadKg: ptr.Ref(60.0)}, false},
		{"valid bodyweight", workout.SessionResult{Sets: 2, Reps: []int{12, 10}}, false},
		{"zero sets", workout.SessionResult{Sets: 0, Reps: nil}, true},
		{"rep count mismatch", workout.SessionResult{Sets: 3, Reps: []int{10, 9}}, true},
		{"zero reps", workout.SessionResult{Sets: 2, Reps: []int{10, 0}}, true},
		{"negative load", workout.SessionResult{Sets: 1, Reps: []int{5}, LoadKg: ptr.Ref(-5.0)}, true},
		{"rpe too high", workout.SessionResult{Sets: 1, Reps: []int{5}, RPE: ptr.Ref(11.0)}, true},
		{"negative duration", workout.SessionResult{Sets: 1, Reps: []int{5}, DurationMinutes: ptr.Ref(-1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := workout.ValidateSessionResult(tt.result)
			if tt.wantErr != (err != nil) {
				t.Fatalf("ValidateSessionResult() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, workout.ErrInvalidResult) {
				t.Errorf("error %v does not wrap ErrInvalidResult", err)
			}
		})
	}
}
