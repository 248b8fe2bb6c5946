package workout_test

import (
	"math"
	"testing"

	"github.com/myrjola/overload/internal/workout"
)

func TestNextIntensity(t *testing.T) {
	tests := []struct {
		name     string
		previous *workout.Progress
		want     float64
	}{
		{"no history", nil, 1.0},
		{"easy full week", &workout.Progress{CompletionRate: 0.95, AverageRPE: 7.0}, 1.03},
		{"solid week", &workout.Progress{CompletionRate: 0.85, AverageRPE: 7.8}, 1.02},
		{"first rule wins", &workout.Progress{CompletionRate: 0.9, AverageRPE: 7.5}, 1.03},
		{"average week", &workout.Progress{CompletionRate: 0.7, AverageRPE: 8.5}, 1.0},
		{"deload on poor completion", &workout.Progress{CompletionRate: 0.4, AverageRPE: 9.5}, 0.95},
		{"deload on high effort", &workout.Progress{CompletionRate: 0.75, AverageRPE: 9.0}, 0.95},
		{"high completion but too hard", &workout.Progress{CompletionRate: 1, AverageRPE: 9.5}, 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := workout.NextIntensity(tt.previous); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NextIntensity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextIntensity_clamped(t *testing.T) {
	extremes := []float64{math.Inf(-1), -1e9, -1, 0, 0.59, 0.6, 0.8, 0.9, 1, 1.5, 1e9, math.Inf(1)}
	for _, rate := range extremes {
		for _, rpe := range extremes {
			got := workout.NextIntensity(&workout.Progress{TotalVolume: 1, CompletionRate: rate, AverageRPE: rpe})
			if got < 0.90 || got > 1.10 {
				t.Errorf("NextIntensity(rate=%v, rpe=%v) = %v, outside [0.90, 1.10]", rate, rpe, got)
			}
		}
	}
}

func TestNextTargetVolume(t *testing.T) {
	tests := []struct {
		name     string
		previous *workout.Progress
		want     float64
	}{
		{"no history", nil, 5000},
		{"no volume last week", &workout.Progress{TotalVolume: 0}, 5000},
		{"grows by seven percent", &workout.Progress{TotalVolume: 10000}, 10700},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := workout.NextTargetVolume(tt.previous); math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("NextTargetVolume() = %v, want %v", got, tt.want)
			}
		})
	}
}
