package workout

import (
	"fmt"
	"math"
)

// regressionFactor is applied to the load after a failed session.
const regressionFactor = 0.97

// ValidateSessionResult rejects malformed results before anything is written.
func ValidateSessionResult(r SessionResult) error {
	if r.Sets <= 0 {
		return fmt.Errorf("%w: sets must be positive, got %d", ErrInvalidResult, r.Sets)
	}
	if len(r.Reps) != r.Sets {
		return fmt.Errorf("%w: got %d rep counts for %d sets", ErrInvalidResult, len(r.Reps), r.Sets)
	}
	for i, reps := range r.Reps {
		if reps <= 0 {
			return fmt.Errorf("%w: set %d has %d reps", ErrInvalidResult, i+1, reps)
		}
	}
	if r.LoadKg != nil && (*r.LoadKg <= 0 || math.IsNaN(*r.LoadKg) || math.IsInf(*r.LoadKg, 0)) {
		return fmt.Errorf("%w: load must be positive, got %v", ErrInvalidResult, *r.LoadKg)
	}
	if r.RPE != nil && (math.IsNaN(*r.RPE) || *r.RPE < 1 || *r.RPE > 10) {
		return fmt.Errorf("%w: RPE must be between 1 and 10, got %v", ErrInvalidResult, *r.RPE)
	}
	if r.DurationMinutes != nil && *r.DurationMinutes < 0 {
		return fmt.Errorf("%w: negative duration %d", ErrInvalidResult, *r.DurationMinutes)
	}
	return nil
}

// IsSuccess reports whether every target set was done with at least the rep floor.
func IsSuccess(targetSets int, targetReps RepRange, actualSets int, actualReps []int) bool {
	if actualSets < targetSets {
		return false
	}
	for _, reps := range actualReps {
		if reps < targetReps.Low {
			return false
		}
	}
	return true
}

// ProgressionRate picks the progression rate of the focus family that a rep floor belongs to.
func ProgressionRate(floor int) float64 {
	switch {
	case floor >= 8: //nolint:mnd // hypertrophy reps start at eight.
		return TargetFor(FocusHypertrophy).ProgressionRate
	case floor <= 5: //nolint:mnd // strength reps end at five.
		return TargetFor(FocusStrength).ProgressionRate
	default:
		return TargetFor(FocusEndurance).ProgressionRate
	}
}

// NextLoad suggests the load for the next time the exercise is prescribed.
func NextLoad(current float64, floor int, success bool) float64 {
	if success {
		return current * (1 + ProgressionRate(floor))
	}
	return max(0, current*regressionFactor)
}

// judge evaluates a validated result against its prescription. The logged load is the basis for the
// suggestion, falling back to the target load. Bodyweight work gets no suggestion.
func judge(p ExercisePrescription, r SessionResult) Outcome {
	success := IsSuccess(p.TargetSets, p.TargetReps, r.Sets, r.Reps)

	current := r.LoadKg
	if current == nil {
		current = p.TargetLoadKg
	}
	if current == nil {
		return Outcome{Success: success, SuggestedNextLoadKg: nil}
	}
	next := NextLoad(*current, p.TargetReps.Low, success)
	return Outcome{Success: success, SuggestedNextLoadKg: &next}
}
