package workout

// neutralRPE is assumed when no effort was logged so that unseeded users still adapt sensibly.
const neutralRPE = 7.5

// Aggregate reduces a plan to its total volume, average effort, and completion rate.
//
// Completed prescriptions with a logged load and reps contribute load × sum(reps). Every other
// prescription contributes its target volume.
func Aggregate(plan WeeklyPlan) Progress {
	var (
		progress  Progress
		total     int
		completed int
		rpeSum    float64
		rpeCount  int
	)
	for _, p := range plan.Prescriptions() {
		total++
		progress.TotalVolume += effectiveVolume(p)
		if !p.Completed {
			continue
		}
		completed++
		switch {
		case p.ActualRPE != nil:
			rpeSum += *p.ActualRPE
			rpeCount++
		case p.TargetRPE > 0:
			rpeSum += p.TargetRPE
			rpeCount++
		}
	}

	progress.AverageRPE = neutralRPE
	if rpeCount > 0 {
		progress.AverageRPE = rpeSum / float64(rpeCount)
	}
	if total > 0 {
		progress.CompletionRate = float64(completed) / float64(total)
	}
	return progress
}

func effectiveVolume(p ExercisePrescription) float64 {
	if p.Completed && p.ActualLoadKg != nil && len(p.ActualReps) > 0 {
		var reps int
		for _, r := range p.ActualReps {
			reps += r
		}
		return *p.ActualLoadKg * float64(reps)
	}
	return p.TargetVolume()
}
