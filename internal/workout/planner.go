package workout

import (
	"context"
	"time"
)

const (
	// baselineVolume is the week's target volume when there is no usable history.
	baselineVolume = 5000.0
	volumeGrowth   = 1.07
	minIntensity   = 0.90
	maxIntensity   = 1.10
)

// NextTargetVolume grows last week's volume by 7%. Without a previous week, or when it had no volume,
// the baseline is used.
func NextTargetVolume(previous *Progress) float64 {
	if previous == nil || previous.TotalVolume <= 0 {
		return baselineVolume
	}
	return previous.TotalVolume * volumeGrowth
}

// NextIntensity derives the intensity multiplier from last week's completion and effort.
// The first matching rule wins and the result is clamped to [0.90, 1.10].
func NextIntensity(previous *Progress) float64 {
	intensity := 1.0
	if previous == nil {
		return intensity
	}
	switch {
	case previous.CompletionRate >= 0.9 && previous.AverageRPE <= 7.5:
		intensity += 0.03
	case previous.CompletionRate >= 0.8 && previous.AverageRPE <= 8.0:
		intensity += 0.02
	case previous.CompletionRate < 0.6 || previous.AverageRPE >= 9.0:
		// Deload.
		intensity -= 0.05
	}
	return min(max(intensity, minIntensity), maxIntensity)
}

// scaleLoads multiplies every target load by factor and recomputes the day totals.
func scaleLoads(plan *WeeklyPlan, factor float64) {
	for i := range plan.Days {
		day := &plan.Days[i]
		for j := range day.Prescriptions {
			if load := day.Prescriptions[j].TargetLoadKg; load != nil {
				scaled := *load * factor
				day.Prescriptions[j].TargetLoadKg = &scaled
			}
		}
		day.recompute()
	}
}

// adaptWeek builds next week's plan for user from the previous week's progress.
//
// Intensity is applied to the loads of a nominal plan, after which loads are rescaled so that the
// predicted volume matches the target volume whenever both are positive.
func adaptWeek(
	ctx context.Context,
	p periodizer,
	user User,
	weekStart time.Time,
	focus Focus,
	previous *Progress,
) WeeklyPlan {
	targetVolume := NextTargetVolume(previous)
	intensity := NextIntensity(previous)

	plan := p.build(ctx, user, weekStart, focus)
	plan.IntensityMultiplier = intensity
	plan.TargetVolume = targetVolume

	scaleLoads(&plan, intensity)

	if predicted := plan.TotalVolume(); predicted > 0 && targetVolume > 0 {
		scaleLoads(&plan, targetVolume/predicted)
	}
	return plan
}
