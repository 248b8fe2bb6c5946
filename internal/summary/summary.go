// Package summary renders weekly plans and progress for people: plain text for chat messages,
// Markdown, and HTML exports.
package summary

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/myrjola/overload/internal/workout"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// FormatLoad renders a load rounded to one decimal, or "bodyweight".
func FormatLoad(load *float64) string {
	if load == nil {
		return "bodyweight"
	}
	return strings.TrimSuffix(fmt.Sprintf("%.1f", *load), ".0") + " kg"
}

func weekdayName(plan workout.WeeklyPlan, dayIndex int) string {
	return plan.StartDate.AddDate(0, 0, dayIndex-1).Weekday().String()
}

// PlanText is the weekly preview message.
func PlanText(plan workout.WeeklyPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Week %d (%s to %s), focus: %s\n",
		plan.WeekNumber%100, plan.StartDate.Format(time.DateOnly), plan.EndDate.Format(time.DateOnly), plan.Focus) //nolint:mnd // week digits.
	fmt.Fprintf(&b, "Intensity %.2f, target volume %.0f kg\n", plan.IntensityMultiplier, plan.TargetVolume)
	for _, day := range plan.Days {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s: ", weekdayName(plan, day.DayIndex))
		if day.IsRest() {
			b.WriteString("rest\n")
			continue
		}
		fmt.Fprintf(&b, "%s %s, ~%d min\n", day.MuscleGroup, day.WorkoutType, day.DurationMinutes)
		for _, p := range day.Prescriptions {
			fmt.Fprintf(&b, "  - %s\n", prescriptionLine(p))
		}
	}
	return b.String()
}

func prescriptionLine(p workout.ExercisePrescription) string {
	return fmt.Sprintf("%s: %d × %s @ %s, rest %ds, RPE %.0f",
		p.Exercise.Name, p.TargetSets, p.TargetReps, FormatLoad(p.TargetLoadKg), p.RestSeconds, p.TargetRPE)
}

// DayText is the daily reminder message for one training day.
func DayText(day workout.DailyWorkout, date time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today (%s %s): %s %s, ~%d min\n",
		date.Weekday(), date.Format(time.DateOnly), day.MuscleGroup, day.WorkoutType, day.DurationMinutes)
	for _, p := range day.Prescriptions {
		fmt.Fprintf(&b, "- %s\n", prescriptionLine(p))
		if p.Exercise.Technique != "" {
			fmt.Fprintf(&b, "  %s\n", p.Exercise.Technique)
		}
	}
	return b.String()
}

// ProgressText summarises a week's progress.
func ProgressText(p workout.Progress) string {
	return fmt.Sprintf("Volume %.0f kg, average RPE %.1f, completion %.0f%%",
		p.TotalVolume, p.AverageRPE, p.CompletionRate*100) //nolint:mnd // percent.
}

// Markdown renders the plan with one table per training day.
func Markdown(plan workout.WeeklyPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Week %d: %s\n\n", plan.WeekNumber%100, plan.Focus) //nolint:mnd // week digits.
	fmt.Fprintf(&b, "%s to %s. Intensity **%.2f**, target volume **%.0f kg**.\n",
		plan.StartDate.Format(time.DateOnly), plan.EndDate.Format(time.DateOnly),
		plan.IntensityMultiplier, plan.TargetVolume)

	for _, day := range plan.Days {
		fmt.Fprintf(&b, "\n## %s\n\n", weekdayName(plan, day.DayIndex))
		if day.IsRest() {
			b.WriteString("Rest day.\n")
			continue
		}
		fmt.Fprintf(&b, "%s %s, about %d minutes.\n", day.MuscleGroup, day.WorkoutType, day.DurationMinutes)
		if len(day.Prescriptions) == 0 {
			b.WriteString("\nNo exercises available.\n")
			continue
		}
		b.WriteString("\n| Exercise | Sets | Reps | Load | Rest | RPE |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, p := range day.Prescriptions {
			name := escapeCell(p.Exercise.Name)
			if p.Exercise.VideoURL != "" {
				name = fmt.Sprintf("[%s](%s)", name, p.Exercise.VideoURL)
			}
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %ds | %.0f |\n",
				name, p.TargetSets, p.TargetReps, FormatLoad(p.TargetLoadKg), p.RestSeconds, p.TargetRPE)
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderHTML converts the plan's Markdown into an HTML fragment.
func RenderHTML(plan workout.WeeklyPlan) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(plan)), &buf); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	return buf.Bytes(), nil
}
