package workout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a user, exercise, plan, day, or prescription does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write collides with existing state.
	ErrConflict = errors.New("conflict")
	// ErrActivePlanExists is returned when a user already has a plan that is not completed.
	ErrActivePlanExists = fmt.Errorf("active plan exists: %w", ErrConflict)
	// ErrInvalidResult is returned when a logged session result fails validation.
	ErrInvalidResult = errors.New("invalid session result")
	// ErrAlreadyRecorded is returned when a prescription already has a logged result.
	ErrAlreadyRecorded = errors.New("session result already recorded")
)

// Focus is the training emphasis of a week.
type Focus string

const (
	FocusHypertrophy Focus = "hypertrophy"
	FocusStrength    Focus = "strength"
	FocusEndurance   Focus = "endurance"
)

// Valid reports whether f is one of the known focuses.
func (f Focus) Valid() bool {
	switch f {
	case FocusHypertrophy, FocusStrength, FocusEndurance:
		return true
	default:
		return false
	}
}

// Goal is the user's long term objective, set during onboarding.
type Goal string

const (
	GoalFatLoss    Goal = "fat_loss"
	GoalMuscleGain Goal = "muscle_gain"
	GoalMaintain   Goal = "maintain"
	GoalEventPrep  Goal = "event_prep"
)

// Focus maps the goal to the training focus. Unknown goals train hypertrophy.
func (g Goal) Focus() Focus {
	switch g {
	case GoalFatLoss:
		return FocusEndurance
	case GoalEventPrep:
		return FocusStrength
	case GoalMuscleGain, GoalMaintain:
		return FocusHypertrophy
	default:
		return FocusHypertrophy
	}
}

// Level is the user's training experience.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Category classifies an exercise template for prescription rules.
type Category string

const (
	CategoryCompound  Category = "compound"
	CategoryAccessory Category = "accessory"
	CategoryCore      Category = "core"
	CategoryCardio    Category = "cardio"
)

// User is the training profile the engine reads. It is owned by onboarding.
type User struct {
	ID             int
	DisplayName    string
	TelegramChatID *int64
	Goal           Goal
	Level          Level
	Equipment      []string
}

// Exercise is a catalog entry, e.g. Bench Press.
type Exercise struct {
	ID          int      `yaml:"id"`
	Name        string   `yaml:"name"`
	MuscleGroup string   `yaml:"muscle_group"`
	Equipment   string   `yaml:"equipment"`
	Bodyweight  bool     `yaml:"bodyweight"`
	Category    Category `yaml:"category"`
	// MaxFraction is the share of the estimated maximum used as working load. Zero means no external load.
	MaxFraction float64 `yaml:"max_fraction"`
	// BaseLoadKg is the reference load the fraction applies to.
	BaseLoadKg float64 `yaml:"base_load_kg"`
	Technique  string  `yaml:"technique"`
	VideoURL   string  `yaml:"video_url"`
}

// RepRange is an inclusive target rep range, written as "low-high".
type RepRange struct {
	Low  int
	High int
}

func (r RepRange) String() string {
	if r.Low == r.High {
		return strconv.Itoa(r.Low)
	}
	return fmt.Sprintf("%d-%d", r.Low, r.High)
}

// ParseRepRange parses "8-12" or a single number such as "20".
func ParseRepRange(s string) (RepRange, error) {
	lowStr, highStr, found := strings.Cut(strings.TrimSpace(s), "-")
	if !found {
		highStr = lowStr
	}
	low, err := strconv.Atoi(strings.TrimSpace(lowStr))
	if err != nil {
		return RepRange{}, fmt.Errorf("parse rep range %q: %w", s, err)
	}
	high, err := strconv.Atoi(strings.TrimSpace(highStr))
	if err != nil {
		return RepRange{}, fmt.Errorf("parse rep range %q: %w", s, err)
	}
	if low <= 0 || high < low {
		return RepRange{}, fmt.Errorf("parse rep range %q: bounds out of order", s)
	}
	return RepRange{Low: low, High: high}, nil
}

// Target is the focus specific prescription tuple.
type Target struct {
	Sets            int
	Reps            RepRange
	RPE             float64
	ProgressionRate float64
}

// WeeklyPlan is the root aggregate of one training week.
type WeeklyPlan struct {
	ID         int
	UserID     int
	Focus      Focus
	WeekNumber int
	StartDate  time.Time
	EndDate    time.Time
	// IntensityMultiplier and TargetVolume record how the week was adapted.
	IntensityMultiplier float64
	TargetVolume        float64
	Completed           bool
	Days                []DailyWorkout
}

// TotalVolume sums the prescribed volume of every day.
func (p WeeklyPlan) TotalVolume() float64 {
	var total float64
	for _, d := range p.Days {
		total += d.TotalVolume
	}
	return total
}

// Prescriptions returns every prescription of the plan in day order.
func (p WeeklyPlan) Prescriptions() []ExercisePrescription {
	var all []ExercisePrescription
	for _, d := range p.Days {
		all = append(all, d.Prescriptions...)
	}
	return all
}

// Day returns the workout for the 1-based day index.
func (p WeeklyPlan) Day(index int) (DailyWorkout, bool) {
	for _, d := range p.Days {
		if d.DayIndex == index {
			return d, true
		}
	}
	return DailyWorkout{}, false
}

// DayOn returns the workout scheduled on date.
func (p WeeklyPlan) DayOn(date time.Time) (DailyWorkout, bool) {
	start := time.Date(p.StartDate.Year(), p.StartDate.Month(), p.StartDate.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	offset := int(day.Sub(start).Hours() / hoursPerDay)
	return p.Day(offset + 1)
}

const hoursPerDay = 24

// WorkoutTypeRest marks a day without exercises.
const WorkoutTypeRest = "rest"

// DailyWorkout is one of the seven days of a plan.
type DailyWorkout struct {
	ID              int
	PlanID          int
	DayIndex        int
	MuscleGroup     string
	WorkoutType     string
	DurationMinutes int
	// TotalVolume is derived from the prescriptions and recomputed whenever target loads change.
	TotalVolume   float64
	Prescriptions []ExercisePrescription
}

// IsRest reports whether the day is a rest day.
func (d DailyWorkout) IsRest() bool {
	return d.WorkoutType == WorkoutTypeRest
}

// recompute derives the day's volume and planned duration from its prescriptions.
func (d *DailyWorkout) recompute() {
	d.TotalVolume = 0
	d.DurationMinutes = 0
	for _, p := range d.Prescriptions {
		d.TotalVolume += p.TargetVolume()
		d.DurationMinutes += p.EstimatedDurationMinutes
	}
}

// ExercisePrescription is one exercise on one day with its targets and, once logged, its actual result.
type ExercisePrescription struct {
	ID           int
	DayID        int
	Position     int
	Exercise     Exercise
	TargetSets   int
	TargetReps   RepRange
	TargetLoadKg *float64
	RestSeconds  int
	TargetRPE    float64
	// EstimatedDurationMinutes is only known at generation time and not persisted.
	EstimatedDurationMinutes int

	Completed             bool
	ActualSets            *int
	ActualReps            []int
	ActualLoadKg          *float64
	ActualRPE             *float64
	ActualDurationMinutes *int
	Notes                 string
}

// TargetVolume is target load × rep floor × sets. Bodyweight work has no volume.
func (p ExercisePrescription) TargetVolume() float64 {
	if p.TargetLoadKg == nil {
		return 0
	}
	return *p.TargetLoadKg * float64(p.TargetReps.Low) * float64(p.TargetSets)
}

// PlanRequest asks for a new weekly plan.
type PlanRequest struct {
	UserID    int
	WeekStart time.Time
	// Focus overrides the goal derived focus when set.
	Focus Focus
}

// SessionResult is the logged outcome of one prescription.
type SessionResult struct {
	Sets            int
	Reps            []int
	LoadKg          *float64
	RPE             *float64
	DurationMinutes *int
	Notes           string
}

// Outcome is the advisory judgement of a session result.
type Outcome struct {
	Success bool
	// SuggestedNextLoadKg is nil when no load is known.
	SuggestedNextLoadKg *float64
}

// Progress summarises a week.
type Progress struct {
	TotalVolume    float64
	AverageRPE     float64
	CompletionRate float64
}
