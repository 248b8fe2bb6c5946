package workout

import "math"

// defaultBaseLoadKg is used when the catalog leaves an externally loaded exercise without a base load.
const defaultBaseLoadKg = 30.0

// Prescription is the concrete dose of one exercise.
type Prescription struct {
	Sets            int
	Reps            int
	LoadKg          *float64
	RestSeconds     int
	RPE             float64
	DurationMinutes int
	Volume          float64
}

// Prescribe computes sets, reps, load, rest, effort, duration, and volume for one exercise.
//
// It is a pure function of its arguments.
func Prescribe(ex Exercise, level Level, intensity float64) Prescription {
	p := Prescription{
		Sets:            prescribeSets(ex.Category, level, intensity),
		Reps:            prescribeReps(ex.Category, level),
		LoadKg:          prescribeLoad(ex, level, intensity),
		RestSeconds:     prescribeRest(ex.Category, intensity),
		RPE:             prescribeRPE(intensity),
		DurationMinutes: 0,
		Volume:          0,
	}
	p.DurationMinutes = estimateDurationMinutes(p.Sets, p.Reps, p.RestSeconds)
	if p.LoadKg != nil {
		p.Volume = *p.LoadKg * float64(p.Reps) * float64(p.Sets)
	}
	return p
}

func prescribeSets(category Category, level Level, intensity float64) int {
	sets := 3
	if category == CategoryCompound {
		sets = 4
	}
	switch level {
	case LevelAdvanced:
		sets++
	case LevelBeginner:
		sets = max(2, sets-1) //nolint:mnd // two sets is the floor.
	case LevelIntermediate:
	}
	if intensity > 1.05 { //nolint:mnd // hard weeks add a set.
		sets++
	}
	return sets
}

func prescribeReps(category Category, level Level) int {
	switch category {
	case CategoryCompound:
		switch level {
		case LevelAdvanced:
			return 5
		case LevelBeginner:
			return 8
		case LevelIntermediate:
			return 6
		default:
			return 6
		}
	case CategoryCardio:
		return 20
	case CategoryCore:
		return 30
	case CategoryAccessory:
	}
	if level == LevelBeginner {
		return 12
	}
	return 10
}

func levelFactor(level Level) float64 {
	switch level {
	case LevelBeginner:
		return 0.8 //nolint:mnd // level scaling.
	case LevelAdvanced:
		return 1.2 //nolint:mnd // level scaling.
	case LevelIntermediate:
		return 1
	default:
		return 1
	}
}

// prescribeLoad returns nil for exercises without external load.
func prescribeLoad(ex Exercise, level Level, intensity float64) *float64 {
	if ex.MaxFraction == 0 {
		return nil
	}
	base := ex.BaseLoadKg
	if base == 0 {
		base = defaultBaseLoadKg
	}
	load := base * ex.MaxFraction * levelFactor(level) * intensity
	return &load
}

func prescribeRest(category Category, intensity float64) int {
	switch category {
	case CategoryCompound:
		if intensity >= 1.0 {
			return 120
		}
		return 90
	case CategoryCardio, CategoryCore:
		return 45
	case CategoryAccessory:
	}
	return 60
}

func prescribeRPE(intensity float64) float64 {
	switch {
	case intensity >= 1.05: //nolint:mnd // effort buckets.
		return 8
	case intensity <= 0.95: //nolint:mnd // effort buckets.
		return 6
	default:
		return 7
	}
}

// estimateDurationMinutes assumes two seconds per rep plus rest between sets.
func estimateDurationMinutes(sets, reps, restSeconds int) int {
	if sets <= 0 {
		return 0
	}
	seconds := sets*reps*2 + (sets-1)*restSeconds
	return int(math.Round(float64(seconds) / 60)) //nolint:mnd // seconds per minute.
}
