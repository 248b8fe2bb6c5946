package workout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// LogFormState is the step a session logging dialog is in.
type LogFormState int

const (
	StateCollectingDuration LogFormState = iota
	StateCollectingLoad
	StateCollectingEffort
	StateCollectingNotes
	StateConfirmed
)

func (s LogFormState) String() string {
	switch s {
	case StateCollectingDuration:
		return "collecting-duration"
	case StateCollectingLoad:
		return "collecting-load"
	case StateCollectingEffort:
		return "collecting-effort"
	case StateCollectingNotes:
		return "collecting-notes"
	case StateConfirmed:
		return "confirmed"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// ErrFormConfirmed is returned when input is given to a form that is already confirmed.
var ErrFormConfirmed = errors.New("log form already confirmed")

const skipInput = "skip"

// LogForm collects a session result for one prescription over several turns of user input.
//
// A LogForm is a value. Advance returns the next form and leaves the receiver untouched so that a
// rejected input can simply be retried against the same form.
type LogForm struct {
	PrescriptionID int
	state          LogFormState
	result         SessionResult
}

// NewLogForm starts a dialog for prescriptionID.
func NewLogForm(prescriptionID int) LogForm {
	return LogForm{
		PrescriptionID: prescriptionID,
		state:          StateCollectingDuration,
		result:         SessionResult{Sets: 0, Reps: nil, LoadKg: nil, RPE: nil, DurationMinutes: nil, Notes: ""},
	}
}

// State returns the current step.
func (f LogForm) State() LogFormState {
	return f.state
}

// Prompt is the question to ask for the current step.
func (f LogForm) Prompt() string {
	switch f.state {
	case StateCollectingDuration:
		return "How many minutes did the exercise take? (number or 'skip')"
	case StateCollectingLoad:
		return "Load and reps per set, e.g. '60 x 10,9,8' or 'bw x 12,10,10'"
	case StateCollectingEffort:
		return "How hard was it on a 1-10 scale? (number or 'skip')"
	case StateCollectingNotes:
		return "Any notes? (text or 'skip')"
	case StateConfirmed:
		return "Logged."
	default:
		return ""
	}
}

// Result returns the collected result once the form is confirmed.
func (f LogForm) Result() (SessionResult, bool) {
	if f.state != StateConfirmed {
		return SessionResult{}, false
	}
	return f.result, true
}

// Advance consumes one answer for the current step.
func (f LogForm) Advance(input string) (LogForm, error) {
	input = strings.TrimSpace(input)
	next := f
	next.result.Reps = append([]int(nil), f.result.Reps...)

	switch f.state {
	case StateCollectingDuration:
		if !isSkip(input) {
			minutes, err := strconv.Atoi(input)
			if err != nil || minutes < 0 {
				return f, fmt.Errorf("%w: duration %q is not a whole number of minutes", ErrInvalidResult, input)
			}
			next.result.DurationMinutes = &minutes
		}
		next.state = StateCollectingLoad
	case StateCollectingLoad:
		load, reps, err := parseLoadAndReps(input)
		if err != nil {
			return f, err
		}
		next.result.LoadKg = load
		next.result.Reps = reps
		next.result.Sets = len(reps)
		next.state = StateCollectingEffort
	case StateCollectingEffort:
		if !isSkip(input) {
			rpe, err := strconv.ParseFloat(strings.ReplaceAll(input, ",", "."), 64)
			if err != nil || rpe < 1 || rpe > 10 {
				return f, fmt.Errorf("%w: effort %q is not between 1 and 10", ErrInvalidResult, input)
			}
			next.result.RPE = &rpe
		}
		next.state = StateCollectingNotes
	case StateCollectingNotes:
		if !isSkip(input) && input != "-" {
			next.result.Notes = input
		}
		if err := ValidateSessionResult(next.result); err != nil {
			return f, err
		}
		next.state = StateConfirmed
	case StateConfirmed:
		return f, ErrFormConfirmed
	}
	return next, nil
}

func isSkip(input string) bool {
	return input == "" || strings.EqualFold(input, skipInput)
}

// parseLoadAndReps parses "<kg> x r,r,r" where kg may be "bw" for bodyweight.
func parseLoadAndReps(input string) (*float64, []int, error) {
	normalized := strings.ToLower(strings.ReplaceAll(input, "×", "x"))
	loadPart, repsPart, found := strings.Cut(normalized, "x")
	if !found {
		return nil, nil, fmt.Errorf("%w: expected '<kg> x <reps>', got %q", ErrInvalidResult, input)
	}

	var load *float64
	loadPart = strings.TrimSuffix(strings.TrimSpace(loadPart), "kg")
	if loadPart = strings.TrimSpace(loadPart); loadPart != "bw" {
		kg, err := strconv.ParseFloat(strings.ReplaceAll(loadPart, ",", "."), 64)
		if err != nil || kg <= 0 {
			return nil, nil, fmt.Errorf("%w: load %q is not a positive number", ErrInvalidResult, loadPart)
		}
		load = &kg
	}

	var reps []int
	for field := range strings.SplitSeq(repsPart, ",") {
		r, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || r <= 0 {
			return nil, nil, fmt.Errorf("%w: reps %q must be positive whole numbers", ErrInvalidResult, repsPart)
		}
		reps = append(reps, r)
	}
	return load, reps, nil
}
