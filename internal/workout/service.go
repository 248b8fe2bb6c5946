package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/overload/internal/logging"
	"github.com/myrjola/overload/internal/sqlite"
)

// Service is the entry point of the training engine.
type Service struct {
	repo   *repository
	logger *slog.Logger
}

// NewService creates a new workout service backed by db.
func NewService(db *sqlite.Database, logger *slog.Logger) *Service {
	factory := newRepositoryFactory(db, logger)
	return &Service{
		repo:   factory.newRepository(),
		logger: logger,
	}
}

// SeedCatalog writes the exercises into the catalog, replacing entries with the same ID.
func (s *Service) SeedCatalog(ctx context.Context, exercises []Exercise) error {
	if err := s.repo.exercises.Upsert(ctx, exercises); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "seeded exercise catalog", slog.Int("exercises", len(exercises)))
	return nil
}

// ListExercises returns the catalog in ID order.
func (s *Service) ListExercises(ctx context.Context) ([]Exercise, error) {
	exercises, err := s.repo.exercises.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	return exercises, nil
}

// GetExercise retrieves one catalog entry.
func (s *Service) GetExercise(ctx context.Context, id int) (Exercise, error) {
	ex, err := s.repo.exercises.Get(ctx, id)
	if err != nil {
		return Exercise{}, fmt.Errorf("get exercise: %w", err)
	}
	return ex, nil
}

// CreateUser registers a training profile.
func (s *Service) CreateUser(ctx context.Context, u User) (User, error) {
	u, err := s.repo.users.Create(ctx, u)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUser retrieves a training profile.
func (s *Service) GetUser(ctx context.Context, id int) (User, error) {
	u, err := s.repo.users.Get(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByTelegramChatID retrieves the profile linked to a Telegram chat.
func (s *Service) GetUserByTelegramChatID(ctx context.Context, chatID int64) (User, error) {
	u, err := s.repo.users.GetByTelegramChatID(ctx, chatID)
	if err != nil {
		return User{}, fmt.Errorf("get user by chat: %w", err)
	}
	return u, nil
}

// ListUsers returns all profiles.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUser applies updateFn to the stored profile.
func (s *Service) UpdateUser(ctx context.Context, id int, updateFn func(u *User) (bool, error)) error {
	if err := s.repo.users.Update(ctx, id, updateFn); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// GenerateWeeklyPlan adapts the user's next week from their latest completed week and persists it.
//
// It fails with ErrActivePlanExists when the user still has a plan that is not completed. Nothing is
// written unless the whole plan is stored.
func (s *Service) GenerateWeeklyPlan(ctx context.Context, req PlanRequest) (WeeklyPlan, error) {
	ctx = logging.WithAttrs(ctx, slog.Int("user_id", req.UserID), slog.String("week_start", formatDate(req.WeekStart)))

	user, err := s.repo.users.Get(ctx, req.UserID)
	if err != nil {
		return WeeklyPlan{}, fmt.Errorf("get user: %w", err)
	}

	previous, err := s.LastWeekProgress(ctx, user.ID)
	if err != nil {
		return WeeklyPlan{}, err
	}

	catalog, err := s.repo.exercises.List(ctx)
	if err != nil {
		return WeeklyPlan{}, fmt.Errorf("get catalog: %w", err)
	}

	focus := req.Focus
	if !focus.Valid() {
		focus = user.Goal.Focus()
	}

	plan := adaptWeek(ctx, newPeriodizer(s.logger, catalog), user, req.WeekStart, focus, previous)

	if plan, err = s.repo.plans.Create(ctx, plan); err != nil {
		return WeeklyPlan{}, fmt.Errorf("save plan: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "generated weekly plan",
		slog.Int("plan_id", plan.ID),
		slog.String("focus", string(plan.Focus)),
		slog.Float64("intensity", plan.IntensityMultiplier),
		slog.Float64("target_volume", plan.TargetVolume),
		slog.Float64("planned_volume", plan.TotalVolume()))
	return plan, nil
}

// LastWeekProgress aggregates the user's latest completed plan. It returns nil when there is none.
func (s *Service) LastWeekProgress(ctx context.Context, userID int) (*Progress, error) {
	last, err := s.repo.plans.GetLatestCompleted(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil //nolint:nilnil // no history is not an error.
	}
	if err != nil {
		return nil, fmt.Errorf("get previous plan: %w", err)
	}
	progress := Aggregate(last)
	s.logger.LogAttrs(ctx, slog.LevelDebug, "previous week",
		slog.Int("plan_id", last.ID),
		slog.Float64("volume", progress.TotalVolume),
		slog.Float64("average_rpe", progress.AverageRPE),
		slog.Float64("completion_rate", progress.CompletionRate))
	return &progress, nil
}

// GetPlan retrieves a plan by ID.
func (s *Service) GetPlan(ctx context.Context, id int) (WeeklyPlan, error) {
	plan, err := s.repo.plans.Get(ctx, id)
	if err != nil {
		return WeeklyPlan{}, fmt.Errorf("get plan: %w", err)
	}
	return plan, nil
}

// ActivePlan retrieves the user's plan that is not completed yet.
func (s *Service) ActivePlan(ctx context.Context, userID int) (WeeklyPlan, error) {
	plan, err := s.repo.plans.GetActive(ctx, userID)
	if err != nil {
		return WeeklyPlan{}, fmt.Errorf("get active plan: %w", err)
	}
	return plan, nil
}

// PlanForWeek retrieves the user's plan starting on weekStart.
func (s *Service) PlanForWeek(ctx context.Context, userID int, weekStart time.Time) (WeeklyPlan, error) {
	plan, err := s.repo.plans.GetByWeek(ctx, userID, dateOnly(weekStart))
	if err != nil {
		return WeeklyPlan{}, fmt.Errorf("get plan for week: %w", err)
	}
	return plan, nil
}

// GetDay retrieves one day of a plan.
func (s *Service) GetDay(ctx context.Context, planID int, dayIndex int) (DailyWorkout, error) {
	day, err := s.repo.plans.GetDay(ctx, planID, dayIndex)
	if err != nil {
		return DailyWorkout{}, fmt.Errorf("get day: %w", err)
	}
	return day, nil
}

// GetPrescription retrieves one prescription.
func (s *Service) GetPrescription(ctx context.Context, id int) (ExercisePrescription, error) {
	p, err := s.repo.plans.GetPrescription(ctx, id)
	if err != nil {
		return ExercisePrescription{}, fmt.Errorf("get prescription: %w", err)
	}
	return p, nil
}

// RecordSessionResult stores the logged outcome of a prescription and returns the advisory judgement.
//
// Invalid results fail with ErrInvalidResult before anything is written. A prescription can be logged
// once; later attempts fail with ErrAlreadyRecorded.
func (s *Service) RecordSessionResult(ctx context.Context, prescriptionID int, result SessionResult) (Outcome, error) {
	if err := ValidateSessionResult(result); err != nil {
		return Outcome{}, err
	}

	p, err := s.repo.plans.GetPrescription(ctx, prescriptionID)
	if err != nil {
		return Outcome{}, fmt.Errorf("get prescription: %w", err)
	}
	if p.Completed {
		return Outcome{}, fmt.Errorf("prescription %d: %w", prescriptionID, ErrAlreadyRecorded)
	}

	if err = s.repo.plans.RecordResult(ctx, prescriptionID, result); err != nil {
		return Outcome{}, fmt.Errorf("record result: %w", err)
	}

	outcome := judge(p, result)
	attrs := []slog.Attr{
		slog.Int("prescription_id", prescriptionID),
		slog.String("exercise", p.Exercise.Name),
		slog.Bool("success", outcome.Success),
	}
	if outcome.SuggestedNextLoadKg != nil {
		attrs = append(attrs, slog.Float64("suggested_next_load_kg", *outcome.SuggestedNextLoadKg))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "recorded session result", attrs...)
	return outcome, nil
}

// WeekProgress aggregates a plan's volume, effort, and completion.
func (s *Service) WeekProgress(ctx context.Context, planID int) (Progress, error) {
	plan, err := s.repo.plans.Get(ctx, planID)
	if err != nil {
		return Progress{}, fmt.Errorf("get plan: %w", err)
	}
	return Aggregate(plan), nil
}

// CompletePlan marks the week as finished so that the next week can be generated.
func (s *Service) CompletePlan(ctx context.Context, planID int) error {
	if err := s.repo.plans.Complete(ctx, planID); err != nil {
		return fmt.Errorf("complete plan: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "completed plan", slog.Int("plan_id", planID))
	return nil
}
