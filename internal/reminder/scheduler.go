package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/overload/internal/logging"
	"github.com/myrjola/overload/internal/summary"
	"github.com/myrjola/overload/internal/workout"
	"github.com/robfig/cron"
	"golang.org/x/sync/errgroup"
)

// planService is the part of workout.Service the jobs use.
type planService interface {
	ListUsers(ctx context.Context) ([]workout.User, error)
	GenerateWeeklyPlan(ctx context.Context, req workout.PlanRequest) (workout.WeeklyPlan, error)
	ActivePlan(ctx context.Context, userID int) (workout.WeeklyPlan, error)
	CompletePlan(ctx context.Context, planID int) error
	LastWeekProgress(ctx context.Context, userID int) (*workout.Progress, error)
}

// Config controls when the jobs run and how much work they do at once.
type Config struct {
	// WeeklySchedule and DailySchedule are cron expressions with a seconds field, e.g. "0 0 18 * * 0".
	WeeklySchedule string
	DailySchedule  string
	// Concurrency bounds how many users are processed at the same time.
	Concurrency int
	// StoreTimeout bounds the work done for a single user.
	StoreTimeout time.Duration
	// Tracer captures a runtime trace when a user's work hits StoreTimeout. Optional.
	Tracer TraceCapturer
}

// TraceCapturer is implemented by flightrecorder.Recorder.
type TraceCapturer interface {
	CaptureTrace(ctx context.Context, reason string)
}

// Scheduler runs the weekly preview and daily reminder jobs.
type Scheduler struct {
	cfg      Config
	plans    planService
	notifier Notifier
	coach    *summary.Coach
	logger   *slog.Logger
	cron     *cron.Cron
	now      func() time.Time
}

// NewScheduler validates the schedules and wires the jobs. Call Start to run them.
func NewScheduler(
	cfg Config,
	plans planService,
	notifier Notifier,
	coach *summary.Coach,
	logger *slog.Logger,
) (*Scheduler, error) {
	for name, spec := range map[string]string{"weekly": cfg.WeeklySchedule, "daily": cfg.DailySchedule} {
		if _, err := cron.Parse(spec); err != nil {
			return nil, fmt.Errorf("parse %s schedule %q: %w", name, spec, err)
		}
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Scheduler{
		cfg:      cfg,
		plans:    plans,
		notifier: notifier,
		coach:    coach,
		logger:   logger,
		cron:     cron.New(),
		now:      time.Now,
	}, nil
}

// Start registers the jobs and starts the cron runner. Jobs run with ctx until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context, now time.Time) error
	}{
		{"weekly_preview", s.cfg.WeeklySchedule, s.RunWeeklyPreview},
		{"daily_reminder", s.cfg.DailySchedule, s.RunDailyReminders},
	}
	for _, job := range jobs {
		err := s.cron.AddFunc(job.spec, func() {
			runCtx := logging.WithAttrs(ctx, slog.String("job", job.name), slog.String("run_id", uuid.NewString()))
			if err := job.run(runCtx, s.now()); err != nil {
				s.logger.LogAttrs(runCtx, slog.LevelError, "job failed", slog.Any("error", err))
			}
		})
		if err != nil {
			return fmt.Errorf("add %s job: %w", job.name, err)
		}
	}
	s.cron.Start()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "scheduler started",
		slog.String("weekly", s.cfg.WeeklySchedule), slog.String("daily", s.cfg.DailySchedule))
	return nil
}

// Stop stops the cron runner. Jobs that are already running are not interrupted.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// NextWeekStart returns the first Monday strictly after now, as a UTC date.
func NextWeekStart(now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := (int(time.Monday) - int(today.Weekday()) + 7) % 7 //nolint:mnd // days in a week.
	if days == 0 {
		days = 7
	}
	return today.AddDate(0, 0, days)
}

// RunWeeklyPreview generates next week's plan for every user and sends them a summary.
//
// A user's finished week is completed first. If the user already has an active plan for next week, the
// summary is sent again. Failures for one user do not stop the others and are returned joined.
func (s *Scheduler) RunWeeklyPreview(ctx context.Context, now time.Time) error {
	weekStart := NextWeekStart(now)
	return s.forEachUser(ctx, func(ctx context.Context, user workout.User) error {
		if err := s.completeFinishedWeek(ctx, user.ID, weekStart); err != nil {
			return err
		}

		plan, err := s.plans.GenerateWeeklyPlan(ctx, workout.PlanRequest{UserID: user.ID, WeekStart: weekStart})
		if errors.Is(err, workout.ErrConflict) {
			// Either the week was planned by an earlier run or the user has an unfinished plan.
			active, activeErr := s.plans.ActivePlan(ctx, user.ID)
			if errors.Is(activeErr, workout.ErrNotFound) {
				s.logger.LogAttrs(ctx, slog.LevelInfo, "week already planned and completed")
				return nil
			}
			if activeErr != nil {
				return fmt.Errorf("get active plan: %w", activeErr)
			}
			if !active.StartDate.Equal(weekStart) {
				s.logger.LogAttrs(ctx, slog.LevelInfo, "skipping user with unfinished plan",
					slog.Int("plan_id", active.ID), slog.String("start_date", active.StartDate.Format(time.DateOnly)))
				return nil
			}
			plan, err = active, nil
		}
		if err != nil {
			return fmt.Errorf("generate plan: %w", err)
		}

		previous, err := s.plans.LastWeekProgress(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("last week progress: %w", err)
		}
		text := summary.PlanText(plan) + "\n" + s.coach.Note(ctx, plan, previous)
		if err = s.notifier.Notify(ctx, user.ID, text); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
		return nil
	})
}

// completeFinishedWeek completes the user's active plan when it ends before weekStart.
func (s *Scheduler) completeFinishedWeek(ctx context.Context, userID int, weekStart time.Time) error {
	active, err := s.plans.ActivePlan(ctx, userID)
	if errors.Is(err, workout.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get active plan: %w", err)
	}
	if !active.EndDate.Before(weekStart) {
		return nil
	}
	if err = s.plans.CompletePlan(ctx, active.ID); err != nil {
		return fmt.Errorf("complete finished plan: %w", err)
	}
	return nil
}

// RunDailyReminders sends today's workout to every user whose active plan has a training day today.
func (s *Scheduler) RunDailyReminders(ctx context.Context, now time.Time) error {
	return s.forEachUser(ctx, func(ctx context.Context, user workout.User) error {
		plan, err := s.plans.ActivePlan(ctx, user.ID)
		if errors.Is(err, workout.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get active plan: %w", err)
		}
		day, ok := plan.DayOn(now)
		if !ok || day.IsRest() || len(day.Prescriptions) == 0 {
			return nil
		}
		if err = s.notifier.Notify(ctx, user.ID, summary.DayText(day, now)); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
		return nil
	})
}

// forEachUser runs fn for every user with bounded concurrency. Each call gets its own timeout and log
// attributes. Errors are logged and returned joined once every user has been processed.
func (s *Scheduler) forEachUser(ctx context.Context, fn func(ctx context.Context, user workout.User) error) error {
	users, err := s.plans.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(s.cfg.Concurrency)
	for _, user := range users {
		g.Go(func() error {
			userCtx := logging.WithAttrs(ctx, slog.Int("user_id", user.ID))
			if s.cfg.StoreTimeout > 0 {
				var cancel context.CancelFunc
				userCtx, cancel = context.WithTimeout(userCtx, s.cfg.StoreTimeout)
				defer cancel()
			}
			if userErr := fn(userCtx, user); userErr != nil {
				s.logger.LogAttrs(userCtx, slog.LevelError, "job failed for user", slog.Any("error", userErr))
				if errors.Is(userErr, context.DeadlineExceeded) && s.cfg.Tracer != nil {
					s.cfg.Tracer.CaptureTrace(ctx, "job_timeout")
				}
				mu.Lock()
				errs = append(errs, fmt.Errorf("user %d: %w", user.ID, userErr))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // the jobs never return errors to the group.

	s.logger.LogAttrs(ctx, slog.LevelInfo, "job finished",
		slog.Int("users", len(users)), slog.Int("failed", len(errs)))
	return errors.Join(errs...)
}
