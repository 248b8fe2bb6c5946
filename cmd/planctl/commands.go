package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/overload/internal/errors"
	"github.com/myrjola/overload/internal/reminder"
	"github.com/myrjola/overload/internal/summary"
	"github.com/myrjola/overload/internal/workout"
)

func (c cli) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stdout)
	return fs
}

func parseWeek(s string) (time.Time, error) {
	if s == "" {
		return reminder.NextWeekStart(time.Now()), nil
	}
	week, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.Wrap(errUsage, "week must be YYYY-MM-DD", slog.String("week", s))
	}
	return week, nil
}

func (c cli) seed(ctx context.Context) error {
	catalog, err := workout.DefaultCatalog()
	if err != nil {
		return err
	}
	if err = c.service.SeedCatalog(ctx, catalog); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.stdout, "Seeded %d exercises.\n", len(catalog))
	return err
}

func (c cli) exercises(ctx context.Context) error {
	exercises, err := c.service.ListExercises(ctx)
	if err != nil {
		return err
	}
	for _, ex := range exercises {
		equipment := ex.Equipment
		if ex.Bodyweight {
			equipment = "bodyweight"
		}
		if _, err = fmt.Fprintf(c.stdout, "%3d  %-22s %-16s %-10s %s\n",
			ex.ID, ex.Name, ex.MuscleGroup, ex.Category, equipment); err != nil {
			return err
		}
	}
	return nil
}

func (c cli) user(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.Wrap(errUsage, "user needs a subcommand")
	}
	switch args[0] {
	case "create":
		return c.createUser(ctx, args[1:])
	case "list":
		return c.listUsers(ctx)
	default:
		return errors.Wrap(errUsage, "unknown user subcommand", slog.String("subcommand", args[0]))
	}
}

func (c cli) createUser(ctx context.Context, args []string) error {
	fs := c.flagSet("user create")
	name := fs.String("name", "", "display name")
	goal := fs.String("goal", string(workout.GoalMaintain), "fat_loss, muscle_gain, maintain, or event_prep")
	level := fs.String("level", string(workout.LevelBeginner), "beginner, intermediate, or advanced")
	equipment := fs.String("equipment", "", "available equipment, comma separated; empty means a full gym")
	chat := fs.Int64("chat", 0, "Telegram chat id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.Wrap(errUsage, "-name is required")
	}

	u := workout.User{
		ID:             0,
		DisplayName:    *name,
		TelegramChatID: nil,
		Goal:           workout.Goal(*goal),
		Level:          workout.Level(*level),
		Equipment:      nil,
	}
	if *chat != 0 {
		u.TelegramChatID = chat
	}
	for item := range strings.SplitSeq(*equipment, ",") {
		if item = strings.TrimSpace(item); item != "" {
			u.Equipment = append(u.Equipment, item)
		}
	}

	u, err := c.service.CreateUser(ctx, u)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.stdout, "Created user %d (%s).\n", u.ID, u.DisplayName)
	return err
}

func (c cli) listUsers(ctx context.Context) error {
	users, err := c.service.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		equipment := "full gym"
		if len(u.Equipment) > 0 {
			equipment = strings.Join(u.Equipment, ",")
		}
		if _, err = fmt.Fprintf(c.stdout, "%3d  %-20s %-12s %-13s %s\n",
			u.ID, u.DisplayName, u.Goal, u.Level, equipment); err != nil {
			return err
		}
	}
	return nil
}

func (c cli) generate(ctx context.Context, args []string) error {
	fs := c.flagSet("generate")
	userID := fs.Int("user", 0, "user id")
	week := fs.String("week", "", "week start YYYY-MM-DD, defaults to next Monday")
	focus := fs.String("focus", "", "override the goal's focus: hypertrophy, strength, or endurance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	weekStart, err := parseWeek(*week)
	if err != nil {
		return err
	}
	if *focus != "" && !workout.Focus(*focus).Valid() {
		return errors.Wrap(errUsage, "unknown focus", slog.String("focus", *focus))
	}

	plan, err := c.service.GenerateWeeklyPlan(ctx, workout.PlanRequest{
		UserID:    *userID,
		WeekStart: weekStart,
		Focus:     workout.Focus(*focus),
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.stdout, "Plan %d\n%s", plan.ID, summary.PlanText(plan))
	return err
}

func (c cli) show(ctx context.Context, args []string) error {
	fs := c.flagSet("show")
	planID := fs.Int("plan", 0, "plan id")
	userID := fs.Int("user", 0, "user id; shows the active plan unless -week is given")
	week := fs.String("week", "", "week start YYYY-MM-DD, with -user")
	format := fs.String("format", "text", "text, markdown, or html")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		plan workout.WeeklyPlan
		err  error
	)
	switch {
	case *planID != 0:
		plan, err = c.service.GetPlan(ctx, *planID)
	case *userID != 0 && *week != "":
		var weekStart time.Time
		if weekStart, err = parseWeek(*week); err != nil {
			return err
		}
		plan, err = c.service.PlanForWeek(ctx, *userID, weekStart)
	case *userID != 0:
		plan, err = c.service.ActivePlan(ctx, *userID)
	default:
		return errors.Wrap(errUsage, "-plan or -user is required")
	}
	if err != nil {
		return err
	}

	switch *format {
	case "text":
		_, err = io.WriteString(c.stdout, summary.PlanText(plan))
	case "markdown":
		_, err = io.WriteString(c.stdout, summary.Markdown(plan))
	case "html":
		var html []byte
		if html, err = summary.RenderHTML(plan); err != nil {
			return err
		}
		_, err = c.stdout.Write(html)
	default:
		return errors.Wrap(errUsage, "unknown format", slog.String("format", *format))
	}
	return err
}

func (c cli) log(ctx context.Context, args []string) error {
	fs := c.flagSet("log")
	prescriptionID := fs.Int("prescription", 0, "prescription id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := c.service.GetPrescription(ctx, *prescriptionID)
	if err != nil {
		return err
	}
	if _, err = fmt.Fprintf(c.stdout, "%s: %d × %s @ %s\n",
		p.Exercise.Name, p.TargetSets, p.TargetReps, summary.FormatLoad(p.TargetLoadKg)); err != nil {
		return err
	}

	form := workout.NewLogForm(p.ID)
	scanner := bufio.NewScanner(c.stdin)
	for form.State() != workout.StateConfirmed {
		if _, err = fmt.Fprintln(c.stdout, form.Prompt()); err != nil {
			return err
		}
		if !scanner.Scan() {
			if err = scanner.Err(); err != nil {
				return errors.Wrap(err, "read input")
			}
			return errors.New("input ended before the result was complete",
				slog.String("state", form.State().String()))
		}
		next, advanceErr := form.Advance(scanner.Text())
		if advanceErr != nil {
			if _, err = fmt.Fprintf(c.stdout, "%v\n", advanceErr); err != nil {
				return err
			}
			continue
		}
		form = next
	}

	result, _ := form.Result()
	outcome, err := c.service.RecordSessionResult(ctx, p.ID, result)
	if err != nil {
		return err
	}
	verdict := "Target missed"
	if outcome.Success {
		verdict = "Target met"
	}
	_, err = fmt.Fprintf(c.stdout, "%s. Next load: %s\n", verdict, summary.FormatLoad(outcome.SuggestedNextLoadKg))
	return err
}

func (c cli) complete(ctx context.Context, args []string) error {
	fs := c.flagSet("complete")
	planID := fs.Int("plan", 0, "plan id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.service.CompletePlan(ctx, *planID); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.stdout, "Completed plan %d.\n", *planID)
	return err
}

func (c cli) progress(ctx context.Context, args []string) error {
	fs := c.flagSet("progress")
	planID := fs.Int("plan", 0, "plan id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := c.service.WeekProgress(ctx, *planID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.stdout, summary.ProgressText(p))
	return err
}
