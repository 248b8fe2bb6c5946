package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/myrjola/overload/internal/workout"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, prompt string) (string, error)
}

// OpenAICompleter completes prompts with an OpenAI chat model.
type OpenAICompleter struct {
	client openai.Client
	logger *slog.Logger
}

// NewOpenAICompleter creates a completer using apiKey.
func NewOpenAICompleter(apiKey string, logger *slog.Logger) *OpenAICompleter {
	return &OpenAICompleter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		logger: logger,
	}
}

var errEmptyCompletion = errors.New("empty completion")

// Complete sends a single chat completion request.
func (c *OpenAICompleter) Complete(ctx context.Context, systemPrompt string, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModelGPT4o,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	}
	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "received chat completion",
		slog.Int64("prompt_tokens", completion.Usage.PromptTokens),
		slog.Int64("completion_tokens", completion.Usage.CompletionTokens))
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", errEmptyCompletion
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

const coachSystemPrompt = "You are a concise strength coach. Reply with two or three encouraging sentences " +
	"about the coming training week. Do not change the plan or invent numbers."

// Coach writes a short motivational note to go with a plan.
type Coach struct {
	completer Completer
	logger    *slog.Logger
}

// NewCoach creates a coach. A nil completer always yields the built-in note.
func NewCoach(completer Completer, logger *slog.Logger) *Coach {
	return &Coach{completer: completer, logger: logger}
}

// Note returns a note for plan. previous is last week's progress and may be nil. When the completer
// fails the built-in note is returned and the failure logged.
func (c *Coach) Note(ctx context.Context, plan workout.WeeklyPlan, previous *workout.Progress) string {
	fallback := fallbackNote(plan)
	if c.completer == nil {
		return fallback
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Focus: %s. Intensity multiplier: %.2f. Target volume: %.0f kg.\n",
		plan.Focus, plan.IntensityMultiplier, plan.TargetVolume)
	if previous != nil {
		fmt.Fprintf(&prompt, "Last week: %s.\n", ProgressText(*previous))
	}
	prompt.WriteString(PlanText(plan))

	note, err := c.completer.Complete(ctx, coachSystemPrompt, prompt.String())
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "coach note unavailable, using fallback",
			slog.Int("plan_id", plan.ID), slog.Any("error", err))
		return fallback
	}
	return note
}

func fallbackNote(plan workout.WeeklyPlan) string {
	switch {
	case plan.IntensityMultiplier > 1:
		return "Last week went well, so this week is a little heavier. Keep the form tight."
	case plan.IntensityMultiplier < 1:
		return "This is a lighter week to recover. Move well and leave some reps in the tank."
	default:
		return "A steady week. Log every session so next week can adapt to you."
	}
}
