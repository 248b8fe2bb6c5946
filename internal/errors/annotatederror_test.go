package errors_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/overload/internal/errors"
	"github.com/myrjola/overload/internal/testhelpers"
)

func TestAnnotatedError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "sentinel",
			err:  errors.NewSentinel("plan not found"),
			want: "plan not found",
		},
		{
			name: "wrapped sentinel",
			err:  errors.Wrap(errors.NewSentinel("plan not found"), "load plan", slog.Int64("plan_id", 7)),
			want: "load plan: plan not found",
		},
		{
			name: "nested wrap",
			err: errors.Wrap(
				errors.Wrap(errors.NewSentinel("constraint failed"), "insert plan"),
				"generate weekly plan",
			),
			want: "generate weekly plan: insert plan: constraint failed",
		},
		{
			name: "wrap nil",
			err:  errors.Wrap(nil, "open db"),
			want: "open db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAndAs(t *testing.T) {
	root := errors.NewSentinel("root")
	wrapped := errors.Wrap(fmt.Errorf("middle: %w", root), "outer")

	if !errors.Is(wrapped, root) {
		t.Error("Is() = false, want true")
	}
	if errors.Is(wrapped, errors.NewSentinel("root")) {
		t.Error("Is() = true for a different sentinel with the same text")
	}

	custom := &customError{msg: "custom"}
	var target *customError
	if !errors.As(errors.Wrap(custom, "context"), &target) {
		t.Fatal("As() = false, want true")
	}
	if target != custom {
		t.Errorf("As() target = %v, want %v", target, custom)
	}

	if unwrapped := errors.Unwrap(errors.Wrap(root, "context")); unwrapped != root { //nolint:errorlint // identity check
		t.Errorf("Unwrap() = %v, want %v", unwrapped, root)
	}
}

func TestSlogError(t *testing.T) {
	err := errors.Wrap(errors.NewSentinel("root cause"), "context",
		slog.String("key", "value"), slog.Duration("duration", time.Second))

	var buf bytes.Buffer
	l := testhelpers.NewLogger(&buf)
	l.Info("test", errors.SlogError(err))
	logLine := buf.String()

	for _, content := range []string{
		"error.message=\"context: root cause\"",
		"error.annotations.key=value",
		"error.annotations.duration=1s",
		"annotatederror_test.go:",
	} {
		if !strings.Contains(logLine, content) {
			t.Errorf("expected log line %s to contain %s", logLine, content)
		}
	}
	if strings.Contains(logLine, "annotatederror.go") {
		t.Errorf("expected the source to point at the caller, got %s", logLine)
	}

	// None of these may panic.
	errors.SlogError(nil)
	errors.SlogError(errors.Join(nil, nil, errors.NewSentinel("sentinel"), errors.New("test")))
	errors.SlogError(errors.Wrap(errors.Join(nil, nil), "wrap error"))
}

func TestDecoratePanic(t *testing.T) {
	if errors.DecoratePanic(nil) != nil {
		t.Error("DecoratePanic(nil) should return nil")
	}

	defer func() {
		err := errors.DecoratePanic(recover())
		if err == nil {
			t.Fatal("expected error")
		}
		if got, want := err.Error(), "panic: boom"; got != want {
			t.Errorf("err.Error(): got %q, want %q", got, want)
		}
		if got := errors.SlogError(err).String(); !strings.Contains(got, "annotatederror_test.go:") {
			t.Errorf("expected %q to reference the test file", got)
		}
	}()
	panic("boom")
}

type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}
