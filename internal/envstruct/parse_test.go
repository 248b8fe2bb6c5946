package envstruct_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/overload/internal/envstruct"
)

type plannerConfig struct {
	SqliteURL   string        `env:"SQLITE_URL" envDefault:"./overload.sqlite3"`
	Concurrency int           `env:"CONCURRENCY" envDefault:"4"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"5s"`
	DryRun      bool          `env:"DRY_RUN" envDefault:"false"`
	Baseline    float64       `env:"BASELINE" envDefault:"5000"`
	Untagged    string
}

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestPopulate(t *testing.T) {
	tests := []struct {
		name    string
		v       any
		env     map[string]string
		want    any
		wantErr error
	}{
		{
			name:    "nil",
			v:       nil,
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name:    "not pointer",
			v:       struct{}{},
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name: "missing without default",
			v: &struct {
				Token string `env:"TOKEN"`
			}{},
			wantErr: envstruct.ErrEnvNotSet,
		},
		{
			name: "defaults",
			v:    &plannerConfig{},
			want: &plannerConfig{
				SqliteURL:   "./overload.sqlite3",
				Concurrency: 4,
				Timeout:     5 * time.Second,
				DryRun:      false,
				Baseline:    5000,
			},
		},
		{
			name: "environment overrides defaults",
			v:    &plannerConfig{},
			env: map[string]string{
				"SQLITE_URL":  ":memory:",
				"CONCURRENCY": "8",
				"TIMEOUT":     "250ms",
				"DRY_RUN":     "true",
				"BASELINE":    "4200.5",
			},
			want: &plannerConfig{
				SqliteURL:   ":memory:",
				Concurrency: 8,
				Timeout:     250 * time.Millisecond,
				DryRun:      true,
				Baseline:    4200.5,
			},
		},
		{
			name:    "unparsable int",
			v:       &plannerConfig{},
			env:     map[string]string{"CONCURRENCY": "many"},
			wantErr: envstruct.ErrParse,
		},
		{
			name: "unsupported kind",
			v: &struct {
				Days []string `env:"DAYS" envDefault:"mon"`
			}{},
			wantErr: envstruct.ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := envstruct.Populate(tt.v, lookupFrom(tt.env))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Populate() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Populate() unexpected error = %v", err)
			}
			if diff := cmp.Diff(tt.want, tt.v); diff != "" {
				t.Errorf("Populate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
