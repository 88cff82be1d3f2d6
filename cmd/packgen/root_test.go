// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/thecrown/packgen/internal/config"
	"github.com/thecrown/packgen/internal/issue"
	"github.com/thecrown/packgen/internal/pipeline"
	"github.com/thecrown/packgen/pkg/assemble"
	"github.com/thecrown/packgen/pkg/packager"
	"github.com/thecrown/packgen/pkg/packerr"
	"github.com/thecrown/packgen/pkg/types"
)

type stubProvider struct {
	cfg   *config.Config
	err   error
	calls int
}

func (s *stubProvider) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	s.calls++
	return s.cfg, s.err
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.
	origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
	t.Cleanup(func() {
		Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
	})

	Version, Commit, BuildDate = "v1.2.3", "abc1234", "2026-06-15T10:00:00Z"
	if got, want := getVersionString(), "v1.2.3 (commit: abc1234, built: 2026-06-15T10:00:00Z)"; got != want {
		t.Errorf("getVersionString() = %q, want %q", got, want)
	}

	Version = "dev"
	if got, want := getVersionString(), "dev (built from source)"; got != want {
		t.Errorf("getVersionString() = %q, want %q", got, want)
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	if got := (&ExitError{Code: 3, Err: cause}).Error(); got != "boom" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&ExitError{Code: 3}).Error(); got != "exit status 3" {
		t.Errorf("Error() without cause = %q", got)
	}
	var exitErr *ExitError
	if err := usageError(cause); !errors.As(err, &exitErr) || exitErr.Code != types.ExitUsage || !errors.Is(err, cause) {
		t.Errorf("usageError() = %#v", err)
	}
}

func TestGenerateFlagsOptions(t *testing.T) {
	t.Parallel()

	args := []string{"bb", "rp", "models", "map.cue"}
	cfg := config.DefaultConfig()
	cfg.Workers = 4
	cfg.Overwrite = true

	tests := []struct {
		name    string
		flags   generateFlags
		changed []string
		check   func(t *testing.T, o pipeline.Options)
		wantErr []error
		wantMsg string
	}{
		{
			name: "config defaults",
			check: func(t *testing.T, o pipeline.Options) {
				t.Helper()
				if o.Namespace != config.DefaultNamespace || o.PinNamespace || o.Workers != 4 || !o.Overwrite ||
					o.Format != assemble.FormatLegacy || o.Unreferenced != assemble.UnreferencedSkip ||
					o.PackFormat != config.DefaultPackFormat || o.MappingsPath != "map.cue" {
					t.Errorf("options = %+v", o)
				}
			},
		},
		{
			name:    "flags override",
			flags:   generateFlags{namespace: "crown", format: "items", unreferenced: "include", workers: 1, overwrite: false},
			changed: []string{"namespace", "format", "unreferenced", "workers", "overwrite"},
			check: func(t *testing.T, o pipeline.Options) {
				t.Helper()
				if o.Namespace != "crown" || !o.PinNamespace || o.Format != assemble.FormatItems ||
					o.Unreferenced != assemble.UnreferencedInclude || o.Workers != 1 || o.Overwrite {
					t.Errorf("options = %+v", o)
				}
			},
		},
		{
			name:    "unchanged flags are ignored",
			flags:   generateFlags{format: "zip", workers: -1},
			changed: nil,
			check: func(t *testing.T, o pipeline.Options) {
				t.Helper()
				if o.Format != assemble.FormatLegacy || o.Workers != 4 {
					t.Errorf("options = %+v", o)
				}
			},
		},
		{
			name:    "every bad value is reported",
			flags:   generateFlags{namespace: "Bad", format: "zip", unreferenced: "drop", workers: -1},
			changed: []string{"namespace", "format", "unreferenced", "workers"},
			wantErr: []error{
				types.ErrInvalidNamespace, config.ErrInvalidOverrideFormat,
				config.ErrInvalidUnreferencedPolicy, config.ErrInvalidWorkers,
			},
		},
		{
			name:    "watch tuning without watch",
			flags:   generateFlags{ignore: []string{"**/*.log"}},
			changed: []string{"ignore"},
			wantMsg: "require --watch",
		},
		{
			name:    "watch tuning with watch",
			flags:   generateFlags{watch: true, debounce: time.Second},
			changed: []string{"watch", "debounce"},
			check:   func(t *testing.T, o pipeline.Options) { t.Helper() },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			changed := func(name string) bool {
				for _, c := range tt.changed {
					if c == name {
						return true
					}
				}
				return false
			}
			opts, err := tt.flags.options(changed, cfg, args)
			if tt.wantMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
					t.Errorf("options() error = %v, want %q", err, tt.wantMsg)
				}
				return
			}
			if len(tt.wantErr) > 0 {
				for _, want := range tt.wantErr {
					if !errors.Is(err, want) {
						t.Errorf("options() error = %v, want %v", err, want)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("options() error = %v", err)
			}
			tt.check(t, opts)
		})
	}
}

func TestGenerateFlagsRejectsBlankArguments(t *testing.T) {
	t.Parallel()

	f := &generateFlags{}
	_, err := f.options(func(string) bool { return false }, config.DefaultConfig(), []string{"bb", " ", "models", "m.cue"})
	if !errors.Is(err, types.ErrInvalidFilesystemPath) || !strings.Contains(err.Error(), "argument 2") {
		t.Errorf("options() error = %v", err)
	}
}

func TestAppFail(t *testing.T) {
	t.Parallel()

	app := NewApp(Dependencies{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	stageErr := &pipeline.StageError{
		Stage:    pipeline.StateAssembling,
		Resource: "rp.zip",
		Err:      &packerr.UnresolvedMappingError{Models: []string{"ghost"}},
	}

	err := app.fail(stageErr, "generate resource pack", "rp")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != types.ExitFailure {
		t.Fatalf("fail() = %#v", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("fail() does not carry an ActionableError: %v", err)
	}
	if ae.Operation != "assemble resource pack" || ae.Resource != "rp.zip" || ae.Issue != issue.UnresolvedMappingId {
		t.Errorf("ActionableError = %+v", ae)
	}

	canceled := app.fail(fmt.Errorf("scan canceled: %w", context.Canceled), "generate resource pack", "rp")
	if !errors.As(canceled, &exitErr) || exitErr.Code != types.ExitInterrupted {
		t.Errorf("canceled fail() = %#v", canceled)
	}
}

func TestAppLoadConfigOnce(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{cfg: config.DefaultConfig()}
	app := NewApp(Dependencies{Config: stub})
	for range 2 {
		if _, err := app.loadConfig(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if stub.calls != 1 {
		t.Errorf("provider called %d times, want 1", stub.calls)
	}

	failing := NewApp(Dependencies{Config: &stubProvider{err: errors.New("broken")}})
	_, err := failing.loadConfig(context.Background())
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Operation != "load configuration" {
		t.Errorf("loadConfig() error = %v", err)
	}
}

func TestRenderError(t *testing.T) {
	t.Parallel()

	app := NewApp(Dependencies{})
	var buf bytes.Buffer
	app.renderError(&buf, &ExitError{Code: types.ExitFailure})
	if buf.Len() != 0 {
		t.Errorf("already reported error was printed again: %q", buf.String())
	}

	err := app.fail(&packerr.MappingNotFoundError{Path: "m.cue"}, "load mappings", "m.cue")
	app.renderError(&buf, err)
	out := buf.String()
	for _, want := range []string{"Error:", "failed to load mappings: m.cue", "fourth positional argument"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Error chain:") {
		t.Errorf("error chain printed without --verbose:\n%s", out)
	}
}

func TestNewRootCommandRegistersSubcommands(t *testing.T) {
	t.Parallel()

	root := NewRootCommand(NewApp(Dependencies{}))
	for _, name := range []string{"generate", "validate", "inspect", "config"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	gen, _, _ := root.Find([]string{"generate"})
	for _, flag := range []string{"output", "overwrite", "unreferenced", "namespace", "format", "workers", "export", "emit-mappings", "info", "watch", "debounce", "ignore"} {
		if gen.Flags().Lookup(flag) == nil {
			t.Errorf("generate is missing --%s", flag)
		}
	}
}

func TestPrintGenerateSummary(t *testing.T) {
	t.Parallel()

	archive := &packager.Result{Path: "resourcepack.zip", Entries: 9, Size: 512, SHA1: "abc"}
	tests := []struct {
		name    string
		report  *pipeline.Report
		verbose bool
		want    []string
		absent  []string
	}{
		{
			name:   "written",
			report: &pipeline.Report{Archive: archive},
			want:   []string{"Resource pack written", "resourcepack.zip"},
			absent: []string{"unchanged", "exported"},
		},
		{
			name:   "reused",
			report: &pipeline.Report{Archive: archive, Reused: true},
			want:   []string{"Resource pack unchanged"},
			absent: []string{"Resource pack written"},
		},
		{
			name:   "exported",
			report: &pipeline.Report{Archive: archive, Export: &packager.ExportResult{Written: 2, Unchanged: 7}},
			want:   []string{"2 written, 7 unchanged"},
		},
		{
			name:    "verbose fingerprint",
			report:  &pipeline.Report{Archive: archive, Fingerprint: 0xfeed},
			verbose: true,
			want:    []string{"fingerprint 000000000000feed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			printGenerateSummary(&buf, tt.report, assemble.FormatLegacy, tt.verbose)
			for _, s := range tt.want {
				if !strings.Contains(buf.String(), s) {
					t.Errorf("summary missing %q:\n%s", s, buf.String())
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(buf.String(), s) {
					t.Errorf("summary contains %q:\n%s", s, buf.String())
				}
			}
		})
	}
}
