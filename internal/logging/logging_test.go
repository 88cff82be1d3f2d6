// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thecrown/packgen/internal/testutil"
)

func TestNewLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"", false, true, true},
		{"debug", true, true, true},
		{"info", false, true, true},
		{"warn", false, false, true},
		{"error", false, false, false},
	}
	for _, tt := range tests {
		t.Run("level="+tt.level, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger, closer, err := New(Options{Level: tt.level, Console: &buf})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer testutil.DeferClose(t, closer)()

			logger.Debug("d-line")
			logger.Info("i-line")
			logger.Warn("w-line")
			out := buf.String()
			for line, want := range map[string]bool{"d-line": tt.wantDebug, "i-line": tt.wantInfo, "w-line": tt.wantWarn} {
				if got := strings.Contains(out, line); got != want {
					t.Errorf("%s written = %v, want %v\n%s", line, got, want, out)
				}
			}
		})
	}
}

func TestNewPrefixAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, _, err := New(Options{Console: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("archive written", "entries", 12)

	out := buf.String()
	for _, want := range []string{Prefix, "archive written", "entries=12"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	if _, _, err := New(Options{Level: "trace"}); err == nil {
		t.Error("New() accepted an unknown level")
	}
}

func TestNewWritesFileCopy(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "packgen.log")
	var console bytes.Buffer
	logger, closer, err := New(Options{Console: &console, File: path, MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Warn("model skipped", "model", "cow_model")
	testutil.MustClose(t, closer)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	for _, out := range []string{string(data), console.String()} {
		if !strings.Contains(out, "model=cow_model") {
			t.Errorf("missing field in %q", out)
		}
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	// Must not panic.
	Discard().Error("dropped")
}
