package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScenario(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.toml")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"evmexec"}, args...))
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	path := writeScenario(t, transferScenario)
	out, err := runApp(t, "validate", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "1 system calls, 2 transactions") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunCommand(t *testing.T) {
	path := writeScenario(t, transferScenario)
	out, err := runApp(t, "--verbosity", "error", "run", "--trace", path)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if lines := strings.Count(out, "\n"); lines != 3 {
		t.Fatalf("expected 3 result lines, got %d: %s", lines, out)
	}
}

func TestRunCommandErrors(t *testing.T) {
	if _, err := runApp(t, "run"); err == nil {
		t.Fatal("expected error without scenario")
	}
	if _, err := runApp(t, "run", filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := runApp(t, "--verbosity", "loud", "validate", writeScenario(t, transferScenario)); err == nil {
		t.Fatal("expected error for bad verbosity")
	}
}
