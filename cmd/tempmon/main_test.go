package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caklutfi/tempmon/internal/config"
)

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer

	if err := run(context.Background(), &out, &out, []string{"version"}); err != nil {
		t.Fatalf("run(version): %v", err)
	}
	if !strings.Contains(out.String(), "tempmon") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestRun_VersionJSON(t *testing.T) {
	var out bytes.Buffer

	if err := run(context.Background(), &out, &out, []string{"-o", "json", "version"}); err != nil {
		t.Fatalf("run(-o json version): %v", err)
	}

	var info map[string]string
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("version JSON: %v (output %q)", err, out.String())
	}
	if info["version"] == "" {
		t.Error("version JSON missing version field")
	}
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer

	if err := run(context.Background(), &out, &out, []string{"-help"}); err != nil {
		t.Fatalf("run(-help): %v", err)
	}
	if !strings.Contains(out.String(), "usage: tempmon") {
		t.Errorf("help output = %q", out.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var out bytes.Buffer

	if err := run(context.Background(), &out, &out, []string{"explode"}); err == nil {
		t.Error("unknown command should error")
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	var out bytes.Buffer

	if err := run(context.Background(), &out, &out, []string{"-frobnicate"}); err == nil {
		t.Error("unknown flag should error")
	}
}

func TestRun_BadOutputFormat(t *testing.T) {
	var out bytes.Buffer

	if err := run(context.Background(), &out, &out, []string{"-o", "yaml", "version"}); err == nil {
		t.Error("unknown output format should error")
	}
}

func TestRunInit_WritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tempmon.yaml")
	var out bytes.Buffer

	if err := run(context.Background(), &out, &out, []string{"-config", path, "init"}); err != nil {
		t.Fatalf("run(init): %v", err)
	}

	if got := config.Load(path, slog.New(slog.NewTextHandler(io.Discard, nil))); got != config.Default() {
		t.Errorf("initialized config = %+v, want defaults", got)
	}
}

func TestRunInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tempmon.yaml")
	if err := os.WriteFile(path, []byte("topic: keep\n"), 0600); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer

	if err := run(context.Background(), &out, &out, []string{"-config", path, "init"}); err == nil {
		t.Error("init over existing config should error")
	}
}

func TestNewLogger_BadLevelFallsBack(t *testing.T) {
	var out bytes.Buffer

	logger := newLogger(&out, "shouty")
	logger.Info("hello")
	if !strings.Contains(out.String(), "hello") {
		t.Errorf("logger output = %q", out.String())
	}
}
