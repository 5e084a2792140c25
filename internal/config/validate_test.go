package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestValidateCleanDefaults(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config should validate, got %v", errs)
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"

	errs := cfg.Validate()
	found := false
	for _, err := range errs {
		if strings.Contains(err.Error(), "log_level") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected log_level error, got %v", errs)
	}
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"

	if errs := cfg.Validate(); len(errs) == 0 {
		t.Fatal("xml log format should be rejected")
	}
}

func TestValidateClampsJobCounts(t *testing.T) {
	cfg := Default()
	cfg.Jobs = 0
	cfg.TargetJobs = 100

	errs := cfg.Validate()
	if len(errs) != 2 {
		t.Fatalf("expected 2 clamp errors, got %v", errs)
	}
	if cfg.Jobs != 4 {
		t.Fatalf("Jobs = %d, want clamped to default 4", cfg.Jobs)
	}
	if cfg.TargetJobs != 32 {
		t.Fatalf("TargetJobs = %d, want clamped to 32", cfg.TargetJobs)
	}
}

func TestValidateRestoresEmptyDirectories(t *testing.T) {
	cfg := Default()
	cfg.BuildDir = ""
	cfg.DistDir = ""

	errs := cfg.Validate()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if cfg.BuildDir != "build" || cfg.DistDir != "dist" {
		t.Fatalf("dirs = %q %q, want defaults restored", cfg.BuildDir, cfg.DistDir)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "log_level: debug\njobs: 8\nbuild_dir: out\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Jobs != 8 {
		t.Fatalf("Jobs = %d, want 8", cfg.Jobs)
	}
	if cfg.BuildDir != "out" {
		t.Fatalf("BuildDir = %q, want out", cfg.BuildDir)
	}
	// Untouched keys keep their defaults.
	if cfg.DistDir != "dist" || cfg.CMake != "cmake" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	// Point the per-user search path somewhere empty too.
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("AppData", dir)
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(cwd) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Jobs != 4 || cfg.LogLevel != "info" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestSaveRoundTrips(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg := Default()
	cfg.LogLevel = "debug"
	cfg.Python = "/usr/bin/python3.12"
	cfg.Jobs = 12
	cfg.Bundle = true

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	written, err := Save(cfg, path)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if written != path {
		t.Fatalf("Save wrote %q, want %q", written, path)
	}

	viper.Reset()
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LogLevel != "debug" || got.Python != "/usr/bin/python3.12" || got.Jobs != 12 || !got.Bundle {
		t.Fatalf("round trip lost values: %+v", got)
	}
}

func TestLibpythonOverrideFromEnvironment(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("PASTEBOARD_LIBPYTHON", "/opt/custom/libpython3.12.so")

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("AppData", dir)
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(cwd) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Libpython != "/opt/custom/libpython3.12.so" {
		t.Fatalf("Libpython = %q, want env override", cfg.Libpython)
	}
}
