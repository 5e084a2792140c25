package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPreInitLoggerUsesConfiguredHandler(t *testing.T) {
	logger := L("cmake")

	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger.Info("configure finished", "buildDir", "build")

	out := buf.String()
	if strings.Contains(out, `msg="INFO configure`) {
		t.Fatalf("unexpected nested severity prefix in message: %s", out)
	}
	if !strings.Contains(out, `msg="configure finished"`) {
		t.Fatalf("expected plain message, got: %s", out)
	}
	if !strings.Contains(out, "component=cmake") {
		t.Fatalf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "buildDir=build") {
		t.Fatalf("expected buildDir field, got: %s", out)
	}
}

func TestPreInitLoggerRespectsConfiguredLevel(t *testing.T) {
	logger := L("locator")

	var buf bytes.Buffer
	Init("text", "warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info log should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn log should be emitted: %s", out)
	}
}

func TestInitJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init("json", "info", &buf)
	t.Cleanup(func() { Init("text", "info", nil) })

	L("dist").Info("bundled", "artifact", "pasteboard.tar.xz")

	out := buf.String()
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected JSON output, got: %s", out)
	}
	if !strings.Contains(out, `"component":"dist"`) {
		t.Fatalf("expected component field in JSON, got: %s", out)
	}
}

func TestWithExtensionTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	Init("text", "info", &buf)

	WithExtension(L("cmake"), "pasteboard").Info("building")

	if out := buf.String(); !strings.Contains(out, "extension=pasteboard") {
		t.Fatalf("expected extension field, got: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRotatingWriterRotatesAtSizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "build.log")

	rw, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()

	// Force the limit low enough to trigger a rotation without writing 1MB.
	rw.limit = 64

	if _, err := rw.Write(bytes.Repeat([]byte("a"), 48)); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := rw.Write(bytes.Repeat([]byte("b"), 48)); err != nil {
		t.Fatalf("second write: %v", err)
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected rotated backup %s.1: %v", path, err)
	}
	current, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read current log: %v", err)
	}
	if string(current) != strings.Repeat("b", 48) {
		t.Fatalf("current log should hold only the post-rotation write, got %d bytes", len(current))
	}
}

func TestRotatingWriterKeepsLimitedBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "build.log")

	rw, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()
	rw.limit = 8

	for i := 0; i < 4; i++ {
		if _, err := rw.Write([]byte("0123456789")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	for _, backup := range []string{path + ".1", path + ".2"} {
		if _, err := os.Stat(backup); err != nil {
			t.Fatalf("expected backup %s: %v", backup, err)
		}
	}
	if _, err := os.Stat(path + ".3"); err == nil {
		t.Fatal("backup past the keep count should have been dropped")
	}
}
