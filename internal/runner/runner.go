// Package runner executes external build tools (cmake, python, pkg-config)
// with bounded output capture, timeouts and process-group cleanup.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/joeyballentine/pasteboard/internal/logging"
)

var log = logging.L("runner")

const (
	// DefaultTimeout bounds a single tool invocation. Native builds are slow;
	// anything past this is assumed wedged.
	DefaultTimeout = 30 * time.Minute

	// MaxTimeout is the hard ceiling a caller-supplied timeout is clamped to.
	MaxTimeout = 2 * time.Hour

	// ProbeTimeout bounds short informational invocations such as version
	// queries and interpreter introspection.
	ProbeTimeout = 30 * time.Second

	// MaxOutputSize is the maximum size of stdout/stderr to capture.
	MaxOutputSize = 1024 * 1024 // 1MB
)

// Spec describes a single tool invocation.
type Spec struct {
	Exe     string
	Args    []string
	Dir     string
	Env     []string      // KEY=VALUE pairs appended to the inherited environment
	Timeout time.Duration // 0 means DefaultTimeout
	Stdout  io.Writer     // optional streaming sink, in addition to capture
	Stderr  io.Writer
}

// Result is the outcome of a completed invocation. A non-zero exit code is
// reported here, not as an error; errors mean the tool could not run at all
// or was cut off.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the tool exited cleanly.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes tool invocations. The path lookup is injectable so tests
// can fake tool presence.
type Runner struct {
	lookPath func(file string) (string, error)
}

// New creates a Runner resolving executables through PATH.
func New() *Runner {
	return &Runner{lookPath: exec.LookPath}
}

// NewWithLookPath creates a Runner with a custom executable resolver.
func NewWithLookPath(lookPath func(string) (string, error)) *Runner {
	return &Runner{lookPath: lookPath}
}

// Find resolves a tool name to an executable path. Absolute and relative
// paths containing a separator are kept as given.
func (r *Runner) Find(name string) (string, error) {
	if strings.ContainsRune(name, os.PathSeparator) || strings.ContainsRune(name, '/') {
		return name, nil
	}
	path, err := r.lookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", name, err)
	}
	return path, nil
}

// Run executes one tool invocation and returns the captured result.
func (r *Runner) Run(ctx context.Context, spec Spec) (*Result, error) {
	exe, err := r.Find(spec.Exe)
	if err != nil {
		return nil, err
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, exe, spec.Args...)
	cmd.Dir = spec.Dir

	var stdout, stderr bytes.Buffer
	var outSink io.Writer = &limitedWriter{buf: &stdout, limit: MaxOutputSize}
	var errSink io.Writer = &limitedWriter{buf: &stderr, limit: MaxOutputSize}
	if spec.Stdout != nil {
		outSink = io.MultiWriter(outSink, spec.Stdout)
	}
	if spec.Stderr != nil {
		errSink = io.MultiWriter(errSink, spec.Stderr)
	}
	cmd.Stdout = outSink
	cmd.Stderr = errSink

	cmd.Env = append(os.Environ(), spec.Env...)

	// Run in its own process group so a timeout kills children too.
	setProcessGroup(cmd)

	log.Debug("running tool", "tool", spec.Exe, "args", strings.Join(spec.Args, " "), "dir", spec.Dir)
	start := time.Now()
	err = cmd.Run()
	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		switch {
		case runCtx.Err() == context.DeadlineExceeded:
			if killErr := killProcessGroup(cmd); killErr != nil {
				log.Warn("failed to kill process group", "tool", spec.Exe, "error", killErr)
			}
			log.Warn("tool timed out", "tool", spec.Exe, "timeout", timeout)
			return result, fmt.Errorf("%s timed out after %s", spec.Exe, timeout)
		case runCtx.Err() == context.Canceled:
			if killErr := killProcessGroup(cmd); killErr != nil {
				log.Warn("failed to kill process group", "tool", spec.Exe, "error", killErr)
			}
			return result, fmt.Errorf("%s interrupted: %w", spec.Exe, runCtx.Err())
		default:
			if exitErr, ok := err.(*exec.ExitError); ok {
				result.ExitCode = exitErr.ExitCode()
				log.Debug("tool exited", "tool", spec.Exe, "exitCode", result.ExitCode, "durationMs", result.Duration.Milliseconds())
				return result, nil
			}
			return result, fmt.Errorf("run %s: %w", spec.Exe, err)
		}
	}

	log.Debug("tool completed", "tool", spec.Exe, "durationMs", result.Duration.Milliseconds())
	return result, nil
}

// Output runs a short probe invocation and returns its trimmed stdout.
// Unlike Run, a non-zero exit is an error here, annotated with stderr.
func (r *Runner) Output(ctx context.Context, exe string, args ...string) (string, error) {
	res, err := r.Run(ctx, Spec{Exe: exe, Args: args, Timeout: ProbeTimeout})
	if err != nil {
		return "", err
	}
	if !res.Success() {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(res.Stdout)
		}
		return "", fmt.Errorf("%s %s exited with code %d: %s", exe, strings.Join(args, " "), res.ExitCode, msg)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// limitedWriter wraps a buffer with a size limit.
type limitedWriter struct {
	buf     *bytes.Buffer
	limit   int
	written int
}

func (w *limitedWriter) Write(p []byte) (n int, err error) {
	if w.written >= w.limit {
		// Discard additional data but don't error
		return len(p), nil
	}

	full := len(p)
	remaining := w.limit - w.written
	if len(p) > remaining {
		p = p[:remaining]
	}

	n, err = w.buf.Write(p)
	w.written += n
	return full, err // Return original length to avoid short write errors
}
