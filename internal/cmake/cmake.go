// Package cmake drives the configure and build phases of a CMake project as
// strictly sequential subprocesses. Definitions are assembled here; process
// handling is delegated to the runner.
package cmake

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joeyballentine/pasteboard/internal/logging"
	"github.com/joeyballentine/pasteboard/internal/pyconfig"
	"github.com/joeyballentine/pasteboard/internal/runner"
)

var log = logging.L("cmake")

const (
	// DefaultJobs is the build parallelism used when nothing else decides.
	DefaultJobs = 4

	// ConfigureTimeout bounds the configure phase; generation is quick
	// compared to compilation.
	ConfigureTimeout = 10 * time.Minute

	// BuildTimeout bounds the compile phase.
	BuildTimeout = time.Hour

	// parallelEnv, when set, hands parallelism control to cmake itself and
	// suppresses the explicit -j flag.
	parallelEnv = "CMAKE_BUILD_PARALLEL_LEVEL"
)

// Options describes one extension build.
type Options struct {
	SourceDir           string
	BuildDir            string
	OutputDir           string // where built libraries land
	BuildType           string // Debug or Release
	Generator           string
	Defines             map[string]string
	OSXArchitectures    []string
	OSXDeploymentTarget string
	TargetOS            string // defaults to runtime.GOOS
	Jobs                int
}

func (o *Options) targetOS() string {
	if o.TargetOS != "" {
		return o.TargetOS
	}
	return runtime.GOOS
}

// Version is a parsed cmake version.
type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AtLeast reports whether the version is at least major.minor.
func (v Version) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// SupportsParallelFlag reports whether `cmake --build -j` is available
// (introduced in CMake 3.12).
func (v Version) SupportsParallelFlag() bool {
	return v.AtLeast(3, 12)
}

var versionRegex = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseVersion extracts the version from `cmake --version` output.
func ParseVersion(out string) (Version, error) {
	m := versionRegex.FindStringSubmatch(out)
	if m == nil {
		return Version{}, fmt.Errorf("no version in cmake output %q", firstLine(out))
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch := 0
	if m[3] != "" {
		patch, _ = strconv.Atoi(m[3])
	}
	return Version{Major: major, Minor: minor, Patch: patch}, nil
}

// DetectVersion probes the cmake executable for its version.
func DetectVersion(ctx context.Context, r *runner.Runner, exe string) (Version, error) {
	out, err := r.Output(ctx, exe, "--version")
	if err != nil {
		return Version{}, err
	}
	return ParseVersion(out)
}

// ConfigureArgs assembles the -D definitions for the configure phase. The
// output directory always gets a trailing separator: cmake derives auxiliary
// native library locations from it. An empty libPath omits PYTHON_LIBRARY
// entirely so the link step reports the real failure.
func ConfigureArgs(opts Options, py *pyconfig.Interpreter, libPath string) []string {
	outputDir := opts.OutputDir
	if sep := string(os.PathSeparator); !strings.HasSuffix(outputDir, sep) {
		outputDir += sep
	}

	buildType := opts.BuildType
	if buildType == "" {
		buildType = "Release"
	}

	args := []string{
		"-DCMAKE_LIBRARY_OUTPUT_DIRECTORY=" + outputDir,
		"-DCMAKE_LIBRARY_OUTPUT_DIRECTORY_RELEASE=" + outputDir,
		"-DPYTHON_EXECUTABLE=" + py.Executable,
		"-DPYTHON_INCLUDE_DIR=" + py.IncludeDir,
	}
	if libPath != "" {
		args = append(args, "-DPYTHON_LIBRARY="+libPath)
	}
	args = append(args, "-DCMAKE_BUILD_TYPE="+buildType)

	if opts.targetOS() == "darwin" && len(opts.OSXArchitectures) > 0 {
		args = append(args,
			"-DCMAKE_CROSSCOMPILING=ON",
			"-DCMAKE_OSX_ARCHITECTURES="+strings.Join(opts.OSXArchitectures, ";"),
			"-DCMAKE_OSX_DEPLOYMENT_TARGET="+opts.OSXDeploymentTarget,
		)
	}

	if opts.Generator != "" {
		args = append(args, "-G", opts.Generator)
	}

	keys := make([]string, 0, len(opts.Defines))
	for k := range opts.Defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-D"+k+"="+opts.Defines[k])
	}

	return args
}

// BuildArgs assembles the arguments for the build phase. The job count is
// passed through opaquely; when CMAKE_BUILD_PARALLEL_LEVEL is set in the
// environment, or the cmake is too old for -j, no flag is emitted.
func BuildArgs(opts Options, v Version) []string {
	args := []string{"--build", "."}
	if os.Getenv(parallelEnv) != "" || !v.SupportsParallelFlag() {
		return args
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = DefaultJobs
	}
	return append(args, fmt.Sprintf("-j%d", jobs))
}

// Driver binds a cmake executable to the runner and executes the two phases.
type Driver struct {
	runner  *runner.Runner
	exe     string
	version Version

	// Optional streaming sinks for tool output, typically a tee of the
	// console and the build log.
	Stdout io.Writer
	Stderr io.Writer
}

// NewDriver resolves the cmake executable and probes its version.
func NewDriver(ctx context.Context, r *runner.Runner, exe string) (*Driver, error) {
	if exe == "" {
		exe = "cmake"
	}
	path, err := r.Find(exe)
	if err != nil {
		return nil, fmt.Errorf("cmake must be installed to build native extensions: %w", err)
	}
	version, err := DetectVersion(ctx, r, path)
	if err != nil {
		return nil, fmt.Errorf("probe cmake version: %w", err)
	}
	log.Debug("cmake detected", "tool", path, "version", version.String())
	return &Driver{runner: r, exe: path, version: version}, nil
}

// Version returns the detected cmake version.
func (d *Driver) Version() Version {
	return d.version
}

// Configure generates the build system in opts.BuildDir, creating it first
// when missing. It must succeed before Build may run.
func (d *Driver) Configure(ctx context.Context, opts Options, py *pyconfig.Interpreter, libPath string) error {
	if err := os.MkdirAll(opts.BuildDir, 0755); err != nil {
		return fmt.Errorf("create build directory: %w", err)
	}

	sourceDir, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		return fmt.Errorf("resolve source directory: %w", err)
	}

	args := append([]string{sourceDir}, ConfigureArgs(opts, py, libPath)...)
	log.Info("configuring", "sourceDir", sourceDir, "buildDir", opts.BuildDir, "buildType", opts.BuildType)

	res, err := d.runner.Run(ctx, runner.Spec{
		Exe:     d.exe,
		Args:    args,
		Dir:     opts.BuildDir,
		Timeout: ConfigureTimeout,
		Stdout:  d.Stdout,
		Stderr:  d.Stderr,
	})
	if err != nil {
		return fmt.Errorf("cmake configure: %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("cmake configure failed with exit code %d: %s", res.ExitCode, lastLine(res.Stderr))
	}

	log.Info("configure finished", "durationMs", res.Duration.Milliseconds())
	return nil
}

// Build compiles the previously configured tree.
func (d *Driver) Build(ctx context.Context, opts Options) error {
	args := BuildArgs(opts, d.version)
	log.Info("building", "buildDir", opts.BuildDir, "args", strings.Join(args, " "))

	res, err := d.runner.Run(ctx, runner.Spec{
		Exe:     d.exe,
		Args:    args,
		Dir:     opts.BuildDir,
		Timeout: BuildTimeout,
		Stdout:  d.Stdout,
		Stderr:  d.Stderr,
	})
	if err != nil {
		return fmt.Errorf("cmake build: %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("cmake build failed with exit code %d: %s", res.ExitCode, lastLine(res.Stderr))
	}

	log.Info("build finished", "durationMs", res.Duration.Milliseconds())
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no output"
}
