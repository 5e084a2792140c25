// Package doctor checks that the host has everything a native extension
// build needs: a working Python interpreter, cmake, a generator backend,
// a C compiler. Checks degrade to warnings where a build could still
// succeed and to missing where it cannot.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/joeyballentine/pasteboard/internal/cmake"
	"github.com/joeyballentine/pasteboard/internal/logging"
	"github.com/joeyballentine/pasteboard/internal/pyconfig"
	"github.com/joeyballentine/pasteboard/internal/runner"
	"github.com/joeyballentine/pasteboard/pkg/pylocate"
)

var log = logging.L("doctor")

// Status grades a single check result.
type Status string

const (
	OK      Status = "ok"
	Warning Status = "warning"
	Missing Status = "missing"
)

// Check is the outcome of one toolchain probe.
type Check struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Report collects check outcomes in the order they ran.
type Report struct {
	Checks []Check `json:"checks"`
}

// Add appends a check result and logs anything that is not healthy.
func (r *Report) Add(name string, status Status, detail string) {
	r.Checks = append(r.Checks, Check{Name: name, Status: status, Detail: detail})
	if status != OK {
		log.Warn("toolchain check failed", "check", name, "status", string(status), "detail", detail)
	}
}

// Get returns the check with the given name.
func (r *Report) Get(name string) (Check, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

// Overall returns the worst status across all checks. An empty report
// is OK.
func (r *Report) Overall() Status {
	worst := OK
	for _, c := range r.Checks {
		if statusRank(c.Status) > statusRank(worst) {
			worst = c.Status
		}
	}
	return worst
}

func statusRank(s Status) int {
	switch s {
	case OK:
		return 0
	case Warning:
		return 1
	case Missing:
		return 2
	default:
		return 2
	}
}

// Doctor probes the build toolchain. The zero value is not usable,
// construct it with a runner.
type Doctor struct {
	Runner *runner.Runner

	// Python forces a specific interpreter instead of searching PATH.
	Python string
	// Libpython skips the runtime library search and checks the given
	// path instead.
	Libpython string
	// MinPython gates the interpreter version, e.g. "3.5". Empty skips
	// the gate.
	MinPython string
	// OS selects the platform specific probes. Empty means the host.
	OS string
}

func (d *Doctor) goos() string {
	if d.OS != "" {
		return d.OS
	}
	return runtime.GOOS
}

// Run executes all checks and returns the report. Check order is fixed
// so repeated runs line up.
func (d *Doctor) Run(ctx context.Context) *Report {
	rep := &Report{}
	py := d.checkPython(ctx, rep)
	d.checkLibpython(rep, py)
	d.checkCMake(ctx, rep)
	d.checkGenerator(ctx, rep)
	d.checkCompiler(rep)
	d.checkPkgConfig(rep)
	return rep
}

// checkPython verifies an inspectable interpreter and returns it for the
// libpython check, or nil when none is usable.
func (d *Doctor) checkPython(ctx context.Context, rep *Report) *pyconfig.Interpreter {
	exe, err := pyconfig.Find(d.Runner, d.Python)
	if err != nil {
		rep.Add("python", Missing, err.Error())
		return nil
	}

	py, err := pyconfig.Inspect(ctx, d.Runner, exe)
	if err != nil {
		rep.Add("python", Missing, fmt.Sprintf("%s found but not inspectable: %v", exe, err))
		return nil
	}

	detail := fmt.Sprintf("Python %d.%d.%d at %s", py.VersionInfo[0], py.VersionInfo[1], py.VersionInfo[2], py.Executable)
	if d.MinPython != "" {
		major, minor, perr := pyconfig.ParseVersion(d.MinPython)
		if perr == nil && !py.VersionAtLeast(major, minor) {
			rep.Add("python", Warning, detail+fmt.Sprintf(", older than required %s", d.MinPython))
			return py
		}
	}
	rep.Add("python", OK, detail)
	return py
}

func (d *Doctor) checkLibpython(rep *Report, py *pyconfig.Interpreter) {
	if d.Libpython != "" {
		st, err := os.Stat(d.Libpython)
		if err != nil || !st.Mode().IsRegular() {
			rep.Add("libpython", Missing, fmt.Sprintf("configured override %s is not a file", d.Libpython))
			return
		}
		rep.Add("libpython", OK, d.Libpython+" (configured override)")
		return
	}
	if py == nil {
		rep.Add("libpython", Warning, "skipped, needs a working python interpreter")
		return
	}

	path, err := py.LocateLibrary()
	switch {
	case err == nil:
		rep.Add("libpython", OK, path)
	case errors.Is(err, pylocate.ErrLibraryNotFound):
		rep.Add("libpython", Warning, "no runtime library found, cmake will fall back to its own Python discovery")
	default:
		rep.Add("libpython", Warning, err.Error())
	}
}

func (d *Doctor) checkCMake(ctx context.Context, rep *Report) {
	exe, err := d.Runner.Find("cmake")
	if err != nil {
		rep.Add("cmake", Missing, "cmake must be installed to build native extensions")
		return
	}

	v, err := cmake.DetectVersion(ctx, d.Runner, exe)
	if err != nil {
		rep.Add("cmake", Warning, fmt.Sprintf("%s found but version probe failed: %v", exe, err))
		return
	}

	detail := fmt.Sprintf("cmake %s at %s", v, exe)
	if !v.SupportsParallelFlag() {
		rep.Add("cmake", Warning, detail+", older than 3.12 so builds run single process")
		return
	}
	rep.Add("cmake", OK, detail)
}

// checkGenerator looks for a build backend cmake can drive. Ninja is
// preferred everywhere, with make on unix and msbuild on windows as
// fallbacks.
func (d *Doctor) checkGenerator(ctx context.Context, rep *Report) {
	if exe, err := d.Runner.Find("ninja"); err == nil {
		detail := "ninja at " + exe
		if out, verr := d.Runner.Output(ctx, exe, "--version"); verr == nil {
			detail = "ninja " + out + " at " + exe
		}
		rep.Add("generator", OK, detail)
		return
	}

	fallback := "make"
	hint := "install ninja or make"
	if d.goos() == "windows" {
		fallback = "msbuild"
		hint = "install ninja or the Visual Studio Build Tools"
	}
	if exe, err := d.Runner.Find(fallback); err == nil {
		rep.Add("generator", OK, fallback+" at "+exe)
		return
	}
	rep.Add("generator", Missing, "no build backend found, "+hint)
}

func (d *Doctor) checkCompiler(rep *Report) {
	names := []string{"cc", "gcc", "clang"}
	hint := "install gcc or clang"
	if d.goos() == "windows" {
		names = []string{"cl", "clang-cl", "clang", "gcc"}
		hint = "run from a Visual Studio developer prompt or install clang"
	}

	for _, name := range names {
		if exe, err := d.Runner.Find(name); err == nil {
			rep.Add("compiler", OK, name+" at "+exe)
			return
		}
	}
	rep.Add("compiler", Missing, "no C compiler found, "+hint)
}

// checkPkgConfig is informational: pkg-config only feeds the opt-in
// fallback library search, so its absence never blocks a build.
func (d *Doctor) checkPkgConfig(rep *Report) {
	if d.goos() == "windows" {
		return
	}
	if exe, err := d.Runner.Find("pkg-config"); err == nil {
		rep.Add("pkg-config", OK, exe)
		return
	}
	rep.Add("pkg-config", Warning, "not found, fallback library search will use conventional directories only")
}
