// Package pyconfig captures a Python interpreter's build configuration as an
// immutable snapshot. The interpreter is an external collaborator: it is
// consulted exactly once per invocation, and everything downstream (the
// library locator, the cmake driver) works from the captured snapshot.
package pyconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/joeyballentine/pasteboard/internal/logging"
	"github.com/joeyballentine/pasteboard/internal/runner"
	"github.com/joeyballentine/pasteboard/pkg/pylocate"
)

var log = logging.L("pyconfig")

// dumpScript runs inside the target interpreter and prints one JSON document.
// Isolated mode keeps user site-packages and PYTHON* env vars from skewing
// the reported configuration.
const dumpScript = `
import json, sys, sysconfig

print(json.dumps({
    "executable": sys.executable or "",
    "version": sysconfig.get_python_version(),
    "versionInfo": list(sys.version_info[:3]),
    "abiflags": getattr(sys, "abiflags", ""),
    "prefix": sys.prefix,
    "includeDir": sysconfig.get_path("include") or "",
    "configVars": sysconfig.get_config_vars(),
}, default=str))
`

// Interpreter is the captured snapshot of one Python installation.
type Interpreter struct {
	Executable  string
	Version     string // dotted short version, e.g. "3.10"
	VersionInfo [3]int
	ABIFlags    string
	Prefix      string
	IncludeDir  string
	Config      pylocate.BuildConfig
}

// Find resolves the interpreter executable to inspect. An explicit name or
// path wins; otherwise the conventional launcher names are tried in order.
func Find(r *runner.Runner, explicit string) (string, error) {
	if explicit != "" {
		return r.Find(explicit)
	}

	names := []string{"python3", "python"}
	if runtime.GOOS == "windows" {
		names = []string{"python", "python3", "py"}
	}
	for _, name := range names {
		if path, err := r.Find(name); err == nil {
			return path, nil
		}
	}
	return "", errors.New("no python interpreter found in PATH")
}

// Inspect runs the dump script under exe and decodes the result.
func Inspect(ctx context.Context, r *runner.Runner, exe string) (*Interpreter, error) {
	out, err := r.Output(ctx, exe, "-I", "-c", dumpScript)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", exe, err)
	}

	interp, err := FromJSON([]byte(out))
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", exe, err)
	}
	if interp.Executable == "" {
		interp.Executable = exe
	}

	log.Debug("interpreter inspected",
		"executable", interp.Executable,
		"version", interp.Version,
		"abiflags", interp.ABIFlags)
	return interp, nil
}

type dumpPayload struct {
	Executable  string         `json:"executable"`
	Version     string         `json:"version"`
	VersionInfo []int          `json:"versionInfo"`
	ABIFlags    string         `json:"abiflags"`
	Prefix      string         `json:"prefix"`
	IncludeDir  string         `json:"includeDir"`
	ConfigVars  map[string]any `json:"configVars"`
}

// FromJSON decodes a dump-script document into a snapshot.
func FromJSON(data []byte) (*Interpreter, error) {
	var payload dumpPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode interpreter dump: %w", err)
	}
	if payload.Version == "" {
		return nil, errors.New("interpreter dump has no version")
	}

	interp := &Interpreter{
		Executable: payload.Executable,
		Version:    payload.Version,
		ABIFlags:   payload.ABIFlags,
		Prefix:     payload.Prefix,
		IncludeDir: payload.IncludeDir,
		Config:     pylocate.NewBuildConfig(normalizeVars(payload.ConfigVars), payload.ABIFlags),
	}
	for i, n := range payload.VersionInfo {
		if i >= len(interp.VersionInfo) {
			break
		}
		interp.VersionInfo[i] = n
	}
	return interp, nil
}

// normalizeVars flattens JSON values to strings. Numeric flag variables
// become "0"/"1" so snapshot truthiness matches the interpreter's own int
// semantics; null values stay unset rather than becoming empty strings.
func normalizeVars(vars map[string]any) map[string]string {
	out := make(map[string]string, len(vars))
	for key, value := range vars {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			out[key] = v
		case bool:
			if v {
				out[key] = "1"
			} else {
				out[key] = "0"
			}
		case float64:
			if v == float64(int64(v)) {
				out[key] = strconv.FormatInt(int64(v), 10)
			} else {
				out[key] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		default:
			out[key] = fmt.Sprint(v)
		}
	}
	return out
}

// VersionAtLeast reports whether the interpreter is at least major.minor.
func (i *Interpreter) VersionAtLeast(major, minor int) bool {
	if i.VersionInfo[0] != major {
		return i.VersionInfo[0] > major
	}
	return i.VersionInfo[1] >= minor
}

// LocateLibrary resolves the runtime library from the captured snapshot.
func (i *Interpreter) LocateLibrary() (string, error) {
	return pylocate.Locate(i.Config, i.Version)
}

// ParseVersion splits a dotted "major.minor" requirement string.
func ParseVersion(s string) (major, minor int, err error) {
	if _, err := fmt.Sscanf(s, "%d.%d", &major, &minor); err != nil {
		return 0, 0, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return major, minor, nil
}
