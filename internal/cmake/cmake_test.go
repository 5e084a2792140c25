package cmake

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/joeyballentine/pasteboard/internal/pyconfig"
	"github.com/joeyballentine/pasteboard/internal/runner"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want Version
	}{
		{"cmake version 3.22.1\n\nCMake suite maintained by Kitware.\n", Version{3, 22, 1}},
		{"cmake version 3.12.0-rc2", Version{3, 12, 0}},
		{"cmake version 4.0", Version{4, 0, 0}},
	}
	for _, tt := range tests {
		got, err := ParseVersion(tt.in)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseVersion(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseVersion("not cmake"); err == nil {
		t.Fatal("expected unparseable output to fail")
	}
}

func TestVersionSupportsParallelFlag(t *testing.T) {
	tests := []struct {
		v    Version
		want bool
	}{
		{Version{3, 11, 4}, false},
		{Version{3, 12, 0}, true},
		{Version{3, 22, 1}, true},
		{Version{4, 0, 0}, true},
		{Version{2, 8, 12}, false},
	}
	for _, tt := range tests {
		if got := tt.v.SupportsParallelFlag(); got != tt.want {
			t.Errorf("%v.SupportsParallelFlag() = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestConfigureArgsDarwinAssembly(t *testing.T) {
	sep := string(os.PathSeparator)
	outDir := filepath.Join("dist", "pasteboard")
	opts := Options{
		OutputDir:           outDir,
		BuildType:           "Debug",
		Generator:           "Ninja",
		Defines:             map[string]string{"FOO": "1", "BAR": "2"},
		OSXArchitectures:    []string{"x86_64", "arm64"},
		OSXDeploymentTarget: "11.0",
		TargetOS:            "darwin",
	}
	py := &pyconfig.Interpreter{
		Executable: "/usr/bin/python3",
		IncludeDir: "/usr/include/python3.10",
	}

	got := ConfigureArgs(opts, py, "/usr/lib/libpython3.10.so")
	want := []string{
		"-DCMAKE_LIBRARY_OUTPUT_DIRECTORY=" + outDir + sep,
		"-DCMAKE_LIBRARY_OUTPUT_DIRECTORY_RELEASE=" + outDir + sep,
		"-DPYTHON_EXECUTABLE=/usr/bin/python3",
		"-DPYTHON_INCLUDE_DIR=/usr/include/python3.10",
		"-DPYTHON_LIBRARY=/usr/lib/libpython3.10.so",
		"-DCMAKE_BUILD_TYPE=Debug",
		"-DCMAKE_CROSSCOMPILING=ON",
		"-DCMAKE_OSX_ARCHITECTURES=x86_64;arm64",
		"-DCMAKE_OSX_DEPLOYMENT_TARGET=11.0",
		"-G", "Ninja",
		"-DBAR=2",
		"-DFOO=1",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("ConfigureArgs =\n%v\nwant\n%v", got, want)
	}
}

func TestConfigureArgsOmitsUnresolvedLibrary(t *testing.T) {
	opts := Options{OutputDir: "out", TargetOS: "linux"}
	py := &pyconfig.Interpreter{Executable: "python3"}

	for _, arg := range ConfigureArgs(opts, py, "") {
		if strings.HasPrefix(arg, "-DPYTHON_LIBRARY=") {
			t.Fatalf("PYTHON_LIBRARY should be omitted when unresolved, got %q", arg)
		}
	}
}

func TestConfigureArgsNonDarwinSkipsOSXDefines(t *testing.T) {
	opts := Options{
		OutputDir:           "out",
		OSXArchitectures:    []string{"x86_64", "arm64"},
		OSXDeploymentTarget: "11.0",
		TargetOS:            "linux",
	}
	py := &pyconfig.Interpreter{Executable: "python3"}

	for _, arg := range ConfigureArgs(opts, py, "") {
		if strings.Contains(arg, "OSX") || strings.Contains(arg, "CROSSCOMPILING") {
			t.Fatalf("unexpected cross-build define on linux target: %q", arg)
		}
	}
}

func TestBuildArgsDefaultJobs(t *testing.T) {
	t.Setenv("CMAKE_BUILD_PARALLEL_LEVEL", "")

	got := BuildArgs(Options{}, Version{3, 22, 1})
	want := []string{"--build", ".", "-j4"}
	if !slices.Equal(got, want) {
		t.Fatalf("BuildArgs = %v, want %v", got, want)
	}
}

func TestBuildArgsExplicitJobs(t *testing.T) {
	t.Setenv("CMAKE_BUILD_PARALLEL_LEVEL", "")

	got := BuildArgs(Options{Jobs: 12}, Version{3, 22, 1})
	want := []string{"--build", ".", "-j12"}
	if !slices.Equal(got, want) {
		t.Fatalf("BuildArgs = %v, want %v", got, want)
	}
}

func TestBuildArgsRespectsParallelEnv(t *testing.T) {
	t.Setenv("CMAKE_BUILD_PARALLEL_LEVEL", "8")

	got := BuildArgs(Options{Jobs: 12}, Version{3, 22, 1})
	want := []string{"--build", "."}
	if !slices.Equal(got, want) {
		t.Fatalf("BuildArgs = %v, want no -j when env controls parallelism", got)
	}
}

func TestBuildArgsOldCMakeSkipsParallelFlag(t *testing.T) {
	got := BuildArgs(Options{Jobs: 12}, Version{3, 11, 0})
	want := []string{"--build", "."}
	if !slices.Equal(got, want) {
		t.Fatalf("BuildArgs = %v, want no -j for cmake < 3.12", got)
	}
}

func TestDriverConfigureAndBuildSmoke(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("default generator discovery differs on windows")
	}
	if _, err := exec.LookPath("cmake"); err != nil {
		t.Skip("cmake not installed")
	}
	if _, err := exec.LookPath("make"); err != nil {
		t.Skip("make not installed")
	}

	srcDir := t.TempDir()
	cmakeLists := "cmake_minimum_required(VERSION 3.10)\nproject(smoke NONE)\n"
	if err := os.WriteFile(filepath.Join(srcDir, "CMakeLists.txt"), []byte(cmakeLists), 0644); err != nil {
		t.Fatalf("write CMakeLists: %v", err)
	}

	workDir := t.TempDir()
	opts := Options{
		SourceDir: srcDir,
		BuildDir:  filepath.Join(workDir, "build"),
		OutputDir: filepath.Join(workDir, "out"),
		BuildType: "Release",
		TargetOS:  "linux",
		Jobs:      2,
	}
	py := &pyconfig.Interpreter{Executable: "python3", IncludeDir: "/usr/include"}

	ctx := context.Background()
	driver, err := NewDriver(ctx, runner.New(), "cmake")
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	if driver.Version().Major < 3 {
		t.Fatalf("unexpected cmake version %v", driver.Version())
	}

	if err := driver.Configure(ctx, opts, py, ""); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := driver.Build(ctx, opts); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

func TestNewDriverMissingCMake(t *testing.T) {
	r := runner.NewWithLookPath(func(string) (string, error) {
		return "", os.ErrNotExist
	})

	if _, err := NewDriver(context.Background(), r, "cmake"); err == nil {
		t.Fatal("expected missing cmake to fail")
	} else if !strings.Contains(err.Error(), "must be installed") {
		t.Fatalf("unexpected error: %v", err)
	}
}
