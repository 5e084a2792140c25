package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/joeyballentine/pasteboard/internal/cmake"
	"github.com/joeyballentine/pasteboard/internal/config"
	"github.com/joeyballentine/pasteboard/internal/dist"
	"github.com/joeyballentine/pasteboard/internal/logging"
	"github.com/joeyballentine/pasteboard/internal/manifest"
	"github.com/joeyballentine/pasteboard/internal/pyconfig"
	"github.com/joeyballentine/pasteboard/internal/runner"
	"github.com/joeyballentine/pasteboard/internal/workqueue"
	"github.com/joeyballentine/pasteboard/pkg/pylocate"
)

var log = logging.L("cli")

var bundleFlag bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Configure, compile and stage all extensions",
	Run: func(cmd *cobra.Command, args []string) {
		buildProject(bundleFlag)
	},
}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Run only the CMake configure step",
	Run: func(cmd *cobra.Command, args []string) {
		configureProject()
	},
}

func init() {
	buildCmd.Flags().BoolVar(&bundleFlag, "bundle", false, "pack the staged tree into a tar.xz bundle")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(configureCmd)
}

// pipeline holds everything the build and configure commands share:
// the loaded project, the inspected interpreter and the cmake driver.
type pipeline struct {
	cfg    *config.Config
	m      *manifest.Manifest
	py     *pyconfig.Interpreter
	driver *cmake.Driver
	lib    string
}

func newPipeline(ctx context.Context) *pipeline {
	cfg := loadConfig()
	m := loadManifest()
	r := runner.New()

	exe, err := pyconfig.Find(r, cfg.Python)
	if err != nil {
		fail("No python interpreter found: %v", err)
	}
	py, err := pyconfig.Inspect(ctx, r, exe)
	if err != nil {
		fail("Failed to inspect %s: %v", exe, err)
	}
	if min := m.Python.MinVersion; min != "" {
		major, minor, perr := pyconfig.ParseVersion(min)
		if perr == nil && !py.VersionAtLeast(major, minor) {
			fail("%s requires Python %s or newer, found %s", m.Name, min, py.Version)
		}
	}

	lib := cfg.Libpython
	if lib == "" {
		lib, err = py.LocateLibrary()
		if err != nil {
			if !errors.Is(err, pylocate.ErrLibraryNotFound) && !errors.Is(err, pylocate.ErrNoLibraryDirs) {
				fail("Library search failed: %v", err)
			}
			log.Warn("no python runtime library found, cmake will use its own discovery")
			lib = ""
		}
	}

	driver, err := cmake.NewDriver(ctx, r, cfg.CMake)
	if err != nil {
		fail("%v", err)
	}
	driver.Stdout = toolSink(os.Stdout)
	driver.Stderr = toolSink(os.Stderr)

	log.Info("toolchain ready",
		"python", py.Executable,
		"pythonVersion", py.Version,
		"cmake", driver.Version().String(),
		"libpython", lib)

	return &pipeline{cfg: cfg, m: m, py: py, driver: driver, lib: lib}
}

// outputDir is where every extension's built libraries land, shared so
// staging scans one tree.
func (p *pipeline) outputDir() string {
	return filepath.Join(p.cfg.BuildDir, "out")
}

func (p *pipeline) extOptions(ext manifest.Extension) cmake.Options {
	outDir := p.outputDir()
	if ext.OutputSubdir != "" {
		outDir = filepath.Join(outDir, ext.OutputSubdir)
	}
	return cmake.Options{
		SourceDir:           ext.SourceDir,
		BuildDir:            filepath.Join(p.cfg.BuildDir, ext.Name),
		OutputDir:           outDir,
		BuildType:           ext.BuildType,
		Generator:           ext.Generator,
		Defines:             ext.Defines,
		OSXArchitectures:    ext.OSX.Architectures,
		OSXDeploymentTarget: ext.OSX.DeploymentTarget,
		Jobs:                p.cfg.Jobs,
	}
}

// runExtensions executes one phase across all extensions on the work
// queue, cfg.TargetJobs at a time.
func (p *pipeline) runExtensions(ctx context.Context, phase string, run func(context.Context, manifest.Extension) error) {
	jobs := make([]workqueue.Job, len(p.m.Extensions))
	for i, ext := range p.m.Extensions {
		jobs[i] = workqueue.Job{
			Name: ext.Name,
			Run: func(ctx context.Context) error {
				return run(ctx, ext)
			},
		}
	}
	if err := workqueue.Run(ctx, p.cfg.TargetJobs, jobs); err != nil {
		fail("%s failed: %v", phase, err)
	}
}

func buildProject(bundle bool) {
	ctx := signalContext()
	start := time.Now()
	p := newPipeline(ctx)

	p.runExtensions(ctx, "build", func(ctx context.Context, ext manifest.Extension) error {
		opts := p.extOptions(ext)
		if err := p.driver.Configure(ctx, opts, p.py, p.lib); err != nil {
			return err
		}
		return p.driver.Build(ctx, opts)
	})

	staged, err := dist.Stage(ctx, p.m, p.outputDir(), p.cfg.DistDir, p.cfg.Jobs)
	if err != nil {
		fail("Staging failed: %v", err)
	}

	if bundle || p.cfg.Bundle {
		meta := dist.Metadata{
			Name:      p.m.Name,
			Version:   p.m.Version,
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			Python:    p.py.Version,
			MinPython: p.m.Python.MinVersion,
			Requires:  p.m.Requires,
			CMake:     p.driver.Version().String(),
			Builder:   "pasteboard-build " + version,
			BuiltAt:   time.Now().UTC(),
		}
		path, err := dist.Bundle(staged, meta, p.cfg.DistDir, dist.BundleName(p.m))
		if err != nil {
			fail("Bundling failed: %v", err)
		}
		fmt.Printf("Bundle: %s\n", path)
	}

	elapsed := time.Since(start)
	log.Info("build finished", logging.KeyDurationMs, elapsed.Milliseconds(), "extensions", len(p.m.Extensions))
	fmt.Printf("Built %d extension(s) into %s in %s\n", len(p.m.Extensions), staged.Root, elapsed.Round(time.Millisecond))
}

func configureProject() {
	ctx := signalContext()
	p := newPipeline(ctx)

	p.runExtensions(ctx, "configure", func(ctx context.Context, ext manifest.Extension) error {
		return p.driver.Configure(ctx, p.extOptions(ext), p.py, p.lib)
	})

	fmt.Printf("Configured %d extension(s) in %s\n", len(p.m.Extensions), p.cfg.BuildDir)
}
