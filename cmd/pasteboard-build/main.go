package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joeyballentine/pasteboard/internal/config"
	"github.com/joeyballentine/pasteboard/internal/logging"
	"github.com/joeyballentine/pasteboard/internal/manifest"
)

var (
	version = "0.1.0"

	cfgFile      string
	manifestFile string
	pythonExe    string
	logLevel     string
	logFormat    string
	logFile      string
	buildDir     string
	distDir      string
	jobs         int
	targetJobs   int
)

var rootCmd = &cobra.Command{
	Use:   "pasteboard-build",
	Short: "Build Python native extensions with CMake",
	Long: `pasteboard-build drives CMake to compile Python native extensions,
resolves the Python runtime library from the interpreter's own build
configuration, and stages the result for distribution.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pasteboard-build v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the user config dir)")
	rootCmd.PersistentFlags().StringVarP(&manifestFile, "manifest", "f", manifest.DefaultFile, "project manifest file")
	rootCmd.PersistentFlags().StringVar(&pythonExe, "python", "", "python interpreter to build against")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&buildDir, "build-dir", "", "directory for CMake build trees")
	rootCmd.PersistentFlags().StringVar(&distDir, "dist-dir", "", "directory for staged output and bundles")
	rootCmd.PersistentFlags().IntVarP(&jobs, "jobs", "j", 0, "parallel compile jobs per extension")
	rootCmd.PersistentFlags().IntVar(&targetJobs, "target-jobs", 0, "extensions to build in parallel")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// signalContext returns a context cancelled by SIGINT or SIGTERM, so a
// ctrl-c tears down the whole compiler process tree.
func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

// loadConfig merges the config file with command line overrides and
// initializes logging. Flags win over file values.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fail("Failed to load config: %v", err)
	}

	applyFlagOverrides(cfg)
	logging.Init(cfg.LogFormat, cfg.LogLevel, logOutput(cfg))
	cfg.Validate()
	return cfg
}

func applyFlagOverrides(cfg *config.Config) {
	if pythonExe != "" {
		cfg.Python = pythonExe
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if buildDir != "" {
		cfg.BuildDir = buildDir
	}
	if distDir != "" {
		cfg.DistDir = distDir
	}
	if jobs > 0 {
		cfg.Jobs = jobs
	}
	if targetJobs > 0 {
		cfg.TargetJobs = targetJobs
	}
}

// toolLogSink mirrors build tool output into the log file. Set once by
// logOutput so rotation state lives in a single writer.
var toolLogSink io.Writer

// logOutput builds the slog destination: stderr, mirrored into the
// rotating log file when one is configured.
func logOutput(cfg *config.Config) io.Writer {
	if cfg.LogFile == "" {
		return os.Stderr
	}
	rw, err := logging.NewRotatingWriter(cfg.LogFile, 10, 2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return os.Stderr
	}
	toolLogSink = rw
	return logging.TeeWriter(os.Stderr, rw)
}

// toolSink mirrors cmake output into the log file alongside the console.
func toolSink(console io.Writer) io.Writer {
	if toolLogSink == nil {
		return console
	}
	return logging.TeeWriter(console, toolLogSink)
}

func loadManifest() *manifest.Manifest {
	m, err := manifest.Load(manifestFile)
	if err != nil {
		fail("Failed to load manifest %s: %v", manifestFile, err)
	}
	if errs := m.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "manifest: %v\n", e)
		}
		fail("Manifest %s is not valid", manifestFile)
	}
	return m
}
