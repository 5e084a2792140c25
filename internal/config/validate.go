package config

import (
	"fmt"
	"log/slog"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Validate checks the config for invalid values and returns all errors found.
// Values that would wedge a build (zero job counts, empty directories) are
// clamped to safe defaults; the errors are reported so the author can fix the
// file, but they do not prevent a run.
func (c *Config) Validate() []error {
	var errs []error

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	// Clamp job counts to a sane range
	if c.Jobs < 1 {
		errs = append(errs, fmt.Errorf("jobs %d is below minimum 1, clamping to default 4", c.Jobs))
		c.Jobs = 4
	} else if c.Jobs > 512 {
		errs = append(errs, fmt.Errorf("jobs %d exceeds maximum 512, clamping", c.Jobs))
		c.Jobs = 512
	}

	if c.TargetJobs < 1 {
		errs = append(errs, fmt.Errorf("target_jobs %d is below minimum 1, clamping", c.TargetJobs))
		c.TargetJobs = 1
	} else if c.TargetJobs > 32 {
		errs = append(errs, fmt.Errorf("target_jobs %d exceeds maximum 32, clamping", c.TargetJobs))
		c.TargetJobs = 32
	}

	if c.BuildDir == "" {
		errs = append(errs, fmt.Errorf("build_dir is empty, using default"))
		c.BuildDir = "build"
	}
	if c.DistDir == "" {
		errs = append(errs, fmt.Errorf("dist_dir is empty, using default"))
		c.DistDir = "dist"
	}

	if c.CMake == "" {
		errs = append(errs, fmt.Errorf("cmake executable is empty, using default"))
		c.CMake = "cmake"
	}

	// Log validation errors as warnings
	for _, err := range errs {
		slog.Warn("config validation", "error", err)
	}

	return errs
}
