package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joeyballentine/pasteboard/internal/cmake"
	"github.com/joeyballentine/pasteboard/internal/doctor"
	"github.com/joeyballentine/pasteboard/internal/manifest"
	"github.com/joeyballentine/pasteboard/internal/pyconfig"
	"github.com/joeyballentine/pasteboard/internal/runner"
	"github.com/joeyballentine/pasteboard/internal/sysinfo"
)

var (
	infoJSON   bool
	doctorJSON bool
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the project, host and toolchain",
	Run: func(cmd *cobra.Command, args []string) {
		showInfo()
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the build toolchain is usable",
	Run: func(cmd *cobra.Command, args []string) {
		runDoctor()
	},
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "print as JSON")
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "print as JSON")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(doctorCmd)
}

// optionalManifest loads the manifest when the file exists, without
// failing commands that work fine outside a project directory.
func optionalManifest() *manifest.Manifest {
	if _, err := os.Stat(manifestFile); err != nil {
		return nil
	}
	return loadManifest()
}

func showInfo() {
	ctx := signalContext()
	cfg := loadConfig()
	r := runner.New()

	m := optionalManifest()
	host := sysinfo.Collect(cfg.BuildDir)

	var py *pyconfig.Interpreter
	if exe, err := pyconfig.Find(r, cfg.Python); err == nil {
		py, _ = pyconfig.Inspect(ctx, r, exe)
	}

	var cmakeVersion string
	if exe, err := r.Find(cfg.CMake); err == nil {
		if v, verr := cmake.DetectVersion(ctx, r, exe); verr == nil {
			cmakeVersion = v.String()
		}
	}

	if infoJSON {
		out := map[string]any{"host": host}
		if m != nil {
			out["project"] = m
		}
		if py != nil {
			lib, _ := py.LocateLibrary()
			out["python"] = map[string]any{
				"executable": py.Executable,
				"version":    py.Version,
				"abiflags":   py.ABIFlags,
				"prefix":     py.Prefix,
				"libpython":  lib,
			}
		}
		if cmakeVersion != "" {
			out["cmake"] = cmakeVersion
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			fail("Failed to encode info: %v", err)
		}
		fmt.Println(string(data))
		return
	}

	if m != nil {
		fmt.Printf("Project:  %s %s (%d extension(s))\n", m.Name, m.Version, len(m.Extensions))
	}
	fmt.Printf("Host:     %s, %s %s, %s\n", host.Hostname, host.OS, host.OSVersion, host.Arch)
	fmt.Printf("          %d cores, %d MB RAM, %d/%d GB disk free at %s\n",
		host.CPUCores, host.MemTotalMB, host.DiskFreeGB, host.DiskTotalGB, cfg.BuildDir)
	if py != nil {
		fmt.Printf("Python:   %s at %s\n", py.Version, py.Executable)
		if lib, err := py.LocateLibrary(); err == nil {
			fmt.Printf("          runtime library %s\n", lib)
		} else {
			fmt.Println("          no runtime library found")
		}
	} else {
		fmt.Println("Python:   not found")
	}
	if cmakeVersion != "" {
		fmt.Printf("CMake:    %s\n", cmakeVersion)
	} else {
		fmt.Println("CMake:    not found")
	}
}

func runDoctor() {
	ctx := signalContext()
	cfg := loadConfig()
	host := sysinfo.Collect(cfg.BuildDir)

	d := &doctor.Doctor{
		Runner:    runner.New(),
		Python:    cfg.Python,
		Libpython: cfg.Libpython,
	}
	if m := optionalManifest(); m != nil {
		d.MinPython = m.Python.MinVersion
	}

	rep := d.Run(ctx)

	if doctorJSON {
		out, err := json.MarshalIndent(map[string]any{
			"host":    host,
			"checks":  rep.Checks,
			"overall": rep.Overall(),
		}, "", "  ")
		if err != nil {
			fail("Failed to encode report: %v", err)
		}
		fmt.Println(string(out))
	} else {
		fmt.Printf("Host: %s, %s %s, %s, %d cores\n\n",
			host.Hostname, host.OS, host.OSVersion, host.Arch, host.CPUCores)
		for _, c := range rep.Checks {
			fmt.Printf("[%-7s] %-11s %s\n", c.Status, c.Name, c.Detail)
		}
	}

	if rep.Overall() == doctor.Missing {
		os.Exit(1)
	}
}
