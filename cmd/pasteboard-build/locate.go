package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joeyballentine/pasteboard/internal/pyconfig"
	"github.com/joeyballentine/pasteboard/internal/pysearch"
	"github.com/joeyballentine/pasteboard/internal/runner"
	"github.com/joeyballentine/pasteboard/pkg/pylocate"
)

var (
	locateJSON     bool
	locateVerify   bool
	locateFallback bool
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Resolve the Python runtime library path",
	Long: `Locate resolves the Python runtime library the way the build does:
from the interpreter's build configuration. The path is printed on
stdout so it can feed other tools.`,
	Run: func(cmd *cobra.Command, args []string) {
		locateLibrary()
	},
}

func init() {
	locateCmd.Flags().BoolVar(&locateJSON, "json", false, "print the result as JSON")
	locateCmd.Flags().BoolVar(&locateVerify, "verify", false, "dlopen the library to prove it loads")
	locateCmd.Flags().BoolVar(&locateFallback, "fallback", false, "search pkg-config and conventional directories on a miss")

	rootCmd.AddCommand(locateCmd)
}

type locateReport struct {
	Found    bool   `json:"found"`
	Path     string `json:"path,omitempty"`
	Source   string `json:"source,omitempty"`
	Python   string `json:"python,omitempty"`
	Verified *bool  `json:"verified,omitempty"`
	Error    string `json:"error,omitempty"`
}

func locateLibrary() {
	ctx := signalContext()
	cfg := loadConfig()
	r := runner.New()

	exe, err := pyconfig.Find(r, cfg.Python)
	if err != nil {
		fail("No python interpreter found: %v", err)
	}
	py, err := pyconfig.Inspect(ctx, r, exe)
	if err != nil {
		fail("Failed to inspect %s: %v", exe, err)
	}

	rep := locateReport{Python: py.Version}
	switch {
	case cfg.Libpython != "":
		rep.Path, rep.Source, rep.Found = cfg.Libpython, "override", true
	default:
		path, lerr := py.LocateLibrary()
		if lerr == nil {
			rep.Path, rep.Source, rep.Found = path, "sysconfig", true
			break
		}
		if !errors.Is(lerr, pylocate.ErrLibraryNotFound) && !errors.Is(lerr, pylocate.ErrNoLibraryDirs) {
			fail("Library search failed: %v", lerr)
		}
		if locateFallback {
			f := &pysearch.Finder{Runner: r, Version: py.Version}
			if path, serr := f.Search(ctx); serr == nil {
				rep.Path, rep.Source, rep.Found = path, "search", true
			}
		}
	}

	if rep.Found && locateVerify {
		ok := true
		if verr := pylocate.Verify(rep.Path); verr != nil {
			ok = false
			rep.Error = verr.Error()
		}
		rep.Verified = &ok
	}
	if !rep.Found && rep.Error == "" {
		rep.Error = "no python runtime library found for " + py.Version
	}

	if locateJSON {
		out, merr := json.MarshalIndent(rep, "", "  ")
		if merr != nil {
			fail("Failed to encode result: %v", merr)
		}
		fmt.Println(string(out))
		if !rep.Found || (rep.Verified != nil && !*rep.Verified) {
			os.Exit(1)
		}
		return
	}

	if !rep.Found {
		fail("%s", rep.Error)
	}
	if rep.Verified != nil && !*rep.Verified {
		fail("%s does not load: %s", rep.Path, rep.Error)
	}
	fmt.Println(rep.Path)
}
