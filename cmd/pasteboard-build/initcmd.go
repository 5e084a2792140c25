package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joeyballentine/pasteboard/internal/manifest"
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a starter manifest in the current directory",
	Long: `Create a pasteboard.yaml describing the package and one extension.
The package name defaults to the current directory name.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runInit(args)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(args []string) {
	if _, err := os.Stat(manifestFile); err == nil {
		fail("%s already exists", manifestFile)
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	} else if wd, err := os.Getwd(); err == nil {
		name = filepath.Base(wd)
	}

	m := &manifest.Manifest{
		Name:       name,
		Version:    "0.1.0",
		Python:     manifest.PythonSpec{MinVersion: "3.5"},
		PackageDir: "src/" + name,
		Extensions: []manifest.Extension{{
			Name:      name,
			SourceDir: ".",
			BuildType: "Release",
		}},
	}
	if errs := m.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "manifest: %v\n", e)
		}
		fail("Cannot create a valid manifest named %q", name)
	}

	if err := m.Save(manifestFile); err != nil {
		fail("Failed to write manifest: %v", err)
	}
	fmt.Printf("Wrote %s\n", manifestFile)
}
