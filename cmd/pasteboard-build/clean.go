package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joeyballentine/pasteboard/internal/dist"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the build and dist directories",
	Run: func(cmd *cobra.Command, args []string) {
		cleanProject()
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func cleanProject() {
	cfg := loadConfig()
	if err := dist.Clean(cfg.BuildDir, cfg.DistDir); err != nil {
		fail("Clean failed: %v", err)
	}
	fmt.Printf("Removed %s and %s\n", cfg.BuildDir, cfg.DistDir)
}
