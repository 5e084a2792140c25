package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeyballentine/pasteboard/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or write the tool configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging the config file, environment
variables (PASTEBOARD_*) and command line flags.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fail("Failed to encode config: %v", err)
		}
		fmt.Print(string(out))
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to a file for editing",
	Run: func(cmd *cobra.Command, args []string) {
		// An explicit --config pointing at a fresh path starts from
		// defaults; loadConfig would refuse the missing file.
		var cfg *config.Config
		if _, err := os.Stat(cfgFile); cfgFile != "" && os.IsNotExist(err) {
			cfg = config.Default()
			applyFlagOverrides(cfg)
			cfg.Validate()
		} else {
			cfg = loadConfig()
		}

		path, err := config.Save(cfg, cfgFile)
		if err != nil {
			fail("Failed to write config: %v", err)
		}
		fmt.Printf("Wrote %s\n", path)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
