package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds tool-level settings: where the logs go, which executables to
// drive, and the default build knobs. Project metadata lives in the manifest,
// not here.
type Config struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogFile   string `mapstructure:"log_file" yaml:"log_file"`

	Python    string `mapstructure:"python" yaml:"python"`
	CMake     string `mapstructure:"cmake" yaml:"cmake"`
	Libpython string `mapstructure:"libpython" yaml:"libpython"`

	Jobs       int    `mapstructure:"jobs" yaml:"jobs"`
	TargetJobs int    `mapstructure:"target_jobs" yaml:"target_jobs"`
	BuildDir   string `mapstructure:"build_dir" yaml:"build_dir"`
	DistDir    string `mapstructure:"dist_dir" yaml:"dist_dir"`
	Bundle     bool   `mapstructure:"bundle" yaml:"bundle"`
}

func Default() *Config {
	return &Config{
		LogLevel:   "info",
		LogFormat:  "text",
		CMake:      "cmake",
		Jobs:       4,
		TargetJobs: 1,
		BuildDir:   "build",
		DistDir:    "dist",
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	// Defaults registered with viper so environment overrides bind even for
	// keys absent from the config file.
	viper.SetDefault("log_level", cfg.LogLevel)
	viper.SetDefault("log_format", cfg.LogFormat)
	viper.SetDefault("log_file", cfg.LogFile)
	viper.SetDefault("python", cfg.Python)
	viper.SetDefault("cmake", cfg.CMake)
	viper.SetDefault("libpython", cfg.Libpython)
	viper.SetDefault("jobs", cfg.Jobs)
	viper.SetDefault("target_jobs", cfg.TargetJobs)
	viper.SetDefault("build_dir", cfg.BuildDir)
	viper.SetDefault("dist_dir", cfg.DistDir)
	viper.SetDefault("bundle", cfg.Bundle)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PASTEBOARD")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to cfgFile, or to the per-user config directory when
// cfgFile is empty, and returns the path written. The file round-trips
// through Load.
func Save(cfg *Config, cfgFile string) (string, error) {
	viper.Set("log_level", cfg.LogLevel)
	viper.Set("log_format", cfg.LogFormat)
	viper.Set("log_file", cfg.LogFile)
	viper.Set("python", cfg.Python)
	viper.Set("cmake", cfg.CMake)
	viper.Set("libpython", cfg.Libpython)
	viper.Set("jobs", cfg.Jobs)
	viper.Set("target_jobs", cfg.TargetJobs)
	viper.Set("build_dir", cfg.BuildDir)
	viper.Set("dist_dir", cfg.DistDir)
	viper.Set("bundle", cfg.Bundle)

	cfgPath := cfgFile
	if cfgPath == "" {
		cfgPath = filepath.Join(configDir(), "config.yaml")
	}
	if dir := filepath.Dir(cfgPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", err
		}
	}

	if err := viper.WriteConfigAs(cfgPath); err != nil {
		return "", err
	}
	return cfgPath, nil
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("AppData"), "pasteboard-build")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "pasteboard-build")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "pasteboard-build")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "pasteboard-build")
	}
}
