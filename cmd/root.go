package cmd

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shellhost/pkg/logging"
)

var (
	cfgFile string
	cfg     HostConfig

	// logOut is where host logging goes. A variable so tests can capture it.
	logOut io.Writer = os.Stderr
)

// HostConfig is the host-level configuration, resolved from flags, the
// optional config file and environment variables. It configures the host
// process itself, not the shells; shell settings live in the settings
// document.
type HostConfig struct {
	// Settings is the path to the settings document.
	Settings string `mapstructure:"settings"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// Watch reloads shells when the settings document changes on disk.
	Watch bool `mapstructure:"watch"`

	// Workers bounds concurrent shell builds during a reload.
	Workers int `mapstructure:"workers"`
}

// rootCmd represents the base command for the shellhost application.
var rootCmd = &cobra.Command{
	Use:   "shellhost",
	Short: "Multi-tenant shell composition host",
	Long: `shellhost composes isolated per-tenant service containers ("shells")
from a settings document: each shell enables a set of features, features are
activated in dependency order, and each feature's configuration is merged
from five precedence tiers before its services are registered.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from the main
// package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "shellhost version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"host config file (default: .shellhost/config.yaml)")
	rootCmd.PersistentFlags().String("settings", "",
		"path to the shell settings document")
	rootCmd.PersistentFlags().String("log-level", "",
		"log level: debug, info, warn, error")

	_ = viper.BindPFlag("settings", rootCmd.PersistentFlags().Lookup("settings"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	viper.SetDefault("settings", "shells.yaml")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("watch", false)
	viper.SetDefault("workers", 4)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .shellhost/config.yaml (current directory)
		// 2. ~/.config/shellhost/config.yaml (user config)
		if _, err := os.Stat(".shellhost/config.yaml"); err == nil {
			viper.SetConfigFile(".shellhost/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "shellhost"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("SHELLHOST")
	viper.AutomaticEnv()

	readErr := viper.ReadInConfig()

	_ = viper.Unmarshal(&cfg)

	// Logging comes up before any config problem is reported, otherwise the
	// warning is swallowed by the uninitialized logger.
	logging.Init(logging.ParseLevel(cfg.LogLevel), logOut)

	if readErr != nil {
		// Missing config file means defaults; anything else is reported.
		if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			logging.Warn("Serve", "Reading host config %s: %v", cfgFile, readErr)
		}
	}
}
