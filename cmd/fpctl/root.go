// Command fpctl enrolls and verifies fingerprints on an R503-class sensor.
//
// Configuration sources, highest priority first:
//  1. Command-line flags
//  2. FPCTL_CONFIG_FILE: path to a configuration file
//  3. FPCTL_<SECTION>_<OPTION> environment variables, e.g. FPCTL_SENSOR_PORT
//  4. .fpctl.yaml in the current directory
//
// The vault passphrase is read from vault.secret_key, normally supplied as
// FPCTL_VAULT_SECRET_KEY.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-ctap/fingerprint/internal/config"
)

var (
	cfgFile     string
	journalPath string
	cfg         *config.Config
	logger      *slog.Logger
	level       = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:   "fpctl",
	Short: "Fingerprint enrollment and verification with encrypted templates",
	Long: `fpctl drives an R503/R307 fingerprint sensor over a serial line.

Templates are enrolled from two captures of the same finger, sealed with
AES-256-GCM under a passphrase derived key and stored as data/encrypted/user_<id>.bin.
Authentication stages the decrypted template in the sensor for one live match
and discards it afterwards.

Quick Start:
  fpctl check                     Check the sensor connection
  fpctl enroll alice              Enroll a finger for user alice
  fpctl authenticate alice        Match a finger against alice's template
  fpctl list                      Show occupied library slots
  fpctl reset --yes               Empty the sensor library`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// normalizeFlag accepts log_level for log-level.
func normalizeFlag(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func init() {
	rootCmd.SetGlobalNormalizationFunc(normalizeFlag)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .fpctl.yaml, can also use FPCTL_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("port", "p", "", "serial port of the sensor, or \"auto\"")
	rootCmd.PersistentFlags().StringVar(&journalPath, "journal", "", "append a CBOR record of every status event to this file")
}

func initConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("FPCTL_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".fpctl")
	}

	flags := cmd.Root().PersistentFlags()
	_ = viper.BindPFlag("log-level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("sensor.port", flags.Lookup("port"))

	viper.SetEnvPrefix("FPCTL")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && viper.ConfigFileUsed() != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := initConfig(cmd); err != nil {
		return err
	}

	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded

	lvl, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	level.Set(lvl)
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))

	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}

	return nil
}
