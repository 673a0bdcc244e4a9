// Package config loads fpctl configuration through Viper from .fpctl.yaml,
// FPCTL_ prefixed environment variables and command-line flags.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/go-ctap/fingerprint/pkg/feedback"
	"github.com/go-ctap/fingerprint/pkg/options"
	"github.com/go-ctap/fingerprint/pkg/r503"
	"github.com/go-ctap/fingerprint/pkg/sensor"
	"github.com/go-ctap/fingerprint/pkg/vault"
)

type Config struct {
	LogLevel string           `mapstructure:"log-level"`
	Sensor   SensorConfig     `mapstructure:"sensor"`
	Capture  CaptureConfig    `mapstructure:"capture"`
	Vault    VaultConfig      `mapstructure:"vault"`
	LED      feedback.Palette `mapstructure:"led"`
}

type SensorConfig struct {
	// Port is a serial device path, or "auto" to probe every port.
	Port        string        `mapstructure:"port"`
	BaudRate    int           `mapstructure:"baudrate"`
	Address     uint32        `mapstructure:"address"`
	Password    uint32        `mapstructure:"password"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	Transfer    string        `mapstructure:"transfer"`
}

type CaptureConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type VaultConfig struct {
	Dir        string `mapstructure:"dir"`
	Iterations int    `mapstructure:"iterations"`
	SecretKey  string `mapstructure:"secret_key"`
}

// AutoPort makes the CLI probe every serial port for a sensor.
const AutoPort = "auto"

func setDefaults() {
	viper.SetDefault("log-level", "info")

	viper.SetDefault("sensor.port", "/dev/ttyUSB0")
	viper.SetDefault("sensor.baudrate", r503.DefaultBaudRate)
	viper.SetDefault("sensor.address", uint32(0xffffffff))
	viper.SetDefault("sensor.password", uint32(0))
	viper.SetDefault("sensor.read_timeout", r503.DefaultReadTimeout)
	viper.SetDefault("sensor.transfer", r503.TransferCharacter.String())

	viper.SetDefault("capture.timeout", options.DefaultCaptureTimeout)
	viper.SetDefault("capture.poll_interval", options.DefaultPollInterval)

	viper.SetDefault("vault.dir", "data/encrypted")
	viper.SetDefault("vault.iterations", vault.DefaultIterations)
	// Registered so FPCTL_VAULT_SECRET_KEY reaches Unmarshal.
	viper.SetDefault("vault.secret_key", "")

	p := feedback.DefaultPalette
	for name, mode := range map[string]sensor.Mode{
		"ready":   p.Ready,
		"place":   p.Place,
		"remove":  p.Remove,
		"process": p.Process,
		"success": p.Success,
		"error":   p.Error,
		"off":     p.Off,
	} {
		viper.SetDefault("led."+name+".color", int(mode.Color))
		viper.SetDefault("led."+name+".pattern", int(mode.Pattern))
		viper.SetDefault("led."+name+".cycles", int(mode.Cycles))
		viper.SetDefault("led."+name+".speed", int(mode.Speed))
	}
}

// Load reads the configuration Viper has collected and validates it.
func Load() (*Config, error) {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Secret returns the vault passphrase.
func (c *VaultConfig) Secret() ([]byte, error) {
	if c.SecretKey == "" {
		return nil, ErrNoSecret
	}
	return []byte(c.SecretKey), nil
}

func (c *Config) WorkflowOptions(logger *slog.Logger) []options.Option {
	return []options.Option{
		options.WithLogger(logger),
		options.WithCaptureTimeout(c.Capture.Timeout),
		options.WithPollInterval(c.Capture.PollInterval),
		options.WithFeedback(c.LED),
	}
}

func (c *Config) SensorOptions(logger *slog.Logger) []r503.Option {
	// validateConfig already accepted the transfer kind.
	kind, _ := r503.ParseTransferKind(c.Sensor.Transfer)

	return []r503.Option{
		r503.WithLogger(logger),
		r503.WithBaudRate(c.Sensor.BaudRate),
		r503.WithAddress(c.Sensor.Address),
		r503.WithPassword(c.Sensor.Password),
		r503.WithReadTimeout(c.Sensor.ReadTimeout),
		r503.WithTransferKind(kind),
	}
}

func (c *Config) OpenVault(logger *slog.Logger) *vault.Vault {
	return vault.New(c.Vault.Dir, vault.WithIterations(c.Vault.Iterations), vault.WithLogger(logger))
}
