package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-ctap/fingerprint/pkg/r503"
)

var ErrNoSecret = errors.New("config: vault.secret_key is not set (FPCTL_VAULT_SECRET_KEY)")

const minIterations = 10000

func validateConfig(config *Config) error {
	if err := validateSensorConfig(&config.Sensor); err != nil {
		return fmt.Errorf("sensor config: %w", err)
	}
	if err := validateCaptureConfig(&config.Capture); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}
	if err := validateVaultConfig(&config.Vault); err != nil {
		return fmt.Errorf("vault config: %w", err)
	}
	if _, err := ParseLevel(config.LogLevel); err != nil {
		return err
	}

	return nil
}

func validateSensorConfig(config *SensorConfig) error {
	if strings.TrimSpace(config.Port) == "" {
		return errors.New("port cannot be empty")
	}
	if config.BaudRate < 9600 || config.BaudRate > 115200 || config.BaudRate%9600 != 0 {
		return fmt.Errorf("baudrate %d must be a multiple of 9600 between 9600 and 115200", config.BaudRate)
	}
	if config.ReadTimeout <= 0 {
		return errors.New("read_timeout must be positive")
	}
	if _, err := r503.ParseTransferKind(config.Transfer); err != nil {
		return err
	}

	return nil
}

func validateCaptureConfig(config *CaptureConfig) error {
	if config.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if config.PollInterval <= 0 {
		return errors.New("poll_interval must be positive")
	}
	if config.PollInterval > config.Timeout {
		return fmt.Errorf("poll_interval %s exceeds timeout %s", config.PollInterval, config.Timeout)
	}

	return nil
}

func validateVaultConfig(config *VaultConfig) error {
	if strings.TrimSpace(config.Dir) == "" {
		return errors.New("dir cannot be empty")
	}
	if strings.Contains(config.Dir, "\x00") {
		return errors.New("dir contains a null byte")
	}
	if config.Iterations < minIterations {
		return fmt.Errorf("iterations %d below minimum %d", config.Iterations, minIterations)
	}

	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
